package pdu

import (
	"github.com/muxable/linklayer/pkg/address"
)

// AdvInd is a connectable and scannable undirected advertisement.
type AdvInd struct {
	AdvA    address.Address
	AdvData []byte
	ChSel   bool
}

func (p *AdvInd) Type() Type { return TypeAdvInd }

func (p *AdvInd) Header() Header {
	return header(TypeAdvInd, isRandom(p.AdvA), false, addrLength+len(p.AdvData)).WithChSel(p.ChSel)
}

func (p *AdvInd) Marshal() ([]byte, error) { return marshal(p) }

func (p *AdvInd) MarshalTo(buf []byte) (int, error) {
	return marshalAdv(buf, p.Header(), p.AdvA, p.AdvData)
}

func (p *AdvInd) Unmarshal(buf []byte) error {
	h, a, d, err := unmarshalAdv(buf, TypeAdvInd)
	if err != nil {
		return err
	}
	*p = AdvInd{AdvA: a, AdvData: d, ChSel: h.ChSel()}
	return nil
}

// AdvNonconnInd is a non-connectable, non-scannable undirected advertisement.
type AdvNonconnInd struct {
	AdvA    address.Address
	AdvData []byte
}

func (p *AdvNonconnInd) Type() Type { return TypeAdvNonconnInd }

func (p *AdvNonconnInd) Header() Header {
	return header(TypeAdvNonconnInd, isRandom(p.AdvA), false, addrLength+len(p.AdvData))
}

func (p *AdvNonconnInd) Marshal() ([]byte, error) { return marshal(p) }

func (p *AdvNonconnInd) MarshalTo(buf []byte) (int, error) {
	return marshalAdv(buf, p.Header(), p.AdvA, p.AdvData)
}

func (p *AdvNonconnInd) Unmarshal(buf []byte) error {
	_, a, d, err := unmarshalAdv(buf, TypeAdvNonconnInd)
	if err != nil {
		return err
	}
	*p = AdvNonconnInd{AdvA: a, AdvData: d}
	return nil
}

// AdvScanInd is a scannable undirected advertisement.
type AdvScanInd struct {
	AdvA    address.Address
	AdvData []byte
}

func (p *AdvScanInd) Type() Type { return TypeAdvScanInd }

func (p *AdvScanInd) Header() Header {
	return header(TypeAdvScanInd, isRandom(p.AdvA), false, addrLength+len(p.AdvData))
}

func (p *AdvScanInd) Marshal() ([]byte, error) { return marshal(p) }

func (p *AdvScanInd) MarshalTo(buf []byte) (int, error) {
	return marshalAdv(buf, p.Header(), p.AdvA, p.AdvData)
}

func (p *AdvScanInd) Unmarshal(buf []byte) error {
	_, a, d, err := unmarshalAdv(buf, TypeAdvScanInd)
	if err != nil {
		return err
	}
	*p = AdvScanInd{AdvA: a, AdvData: d}
	return nil
}

// AdvDirectInd is a connectable advertisement directed at TargetA.
type AdvDirectInd struct {
	AdvA    address.Address
	TargetA address.Address
	ChSel   bool
}

func (p *AdvDirectInd) Type() Type { return TypeAdvDirectInd }

func (p *AdvDirectInd) Header() Header {
	return header(TypeAdvDirectInd, isRandom(p.AdvA), isRandom(p.TargetA), 2*addrLength).WithChSel(p.ChSel)
}

func (p *AdvDirectInd) Marshal() ([]byte, error) { return marshal(p) }

func (p *AdvDirectInd) MarshalTo(buf []byte) (int, error) {
	body, err := begin(buf, p.Header(), 2*addrLength)
	if err != nil {
		return 0, err
	}
	putAddr(body, p.AdvA)
	putAddr(body[addrLength:], p.TargetA)
	return HeaderLength + len(body), nil
}

func (p *AdvDirectInd) Unmarshal(buf []byte) error {
	h, b, err := payload(buf, TypeAdvDirectInd, 2*addrLength, 2*addrLength)
	if err != nil {
		return err
	}
	*p = AdvDirectInd{
		AdvA:    getAddr(b, h.TxAdd()),
		TargetA: getAddr(b[addrLength:], h.RxAdd()),
		ChSel:   h.ChSel(),
	}
	return nil
}

func header(t Type, txAdd, rxAdd bool, n int) Header {
	return (Header(t) | Header(n)<<headerLenShift).WithTxAdd(txAdd).WithRxAdd(rxAdd)
}

func marshalAdv(buf []byte, h Header, a address.Address, d []byte) (int, error) {
	if err := checkData(h.Type(), d); err != nil {
		return 0, err
	}
	body, err := begin(buf, h, addrLength+len(d))
	if err != nil {
		return 0, err
	}
	putAddr(body, a)
	copy(body[addrLength:], d)
	return HeaderLength + len(body), nil
}

func unmarshalAdv(buf []byte, t Type) (Header, address.Address, []byte, error) {
	h, b, err := payload(buf, t, addrLength, addrLength+MaxAdvData)
	if err != nil {
		return 0, address.Address{}, nil, err
	}
	return h, getAddr(b, h.TxAdd()), data(b[addrLength:]), nil
}
