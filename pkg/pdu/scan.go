package pdu

import (
	"github.com/muxable/linklayer/pkg/address"
)

// ScanReq asks the advertiser AdvA for its scan response.
type ScanReq struct {
	ScanA address.Address
	AdvA  address.Address
}

func (p *ScanReq) Type() Type { return TypeScanReq }

func (p *ScanReq) Header() Header {
	return header(TypeScanReq, isRandom(p.ScanA), isRandom(p.AdvA), 2*addrLength)
}

func (p *ScanReq) Marshal() ([]byte, error) { return marshal(p) }

func (p *ScanReq) MarshalTo(buf []byte) (int, error) {
	body, err := begin(buf, p.Header(), 2*addrLength)
	if err != nil {
		return 0, err
	}
	putAddr(body, p.ScanA)
	putAddr(body[addrLength:], p.AdvA)
	return HeaderLength + len(body), nil
}

func (p *ScanReq) Unmarshal(buf []byte) error {
	h, b, err := payload(buf, TypeScanReq, 2*addrLength, 2*addrLength)
	if err != nil {
		return err
	}
	*p = ScanReq{
		ScanA: getAddr(b, h.TxAdd()),
		AdvA:  getAddr(b[addrLength:], h.RxAdd()),
	}
	return nil
}

type ScanRsp struct {
	AdvA        address.Address
	ScanRspData []byte
}

func (p *ScanRsp) Type() Type { return TypeScanRsp }

func (p *ScanRsp) Header() Header {
	return header(TypeScanRsp, isRandom(p.AdvA), false, addrLength+len(p.ScanRspData))
}

func (p *ScanRsp) Marshal() ([]byte, error) { return marshal(p) }

func (p *ScanRsp) MarshalTo(buf []byte) (int, error) {
	return marshalAdv(buf, p.Header(), p.AdvA, p.ScanRspData)
}

func (p *ScanRsp) Unmarshal(buf []byte) error {
	_, a, d, err := unmarshalAdv(buf, TypeScanRsp)
	if err != nil {
		return err
	}
	*p = ScanRsp{AdvA: a, ScanRspData: d}
	return nil
}
