package pdu

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/llerr"
)

// LLData carries the connection parameters of a CONNECT_IND.
type LLData struct {
	AccessAddress uint32
	CRCInit       uint32 // 24 bits
	WinSize       uint8
	WinOffset     uint16
	Interval      uint16
	Latency       uint16
	Timeout       uint16
	ChannelMap    uint64 // 37 bits, one per data channel
	Hop           uint8  // 5 bits
	SCA           uint8  // 3 bits
}

func (d *LLData) validate() error {
	switch {
	case d.CRCInit > 0xFFFFFF:
		return errors.Wrapf(llerr.ErrOutOfRange, "crc init %#x is wider than 24 bits", d.CRCInit)
	case d.ChannelMap > 0x1FFFFFFFFF:
		return errors.Wrapf(llerr.ErrOutOfRange, "channel map %#x is wider than 37 bits", d.ChannelMap)
	case d.Hop > 0x1F:
		return errors.Wrapf(llerr.ErrOutOfRange, "hop increment %d", d.Hop)
	case d.SCA > 0x07:
		return errors.Wrapf(llerr.ErrOutOfRange, "sleep clock accuracy %d", d.SCA)
	}
	return nil
}

func (d *LLData) marshalTo(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], d.AccessAddress)
	b[4] = byte(d.CRCInit)
	b[5] = byte(d.CRCInit >> 8)
	b[6] = byte(d.CRCInit >> 16)
	b[7] = d.WinSize
	binary.LittleEndian.PutUint16(b[8:], d.WinOffset)
	binary.LittleEndian.PutUint16(b[10:], d.Interval)
	binary.LittleEndian.PutUint16(b[12:], d.Latency)
	binary.LittleEndian.PutUint16(b[14:], d.Timeout)
	for i := 0; i < 5; i++ {
		b[16+i] = byte(d.ChannelMap >> (8 * i))
	}
	b[21] = d.Hop&0x1F | d.SCA<<5
}

func (d *LLData) unmarshal(b []byte) {
	d.AccessAddress = binary.LittleEndian.Uint32(b[0:])
	d.CRCInit = uint32(b[4]) | uint32(b[5])<<8 | uint32(b[6])<<16
	d.WinSize = b[7]
	d.WinOffset = binary.LittleEndian.Uint16(b[8:])
	d.Interval = binary.LittleEndian.Uint16(b[10:])
	d.Latency = binary.LittleEndian.Uint16(b[12:])
	d.Timeout = binary.LittleEndian.Uint16(b[14:])
	d.ChannelMap = 0
	for i := 0; i < 5; i++ {
		d.ChannelMap |= uint64(b[16+i]) << (8 * i)
	}
	d.Hop = b[21] & 0x1F
	d.SCA = b[21] >> 5
}

// ConnectInd is sent by an initiator to open a connection with AdvA.
type ConnectInd struct {
	InitA  address.Address
	AdvA   address.Address
	LLData LLData
	ChSel  bool
}

func (p *ConnectInd) Type() Type { return TypeConnectInd }

func (p *ConnectInd) Header() Header {
	return header(TypeConnectInd, isRandom(p.InitA), isRandom(p.AdvA), connectLength).WithChSel(p.ChSel)
}

func (p *ConnectInd) Marshal() ([]byte, error) { return marshal(p) }

func (p *ConnectInd) MarshalTo(buf []byte) (int, error) {
	if err := p.LLData.validate(); err != nil {
		return 0, err
	}
	body, err := begin(buf, p.Header(), connectLength)
	if err != nil {
		return 0, err
	}
	putAddr(body, p.InitA)
	putAddr(body[addrLength:], p.AdvA)
	p.LLData.marshalTo(body[2*addrLength:])
	return HeaderLength + len(body), nil
}

func (p *ConnectInd) Unmarshal(buf []byte) error {
	h, b, err := payload(buf, TypeConnectInd, connectLength, connectLength)
	if err != nil {
		return err
	}
	p.InitA = getAddr(b, h.TxAdd())
	p.AdvA = getAddr(b[addrLength:], h.RxAdd())
	p.LLData.unmarshal(b[2*addrLength:])
	p.ChSel = h.ChSel()
	return nil
}
