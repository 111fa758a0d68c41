package hci

import "github.com/muxable/linklayer/pkg/address"

type LESetRandomAddressCommandPacket struct {
	RandomAddress BDAddr
}

func (p *LESetRandomAddressCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetRandomAddress, 6)
	copy(buf[4:], p.RandomAddress[:])
	return buf, nil
}

func (p *LESetRandomAddressCommandPacket) Unmarshal(buf []byte) error {
	params, err := command(buf, OpcodeLESetRandomAddress, 6)
	if err != nil {
		return err
	}
	copy(p.RandomAddress[:], params)
	return nil
}

func (p *LESetRandomAddressCommandPacket) Opcode() Opcode {
	return OpcodeLESetRandomAddress
}

func (h *Host) LESetRandomAddress(a address.Address) error {
	_, err := h.op(&LESetRandomAddressCommandPacket{RandomAddress: NewBDAddr(a)})
	return err
}
