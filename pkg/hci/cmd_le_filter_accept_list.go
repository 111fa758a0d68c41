package hci

import "github.com/pkg/errors"

// FilterAcceptListSize is the number of entries the controller keeps.
const FilterAcceptListSize = 8

type AddDeviceToFilterAcceptListCommandPacket struct {
	AddressType PeerAddressType
	Address     BDAddr
}

func (p *AddDeviceToFilterAcceptListCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeAddDeviceToFilterAcceptList, 7)
	buf[4] = byte(p.AddressType)
	copy(buf[5:], p.Address[:])
	return buf, nil
}

func (p *AddDeviceToFilterAcceptListCommandPacket) Unmarshal(buf []byte) error {
	params, err := command(buf, OpcodeAddDeviceToFilterAcceptList, 7)
	if err != nil {
		return err
	}
	p.AddressType = PeerAddressType(params[0])
	copy(p.Address[:], params[1:])
	if p.AddressType > PeerAddressTypeRandomDeviceAddress {
		return errors.Errorf("address type %d", p.AddressType)
	}
	return nil
}

func (p *AddDeviceToFilterAcceptListCommandPacket) Opcode() Opcode {
	return OpcodeAddDeviceToFilterAcceptList
}

func (h *Host) ClearFilterAcceptList() error {
	_, err := h.op(NewGenericCommandPacket(OpcodeClearFilterAcceptList))
	return err
}

func (h *Host) ReadFilterAcceptListSize() (uint8, error) {
	buf, err := h.op(NewGenericCommandPacket(OpcodeReadFilterAcceptListSize))
	if err != nil {
		return 0, err
	}
	return buf[1], nil
}

func (h *Host) AddDeviceToFilterAcceptList(t PeerAddressType, a BDAddr) error {
	_, err := h.op(&AddDeviceToFilterAcceptListCommandPacket{AddressType: t, Address: a})
	return err
}
