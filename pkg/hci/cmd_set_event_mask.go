package hci

import "encoding/binary"

// Section 7.3.1
type EventMask uint64

const (
	EventMaskDisconnectionCompleteEvent        EventMask = (1 << 4)
	EventMaskEncryptionChangeEvent             EventMask = (1 << 7)
	EventMaskHardwareErrorEvent                EventMask = (1 << 15)
	EventMaskEncryptionKeyRefreshCompleteEvent EventMask = (1 << 47)
	EventMaskLEMetaEvent                       EventMask = (1 << 61)

	DefaultEventMask EventMask = 0x00001FFFFFFFFFFF
)

type SetEventMaskCommandPacket struct {
	EventMask
}

func (p *SetEventMaskCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeSetEventMask, 8)
	binary.LittleEndian.PutUint64(buf[4:], uint64(p.EventMask))
	return buf, nil
}

func (p *SetEventMaskCommandPacket) Unmarshal(buf []byte) error {
	params, err := command(buf, OpcodeSetEventMask, 8)
	if err != nil {
		return err
	}
	p.EventMask = EventMask(binary.LittleEndian.Uint64(params))
	return nil
}

func (p *SetEventMaskCommandPacket) Opcode() Opcode {
	return OpcodeSetEventMask
}

func (h *Host) SetEventMask(mask EventMask) error {
	_, err := h.op(&SetEventMaskCommandPacket{EventMask: mask})
	return err
}
