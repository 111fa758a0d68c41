package hci

import "encoding/binary"

// Section 7.8.1
type LEEventMask uint64

const (
	LEEventMaskConnectionCompleteEvent             LEEventMask = (1 << 0)
	LEEventMaskAdvertisingReportEvent              LEEventMask = (1 << 1)
	LEEventMaskConnectionUpdateCompleteEvent       LEEventMask = (1 << 2)
	LEEventMaskReadRemoteUsedFeaturesCompleteEvent LEEventMask = (1 << 3)
	LEEventMaskLongTermKeyRequestEvent             LEEventMask = (1 << 4)

	DefaultLEEventMask LEEventMask = 0x1F
)

type LESetEventMaskCommandPacket struct {
	LEEventMask
}

func (p *LESetEventMaskCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetEventMask, 8)
	binary.LittleEndian.PutUint64(buf[4:], uint64(p.LEEventMask))
	return buf, nil
}

func (p *LESetEventMaskCommandPacket) Unmarshal(buf []byte) error {
	params, err := command(buf, OpcodeLESetEventMask, 8)
	if err != nil {
		return err
	}
	p.LEEventMask = LEEventMask(binary.LittleEndian.Uint64(params))
	return nil
}

func (p *LESetEventMaskCommandPacket) Opcode() Opcode {
	return OpcodeLESetEventMask
}

func (h *Host) LESetEventMask(mask LEEventMask) error {
	_, err := h.op(&LESetEventMaskCommandPacket{LEEventMask: mask})
	return err
}
