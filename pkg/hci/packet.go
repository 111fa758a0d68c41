package hci

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidParameters is returned by Unmarshal when a command's framing is
// intact but its parameters are not. The packet is still returned so the
// opcode can be answered.
var ErrInvalidParameters = errors.New("invalid command parameters")

type Packet interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

type CommandPacket interface {
	Packet
	Opcode() Opcode
}

// Unmarshal decodes one H4 packet. Commands the controller knows are returned
// as their typed packet, anything else as a *GenericCommandPacket.
func Unmarshal(buf []byte) (Packet, error) {
	if len(buf) == 0 {
		return nil, io.ErrShortBuffer
	}
	switch PacketType(buf[0]) {
	case PacketTypeCommand:
		g := &GenericCommandPacket{}
		if err := g.Unmarshal(buf); err != nil {
			return nil, err
		}
		var p CommandPacket
		switch g.opcode {
		case OpcodeSetEventMask:
			p = &SetEventMaskCommandPacket{}
		case OpcodeLESetEventMask:
			p = &LESetEventMaskCommandPacket{}
		case OpcodeLESetRandomAddress:
			p = &LESetRandomAddressCommandPacket{}
		case OpcodeLESetAdvertisingParameters:
			p = &LESetAdvertisingParametersCommandPacket{}
		case OpcodeLESetAdvertisingData:
			p = &LESetAdvertisingDataCommandPacket{}
		case OpcodeLESetScanResponseData:
			p = &LESetScanResponseDataCommandPacket{}
		case OpcodeLESetAdvertisingEnable:
			p = &LESetAdvertisingEnableCommandPacket{}
		case OpcodeAddDeviceToFilterAcceptList:
			p = &AddDeviceToFilterAcceptListCommandPacket{}
		default:
			return g, nil
		}
		if err := p.Unmarshal(buf); err != nil {
			return g, errors.Wrapf(ErrInvalidParameters, "%s: %v", g.opcode, err)
		}
		return p, nil
	case PacketTypeEvent:
		if len(buf) < 3 {
			return nil, io.ErrShortBuffer
		}
		s := uint8(buf[2])
		if len(buf) != int(s)+3 {
			return nil, io.ErrShortBuffer
		}
		switch EventCode(buf[1]) {
		case EventCodeCommandComplete:
			p := &CommandCompleteEventPacket{}
			return p, p.Unmarshal(buf)
		case EventCodeLEMeta:
			if s == 0 {
				return nil, io.ErrShortBuffer
			}
			switch LEMetaSubeventCode(buf[3]) {
			case LEMetaSubeventCodeConnectionComplete:
				p := &LEConnectionCompleteEventPacket{}
				if err := p.Unmarshal(buf); err != nil {
					return nil, err
				}
				return p, nil
			}
		}
	}
	return nil, errors.Errorf("unsupported packet type 0x%02x", buf[0])
}

// command checks the H4 command header of buf against opcode and returns the
// parameters, which must be exactly n bytes long.
func command(buf []byte, opcode Opcode, n int) ([]byte, error) {
	if len(buf) < 4 || buf[0] != byte(PacketTypeCommand) || Opcode(binary.LittleEndian.Uint16(buf[1:])) != opcode {
		return nil, errors.New("incorrect packet")
	}
	if int(buf[3]) != n || len(buf) != 4+n {
		return nil, io.ErrShortBuffer
	}
	return buf[4:], nil
}

func newCommand(opcode Opcode, n int) []byte {
	buf := make([]byte, 4+n)
	buf[0] = byte(PacketTypeCommand)
	binary.LittleEndian.PutUint16(buf[1:], uint16(opcode))
	buf[3] = byte(n)
	return buf
}

// GenericCommandPacket encompasses many argument-less packets, and carries
// the raw parameters of commands without a typed packet.
type GenericCommandPacket struct {
	opcode     Opcode
	Parameters []byte
}

func NewGenericCommandPacket(opcode Opcode) *GenericCommandPacket {
	return &GenericCommandPacket{opcode: opcode}
}

func (p *GenericCommandPacket) Marshal() ([]byte, error) {
	if len(p.Parameters) > math.MaxUint8 {
		return nil, io.ErrShortWrite
	}
	buf := newCommand(p.opcode, len(p.Parameters))
	copy(buf[4:], p.Parameters)
	return buf, nil
}

func (p *GenericCommandPacket) Unmarshal(buf []byte) error {
	if len(buf) < 4 || buf[0] != byte(PacketTypeCommand) {
		return errors.New("incorrect packet")
	}
	if len(buf) != int(buf[3])+4 {
		return io.ErrShortBuffer
	}
	p.opcode = Opcode(binary.LittleEndian.Uint16(buf[1:3]))
	p.Parameters = buf[4:]
	return nil
}

func (p *GenericCommandPacket) Opcode() Opcode {
	return p.opcode
}

type LESetAdvertisingEnableCommandPacket struct {
	AdvertisingEnable bool
}

func (p *LESetAdvertisingEnableCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetAdvertisingEnable, 1)
	if p.AdvertisingEnable {
		buf[4] = 1
	}
	return buf, nil
}

func (p *LESetAdvertisingEnableCommandPacket) Unmarshal(buf []byte) error {
	params, err := command(buf, OpcodeLESetAdvertisingEnable, 1)
	if err != nil {
		return err
	}
	if params[0] > 1 {
		return errors.Errorf("advertising enable %d", params[0])
	}
	p.AdvertisingEnable = params[0] == 1
	return nil
}

func (p *LESetAdvertisingEnableCommandPacket) Opcode() Opcode {
	return OpcodeLESetAdvertisingEnable
}

type CommandCompleteEventPacket struct {
	NumCommandPackets uint8
	CommandOpcode     Opcode
	ReturnParameters  []byte
}

// Status is the first return parameter.
func (p *CommandCompleteEventPacket) Status() Status {
	if len(p.ReturnParameters) == 0 {
		return StatusUnspecifiedError
	}
	return Status(p.ReturnParameters[0])
}

func (p *CommandCompleteEventPacket) Unmarshal(buf []byte) error {
	if len(buf) < 6 || buf[0] != byte(PacketTypeEvent) || buf[1] != byte(EventCodeCommandComplete) {
		return errors.New("incorrect packet")
	}
	s := int(buf[2])
	if len(buf) != s+3 {
		return io.ErrShortBuffer
	}
	p.NumCommandPackets = buf[3]
	p.CommandOpcode = Opcode(binary.LittleEndian.Uint16(buf[4:]))
	p.ReturnParameters = buf[6:]
	return nil
}

func (p *CommandCompleteEventPacket) Marshal() ([]byte, error) {
	if len(p.ReturnParameters)+3 > math.MaxUint8 {
		return nil, io.ErrShortWrite
	}
	buf := make([]byte, 6+len(p.ReturnParameters))
	buf[0] = byte(PacketTypeEvent)
	buf[1] = byte(EventCodeCommandComplete)
	buf[2] = byte(len(p.ReturnParameters) + 3)
	buf[3] = byte(p.NumCommandPackets)
	binary.LittleEndian.PutUint16(buf[4:], uint16(p.CommandOpcode))
	copy(buf[6:], p.ReturnParameters)
	return buf, nil
}

type Role uint8

const (
	RoleCentral    Role = 0
	RolePeripheral Role = 1
)

type CentralClockAccuracy uint8

const (
	CentralClockAccuracy500PPM CentralClockAccuracy = 0
	CentralClockAccuracy250PPM CentralClockAccuracy = 1
	CentralClockAccuracy150PPM CentralClockAccuracy = 2
	CentralClockAccuracy100PPM CentralClockAccuracy = 3
	CentralClockAccuracy75PPM  CentralClockAccuracy = 4
	CentralClockAccuracy50PPM  CentralClockAccuracy = 5
	CentralClockAccuracy30PPM  CentralClockAccuracy = 6
	CentralClockAccuracy20PPM  CentralClockAccuracy = 7
)

type LEConnectionCompleteEventPacket struct {
	Status               Status
	ConnectionHandle     uint16
	Role                 Role
	PeerAddressType      PeerAddressType
	PeerAddress          BDAddr
	ConnectionInterval   uint16
	PeripheralLatency    uint16
	SupervisionTimeout   uint16
	CentralClockAccuracy CentralClockAccuracy
}

func (p *LEConnectionCompleteEventPacket) Marshal() ([]byte, error) {
	buf := make([]byte, 22)
	buf[0] = byte(PacketTypeEvent)
	buf[1] = byte(EventCodeLEMeta)
	buf[2] = 19
	buf[3] = byte(LEMetaSubeventCodeConnectionComplete)
	buf[4] = byte(p.Status)
	binary.LittleEndian.PutUint16(buf[5:], p.ConnectionHandle)
	buf[7] = byte(p.Role)
	buf[8] = byte(p.PeerAddressType)
	copy(buf[9:15], p.PeerAddress[:])
	binary.LittleEndian.PutUint16(buf[15:], p.ConnectionInterval)
	binary.LittleEndian.PutUint16(buf[17:], p.PeripheralLatency)
	binary.LittleEndian.PutUint16(buf[19:], p.SupervisionTimeout)
	buf[21] = byte(p.CentralClockAccuracy)
	return buf, nil
}

func (p *LEConnectionCompleteEventPacket) Unmarshal(buf []byte) error {
	if len(buf) < 4 || buf[0] != byte(PacketTypeEvent) || buf[1] != byte(EventCodeLEMeta) {
		return errors.New("incorrect packet")
	}
	if buf[2] != 19 || len(buf) != 22 {
		return io.ErrShortBuffer
	}
	if buf[3] != byte(LEMetaSubeventCodeConnectionComplete) {
		return errors.New("incorrect subevent")
	}
	p.Status = Status(buf[4])
	p.ConnectionHandle = binary.LittleEndian.Uint16(buf[5:7])
	p.Role = Role(buf[7])
	p.PeerAddressType = PeerAddressType(buf[8])
	copy(p.PeerAddress[:], buf[9:15])
	p.ConnectionInterval = binary.LittleEndian.Uint16(buf[15:17])
	p.PeripheralLatency = binary.LittleEndian.Uint16(buf[17:19])
	p.SupervisionTimeout = binary.LittleEndian.Uint16(buf[19:21])
	p.CentralClockAccuracy = CentralClockAccuracy(buf[21])
	return nil
}
