package gap

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// DataType is anything that marshals into a single AD structure.
type DataType interface {
	Marshal() ([]byte, error)
}

type Flags uint8

const (
	FlagsLELimitedDiscoverableMode Flags = (1 << 0)
	FlagsLEGeneralDiscoverableMode Flags = (1 << 1)
	FlagsBREDRNotSupported         Flags = (1 << 2)
	FlagsSimultaneousLEAndBREDR    Flags = (1 << 3)
)

func (f Flags) Marshal() ([]byte, error) {
	return []byte{0x02, byte(TypeFlags), byte(f)}, nil
}

type CompleteLocalName string

func (l CompleteLocalName) Marshal() ([]byte, error) {
	return Structure{TypeCompleteLocalName, []byte(l)}.Marshal()
}

type ShortLocalName string

func (l ShortLocalName) Marshal() ([]byte, error) {
	return Structure{TypeShortLocalName, []byte(l)}.Marshal()
}

// TxPowerLevel is in dBm.
type TxPowerLevel int8

func (p TxPowerLevel) Marshal() ([]byte, error) {
	return []byte{0x02, byte(TypeTxPowerLevel), byte(p)}, nil
}

type Appearance uint16

func (a Appearance) Marshal() ([]byte, error) {
	return []byte{0x03, byte(TypeAppearance), byte(a), byte(a >> 8)}, nil
}

// UUID16List is a complete list of 16-bit service UUIDs.
type UUID16List []uint16

func (l UUID16List) Marshal() ([]byte, error) {
	return Structure{TypeCompleteUUID16, appendUUID16(nil, l)}.Marshal()
}

// UUID32List is a complete list of 32-bit service UUIDs.
type UUID32List []uint32

func (l UUID32List) Marshal() ([]byte, error) {
	v := make([]byte, 0, 4*len(l))
	for _, u := range l {
		v = append(v, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
	}
	return Structure{TypeCompleteUUID32, v}.Marshal()
}

// UUID128List is a complete list of 128-bit service UUIDs.
type UUID128List []uuid.UUID

func (l UUID128List) Marshal() ([]byte, error) {
	return Structure{TypeCompleteUUID128, appendUUID128(nil, l)}.Marshal()
}

type ManufacturerData struct {
	CompanyID uint16
	Data      []byte
}

func (m ManufacturerData) Marshal() ([]byte, error) {
	v := make([]byte, 2, 2+len(m.Data))
	binary.LittleEndian.PutUint16(v, m.CompanyID)
	return Structure{TypeManufacturerData, append(v, m.Data...)}.Marshal()
}

type ServiceData16 struct {
	UUID uint16
	Data []byte
}

func (s ServiceData16) Marshal() ([]byte, error) {
	v := make([]byte, 2, 2+len(s.Data))
	binary.LittleEndian.PutUint16(v, s.UUID)
	return Structure{TypeServiceData16, append(v, s.Data...)}.Marshal()
}

func appendUUID16(b []byte, l []uint16) []byte {
	for _, u := range l {
		b = append(b, byte(u), byte(u>>8))
	}
	return b
}

// 128-bit UUIDs travel little-endian.
func appendUUID128(b []byte, l []uuid.UUID) []byte {
	for _, u := range l {
		for i := len(u) - 1; i >= 0; i-- {
			b = append(b, u[i])
		}
	}
	return b
}
