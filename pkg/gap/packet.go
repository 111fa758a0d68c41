package gap

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Data is an encoded AdvData or ScanRspData buffer.
type Data []byte

// Field returns the value of the first structure of type t, or nil.
func (d Data) Field(t Type) []byte {
	it := Iterate(d)
	for it.Next() {
		if s := it.Structure(); s.Type == t {
			if s.Value == nil {
				return []byte{}
			}
			return s.Value
		}
	}
	return nil
}

func (d Data) Flags() (Flags, bool) {
	b := d.Field(TypeFlags)
	if len(b) < 1 {
		return 0, false
	}
	return Flags(b[0]), true
}

// LocalName prefers the complete name over the shortened one.
func (d Data) LocalName() string {
	if b := d.Field(TypeCompleteLocalName); b != nil {
		return string(b)
	}
	return string(d.Field(TypeShortLocalName))
}

func (d Data) TxPower() (TxPowerLevel, bool) {
	b := d.Field(TypeTxPowerLevel)
	if len(b) < 1 {
		return 0, false
	}
	return TxPowerLevel(int8(b[0])), true
}

func (d Data) Appearance() (Appearance, bool) {
	b := d.Field(TypeAppearance)
	if len(b) < 2 {
		return 0, false
	}
	return Appearance(binary.LittleEndian.Uint16(b)), true
}

func (d Data) ManufacturerData() (ManufacturerData, bool) {
	b := d.Field(TypeManufacturerData)
	if len(b) < 2 {
		return ManufacturerData{}, false
	}
	return ManufacturerData{CompanyID: binary.LittleEndian.Uint16(b), Data: b[2:]}, true
}

// Services lists every advertised service UUID, complete or not, expanded to
// 128 bits.
func (d Data) Services() []uuid.UUID {
	var out []uuid.UUID
	it := Iterate(d)
	for it.Next() {
		s := it.Structure()
		switch s.Type {
		case TypeIncompleteUUID16, TypeCompleteUUID16:
			out = uuidsFrom(out, s.Value, 2)
		case TypeIncompleteUUID32, TypeCompleteUUID32:
			out = uuidsFrom(out, s.Value, 4)
		case TypeIncompleteUUID128, TypeCompleteUUID128:
			out = uuidsFrom(out, s.Value, 16)
		}
	}
	return out
}

func (d Data) Structures() ([]Structure, error) {
	return Decode(d)
}
