package gap

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/muxable/linklayer/pkg/llerr"
)

// Type is an assigned AD type code.
type Type uint8

const (
	TypeFlags               Type = 0x01
	TypeIncompleteUUID16    Type = 0x02
	TypeCompleteUUID16      Type = 0x03
	TypeIncompleteUUID32    Type = 0x04
	TypeCompleteUUID32      Type = 0x05
	TypeIncompleteUUID128   Type = 0x06
	TypeCompleteUUID128     Type = 0x07
	TypeShortLocalName      Type = 0x08
	TypeCompleteLocalName   Type = 0x09
	TypeTxPowerLevel        Type = 0x0A
	TypeConnIntervalRange   Type = 0x12
	TypeSolicitation16      Type = 0x14
	TypeServiceData16       Type = 0x16
	TypeAppearance          Type = 0x19
	TypeAdvertisingInterval Type = 0x1A
	TypeServiceData32       Type = 0x20
	TypeServiceData128      Type = 0x21
	TypeManufacturerData    Type = 0xFF
)

func (t Type) String() string {
	switch t {
	case TypeFlags:
		return "Flags"
	case TypeIncompleteUUID16, TypeCompleteUUID16:
		return "UUID16"
	case TypeIncompleteUUID32, TypeCompleteUUID32:
		return "UUID32"
	case TypeIncompleteUUID128, TypeCompleteUUID128:
		return "UUID128"
	case TypeShortLocalName:
		return "ShortLocalName"
	case TypeCompleteLocalName:
		return "CompleteLocalName"
	case TypeTxPowerLevel:
		return "TxPowerLevel"
	case TypeServiceData16:
		return "ServiceData16"
	case TypeAppearance:
		return "Appearance"
	case TypeManufacturerData:
		return "ManufacturerData"
	}
	return fmt.Sprintf("0x%02x", uint8(t))
}

const (
	// LegacyBudget is the AdvData/ScanRspData capacity of a legacy PDU.
	LegacyBudget = 31

	// ExtendedBudget is the advertising data capacity of an extended advertising set.
	ExtendedBudget = 1650
)

// Structure is a single length-type-value entry. Unknown types are kept as
// opaque bytes.
type Structure struct {
	Type  Type
	Value []byte
}

func (s Structure) Len() int {
	return 2 + len(s.Value)
}

func (s Structure) Marshal() ([]byte, error) {
	if len(s.Value) > 0xFE {
		return nil, errors.Wrapf(llerr.ErrPayloadTooLarge, "%s value is %d bytes", s.Type, len(s.Value))
	}
	return append([]byte{byte(len(s.Value) + 1), byte(s.Type)}, s.Value...), nil
}

func (s Structure) String() string {
	return fmt.Sprintf("%s(%x)", s.Type, s.Value)
}
