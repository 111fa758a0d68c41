package hci

import "fmt"

// https://software-dl.ti.com/simplelink/esd/simplelink_cc13x2_sdk/1.60.00.29_new/exports/docs/ble5stack/vendor_specific_guide/BLE_Vendor_Specific_HCI_Guide/hci_interface.html

type PacketType uint8

const (
	PacketTypeCommand         PacketType = 0x01
	PacketTypeACLData         PacketType = 0x02
	PacketTypeSynchronousData PacketType = 0x03
	PacketTypeEvent           PacketType = 0x04
	PacketTypeExtendedCommand PacketType = 0x09
	PacketTypeVendor          PacketType = 0xFF
)

type Opcode uint16

const (
	OpcodeSetEventMask                Opcode = 0x0C01
	OpcodeReset                       Opcode = 0x0C03
	OpcodeReadBDAddr                  Opcode = 0x1009
	OpcodeLESetEventMask              Opcode = 0x2001
	OpcodeLEReadBufferSize            Opcode = 0x2002
	OpcodeLESetRandomAddress          Opcode = 0x2005
	OpcodeLESetAdvertisingParameters  Opcode = 0x2006
	OpcodeLESetAdvertisingData        Opcode = 0x2008
	OpcodeLESetScanResponseData       Opcode = 0x2009
	OpcodeLESetAdvertisingEnable      Opcode = 0x200A
	OpcodeReadFilterAcceptListSize    Opcode = 0x200F
	OpcodeClearFilterAcceptList       Opcode = 0x2010
	OpcodeAddDeviceToFilterAcceptList Opcode = 0x2011
	OpcodeLEReadSupportedStates       Opcode = 0x201C
)

func (o Opcode) String() string {
	switch o {
	case OpcodeSetEventMask:
		return "Set Event Mask"
	case OpcodeReset:
		return "Reset"
	case OpcodeReadBDAddr:
		return "Read BD_ADDR"
	case OpcodeLESetEventMask:
		return "LE Set Event Mask"
	case OpcodeLEReadBufferSize:
		return "LE Read Buffer Size"
	case OpcodeLESetRandomAddress:
		return "LE Set Random Address"
	case OpcodeLESetAdvertisingParameters:
		return "LE Set Advertising Parameters"
	case OpcodeLESetAdvertisingData:
		return "LE Set Advertising Data"
	case OpcodeLESetScanResponseData:
		return "LE Set Scan Response Data"
	case OpcodeLESetAdvertisingEnable:
		return "LE Set Advertising Enable"
	case OpcodeReadFilterAcceptListSize:
		return "LE Read Filter Accept List Size"
	case OpcodeClearFilterAcceptList:
		return "LE Clear Filter Accept List"
	case OpcodeAddDeviceToFilterAcceptList:
		return "LE Add Device To Filter Accept List"
	case OpcodeLEReadSupportedStates:
		return "LE Read Supported States"
	}
	return fmt.Sprintf("Opcode(0x%04x)", uint16(o))
}

type EventCode uint8

const (
	EventCodeDisconnectionComplete                EventCode = 0x05
	EventCodeEncryptionChange                     EventCode = 0x08
	EventCodeReadRemoteVersionInformationComplete EventCode = 0x0C
	EventCodeCommandComplete                      EventCode = 0x0E
	EventCodeCommandStatus                        EventCode = 0x0F
	EventCodeHardwareError                        EventCode = 0x10
	EventCodeNumberOfCompletedPackets             EventCode = 0x13
	EventCodeDataBufferOverflow                   EventCode = 0x1A
	EventCodeEncryptionKeyRefreshComplete         EventCode = 0x30
	EventCodeAuthenticatedPayloadTimeoutExpired   EventCode = 0x57
	EventCodeLEMeta                               EventCode = 0x3E
)

type LEMetaSubeventCode uint8

const (
	LEMetaSubeventCodeConnectionComplete             LEMetaSubeventCode = 0x01
	LEMetaSubeventCodeAdvertisingReport              LEMetaSubeventCode = 0x02
	LEMetaSubeventCodeConnectionUpdate               LEMetaSubeventCode = 0x03
	LEMetaSubeventCodeReadRemoteUsedFeaturesComplete LEMetaSubeventCode = 0x04
	LEMetaSubeventCodeLongTermKeyRequest             LEMetaSubeventCode = 0x05
	LEMetaSubeventCodeReadLocalP256PublicKeyComplete LEMetaSubeventCode = 0x08
	LEMetaSubeventCodeGenerateDHKeyComplete          LEMetaSubeventCode = 0x09
	LEMetaSubeventCodeEnhancedConnectionComplete     LEMetaSubeventCode = 0x0A
	LEMetaSubeventCodePHYUpdateComplete              LEMetaSubeventCode = 0x0C
	LEMetaSubeventCodeExtendedAdvertisingReport      LEMetaSubeventCode = 0x0D
)

// Status is the first return parameter of every Command Complete event.
type Status uint8

const (
	StatusSuccess                   Status = 0x00
	StatusUnknownCommand            Status = 0x01
	StatusCommandDisallowed         Status = 0x0C
	StatusInvalidCommandParameters  Status = 0x12
	StatusUnspecifiedError          Status = 0x1F
	StatusMemoryCapacityExceeded    Status = 0x07
	StatusUnsupportedFeatureOrValue Status = 0x11
)

func (s Status) Error() string {
	return fmt.Sprintf("hci status 0x%02x", uint8(s))
}
