package pdu

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/muxable/linklayer/pkg/llerr"
)

// Type is the 4-bit advertising channel PDU type.
type Type uint8

const (
	TypeAdvInd        Type = 0x0
	TypeAdvDirectInd  Type = 0x1
	TypeAdvNonconnInd Type = 0x2
	TypeScanReq       Type = 0x3
	TypeScanRsp       Type = 0x4
	TypeConnectInd    Type = 0x5
	TypeAdvScanInd    Type = 0x6
	TypeAdvExtInd     Type = 0x7
)

func (t Type) String() string {
	switch t {
	case TypeAdvInd:
		return "ADV_IND"
	case TypeAdvDirectInd:
		return "ADV_DIRECT_IND"
	case TypeAdvNonconnInd:
		return "ADV_NONCONN_IND"
	case TypeScanReq:
		return "SCAN_REQ"
	case TypeScanRsp:
		return "SCAN_RSP"
	case TypeConnectInd:
		return "CONNECT_IND"
	case TypeAdvScanInd:
		return "ADV_SCAN_IND"
	case TypeAdvExtInd:
		return "ADV_EXT_IND"
	}
	return fmt.Sprintf("PDU(0x%x)", uint8(t))
}

// Connectable reports whether a central may answer with CONNECT_IND.
func (t Type) Connectable() bool {
	return t == TypeAdvInd || t == TypeAdvDirectInd
}

// Scannable reports whether a scanner may answer with SCAN_REQ.
func (t Type) Scannable() bool {
	return t == TypeAdvInd || t == TypeAdvScanInd
}

// Header is the 16-bit advertising channel PDU header as it appears on air,
// first byte in the low bits:
//
//	bits 0-3   PDU type
//	bit  4     RFU
//	bit  5     ChSel
//	bit  6     TxAdd
//	bit  7     RxAdd
//	bits 8-15  payload length
type Header uint16

const (
	headerTypeMask = 0x000F
	headerRFU      = 1 << 4
	headerChSel    = 1 << 5
	headerTxAdd    = 1 << 6
	headerRxAdd    = 1 << 7
	headerLenShift = 8
)

func NewHeader(t Type, length int) (Header, error) {
	if t > headerTypeMask {
		return 0, errors.Wrapf(llerr.ErrOutOfRange, "pdu type 0x%x", uint8(t))
	}
	if length < 0 || length > MaxPayload {
		return 0, errors.Wrapf(llerr.ErrPayloadTooLarge, "payload of %d bytes", length)
	}
	return Header(t) | Header(length)<<headerLenShift, nil
}

// HeaderFrom reads the header from the first two bytes of b.
func HeaderFrom(b []byte) Header {
	return Header(b[0]) | Header(b[1])<<headerLenShift
}

func (h Header) Type() Type { return Type(h & headerTypeMask) }

func (h Header) RFU() bool { return h&headerRFU != 0 }

func (h Header) ChSel() bool { return h&headerChSel != 0 }

func (h Header) TxAdd() bool { return h&headerTxAdd != 0 }

func (h Header) RxAdd() bool { return h&headerRxAdd != 0 }

func (h Header) Length() int { return int(h >> headerLenShift) }

func (h Header) WithChSel(v bool) Header { return h.with(headerChSel, v) }

func (h Header) WithTxAdd(v bool) Header { return h.with(headerTxAdd, v) }

func (h Header) WithRxAdd(v bool) Header { return h.with(headerRxAdd, v) }

func (h Header) with(bit Header, v bool) Header {
	if v {
		return h | bit
	}
	return h &^ bit
}

func (h Header) PutBytes(b []byte) {
	b[0] = byte(h)
	b[1] = byte(h >> headerLenShift)
}

func (h Header) String() string {
	return fmt.Sprintf("%s(len=%d txadd=%t rxadd=%t chsel=%t)", h.Type(), h.Length(), h.TxAdd(), h.RxAdd(), h.ChSel())
}
