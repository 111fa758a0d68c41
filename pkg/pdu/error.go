package pdu

import "fmt"

type reason uint8

const (
	reasonHeader reason = iota
	reasonType
	reasonAvailable
	reasonMin
	reasonMax
	reasonUnknown
)

// Error is the decode error. Err is one of the llerr sentinels, the other
// fields say where the PDU went wrong. A Decoder hands out the same Error on
// every failure, so it is only valid until the next Decode.
type Error struct {
	Err error
	// Type is the type being decoded.
	Type   Type
	Header Header
	// Bound is what the declared length was checked against: the bytes
	// available, or the minimum or maximum payload of Type.
	Bound  int
	reason reason
}

func (e *Error) Error() string {
	switch e.reason {
	case reasonHeader:
		return fmt.Sprintf("%d byte header: %v", e.Bound, e.Err)
	case reasonType:
		return fmt.Sprintf("header says %s, want %s: %v", e.Header.Type(), e.Type, e.Err)
	case reasonAvailable:
		return fmt.Sprintf("%s declares %d bytes, %d available: %v", e.Type, e.Header.Length(), e.Bound, e.Err)
	case reasonMin:
		return fmt.Sprintf("%s needs at least %d bytes, declares %d: %v", e.Type, e.Bound, e.Header.Length(), e.Err)
	case reasonMax:
		return fmt.Sprintf("%s allows at most %d bytes, declares %d: %v", e.Type, e.Bound, e.Header.Length(), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Header.Type(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets errors.Cause from github.com/pkg/errors see the sentinel.
func (e *Error) Cause() error { return e.Err }
