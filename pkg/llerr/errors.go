// Package llerr holds the link layer error taxonomy.
package llerr

import "github.com/pkg/errors"

var (
	ErrInvalidAddress     = errors.New("invalid device address")
	ErrOutOfRange         = errors.New("value out of range")
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrMalformedStructure = errors.New("malformed advertising data structure")
	ErrUnknownPDUType     = errors.New("unknown pdu type")
	ErrTruncated          = errors.New("truncated pdu")
	ErrMalformedPDU       = errors.New("malformed pdu")
	ErrRadioFailure       = errors.New("radio failure")
)

// Recoverable reports whether err only affects a single packet or radio
// operation. Configuration errors are not recoverable: they must be fixed by
// the caller before anything is scheduled.
func Recoverable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrMalformedStructure),
		errors.Is(err, ErrUnknownPDUType),
		errors.Is(err, ErrTruncated),
		errors.Is(err, ErrMalformedPDU),
		errors.Is(err, ErrRadioFailure):
		return true
	}
	return false
}
