package llerr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"truncated", ErrTruncated, true},
		{"wrapped unknown type", errors.Wrapf(ErrUnknownPDUType, "type 0x%x", 7), true},
		{"malformed structure", ErrMalformedStructure, true},
		{"radio", errors.Wrap(ErrRadioFailure, "transmit"), true},
		{"invalid address", ErrInvalidAddress, false},
		{"out of range", errors.Wrap(ErrOutOfRange, "interval"), false},
		{"payload too large", ErrPayloadTooLarge, false},
		{"foreign", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recoverable(tt.err))
		})
	}
}
