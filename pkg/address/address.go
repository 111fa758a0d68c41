// Package address models 48-bit Bluetooth device addresses.
package address

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/muxable/linklayer/pkg/llerr"
)

type Kind uint8

const (
	Public Kind = 0x00
	Random Kind = 0x01
)

func (k Kind) String() string {
	switch k {
	case Public:
		return "public"
	case Random:
		return "random"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Subtype is the random address subtype, carried in the two most
// significant bits of the address.
type Subtype uint8

const (
	NonResolvablePrivate Subtype = 0b00
	ResolvablePrivate    Subtype = 0b01
	Reserved             Subtype = 0b10
	Static               Subtype = 0b11
)

func (s Subtype) String() string {
	switch s {
	case NonResolvablePrivate:
		return "non-resolvable-private"
	case ResolvablePrivate:
		return "resolvable-private"
	case Static:
		return "static"
	}
	return "reserved"
}

const (
	mask     = 1<<48 - 1
	randMask = 1<<46 - 1
	// prand occupies the upper 24 bits of a resolvable private address,
	// hash the lower 24.
	prandMask = randMask >> 24
)

type Address struct {
	value uint64
	kind  Kind
}

func New(value uint64, kind Kind) (Address, error) {
	if value&^mask != 0 {
		return Address{}, errors.Wrapf(llerr.ErrInvalidAddress, "0x%x exceeds 48 bits", value)
	}
	if kind != Public && kind != Random {
		return Address{}, errors.Wrapf(llerr.ErrInvalidAddress, "unknown kind %d", kind)
	}
	return Address{value: value, kind: kind}, nil
}

// NewRandom constructs a random address and checks that its top two bits and
// its random part agree with the claimed subtype.
func NewRandom(value uint64, subtype Subtype) (Address, error) {
	a, err := New(value, Random)
	if err != nil {
		return Address{}, err
	}
	if got := a.Subtype(); got != subtype {
		return Address{}, errors.Wrapf(llerr.ErrInvalidAddress, "subtype bits are %s, want %s", got, subtype)
	}
	switch subtype {
	case Static, NonResolvablePrivate:
		if r := value & randMask; r == 0 || r == randMask {
			return Address{}, errors.Wrapf(llerr.ErrInvalidAddress, "%s random part is all %s", subtype, allBits(r))
		}
	case ResolvablePrivate:
		if r := (value >> 24) & prandMask; r == 0 || r == prandMask {
			return Address{}, errors.Wrapf(llerr.ErrInvalidAddress, "prand is all %s", allBits(r))
		}
	default:
		return Address{}, errors.Wrap(llerr.ErrInvalidAddress, "reserved subtype")
	}
	return a, nil
}

func allBits(r uint64) string {
	if r == 0 {
		return "zeros"
	}
	return "ones"
}

// NewStaticRandom draws a random static address from r.
func NewStaticRandom(r io.Reader) (Address, error) {
	var b [8]byte
	for {
		if _, err := io.ReadFull(r, b[:6]); err != nil {
			return Address{}, errors.Wrap(err, "read random address")
		}
		v := binary.LittleEndian.Uint64(b[:])&randMask | uint64(Static)<<46
		if a, err := NewRandom(v, Static); err == nil {
			return a, nil
		}
	}
}

// FromBytes reads an address in over-the-air (little-endian) order.
func FromBytes(b [6]byte, kind Kind) Address {
	var v [8]byte
	copy(v[:], b[:])
	return Address{value: binary.LittleEndian.Uint64(v[:]), kind: kind}
}

// Parse reads the usual colon separated, most significant byte first form.
func Parse(s string, kind Kind) (Address, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return Address{}, errors.Wrapf(llerr.ErrInvalidAddress, "malformed %q", s)
	}
	var v uint64
	for _, p := range parts {
		o, err := strconv.ParseUint(p, 16, 8)
		if err != nil || len(p) != 2 {
			return Address{}, errors.Wrapf(llerr.ErrInvalidAddress, "malformed %q", s)
		}
		v = v<<8 | o
	}
	return New(v, kind)
}

func MustParse(s string, kind Kind) Address {
	a, err := Parse(s, kind)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) Value() uint64 { return a.value }

func (a Address) Kind() Kind { return a.kind }

// Subtype is derived from the address bits on every call. It is meaningless
// for public addresses.
func (a Address) Subtype() Subtype {
	return Subtype(a.value >> 46 & 0b11)
}

// IsIdentity reports whether the address can serve as an identity address.
func (a Address) IsIdentity() bool {
	return a.kind == Public || a.Subtype() == Static
}

// Bytes returns the address in over-the-air (little-endian) order.
func (a Address) Bytes() [6]byte {
	var v [8]byte
	binary.LittleEndian.PutUint64(v[:], a.value)
	var b [6]byte
	copy(b[:], v[:6])
	return b
}

// Equal compares value and kind. The same bits under different kinds are
// different devices.
func (a Address) Equal(b Address) bool {
	return a.value == b.value && a.kind == b.kind
}

func (a Address) String() string {
	b := a.Bytes()
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[5], b[4], b[3], b[2], b[1], b[0])
}
