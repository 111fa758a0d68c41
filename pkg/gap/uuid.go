package gap

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// BaseUUID is the Bluetooth base UUID that 16 and 32-bit UUIDs are
// shorthand for.
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805F9B34FB")

// UUID32 expands a 16 or 32-bit assigned number against the base UUID.
func UUID32(v uint32) uuid.UUID {
	u := BaseUUID
	binary.BigEndian.PutUint32(u[:4], v)
	return u
}

func UUID16(v uint16) uuid.UUID {
	return UUID32(uint32(v))
}

// Short returns the assigned number of u if it is derived from the base
// UUID.
func Short(u uuid.UUID) (uint32, bool) {
	var rest uuid.UUID
	copy(rest[4:], u[4:])
	var base uuid.UUID
	copy(base[4:], BaseUUID[4:])
	if rest != base {
		return 0, false
	}
	return binary.BigEndian.Uint32(u[:4]), true
}

func uuidsFrom(dst []uuid.UUID, b []byte, w int) []uuid.UUID {
	for ; len(b) >= w; b = b[w:] {
		switch w {
		case 2:
			dst = append(dst, UUID16(binary.LittleEndian.Uint16(b)))
		case 4:
			dst = append(dst, UUID32(binary.LittleEndian.Uint32(b)))
		case 16:
			var u uuid.UUID
			for i := range u {
				u[i] = b[15-i]
			}
			dst = append(dst, u)
		}
	}
	return dst
}
