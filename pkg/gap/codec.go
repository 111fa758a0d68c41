package gap

import (
	"github.com/pkg/errors"

	"github.com/muxable/linklayer/pkg/llerr"
)

// Encode concatenates the structures in order. It fails if the result would
// exceed budget bytes.
func Encode(budget int, data ...DataType) ([]byte, error) {
	return AppendEncode(nil, budget, data...)
}

// AppendEncode is Encode into dst. Passing a slice with enough capacity
// avoids allocating for the result.
func AppendEncode(dst []byte, budget int, data ...DataType) ([]byte, error) {
	start := len(dst)
	for _, d := range data {
		ad, err := d.Marshal()
		if err != nil {
			return dst[:start], err
		}
		if len(dst)-start+len(ad) > budget {
			return dst[:start], errors.Wrapf(llerr.ErrPayloadTooLarge, "advertising data exceeds %d bytes", budget)
		}
		dst = append(dst, ad...)
	}
	return dst, nil
}

// Iterator walks the structures of an AdvData or ScanRspData buffer without
// copying. Values alias the buffer.
type Iterator struct {
	buf []byte
	off int
	cur Structure
	err error
}

func Iterate(b []byte) Iterator {
	return Iterator{buf: b}
}

// Next advances to the next structure. It returns false at the end of the
// significant part, which is either the end of the buffer or a zero length
// byte, or when an entry runs past the end of the buffer. In the latter case
// Err reports ErrMalformedStructure and everything yielded so far stands.
func (it *Iterator) Next() bool {
	if it.err != nil || it.off >= len(it.buf) {
		return false
	}
	l := int(it.buf[it.off])
	if l == 0 {
		it.off = len(it.buf)
		return false
	}
	if it.off+1+l > len(it.buf) {
		it.err = errors.Wrapf(llerr.ErrMalformedStructure, "length %d at offset %d overruns %d bytes", l, it.off, len(it.buf))
		return false
	}
	it.cur = Structure{Type: Type(it.buf[it.off+1])}
	if l > 1 {
		it.cur.Value = it.buf[it.off+2 : it.off+1+l]
	}
	it.off += 1 + l
	return true
}

func (it *Iterator) Structure() Structure { return it.cur }

func (it *Iterator) Err() error { return it.err }

// Reset rewinds to the first structure.
func (it *Iterator) Reset() {
	it.off = 0
	it.cur = Structure{}
	it.err = nil
}

// Decode collects every well-formed structure in b. On a malformed entry it
// returns the structures before it together with the error.
func Decode(b []byte) ([]Structure, error) {
	var out []Structure
	it := Iterate(b)
	for it.Next() {
		out = append(out, it.Structure())
	}
	return out, it.Err()
}
