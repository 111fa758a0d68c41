// Package pdu encodes and decodes link layer advertising channel PDUs.
package pdu

import (
	"io"

	"github.com/pkg/errors"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/llerr"
)

const (
	HeaderLength = 2

	// MaxPayload is the legacy advertising channel payload limit.
	MaxPayload = 37

	// MaxAdvData bounds AdvData and ScanRspData.
	MaxAdvData = 31

	// MaxLength is the largest encoded PDU, header included. Scratch buffers
	// of this size hold any PDU this package produces or accepts.
	MaxLength = HeaderLength + MaxPayload

	addrLength    = 6
	llDataLength  = 22
	connectLength = 2*addrLength + llDataLength
)

type PDU interface {
	Type() Type
	Header() Header
	Marshal() ([]byte, error)
	// MarshalTo writes the encoded PDU to buf and returns the number of
	// bytes written.
	MarshalTo(buf []byte) (int, error)
	// Unmarshal decodes buf into the receiver. Variable length fields alias
	// buf.
	Unmarshal(buf []byte) error
}

func Encode(p PDU) ([]byte, error) {
	return p.Marshal()
}

// Decode reads the header and dispatches on its type. Each call returns a
// fresh value; see Decoder for reuse.
func Decode(buf []byte) (PDU, error) {
	var d Decoder
	p, err := d.Decode(buf)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func marshal(p PDU) ([]byte, error) {
	buf := make([]byte, MaxLength)
	n, err := p.MarshalTo(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// payload checks the header of buf against want and returns the declared
// payload. Bytes past the declared length are ignored. The error is only
// allocated when the check fails.
func payload(buf []byte, want Type, min, max int) (Header, []byte, error) {
	e, ok := check(buf, want, min, max)
	if !ok {
		err := new(Error)
		*err = e
		return 0, nil, err
	}
	return e.Header, buf[HeaderLength : HeaderLength+e.Header.Length()], nil
}

// check validates buf as a PDU of type want with a payload of min to max
// bytes. On success the returned Error only carries the header.
func check(buf []byte, want Type, min, max int) (Error, bool) {
	if len(buf) < HeaderLength {
		return Error{Err: llerr.ErrTruncated, Type: want, Bound: len(buf), reason: reasonHeader}, false
	}
	h := HeaderFrom(buf)
	e := Error{Type: want, Header: h}
	l := h.Length()
	switch {
	case h.Type() != want:
		e.Err, e.reason = llerr.ErrMalformedPDU, reasonType
	case l > len(buf)-HeaderLength:
		e.Err, e.Bound, e.reason = llerr.ErrTruncated, len(buf)-HeaderLength, reasonAvailable
	case l < min:
		e.Err, e.Bound, e.reason = llerr.ErrTruncated, min, reasonMin
	case l > max:
		e.Err, e.Bound, e.reason = llerr.ErrMalformedPDU, max, reasonMax
	default:
		return e, true
	}
	return e, false
}

// limits returns the payload bounds of t.
func limits(t Type) (min, max int, ok bool) {
	switch t {
	case TypeAdvInd, TypeAdvNonconnInd, TypeAdvScanInd, TypeScanRsp:
		return addrLength, addrLength + MaxAdvData, true
	case TypeAdvDirectInd, TypeScanReq:
		return 2 * addrLength, 2 * addrLength, true
	case TypeConnectInd:
		return connectLength, connectLength, true
	}
	return 0, 0, false
}

// begin writes the header for a payload of n bytes and returns the body.
func begin(buf []byte, h Header, n int) ([]byte, error) {
	if n > MaxPayload {
		return nil, errors.Wrapf(llerr.ErrPayloadTooLarge, "%s payload of %d bytes", h.Type(), n)
	}
	if len(buf) < HeaderLength+n {
		return nil, io.ErrShortBuffer
	}
	h = h&^(0xFF<<headerLenShift) | Header(n)<<headerLenShift
	h.PutBytes(buf)
	return buf[HeaderLength : HeaderLength+n], nil
}

func checkData(t Type, d []byte) error {
	if len(d) > MaxAdvData {
		return errors.Wrapf(llerr.ErrPayloadTooLarge, "%s data of %d bytes", t, len(d))
	}
	return nil
}

// data returns nil for an empty field so decoded values compare equal to
// ones built without data.
func data(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func isRandom(a address.Address) bool {
	return a.Kind() == address.Random
}

func kind(random bool) address.Kind {
	if random {
		return address.Random
	}
	return address.Public
}

func putAddr(b []byte, a address.Address) {
	v := a.Bytes()
	copy(b, v[:])
}

func getAddr(b []byte, random bool) address.Address {
	var v [addrLength]byte
	copy(v[:], b)
	return address.FromBytes(v, kind(random))
}
