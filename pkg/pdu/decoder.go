package pdu

import "github.com/muxable/linklayer/pkg/llerr"

// Decoder decodes into values it owns, so a long-lived Decoder does not
// allocate per packet, on failure included. The returned PDU is overwritten
// by the next Decode of the same type and the returned error by the next
// failing Decode.
type Decoder struct {
	advInd        AdvInd
	advDirectInd  AdvDirectInd
	advNonconnInd AdvNonconnInd
	advScanInd    AdvScanInd
	scanReq       ScanReq
	scanRsp       ScanRsp
	connectInd    ConnectInd
	err           Error
}

func (d *Decoder) Decode(buf []byte) (PDU, error) {
	if len(buf) < HeaderLength {
		d.err = Error{Err: llerr.ErrTruncated, Bound: len(buf), reason: reasonHeader}
		return nil, &d.err
	}
	t := HeaderFrom(buf).Type()
	min, max, ok := limits(t)
	if !ok {
		d.err = Error{Err: llerr.ErrUnknownPDUType, Type: t, Header: HeaderFrom(buf), reason: reasonUnknown}
		return nil, &d.err
	}
	if e, ok := check(buf, t, min, max); !ok {
		d.err = e
		return nil, &d.err
	}

	var p PDU
	switch t {
	case TypeAdvInd:
		p = &d.advInd
	case TypeAdvDirectInd:
		p = &d.advDirectInd
	case TypeAdvNonconnInd:
		p = &d.advNonconnInd
	case TypeAdvScanInd:
		p = &d.advScanInd
	case TypeScanReq:
		p = &d.scanReq
	case TypeScanRsp:
		p = &d.scanRsp
	default:
		p = &d.connectInd
	}
	if err := p.Unmarshal(buf); err != nil {
		return nil, err
	}
	return p, nil
}
