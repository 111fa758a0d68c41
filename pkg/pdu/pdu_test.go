package pdu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/llerr"
)

var (
	advA  = address.MustParse("AA:BB:CC:DD:EE:FF", address.Random)
	scanA = address.MustParse("C0:11:22:33:44:55", address.Random)
	pubA  = address.MustParse("00:1B:DC:07:32:E9", address.Public)
)

func TestNonconnIndScenario(t *testing.T) {
	p := &AdvNonconnInd{AdvA: advA, AdvData: []byte{0x02, 0x01, 0x06}}
	b, err := Encode(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x42, 0x09,
		0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA,
		0x02, 0x01, 0x06,
	}, b)

	h := p.Header()
	assert.Equal(t, TypeAdvNonconnInd, h.Type())
	assert.True(t, h.TxAdd())
	assert.False(t, h.RxAdd())
	assert.Equal(t, 9, h.Length())
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pdu  PDU
	}{
		{"adv ind", &AdvInd{AdvA: advA, AdvData: []byte{0x02, 0x01, 0x06}}},
		{"adv ind chsel", &AdvInd{AdvA: pubA, ChSel: true}},
		{"adv ind full", &AdvInd{AdvA: advA, AdvData: bytes.Repeat([]byte{0x11}, MaxAdvData)}},
		{"adv direct ind", &AdvDirectInd{AdvA: pubA, TargetA: scanA}},
		{"adv nonconn ind", &AdvNonconnInd{AdvA: advA, AdvData: []byte{0x03, 0x09, 'h', 'i'}}},
		{"adv scan ind", &AdvScanInd{AdvA: pubA}},
		{"scan req", &ScanReq{ScanA: scanA, AdvA: pubA}},
		{"scan rsp", &ScanRsp{AdvA: advA, ScanRspData: []byte{0x02, 0x0A, 0x00}}},
		{"connect ind", &ConnectInd{
			InitA: scanA,
			AdvA:  advA,
			LLData: LLData{
				AccessAddress: 0xAF9A9F2C,
				CRCInit:       0x123456,
				WinSize:       2,
				WinOffset:     5,
				Interval:      24,
				Latency:       0,
				Timeout:       72,
				ChannelMap:    0x1FFFFFFFFF,
				Hop:           9,
				SCA:           5,
			},
			ChSel: true,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.pdu)
			require.NoError(t, err)
			assert.Equal(t, tt.pdu.Header().Length(), len(b)-HeaderLength)

			got, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, tt.pdu, got)
		})
	}
}

func TestConnectIndLayout(t *testing.T) {
	p := &ConnectInd{InitA: pubA, AdvA: advA, LLData: LLData{Hop: 0x1F, SCA: 0x7, ChannelMap: 0x1FFFFFFFFF}}
	b, err := p.Marshal()
	require.NoError(t, err)
	require.Len(t, b, 2+34)
	assert.Equal(t, byte(0x85), b[0])
	assert.Equal(t, byte(34), b[1])
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x1F}, b[2+12+16:2+12+21])
	assert.Equal(t, byte(0xFF), b[len(b)-1])
}

func TestEncodePayloadTooLarge(t *testing.T) {
	ok := &AdvInd{AdvA: advA, AdvData: make([]byte, 31)}
	_, err := ok.Marshal()
	assert.NoError(t, err)

	tests := []PDU{
		&AdvInd{AdvA: advA, AdvData: make([]byte, 32)},
		&AdvNonconnInd{AdvA: advA, AdvData: make([]byte, 32)},
		&AdvScanInd{AdvA: advA, AdvData: make([]byte, 40)},
		&ScanRsp{AdvA: advA, ScanRspData: make([]byte, 32)},
	}
	for _, p := range tests {
		t.Run(p.Type().String(), func(t *testing.T) {
			_, err := p.Marshal()
			assert.ErrorIs(t, err, llerr.ErrPayloadTooLarge)
		})
	}
}

func TestMarshalToShortBuffer(t *testing.T) {
	p := &ScanReq{ScanA: scanA, AdvA: advA}
	_, err := p.MarshalTo(make([]byte, 13))
	assert.Error(t, err)

	buf := make([]byte, MaxLength)
	n, err := p.MarshalTo(buf)
	require.NoError(t, err)
	assert.Equal(t, 14, n)
}

func TestDecodeErrors(t *testing.T) {
	full := make([]byte, 2+37)
	full[0] = byte(TypeAdvInd)
	full[1] = 37

	tests := []struct {
		name string
		buf  []byte
		err  error
	}{
		{"empty", nil, llerr.ErrTruncated},
		{"half header", []byte{0x00}, llerr.ErrTruncated},
		{"declared 37 with 36", full[:len(full)-1], llerr.ErrTruncated},
		{"shorter than address", []byte{0x00, 0x03, 1, 2, 3}, llerr.ErrTruncated},
		{"adv ext ind", []byte{0x07, 0x06, 1, 2, 3, 4, 5, 6}, llerr.ErrUnknownPDUType},
		{"reserved type", []byte{0x0F, 0x00}, llerr.ErrUnknownPDUType},
		{"scan req too long", append([]byte{0x03, 13}, make([]byte, 13)...), llerr.ErrMalformedPDU},
		{"adv ind too long", append([]byte{0x00, 38}, make([]byte, 38)...), llerr.ErrMalformedPDU},
		{"connect ind short", append([]byte{0x05, 30}, make([]byte, 30)...), llerr.ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.buf)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := Decode(full)
	assert.NoError(t, err)
}

func TestDecodeUnknownDistinct(t *testing.T) {
	_, err := Decode([]byte{0x08, 0x00})
	assert.ErrorIs(t, err, llerr.ErrUnknownPDUType)
	assert.NotErrorIs(t, err, llerr.ErrMalformedPDU)
	assert.True(t, llerr.Recoverable(err))
}

func TestDecodeAliasesInput(t *testing.T) {
	b := []byte{0x42, 0x09, 0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA, 0x02, 0x01, 0x06, 0xDE, 0xAD}
	p, err := Decode(b)
	require.NoError(t, err)
	nc := p.(*AdvNonconnInd)
	assert.Equal(t, []byte{0x02, 0x01, 0x06}, nc.AdvData)
	assert.Same(t, &b[8], &nc.AdvData[0])
	assert.True(t, nc.AdvA.Equal(advA))
}

func TestDecodeIdempotent(t *testing.T) {
	b := []byte{0x61, 0x0C, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	p1, err1 := Decode(b)
	p2, err2 := Decode(b)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, TypeAdvDirectInd, p1.Type())
	assert.True(t, p1.Header().ChSel())
	assert.True(t, p1.Header().TxAdd())
}

func TestUnmarshalWrongType(t *testing.T) {
	b, err := (&ScanReq{ScanA: scanA, AdvA: advA}).Marshal()
	require.NoError(t, err)

	var rsp ScanRsp
	assert.ErrorIs(t, rsp.Unmarshal(b), llerr.ErrMalformedPDU)

	var req ScanReq
	require.NoError(t, req.Unmarshal(b))
	assert.True(t, req.AdvA.Equal(advA))
}

func TestHeader(t *testing.T) {
	h, err := NewHeader(TypeScanRsp, 20)
	require.NoError(t, err)
	h = h.WithTxAdd(true).WithRxAdd(true).WithChSel(true)
	assert.Equal(t, TypeScanRsp, h.Type())
	assert.Equal(t, 20, h.Length())
	assert.True(t, h.TxAdd())
	assert.True(t, h.RxAdd())
	assert.True(t, h.ChSel())
	assert.False(t, h.RFU())

	var b [2]byte
	h.PutBytes(b[:])
	assert.Equal(t, [2]byte{0xE4, 20}, b)
	assert.Equal(t, h, HeaderFrom(b[:]))
	assert.False(t, h.WithTxAdd(false).TxAdd())

	_, err = NewHeader(0x10, 0)
	assert.ErrorIs(t, err, llerr.ErrOutOfRange)
	_, err = NewHeader(TypeAdvInd, 38)
	assert.ErrorIs(t, err, llerr.ErrPayloadTooLarge)
}

func TestDecoderReuse(t *testing.T) {
	var d Decoder
	b1, _ := (&ScanReq{ScanA: scanA, AdvA: advA}).Marshal()
	b2, _ := (&ScanReq{ScanA: pubA, AdvA: advA}).Marshal()

	p1, err := d.Decode(b1)
	require.NoError(t, err)
	assert.True(t, p1.(*ScanReq).ScanA.Equal(scanA))

	p2, err := d.Decode(b2)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.True(t, p2.(*ScanReq).ScanA.Equal(pubA))
}

func TestDecoderDoesNotAllocate(t *testing.T) {
	valid, err := (&AdvInd{AdvA: advA, AdvData: []byte{0x02, 0x01, 0x06}}).Marshal()
	require.NoError(t, err)

	tests := []struct {
		name string
		buf  []byte
	}{
		{"valid", valid},
		{"truncated", valid[:5]},
		{"half header", valid[:1]},
		{"unknown type", []byte{0x07, 0x06, 1, 2, 3, 4, 5, 6}},
		{"wrong length", append([]byte{0x03, 13}, make([]byte, 13)...)},
		{"short connect ind", append([]byte{0x05, 30}, make([]byte, 30)...)},
	}
	var d Decoder
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocs := testing.AllocsPerRun(100, func() {
				d.Decode(tt.buf)
			})
			assert.Zero(t, allocs)
		})
	}
}

func TestDecodeErrorDetail(t *testing.T) {
	var d Decoder
	_, err := d.Decode([]byte{0x00, 0x09, 1, 2, 3})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, TypeAdvInd, e.Type)
	assert.Equal(t, 9, e.Header.Length())
	assert.Equal(t, 3, e.Bound)
	assert.Equal(t, "ADV_IND declares 9 bytes, 3 available: truncated pdu", err.Error())

	_, err = d.Decode([]byte{0x0F, 0x00})
	assert.Equal(t, "PDU(0xf): unknown pdu type", err.Error())

	var rsp ScanRsp
	err = rsp.Unmarshal([]byte{0x03, 0x0C})
	assert.ErrorIs(t, err, llerr.ErrMalformedPDU)
	assert.Equal(t, "header says SCAN_REQ, want SCAN_RSP: malformed pdu", err.Error())
}

func TestConnectIndRejectsWideFields(t *testing.T) {
	tests := []struct {
		name string
		ll   LLData
	}{
		{"crc init", LLData{CRCInit: 0x1000000}},
		{"channel map", LLData{ChannelMap: 0x2000000000}},
		{"hop", LLData{Hop: 32}},
		{"sca", LLData{SCA: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&ConnectInd{InitA: pubA, AdvA: advA, LLData: tt.ll}).Marshal()
			assert.ErrorIs(t, err, llerr.ErrOutOfRange)
		})
	}
}
