package gap

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muxable/linklayer/pkg/llerr"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		data []DataType
		want []byte
	}{
		{
			name: "flags",
			data: []DataType{FlagsLEGeneralDiscoverableMode | FlagsBREDRNotSupported},
			want: []byte{0x02, 0x01, 0x06},
		},
		{
			name: "name and tx power",
			data: []DataType{CompleteLocalName("jewel"), TxPowerLevel(-4)},
			want: []byte{0x06, 0x09, 'j', 'e', 'w', 'e', 'l', 0x02, 0x0A, 0xFC},
		},
		{
			name: "uuid16 list",
			data: []DataType{UUID16List{0x180D, 0x180F}},
			want: []byte{0x05, 0x03, 0x0D, 0x18, 0x0F, 0x18},
		},
		{
			name: "manufacturer data",
			data: []DataType{ManufacturerData{CompanyID: 0x004C, Data: []byte{0x02, 0x15}}},
			want: []byte{0x05, 0xFF, 0x4C, 0x00, 0x02, 0x15},
		},
		{
			name: "unknown type",
			data: []DataType{Structure{Type: 0x3D, Value: []byte{1, 2}}},
			want: []byte{0x03, 0x3D, 1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(LegacyBudget, tt.data...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeBudget(t *testing.T) {
	// 2 bytes of overhead + 29 bytes of value = 31
	fits := Structure{Type: TypeManufacturerData, Value: bytes.Repeat([]byte{0xAA}, 29)}
	b, err := Encode(LegacyBudget, fits)
	require.NoError(t, err)
	assert.Len(t, b, 31)

	over := Structure{Type: TypeManufacturerData, Value: bytes.Repeat([]byte{0xAA}, 30)}
	_, err = Encode(LegacyBudget, over)
	assert.ErrorIs(t, err, llerr.ErrPayloadTooLarge)

	b, err = Encode(ExtendedBudget, over)
	require.NoError(t, err)
	assert.Len(t, b, 32)

	_, err = Encode(ExtendedBudget, Structure{Type: TypeManufacturerData, Value: make([]byte, 255)})
	assert.ErrorIs(t, err, llerr.ErrPayloadTooLarge)
}

func TestAppendEncodeKeepsPrefixOnError(t *testing.T) {
	dst := []byte{0xEE}
	out, err := AppendEncode(dst, 4, Flags(0x06), CompleteLocalName("abc"))
	assert.ErrorIs(t, err, llerr.ErrPayloadTooLarge)
	assert.Equal(t, []byte{0xEE}, out)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   []Structure
	}{
		{"empty", nil},
		{"single", []Structure{{TypeFlags, []byte{0x06}}}},
		{"empty value", []Structure{{TypeCompleteLocalName, nil}, {TypeFlags, []byte{0x02}}}},
		{"unknown", []Structure{{0x3D, []byte{1, 2, 3}}, {0xFE, []byte{9}}}},
		{"mixed", []Structure{
			{TypeFlags, []byte{0x06}},
			{TypeCompleteUUID16, []byte{0x0D, 0x18}},
			{TypeShortLocalName, []byte("abc")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]DataType, len(tt.in))
			for i, s := range tt.in {
				data[i] = s
			}
			b, err := Encode(LegacyBudget, data...)
			require.NoError(t, err)

			got, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, tt.in, got)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	// second entry declares 5 bytes but only 2 remain
	b := []byte{0x02, 0x01, 0x06, 0x05, 0x09, 'a'}
	got, err := Decode(b)
	assert.ErrorIs(t, err, llerr.ErrMalformedStructure)
	assert.Equal(t, []Structure{{TypeFlags, []byte{0x06}}}, got)

	// a lone length byte has no type
	got, err = Decode([]byte{0x02, 0x01, 0x06, 0x01})
	assert.ErrorIs(t, err, llerr.ErrMalformedStructure)
	assert.Len(t, got, 1)
}

func TestDecodePadding(t *testing.T) {
	b := []byte{0x02, 0x01, 0x06, 0x00, 0xFF, 0xFF, 0xFF}
	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, []Structure{{TypeFlags, []byte{0x06}}}, got)
}

func TestIteratorRestartable(t *testing.T) {
	b := []byte{0x02, 0x01, 0x06, 0x04, 0x09, 'a', 'b', 'c', 0x09}
	it := Iterate(b)

	var first []Structure
	for it.Next() {
		first = append(first, it.Structure())
	}
	assert.ErrorIs(t, it.Err(), llerr.ErrMalformedStructure)
	assert.False(t, it.Next())

	it.Reset()
	assert.NoError(t, it.Err())
	var second []Structure
	for it.Next() {
		second = append(second, it.Structure())
	}
	assert.Equal(t, first, second)
	assert.Len(t, second, 2)
}

func TestDecodeIdempotent(t *testing.T) {
	b := []byte{0x02, 0x01, 0x06, 0x03, 0x03, 0x0F, 0x18, 0x07, 0xFF}
	a1, err1 := Decode(b)
	a2, err2 := Decode(b)
	assert.Equal(t, a1, a2)
	assert.Equal(t, err1 == nil, err2 == nil)
	assert.Equal(t, []byte{0x02, 0x01, 0x06, 0x03, 0x03, 0x0F, 0x18, 0x07, 0xFF}, b)
}

func TestDataAccessors(t *testing.T) {
	hr := uuid.MustParse("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	b, err := Encode(ExtendedBudget,
		Flags(0x06),
		ShortLocalName("sn"),
		TxPowerLevel(-8),
		UUID16List{0x180D},
		UUID128List{hr},
	)
	require.NoError(t, err)

	d := Data(b)
	f, ok := d.Flags()
	assert.True(t, ok)
	assert.Equal(t, FlagsLEGeneralDiscoverableMode|FlagsBREDRNotSupported, f)
	assert.Equal(t, "sn", d.LocalName())
	p, ok := d.TxPower()
	assert.True(t, ok)
	assert.Equal(t, TxPowerLevel(-8), p)
	assert.Equal(t, []uuid.UUID{UUID16(0x180D), hr}, d.Services())
	_, ok = d.ManufacturerData()
	assert.False(t, ok)
	assert.Nil(t, d.Field(TypeAppearance))
}

func TestShort(t *testing.T) {
	u := UUID16(0x180D)
	assert.Equal(t, "0000180d-0000-1000-8000-00805f9b34fb", u.String())
	v, ok := Short(u)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x180D), v)

	_, ok = Short(uuid.MustParse("6e400001-b5a3-f393-e0a9-e50e24dcca9e"))
	assert.False(t, ok)
}
