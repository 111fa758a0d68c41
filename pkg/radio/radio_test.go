package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/muxable/linklayer/pkg/llerr"
)

func TestChannel(t *testing.T) {
	tests := []struct {
		ch        Channel
		rf        uint8
		freq      uint16
		whitening uint8
	}{
		{Channel37, 0, 2402, 0x65},
		{Channel38, 12, 2426, 0x66},
		{Channel39, 39, 2480, 0x67},
		{0, 1, 2404, 0x40},
		{10, 11, 2424, 0x4A},
		{11, 13, 2428, 0x4B},
		{36, 38, 2478, 0x64},
	}
	for _, tt := range tests {
		t.Run(tt.ch.String(), func(t *testing.T) {
			assert.Equal(t, tt.rf, tt.ch.RF())
			assert.Equal(t, tt.freq, tt.ch.Frequency())
			assert.Equal(t, tt.whitening, tt.ch.WhiteningInit())
		})
	}
	assert.ErrorIs(t, Channel(40).Validate(), llerr.ErrOutOfRange)
}

func TestChannelMap(t *testing.T) {
	assert.Equal(t, []Channel{37, 38, 39}, ChannelMapAll.Channels())
	assert.Equal(t, []Channel{37, 39}, (ChannelMap37 | ChannelMap39).Channels())
	assert.Equal(t, []Channel{38}, ChannelMap38.Channels())
	assert.Equal(t, 2, (ChannelMap38 | ChannelMap39).Len())

	c, ok := (ChannelMap38 | ChannelMap39).First()
	assert.True(t, ok)
	assert.Equal(t, Channel38, c)
	_, ok = ChannelMap37.Next(Channel37)
	assert.False(t, ok)

	assert.ErrorIs(t, ChannelMap(0).Validate(), llerr.ErrOutOfRange)
	assert.ErrorIs(t, ChannelMap(0x08).Validate(), llerr.ErrOutOfRange)
	assert.NoError(t, ChannelMapAll.Validate())
}
