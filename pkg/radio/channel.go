package radio

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/muxable/linklayer/pkg/llerr"
)

// Channel is a link layer channel index, 0-36 for data and 37-39 for
// advertising.
type Channel uint8

const (
	Channel37 Channel = 37
	Channel38 Channel = 38
	Channel39 Channel = 39

	MaxChannel = Channel39
)

func (c Channel) Validate() error {
	if c > MaxChannel {
		return errors.Wrapf(llerr.ErrOutOfRange, "channel %d", uint8(c))
	}
	return nil
}

func (c Channel) Advertising() bool {
	return c >= Channel37 && c <= Channel39
}

// RF is the physical channel number. Advertising channels sit at the
// edges and in the middle of the band.
func (c Channel) RF() uint8 {
	switch {
	case c == Channel37:
		return 0
	case c == Channel38:
		return 12
	case c == Channel39:
		return 39
	case c <= 10:
		return uint8(c) + 1
	}
	return uint8(c) + 2
}

// Frequency is the centre frequency in MHz.
func (c Channel) Frequency() uint16 {
	return 2402 + 2*uint16(c.RF())
}

// WhiteningInit is the whitening LFSR seed.
func (c Channel) WhiteningInit() uint8 {
	return 0x40 | uint8(c)
}

func (c Channel) String() string {
	return fmt.Sprintf("ch%d", uint8(c))
}

// ChannelMap selects advertising channels.
type ChannelMap uint8

const (
	ChannelMap37 ChannelMap = 0x01
	ChannelMap38 ChannelMap = 0x02
	ChannelMap39 ChannelMap = 0x04

	ChannelMapAll = ChannelMap37 | ChannelMap38 | ChannelMap39
)

func (m ChannelMap) Validate() error {
	if m == 0 || m&^ChannelMapAll != 0 {
		return errors.Wrapf(llerr.ErrOutOfRange, "channel map 0x%02x", uint8(m))
	}
	return nil
}

func (m ChannelMap) Has(c Channel) bool {
	return c.Advertising() && m&(1<<(c-Channel37)) != 0
}

// First returns the lowest channel in the map.
func (m ChannelMap) First() (Channel, bool) {
	return m.next(Channel37)
}

// Next returns the channel following c in ascending order.
func (m ChannelMap) Next(c Channel) (Channel, bool) {
	return m.next(c + 1)
}

func (m ChannelMap) next(from Channel) (Channel, bool) {
	for c := from; c <= Channel39; c++ {
		if m.Has(c) {
			return c, true
		}
	}
	return 0, false
}

func (m ChannelMap) Channels() []Channel {
	var out []Channel
	for c, ok := m.First(); ok; c, ok = m.Next(c) {
		out = append(out, c)
	}
	return out
}

func (m ChannelMap) Len() int {
	n := 0
	for c, ok := m.First(); ok; c, ok = m.Next(c) {
		n++
	}
	return n
}
