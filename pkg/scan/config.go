package scan

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/llerr"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/timing"
)

type Type uint8

const (
	Passive Type = iota
	Active
)

func (t Type) String() string {
	if t == Active {
		return "active"
	}
	return "passive"
}

// DefaultInterval is 10 ms, with the window covering all of it.
const DefaultInterval timing.Tick = 0x0010

type Config struct {
	Type     Type
	Interval timing.Tick
	Window   timing.Tick

	// Address is sent as ScanA in SCAN_REQ. Passive scanners only use it to
	// pick up directed advertising.
	Address    address.Address
	ChannelMap radio.ChannelMap

	FilterDuplicates bool
}

func (c Config) withDefaults() Config {
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.Window == 0 {
		c.Window = c.Interval
	}
	if c.ChannelMap == 0 {
		c.ChannelMap = radio.ChannelMapAll
	}
	return c
}

func (c Config) Validate() error {
	var err error
	if c.Type > Active {
		err = multierr.Append(err, errors.Wrapf(llerr.ErrOutOfRange, "scan type %d", c.Type))
	}
	if e := c.Interval.Within(timing.MinScanInterval, timing.MaxScanInterval); e != nil {
		err = multierr.Append(err, errors.Wrap(e, "scan interval"))
	}
	if e := c.Window.Within(timing.MinScanInterval, timing.MaxScanInterval); e != nil {
		err = multierr.Append(err, errors.Wrap(e, "scan window"))
	}
	if c.Window > c.Interval {
		err = multierr.Append(err, errors.Wrap(llerr.ErrOutOfRange, "scan window longer than interval"))
	}
	if e := c.ChannelMap.Validate(); e != nil {
		err = multierr.Append(err, e)
	}
	if c.Type == Active {
		if _, e := address.New(c.Address.Value(), c.Address.Kind()); e != nil || c.Address.Value() == 0 {
			err = multierr.Append(err, errors.Wrap(llerr.ErrInvalidAddress, "active scanning needs a scanner address"))
		}
	}
	return err
}
