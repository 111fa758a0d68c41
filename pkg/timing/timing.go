// Package timing holds the link layer time base: 625 µs ticks for intervals
// and microsecond instants for the radio clock.
package timing

import (
	"time"

	"github.com/pkg/errors"

	"github.com/muxable/linklayer/pkg/llerr"
)

const TickDuration = 625 * time.Microsecond

// Tick counts 625 µs units.
type Tick uint32

// TIFS is the inter frame space.
const TIFS = 150 * time.Microsecond

// MaxAdvDelay bounds the pseudo-random advDelay added to each advertising event.
const MaxAdvDelay = 10 * time.Millisecond

const (
	MinAdvInterval     Tick = 0x0020
	MaxAdvInterval     Tick = 0x4000
	DefaultAdvInterval Tick = 0x0800
	MinScanInterval    Tick = 0x0004
	MaxScanInterval    Tick = 0x4000
)

// FromDuration converts d to ticks. It fails if d is negative or not an
// integral number of ticks.
func FromDuration(d time.Duration) (Tick, error) {
	if d < 0 || d%TickDuration != 0 {
		return 0, errors.Wrapf(llerr.ErrOutOfRange, "%v is not a multiple of %v", d, TickDuration)
	}
	n := d / TickDuration
	if n > 1<<32-1 {
		return 0, errors.Wrapf(llerr.ErrOutOfRange, "%v overflows", d)
	}
	return Tick(n), nil
}

func (t Tick) Duration() time.Duration {
	return time.Duration(t) * TickDuration
}

// Micros is the tick count in microseconds, the unit of Instant.
func (t Tick) Micros() int64 {
	return int64(t) * int64(TickDuration/time.Microsecond)
}

func (t Tick) Within(min, max Tick) error {
	if t < min || t > max {
		return errors.Wrapf(llerr.ErrOutOfRange, "0x%04x outside [0x%04x, 0x%04x]", uint32(t), uint32(min), uint32(max))
	}
	return nil
}

// AdvInterval converts d to a legacy advertising interval.
func AdvInterval(d time.Duration) (Tick, error) {
	t, err := FromDuration(d)
	if err != nil {
		return 0, err
	}
	return t, errors.Wrap(t.Within(MinAdvInterval, MaxAdvInterval), "advertising interval")
}

// ScanInterval converts d to a scan interval or window.
func ScanInterval(d time.Duration) (Tick, error) {
	t, err := FromDuration(d)
	if err != nil {
		return 0, err
	}
	return t, errors.Wrap(t.Within(MinScanInterval, MaxScanInterval), "scan interval")
}

// Instant is a radio timestamp in microseconds.
type Instant int64

func (i Instant) Add(d time.Duration) Instant {
	return i + Instant(d/time.Microsecond)
}

func (i Instant) Sub(j Instant) time.Duration {
	return time.Duration(i-j) * time.Microsecond
}

func (i Instant) Before(j Instant) bool { return i < j }

func (i Instant) After(j Instant) bool { return i > j }

func (i Instant) Duration() time.Duration { return time.Duration(i) * time.Microsecond }

// Airtime is the on-air duration of a packet with n PDU bytes on the 1M PHY:
// preamble, access address, PDU and CRC at 8 µs per byte.
func Airtime(n int) time.Duration {
	return time.Duration(1+4+n+3) * 8 * time.Microsecond
}
