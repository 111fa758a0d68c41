//go:build tinygo

package nrf

import (
	"device/nrf"

	"github.com/muxable/linklayer/pkg/timing"
)

// clock extends TIMER0, running at 1 MHz, to 64 bits. A wrap is noticed
// as long as now is called at least once per 2^32 µs; the interrupt handlers
// call it on every completion.
type clock struct {
	last uint32
	high int64
}

func (c *clock) start() {
	nrf.TIMER0.TASKS_STOP.Set(1)
	nrf.TIMER0.MODE.Set(nrf.TIMER_MODE_MODE_Timer)
	nrf.TIMER0.BITMODE.Set(nrf.TIMER_BITMODE_BITMODE_32Bit)
	nrf.TIMER0.PRESCALER.Set(4)
	nrf.TIMER0.TASKS_CLEAR.Set(1)
	nrf.TIMER0.TASKS_START.Set(1)
}

func (c *clock) now() timing.Instant {
	nrf.TIMER0.TASKS_CAPTURE[0].Set(1)
	v := nrf.TIMER0.CC[0].Get()
	if v < c.last {
		c.high += 1 << 32
	}
	c.last = v
	return timing.Instant(c.high + int64(v))
}
