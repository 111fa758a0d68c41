//go:build tinygo

// Package nrf drives the RADIO peripheral of nRF52 parts in BLE mode. It is
// built with TinyGo only.
package nrf

import (
	"context"
	"runtime/interrupt"
	"unsafe"

	"github.com/pkg/errors"

	"device/nrf"

	"github.com/muxable/linklayer/pkg/llerr"
	"github.com/muxable/linklayer/pkg/pdu"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/timing"
)

type opKind uint8

const (
	opNone opKind = iota
	opTx
	opRx
)

// TIMER0 compare channels. Channel 0 is used by the clock to capture the
// counter.
const (
	ccDeadline = 1
	ccWake     = 2
)

// MaxWakes is the number of WakeAt requests that may be outstanding.
const MaxWakes = 4

type wake struct {
	ticket radio.Ticket
	at     timing.Instant
}

// active is the radio the interrupt handlers serve. There is one RADIO
// peripheral, so there is at most one Radio.
var active *Radio

// Radio is a radio.Radio backed by the peripheral registers. Completions are
// posted from the RADIO and TIMER0 interrupt handlers. The completion channel
// has room for every request that can be outstanding at once: one radio
// operation plus MaxWakes wake-ups.
type Radio struct {
	buffer  [pdu.MaxLength]byte
	ticket  radio.Ticket
	channel radio.Channel

	// shared with the interrupt handlers, guarded by interrupt.Disable
	op       opKind
	opTicket radio.Ticket
	rxBuf    []byte
	deadline timing.Instant
	wakes    [MaxWakes]wake
	nwakes   int
	clock    clock
	overruns uint32

	radioIRQ    interrupt.Interrupt
	timerIRQ    interrupt.Interrupt
	completions chan radio.Completion
}

func New() *Radio {
	startHFCLK()
	r := &Radio{completions: make(chan radio.Completion, 1+MaxWakes)}
	r.clock.start()
	active = r

	r.radioIRQ = interrupt.New(nrf.IRQ_RADIO, func(interrupt.Interrupt) {
		active.handleRadio()
	})
	r.timerIRQ = interrupt.New(nrf.IRQ_TIMER0, func(interrupt.Interrupt) {
		active.handleTimer()
	})
	nrf.RADIO.INTENSET.Set(nrf.RADIO_INTENSET_END_Msk)
	return r
}

func startHFCLK() {
	nrf.CLOCK.EVENTS_HFCLKSTARTED.Set(0)
	nrf.CLOCK.TASKS_HFCLKSTART.Set(1)
	for nrf.CLOCK.EVENTS_HFCLKSTARTED.Get() == 0 {
	}
}

func (r *Radio) Configure(c radio.Config) error {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	if r.op != opNone {
		return errors.Wrap(llerr.ErrRadioFailure, "configure while busy")
	}

	nrf.RADIO.POWER.Set(1)
	switch c.Mode {
	case radio.ModeBLE1M:
		nrf.RADIO.MODE.Set(nrf.RADIO_MODE_MODE_Ble_1Mbit)
	case radio.ModeBLE2M:
		nrf.RADIO.MODE.Set(nrf.RADIO_MODE_MODE_Ble_2Mbit)
	default:
		return errors.Wrapf(llerr.ErrOutOfRange, "radio mode %d", c.Mode)
	}
	nrf.RADIO.TXPOWER.Set(uint32(uint8(c.TxPower)))

	// the access address is split into a 3 byte base and a 1 byte prefix
	nrf.RADIO.BASE0.Set(c.AccessAddress << 8)
	nrf.RADIO.PREFIX0.Set(c.AccessAddress >> 24)
	nrf.RADIO.TXADDRESS.Set(0)
	nrf.RADIO.RXADDRESSES.Set(1)

	// S0 holds header byte 0, LENGTH holds header byte 1
	nrf.RADIO.PCNF0.Set(
		(8 << nrf.RADIO_PCNF0_LFLEN_Pos) |
			(1 << nrf.RADIO_PCNF0_S0LEN_Pos) |
			(0 << nrf.RADIO_PCNF0_S1LEN_Pos))

	nrf.RADIO.PCNF1.Set(
		(pdu.MaxPayload << nrf.RADIO_PCNF1_MAXLEN_Pos) |
			(0 << nrf.RADIO_PCNF1_STATLEN_Pos) |
			(3 << nrf.RADIO_PCNF1_BALEN_Pos) |
			(nrf.RADIO_PCNF1_ENDIAN_Little << nrf.RADIO_PCNF1_ENDIAN_Pos) |
			(1 << nrf.RADIO_PCNF1_WHITEEN_Pos))

	// 3 byte CRC over the PDU only
	nrf.RADIO.CRCCNF.Set(3 | (1 << nrf.RADIO_CRCCNF_SKIPADDR_Pos))
	nrf.RADIO.CRCINIT.Set(c.CRCInit)
	nrf.RADIO.CRCPOLY.Set(c.CRCPoly)

	nrf.RADIO.SHORTS.Set(nrf.RADIO_SHORTS_READY_START | nrf.RADIO_SHORTS_END_DISABLE)
	nrf.RADIO.PACKETPTR.Set(uint32(uintptr(unsafe.Pointer(&r.buffer[0]))))
	return nil
}

func (r *Radio) SetChannel(c radio.Channel) error {
	if err := c.Validate(); err != nil {
		return err
	}
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	r.channel = c
	nrf.RADIO.FREQUENCY.Set(uint32(c.Frequency() - 2400))
	nrf.RADIO.DATAWHITEIV.Set(uint32(c.WhiteningInit()))
	return nil
}

func (r *Radio) Now() timing.Instant {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	return r.clock.now()
}

func (r *Radio) Completions() <-chan radio.Completion {
	return r.completions
}

// Overruns counts completions dropped because the channel was full. It stays
// zero as long as the consumer keeps to the outstanding request limits.
func (r *Radio) Overruns() uint32 {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	return r.overruns
}

func (r *Radio) Transmit(buf []byte) (radio.Ticket, error) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	if r.op != opNone {
		return 0, errors.Wrap(llerr.ErrRadioFailure, "transmit while busy")
	}
	copy(r.buffer[:], buf)
	r.ticket++
	r.op, r.opTicket = opTx, r.ticket
	nrf.RADIO.EVENTS_END.Set(0)
	nrf.RADIO.EVENTS_DISABLED.Set(0)
	nrf.RADIO.TASKS_TXEN.Set(1)
	return r.ticket, nil
}

func (r *Radio) Receive(buf []byte, deadline timing.Instant) (radio.Ticket, error) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	if r.op != opNone {
		return 0, errors.Wrap(llerr.ErrRadioFailure, "receive while busy")
	}
	r.ticket++
	now := r.clock.now()
	if !now.Before(deadline) {
		r.post(radio.Completion{Ticket: r.ticket, Kind: radio.RxTimeout, At: now})
		return r.ticket, nil
	}
	r.op, r.opTicket = opRx, r.ticket
	r.rxBuf, r.deadline = buf, deadline
	r.startRx()

	nrf.TIMER0.EVENTS_COMPARE[ccDeadline].Set(0)
	nrf.TIMER0.CC[ccDeadline].Set(uint32(deadline))
	nrf.TIMER0.INTENSET.Set(nrf.TIMER_INTENSET_COMPARE1_Msk)
	return r.ticket, nil
}

func (r *Radio) WakeAt(at timing.Instant) (radio.Ticket, error) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	if r.nwakes == MaxWakes {
		return 0, errors.Wrapf(llerr.ErrRadioFailure, "more than %d wake-ups pending", MaxWakes)
	}
	r.ticket++
	r.wakes[r.nwakes] = wake{ticket: r.ticket, at: at}
	r.nwakes++
	r.armWake()
	return r.ticket, nil
}

// Run enables the interrupts that deliver completions and waits for ctx.
func (r *Radio) Run(ctx context.Context) error {
	r.radioIRQ.Enable()
	r.timerIRQ.Enable()
	<-ctx.Done()

	state := interrupt.Disable()
	nrf.TIMER0.INTENCLR.Set(nrf.TIMER_INTENSET_COMPARE1_Msk | nrf.TIMER_INTENSET_COMPARE2_Msk)
	r.disable()
	interrupt.Restore(state)
	return ctx.Err()
}

// post hands c to the consumer. It runs in interrupt context or with
// interrupts disabled, so it must not block.
func (r *Radio) post(c radio.Completion) {
	select {
	case r.completions <- c:
	default:
		r.overruns++
	}
}

func (r *Radio) startRx() {
	nrf.RADIO.EVENTS_ADDRESS.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)
	nrf.RADIO.EVENTS_DISABLED.Set(0)
	nrf.RADIO.TASKS_RXEN.Set(1)
}

// finish ends the current radio operation with c.
func (r *Radio) finish(c radio.Completion) {
	r.op = opNone
	nrf.TIMER0.INTENCLR.Set(nrf.TIMER_INTENSET_COMPARE1_Msk)
	r.post(c)
}

func (r *Radio) handleRadio() {
	if nrf.RADIO.EVENTS_END.Get() == 0 {
		return
	}
	nrf.RADIO.EVENTS_END.Set(0)
	now := r.clock.now()

	switch r.op {
	case opTx:
		r.finish(radio.Completion{Ticket: r.opTicket, Kind: radio.TxDone, At: now})
	case opRx:
		if nrf.RADIO.CRCSTATUS.Get() == 0 {
			if now.Before(r.deadline) {
				// corrupted packet, keep listening for the rest of the window
				r.startRx()
				return
			}
			r.finish(radio.Completion{Ticket: r.opTicket, Kind: radio.RxTimeout, At: now})
			return
		}
		n := int(r.buffer[1]) + pdu.HeaderLength
		if n > len(r.buffer) {
			n = len(r.buffer)
		}
		r.finish(radio.Completion{Ticket: r.opTicket, Kind: radio.RxDone, At: now, N: copy(r.rxBuf, r.buffer[:n])})
	}
}

func (r *Radio) handleTimer() {
	if nrf.TIMER0.EVENTS_COMPARE[ccDeadline].Get() != 0 {
		nrf.TIMER0.EVENTS_COMPARE[ccDeadline].Set(0)
		// a packet whose address has been seen finishes through END
		if r.op == opRx && nrf.RADIO.EVENTS_ADDRESS.Get() == 0 {
			r.disable()
			r.finish(radio.Completion{Ticket: r.opTicket, Kind: radio.RxTimeout, At: r.deadline})
		}
	}
	if nrf.TIMER0.EVENTS_COMPARE[ccWake].Get() != 0 {
		nrf.TIMER0.EVENTS_COMPARE[ccWake].Set(0)
		r.armWake()
	}
}

// armWake posts every wake-up that is due and points the wake compare at
// the earliest one left.
func (r *Radio) armWake() {
	for {
		now := r.clock.now()
		var next timing.Instant
		n := 0
		for _, w := range r.wakes[:r.nwakes] {
			if !now.Before(w.at) {
				r.post(radio.Completion{Ticket: w.ticket, Kind: radio.Wake, At: now})
				continue
			}
			if n == 0 || w.at < next {
				next = w.at
			}
			r.wakes[n] = w
			n++
		}
		r.nwakes = n
		if n == 0 {
			nrf.TIMER0.INTENCLR.Set(nrf.TIMER_INTENSET_COMPARE2_Msk)
			return
		}
		nrf.TIMER0.EVENTS_COMPARE[ccWake].Set(0)
		nrf.TIMER0.CC[ccWake].Set(uint32(next))
		nrf.TIMER0.INTENSET.Set(nrf.TIMER_INTENSET_COMPARE2_Msk)
		// the compare only fires if the counter has not already passed it
		if r.clock.now().Before(next) {
			return
		}
	}
}

func (r *Radio) disable() {
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
	}
	r.op = opNone
}
