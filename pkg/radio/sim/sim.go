// Package sim is a radio.Radio on a virtual clock. Time only moves when the
// next pending request completes, so runs are deterministic and fast unless
// real time pacing is enabled.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/muxable/linklayer/pkg/llerr"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/timing"
)

// Frame is a packet on air. At is the time its first bit is sent.
type Frame struct {
	Channel radio.Channel
	At      timing.Instant
	Data    []byte
}

// End is the time the last bit of the frame is sent.
func (f Frame) End() timing.Instant {
	return f.At.Add(timing.Airtime(len(f.Data)))
}

// Responder answers a transmitted frame. A non-nil reply goes on air T_IFS
// after the frame ends, on the same channel.
type Responder func(f Frame) (reply []byte)

type op struct {
	ticket radio.Ticket
	kind   radio.Kind
	at     timing.Instant
	buf    []byte
	frame  *Frame
}

type Radio struct {
	mu sync.Mutex

	now      timing.Instant
	channel  radio.Channel
	config   radio.Config
	ticket   radio.Ticket
	pending  []op
	fail     int
	air      []Frame
	txLog    []Frame
	respond  Responder
	horizon  timing.Instant
	realtime bool
	logger   *zap.Logger

	notify      chan struct{}
	completions chan radio.Completion
	done        chan struct{}
	doneOnce    sync.Once
}

type Option func(*Radio)

// WithHorizon stops the radio once virtual time reaches d.
func WithHorizon(d time.Duration) Option {
	return func(r *Radio) { r.horizon = timing.Instant(0).Add(d) }
}

// WithRealtime paces completions against the monotonic clock.
func WithRealtime() Option {
	return func(r *Radio) { r.realtime = true }
}

func WithResponder(f Responder) Option {
	return func(r *Radio) { r.respond = f }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Radio) { r.logger = l }
}

func New(opts ...Option) *Radio {
	r := &Radio{
		horizon:     -1,
		logger:      zap.L().Named("sim"),
		notify:      make(chan struct{}, 1),
		completions: make(chan radio.Completion),
		done:        make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Radio) Configure(c radio.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = c
	return nil
}

func (r *Radio) SetChannel(c radio.Channel) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel = c
	return nil
}

func (r *Radio) Now() timing.Instant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

func (r *Radio) Completions() <-chan radio.Completion {
	return r.completions
}

// Done is closed when the horizon is reached.
func (r *Radio) Done() <-chan struct{} {
	return r.done
}

func (r *Radio) Transmit(buf []byte) (radio.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failLocked("transmit"); err != nil {
		return 0, err
	}
	f := Frame{Channel: r.channel, At: r.now, Data: append([]byte(nil), buf...)}
	r.txLog = append(r.txLog, f)
	r.logger.Debug("radio transmitting",
		zap.Stringer("channel", f.Channel),
		zap.Int64("at", int64(f.At)),
		zap.String("packet", fmt.Sprintf("%x", f.Data)))

	if r.respond != nil {
		if reply := r.respond(f); reply != nil {
			r.air = append(r.air, Frame{
				Channel: f.Channel,
				At:      f.End().Add(timing.TIFS),
				Data:    append([]byte(nil), reply...),
			})
			r.sortAirLocked()
		}
	}
	return r.scheduleLocked(op{kind: radio.TxDone, at: f.End()}), nil
}

func (r *Radio) Receive(buf []byte, deadline timing.Instant) (radio.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failLocked("receive"); err != nil {
		return 0, err
	}
	// frames that started before the receiver was enabled are lost
	for len(r.air) > 0 && r.air[0].At.Before(r.now) {
		r.air = r.air[1:]
	}
	for i := 0; i < len(r.air); i++ {
		f := r.air[i]
		if f.Channel != r.channel {
			continue
		}
		if f.At.After(deadline) {
			break
		}
		r.air = append(r.air[:i], r.air[i+1:]...)
		return r.scheduleLocked(op{kind: radio.RxDone, at: f.End(), buf: buf, frame: &f}), nil
	}
	if deadline.Before(r.now) {
		deadline = r.now
	}
	return r.scheduleLocked(op{kind: radio.RxTimeout, at: deadline}), nil
}

func (r *Radio) WakeAt(at timing.Instant) (radio.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if at.Before(r.now) {
		at = r.now
	}
	return r.scheduleLocked(op{kind: radio.Wake, at: at}), nil
}

// Inject puts a frame on air for a receiver to pick up.
func (r *Radio) Inject(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.Data = append([]byte(nil), f.Data...)
	r.air = append(r.air, f)
	r.sortAirLocked()
}

// FailNext makes the next n transmit or receive requests fail.
func (r *Radio) FailNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = n
}

// Transmissions returns a copy of every frame transmitted so far.
func (r *Radio) Transmissions() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.txLog))
	copy(out, r.txLog)
	return out
}

func (r *Radio) failLocked(what string) error {
	if r.fail == 0 {
		return nil
	}
	r.fail--
	return errors.Wrapf(llerr.ErrRadioFailure, "%s: injected fault", what)
}

func (r *Radio) sortAirLocked() {
	sort.SliceStable(r.air, func(i, j int) bool { return r.air[i].At < r.air[j].At })
}

func (r *Radio) scheduleLocked(o op) radio.Ticket {
	r.ticket++
	o.ticket = r.ticket
	i := sort.Search(len(r.pending), func(i int) bool { return r.pending[i].at > o.at })
	r.pending = append(r.pending, op{})
	copy(r.pending[i+1:], r.pending[i:])
	r.pending[i] = o
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return o.ticket
}

// Run delivers completions in time order, advancing the virtual clock to
// each one. It returns nil once the horizon is reached.
func (r *Radio) Run(ctx context.Context) error {
	var clock pacer
	if r.realtime {
		clock = newPacer()
	}
	for {
		r.mu.Lock()
		if len(r.pending) == 0 {
			r.mu.Unlock()
			select {
			case <-r.notify:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		o := r.pending[0]
		if r.horizon >= 0 && o.at >= r.horizon {
			r.now = r.horizon
			r.mu.Unlock()
			r.doneOnce.Do(func() { close(r.done) })
			return nil
		}
		r.pending = r.pending[1:]
		r.now = o.at
		c := radio.Completion{Ticket: o.ticket, Kind: o.kind, At: o.at}
		if o.frame != nil {
			c.N = copy(o.buf, o.frame.Data)
		}
		r.mu.Unlock()

		if r.realtime {
			if err := clock.sleepUntil(ctx, o.at.Duration()); err != nil {
				return err
			}
		}
		select {
		case r.completions <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
