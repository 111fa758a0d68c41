// Package adv runs legacy advertising events on a radio.Radio.
package adv

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muxable/linklayer/pkg/pdu"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/timing"
)

// ListenTimeout is how long the receiver stays armed after an advertising
// PDU for a SCAN_REQ or CONNECT_IND to start: T_IFS plus the preamble and
// access address.
const ListenTimeout = timing.TIFS + 40*time.Microsecond

type State uint32

const (
	Idle State = iota
	Scheduled
	Transmitting
	ListenWindow
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Scheduled:
		return "Scheduled"
	case Transmitting:
		return "Transmitting"
	case ListenWindow:
		return "ListenWindow"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeScanRequest
	OutcomeConnectRequest
)

// Event describes one advertising event once it is over. Channel is the last
// channel serviced.
type Event struct {
	Start   timing.Instant
	Type    pdu.Type
	Channel radio.Channel
	Outcome Outcome
	Skipped bool
}

// ConnectionHandler takes over after a CONNECT_IND is accepted. Advertising
// has stopped by the time it is called.
type ConnectionHandler func(ind pdu.ConnectInd)

type commandKind uint8

const (
	commandStart commandKind = iota
	commandStop
	commandUpdate
)

type command struct {
	kind commandKind
	cfg  Config
	done chan error
}

type Advertiser struct {
	radio     radio.Radio
	logger    *zap.Logger
	jitter    Jitter
	onConnect ConnectionHandler
	onEvent   func(Event)

	chState chan command
	state   atomic.Uint32
	stats   stats

	// owned by Run
	cfg        Config
	pending    *Config
	ticket     radio.Ticket
	channel    radio.Channel
	event      Event
	responding bool
	stopping   bool
	waiters    []chan error
	dec        pdu.Decoder
	tx         [pdu.MaxLength]byte
	txLen      int
	rsp        [pdu.MaxLength]byte
	rspLen     int
	rx         [pdu.MaxLength]byte
}

type Option func(*Advertiser)

// WithJitter replaces the default pseudo-random advDelay source.
func WithJitter(j Jitter) Option {
	return func(a *Advertiser) { a.jitter = j }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Advertiser) { a.logger = l }
}

func WithConnectionHandler(h ConnectionHandler) Option {
	return func(a *Advertiser) { a.onConnect = h }
}

// WithEventObserver is called from the Run goroutine after every event.
func WithEventObserver(f func(Event)) Option {
	return func(a *Advertiser) { a.onEvent = f }
}

// New validates cfg and prepares an advertiser. Nothing is transmitted until
// Run is called and Start requested.
func New(r radio.Radio, cfg Config, opts ...Option) (*Advertiser, error) {
	a := &Advertiser{
		radio:   r,
		logger:  zap.L().Named("adv"),
		jitter:  NewRandJitter(time.Now().UnixNano()),
		chState: make(chan command),
	}
	for _, o := range opts {
		o(a)
	}
	if err := a.apply(cfg.withDefaults()); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Advertiser) State() State {
	return State(a.state.Load())
}

func (a *Advertiser) setState(s State) {
	a.state.Store(uint32(s))
}

// Start begins advertising with the first event immediately.
func (a *Advertiser) Start(ctx context.Context) error {
	return a.send(ctx, command{kind: commandStart})
}

// Stop returns once the advertiser is Idle. An operation already handed to
// the radio completes first.
func (a *Advertiser) Stop(ctx context.Context) error {
	return a.send(ctx, command{kind: commandStop})
}

// Update validates cfg now and applies it at the next event boundary.
func (a *Advertiser) Update(ctx context.Context, cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	return a.send(ctx, command{kind: commandUpdate, cfg: cfg})
}

func (a *Advertiser) send(ctx context.Context, cmd command) error {
	cmd.done = make(chan error, 1)
	select {
	case a.chState <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the advertiser's event loop. It is the only goroutine touching the
// radio and returns when ctx is done.
func (a *Advertiser) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-a.chState:
			a.handle(cmd)
		case c := <-a.radio.Completions():
			a.complete(c)
		}
	}
}

func (a *Advertiser) handle(cmd command) {
	switch cmd.kind {
	case commandStart:
		switch {
		case a.stopping:
			cmd.done <- errors.New("advertiser is stopping")
			return
		case a.State() != Idle:
			cmd.done <- nil
			return
		}
		if err := a.radio.Configure(radio.AdvertisingConfig()); err != nil {
			cmd.done <- errors.Wrap(err, "configure radio")
			return
		}
		a.logger.Info("advertising started",
			zap.Stringer("type", a.cfg.Type),
			zap.Stringer("address", a.cfg.Address),
			zap.Duration("interval", a.cfg.IntervalMin.Duration()))
		cmd.done <- a.schedule(a.radio.Now())

	case commandStop:
		switch a.State() {
		case Idle:
			cmd.done <- nil
		case Scheduled:
			// the pending wake carries no radio activity; its completion
			// will not match and is dropped
			a.idle()
			cmd.done <- nil
		default:
			a.stopping = true
			a.waiters = append(a.waiters, cmd.done)
		}

	case commandUpdate:
		switch a.State() {
		case Idle, Scheduled:
			cmd.done <- a.apply(cmd.cfg)
		default:
			cfg := cmd.cfg
			a.pending = &cfg
			cmd.done <- nil
		}
	}
}

// apply installs cfg and encodes its PDUs into the scratch buffers.
func (a *Advertiser) apply(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	n, err := cfg.advertisingPDU().MarshalTo(a.tx[:])
	if err != nil {
		return err
	}
	m, err := (&pdu.ScanRsp{AdvA: cfg.Address, ScanRspData: cfg.ScanRspData}).MarshalTo(a.rsp[:])
	if err != nil {
		return err
	}
	a.cfg, a.txLen, a.rspLen, a.pending = cfg, n, m, nil
	return nil
}

func (a *Advertiser) schedule(at timing.Instant) error {
	t, err := a.radio.WakeAt(at)
	if err != nil {
		a.stats.radioFailures.Inc()
		a.logger.Error("advertising timer failed", zap.Error(err))
		a.idle()
		return err
	}
	a.ticket = t
	a.setState(Scheduled)
	return nil
}

func (a *Advertiser) complete(c radio.Completion) {
	if a.State() == Idle || c.Ticket != a.ticket {
		if ce := a.logger.Check(zap.DebugLevel, "stale completion"); ce != nil {
			ce.Write(zap.Uint32("ticket", uint32(c.Ticket)), zap.Stringer("kind", c.Kind))
		}
		return
	}
	a.ticket = 0
	if c.Err != nil {
		a.fail(c.Err)
		return
	}
	switch a.State() {
	case Scheduled:
		a.begin(c.At)
	case Transmitting:
		a.transmitted(c)
	case ListenWindow:
		a.listened(c)
	}
}

func (a *Advertiser) begin(at timing.Instant) {
	a.event = Event{Start: at, Type: a.cfg.Type}
	ch, _ := a.cfg.ChannelMap.First()
	a.transmitOn(ch)
}

func (a *Advertiser) transmitOn(ch radio.Channel) {
	a.channel = ch
	a.event.Channel = ch
	if err := a.radio.SetChannel(ch); err != nil {
		a.fail(err)
		return
	}
	t, err := a.radio.Transmit(a.tx[:a.txLen])
	if err != nil {
		a.fail(err)
		return
	}
	a.ticket = t
	a.responding = false
	a.setState(Transmitting)
}

func (a *Advertiser) transmitted(c radio.Completion) {
	if a.responding {
		a.stats.scanResponses.Inc()
	}
	if a.stopping {
		a.idle()
		return
	}
	if !a.responding && (a.cfg.Type.Connectable() || a.cfg.Type.Scannable()) {
		t, err := a.radio.Receive(a.rx[:], c.At.Add(ListenTimeout))
		if err != nil {
			a.fail(err)
			return
		}
		a.ticket = t
		a.setState(ListenWindow)
		return
	}
	a.nextChannel()
}

func (a *Advertiser) listened(c radio.Completion) {
	if c.Kind == radio.RxTimeout {
		a.nextChannel()
		return
	}
	p, err := a.dec.Decode(a.rx[:c.N])
	if err != nil {
		a.stats.dropped.Inc()
		if ce := a.logger.Check(zap.DebugLevel, "dropping malformed pdu"); ce != nil {
			ce.Write(zap.Error(err), zap.String("packet", fmt.Sprintf("%x", a.rx[:c.N])))
		}
		a.nextChannel()
		return
	}
	switch p := p.(type) {
	case *pdu.ScanReq:
		if a.cfg.Type.Scannable() && p.AdvA.Equal(a.cfg.Address) && a.cfg.scanAllowed(p.ScanA) {
			a.stats.scanRequests.Inc()
			a.event.Outcome = OutcomeScanRequest
			if ce := a.logger.Check(zap.DebugLevel, "scan request"); ce != nil {
				ce.Write(zap.Stringer("scanner", p.ScanA), zap.Stringer("channel", a.channel))
			}
			if a.stopping {
				a.idle()
				return
			}
			t, err := a.radio.Transmit(a.rsp[:a.rspLen])
			if err != nil {
				a.fail(err)
				return
			}
			a.ticket = t
			a.responding = true
			a.setState(Transmitting)
			return
		}
	case *pdu.ConnectInd:
		if a.cfg.Type.Connectable() && p.AdvA.Equal(a.cfg.Address) && a.cfg.connectAllowed(p.InitA) {
			a.stats.connectRequests.Inc()
			a.event.Outcome = OutcomeConnectRequest
			a.logger.Info("connect request", zap.Stringer("initiator", p.InitA), zap.Stringer("channel", a.channel))
			ind := *p
			a.observe()
			a.idle()
			if a.onConnect != nil {
				a.onConnect(ind)
			}
			return
		}
	}
	a.stats.ignored.Inc()
	a.nextChannel()
}

func (a *Advertiser) nextChannel() {
	if a.stopping {
		a.idle()
		return
	}
	if ch, ok := a.cfg.ChannelMap.Next(a.channel); ok {
		a.transmitOn(ch)
		return
	}
	a.end()
}

// fail skips the rest of the current event. The schedule carries on.
func (a *Advertiser) fail(err error) {
	a.stats.radioFailures.Inc()
	a.logger.Warn("skipping advertising event", zap.Error(err), zap.Stringer("channel", a.channel))
	a.event.Skipped = true
	a.end()
}

func (a *Advertiser) end() {
	if a.event.Skipped {
		a.stats.skipped.Inc()
	} else {
		a.stats.events.Inc()
	}
	a.observe()
	if a.stopping {
		a.idle()
		return
	}
	if a.pending != nil {
		if err := a.apply(*a.pending); err != nil {
			a.logger.Error("dropping configuration update", zap.Error(err))
			a.pending = nil
		}
	}
	delay := clampJitter(a.jitter.NextJitter())
	_ = a.schedule(a.event.Start.Add(a.cfg.IntervalMin.Duration() + delay))
}

func (a *Advertiser) observe() {
	if a.onEvent != nil {
		a.onEvent(a.event)
	}
}

func (a *Advertiser) idle() {
	a.ticket = 0
	a.stopping = false
	a.setState(Idle)
	if a.pending != nil {
		if err := a.apply(*a.pending); err != nil {
			a.logger.Error("dropping configuration update", zap.Error(err))
			a.pending = nil
		}
	}
	for _, w := range a.waiters {
		w <- nil
	}
	a.waiters = nil
	a.logger.Info("advertising stopped")
}
