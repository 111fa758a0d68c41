// Package scan listens for legacy advertising on a radio.Radio, optionally
// requesting scan responses.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/pdu"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/timing"
)

// ResponseTimeout bounds the wait for a SCAN_RSP to start after a SCAN_REQ.
const ResponseTimeout = timing.TIFS + 40*time.Microsecond

type State uint32

const (
	Idle State = iota
	Scheduled
	Listening
	Requesting
	AwaitingResponse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Scheduled:
		return "Scheduled"
	case Listening:
		return "Listening"
	case Requesting:
		return "Requesting"
	case AwaitingResponse:
		return "AwaitingResponse"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Report is one received advertising PDU or scan response. Data is owned by
// the receiver of the report.
type Report struct {
	Type    pdu.Type
	Address address.Address
	Data    []byte
	Channel radio.Channel
	At      timing.Instant
}

type Handler func(r Report)

type commandKind uint8

const (
	commandStart commandKind = iota
	commandStop
)

type command struct {
	kind commandKind
	done chan error
}

type Scanner struct {
	radio   radio.Radio
	logger  *zap.Logger
	handler Handler
	cfg     Config

	chState chan command
	state   atomic.Uint32
	stats   stats

	// owned by Run
	ticket    radio.Ticket
	channel   radio.Channel
	interval  timing.Instant
	windowEnd timing.Instant
	requested address.Address
	stopping  bool
	waiters   []chan error
	seen      dupFilter
	dec       pdu.Decoder
	tx        [pdu.MaxLength]byte
	rx        [pdu.MaxLength]byte
}

type Option func(*Scanner)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithHandler is called from the Run goroutine for every report.
func WithHandler(h Handler) Option {
	return func(s *Scanner) { s.handler = h }
}

func New(r radio.Radio, cfg Config, opts ...Option) (*Scanner, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scanner{
		radio:   r,
		logger:  zap.L().Named("scan"),
		cfg:     cfg,
		chState: make(chan command),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Scanner) State() State {
	return State(s.state.Load())
}

func (s *Scanner) setState(st State) {
	s.state.Store(uint32(st))
}

// Start begins the first scan window on the first channel of the map. The
// duplicate filter is cleared.
func (s *Scanner) Start(ctx context.Context) error {
	return s.send(ctx, command{kind: commandStart})
}

// Stop returns once the scanner is Idle.
func (s *Scanner) Stop(ctx context.Context) error {
	return s.send(ctx, command{kind: commandStop})
}

func (s *Scanner) send(ctx context.Context, cmd command) error {
	cmd.done = make(chan error, 1)
	select {
	case s.chState <- cmd:
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

func (s *Scanner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.chState:
			s.handle(cmd)
		case c := <-s.radio.Completions():
			s.complete(c)
		}
	}
}

func (s *Scanner) handle(cmd command) {
	switch cmd.kind {
	case commandStart:
		switch {
		case s.stopping:
			cmd.done <- errors.New("scanner is stopping")
			return
		case s.State() != Idle:
			cmd.done <- nil
			return
		}
		if err := s.radio.Configure(radio.AdvertisingConfig()); err != nil {
			cmd.done <- errors.Wrap(err, "configure radio")
			return
		}
		s.seen.reset()
		s.logger.Info("scanning started",
			zap.Stringer("type", s.cfg.Type),
			zap.Duration("interval", s.cfg.Interval.Duration()),
			zap.Duration("window", s.cfg.Window.Duration()))
		s.channel, _ = s.cfg.ChannelMap.First()
		s.window(s.radio.Now())
		cmd.done <- nil

	case commandStop:
		switch s.State() {
		case Idle:
			cmd.done <- nil
		case Scheduled:
			s.idle()
			cmd.done <- nil
		default:
			s.stopping = true
			s.waiters = append(s.waiters, cmd.done)
		}
	}
}

// window opens a scan window on the current channel starting at at.
func (s *Scanner) window(at timing.Instant) {
	s.interval = at
	s.windowEnd = at.Add(s.cfg.Window.Duration())
	if err := s.radio.SetChannel(s.channel); err != nil {
		s.fail(err)
		return
	}
	s.listen()
}

func (s *Scanner) listen() {
	t, err := s.radio.Receive(s.rx[:], s.windowEnd)
	if err != nil {
		s.fail(err)
		return
	}
	s.ticket = t
	s.setState(Listening)
}

// resume goes back to listening for the rest of the window, if any is left.
func (s *Scanner) resume(now timing.Instant) {
	if s.stopping {
		s.idle()
		return
	}
	if now.Before(s.windowEnd) {
		s.listen()
		return
	}
	s.next()
}

// next moves to the following channel at the start of the next interval.
func (s *Scanner) next() {
	if s.stopping {
		s.idle()
		return
	}
	ch, ok := s.cfg.ChannelMap.Next(s.channel)
	if !ok {
		ch, _ = s.cfg.ChannelMap.First()
	}
	s.channel = ch
	t, err := s.radio.WakeAt(s.interval.Add(s.cfg.Interval.Duration()))
	if err != nil {
		s.stats.radioFailures.Inc()
		s.logger.Error("scan timer failed", zap.Error(err))
		s.idle()
		return
	}
	s.ticket = t
	s.setState(Scheduled)
}

func (s *Scanner) fail(err error) {
	s.stats.radioFailures.Inc()
	s.logger.Warn("skipping scan window", zap.Error(err), zap.Stringer("channel", s.channel))
	s.next()
}

func (s *Scanner) complete(c radio.Completion) {
	if s.State() == Idle || c.Ticket != s.ticket {
		if ce := s.logger.Check(zap.DebugLevel, "stale completion"); ce != nil {
			ce.Write(zap.Uint32("ticket", uint32(c.Ticket)), zap.Stringer("kind", c.Kind))
		}
		return
	}
	s.ticket = 0
	if c.Err != nil {
		s.fail(c.Err)
		return
	}
	switch s.State() {
	case Scheduled:
		s.window(c.At)
	case Listening:
		s.received(c)
	case Requesting:
		s.sent(c)
	case AwaitingResponse:
		s.responded(c)
	}
}

func (s *Scanner) received(c radio.Completion) {
	if c.Kind == radio.RxTimeout {
		s.resume(c.At)
		return
	}
	p, err := s.dec.Decode(s.rx[:c.N])
	if err != nil {
		s.stats.dropped.Inc()
		s.malformed(err, s.rx[:c.N])
		s.resume(c.At)
		return
	}
	var (
		advA address.Address
		data []byte
	)
	switch p := p.(type) {
	case *pdu.AdvInd:
		advA, data = p.AdvA, p.AdvData
	case *pdu.AdvNonconnInd:
		advA, data = p.AdvA, p.AdvData
	case *pdu.AdvScanInd:
		advA, data = p.AdvA, p.AdvData
	case *pdu.AdvDirectInd:
		if !p.TargetA.Equal(s.cfg.Address) {
			s.stats.ignored.Inc()
			s.resume(c.At)
			return
		}
		advA = p.AdvA
	default:
		s.stats.ignored.Inc()
		s.resume(c.At)
		return
	}

	fresh := s.report(Report{Type: p.Type(), Address: advA, Data: data, Channel: s.channel, At: c.At})
	if s.cfg.Type == Active && p.Type().Scannable() && fresh && !s.stopping {
		s.request(advA)
		return
	}
	s.resume(c.At)
}

// report hands r to the handler unless the duplicate filter has seen it.
func (s *Scanner) report(r Report) bool {
	if s.cfg.FilterDuplicates {
		k := dupKey{value: r.Address.Value(), kind: r.Address.Kind(), typ: r.Type}
		if !s.seen.add(k) {
			s.stats.duplicates.Inc()
			return false
		}
	}
	s.stats.reports.Inc()
	if s.handler != nil {
		r.Data = append([]byte(nil), r.Data...)
		s.handler(r)
	}
	return true
}

func (s *Scanner) request(advA address.Address) {
	n, err := (&pdu.ScanReq{ScanA: s.cfg.Address, AdvA: advA}).MarshalTo(s.tx[:])
	if err != nil {
		s.fail(err)
		return
	}
	t, err := s.radio.Transmit(s.tx[:n])
	if err != nil {
		s.fail(err)
		return
	}
	s.stats.scanRequests.Inc()
	s.requested = advA
	s.ticket = t
	s.setState(Requesting)
}

func (s *Scanner) sent(c radio.Completion) {
	if s.stopping {
		s.idle()
		return
	}
	t, err := s.radio.Receive(s.rx[:], c.At.Add(ResponseTimeout))
	if err != nil {
		s.fail(err)
		return
	}
	s.ticket = t
	s.setState(AwaitingResponse)
}

func (s *Scanner) responded(c radio.Completion) {
	if c.Kind == radio.RxTimeout {
		if ce := s.logger.Check(zap.DebugLevel, "no scan response"); ce != nil {
			ce.Write(zap.Stringer("advertiser", s.requested))
		}
		s.resume(c.At)
		return
	}
	p, err := s.dec.Decode(s.rx[:c.N])
	if err != nil {
		s.stats.dropped.Inc()
		s.malformed(err, s.rx[:c.N])
		s.resume(c.At)
		return
	}
	rsp, ok := p.(*pdu.ScanRsp)
	if !ok || !rsp.AdvA.Equal(s.requested) {
		s.stats.ignored.Inc()
		s.resume(c.At)
		return
	}
	s.stats.scanResponses.Inc()
	s.report(Report{Type: pdu.TypeScanRsp, Address: rsp.AdvA, Data: rsp.ScanRspData, Channel: s.channel, At: c.At})
	s.resume(c.At)
}

func (s *Scanner) malformed(err error, b []byte) {
	if ce := s.logger.Check(zap.DebugLevel, "dropping malformed pdu"); ce != nil {
		ce.Write(zap.Error(err), zap.String("packet", fmt.Sprintf("%x", b)))
	}
}

func (s *Scanner) idle() {
	s.ticket = 0
	s.stopping = false
	s.setState(Idle)
	for _, w := range s.waiters {
		w <- nil
	}
	s.waiters = nil
	s.logger.Info("scanning stopped")
}
