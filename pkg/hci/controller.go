// Package hci speaks the host controller interface. Controller serves HCI
// commands from a host stack on top of the link layer, Host is the
// matching client.
package hci

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/adv"
	"github.com/muxable/linklayer/pkg/llerr"
	"github.com/muxable/linklayer/pkg/pdu"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/timing"
)

const (
	// connectionHandle is given to the single connection the controller hands
	// over.
	connectionHandle uint16 = 0x0001

	aclDataPacketLength uint16 = 27
	aclDataPackets      uint8  = 3

	// SupportedStates: non-connectable, scannable, connectable and high duty
	// cycle directed advertising.
	SupportedStates LESupportedStates = 0x0F
)

type ControllerOption func(*Controller)

func WithLogger(l *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithAdvertiserOptions is passed on to the advertiser the controller runs.
func WithAdvertiserOptions(opts ...adv.Option) ControllerOption {
	return func(c *Controller) { c.advOpts = append(c.advOpts, opts...) }
}

// Controller answers every command with a Command Complete event. Unknown
// opcodes get StatusUnknownCommand.
type Controller struct {
	conn    *Conn
	logger  *zap.Logger
	adv     *adv.Advertiser
	advOpts []adv.Option
	public  address.Address

	enabled     atomic.Bool
	eventMask   atomic.Uint64
	leEventMask atomic.Uint64

	// owned by Serve
	params     LESetAdvertisingParametersCommandPacket
	data       []byte
	scanRsp    []byte
	random     *address.Address
	acceptList []address.Address
}

func NewController(conn *Conn, r radio.Radio, public address.Address, opts ...ControllerOption) (*Controller, error) {
	c := &Controller{
		conn:   conn,
		logger: zap.L().Named("controller"),
		public: public,
	}
	for _, o := range opts {
		o(c)
	}
	c.reset()
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	ao := append([]adv.Option{
		adv.WithLogger(c.logger.Named("adv")),
		adv.WithConnectionHandler(c.connected),
	}, c.advOpts...)
	if c.adv, err = adv.New(r, cfg, ao...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) reset() {
	c.params = LESetAdvertisingParametersCommandPacket{
		AdvertisingIntervalMin: uint16(timing.DefaultAdvInterval),
		AdvertisingIntervalMax: uint16(timing.DefaultAdvInterval),
		AdvertisingChannelMap:  radio.ChannelMapAll,
	}
	c.data, c.scanRsp, c.random, c.acceptList = nil, nil, nil, nil
	c.enabled.Store(false)
	c.eventMask.Store(uint64(DefaultEventMask))
	c.leEventMask.Store(uint64(DefaultLEEventMask))
}

// Advertiser is the advertiser driven by the advertising commands.
func (c *Controller) Advertiser() *adv.Advertiser {
	return c.adv
}

type readResult struct {
	p   Packet
	err error
}

// Serve runs the advertiser and answers commands until ctx is done or the
// transport fails.
func (c *Controller) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.adv.Run(ctx)

	packets := make(chan readResult)
	go func() {
		for {
			p, err := c.conn.ReadPacket()
			select {
			case packets <- readResult{p, err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, ErrMalformedPacket) && !errors.Is(err, ErrInvalidParameters) {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-packets:
			if err := c.serve(ctx, r.p, r.err); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) serve(ctx context.Context, p Packet, err error) error {
	switch {
	case errors.Is(err, ErrInvalidParameters):
		c.logger.Warn("invalid command parameters", zap.Error(err))
		return c.complete(p.(CommandPacket).Opcode(), []byte{byte(StatusInvalidCommandParameters)})
	case errors.Is(err, ErrMalformedPacket):
		c.logger.Warn("ignoring packet", zap.Error(err))
		return nil
	case err != nil:
		return errors.Wrap(err, "read command")
	}
	cmd, isCommand := p.(CommandPacket)
	if !isCommand {
		c.logger.Warn("ignoring non-command packet")
		return nil
	}
	ret := c.handle(ctx, cmd)
	return c.complete(cmd.Opcode(), ret)
}

func (c *Controller) complete(opcode Opcode, ret []byte) error {
	c.logger.Debug("command complete", zap.Stringer("opcode", opcode), zap.Uint8("status", ret[0]))
	return c.conn.WritePacket(&CommandCompleteEventPacket{
		NumCommandPackets: 1,
		CommandOpcode:     opcode,
		ReturnParameters:  ret,
	})
}

func ok(params ...byte) []byte {
	return append([]byte{byte(StatusSuccess)}, params...)
}

func result(s Status) []byte {
	return []byte{byte(s)}
}

// statusOf maps link layer errors to HCI status codes.
func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, llerr.ErrOutOfRange), errors.Is(err, llerr.ErrPayloadTooLarge), errors.Is(err, llerr.ErrInvalidAddress):
		return StatusInvalidCommandParameters
	}
	return StatusUnspecifiedError
}

// handle executes cmd and returns the Command Complete return parameters.
func (c *Controller) handle(ctx context.Context, cmd CommandPacket) []byte {
	switch cmd := cmd.(type) {
	case *SetEventMaskCommandPacket:
		c.eventMask.Store(uint64(cmd.EventMask))
		return ok()

	case *LESetEventMaskCommandPacket:
		c.leEventMask.Store(uint64(cmd.LEEventMask))
		return ok()

	case *LESetRandomAddressCommandPacket:
		if c.enabled.Load() && c.ownRandom() {
			return result(StatusCommandDisallowed)
		}
		a := cmd.RandomAddress.Address(address.Random)
		c.random = &a
		return ok()

	case *LESetAdvertisingParametersCommandPacket:
		if c.enabled.Load() {
			return result(StatusCommandDisallowed)
		}
		c.params = *cmd
		return ok()

	case *LESetAdvertisingDataCommandPacket:
		c.data = cmd.Data
		return result(c.update(ctx))

	case *LESetScanResponseDataCommandPacket:
		c.scanRsp = cmd.Data
		return result(c.update(ctx))

	case *LESetAdvertisingEnableCommandPacket:
		if !cmd.AdvertisingEnable {
			c.enabled.Store(false)
			return result(statusOf(c.adv.Stop(ctx)))
		}
		cfg, err := c.config()
		if err != nil {
			return result(statusOf(err))
		}
		if err := c.adv.Update(ctx, cfg); err != nil {
			return result(statusOf(err))
		}
		if err := c.adv.Start(ctx); err != nil {
			return result(StatusUnspecifiedError)
		}
		c.enabled.Store(true)
		return ok()

	case *AddDeviceToFilterAcceptListCommandPacket:
		if c.enabled.Load() && c.params.AdvertisingFilterPolicy != 0 {
			return result(StatusCommandDisallowed)
		}
		if len(c.acceptList) == FilterAcceptListSize {
			return result(StatusMemoryCapacityExceeded)
		}
		c.acceptList = append(c.acceptList, cmd.Address.Address(cmd.AddressType.kind()))
		return ok()
	}

	switch cmd.Opcode() {
	case OpcodeReset:
		if err := c.adv.Stop(ctx); err != nil {
			return result(StatusUnspecifiedError)
		}
		c.reset()
		return ok()

	case OpcodeReadBDAddr:
		b := c.public.Bytes()
		return ok(b[:]...)

	case OpcodeLEReadBufferSize:
		ret := ok(0, 0, aclDataPackets)
		binary.LittleEndian.PutUint16(ret[1:], aclDataPacketLength)
		return ret

	case OpcodeLEReadSupportedStates:
		ret := ok(make([]byte, 8)...)
		binary.LittleEndian.PutUint64(ret[1:], uint64(SupportedStates))
		return ret

	case OpcodeReadFilterAcceptListSize:
		return ok(FilterAcceptListSize)

	case OpcodeClearFilterAcceptList:
		if c.enabled.Load() && c.params.AdvertisingFilterPolicy != 0 {
			return result(StatusCommandDisallowed)
		}
		c.acceptList = nil
		return ok()
	}

	c.logger.Info("unknown command", zap.Stringer("opcode", cmd.Opcode()))
	return result(StatusUnknownCommand)
}

// update hands new data to a running advertiser, which applies it at the
// next event.
func (c *Controller) update(ctx context.Context) Status {
	if !c.enabled.Load() {
		return StatusSuccess
	}
	cfg, err := c.config()
	if err != nil {
		return statusOf(err)
	}
	return statusOf(c.adv.Update(ctx, cfg))
}

func (c *Controller) ownRandom() bool {
	return c.params.OwnAddressType == OwnAddressTypeRandomDeviceAddress ||
		c.params.OwnAddressType == OwnAddressTypeControllerGeneratedOrRandom
}

func (c *Controller) config() (adv.Config, error) {
	cfg := adv.Config{
		Data:        c.data,
		ScanRspData: c.scanRsp,
		AcceptList:  append([]address.Address(nil), c.acceptList...),
		Address:     c.public,
	}
	c.params.config(&cfg)
	if c.ownRandom() {
		if c.random == nil {
			return adv.Config{}, errors.Wrap(llerr.ErrInvalidAddress, "random address not set")
		}
		cfg.Address = *c.random
	}
	return cfg, cfg.Validate()
}

// connected runs on the advertiser goroutine once a CONNECT_IND has been
// accepted. Advertising is over by then.
func (c *Controller) connected(ind pdu.ConnectInd) {
	c.enabled.Store(false)
	if EventMask(c.eventMask.Load())&EventMaskLEMetaEvent == 0 ||
		LEEventMask(c.leEventMask.Load())&LEEventMaskConnectionCompleteEvent == 0 {
		return
	}
	err := c.conn.WritePacket(&LEConnectionCompleteEventPacket{
		Status:               StatusSuccess,
		ConnectionHandle:     connectionHandle,
		Role:                 RolePeripheral,
		PeerAddressType:      peerAddressType(ind.InitA.Kind()),
		PeerAddress:          NewBDAddr(ind.InitA),
		ConnectionInterval:   ind.LLData.Interval,
		PeripheralLatency:    ind.LLData.Latency,
		SupervisionTimeout:   ind.LLData.Timeout,
		CentralClockAccuracy: CentralClockAccuracy(ind.LLData.SCA),
	})
	if err != nil {
		c.logger.Error("failed to report connection", zap.Error(err))
	}
}
