package main

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/adv"
	"github.com/muxable/linklayer/pkg/gap"
	"github.com/muxable/linklayer/pkg/pdu"
	"github.com/muxable/linklayer/pkg/radio/sim"
	"github.com/muxable/linklayer/pkg/timing"
)

// ownAddress parses --addr, or makes up a static random address when it is
// "static".
func ownAddress(c *cli.Context) (address.Address, error) {
	if c.String("addr") == "static" {
		return address.NewStaticRandom(rand.Reader)
	}
	return address.Parse(c.String("addr"), kind(c))
}

func advConfig(c *cli.Context) (adv.Config, error) {
	t, err := parseType(c.String("type"))
	if err != nil {
		return adv.Config{}, err
	}
	a, err := ownAddress(c)
	if err != nil {
		return adv.Config{}, err
	}
	interval, err := timing.AdvInterval(c.Duration("interval"))
	if err != nil {
		return adv.Config{}, err
	}
	cfg := adv.Config{
		IntervalMin: interval,
		IntervalMax: interval,
		Type:        t,
		Address:     a,
	}
	if t == pdu.TypeAdvDirectInd {
		if cfg.Peer, err = peer(c, "target"); err != nil {
			return adv.Config{}, err
		}
		return cfg, nil
	}
	cfg.Data, err = gap.Encode(gap.LegacyBudget,
		gap.FlagsLEGeneralDiscoverableMode|gap.FlagsBREDRNotSupported,
		gap.CompleteLocalName(c.String("name")))
	if err != nil {
		return adv.Config{}, err
	}
	if t.Scannable() {
		cfg.ScanRspData, err = gap.Encode(gap.LegacyBudget, gap.TxPowerLevel(0))
	}
	return cfg, err
}

func cmdAdvertise(c *cli.Context) error {
	cfg, err := advConfig(c)
	if err != nil {
		return err
	}

	opts := []sim.Option{sim.WithHorizon(c.Duration("duration"))}
	if c.Bool("realtime") {
		opts = append(opts, sim.WithRealtime())
	}
	r := sim.New(opts...)

	logger := zap.L().Named("advertise")
	a, err := adv.New(r, cfg, adv.WithEventObserver(func(e adv.Event) {
		logger.Debug("advertising event",
			zap.Duration("start", e.Start.Duration()),
			zap.Stringer("channel", e.Channel),
			zap.Bool("skipped", e.Skipped),
			zap.Uint8("outcome", uint8(e.Outcome)))
	}))
	if err != nil {
		return errors.Wrap(err, "can't create advertiser")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = withSigHandler(ctx, cancel)

	go r.Run(ctx)
	go a.Run(ctx)
	logger.Info("advertising",
		zap.Stringer("type", cfg.Type),
		zap.Stringer("address", cfg.Address),
		zap.Duration("interval", cfg.IntervalMin.Duration()))
	if err := a.Start(ctx); err != nil {
		return chkErr(err)
	}

	select {
	case <-r.Done():
	case <-ctx.Done():
	}

	s := a.Stats()
	fmt.Printf("events:          %d (%d skipped)\n", s.Events, s.Skipped)
	fmt.Printf("transmissions:   %d\n", len(r.Transmissions()))
	fmt.Printf("radio failures:  %d\n", s.RadioFailures)
	return chkErr(ctx.Err())
}
