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
	"github.com/muxable/linklayer/pkg/scan"
	"github.com/muxable/linklayer/pkg/timing"
)

var demoAdvertiser = address.MustParse("C0:FF:EE:C0:FF:EE", address.Random)

// record runs a scannable advertiser for the duration and returns what it
// put on air.
func record(c *cli.Context) ([]sim.Frame, []byte, error) {
	data, err := gap.Encode(gap.LegacyBudget,
		gap.FlagsLEGeneralDiscoverableMode|gap.FlagsBREDRNotSupported,
		gap.CompleteLocalName(c.String("name")))
	if err != nil {
		return nil, nil, err
	}
	rsp, err := gap.Encode(gap.LegacyBudget, gap.TxPowerLevel(0))
	if err != nil {
		return nil, nil, err
	}

	r := sim.New(sim.WithHorizon(c.Duration("duration")))
	a, err := adv.New(r, adv.Config{
		IntervalMin: timing.MinAdvInterval,
		Type:        pdu.TypeAdvScanInd,
		Address:     demoAdvertiser,
		Data:        data,
		ScanRspData: rsp,
	})
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)
	go a.Run(ctx)
	if err := a.Start(ctx); err != nil {
		return nil, nil, err
	}
	<-r.Done()
	return r.Transmissions(), rsp, nil
}

// respond answers SCAN_REQs addressed to the recorded advertiser.
func respond(rsp []byte) sim.Responder {
	return func(f sim.Frame) []byte {
		p, err := pdu.Decode(f.Data)
		if err != nil {
			return nil
		}
		req, ok := p.(*pdu.ScanReq)
		if !ok || !req.AdvA.Equal(demoAdvertiser) {
			return nil
		}
		b, err := pdu.Encode(&pdu.ScanRsp{AdvA: demoAdvertiser, ScanRspData: rsp})
		if err != nil {
			return nil
		}
		return b
	}
}

func scanConfig(c *cli.Context) (scan.Config, error) {
	interval, err := timing.ScanInterval(c.Duration("interval"))
	if err != nil {
		return scan.Config{}, err
	}
	cfg := scan.Config{
		Interval:         interval,
		FilterDuplicates: c.Bool("dup"),
	}
	if w := c.Duration("window"); w != 0 {
		if cfg.Window, err = timing.ScanInterval(w); err != nil {
			return scan.Config{}, err
		}
	}
	if c.Bool("active") {
		cfg.Type = scan.Active
		if cfg.Address, err = address.NewStaticRandom(rand.Reader); err != nil {
			return scan.Config{}, err
		}
	}
	return cfg, nil
}

func cmdScan(c *cli.Context) error {
	cfg, err := scanConfig(c)
	if err != nil {
		return err
	}
	frames, rsp, err := record(c)
	if err != nil {
		return errors.Wrap(err, "can't record advertiser")
	}

	r := sim.New(sim.WithHorizon(c.Duration("duration")), sim.WithResponder(respond(rsp)))
	for _, f := range frames {
		r.Inject(f)
	}

	logger := zap.L().Named("scan")
	s, err := scan.New(r, cfg, scan.WithHandler(func(rep scan.Report) {
		fmt.Printf("%10s %-15s %s %s\n", rep.At.Duration(), rep.Type, rep.Address, rep.Channel)
		structures, err := gap.Decode(rep.Data)
		if err != nil {
			logger.Debug("bad advertising data", zap.Error(err))
		}
		for _, st := range structures {
			fmt.Printf("%10s %s\n", "", st)
		}
	}))
	if err != nil {
		return errors.Wrap(err, "can't create scanner")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = withSigHandler(ctx, cancel)

	go r.Run(ctx)
	go s.Run(ctx)
	logger.Info("scanning", zap.Stringer("type", cfg.Type), zap.Int("frames", len(frames)))
	if err := s.Start(ctx); err != nil {
		return chkErr(err)
	}

	select {
	case <-r.Done():
	case <-ctx.Done():
	}

	st := s.Stats()
	fmt.Printf("reports:         %d (%d duplicates)\n", st.Reports, st.Duplicates)
	fmt.Printf("scan requests:   %d\n", st.ScanRequests)
	fmt.Printf("scan responses:  %d\n", st.ScanResponses)
	return chkErr(ctx.Err())
}
