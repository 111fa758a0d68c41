package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/hci"
	"github.com/muxable/linklayer/pkg/radio/sim"
)

func cmdController(c *cli.Context) error {
	public, err := address.Parse(c.String("addr"), address.Public)
	if err != nil {
		return err
	}

	v, err := hci.OpenVHCI()
	if err != nil {
		return err
	}
	defer v.Close()

	var opts []sim.Option
	if c.BoolT("realtime") {
		opts = append(opts, sim.WithRealtime())
	}
	r := sim.New(opts...)
	ctrl, err := hci.NewController(hci.NewConn(v), r, public)
	if err != nil {
		return errors.Wrap(err, "can't create controller")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = withSigHandler(ctx, cancel)

	go r.Run(ctx)
	zap.L().Info("serving HCI", zap.Uint16("index", v.Index()), zap.Stringer("address", public))
	return chkErr(ctrl.Serve(ctx))
}
