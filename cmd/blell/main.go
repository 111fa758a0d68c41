package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/pdu"
)

var undoLogger = func() {}

func main() {
	app := cli.NewApp()

	app.Name = "blell"
	app.Usage = "Encode, decode and run BLE link layer advertising"
	app.Version = "0.1.0"
	app.Action = cli.ShowAppHelp
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "debug", Usage: "log radio and codec activity"},
	}

	app.Commands = []cli.Command{
		{
			Name:    "encode",
			Aliases: []string{"e"},
			Usage:   "Encode an advertising channel PDU and print it as hex",
			Action:  cmdEncode,
			Flags: []cli.Flag{
				flgType,
				flgAddr,
				flgRandom,
				flgName,
				cli.StringFlag{Name: "target", Usage: "TargetA of ADV_DIRECT_IND"},
				cli.StringFlag{Name: "scanner", Usage: "ScanA of SCAN_REQ"},
				cli.IntFlag{Name: "flags", Value: 0x06, Usage: "AD flags, 0 to leave out"},
				cli.StringFlag{Name: "data", Usage: "raw advertising data as hex, replaces --name and --flags"},
				cli.BoolFlag{Name: "chsel", Usage: "set the ChSel header bit"},
			},
		},
		{
			Name:      "decode",
			Aliases:   []string{"d"},
			Usage:     "Decode a hex encoded PDU",
			ArgsUsage: "<hex>",
			Action:    cmdDecode,
		},
		{
			Name:    "advertise",
			Aliases: []string{"a"},
			Usage:   "Run the advertiser on a simulated radio",
			Action:  cmdAdvertise,
			Flags: []cli.Flag{
				flgType,
				flgAddr,
				flgRandom,
				flgName,
				flgDuration,
				cli.StringFlag{Name: "target", Usage: "TargetA of ADV_DIRECT_IND"},
				cli.DurationFlag{Name: "interval, i", Value: 100 * time.Millisecond, Usage: "advertising interval"},
				cli.BoolFlag{Name: "realtime", Usage: "pace the simulation against the wall clock"},
			},
		},
		{
			Name:    "scan",
			Aliases: []string{"s"},
			Usage:   "Scan the air of a simulated advertiser",
			Action:  cmdScan,
			Flags: []cli.Flag{
				flgName,
				flgDuration,
				cli.BoolFlag{Name: "active", Usage: "send scan requests"},
				cli.BoolFlag{Name: "dup", Usage: "filter duplicate reports"},
				cli.DurationFlag{Name: "interval, i", Value: 10 * time.Millisecond, Usage: "scan interval"},
				cli.DurationFlag{Name: "window, w", Usage: "scan window, the whole interval when unset"},
			},
		},
		{
			Name:   "controller",
			Usage:  "Serve HCI on /dev/vhci with a simulated radio behind it",
			Action: cmdController,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "addr, a", Value: "00:1A:7D:DA:71:13", Usage: "public device address"},
				cli.BoolTFlag{Name: "realtime", Usage: "pace the simulated radio against the wall clock"},
			},
		},
	}

	app.Before = setup
	app.After = func(c *cli.Context) error {
		zap.L().Sync()
		undoLogger()
		return nil
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	cfg := zap.NewDevelopmentConfig()
	if !c.Bool("debug") {
		cfg.Level.SetLevel(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return errors.Wrap(err, "can't build logger")
	}
	undoLogger = zap.ReplaceGlobals(logger)
	return nil
}

func withSigHandler(ctx context.Context, cancel context.CancelFunc) context.Context {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
		cancel()
	}()
	return ctx
}

func chkErr(err error) error {
	switch errors.Cause(err) {
	case context.DeadlineExceeded:
		return nil
	case context.Canceled:
		fmt.Printf("\n(Canceled)\n")
		return nil
	}
	return err
}

func kind(c *cli.Context) address.Kind {
	if c.BoolT("random") {
		return address.Random
	}
	return address.Public
}

func parseType(s string) (pdu.Type, error) {
	for t := pdu.TypeAdvInd; t <= pdu.TypeAdvExtInd; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown pdu type %q", s)
}
