package main

import (
	"time"

	"github.com/urfave/cli"
)

var (
	flgType     = cli.StringFlag{Name: "type, t", Value: "ADV_IND", Usage: "PDU type, e.g. ADV_NONCONN_IND"}
	flgAddr     = cli.StringFlag{Name: "addr, a", Value: "C0:FF:EE:C0:FF:EE", Usage: "advertiser address"}
	flgRandom   = cli.BoolTFlag{Name: "random, r", Usage: "addresses are random device addresses"}
	flgName     = cli.StringFlag{Name: "name, n", Value: "Gopher", Usage: "complete local name"}
	flgDuration = cli.DurationFlag{Name: "duration, d", Value: time.Second, Usage: "simulated time to run for"}
)
