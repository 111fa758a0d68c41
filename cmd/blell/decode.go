package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/muxable/linklayer/pkg/gap"
	"github.com/muxable/linklayer/pkg/pdu"
)

func cmdDecode(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected one hex encoded PDU")
	}
	b, err := hex.DecodeString(strings.NewReplacer(" ", "", ":", "").Replace(c.Args().First()))
	if err != nil {
		return errors.Wrap(err, "can't parse hex")
	}
	p, err := pdu.Decode(b)
	if err != nil {
		return err
	}

	fmt.Printf("Header:  %s\n", p.Header())
	var d []byte
	switch p := p.(type) {
	case *pdu.AdvInd:
		fmt.Printf("AdvA:    %s\n", p.AdvA)
		d = p.AdvData
	case *pdu.AdvNonconnInd:
		fmt.Printf("AdvA:    %s\n", p.AdvA)
		d = p.AdvData
	case *pdu.AdvScanInd:
		fmt.Printf("AdvA:    %s\n", p.AdvA)
		d = p.AdvData
	case *pdu.ScanRsp:
		fmt.Printf("AdvA:    %s\n", p.AdvA)
		d = p.ScanRspData
	case *pdu.AdvDirectInd:
		fmt.Printf("AdvA:    %s\n", p.AdvA)
		fmt.Printf("TargetA: %s\n", p.TargetA)
	case *pdu.ScanReq:
		fmt.Printf("ScanA:   %s\n", p.ScanA)
		fmt.Printf("AdvA:    %s\n", p.AdvA)
	case *pdu.ConnectInd:
		fmt.Printf("InitA:   %s\n", p.InitA)
		fmt.Printf("AdvA:    %s\n", p.AdvA)
		fmt.Printf("LLData:  %+v\n", p.LLData)
	}
	if len(d) == 0 {
		return nil
	}

	structures, err := gap.Decode(d)
	for _, s := range structures {
		fmt.Printf("  %s\n", s)
	}
	return errors.Wrap(err, "advertising data")
}
