package main

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/gap"
	"github.com/muxable/linklayer/pkg/pdu"
)

// advData builds AD structures from --flags and --name, or takes --data
// verbatim when it is set.
func advData(c *cli.Context) ([]byte, error) {
	if s := c.String("data"); s != "" {
		return hex.DecodeString(s)
	}
	var data []gap.DataType
	if f := c.Int("flags"); f != 0 {
		data = append(data, gap.Flags(f))
	}
	if n := c.String("name"); n != "" {
		data = append(data, gap.CompleteLocalName(n))
	}
	return gap.Encode(gap.LegacyBudget, data...)
}

func peer(c *cli.Context, name string) (address.Address, error) {
	s := c.String(name)
	if s == "" {
		return address.Address{}, errors.Errorf("--%s is required", name)
	}
	return address.Parse(s, kind(c))
}

func buildPDU(c *cli.Context) (pdu.PDU, error) {
	t, err := parseType(c.String("type"))
	if err != nil {
		return nil, err
	}
	advA, err := address.Parse(c.String("addr"), kind(c))
	if err != nil {
		return nil, err
	}
	switch t {
	case pdu.TypeAdvInd, pdu.TypeAdvNonconnInd, pdu.TypeAdvScanInd, pdu.TypeScanRsp:
		d, err := advData(c)
		if err != nil {
			return nil, err
		}
		switch t {
		case pdu.TypeAdvInd:
			return &pdu.AdvInd{AdvA: advA, AdvData: d, ChSel: c.Bool("chsel")}, nil
		case pdu.TypeAdvNonconnInd:
			return &pdu.AdvNonconnInd{AdvA: advA, AdvData: d}, nil
		case pdu.TypeAdvScanInd:
			return &pdu.AdvScanInd{AdvA: advA, AdvData: d}, nil
		}
		return &pdu.ScanRsp{AdvA: advA, ScanRspData: d}, nil
	case pdu.TypeAdvDirectInd:
		target, err := peer(c, "target")
		if err != nil {
			return nil, err
		}
		return &pdu.AdvDirectInd{AdvA: advA, TargetA: target, ChSel: c.Bool("chsel")}, nil
	case pdu.TypeScanReq:
		scanA, err := peer(c, "scanner")
		if err != nil {
			return nil, err
		}
		return &pdu.ScanReq{ScanA: scanA, AdvA: advA}, nil
	}
	return nil, errors.Errorf("can't encode %s", t)
}

func cmdEncode(c *cli.Context) error {
	p, err := buildPDU(c)
	if err != nil {
		return err
	}
	b, err := pdu.Encode(p)
	if err != nil {
		return errors.Wrapf(err, "can't encode %s", p.Type())
	}
	fmt.Println(hex.EncodeToString(b))
	return nil
}
