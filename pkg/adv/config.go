package adv

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/gap"
	"github.com/muxable/linklayer/pkg/llerr"
	"github.com/muxable/linklayer/pkg/pdu"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/timing"
)

type FilterPolicy uint8

const (
	FilterPolicyNone FilterPolicy = iota
	FilterPolicyScan
	FilterPolicyConnect
	FilterPolicyScanAndConnect
)

func (p FilterPolicy) filtersScan() bool {
	return p == FilterPolicyScan || p == FilterPolicyScanAndConnect
}

func (p FilterPolicy) filtersConnect() bool {
	return p == FilterPolicyConnect || p == FilterPolicyScanAndConnect
}

// Config is an advertising set. Peer is the TargetA of directed advertising.
type Config struct {
	IntervalMin  timing.Tick
	IntervalMax  timing.Tick
	Type         pdu.Type
	Address      address.Address
	Data         []byte
	ScanRspData  []byte
	ChannelMap   radio.ChannelMap
	FilterPolicy FilterPolicy
	AcceptList   []address.Address
	Peer         address.Address
}

func (c Config) withDefaults() Config {
	if c.IntervalMin == 0 {
		c.IntervalMin = timing.DefaultAdvInterval
	}
	if c.IntervalMax == 0 {
		c.IntervalMax = c.IntervalMin
	}
	if c.ChannelMap == 0 {
		c.ChannelMap = radio.ChannelMapAll
	}
	return c
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var err error
	if e := c.IntervalMin.Within(timing.MinAdvInterval, timing.MaxAdvInterval); e != nil {
		err = multierr.Append(err, errors.Wrap(e, "interval min"))
	}
	if e := c.IntervalMax.Within(timing.MinAdvInterval, timing.MaxAdvInterval); e != nil {
		err = multierr.Append(err, errors.Wrap(e, "interval max"))
	}
	if c.IntervalMin > c.IntervalMax {
		err = multierr.Append(err, errors.Wrap(llerr.ErrOutOfRange, "interval min above interval max"))
	}
	switch c.Type {
	case pdu.TypeAdvInd, pdu.TypeAdvDirectInd, pdu.TypeAdvNonconnInd, pdu.TypeAdvScanInd:
	default:
		err = multierr.Append(err, errors.Wrapf(llerr.ErrOutOfRange, "%s is not an advertising pdu", c.Type))
	}
	if len(c.Data) > pdu.MaxAdvData {
		err = multierr.Append(err, errors.Wrapf(llerr.ErrPayloadTooLarge, "advertising data of %d bytes", len(c.Data)))
	}
	if len(c.ScanRspData) > pdu.MaxAdvData {
		err = multierr.Append(err, errors.Wrapf(llerr.ErrPayloadTooLarge, "scan response data of %d bytes", len(c.ScanRspData)))
	}
	if e := c.ChannelMap.Validate(); e != nil {
		err = multierr.Append(err, e)
	}
	if c.FilterPolicy > FilterPolicyScanAndConnect {
		err = multierr.Append(err, errors.Wrapf(llerr.ErrOutOfRange, "filter policy %d", c.FilterPolicy))
	}
	if e := validAddress(c.Address); e != nil {
		err = multierr.Append(err, errors.Wrap(e, "advertiser address"))
	}
	if c.Type == pdu.TypeAdvDirectInd {
		if e := validAddress(c.Peer); e != nil {
			err = multierr.Append(err, errors.Wrap(e, "peer address"))
		}
	}
	return err
}

func validAddress(a address.Address) error {
	_, err := address.New(a.Value(), a.Kind())
	return err
}

// Broadcast configures a non-connectable, non-scannable advertiser, the GAP
// broadcaster role.
func Broadcast(interval timing.Tick, addr address.Address, data ...gap.DataType) (Config, error) {
	b, err := gap.Encode(gap.LegacyBudget, data...)
	if err != nil {
		return Config{}, err
	}
	c := Config{
		IntervalMin: interval,
		IntervalMax: interval,
		Type:        pdu.TypeAdvNonconnInd,
		Address:     addr,
		Data:        b,
	}.withDefaults()
	return c, c.Validate()
}

func (c Config) advertisingPDU() pdu.PDU {
	switch c.Type {
	case pdu.TypeAdvInd:
		return &pdu.AdvInd{AdvA: c.Address, AdvData: c.Data}
	case pdu.TypeAdvDirectInd:
		return &pdu.AdvDirectInd{AdvA: c.Address, TargetA: c.Peer}
	case pdu.TypeAdvScanInd:
		return &pdu.AdvScanInd{AdvA: c.Address, AdvData: c.Data}
	}
	return &pdu.AdvNonconnInd{AdvA: c.Address, AdvData: c.Data}
}

func (c Config) accepts(a address.Address) bool {
	for _, b := range c.AcceptList {
		if a.Equal(b) {
			return true
		}
	}
	return false
}

// scanAllowed applies the filter policy to a SCAN_REQ from scanner.
func (c Config) scanAllowed(scanner address.Address) bool {
	return !c.FilterPolicy.filtersScan() || c.accepts(scanner)
}

// connectAllowed applies the filter policy, or the target address when
// directed, to a CONNECT_IND from initiator.
func (c Config) connectAllowed(initiator address.Address) bool {
	if c.Type == pdu.TypeAdvDirectInd {
		return initiator.Equal(c.Peer)
	}
	return !c.FilterPolicy.filtersConnect() || c.accepts(initiator)
}
