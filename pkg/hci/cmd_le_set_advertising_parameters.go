package hci

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/muxable/linklayer/pkg/adv"
	"github.com/muxable/linklayer/pkg/pdu"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/timing"
)

type AdvertisingType uint8

const (
	AdvertisingTypeConnectableAndScannableUndirectedAdvertising AdvertisingType = 0x00
	AdvertisingTypeConnectableHighDutyCycleDirectedAdvertising  AdvertisingType = 0x01
	AdvertisingTypeScannableUndirectedAdvertising               AdvertisingType = 0x02
	AdvertisingTypeNonConnectableUndirectedAdvertising          AdvertisingType = 0x03
	AdvertisingTypeConnectableLowDutyCycleDirectedAdvertising   AdvertisingType = 0x04
)

// PDUType is the advertising PDU sent for t. Both directed types use
// ADV_DIRECT_IND at the configured interval.
func (t AdvertisingType) PDUType() pdu.Type {
	switch t {
	case AdvertisingTypeConnectableHighDutyCycleDirectedAdvertising, AdvertisingTypeConnectableLowDutyCycleDirectedAdvertising:
		return pdu.TypeAdvDirectInd
	case AdvertisingTypeScannableUndirectedAdvertising:
		return pdu.TypeAdvScanInd
	case AdvertisingTypeNonConnectableUndirectedAdvertising:
		return pdu.TypeAdvNonconnInd
	}
	return pdu.TypeAdvInd
}

func (t AdvertisingType) directed() bool {
	return t == AdvertisingTypeConnectableHighDutyCycleDirectedAdvertising || t == AdvertisingTypeConnectableLowDutyCycleDirectedAdvertising
}

type AdvertisingFilterPolicy uint8

const (
	AdvertisingFilterPolicyProcessScanAndConnectionRequestsFromAllDevices                       AdvertisingFilterPolicy = 0x00
	AdvertisingFilterPolicyProcessConnectionRequestsFromAllDevicesAndScanRequestsFromFilterList AdvertisingFilterPolicy = 0x01
	AdvertisingFilterPolicyProcessScanRequestsFromAllDevicesAndConnectionRequestsFromFilterList AdvertisingFilterPolicy = 0x02
	AdvertisingFilterPolicyProcessScanAndConnectionRequestsFromFilterList                       AdvertisingFilterPolicy = 0x03
)

type LESetAdvertisingParametersCommandPacket struct {
	AdvertisingIntervalMin  uint16
	AdvertisingIntervalMax  uint16
	AdvertisingType         AdvertisingType
	OwnAddressType          OwnAddressType
	PeerAddressType         PeerAddressType
	PeerAddress             BDAddr
	AdvertisingChannelMap   radio.ChannelMap
	AdvertisingFilterPolicy AdvertisingFilterPolicy
}

func (p *LESetAdvertisingParametersCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetAdvertisingParameters, 15)
	binary.LittleEndian.PutUint16(buf[4:], p.AdvertisingIntervalMin)
	binary.LittleEndian.PutUint16(buf[6:], p.AdvertisingIntervalMax)
	buf[8] = byte(p.AdvertisingType)
	buf[9] = byte(p.OwnAddressType)
	buf[10] = byte(p.PeerAddressType)
	copy(buf[11:], p.PeerAddress[:])
	buf[17] = byte(p.AdvertisingChannelMap)
	buf[18] = byte(p.AdvertisingFilterPolicy)
	return buf, nil
}

func (p *LESetAdvertisingParametersCommandPacket) Unmarshal(buf []byte) error {
	params, err := command(buf, OpcodeLESetAdvertisingParameters, 15)
	if err != nil {
		return err
	}
	p.AdvertisingIntervalMin = binary.LittleEndian.Uint16(params[0:])
	p.AdvertisingIntervalMax = binary.LittleEndian.Uint16(params[2:])
	p.AdvertisingType = AdvertisingType(params[4])
	p.OwnAddressType = OwnAddressType(params[5])
	p.PeerAddressType = PeerAddressType(params[6])
	copy(p.PeerAddress[:], params[7:13])
	p.AdvertisingChannelMap = radio.ChannelMap(params[13])
	p.AdvertisingFilterPolicy = AdvertisingFilterPolicy(params[14])
	return p.validate()
}

func (p *LESetAdvertisingParametersCommandPacket) validate() error {
	if p.AdvertisingType > AdvertisingTypeConnectableLowDutyCycleDirectedAdvertising {
		return errors.Errorf("advertising type %d", p.AdvertisingType)
	}
	// intervals are ignored for high duty cycle directed advertising
	if p.AdvertisingType != AdvertisingTypeConnectableHighDutyCycleDirectedAdvertising {
		min, max := timing.Tick(p.AdvertisingIntervalMin), timing.Tick(p.AdvertisingIntervalMax)
		if err := min.Within(timing.MinAdvInterval, timing.MaxAdvInterval); err != nil {
			return errors.Wrap(err, "interval min")
		}
		if err := max.Within(timing.MinAdvInterval, timing.MaxAdvInterval); err != nil {
			return errors.Wrap(err, "interval max")
		}
		if min > max {
			return errors.New("interval min above interval max")
		}
	}
	if p.OwnAddressType > OwnAddressTypeControllerGeneratedOrRandom {
		return errors.Errorf("own address type %d", p.OwnAddressType)
	}
	if p.PeerAddressType > PeerAddressTypeRandomDeviceAddress {
		return errors.Errorf("peer address type %d", p.PeerAddressType)
	}
	if err := p.AdvertisingChannelMap.Validate(); err != nil {
		return err
	}
	if p.AdvertisingFilterPolicy > AdvertisingFilterPolicyProcessScanAndConnectionRequestsFromFilterList {
		return errors.Errorf("filter policy %d", p.AdvertisingFilterPolicy)
	}
	return nil
}

func (p *LESetAdvertisingParametersCommandPacket) Opcode() Opcode {
	return OpcodeLESetAdvertisingParameters
}

// config fills in the parameter part of an advertising set.
func (p *LESetAdvertisingParametersCommandPacket) config(c *adv.Config) {
	c.Type = p.AdvertisingType.PDUType()
	c.IntervalMin = timing.Tick(p.AdvertisingIntervalMin)
	c.IntervalMax = timing.Tick(p.AdvertisingIntervalMax)
	if p.AdvertisingType == AdvertisingTypeConnectableHighDutyCycleDirectedAdvertising {
		c.IntervalMin, c.IntervalMax = timing.MinAdvInterval, timing.MinAdvInterval
	}
	c.ChannelMap = p.AdvertisingChannelMap
	c.FilterPolicy = adv.FilterPolicy(p.AdvertisingFilterPolicy)
	c.Peer = p.PeerAddress.Address(p.PeerAddressType.kind())
}

type SetAdvertisingParametersRequest struct {
	AdvertisingIntervalMin  uint16
	AdvertisingIntervalMax  uint16
	AdvertisingType         AdvertisingType
	OwnAddressType          OwnAddressType
	PeerAddressType         PeerAddressType
	PeerAddress             BDAddr
	AdvertisingChannelMap   radio.ChannelMap
	AdvertisingFilterPolicy AdvertisingFilterPolicy
}

func (h *Host) LESetAdvertisingParameters(request *SetAdvertisingParametersRequest) error {
	if request.AdvertisingIntervalMin == 0 {
		request.AdvertisingIntervalMin = uint16(timing.DefaultAdvInterval)
	}
	if request.AdvertisingIntervalMax == 0 {
		request.AdvertisingIntervalMax = uint16(timing.DefaultAdvInterval)
	}
	if request.AdvertisingChannelMap == 0 {
		request.AdvertisingChannelMap = radio.ChannelMapAll
	}
	_, err := h.op(&LESetAdvertisingParametersCommandPacket{
		AdvertisingIntervalMin:  request.AdvertisingIntervalMin,
		AdvertisingIntervalMax:  request.AdvertisingIntervalMax,
		AdvertisingType:         request.AdvertisingType,
		OwnAddressType:          request.OwnAddressType,
		PeerAddressType:         request.PeerAddressType,
		PeerAddress:             request.PeerAddress,
		AdvertisingChannelMap:   request.AdvertisingChannelMap,
		AdvertisingFilterPolicy: request.AdvertisingFilterPolicy,
	})
	return err
}
