package hci

import "github.com/muxable/linklayer/pkg/address"

type OwnAddressType uint8

const (
	OwnAddressTypePublicDeviceAddress         OwnAddressType = 0x00
	OwnAddressTypeRandomDeviceAddress         OwnAddressType = 0x01
	OwnAddressTypeControllerGeneratedOrPublic OwnAddressType = 0x02
	OwnAddressTypeControllerGeneratedOrRandom OwnAddressType = 0x03
)

type PeerAddressType uint8

const (
	PeerAddressTypePublicDeviceAddress PeerAddressType = 0x00
	PeerAddressTypeRandomDeviceAddress PeerAddressType = 0x01
)

func (t PeerAddressType) kind() address.Kind {
	if t == PeerAddressTypeRandomDeviceAddress {
		return address.Random
	}
	return address.Public
}

func peerAddressType(k address.Kind) PeerAddressType {
	if k == address.Random {
		return PeerAddressTypeRandomDeviceAddress
	}
	return PeerAddressTypePublicDeviceAddress
}

// BDAddr is a device address in HCI byte order, least significant octet
// first.
type BDAddr [6]byte

func NewBDAddr(a address.Address) BDAddr {
	return BDAddr(a.Bytes())
}

func (b BDAddr) Address(k address.Kind) address.Address {
	return address.FromBytes(b, k)
}

func (b BDAddr) String() string {
	return b.Address(address.Public).String()
}
