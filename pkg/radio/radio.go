// Package radio defines the capability a link layer state machine drives:
// channel selection, asynchronous transmit and receive, timers and a clock.
package radio

import (
	"fmt"

	"github.com/muxable/linklayer/pkg/timing"
)

const (
	// AdvertisingAccessAddress is used by every advertising channel PDU.
	AdvertisingAccessAddress uint32 = 0x8E89BED6

	// AdvertisingCRCInit presets the CRC for advertising channel PDUs.
	AdvertisingCRCInit uint32 = 0x555555

	// CRCPoly is x^24 + x^10 + x^9 + x^6 + x^4 + x^3 + x + 1 without the x^24 term.
	CRCPoly uint32 = 0x00065B
)

type Mode uint8

const (
	ModeBLE1M Mode = iota
	ModeBLE2M
)

type Config struct {
	Mode          Mode
	TxPower       int8
	AccessAddress uint32
	CRCInit       uint32
	CRCPoly       uint32
}

// AdvertisingConfig is the configuration for legacy advertising on the 1M PHY.
func AdvertisingConfig() Config {
	return Config{
		Mode:          ModeBLE1M,
		AccessAddress: AdvertisingAccessAddress,
		CRCInit:       AdvertisingCRCInit,
		CRCPoly:       CRCPoly,
	}
}

// Ticket identifies a request. Every request gets a fresh ticket and
// exactly one completion carrying it.
type Ticket uint32

type Kind uint8

const (
	TxDone Kind = iota
	RxDone
	RxTimeout
	Wake
)

func (k Kind) String() string {
	switch k {
	case TxDone:
		return "TxDone"
	case RxDone:
		return "RxDone"
	case RxTimeout:
		return "RxTimeout"
	case Wake:
		return "Wake"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Completion reports the outcome of a request. At is the end of the
// transmitted or received packet, the receive deadline, or the time the timer
// fired. N is the number of bytes received.
type Completion struct {
	Ticket Ticket
	Kind   Kind
	At     timing.Instant
	N      int
	Err    error
}

// Radio is implemented by radio drivers. Transmit, Receive and WakeAt return
// immediately; the outcome arrives later on Completions. Buffers handed to
// Transmit and Receive belong to the radio until the completion arrives.
type Radio interface {
	Configure(Config) error
	SetChannel(Channel) error
	Transmit(buf []byte) (Ticket, error)
	// Receive listens on the current channel until a packet starts or the
	// deadline passes.
	Receive(buf []byte, deadline timing.Instant) (Ticket, error)
	WakeAt(at timing.Instant) (Ticket, error)
	Now() timing.Instant
	Completions() <-chan Completion
}
