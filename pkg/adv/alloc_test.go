package adv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muxable/linklayer/pkg/pdu"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/timing"
)

// stepRadio remembers the one outstanding request and completes it when the
// test says so. It never allocates, so any allocation measured while
// stepping belongs to the advertiser.
type stepRadio struct {
	ticket radio.Ticket
	kind   radio.Kind
	at     timing.Instant
	rx     []byte
}

func (r *stepRadio) Configure(radio.Config) error { return nil }
func (r *stepRadio) SetChannel(radio.Channel) error { return nil }
func (r *stepRadio) Now() timing.Instant { return r.at }
func (r *stepRadio) Completions() <-chan radio.Completion { return nil }

func (r *stepRadio) next(k radio.Kind) (radio.Ticket, error) {
	r.ticket++
	r.kind = k
	return r.ticket, nil
}

func (r *stepRadio) Transmit([]byte) (radio.Ticket, error) { return r.next(radio.TxDone) }

func (r *stepRadio) Receive(buf []byte, deadline timing.Instant) (radio.Ticket, error) {
	r.rx = buf
	return r.next(radio.RxTimeout)
}

func (r *stepRadio) WakeAt(at timing.Instant) (radio.Ticket, error) {
	r.at = at
	return r.next(radio.Wake)
}

// step completes the outstanding request. A listen window receives reply,
// or times out when reply is nil.
func (r *stepRadio) step(a *Advertiser, reply []byte) {
	c := radio.Completion{Ticket: r.ticket, Kind: r.kind, At: r.at}
	if r.kind == radio.RxTimeout && reply != nil {
		c.Kind = radio.RxDone
		c.N = copy(r.rx, reply)
	}
	a.complete(c)
}

// event runs one advertising event from its wake-up to the next wake-up.
func (r *stepRadio) event(a *Advertiser, reply []byte) {
	r.step(a, nil)
	for a.State() != Scheduled {
		r.step(a, reply)
	}
}

func TestAdvertisingEventDoesNotAllocate(t *testing.T) {
	req, err := pdu.Encode(&pdu.ScanReq{ScanA: scanner, AdvA: advA})
	require.NoError(t, err)
	foreign, err := pdu.Encode(&pdu.ScanReq{ScanA: scanner, AdvA: other})
	require.NoError(t, err)

	tests := []struct {
		name  string
		typ   pdu.Type
		reply []byte
		check func(t *testing.T, s Stats)
	}{
		{"non-connectable", pdu.TypeAdvNonconnInd, nil, nil},
		{"listen timeout", pdu.TypeAdvInd, nil, nil},
		{"scan request", pdu.TypeAdvInd, req, func(t *testing.T, s Stats) {
			assert.NotZero(t, s.ScanResponses)
		}},
		{"malformed reply", pdu.TypeAdvInd, []byte{0x03, 0x20, 1, 2, 3}, func(t *testing.T, s Stats) {
			assert.NotZero(t, s.Dropped)
		}},
		{"foreign scan request", pdu.TypeAdvScanInd, foreign, func(t *testing.T, s Stats) {
			assert.NotZero(t, s.Ignored)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &stepRadio{}
			a, err := New(r, Config{
				IntervalMin: 160,
				Type:        tt.typ,
				Address:     advA,
				Data:        []byte{0x02, 0x01, 0x06},
				ScanRspData: []byte{0x02, 0x0A, 0x00},
			}, WithLogger(zap.NewNop()), WithJitter(JitterFunc(func() time.Duration { return 0 })))
			require.NoError(t, err)

			a.handle(command{kind: commandStart, done: make(chan error, 1)})
			require.Equal(t, Scheduled, a.State())

			allocs := testing.AllocsPerRun(50, func() {
				r.event(a, tt.reply)
			})
			assert.Zero(t, allocs)
			assert.Equal(t, Scheduled, a.State())
			if tt.check != nil {
				tt.check(t, a.Stats())
			}
		})
	}
}
