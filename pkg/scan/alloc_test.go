package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muxable/linklayer/pkg/pdu"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/timing"
)

// stepRadio completes the one outstanding request when told to and never
// allocates. Time stands still, so the scan window never closes.
type stepRadio struct {
	ticket radio.Ticket
	kind   radio.Kind
	rx     []byte
}

func (r *stepRadio) Configure(radio.Config) error { return nil }
func (r *stepRadio) SetChannel(radio.Channel) error { return nil }
func (r *stepRadio) Now() timing.Instant { return 0 }
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

func (r *stepRadio) WakeAt(timing.Instant) (radio.Ticket, error) { return r.next(radio.Wake) }

// exchange delivers adv to the listening scanner and, for an active scanner,
// rsp as the scan response, timing out when rsp is nil. It returns once the
// scanner is listening again.
func (r *stepRadio) exchange(s *Scanner, adv, rsp []byte) {
	for {
		c := radio.Completion{Ticket: r.ticket, Kind: r.kind}
		var reply []byte
		switch s.State() {
		case Listening:
			reply = adv
		case AwaitingResponse:
			reply = rsp
		}
		if r.kind == radio.RxTimeout && reply != nil {
			c.Kind = radio.RxDone
			c.N = copy(r.rx, reply)
		}
		s.complete(c)
		if s.State() == Listening {
			return
		}
	}
}

func TestScanDoesNotAllocate(t *testing.T) {
	scannable, err := pdu.Encode(&pdu.AdvScanInd{AdvA: advA, AdvData: flags})
	require.NoError(t, err)
	rsp, err := pdu.Encode(&pdu.ScanRsp{AdvA: advA, ScanRspData: flags})
	require.NoError(t, err)

	tests := []struct {
		name string
		typ  Type
		adv  []byte
		rsp  []byte
	}{
		{"passive report", Passive, scannable, nil},
		{"malformed", Passive, []byte{0x02, 0x30, 1, 2}, nil},
		{"no scan response", Active, scannable, nil},
		{"scan response", Active, scannable, rsp},
		{"malformed scan response", Active, scannable, []byte{0x04, 0x02, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &stepRadio{}
			s, err := New(r, Config{Type: tt.typ, Address: scanner}, WithLogger(zap.NewNop()))
			require.NoError(t, err)
			s.handle(command{kind: commandStart, done: make(chan error, 1)})
			require.Equal(t, Listening, s.State())

			allocs := testing.AllocsPerRun(50, func() {
				r.exchange(s, tt.adv, tt.rsp)
			})
			assert.Zero(t, allocs)
			assert.NotZero(t, s.Stats().Reports+s.Stats().Dropped)
		})
	}
}
