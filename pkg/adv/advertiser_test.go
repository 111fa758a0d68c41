package adv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/gap"
	"github.com/muxable/linklayer/pkg/llerr"
	"github.com/muxable/linklayer/pkg/pdu"
	"github.com/muxable/linklayer/pkg/radio"
	"github.com/muxable/linklayer/pkg/radio/sim"
	"github.com/muxable/linklayer/pkg/timing"
)

var (
	advA    = address.MustParse("AA:BB:CC:DD:EE:FF", address.Random)
	other   = address.MustParse("C0:00:00:00:00:01", address.Random)
	scanner = address.MustParse("C0:00:00:00:00:02", address.Random)
)

func sequence(ds ...time.Duration) Jitter {
	i := 0
	return JitterFunc(func() time.Duration {
		d := ds[i%len(ds)]
		i++
		return d
	})
}

// runSim starts the radio and the advertiser and begins advertising. The
// returned function stops both and waits for the advertiser loop to exit.
func runSim(t *testing.T, r *sim.Radio, a *Advertiser) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go r.Run(ctx)
	go func() {
		a.Run(ctx)
		close(done)
	}()
	require.NoError(t, a.Start(ctx))
	return func() {
		cancel()
		<-done
	}
}

func waitHorizon(t *testing.T, r *sim.Radio) {
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("horizon not reached")
	}
}

func advertising(frames []sim.Frame) []sim.Frame {
	var out []sim.Frame
	for _, f := range frames {
		if p, err := pdu.Decode(f.Data); err == nil && p.Type() != pdu.TypeScanRsp {
			out = append(out, f)
		}
	}
	return out
}

func TestEventsPerSecond(t *testing.T) {
	tests := []struct {
		name   string
		jitter Jitter
	}{
		{"no delay", sequence(0)},
		{"max delay", sequence(timing.MaxAdvDelay)},
		{"mixed", sequence(0, 3*time.Millisecond, 10*time.Millisecond, 7*time.Millisecond)},
		{"random", NewRandJitter(1)},
		{"clamped", sequence(-time.Millisecond, time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Broadcast(160, advA, gap.Flags(0x06))
			require.NoError(t, err)

			var events []Event
			r := sim.New(sim.WithHorizon(time.Second))
			a, err := New(r, cfg, WithJitter(tt.jitter), WithEventObserver(func(e Event) {
				events = append(events, e)
			}))
			require.NoError(t, err)

			stop := runSim(t, r, a)
			waitHorizon(t, r)
			stop()

			assert.GreaterOrEqual(t, len(events), 9)
			assert.LessOrEqual(t, len(events), 10)
			assert.Equal(t, uint64(len(events)), a.Stats().Events)

			for i := 1; i < len(events); i++ {
				d := events[i].Start.Sub(events[i-1].Start)
				assert.GreaterOrEqual(t, d, 100*time.Millisecond)
				assert.LessOrEqual(t, d, 110*time.Millisecond)
			}

			frames := r.Transmissions()
			require.Len(t, frames, 3*len(events))
			for i, f := range frames {
				assert.Equal(t, radio.Channel37+radio.Channel(i%3), f.Channel)
			}
		})
	}
}

func TestNonconnScenarioOnAir(t *testing.T) {
	cfg, err := Broadcast(160, advA, gap.Flags(0x06))
	require.NoError(t, err)

	r := sim.New(sim.WithHorizon(50 * time.Millisecond))
	a, err := New(r, cfg, WithJitter(sequence(0)))
	require.NoError(t, err)
	stop := runSim(t, r, a)
	waitHorizon(t, r)
	stop()

	frames := r.Transmissions()
	require.Len(t, frames, 3)
	for _, f := range frames {
		assert.Equal(t, []byte{0x42, 0x09, 0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA, 0x02, 0x01, 0x06}, f.Data)
	}
	assert.Equal(t, timing.Airtime(11), frames[1].At.Sub(frames[0].At))
}

func scanRequester(target address.Address) sim.Responder {
	return func(f sim.Frame) []byte {
		p, err := pdu.Decode(f.Data)
		if err != nil || !p.Type().Scannable() {
			return nil
		}
		b, _ := (&pdu.ScanReq{ScanA: scanner, AdvA: target}).Marshal()
		return b
	}
}

func TestScanRequest(t *testing.T) {
	tests := []struct {
		name   string
		target address.Address
		answer bool
	}{
		{"addressed to us", advA, true},
		{"addressed to another advertiser", other, false},
		{"same bits public", address.MustParse("AA:BB:CC:DD:EE:FF", address.Public), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				IntervalMin: 160,
				Type:        pdu.TypeAdvScanInd,
				Address:     advA,
				Data:        []byte{0x02, 0x01, 0x06},
				ScanRspData: []byte{0x03, 0x09, 'h', 'i'},
			}
			var events []Event
			r := sim.New(sim.WithHorizon(250*time.Millisecond), sim.WithResponder(scanRequester(tt.target)))
			a, err := New(r, cfg, WithJitter(sequence(0)), WithEventObserver(func(e Event) {
				events = append(events, e)
			}))
			require.NoError(t, err)
			stop := runSim(t, r, a)
			waitHorizon(t, r)
			stop()

			frames := r.Transmissions()
			require.Len(t, advertising(frames), 9)
			require.Len(t, events, 3)
			st := a.Stats()

			if !tt.answer {
				assert.Len(t, frames, 9)
				assert.Equal(t, uint64(0), st.ScanResponses)
				assert.Equal(t, uint64(9), st.Ignored)
				assert.Equal(t, OutcomeNone, events[0].Outcome)
				return
			}

			require.Len(t, frames, 18)
			for i := 0; i < len(frames); i += 2 {
				adv, rsp := frames[i], frames[i+1]
				assert.Equal(t, adv.Channel, rsp.Channel)
				p, err := pdu.Decode(rsp.Data)
				require.NoError(t, err)
				require.IsType(t, &pdu.ScanRsp{}, p)
				assert.Equal(t, cfg.ScanRspData, p.(*pdu.ScanRsp).ScanRspData)
				assert.True(t, p.(*pdu.ScanRsp).AdvA.Equal(advA))
			}
			assert.Equal(t, uint64(9), st.ScanRequests)
			assert.Equal(t, uint64(9), st.ScanResponses)
			assert.Equal(t, OutcomeScanRequest, events[0].Outcome)
		})
	}
}

func TestConnectRequest(t *testing.T) {
	peer := address.MustParse("C0:00:00:00:00:0F", address.Random)
	tests := []struct {
		name      string
		cfg       Config
		initiator address.Address
		accept    bool
	}{
		{"undirected", Config{Type: pdu.TypeAdvInd, Address: advA}, scanner, true},
		{"nonconnectable", Config{Type: pdu.TypeAdvScanInd, Address: advA}, scanner, false},
		{"directed at peer", Config{Type: pdu.TypeAdvDirectInd, Address: advA, Peer: peer}, peer, true},
		{"directed at someone else", Config{Type: pdu.TypeAdvDirectInd, Address: advA, Peer: peer}, scanner, false},
		{"filtered", Config{Type: pdu.TypeAdvInd, Address: advA, FilterPolicy: FilterPolicyConnect}, scanner, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responder := func(f sim.Frame) []byte {
				if f.Channel != radio.Channel38 {
					return nil
				}
				b, _ := (&pdu.ConnectInd{InitA: tt.initiator, AdvA: advA, LLData: pdu.LLData{Interval: 24}}).Marshal()
				return b
			}
			r := sim.New(sim.WithHorizon(150*time.Millisecond), sim.WithResponder(responder))

			var mu sync.Mutex
			var got []pdu.ConnectInd
			tt.cfg.IntervalMin = 160
			a, err := New(r, tt.cfg, WithJitter(sequence(0)), WithConnectionHandler(func(ind pdu.ConnectInd) {
				mu.Lock()
				defer mu.Unlock()
				got = append(got, ind)
			}))
			require.NoError(t, err)
			stop := runSim(t, r, a)
			defer stop()

			if !tt.accept {
				waitHorizon(t, r)
				assert.Empty(t, got)
				assert.Equal(t, uint64(0), a.Stats().ConnectRequests)
				assert.Len(t, advertising(r.Transmissions()), 6)
				return
			}

			require.Eventually(t, func() bool {
				mu.Lock()
				defer mu.Unlock()
				return len(got) > 0
			}, time.Second, time.Millisecond)
			assert.Equal(t, Idle, a.State())
			mu.Lock()
			defer mu.Unlock()
			require.Len(t, got, 1)
			assert.True(t, got[0].InitA.Equal(tt.initiator))
			assert.Equal(t, uint16(24), got[0].LLData.Interval)
			assert.Equal(t, uint64(1), a.Stats().ConnectRequests)
			assert.Len(t, r.Transmissions(), 2)
		})
	}
}

func TestMalformedResponseDropped(t *testing.T) {
	responder := func(f sim.Frame) []byte {
		// SCAN_REQ header declaring more bytes than follow
		return []byte{0x43, 0x0C, 1, 2, 3}
	}
	r := sim.New(sim.WithHorizon(150*time.Millisecond), sim.WithResponder(responder))
	a, err := New(r, Config{IntervalMin: 160, Type: pdu.TypeAdvInd, Address: advA}, WithJitter(sequence(0)))
	require.NoError(t, err)
	stop := runSim(t, r, a)
	waitHorizon(t, r)
	stop()

	st := a.Stats()
	assert.Equal(t, uint64(2), st.Events)
	assert.Equal(t, uint64(6), st.Dropped)
	assert.Len(t, r.Transmissions(), 6)
}

func TestRadioFailureSkipsEvent(t *testing.T) {
	cfg, err := Broadcast(160, advA, gap.Flags(0x06))
	require.NoError(t, err)

	var events []Event
	r := sim.New(sim.WithHorizon(250 * time.Millisecond))
	r.FailNext(1)
	a, err := New(r, cfg, WithJitter(sequence(0)), WithEventObserver(func(e Event) {
		events = append(events, e)
	}))
	require.NoError(t, err)
	stop := runSim(t, r, a)
	waitHorizon(t, r)
	stop()

	st := a.Stats()
	assert.Equal(t, uint64(1), st.Skipped)
	assert.Equal(t, uint64(1), st.RadioFailures)
	assert.Equal(t, uint64(2), st.Events)
	require.Len(t, events, 3)
	assert.True(t, events[0].Skipped)
	assert.Equal(t, timing.Instant(100000), events[1].Start)
	assert.Len(t, r.Transmissions(), 6)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(sim.New(), Config{IntervalMin: 0x10, Type: pdu.TypeAdvInd, Data: make([]byte, 32)})
	assert.ErrorIs(t, err, llerr.ErrOutOfRange)
	assert.ErrorIs(t, err, llerr.ErrPayloadTooLarge)
}
