package adv

import "go.uber.org/atomic"

type stats struct {
	events          atomic.Uint64
	skipped         atomic.Uint64
	radioFailures   atomic.Uint64
	scanRequests    atomic.Uint64
	scanResponses   atomic.Uint64
	connectRequests atomic.Uint64
	dropped         atomic.Uint64
	ignored         atomic.Uint64
}

// Stats counts what happened since the advertiser was created. Dropped PDUs
// failed to decode; ignored ones decoded but were not addressed to us or
// were refused by the filter policy.
type Stats struct {
	Events          uint64
	Skipped         uint64
	RadioFailures   uint64
	ScanRequests    uint64
	ScanResponses   uint64
	ConnectRequests uint64
	Dropped         uint64
	Ignored         uint64
}

// Stats is safe to call from any goroutine.
func (a *Advertiser) Stats() Stats {
	return Stats{
		Events:          a.stats.events.Load(),
		Skipped:         a.stats.skipped.Load(),
		RadioFailures:   a.stats.radioFailures.Load(),
		ScanRequests:    a.stats.scanRequests.Load(),
		ScanResponses:   a.stats.scanResponses.Load(),
		ConnectRequests: a.stats.connectRequests.Load(),
		Dropped:         a.stats.dropped.Load(),
		Ignored:         a.stats.ignored.Load(),
	}
}
