package scan

import "go.uber.org/atomic"

type stats struct {
	reports       atomic.Uint64
	duplicates    atomic.Uint64
	scanRequests  atomic.Uint64
	scanResponses atomic.Uint64
	dropped       atomic.Uint64
	ignored       atomic.Uint64
	radioFailures atomic.Uint64
}

type Stats struct {
	Reports       uint64
	Duplicates    uint64
	ScanRequests  uint64
	ScanResponses uint64
	Dropped       uint64
	Ignored       uint64
	RadioFailures uint64
}

func (s *Scanner) Stats() Stats {
	return Stats{
		Reports:       s.stats.reports.Load(),
		Duplicates:    s.stats.duplicates.Load(),
		ScanRequests:  s.stats.scanRequests.Load(),
		ScanResponses: s.stats.scanResponses.Load(),
		Dropped:       s.stats.dropped.Load(),
		Ignored:       s.stats.ignored.Load(),
		RadioFailures: s.stats.radioFailures.Load(),
	}
}
