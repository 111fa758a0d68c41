package adv

import (
	"math/rand"
	"time"

	"github.com/muxable/linklayer/pkg/timing"
)

// Jitter supplies advDelay, drawn once per advertising event. Values outside
// [0, timing.MaxAdvDelay] are clamped.
type Jitter interface {
	NextJitter() time.Duration
}

type JitterFunc func() time.Duration

func (f JitterFunc) NextJitter() time.Duration { return f() }

// RandJitter draws advDelay uniformly with microsecond resolution.
type RandJitter struct {
	rng *rand.Rand
}

func NewRandJitter(seed int64) *RandJitter {
	return &RandJitter{rng: rand.New(rand.NewSource(seed))}
}

func (j *RandJitter) NextJitter() time.Duration {
	n := int64(timing.MaxAdvDelay / time.Microsecond)
	return time.Duration(j.rng.Int63n(n+1)) * time.Microsecond
}

func clampJitter(d time.Duration) time.Duration {
	switch {
	case d < 0:
		return 0
	case d > timing.MaxAdvDelay:
		return timing.MaxAdvDelay
	}
	return d
}
