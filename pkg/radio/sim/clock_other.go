//go:build !linux

package sim

import (
	"context"
	"time"
)

type pacer struct {
	start time.Time
}

func newPacer() pacer {
	return pacer{start: time.Now()}
}

func (p pacer) sleepUntil(ctx context.Context, offset time.Duration) error {
	d := time.Until(p.start.Add(offset))
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
