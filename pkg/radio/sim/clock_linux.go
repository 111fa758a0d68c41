//go:build linux

package sim

import (
	"context"
	"time"

	"golang.org/x/sys/unix"
)

type pacer struct {
	start time.Duration
}

func monotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic(err)
	}
	return time.Duration(ts.Nano())
}

func newPacer() pacer {
	return pacer{start: monotonic()}
}

// sleepUntil blocks until offset has elapsed since the pacer was created.
func (p pacer) sleepUntil(ctx context.Context, offset time.Duration) error {
	d := p.start + offset - monotonic()
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
