package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Throttle modes.
const (
	ThrottleDelay  = "delay"
	ThrottleBucket = "bucket"
)

// Throttle spaces out model calls. In delay mode every Wait sleeps for the
// full interval; in bucket mode Wait only blocks when calls arrive faster
// than one per interval.
type Throttle struct {
	mode     string
	interval time.Duration
	limiter  *rate.Limiter
}

// NewThrottle creates a Throttle. A zero interval disables throttling.
func NewThrottle(mode string, interval time.Duration) (*Throttle, error) {
	if interval < 0 {
		return nil, eris.Errorf("pipeline: negative throttle interval %s", interval)
	}
	t := &Throttle{mode: mode, interval: interval}
	switch mode {
	case ThrottleDelay, "":
		t.mode = ThrottleDelay
	case ThrottleBucket:
		if interval > 0 {
			t.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	default:
		return nil, eris.Errorf("pipeline: unknown throttle mode %q", mode)
	}
	return t, nil
}

// Mode returns the throttle mode.
func (t *Throttle) Mode() string { return t.mode }

// Wait blocks until the next model call may be made, or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.interval == 0 {
		return nil
	}
	if t.limiter != nil {
		return t.limiter.Wait(ctx)
	}

	timer := time.NewTimer(t.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
