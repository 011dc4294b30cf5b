// Package backoff provides the single retry/backoff policy shared by the
// REST gateway and the realtime feed. Both layers retry the same way:
// a base delay grown per attempt up to an attempt ceiling.
package backoff

import (
	"context"
	"time"
)

// Growth selects how the delay grows with the attempt number.
type Growth int

const (
	// Fixed keeps the delay constant at Base.
	Fixed Growth = iota
	// Linear grows the delay as Base × attempt.
	Linear
	// Exponential doubles the delay each attempt.
	Exponential
)

// Policy describes a bounded retry schedule. The zero value is unusable;
// construct with the fields set.
type Policy struct {
	Base        time.Duration
	Growth      Growth
	Max         time.Duration // 0 = uncapped
	MaxAttempts int
}

// Delay returns the wait before the given attempt. Attempts are 1-based:
// Delay(1) is the wait before the first retry.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var d time.Duration
	switch p.Growth {
	case Linear:
		d = p.Base * time.Duration(attempt)
	case Exponential:
		d = p.Base
		for i := 1; i < attempt; i++ {
			d *= 2
			if p.Max > 0 && d >= p.Max {
				return p.Max
			}
		}
	default:
		d = p.Base
	}

	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// Exhausted reports whether the attempt number has passed the ceiling.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// Sleep waits for the attempt's delay, returning early with the context
// error if the context is cancelled first.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	return Wait(ctx, p.Delay(attempt))
}

// Wait sleeps for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
