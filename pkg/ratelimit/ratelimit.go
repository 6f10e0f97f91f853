package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter paces operations to a fixed rate with optional jitter. It is safe
// for concurrent use by multiple goroutines.
type Limiter struct {
	ticker   *time.Ticker
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
	ch       <-chan time.Time
}

// NewLimiter creates a limiter ticking at rps requests per second. jitter is
// clamped to [0, 1] and randomizes each wait by up to that fraction of the
// interval. If rps <= 0 the limiter never blocks.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{
			jitter: jitter,
		}
	}

	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	interval := time.Duration(float64(time.Second) / rps)
	ticker := time.NewTicker(interval)

	return &Limiter{
		ticker:   ticker,
		jitter:   jitter,
		interval: interval,
		ch:       ticker.C,
	}
}

// Interval returns the base delay between operations, zero for an unlimited
// limiter.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the next operation may proceed, or until the context is
// canceled. Jitter, if configured, extends the sleep by a random fraction of
// the interval.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ch == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
		if l.jitter > 0 {
			// Random factor in [-1, 1); a negative draw means "go now",
			// since the ticker already enforced the minimum interval.
			jitterFactor := (rand.Float64() * 2) - 1.0
			extra := time.Duration(float64(l.interval) * l.jitter * jitterFactor)
			if extra > 0 {
				if err := Sleep(ctx, extra); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Stop releases the limiter's ticker.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}

// Sleep blocks for d or until ctx is canceled, whichever comes first, and
// returns ctx.Err() on early cancellation. Non-positive durations return
// immediately.
func Sleep(ctx context.Context, d time.Duration) error {
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
