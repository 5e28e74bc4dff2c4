// Package ratelimit provides a request-weight limiter around golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spends a per-minute weight budget. Venues charge heavier endpoints
// more than one unit, so callers pass the endpoint's weight.
type Limiter struct {
	limiter     *rate.Limiter
	pausedUntil atomic.Int64 // unix nanos
	now         func() time.Time
}

// New creates a limiter allowing weightPerMinute units per minute with a
// burst of a tenth of the budget.
func New(weightPerMinute int) *Limiter {
	burst := weightPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(perMinute(weightPerMinute), burst),
		now:     time.Now,
	}
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// Wait blocks until one unit is available.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 1)
}

// WaitN blocks until weight units are available and any pause has elapsed.
// Weights above the burst are clamped so heavy endpoints never fail outright.
func (l *Limiter) WaitN(ctx context.Context, weight int) error {
	if err := l.waitPause(ctx); err != nil {
		return err
	}
	if burst := l.limiter.Burst(); weight > burst {
		weight = burst
	}
	return l.limiter.WaitN(ctx, weight)
}

// Pause blocks every caller for d, e.g. after the venue answered 429.
// Overlapping pauses keep the later deadline.
func (l *Limiter) Pause(d time.Duration) {
	until := l.now().Add(d).UnixNano()
	for {
		cur := l.pausedUntil.Load()
		if cur >= until || l.pausedUntil.CompareAndSwap(cur, until) {
			return
		}
	}
}

// PausedFor returns how long callers are still held back.
func (l *Limiter) PausedFor() time.Duration {
	d := time.Duration(l.pausedUntil.Load() - l.now().UnixNano())
	if d < 0 {
		return 0
	}
	return d
}

func (l *Limiter) waitPause(ctx context.Context) error {
	d := l.PausedFor()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
