// Package resilience provides retry with jittered exponential backoff,
// error classification, and a three-state circuit breaker.
//
// The Backoff routine is shared by RetryWithBackoff and the health
// monitor's reconnection loop so both follow the same delay curve.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff computes exponentially growing, jittered delays.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64

	// Jitter returns a multiplier applied to the pure exponential delay.
	// Nil means DefaultJitter.
	Jitter func() float64
}

// DefaultJitter returns a uniformly distributed multiplier in [0.5, 1.0).
func DefaultJitter() float64 {
	return 0.5 + rand.Float64()*0.5
}

// Delay returns the wait before the retry that follows the given failed
// attempt (1-indexed): min(initial * factor^(attempt-1) * jitter, max).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	jitter := b.Jitter
	if jitter == nil {
		jitter = DefaultJitter
	}

	delay := float64(b.InitialDelay) * math.Pow(b.Factor, float64(attempt-1)) * jitter()
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		return b.MaxDelay
	}
	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
