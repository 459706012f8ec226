// Package execution places orders against the venue, subject to a token
// bucket rate limit, and simulates fills in paper mode.
package execution

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket with the shape the original implementation
// exposes: a blocking Acquire and a non-blocking TryAcquire, both spending
// one token per call. golang.org/x/time/rate's Limiter already implements
// exactly this bucket (refill at `rate`, burst `capacity`); this type is a
// thin named wrapper so call sites read acquire/try_acquire instead of
// Wait/Allow.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a bucket that refills at ratePerSecond tokens/sec
// up to capacity tokens.
func NewRateLimiter(ratePerSecond float64, capacity int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), capacity)}
}

// Acquire blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// TryAcquire takes a token if one is immediately available, without
// blocking.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}

// WaitTime reports how long the next Acquire would block for, given the
// bucket's current state.
func (r *RateLimiter) WaitTime() time.Duration {
	reservation := r.limiter.Reserve()
	if !reservation.OK() {
		return 0
	}
	delay := reservation.Delay()
	reservation.Cancel()
	return delay
}
