// Package ratelimit provides a process-global admission gate for
// outbound API calls. Every RPC and Helius call in service/solana
// acquires a slot here before hitting the network, so the whole
// process (regardless of how many wallets are being synced
// concurrently) never exceeds one configured steady-state rate.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate.Limiter with a burst of 1, so
// admissions are spread evenly across time instead of arriving in
// bursts that can trip a provider's own rate limiting even when the
// average rate is within bounds. The configured rate only ever
// ratchets tighter: once a caller registers a stricter requirement (a
// lower RPS), the limiter never loosens back up.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	limit   rate.Limit
}

// New creates a limiter seeded with an initial requests-per-second rate.
func New(rps float64) *Limiter {
	limit := rate.Limit(rps)
	return &Limiter{
		limiter: rate.NewLimiter(limit, 1),
		limit:   limit,
	}
}

// SetRPS registers a requested rate. The limiter's effective rate
// becomes the minimum of every rate ever requested, per the ratcheting
// rule: callers may ask for something stricter, never looser.
func (l *Limiter) SetRPS(rps float64) {
	if rps <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	candidate := rate.Limit(rps)
	if candidate < l.limit {
		l.limit = candidate
		l.limiter.SetLimit(candidate)
	}
}

// Acquire blocks until the underlying token bucket admits this caller.
// It returns ctx.Err() if ctx is cancelled while waiting, and an error
// wrapping context.DeadlineExceeded at once if the next admission falls
// after ctx's deadline.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return nil
}

// Interval returns the current effective minimum interval between
// admissions (1/rate). Exposed for tests and diagnostics.
func (l *Limiter) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(l.limit))
}
