package cryptocom

import (
	"context"
	"sync"
	"time"
)

// rateLimiter enforces the per-minute request budget plus a minimum
// spacing between consecutive requests. The window is a fixed counter
// that resets once the minute elapses, mirroring how the exchange
// accounts its budget.
type rateLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	minInterval time.Duration

	windowStart time.Time
	count       int
	lastRequest time.Time

	now func() time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:       limit,
		window:      time.Minute,
		minInterval: 100 * time.Millisecond,
		now:         time.Now,
	}
}

// wait blocks until a request slot is available or ctx is done.
func (r *rateLimiter) wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := r.now()
		if r.windowStart.IsZero() || now.Sub(r.windowStart) >= r.window {
			r.windowStart = now
			r.count = 0
		}
		var sleep time.Duration
		if r.count >= r.limit {
			sleep = r.window - now.Sub(r.windowStart)
		} else if !r.lastRequest.IsZero() {
			if gap := r.minInterval - now.Sub(r.lastRequest); gap > 0 {
				sleep = gap
			}
		}
		if sleep <= 0 {
			r.count++
			r.lastRequest = now
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
