package http

import (
	"sync"
	"time"
)

// rateLimiter counts requests per user in fixed windows. All counters
// reset together when a window elapses.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	started time.Time
	counts  map[int64]int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		counts: make(map[int64]int),
	}
}

func (r *rateLimiter) allow(key int64) bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if now := r.now(); now.Sub(r.started) >= r.window {
		r.started = now
		clear(r.counts)
	}
	r.counts[key]++
	return r.counts[key] <= r.limit
}
