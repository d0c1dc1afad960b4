package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryLimiter keeps a sliding window of hit timestamps per key. It is
// process-local; use RedisLimiter when several replicas share scanners.
type InMemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func NewInMemoryLimiter() *InMemoryLimiter {
	return &InMemoryLimiter{windows: make(map[string][]time.Time), now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (l *InMemoryLimiter) WithClock(now func() time.Time) *InMemoryLimiter {
	l.now = now
	return l
}

func (l *InMemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hits := prune(l.windows[key], now.Add(-window))

	if len(hits) >= limit {
		l.windows[key] = hits
		resetAt := now.Add(window)
		if len(hits) > 0 {
			resetAt = hits[0].Add(window)
		}
		return &Result{
			Allowed:    false,
			Limit:      limit,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(now, resetAt),
		}, nil
	}

	hits = append(hits, now)
	l.windows[key] = hits
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(hits),
		ResetAt:   hits[0].Add(window),
	}, nil
}

// Reset clears the window for key.
func (l *InMemoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// prune drops hits at or before cutoff. Hits are appended in time order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(hits); i++ {
		if hits[i].After(cutoff) {
			break
		}
	}
	return hits[i:]
}
