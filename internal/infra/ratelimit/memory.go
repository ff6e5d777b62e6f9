// Package ratelimit holds the in-process sliding-window limiter used when no
// Redis is configured and in tests.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"tradematch/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*Memory)(nil)

// Memory is a per-process sliding window. It is not shared across replicas.
type Memory struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{buckets: make(map[string][]time.Time), now: time.Now}
}

func (m *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) (*adapter.RateLimitResult, error) {
	if limit <= 0 || window <= 0 {
		return &adapter.RateLimitResult{Allowed: true, Limit: limit}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ts := trim(m.buckets[key], now.Add(-window))
	if len(ts) < limit {
		ts = append(ts, now)
		m.buckets[key] = ts
		return &adapter.RateLimitResult{Allowed: true, Limit: limit, Remaining: limit - len(ts)}, nil
	}
	m.buckets[key] = ts

	retry := ts[0].Add(window).Sub(now)
	if retry <= 0 {
		retry = time.Millisecond
	}
	return &adapter.RateLimitResult{Allowed: false, Limit: limit, RetryAfter: retry}, nil
}

// trim drops timestamps at or before cutoff.
func trim(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(ts); i++ {
		if ts[i].After(cutoff) {
			break
		}
	}
	return ts[i:]
}
