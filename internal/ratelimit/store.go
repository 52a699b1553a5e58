package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CounterStore is the shared counter backend. IncrementAndGet must be atomic:
// concurrent callers on the same key each observe a distinct post-increment
// value. Records expire on their own after ttl; expiry is eventual, not exact.
type CounterStore interface {
	IncrementAndGet(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// MemoryStore is an in-process CounterStore for tests and single-instance
// development runs. Production deployments use the Postgres store, since each
// gateway instance may run in an isolated execution context.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memCounter
}

type memCounter struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*memCounter)}
}

func (s *MemoryStore) IncrementAndGet(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = &memCounter{expiresAt: now.Add(ttl)}
		s.counters[key] = c
	}
	c.count++

	// Opportunistic sweep keeps the map from growing unbounded.
	if len(s.counters) > 4096 {
		for k, v := range s.counters {
			if now.After(v.expiresAt) {
				delete(s.counters, k)
			}
		}
	}
	return c.count, nil
}
