package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CounterStore counts requests per key within a fixed window. Incr is a
// single atomic check-and-increment: it returns the count including this
// request and the time left in the current window.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// MemoryStore is the process-local CounterStore. A single mutex guards the
// window map; the critical section is a map lookup and an increment.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
}

type fixedWindow struct {
	count   int64
	resetAt time.Time
}

// NewMemoryStore creates the store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*fixedWindow)}
}

// Incr counts a request against the key's current window, opening a fresh
// window when the previous one has elapsed.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &fixedWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++

	return w.count, w.resetAt.Sub(now), nil
}
