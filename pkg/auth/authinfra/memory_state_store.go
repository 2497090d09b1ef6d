package authinfra

import (
	"context"
	"sync"
	"time"
)

// MemoryStateStore is the single-process state store. Nonces expire lazily
// on Consume.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memoryState
}

type memoryState struct {
	provider  string
	expiresAt time.Time
}

// NewMemoryStateStore creates the store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]memoryState)}
}

// Save stores the nonce with its provider for the TTL.
func (s *MemoryStateStore) Save(_ context.Context, state, provider string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = memoryState{provider: provider, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Consume fetches and deletes the nonce.
func (s *MemoryStateStore) Consume(_ context.Context, state string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.states[state]
	if !ok {
		return "", false, nil
	}
	delete(s.states, state)

	if time.Now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.provider, true, nil
}
