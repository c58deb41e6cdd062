package deploycode

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for single-node deployments and tests.
// The mutex makes the check-and-set in SetNX atomic, matching the redis
// SET NX EX semantics.
type MemoryStore struct {
	mu        sync.Mutex
	value     string
	expiresAt time.Time

	// now is replaceable in tests to exercise TTL expiry.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) SetNX(_ context.Context, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value != "" && s.now().Before(s.expiresAt) {
		return false, nil
	}
	s.value = value
	s.expiresAt = s.now().Add(ttl)
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value == "" || !s.now().Before(s.expiresAt) {
		return "", ErrNoCode
	}
	return s.value, nil
}

func (s *MemoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = ""
	s.expiresAt = time.Time{}
	return nil
}
