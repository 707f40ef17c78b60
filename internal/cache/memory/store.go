// Package memory is an in-process cache store for development and tests.
package memory

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the current time for expiry checks.
type Clock interface {
	Now() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store keeps entries in a map guarded by a RWMutex. Expired entries are
// dropped lazily on read and swept on write.
type Store struct {
	mu     sync.RWMutex
	clock  Clock
	items  map[string]entry
	writes int
}

// sweepEvery controls how many writes pass between expiry sweeps.
const sweepEvery = 256

// New creates an empty Store reading time from clock.
func New(clock Clock) *Store {
	return &Store{
		clock: clock,
		items: make(map[string]entry),
	}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := s.clock.Now()
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !now.Before(e.expiresAt) {
		s.mu.Lock()
		if cur, still := s.items[key]; still && !now.Before(cur.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores a copy of value under key for ttl.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
	s.writes++
	if s.writes%sweepEvery == 0 {
		for k, e := range s.items {
			if !now.Before(e.expiresAt) {
				delete(s.items, k)
			}
		}
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
