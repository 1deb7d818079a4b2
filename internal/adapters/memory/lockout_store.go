package memory

import (
	"context"
	"sync"
	"time"

	"github.com/viralforge/academic-records/internal/ports"
)

// LockoutStore keeps failed-login counters in process.
type LockoutStore struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
}

func NewLockoutStore() *LockoutStore {
	return &LockoutStore{state: map[string]ports.LockoutState{}}
}

func (s *LockoutStore) Get(_ context.Context, key string) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[key], nil
}

func (s *LockoutStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state[key]
	if current.LockedUntil != nil && !current.LockedUntil.After(now) {
		current = ports.LockoutState{}
	}
	current.FailedCount++
	if current.FailedCount >= threshold {
		lockedUntil := now.Add(lockoutWindow).UTC()
		current.LockedUntil = &lockedUntil
	}
	s.state[key] = current
	return current, nil
}

func (s *LockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, key)
	return nil
}
