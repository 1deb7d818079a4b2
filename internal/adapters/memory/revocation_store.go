package memory

import (
	"context"
	"sync"
	"time"
)

// RevocationStore is the in-process Revocation Set. Entries are kept for the
// life of the process.
type RevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{revoked: map[string]time.Time{}}
}

func (s *RevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[tokenID]; !ok {
		s.revoked[tokenID] = expiresAt
	}
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenID]
	return ok, nil
}
