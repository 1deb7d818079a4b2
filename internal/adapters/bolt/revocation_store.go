package bolt

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var revokedBucket = []byte("revoked_tokens")

// RevocationStore persists the Revocation Set in a single bbolt file so
// logouts survive restarts of a single-node deployment.
type RevocationStore struct {
	db *bbolt.DB
}

// Open creates the file and bucket if needed and drops entries whose token
// has already expired.
func Open(path string) (*RevocationStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt revocation store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(revokedBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create revocation bucket: %w", err)
	}
	store := &RevocationStore{db: db}
	if _, err := store.Prune(time.Now().UTC()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *RevocationStore) Close() error {
	return s.db.Close()
}

func (s *RevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(revokedBucket)
		if b == nil {
			return fmt.Errorf("revocation bucket not found")
		}
		if b.Get([]byte(tokenID)) != nil {
			return nil
		}
		return b.Put([]byte(tokenID), []byte(expiresAt.UTC().Format(time.RFC3339)))
	})
}

func (s *RevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	revoked := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(revokedBucket)
		if b == nil {
			return fmt.Errorf("revocation bucket not found")
		}
		revoked = b.Get([]byte(tokenID)) != nil
		return nil
	})
	return revoked, err
}

// Prune deletes entries whose token expired before now and reports how many
// were removed. Entries with an unreadable expiry are kept.
func (s *RevocationStore) Prune(now time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(revokedBucket)
		if b == nil {
			return fmt.Errorf("revocation bucket not found")
		}
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			expiresAt, err := time.Parse(time.RFC3339, string(v))
			if err == nil && expiresAt.Before(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune revocations: %w", err)
	}
	return removed, nil
}
