package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRevocationStorePersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "revocations.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second revoke must be a no-op: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	revoked, err := reopened.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected revocation to survive reopen, got %v, %v", revoked, err)
	}
	if revoked, _ := reopened.IsRevoked(ctx, "jti-2"); revoked {
		t.Fatalf("unexpected revocation for jti-2")
	}
}

func TestRevocationStorePrune(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "revocations.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	_ = store.Revoke(ctx, "expired", now.Add(-time.Hour))
	_ = store.Revoke(ctx, "live", now.Add(time.Hour))

	removed, err := store.Prune(now)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	if revoked, _ := store.IsRevoked(ctx, "live"); !revoked {
		t.Fatalf("live entry must be kept")
	}
}
