package ports

import (
	"context"
	"time"
)

// RevocationStore is the Revocation Set: jti values of logged-out tokens.
// Implementations must be safe for concurrent Revoke and IsRevoked calls.
// expiresAt lets shared stores drop entries once the token could no longer
// verify anyway; in-process stores keep them until restart.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// LockoutState is the current lockout envelope for a login identifier.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore handles short-lived brute-force protection state.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}
