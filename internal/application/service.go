package application

import (
	"time"

	"github.com/viralforge/academic-records/internal/ports"
)

// Service implements the academic-records use cases: identity, tokens,
// course catalog, enrollment and grading. Every operation that touches
// records runs inside one unit of work.
type Service struct {
	cfg         Config
	uow         ports.UnitOfWork
	revocations ports.RevocationStore
	lockouts    ports.LockoutStore
	hasher      ports.PasswordHasher
	tokenSigner ports.TokenSigner
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	UnitOfWork  ports.UnitOfWork
	Revocations ports.RevocationStore
	// Lockouts is optional; nil disables login lockout.
	Lockouts    ports.LockoutStore
	Hasher      ports.PasswordHasher
	TokenSigner ports.TokenSigner
	// Now overrides the clock in tests.
	Now func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 30 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:         cfg,
		uow:         deps.UnitOfWork,
		revocations: deps.Revocations,
		lockouts:    deps.Lockouts,
		hasher:      deps.Hasher,
		tokenSigner: deps.TokenSigner,
		nowFn:       nowFn,
	}
}
