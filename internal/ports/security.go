package ports

import "github.com/viralforge/academic-records/internal/domain"

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenSigner signs and verifies tokens. ParseAndValidate checks signature
// and expiry only; revocation is the Token Service's job.
type TokenSigner interface {
	Sign(claims domain.Claims) (string, error)
	ParseAndValidate(token string) (domain.Claims, error)
	PublicJWKs() ([]map[string]any, error)
}
