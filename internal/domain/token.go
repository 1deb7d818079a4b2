package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenType separates short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the verified payload of a token.
type Claims struct {
	SubjectID uuid.UUID
	Role      Role
	TokenID   string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
	KeyID     string
}

// IsZero reports claims that never went through verification.
func (c Claims) IsZero() bool {
	return c.SubjectID == uuid.Nil && c.TokenID == ""
}
