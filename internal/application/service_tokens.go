package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
	"github.com/viralforge/academic-records/internal/ports"
)

const bearerTokenType = "Bearer"

// Login authenticates and issues an access/refresh pair.
func (s *Service) Login(ctx context.Context, req LoginRequest) (TokenPair, error) {
	identifier := strings.TrimSpace(req.Identifier)
	switch {
	case strings.TrimSpace(req.SchoolID) != "":
		identifier = strings.TrimSpace(req.SchoolID)
	case strings.TrimSpace(req.Email) != "":
		identifier = strings.TrimSpace(req.Email)
	}
	user, err := s.authenticate(ctx, identifier, req.Password)
	if err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(user.UserID, user.Role)
}

// IssueTokens mints a token pair for a subject that must exist with the given role.
func (s *Service) IssueTokens(ctx context.Context, subjectID uuid.UUID, role domain.Role) (TokenPair, error) {
	if err := s.requireSubject(ctx, subjectID, role); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
		}
		return TokenPair{}, err
	}
	return s.issuePair(subjectID, role)
}

func (s *Service) issuePair(subjectID uuid.UUID, role domain.Role) (TokenPair, error) {
	access, err := s.sign(subjectID, role, domain.TokenTypeAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(subjectID, role, domain.TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        bearerTokenType,
		ExpiresIn:        int64(s.cfg.AccessTokenTTL.Seconds()),
		RefreshExpiresIn: int64(s.cfg.RefreshTokenTTL.Seconds()),
	}, nil
}

func (s *Service) sign(subjectID uuid.UUID, role domain.Role, tokenType domain.TokenType) (string, error) {
	ttl := s.cfg.AccessTokenTTL
	if tokenType == domain.TokenTypeRefresh {
		ttl = s.cfg.RefreshTokenTTL
	}
	now := s.nowFn()
	token, err := s.tokenSigner.Sign(domain.Claims{
		SubjectID: subjectID,
		Role:      role,
		TokenID:   uuid.NewString(),
		Type:      tokenType,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return token, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string) (AccessToken, error) {
	claims, err := s.tokenSigner.ParseAndValidate(rawRefreshToken)
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Type != domain.TokenTypeRefresh {
		return AccessToken{}, fmt.Errorf("%w: refresh token required", domain.ErrInvalidToken)
	}
	if !claims.ExpiresAt.After(s.nowFn()) {
		return AccessToken{}, fmt.Errorf("%w: token expired", domain.ErrInvalidToken)
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return AccessToken{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return AccessToken{}, fmt.Errorf("%w: token revoked", domain.ErrInvalidToken)
	}
	if err := s.requireSubject(ctx, claims.SubjectID, claims.Role); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AccessToken{}, fmt.Errorf("%w: subject no longer exists", domain.ErrInvalidToken)
		}
		return AccessToken{}, err
	}

	access, err := s.sign(claims.SubjectID, claims.Role, domain.TokenTypeAccess)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{
		AccessToken: access,
		TokenType:   bearerTokenType,
		ExpiresIn:   int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Revoke adds the token's jti to the Revocation Set. Revoking an already
// revoked token is a no-op.
func (s *Service) Revoke(ctx context.Context, rawToken string) error {
	claims, err := s.tokenSigner.ParseAndValidate(rawToken)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if err := s.revocations.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	appLogger().InfoContext(ctx, "token revoked",
		"operation", "revoke_token",
		"outcome", "success",
		"token_type", string(claims.Type),
		"subject_id", claims.SubjectID.String(),
	)
	return nil
}

// Verify checks signature, expiry and revocation of any token type.
func (s *Service) Verify(ctx context.Context, rawToken string) (domain.Claims, error) {
	claims, err := s.tokenSigner.ParseAndValidate(rawToken)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !claims.ExpiresAt.After(s.nowFn()) {
		return domain.Claims{}, fmt.Errorf("%w: token expired", domain.ErrUnauthenticated)
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return domain.Claims{}, fmt.Errorf("%w: token revoked", domain.ErrUnauthenticated)
	}
	return claims, nil
}

// VerifyAccess is Verify restricted to access tokens; it guards resource endpoints.
func (s *Service) VerifyAccess(ctx context.Context, rawToken string) (domain.Claims, error) {
	claims, err := s.Verify(ctx, rawToken)
	if err != nil {
		return domain.Claims{}, err
	}
	if claims.Type != domain.TokenTypeAccess {
		return domain.Claims{}, fmt.Errorf("%w: access token required", domain.ErrUnauthenticated)
	}
	return claims, nil
}

func (s *Service) PublicJWKs() ([]map[string]any, error) {
	return s.tokenSigner.PublicJWKs()
}

func (s *Service) requireSubject(ctx context.Context, subjectID uuid.UUID, role domain.Role) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		_, err := loadRole(ctx, repos, role, subjectID)
		return err
	})
}
