package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/domain"
)

const clockLeeway = 30 * time.Second

// JWTSigner signs and verifies RS256 access and refresh tokens.
type JWTSigner struct {
	kid        string
	issuer     string
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewJWTSigner builds a signer from configured PEM keys.
func NewJWTSigner(kid, issuer, privateKeyPEM, publicKeyPEM string) (*JWTSigner, error) {
	if kid == "" {
		return nil, errors.New("jwt key id (kid) is required")
	}
	if privateKeyPEM == "" || publicKeyPEM == "" {
		return nil, errors.New("jwt private/public keys are required")
	}

	priv, err := parseRSAPrivate(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := parseRSAPublic(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	if priv.PublicKey.N.Cmp(pub.N) != 0 {
		return nil, errors.New("jwt public key does not match private key")
	}

	return &JWTSigner{
		kid:        kid,
		issuer:     issuer,
		privateKey: priv,
		publicKey:  pub,
	}, nil
}

// NewEphemeralJWTSigner creates an in-memory keypair for local runs and
// tests. Tokens stop verifying on restart.
func NewEphemeralJWTSigner(kid, issuer string) (*JWTSigner, error) {
	if kid == "" {
		kid = "ephemeral-key-1"
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &JWTSigner{
		kid:        kid,
		issuer:     issuer,
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
	}, nil
}

type recordsJWTClaims struct {
	Role string `json:"role"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) Sign(claims domain.Claims) (string, error) {
	if claims.TokenID == "" {
		return "", errors.New("token id (jti) is required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, recordsJWTClaims{
		Role: string(claims.Role),
		Type: string(claims.Type),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.SubjectID.String(),
			ID:        claims.TokenID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	token.Header["kid"] = s.kid
	return token.SignedString(s.privateKey)
}

// ParseAndValidate checks signature, algorithm, expiry and the claim shape.
// Revocation is not consulted here.
func (s *JWTSigner) ParseAndValidate(raw string) (domain.Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(clockLeeway),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		options = append(options, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &recordsJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.publicKey, nil
	}, options...)
	if err != nil {
		return domain.Claims{}, err
	}
	claims, ok := parsed.Claims.(*recordsJWTClaims)
	if !ok || !parsed.Valid {
		return domain.Claims{}, errors.New("invalid token claims")
	}

	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("parse sub: %w", err)
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return domain.Claims{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	tokenType := domain.TokenType(claims.Type)
	if tokenType != domain.TokenTypeAccess && tokenType != domain.TokenTypeRefresh {
		return domain.Claims{}, fmt.Errorf("unknown token type %q", claims.Type)
	}
	if claims.ID == "" {
		return domain.Claims{}, errors.New("missing jti")
	}

	kid, _ := parsed.Header["kid"].(string)
	out := domain.Claims{
		SubjectID: subjectID,
		Role:      role,
		TokenID:   claims.ID,
		Type:      tokenType,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		KeyID:     kid,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return out, nil
}

func (s *JWTSigner) PublicJWKs() ([]map[string]any, error) {
	e := big.NewInt(int64(s.publicKey.E)).Bytes()
	n := s.publicKey.N.Bytes()

	return []map[string]any{
		{
			"kid": s.kid,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(n),
			"e":   base64.RawURLEncoding.EncodeToString(e),
		},
	}, nil
}

func parseRSAPrivate(raw string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("invalid private PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := keyAny.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

func parseRSAPublic(raw string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("invalid public PEM")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := keyAny.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return key, nil
}
