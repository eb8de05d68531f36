// Package token provides JWT generation and validation for fleet service principals.
//
// Access and refresh tokens are both signed JWTs carrying the same identity
// claims and differing only in their type claim and lifetime:
//   - sub: subject identifier (user id, or the synthetic demo user)
//   - username, tenant_id, role
//   - is_demo and session_id for demo sandbox principals
//   - type: access_token or refresh_token
//
// Security Considerations:
//   - Only HMAC algorithms are accepted, and a token signed with any other
//     method is rejected before its signature is checked
//   - Issuer and expiry are enforced during validation
//   - A token can never be used in place of the other type
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fleetdesk/fleet-service/internal/config"
)

const (
	// TypeAccessToken marks short-lived tokens accepted on API requests.
	TypeAccessToken = "access_token"
	// TypeRefreshToken marks tokens that may only be exchanged for a new access token.
	TypeRefreshToken = "refresh_token"
)

// ErrInvalidToken is returned for every token that fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Service defines token issuance and validation.
type Service interface {
	// IssueTokenPair creates a signed access token and refresh token for subject.
	IssueTokenPair(subject Subject) (*Pair, error)

	// IssueAccessToken creates a signed access token for subject.
	IssueAccessToken(subject Subject) (string, time.Time, error)

	// ValidateAccessToken verifies an access token and returns its claims.
	ValidateAccessToken(tokenString string) (*Claims, error)

	// ValidateRefreshToken verifies a refresh token and returns its claims.
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

// Subject describes the principal a token is issued for.
type Subject struct {
	ID        string
	Username  string
	TenantID  string
	Role      string
	IsDemo    bool
	SessionID string
	// NotAfter caps the lifetime of every issued token when set. Demo tokens
	// never outlive their session.
	NotAfter time.Time
}

// Pair holds an issued access and refresh token.
type Pair struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// Claims represents the structure of JWT claims used in all token types.
type Claims struct {
	jwt.RegisteredClaims

	Username  string `json:"username"`
	TenantID  string `json:"tenant_id"`
	Role      string `json:"role"`
	IsDemo    bool   `json:"is_demo"`
	SessionID string `json:"session_id,omitempty"`

	// Type identifies the token type and is checked on every validation.
	Type string `json:"type"`
}

// Identity returns the principal encoded in the claims.
func (c *Claims) Identity() Subject {
	return Subject{
		ID:        c.RegisteredClaims.Subject,
		Username:  c.Username,
		TenantID:  c.TenantID,
		Role:      c.Role,
		IsDemo:    c.IsDemo,
		SessionID: c.SessionID,
	}
}

// JWTService implements Service using HMAC-signed JWTs.
type JWTService struct {
	config *config.JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service instance with the provided configuration.
func NewJWTService(cfg *config.JWTConfig) Service {
	return &JWTService{
		config: cfg,
		now:    time.Now,
	}
}

// IssueTokenPair creates both tokens for subject.
func (s *JWTService) IssueTokenPair(subject Subject) (*Pair, error) {
	access, accessExp, err := s.sign(subject, TypeAccessToken, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.sign(subject, TypeRefreshToken, s.config.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

// IssueAccessToken creates an access token for subject.
func (s *JWTService) IssueAccessToken(subject Subject) (string, time.Time, error) {
	return s.sign(subject, TypeAccessToken, s.config.AccessTokenExpiry)
}

func (s *JWTService) sign(subject Subject, tokenType string, lifetime time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(lifetime)
	if !subject.NotAfter.IsZero() && subject.NotAfter.Before(expiresAt) {
		expiresAt = subject.NotAfter
	}

	claims := &Claims{
		Username:  subject.Username,
		TenantID:  subject.TenantID,
		Role:      subject.Role,
		IsDemo:    subject.IsDemo,
		SessionID: subject.SessionID,
		Type:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(s.config.Algorithm), claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s: %w", tokenType, err)
	}
	return tokenString, expiresAt, nil
}

// ValidateAccessToken verifies signature, issuer, expiry and the access_token type.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TypeAccessToken)
}

// ValidateRefreshToken verifies signature, issuer, expiry and the refresh_token type.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TypeRefreshToken)
}

func (s *JWTService) validate(tokenString, tokenType string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	},
		jwt.WithValidMethods([]string{s.config.Algorithm}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}

	if claims.Type != tokenType {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidToken, tokenType, claims.Type)
	}

	return claims, nil
}
