package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleet-service/internal/config"
	"github.com/fleetdesk/fleet-service/internal/token"
)

const (
	jwtSecret = "test-secret-key-for-jwt-testing-purposes-123456789" // pragma: allowlist secret
	issuer    = "test-issuer"
)

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:             jwtSecret,
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             issuer,
		Algorithm:          "HS256",
	}
}

func demoSubject() token.Subject {
	return token.Subject{
		ID:        "demo-1a2b3c4d",
		Username:  "demo-1a2b3c4d",
		TenantID:  "Demo-1a2b3c4d",
		Role:      "ADMIN",
		IsDemo:    true,
		SessionID: "1a2b3c4d-0000-4000-8000-000000000000",
	}
}

func TestNewJWTService(t *testing.T) {
	service := token.NewJWTService(testConfig())
	require.NotNil(t, service)

	jwtService, ok := service.(*token.JWTService)
	require.True(t, ok)
	assert.NotNil(t, jwtService)
}

func TestJWTService_IssueTokenPair(t *testing.T) {
	service := token.NewJWTService(testConfig())

	before := time.Now()
	pair, err := service.IssueTokenPair(demoSubject())
	require.NoError(t, err)

	assert.Len(t, strings.Split(pair.AccessToken, "."), 3)
	assert.Len(t, strings.Split(pair.RefreshToken, "."), 3)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.WithinDuration(t, before.Add(15*time.Minute), pair.AccessTokenExpiresAt, 2*time.Second)
	assert.WithinDuration(t, before.Add(24*time.Hour), pair.RefreshTokenExpiresAt, 2*time.Second)

	claims, err := service.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "demo-1a2b3c4d", claims.RegisteredClaims.Subject)
	assert.Equal(t, "demo-1a2b3c4d", claims.Username)
	assert.Equal(t, "Demo-1a2b3c4d", claims.TenantID)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.True(t, claims.IsDemo)
	assert.Equal(t, "1a2b3c4d-0000-4000-8000-000000000000", claims.SessionID)
	assert.Equal(t, token.TypeAccessToken, claims.Type)
	assert.Equal(t, issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	refresh, err := service.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, token.TypeRefreshToken, refresh.Type)

	identity := refresh.Identity()
	expected := demoSubject()
	assert.Equal(t, expected, identity)
}

func TestJWTService_NotAfterCapsLifetime(t *testing.T) {
	service := token.NewJWTService(testConfig())

	subject := demoSubject()
	subject.NotAfter = time.Now().Add(5 * time.Minute).Truncate(time.Second)

	pair, err := service.IssueTokenPair(subject)
	require.NoError(t, err)
	assert.Equal(t, subject.NotAfter, pair.AccessTokenExpiresAt)
	assert.Equal(t, subject.NotAfter, pair.RefreshTokenExpiresAt)

	claims, err := service.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, subject.NotAfter.Unix(), claims.ExpiresAt.Unix())
}

func TestJWTService_TokenTypesAreNotInterchangeable(t *testing.T) {
	service := token.NewJWTService(testConfig())

	pair, err := service.IssueTokenPair(demoSubject())
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(pair.RefreshToken)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = service.ValidateRefreshToken(pair.AccessToken)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestJWTService_ValidateAccessTokenFailures(t *testing.T) {
	service := token.NewJWTService(testConfig())

	otherSecret := testConfig()
	otherSecret.Secret = "another-secret-key-for-jwt-testing-purposes-987654321" // pragma: allowlist secret
	forged, _, err := token.NewJWTService(otherSecret).IssueAccessToken(demoSubject())
	require.NoError(t, err)

	otherIssuer := testConfig()
	otherIssuer.Issuer = "someone-else"
	foreign, _, err := token.NewJWTService(otherIssuer).IssueAccessToken(demoSubject())
	require.NoError(t, err)

	expiredClaims := &token.Claims{
		Type: token.TypeAccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &token.Claims{
		Type:             token.TypeAccessToken,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	wrongAlgorithm, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &token.Claims{
		Type: token.TypeAccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"malformed", "not.a.jwt"},
		{"wrong_secret", forged},
		{"wrong_issuer", foreign},
		{"expired", expired},
		{"missing_expiry", noExpiry},
		{"wrong_algorithm", wrongAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			require.ErrorIs(t, err, token.ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}
