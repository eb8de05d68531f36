package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/models"
)

// ErrSessionExpired is returned when the service refuses to refresh a token,
// usually because the demo session behind it is gone.
var ErrSessionExpired = errors.New("demo session expired")

// expiryBuffer is subtracted from an access token's lifetime so a cached
// token is never sent in its last seconds.
const expiryBuffer = 30 * time.Second

// TokenManager supplies bearer tokens with automatic refresh.
type TokenManager interface {
	// GetToken returns a valid access token, refreshing if necessary.
	GetToken(ctx context.Context) (string, error)
	// InvalidateToken forces a token refresh on the next GetToken call.
	InvalidateToken()
}

// tokenManager caches an access token and renews it with a refresh token.
type tokenManager struct {
	mu           sync.RWMutex
	base         *BaseClient
	refreshToken string
	now          func() time.Time

	accessToken string
	expiresAt   time.Time
}

// NewTokenManager creates a token manager seeded with a token pair, as
// returned by the demo start endpoint. The access token's expiry is read
// from its exp claim without verifying the signature.
func NewTokenManager(base *BaseClient, accessToken, refreshToken string) TokenManager {
	t := &tokenManager{
		base:         base,
		refreshToken: refreshToken,
		now:          time.Now,
		accessToken:  accessToken,
	}
	t.expiresAt = t.cacheUntil(tokenExpiry(accessToken))
	return t
}

// tokenExpiry returns the exp claim of a JWT, or the zero time when it has
// none or cannot be parsed.
func tokenExpiry(accessToken string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// cacheUntil returns when a token expiring at expiresAt stops being served
// from the cache. A zero expiry is never served.
func (t *tokenManager) cacheUntil(expiresAt time.Time) time.Time {
	if expiresAt.IsZero() {
		return expiresAt
	}
	return expiresAt.Add(-expiryBuffer)
}

// GetToken returns a valid access token, refreshing if necessary.
// It uses a read lock for cached tokens and upgrades to write lock for refresh.
func (t *tokenManager) GetToken(ctx context.Context) (string, error) {
	t.mu.RLock()
	if t.accessToken != "" && t.now().Before(t.expiresAt) {
		token := t.accessToken
		t.mu.RUnlock()
		return token, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if t.accessToken != "" && t.now().Before(t.expiresAt) {
		return t.accessToken, nil
	}

	return t.refresh(ctx)
}

// InvalidateToken forces the cached token to be refreshed on the next GetToken call.
func (t *tokenManager) InvalidateToken() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.accessToken = ""
	t.expiresAt = time.Time{}

	t.base.logger.Debug("Token invalidated, will refresh on next request")
}

// refresh exchanges the refresh token for a new access token.
// Caller must hold write lock.
func (t *tokenManager) refresh(ctx context.Context) (string, error) {
	t.base.logger.Debug("Refreshing access token")

	resp, err := t.base.Do(ctx, http.MethodPost, "/auth/token/refresh", models.TokenRefreshRequest{
		RefreshToken: t.refreshToken,
	})
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}

	var refreshed models.TokenRefreshResponse
	if err := decodeResponse(resp, http.StatusOK, &refreshed); err != nil {
		var apiErr *models.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return "", fmt.Errorf("%w: %s", ErrSessionExpired, apiErr.Description)
		}
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	t.accessToken = refreshed.AccessToken
	t.expiresAt = t.cacheUntil(t.now().Add(time.Duration(refreshed.ExpiresIn) * time.Second))

	t.base.logger.WithFields(logrus.Fields{
		"expires_in": refreshed.ExpiresIn,
		"expires_at": t.expiresAt,
	}).Debug("Access token refreshed successfully")

	return t.accessToken, nil
}
