package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/token"
)

func TestDemoService_StartSession(t *testing.T) {
	s := newServices(t, 5, 7200)
	ctx := context.Background()

	resp, err := s.demo.StartSession(ctx)
	require.NoError(t, err)

	assert.True(t, resp.IsDemo)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "demo-"+resp.SessionID[:8], resp.Username)
	assert.Equal(t, "Demo-"+resp.SessionID[:8], resp.CompanyID)

	claims, err := s.tokens.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Username, claims.RegisteredClaims.Subject)
	assert.Equal(t, resp.Username, claims.Username)
	assert.Equal(t, resp.SessionID, claims.SessionID)
	assert.Equal(t, resp.CompanyID, claims.TenantID)
	assert.Equal(t, auth.RoleDemoAdmin, claims.Role)
	assert.True(t, claims.IsDemo)

	refresh, err := s.tokens.ValidateRefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, token.TypeRefreshToken, refresh.Type)

	session, err := s.manager.GetSession(ctx, resp.SessionID)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.LessOrEqual(t, refresh.ExpiresAt.Unix(), session.ExpiresAt.Unix(),
		"refresh token must not outlive the session")
}

func TestDemoService_CleanupSession(t *testing.T) {
	s := newServices(t, 5, 7200)
	ctx := context.Background()

	resp, err := s.demo.StartSession(ctx)
	require.NoError(t, err)

	require.NoError(t, s.demo.CleanupSession(ctx, resp.SessionID))
	require.NoError(t, s.demo.CleanupSession(ctx, resp.SessionID))
	require.NoError(t, s.demo.CleanupSession(ctx, "unknown"))

	session, err := s.manager.GetSession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestDemoService_RefreshAccessToken(t *testing.T) {
	s := newServices(t, 5, 7200)
	ctx := context.Background()

	resp, err := s.demo.StartSession(ctx)
	require.NoError(t, err)

	t.Run("live_session", func(t *testing.T) {
		refreshed, err := s.demo.RefreshAccessToken(ctx, resp.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "Bearer", refreshed.TokenType)
		assert.Positive(t, refreshed.ExpiresIn)

		claims, err := s.tokens.ValidateAccessToken(refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, resp.SessionID, claims.SessionID)
		assert.True(t, claims.IsDemo)
	})

	t.Run("access_token_rejected", func(t *testing.T) {
		_, err := s.demo.RefreshAccessToken(ctx, resp.AccessToken)
		assert.ErrorIs(t, err, token.ErrInvalidToken)
	})

	t.Run("cleaned_session", func(t *testing.T) {
		require.NoError(t, s.demo.CleanupSession(ctx, resp.SessionID))
		_, err := s.demo.RefreshAccessToken(ctx, resp.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrSessionExpired)
	})

	t.Run("tenant_token", func(t *testing.T) {
		pair, err := s.tokens.IssueTokenPair(token.Subject{
			ID: "17", Username: "dispatcher", TenantID: "3", Role: auth.RoleDispatcher,
		})
		require.NoError(t, err)

		refreshed, err := s.demo.RefreshAccessToken(ctx, pair.RefreshToken)
		require.NoError(t, err)

		claims, err := s.tokens.ValidateAccessToken(refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "3", claims.TenantID)
		assert.False(t, claims.IsDemo)
	})
}
