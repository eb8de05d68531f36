package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/demo"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/token"
)

// ErrSessionExpired is returned when a demo refresh token outlives its session.
var ErrSessionExpired = errors.New("demo session expired")

// DemoService bootstraps and tears down demo sandbox sessions.
type DemoService interface {
	// StartSession creates a demo session and issues tokens for it.
	StartSession(ctx context.Context) (*models.DemoStartResponse, error)

	// CleanupSession tears a demo session down. Unknown ids are a no-op.
	CleanupSession(ctx context.Context, sessionID string) error

	// RefreshAccessToken exchanges a refresh token for a new access token.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*models.TokenRefreshResponse, error)
}

type demoService struct {
	manager *demo.Manager
	tokens  token.Service
	logger  *logrus.Logger
}

// NewDemoService creates a demo session service.
func NewDemoService(manager *demo.Manager, tokens token.Service, logger *logrus.Logger) DemoService {
	return &demoService{
		manager: manager,
		tokens:  tokens,
		logger:  logger,
	}
}

// StartSession creates a session and signs tokens whose lifetime never exceeds it.
// Demo principals always receive the ADMIN role.
func (s *demoService) StartSession(ctx context.Context) (*models.DemoStartResponse, error) {
	session, err := s.manager.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create demo session: %w", err)
	}

	pair, err := s.tokens.IssueTokenPair(token.Subject{
		ID:        session.UserID,
		Username:  session.Username,
		TenantID:  session.CompanyID,
		Role:      RoleDemoAdmin,
		IsDemo:    true,
		SessionID: session.SessionID,
		NotAfter:  session.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue demo tokens: %w", err)
	}

	return &models.DemoStartResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SessionID:    session.SessionID,
		Username:     session.Username,
		IsDemo:       true,
		CompanyID:    session.CompanyID,
	}, nil
}

func (s *demoService) CleanupSession(ctx context.Context, sessionID string) error {
	return s.manager.CleanupSession(ctx, sessionID)
}

// RefreshAccessToken validates refreshToken and issues a new access token for
// the same principal. A demo token is only refreshed while its session
// metadata still exists.
func (s *demoService) RefreshAccessToken(
	ctx context.Context,
	refreshToken string,
) (*models.TokenRefreshResponse, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	subject := claims.Identity()
	if subject.IsDemo {
		session, err := s.manager.GetSession(ctx, subject.SessionID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			s.logger.WithField("session_id", subject.SessionID).Info("Refused refresh for expired demo session")
			return nil, ErrSessionExpired
		}
		subject.NotAfter = session.ExpiresAt
	}

	accessToken, expiresAt, err := s.tokens.IssueAccessToken(subject)
	if err != nil {
		return nil, err
	}

	return &models.TokenRefreshResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}
