package auth

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/demo"
	"github.com/fleetdesk/fleet-service/internal/models"
)

// AdminService defines the interface for demo sandbox administration.
type AdminService interface {
	// GetSessionStats summarizes the demo session registry.
	GetSessionStats(ctx context.Context) (*models.DemoSessionStats, error)

	// ClearAllSessions removes every registered demo session.
	ClearAllSessions(ctx context.Context) (*models.ClearSessionsResponse, error)

	// SweepExpiredSessions runs one expiry sweep immediately.
	SweepExpiredSessions(ctx context.Context) (*models.SweepResponse, error)
}

// adminService implements the AdminService interface.
type adminService struct {
	manager *demo.Manager
	sweeper *demo.Sweeper
	logger  *logrus.Logger
}

// NewAdminService creates a new admin service instance with the provided dependencies.
func NewAdminService(
	manager *demo.Manager,
	sweeper *demo.Sweeper,
	logger *logrus.Logger,
) AdminService {
	return &adminService{
		manager: manager,
		sweeper: sweeper,
		logger:  logger,
	}
}

// GetSessionStats retrieves statistics about the demo session registry.
func (s *adminService) GetSessionStats(ctx context.Context) (*models.DemoSessionStats, error) {
	s.logger.Info("Retrieving demo session statistics")

	stats, err := s.manager.Stats(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to retrieve demo session statistics")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"active_sessions":       stats.ActiveSessions,
		"session_counter":       stats.SessionCounter,
		"expired_pending_sweep": stats.ExpiredPendingSweep,
	}).Info("Demo session statistics retrieved successfully")

	return stats, nil
}

// ClearAllSessions removes every registered demo session and resets the counter.
func (s *adminService) ClearAllSessions(ctx context.Context) (*models.ClearSessionsResponse, error) {
	s.logger.Info("Clearing all demo sessions")

	count, err := s.manager.CleanupAll(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("sessions_cleared", count).Error("Failed to clear demo sessions")
		return nil, err
	}

	s.logger.WithField("sessions_cleared", count).Info("Demo sessions cleared successfully")

	return &models.ClearSessionsResponse{
		SessionsCleared: count,
		Message:         fmt.Sprintf("Successfully cleared %d demo sessions", count),
	}, nil
}

// SweepExpiredSessions runs the expiry sweeper on demand.
func (s *adminService) SweepExpiredSessions(ctx context.Context) (*models.SweepResponse, error) {
	cleaned, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return nil, err
	}
	return &models.SweepResponse{Cleaned: cleaned}, nil
}
