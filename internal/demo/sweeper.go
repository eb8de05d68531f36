package demo

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper reclaims demo sessions whose age since creation exceeds the TTL.
//
// It holds no state between runs and is meant to be triggered by an external
// scheduler. Running it concurrently with itself or with request traffic is
// harmless since cleanup is idempotent. The store's own key expiry reclaims
// metadata and collections independently; a sweep is what removes the
// registry entry and adjusts the counter.
type Sweeper struct {
	manager *Manager
	logger  *logrus.Logger
	metrics *Metrics
}

// NewSweeper creates a sweeper over manager's registry.
func NewSweeper(manager *Manager, logger *logrus.Logger, metrics *Metrics) *Sweeper {
	return &Sweeper{
		manager: manager,
		logger:  logger,
		metrics: metrics,
	}
}

// Sweep runs one pass and returns the number of sessions removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()

	cleaned, err := s.manager.CleanupExpiredSessions(ctx)
	elapsed := time.Since(start)
	s.metrics.sweepSeconds(elapsed.Seconds())

	entry := s.logger.WithFields(logrus.Fields{
		"cleaned":     cleaned,
		"duration_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("Demo session sweep failed")
		return cleaned, err
	}

	if cleaned > 0 {
		entry.Info("Expired demo sessions swept")
	} else {
		entry.Debug("Demo session sweep found nothing to clean")
	}
	return cleaned, nil
}
