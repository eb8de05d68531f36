package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/config"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/redis"
)

const shortIDLength = 8

// Manager creates, looks up and tears down demo sessions.
type Manager struct {
	store    redis.Store
	registry *Registry
	limit    int
	ttl      time.Duration
	logger   *logrus.Logger
	metrics  *Metrics
	now      func() time.Time
	newID    func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now as the manager's time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator replaces the random session id source.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		m.newID = newID
	}
}

// WithMetrics records lifecycle events into metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a session lifecycle manager.
func NewManager(store redis.Store, cfg config.DemoConfig, logger *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		registry: NewRegistry(store),
		limit:    cfg.SessionLimit,
		ttl:      cfg.SessionTTL(),
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry exposes the session registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Limit returns the maximum number of concurrent sessions.
func (m *Manager) Limit() int {
	return m.limit
}

// CreateSession starts a new demo session seeded with the template dataset.
// When the session counter has reached the limit the oldest session is evicted
// first; reaching the limit is never reported as an error.
func (m *Manager) CreateSession(ctx context.Context) (*models.DemoSession, error) {
	count, err := m.registry.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count >= m.limit {
		if err := m.cleanupOldest(ctx); err != nil {
			return nil, err
		}
	}

	id := m.newID()
	short := id
	if len(short) > shortIDLength {
		short = short[:shortIDLength]
	}

	now := m.now()
	session := &models.DemoSession{
		SessionID: id,
		UserID:    "demo-" + short,
		CompanyID: "Demo-" + short,
		Username:  "demo-" + short,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := redis.SetJSON(ctx, m.store, sessionKey(id), session, m.ttl); err != nil {
		return nil, fmt.Errorf("failed to store demo session: %w", err)
	}
	for _, rt := range SeededResources {
		if err := m.store.Set(ctx, dataKey(id, rt), templateCollection(rt), m.ttl); err != nil {
			return nil, fmt.Errorf("failed to seed demo %s: %w", rt, err)
		}
	}

	if err := m.registry.Add(ctx, id, now); err != nil {
		return nil, err
	}
	active, err := m.registry.Increment(ctx)
	if err != nil {
		return nil, err
	}

	m.metrics.created()
	m.metrics.active(active)
	m.logger.WithFields(logrus.Fields{
		"session_id":      id,
		"username":        session.Username,
		"active_sessions": active,
	}).Info("Demo session created")

	return session, nil
}

// GetSession returns the session metadata, or nil when the session is unknown
// or its metadata has expired.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*models.DemoSession, error) {
	var session models.DemoSession
	err := redis.GetJSON(ctx, m.store, sessionKey(sessionID), &session)
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load demo session: %w", err)
	}
	return &session, nil
}

// CleanupSession removes a session's metadata, collections and registry entry.
// It is idempotent: unknown and already cleaned ids are a no-op. The counter is
// only decremented when a registry entry was actually removed.
func (m *Manager) CleanupSession(ctx context.Context, sessionID string) error {
	_, err := m.cleanup(ctx, sessionID)
	return err
}

// cleanup removes sessionID and reports whether it was registered.
func (m *Manager) cleanup(ctx context.Context, sessionID string) (bool, error) {
	if err := m.store.Delete(ctx, sessionKeys(sessionID)...); err != nil {
		return false, fmt.Errorf("failed to delete demo session data: %w", err)
	}

	removed, err := m.registry.Remove(ctx, sessionID)
	if err != nil || !removed {
		return false, err
	}

	active, err := m.registry.Decrement(ctx)
	if err != nil {
		return true, err
	}

	m.metrics.active(active)
	m.logger.WithFields(logrus.Fields{
		"session_id":      sessionID,
		"active_sessions": active,
	}).Info("Demo session cleaned up")

	return true, nil
}

// CleanupExpiredSessions removes every registered session whose age since
// creation exceeds the TTL and returns how many were removed.
// Writes to a session's collections do not extend its registry age.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) (int, error) {
	entries, err := m.registry.List(ctx)
	if err != nil {
		return 0, err
	}

	now := unixSeconds(m.now())
	ttl := m.ttl.Seconds()
	cleaned := 0
	for _, entry := range entries {
		if now-entry.CreatedAt <= ttl {
			continue
		}
		removed, err := m.cleanup(ctx, entry.SessionID)
		if err != nil {
			return cleaned, err
		}
		if removed {
			cleaned++
		}
	}

	m.metrics.cleaned("expired", cleaned)
	return cleaned, nil
}

// cleanupOldest evicts the session with the smallest creation time.
// Ties resolve to the lowest session id.
func (m *Manager) cleanupOldest(ctx context.Context) error {
	oldest, ok, err := m.registry.Oldest(ctx)
	if err != nil || !ok {
		return err
	}

	if err := m.CleanupSession(ctx, oldest.SessionID); err != nil {
		return fmt.Errorf("failed to evict oldest demo session: %w", err)
	}

	m.metrics.evicted()
	m.logger.WithFields(logrus.Fields{
		"evicted_session_id": oldest.SessionID,
		"limit":              m.limit,
	}).Info("Demo session limit reached, evicted oldest session")
	return nil
}

// CleanupAll removes every registered session and resets the counter.
func (m *Manager) CleanupAll(ctx context.Context) (int, error) {
	entries, err := m.registry.List(ctx)
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, entry := range entries {
		removed, err := m.cleanup(ctx, entry.SessionID)
		if err != nil {
			return cleaned, err
		}
		if removed {
			cleaned++
		}
	}

	if err := m.registry.Reset(ctx); err != nil {
		return cleaned, err
	}

	m.metrics.cleaned("admin", cleaned)
	m.metrics.active(0)
	return cleaned, nil
}

// Stats summarizes the registry for operators.
func (m *Manager) Stats(ctx context.Context) (*models.DemoSessionStats, error) {
	entries, err := m.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	count, err := m.registry.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.DemoSessionStats{
		ActiveSessions:    len(entries),
		SessionCounter:    count,
		SessionLimit:      m.limit,
		SessionTTLSeconds: int(m.ttl.Seconds()),
	}

	now := unixSeconds(m.now())
	ttl := m.ttl.Seconds()
	for i, entry := range entries {
		age := now - entry.CreatedAt
		if i == 0 {
			stats.OldestSessionAgeSeconds = int64(age)
		}
		if age > ttl {
			stats.ExpiredPendingSweep++
		}
	}
	return stats, nil
}
