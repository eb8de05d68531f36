// Package startup wires the fleet service's dependencies together and builds
// its HTTP router. Both binaries share it so the sweeper CLI sees exactly the
// store and settings the server uses.
package startup

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/config"
	"github.com/fleetdesk/fleet-service/internal/database/postgres"
	"github.com/fleetdesk/fleet-service/internal/demo"
	"github.com/fleetdesk/fleet-service/internal/handlers"
	"github.com/fleetdesk/fleet-service/internal/redis"
	"github.com/fleetdesk/fleet-service/internal/repository"
	"github.com/fleetdesk/fleet-service/internal/token"
)

// Services holds every long-lived dependency of the service.
type Services struct {
	Config *config.Config
	Logger *logrus.Logger

	// Store is the session store. RedisClient is set only when Store is Redis.
	Store       redis.Store
	RedisClient *redis.Client
	// Database is nil when PostgreSQL is not configured.
	Database *postgres.Manager

	Tokens      token.Service
	DemoMetrics *demo.Metrics
	HTTPMetrics *handlers.Metrics

	Manager   *demo.Manager
	Resources *demo.ResourceStore
	Sweeper   *demo.Sweeper
	// Tenants is nil when PostgreSQL is not configured.
	Tenants repository.FleetRepository

	DemoService  auth.DemoService
	AdminService auth.AdminService
}

// OpenStore connects to Redis and falls back to the in-memory store when
// Redis is unreachable.
func OpenStore(cfg *config.Config, log *logrus.Logger) (redis.Store, *redis.Client) {
	client, err := redis.NewClient(&cfg.Redis, log)
	if err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, falling back to in-memory store")
		log.Warn("Note: In-memory store will not persist demo sessions between restarts")
		return redis.NewMemoryStore(log), nil
	}
	return client, client
}

// OpenDatabase creates the PostgreSQL manager when a database is configured.
func OpenDatabase(cfg *config.Config, log *logrus.Logger) *postgres.Manager {
	if !cfg.IsPostgresDatabaseConfigured() {
		log.Info("PostgreSQL database not configured, tenant endpoints will answer 503")
		return nil
	}

	dbMgr, err := postgres.NewManager(cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize database manager")
		return nil
	}
	return dbMgr
}

// NewServices builds the service graph over an already opened store and
// database. redisClient and dbMgr may be nil.
func NewServices(
	cfg *config.Config,
	log *logrus.Logger,
	store redis.Store,
	redisClient *redis.Client,
	dbMgr *postgres.Manager,
) *Services {
	demoMetrics := demo.NewMetrics()
	manager := demo.NewManager(store, cfg.Demo, log, demo.WithMetrics(demoMetrics))
	sweeper := demo.NewSweeper(manager, log, demoMetrics)
	tokens := token.NewJWTService(&cfg.JWT)

	s := &Services{
		Config:       cfg,
		Logger:       log,
		Store:        store,
		RedisClient:  redisClient,
		Database:     dbMgr,
		Tokens:       tokens,
		DemoMetrics:  demoMetrics,
		HTTPMetrics:  handlers.NewMetrics(),
		Manager:      manager,
		Resources:    demo.NewResourceStore(store, cfg.Demo, log),
		Sweeper:      sweeper,
		DemoService:  auth.NewDemoService(manager, tokens, log),
		AdminService: auth.NewAdminService(manager, sweeper, log),
	}
	if dbMgr != nil {
		s.Tenants = repository.NewPostgresFleetRepository(dbMgr.DB)
	}
	return s
}

// Register adds the service's metrics to reg.
func (s *Services) Register(reg prometheus.Registerer) error {
	collectors := append(s.DemoMetrics.Collectors(), s.HTTPMetrics.Collectors()...)
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return nil
}

// Close releases the store and the database pool.
func (s *Services) Close() error {
	var errs []error
	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	if s.Database != nil {
		s.Database.Close()
		s.Logger.Info("Database connections closed")
	}
	return errors.Join(errs...)
}
