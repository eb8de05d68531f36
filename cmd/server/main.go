// Package main provides the entry point for the fleet service.
// It initializes all dependencies, sets up HTTP routes with middleware,
// and starts the server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/config"
	"github.com/fleetdesk/fleet-service/internal/handlers"
	"github.com/fleetdesk/fleet-service/internal/startup"
	"github.com/fleetdesk/fleet-service/pkg/logger"
)

func main() {
	// Load .env.local file only in development (when GO_ENV is not set or set to "development")
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env.local file: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithConfig(&cfg.Logging)
	log.Info("Starting fleet service")
	log.WithFields(logrus.Fields{
		"version":            handlers.Version,
		"port":               cfg.Server.Port,
		"host":               cfg.Server.Host,
		"tls":                cfg.IsTLSEnabled(),
		"demo_session_limit": cfg.Demo.SessionLimit,
		"demo_session_ttl":   cfg.Demo.SessionTTL().String(),
	}).Info("Service configuration loaded")

	store, redisClient := startup.OpenStore(cfg, log)
	dbMgr := startup.OpenDatabase(cfg, log)
	services := startup.NewServices(cfg, log, store, redisClient, dbMgr)
	defer closeServices(services, log)

	if err := services.Register(prometheus.DefaultRegisterer); err != nil {
		log.WithError(err).Fatal("Failed to register metrics")
	}

	server := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      startup.NewRouter(services, prometheus.DefaultGatherer),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	runServer(server, cfg, log)
}

func closeServices(services *startup.Services, log *logrus.Logger) {
	if err := services.Close(); err != nil {
		log.WithError(err).Error("Failed to close service dependencies")
	}
}

func runServer(server *http.Server, cfg *config.Config, log *logrus.Logger) {
	go startServer(server, cfg, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Error("Server forced to shutdown")
	} else {
		log.Info("Server exited gracefully")
	}
}

func startServer(server *http.Server, cfg *config.Config, log *logrus.Logger) {
	log.WithFields(logrus.Fields{
		"addr": server.Addr,
		"tls":  cfg.IsTLSEnabled(),
	}).Info("Starting HTTP server")

	var startErr error
	if cfg.IsTLSEnabled() {
		startErr = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
	} else {
		startErr = server.ListenAndServe()
	}

	if startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
		log.WithError(startErr).Fatal("Failed to start server")
	}
}
