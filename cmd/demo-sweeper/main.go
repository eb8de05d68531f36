// Package main provides a one-shot CLI that reclaims expired demo sessions.
// It is meant to be run by an external scheduler such as cron or a
// Kubernetes CronJob, against the same store and settings as the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/config"
	"github.com/fleetdesk/fleet-service/internal/startup"
	"github.com/fleetdesk/fleet-service/pkg/logger"
)

func main() {
	var (
		timeout  = flag.Duration("timeout", time.Minute, "Maximum duration of the run")
		clearAll = flag.Bool("clear-all", false, "Remove every demo session instead of only expired ones")
		stats    = flag.Bool("stats", false, "Print registry statistics as JSON after the run")
	)
	flag.Parse()

	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env.local file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithConfig(&cfg.Logging)

	if err := run(cfg, log, *timeout, *clearAll, *stats); err != nil {
		log.WithError(err).Error("Demo sweep failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logrus.Logger, timeout time.Duration, clearAll, printStats bool) error {
	store, redisClient := startup.OpenStore(cfg, log)
	if redisClient == nil {
		log.Warn("Sweeping an in-memory store only affects this process; is Redis reachable?")
	}
	services := startup.NewServices(cfg, log, store, redisClient, nil)
	defer func() {
		if closeErr := services.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close session store")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if clearAll {
		cleared, err := services.Manager.CleanupAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear demo sessions: %w", err)
		}
		log.WithField("sessions_cleared", cleared).Info("All demo sessions cleared")
	} else if _, err := services.Sweeper.Sweep(ctx); err != nil {
		return err
	}

	if !printStats {
		return nil
	}
	current, err := services.Manager.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read demo session stats: %w", err)
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(current)
}
