package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/config"
)

// Client is a Redis client wrapper that implements the Store interface.
// It provides thread-safe access to Redis operations with connection pooling, structured logging,
// and automatic error handling. The client maintains a persistent connection pool and handles
// reconnection automatically.
//
// Thread Safety: All methods are safe for concurrent use by multiple goroutines.
// Connection Management: Uses Redis connection pooling with configurable pool size and timeouts.
// Error Handling: All Redis errors are wrapped with contextual information.
type Client struct {
	rdb    *redis.Client  // Redis client instance with connection pooling
	logger *logrus.Logger // Structured logger for debugging and monitoring
}

// NewClient creates a new Redis client instance with the provided configuration.
// It establishes a connection pool, validates connectivity, and returns a ready-to-use client.
//
// Configuration:
//   - URL: Redis connection string (redis://host:port/db)
//   - Password: Optional authentication password
//   - DB: Database number to select
//   - Connection pooling settings (MaxRetries, PoolSize, MinIdleConn)
//   - Timeout settings (DialTimeout, ReadTimeout, WriteTimeout, PoolTimeout, IdleTimeout)
//
// The function performs an initial connectivity test using Ping() and returns an error
// if the Redis server is unreachable.
func NewClient(cfg *config.RedisConfig, logger *logrus.Logger) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password // pragma: allowlist secret
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	opts.MaxRetries = cfg.MaxRetries
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConn
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.PoolTimeout = cfg.PoolTimeout
	opts.ConnMaxIdleTime = cfg.IdleTimeout

	client := &Client{
		rdb:    redis.NewClient(opts),
		logger: logger,
	}

	if pingErr := client.Ping(context.Background()); pingErr != nil {
		_ = client.rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", pingErr)
	}

	logger.Info("Connected to Redis successfully")

	return client, nil
}

// Close gracefully shuts down the Redis client and closes all connections in the pool.
// This method should be called when the application terminates to clean up resources.
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		c.logger.WithError(err).Error("Failed to close Redis connection")
		return err
	}
	c.logger.Info("Redis connection closed")
	return nil
}

// Ping tests connectivity to the Redis server by sending a PING command.
// This method is used for health checks and connection validation.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// GetRedisClient returns the underlying go-redis client for advanced operations
// like rate limiting with redis_rate.
func (c *Client) GetRedisClient() *redis.Client {
	return c.rdb
}

// Get retrieves the raw value stored at key.
// Returns ErrCacheMiss if the key does not exist or has expired.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

// Set stores value at key. A zero ttl keeps the key until it is deleted.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	c.logger.WithFields(logrus.Fields{
		"key": key,
		"ttl": ttl.String(),
	}).Debug("Key stored successfully")
	return nil
}

// Delete removes keys from Redis. This operation is idempotent.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	c.logger.WithField("keys", len(keys)).Debug("Keys deleted successfully")
	return nil
}
