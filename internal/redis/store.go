// Package redis provides the expiring key-value store the fleet service keeps
// demo-session state in. Two implementations share the Store interface: Client,
// backed by a Redis server through go-redis, and MemoryStore, an in-process
// fallback used for local development and tests.
//
// Keys are organized with prefixes to avoid collisions:
//   - demo:sessions:{id} - demo session metadata with TTL
//   - demo:data:{id}:{resource_type} - demo resource collections with TTL
//   - demo:active_sessions - demo session registry, no TTL
//   - demo:session_count - demo session counter, no TTL
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned when a key does not exist in the store or has expired.
// This is a sentinel error that callers can check to distinguish between
// a cache miss (expected) and an actual error (unexpected).
var ErrCacheMiss = errors.New("cache miss")

// Store defines the minimal expiring key-value contract.
//
// Values are opaque byte slices. A ttl of zero stores the key without
// expiry; any positive ttl makes the key disappear on its own once elapsed,
// independent of explicit deletes.
//
// Thread Safety: Implementations must be safe for concurrent use. Sequences of
// calls are not atomic.
type Store interface {
	// Close releases the store's resources.
	Close() error

	// Ping verifies connectivity to the backing server.
	Ping(ctx context.Context) error

	// Get returns the value stored at key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key, replacing any previous value and TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// GetJSON loads key and unmarshals it into dst.
// Returns ErrCacheMiss when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, dst any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals value and stores it at key with the given ttl.
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}
