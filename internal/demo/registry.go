package demo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/fleetdesk/fleet-service/internal/redis"
)

// Registry tracks live demo sessions and their creation times.
// It is the authoritative answer to "which sessions exist": its keys carry no
// TTL and change only through Add and Remove.
type Registry struct {
	store redis.Store
}

// RegistryEntry is one registered session.
type RegistryEntry struct {
	SessionID string
	CreatedAt float64 // unix seconds
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store redis.Store) *Registry {
	return &Registry{store: store}
}

// unixSeconds converts t to fractional unix seconds.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Entries returns the registry as a map of session id to creation time.
// A missing registry is an empty one.
func (r *Registry) Entries(ctx context.Context) (map[string]float64, error) {
	entries := map[string]float64{}
	err := redis.GetJSON(ctx, r.store, activeSessionsKey, &entries)
	if err != nil && !errors.Is(err, redis.ErrCacheMiss) {
		return nil, fmt.Errorf("failed to load session registry: %w", err)
	}
	if entries == nil {
		entries = map[string]float64{}
	}
	return entries, nil
}

// List returns every entry ordered by creation time, ties by session id.
func (r *Registry) List(ctx context.Context) ([]RegistryEntry, error) {
	entries, err := r.Entries(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]RegistryEntry, 0, len(entries))
	for id, createdAt := range entries {
		list = append(list, RegistryEntry{SessionID: id, CreatedAt: createdAt})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt < list[j].CreatedAt
		}
		return list[i].SessionID < list[j].SessionID
	})
	return list, nil
}

// Oldest returns the entry with the smallest creation time.
func (r *Registry) Oldest(ctx context.Context) (RegistryEntry, bool, error) {
	list, err := r.List(ctx)
	if err != nil || len(list) == 0 {
		return RegistryEntry{}, false, err
	}
	return list[0], true, nil
}

// Add registers sessionID as created at createdAt.
func (r *Registry) Add(ctx context.Context, sessionID string, createdAt time.Time) error {
	entries, err := r.Entries(ctx)
	if err != nil {
		return err
	}
	entries[sessionID] = unixSeconds(createdAt)
	return r.save(ctx, entries)
}

// Remove unregisters sessionID and reports whether it was registered.
func (r *Registry) Remove(ctx context.Context, sessionID string) (bool, error) {
	entries, err := r.Entries(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := entries[sessionID]; !ok {
		return false, nil
	}
	delete(entries, sessionID)
	return true, r.save(ctx, entries)
}

func (r *Registry) save(ctx context.Context, entries map[string]float64) error {
	if err := redis.SetJSON(ctx, r.store, activeSessionsKey, entries, 0); err != nil {
		return fmt.Errorf("failed to save session registry: %w", err)
	}
	return nil
}

// Count returns the session counter, zero when unset.
func (r *Registry) Count(ctx context.Context) (int, error) {
	data, err := r.store.Get(ctx, sessionCountKey)
	if errors.Is(err, redis.ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load session count: %w", err)
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("invalid session count %q: %w", data, err)
	}
	return n, nil
}

// Increment adds one to the session counter and returns the new value.
func (r *Registry) Increment(ctx context.Context) (int, error) {
	return r.adjust(ctx, 1)
}

// Decrement subtracts one from the session counter, never going below zero,
// and returns the new value.
func (r *Registry) Decrement(ctx context.Context) (int, error) {
	return r.adjust(ctx, -1)
}

func (r *Registry) adjust(ctx context.Context, delta int) (int, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}
	n = max(0, n+delta)
	return n, r.setCount(ctx, n)
}

func (r *Registry) setCount(ctx context.Context, n int) error {
	if err := r.store.Set(ctx, sessionCountKey, []byte(strconv.Itoa(n)), 0); err != nil {
		return fmt.Errorf("failed to save session count: %w", err)
	}
	return nil
}

// Reset empties the registry and zeroes the counter.
func (r *Registry) Reset(ctx context.Context) error {
	if err := r.store.Delete(ctx, activeSessionsKey); err != nil {
		return fmt.Errorf("failed to reset session registry: %w", err)
	}
	return r.setCount(ctx, 0)
}
