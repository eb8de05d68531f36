package redis

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// CleanupInterval is the interval between expired item cleanup runs.
	CleanupInterval = 5 * time.Minute
)

// MemoryStore is an in-memory implementation of the Store interface.
// It provides the same functionality as the Redis store but without persistence.
// Expired keys are invisible to readers immediately and are reclaimed by a
// background cleanup goroutine.
type MemoryStore struct {
	items         map[string]*expiringItem
	logger        *logrus.Logger
	now           func() time.Time
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithClock replaces time.Now as the store's time source.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// expiringItem wraps data with expiration time for TTL support.
// A zero ExpiresAt never expires.
type expiringItem struct {
	Data      []byte
	ExpiresAt time.Time
}

// isExpired checks if the item has expired at the given instant.
func (e *expiringItem) isExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// NewMemoryStore creates a new in-memory store with TTL cleanup.
func NewMemoryStore(logger *logrus.Logger, opts ...MemoryStoreOption) *MemoryStore {
	store := &MemoryStore{
		items:         make(map[string]*expiringItem),
		logger:        logger,
		now:           time.Now,
		cleanupTicker: time.NewTicker(CleanupInterval),
		stopCleanup:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(store)
	}

	go store.cleanupExpiredItems()

	logger.Info("In-memory store initialized with TTL cleanup")
	return store
}

// cleanupExpiredItems runs periodically to remove expired items.
func (m *MemoryStore) cleanupExpiredItems() {
	defer m.cleanupTicker.Stop()

	for {
		select {
		case <-m.cleanupTicker.C:
			m.performCleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

// performCleanup removes expired items and returns how many were reclaimed.
func (m *MemoryStore) performCleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expired := 0
	for key, item := range m.items {
		if item.isExpired(now) {
			delete(m.items, key)
			expired++
		}
	}

	if expired > 0 {
		m.logger.WithField("expired_items", expired).Debug("Cleaned up expired items from memory store")
	}
	return expired
}

// Close shuts down the memory store and cleanup goroutine. It is safe to call more than once.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCleanup)
		m.logger.Info("Memory store closed")
	})
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Get returns a copy of the value stored at key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[key]
	if !ok || item.isExpired(m.now()) {
		return nil, ErrCacheMiss
	}

	out := make([]byte, len(item.Data))
	copy(out, item.Data)
	return out, nil
}

// Set stores a copy of value at key. A zero ttl never expires.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	item := &expiringItem{Data: data}
	if ttl > 0 {
		item.ExpiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

// Len returns the number of live (unexpired) keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	n := 0
	for _, item := range m.items {
		if !item.isExpired(now) {
			n++
		}
	}
	return n
}
