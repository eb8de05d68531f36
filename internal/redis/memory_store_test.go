package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleet-service/pkg/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(logger.New("error", "json", "stdout"), WithClock(clock.Now))
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestMemoryStore_SetGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v1"), 0))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, store.Set(ctx, "k", []byte("v2"), time.Minute))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryStore_TTL(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, store.Set(ctx, "forever", []byte("2"), 0))

	clock.Advance(500 * time.Millisecond)
	_, err := store.Get(ctx, "short")
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	got, err := store.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, store.performCleanup())
	assert.Equal(t, 0, store.performCleanup())
}

func TestMemoryStore_SetRefreshesTTL(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("1"), 2*time.Second))
	clock.Advance(1500 * time.Millisecond)
	require.NoError(t, store.Set(ctx, "k", []byte("2"), 2*time.Second))
	clock.Advance(1500 * time.Millisecond)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}

func TestMemoryStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, store.Delete(ctx, "a", "b", "missing"))
	require.NoError(t, store.Delete(ctx))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_JSONHelpers(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	in := map[string]float64{"abc": 1.5}
	require.NoError(t, SetJSON(ctx, store, "json", in, time.Minute))

	var out map[string]float64
	require.NoError(t, GetJSON(ctx, store, "json", &out))
	assert.Equal(t, in, out)

	assert.ErrorIs(t, GetJSON(ctx, store, "absent", &out), ErrCacheMiss)

	require.NoError(t, store.Set(ctx, "broken", []byte("{"), 0))
	err := GetJSON(ctx, store, "broken", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Ping(context.Background()))
}

func TestExpiringItem_IsExpired(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		item expiringItem
		want bool
	}{
		{"no_expiry", expiringItem{Data: []byte("x")}, false},
		{"future", expiringItem{ExpiresAt: now.Add(time.Second)}, false},
		{"exactly_now", expiringItem{ExpiresAt: now}, false},
		{"past", expiringItem{ExpiresAt: now.Add(-time.Nanosecond)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.isExpired(now))
		})
	}
}
