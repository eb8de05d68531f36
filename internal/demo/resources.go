package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/config"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/redis"
)

const (
	// DefaultPageSize is used when a caller passes a page size below one.
	DefaultPageSize = 20
	// MaxPageSize bounds the page size accepted over HTTP.
	MaxPageSize = 1000
)

// ResourceStore provides CRUD over a session's collections.
//
// Every mutation loads the whole collection, edits it in memory and writes it
// back with a fresh TTL. Concurrent mutations of the same collection race and
// the last write wins.
type ResourceStore struct {
	store  redis.Store
	ttl    time.Duration
	logger *logrus.Logger
}

// NewResourceStore creates a resource store whose writes expire after the session TTL.
func NewResourceStore(store redis.Store, cfg config.DemoConfig, logger *logrus.Logger) *ResourceStore {
	return &ResourceStore{
		store:  store,
		ttl:    cfg.SessionTTL(),
		logger: logger,
	}
}

func (s *ResourceStore) load(ctx context.Context, sessionID string, rt models.ResourceType) ([]models.Item, error) {
	data, err := s.store.Get(ctx, dataKey(sessionID, rt))
	if errors.Is(err, redis.ErrCacheMiss) {
		return []models.Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load demo %s: %w", rt, err)
	}

	items, err := models.DecodeItems(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode demo %s: %w", rt, err)
	}
	return items, nil
}

func (s *ResourceStore) save(ctx context.Context, sessionID string, rt models.ResourceType, items []models.Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode demo %s: %w", rt, err)
	}
	if err := s.store.Set(ctx, dataKey(sessionID, rt), data, s.ttl); err != nil {
		return fmt.Errorf("failed to save demo %s: %w", rt, err)
	}
	return nil
}

// List returns one page of a collection. Pages are 1-based and positional; a
// page past the end yields an empty slice. page < 1 is treated as 1 and
// pageSize < 1 as DefaultPageSize.
func (s *ResourceStore) List(
	ctx context.Context,
	sessionID string,
	rt models.ResourceType,
	page, pageSize int,
) ([]models.Item, error) {
	items, err := s.load(ctx, sessionID, rt)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	// (page-1)*pageSize is only computed once it is known to be below len(items).
	if len(items) == 0 || page-1 > (len(items)-1)/pageSize {
		return []models.Item{}, nil
	}
	start := (page - 1) * pageSize
	end := start + min(pageSize, len(items)-start)
	return items[start:end], nil
}

// GetAll returns the whole collection, or an empty slice when it does not exist.
func (s *ResourceStore) GetAll(ctx context.Context, sessionID string, rt models.ResourceType) ([]models.Item, error) {
	return s.load(ctx, sessionID, rt)
}

// GetItem returns the item with the given id and whether it exists.
func (s *ResourceStore) GetItem(
	ctx context.Context,
	sessionID string,
	rt models.ResourceType,
	itemID int64,
) (models.Item, bool, error) {
	items, err := s.load(ctx, sessionID, rt)
	if err != nil {
		return nil, false, err
	}
	for _, item := range items {
		if id, ok := item.ID(); ok && id == itemID {
			return item, true, nil
		}
	}
	return nil, false, nil
}

// CreateItem appends fields as a new item with id = max(existing ids) + 1.
// Ids are never reused after a delete unless the deleted item held the maximum.
func (s *ResourceStore) CreateItem(
	ctx context.Context,
	sessionID string,
	rt models.ResourceType,
	fields map[string]any,
) (models.Item, error) {
	items, err := s.load(ctx, sessionID, rt)
	if err != nil {
		return nil, err
	}

	var maxID int64
	for _, item := range items {
		if id, ok := item.ID(); ok && id > maxID {
			maxID = id
		}
	}

	item := models.WithID(maxID+1, fields)
	items = append(items, item)
	if err := s.save(ctx, sessionID, rt, items); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":    sessionID,
		"resource_type": rt,
		"item_id":       maxID + 1,
	}).Debug("Demo item created")

	return item, nil
}

// UpdateItem replaces the first item with itemID by fields. Fields not present
// in the update are dropped. It reports false when no item matched.
func (s *ResourceStore) UpdateItem(
	ctx context.Context,
	sessionID string,
	rt models.ResourceType,
	itemID int64,
	fields map[string]any,
) (models.Item, bool, error) {
	items, err := s.load(ctx, sessionID, rt)
	if err != nil {
		return nil, false, err
	}

	for i, existing := range items {
		if id, ok := existing.ID(); !ok || id != itemID {
			continue
		}

		item := models.WithID(itemID, fields)
		items[i] = item
		if err := s.save(ctx, sessionID, rt, items); err != nil {
			return nil, false, err
		}
		return item, true, nil
	}

	return nil, false, nil
}

// DeleteItem removes every item with itemID and reports whether any was removed.
// The collection is only rewritten when it shrank.
func (s *ResourceStore) DeleteItem(
	ctx context.Context,
	sessionID string,
	rt models.ResourceType,
	itemID int64,
) (bool, error) {
	items, err := s.load(ctx, sessionID, rt)
	if err != nil {
		return false, err
	}

	kept := make([]models.Item, 0, len(items))
	for _, item := range items {
		if id, ok := item.ID(); ok && id == itemID {
			continue
		}
		kept = append(kept, item)
	}

	if len(kept) == len(items) {
		return false, nil
	}
	if err := s.save(ctx, sessionID, rt, kept); err != nil {
		return false, err
	}
	return true, nil
}
