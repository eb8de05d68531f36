// Package repository provides persistence for real tenants' fleet data.
package repository

import (
	"context"

	"github.com/fleetdesk/fleet-service/internal/models"
)

// FleetRepository defines tenant-scoped CRUD over the fleet collections.
// Its method set matches the demo resource store so handlers can serve either.
type FleetRepository interface {
	// List returns one 1-based page of a tenant's collection ordered by id.
	List(ctx context.Context, tenantID string, rt models.ResourceType, page, pageSize int) ([]models.Item, error)

	// GetAll returns a tenant's whole collection ordered by id.
	GetAll(ctx context.Context, tenantID string, rt models.ResourceType) ([]models.Item, error)

	// GetItem returns one item and whether it exists.
	GetItem(ctx context.Context, tenantID string, rt models.ResourceType, id int64) (models.Item, bool, error)

	// CreateItem stores fields as a new item and returns it with its assigned id.
	CreateItem(ctx context.Context, tenantID string, rt models.ResourceType, fields map[string]any) (models.Item, error)

	// UpdateItem replaces an item's fields. It reports false when no item matched.
	UpdateItem(
		ctx context.Context,
		tenantID string,
		rt models.ResourceType,
		id int64,
		fields map[string]any,
	) (models.Item, bool, error)

	// DeleteItem removes an item and reports whether it existed.
	DeleteItem(ctx context.Context, tenantID string, rt models.ResourceType, id int64) (bool, error)
}
