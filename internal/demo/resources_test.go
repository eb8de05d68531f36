package demo_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleet-service/internal/demo"
	"github.com/fleetdesk/fleet-service/internal/models"
)

func newSession(t *testing.T, f *fixture) string {
	t.Helper()
	session, err := f.manager.CreateSession(context.Background())
	require.NoError(t, err)
	return session.SessionID
}

func TestResourceStore_List(t *testing.T) {
	f := newFixture(t, 10, 7200)
	sid := newSession(t, f)

	tests := []struct {
		name     string
		page     int
		pageSize int
		want     []int64
	}{
		{"first_page", 1, 2, []int64{1, 2}},
		{"second_page", 2, 2, []int64{3}},
		{"past_the_end", 3, 2, []int64{}},
		{"far_past_the_end", 1000, 50, []int64{}},
		{"zero_page_is_first", 0, 2, []int64{1, 2}},
		{"negative_page_is_first", -4, 1, []int64{1}},
		{"default_page_size", 1, 0, []int64{1, 2, 3}},
		{"exact_fit", 1, 3, []int64{1, 2, 3}},
		{"huge_page_size_clamps", 1, math.MaxInt, []int64{1, 2, 3}},
		{"huge_page_size_minus_one_clamps", 1, math.MaxInt - 1, []int64{1, 2, 3}},
		{"second_page_of_huge_size", 2, math.MaxInt, []int64{}},
		{"huge_page", math.MaxInt, 1, []int64{}},
		{"huge_page_and_size", math.MaxInt, math.MaxInt, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := f.resources.List(context.Background(), sid, models.ResourceCars, tt.page, tt.pageSize)
			require.NoError(t, err)
			require.NotNil(t, items)
			assert.Equal(t, tt.want, itemIDs(t, items))
		})
	}
}

func TestResourceStore_MaintenanceCollections(t *testing.T) {
	f := newFixture(t, 10, 7200)
	ctx := context.Background()
	sid := newSession(t, f)

	for _, rt := range []models.ResourceType{models.ResourceSpares, models.ResourceTires, models.ResourceAccumulators} {
		items, err := f.resources.GetAll(ctx, sid, rt)
		require.NoError(t, err)
		assert.Empty(t, items, "%s starts empty", rt)

		item, err := f.resources.CreateItem(ctx, sid, rt, map[string]any{"car_id": 1, "installed_at": "2026-01-10"})
		require.NoError(t, err)
		id, _ := item.ID()
		assert.Equal(t, int64(1), id)
	}

	require.NoError(t, f.manager.CleanupSession(ctx, sid))

	spares, err := f.resources.GetAll(ctx, sid, models.ResourceSpares)
	require.NoError(t, err)
	assert.Empty(t, spares, "cleanup removes every collection of the session")
}

func TestResourceStore_ListUnknownSession(t *testing.T) {
	f := newFixture(t, 10, 7200)

	items, err := f.resources.List(context.Background(), "unknown", models.ResourceFuel, 1, 20)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestResourceStore_IDAssignment(t *testing.T) {
	f := newFixture(t, 10, 7200)
	ctx := context.Background()
	sid := newSession(t, f)

	for _, want := range []int64{4, 5, 6} {
		item, err := f.resources.CreateItem(ctx, sid, models.ResourceCars, map[string]any{"brand": "Lada"})
		require.NoError(t, err)
		id, ok := item.ID()
		require.True(t, ok)
		assert.Equal(t, want, id)
	}

	deleted, err := f.resources.DeleteItem(ctx, sid, models.ResourceCars, 5)
	require.NoError(t, err)
	assert.True(t, deleted)

	item, err := f.resources.CreateItem(ctx, sid, models.ResourceCars, map[string]any{"brand": "UAZ"})
	require.NoError(t, err)
	id, _ := item.ID()
	assert.Equal(t, int64(7), id)

	all, err := f.resources.GetAll(ctx, sid, models.ResourceCars)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 6, 7}, itemIDs(t, all))
}

func TestResourceStore_CreateItemOverridesCallerID(t *testing.T) {
	f := newFixture(t, 10, 7200)
	sid := newSession(t, f)

	item, err := f.resources.CreateItem(context.Background(), sid, models.ResourceInspections,
		map[string]any{"id": 1, "number": "X-1"})
	require.NoError(t, err)

	id, _ := item.ID()
	assert.Equal(t, int64(4), id)
	assert.Equal(t, "X-1", item["number"])
}

func TestResourceStore_CreateItemInEmptyCollection(t *testing.T) {
	f := newFixture(t, 10, 7200)

	item, err := f.resources.CreateItem(context.Background(), "no-session", models.ResourceCars,
		map[string]any{"brand": "Lada"})
	require.NoError(t, err)
	id, _ := item.ID()
	assert.Equal(t, int64(1), id)
}

func TestResourceStore_GetItem(t *testing.T) {
	f := newFixture(t, 10, 7200)
	ctx := context.Background()
	sid := newSession(t, f)

	item, found, err := f.resources.GetItem(ctx, sid, models.ResourceCars, 2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "BMW", item["brand"])

	_, found, err = f.resources.GetItem(ctx, sid, models.ResourceCars, 42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResourceStore_UpdateItem(t *testing.T) {
	f := newFixture(t, 10, 7200)
	ctx := context.Background()
	sid := newSession(t, f)

	updated, found, err := f.resources.UpdateItem(ctx, sid, models.ResourceCars, 2,
		map[string]any{"id": 99, "brand": "Lada", "color": "white"})
	require.NoError(t, err)
	require.True(t, found)

	id, _ := updated.ID()
	assert.Equal(t, int64(2), id)

	stored, found, err := f.resources.GetItem(ctx, sid, models.ResourceCars, 2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Lada", stored["brand"])
	assert.Equal(t, "white", stored["color"], "unknown fields pass through")
	assert.NotContains(t, stored, "numplate", "update replaces the whole item")

	all, err := f.resources.GetAll(ctx, sid, models.ResourceCars)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, itemIDs(t, all), "position is preserved")

	_, found, err = f.resources.UpdateItem(ctx, sid, models.ResourceCars, 42, map[string]any{"brand": "x"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResourceStore_DeleteItem(t *testing.T) {
	f := newFixture(t, 10, 7200)
	ctx := context.Background()
	sid := newSession(t, f)

	deleted, err := f.resources.DeleteItem(ctx, sid, models.ResourceInsurances, 42)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = f.resources.DeleteItem(ctx, sid, models.ResourceInsurances, 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.resources.DeleteItem(ctx, sid, models.ResourceInsurances, 1)
	require.NoError(t, err)
	assert.False(t, deleted)

	all, err := f.resources.GetAll(ctx, sid, models.ResourceInsurances)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, itemIDs(t, all))
}

func TestResourceStore_SessionIsolation(t *testing.T) {
	f := newFixture(t, 10, 7200)
	ctx := context.Background()
	a := newSession(t, f)
	b := newSession(t, f)

	_, err := f.resources.CreateItem(ctx, a, models.ResourceCars, map[string]any{"brand": "Lada"})
	require.NoError(t, err)
	_, _, err = f.resources.UpdateItem(ctx, a, models.ResourceCars, 1, map[string]any{"brand": "Changed"})
	require.NoError(t, err)
	_, err = f.resources.DeleteItem(ctx, a, models.ResourceFuel, 1)
	require.NoError(t, err)

	carsA, err := f.resources.GetAll(ctx, a, models.ResourceCars)
	require.NoError(t, err)
	assert.Len(t, carsA, 4)

	carsB, err := f.resources.GetAll(ctx, b, models.ResourceCars)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, itemIDs(t, carsB))
	assert.Equal(t, "Toyota", carsB[0]["brand"])

	fuelB, err := f.resources.GetAll(ctx, b, models.ResourceFuel)
	require.NoError(t, err)
	assert.Len(t, fuelB, 9)

	template := demo.Template()
	assert.Len(t, template[models.ResourceCars], 3)
	assert.Equal(t, "Toyota", template[models.ResourceCars][0]["brand"])
	assert.Len(t, template[models.ResourceFuel], 9)
}

func TestResourceStore_ReturnedItemsAreCopies(t *testing.T) {
	f := newFixture(t, 10, 7200)
	ctx := context.Background()
	sid := newSession(t, f)

	all, err := f.resources.GetAll(ctx, sid, models.ResourceCars)
	require.NoError(t, err)
	all[0]["brand"] = "Mutated"

	again, err := f.resources.GetAll(ctx, sid, models.ResourceCars)
	require.NoError(t, err)
	assert.Equal(t, "Toyota", again[0]["brand"])
}
