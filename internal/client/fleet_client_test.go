package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleet-service/internal/client"
	"github.com/fleetdesk/fleet-service/internal/config"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/redis"
	"github.com/fleetdesk/fleet-service/internal/startup"
)

// newFleetServer runs the full service over an in-memory store.
func newFleetServer(t *testing.T) *client.BaseClient {
	t.Helper()

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:             "client-test-secret-key-at-least-32-chars", // pragma: allowlist secret
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: time.Hour,
			Issuer:             "fleet-service",
			Algorithm:          "HS256",
		},
		Demo: config.DemoConfig{SessionLimit: 10, SessionTTLSeconds: 3600},
		Security: config.SecurityConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
			AllowedHeaders: []string{"*"},
		},
	}
	log := quietLogger()

	services := startup.NewServices(cfg, log, redis.NewMemoryStore(log), nil, nil)
	t.Cleanup(func() { _ = services.Close() })

	registry := prometheus.NewRegistry()
	require.NoError(t, services.Register(registry))

	server := httptest.NewServer(startup.NewRouter(services, registry))
	t.Cleanup(server.Close)

	return client.NewBaseClient(server.URL+startup.APIPrefix, 10*time.Second, log)
}

func TestFleetClient_DemoWorkflow(t *testing.T) {
	ctx := context.Background()
	fleet, err := client.StartDemo(ctx, newFleetServer(t))
	require.NoError(t, err)
	require.NotNil(t, fleet.Session())
	assert.True(t, fleet.Session().IsDemo)

	page, err := fleet.List(ctx, models.ResourceCars, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Results, 2)
	assert.Equal(t, 2, page.PageSize)

	created, err := fleet.Create(ctx, models.ResourceFuel, map[string]any{"car_id": 1, "liters": 42.5, "cost": 3400})
	require.NoError(t, err)
	id, ok := created.ID()
	require.True(t, ok)

	got, err := fleet.Get(ctx, models.ResourceFuel, id)
	require.NoError(t, err)
	assert.Equal(t, json.Number("42.5"), got["liters"])

	updated, err := fleet.Update(ctx, models.ResourceFuel, id, map[string]any{"car_id": 1, "liters": 40})
	require.NoError(t, err)
	assert.NotContains(t, updated, "cost")

	require.NoError(t, fleet.Delete(ctx, models.ResourceFuel, id))

	_, err = fleet.Get(ctx, models.ResourceFuel, id)
	var apiErr *models.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	fuel, err := fleet.FuelConsumption(ctx, client.ReportQuery{CarID: 2})
	require.NoError(t, err)
	require.Len(t, fuel.ByCar, 1)
	assert.Equal(t, 11.49, fuel.ByCar[0].AvgConsumption)

	costs, err := fleet.CostSummary(ctx, client.ReportQuery{})
	require.NoError(t, err)
	assert.InDelta(t, 63636, costs.Totals.Total, 0.001)

	_, err = fleet.CostSummary(ctx, client.ReportQuery{From: "2024-13"})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	me, err := fleet.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, fleet.Session().Username, me.Username)
	assert.True(t, me.IsDemo)

	_, err = fleet.Create(ctx, models.ResourceSpares, map[string]any{
		"car_id": 3, "title": "Battery", "part_price": 7000, "job_price": 500, "installed_at": "2026-01-20",
	})
	require.NoError(t, err)

	maintenance, err := fleet.MaintenanceCosts(ctx, client.ReportQuery{})
	require.NoError(t, err)
	require.Len(t, maintenance.ByCar, 1)
	assert.InDelta(t, 7500, maintenance.Totals.Total, 0.001)

	coverage, err := fleet.InsuranceInspection(ctx, client.ReportQuery{CarID: 1})
	require.NoError(t, err)
	assert.Len(t, coverage.Items, 2)

	_, err = fleet.InsuranceInspection(ctx, client.ReportQuery{Status: "lapsed"})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	generated, err := fleet.Generate(ctx, models.GenerateReportRequest{
		ReportType:   "vehicle_utilization",
		FromDate:     "2025-11-01",
		ToDate:       "2026-01-31",
		ExportFormat: "xlsx",
	})
	require.NoError(t, err)
	assert.Equal(t, "vehicle_utilization", generated.ReportType)
	assert.JSONEq(t, `{"total_vehicles": 3, "total_mileage": 4490}`, string(generated.Summary))

	require.NoError(t, fleet.EndDemo(ctx))
}

func TestFleetClient_RetriesWithRefreshedToken(t *testing.T) {
	ctx := context.Background()
	base := newFleetServer(t)

	started, err := client.StartDemo(ctx, base)
	require.NoError(t, err)

	// A token signed with another key looks fresh locally, so the server's
	// 401 is what triggers the refresh.
	forged := signedToken(t, time.Now().Add(time.Hour))
	fleet := client.NewFleetClient(base, client.NewTokenManager(base, forged, started.Session().RefreshToken))
	page, err := fleet.List(ctx, models.ResourceCars, 0, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, page.Results)
}

func TestFleetClient_EndedSessionCannotRefresh(t *testing.T) {
	ctx := context.Background()
	base := newFleetServer(t)

	fleet, err := client.StartDemo(ctx, base)
	require.NoError(t, err)
	require.NoError(t, fleet.EndDemo(ctx))

	stale := client.NewFleetClient(base, client.NewTokenManager(base, "stale", fleet.Session().RefreshToken))
	_, err = stale.List(ctx, models.ResourceCars, 0, 0)
	assert.ErrorIs(t, err, client.ErrSessionExpired)

	// Clients not started as a demo have nothing to end.
	assert.NoError(t, stale.EndDemo(ctx))
}
