package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/config"
	"github.com/fleetdesk/fleet-service/internal/demo"
	"github.com/fleetdesk/fleet-service/internal/handlers"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/redis"
	"github.com/fleetdesk/fleet-service/internal/reports"
	"github.com/fleetdesk/fleet-service/pkg/logger"
)

// newReportsRouter starts a seeded demo session and returns a router serving
// reports for it.
func newReportsRouter(t *testing.T) (http.Handler, *auth.Principal) {
	t.Helper()

	log := logger.New("error", "json", "stdout")
	cfg := config.DemoConfig{SessionLimit: 5, SessionTTLSeconds: 3600}
	store := redis.NewMemoryStore(log)
	t.Cleanup(func() { _ = store.Close() })

	session, err := demo.NewManager(store, cfg, log).CreateSession(context.Background())
	require.NoError(t, err)

	resources := demo.NewResourceStore(store, cfg, log)
	_, err = resources.CreateItem(context.Background(), session.SessionID, models.ResourceSpares, map[string]any{
		"car_id": 2, "title": "Gearbox", "part_price": 5000, "job_price": 1500, "installed_at": "2026-01-05",
	})
	require.NoError(t, err)

	// Coverage statuses are computed as of 2026-05-10.
	clock := reports.WithClock(func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) })

	router := mux.NewRouter()
	handlers.NewReportsHandler(resources, unavailableRepository{}, log, clock).RegisterRoutes(router)

	principal := &auth.Principal{
		Username:  session.Username,
		TenantID:  session.CompanyID,
		Role:      auth.RoleDemoAdmin,
		IsDemo:    true,
		SessionID: session.SessionID,
	}
	return router, principal
}

func getAs(router http.Handler, principal *auth.Principal, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	asPrincipal(principal, router).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func postAs(router http.Handler, principal *auth.Principal, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	asPrincipal(principal, router).ServeHTTP(rr, req)
	return rr
}

func TestReportsHandler_FuelConsumption(t *testing.T) {
	router, principal := newReportsRouter(t)

	rr := getAs(router, principal, "/reports/fuel-consumption")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var report reports.FuelConsumptionReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Len(t, report.ByCar, 3)
	assert.Equal(t, int64(2), report.ByCar[0].CarID)
	assert.Equal(t, reports.FuelTotals{
		TotalLiters:    451.7,
		TotalCost:      36136,
		TotalMileage:   4490,
		AvgConsumption: 10.06,
	}, report.Totals)

	rr = getAs(router, principal, "/reports/fuel-consumption?car=2")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Len(t, report.ByCar, 1)
	assert.Equal(t, 11.49, report.ByCar[0].AvgConsumption)
	assert.Equal(t, int64(2), report.Filters.CarID)
}

func TestReportsHandler_CSV(t *testing.T) {
	router, principal := newReportsRouter(t)

	rr := getAs(router, principal, "/reports/cost-summary?format=csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="cost-summary.csv"`)

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Numplate,Fuel,Insurance,Inspection,Total", lines[0])
	assert.Equal(t, "TOTAL,36136,18500,9000,63636", lines[4])

	rr = getAs(router, principal, "/reports/fuel-consumption?format=csv&car=2")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Б002ББ,BMW,165.5,13240,1440,11.49")
}

func TestReportsHandler_Errors(t *testing.T) {
	router, principal := newReportsRouter(t)
	tenant := &auth.Principal{TenantID: "acme", Role: auth.RoleAccountant}

	tests := []struct {
		name       string
		principal  *auth.Principal
		path       string
		wantStatus int
	}{
		{"bad_month", principal, "/reports/fuel-consumption?from=2024-13", http.StatusBadRequest},
		{"bad_date", principal, "/reports/cost-summary?to=yesterday", http.StatusBadRequest},
		{"bad_car", principal, "/reports/cost-summary?car=bmw", http.StatusBadRequest},
		{"bad_format", principal, "/reports/cost-summary?format=pdf", http.StatusBadRequest},
		{"bad_status", principal, "/reports/insurance-inspection?status=lapsed", http.StatusBadRequest},
		{"bad_maintenance_period", principal, "/reports/maintenance-costs?from=2026", http.StatusBadRequest},
		{"unauthenticated", nil, "/reports/cost-summary", http.StatusUnauthorized},
		{"tenant_storage_down", tenant, "/reports/fuel-consumption", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := getAs(router, tt.principal, tt.path)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestReportsHandler_MaintenanceCosts(t *testing.T) {
	router, principal := newReportsRouter(t)

	rr := getAs(router, principal, "/reports/maintenance-costs")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var report reports.MaintenanceCostsReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Len(t, report.ByCar, 1)
	assert.Equal(t, "Б002ББ", report.ByCar[0].Numplate)
	assert.Equal(t, reports.MaintenanceTotals{PartTotal: 5000, JobTotal: 1500, Total: 6500}, report.Totals)

	rr = getAs(router, principal, "/reports/maintenance-costs?to=2025-12")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Empty(t, report.ByCar)
}

func TestReportsHandler_InsuranceInspection(t *testing.T) {
	router, principal := newReportsRouter(t)

	tests := []struct {
		name        string
		path        string
		wantSummary reports.CoverageSummary
	}{
		{"all", "/reports/insurance-inspection", reports.CoverageSummary{Active: 3, ExpiringSoon: 3}},
		{"expiring", "/reports/insurance-inspection?status=expiring_soon", reports.CoverageSummary{ExpiringSoon: 3}},
		{"one_car", "/reports/insurance-inspection?car=1&status=active", reports.CoverageSummary{Active: 1}},
		{"expired", "/reports/insurance-inspection?status=expired", reports.CoverageSummary{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := getAs(router, principal, tt.path)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			var report reports.InsuranceInspectionReport
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
			assert.Equal(t, tt.wantSummary, report.Summary)
			assert.Len(t, report.Items, tt.wantSummary.Active+tt.wantSummary.ExpiringSoon+tt.wantSummary.Expired)
		})
	}
}

func TestReportsHandler_XLSX(t *testing.T) {
	router, principal := newReportsRouter(t)

	rr := getAs(router, principal, "/reports/fuel-consumption?format=xlsx")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="fuel-consumption.xlsx"`)

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(reports.DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Numplate", rows[0][0])
	assert.Equal(t, "Б002ББ", rows[1][0])
	assert.Equal(t, "TOTAL", rows[4][0])
}

func TestReportsHandler_Generate(t *testing.T) {
	router, principal := newReportsRouter(t)

	rr := postAs(router, principal, "/reports/generate",
		`{"report_type":"cost_analysis","from_date":"2025-11-01","to_date":"2026-01-31"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result struct {
		ReportType string                      `json:"report_type"`
		FromDate   string                      `json:"from_date"`
		ToDate     string                      `json:"to_date"`
		Data       []reports.CostAnalysisRow   `json:"data"`
		Summary    reports.CostAnalysisSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, "cost_analysis", result.ReportType)
	assert.Equal(t, "2025-11-01", result.FromDate)
	assert.Equal(t, "2026-01-31", result.ToDate)
	require.Len(t, result.Data, 3)
	assert.Equal(t, 3, result.Summary.TotalVehicles)
	assert.InDelta(t, 6500, result.Summary.TotalMaintenanceCost, 0.001)
	assert.InDelta(t, 36136+6500, result.Summary.GrandTotal, 0.001)

	rr = postAs(router, principal, "/reports/generate",
		`{"report_type":"vehicle_utilization","from_date":"2026-01-01","to_date":"2026-01-31","car_ids":[1,3]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var utilization struct {
		Data    []reports.UtilizationRow   `json:"data"`
		Summary reports.UtilizationSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &utilization))
	assert.Equal(t, reports.UtilizationSummary{TotalVehicles: 2, TotalMileage: 1020}, utilization.Summary)

	rr = postAs(router, principal, "/reports/generate",
		`{"report_type":"insurance_inspection","from_date":"2026-01-01","to_date":"2026-12-31","filters":{"status":"expiring_soon"}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var coverage struct {
		Data    []reports.CoverageRow   `json:"data"`
		Summary reports.CoverageSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &coverage))
	assert.Equal(t, reports.CoverageSummary{ExpiringSoon: 3}, coverage.Summary)
	assert.Len(t, coverage.Data, 3)
}

func TestReportsHandler_GenerateExports(t *testing.T) {
	router, principal := newReportsRouter(t)

	rr := postAs(router, principal, "/reports/generate",
		`{"report_type":"maintenance_costs","from_date":"2026-01-01","to_date":"2026-01-31","export_format":"csv"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="report_maintenance_costs.csv"`)
	assert.Equal(t, []string{
		"Numplate,Parts,Labour,Total",
		"Б002ББ,5000,1500,6500",
		"TOTAL,5000,1500,6500",
	}, strings.Split(strings.TrimSpace(rr.Body.String()), "\n"))

	rr = postAs(router, principal, "/reports/generate",
		`{"report_type":"fuel_consumption","from_date":"2025-11-01","to_date":"2026-01-31","export_format":"xlsx"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="report_fuel_consumption.xlsx"`)

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(reports.DefaultSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestReportsHandler_GenerateErrors(t *testing.T) {
	router, principal := newReportsRouter(t)

	tests := []struct {
		name      string
		principal *auth.Principal
		body      string
		wantCode  int
		wantError string
	}{
		{
			name:      "missing_type",
			principal: principal,
			body:      `{"from_date":"2026-01-01","to_date":"2026-01-31"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "report_type, from_date and to_date are required",
		},
		{
			name:      "missing_dates",
			principal: principal,
			body:      `{"report_type":"cost_analysis"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "report_type, from_date and to_date are required",
		},
		{
			name:      "bad_date",
			principal: principal,
			body:      `{"report_type":"cost_analysis","from_date":"01.01.2026","to_date":"2026-01-31"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "invalid date format",
		},
		{
			name:      "reversed_dates",
			principal: principal,
			body:      `{"report_type":"cost_analysis","from_date":"2026-02-01","to_date":"2026-01-31"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "from_date must not be after to_date",
		},
		{
			name:      "unknown_type",
			principal: principal,
			body:      `{"report_type":"fleet_history","from_date":"2026-01-01","to_date":"2026-01-31"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Unknown report type: fleet_history",
		},
		{
			name:      "bad_format",
			principal: principal,
			body:      `{"report_type":"cost_analysis","from_date":"2026-01-01","to_date":"2026-01-31","export_format":"pdf"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "format must be json, csv or xlsx",
		},
		{
			name:      "bad_status",
			principal: principal,
			body:      `{"report_type":"insurance_inspection","from_date":"2026-01-01","to_date":"2026-01-31","filters":{"status":"lapsed"}}`,
			wantCode:  http.StatusBadRequest,
			wantError: "invalid status",
		},
		{
			name:      "malformed_body",
			principal: principal,
			body:      `{"report_type":`,
			wantCode:  http.StatusBadRequest,
			wantError: "Invalid request body",
		},
		{
			name:     "unauthenticated",
			body:     `{"report_type":"cost_analysis","from_date":"2026-01-01","to_date":"2026-01-31"}`,
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postAs(router, tt.principal, "/reports/generate", tt.body)
			assert.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
			if tt.wantError != "" {
				assert.Contains(t, rr.Body.String(), tt.wantError)
			}
		})
	}
}
