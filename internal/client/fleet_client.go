package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/reports"
)

// FleetClient calls the authenticated fleet endpoints. It embeds BaseClient
// and injects bearer tokens from its TokenManager.
type FleetClient struct {
	*BaseClient

	tokens  TokenManager
	session *models.DemoStartResponse
}

// NewFleetClient creates a client authenticating with tokens.
func NewFleetClient(baseClient *BaseClient, tokens TokenManager) *FleetClient {
	return &FleetClient{
		BaseClient: baseClient,
		tokens:     tokens,
	}
}

// StartDemo opens a new demo session and returns a client acting as its
// principal.
func StartDemo(ctx context.Context, baseClient *BaseClient) (*FleetClient, error) {
	resp, err := baseClient.Do(ctx, http.MethodPost, "/auth/demo/start", nil)
	if err != nil {
		return nil, err
	}

	var started models.DemoStartResponse
	if err := decodeResponse(resp, http.StatusCreated, &started); err != nil {
		return nil, fmt.Errorf("failed to start demo session: %w", err)
	}

	baseClient.logger.WithField("session_id", started.SessionID).Debug("Demo session started")

	c := NewFleetClient(baseClient, NewTokenManager(baseClient, started.AccessToken, started.RefreshToken))
	c.session = &started
	return c, nil
}

// Session returns the demo session the client was started with, or nil.
func (c *FleetClient) Session() *models.DemoStartResponse {
	return c.session
}

// EndDemo cleans up the client's demo session. It is a no-op for clients not
// created by StartDemo.
func (c *FleetClient) EndDemo(ctx context.Context) error {
	if c.session == nil {
		return nil
	}

	resp, err := c.Do(ctx, http.MethodPost, "/auth/demo/cleanup", models.DemoCleanupRequest{
		SessionID: c.session.SessionID,
	})
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, http.StatusOK, nil); err != nil {
		return fmt.Errorf("failed to clean up demo session: %w", err)
	}
	return nil
}

// DoWithAuth executes an authenticated request. On 401 Unauthorized it
// invalidates the token and retries once. The caller closes the response body.
func (c *FleetClient) DoWithAuth(
	ctx context.Context,
	method string,
	path string,
	body any,
) (*http.Response, error) {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	resp, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()

		c.logger.Debug("Received 401 Unauthorized, invalidating token and retrying")
		c.tokens.InvalidateToken()

		token, err = c.tokens.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh access token: %w", err)
		}

		resp, err = c.do(ctx, method, path, token, body)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

func collectionPath(rt models.ResourceType) string {
	return "/" + string(rt)
}

func itemPath(rt models.ResourceType, id int64) string {
	return collectionPath(rt) + "/" + strconv.FormatInt(id, 10)
}

// List returns one page of a collection. Zero page or pageSize leave the
// server defaults in place.
func (c *FleetClient) List(ctx context.Context, rt models.ResourceType, page, pageSize int) (*models.ItemPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}
	path := collectionPath(rt)
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := c.DoWithAuth(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out models.ItemPage
	if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", rt, err)
	}
	return &out, nil
}

// Get returns one item.
func (c *FleetClient) Get(ctx context.Context, rt models.ResourceType, id int64) (models.Item, error) {
	resp, err := c.DoWithAuth(ctx, http.MethodGet, itemPath(rt, id), nil)
	if err != nil {
		return nil, err
	}
	var item models.Item
	if err := decodeResponse(resp, http.StatusOK, &item); err != nil {
		return nil, fmt.Errorf("failed to get %s %d: %w", rt, id, err)
	}
	return item, nil
}

// Create stores fields as a new item and returns it with its assigned id.
func (c *FleetClient) Create(ctx context.Context, rt models.ResourceType, fields map[string]any) (models.Item, error) {
	resp, err := c.DoWithAuth(ctx, http.MethodPost, collectionPath(rt), fields)
	if err != nil {
		return nil, err
	}
	var item models.Item
	if err := decodeResponse(resp, http.StatusCreated, &item); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", rt, err)
	}
	return item, nil
}

// Update replaces an item's fields.
func (c *FleetClient) Update(
	ctx context.Context,
	rt models.ResourceType,
	id int64,
	fields map[string]any,
) (models.Item, error) {
	resp, err := c.DoWithAuth(ctx, http.MethodPut, itemPath(rt, id), fields)
	if err != nil {
		return nil, err
	}
	var item models.Item
	if err := decodeResponse(resp, http.StatusOK, &item); err != nil {
		return nil, fmt.Errorf("failed to update %s %d: %w", rt, id, err)
	}
	return item, nil
}

// Delete removes an item.
func (c *FleetClient) Delete(ctx context.Context, rt models.ResourceType, id int64) error {
	resp, err := c.DoWithAuth(ctx, http.MethodDelete, itemPath(rt, id), nil)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", rt, id, err)
	}
	return nil
}

// Me describes the principal the client's token speaks for.
func (c *FleetClient) Me(ctx context.Context) (*models.MeResponse, error) {
	resp, err := c.DoWithAuth(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	var me models.MeResponse
	if err := decodeResponse(resp, http.StatusOK, &me); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return &me, nil
}

// ReportQuery narrows a report. Periods are "YYYY-MM"; empty fields are
// unbounded. Status only applies to the insurance and inspection report.
type ReportQuery struct {
	From   string
	To     string
	CarID  int64
	Status string
}

func (q ReportQuery) encode() string {
	values := url.Values{}
	if q.From != "" {
		values.Set("from", q.From)
	}
	if q.To != "" {
		values.Set("to", q.To)
	}
	if q.CarID != 0 {
		values.Set("car", strconv.FormatInt(q.CarID, 10))
	}
	if q.Status != "" {
		values.Set("status", q.Status)
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// FuelConsumption fetches the fuel consumption report.
func (c *FleetClient) FuelConsumption(ctx context.Context, q ReportQuery) (*reports.FuelConsumptionReport, error) {
	resp, err := c.DoWithAuth(ctx, http.MethodGet, "/reports/fuel-consumption"+q.encode(), nil)
	if err != nil {
		return nil, err
	}
	var report reports.FuelConsumptionReport
	if err := decodeResponse(resp, http.StatusOK, &report); err != nil {
		return nil, fmt.Errorf("failed to fetch fuel consumption report: %w", err)
	}
	return &report, nil
}

// CostSummary fetches the cost summary report.
func (c *FleetClient) CostSummary(ctx context.Context, q ReportQuery) (*reports.CostSummaryReport, error) {
	resp, err := c.DoWithAuth(ctx, http.MethodGet, "/reports/cost-summary"+q.encode(), nil)
	if err != nil {
		return nil, err
	}
	var report reports.CostSummaryReport
	if err := decodeResponse(resp, http.StatusOK, &report); err != nil {
		return nil, fmt.Errorf("failed to fetch cost summary report: %w", err)
	}
	return &report, nil
}

// MaintenanceCosts fetches the maintenance costs report.
func (c *FleetClient) MaintenanceCosts(ctx context.Context, q ReportQuery) (*reports.MaintenanceCostsReport, error) {
	resp, err := c.DoWithAuth(ctx, http.MethodGet, "/reports/maintenance-costs"+q.encode(), nil)
	if err != nil {
		return nil, err
	}
	var report reports.MaintenanceCostsReport
	if err := decodeResponse(resp, http.StatusOK, &report); err != nil {
		return nil, fmt.Errorf("failed to fetch maintenance costs report: %w", err)
	}
	return &report, nil
}

// InsuranceInspection fetches the insurance and inspection coverage report.
func (c *FleetClient) InsuranceInspection(
	ctx context.Context,
	q ReportQuery,
) (*reports.InsuranceInspectionReport, error) {
	resp, err := c.DoWithAuth(ctx, http.MethodGet, "/reports/insurance-inspection"+q.encode(), nil)
	if err != nil {
		return nil, err
	}
	var report reports.InsuranceInspectionReport
	if err := decodeResponse(resp, http.StatusOK, &report); err != nil {
		return nil, fmt.Errorf("failed to fetch insurance and inspection report: %w", err)
	}
	return &report, nil
}

// GeneratedReport is a JSON report built by the generate endpoint. Data and
// Summary keep the shape of the requested report type.
type GeneratedReport struct {
	ReportType string          `json:"report_type"`
	FromDate   string          `json:"from_date"`
	ToDate     string          `json:"to_date"`
	Data       json.RawMessage `json:"data"`
	Summary    json.RawMessage `json:"summary"`
}

// Generate builds any report type as JSON. req.ExportFormat is ignored.
func (c *FleetClient) Generate(ctx context.Context, req models.GenerateReportRequest) (*GeneratedReport, error) {
	req.ExportFormat = ""
	resp, err := c.DoWithAuth(ctx, http.MethodPost, "/reports/generate", req)
	if err != nil {
		return nil, err
	}
	var report GeneratedReport
	if err := decodeResponse(resp, http.StatusOK, &report); err != nil {
		return nil, fmt.Errorf("failed to generate %s report: %w", req.ReportType, err)
	}
	return &report, nil
}
