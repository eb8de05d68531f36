package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/constants"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/reports"
	"github.com/fleetdesk/fleet-service/internal/repository"
	"github.com/fleetdesk/fleet-service/pkg/logger"
)

// exportFormat is the representation a report is returned in.
type exportFormat string

const (
	formatJSON exportFormat = "json"
	formatCSV  exportFormat = "csv"
	formatXLSX exportFormat = "xlsx"
)

func parseExportFormat(raw string) (exportFormat, error) {
	switch format := exportFormat(raw); format {
	case "", formatJSON:
		return formatJSON, nil
	case formatCSV, formatXLSX:
		return format, nil
	default:
		return "", errors.New("format must be json, csv or xlsx")
	}
}

// ReportsHandler serves the aggregate reports over the caller's fleet data.
type ReportsHandler struct {
	stores scopedStores
	opts   []reports.Option
	logger *logrus.Logger
}

// NewReportsHandler creates a reports handler reading from the same stores as
// the resource endpoints. opts configure every report generator it builds.
func NewReportsHandler(
	demoStore, tenants repository.FleetRepository,
	logger *logrus.Logger,
	opts ...reports.Option,
) *ReportsHandler {
	return &ReportsHandler{
		stores: scopedStores{demo: demoStore, tenants: tenants},
		opts:   opts,
		logger: logger,
	}
}

// RegisterRoutes registers the report routes. The router must already run
// the Authenticate and reports:view permission middleware.
func (h *ReportsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/reports/fuel-consumption", h.FuelConsumption).Methods(http.MethodGet)
	router.HandleFunc("/reports/cost-summary", h.CostSummary).Methods(http.MethodGet)
	router.HandleFunc("/reports/maintenance-costs", h.MaintenanceCosts).Methods(http.MethodGet)
	router.HandleFunc("/reports/insurance-inspection", h.InsuranceInspection).Methods(http.MethodGet)
	router.HandleFunc("/reports/generate", h.Generate).Methods(http.MethodPost)
}

// parseFilter reads the from, to and car query parameters.
func parseFilter(r *http.Request) (reports.Filter, error) {
	query := r.URL.Query()

	var filter reports.Filter
	var err error
	if filter.From, err = reports.ParsePeriod(query.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = reports.ParsePeriod(query.Get("to")); err != nil {
		return filter, err
	}
	if raw := query.Get("car"); raw != "" {
		if filter.CarID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

// reportRequest is the resolved target of a report request.
type reportRequest struct {
	generator *reports.Generator
	scope     string
	log       *logrus.Entry
}

// resolve picks the store and scope for the caller. It writes the error
// response itself and returns nil on failure.
func (h *ReportsHandler) resolve(w http.ResponseWriter, r *http.Request) *reportRequest {
	log := logger.WithCorrelationID(r.Context(), h.logger)

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, log, models.NewUnauthorized("Authentication required"))
		return nil
	}

	store, scope := h.stores.forPrincipal(principal)
	if store == nil {
		writeError(w, log, models.NewServiceUnavailable("Tenant storage is not configured"))
		return nil
	}

	return &reportRequest{
		generator: reports.NewGenerator(store, h.opts...),
		scope:     scope,
		log:       log.WithField("scope", scope),
	}
}

// prepare resolves a GET report request and parses its query filter and
// format. It writes the error response itself and returns nil on failure.
func (h *ReportsHandler) prepare(
	w http.ResponseWriter,
	r *http.Request,
) (*reportRequest, reports.Filter, exportFormat) {
	req := h.resolve(w, r)
	if req == nil {
		return nil, reports.Filter{}, ""
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest("Invalid report filter: "+err.Error()))
		return nil, reports.Filter{}, ""
	}
	format, err := parseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest(err.Error()))
		return nil, reports.Filter{}, ""
	}
	return req, filter, format
}

// writeReport answers with report as JSON, or with table as an attachment
// named name plus the format's extension.
func writeReport(
	w http.ResponseWriter,
	log *logrus.Entry,
	format exportFormat,
	name string,
	report any,
	table reports.Table,
) {
	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	switch format {
	case formatCSV:
		contentType = constants.ContentTypeCSV
		err = reports.WriteCSV(&buf, table)
	case formatXLSX:
		contentType = constants.ContentTypeXLSX
		err = reports.WriteXLSX(&buf, table, reports.DefaultSheetName)
	default:
		writeJSON(w, log, http.StatusOK, report)
		return
	}
	if err != nil {
		log.WithError(err).WithField("format", format).Error("Failed to export report")
		writeError(w, log, models.NewServerError("Failed to export report"))
		return
	}

	w.Header().Set(constants.HeaderContentType, contentType)
	w.Header().Set(constants.HeaderContentDisposition, `attachment; filename="`+name+"."+string(format)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.WithError(err).Warn("Failed to write report export")
	}
}

// FuelConsumption handles GET /reports/fuel-consumption?from=&to=&car=&format=.
//
// Responses:
//   - 200: the report as JSON, or as a CSV or XLSX attachment
//   - 400: malformed filter or format
func (h *ReportsHandler) FuelConsumption(w http.ResponseWriter, r *http.Request) {
	req, filter, format := h.prepare(w, r)
	if req == nil {
		return
	}

	report, err := req.generator.FuelConsumption(r.Context(), req.scope, filter)
	if err != nil {
		storeFailed(w, req.log, err, "Failed to build fuel consumption report")
		return
	}
	writeReport(w, req.log, format, "fuel-consumption", report, report.Table())
}

// CostSummary handles GET /reports/cost-summary?from=&to=&car=&format=.
func (h *ReportsHandler) CostSummary(w http.ResponseWriter, r *http.Request) {
	req, filter, format := h.prepare(w, r)
	if req == nil {
		return
	}

	report, err := req.generator.CostSummary(r.Context(), req.scope, filter)
	if err != nil {
		storeFailed(w, req.log, err, "Failed to build cost summary report")
		return
	}
	writeReport(w, req.log, format, "cost-summary", report, report.Table())
}

// MaintenanceCosts handles GET /reports/maintenance-costs?from=&to=&car=&format=.
func (h *ReportsHandler) MaintenanceCosts(w http.ResponseWriter, r *http.Request) {
	req, filter, format := h.prepare(w, r)
	if req == nil {
		return
	}

	report, err := req.generator.MaintenanceCosts(r.Context(), req.scope, filter)
	if err != nil {
		storeFailed(w, req.log, err, "Failed to build maintenance costs report")
		return
	}
	writeReport(w, req.log, format, "maintenance-costs", report, report.Table())
}

// InsuranceInspection handles GET /reports/insurance-inspection?status=&car=&format=.
//
// Responses:
//   - 200: the report as JSON, or as a CSV or XLSX attachment
//   - 400: unknown status, malformed car or format
func (h *ReportsHandler) InsuranceInspection(w http.ResponseWriter, r *http.Request) {
	req, filter, format := h.prepare(w, r)
	if req == nil {
		return
	}
	status, err := reports.ParseCoverageStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest("Invalid report filter: "+err.Error()))
		return
	}

	report, err := req.generator.InsuranceInspection(r.Context(), req.scope, filter, status)
	if err != nil {
		storeFailed(w, req.log, err, "Failed to build insurance and inspection report")
		return
	}
	writeReport(w, req.log, format, "insurance-inspection", report, report.Table())
}

// parseGenerateRequest validates a generate body into a report request.
func parseGenerateRequest(body *models.GenerateReportRequest) (reports.Request, exportFormat, error) {
	if body.ReportType == "" || body.FromDate == "" || body.ToDate == "" {
		return reports.Request{}, "", errors.New("report_type, from_date and to_date are required")
	}
	from, err := time.Parse(time.DateOnly, body.FromDate)
	if err != nil {
		return reports.Request{}, "", errors.New("invalid date format, use YYYY-MM-DD")
	}
	to, err := time.Parse(time.DateOnly, body.ToDate)
	if err != nil {
		return reports.Request{}, "", errors.New("invalid date format, use YYYY-MM-DD")
	}
	if to.Before(from) {
		return reports.Request{}, "", errors.New("from_date must not be after to_date")
	}
	status, err := reports.ParseCoverageStatus(body.Filters.Status)
	if err != nil {
		return reports.Request{}, "", err
	}
	format, err := parseExportFormat(body.ExportFormat)
	if err != nil {
		return reports.Request{}, "", err
	}

	return reports.Request{
		Type:   reports.Type(body.ReportType),
		From:   from,
		To:     to,
		CarIDs: body.CarIDs,
		Status: status,
	}, format, nil
}

// Generate handles POST /reports/generate, building any report type from a
// JSON body and returning it as JSON, CSV or XLSX.
//
// Responses:
//   - 200: the report, or the export attachment "report_{type}.{format}"
//   - 400: missing or malformed fields, unknown report type
func (h *ReportsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req := h.resolve(w, r)
	if req == nil {
		return
	}

	var body models.GenerateReportRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, req.log, models.NewInvalidRequest("Invalid request body"))
		return
	}
	reportReq, format, err := parseGenerateRequest(&body)
	if err != nil {
		writeError(w, req.log, models.NewInvalidRequest(err.Error()))
		return
	}

	result, err := req.generator.Generate(r.Context(), req.scope, reportReq)
	if errors.Is(err, reports.ErrUnknownType) {
		writeError(w, req.log, models.NewInvalidRequest("Unknown report type: "+body.ReportType))
		return
	}
	if err != nil {
		storeFailed(w, req.log, err, "Failed to generate report")
		return
	}

	req.log.WithFields(logrus.Fields{
		"report_type": result.ReportType,
		"format":      format,
	}).Debug("Report generated")
	writeReport(w, req.log, format, "report_"+string(result.ReportType), result, result.Table)
}
