package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/pkg/logger"
)

// AdminHandler handles the demo sandbox administration endpoints.
type AdminHandler struct {
	adminSvc auth.AdminService
	logger   *logrus.Logger
}

// NewAdminHandler creates a new admin handler instance with the provided dependencies.
func NewAdminHandler(adminSvc auth.AdminService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		adminSvc: adminSvc,
		logger:   logger,
	}
}

// RegisterRoutes registers admin routes on the provided router.
// Note: The router should already have the demo:admin permission middleware applied.
func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/demo/sessions/stats", h.GetSessionStats).Methods(http.MethodGet)
	router.HandleFunc("/admin/demo/sessions", h.ClearSessions).Methods(http.MethodDelete)
	router.HandleFunc("/admin/demo/sweep", h.Sweep).Methods(http.MethodPost)
}

// GetSessionStats handles GET /admin/demo/sessions/stats
// Returns the registry size, the session counter, the oldest session age and
// the configured TTL and limit.
//
// Responses:
//   - 200: Session statistics retrieved successfully
//   - 401: Unauthorized (handled by middleware)
//   - 403: Forbidden (handled by middleware)
//   - 500: Internal server error
func (h *AdminHandler) GetSessionStats(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(r.Context(), h.logger)

	stats, err := h.adminSvc.GetSessionStats(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get demo session stats")
		writeError(w, log, models.NewServerError("Failed to retrieve session statistics"))
		return
	}

	writeJSON(w, log, http.StatusOK, stats)
}

// ClearSessions handles DELETE /admin/demo/sessions
// Cleans up every registered demo session and resets the counter.
//
// Responses:
//   - 200: Sessions cleared successfully
//   - 401: Unauthorized (handled by middleware)
//   - 403: Forbidden (handled by middleware)
//   - 500: Internal server error
func (h *AdminHandler) ClearSessions(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(r.Context(), h.logger)
	log.Warn("Processing clear demo sessions request")

	response, err := h.adminSvc.ClearAllSessions(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to clear demo sessions")
		writeError(w, log, models.NewServerError("Failed to clear sessions"))
		return
	}

	writeJSON(w, log, http.StatusOK, response)
}

// Sweep handles POST /admin/demo/sweep
// Runs one expiry sweep and reports how many sessions it cleaned.
//
// Responses:
//   - 200: {"cleaned": n}
//   - 500: Internal server error
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(r.Context(), h.logger)

	response, err := h.adminSvc.SweepExpiredSessions(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to sweep expired demo sessions")
		writeError(w, log, models.NewServerError("Failed to sweep expired sessions"))
		return
	}

	writeJSON(w, log, http.StatusOK, response)
}
