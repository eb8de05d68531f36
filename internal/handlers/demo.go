package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/token"
	"github.com/fleetdesk/fleet-service/pkg/logger"
)

// errSessionIDRequired is the body of a cleanup request without a session id.
var errSessionIDRequired = &models.APIError{Code: "session_id required", StatusCode: http.StatusBadRequest}

// DemoHandler serves the unauthenticated demo bootstrap endpoints.
type DemoHandler struct {
	demoSvc auth.DemoService
	logger  *logrus.Logger
}

// NewDemoHandler creates a new demo handler.
func NewDemoHandler(demoSvc auth.DemoService, logger *logrus.Logger) *DemoHandler {
	return &DemoHandler{
		demoSvc: demoSvc,
		logger:  logger,
	}
}

// RegisterRoutes registers the demo routes on router.
func (h *DemoHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/demo/start", h.Start).Methods(http.MethodPost)
	router.HandleFunc("/auth/demo/cleanup", h.Cleanup).Methods(http.MethodPost)
	router.HandleFunc("/auth/token/refresh", h.Refresh).Methods(http.MethodPost)
}

// Start handles POST /auth/demo/start.
//
// Responses:
//   - 201: session created, tokens issued
//   - 500: the session store failed
func (h *DemoHandler) Start(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(r.Context(), h.logger)

	response, err := h.demoSvc.StartSession(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to start demo session")
		writeError(w, log, models.NewServerError("Failed to start demo session"))
		return
	}

	log.WithField("session_id", response.SessionID).Info("Demo session started")
	writeJSON(w, log, http.StatusCreated, response)
}

// Cleanup handles POST /auth/demo/cleanup. Unknown session ids succeed.
//
// Responses:
//   - 200: {"status": "cleaned"}
//   - 400: {"error": "session_id required"}
//   - 500: the session store failed
func (h *DemoHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(r.Context(), h.logger)

	var req models.DemoCleanupRequest
	if err := decodeJSON(w, r, &req); err != nil || req.SessionID == "" {
		writeError(w, log, errSessionIDRequired)
		return
	}

	if err := h.demoSvc.CleanupSession(r.Context(), req.SessionID); err != nil {
		log.WithError(err).WithField("session_id", req.SessionID).Error("Failed to clean up demo session")
		writeError(w, log, models.NewServerError("Failed to clean up demo session"))
		return
	}

	writeJSON(w, log, http.StatusOK, map[string]string{"status": "cleaned"})
}

// Refresh handles POST /auth/token/refresh.
//
// Responses:
//   - 200: a new access token
//   - 400: missing refresh token
//   - 401: invalid refresh token or expired demo session
//   - 500: token issuance failed
func (h *DemoHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(r.Context(), h.logger)

	var req models.TokenRefreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, log, models.NewInvalidRequest("refresh_token required"))
		return
	}

	response, err := h.demoSvc.RefreshAccessToken(r.Context(), req.RefreshToken)
	switch {
	case errors.Is(err, token.ErrInvalidToken):
		writeError(w, log, models.NewUnauthorized("Invalid refresh token"))
	case errors.Is(err, auth.ErrSessionExpired):
		writeError(w, log, models.NewUnauthorized("Demo session expired"))
	case err != nil:
		log.WithError(err).Error("Failed to refresh access token")
		writeError(w, log, models.NewServerError("Failed to refresh access token"))
	default:
		writeJSON(w, log, http.StatusOK, response)
	}
}
