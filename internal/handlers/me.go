package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/pkg/logger"
)

// MeHandler describes the caller behind a bearer token.
type MeHandler struct {
	logger *logrus.Logger
}

// NewMeHandler creates a new me handler.
func NewMeHandler(logger *logrus.Logger) *MeHandler {
	return &MeHandler{logger: logger}
}

// RegisterRoutes registers GET /auth/me. The router must already run the
// Authenticate middleware.
func (h *MeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
}

// Me handles GET /auth/me
// Returns the identity, tenant, role and effective permissions of the caller.
//
// Responses:
//   - 200: The caller's profile
//   - 401: No authenticated principal
func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCorrelationID(r.Context(), h.logger)

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, log, models.NewUnauthorized("Authentication required"))
		return
	}

	actions := auth.Permissions(principal)
	permissions := make([]string, 0, len(actions))
	for _, action := range actions {
		permissions = append(permissions, string(action))
	}

	writeJSON(w, log, http.StatusOK, models.MeResponse{
		ID:          principal.SubjectID,
		Username:    principal.Username,
		CompanyID:   principal.TenantID,
		Role:        principal.Role,
		IsDemo:      principal.IsDemo,
		SessionID:   principal.SessionID,
		Permissions: permissions,
	})
}
