// Package handlers provides the HTTP handlers of the fleet service API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/constants"
	"github.com/fleetdesk/fleet-service/internal/models"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, logger logrus.FieldLogger, statusCode int, data any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes apiErr as the JSON error envelope.
func writeError(w http.ResponseWriter, logger logrus.FieldLogger, apiErr *models.APIError) {
	writeJSON(w, logger, apiErr.StatusCode, apiErr)
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}
