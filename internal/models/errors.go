package models

import (
	"fmt"
	"net/http"
)

// APIError is the JSON error envelope returned by every endpoint.
// It implements the error interface.
type APIError struct {
	// Code is a short machine-readable error code (e.g., "not_found").
	Code string `json:"error"`
	// Description provides additional human-readable error information.
	Description string `json:"error_description,omitempty"`
	// StatusCode is the HTTP status code to return (excluded from JSON).
	StatusCode int `json:"-"`
}

// NewInvalidRequest creates a 400 error for malformed input.
func NewInvalidRequest(description string) *APIError {
	return &APIError{Code: "invalid_request", Description: description, StatusCode: http.StatusBadRequest}
}

// NewUnauthorized creates a 401 error for missing or invalid credentials.
func NewUnauthorized(description string) *APIError {
	return &APIError{Code: "unauthorized", Description: description, StatusCode: http.StatusUnauthorized}
}

// NewForbidden creates a 403 error for an authenticated caller lacking a capability.
func NewForbidden(description string) *APIError {
	return &APIError{Code: "forbidden", Description: description, StatusCode: http.StatusForbidden}
}

// NewNotFound creates a 404 error.
func NewNotFound(description string) *APIError {
	return &APIError{Code: "not_found", Description: description, StatusCode: http.StatusNotFound}
}

// NewServerError creates a 500 error. The description is shown to the client,
// so it must never carry internal details.
func NewServerError(description string) *APIError {
	return &APIError{Code: "server_error", Description: description, StatusCode: http.StatusInternalServerError}
}

// NewServiceUnavailable creates a 503 error for a missing backing service.
func NewServiceUnavailable(description string) *APIError {
	return &APIError{Code: "service_unavailable", Description: description, StatusCode: http.StatusServiceUnavailable}
}

// Error returns a string representation of the API error.
func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}
