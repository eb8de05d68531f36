// Package client provides a Go client for the fleet service HTTP API. It is
// used by the fleetctl command and by end-to-end tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/constants"
	"github.com/fleetdesk/fleet-service/internal/models"
)

// BaseClient provides the unauthenticated HTTP plumbing shared by every call:
// request marshaling, error parsing and logging.
type BaseClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

// NewBaseClient creates a new BaseClient.
//
// Parameters:
//   - baseURL: API root including the version prefix (e.g., "http://localhost:8080/api/v1")
//   - timeout: HTTP request timeout duration
//   - logger: Structured logger for HTTP operations
func NewBaseClient(
	baseURL string,
	timeout time.Duration,
	logger *logrus.Logger,
) *BaseClient {
	return &BaseClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// Do executes an unauthenticated request. body is JSON-encoded when not nil.
// The caller closes the response body.
func (c *BaseClient) Do(
	ctx context.Context,
	method string,
	path string,
	body any,
) (*http.Response, error) {
	return c.do(ctx, method, path, "", body)
}

func (c *BaseClient) do(
	ctx context.Context,
	method string,
	path string,
	bearer string,
	body any,
) (*http.Response, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if body != nil {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}
	if bearer != "" {
		req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+bearer)
	}
	req.Header.Set("Accept", constants.ContentTypeJSON)

	fields := logrus.Fields{
		"method":        method,
		"url":           url,
		"authenticated": bearer != "",
	}
	c.logger.WithFields(fields).Debug("Sending HTTP request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Error("HTTP request failed")
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	c.logger.WithFields(fields).WithField("status", resp.StatusCode).Debug("Received HTTP response")
	return resp, nil
}

// BaseURL returns the configured base URL for this client.
func (c *BaseClient) BaseURL() string {
	return c.baseURL
}

// ParseErrorResponse reads the service's error envelope and closes the body.
// The returned error is a *models.APIError carrying the response status.
func ParseErrorResponse(resp *http.Response) error {
	defer resp.Body.Close()

	apiErr := &models.APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// decodeResponse decodes a response with the wanted status into dst, keeping
// numbers exact, and closes the body. Any other status becomes an APIError.
func decodeResponse(resp *http.Response, wantStatus int, dst any) error {
	if resp.StatusCode != wantStatus {
		return ParseErrorResponse(resp)
	}
	defer resp.Body.Close()

	if dst == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
