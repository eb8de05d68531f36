package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleet-service/internal/handlers"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/pkg/logger"
)

// mockAdminService implements auth.AdminService for testing.
type mockAdminService struct {
	getSessionStatsFunc  func(ctx context.Context) (*models.DemoSessionStats, error)
	clearAllSessionsFunc func(ctx context.Context) (*models.ClearSessionsResponse, error)
	sweepFunc            func(ctx context.Context) (*models.SweepResponse, error)
}

func (m *mockAdminService) GetSessionStats(ctx context.Context) (*models.DemoSessionStats, error) {
	if m.getSessionStatsFunc != nil {
		return m.getSessionStatsFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAdminService) ClearAllSessions(ctx context.Context) (*models.ClearSessionsResponse, error) {
	if m.clearAllSessionsFunc != nil {
		return m.clearAllSessionsFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAdminService) SweepExpiredSessions(ctx context.Context) (*models.SweepResponse, error) {
	if m.sweepFunc != nil {
		return m.sweepFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func TestAdminHandler_GetSessionStats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		mockFunc       func(ctx context.Context) (*models.DemoSessionStats, error)
		expectedStatus int
		validateResp   func(t *testing.T, resp *models.DemoSessionStats)
	}{
		{
			name: "successful_stats_retrieval",
			mockFunc: func(_ context.Context) (*models.DemoSessionStats, error) {
				return &models.DemoSessionStats{
					ActiveSessions:          42,
					SessionCounter:          42,
					SessionLimit:            100,
					SessionTTLSeconds:       7200,
					OldestSessionAgeSeconds: 3600,
				}, nil
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp *models.DemoSessionStats) {
				assert.Equal(t, 42, resp.ActiveSessions)
				assert.Equal(t, 100, resp.SessionLimit)
				assert.Equal(t, 7200, resp.SessionTTLSeconds)
				assert.Equal(t, int64(3600), resp.OldestSessionAgeSeconds)
			},
		},
		{
			name: "zero_sessions",
			mockFunc: func(_ context.Context) (*models.DemoSessionStats, error) {
				return &models.DemoSessionStats{SessionLimit: 100, SessionTTLSeconds: 7200}, nil
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, resp *models.DemoSessionStats) {
				assert.Zero(t, resp.ActiveSessions)
				assert.Zero(t, resp.OldestSessionAgeSeconds)
			},
		},
		{
			name: "service_error",
			mockFunc: func(_ context.Context) (*models.DemoSessionStats, error) {
				return nil, errors.New("redis connection failed")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockSvc := &mockAdminService{getSessionStatsFunc: tt.mockFunc}
			handler := handlers.NewAdminHandler(mockSvc, logger.New("debug", "json", "stdout"))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/demo/sessions/stats", nil)
			rr := httptest.NewRecorder()
			handler.GetSessionStats(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			if tt.expectedStatus != http.StatusOK {
				var apiErr models.APIError
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
				assert.Equal(t, "server_error", apiErr.Code)
				return
			}

			var response models.DemoSessionStats
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			tt.validateResp(t, &response)
		})
	}
}

func TestAdminHandler_ClearSessions(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		mockSvc := &mockAdminService{
			clearAllSessionsFunc: func(_ context.Context) (*models.ClearSessionsResponse, error) {
				return &models.ClearSessionsResponse{SessionsCleared: 3, Message: "Successfully cleared 3 demo sessions"}, nil
			},
		}
		handler := handlers.NewAdminHandler(mockSvc, logger.New("error", "json", "stdout"))

		rr := httptest.NewRecorder()
		handler.ClearSessions(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/demo/sessions", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var response models.ClearSessionsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		assert.Equal(t, 3, response.SessionsCleared)
	})

	t.Run("service_error", func(t *testing.T) {
		t.Parallel()

		handler := handlers.NewAdminHandler(&mockAdminService{}, logger.New("error", "json", "stdout"))

		rr := httptest.NewRecorder()
		handler.ClearSessions(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/demo/sessions", nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestAdminHandler_Sweep(t *testing.T) {
	t.Parallel()

	mockSvc := &mockAdminService{
		sweepFunc: func(_ context.Context) (*models.SweepResponse, error) {
			return &models.SweepResponse{Cleaned: 2}, nil
		},
	}
	handler := handlers.NewAdminHandler(mockSvc, logger.New("error", "json", "stdout"))

	rr := httptest.NewRecorder()
	handler.Sweep(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/demo/sweep", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"cleaned": 2}`, rr.Body.String())
}
