// Package models provides data structures shared by the fleet service packages.
package models

import "time"

// DemoSession is the metadata record of an anonymous demo tenant.
// It is written once at session start and never modified afterwards.
type DemoSession struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CompanyID string    `json:"company_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DemoStartResponse is returned by the demo bootstrap endpoint.
type DemoStartResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"session_id"`
	Username     string `json:"username"`
	IsDemo       bool   `json:"is_demo"`
	CompanyID    string `json:"company_id"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	CompanyID   string   `json:"company_id"`
	Role        string   `json:"role"`
	IsDemo      bool     `json:"is_demo"`
	SessionID   string   `json:"session_id,omitempty"`
	Permissions []string `json:"permissions"`
}

// DemoCleanupRequest is the body of the demo cleanup endpoint.
type DemoCleanupRequest struct {
	SessionID string `json:"session_id"`
}

// DemoSessionStats describes the registry state for operators.
type DemoSessionStats struct {
	ActiveSessions          int   `json:"activeSessions"`
	SessionCounter          int   `json:"sessionCounter"`
	SessionLimit            int   `json:"sessionLimit"`
	SessionTTLSeconds       int   `json:"sessionTtlSeconds"`
	OldestSessionAgeSeconds int64 `json:"oldestSessionAgeSeconds"`
	ExpiredPendingSweep     int   `json:"expiredPendingSweep"`
}

// ClearSessionsResponse reports the outcome of a bulk demo cleanup.
type ClearSessionsResponse struct {
	SessionsCleared int    `json:"sessionsCleared"`
	Message         string `json:"message"`
}

// SweepResponse reports the outcome of an expiry sweep.
type SweepResponse struct {
	Cleaned int `json:"cleaned"`
}

// TokenRefreshRequest is the body of the token refresh endpoint.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenRefreshResponse carries a newly issued access token.
type TokenRefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
