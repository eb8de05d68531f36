// Package demo implements the demo-session sandbox: anonymous, isolated and
// self-expiring tenants whose data lives only in the expiring key-value store.
//
// Keys used by this package:
//   - demo:sessions:{id} - session metadata, expires with the session TTL
//   - demo:data:{id}:{resource_type} - one collection, TTL refreshed on every write
//   - demo:active_sessions - registry of live sessions, never expires
//   - demo:session_count - session counter, never expires
//
// None of the multi-step sequences in this package are atomic. Concurrent
// creation near the limit can briefly exceed it, and concurrent writes to the
// same collection lose updates (last write wins). Hardening would mean an
// optimistic version check (WATCH/MULTI) or one key per item.
package demo

import (
	"github.com/fleetdesk/fleet-service/internal/models"
)

const (
	sessionKeyPrefix  = "demo:sessions:"
	dataKeyPrefix     = "demo:data:"
	activeSessionsKey = "demo:active_sessions"
	sessionCountKey   = "demo:session_count"
)

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func dataKey(sessionID string, rt models.ResourceType) string {
	return dataKeyPrefix + sessionID + ":" + string(rt)
}

// sessionKeys returns the metadata key and every collection key of a session.
func sessionKeys(sessionID string) []string {
	keys := make([]string, 0, len(models.ResourceTypes)+1)
	keys = append(keys, sessionKey(sessionID))
	for _, rt := range models.ResourceTypes {
		keys = append(keys, dataKey(sessionID, rt))
	}
	return keys
}
