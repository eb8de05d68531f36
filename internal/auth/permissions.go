// Package auth provides the principal model, the capability predicate guarding
// every API route, and the demo sandbox administration service.
package auth

import (
	"context"

	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/token"
)

// Roles known to the fleet service.
const (
	RoleCompanyAdmin = "COMPANY_ADMIN"
	RoleDispatcher   = "DISPATCHER"
	RoleMechanic     = "MECHANIC"
	RoleDriver       = "DRIVER"
	RoleAccountant   = "ACCOUNTANT"
	RoleGuest        = "GUEST"
	// RoleDemoAdmin is the role of every demo sandbox principal.
	RoleDemoAdmin = "ADMIN"
	// RoleSuperuser operates the service itself, across tenants.
	RoleSuperuser = "SUPERUSER"
)

// Action is a capability checked by Can.
type Action string

const (
	ActionFleetRead    Action = "fleet:read"
	ActionCarsWrite    Action = "cars:write"
	ActionRecordsWrite Action = "records:write"
	ActionReportsView  Action = "reports:view"
	ActionUsersManage  Action = "users:manage"
	ActionDemoAdmin    Action = "demo:admin"
)

var allActions = []Action{
	ActionFleetRead, ActionCarsWrite, ActionRecordsWrite,
	ActionReportsView, ActionUsersManage, ActionDemoAdmin,
}

var rolePermissions = map[string][]Action{
	RoleCompanyAdmin: {ActionFleetRead, ActionCarsWrite, ActionRecordsWrite, ActionReportsView, ActionUsersManage},
	RoleDispatcher:   {ActionFleetRead, ActionCarsWrite, ActionRecordsWrite, ActionReportsView},
	RoleMechanic:     {ActionFleetRead, ActionRecordsWrite},
	RoleDriver:       {ActionFleetRead, ActionRecordsWrite},
	RoleAccountant:   {ActionFleetRead, ActionRecordsWrite, ActionReportsView},
	RoleGuest:        {ActionFleetRead},
	RoleDemoAdmin:    {ActionFleetRead, ActionCarsWrite, ActionRecordsWrite, ActionReportsView},
	RoleSuperuser:    allActions,
}

// Principal is the authenticated caller of a request.
type Principal struct {
	SubjectID string
	Username  string
	TenantID  string
	Role      string
	IsDemo    bool
	SessionID string
}

// PrincipalFromClaims builds the principal a validated token speaks for.
func PrincipalFromClaims(claims *token.Claims) *Principal {
	subject := claims.Identity()
	return &Principal{
		SubjectID: subject.ID,
		Username:  subject.Username,
		TenantID:  subject.TenantID,
		Role:      subject.Role,
		IsDemo:    subject.IsDemo,
		SessionID: subject.SessionID,
	}
}

// Can reports whether principal may perform action. Demo principals never
// manage users or the sandbox itself, whatever role their token claims.
func Can(principal *Principal, action Action) bool {
	if principal == nil {
		return false
	}
	if principal.IsDemo && (action == ActionUsersManage || action == ActionDemoAdmin) {
		return false
	}
	for _, allowed := range rolePermissions[principal.Role] {
		if allowed == action {
			return true
		}
	}
	return false
}

// Permissions lists the actions principal may perform, in a fixed order.
func Permissions(principal *Principal) []Action {
	actions := make([]Action, 0, len(allActions))
	for _, action := range allActions {
		if Can(principal, action) {
			actions = append(actions, action)
		}
	}
	return actions
}

// WriteAction returns the action required to modify a resource collection.
func WriteAction(rt models.ResourceType) Action {
	if rt == models.ResourceCars {
		return ActionCarsWrite
	}
	return ActionRecordsWrite
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying principal.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(*Principal)
	return principal, ok && principal != nil
}
