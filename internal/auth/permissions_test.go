package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleet-service/internal/auth"
	"github.com/fleetdesk/fleet-service/internal/models"
	"github.com/fleetdesk/fleet-service/internal/token"
)

func TestCan(t *testing.T) {
	demo := &auth.Principal{Role: auth.RoleDemoAdmin, IsDemo: true, SessionID: "s"}
	admin := &auth.Principal{Role: auth.RoleCompanyAdmin, TenantID: "42"}
	superDemo := &auth.Principal{Role: auth.RoleSuperuser, IsDemo: true}

	tests := []struct {
		name      string
		principal *auth.Principal
		action    auth.Action
		want      bool
	}{
		{"nil_principal", nil, auth.ActionFleetRead, false},
		{"demo_reads", demo, auth.ActionFleetRead, true},
		{"demo_writes_cars", demo, auth.ActionCarsWrite, true},
		{"demo_writes_records", demo, auth.ActionRecordsWrite, true},
		{"demo_views_reports", demo, auth.ActionReportsView, true},
		{"demo_cannot_manage_users", demo, auth.ActionUsersManage, false},
		{"demo_cannot_administer_sandbox", demo, auth.ActionDemoAdmin, false},
		{"demo_flag_wins_over_role", superDemo, auth.ActionDemoAdmin, false},
		{"company_admin_manages_users", admin, auth.ActionUsersManage, true},
		{"company_admin_not_sandbox_admin", admin, auth.ActionDemoAdmin, false},
		{"superuser_administers_sandbox", &auth.Principal{Role: auth.RoleSuperuser}, auth.ActionDemoAdmin, true},
		{"dispatcher_edits_cars", &auth.Principal{Role: auth.RoleDispatcher}, auth.ActionCarsWrite, true},
		{"mechanic_cannot_edit_cars", &auth.Principal{Role: auth.RoleMechanic}, auth.ActionCarsWrite, false},
		{"mechanic_logs_records", &auth.Principal{Role: auth.RoleMechanic}, auth.ActionRecordsWrite, true},
		{"accountant_views_reports", &auth.Principal{Role: auth.RoleAccountant}, auth.ActionReportsView, true},
		{"driver_cannot_view_reports", &auth.Principal{Role: auth.RoleDriver}, auth.ActionReportsView, false},
		{"guest_reads", &auth.Principal{Role: auth.RoleGuest}, auth.ActionFleetRead, true},
		{"guest_cannot_write", &auth.Principal{Role: auth.RoleGuest}, auth.ActionRecordsWrite, false},
		{"unknown_role", &auth.Principal{Role: "ROOT"}, auth.ActionFleetRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.Can(tt.principal, tt.action))
		})
	}
}

func TestPermissions(t *testing.T) {
	tests := []struct {
		name      string
		principal *auth.Principal
		want      []auth.Action
	}{
		{"nil", nil, []auth.Action{}},
		{"guest", &auth.Principal{Role: auth.RoleGuest}, []auth.Action{auth.ActionFleetRead}},
		{
			"mechanic",
			&auth.Principal{Role: auth.RoleMechanic},
			[]auth.Action{auth.ActionFleetRead, auth.ActionRecordsWrite},
		},
		{
			"demo_superuser",
			&auth.Principal{Role: auth.RoleSuperuser, IsDemo: true},
			[]auth.Action{auth.ActionFleetRead, auth.ActionCarsWrite, auth.ActionRecordsWrite, auth.ActionReportsView},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.Permissions(tt.principal))
		})
	}
}

func TestWriteAction(t *testing.T) {
	assert.Equal(t, auth.ActionCarsWrite, auth.WriteAction(models.ResourceCars))
	assert.Equal(t, auth.ActionRecordsWrite, auth.WriteAction(models.ResourceFuel))
	assert.Equal(t, auth.ActionRecordsWrite, auth.WriteAction(models.ResourceInsurances))
	assert.Equal(t, auth.ActionRecordsWrite, auth.WriteAction(models.ResourceInspections))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := auth.PrincipalFromContext(context.Background())
	assert.False(t, ok)

	claims := &token.Claims{
		Username:  "demo-abc",
		TenantID:  "Demo-abc",
		Role:      auth.RoleDemoAdmin,
		IsDemo:    true,
		SessionID: "abc",
	}
	claims.RegisteredClaims.Subject = "demo-abc"

	ctx := auth.WithPrincipal(context.Background(), auth.PrincipalFromClaims(claims))
	principal, ok := auth.PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, &auth.Principal{
		SubjectID: "demo-abc",
		Username:  "demo-abc",
		TenantID:  "Demo-abc",
		Role:      auth.RoleDemoAdmin,
		IsDemo:    true,
		SessionID: "abc",
	}, principal)
}
