package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"admin", RoleAdmin, true},
		{" Editor ", RoleEditor, true},
		{"VIEWER", RoleViewer, true},
		{"owner", Role("owner"), false},
		{"", Role(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestRoleCan(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleAdmin, PermAdminManage, true},
		{RoleAdmin, PermRulesWrite, true},
		{RoleEditor, PermRulesWrite, true},
		{RoleEditor, PermSchedulesExecute, true},
		{RoleEditor, PermAdminManage, false},
		{RoleViewer, PermMonitoringRead, true},
		{RoleViewer, PermFeedsWrite, false},
		{RoleViewer, PermSchedulesExecute, false},
		{Role("ghost"), PermFeedsRead, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Can(tt.perm))
		})
	}
}

func TestPermissionsAreCopies(t *testing.T) {
	perms := RoleViewer.Permissions()
	perms[0] = PermAdminManage
	assert.False(t, RoleViewer.Can(PermAdminManage))

	all := AllPermissions()
	assert.Len(t, all, len(RoleAdmin.Permissions()))
	for _, p := range all {
		assert.NotEmpty(t, p.Describe(), p)
	}
}

func TestPermissionNames(t *testing.T) {
	assert.Equal(t, []string{"feeds:read", "rules:read", "schedules:read", "monitoring:read"}, RoleViewer.PermissionNames())
	assert.Empty(t, Role("ghost").PermissionNames())
}
