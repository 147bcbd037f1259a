// Package auth verifies Supabase sessions and checks role permissions. The
// role table below seeds the database; requests are authorized against the
// grants stored there.
package auth

import (
	"slices"
	"strings"
)

// Role is one of the fixed application roles.
type Role string

// Application roles.
const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Permission is a capability checked by handlers.
type Permission string

// Permissions known to the application.
const (
	PermFeedsRead        Permission = "feeds:read"
	PermFeedsWrite       Permission = "feeds:write"
	PermRulesRead        Permission = "rules:read"
	PermRulesWrite       Permission = "rules:write"
	PermSchedulesRead    Permission = "schedules:read"
	PermSchedulesWrite   Permission = "schedules:write"
	PermSchedulesExecute Permission = "schedules:execute"
	PermMonitoringRead   Permission = "monitoring:read"
	PermAdminManage      Permission = "admin:manage"
)

var allPermissions = []Permission{
	PermFeedsRead, PermFeedsWrite,
	PermRulesRead, PermRulesWrite,
	PermSchedulesRead, PermSchedulesWrite, PermSchedulesExecute,
	PermMonitoringRead,
	PermAdminManage,
}

var readPermissions = []Permission{
	PermFeedsRead, PermRulesRead, PermSchedulesRead, PermMonitoringRead,
}

var rolePermissions = map[Role][]Permission{
	RoleAdmin: allPermissions,
	RoleEditor: append(slices.Clone(readPermissions),
		PermFeedsWrite, PermRulesWrite, PermSchedulesWrite, PermSchedulesExecute),
	RoleViewer: readPermissions,
}

var permissionDescriptions = map[Permission]string{
	PermFeedsRead:        "View feeds and their configuration",
	PermFeedsWrite:       "Create, edit and delete feeds",
	PermRulesRead:        "View ingestion rules",
	PermRulesWrite:       "Create, edit, reorder and delete ingestion rules",
	PermSchedulesRead:    "View schedules",
	PermSchedulesWrite:   "Create, edit and delete schedules",
	PermSchedulesExecute: "Run schedules on demand",
	PermMonitoringRead:   "View the monitoring dashboard",
	PermAdminManage:      "Manage users, roles and permissions",
}

// Roles returns the application roles, most privileged first.
func Roles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleViewer}
}

// AllPermissions returns every known permission.
func AllPermissions() []Permission {
	return slices.Clone(allPermissions)
}

// Describe returns the human description of p.
func (p Permission) Describe() string {
	return permissionDescriptions[p]
}

// ParseRole maps a stored role name to a Role. Matching ignores case and
// surrounding space.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := rolePermissions[r]
	return r, ok
}

// Permissions returns the permissions granted to r. Unknown roles have none.
func (r Role) Permissions() []Permission {
	return slices.Clone(rolePermissions[r])
}

// Can reports whether r grants p.
func (r Role) Can(p Permission) bool {
	return slices.Contains(rolePermissions[r], p)
}

// PermissionNames returns the permissions of r as strings.
func (r Role) PermissionNames() []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
