package models

import "time"

// Permission is a named capability stored in the auth database.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Role groups permissions. A profile has exactly one role.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Profile is an application user linked to an auth identity.
type Profile struct {
	ID        string    `json:"id"` // auth user UUID
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	RoleID    *int64    `json:"role_id,omitempty"`
	RoleName  string    `json:"role,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`

	// Permissions granted to the role. Only single-profile lookups fill it.
	Permissions []string `json:"permissions,omitempty"`
}

// ProfileUpdate changes a profile's role or activation.
type ProfileUpdate struct {
	RoleID   *int64 `json:"role_id,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// RoleInput creates or updates a role.
type RoleInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PermissionInput creates a permission.
type PermissionInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Me is the current session as returned by /api/me.
type Me struct {
	Profile     Profile  `json:"profile"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}
