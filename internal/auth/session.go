package auth

import (
	"context"
	"errors"
	"slices"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

// ErrProfileNotFound is returned by profile stores for unknown users.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore loads the application profile of an auth user. The returned
// profile carries the permission names currently granted to its role.
type ProfileStore interface {
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)
}

// Session is the authenticated caller of a request. Permissions are the
// grants loaded with the profile, not the built-in defaults of Role.
type Session struct {
	UserID      string
	Email       string
	Profile     models.Profile
	Role        Role
	Permissions []Permission
}

// NewSession builds the session of an auth user from a stored profile.
func NewSession(userID, email string, profile models.Profile) *Session {
	role, _ := ParseRole(profile.RoleName)
	perms := make([]Permission, len(profile.Permissions))
	for i, name := range profile.Permissions {
		perms[i] = Permission(name)
	}
	return &Session{UserID: userID, Email: email, Profile: profile, Role: role, Permissions: perms}
}

// Can reports whether the session's role currently grants p.
func (s *Session) Can(p Permission) bool {
	return s != nil && slices.Contains(s.Permissions, p)
}

// IsAdmin reports whether the session has the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// Me renders the session for the /api/me endpoint.
func (s *Session) Me() models.Me {
	perms := make([]string, len(s.Permissions))
	for i, p := range s.Permissions {
		perms[i] = string(p)
	}
	return models.Me{Profile: s.Profile, Role: string(s.Role), Permissions: perms}
}

type contextKey string

const contextKeySession contextKey = "session"

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKeySession, s)
}

// FromContext extracts the session from a request context.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKeySession).(*Session)
	return s, ok && s != nil
}
