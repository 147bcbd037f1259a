package server_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/db"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/server"
)

// memAdmin is an in-memory AdminStore.
type memAdmin struct {
	roles    map[int64]*models.Role
	perms    map[int64]*models.Permission
	profiles map[string]*models.Profile
	grants   map[[2]int64]bool
	nextID   int64
}

func newMemAdmin() *memAdmin {
	return &memAdmin{
		roles:    map[int64]*models.Role{1: {ID: 1, Name: "admin"}},
		perms:    map[int64]*models.Permission{1: {ID: 1, Name: "feeds:read"}},
		profiles: map[string]*models.Profile{"u1": {ID: "u1", Email: "u1@example.com"}},
		grants:   map[[2]int64]bool{},
		nextID:   10,
	}
}

func (m *memAdmin) ListRoles(context.Context) ([]models.Role, error) {
	out := []models.Role{}
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memAdmin) CreateRole(_ context.Context, in models.RoleInput) (*models.Role, error) {
	for _, r := range m.roles {
		if r.Name == in.Name {
			return nil, fmt.Errorf("create role: %w", db.ErrAlreadyExists)
		}
	}
	m.nextID++
	r := &models.Role{ID: m.nextID, Name: in.Name, Description: in.Description}
	m.roles[r.ID] = r
	return r, nil
}

func (m *memAdmin) UpdateRole(_ context.Context, id int64, in models.RoleInput) (*models.Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	r.Description = in.Description
	return r, nil
}

func (m *memAdmin) DeleteRole(_ context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *memAdmin) ListPermissions(context.Context) ([]models.Permission, error) {
	out := []models.Permission{}
	for _, p := range m.perms {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memAdmin) CreatePermission(_ context.Context, in models.PermissionInput) (*models.Permission, error) {
	m.nextID++
	p := &models.Permission{ID: m.nextID, Name: in.Name}
	m.perms[p.ID] = p
	return p, nil
}

func (m *memAdmin) DeletePermission(_ context.Context, id int64) error {
	if _, ok := m.perms[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.perms, id)
	return nil
}

func (m *memAdmin) GrantPermission(_ context.Context, roleID, permID int64) error {
	if m.roles[roleID] == nil || m.perms[permID] == nil {
		return db.ErrNotFound
	}
	m.grants[[2]int64{roleID, permID}] = true
	return nil
}

func (m *memAdmin) RevokePermission(_ context.Context, roleID, permID int64) error {
	key := [2]int64{roleID, permID}
	if !m.grants[key] {
		return db.ErrNotFound
	}
	delete(m.grants, key)
	return nil
}

func (m *memAdmin) ListProfiles(context.Context) ([]models.Profile, error) {
	out := []models.Profile{}
	for _, p := range m.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memAdmin) UpdateProfile(_ context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	if u.RoleID != nil {
		p.RoleID = u.RoleID
	}
	return p, nil
}

func TestAdminRoutes(t *testing.T) {
	store := newMemAdmin()
	h := newTestServer(t, &fakeGateway{status: http.StatusOK}, "k", server.Options{Admin: store})

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"list roles", http.MethodGet, "/api/admin/roles", "", http.StatusOK},
		{"create role", http.MethodPost, "/api/admin/roles", `{"name":"auditor"}`, http.StatusCreated},
		{"duplicate role", http.MethodPost, "/api/admin/roles", `{"name":"admin"}`, http.StatusConflict},
		{"role without name", http.MethodPost, "/api/admin/roles", `{}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/admin/roles", `{`, http.StatusBadRequest},
		{"update role", http.MethodPatch, "/api/admin/roles/1", `{"description":"all access"}`, http.StatusOK},
		{"update missing role", http.MethodPatch, "/api/admin/roles/99", `{}`, http.StatusNotFound},
		{"bad role id", http.MethodDelete, "/api/admin/roles/abc", "", http.StatusBadRequest},
		{"grant", http.MethodPut, "/api/admin/roles/1/permissions/1", "", http.StatusOK},
		{"grant unknown", http.MethodPut, "/api/admin/roles/1/permissions/42", "", http.StatusNotFound},
		{"revoke", http.MethodDelete, "/api/admin/roles/1/permissions/1", "", http.StatusOK},
		{"revoke again", http.MethodDelete, "/api/admin/roles/1/permissions/1", "", http.StatusNotFound},
		{"list permissions", http.MethodGet, "/api/admin/permissions", "", http.StatusOK},
		{"create permission", http.MethodPost, "/api/admin/permissions", `{"name":"audit:read"}`, http.StatusCreated},
		{"delete missing permission", http.MethodDelete, "/api/admin/permissions/77", "", http.StatusNotFound},
		{"list profiles", http.MethodGet, "/api/admin/profiles", "", http.StatusOK},
		{"activate profile", http.MethodPatch, "/api/admin/profiles/u1", `{"is_active":true}`, http.StatusOK},
		{"empty profile update", http.MethodPatch, "/api/admin/profiles/u1", `{}`, http.StatusBadRequest},
		{"missing profile", http.MethodPatch, "/api/admin/profiles/u9", `{"is_active":true}`, http.StatusNotFound},
		{"stats", http.MethodGet, "/api/admin/stats", "", http.StatusOK},
		{"delete role", http.MethodDelete, "/api/admin/roles/1", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, tt.method, tt.target, tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	assert.True(t, store.profiles["u1"].IsActive)
	assert.NotContains(t, store.roles, int64(1))
}

func TestAdminWithoutStore(t *testing.T) {
	h := newTestServer(t, &fakeGateway{status: http.StatusOK}, "k", server.Options{})

	w := do(h, http.MethodGet, "/api/admin/roles", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Stats are served from memory and need no database.
	w = do(h, http.MethodGet, "/api/admin/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uptime_seconds")
}
