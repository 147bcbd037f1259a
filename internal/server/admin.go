package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/db"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

// =============================================================================
// ADMIN ROUTES
// =============================================================================

func (s *Server) mountAdmin(r chi.Router) {
	r.Get("/stats", s.handleStats)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdminStore)

		r.Get("/roles", s.handleListRoles)
		r.Post("/roles", s.handleCreateRole)
		r.Patch("/roles/{id}", s.handleUpdateRole)
		r.Delete("/roles/{id}", s.handleDeleteRole)
		r.Put("/roles/{id}/permissions/{permissionID}", s.handleGrantPermission)
		r.Delete("/roles/{id}/permissions/{permissionID}", s.handleRevokePermission)

		r.Get("/permissions", s.handleListPermissions)
		r.Post("/permissions", s.handleCreatePermission)
		r.Delete("/permissions/{id}", s.handleDeletePermission)

		r.Get("/profiles", s.handleListProfiles)
		r.Patch("/profiles/{id}", s.handleUpdateProfile)
	})
}

func (s *Server) requireAdminStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.admin == nil {
			writeError(w, http.StatusServiceUnavailable, "Database not configured",
				"Set SUPABASE_DB_URL (or DATABASE_URL) in the server environment")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// writeStoreError maps store errors onto HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "Failed to "+op, err.Error())
	case errors.Is(err, db.ErrAlreadyExists), errors.Is(err, db.ErrInUse):
		writeError(w, http.StatusConflict, "Failed to "+op, err.Error())
	default:
		s.logger.Error("admin store failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid "+name, chi.URLParam(r, name))
		return 0, false
	}
	return id, true
}

// =============================================================================
// ROLES
// =============================================================================

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.admin.ListRoles(r.Context())
	if err != nil {
		s.writeStoreError(w, "fetch roles", err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var in models.RoleInput
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "Role name is required", "")
		return
	}
	role, err := s.admin.CreateRole(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, "create role", err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in models.RoleInput
	if !decodeBody(w, r, &in) {
		return
	}
	role, err := s.admin.UpdateRole(r.Context(), id, in)
	if err != nil {
		s.writeStoreError(w, "update role", err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.admin.DeleteRole(r.Context(), id); err != nil {
		s.writeStoreError(w, "delete role", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGrantPermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	permID, ok := pathID(w, r, "permissionID")
	if !ok {
		return
	}
	if err := s.admin.GrantPermission(r.Context(), roleID, permID); err != nil {
		s.writeStoreError(w, "grant permission", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRevokePermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	permID, ok := pathID(w, r, "permissionID")
	if !ok {
		return
	}
	if err := s.admin.RevokePermission(r.Context(), roleID, permID); err != nil {
		s.writeStoreError(w, "revoke permission", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// =============================================================================
// PERMISSIONS
// =============================================================================

func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := s.admin.ListPermissions(r.Context())
	if err != nil {
		s.writeStoreError(w, "fetch permissions", err)
		return
	}
	writeJSON(w, http.StatusOK, perms)
}

func (s *Server) handleCreatePermission(w http.ResponseWriter, r *http.Request) {
	var in models.PermissionInput
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "Permission name is required", "")
		return
	}
	perm, err := s.admin.CreatePermission(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, "create permission", err)
		return
	}
	writeJSON(w, http.StatusCreated, perm)
}

func (s *Server) handleDeletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.admin.DeletePermission(r.Context(), id); err != nil {
		s.writeStoreError(w, "delete permission", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// =============================================================================
// PROFILES
// =============================================================================

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.admin.ListProfiles(r.Context())
	if err != nil {
		s.writeStoreError(w, "fetch profiles", err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var u models.ProfileUpdate
	if !decodeBody(w, r, &u) {
		return
	}
	if u.RoleID == nil && u.IsActive == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update", "set role_id or is_active")
		return
	}
	profile, err := s.admin.UpdateProfile(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		s.writeStoreError(w, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
