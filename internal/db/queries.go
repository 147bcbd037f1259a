package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/auth"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

// seed inserts the built-in roles, permissions and their grants. Existing
// rows are left alone so admin edits survive restarts.
func (c *Client) seed(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, p := range auth.AllPermissions() {
		batch.Queue(seedPermissionSQL, string(p), p.Describe())
	}
	for _, r := range auth.Roles() {
		batch.Queue(seedRoleSQL, string(r), "Built-in "+string(r)+" role")
	}
	for _, r := range auth.Roles() {
		for _, p := range r.Permissions() {
			batch.Queue(seedGrantSQL, string(r), string(p))
		}
	}
	return c.pool.SendBatch(ctx, batch).Close()
}

// ============================================================================
// PROFILE OPERATIONS
// ============================================================================

const profileColumns = `
    p.id::text, p.email, p.full_name, p.role_id, COALESCE(r.name, ''), p.is_active, p.created_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.RoleID, &p.RoleName, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProfileByID returns the profile of an auth user with the permission names
// granted to its role. A missing profile, or an id that is not a UUID,
// matches both ErrNotFound and auth.ErrProfileNotFound.
func (c *Client) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("profile %q: %w: %w", id, ErrNotFound, auth.ErrProfileNotFound)
	}
	row := c.pool.QueryRow(ctx, `
        SELECT`+profileColumns+`,
            ARRAY(
                SELECT pm.name FROM role_permissions rp
                JOIN permissions pm ON pm.id = rp.permission_id
                WHERE rp.role_id = p.role_id
                ORDER BY pm.name)
        FROM profiles p LEFT JOIN roles r ON r.id = p.role_id
        WHERE p.id = $1::uuid`, id)

	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.RoleID, &p.RoleName, &p.IsActive, &p.CreatedAt, &p.Permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w: %w", id, ErrNotFound, auth.ErrProfileNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", wrapQueryError(err))
	}
	return &p, nil
}

// ListProfiles returns all profiles, newest first.
func (c *Client) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := c.pool.Query(ctx, `
        SELECT`+profileColumns+`
        FROM profiles p LEFT JOIN roles r ON r.id = p.role_id
        ORDER BY p.created_at DESC, p.email`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// UpsertProfile creates a profile or refreshes its email and name. Role and
// activation of an existing profile are kept.
func (c *Client) UpsertProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	_, err := c.pool.Exec(ctx, `
        INSERT INTO profiles (id, email, full_name, role_id, is_active)
        VALUES ($1::uuid, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, full_name = EXCLUDED.full_name`,
		p.ID, p.Email, p.FullName, p.RoleID, p.IsActive)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", wrapQueryError(err))
	}
	return c.ProfileByID(ctx, p.ID)
}

// UpdateProfile changes the role and/or activation of a profile.
func (c *Client) UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("update profile %q: %w", id, ErrNotFound)
	}
	tag, err := c.pool.Exec(ctx, `
        UPDATE profiles SET
            role_id   = COALESCE($2, role_id),
            is_active = COALESCE($3, is_active)
        WHERE id = $1::uuid`, id, u.RoleID, u.IsActive)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", wrapQueryError(err))
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("update profile %s: %w", id, ErrNotFound)
	}
	return c.ProfileByID(ctx, id)
}

// ============================================================================
// ROLE OPERATIONS
// ============================================================================

// ListRoles returns all roles with their granted permissions.
func (c *Client) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := c.pool.Query(ctx, `
        SELECT r.id, r.name, r.description, p.id, p.name, p.description
        FROM roles r
        LEFT JOIN role_permissions rp ON rp.role_id = r.id
        LEFT JOIN permissions p ON p.id = rp.permission_id
        ORDER BY r.id, p.name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := []models.Role{}
	for rows.Next() {
		var (
			r              models.Role
			permID         *int64
			permName, desc *string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &permID, &permName, &desc); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		if n := len(roles); n == 0 || roles[n-1].ID != r.ID {
			r.Permissions = []models.Permission{}
			roles = append(roles, r)
		}
		if permID != nil {
			last := &roles[len(roles)-1]
			last.Permissions = append(last.Permissions, models.Permission{ID: *permID, Name: deref(permName), Description: deref(desc)})
		}
	}
	return roles, rows.Err()
}

// CreateRole inserts a role.
func (c *Client) CreateRole(ctx context.Context, in models.RoleInput) (*models.Role, error) {
	r := models.Role{Name: in.Name, Description: in.Description, Permissions: []models.Permission{}}
	err := c.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id`,
		in.Name, in.Description).Scan(&r.ID)
	if err != nil {
		return nil, fmt.Errorf("create role: %w", wrapQueryError(err))
	}
	return &r, nil
}

// UpdateRole renames a role or changes its description.
func (c *Client) UpdateRole(ctx context.Context, id int64, in models.RoleInput) (*models.Role, error) {
	r := models.Role{ID: id}
	err := c.pool.QueryRow(ctx, `
        UPDATE roles SET
            name        = COALESCE(NULLIF($2, ''), name),
            description = $3
        WHERE id = $1
        RETURNING name, description`, id, in.Name, in.Description).Scan(&r.Name, &r.Description)
	if err != nil {
		return nil, fmt.Errorf("update role %d: %w", id, wrapQueryError(err))
	}
	return &r, nil
}

// DeleteRole removes a role. Roles still assigned to profiles fail with ErrInUse.
func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete role %d: %w", id, wrapQueryError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete role %d: %w", id, ErrNotFound)
	}
	return nil
}

// ============================================================================
// PERMISSION OPERATIONS
// ============================================================================

// ListPermissions returns all permissions ordered by name.
func (c *Client) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	rows, err := c.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	perms := []models.Permission{}
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreatePermission inserts a permission.
func (c *Client) CreatePermission(ctx context.Context, in models.PermissionInput) (*models.Permission, error) {
	p := models.Permission{Name: in.Name, Description: in.Description}
	err := c.pool.QueryRow(ctx,
		`INSERT INTO permissions (name, description) VALUES ($1, $2) RETURNING id`,
		in.Name, in.Description).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("create permission: %w", wrapQueryError(err))
	}
	return &p, nil
}

// DeletePermission removes a permission and its grants.
func (c *Client) DeletePermission(ctx context.Context, id int64) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete permission %d: %w", id, wrapQueryError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete permission %d: %w", id, ErrNotFound)
	}
	return nil
}

// GrantPermission links a permission to a role. Granting twice is a no-op.
func (c *Client) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := c.pool.Exec(ctx, `
        INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING`, roleID, permissionID)
	if err != nil {
		err = wrapQueryError(err)
		if errors.Is(err, ErrInUse) {
			// A foreign key violation here means the role or permission is missing.
			return fmt.Errorf("grant permission %d to role %d: %w", permissionID, roleID, ErrNotFound)
		}
		return fmt.Errorf("grant permission: %w", err)
	}
	return nil
}

// RevokePermission unlinks a permission from a role.
func (c *Client) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	tag, err := c.pool.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("revoke permission %d from role %d: %w", permissionID, roleID, ErrNotFound)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
