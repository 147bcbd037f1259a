package db

// SchemaSQL creates the access-control tables. Profiles reference Supabase
// auth users by UUID; the auth schema itself is managed by Supabase.
const SchemaSQL = `
    -- ==========================================================================
    -- ROLES
    -- ==========================================================================
    CREATE TABLE IF NOT EXISTS roles (
        id          BIGSERIAL PRIMARY KEY,
        name        TEXT NOT NULL UNIQUE,
        description TEXT NOT NULL DEFAULT '',
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
    );

    -- ==========================================================================
    -- PERMISSIONS
    -- ==========================================================================
    CREATE TABLE IF NOT EXISTS permissions (
        id          BIGSERIAL PRIMARY KEY,
        name        TEXT NOT NULL UNIQUE,
        description TEXT NOT NULL DEFAULT '',
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
    );

    CREATE TABLE IF NOT EXISTS role_permissions (
        role_id       BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
        permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
        PRIMARY KEY (role_id, permission_id)
    );

    -- ==========================================================================
    -- PROFILES
    -- ==========================================================================
    -- New sign-ups start inactive until an admin approves them.
    CREATE TABLE IF NOT EXISTS profiles (
        id         UUID PRIMARY KEY,
        email      TEXT NOT NULL,
        full_name  TEXT NOT NULL DEFAULT '',
        role_id    BIGINT REFERENCES roles(id) ON DELETE RESTRICT,
        is_active  BOOLEAN NOT NULL DEFAULT false,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );

    CREATE INDEX IF NOT EXISTS profiles_role_id ON profiles (role_id);
`

const seedRoleSQL = `
    INSERT INTO roles (name, description) VALUES ($1, $2)
    ON CONFLICT (name) DO NOTHING`

const seedPermissionSQL = `
    INSERT INTO permissions (name, description) VALUES ($1, $2)
    ON CONFLICT (name) DO NOTHING`

const seedGrantSQL = `
    INSERT INTO role_permissions (role_id, permission_id)
    SELECT r.id, p.id FROM roles r, permissions p
    WHERE r.name = $1 AND p.name = $2
    ON CONFLICT DO NOTHING`
