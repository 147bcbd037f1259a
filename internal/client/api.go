package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/cache"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/metrics"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

// Cache keys shared with callers that invalidate them.
const (
	KeyFeeds       = "feeds"
	KeyRules       = "rules"
	KeySchedules   = "schedules"
	KeyMonitoring  = "monitoring"
	KeyCollections = "collections"
	KeyWorkers     = "workers"
	KeyRoles       = "roles"
	KeyPermissions = "permissions"
	KeyProfiles    = "profiles"
)

// =============================================================================
// FEED OPERATIONS
// =============================================================================

// ListFeeds returns all feeds, optionally scoped to a tenant.
func (c *Client) ListFeeds(ctx context.Context, tenantID string) ([]models.Feed, error) {
	key := KeyFeeds
	q := url.Values{}
	if tenantID != "" {
		q.Set("tenant_id", tenantID)
		key = cache.Key(KeyFeeds, "tenant", tenantID)
	}
	return fetch(ctx, c, key, func(ctx context.Context) ([]models.Feed, error) {
		var feeds []models.Feed
		if err := c.do(ctx, http.MethodGet, "/api/feeds", q, nil, &feeds); err != nil {
			return nil, fmt.Errorf("list feeds: %w", err)
		}
		return feeds, nil
	})
}

// GetFeed returns one feed by key.
func (c *Client) GetFeed(ctx context.Context, key string) (*models.Feed, error) {
	return fetch(ctx, c, cache.Key(KeyFeeds, key), func(ctx context.Context) (*models.Feed, error) {
		var raw jsoniter.RawMessage
		q := url.Values{"key": {key}}
		if err := c.do(ctx, http.MethodGet, "/api/feeds", q, nil, &raw); err != nil {
			return nil, fmt.Errorf("get feed %s: %w", key, err)
		}

		var feeds []models.Feed
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
			var feed models.Feed
			if err := json.Unmarshal(trimmed, &feed); err != nil {
				return nil, fmt.Errorf("decode feed %s: %w", key, err)
			}
			feeds = append(feeds, feed)
		} else if err := json.Unmarshal(trimmed, &feeds); err != nil {
			return nil, fmt.Errorf("decode feed %s: %w", key, err)
		}
		for i := range feeds {
			if feeds[i].Key == key {
				return &feeds[i], nil
			}
		}
		return nil, fmt.Errorf("get feed %s: %w", key, ErrNotFound)
	})
}

// CreateFeed creates a feed.
func (c *Client) CreateFeed(ctx context.Context, feed models.Feed) (*models.Feed, error) {
	var created models.Feed
	if err := c.do(ctx, http.MethodPost, "/api/feeds", nil, feed, &created); err != nil {
		return nil, fmt.Errorf("create feed: %w", err)
	}
	c.invalidate(KeyFeeds)
	return &created, nil
}

// UpdateFeed applies a partial update to the feed named in u.Key.
func (c *Client) UpdateFeed(ctx context.Context, u models.FeedUpdate) (*models.Feed, error) {
	var updated models.Feed
	if err := c.do(ctx, http.MethodPatch, "/api/feeds", nil, u, &updated); err != nil {
		return nil, fmt.Errorf("update feed %s: %w", u.Key, err)
	}
	c.invalidate(KeyFeeds)
	return &updated, nil
}

// UpdateFeedRules replaces a feed's rules config. Cache handling is left to
// the caller, which updates it optimistically.
func (c *Client) UpdateFeedRules(ctx context.Context, feedKey string, cfg *models.FeedRulesConfig) (*models.Feed, error) {
	var updated models.Feed
	body := models.FeedUpdate{Key: feedKey, Rules: cfg}
	if err := c.do(ctx, http.MethodPatch, "/api/feeds", nil, body, &updated); err != nil {
		return nil, fmt.Errorf("update feed rules %s: %w", feedKey, err)
	}
	return &updated, nil
}

// DeleteFeed deletes a feed by key.
func (c *Client) DeleteFeed(ctx context.Context, key string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/feeds", url.Values{"key": {key}}, nil, nil); err != nil {
		return fmt.Errorf("delete feed %s: %w", key, err)
	}
	c.invalidate(KeyFeeds, cache.Key(KeyRules, key))
	return nil
}

// FetchHeaders probes a feed source for its column headers, optionally
// saving them as the feed schema.
func (c *Client) FetchHeaders(ctx context.Context, feedKey, tenantID string, save bool) (*models.FeedHeaders, error) {
	q := url.Values{"feedKey": {feedKey}}
	if tenantID != "" {
		q.Set("tenant_id", tenantID)
	}
	if save {
		q.Set("save", "true")
	}
	var headers models.FeedHeaders
	if err := c.do(ctx, http.MethodGet, "/api/feeds/headers", q, nil, &headers); err != nil {
		return nil, fmt.Errorf("fetch headers %s: %w", feedKey, err)
	}
	if save {
		c.invalidate(KeyFeeds)
	}
	return &headers, nil
}

// =============================================================================
// RULE OPERATIONS
// =============================================================================

// ListRules returns the rules of a feed, optionally of one type.
func (c *Client) ListRules(ctx context.Context, feedKey, ruleType string) ([]models.IngestionRule, error) {
	q := url.Values{}
	if feedKey != "" {
		q.Set("feed_key", feedKey)
	}
	if ruleType != "" {
		q.Set("rule_type", ruleType)
	}
	key := cache.Key(KeyRules, feedKey, ruleType)
	return fetch(ctx, c, key, func(ctx context.Context) ([]models.IngestionRule, error) {
		var rules []models.IngestionRule
		if err := c.do(ctx, http.MethodGet, "/api/rules", q, nil, &rules); err != nil {
			return nil, fmt.Errorf("list rules: %w", err)
		}
		return rules, nil
	})
}

// CountRules returns how many rules reference a feed.
func (c *Client) CountRules(ctx context.Context, feedKey string) (int, error) {
	rules, err := c.ListRules(ctx, feedKey, "")
	if err != nil {
		return 0, err
	}
	return len(rules), nil
}

// CreateRule creates a rule.
func (c *Client) CreateRule(ctx context.Context, in models.RuleInput) (*models.IngestionRule, error) {
	var created models.IngestionRule
	if err := c.do(ctx, http.MethodPost, "/api/rules", nil, in, &created); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	c.invalidate(KeyRules)
	return &created, nil
}

// UpdateRule applies a partial update to a rule.
func (c *Client) UpdateRule(ctx context.Context, id int64, in models.RuleUpdate) (*models.IngestionRule, error) {
	var updated models.IngestionRule
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	if err := c.do(ctx, http.MethodPatch, "/api/rules", q, in, &updated); err != nil {
		return nil, fmt.Errorf("update rule %d: %w", id, err)
	}
	c.invalidate(KeyRules)
	return &updated, nil
}

// DeleteRule deletes a rule.
func (c *Client) DeleteRule(ctx context.Context, id int64) error {
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	if err := c.do(ctx, http.MethodDelete, "/api/rules", q, nil, nil); err != nil {
		return fmt.Errorf("delete rule %d: %w", id, err)
	}
	c.invalidate(KeyRules)
	return nil
}

// =============================================================================
// SCHEDULE OPERATIONS
// =============================================================================

// ListSchedules returns all schedules.
func (c *Client) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	return fetch(ctx, c, KeySchedules, func(ctx context.Context) ([]models.Schedule, error) {
		var schedules []models.Schedule
		if err := c.do(ctx, http.MethodGet, "/api/schedules", nil, nil, &schedules); err != nil {
			return nil, fmt.Errorf("list schedules: %w", err)
		}
		return schedules, nil
	})
}

// CreateSchedule creates a schedule.
func (c *Client) CreateSchedule(ctx context.Context, s models.Schedule) (*models.Schedule, error) {
	var created models.Schedule
	if err := c.do(ctx, http.MethodPost, "/api/schedules", nil, s, &created); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	c.invalidate(KeySchedules, KeyMonitoring)
	return &created, nil
}

// UpdateSchedule applies a partial update to a schedule.
func (c *Client) UpdateSchedule(ctx context.Context, id string, patch map[string]any) (*models.Schedule, error) {
	var updated models.Schedule
	if err := c.do(ctx, http.MethodPatch, "/api/schedules", url.Values{"id": {id}}, patch, &updated); err != nil {
		return nil, fmt.Errorf("update schedule %s: %w", id, err)
	}
	c.invalidate(KeySchedules, KeyMonitoring)
	return &updated, nil
}

// DeleteSchedule deletes a schedule.
func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/schedules", url.Values{"id": {id}}, nil, nil); err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	c.invalidate(KeySchedules, KeyMonitoring)
	return nil
}

// ExecuteSchedule triggers an ad hoc run. On success the schedule and
// monitoring caches are invalidated.
func (c *Client) ExecuteSchedule(ctx context.Context, id string) (*models.ScheduleExecution, error) {
	var exec models.ScheduleExecution
	if err := c.do(ctx, http.MethodPost, "/api/schedules/execute", url.Values{"id": {id}}, nil, &exec); err != nil {
		return nil, fmt.Errorf("execute schedule %s: %w", id, err)
	}
	if exec.ScheduleID == "" {
		exec.ScheduleID = id
	}
	c.invalidate(KeySchedules, KeyMonitoring)
	return &exec, nil
}

// =============================================================================
// COLLECTION, WORKER AND SCHEMA OPERATIONS
// =============================================================================

// ListCollections returns the search collections.
func (c *Client) ListCollections(ctx context.Context) ([]models.Collection, error) {
	return fetch(ctx, c, KeyCollections, func(ctx context.Context) ([]models.Collection, error) {
		var collections []models.Collection
		if err := c.do(ctx, http.MethodGet, "/api/collections", nil, nil, &collections); err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		return collections, nil
	})
}

// CollectionLastUpdate returns when a collection last received documents.
func (c *Client) CollectionLastUpdate(ctx context.Context, name string) (*models.CollectionUpdate, error) {
	var update models.CollectionUpdate
	path := "/api/collections/" + url.PathEscape(name) + "/last-update"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &update); err != nil {
		return nil, fmt.Errorf("collection last update %s: %w", name, err)
	}
	if update.Name == "" {
		update.Name = name
	}
	return &update, nil
}

// ListWorkers returns the registered workers.
func (c *Client) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	return fetch(ctx, c, KeyWorkers, func(ctx context.Context) ([]models.Worker, error) {
		var workers []models.Worker
		if err := c.do(ctx, http.MethodGet, "/api/workers", nil, nil, &workers); err != nil {
			return nil, fmt.Errorf("list workers: %w", err)
		}
		return workers, nil
	})
}

// SchemaColumns returns the columns of the given modules.
func (c *Client) SchemaColumns(ctx context.Context, modules []string) ([]models.SchemaColumn, error) {
	q := url.Values{}
	if len(modules) > 0 {
		q.Set("modules", strings.Join(modules, ","))
	}
	var columns []models.SchemaColumn
	if err := c.do(ctx, http.MethodGet, "/api/schema/columns", q, nil, &columns); err != nil {
		return nil, fmt.Errorf("schema columns: %w", err)
	}
	return columns, nil
}

// SearchHealth probes the search engine through the server.
func (c *Client) SearchHealth(ctx context.Context) (*models.SearchHealth, error) {
	var health models.SearchHealth
	if err := c.do(ctx, http.MethodGet, "/api/typesense/health", nil, nil, &health); err != nil {
		return nil, fmt.Errorf("search health: %w", err)
	}
	return &health, nil
}

// =============================================================================
// MONITORING OPERATIONS
// =============================================================================

// MonitoringSnapshot returns the scheduler monitoring snapshot.
func (c *Client) MonitoringSnapshot(ctx context.Context) (*models.MonitoringSnapshot, error) {
	return fetch(ctx, c, KeyMonitoring, func(ctx context.Context) (*models.MonitoringSnapshot, error) {
		var snap models.MonitoringSnapshot
		if err := c.do(ctx, http.MethodGet, "/api/scheduler/monitoring", nil, nil, &snap); err != nil {
			return nil, fmt.Errorf("monitoring snapshot: %w", err)
		}
		return &snap, nil
	})
}

// =============================================================================
// ACCESS OPERATIONS
// =============================================================================

// Me returns the current session's profile, role and permissions.
func (c *Client) Me(ctx context.Context) (*models.Me, error) {
	var me models.Me
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, nil, &me); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &me, nil
}

// ListRoles returns all roles with their permissions.
func (c *Client) ListRoles(ctx context.Context) ([]models.Role, error) {
	return fetch(ctx, c, KeyRoles, func(ctx context.Context) ([]models.Role, error) {
		var roles []models.Role
		if err := c.do(ctx, http.MethodGet, "/api/admin/roles", nil, nil, &roles); err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		return roles, nil
	})
}

// CreateRole creates a role.
func (c *Client) CreateRole(ctx context.Context, in models.RoleInput) (*models.Role, error) {
	var role models.Role
	if err := c.do(ctx, http.MethodPost, "/api/admin/roles", nil, in, &role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	c.invalidate(KeyRoles)
	return &role, nil
}

// UpdateRole renames or re-describes a role.
func (c *Client) UpdateRole(ctx context.Context, id int64, in models.RoleInput) (*models.Role, error) {
	var role models.Role
	if err := c.do(ctx, http.MethodPatch, "/api/admin/roles/"+strconv.FormatInt(id, 10), nil, in, &role); err != nil {
		return nil, fmt.Errorf("update role %d: %w", id, err)
	}
	c.invalidate(KeyRoles)
	return &role, nil
}

// DeleteRole deletes a role.
func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "/api/admin/roles/"+strconv.FormatInt(id, 10), nil, nil, nil); err != nil {
		return fmt.Errorf("delete role %d: %w", id, err)
	}
	c.invalidate(KeyRoles, KeyProfiles)
	return nil
}

// ListPermissions returns all permissions.
func (c *Client) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return fetch(ctx, c, KeyPermissions, func(ctx context.Context) ([]models.Permission, error) {
		var perms []models.Permission
		if err := c.do(ctx, http.MethodGet, "/api/admin/permissions", nil, nil, &perms); err != nil {
			return nil, fmt.Errorf("list permissions: %w", err)
		}
		return perms, nil
	})
}

// CreatePermission creates a permission.
func (c *Client) CreatePermission(ctx context.Context, in models.PermissionInput) (*models.Permission, error) {
	var perm models.Permission
	if err := c.do(ctx, http.MethodPost, "/api/admin/permissions", nil, in, &perm); err != nil {
		return nil, fmt.Errorf("create permission: %w", err)
	}
	c.invalidate(KeyPermissions)
	return &perm, nil
}

// DeletePermission deletes a permission.
func (c *Client) DeletePermission(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "/api/admin/permissions/"+strconv.FormatInt(id, 10), nil, nil, nil); err != nil {
		return fmt.Errorf("delete permission %d: %w", id, err)
	}
	c.invalidate(KeyPermissions, KeyRoles)
	return nil
}

// GrantPermission adds a permission to a role.
func (c *Client) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	path := fmt.Sprintf("/api/admin/roles/%d/permissions/%d", roleID, permissionID)
	if err := c.do(ctx, http.MethodPut, path, nil, nil, nil); err != nil {
		return fmt.Errorf("grant permission %d to role %d: %w", permissionID, roleID, err)
	}
	c.invalidate(KeyRoles)
	return nil
}

// RevokePermission removes a permission from a role.
func (c *Client) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	path := fmt.Sprintf("/api/admin/roles/%d/permissions/%d", roleID, permissionID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("revoke permission %d from role %d: %w", permissionID, roleID, err)
	}
	c.invalidate(KeyRoles)
	return nil
}

// ListProfiles returns all user profiles.
func (c *Client) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	return fetch(ctx, c, KeyProfiles, func(ctx context.Context) ([]models.Profile, error) {
		var profiles []models.Profile
		if err := c.do(ctx, http.MethodGet, "/api/admin/profiles", nil, nil, &profiles); err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}
		return profiles, nil
	})
}

// UpdateProfile changes a profile's role or activation.
func (c *Client) UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodPatch, "/api/admin/profiles/"+url.PathEscape(id), nil, u, &profile); err != nil {
		return nil, fmt.Errorf("update profile %s: %w", id, err)
	}
	c.invalidate(KeyProfiles)
	return &profile, nil
}

// ServerStats returns the server's in-memory request statistics.
func (c *Client) ServerStats(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, nil, &snap); err != nil {
		return nil, fmt.Errorf("server stats: %w", err)
	}
	return &snap, nil
}
