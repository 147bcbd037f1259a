// Package models defines data structures for the Ingestion Control Panel.
package models

import "time"

// FieldSchema describes one field of a feed's source records.
type FieldSchema struct {
	Name string `json:"name"`
	Type string `json:"type"` // "string", "number", "boolean", "date"
}

// Feed identifies an external data source ingested into a search collection.
type Feed struct {
	ID            int64              `json:"id,omitempty"`
	Key           string             `json:"key"`
	Label         string             `json:"label"`
	TenantID      string             `json:"tenant_id,omitempty"`
	Collection    string             `json:"collection"`
	FetchMethod   string             `json:"fetch_method,omitempty"` // GET or POST
	FetchURL      string             `json:"fetch_url,omitempty"`
	Credentials   map[string]string  `json:"credentials,omitempty"`
	ShardStrategy string             `json:"shard_strategy,omitempty"`
	Schema        []FieldSchema      `json:"field_schema,omitempty"`
	Rules         *FeedRulesConfig   `json:"rules,omitempty"`
	Markup        *MarkupRulesConfig `json:"markup_rules,omitempty"`
	Enabled       bool               `json:"enabled"`
	CreatedAt     *time.Time         `json:"created_at,omitempty"`
	UpdatedAt     *time.Time         `json:"updated_at,omitempty"`
}

// FeedUpdate is a partial feed update. Nil fields are left untouched.
type FeedUpdate struct {
	Key           string             `json:"key"`
	Label         *string            `json:"label,omitempty"`
	Collection    *string            `json:"collection,omitempty"`
	FetchMethod   *string            `json:"fetch_method,omitempty"`
	FetchURL      *string            `json:"fetch_url,omitempty"`
	Credentials   map[string]string  `json:"credentials,omitempty"`
	ShardStrategy *string            `json:"shard_strategy,omitempty"`
	Schema        []FieldSchema      `json:"field_schema,omitempty"`
	Rules         *FeedRulesConfig   `json:"rules,omitempty"`
	Markup        *MarkupRulesConfig `json:"markup_rules,omitempty"`
	Enabled       *bool              `json:"enabled,omitempty"`
}

// FeedHeaders is the result of probing a feed's source for its column headers.
type FeedHeaders struct {
	FeedKey string   `json:"feedKey"`
	Headers []string `json:"headers"`
	Saved   bool     `json:"saved"`
}

// MarkupTier is one price band of a markup configuration.
type MarkupTier struct {
	MinPrice float64 `json:"minPrice" yaml:"minPrice"`
	MaxPrice float64 `json:"maxPrice" yaml:"maxPrice"`
	Percent  float64 `json:"percent" yaml:"percent"`
}

// MarkupRulesConfig is the persisted markup JSON stored on a feed.
type MarkupRulesConfig struct {
	Rules       []MarkupTier `json:"rules" yaml:"rules"`
	PriceFields []string     `json:"priceFields" yaml:"priceFields"`
}
