package models

import "time"

// Rule types known to the ingestion workers.
const (
	RuleTypePricing = "pricing"
	RuleTypeOrigin  = "origin"
	RuleTypeScoring = "scoring"
	RuleTypeFilter  = "filter"
	RuleTypeGeneric = "generic"
)

// Config keys used by pricing rules.
const (
	ConfigMinPrice = "min_price"
	ConfigMaxPrice = "max_price"
	ConfigPercent  = "percent"
)

// IngestionRule is one conditional or transformation instruction scoped to a
// (feed_key, rule_type) pair. Rules are evaluated in ascending priority.
type IngestionRule struct {
	ID        int64          `json:"id"` // Negative IDs are unsaved drafts
	FeedKey   string         `json:"feed_key"`
	RuleType  string         `json:"rule_type"`
	Priority  int            `json:"priority"`
	Enabled   bool           `json:"enabled"`
	Config    map[string]any `json:"config"`
	Notes     *string        `json:"notes,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

// IsTemp reports whether the rule only exists as a pending create.
func (r IngestionRule) IsTemp() bool {
	return r.ID < 0
}

// Clone returns a copy that shares no mutable state with r.
func (r IngestionRule) Clone() IngestionRule {
	r.Config = CloneMap(r.Config)
	if r.Notes != nil {
		n := *r.Notes
		r.Notes = &n
	}
	return r
}

// RuleInput is the payload for creating a rule.
type RuleInput struct {
	FeedKey  string         `json:"feed_key"`
	RuleType string         `json:"rule_type"`
	Priority int            `json:"priority"`
	Enabled  bool           `json:"enabled"`
	Config   map[string]any `json:"config"`
	Notes    *string        `json:"notes,omitempty"`
}

// RuleUpdate is a partial rule update sent to the gateway.
type RuleUpdate struct {
	Priority *int           `json:"priority,omitempty"`
	Enabled  *bool          `json:"enabled,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
	Notes    *string        `json:"notes,omitempty"`
}
