package models

// FilterRule keeps or drops records based on one field comparison.
type FilterRule struct {
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    any    `json:"value,omitempty" yaml:"value,omitempty"`
	Enabled  bool   `json:"enabled" yaml:"enabled"`
}

// FieldMapping renames a source field to a target collection field.
type FieldMapping struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// FieldTransformation applies a named transformation to a field.
type FieldTransformation struct {
	Field  string         `json:"field" yaml:"field"`
	Type   string         `json:"type" yaml:"type"` // "trim", "lowercase", "uppercase", "replace", "round"
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// CalculatedField derives a new field from an expression over existing ones.
type CalculatedField struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
}

// ShardRule routes records to a shard by field value.
type ShardRule struct {
	Field    string `json:"field" yaml:"field"`
	Strategy string `json:"strategy" yaml:"strategy"` // "hash", "value", "range"
	Value    any    `json:"value,omitempty" yaml:"value,omitempty"`
	Shard    string `json:"shard,omitempty" yaml:"shard,omitempty"`
}

// FeedRulesConfig is the per-feed aggregate of ingestion rules stored as JSON
// columns on the feed record and edited as a unit.
type FeedRulesConfig struct {
	Filters              []FilterRule          `json:"filters" yaml:"filters"`
	FieldMappings        []FieldMapping        `json:"fieldMappings" yaml:"fieldMappings"`
	FieldTransformations []FieldTransformation `json:"fieldTransformations" yaml:"fieldTransformations"`
	CalculatedFields     []CalculatedField     `json:"calculatedFields" yaml:"calculatedFields"`
	ShardRules           []ShardRule           `json:"shardRules" yaml:"shardRules"`
}

// Clone returns a deep copy of the config. Nil receivers clone to an empty config.
func (c *FeedRulesConfig) Clone() *FeedRulesConfig {
	out := &FeedRulesConfig{}
	if c == nil {
		return out
	}

	out.Filters = make([]FilterRule, len(c.Filters))
	for i, f := range c.Filters {
		f.Value = cloneValue(f.Value)
		out.Filters[i] = f
	}

	out.FieldMappings = append([]FieldMapping(nil), c.FieldMappings...)

	out.FieldTransformations = make([]FieldTransformation, len(c.FieldTransformations))
	for i, t := range c.FieldTransformations {
		t.Params = CloneMap(t.Params)
		out.FieldTransformations[i] = t
	}

	out.CalculatedFields = append([]CalculatedField(nil), c.CalculatedFields...)

	out.ShardRules = make([]ShardRule, len(c.ShardRules))
	for i, s := range c.ShardRules {
		s.Value = cloneValue(s.Value)
		out.ShardRules[i] = s
	}

	return out
}

// CloneMap deep-copies a JSON-like map.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
