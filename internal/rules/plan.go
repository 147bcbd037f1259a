package rules

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/validation"
)

// Plan is a file-driven batch of rule edits for one feed and rule type.
//
//	feed: acme
//	type: pricing
//	create:
//	  - config: {min_price: 0, max_price: 100, percent: 20}
//	update:
//	  - id: 12
//	    config: {max_price: 250}
//	delete: [14]
//	move:
//	  - {id: 12, to: 0}
type Plan struct {
	Feed   string       `yaml:"feed" json:"feed"`
	Type   string       `yaml:"type" json:"type"`
	Create []PlanCreate `yaml:"create,omitempty" json:"create,omitempty"`
	Update []PlanUpdate `yaml:"update,omitempty" json:"update,omitempty"`
	Delete []int64      `yaml:"delete,omitempty" json:"delete,omitempty"`
	Move   []PlanMove   `yaml:"move,omitempty" json:"move,omitempty"`
}

// PlanCreate describes a new rule.
type PlanCreate struct {
	Enabled *bool          `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Config  map[string]any `yaml:"config" json:"config"`
	Notes   *string        `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// PlanUpdate patches an existing rule.
type PlanUpdate struct {
	ID      int64          `yaml:"id" json:"id"`
	Enabled *bool          `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Config  map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	Notes   *string        `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// PlanMove moves an existing rule to a display index.
type PlanMove struct {
	ID int64 `yaml:"id" json:"id"`
	To int   `yaml:"to" json:"to"`
}

// Validate reports every structural problem in the plan at once.
func (p Plan) Validate() error {
	var result *multierror.Error

	if p.Feed == "" {
		result = multierror.Append(result, fmt.Errorf("feed is required"))
	}
	if p.Type == "" {
		result = multierror.Append(result, fmt.Errorf("type is required"))
	}
	for i, u := range p.Update {
		if u.ID <= 0 {
			result = multierror.Append(result, fmt.Errorf("update %d: id must be a saved rule id", i+1))
		}
	}
	for i, id := range p.Delete {
		if id <= 0 {
			result = multierror.Append(result, fmt.Errorf("delete %d: id must be a saved rule id", i+1))
		}
	}
	for i, m := range p.Move {
		if m.To < 0 {
			result = multierror.Append(result, fmt.Errorf("move %d: target index must not be negative", i+1))
		}
	}
	if p.Type == models.RuleTypePricing {
		for i, c := range p.Create {
			min, okMin := validation.PriceValue(c.Config[models.ConfigMinPrice])
			max, okMax := validation.PriceValue(c.Config[models.ConfigMaxPrice])
			if okMin && okMax && !validation.ValidatePriceRange(min, max) {
				result = multierror.Append(result, fmt.Errorf("create %d: %w (%g >= %g)", i+1, validation.ErrInvalidRange, min, max))
			}
		}
	}

	return result.ErrorOrNil()
}

// Apply stages the plan on e: creates, then updates, deletes and moves.
// It stops at the first edit the editor rejects.
func (p Plan) Apply(e *Editor) error {
	for _, c := range p.Create {
		enabled := true
		if c.Enabled != nil {
			enabled = *c.Enabled
		}
		e.Create(models.IngestionRule{Enabled: enabled, Config: c.Config, Notes: c.Notes})
	}
	for _, u := range p.Update {
		if err := e.Update(u.ID, Patch{Enabled: u.Enabled, Config: u.Config, Notes: u.Notes}); err != nil {
			return err
		}
	}
	for _, id := range p.Delete {
		if err := e.Delete(id); err != nil {
			return err
		}
	}
	for _, m := range p.Move {
		if err := e.MoveByID(m.ID, m.To); err != nil {
			return err
		}
	}
	return nil
}
