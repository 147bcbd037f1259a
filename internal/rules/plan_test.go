package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/validation"
)

const samplePlan = `
feed: acme
type: pricing
create:
  - config: {min_price: 301, max_price: 400, percent: 5}
update:
  - id: 1
    enabled: false
delete: [2]
move:
  - {id: 3, to: 0}
`

func TestPlanApply(t *testing.T) {
	var plan Plan
	require.NoError(t, yaml.Unmarshal([]byte(samplePlan), &plan))
	require.NoError(t, plan.Validate())

	e := NewEditor(plan.Feed, plan.Type, pricingRows())
	require.NoError(t, plan.Apply(e))

	assert.Equal(t, []int64{3, 1, -1}, displayedIDs(e))
	assert.True(t, e.IsDeleted(2))
	assert.False(t, findRule(t, e, 1).Enabled)
	assert.True(t, findRule(t, e, -1).Enabled)
	assert.Equal(t, Counts{Changes: 2, Deletes: 1, Creates: 1}, e.Counts())
}

func TestPlanApplyStopsOnUnknownRule(t *testing.T) {
	plan := Plan{Feed: "acme", Type: models.RuleTypeOrigin, Update: []PlanUpdate{{ID: 99}}}
	e := NewEditor("acme", models.RuleTypeOrigin, pricingRows())
	assert.ErrorIs(t, plan.Apply(e), ErrUnknownRule)
}

func TestPlanValidate(t *testing.T) {
	plan := Plan{
		Type:   models.RuleTypePricing,
		Create: []PlanCreate{{Config: map[string]any{"min_price": 500, "max_price": 100}}},
		Update: []PlanUpdate{{ID: -1}},
		Delete: []int64{0},
		Move:   []PlanMove{{ID: 1, To: -2}},
	}

	err := plan.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "feed is required")
	assert.Contains(t, msg, "update 1")
	assert.Contains(t, msg, "delete 1")
	assert.Contains(t, msg, "move 1")
	assert.ErrorIs(t, err, validation.ErrInvalidRange)
}
