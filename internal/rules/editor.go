// Package rules stages edits to the rules of one (feed, rule type) pair in
// memory and commits them to the gateway in a single batch.
//
// An Editor keeps four buffers on top of the rows last loaded from the
// server: patches for existing rows, deletes of existing rows, creates with
// negative temporary IDs, and the set of rows whose min_price was typed in by
// hand. Nothing is sent until Save.
package rules

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

var (
	// ErrUnknownRule is returned for IDs that are neither loaded nor pending.
	ErrUnknownRule = errors.New("unknown rule")
	// ErrRuleDeleted is returned when patching a row staged for deletion.
	ErrRuleDeleted = errors.New("rule is staged for deletion")
	// ErrInvalidMove is returned when a move index is out of range.
	ErrInvalidMove = errors.New("invalid move")
)

// Patch is a partial edit of one rule. Config is shallow-merged into the
// rule's config.
type Patch struct {
	Priority *int
	Enabled  *bool
	Notes    *string
	Config   map[string]any
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.Priority == nil && p.Enabled == nil && p.Notes == nil && len(p.Config) == 0
}

// merge folds next into p; later values win, config keys are merged.
func (p Patch) merge(next Patch) Patch {
	if next.Priority != nil {
		p.Priority = next.Priority
	}
	if next.Enabled != nil {
		p.Enabled = next.Enabled
	}
	if next.Notes != nil {
		p.Notes = next.Notes
	}
	if len(next.Config) > 0 {
		merged := models.CloneMap(p.Config)
		if merged == nil {
			merged = make(map[string]any, len(next.Config))
		}
		maps.Copy(merged, next.Config)
		p.Config = merged
	}
	return p
}

// apply returns a copy of r with the patch applied.
func (p Patch) apply(r models.IngestionRule) models.IngestionRule {
	r = r.Clone()
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
	if p.Notes != nil {
		n := *p.Notes
		r.Notes = &n
	}
	if len(p.Config) > 0 {
		if r.Config == nil {
			r.Config = make(map[string]any, len(p.Config))
		}
		maps.Copy(r.Config, models.CloneMap(p.Config))
	}
	return r
}

// Counts summarises the pending buffers.
type Counts struct {
	Changes int `json:"changes"`
	Deletes int `json:"deletes"`
	Creates int `json:"creates"`
}

// Total is the number of network calls a Save would issue.
func (c Counts) Total() int {
	return c.Changes + c.Deletes + c.Creates
}

// Editor holds the pending-change state for one rule table.
// All methods are safe for concurrent use.
type Editor struct {
	mu       sync.Mutex
	feedKey  string
	ruleType string

	rows     []models.IngestionRule
	changes  map[int64]Patch
	deletes  map[int64]struct{}
	creates  []models.IngestionRule
	manual   map[int64]struct{}
	lastTemp int64

	// seq counts edits; touched holds the seq of the last edit per ID so a
	// Save can tell edits made while it was in flight.
	seq     uint64
	touched map[int64]uint64
}

// NewEditor creates an editor over the given server rows.
func NewEditor(feedKey, ruleType string, rows []models.IngestionRule) *Editor {
	e := &Editor{feedKey: feedKey, ruleType: ruleType}
	e.Load(rows)
	return e
}

// FeedKey returns the feed the editor is scoped to.
func (e *Editor) FeedKey() string { return e.feedKey }

// RuleType returns the rule type the editor is scoped to.
func (e *Editor) RuleType() string { return e.ruleType }

// Load replaces the server rows and drops every pending buffer.
func (e *Editor) Load(rows []models.IngestionRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rows = make([]models.IngestionRule, 0, len(rows))
	for _, r := range rows {
		e.rows = append(e.rows, r.Clone())
	}
	sortByPriority(e.rows)
	e.resetLocked()
}

// Discard drops every pending buffer and keeps the loaded rows.
func (e *Editor) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Editor) resetLocked() {
	e.changes = make(map[int64]Patch)
	e.deletes = make(map[int64]struct{})
	e.creates = nil
	e.manual = make(map[int64]struct{})
	e.touched = make(map[int64]uint64)
	e.lastTemp = 0
}

func (e *Editor) touchLocked(id int64) {
	e.seq++
	e.touched[id] = e.seq
}

// HasPendingChanges reports whether any buffer is non-empty.
func (e *Editor) HasPendingChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.changes) > 0 || len(e.deletes) > 0 || len(e.creates) > 0
}

// Counts returns the size of each pending buffer.
func (e *Editor) Counts() Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Counts{Changes: len(e.changes), Deletes: len(e.deletes), Creates: len(e.creates)}
}

// IsDeleted reports whether id is staged for deletion.
func (e *Editor) IsDeleted(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.deletes[id]
	return ok
}

// IsManuallyEdited reports whether id had its min_price set directly.
func (e *Editor) IsManuallyEdited(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.manual[id]
	return ok
}

// Create stages a new rule at the end of the table and returns its
// temporary ID (-1, -2, ...). Feed key and rule type come from the editor.
func (e *Editor) Create(rule models.IngestionRule) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	display := e.displayedLocked()
	next := 0
	if n := len(display); n > 0 {
		next = display[n-1].Priority + 1
	}

	e.lastTemp--
	rule = rule.Clone()
	rule.ID = e.lastTemp
	rule.FeedKey = e.feedKey
	rule.RuleType = e.ruleType
	rule.Priority = next
	if rule.Config == nil {
		rule.Config = make(map[string]any)
	}
	e.creates = append(e.creates, rule)
	e.touchLocked(rule.ID)
	return rule.ID
}

// Update stages a patch. Patches on temporary IDs edit the pending create in
// place. For pricing tables a max_price change is chained to the next row.
func (e *Editor) Update(id int64, p Patch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.stageLocked(id, p); err != nil {
		return err
	}

	if _, ok := p.Config[models.ConfigMinPrice]; ok {
		e.manual[id] = struct{}{}
	}
	if e.ruleType == models.RuleTypePricing {
		if v, ok := p.Config[models.ConfigMaxPrice]; ok {
			e.chainMinPriceLocked(id, v)
		}
	}
	return nil
}

// stageLocked records p against id without any side effects.
func (e *Editor) stageLocked(id int64, p Patch) error {
	if id < 0 {
		i := e.createIndexLocked(id)
		if i < 0 {
			return fmt.Errorf("update rule %d: %w", id, ErrUnknownRule)
		}
		e.creates[i] = p.apply(e.creates[i])
		e.touchLocked(id)
		return nil
	}

	if e.rowIndexLocked(id) < 0 {
		return fmt.Errorf("update rule %d: %w", id, ErrUnknownRule)
	}
	if _, ok := e.deletes[id]; ok {
		return fmt.Errorf("update rule %d: %w", id, ErrRuleDeleted)
	}
	e.changes[id] = e.changes[id].merge(p)
	e.touchLocked(id)
	return nil
}

// Delete stages removal of a rule. Deleting a temporary ID drops the
// pending create; deleting a loaded row discards its pending patch.
func (e *Editor) Delete(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id < 0 {
		i := e.createIndexLocked(id)
		if i < 0 {
			return fmt.Errorf("delete rule %d: %w", id, ErrUnknownRule)
		}
		e.creates = slices.Delete(e.creates, i, i+1)
		delete(e.manual, id)
		e.touchLocked(id)
		return nil
	}

	if e.rowIndexLocked(id) < 0 {
		return fmt.Errorf("delete rule %d: %w", id, ErrUnknownRule)
	}
	delete(e.changes, id)
	delete(e.manual, id)
	e.deletes[id] = struct{}{}
	e.touchLocked(id)
	return nil
}

// Restore un-stages a pending delete.
func (e *Editor) Restore(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.deletes[id]; ok {
		delete(e.deletes, id)
		e.touchLocked(id)
	}
}

// Displayed returns the rows as they would look after Save, in priority
// order: loaded rows with patches applied and deletes removed, followed by
// pending creates at equal priority.
func (e *Editor) Displayed() []models.IngestionRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayedLocked()
}

// Deleted returns the loaded rows staged for deletion.
func (e *Editor) Deleted() []models.IngestionRule {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []models.IngestionRule
	for _, r := range e.rows {
		if _, ok := e.deletes[r.ID]; ok {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (e *Editor) displayedLocked() []models.IngestionRule {
	out := make([]models.IngestionRule, 0, len(e.rows)+len(e.creates))
	for _, r := range e.rows {
		if _, ok := e.deletes[r.ID]; ok {
			continue
		}
		if p, ok := e.changes[r.ID]; ok {
			out = append(out, p.apply(r))
			continue
		}
		out = append(out, r.Clone())
	}
	for _, c := range e.creates {
		out = append(out, c.Clone())
	}
	sortByPriority(out)
	return out
}

func (e *Editor) rowIndexLocked(id int64) int {
	return slices.IndexFunc(e.rows, func(r models.IngestionRule) bool { return r.ID == id })
}

func (e *Editor) createIndexLocked(id int64) int {
	return slices.IndexFunc(e.creates, func(r models.IngestionRule) bool { return r.ID == id })
}

// sortByPriority orders rows by priority; loaded rows come before pending
// creates on ties, and the original order is kept otherwise.
func sortByPriority(rows []models.IngestionRule) {
	slices.SortStableFunc(rows, func(a, b models.IngestionRule) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		if a.IsTemp() != b.IsTemp() {
			if a.IsTemp() {
				return 1
			}
			return -1
		}
		return 0
	})
}
