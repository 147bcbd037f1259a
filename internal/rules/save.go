package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

// RuleStore persists rules. The API client implements it.
type RuleStore interface {
	CreateRule(ctx context.Context, in models.RuleInput) (*models.IngestionRule, error)
	UpdateRule(ctx context.Context, id int64, in models.RuleUpdate) (*models.IngestionRule, error)
	DeleteRule(ctx context.Context, id int64) error
}

// SaveResult lists what a successful batch wrote.
type SaveResult struct {
	Created []models.IngestionRule
	Updated []models.IngestionRule
	Deleted []int64
}

// Calls is the number of store calls the batch issued.
func (r SaveResult) Calls() int {
	return len(r.Created) + len(r.Updated) + len(r.Deleted)
}

// Save issues every pending create, update and delete concurrently. There is
// no ordering between the calls and no atomicity: if any call fails the
// batch is reported as failed, the buffers are left as they were and rows
// that were written are not rolled back. On full success the sent edits are
// cleared and the written rows become the loaded rows. Edits staged while
// the batch was in flight stay pending for the next Save.
func (e *Editor) Save(ctx context.Context, store RuleStore) (SaveResult, error) {
	e.mu.Lock()
	sent := batch{since: e.seq, deletes: make(map[int64]struct{}, len(e.deletes))}
	creates := make([]models.IngestionRule, len(e.creates))
	for i, c := range e.creates {
		creates[i] = c.Clone()
	}
	updates := make(map[int64]models.RuleUpdate, len(e.changes))
	for id, p := range e.changes {
		updates[id] = e.ruleUpdateLocked(id, p)
	}
	deletes := make([]int64, 0, len(e.deletes))
	for id := range e.deletes {
		deletes = append(deletes, id)
		sent.deletes[id] = struct{}{}
	}
	e.mu.Unlock()

	var (
		mu     sync.Mutex
		result SaveResult
		g      errgroup.Group
	)
	sent.created = make(map[int64]models.IngestionRule, len(creates))

	for _, c := range creates {
		g.Go(func() error {
			created, err := store.CreateRule(ctx, models.RuleInput{
				FeedKey:  c.FeedKey,
				RuleType: c.RuleType,
				Priority: c.Priority,
				Enabled:  c.Enabled,
				Config:   c.Config,
				Notes:    c.Notes,
			})
			if err != nil {
				return fmt.Errorf("create rule %d: %w", c.ID, err)
			}
			mu.Lock()
			result.Created = append(result.Created, *created)
			sent.created[c.ID] = *created
			mu.Unlock()
			return nil
		})
	}
	for id, u := range updates {
		g.Go(func() error {
			updated, err := store.UpdateRule(ctx, id, u)
			if err != nil {
				return fmt.Errorf("update rule %d: %w", id, err)
			}
			mu.Lock()
			result.Updated = append(result.Updated, *updated)
			mu.Unlock()
			return nil
		})
	}
	for _, id := range deletes {
		g.Go(func() error {
			if err := store.DeleteRule(ctx, id); err != nil {
				return fmt.Errorf("delete rule %d: %w", id, err)
			}
			mu.Lock()
			result.Deleted = append(result.Deleted, id)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Warn("rule batch save failed",
			"feed_key", e.feedKey, "rule_type", e.ruleType,
			"creates", len(creates), "updates", len(updates), "deletes", len(deletes),
			"error", err)
		return result, fmt.Errorf("save rules: %w", err)
	}

	e.mu.Lock()
	e.commitLocked(sent, result)
	e.mu.Unlock()

	return result, nil
}

// batch is what one Save sent: the edit counter at snapshot time, the
// deleted IDs and the created rows keyed by their temporary ID.
type batch struct {
	since   uint64
	deletes map[int64]struct{}
	created map[int64]models.IngestionRule
}

// ruleUpdateLocked turns a patch into the gateway payload. A config patch is
// sent as the full merged config.
func (e *Editor) ruleUpdateLocked(id int64, p Patch) models.RuleUpdate {
	u := models.RuleUpdate{Priority: p.Priority, Enabled: p.Enabled, Notes: p.Notes}
	if len(p.Config) > 0 {
		if i := e.rowIndexLocked(id); i >= 0 {
			u.Config = p.apply(e.rows[i]).Config
		} else {
			u.Config = models.CloneMap(p.Config)
		}
	}
	return u
}

// commitLocked folds a successful batch into the loaded rows. Buffers for
// IDs edited after the snapshot are kept; a create edited in flight becomes
// a pending patch on the created row, and one deleted in flight becomes a
// pending delete.
func (e *Editor) commitLocked(sent batch, result SaveResult) {
	editedSince := func(id int64) bool { return e.touched[id] > sent.since }

	written := make(map[int64]models.IngestionRule, len(result.Updated))
	for _, r := range result.Updated {
		written[r.ID] = r
	}

	rows := make([]models.IngestionRule, 0, len(e.rows)+len(sent.created))
	for _, r := range e.rows {
		if _, ok := sent.deletes[r.ID]; ok {
			delete(e.deletes, r.ID)
			delete(e.changes, r.ID)
			delete(e.manual, r.ID)
			continue
		}
		if w, ok := written[r.ID]; ok {
			r = w.Clone()
			if !editedSince(r.ID) {
				delete(e.changes, r.ID)
				delete(e.manual, r.ID)
			}
		}
		rows = append(rows, r)
	}

	pending := make([]models.IngestionRule, 0, len(e.creates))
	for _, c := range e.creates {
		row, ok := sent.created[c.ID]
		if !ok {
			pending = append(pending, c)
			continue
		}
		rows = append(rows, row.Clone())
		if editedSince(c.ID) {
			priority, enabled := c.Priority, c.Enabled
			e.changes[row.ID] = Patch{Priority: &priority, Enabled: &enabled, Notes: c.Notes, Config: models.CloneMap(c.Config)}
			if _, manual := e.manual[c.ID]; manual {
				e.manual[row.ID] = struct{}{}
			}
		}
		delete(e.manual, c.ID)
	}
	for temp, row := range sent.created {
		if e.createIndexLocked(temp) < 0 {
			rows = append(rows, row.Clone())
			e.deletes[row.ID] = struct{}{}
		}
	}
	sortByPriority(rows)

	e.rows = rows
	e.creates = pending
	if len(pending) == 0 {
		e.lastTemp = 0
	}
}
