package monitoring

import (
	"time"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/validation"
)

// DefaultStaleGrace is added to the expected run time before a schedule
// counts as stale.
const DefaultStaleGrace = 5 * time.Minute

// ExpectedRun returns when an enabled schedule should next have run: the
// reported next run, or else the cron activation after the last run.
func ExpectedRun(row models.ScheduleRow) (time.Time, bool) {
	if row.NextRunAt != nil {
		return *row.NextRunAt, true
	}
	if row.LastRunAt == nil || row.Cron == "" {
		return time.Time{}, false
	}
	next, err := validation.NextRun(row.Cron, *row.LastRunAt)
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}

// Stale reports whether an enabled schedule missed its expected run by more
// than grace. Disabled schedules and schedules with no known run time are
// never stale.
func Stale(row models.ScheduleRow, now time.Time, grace time.Duration) bool {
	if !row.Enabled {
		return false
	}
	expected, ok := ExpectedRun(row)
	if !ok {
		return false
	}
	return now.After(expected.Add(grace))
}
