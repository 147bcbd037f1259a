// Package monitoring derives dashboard views from scheduler snapshots and
// polls the snapshot endpoint on a fixed interval.
package monitoring

import (
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

// AlertErrorRate is the error rate, in percent, at which a schedule alerts.
const AlertErrorRate = 20.0

// IsAlert reports whether a schedule row belongs in the alert list.
func IsAlert(row models.ScheduleRow) bool {
	return row.ErrorRate >= AlertErrorRate || row.LastError != ""
}

// Alerts returns the rows that alert, in input order.
func Alerts(rows []models.ScheduleRow) []models.ScheduleRow {
	return lo.Filter(rows, func(r models.ScheduleRow, _ int) bool { return IsAlert(r) })
}

// FilterOptions returns the sorted distinct tenants and services of rows.
// Empty values are left out.
func FilterOptions(rows []models.ScheduleRow) (tenants, services []string) {
	tenants = lo.Uniq(lo.FilterMap(rows, func(r models.ScheduleRow, _ int) (string, bool) {
		return r.TenantID, r.TenantID != ""
	}))
	services = lo.Uniq(lo.FilterMap(rows, func(r models.ScheduleRow, _ int) (string, bool) {
		return r.Service, r.Service != ""
	}))
	slices.Sort(tenants)
	slices.Sort(services)
	return tenants, services
}

// Filter narrows the schedule table. Zero fields match everything.
type Filter struct {
	Tenant     string
	Service    string
	AlertsOnly bool
	Query      string // case-insensitive match on name, endpoint or ID
}

// Match reports whether row passes the filter.
func (f Filter) Match(row models.ScheduleRow) bool {
	if f.Tenant != "" && row.TenantID != f.Tenant {
		return false
	}
	if f.Service != "" && row.Service != f.Service {
		return false
	}
	if f.AlertsOnly && !IsAlert(row) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(row.Name), q) ||
			strings.Contains(strings.ToLower(row.Endpoint), q) ||
			strings.Contains(strings.ToLower(row.ID), q)
	}
	return true
}

// Apply returns the rows matching f, in input order.
func Apply(rows []models.ScheduleRow, f Filter) []models.ScheduleRow {
	return lo.Filter(rows, func(r models.ScheduleRow, _ int) bool { return f.Match(r) })
}

// Summary is the headline numbers of a snapshot.
type Summary struct {
	Schedules      int
	Enabled        int
	Alerting       int
	Stale          int
	HealthyWorkers int
	Workers        int
}

// Summarize computes the headline numbers of snap at now.
func Summarize(snap *models.MonitoringSnapshot, now time.Time, grace time.Duration) Summary {
	if snap == nil {
		return Summary{}
	}
	return Summary{
		Schedules: len(snap.Schedules),
		Enabled:   lo.CountBy(snap.Schedules, func(r models.ScheduleRow) bool { return r.Enabled }),
		Alerting:  lo.CountBy(snap.Schedules, IsAlert),
		Stale: lo.CountBy(snap.Schedules, func(r models.ScheduleRow) bool {
			return Stale(r, now, grace)
		}),
		HealthyWorkers: lo.CountBy(snap.Workers, func(w models.WorkerHealth) bool { return w.Status == "healthy" }),
		Workers:        len(snap.Workers),
	}
}
