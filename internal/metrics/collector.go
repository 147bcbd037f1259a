// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation.
type OperationMetrics struct {
	Count     int64
	Errors    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Name        string  `json:"name"`
	Count       int64   `json:"count"`
	Errors      int64   `json:"errors"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64             `json:"uptime_seconds"`
	Routes        []OperationSnapshot `json:"routes"`
	Upstream      []OperationSnapshot `json:"upstream"`
}

// Collector aggregates in-memory runtime statistics for inbound routes and
// upstream gateway calls. All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	routes    map[string]*OperationMetrics
	upstream  map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		routes:    make(map[string]*OperationMetrics),
		upstream:  make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func getOrCreate(ops map[string]*OperationMetrics, op string) *OperationMetrics {
	m, ok := ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		ops[op] = m
	}
	return m
}

func record(m *OperationMetrics, duration time.Duration, failed bool) {
	m.Count++
	m.TotalTime += duration
	if failed {
		m.Errors++
	}
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordRequest records an inbound request. Status 500 and above counts as
// an error.
func (c *Collector) RecordRequest(route string, status int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record(getOrCreate(c.routes, route), duration, status >= 500)
}

// RecordUpstream records one gateway call. failed covers both transport
// errors and non-2xx answers.
func (c *Collector) RecordUpstream(op string, duration time.Duration, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record(getOrCreate(c.upstream, op), duration, failed)
}

// snapshotOp creates a snapshot for an operation.
func snapshotOp(name string, m *OperationMetrics) OperationSnapshot {
	snap := OperationSnapshot{
		Name:        name,
		Count:       m.Count,
		Errors:      m.Errors,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
	if m.Count > 0 {
		snap.AvgTimeMs = float64(m.TotalTime.Milliseconds()) / float64(m.Count)
		snap.MinTimeMs = m.MinTime.Milliseconds()
	}
	return snap
}

func snapshotAll(ops map[string]*OperationMetrics) []OperationSnapshot {
	out := make([]OperationSnapshot, 0, len(ops))
	for name, m := range ops {
		out = append(out, snapshotOp(name, m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Routes:        snapshotAll(c.routes),
		Upstream:      snapshotAll(c.upstream),
	}
}
