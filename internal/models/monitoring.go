package models

import "time"

// SchedulerStatus describes the remote scheduler process.
type SchedulerStatus struct {
	Running       bool       `json:"running"`
	Version       string     `json:"version,omitempty"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	LastTickAt    *time.Time `json:"last_tick_at,omitempty"`
}

// WorkerHealth is the health of a single ingestion worker.
type WorkerHealth struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"` // "healthy", "degraded", "down"
	ActiveJobs    int        `json:"active_jobs"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

// QueueStats is the job queue depth.
type QueueStats struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
	Failed  int `json:"failed"`
}

// Alert is a scheduler-raised alert.
type Alert struct {
	Level      string    `json:"level"` // "warning", "critical"
	Message    string    `json:"message"`
	ScheduleID string    `json:"schedule_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScheduleRow is one schedule as seen by the monitoring dashboard.
type ScheduleRow struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	TenantID   string     `json:"tenant_id"`
	Service    string     `json:"service"`
	Endpoint   string     `json:"endpoint"`
	Cron       string     `json:"cron"`
	Enabled    bool       `json:"enabled"`
	RunCount   int64      `json:"run_count"`
	ErrorCount int64      `json:"error_count"`
	ErrorRate  float64    `json:"error_rate"` // Percent, 0-100
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// MonitoringSnapshot is an ephemeral aggregate fetched fresh on each poll.
type MonitoringSnapshot struct {
	Scheduler   SchedulerStatus `json:"scheduler"`
	Workers     []WorkerHealth  `json:"workers"`
	Queue       QueueStats      `json:"queue"`
	Alerts      []Alert         `json:"alerts"`
	Schedules   []ScheduleRow   `json:"schedules"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Worker is a registered ingestion worker.
type Worker struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	ActiveJobs    int        `json:"active_jobs"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

// Collection is a search collection fed by one or more feeds.
type Collection struct {
	Name         string     `json:"name"`
	NumDocuments int64      `json:"num_documents"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// CollectionUpdate reports when a collection last received documents.
type CollectionUpdate struct {
	Name       string     `json:"name"`
	LastUpdate *time.Time `json:"last_update"`
}

// SchemaColumn is a column exposed by the gateway's schema endpoint.
type SchemaColumn struct {
	Module string `json:"module"`
	Table  string `json:"table"`
	Column string `json:"column"`
	Type   string `json:"type"`
}

// SearchHealth is the search engine health probe result.
type SearchHealth struct {
	OK bool `json:"ok"`
}

// MonitoringFrame is one message on the monitoring stream: either a
// snapshot or an error envelope.
type MonitoringFrame struct {
	Snapshot *MonitoringSnapshot `json:"snapshot,omitempty"`
	Error    string              `json:"error,omitempty"`
	Details  string              `json:"details,omitempty"`
}
