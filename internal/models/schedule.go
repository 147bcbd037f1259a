package models

import "time"

// Schedule is a cron-triggered job definition owned by the external scheduler.
type Schedule struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	TenantID   string         `json:"tenant_id,omitempty"`
	Cron       string         `json:"cron"`
	Service    string         `json:"service"`
	Endpoint   string         `json:"endpoint"`
	Method     string         `json:"method"`
	Payload    map[string]any `json:"payload,omitempty"`
	Enabled    bool           `json:"enabled"`
	RunCount   int64          `json:"run_count"`
	ErrorCount int64          `json:"error_count"`
	LastRunAt  *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt  *time.Time     `json:"next_run_at,omitempty"`
	LastError  *string        `json:"last_error,omitempty"`
}

// ScheduleExecution is the scheduler's acknowledgement of an ad hoc run.
type ScheduleExecution struct {
	ScheduleID string `json:"schedule_id"`
	JobID      string `json:"job_id,omitempty"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}
