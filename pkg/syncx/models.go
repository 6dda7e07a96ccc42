package syncx

import (
	"encoding/json"
	"time"
)

// JobStatus represents the current state of a sync job.
//
// Valid transitions: pending → running → {completed | pending (retry) | failed}.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Well-known job types. Handlers are registered per type; the queue itself
// treats the type as an opaque routing key.
const (
	TypeJudges    = "judges"
	TypeCourts    = "courts"
	TypeDecisions = "decisions"
)

// Job is a unit of scheduled work to be enqueued.
type Job struct {
	Type         string          `json:"type"`
	Options      json.RawMessage `json:"options"`
	Priority     int             `json:"priority"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	MaxRetries   int             `json:"max_retries"`
}

// JobInfo is the full representation of a job held by the store.
type JobInfo struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Status       JobStatus       `json:"status"`
	Options      json.RawMessage `json:"options,omitempty"`
	Priority     int             `json:"priority"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Terminal reports whether the job can no longer change state.
func (j *JobInfo) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// JobFilter narrows ListJobs results. Zero fields match everything.
type JobFilter struct {
	Status JobStatus
	Type   string
}

// Stats is a snapshot of queue depth per status.
type Stats struct {
	Pending   int64 `json:"pending"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}
