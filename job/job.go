// Package job defines the job record shared by the queue, the scheduler,
// and the persistence bridge.
package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type selects the handler a job is dispatched to.
type Type string

const (
	TypeQualityVariant     Type = "quality_variant"
	TypePreload            Type = "preload"
	TypeCacheOptimization  Type = "cache_optimization"
	TypeThumbnail          Type = "thumbnail"
	TypeTranscode          Type = "transcode"
	TypeMetadataExtraction Type = "metadata_extraction"
	TypeCleanup            Type = "cleanup"
)

// Priority is a five-level ordinal scale governing dequeue order.
type Priority int

const (
	PriorityIdle     Priority = 1
	PriorityLow      Priority = 2
	PriorityNormal   Priority = 3
	PriorityHigh     Priority = 4
	PriorityCritical Priority = 5
)

func (p Priority) String() string {
	switch p {
	case PriorityIdle:
		return "idle"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	}
	return "unknown"
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is a unit of deferred work. The scheduler owns all fields; handlers
// only ever see the payload.
type Job struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Priority   Priority        `json:"priority"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	LastError  string          `json:"last_error,omitempty"`
	Progress   int             `json:"progress"`
}

// New creates a pending job with a fresh ID.
func New(jobType Type, payload json.RawMessage, priority Priority, maxRetries int) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Priority:   priority,
		Payload:    payload,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
		MaxRetries: maxRetries,
	}
}

// Clone returns a copy safe to hand to callers while the scheduler keeps
// mutating the original.
func (j *Job) Clone() *Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// Result is delivered to completion listeners when a job reaches a
// terminal state.
type Result struct {
	JobID    string
	Status   Status
	Err      error
	Duration time.Duration
}

// CompletionFunc receives the terminal result of a job.
type CompletionFunc func(Result)

// ProgressFunc receives handler progress updates in the range 0-100.
type ProgressFunc func(jobID string, percent int)
