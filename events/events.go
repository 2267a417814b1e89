// Package events defines the sink job lifecycle transitions are published
// through. Sinks are observational only; a sink failure never affects the
// job it describes.
package events

import (
	"context"
	"time"

	"github.com/mediakit/mediasched/job"
)

// Kind names a lifecycle transition.
type Kind string

const (
	KindEnqueued       Kind = "enqueued"
	KindStarted        Kind = "started"
	KindCompleted      Kind = "completed"
	KindFailed         Kind = "failed"
	KindCancelled      Kind = "cancelled"
	KindEvicted        Kind = "evicted"
	KindRetryScheduled Kind = "retry_scheduled"
)

// Event describes one transition of one job.
type Event struct {
	Kind       Kind          `json:"kind"`
	JobID      string        `json:"job_id"`
	JobType    job.Type      `json:"job_type"`
	Priority   job.Priority  `json:"priority"`
	RetryCount int           `json:"retry_count"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns,omitempty"`
	RetryDelay time.Duration `json:"retry_delay_ns,omitempty"`
	At         time.Time     `json:"at"`
}

// Sink receives lifecycle events.
type Sink interface {
	Record(ctx context.Context, e Event) error

	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Health() error
	Type() string
}
