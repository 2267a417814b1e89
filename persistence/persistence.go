// Package persistence defines the bridge the scheduler writes its job
// snapshot through. The scheduler calls Save on every state transition and
// restores pending work from LoadAll at startup. Bridge failures are
// logged and swallowed by the scheduler; durability is best effort.
package persistence

import (
	"context"

	"github.com/mediakit/mediasched/job"
)

// Bridge is a durable snapshot of queued and in-flight jobs.
type Bridge interface {
	// Save writes or overwrites the record for a job.
	Save(ctx context.Context, j *job.Job) error

	// Delete removes the record for a job.
	Delete(ctx context.Context, jobID string) error

	// LoadAll returns every stored record keyed by job id.
	LoadAll(ctx context.Context) (map[string]*job.Job, error)

	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Health() error
	Type() string
}
