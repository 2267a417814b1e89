// Package noop provides a persistence bridge that stores nothing. Use it
// when crash recovery is not needed.
package noop

import (
	"context"

	"github.com/mediakit/mediasched/job"
)

// Bridge implements persistence.Bridge with no-op operations
type Bridge struct{}

// NewBridge creates a new no-op persistence bridge
func NewBridge() *Bridge {
	return &Bridge{}
}

// Save stores a job record (no-op)
func (b *Bridge) Save(ctx context.Context, j *job.Job) error {
	return nil
}

// Delete removes a job record (no-op)
func (b *Bridge) Delete(ctx context.Context, jobID string) error {
	return nil
}

// LoadAll returns the stored records (always empty)
func (b *Bridge) LoadAll(ctx context.Context) (map[string]*job.Job, error) {
	return map[string]*job.Job{}, nil
}

// Connect establishes connection (no-op)
func (b *Bridge) Connect(ctx context.Context) error {
	return nil
}

// Close closes the connection (no-op)
func (b *Bridge) Close() error {
	return nil
}

// Health checks connection health (no-op)
func (b *Bridge) Health() error {
	return nil
}

// Type returns the bridge type
func (b *Bridge) Type() string {
	return "noop"
}
