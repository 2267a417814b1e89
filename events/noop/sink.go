// Package noop provides an event sink that discards everything.
package noop

import (
	"context"

	"github.com/mediakit/mediasched/events"
)

// Sink implements events.Sink with no-op operations
type Sink struct{}

// NewSink creates a new no-op event sink
func NewSink() *Sink {
	return &Sink{}
}

// Record discards the event (no-op)
func (s *Sink) Record(ctx context.Context, e events.Event) error {
	return nil
}

// Connect establishes connection (no-op)
func (s *Sink) Connect(ctx context.Context) error {
	return nil
}

// Close closes the connection (no-op)
func (s *Sink) Close() error {
	return nil
}

// Health checks connection health (no-op)
func (s *Sink) Health() error {
	return nil
}

// Type returns the sink type
func (s *Sink) Type() string {
	return "noop"
}
