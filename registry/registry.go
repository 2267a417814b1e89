// Package registry maps job types to their asynchronous handlers.
package registry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mediakit/mediasched/errors"
	"github.com/mediakit/mediasched/job"
)

// HandlerFunc executes one job. The payload is opaque to the scheduler.
// Long-running handlers should observe ctx for cooperative cancellation
// and may report progress in the range 0-100.
type HandlerFunc func(ctx context.Context, payload json.RawMessage, progress func(percent int)) error

// Registry is a thread-safe handler registry
type Registry struct {
	mu       sync.RWMutex
	handlers map[job.Type]HandlerFunc
}

// NewRegistry creates a new registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[job.Type]HandlerFunc),
	}
}

// Register adds a handler for a job type
func (r *Registry) Register(jobType job.Type, handler HandlerFunc) error {
	if jobType == "" {
		return errors.ErrEmptyJobType
	}

	if handler == nil {
		return errors.ErrNilHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[jobType] = handler
	return nil
}

// Get retrieves a handler by job type
func (r *Registry) Get(jobType job.Type) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[jobType]
	return handler, ok
}

// List returns all registered job types
func (r *Registry) List() []job.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]job.Type, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}

	return types
}

// Remove unregisters a handler
func (r *Registry) Remove(jobType job.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.handlers, jobType)
}

// Clear removes all registered handlers
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = make(map[job.Type]HandlerFunc)
}
