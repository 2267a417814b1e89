// Package errors provides error types and utilities for the mediasched library.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrUnknownJobType = errors.New("no handler registered for job type")
	ErrShutdown       = errors.New("scheduler shutting down")
	ErrEvicted        = errors.New("evicted from queue under capacity pressure")
	ErrMemoryPressure = errors.New("cancelled under memory pressure")
	ErrEmptyJobType   = errors.New("job type cannot be empty")
	ErrNilHandler     = errors.New("handler function cannot be nil")
	ErrNotConnected   = errors.New("not connected")
)

// HandlerError represents a failure inside a job handler.
type HandlerError struct {
	Type  string // job type
	JobID string // job id
	Err   error  // underlying error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s for job %s: %v", e.Type, e.JobID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PersistenceError represents a failure against the persistence bridge.
// These are logged and swallowed by the scheduler; the job itself is
// never failed because of one.
type PersistenceError struct {
	Op    string // operation being performed
	JobID string // job id (if applicable)
	Err   error  // underlying error
}

func (e *PersistenceError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("persistence %s for job %s: %v", e.Op, e.JobID, e.Err)
	}
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SinkError represents a failure publishing a lifecycle event.
type SinkError struct {
	Event string // event name
	Err   error  // underlying error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("event sink %s: %v", e.Event, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewHandlerError creates a new handler error
func NewHandlerError(jobType, jobID string, err error) error {
	return &HandlerError{Type: jobType, JobID: jobID, Err: err}
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(op, jobID string, err error) error {
	return &PersistenceError{Op: op, JobID: jobID, Err: err}
}

// NewSinkError creates a new sink error
func NewSinkError(event string, err error) error {
	return &SinkError{Event: event, Err: err}
}

// IsRetryable reports whether a handler failure should go through the
// backoff policy. A missing handler can never succeed on retry.
func IsRetryable(err error) bool {
	return !errors.Is(err, ErrUnknownJobType)
}
