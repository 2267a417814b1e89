package scheduler

import (
	"context"
	"sync"

	"github.com/mediakit/mediasched/events"
	"github.com/mediakit/mediasched/job"
)

// Mock implementations for testing

// MockBridge implements the persistence.Bridge interface for testing
type MockBridge struct {
	mu           sync.Mutex
	connected    bool
	connectError error
	saveError    error
	records      map[string]*job.Job
	deleted      []string
	saveCount    int
}

func NewMockBridge() *MockBridge {
	return &MockBridge{
		records: make(map[string]*job.Job),
	}
}

func (m *MockBridge) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectError = err
}

func (m *MockBridge) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Preload seeds a record before the scheduler starts, simulating a
// previous process run.
func (m *MockBridge) Preload(j *job.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[j.ID] = j
}

func (m *MockBridge) Record(id string) (*job.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.records[id]
	return j, ok
}

func (m *MockBridge) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func (m *MockBridge) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCount
}

func (m *MockBridge) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectError != nil {
		return m.connectError
	}
	m.connected = true
	return nil
}

func (m *MockBridge) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *MockBridge) Health() error { return nil }

func (m *MockBridge) Type() string { return "mock" }

func (m *MockBridge) Save(ctx context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.saveCount++
	m.records[j.ID] = j.Clone()
	return nil
}

func (m *MockBridge) Delete(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, jobID)
	m.deleted = append(m.deleted, jobID)
	return nil
}

func (m *MockBridge) LoadAll(ctx context.Context) (map[string]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*job.Job, len(m.records))
	for id, j := range m.records {
		out[id] = j.Clone()
	}
	return out, nil
}

// MockSink implements the events.Sink interface for testing
type MockSink struct {
	mu       sync.Mutex
	recorded []events.Event
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Events(kind events.Kind) []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.Event
	for _, e := range m.recorded {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockSink) Record(ctx context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, e)
	return nil
}

func (m *MockSink) Connect(ctx context.Context) error { return nil }
func (m *MockSink) Close() error                      { return nil }
func (m *MockSink) Health() error                     { return nil }
func (m *MockSink) Type() string                      { return "mock" }
