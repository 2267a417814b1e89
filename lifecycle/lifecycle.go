// Package lifecycle observes the two external throttling signals, memory
// pressure and app foreground state, and forwards them to the scheduler.
// The monitor never touches scheduler state directly; it only sends
// signals the scheduler consumes serially.
package lifecycle

import (
	"context"
	"log/slog"
	"time"
)

// AppState is a foreground/background transition reported by the host.
type AppState string

const (
	AppStateActive     AppState = "active"
	AppStateBackground AppState = "background"
	AppStateInactive   AppState = "inactive"
)

// MemorySample is one reading from the host memory probe.
type MemorySample struct {
	TotalBytes     uint64
	AvailableBytes uint64
}

// Pressure returns the used fraction of memory, in 0-1.
func (s MemorySample) Pressure() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return 1 - float64(s.AvailableBytes)/float64(s.TotalBytes)
}

// MemoryProbe samples host memory. Implementations are platform-specific
// and supplied by the embedding application.
type MemoryProbe interface {
	Sample() (MemorySample, error)
}

// Controller is the slice of the scheduler the monitor drives.
type Controller interface {
	ReportMemoryPressure(level float64)
	SetAppState(state AppState)
}

// Monitor periodically samples the memory probe and relays app-state
// transitions to the controller.
type Monitor struct {
	probe      MemoryProbe
	controller Controller
	appStates  <-chan AppState
	interval   time.Duration
}

// NewMonitor creates a monitor sampling probe every interval and consuming
// app-state transitions from appStates. A nil appStates channel disables
// app-state handling; a nil probe disables pressure sampling.
func NewMonitor(controller Controller, probe MemoryProbe, appStates <-chan AppState, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		probe:      probe,
		controller: controller,
		appStates:  appStates,
		interval:   interval,
	}
}

// Start runs the monitor until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("Lifecycle monitor started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Lifecycle monitor stopped")
			return nil
		case <-ticker.C:
			m.sampleOnce()
		case state, ok := <-m.appStates:
			if !ok {
				m.appStates = nil
				continue
			}
			slog.Debug("App state changed", "state", state)
			m.controller.SetAppState(state)
		}
	}
}

func (m *Monitor) sampleOnce() {
	if m.probe == nil {
		return
	}

	sample, err := m.probe.Sample()
	if err != nil {
		slog.Error("Memory probe sample failed", "error", err)
		return
	}

	m.controller.ReportMemoryPressure(sample.Pressure())
}
