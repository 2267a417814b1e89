package scheduler

import (
	"log/slog"
	"time"

	"github.com/mediakit/mediasched/errors"
	"github.com/mediakit/mediasched/job"
	"github.com/mediakit/mediasched/lifecycle"
	"github.com/mediakit/mediasched/profile"
)

// Pause stops new dispatch. In-flight jobs continue to completion. Pause
// and pressure throttling are tracked separately so a pressure drop never
// resumes a caller-initiated pause.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.pausedByCaller = true
	s.mu.Unlock()
	slog.Info("Scheduler paused")
}

// Resume restarts dispatch if pending work exists.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.pausedByCaller = false
	s.mu.Unlock()
	slog.Info("Scheduler resumed")
	s.kickLoop()
}

// Cancel cancels a job. Pending jobs (including jobs waiting out a retry
// delay) are cancelled synchronously and Cancel returns true. For an
// in-flight job Cancel returns false but signals the handler's context;
// a handler that stops on it finalizes the job as cancelled rather than
// failed. Terminal jobs return false.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()

	if j, ok := s.pending.Remove(id); ok {
		s.mu.Unlock()
		s.finalizeCancelled(j, nil)
		return true
	}

	if entry, ok := s.waiting[id]; ok {
		entry.timer.Stop()
		delete(s.waiting, id)
		s.mu.Unlock()
		s.finalizeCancelled(entry.job, nil)
		return true
	}

	if r, ok := s.inflight[id]; ok {
		r.cancelled = true
		s.mu.Unlock()
		r.cancel()
		return false
	}

	s.mu.Unlock()
	return false
}

// JobStatus returns a snapshot of a job in any set, or false if the id is
// unknown.
func (s *Scheduler) JobStatus(id string) (*job.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.pending.Get(id); ok {
		return j.Clone(), true
	}
	if r, ok := s.inflight[id]; ok {
		return r.job.Clone(), true
	}
	if entry, ok := s.waiting[id]; ok {
		return entry.job.Clone(), true
	}
	if j, ok := s.terminal[id]; ok {
		return j.Clone(), true
	}
	return nil, false
}

// Stats is a point-in-time snapshot of scheduler state.
type Stats struct {
	Pending        int
	Processing     int
	Completed      int64
	Failed         int64
	QueueCapacity  int
	ConcurrencyCap int
	PendingByType  map[job.Type]int
}

// Stats returns current queue statistics.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Pending:        s.pending.Len(),
		Processing:     len(s.inflight),
		Completed:      s.completedCount,
		Failed:         s.failedCount,
		QueueCapacity:  s.pending.Capacity(),
		ConcurrencyCap: s.concurrencyCap,
		PendingByType:  s.pending.CountByType(),
	}
}

// ClearQueue cancels every pending and retry-waiting job and drops
// terminal records, deleting them from the persistence bridge. In-flight
// jobs are unaffected.
func (s *Scheduler) ClearQueue() {
	s.mu.Lock()
	var cancelled []*job.Job
	for id, entry := range s.waiting {
		entry.timer.Stop()
		delete(s.waiting, id)
		cancelled = append(cancelled, entry.job)
	}
	cancelled = append(cancelled, s.pending.DrainAll()...)

	cleared := make([]string, 0, len(s.terminal))
	for id := range s.terminal {
		cleared = append(cleared, id)
		delete(s.terminal, id)
	}
	s.mu.Unlock()

	for _, j := range cancelled {
		s.finalizeCancelled(j, nil)
		cleared = append(cleared, j.ID)
	}

	s.mu.Lock()
	for _, j := range cancelled {
		delete(s.terminal, j.ID)
	}
	s.mu.Unlock()

	for _, id := range cleared {
		s.deleteRecord(id)
	}

	slog.Info("Queue cleared", "cancelled", len(cancelled), "records", len(cleared))
}

// ReportMemoryPressure feeds one pressure sample (used fraction, 0-1) into
// the controller. Above the profile threshold, dispatch pauses and pending
// jobs at or below low priority are cancelled; in-flight jobs finish.
// Dispatch resumes once pressure drops below the threshold by the
// hysteresis margin, unless the caller paused explicitly.
func (s *Scheduler) ReportMemoryPressure(level float64) {
	s.mu.Lock()
	s.lastPressure = level
	threshold := s.prof.MemoryPressureThreshold

	var victims []*job.Job
	resumed := false

	switch {
	case level > threshold:
		if !s.pausedByPressure {
			s.pausedByPressure = true
			slog.Warn("Memory pressure above threshold, pausing dispatch",
				"pressure", level, "threshold", threshold)
		}
		victims = s.pending.DrainBelow(job.PriorityLow)
	case s.pausedByPressure && level < threshold-pressureHysteresis:
		s.pausedByPressure = false
		resumed = true
		slog.Info("Memory pressure subsided, resuming dispatch", "pressure", level)
	}
	s.mu.Unlock()

	for _, j := range victims {
		s.finalizeCancelled(j, errors.ErrMemoryPressure)
	}

	if resumed {
		s.kickLoop()
	}
}

// SetAppState applies a foreground/background transition. Backgrounding
// halves the concurrency cap (minimum 1) and sheds pending idle-priority
// work; returning to the foreground restores the cap from the current
// profile.
func (s *Scheduler) SetAppState(state lifecycle.AppState) {
	s.mu.Lock()

	var victims []*job.Job
	switch state {
	case lifecycle.AppStateBackground:
		s.backgrounded = true
		s.concurrencyCap = backgroundCap(s.prof.MaxConcurrentJobs)
		victims = s.pending.DrainBelow(job.PriorityIdle)
		slog.Info("App backgrounded", "concurrency", s.concurrencyCap, "shed", len(victims))
	case lifecycle.AppStateActive:
		s.backgrounded = false
		s.concurrencyCap = s.prof.MaxConcurrentJobs
		slog.Info("App foregrounded", "concurrency", s.concurrencyCap)
	}
	s.mu.Unlock()

	for _, j := range victims {
		s.finalizeCancelled(j, nil)
	}

	if state == lifecycle.AppStateActive {
		s.kickLoop()
	}
}

// SetTiers recomputes the resource profile for new device/network tiers.
// Only admission and the cap are affected; in-flight jobs are never
// aborted by a profile change.
func (s *Scheduler) SetTiers(device profile.DeviceTier, network profile.NetworkTier) {
	s.mu.Lock()
	s.prof = profile.ProfileFor(device, network)
	s.pending.SetCapacity(s.prof.QueueCapacity)
	if s.backgrounded {
		s.concurrencyCap = backgroundCap(s.prof.MaxConcurrentJobs)
	} else {
		s.concurrencyCap = s.prof.MaxConcurrentJobs
	}
	newCap := s.concurrencyCap
	s.mu.Unlock()

	slog.Info("Resource profile changed",
		"deviceTier", device, "networkTier", network, "concurrency", newCap)
	s.kickLoop()
}

// Profile returns the currently active resource profile.
func (s *Scheduler) Profile() profile.ResourceProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prof
}

// Health reports bridge and sink health plus activity counters.
type Health struct {
	Healthy      bool
	BridgeHealth error
	SinkHealth   error
	Pending      int
	Processing   int
	LastCheck    time.Time
}

// Health returns the current health status.
func (s *Scheduler) Health() Health {
	bridgeHealth := s.bridge.Health()
	sinkHealth := s.sink.Health()

	s.mu.Lock()
	pending := s.pending.Len()
	processing := len(s.inflight)
	s.mu.Unlock()

	return Health{
		Healthy:      bridgeHealth == nil && sinkHealth == nil,
		BridgeHealth: bridgeHealth,
		SinkHealth:   sinkHealth,
		Pending:      pending,
		Processing:   processing,
		LastCheck:    time.Now(),
	}
}

func backgroundCap(max int) int {
	half := max / 2
	if half < 1 {
		return 1
	}
	return half
}
