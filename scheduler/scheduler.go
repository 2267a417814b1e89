// Package scheduler implements the adaptive background job scheduler: a
// priority queue drained by a bounded set of concurrent handlers, throttled
// by device profile, memory pressure, and app lifecycle signals.
package scheduler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mediakit/mediasched/errors"
	"github.com/mediakit/mediasched/events"
	"github.com/mediakit/mediasched/job"
	"github.com/mediakit/mediasched/persistence"
	"github.com/mediakit/mediasched/profile"
	"github.com/mediakit/mediasched/queue"
	"github.com/mediakit/mediasched/registry"
)

const pressureHysteresis = 0.1

// running tracks one in-flight job and the cancel function for its
// handler context. cancelled records an explicit Cancel so a handler
// that stops on its context finalizes as cancelled, not as a retryable
// failure.
type running struct {
	job       *job.Job
	cancel    context.CancelFunc
	cancelled bool
}

// retryEntry holds a job waiting out its backoff delay. The job is in
// neither the pending nor the in-flight set while it waits.
type retryEntry struct {
	job   *job.Job
	timer *time.Timer
}

type jobListeners struct {
	onComplete job.CompletionFunc
	onProgress job.ProgressFunc
}

// Scheduler is the orchestration engine. Construct with NewScheduler and
// share by reference; there is no package-level instance.
type Scheduler struct {
	registry *registry.Registry
	bridge   persistence.Bridge
	sink     events.Sink
	config   *Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	kick   chan struct{}

	mu               sync.Mutex
	started          bool
	closed           bool
	prof             profile.ResourceProfile
	concurrencyCap   int
	pending          *queue.Queue
	inflight         map[string]*running
	waiting          map[string]*retryEntry
	terminal         map[string]*job.Job
	listeners        map[string]jobListeners
	timeouts         map[string]time.Duration
	completedCount   int64
	failedCount      int64
	pausedByCaller   bool
	pausedByPressure bool
	backgrounded     bool
	lastPressure     float64
}

// NewScheduler creates a new scheduler with dependency injection
func NewScheduler(
	reg *registry.Registry,
	bridge persistence.Bridge,
	sink events.Sink,
	options ...Option,
) *Scheduler {
	config := defaultConfig()
	for _, opt := range options {
		opt(config)
	}

	prof := profile.ProfileFor(config.DeviceTier, config.NetworkTier)

	return &Scheduler{
		registry:       reg,
		bridge:         bridge,
		sink:           sink,
		config:         config,
		kick:           make(chan struct{}, 1),
		prof:           prof,
		concurrencyCap: prof.MaxConcurrentJobs,
		pending:        queue.New(prof.QueueCapacity),
		inflight:       make(map[string]*running),
		waiting:        make(map[string]*retryEntry),
		terminal:       make(map[string]*job.Job),
		listeners:      make(map[string]jobListeners),
		timeouts:       make(map[string]time.Duration),
	}
}

// Start begins dispatching jobs. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	// Assigned under the mutex: bridgeCtx reads s.ctx from enqueueing
	// goroutines that may race with Start.
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if err := s.bridge.Connect(s.ctx); err != nil {
		return fmt.Errorf("failed to connect persistence bridge: %w", err)
	}

	if err := s.sink.Connect(s.ctx); err != nil {
		return fmt.Errorf("failed to connect event sink: %w", err)
	}

	s.restore()

	s.wg.Add(1)
	go s.loop()

	slog.Info("Scheduler started",
		"deviceTier", s.config.DeviceTier,
		"networkTier", s.config.NetworkTier,
		"concurrency", s.concurrencyCap,
		"queueCapacity", s.prof.QueueCapacity)

	s.kickLoop()
	return nil
}

// restore re-admits recoverable jobs from the persistence bridge. Records
// that were pending, or processing with retries remaining, go back to
// pending; interrupted jobs out of retries are failed; terminal records
// stay queryable.
func (s *Scheduler) restore() {
	stored, err := s.bridge.LoadAll(s.bridgeCtx())
	if err != nil {
		slog.Error("Failed to load persisted jobs", "error", err)
		return
	}
	if len(stored) == 0 {
		return
	}

	var readmitted, failed int
	var evicted []*job.Job
	s.mu.Lock()
	for _, j := range stored {
		// Jobs enqueued before Start were persisted and are already
		// owned by a live set; re-admitting the record would run them
		// twice.
		if s.ownsLocked(j.ID) {
			continue
		}
		switch {
		case j.Status == job.StatusPending,
			j.Status == job.StatusProcessing && j.RetryCount < j.MaxRetries:
			j.Status = job.StatusPending
			j.StartedAt = nil
			j.Progress = 0
			if v := s.pending.Push(j); v != nil {
				evicted = append(evicted, v)
			}
			readmitted++
		case j.Status == job.StatusProcessing:
			now := time.Now()
			j.Status = job.StatusFailed
			j.FinishedAt = &now
			if j.LastError == "" {
				j.LastError = "interrupted before completion"
			}
			s.terminal[j.ID] = j
			s.failedCount++
			failed++
		default:
			s.terminal[j.ID] = j
		}
	}
	s.mu.Unlock()

	for _, j := range evicted {
		s.finalizeEvicted(j)
	}

	slog.Info("Restored persisted jobs",
		"total", len(stored), "readmitted", readmitted, "failed", failed)
}

// ownsLocked reports whether a job id is already tracked by any set.
// Caller must hold s.mu.
func (s *Scheduler) ownsLocked(id string) bool {
	if _, ok := s.pending.Get(id); ok {
		return true
	}
	if _, ok := s.waiting[id]; ok {
		return true
	}
	if _, ok := s.inflight[id]; ok {
		return true
	}
	_, ok := s.terminal[id]
	return ok
}

// loop waits for a wake signal and dispatches as much pending work as the
// concurrency cap allows. Completions, cap changes, and enqueues all kick
// the loop; there is no polling.
func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.kick:
		}
		s.dispatchReady()
	}
}

func (s *Scheduler) kickLoop() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Scheduler) dispatchReady() {
	for {
		s.mu.Lock()
		if s.closed || s.pausedByCaller || s.pausedByPressure || len(s.inflight) >= s.concurrencyCap {
			s.mu.Unlock()
			return
		}

		j := s.pending.Pop()
		if j == nil {
			s.mu.Unlock()
			return
		}

		now := time.Now()
		j.Status = job.StatusProcessing
		j.StartedAt = &now

		var rctx context.Context
		var rcancel context.CancelFunc
		if t := s.timeouts[j.ID]; t > 0 {
			rctx, rcancel = context.WithTimeout(s.ctx, t)
		} else {
			rctx, rcancel = context.WithCancel(s.ctx)
		}

		s.inflight[j.ID] = &running{job: j, cancel: rcancel}
		s.wg.Add(1)
		s.mu.Unlock()

		s.persist(j)
		s.emit(events.Event{Kind: events.KindStarted, JobID: j.ID, JobType: j.Type,
			Priority: j.Priority, RetryCount: j.RetryCount, At: now})

		go s.execute(rctx, j, rcancel)
	}
}

// execute runs one job handler and routes the outcome into the
// retry/backoff policy.
func (s *Scheduler) execute(ctx context.Context, j *job.Job, cancel context.CancelFunc) {
	defer s.wg.Done()
	defer cancel()

	start := time.Now()

	var err error
	handler, ok := s.registry.Get(j.Type)
	if !ok {
		err = errors.NewHandlerError(string(j.Type), j.ID, errors.ErrUnknownJobType)
	} else {
		err = s.runHandler(ctx, handler, j)
	}

	s.finish(j, err, time.Since(start))
}

// runHandler invokes the handler with panic recovery. Handler errors never
// escape into the loop's own control flow.
func (s *Scheduler) runHandler(ctx context.Context, handler registry.HandlerFunc, j *job.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewHandlerError(string(j.Type), j.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	progress := func(percent int) {
		s.reportProgress(j, percent)
	}

	if execErr := handler(ctx, j.Payload, progress); execErr != nil {
		return errors.NewHandlerError(string(j.Type), j.ID, execErr)
	}

	return nil
}

func (s *Scheduler) reportProgress(j *job.Job, percent int) {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	s.mu.Lock()
	j.Progress = percent
	onProgress := s.listeners[j.ID].onProgress
	s.mu.Unlock()

	if onProgress != nil {
		onProgress(j.ID, percent)
	}
}

// finish moves a finished job out of the in-flight set and either
// completes it, finalizes a cancellation, schedules a retry, or fails it
// terminally.
func (s *Scheduler) finish(j *job.Job, err error, duration time.Duration) {
	now := time.Now()

	s.mu.Lock()
	wasCancelled := false
	if r, ok := s.inflight[j.ID]; ok {
		wasCancelled = r.cancelled
	}
	delete(s.inflight, j.ID)

	if err == nil {
		j.Status = job.StatusCompleted
		j.FinishedAt = &now
		j.Progress = 100
		s.terminal[j.ID] = j
		s.completedCount++
		l := s.takeListenersLocked(j.ID)
		s.mu.Unlock()

		s.deleteRecord(j.ID)
		s.emit(events.Event{Kind: events.KindCompleted, JobID: j.ID, JobType: j.Type,
			Priority: j.Priority, RetryCount: j.RetryCount, Duration: duration, At: now})
		slog.Debug("Job completed", "id", j.ID, "type", j.Type, "duration", duration)

		if l.onComplete != nil {
			l.onComplete(job.Result{JobID: j.ID, Status: job.StatusCompleted, Duration: duration})
		}
		s.kickLoop()
		return
	}

	// A handler stopping on its context after an explicit Cancel, or
	// during shutdown, did not fail; it must not re-enter the backoff
	// policy.
	if wasCancelled || (s.closed && stderrors.Is(err, context.Canceled)) {
		cause := context.Canceled
		if !wasCancelled {
			cause = errors.ErrShutdown
		}
		s.mu.Unlock()
		s.finalizeCancelled(j, cause)
		s.kickLoop()
		return
	}

	j.LastError = err.Error()
	j.RetryCount++

	if errors.IsRetryable(err) && j.RetryCount < j.MaxRetries && !s.closed {
		delay := s.config.BackoffBase << j.RetryCount
		// Re-admitted to pending when the timer fires; until then the job
		// is invisible to dequeue.
		j.Status = job.StatusPending
		j.StartedAt = nil
		entry := &retryEntry{job: j}
		entry.timer = time.AfterFunc(delay, func() { s.admitRetry(j.ID) })
		s.waiting[j.ID] = entry
		s.mu.Unlock()

		s.persist(j)
		s.emit(events.Event{Kind: events.KindRetryScheduled, JobID: j.ID, JobType: j.Type,
			Priority: j.Priority, RetryCount: j.RetryCount, Error: j.LastError,
			RetryDelay: delay, At: now})
		slog.Debug("Job retry scheduled", "id", j.ID, "type", j.Type,
			"retry", j.RetryCount, "delay", delay)
		s.kickLoop()
		return
	}

	j.Status = job.StatusFailed
	j.FinishedAt = &now
	s.terminal[j.ID] = j
	s.failedCount++
	l := s.takeListenersLocked(j.ID)
	s.mu.Unlock()

	s.persist(j)
	s.emit(events.Event{Kind: events.KindFailed, JobID: j.ID, JobType: j.Type,
		Priority: j.Priority, RetryCount: j.RetryCount, Error: j.LastError,
		Duration: duration, At: now})
	slog.Error("Job failed", "id", j.ID, "type", j.Type, "error", err)

	if l.onComplete != nil {
		l.onComplete(job.Result{JobID: j.ID, Status: job.StatusFailed, Err: err, Duration: duration})
	}
	s.kickLoop()
}

// admitRetry moves a job whose backoff delay elapsed back into the
// pending set.
func (s *Scheduler) admitRetry(id string) {
	s.mu.Lock()
	entry, ok := s.waiting[id]
	if !ok || s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.waiting, id)
	evicted := s.pending.Push(entry.job)
	s.mu.Unlock()

	s.persist(entry.job)
	if evicted != nil {
		s.finalizeEvicted(evicted)
	}
	s.kickLoop()
}

// Enqueue creates a pending job and returns its id. It never blocks; if
// the queue is full the lowest-priority pending job is evicted and its
// completion listener fires with ErrEvicted.
func (s *Scheduler) Enqueue(jobType job.Type, payload json.RawMessage, priority job.Priority, opts ...EnqueueOption) (string, error) {
	o := &enqueueOptions{}
	for _, opt := range opts {
		opt(o)
	}

	retries := s.config.DefaultRetries
	if o.maxRetries != nil {
		retries = *o.maxRetries
	}

	j := job.New(jobType, payload, priority, retries)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", errors.ErrShutdown
	}
	if o.onComplete != nil || o.onProgress != nil {
		s.listeners[j.ID] = jobListeners{onComplete: o.onComplete, onProgress: o.onProgress}
	}
	if o.timeout > 0 {
		s.timeouts[j.ID] = o.timeout
	}
	evicted := s.pending.Push(j)
	s.mu.Unlock()

	s.persist(j)
	s.emit(events.Event{Kind: events.KindEnqueued, JobID: j.ID, JobType: j.Type,
		Priority: j.Priority, At: j.CreatedAt})

	if evicted != nil {
		s.finalizeEvicted(evicted)
	}

	s.kickLoop()
	return j.ID, nil
}

// JobSpec describes one job in a batch enqueue.
type JobSpec struct {
	Type     job.Type
	Payload  json.RawMessage
	Priority job.Priority
	Options  []EnqueueOption
}

// EnqueueBatch admits several jobs and returns their ids in order. Jobs
// admitted before a failing one stay admitted.
func (s *Scheduler) EnqueueBatch(specs []JobSpec) ([]string, error) {
	ids := make([]string, 0, len(specs))
	for _, spec := range specs {
		id, err := s.Enqueue(spec.Type, spec.Payload, spec.Priority, spec.Options...)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// finalizeEvicted cancels a job pushed out of the queue under capacity
// pressure and notifies its listener with a distinguishable result.
func (s *Scheduler) finalizeEvicted(j *job.Job) {
	now := time.Now()

	s.mu.Lock()
	j.Status = job.StatusCancelled
	j.FinishedAt = &now
	j.LastError = errors.ErrEvicted.Error()
	s.terminal[j.ID] = j
	l := s.takeListenersLocked(j.ID)
	s.mu.Unlock()

	s.persist(j)
	s.emit(events.Event{Kind: events.KindEvicted, JobID: j.ID, JobType: j.Type,
		Priority: j.Priority, RetryCount: j.RetryCount, At: now})
	slog.Debug("Job evicted", "id", j.ID, "type", j.Type, "priority", j.Priority)

	if l.onComplete != nil {
		l.onComplete(job.Result{JobID: j.ID, Status: job.StatusCancelled, Err: errors.ErrEvicted})
	}
}

// finalizeCancelled marks a job cancelled outside the eviction path and
// notifies its listener.
func (s *Scheduler) finalizeCancelled(j *job.Job, cause error) {
	now := time.Now()

	s.mu.Lock()
	j.Status = job.StatusCancelled
	j.FinishedAt = &now
	if cause != nil {
		j.LastError = cause.Error()
	}
	s.terminal[j.ID] = j
	l := s.takeListenersLocked(j.ID)
	s.mu.Unlock()

	s.persist(j)
	s.emit(events.Event{Kind: events.KindCancelled, JobID: j.ID, JobType: j.Type,
		Priority: j.Priority, RetryCount: j.RetryCount, At: now})

	if l.onComplete != nil {
		l.onComplete(job.Result{JobID: j.ID, Status: job.StatusCancelled, Err: cause})
	}
}

// takeListenersLocked removes and returns the listeners for a job. Caller
// must hold s.mu. Listeners are removed once a job is terminal.
func (s *Scheduler) takeListenersLocked(id string) jobListeners {
	l := s.listeners[id]
	delete(s.listeners, id)
	delete(s.timeouts, id)
	return l
}

// persist writes a job record through the bridge. Failures are logged and
// swallowed; the scheduler keeps operating without durability for that
// write.
func (s *Scheduler) persist(j *job.Job) {
	if err := s.bridge.Save(s.bridgeCtx(), j); err != nil {
		slog.Error("Failed to persist job", "id", j.ID, "error", err)
	}
}

func (s *Scheduler) deleteRecord(id string) {
	if err := s.bridge.Delete(s.bridgeCtx(), id); err != nil {
		slog.Error("Failed to delete job record", "id", id, "error", err)
	}
}

func (s *Scheduler) emit(e events.Event) {
	if err := s.sink.Record(s.bridgeCtx(), e); err != nil {
		slog.Error("Failed to record event", "kind", e.Kind, "job", e.JobID, "error", err)
	}
}

func (s *Scheduler) bridgeCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

// Stop gracefully shuts down the scheduler: pending and retry-waiting jobs
// are cancelled, in-flight handlers get a cancellation signal and the
// shutdown timeout to finish, then connections are closed.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	var cancelled []*job.Job
	for id, entry := range s.waiting {
		entry.timer.Stop()
		delete(s.waiting, id)
		cancelled = append(cancelled, entry.job)
	}
	cancelled = append(cancelled, s.pending.DrainAll()...)
	cancel := s.cancel
	s.mu.Unlock()

	for _, j := range cancelled {
		s.finalizeCancelled(j, errors.ErrShutdown)
	}

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Scheduler stopped gracefully")
	case <-time.After(s.config.ShutdownTimeout):
		slog.Warn("Scheduler shutdown timeout exceeded")
	}

	if err := s.bridge.Close(); err != nil {
		slog.Error("Error closing persistence bridge", "error", err)
	}

	if err := s.sink.Close(); err != nil {
		slog.Error("Error closing event sink", "error", err)
	}

	return nil
}

// Run starts the scheduler and blocks until shutdown signals are received.
// This is a convenience method that combines Start() + signal handling +
// Stop().
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
	}

	return s.Stop()
}
