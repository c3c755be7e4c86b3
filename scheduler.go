package frame

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/frame/internal/logging"
	"github.com/gogpu/frame/platform"
	"github.com/gogpu/frame/telemetry"
)

// RunFunc is a per-step callback. Returning false aborts the run.
type RunFunc func() bool

// RunEndFunc is a teardown callback.
type RunEndFunc func()

// IdleWaiter drains outstanding device work. Run calls it before any
// teardown callback.
type IdleWaiter interface {
	WaitIdle() error
}

// EventMode selects how a run step pumps platform events.
type EventMode uint8

// Event modes.
const (
	// EventsPoll processes pending events without blocking.
	EventsPoll EventMode = iota
	// EventsWait blocks until an event arrives.
	EventsWait
	// EventsWaitTimeout blocks until an event arrives or the timeout elapses.
	EventsWaitTimeout
)

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithPump sets the platform the scheduler pumps events through.
func WithPump(p platform.EventPump) SchedulerOption {
	return func(s *Scheduler) { s.pump = p }
}

// WithIdleWaiter sets the barrier run before teardown callbacks.
func WithIdleWaiter(w IdleWaiter) SchedulerOption {
	return func(s *Scheduler) { s.idle = w }
}

// WithEventMode selects the event policy. timeout is used by
// EventsWaitTimeout only.
func WithEventMode(mode EventMode, timeout time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.mode = mode
		s.timeout = timeout
	}
}

// WithSchedulerMetrics records run and step metrics.
func WithSchedulerMetrics(m *telemetry.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler is the run-loop. Each step pumps events, runs the queued
// one-shot callbacks and then the steady callbacks. When the loop ends it
// drains the devices and runs the teardown callbacks, newest first.
//
// Run and RunStep must be called from one goroutine and callbacks run on
// it. Registration, Remove, ShutDown and Running are safe from any
// goroutine.
type Scheduler struct {
	pump    platform.EventPump
	idle    IdleWaiter
	mode    EventMode
	timeout time.Duration
	metrics *telemetry.Metrics

	running atomic.Bool
	active  atomic.Bool
	start   time.Time

	mu     sync.Mutex
	ids    idArena
	run    *registry[RunFunc]
	runEnd *registry[RunEndFunc]
	once   []onceEntry
}

type onceEntry struct {
	id ID
	fn RunFunc
}

// NewScheduler returns an idle scheduler.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		run:    newRegistry[RunFunc](),
		runEnd: newRegistry[RunEndFunc](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops until ShutDown is called, ctx is done, or a callback fails.
// It returns nil after a shutdown, ErrRunAborted after a callback failure
// and ErrStillRunning if a run is already active.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.active.CompareAndSwap(false, true) {
		return ErrStillRunning
	}
	if !s.running.CompareAndSwap(false, true) {
		s.active.Store(false)
		return ErrStillRunning
	}
	s.start = time.Now()
	s.metrics.RunStarted()

	// Cancellation only wakes the pump. The loop itself observes ctx, so
	// only this goroutine and explicit ShutDown calls change running.
	woken := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(woken)
		s.wake()
	})

	for s.running.Load() {
		if ctx.Err() != nil {
			s.ShutDown()
			break
		}
		if !s.RunStep() {
			break
		}
	}
	if !stop() {
		<-woken
	}

	if s.idle != nil {
		if err := s.idle.WaitIdle(); err != nil {
			logging.Logger().Warn("frame: wait idle", "error", err)
		}
	}

	s.triggerRunEnd()

	var err error
	result := "ok"
	if s.running.Swap(false) {
		err = ErrRunAborted
		result = "aborted"
	}
	s.metrics.RunFinished(result)

	s.start = time.Time{}
	s.active.Store(false)
	return err
}

// RunStep runs one iteration of the loop and reports whether every
// callback succeeded.
func (s *Scheduler) RunStep() bool {
	began := time.Now()
	defer func() { s.metrics.ObserveStep(time.Since(began)) }()

	s.handleEvents()

	if !s.runOnce() {
		return false
	}

	s.mu.Lock()
	ids := s.run.ids()
	s.mu.Unlock()

	for _, id := range ids {
		s.mu.Lock()
		fn, ok := s.run.get(id)
		s.mu.Unlock()
		if !ok {
			continue
		}
		if !fn() {
			s.metrics.CallbackFailed("run")
			logging.Logger().Debug("frame: run callback failed", "id", uint64(id))
			return false
		}
	}
	return true
}

func (s *Scheduler) handleEvents() {
	if s.pump == nil {
		return
	}
	switch s.mode {
	case EventsWait:
		s.pump.WaitEvents()
	case EventsWaitTimeout:
		s.pump.WaitEventsTimeout(s.timeout)
	default:
		s.pump.PollEvents()
	}
}

// runOnce drains the one-shot queue. Callbacks queued while draining run
// on the next step. After a failure the rest of the batch is dropped.
func (s *Scheduler) runOnce() bool {
	s.mu.Lock()
	batch := s.once
	s.once = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return true
	}

	ok := true
	for _, e := range batch {
		if ok && !e.fn() {
			ok = false
			s.metrics.CallbackFailed("once")
			logging.Logger().Debug("frame: run-once callback failed", "id", uint64(e.id))
		}
	}

	s.mu.Lock()
	for _, e := range batch {
		s.ids.release(e.id)
	}
	s.metrics.SetCallbacks("once", len(s.once))
	s.mu.Unlock()
	return ok
}

func (s *Scheduler) triggerRunEnd() {
	s.mu.Lock()
	ids := s.runEnd.ids()
	s.mu.Unlock()

	for i := len(ids) - 1; i >= 0; i-- {
		s.mu.Lock()
		fn, ok := s.runEnd.get(ids[i])
		s.mu.Unlock()
		if ok {
			fn()
		}
	}
}

// ShutDown asks the loop to stop at the next step boundary and wakes a
// blocked event wait. It reports whether a running loop was stopped.
func (s *Scheduler) ShutDown() bool {
	if !s.running.CompareAndSwap(true, false) {
		return false
	}
	s.wake()
	return true
}

func (s *Scheduler) wake() {
	if s.pump != nil {
		s.pump.PostEmptyEvent()
	}
}

// Running reports whether the loop is running.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// StartTime returns when the current run began; ok is false outside Run.
// It must be called from the run-loop goroutine.
func (s *Scheduler) StartTime() (t time.Time, ok bool) {
	return s.start, !s.start.IsZero()
}

// AddRun registers a steady callback invoked once per step.
func (s *Scheduler) AddRun(fn RunFunc) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids.alloc()
	s.run.add(id, fn)
	s.metrics.SetCallbacks("run", s.run.len())
	return id
}

// AddRunOnce queues a callback for the next step only. The returned ID
// cannot be passed to Remove.
func (s *Scheduler) AddRunOnce(fn RunFunc) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids.alloc()
	s.once = append(s.once, onceEntry{id: id, fn: fn})
	s.metrics.SetCallbacks("once", len(s.once))
	return id
}

// AddRunEnd registers a teardown callback run once when the loop ends.
func (s *Scheduler) AddRunEnd(fn RunEndFunc) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids.alloc()
	s.runEnd.add(id, fn)
	s.metrics.SetCallbacks("run_end", s.runEnd.len())
	return id
}

// Remove unregisters a steady or teardown callback and frees its ID. It
// reports whether anything was removed.
func (s *Scheduler) Remove(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	switch {
	case s.run.remove(id):
		removed = true
		s.metrics.SetCallbacks("run", s.run.len())
	case s.runEnd.remove(id):
		removed = true
		s.metrics.SetCallbacks("run_end", s.runEnd.len())
	}
	if removed {
		s.ids.release(id)
	}
	return removed
}
