package frame

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/frame/platform"
	"github.com/gogpu/frame/telemetry"
)

// recordingPump is an EventPump that records which pump call each step made.
type recordingPump struct {
	mu    sync.Mutex
	calls []string
	wakes int
}

func (p *recordingPump) record(s string) {
	p.mu.Lock()
	p.calls = append(p.calls, s)
	p.mu.Unlock()
}

func (p *recordingPump) Init() error                     { return nil }
func (p *recordingPump) Terminate()                      {}
func (p *recordingPump) Time() time.Duration             { return 0 }
func (p *recordingPump) RequiredExtensions() []string    { return nil }
func (p *recordingPump) PollEvents()                     { p.record("poll") }
func (p *recordingPump) WaitEvents()                     { p.record("wait") }
func (p *recordingPump) WaitEventsTimeout(time.Duration) { p.record("timeout") }

func (p *recordingPump) PostEmptyEvent() {
	p.mu.Lock()
	p.wakes++
	p.mu.Unlock()
}

func (p *recordingPump) snapshot() (calls []string, wakes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls), p.wakes
}

var _ platform.EventPump = (*recordingPump)(nil)

// idleFunc adapts a function to IdleWaiter.
type idleFunc func() error

func (f idleFunc) WaitIdle() error { return f() }

func TestRunEndToEnd(t *testing.T) {
	var log []string
	s := NewScheduler(WithIdleWaiter(idleFunc(func() error {
		log = append(log, "idle")
		return nil
	})))

	count := 0
	s.AddRun(func() bool {
		count++
		log = append(log, "run")
		return count <= 3
	})
	teardowns := 0
	s.AddRunEnd(func() {
		teardowns++
		log = append(log, "end")
	})

	err := s.Run(context.Background())
	if !errors.Is(err, ErrRunAborted) {
		t.Fatalf("Run() = %v, want ErrRunAborted", err)
	}
	if count != 4 {
		t.Errorf("steady callback ran %d times, want 4", count)
	}
	if teardowns != 1 {
		t.Errorf("teardown ran %d times, want 1", teardowns)
	}
	want := []string{"run", "run", "run", "run", "idle", "end"}
	if !slices.Equal(log, want) {
		t.Errorf("order = %v, want %v", log, want)
	}
	if s.Running() {
		t.Error("Running() = true after Run returned")
	}
}

func TestTeardownReverseOrder(t *testing.T) {
	s := NewScheduler()
	var order []string
	for _, name := range []string{"A", "B", "C"} {
		s.AddRunEnd(func() { order = append(order, name) })
	}
	s.AddRun(func() bool { return false })

	if err := s.Run(context.Background()); !errors.Is(err, ErrRunAborted) {
		t.Fatalf("Run() = %v, want ErrRunAborted", err)
	}
	if want := []string{"C", "B", "A"}; !slices.Equal(order, want) {
		t.Errorf("teardown order = %v, want %v", order, want)
	}
}

func TestRunOnceSingleStep(t *testing.T) {
	s := NewScheduler()
	var got []string
	s.AddRunOnce(func() bool { got = append(got, "X"); return true })
	s.AddRunOnce(func() bool { got = append(got, "Y"); return true })

	if !s.RunStep() {
		t.Fatal("RunStep() = false")
	}
	if want := []string{"X", "Y"}; !slices.Equal(got, want) {
		t.Fatalf("first step ran %v, want %v", got, want)
	}
	if !s.RunStep() {
		t.Fatal("second RunStep() = false")
	}
	if len(got) != 2 {
		t.Errorf("one-shot callbacks ran again: %v", got)
	}
}

func TestRunOnceFailureClearsQueue(t *testing.T) {
	s := NewScheduler()
	var got []string
	s.AddRunOnce(func() bool { got = append(got, "X"); return false })
	s.AddRunOnce(func() bool { got = append(got, "Y"); return true })
	steady := 0
	s.AddRun(func() bool { steady++; return true })

	if s.RunStep() {
		t.Fatal("RunStep() = true after a one-shot failure")
	}
	if steady != 0 {
		t.Errorf("steady callbacks ran %d times in a failed step", steady)
	}
	if !s.RunStep() {
		t.Fatal("RunStep() = false on the next step")
	}
	if want := []string{"X"}; !slices.Equal(got, want) {
		t.Errorf("one-shot calls = %v, want %v", got, want)
	}
}

func TestRunOnceQueuedDuringDrainRunsNextStep(t *testing.T) {
	s := NewScheduler()
	var got []string
	s.AddRunOnce(func() bool {
		got = append(got, "first")
		s.AddRunOnce(func() bool { got = append(got, "second"); return true })
		return true
	})

	s.RunStep()
	if want := []string{"first"}; !slices.Equal(got, want) {
		t.Fatalf("after step 1 = %v, want %v", got, want)
	}
	s.RunStep()
	if want := []string{"first", "second"}; !slices.Equal(got, want) {
		t.Errorf("after step 2 = %v, want %v", got, want)
	}
}

func TestSteadyRegistrationOrder(t *testing.T) {
	s := NewScheduler()
	var got []int
	for i := range 5 {
		s.AddRun(func() bool { got = append(got, i); return true })
	}
	s.RunStep()
	s.RunStep()
	want := []int{0, 1, 2, 3, 4, 0, 1, 2, 3, 4}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestRemoveDuringStep(t *testing.T) {
	s := NewScheduler()
	var second ID
	ran := false
	s.AddRun(func() bool { s.Remove(second); return true })
	second = s.AddRun(func() bool { ran = true; return true })

	s.RunStep()
	if ran {
		t.Error("callback removed earlier in the step still ran")
	}
}

func TestRunReentrant(t *testing.T) {
	s := NewScheduler()
	var inner error
	var before, after time.Time
	s.AddRun(func() bool {
		before, _ = s.StartTime()
		inner = s.Run(context.Background())
		after, _ = s.StartTime()
		s.ShutDown()
		return true
	})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if !errors.Is(inner, ErrStillRunning) {
		t.Errorf("re-entrant Run() = %v, want ErrStillRunning", inner)
	}
	if before.IsZero() || !before.Equal(after) {
		t.Errorf("start time changed by re-entrant Run: %v -> %v", before, after)
	}
	if _, ok := s.StartTime(); ok {
		t.Error("StartTime() still set after Run returned")
	}
}

func TestShutDown(t *testing.T) {
	pump := &recordingPump{}
	s := NewScheduler(WithPump(pump))
	if s.ShutDown() {
		t.Error("ShutDown() = true while idle")
	}

	var first, second bool
	s.AddRun(func() bool {
		first = s.ShutDown()
		second = s.ShutDown()
		return true
	})
	teardown := 0
	s.AddRunEnd(func() { teardown++ })

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if !first || second {
		t.Errorf("ShutDown() = %v then %v, want true then false", first, second)
	}
	if teardown != 1 {
		t.Errorf("teardown ran %d times, want 1", teardown)
	}
	if _, wakes := pump.snapshot(); wakes != 1 {
		t.Errorf("PostEmptyEvent calls = %d, want 1", wakes)
	}
}

func TestRemove(t *testing.T) {
	s := NewScheduler()
	run := s.AddRun(func() bool { return true })
	end := s.AddRunEnd(func() {})
	once := s.AddRunOnce(func() bool { return true })

	if !s.Remove(run) || s.Remove(run) {
		t.Error("Remove(run) should return true then false")
	}
	if !s.Remove(end) || s.Remove(end) {
		t.Error("Remove(run end) should return true then false")
	}
	if s.Remove(once) {
		t.Error("Remove(one-shot) = true, want false")
	}
	if s.Remove(12345) {
		t.Error("Remove(unknown) = true, want false")
	}
}

func TestIDsAreUniqueAndReused(t *testing.T) {
	s := NewScheduler()
	a := s.AddRun(func() bool { return true })
	b := s.AddRunEnd(func() {})
	c := s.AddRunOnce(func() bool { return true })
	if a == 0 || a == b || b == c || a == c {
		t.Fatalf("ids not unique: %d %d %d", a, b, c)
	}

	s.Remove(b)
	if d := s.AddRun(func() bool { return true }); d != b {
		t.Errorf("freed id not reused: got %d, want %d", d, b)
	}

	s.RunStep()
	if e := s.AddRun(func() bool { return true }); e != c {
		t.Errorf("consumed one-shot id not reused: got %d, want %d", e, c)
	}
}

func TestIDArena(t *testing.T) {
	var a idArena
	if got := a.alloc(); got != 1 {
		t.Errorf("first alloc = %d, want 1", got)
	}
	a.alloc()
	a.release(0)
	a.release(99)
	if got := a.alloc(); got != 3 {
		t.Errorf("alloc after invalid releases = %d, want 3", got)
	}
	a.release(1)
	a.release(2)
	if got := a.alloc(); got != 2 {
		t.Errorf("alloc = %d, want most recently released 2", got)
	}
}

func TestIdleFailureStillTearsDown(t *testing.T) {
	s := NewScheduler(WithIdleWaiter(idleFunc(func() error { return errors.New("device lost") })))
	ran := false
	s.AddRunEnd(func() { ran = true })
	s.AddRun(func() bool { return s.ShutDown() })

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if !ran {
		t.Error("teardown skipped after idle failure")
	}
}

func TestRunContextCancel(t *testing.T) {
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	steps := 0
	s.AddRun(func() bool {
		steps++
		if steps == 3 {
			cancel()
		}
		return true
	})
	ended := false
	s.AddRunEnd(func() { ended = true })

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if steps != 3 {
		t.Errorf("steps = %d, want 3", steps)
	}
	if !ended {
		t.Error("teardown did not run")
	}
}

func TestCancelInFailingCallbackStillAborts(t *testing.T) {
	for i := range 20 {
		pump := &recordingPump{}
		s := NewScheduler(WithPump(pump))
		ctx, cancel := context.WithCancel(context.Background())
		failing := s.AddRun(func() bool {
			cancel()
			return false
		})

		if err := s.Run(ctx); !errors.Is(err, ErrRunAborted) {
			t.Fatalf("iteration %d: Run() = %v, want ErrRunAborted", i, err)
		}
		if _, wakes := pump.snapshot(); wakes != 1 {
			t.Fatalf("iteration %d: PostEmptyEvent calls = %d after Run, want 1", i, wakes)
		}

		// A cancellation from the previous run must not reach this one.
		s.Remove(failing)
		steps := 0
		s.AddRun(func() bool {
			steps++
			if steps == 3 {
				s.ShutDown()
			}
			return true
		})
		if err := s.Run(context.Background()); err != nil {
			t.Fatalf("iteration %d: second Run() = %v, want nil", i, err)
		}
		if steps != 3 {
			t.Fatalf("iteration %d: second run steps = %d, want 3", i, steps)
		}
	}
}

func TestEventModes(t *testing.T) {
	tests := []struct {
		mode EventMode
		want string
	}{
		{EventsPoll, "poll"},
		{EventsWait, "wait"},
		{EventsWaitTimeout, "timeout"},
	}
	for _, tt := range tests {
		pump := &recordingPump{}
		s := NewScheduler(WithPump(pump), WithEventMode(tt.mode, time.Millisecond))
		s.RunStep()
		s.RunStep()
		calls, _ := pump.snapshot()
		if want := []string{tt.want, tt.want}; !slices.Equal(calls, want) {
			t.Errorf("mode %d pump calls = %v, want %v", tt.mode, calls, want)
		}
	}
}

func TestShutDownWakesBlockedPump(t *testing.T) {
	pump := platform.NewHeadless()
	s := NewScheduler(WithPump(pump), WithEventMode(EventsWait, 0))
	started := make(chan struct{})
	s.AddRunOnce(func() bool { close(started); return true })

	// The first step must not block so the one-shot can signal.
	pump.PostEmptyEvent()

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	<-started
	for !s.ShutDown() {
		time.Sleep(time.Millisecond)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after ShutDown")
	}
}

func TestSchedulerMetrics(t *testing.T) {
	m, err := telemetry.NewMetrics(telemetry.DefaultMetricsConfig())
	if err != nil {
		t.Fatal(err)
	}
	s := NewScheduler(WithSchedulerMetrics(m))
	n := 0
	s.AddRun(func() bool { n++; return n < 2 })
	if err := s.Run(context.Background()); !errors.Is(err, ErrRunAborted) {
		t.Fatalf("Run() = %v, want ErrRunAborted", err)
	}
}
