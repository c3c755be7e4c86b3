package platform

import (
	"sync"
	"time"

	"github.com/gogpu/frame/internal/logging"
)

// Headless is an EventPump without a window. Events are functions posted
// from any goroutine with Post; they run on the goroutine that pumps.
type Headless struct {
	mu       sync.Mutex
	queue    []func()
	started  time.Time
	running  bool
	wake     chan struct{}
	now      func() time.Time
	required []string
}

var _ EventPump = (*Headless)(nil)

// NewHeadless returns a headless pump that reports required as its
// backend extensions.
func NewHeadless(required ...string) *Headless {
	return &Headless{
		wake:     make(chan struct{}, 1),
		now:      time.Now,
		required: required,
	}
}

// Init starts the clock.
func (h *Headless) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = h.now()
	h.running = true
	logging.Logger().Debug("platform: headless initialized")
	return nil
}

// Terminate drops pending events.
func (h *Headless) Terminate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = nil
	h.running = false
}

// Initialized reports whether Init was called without a later Terminate.
func (h *Headless) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Time returns the time since Init, or zero before Init.
func (h *Headless) Time() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return 0
	}
	return h.now().Sub(h.started)
}

// RequiredExtensions returns the extensions given to NewHeadless.
func (h *Headless) RequiredExtensions() []string {
	return append([]string(nil), h.required...)
}

// Post queues fn to run during the next pump.
func (h *Headless) Post(fn func()) {
	h.mu.Lock()
	h.queue = append(h.queue, fn)
	h.mu.Unlock()
	h.signal()
}

// Pending returns the number of queued events.
func (h *Headless) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// PollEvents runs the queued events. Events posted while running wait for
// the next pump.
func (h *Headless) PollEvents() {
	h.mu.Lock()
	queue := h.queue
	h.queue = nil
	h.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
}

// WaitEvents blocks until an event is posted, then runs the queue.
func (h *Headless) WaitEvents() {
	if h.Pending() == 0 {
		<-h.wake
	}
	h.drainWake()
	h.PollEvents()
}

// WaitEventsTimeout blocks until an event is posted or timeout elapses,
// then runs the queue.
func (h *Headless) WaitEventsTimeout(timeout time.Duration) {
	if h.Pending() == 0 {
		timer := time.NewTimer(timeout)
		select {
		case <-h.wake:
		case <-timer.C:
		}
		timer.Stop()
	}
	h.drainWake()
	h.PollEvents()
}

// PostEmptyEvent wakes a blocked wait without queueing work.
func (h *Headless) PostEmptyEvent() {
	h.signal()
}

func (h *Headless) signal() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Headless) drainWake() {
	select {
	case <-h.wake:
	default:
	}
}
