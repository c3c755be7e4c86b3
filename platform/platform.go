// Package platform defines the windowing contract the frame run-loop pumps
// events through, and a headless implementation.
package platform

import (
	"errors"
	"time"
)

// ErrNotInitialized is returned by operations that need Init.
var ErrNotInitialized = errors.New("platform: not initialized")

// EventPump is the windowing layer as the run-loop sees it.
//
// PollEvents, WaitEvents and WaitEventsTimeout must be called from the
// run-loop goroutine. PostEmptyEvent may be called from any goroutine and
// wakes a blocked WaitEvents.
type EventPump interface {
	// Init prepares the platform. Calling it again after Terminate is allowed.
	Init() error

	// Terminate releases the platform.
	Terminate()

	// Time returns the time elapsed since Init.
	Time() time.Duration

	// RequiredExtensions lists the backend extensions surfaces need.
	RequiredExtensions() []string

	// PollEvents processes pending events and returns immediately.
	PollEvents()

	// WaitEvents blocks until at least one event is available and processes
	// pending events.
	WaitEvents()

	// WaitEventsTimeout is WaitEvents bounded by timeout.
	WaitEventsTimeout(timeout time.Duration)

	// PostEmptyEvent wakes a blocked WaitEvents.
	PostEmptyEvent()
}
