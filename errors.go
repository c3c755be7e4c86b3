package frame

import "errors"

// Sentinel errors.
var (
	// ErrStillRunning is returned by Run while a run is already active.
	ErrStillRunning = errors.New("frame: still running")

	// ErrRunAborted is returned by Run when a callback reported failure.
	// Teardown callbacks have run by the time it is returned.
	ErrRunAborted = errors.New("frame: run aborted")

	// ErrAlreadyInitialized is returned by New while another Frame is set up.
	ErrAlreadyInitialized = errors.New("frame: already initialized")

	// ErrNotInitialized is returned by Frame methods after Teardown.
	ErrNotInitialized = errors.New("frame: not initialized")

	// ErrNoLoader is returned by New when no backend loader is available.
	ErrNoLoader = errors.New("frame: no backend loader")

	// ErrPlatform is returned by New when the platform fails to initialize.
	ErrPlatform = errors.New("frame: platform init failed")
)
