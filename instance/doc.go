// Package instance owns the process-wide connection to the graphics backend.
//
// An [Instance] negotiates optional diagnostic layers and extensions with
// the loader ([Negotiate]), creates the native connection, enumerates
// physical devices into a [Catalog] and, when requested, installs a
// diagnostic bridge that routes backend validation messages into the frame
// logger.
//
// Lifecycle:
//
//	Uninitialized -> Creating -> Ready -> Destroyed
//
// A failed Create leaves the instance Uninitialized with nothing allocated.
// Destroy is idempotent and is a no-op unless the instance is Ready.
package instance
