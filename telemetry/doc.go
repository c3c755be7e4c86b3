// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for the frame runtime.
//
// Both types are nil-safe: a nil *Metrics or *Tracer records nothing, so
// collaborators can hold them unconditionally.
package telemetry
