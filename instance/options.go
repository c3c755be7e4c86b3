package instance

import "github.com/gogpu/frame/telemetry"

// Option configures an Instance.
type Option func(*Instance)

// WithValidationPolicy sets the action taken on error-severity diagnostic
// messages. Nil keeps the default.
func WithValidationPolicy(p ValidationPolicy) Option {
	return func(i *Instance) {
		if p != nil {
			i.policy = p
		}
	}
}

// WithMetrics records creation results, catalog size and diagnostic
// messages.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(i *Instance) {
		i.metrics = m
	}
}

// WithTracer traces instance creation.
func WithTracer(t *telemetry.Tracer) Option {
	return func(i *Instance) {
		i.tracer = t
	}
}
