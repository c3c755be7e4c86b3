package frame

import (
	"github.com/gogpu/frame/driver"
	"github.com/gogpu/frame/instance"
	"github.com/gogpu/frame/platform"
	"github.com/gogpu/frame/telemetry"
)

// Option configures a Frame during New.
//
// Example:
//
//	f, err := frame.New(cfg,
//	    frame.WithLoader(drivertest.New()),
//	    frame.WithEventPump(platform.NewHeadless()),
//	)
type Option func(*options)

// options holds the collaborators of a Frame.
type options struct {
	loader  driver.Loader
	pump    platform.EventPump
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	policy  instance.ValidationPolicy
}

// WithLoader sets the backend loader. Without it the first registered
// loader is used.
func WithLoader(l driver.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithEventPump sets the platform. Without it a headless pump is used.
func WithEventPump(p platform.EventPump) Option {
	return func(o *options) {
		o.pump = p
	}
}

// WithMetrics records scheduler and instance metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer records spans around setup, instance creation and runs.
func WithTracer(t *telemetry.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithValidationPolicy sets what happens on error-severity diagnostic
// messages. The default panics in framedebug builds and only logs
// otherwise.
func WithValidationPolicy(p instance.ValidationPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}
