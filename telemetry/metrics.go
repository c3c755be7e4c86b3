package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures metric collection.
type MetricsConfig struct {
	Enabled   bool
	Namespace string

	// StepBuckets are the histogram buckets for run-step durations, in
	// seconds. Empty means frame-rate oriented defaults.
	StepBuckets []float64
}

// DefaultMetricsConfig returns an enabled configuration in the "frame"
// namespace.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Enabled: true, Namespace: "frame"}
}

var defaultStepBuckets = []float64{0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1, 0.25, 1}

// Metrics holds the frame runtime collectors.
type Metrics struct {
	registry *prometheus.Registry

	steps         prometheus.Counter
	stepDuration  prometheus.Histogram
	runs          *prometheus.CounterVec
	running       prometheus.Gauge
	callbacks     *prometheus.GaugeVec
	callbackFails *prometheus.CounterVec
	creations     *prometheus.CounterVec
	devices       prometheus.Gauge
	diagnostics   *prometheus.CounterVec
}

// NewMetrics creates collectors on a private registry. A disabled
// configuration returns nil, which records nothing.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	ns := cfg.Namespace
	buckets := cfg.StepBuckets
	if len(buckets) == 0 {
		buckets = defaultStepBuckets
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "run_steps_total",
			Help:      "Total number of run-loop steps executed",
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "run_step_duration_seconds",
			Help:      "Duration of a single run-loop step in seconds",
			Buckets:   buckets,
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "runs_total",
			Help:      "Total number of run-loop executions by result",
		}, []string{"result"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "running",
			Help:      "1 while the run loop is active",
		}),
		callbacks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "callbacks_registered",
			Help:      "Number of registered callbacks by kind",
		}, []string{"kind"}),
		callbackFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "callback_failures_total",
			Help:      "Total number of callbacks that signaled failure by kind",
		}, []string{"kind"}),
		creations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "instance_creations_total",
			Help:      "Total number of backend instance creation attempts by result",
		}, []string{"result"}),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "physical_devices",
			Help:      "Number of physical devices in the catalog",
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "diagnostic_messages_total",
			Help:      "Total number of backend diagnostic messages by severity",
		}, []string{"severity"}),
	}

	collectors := []prometheus.Collector{
		m.steps, m.stepDuration, m.runs, m.running, m.callbacks,
		m.callbackFails, m.creations, m.devices, m.diagnostics,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the private registry, or nil for a nil Metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStep records one run-loop step.
func (m *Metrics) ObserveStep(d time.Duration) {
	if m == nil {
		return
	}
	m.steps.Inc()
	m.stepDuration.Observe(d.Seconds())
}

// RunStarted marks the loop active.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.running.Set(1)
}

// RunFinished marks the loop idle and counts the run under result.
func (m *Metrics) RunFinished(result string) {
	if m == nil {
		return
	}
	m.running.Set(0)
	m.runs.WithLabelValues(result).Inc()
}

// SetCallbacks records the number of registered callbacks of kind.
func (m *Metrics) SetCallbacks(kind string, n int) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(kind).Set(float64(n))
}

// CallbackFailed counts a callback of kind that signaled failure.
func (m *Metrics) CallbackFailed(kind string) {
	if m == nil {
		return
	}
	m.callbackFails.WithLabelValues(kind).Inc()
}

// InstanceCreated counts an instance creation attempt.
func (m *Metrics) InstanceCreated(result string) {
	if m == nil {
		return
	}
	m.creations.WithLabelValues(result).Inc()
}

// SetPhysicalDevices records the catalog size.
func (m *Metrics) SetPhysicalDevices(n int) {
	if m == nil {
		return
	}
	m.devices.Set(float64(n))
}

// DiagnosticMessage counts a backend diagnostic message.
func (m *Metrics) DiagnosticMessage(severity string) {
	if m == nil {
		return
	}
	m.diagnostics.WithLabelValues(severity).Inc()
}
