package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsDisabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{})
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Nil(t, m.Registry())

	// Every recorder is safe on a nil Metrics.
	m.ObserveStep(time.Millisecond)
	m.RunStarted()
	m.RunFinished("ok")
	m.SetCallbacks("run", 3)
	m.CallbackFailed("run")
	m.InstanceCreated("success")
	m.SetPhysicalDevices(2)
	m.DiagnosticMessage("warning")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsRecord(t *testing.T) {
	m, err := NewMetrics(DefaultMetricsConfig())
	require.NoError(t, err)

	m.RunStarted()
	assert.InDelta(t, 1, testutil.ToFloat64(m.running), 0)
	m.ObserveStep(2 * time.Millisecond)
	m.ObserveStep(3 * time.Millisecond)
	m.RunFinished("aborted")

	assert.InDelta(t, 2, testutil.ToFloat64(m.steps), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.running), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("aborted")), 0)

	m.SetCallbacks("run", 4)
	m.SetCallbacks("run", 3)
	assert.InDelta(t, 3, testutil.ToFloat64(m.callbacks.WithLabelValues("run")), 0)

	m.CallbackFailed("once")
	m.InstanceCreated("success")
	m.SetPhysicalDevices(2)
	m.DiagnosticMessage("error")
	m.DiagnosticMessage("error")
	assert.InDelta(t, 1, testutil.ToFloat64(m.callbackFails.WithLabelValues("once")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.creations.WithLabelValues("success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.devices), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.diagnostics.WithLabelValues("error")), 0)
}

func TestMetricsHandler(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "demo"})
	require.NoError(t, err)
	m.ObserveStep(time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "demo_run_steps_total 1"), body)
	assert.Contains(t, body, "demo_run_step_duration_seconds_bucket")
}

func TestMetricsPrivateRegistries(t *testing.T) {
	a, err := NewMetrics(DefaultMetricsConfig())
	require.NoError(t, err)
	b, err := NewMetrics(DefaultMetricsConfig())
	require.NoError(t, err)
	assert.NotSame(t, a.Registry(), b.Registry())
}
