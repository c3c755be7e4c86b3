package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestTracerExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tr, err := NewTracer(TracingConfig{Enabled: true, Writer: &buf}, "frame-test", "0.0.1")
	require.NoError(t, err)

	_, span := tr.Start(context.Background(), "frame.Setup", attribute.String("app", "demo"))
	End(span, nil)
	_, span = tr.Start(context.Background(), "instance.Create")
	End(span, errors.New("boom"))
	require.NoError(t, tr.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name":"frame.Setup"`)
	assert.Contains(t, out, `"Name":"instance.Create"`)
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "frame-test")
}

func TestTracerDisabled(t *testing.T) {
	tr, err := NewTracer(TracingConfig{}, "frame-test", "0.0.1")
	require.NoError(t, err)
	_, span := tr.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	End(span, nil)
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestNilTracer(t *testing.T) {
	var tr *Tracer
	ctx, span := tr.Start(context.Background(), "noop")
	assert.NotNil(t, ctx)
	assert.False(t, span.IsRecording())
	End(span, errors.New("ignored"))
	assert.NoError(t, tr.Shutdown(context.Background()))
}
