package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// withRecorder swaps the package tracer for one backed by an in-memory
// span recorder for the duration of the test.
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	prev := Tracer()
	setTracer(tp.Tracer("test"))
	t.Cleanup(func() {
		setTracer(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "filedeck", cfg.Service)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.Profiling.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Tracing.Endpoint)
	assert.True(t, cfg.Tracing.Insecure)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
}

func TestSetupDisabled(t *testing.T) {
	ctx := context.Background()

	tel, err := Setup(ctx, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, tel.TracingEnabled())
	assert.False(t, tel.ProfilingEnabled())
	assert.NoError(t, tel.Shutdown(ctx))

	// The no-op tracer never yields IDs.
	spanCtx, span := StartSpan(ctx, "noop")
	defer span.End()
	assert.Empty(t, TraceID(spanCtx))
	assert.Empty(t, SpanID(spanCtx))
}

func TestSetupRejectsUnknownProfileType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profiling.Enabled = true
	cfg.Profiling.ProfileTypes = []string{"heapish"}

	_, err := Setup(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heapish")
}

func TestResolveProfileTypes(t *testing.T) {
	types, err := resolveProfileTypes([]string{"cpu", "goroutines"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileGoroutines}, types)

	types, err = resolveProfileTypes(nil)
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestCommandSpans(t *testing.T) {
	rec := withRecorder(t)

	ctx, session := StartSessionSpan(context.Background(), "sess-1", "127.0.0.1:5000")
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))

	cmdCtx, cmd := StartCommandSpan(ctx, "manage folder", SubCommand("create"))
	SetAttributes(cmdCtx, StatusMsg("Directory created successfully."))
	RecordError(cmdCtx, nil)
	cmd.End()

	_, failed := StartCommandSpan(ctx, "back-to-menu")
	failCtx := trace.ContextWithSpan(ctx, failed)
	RecordError(failCtx, errors.New("boom"))
	failed.End()

	session.End()

	spans := rec.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "filedeck.manage_folder", spans[0].Name())
	assert.Equal(t, "filedeck.back_to_menu", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, SpanSession, spans[2].Name())

	// Command spans are children of the session span.
	assert.Equal(t, spans[2].SpanContext().SpanID(), spans[0].Parent().SpanID())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "manage folder", attrs[AttrCommand])
	assert.Equal(t, "create", attrs[AttrSubCommand])
	assert.Equal(t, "Directory created successfully.", attrs[AttrStatusMsg])
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, AttrUsername, string(Username("alice").Key))
	assert.Equal(t, "alice", Username("alice").Value.AsString())
	assert.Equal(t, int64(12), Size(12).Value.AsInt64())
	assert.Equal(t, int64(3), Entries(3).Value.AsInt64())
	assert.Equal(t, "/srv/a", Path("/srv/a").Value.AsString())
}
