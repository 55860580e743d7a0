package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/tracecov/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.NotNil(t, providers.Shutdown)

	err = providers.Shutdown(context.Background())
	assert.NoError(t, err)
}

func TestInit_NoopSpanIsValid(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	ctx, span := providers.Tracer.Start(context.Background(), "test-op")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
}

func TestInit_WithExportEndpoint(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Identity.Version = "1.2.3"
	cfg.Identity.Environment = "test"
	cfg.Identity.Mode = observability.ModeMCP
	// gRPC dials lazily, so no collector needs to listen here.
	cfg.Export = observability.Export{Endpoint: "127.0.0.1:4317", Insecure: true}

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	_, span := providers.Tracer.Start(context.Background(), "exported")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The flush may fail without a collector; it must still return.
	_ = providers.Shutdown(ctx)
}

func TestInit_LoggerHasTracingHandler(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	assert.NotNil(t, providers.Logger)

	providers.Logger.InfoContext(context.Background(), "init test")
}

func TestInit_ShutdownIdempotent(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	require.NoError(t, providers.Shutdown(context.Background()))
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestNewLogger_WritesToConfiguredOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogOutput = &buf
	cfg.Identity.Mode = observability.ModeServe
	cfg.Identity.Version = "0.3.0"

	observability.NewLogger(cfg).InfoContext(context.Background(), "report written", slog.Int("files", 3))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "report written", record["msg"])
	assert.Equal(t, "tracecov", record["service"])
	assert.Equal(t, "serve", record["mode"])
	assert.Equal(t, "0.3.0", record["version"])
	assert.NotContains(t, record, "env")
	assert.InDelta(t, 3, record["files"], 0)
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn
	cfg.LogOutput = &buf

	logger := observability.NewLogger(cfg)
	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{"empty", "", nil},
		{"single", "key=value", map[string]string{"key": "value"}},
		{"multiple", "k1=v1,k2=v2", map[string]string{"k1": "v1", "k2": "v2"}},
		{"spaces", " k1 = v1 , k2 = v2 ", map[string]string{"k1": "v1", "k2": "v2"}},
		{"no_equals", "invalid", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := observability.ParseHeaders(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func resourceValue(t *testing.T, id observability.Identity, key string) (string, bool) {
	t.Helper()

	res, err := id.Resource(context.Background())
	require.NoError(t, err)

	value, ok := res.Set().Value(attribute.Key(key))

	return value.AsString(), ok
}

func TestIdentity_Resource(t *testing.T) {
	t.Parallel()

	id := observability.Identity{
		Service:     "tracecov",
		Version:     "1.2.3",
		Environment: "staging",
		Mode:        observability.ModeMCP,
	}

	for key, want := range map[string]string{
		"service.name":           "tracecov",
		"service.version":        "1.2.3",
		"deployment.environment": "staging",
		"app.mode":               "mcp",
	} {
		got, ok := resourceValue(t, id, key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
}

func TestIdentity_Resource_OmitsEmptyFields(t *testing.T) {
	t.Parallel()

	id := observability.Identity{Service: "tracecov"}

	_, ok := resourceValue(t, id, "deployment.environment")
	assert.False(t, ok)

	_, ok = resourceValue(t, id, "service.version")
	assert.False(t, ok)
}

func rootSampled(cfg observability.Config) bool {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(cfg.Sampler()))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("sampler-test").Start(context.Background(), "root")
	defer span.End()

	return span.SpanContext().IsSampled()
}

func TestConfig_Sampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ratio float64
		debug bool
		want  bool
	}{
		{"default_ratio", 1, false, true},
		{"zero_ratio", 0, false, false},
		{"debug_overrides_zero_ratio", 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := observability.DefaultConfig()
			cfg.SampleRatio = tt.ratio
			cfg.DebugTrace = tt.debug

			assert.Equal(t, tt.want, rootSampled(cfg))
		})
	}
}

func TestConfig_Sampler_FollowsParent(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.SampleRatio = 0

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(cfg.Sampler()))
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})

	_, span := tp.Tracer("sampler-test").Start(trace.ContextWithRemoteSpanContext(context.Background(), parent), "child")
	defer span.End()

	assert.True(t, span.SpanContext().IsSampled())
}
