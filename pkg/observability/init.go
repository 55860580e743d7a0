package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	instrumentationName = "tracecov"

	// shutdownTimeout bounds the final flush of pending spans and metrics.
	shutdownTimeout = 5 * time.Second
)

// Providers holds the initialized observability providers.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger

	// Shutdown flushes pending telemetry. Call it before process exit.
	Shutdown func(ctx context.Context) error
}

type shutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs the global tracer and meter providers and builds the logger.
// Without an export endpoint the tracer and meter are no-ops.
func Init(cfg Config) (Providers, error) {
	ctx := context.Background()

	tp, tpShutdown, err := newTracerProvider(ctx, cfg)
	if err != nil {
		return Providers{}, err
	}

	mp, mpShutdown, err := newMeterProvider(ctx, cfg)
	if err != nil {
		return Providers{}, errors.Join(err, tpShutdown(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(shutdownCtx context.Context) error {
		deadlineCtx, cancel := context.WithTimeout(shutdownCtx, shutdownTimeout)
		defer cancel()

		return errors.Join(tpShutdown(deadlineCtx), mpShutdown(deadlineCtx))
	}

	return Providers{
		Tracer:   tp.Tracer(instrumentationName),
		Meter:    mp.Meter(instrumentationName),
		Logger:   NewLogger(cfg),
		Shutdown: shutdown,
	}, nil
}

// Sampler keeps every span under DebugTrace and otherwise keeps SampleRatio
// of root spans. Child spans follow their parent's decision.
func (c Config) Sampler() sdktrace.Sampler {
	switch {
	case c.DebugTrace:
		return sdktrace.AlwaysSample()
	case c.SampleRatio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
	}
}

func newTracerProvider(ctx context.Context, cfg Config) (trace.TracerProvider, shutdownFunc, error) {
	if !cfg.Export.Enabled() {
		return nooptrace.NewTracerProvider(), noopShutdown, nil
	}

	res, err := cfg.Identity.Resource(ctx)
	if err != nil {
		return nil, nil, err
	}

	exporter, err := cfg.Export.spanExporter(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("build tracer provider: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.Sampler()),
	)

	return tp, tp.Shutdown, nil
}

func newMeterProvider(ctx context.Context, cfg Config) (metric.MeterProvider, shutdownFunc, error) {
	if !cfg.Export.Enabled() {
		return noopmetric.NewMeterProvider(), noopShutdown, nil
	}

	res, err := cfg.Identity.Resource(ctx)
	if err != nil {
		return nil, nil, err
	}

	exporter, err := cfg.Export.metricExporter(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("build meter provider: %w", err)
	}

	mp := newSDKMeterProvider(res, sdkmetric.NewPeriodicReader(exporter))

	return mp, mp.Shutdown, nil
}

func newSDKMeterProvider(res *resource.Resource, reader sdkmetric.Reader) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
}

// NewLogger builds the structured logger described by cfg without touching
// the global OTel providers.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.LogOutput
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, handlerOpts)
	} else {
		inner = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(NewTracingHandler(inner, cfg.Identity))
}
