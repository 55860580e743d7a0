// Package ingest runs a trace stream through the parser, the optional
// location remapper and the coverage model in one pass.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/tracecov/pkg/coverage"
	"github.com/Sumatoshi-tech/tracecov/pkg/observability"
	"github.com/Sumatoshi-tech/tracecov/pkg/remap"
	"github.com/Sumatoshi-tech/tracecov/pkg/trace"
)

// tracerName is the fallback OTel tracer name when Options.Tracer is nil.
const tracerName = "tracecov"

// spanName names the span covering one ingestion.
const spanName = "ingest.run"

// Options configures Run.
type Options struct {
	// Remap translates instruction coordinates through //@line directives.
	Remap bool

	// ReadFile loads traced sources for remapping. Nil reads from disk.
	ReadFile func(string) ([]byte, error)

	// ChunkSize is the read size handed to the parser.
	ChunkSize int

	// Passthrough receives every input line that is not trace syntax.
	Passthrough io.Writer

	Metrics *observability.CoverageMetrics
	Tracer  oteltrace.Tracer
	Logger  *slog.Logger
}

// Stats summarizes one ingestion.
type Stats struct {
	Bytes        int64
	Lines        int64
	Consumed     int64
	Scripts      int64
	Instructions int64
	Remap        remap.Stats
	Duration     time.Duration
}

// Result is the outcome of Run.
type Result struct {
	Model *coverage.Model

	// NoData is set when the stream held no script sections at all.
	NoData bool

	Stats Stats
}

// Run reads r to EOF and returns the populated coverage model. Completed
// scripts are folded into the model as soon as the parser emits them.
func Run(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	start := time.Now()

	var (
		remapper   *remap.Remapper
		parserOpts []trace.Option
	)

	if opts.Remap {
		var remapOpts []remap.Option
		if opts.ReadFile != nil {
			remapOpts = append(remapOpts, remap.WithReadFile(opts.ReadFile))
		}

		remapper = remap.New(remapOpts...)
		parserOpts = append(parserOpts, trace.WithRemapper(remapper))
	}

	parser := trace.NewParser(parserOpts...)
	model := coverage.NewModel()

	var passthrough *bufio.Writer
	if opts.Passthrough != nil {
		passthrough = bufio.NewWriter(opts.Passthrough)
	}

	result := &Result{Model: model}

	onResult := func(res trace.Result) error {
		for _, script := range res.Scripts {
			model.AddScript(script)
		}

		if res.NoData {
			result.NoData = true
		}

		if passthrough == nil {
			return nil
		}

		for _, line := range res.Lines {
			if line.Consumed {
				continue
			}

			_, err := passthrough.WriteString(line.Text + "\n")
			if err != nil {
				return fmt.Errorf("write passthrough: %w", err)
			}
		}

		return nil
	}

	n, err := trace.Scan(ctx, r, parser, trace.ScanOptions{
		ChunkSize: opts.ChunkSize,
		OnResult:  onResult,
	})
	if passthrough != nil {
		flushErr := passthrough.Flush()
		if err == nil && flushErr != nil {
			err = fmt.Errorf("flush passthrough: %w", flushErr)
		}
	}

	result.Stats = collectStats(parser, remapper, n, time.Since(start))

	opts.Metrics.RecordRun(ctx, observability.IngestStats{
		Bytes:             result.Stats.Bytes,
		Lines:             result.Stats.Lines,
		Consumed:          result.Stats.Consumed,
		Scripts:           result.Stats.Scripts,
		Instructions:      result.Stats.Instructions,
		Duration:          result.Stats.Duration,
		RemapMemoHits:     result.Stats.Remap.MemoHits,
		RemapLookups:      result.Stats.Remap.Lookups,
		RemapFilesScanned: result.Stats.Remap.FilesScanned,
	})

	span.SetAttributes(
		attribute.Int64("trace.bytes", result.Stats.Bytes),
		attribute.Int64("trace.lines", result.Stats.Lines),
		attribute.Int64("trace.scripts", result.Stats.Scripts),
		attribute.Int("coverage.files", model.Len()),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("ingest trace: %w", err)
	}

	if opts.Logger != nil {
		opts.Logger.DebugContext(ctx, "trace ingested",
			slog.Int64("bytes", result.Stats.Bytes),
			slog.Int64("lines", result.Stats.Lines),
			slog.Int64("scripts", result.Stats.Scripts),
			slog.Int64("instructions", result.Stats.Instructions),
			slog.Int("files", model.Len()),
			slog.Duration("duration", result.Stats.Duration),
		)
	}

	return result, nil
}

func collectStats(parser *trace.Parser, remapper *remap.Remapper, n int64, elapsed time.Duration) Stats {
	ps := parser.Stats()

	stats := Stats{
		Bytes:        n,
		Lines:        ps.Lines,
		Consumed:     ps.Consumed,
		Scripts:      ps.Scripts,
		Instructions: ps.Instructions,
		Duration:     elapsed,
	}

	if remapper != nil {
		stats.Remap = remapper.Stats()
	}

	return stats
}
