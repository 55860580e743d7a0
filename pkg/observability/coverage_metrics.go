package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricTraceLinesTotal   = "tracecov.trace.lines.total"
	metricTraceBytesTotal   = "tracecov.trace.bytes.total"
	metricScriptsTotal      = "tracecov.trace.scripts.total"
	metricInstructionsTotal = "tracecov.trace.instructions.total"
	metricIngestDuration    = "tracecov.ingest.duration.seconds"
	metricRemapHitsTotal    = "tracecov.remap.cache.hits.total"
	metricRemapMissesTotal  = "tracecov.remap.cache.misses.total"

	attrConsumed = "consumed"
	attrCache    = "cache"
)

// CoverageMetrics holds OTel instruments for trace ingestion.
type CoverageMetrics struct {
	lines        metric.Int64Counter
	bytes        metric.Int64Counter
	scripts      metric.Int64Counter
	instructions metric.Int64Counter
	duration     metric.Float64Histogram
	remapHits    metric.Int64Counter
	remapMisses  metric.Int64Counter
}

// IngestStats are the counters of one ingestion run, decoupled from the
// parser and remapper types.
type IngestStats struct {
	Bytes        int64
	Lines        int64
	Consumed     int64
	Scripts      int64
	Instructions int64
	Duration     time.Duration

	// RemapMemoHits are queries answered by the last-query memo.
	RemapMemoHits int64
	// RemapLookups are queries that scanned a directive table.
	RemapLookups int64
	// RemapFilesScanned are directive tables built from disk.
	RemapFilesScanned int64
}

// NewCoverageMetrics creates ingestion instruments from the given meter.
func NewCoverageMetrics(mt metric.Meter) (*CoverageMetrics, error) {
	lines, err := mt.Int64Counter(metricTraceLinesTotal,
		metric.WithDescription("Trace input lines by whether they were trace syntax"),
		metric.WithUnit("{line}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTraceLinesTotal, err)
	}

	bytesRead, err := mt.Int64Counter(metricTraceBytesTotal,
		metric.WithDescription("Trace bytes read"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTraceBytesTotal, err)
	}

	scripts, err := mt.Int64Counter(metricScriptsTotal,
		metric.WithDescription("Completed script sections"),
		metric.WithUnit("{script}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScriptsTotal, err)
	}

	instructions, err := mt.Int64Counter(metricInstructionsTotal,
		metric.WithDescription("Instruction records parsed"),
		metric.WithUnit("{instruction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInstructionsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricIngestDuration,
		metric.WithDescription("Trace ingestion duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricIngestDuration, err)
	}

	hits, err := mt.Int64Counter(metricRemapHitsTotal,
		metric.WithDescription("Remap queries served from cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRemapHitsTotal, err)
	}

	misses, err := mt.Int64Counter(metricRemapMissesTotal,
		metric.WithDescription("Remap queries that needed more work"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRemapMissesTotal, err)
	}

	return &CoverageMetrics{
		lines:        lines,
		bytes:        bytesRead,
		scripts:      scripts,
		instructions: instructions,
		duration:     duration,
		remapHits:    hits,
		remapMisses:  misses,
	}, nil
}

// RecordRun records the statistics of a completed ingestion.
// Safe to call on a nil receiver (no-op).
func (cm *CoverageMetrics) RecordRun(ctx context.Context, stats IngestStats) {
	if cm == nil {
		return
	}

	cm.bytes.Add(ctx, stats.Bytes)
	cm.lines.Add(ctx, stats.Consumed, metric.WithAttributes(attribute.Bool(attrConsumed, true)))
	cm.lines.Add(ctx, stats.Lines-stats.Consumed, metric.WithAttributes(attribute.Bool(attrConsumed, false)))
	cm.scripts.Add(ctx, stats.Scripts)
	cm.instructions.Add(ctx, stats.Instructions)
	cm.duration.Record(ctx, stats.Duration.Seconds())

	// The memo is the hit path; a directive lookup is served from the
	// per-file table, and only a file scan goes to disk.
	memoAttrs := metric.WithAttributes(attribute.String(attrCache, "memo"))
	cm.remapHits.Add(ctx, stats.RemapMemoHits, memoAttrs)
	cm.remapMisses.Add(ctx, stats.RemapLookups, memoAttrs)

	tableAttrs := metric.WithAttributes(attribute.String(attrCache, "directives"))
	cm.remapHits.Add(ctx, stats.RemapLookups-stats.RemapFilesScanned, tableAttrs)
	cm.remapMisses.Add(ctx, stats.RemapFilesScanned, tableAttrs)
}
