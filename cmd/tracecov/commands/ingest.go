package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tracecov/pkg/config"
	"github.com/Sumatoshi-tech/tracecov/pkg/ingest"
	"github.com/Sumatoshi-tech/tracecov/pkg/observability"
	"github.com/Sumatoshi-tech/tracecov/pkg/report"
	"github.com/Sumatoshi-tech/tracecov/pkg/trace"
)

const stdinArg = "-"

// noDataGuidance is printed when the input held no script sections.
const noDataGuidance = `tracecov: no coverage data found in the input.
Run the script engine with its bytecode trace enabled (for example a debug
build started with the tracing option) and pipe its output into tracecov.`

// errNoData reports an input without any script section. Commands treat it
// as a successful run with nothing to classify.
var errNoData = errors.New("no coverage data")

// traceFlags are the ingestion and selection flags shared by report and serve.
type traceFlags struct {
	remap      bool
	targets    []string
	skipVendor bool
	chunkSize  int
}

func (tf *traceFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&tf.remap, "remap", config.DefaultTraceRemap,
		"translate coordinates through //@line directives in the traced sources")
	cmd.Flags().StringArrayVar(&tf.targets, "target", nil,
		"report only this file (repeatable; basenames match when unambiguous)")
	cmd.Flags().BoolVar(&tf.skipVendor, "skip-vendor", config.DefaultReportSkipVendor,
		"exclude vendored and third-party files")
	cmd.Flags().IntVar(&tf.chunkSize, "chunk-size", config.DefaultTraceChunkSize,
		"read size in bytes for streaming the trace")
}

// apply overlays explicitly set flags on the loaded configuration.
func (tf *traceFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("remap") {
		cfg.Trace.Remap = tf.remap
	}

	if cmd.Flags().Changed("target") {
		cfg.Report.Targets = tf.targets
	}

	if cmd.Flags().Changed("skip-vendor") {
		cfg.Report.SkipVendor = tf.skipVendor
	}

	if cmd.Flags().Changed("chunk-size") {
		cfg.Trace.ChunkSize = tf.chunkSize
	}
}

// ingestRequest carries one ingestion plus selection run.
type ingestRequest struct {
	path        string
	cfg         *config.Config
	providers   observability.Providers
	metrics     *observability.CoverageMetrics
	passthrough io.Writer
}

func openTrace(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == stdinArg {
		return io.NopCloser(cmd.InOrStdin()), nil
	}

	return trace.OpenInput(path)
}

// summarize ingests the trace and builds the report summary for the
// configured targets. It returns errNoData for an input without scripts.
func summarize(ctx context.Context, cmd *cobra.Command, req ingestRequest) (report.Summary, error) {
	input, err := openTrace(cmd, req.path)
	if err != nil {
		return report.Summary{}, err
	}
	defer input.Close()

	res, err := ingest.Run(ctx, input, ingest.Options{
		Remap:       req.cfg.Trace.Remap,
		ChunkSize:   req.cfg.Trace.ChunkSize,
		Passthrough: req.passthrough,
		Metrics:     req.metrics,
		Tracer:      req.providers.Tracer,
		Logger:      req.providers.Logger,
	})
	if err != nil {
		return report.Summary{}, err
	}

	if res.NoData {
		return report.Summary{}, errNoData
	}

	files, warnings := report.SelectFiles(res.Model, req.cfg.Report.Targets,
		report.SelectOptions{SkipVendor: req.cfg.Report.SkipVendor})

	for _, w := range warnings {
		req.providers.Logger.DebugContext(ctx, "target skipped", "error", w)
	}

	return report.Build(files).WithWarnings(warnings), nil
}

func reportNoData(cmd *cobra.Command) {
	if !isSilent(cmd) {
		fmt.Fprintln(cmd.ErrOrStderr(), noDataGuidance)
	}
}
