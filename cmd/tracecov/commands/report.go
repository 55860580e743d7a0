package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tracecov/pkg/config"
	"github.com/Sumatoshi-tech/tracecov/pkg/observability"
	"github.com/Sumatoshi-tech/tracecov/pkg/report"
)

// ErrBelowThreshold is returned when overall coverage is under --fail-under.
var ErrBelowThreshold = errors.New("coverage below threshold")

// ReportCommand holds the flags of the report command.
type ReportCommand struct {
	trace       traceFlags
	format      string
	output      string
	lines       bool
	passthrough bool
	failUnder   float64
	noColor     bool
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	rc := &ReportCommand{}

	cmd := &cobra.Command{
		Use:   "report [trace-file|-]",
		Short: "Classify source lines from an engine bytecode trace",
		Long: `Read a bytecode execution trace and report, per source file, which
executable lines ran fully, partially, not at all, or are unreachable.

The trace is read from the given file or from standard input. Files ending
in .lz4 are decompressed on the fly.

Examples:
  tracecov report trace.txt
  myengine -trace script.js | tracecov report --passthrough --lines
  tracecov report --remap --target app.js --format json -o cov.json trace.txt.lz4`,
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}

	rc.trace.register(cmd)
	cmd.Flags().StringVar(&rc.format, "format", config.DefaultReportFormat, "output format: text, json, yaml, html")
	cmd.Flags().StringVarP(&rc.output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&rc.lines, "lines", config.DefaultReportLines, "list every executable line with its verdict")
	cmd.Flags().BoolVar(&rc.passthrough, "passthrough", false, "echo non-trace input lines to stdout")
	cmd.Flags().Float64Var(&rc.failUnder, "fail-under", config.DefaultReportFailUnder,
		"fail when overall line hit percentage is below this value")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "disable colored output")

	return cmd
}

func (rc *ReportCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rc.apply(cmd, cfg)

	err = cfg.Validate()
	if err != nil {
		return err
	}

	providers, err := initObservability(cmd, cfg, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer shutdownObservability(providers)

	metrics, err := observability.NewCoverageMetrics(providers.Meter)
	if err != nil {
		return err
	}

	path := stdinArg
	if len(args) > 0 {
		path = args[0]
	}

	req := ingestRequest{path: path, cfg: cfg, providers: providers, metrics: metrics}
	if rc.passthrough {
		req.passthrough = cmd.OutOrStdout()
	}

	summary, err := summarize(cmd.Context(), cmd, req)
	if errors.Is(err, errNoData) {
		reportNoData(cmd)

		return nil
	}

	if err != nil {
		return err
	}

	err = rc.write(cmd, cfg, summary)
	if err != nil {
		return err
	}

	if summary.Below(cfg.Report.FailUnder) {
		return fmt.Errorf("%w: %.1f%% < %.1f%%", ErrBelowThreshold, summary.Overall.Hit(), cfg.Report.FailUnder)
	}

	return nil
}

func (rc *ReportCommand) apply(cmd *cobra.Command, cfg *config.Config) {
	rc.trace.apply(cmd, cfg)

	if cmd.Flags().Changed("format") {
		cfg.Report.Format = rc.format
	}

	if cmd.Flags().Changed("lines") {
		cfg.Report.Lines = rc.lines
	}

	if cmd.Flags().Changed("fail-under") {
		cfg.Report.FailUnder = rc.failUnder
	}
}

func (rc *ReportCommand) write(cmd *cobra.Command, cfg *config.Config, summary report.Summary) (err error) {
	opts := report.Options{
		Text: report.TextOptions{
			Lines: cfg.Report.Lines,
			Color: rc.output == "" && !rc.noColor && !color.NoColor,
		},
	}

	var out io.Writer = cmd.OutOrStdout()

	if rc.output != "" {
		file, createErr := os.Create(rc.output)
		if createErr != nil {
			return fmt.Errorf("create output: %w", createErr)
		}

		defer func() {
			err = errors.Join(err, file.Close())
		}()

		out = file
	}

	return report.Write(out, cfg.Report.Format, summary, opts)
}
