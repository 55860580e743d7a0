package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/tracecov/pkg/ingest"
	"github.com/Sumatoshi-tech/tracecov/pkg/observability"
	"github.com/Sumatoshi-tech/tracecov/pkg/report"
	tracefile "github.com/Sumatoshi-tech/tracecov/pkg/trace"
)

// msgNoData is returned instead of a report when a trace has no scripts.
const msgNoData = "trace contained no script sections; was the engine run with tracing enabled?"

// ReportOutput is the structured result of tracecov_report.
type ReportOutput struct {
	NoData  bool           `json:"no_data"`
	Message string         `json:"message,omitempty"`
	Report  report.Summary `json:"report"`
}

// InstructionOutput describes one instruction recorded for a line.
type InstructionOutput struct {
	Script      string `json:"script"`
	PC          int    `json:"pc"`
	Count       uint64 `json:"count"`
	Disasm      string `json:"disasm"`
	Unreachable bool   `json:"unreachable,omitempty"`
}

// LineOutput is the structured result of tracecov_line.
type LineOutput struct {
	File         string              `json:"file"`
	Line         int                 `json:"line"`
	Executable   bool                `json:"executable"`
	Verdict      string              `json:"verdict,omitempty"`
	Instructions []InstructionOutput `json:"instructions"`
}

// ValidateOutput is the structured result of tracecov_validate.
type ValidateOutput struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// reportTools carries the dependencies of the trace-reading tools.
type reportTools struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	coverage *observability.CoverageMetrics
	readFile func(string) ([]byte, error)
}

// handleReport processes tracecov_report tool calls.
func (rt reportTools) handleReport(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ReportInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	src := input.source()

	err := src.validate()
	if err != nil {
		return errorResult(err)
	}

	res, err := rt.ingest(ctx, src)
	if err != nil {
		return errorResult(err)
	}

	if res.NoData {
		return jsonResult(ReportOutput{NoData: true, Message: msgNoData, Report: report.Build(nil)})
	}

	files, warnings := report.SelectFiles(res.Model, input.Targets, report.SelectOptions{SkipVendor: input.SkipVendor})
	for _, warning := range warnings {
		rt.log().WarnContext(ctx, "target skipped", slog.String("error", warning.Error()))
	}

	summary := report.Build(files).WithWarnings(warnings)
	if !input.Lines {
		for i := range summary.Files {
			summary.Files[i].Lines = []report.LineEntry{}
		}
	}

	return jsonResult(ReportOutput{Report: summary})
}

// handleLine processes tracecov_line tool calls.
func (rt reportTools) handleLine(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input LineInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	src := input.source()

	err := src.validate()
	if err != nil {
		return errorResult(err)
	}

	if input.File == "" {
		return errorResult(ErrEmptyFile)
	}

	if input.Line <= 0 {
		return errorResult(fmt.Errorf("%w: %d", ErrInvalidLine, input.Line))
	}

	res, err := rt.ingest(ctx, src)
	if err != nil {
		return errorResult(err)
	}

	f, err := res.Model.Resolve(input.File)
	if err != nil {
		return errorResult(err)
	}

	out := LineOutput{File: f.Name(), Line: input.Line, Instructions: []InstructionOutput{}}

	if verdict, ok := f.Verdict(input.Line); ok {
		out.Executable = true
		out.Verdict = verdict.String()
	}

	for _, in := range f.Instructions(input.Line) {
		out.Instructions = append(out.Instructions, InstructionOutput{
			Script:      in.Script,
			PC:          in.PC,
			Count:       in.Count,
			Disasm:      in.Disasm,
			Unreachable: in.Unreachable,
		})
	}

	return jsonResult(out)
}

// handleValidate processes tracecov_validate tool calls.
func handleValidate(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input ValidateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if strings.TrimSpace(input.Report) == "" {
		return errorResult(ErrEmptyReport)
	}

	violations, err := report.ValidateJSON([]byte(input.Report))
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(ValidateOutput{Valid: len(violations) == 0, Violations: violations})
}

func (rt reportTools) ingest(ctx context.Context, src traceSource) (*ingest.Result, error) {
	var r io.ReadCloser

	if src.path != "" {
		file, err := tracefile.OpenInput(src.path)
		if err != nil {
			return nil, err
		}

		r = cappedReadCloser{
			Reader: &cappedReader{r: io.LimitReader(file, MaxTraceInputBytes+1), limit: MaxTraceInputBytes},
			closer: file,
		}
	} else {
		r = io.NopCloser(strings.NewReader(src.inline))
	}

	defer r.Close()

	res, err := ingest.Run(ctx, r, ingest.Options{
		Remap:    src.remap,
		ReadFile: rt.readFile,
		Metrics:  rt.coverage,
		Tracer:   rt.tracer,
		Logger:   rt.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	return res, nil
}

// cappedReader fails with ErrTraceTooLarge once more than limit bytes came
// through. Decompressed .lz4 input counts after decompression.
type cappedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)

	if c.read > c.limit {
		return 0, fmt.Errorf("%w: more than %d bytes (max %d)", ErrTraceTooLarge, c.limit, c.limit)
	}

	return n, err
}

type cappedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (c cappedReadCloser) Close() error {
	return c.closer.Close()
}

func (rt reportTools) log() *slog.Logger {
	if rt.logger != nil {
		return rt.logger
	}

	return slog.Default()
}
