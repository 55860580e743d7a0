package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameReport   = "tracecov_report"
	ToolNameLine     = "tracecov_line"
	ToolNameValidate = "tracecov_validate"
)

// Input size limits.
const (
	// MaxTraceInputBytes caps a trace read by any tool, inline or from trace_path (16 MB).
	MaxTraceInputBytes = 16 << 20
)

// Sentinel errors for tool input validation.
var (
	// ErrNoTraceInput indicates neither trace_path nor trace was given.
	ErrNoTraceInput = errors.New("one of trace_path or trace is required")
	// ErrBothTraceInputs indicates trace_path and trace were both given.
	ErrBothTraceInputs = errors.New("trace_path and trace are mutually exclusive")
	// ErrStdinTrace indicates trace_path named standard input, which carries the MCP session.
	ErrStdinTrace = errors.New("trace_path must name a file, not standard input")
	// ErrTraceTooLarge indicates the trace exceeds the size limit.
	ErrTraceTooLarge = errors.New("trace input exceeds maximum size")
	// ErrEmptyFile indicates the file parameter is empty.
	ErrEmptyFile = errors.New("file parameter is required and must not be empty")
	// ErrInvalidLine indicates a non-positive line number.
	ErrInvalidLine = errors.New("line must be a positive number")
	// ErrEmptyReport indicates the report parameter is empty.
	ErrEmptyReport = errors.New("report parameter is required and must not be empty")
)

// Input types (auto-generate JSON schemas via struct tags).

// ReportInput is the input schema for the tracecov_report tool.
type ReportInput struct {
	TracePath  string   `json:"trace_path,omitempty"  jsonschema:"path to a trace file, .lz4 files are decompressed"`
	Trace      string   `json:"trace,omitempty"       jsonschema:"inline trace text, used when trace_path is empty"`
	Remap      bool     `json:"remap,omitempty"       jsonschema:"translate coordinates through //@line directives in the traced sources"`
	Targets    []string `json:"targets,omitempty"     jsonschema:"files to report on, matched exactly or by base name (default: all)"`
	SkipVendor bool     `json:"skip_vendor,omitempty" jsonschema:"drop vendored paths such as node_modules"`
	Lines      bool     `json:"lines,omitempty"       jsonschema:"include the per-line verdict listing"`
}

// LineInput is the input schema for the tracecov_line tool.
type LineInput struct {
	TracePath string `json:"trace_path,omitempty" jsonschema:"path to a trace file, .lz4 files are decompressed"`
	Trace     string `json:"trace,omitempty"      jsonschema:"inline trace text, used when trace_path is empty"`
	Remap     bool   `json:"remap,omitempty"      jsonschema:"translate coordinates through //@line directives in the traced sources"`
	File      string `json:"file"                 jsonschema:"source file, matched exactly or by base name"`
	Line      int    `json:"line"                 jsonschema:"1-based line number"`
}

// traceSource is the trace selection shared by the trace-reading tools.
type traceSource struct {
	path   string
	inline string
	remap  bool
}

func (in ReportInput) source() traceSource {
	return traceSource{path: in.TracePath, inline: in.Trace, remap: in.Remap}
}

func (in LineInput) source() traceSource {
	return traceSource{path: in.TracePath, inline: in.Trace, remap: in.Remap}
}

// ValidateInput is the input schema for the tracecov_validate tool.
type ValidateInput struct {
	Report string `json:"report" jsonschema:"JSON report produced by tracecov report --format json"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validate checks that exactly one usable trace source was given.
func (src traceSource) validate() error {
	switch {
	case src.path == "" && src.inline == "":
		return ErrNoTraceInput
	case src.path != "" && src.inline != "":
		return ErrBothTraceInputs
	case src.path == "-":
		return ErrStdinTrace
	case len(src.inline) > MaxTraceInputBytes:
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTraceTooLarge, len(src.inline), MaxTraceInputBytes)
	}

	return nil
}
