// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for every tracecov mode (CLI, MCP, serve).
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is a one-shot report run.
	ModeCLI AppMode = "cli"
	// ModeMCP is the MCP stdio server.
	ModeMCP AppMode = "mcp"
	// ModeServe is the HTTP report server.
	ModeServe AppMode = "serve"
)

const defaultServiceName = "tracecov"

// Identity names the running process in resources and log records.
type Identity struct {
	Service     string
	Version     string
	Environment string
	Mode        AppMode
}

// Export points the OTLP gRPC exporters at a collector. An empty Endpoint
// keeps tracing and metrics on no-op providers.
type Export struct {
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

// Enabled reports whether a collector is configured.
func (e Export) Enabled() bool { return e.Endpoint != "" }

// Config holds all observability configuration.
type Config struct {
	Identity Identity
	Export   Export

	// DebugTrace samples every span regardless of SampleRatio.
	DebugTrace bool
	// SampleRatio is the fraction of root spans kept, in [0, 1].
	SampleRatio float64

	LogLevel slog.Level
	LogJSON  bool
	// LogOutput receives log records. Nil means standard error.
	LogOutput io.Writer
}

// DefaultConfig returns a Config for zero-config CLI startup.
func DefaultConfig() Config {
	return Config{
		Identity:    Identity{Service: defaultServiceName, Mode: ModeCLI},
		SampleRatio: 1,
		LogLevel:    slog.LevelInfo,
	}
}
