package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Report output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatHTML = "html"
)

// Formats lists every accepted report format.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatHTML}

const maxThreshold = 100

// Sentinel validation errors.
var (
	ErrInvalidFormat    = errors.New("invalid report format")
	ErrInvalidChunkSize = errors.New("trace chunk size must be positive")
	ErrInvalidThreshold = errors.New("fail-under threshold must be within [0, 100]")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrEmptyServeAddr   = errors.New("serve address must not be empty")
	ErrInvalidSampling  = errors.New("telemetry sample ratio must be within [0, 1]")
)

// Config holds all tracecov settings.
type Config struct {
	Trace     TraceConfig     `mapstructure:"trace"`
	Report    ReportConfig    `mapstructure:"report"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Serve     ServeConfig     `mapstructure:"serve"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// TraceConfig controls how trace input is read.
type TraceConfig struct {
	// Remap applies //@line directives found in the traced source files.
	Remap bool `mapstructure:"remap"`
	// ChunkSize is the read size used when feeding the parser.
	ChunkSize int `mapstructure:"chunk_size"`
}

// ReportConfig controls report rendering and gating.
type ReportConfig struct {
	Format     string   `mapstructure:"format"`
	Targets    []string `mapstructure:"targets"`
	FailUnder  float64  `mapstructure:"fail_under"`
	Lines      bool     `mapstructure:"lines"`
	SkipVendor bool     `mapstructure:"skip_vendor"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ServeConfig holds settings for the HTTP report server.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// TelemetryConfig configures OTLP export of the tool's own spans and metrics.
// Endpoint, Headers and Insecure fall back to the standard
// OTEL_EXPORTER_OTLP_* variables.
type TelemetryConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	// Headers is a "key=value,key=value" list sent as gRPC metadata.
	Headers     string  `mapstructure:"headers"`
	Insecure    bool    `mapstructure:"insecure"`
	Environment string  `mapstructure:"environment"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Validate checks the configuration for values no command can run with.
func (c *Config) Validate() error {
	if c.Trace.ChunkSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, c.Trace.ChunkSize)
	}

	if !slices.Contains(Formats, c.Report.Format) {
		return fmt.Errorf("%w: %q (want one of %s)", ErrInvalidFormat, c.Report.Format, strings.Join(Formats, ", "))
	}

	if c.Report.FailUnder < 0 || c.Report.FailUnder > maxThreshold {
		return fmt.Errorf("%w: %g", ErrInvalidThreshold, c.Report.FailUnder)
	}

	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}

	if c.Serve.Addr == "" {
		return ErrEmptyServeAddr
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampling, c.Telemetry.SampleRatio)
	}

	return nil
}

// ParseLogLevel maps a level name (debug, info, warn, error) to a slog level.
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(name))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}

	return level, nil
}
