// Package config loads tracecov settings from .tracecov.yaml, TRACECOV_*
// environment variables and built-in defaults.
package config

// Trace ingestion defaults.
const (
	DefaultTraceRemap     = false
	DefaultTraceChunkSize = 32 << 10 // 32 KiB.
)

// Report defaults.
const (
	DefaultReportFormat     = FormatText
	DefaultReportLines      = false
	DefaultReportSkipVendor = false
	DefaultReportFailUnder  = 0.0
)

// Logging defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
)

// Serve defaults.
const (
	DefaultServeAddr = "127.0.0.1:8080"
)

// Telemetry defaults. An empty endpoint keeps tracing and metrics export off.
const (
	DefaultTelemetryEndpoint    = ""
	DefaultTelemetryHeaders     = ""
	DefaultTelemetryInsecure    = false
	DefaultTelemetryEnvironment = ""
	DefaultTelemetrySampleRatio = 1.0
)
