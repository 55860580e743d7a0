package commands

import (
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tracecov/pkg/config"
	"github.com/Sumatoshi-tech/tracecov/pkg/observability"
)

func parsedRoot(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	root := &cobra.Command{Use: "tracecov"}
	RegisterGlobalFlags(root)
	require.NoError(t, root.ParseFlags(args))

	return root
}

func TestObservabilityConfig_FromTelemetrySettings(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Logging.JSON = true
	cfg.Logging.Level = "warn"
	cfg.Telemetry = config.TelemetryConfig{
		Endpoint:    "collector:4317",
		Headers:     "authorization=Bearer x, team=qa",
		Insecure:    true,
		Environment: "staging",
		SampleRatio: 0.25,
	}

	ocfg, err := observabilityConfig(parsedRoot(t), cfg, observability.ModeServe)
	require.NoError(t, err)

	assert.Equal(t, "tracecov", ocfg.Identity.Service)
	assert.Equal(t, "staging", ocfg.Identity.Environment)
	assert.Equal(t, observability.ModeServe, ocfg.Identity.Mode)
	assert.Equal(t, observability.Export{
		Endpoint: "collector:4317",
		Headers:  map[string]string{"authorization": "Bearer x", "team": "qa"},
		Insecure: true,
	}, ocfg.Export)
	assert.InDelta(t, 0.25, ocfg.SampleRatio, 1e-9)
	assert.False(t, ocfg.DebugTrace)
	assert.True(t, ocfg.LogJSON)
	assert.Equal(t, slog.LevelWarn, ocfg.LogLevel)
}

func TestObservabilityConfig_FlagOverrides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		args      []string
		wantLevel slog.Level
		wantDebug bool
	}{
		{"none", nil, slog.LevelInfo, false},
		{"verbose", []string{"--verbose"}, slog.LevelDebug, true},
		{"quiet", []string{"--quiet"}, slog.LevelError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ocfg, err := observabilityConfig(parsedRoot(t, tt.args...), config.Default(), observability.ModeCLI)
			require.NoError(t, err)

			assert.Equal(t, tt.wantLevel, ocfg.LogLevel)
			assert.Equal(t, tt.wantDebug, ocfg.DebugTrace)
			assert.False(t, ocfg.Export.Enabled())
		})
	}
}

func TestReportCommand_LogsCarryTelemetryEnvironment(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "trace.txt", sampleTrace)

	res := executeWithConfig(t, "logging:\n  json: true\ntelemetry:\n  environment: staging\n", "",
		"report", path, "--verbose")
	require.NoError(t, res.err)

	assert.Contains(t, res.stderr, `"env":"staging"`)
	assert.Contains(t, res.stderr, `"mode":"cli"`)
}

func TestMCPCommand_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	res := executeWithConfig(t, "telemetry:\n  sample_ratio: 2\n", "", "mcp")
	require.ErrorIs(t, res.err, config.ErrInvalidSampling)
}
