// Package commands implements the tracecov CLI subcommands.
package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tracecov/pkg/config"
	"github.com/Sumatoshi-tech/tracecov/pkg/observability"
	"github.com/Sumatoshi-tech/tracecov/pkg/version"
)

const (
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
	flagConfig  = "config"
)

// RegisterGlobalFlags adds the persistent flags every subcommand reads.
func RegisterGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().BoolP(flagVerbose, "v", false, "verbose output")
	root.PersistentFlags().BoolP(flagQuiet, "q", false, "suppress output")
	root.PersistentFlags().String(flagConfig, "", "config file (default .tracecov.yaml in the working or home directory)")
}

func boolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}

	return value
}

func isSilent(cmd *cobra.Command) bool {
	return boolFlag(cmd, flagQuiet)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		path = ""
	}

	return config.LoadConfig(path)
}

// observabilityConfig maps the loaded tracecov settings onto the
// observability layer. Logs go to the command's stderr.
func observabilityConfig(cmd *cobra.Command, cfg *config.Config, mode observability.AppMode) (observability.Config, error) {
	level, err := config.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		return observability.Config{}, err
	}

	ocfg := observability.DefaultConfig()
	ocfg.Identity.Version = version.Version
	ocfg.Identity.Environment = cfg.Telemetry.Environment
	ocfg.Identity.Mode = mode
	ocfg.Export = observability.Export{
		Endpoint: cfg.Telemetry.Endpoint,
		Headers:  observability.ParseHeaders(cfg.Telemetry.Headers),
		Insecure: cfg.Telemetry.Insecure,
	}
	ocfg.SampleRatio = cfg.Telemetry.SampleRatio
	ocfg.LogJSON = cfg.Logging.JSON
	ocfg.LogOutput = cmd.ErrOrStderr()
	ocfg.LogLevel = level

	switch {
	case isSilent(cmd):
		ocfg.LogLevel = slog.LevelError
	case boolFlag(cmd, flagVerbose):
		ocfg.LogLevel = slog.LevelDebug
		ocfg.DebugTrace = true
	}

	return ocfg, nil
}

func initObservability(cmd *cobra.Command, cfg *config.Config, mode observability.AppMode) (observability.Providers, error) {
	ocfg, err := observabilityConfig(cmd, cfg, mode)
	if err != nil {
		return observability.Providers{}, err
	}

	return observability.Init(ocfg)
}

func shutdownObservability(providers observability.Providers) {
	shutdownErr := providers.Shutdown(context.Background())
	if shutdownErr != nil {
		providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}
