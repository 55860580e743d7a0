package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tracecov/pkg/config"
	"github.com/Sumatoshi-tech/tracecov/pkg/mcp"
	"github.com/Sumatoshi-tech/tracecov/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes tracecov as tools that AI agents can discover and invoke:
  - tracecov_report: Line coverage report from a bytecode trace
  - tracecov_line: Verdict and instructions of one source line
  - tracecov_validate: Check a JSON report against the report schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cobraCmd)
			if err != nil {
				return err
			}

			providers, err := initMCPObservability(cobraCmd, cfg, debug)
			if err != nil {
				return err
			}
			defer shutdownObservability(providers)

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			coverageMetrics, err := observability.NewCoverageMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:   providers.Logger,
				Metrics:  red,
				Tracer:   providers.Tracer,
				Coverage: coverageMetrics,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}

// initMCPObservability always logs JSON since stdout carries the protocol
// and stderr is read by the agent host.
func initMCPObservability(cmd *cobra.Command, cfg *config.Config, debug bool) (observability.Providers, error) {
	ocfg, err := observabilityConfig(cmd, cfg, observability.ModeMCP)
	if err != nil {
		return observability.Providers{}, err
	}

	ocfg.LogJSON = true

	if debug {
		ocfg.LogLevel = slog.LevelDebug
		ocfg.DebugTrace = true
	}

	return observability.Init(ocfg)
}
