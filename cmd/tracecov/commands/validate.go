package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tracecov/pkg/report"
)

// ErrInvalidReport is returned when a report does not match the schema.
var ErrInvalidReport = errors.New("report does not match schema")

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a JSON coverage report against the report schema",
		Long: `Validate a JSON report produced by "tracecov report --format json"
against the embedded report schema.

Examples:
  tracecov validate cov.json
  tracecov report --format json trace.txt | tracecov validate -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], noColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func runValidate(cmd *cobra.Command, inputPath string, noColor bool) error {
	data, label, err := readReportInput(cmd, inputPath)
	if err != nil {
		return err
	}

	violations, err := report.ValidateJSON(data)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}

	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	if noColor {
		green.DisableColor()
		red.DisableColor()
	}

	if len(violations) == 0 {
		if !isSilent(cmd) {
			green.Fprintf(out, "report is valid (%s)\n", label)
		}

		return nil
	}

	red.Fprintf(out, "report validation failed (%s)\n", label)
	fmt.Fprintf(out, "\nErrors:\n")

	for _, v := range violations {
		red.Fprintf(out, "  - %s\n", v)
	}

	return fmt.Errorf("%w: %d violation(s)", ErrInvalidReport, len(violations))
}

func readReportInput(cmd *cobra.Command, inputPath string) ([]byte, string, error) {
	if inputPath == stdinArg {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, "", fmt.Errorf("read report: %w", err)
	}

	return data, inputPath, nil
}
