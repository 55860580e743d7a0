package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const sampleTrace = `harness: start
--- SCRIPT a.js:1 ---
00000:   5 [   3]  getname "x"
00002:   5 [   0]  call 0
00004:   6 [   0]  pop ; unreachable
console: hello
--- SCRIPT a.js:20 ---
00000:  21 [   1]  retrval
harness: done
`

type runResult struct {
	stdout string
	stderr string
	err    error
}

func newTestRoot() *cobra.Command {
	root := &cobra.Command{Use: "tracecov", SilenceUsage: true, SilenceErrors: true}
	RegisterGlobalFlags(root)

	root.AddCommand(NewReportCommand())
	root.AddCommand(NewValidateCommand())
	root.AddCommand(NewServeCommand())
	root.AddCommand(NewMCPCommand())

	return root
}

// execute runs the CLI with an empty config file so no user config leaks in.
func execute(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()

	return executeWithConfig(t, "", stdin, args...)
}

func executeWithConfig(t *testing.T, configYAML, stdin string, args ...string) runResult {
	t.Helper()

	cfgPath := writeFile(t, t.TempDir(), ".tracecov.yaml", configYAML)

	var stdout, stderr bytes.Buffer

	root := newTestRoot()
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--config", cfgPath))

	err := root.ExecuteContext(context.Background())

	return runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}
