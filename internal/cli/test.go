package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run generation scenarios",
		Long: `Run every scenario file (*.yaml, *.yml) in a directory through the
harness. Each scenario generates a spec, checks its assertions against the
artifacts and verifies that a second generation reproduces the first.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  bindgen test ./scenarios
  bindgen test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
		msg := fmt.Sprintf("scenarios directory not found: %s", scenariosDir)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	h := harness.New(harness.WithLogger(opts.Logger(cmd.ErrOrStderr())))
	result, err := h.RunSuite(ctx, scenariosDir)
	if err != nil {
		_ = formatter.Error(ErrCodeScanError, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if result.Total == 0 {
		return formatter.Success(result, "No scenarios found.")
	}

	var lines []string
	for _, f := range result.Failures {
		name := f.Scenario
		if name == "" {
			name = f.Path
		}
		lines = append(lines, fmt.Sprintf("✗ %s", name))
		for _, e := range f.Errors {
			lines = append(lines, "  "+e)
		}
	}
	lines = append(lines, "", fmt.Sprintf("Test Summary: %d passed, %d failed, %d total", result.Passed, result.Failed, result.Total))

	if result.OK() {
		lines = append(lines, "✓ All scenarios passed")
		return formatter.Success(result, lines...)
	}

	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := formatter.Failure("TEST_FAILED", msg, result, lines...); err != nil {
		return err
	}
	// Test failures = exit code 1
	return NewExitError(ExitFailure, msg)
}
