package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/matchstick/internal/harness"
)

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run every scenario YAML file under a directory.

Each scenario evaluates a list of subjects against its rulebook in a
fresh in-memory database with deterministic tokens and sequence numbers,
then checks expected actions and trace assertions.

Examples:
  matchstick test ./scenarios
  matchstick test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runTest(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		_ = formatter.Error("E301", fmt.Sprintf("scenarios directory not found: %s", dir), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	suite, err := harness.RunSuite(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	if suite.TotalScenarios == 0 {
		_ = formatter.Error("E302", fmt.Sprintf("no scenario files found under %s", dir), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenario files found under %s", dir))
	}

	if err := outputSuiteResult(formatter, suite); err != nil {
		return err
	}

	if !suite.Pass() {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d scenario(s) failed", suite.Failed, suite.TotalScenarios))
	}
	return nil
}

func outputSuiteResult(formatter *OutputFormatter, suite *harness.SuiteResult) error {
	if formatter.Format == "json" {
		return formatter.Success(suite)
	}

	if suite.Pass() {
		fmt.Fprintf(formatter.Writer, "✓ %d scenario(s) passed\n", suite.Passed)
		return nil
	}

	fmt.Fprintf(formatter.Writer, "✗ %d of %d scenario(s) failed\n\n", suite.Failed, suite.TotalScenarios)
	for _, failure := range suite.Failures {
		fmt.Fprintf(formatter.Writer, "  %s (%s)\n    %s\n", failure.Scenario, failure.Path, failure.Error)
	}
	return nil
}
