package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/matchstick/internal/rules"
	"github.com/roach88/matchstick/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <rulebook.cue>",
		Short: "Verify the decision log is deterministic",
		Long: `Re-evaluate every subject in the decision log against the rulebook and
compare the resulting firings with what was logged.

A clean replay proves two things: the log was produced by a rulebook
with the same content hash, and evaluation is deterministic over the
logged subjects. Divergences point at a drifted rulebook or a tampered
log. Replay never writes to the database.

Examples:
  matchstick replay traffic.cue --db decisions.db
  matchstick replay traffic.cue --db decisions.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite decision log (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, rulebookPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	rb, err := rules.LoadFile(rulebookPath)
	if err != nil {
		_ = formatter.Error("E203", fmt.Sprintf("failed to load rulebook: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to load rulebook", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	report, err := rules.Replay(context.Background(), st, rb)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	if err := outputReplayReport(formatter, report); err != nil {
		return err
	}

	if !report.Clean() {
		return NewExitError(ExitFailure,
			fmt.Sprintf("replay diverged: %d divergence(s) across %d evaluation(s)",
				len(report.Divergences), report.Evaluations))
	}
	return nil
}

func outputReplayReport(formatter *OutputFormatter, report *rules.ReplayReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	if report.Clean() {
		fmt.Fprintf(formatter.Writer, "✓ replay clean: %d evaluation(s) reproduced exactly\n",
			report.Evaluations)
		return nil
	}

	fmt.Fprintf(formatter.Writer, "✗ replay diverged (%d/%d evaluations reproduced)\n\n",
		report.Matched, report.Evaluations)
	for _, div := range report.Divergences {
		fmt.Fprintf(formatter.Writer, "  %s\n", div.String())
	}
	return nil
}
