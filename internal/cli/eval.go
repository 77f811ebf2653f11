package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/matchstick/internal/rules"
	"github.com/roach88/matchstick/internal/store"
	"github.com/roach88/matchstick/internal/value"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Subject     string
	SubjectFile string
	Database    string
}

// EvalResult is the output payload of one evaluation.
type EvalResult struct {
	Token         string         `json:"token"`
	Rulebook      string         `json:"rulebook"`
	RulebookHash  string         `json:"rulebook_hash"`
	Actions       []string       `json:"actions"`
	Firings       []rules.Firing `json:"firings"`
	FellBack      bool           `json:"fell_back"`
	NonExhaustive bool           `json:"non_exhaustive"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <rulebook.cue>",
		Short: "Evaluate a subject against a rulebook",
		Long: `Evaluate one subject against a rulebook's clause chain.

The subject is a JSON value, supplied inline or from a file. Clauses are
tried in declaration order; the first match wins, except range clauses,
which fire whenever their bounds are satisfied.

When --db is given, the decision is appended to the decision log with
sequence numbers resuming from the log's highest seq.

Examples:
  matchstick eval traffic.cue --subject '{"kind":"order","total":120}'
  matchstick eval traffic.cue --subject-file subject.json --db decisions.db
  matchstick eval traffic.cue --subject '5' --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "", "subject as inline JSON")
	cmd.Flags().StringVar(&opts.SubjectFile, "subject-file", "", "path to a JSON file holding the subject")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite decision log (optional)")

	return cmd
}

func runEval(opts *EvalOptions, rulebookPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	subjectJSON, err := readSubject(opts)
	if err != nil {
		_ = formatter.Error("E201", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid subject", err)
	}

	subject, err := value.Decode(subjectJSON)
	if err != nil {
		_ = formatter.Error("E202", fmt.Sprintf("subject is not valid JSON: %v", err), nil)
		return WrapExitError(ExitCommandError, "invalid subject", err)
	}

	rb, err := rules.LoadFile(rulebookPath)
	if err != nil {
		_ = formatter.Error("E203", fmt.Sprintf("failed to load rulebook: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to load rulebook", err)
	}
	if verrs := rules.Validate(rb); len(verrs) > 0 {
		return outputValidationErrors(formatter, verrs)
	}

	runnerOpts := []rules.RunnerOption{}
	ctx := context.Background()

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		// Resume seq assignment where the log left off
		maxSeq, err := st.MaxSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read database", err)
		}
		runnerOpts = append(runnerOpts,
			rules.WithStore(st),
			rules.WithSequencer(rules.NewClockAt(maxSeq)))
	}

	runner, err := rules.NewRunner(rb, runnerOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile rulebook", err)
	}

	formatter.VerboseLog("Evaluating against rulebook %q (%s)", rb.Name, runner.RulebookHash())

	outcome, err := runner.Evaluate(ctx, subject)
	if err != nil {
		return WrapExitError(ExitCommandError, "evaluation failed", err)
	}

	result := EvalResult{
		Token:         outcome.Token,
		Rulebook:      rb.Name,
		RulebookHash:  outcome.RulebookHash,
		Actions:       outcome.Actions(),
		Firings:       outcome.Firings,
		FellBack:      outcome.FellBack,
		NonExhaustive: outcome.NonExhaustive,
	}

	if err := outputEvalResult(formatter, result); err != nil {
		return err
	}

	// An unmatched subject under an exhaustive rulebook is a verdict
	// failure, mirroring the engine's NON_EXHAUSTIVE_MATCH error.
	if outcome.NonExhaustive {
		return NewExitError(ExitFailure, "no clause matched an exhaustive rulebook")
	}
	return nil
}

// readSubject resolves the subject JSON from flags.
// Exactly one of --subject and --subject-file must be set.
func readSubject(opts *EvalOptions) ([]byte, error) {
	switch {
	case opts.Subject != "" && opts.SubjectFile != "":
		return nil, fmt.Errorf("--subject and --subject-file are mutually exclusive")
	case opts.Subject != "":
		return []byte(opts.Subject), nil
	case opts.SubjectFile != "":
		data, err := os.ReadFile(opts.SubjectFile)
		if err != nil {
			return nil, fmt.Errorf("read subject file: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("one of --subject or --subject-file is required")
	}
}

func outputEvalResult(formatter *OutputFormatter, result EvalResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "token: %s\n", result.Token)
	fmt.Fprintf(formatter.Writer, "rulebook: %s (%s)\n", result.Rulebook, result.RulebookHash[:12])
	if len(result.Firings) == 0 {
		fmt.Fprintln(formatter.Writer, "firings: none")
	} else {
		fmt.Fprintln(formatter.Writer, "firings:")
		for _, f := range result.Firings {
			clause := fmt.Sprintf("clause %d", f.ClauseIndex)
			if f.ClauseIndex < 0 {
				clause = "fallback"
			}
			fmt.Fprintf(formatter.Writer, "  [seq %d] %s %s -> %s\n", f.Seq, clause, f.Kind, f.Action)
		}
	}
	if result.NonExhaustive {
		fmt.Fprintln(formatter.Writer, "✗ non-exhaustive: no clause matched")
	}
	return nil
}
