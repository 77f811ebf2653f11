package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/matchstick/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Token    string // optional - specific evaluation only
	Action   string // optional - filter firings by action
}

// EvaluationView is one decision-log entry in trace output.
type EvaluationView struct {
	Token         string   `json:"token"`
	Subject       string   `json:"subject"`
	SubjectHash   string   `json:"subject_hash"`
	RulebookHash  string   `json:"rulebook_hash"`
	Seq           int64    `json:"seq"`
	FellBack      bool     `json:"fell_back"`
	NonExhaustive bool     `json:"non_exhaustive"`
	Actions       []string `json:"actions"`
}

// FiringView is one firing in trace output.
type FiringView struct {
	Token       string `json:"token"`
	Seq         int64  `json:"seq"`
	ClauseIndex int    `json:"clause_index"`
	Kind        string `json:"kind"`
	Action      string `json:"action"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Evaluations   int `json:"evaluations"`
	Firings       int `json:"firings"`
	FellBack      int `json:"fell_back"`
	NonExhaustive int `json:"non_exhaustive"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Evaluations []EvaluationView `json:"evaluations"`
	Stats       TraceStats       `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query the decision log",
		Long: `Query the decision log: which subjects were evaluated, which clauses
fired, and in what order.

Without flags beyond --db, lists every evaluation in seq order. Use
--token to inspect one evaluation, or --action to find every decision
where a given action fired.

Examples:
  matchstick trace --db decisions.db
  matchstick trace --db decisions.db --token 0190cafe-...
  matchstick trace --db decisions.db --action expedite --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite decision log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Token, "token", "", "show a single evaluation by token")
	cmd.Flags().StringVar(&opts.Action, "action", "", "only evaluations where this action fired")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	evals, err := collectEvaluations(ctx, st, opts)
	if err != nil {
		return err
	}

	firingsByToken, err := collectFirings(ctx, st, opts)
	if err != nil {
		return err
	}

	result := TraceResult{Evaluations: []EvaluationView{}}
	for _, eval := range evals {
		firings := firingsByToken[eval.Token]

		view := EvaluationView{
			Token:         eval.Token,
			Subject:       eval.Subject,
			SubjectHash:   eval.SubjectHash,
			RulebookHash:  eval.RulebookHash,
			Seq:           eval.Seq,
			FellBack:      eval.FellBack,
			NonExhaustive: eval.NonExhaustive,
			Actions:       make([]string, 0, len(firings)),
		}
		for _, f := range firings {
			view.Actions = append(view.Actions, f.Action)
		}
		result.Evaluations = append(result.Evaluations, view)

		result.Stats.Firings += len(firings)
		if eval.FellBack {
			result.Stats.FellBack++
		}
		if eval.NonExhaustive {
			result.Stats.NonExhaustive++
		}
	}
	result.Stats.Evaluations = len(result.Evaluations)

	return outputTraceResult(formatter, result)
}

// collectFirings groups the relevant firings by token. Listing the whole
// log walks the firings table once instead of querying per evaluation.
func collectFirings(ctx context.Context, st *store.Store, opts *TraceOptions) (map[string][]store.Firing, error) {
	if opts.Token != "" {
		firings, err := st.ReadFirings(ctx, opts.Token)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read firings", err)
		}
		return map[string][]store.Firing{opts.Token: firings}, nil
	}

	all, err := st.ReadAllFirings(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read firings", err)
	}
	byToken := make(map[string][]store.Firing)
	for _, f := range all {
		byToken[f.Token] = append(byToken[f.Token], f)
	}
	return byToken, nil
}

// collectEvaluations resolves the evaluation set from flags.
func collectEvaluations(ctx context.Context, st *store.Store, opts *TraceOptions) ([]store.Evaluation, error) {
	if opts.Token != "" {
		eval, err := st.ReadEvaluation(ctx, opts.Token)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read evaluation", err)
		}
		if eval == nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("no evaluation with token %q", opts.Token))
		}
		return []store.Evaluation{*eval}, nil
	}

	evals, err := st.ReadEvaluations(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read evaluations", err)
	}

	if opts.Action == "" {
		return evals, nil
	}

	// Keep only evaluations where the action fired
	firings, err := st.ReadFiringsByAction(ctx, opts.Action)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read firings", err)
	}
	tokens := make(map[string]bool, len(firings))
	for _, f := range firings {
		tokens[f.Token] = true
	}

	filtered := evals[:0]
	for _, eval := range evals {
		if tokens[eval.Token] {
			filtered = append(filtered, eval)
		}
	}
	return filtered, nil
}

func outputTraceResult(formatter *OutputFormatter, result TraceResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if len(result.Evaluations) == 0 {
		fmt.Fprintln(formatter.Writer, "no evaluations found")
		return nil
	}

	for _, eval := range result.Evaluations {
		flags := ""
		if eval.FellBack {
			flags += " [fallback]"
		}
		if eval.NonExhaustive {
			flags += " [non-exhaustive]"
		}
		fmt.Fprintf(formatter.Writer, "[seq %d] %s  %s -> %v%s\n",
			eval.Seq, eval.Token, eval.Subject, eval.Actions, flags)
	}

	fmt.Fprintf(formatter.Writer, "\n%d evaluation(s), %d firing(s), %d fallback(s), %d non-exhaustive\n",
		result.Stats.Evaluations, result.Stats.Firings, result.Stats.FellBack, result.Stats.NonExhaustive)
	return nil
}
