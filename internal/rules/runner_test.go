package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchstick/internal/match"
	"github.com/roach88/matchstick/internal/store"
	"github.com/roach88/matchstick/internal/value"
)

func testRunner(t *testing.T, rb *Rulebook, opts ...RunnerOption) *Runner {
	t.Helper()
	r, err := NewRunner(rb, opts...)
	require.NoError(t, err)
	return r
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	rb := &Rulebook{
		Name: "orders",
		Clauses: []ClauseSpec{
			{Kind: match.KindInstance, Tag: value.TagInt, Action: "int"},
			{Kind: match.KindLiteral, Literal: value.Int(5), Action: "five"},
		},
		Exhaustive: true,
	}
	r := testRunner(t, rb)

	out, err := r.Evaluate(context.Background(), value.Int(5))
	require.NoError(t, err)

	assert.Equal(t, []string{"int"}, out.Actions(), "later matching clause is skipped")
	assert.False(t, out.FellBack)
	assert.False(t, out.NonExhaustive)
	assert.Equal(t, 0, out.Firings[0].ClauseIndex)
	assert.NotEmpty(t, out.Token)
}

func TestEvaluateRangeFiresAfterResolution(t *testing.T) {
	rb := &Rulebook{
		Name: "ranges",
		Clauses: []ClauseSpec{
			{Kind: match.KindLiteral, Literal: value.Int(5), Action: "exact"},
			{Kind: match.KindRange, Low: 1, High: 10, Action: "in-band"},
		},
		Exhaustive: true,
	}
	r := testRunner(t, rb)

	out, err := r.Evaluate(context.Background(), value.Int(5))
	require.NoError(t, err)

	// Range clauses fire even when an earlier clause already matched.
	require.Equal(t, []string{"exact", "in-band"}, out.Actions())
	assert.Less(t, out.Firings[0].Seq, out.Firings[1].Seq)
	assert.Equal(t, match.KindRange, out.Firings[1].Kind)
}

func TestEvaluateFallback(t *testing.T) {
	rb := &Rulebook{
		Name: "strict",
		Clauses: []ClauseSpec{
			{Kind: match.KindLiteral, Literal: value.Int(1), Action: "one"},
		},
		Fallback:   "hold",
		Exhaustive: false,
	}
	r := testRunner(t, rb)

	out, err := r.Evaluate(context.Background(), value.String("nope"))
	require.NoError(t, err)

	assert.True(t, out.FellBack)
	assert.False(t, out.NonExhaustive)
	require.Len(t, out.Firings, 1)
	assert.Equal(t, "hold", out.Firings[0].Action)
	assert.Equal(t, -1, out.Firings[0].ClauseIndex)
	assert.Equal(t, match.KindFallback, out.Firings[0].Kind)
}

func TestEvaluateFallbackDefaultAction(t *testing.T) {
	rb := &Rulebook{
		Name:       "strict",
		Clauses:    []ClauseSpec{{Kind: match.KindLiteral, Literal: value.Int(1), Action: "one"}},
		Exhaustive: false,
	}
	r := testRunner(t, rb)

	out, err := r.Evaluate(context.Background(), value.Int(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"unmatched"}, out.Actions())
}

func TestEvaluateNonExhaustive(t *testing.T) {
	rb := &Rulebook{
		Name:       "strict",
		Clauses:    []ClauseSpec{{Kind: match.KindLiteral, Literal: value.Int(1), Action: "one"}},
		Exhaustive: true,
	}
	r := testRunner(t, rb)

	out, err := r.Evaluate(context.Background(), value.Int(2))
	require.NoError(t, err, "non-exhaustion is an outcome, not an infrastructure error")

	assert.True(t, out.NonExhaustive)
	assert.True(t, out.FellBack, "fallback still ran")
}

func TestEvaluateCombinators(t *testing.T) {
	rb := &Rulebook{
		Name: "combinators",
		Clauses: []ClauseSpec{
			{
				Kind:   match.KindAllOf,
				Action: "small-int",
				Preds: []PredSpec{
					{Kind: match.KindInstance, Tag: value.TagInt},
					{Kind: match.KindRange, Low: 0, High: 9},
				},
			},
			{
				Kind:   match.KindAnyOf,
				Action: "letter",
				Preds: []PredSpec{
					{Kind: match.KindLiteral, Literal: value.String("a")},
					{Kind: match.KindLiteral, Literal: value.String("b")},
				},
			},
		},
		Fallback:   "other",
		Exhaustive: false,
	}
	r := testRunner(t, rb)
	ctx := context.Background()

	tests := []struct {
		name    string
		subject value.Value
		want    []string
	}{
		{"conjunction hit", value.Int(7), []string{"small-int"}},
		{"conjunction miss on range", value.Int(42), []string{"other"}},
		{"disjunction hit", value.String("b"), []string{"letter"}},
		{"neither", value.Bool(true), []string{"other"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Evaluate(ctx, tt.subject)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Actions())
		})
	}
}

func TestEvaluateShapeAndArrayClauses(t *testing.T) {
	rb := &Rulebook{
		Name: "structural",
		Clauses: []ClauseSpec{
			{
				Kind:   match.KindShape,
				Shape:  match.Shape{"kind": match.Exact{Value: value.String("order")}},
				Action: "order",
			},
			{
				Kind:   match.KindArray,
				Array:  match.Items{Length: match.Len(2)},
				Action: "pair",
			},
		},
		Fallback:   "other",
		Exhaustive: false,
	}
	r := testRunner(t, rb)
	ctx := context.Background()

	out, err := r.Evaluate(ctx, value.Mapping{
		"kind": value.String("order"),
		"id":   value.Int(9),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"order"}, out.Actions(), "partial shape match")

	out, err = r.Evaluate(ctx, value.Sequence{value.Int(1), value.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"pair"}, out.Actions())
}

func TestEvaluateObserverEvents(t *testing.T) {
	rb := &Rulebook{
		Name: "trace",
		Clauses: []ClauseSpec{
			{Kind: match.KindLiteral, Literal: value.Int(1), Action: "one"},
			{Kind: match.KindLiteral, Literal: value.Int(2), Action: "two"},
		},
		Fallback:   "none",
		Exhaustive: false,
	}
	r := testRunner(t, rb)

	out, err := r.Evaluate(context.Background(), value.Int(2))
	require.NoError(t, err)

	require.Len(t, out.Events, 2, "one event per clause; no fallback event on a match")
	assert.False(t, out.Events[0].Fired)
	assert.True(t, out.Events[1].Fired)

	out, err = r.Evaluate(context.Background(), value.Int(3))
	require.NoError(t, err)

	require.Len(t, out.Events, 3)
	assert.Equal(t, match.KindFallback, out.Events[2].Kind)
	assert.True(t, out.Events[2].Fired)
}

func TestEvaluatePersistsToStore(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	rb := &Rulebook{
		Name: "persisted",
		Clauses: []ClauseSpec{
			{Kind: match.KindLiteral, Literal: value.Int(5), Action: "exact"},
			{Kind: match.KindRange, Low: 1, High: 10, Action: "in-band"},
		},
		Exhaustive: true,
	}
	r := testRunner(t, rb,
		WithStore(st),
		WithTokens(NewFixedGenerator("eval-1")),
		WithSequencer(NewClock()),
	)

	ctx := context.Background()
	out, err := r.Evaluate(ctx, value.Int(5))
	require.NoError(t, err)
	require.Equal(t, "eval-1", out.Token)

	eval, err := st.ReadEvaluation(ctx, "eval-1")
	require.NoError(t, err)
	require.NotNil(t, eval)
	assert.Equal(t, "5", eval.Subject, "canonical JSON")
	assert.Equal(t, r.RulebookHash(), eval.RulebookHash)
	assert.False(t, eval.FellBack)

	firings, err := st.ReadFirings(ctx, "eval-1")
	require.NoError(t, err)
	require.Len(t, firings, 2)
	assert.Equal(t, "exact", firings[0].Action)
	assert.Equal(t, "in-band", firings[1].Action)
	assert.Equal(t, 0, firings[0].ClauseIndex)
	assert.Equal(t, 1, firings[1].ClauseIndex)
}

func TestEvaluateSkipsPersistingUnserializableSubject(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	rb := &Rulebook{
		Name:       "opaque",
		Clauses:    []ClauseSpec{{Kind: match.KindInstance, Tag: "conn", Action: "conn"}},
		Exhaustive: true,
	}
	r := testRunner(t, rb, WithStore(st))

	ctx := context.Background()
	out, err := r.Evaluate(ctx, value.Opaque{Tag: "conn", Handle: struct{}{}})
	require.NoError(t, err, "evaluation succeeds even when the subject cannot be logged")
	assert.Equal(t, []string{"conn"}, out.Actions())

	n, err := st.CountEvaluations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewRunnerRejectsBadPredicate(t *testing.T) {
	rb := &Rulebook{
		Name: "bad",
		Clauses: []ClauseSpec{
			{Kind: match.KindAllOf, Preds: []PredSpec{{Kind: "telepathy"}}, Action: "x"},
		},
	}
	_, err := NewRunner(rb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telepathy")
}
