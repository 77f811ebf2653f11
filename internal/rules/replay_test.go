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

func replayRulebook() *Rulebook {
	return &Rulebook{
		Name: "replayed",
		Clauses: []ClauseSpec{
			{Kind: match.KindLiteral, Literal: value.Int(5), Action: "exact"},
			{Kind: match.KindRange, Low: 1, High: 10, Action: "in-band"},
			{Kind: match.KindInstance, Tag: value.TagString, Action: "text"},
		},
		Fallback:   "hold",
		Exhaustive: false,
	}
}

// seedLog evaluates a handful of subjects into a fresh in-memory log.
func seedLog(t *testing.T, rb *Rulebook) *store.Store {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r := testRunner(t, rb, WithStore(st))
	ctx := context.Background()

	subjects := []value.Value{
		value.Int(5),          // exact + in-band
		value.Int(7),          // in-band
		value.String("hello"), // text
		value.Bool(true),      // fallback
	}
	for _, subject := range subjects {
		_, err := r.Evaluate(ctx, subject)
		require.NoError(t, err)
	}

	return st
}

func TestReplayClean(t *testing.T) {
	rb := replayRulebook()
	st := seedLog(t, rb)

	report, err := Replay(context.Background(), st, rb)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Evaluations)
	assert.Equal(t, 4, report.Matched)
	assert.True(t, report.Clean())
}

func TestReplayPreservesNumericType(t *testing.T) {
	// Float(5) must come back from the log as a float: the decision sniffs
	// the numeric tag, so a lossy round trip would flip the instance clause
	// and report a divergence on an untampered log.
	rb := &Rulebook{
		Name: "typed",
		Clauses: []ClauseSpec{
			{Kind: match.KindInstance, Tag: value.TagFloat, Action: "is-float"},
			{Kind: match.KindInstance, Tag: value.TagInt, Action: "is-int"},
		},
		Exhaustive: false,
	}

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	r := testRunner(t, rb, WithStore(st))
	ctx := context.Background()

	outcome, err := r.Evaluate(ctx, value.Float(5))
	require.NoError(t, err)
	require.Equal(t, []string{"is-float"}, outcome.Actions())
	assert.False(t, outcome.FellBack)

	report, err := Replay(ctx, st, rb)
	require.NoError(t, err)
	assert.True(t, report.Clean(), "divergences: %v", report.Divergences)
	assert.Equal(t, 1, report.Matched)
}

func TestReplayEmptyLog(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	report, err := Replay(context.Background(), st, replayRulebook())
	require.NoError(t, err)
	assert.Zero(t, report.Evaluations)
	assert.True(t, report.Clean())
}

func TestReplayDetectsRulebookDrift(t *testing.T) {
	st := seedLog(t, replayRulebook())

	drifted := replayRulebook()
	drifted.Clauses[0].Action = "renamed"

	report, err := Replay(context.Background(), st, drifted)
	require.NoError(t, err)

	assert.False(t, report.Clean())
	assert.Zero(t, report.Matched)
	require.Len(t, report.Divergences, 4, "one hash divergence per evaluation")
	for _, div := range report.Divergences {
		assert.Equal(t, "rulebook_hash", div.Field)
	}
}

func TestReplayDetectsTamperedFiring(t *testing.T) {
	rb := replayRulebook()
	st := seedLog(t, rb)
	ctx := context.Background()

	evals, err := st.ReadEvaluations(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, evals)

	_, err = st.DB().Exec(
		"UPDATE firings SET action = 'forged' WHERE token = ? AND clause_index = 0",
		evals[0].Token)
	require.NoError(t, err)

	report, err := Replay(ctx, st, rb)
	require.NoError(t, err)

	assert.False(t, report.Clean())
	assert.Equal(t, 3, report.Matched)
	require.Len(t, report.Divergences, 1)
	div := report.Divergences[0]
	assert.Equal(t, evals[0].Token, div.Token)
	assert.Contains(t, div.Logged, "forged")
	assert.Contains(t, div.Got, "exact")
}

func TestReplayDoesNotWrite(t *testing.T) {
	rb := replayRulebook()
	st := seedLog(t, rb)
	ctx := context.Background()

	before, err := st.CountEvaluations(ctx)
	require.NoError(t, err)

	_, err = Replay(ctx, st, rb)
	require.NoError(t, err)

	after, err := st.CountEvaluations(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDivergenceString(t *testing.T) {
	div := Divergence{Token: "tok-1", Field: "fell_back", Logged: "true", Got: "false"}
	assert.Equal(t, "tok-1: fell_back: logged true, got false", div.String())
}
