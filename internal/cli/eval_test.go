package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchstick/internal/store"
)

func TestEvalLiteralAndRange(t *testing.T) {
	rb := writeRulebook(t, trafficRulebook)

	out, err := executeCommand(t, "eval", rb, "--subject", "5")
	require.NoError(t, err)

	assert.Contains(t, out, "exact")
	assert.Contains(t, out, "in-band", "range fires even after the literal matched")
	assert.Contains(t, out, "rulebook: traffic")
}

func TestEvalShapeSubject(t *testing.T) {
	rb := writeRulebook(t, trafficRulebook)

	out, err := executeCommand(t, "eval", rb,
		"--subject", `{"kind":"order","id":9}`)
	require.NoError(t, err)
	assert.Contains(t, out, "order")
}

func TestEvalFallback(t *testing.T) {
	rb := writeRulebook(t, trafficRulebook)

	out, err := executeCommand(t, "eval", rb, "--subject", `"unmatched"`)
	require.NoError(t, err, "non-exhaustive rulebook: fallback is not a failure")
	assert.Contains(t, out, "fallback")
	assert.Contains(t, out, "hold")
}

func TestEvalJSONOutput(t *testing.T) {
	rb := writeRulebook(t, trafficRulebook)

	out, err := executeCommand(t, "eval", rb, "--subject", "7", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   EvalResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"in-band"}, resp.Data.Actions)
	assert.False(t, resp.Data.NonExhaustive)
	assert.NotEmpty(t, resp.Data.Token)
}

func TestEvalSubjectFile(t *testing.T) {
	rb := writeRulebook(t, trafficRulebook)
	subjectPath := filepath.Join(t.TempDir(), "subject.json")
	require.NoError(t, os.WriteFile(subjectPath, []byte(`{"kind":"order"}`), 0o644))

	out, err := executeCommand(t, "eval", rb, "--subject-file", subjectPath)
	require.NoError(t, err)
	assert.Contains(t, out, "order")
}

func TestEvalSubjectFlagErrors(t *testing.T) {
	rb := writeRulebook(t, trafficRulebook)

	t.Run("no subject", func(t *testing.T) {
		_, err := executeCommand(t, "eval", rb)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("both flags", func(t *testing.T) {
		_, err := executeCommand(t, "eval", rb, "--subject", "1", "--subject-file", "x.json")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := executeCommand(t, "eval", rb, "--subject", "{nope")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestEvalNonExhaustiveExitCode(t *testing.T) {
	rb := writeRulebook(t, `
		name: "strict"
		clauses: [{literal: 1, then: "one"}]
	`)

	out, err := executeCommand(t, "eval", rb, "--subject", "2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "non-exhaustive", "result is still printed before the verdict")
}

func TestEvalMissingRulebook(t *testing.T) {
	_, err := executeCommand(t, "eval", filepath.Join(t.TempDir(), "nope.cue"), "--subject", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEvalPersistsAndResumesSeq(t *testing.T) {
	rb := writeRulebook(t, trafficRulebook)
	dbPath := filepath.Join(t.TempDir(), "decisions.db")

	_, err := executeCommand(t, "eval", rb, "--subject", "5", "--db", dbPath)
	require.NoError(t, err)
	_, err = executeCommand(t, "eval", rb, "--subject", "7", "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	evals, err := st.ReadEvaluations(ctx)
	require.NoError(t, err)
	require.Len(t, evals, 2)

	// First run: seq 1 (exact) and 2 (in-band). Second run resumes at 3.
	firings, err := st.ReadFirings(ctx, evals[1].Token)
	require.NoError(t, err)
	require.Len(t, firings, 1)
	assert.Equal(t, int64(3), firings[0].Seq)
}
