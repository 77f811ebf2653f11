package rules

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchstick/internal/match"
	"github.com/roach88/matchstick/internal/value"
)

func compileSource(t *testing.T, src string) (*Rulebook, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err(), "fixture must be valid CUE")
	return CompileRulebook(v)
}

func TestCompileRulebookFull(t *testing.T) {
	rb, err := compileSource(t, `
		name: "traffic"
		fallback: "hold"
		exhaustive: false
		clauses: [
			{literal: 42, then: "answer"},
			{shape: {kind: "order", priority: "high"}, then: "expedite"},
			{array: {length: 3, elements: []}, then: "triple"},
			{all: [{instance: "int"}, {range: {low: 0, high: 9}}], then: "digit"},
			{any: [{literal: "a"}, {literal: "b"}], then: "letter"},
			{instance: "mapping", then: "record"},
			{range: {low: 1.5, high: 2.5}, then: "narrow"},
		]
	`)
	require.NoError(t, err)

	assert.Equal(t, "traffic", rb.Name)
	assert.Equal(t, "hold", rb.Fallback)
	assert.False(t, rb.Exhaustive)
	require.Len(t, rb.Clauses, 7)

	assert.Equal(t, match.KindLiteral, rb.Clauses[0].Kind)
	assert.Equal(t, value.Int(42), rb.Clauses[0].Literal)
	assert.Equal(t, "answer", rb.Clauses[0].Action)

	assert.Equal(t, match.KindShape, rb.Clauses[1].Kind)
	require.Contains(t, rb.Clauses[1].Shape, "kind")
	assert.Equal(t, match.Exact{Value: value.String("order")}, rb.Clauses[1].Shape["kind"])

	assert.Equal(t, match.KindArray, rb.Clauses[2].Kind)
	require.NotNil(t, rb.Clauses[2].Array.Length)
	assert.Equal(t, 3, *rb.Clauses[2].Array.Length)

	assert.Equal(t, match.KindAllOf, rb.Clauses[3].Kind)
	require.Len(t, rb.Clauses[3].Preds, 2)
	assert.Equal(t, match.KindInstance, rb.Clauses[3].Preds[0].Kind)
	assert.Equal(t, value.TagInt, rb.Clauses[3].Preds[0].Tag)
	assert.Equal(t, match.KindRange, rb.Clauses[3].Preds[1].Kind)
	assert.Equal(t, 9.0, rb.Clauses[3].Preds[1].High)

	assert.Equal(t, match.KindAnyOf, rb.Clauses[4].Kind)
	assert.Equal(t, match.KindInstance, rb.Clauses[5].Kind)
	assert.Equal(t, value.TagMapping, rb.Clauses[5].Tag)

	assert.Equal(t, match.KindRange, rb.Clauses[6].Kind)
	assert.Equal(t, 1.5, rb.Clauses[6].Low)
	assert.Equal(t, 2.5, rb.Clauses[6].High)
}

func TestCompileRulebookDefaults(t *testing.T) {
	rb, err := compileSource(t, `
		name: "minimal"
		clauses: [{literal: 1, then: "one"}]
	`)
	require.NoError(t, err)

	assert.Empty(t, rb.Fallback)
	assert.True(t, rb.Exhaustive, "exhaustive defaults to true")
}

func TestCompileIntegerStaysInt(t *testing.T) {
	rb, err := compileSource(t, `
		name: "numbers"
		clauses: [
			{literal: 7, then: "int"},
			{literal: 7.0, then: "float"},
		]
	`)
	require.NoError(t, err)

	assert.Equal(t, value.Int(7), rb.Clauses[0].Literal)
	assert.Equal(t, value.Float(7.0), rb.Clauses[1].Literal)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name:    "missing name",
			src:     `clauses: [{literal: 1, then: "x"}]`,
			wantMsg: "name is required",
		},
		{
			name:    "missing clauses",
			src:     `name: "x"`,
			wantMsg: "clauses list is required",
		},
		{
			name:    "empty clauses",
			src:     `name: "x"
clauses: []`,
			wantMsg: "at least one clause",
		},
		{
			name:    "clause missing then",
			src:     `name: "x"
clauses: [{literal: 1}]`,
			wantMsg: "'then'",
		},
		{
			name:    "clause without condition",
			src:     `name: "x"
clauses: [{then: "x"}]`,
			wantMsg: "no condition field",
		},
		{
			name:    "clause with two conditions",
			src:     `name: "x"
clauses: [{literal: 1, instance: "int", then: "x"}]`,
			wantMsg: "ambiguous",
		},
		{
			name:    "range missing high",
			src:     `name: "x"
clauses: [{range: {low: 1}, then: "x"}]`,
			wantMsg: "'low' and 'high'",
		},
		{
			name:    "nested combinator",
			src:     `name: "x"
clauses: [{all: [{any: [{literal: 1}]}], then: "x"}]`,
			wantMsg: "nested all/any",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileSource(t, tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestCompileShapeRejectsArrayForm(t *testing.T) {
	// A shape condition whose keys are exactly length+elements parses as
	// an array pattern; the clause must say so explicitly.
	_, err := compileSource(t, `
		name: "x"
		clauses: [{shape: {length: 2, elements: []}, then: "x"}]
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'array' clause")
}

func TestCompileErrorCarriesPosition(t *testing.T) {
	_, err := compileSource(t, `
		name: "x"
		clauses: [{then: "x"}]
	`)
	require.Error(t, err)

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "clause", cerr.Field)
}
