package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios(t *testing.T) {
	paths, err := DiscoverScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, paths, 2)

	// Sorted for deterministic suite order
	assert.Equal(t, "strict.yaml", filepath.Base(paths[0]))
	assert.Equal(t, "traffic.yaml", filepath.Base(paths[1]))
}

func TestRunSuiteAllPass(t *testing.T) {
	suite, err := RunSuite("testdata/scenarios")
	require.NoError(t, err)

	assert.Equal(t, 2, suite.TotalScenarios)
	assert.Equal(t, 2, suite.Passed)
	assert.Zero(t, suite.Failed)
	assert.True(t, suite.Pass())
}

func TestRunSuiteBrokenScenarioDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rb.cue", `
		name: "test"
		clauses: [{literal: 1, then: "one"}]
	`)
	writeFile(t, dir, "a-good.yaml", `
name: good
description: "Passes"
rulebook: rb.cue
cases:
  - subject: 1
    expect:
      actions: [one]
`)
	writeFile(t, dir, "b-broken.yaml", `
name: broken
description: "References a missing rulebook"
rulebook: missing.cue
cases:
  - subject: 1
`)

	suite, err := RunSuite(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, suite.TotalScenarios)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 1, suite.Failed)
	assert.False(t, suite.Pass())
	require.Len(t, suite.Failures, 1)
	assert.Equal(t, "b-broken.yaml", suite.Failures[0].Scenario)
	assert.Contains(t, suite.Failures[0].Error, "failed to load scenario")
}

func TestRunSuiteEmptyDir(t *testing.T) {
	suite, err := RunSuite(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, suite.TotalScenarios)
	assert.True(t, suite.Pass())
}
