package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "abstract_not_virtual.yaml"),
		filepath.Join("testdata", "scenarios", "class_unit_layout.yaml"),
		filepath.Join("testdata", "scenarios", "shared_handler.yaml"),
		filepath.Join("testdata", "scenarios", "single_file.yaml"),
	}, paths)

	_, err = FindScenarios("testdata/missing")
	assert.Error(t, err)
}

func TestRunSuite(t *testing.T) {
	result, err := New().RunSuite(context.Background(), "testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 4, result.Passed)
	assert.True(t, result.OK(), "failures: %+v", result.Failures)
}

func TestRunSuite_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	spec, err := filepath.Abs("testdata/specs/shapes.cue")
	require.NoError(t, err)

	writeScenario(t, dir, "a_good.yaml", "name: good\ndescription: d\nspec: "+spec+"\nassertions: [{type: handler_count, count: 1}]\n")
	writeScenario(t, dir, "b_wrong.yaml", "name: wrong\ndescription: d\nspec: "+spec+"\nassertions: [{type: handler_count, count: 3}]\n")
	writeScenario(t, dir, "c_broken.yaml", "name: [\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	result, err := New().RunSuite(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)
	assert.False(t, result.OK())

	require.Len(t, result.Failures, 2)
	assert.Equal(t, "wrong", result.Failures[0].Scenario)
	assert.Contains(t, result.Failures[0].Errors[0], "handler_count")
	assert.Empty(t, result.Failures[1].Scenario)
	assert.Contains(t, result.Failures[1].Errors[0], "failed to load scenario")
}
