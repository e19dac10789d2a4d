package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/single_file.yaml")
	require.NoError(t, err)

	assert.Equal(t, "single_file", s.Name)
	assert.Equal(t, filepath.Join("testdata", "specs", "shapes.cue"), s.Spec, "spec resolves against the scenario file")
	require.NotNil(t, s.Config)
	require.NotNil(t, s.Config.SingleFile)
	assert.True(t, *s.Config.SingleFile)
	assert.Nil(t, s.Config.Tracing)
	require.Len(t, s.Assertions, 2)
	assert.Equal(t, AssertArtifactCount, s.Assertions[0].Type)
	assert.Equal(t, 3, s.Assertions[0].Count)
}

func TestLoadScenario_InlineSource(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/abstract_not_virtual.yaml")
	require.NoError(t, err)
	assert.Empty(t, s.Spec)
	assert.Contains(t, s.Source, `module: name: "bad"`)
	assert.Equal(t, "VALIDATION_FAILED", s.ExpectError)
}

func TestLoadScenario_Errors(t *testing.T) {
	dir := t.TempDir()
	spec := filepath.Join(dir, "m.cue")
	require.NoError(t, os.WriteFile(spec, []byte(`module: name: "m"`), 0o644))

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown field",
			body: "name: x\ndescription: d\nspec: m.cue\nassertion: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			body: "description: d\nspec: m.cue\nassertions: [{type: artifact_count, count: 1}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			body: "name: x\nspec: m.cue\nassertions: [{type: artifact_count, count: 1}]\n",
			want: "description is required",
		},
		{
			name: "no spec",
			body: "name: x\ndescription: d\nassertions: [{type: artifact_count, count: 1}]\n",
			want: "one of spec or source is required",
		},
		{
			name: "spec and source",
			body: "name: x\ndescription: d\nspec: m.cue\nsource: 'module: name: \"m\"'\nassertions: [{type: artifact_count, count: 1}]\n",
			want: "mutually exclusive",
		},
		{
			name: "missing spec file",
			body: "name: x\ndescription: d\nspec: gone.cue\nassertions: [{type: artifact_count, count: 1}]\n",
			want: "spec not found",
		},
		{
			name: "no assertions",
			body: "name: x\ndescription: d\nspec: m.cue\n",
			want: "assertions list is required",
		},
		{
			name: "unknown assertion",
			body: "name: x\ndescription: d\nspec: m.cue\nassertions: [{type: trace_contains}]\n",
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "contains without text",
			body: "name: x\ndescription: d\nspec: m.cue\nassertions: [{type: contains}]\n",
			want: "text is required for contains",
		},
		{
			name: "order with one text",
			body: "name: x\ndescription: d\nspec: m.cue\nassertions: [{type: order, texts: [a]}]\n",
			want: "at least two texts",
		},
		{
			name: "artifact assertion on failing run",
			body: "name: x\ndescription: d\nspec: m.cue\nexpect_error: VALIDATION_FAILED\nassertions: [{type: artifact_count, count: 1}]\n",
			want: "cannot be checked on a failing run",
		},
		{
			name: "unknown config key",
			body: "name: x\ndescription: d\nspec: m.cue\nconfig: {tarjet: c}\nassertions: [{type: artifact_count, count: 1}]\n",
			want: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, dir, "s.yaml", tt.body)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
