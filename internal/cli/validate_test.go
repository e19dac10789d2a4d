package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/config"
)

func TestValidateValidSpec(t *testing.T) {
	out, err := execute(t, NewValidateCommand, "text", shapesSpec)
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "is valid")
}

func TestValidateValidSpecJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand, "json", shapesSpec)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
}

func TestValidateInvalidSpec(t *testing.T) {
	path := writeSpec(t, "bad.cue", abstractSpec)

	out, err := execute(t, NewValidateCommand, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrAbstractNotVirt)
}

func TestValidateInvalidSpecJSON(t *testing.T) {
	path := writeSpec(t, "bad.cue", abstractSpec)

	out, err := execute(t, NewValidateCommand, "json", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrAbstractNotVirt, resp.Error.Code)
}

func TestValidateNonExistentSpec(t *testing.T) {
	out, err := execute(t, NewValidateCommand, "text", "/nonexistent/spec.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidateSpec_Cycle(t *testing.T) {
	path := writeSpec(t, "cycle.cue", `module: name: "loop"
classes: [
	{name: "A", supers: ["B"]},
	{name: "B", supers: ["A"]},
]
`)
	spec, err := LoadSpec(path)
	require.NoError(t, err)

	result := ValidateSpec(spec, config.Default())
	assert.False(t, result.Valid)
	assert.Empty(t, result.Errors)
	require.NotEmpty(t, result.Cycles)
	assert.Equal(t, "class", result.Cycles[0].Kind)
}
