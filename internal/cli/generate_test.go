package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/generator"
	"github.com/roach88/bindgen/internal/store"
)

func TestGenerateWritesArtifacts(t *testing.T) {
	outDir := t.TempDir()

	out, err := execute(t, NewGenerateCommand, "text", shapesSpec, "-o", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Generated module shapes")

	for _, name := range []string{"bndshapescmodule.cpp", "bndAPIshapes.h", "bndshapesShape.cpp", "bndshapesCircle.cpp"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, "artifact %s", name)
	}
}

func TestGenerateJSONReport(t *testing.T) {
	outDir := t.TempDir()

	out, err := execute(t, NewGenerateCommand, "json", shapesSpec, "-o", outDir)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   GenerateReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "shapes", resp.Data.Module)
	assert.Equal(t, outDir, resp.Data.OutputDir)
	assert.Equal(t, 1, resp.Data.Handlers)
	assert.Len(t, resp.Data.Artifacts, 5)
	assert.Empty(t, resp.Data.RunID)
}

func TestGenerateSingleFileOverride(t *testing.T) {
	outDir := t.TempDir()

	_, err := execute(t, NewGenerateCommand, "text", shapesSpec, "-o", outDir, "--single-file")
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	_, err = os.Stat(filepath.Join(outDir, "bndshapesShape.cpp"))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateRecordsRun(t *testing.T) {
	outDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "bindgen.db")

	out, err := execute(t, NewGenerateCommand, "json", shapesSpec, "-o", outDir, "--log", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data GenerateReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data.RunID)
	assert.Equal(t, int64(1), resp.Data.Seq)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), resp.Data.RunID)
	require.NoError(t, err)
	assert.Equal(t, "shapes", run.Module)
	assert.Equal(t, resp.Data.SpecHash, run.SpecHash)
	assert.Len(t, run.Artifacts, 5)
}

func TestGenerateInvalidSpec(t *testing.T) {
	path := writeSpec(t, "bad.cue", abstractSpec)
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, NewGenerateCommand, "text", path, "-o", outDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, generator.IsValidationError(err))
	assert.Contains(t, out, "E204")

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "nothing is written for an invalid spec")
}

func TestGenerateInvalidSpecJSON(t *testing.T) {
	path := writeSpec(t, "bad.cue", abstractSpec)

	out, err := execute(t, NewGenerateCommand, "json", path, "-o", t.TempDir())
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(generator.ErrCodeValidation), resp.Error.Code)
	assert.NotNil(t, resp.Error.Details)
}

func TestGenerateBadTarget(t *testing.T) {
	out, err := execute(t, NewGenerateCommand, "text", shapesSpec, "-o", t.TempDir(), "--target", "rust")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E008]")
}

func TestGenerateMissingSpec(t *testing.T) {
	_, err := execute(t, NewGenerateCommand, "text", "/nonexistent/spec.cue", "-o", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
