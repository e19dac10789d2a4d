package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/store"
)

func decodeCheck(t *testing.T, out string) (string, CheckReport) {
	t.Helper()
	var resp struct {
		Status string      `json:"status"`
		Data   CheckReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp.Status, resp.Data
}

func TestCheckDeterministic(t *testing.T) {
	out, err := execute(t, NewCheckCommand, "text", shapesSpec)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ shapes regenerates identically")
}

func TestCheckAgainstDisk(t *testing.T) {
	outDir := t.TempDir()
	_, err := execute(t, NewGenerateCommand, "text", shapesSpec, "-o", outDir)
	require.NoError(t, err)

	out, err := execute(t, NewCheckCommand, "json", shapesSpec, "--dir", outDir)
	require.NoError(t, err)
	status, report := decodeCheck(t, out)
	assert.Equal(t, "ok", status)
	assert.True(t, report.Deterministic)
	assert.Empty(t, report.Disk)
}

func TestCheckDetectsStaleDisk(t *testing.T) {
	outDir := t.TempDir()
	_, err := execute(t, NewGenerateCommand, "text", shapesSpec, "-o", outDir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "bndAPIshapes.h"), []byte("// edited\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(outDir, "bndshapesCircle.cpp")))

	out, err := execute(t, NewCheckCommand, "json", shapesSpec, "--dir", outDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	status, report := decodeCheck(t, out)
	assert.Equal(t, "error", status)
	require.Len(t, report.Disk, 2)
	assert.Equal(t, []store.Drift{
		{Path: "bndAPIshapes.h", Kind: store.DriftChanged, Want: report.Disk[0].Want, Got: report.Disk[0].Got},
		{Path: "bndshapesCircle.cpp", Kind: store.DriftMissing, Want: report.Disk[1].Want},
	}, report.Disk)
}

func TestCheckAgainstLog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bindgen.db")

	// Nothing recorded yet: check records the run.
	out, err := execute(t, NewCheckCommand, "json", shapesSpec, "--log", dbPath, "--record")
	require.NoError(t, err)
	_, report := decodeCheck(t, out)
	require.NotNil(t, report.Log)
	assert.False(t, report.Log.Recorded)
	require.NotEmpty(t, report.Recorded)

	// Second check matches the recorded run and records nothing new.
	out, err = execute(t, NewCheckCommand, "json", shapesSpec, "--log", dbPath, "--record")
	require.NoError(t, err)
	_, report2 := decodeCheck(t, out)
	require.NotNil(t, report2.Log)
	assert.True(t, report2.Log.Recorded)
	assert.Equal(t, report.Recorded, report2.Log.RunID)
	assert.Empty(t, report2.Log.Drift)
	assert.Empty(t, report2.Recorded)
}

func TestCheckLogUnderOtherConfig(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bindgen.db")
	_, err := execute(t, NewGenerateCommand, "text", shapesSpec, "-o", t.TempDir(), "--log", dbPath)
	require.NoError(t, err)

	out, err := execute(t, NewCheckCommand, "text", shapesSpec, "--log", dbPath, "--single-file")
	require.NoError(t, err)
	assert.Contains(t, out, "no run recorded")
}

func TestCheckRecordRequiresLog(t *testing.T) {
	_, err := execute(t, NewCheckCommand, "text", shapesSpec, "--record")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckInvalidSpec(t *testing.T) {
	path := writeSpec(t, "bad.cue", abstractSpec)

	_, err := execute(t, NewCheckCommand, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
