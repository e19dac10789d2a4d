package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/config"
)

func TestLoadSpec(t *testing.T) {
	spec, err := LoadSpec(shapesSpec)
	require.NoError(t, err)
	assert.Equal(t, "shapes", spec.Main().Name)
	assert.Len(t, spec.Classes, 2)
}

func TestLoadSpec_NotFound(t *testing.T) {
	_, err := LoadSpec("/nonexistent/spec.cue")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadSpec_EmptyDirectory(t *testing.T) {
	_, err := LoadSpec(t.TempDir())
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}

func TestLoadSpec_SyntaxError(t *testing.T) {
	path := writeSpec(t, "broken.cue", "module: name: \"x\"\nclasses: [{\n")

	_, err := LoadSpec(path)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, []string{ErrCodeBuildFailed, ErrCodeLoadFailed}, loadErr.Code)
}

func TestLoadConfig_ProjectFileNextToSpec(t *testing.T) {
	dir := t.TempDir()
	spec := filepath.Join(dir, "m.cue")
	require.NoError(t, os.WriteFile(spec, []byte(`module: name: "m"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bindgen.toml"), []byte("single_file = true\ntracing = true\n"), 0o644))

	cfg, err := LoadConfig("", spec)
	require.NoError(t, err)
	assert.True(t, cfg.SingleFile)
	assert.True(t, cfg.Tracing)
	assert.Equal(t, config.TargetCPP, cfg.Target)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bindgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: rust\n"), 0o644))

	_, err := LoadConfig(path, dir)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeConfig, loadErr.Code)
	assert.Contains(t, loadErr.Message, "rust")
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeNotFound, Message: "spec not found: x.cue"}
	assert.Equal(t, "E005: spec not found: x.cue", err.Error())
	assert.Equal(t, 0, err.Line())
}
