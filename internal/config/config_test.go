package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, TargetCPP, cfg.Target)
	assert.True(t, cfg.Exceptions)
	assert.True(t, cfg.ReleaseGIL)
	assert.False(t, cfg.Tracing)
	assert.False(t, cfg.IsC())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown target", func(c *Config) { c.Target = "rust" }, "unknown target"},
		{"c with exceptions", func(c *Config) { c.Target = TargetC }, "exceptions"},
		{"empty output", func(c *Config) { c.OutputDir = "" }, "output_dir"},
		{"c without exceptions", func(c *Config) { c.Target = TargetC; c.Exceptions = false }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bindgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tracing: true\nsingle_file: true\n"), 0o644))

	cfg, err := Load("", dir)
	require.NoError(t, err)
	assert.True(t, cfg.Tracing)
	assert.True(t, cfg.SingleFile)
	assert.True(t, cfg.Exceptions, "unset fields keep their defaults")
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.toml")
	content := "target = \"c\"\nexceptions = false\noutput_dir = \"gen\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, dir)
	require.NoError(t, err)
	assert.Equal(t, TargetC, cfg.Target)
	assert.False(t, cfg.Exceptions)
	assert.Equal(t, "gen", cfg.OutputDir)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "a.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("bogus: 1\n"), 0o644))
	_, err := Load(yamlPath, dir)
	assert.Error(t, err)

	tomlPath := filepath.Join(dir, "a.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("bogus = 1\n"), 0o644))
	_, err = Load(tomlPath, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestLoadInvalidCombination(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bindgen.toml")
	require.NoError(t, os.WriteFile(path, []byte("target = \"c\"\n"), 0o644))

	_, err := Load("", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceptions")
}

func TestLoadNoFile(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	_, err := ParseFile("bindgen.json", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestApplyNil(t *testing.T) {
	var f *File
	assert.Equal(t, Default(), f.Apply(Default()))
}
