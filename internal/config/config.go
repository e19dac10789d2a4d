// Package config holds the generation settings for one bindgen run.
//
// A Config is built once, from defaults, an optional project file
// (bindgen.yaml or bindgen.toml) and command line overrides, and is then only
// read. Every component entry point takes it by value.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Target is the flavour of native code emitted.
type Target string

const (
	TargetCPP Target = "cpp"
	TargetC   Target = "c"
)

// Config is the immutable per-run configuration.
type Config struct {
	Target           Target `json:"target"`
	Exceptions       bool   `json:"exceptions"`
	Tracing          bool   `json:"tracing"`
	ReleaseGIL       bool   `json:"release_gil"`
	LineDirectives   bool   `json:"line_directives"`
	SingleFile       bool   `json:"single_file"`
	AbortOnException bool   `json:"abort_on_exception"`
	OutputDir        string `json:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Target:     TargetCPP,
		Exceptions: true,
		ReleaseGIL: true,
		OutputDir:  ".",
	}
}

// IsC reports whether plain C is being generated.
func (c Config) IsC() bool { return c.Target == TargetC }

// Validate checks the configuration for unsupported combinations.
func (c Config) Validate() error {
	switch c.Target {
	case TargetCPP, TargetC:
	default:
		return fmt.Errorf("unknown target %q (want %q or %q)", c.Target, TargetCPP, TargetC)
	}
	if c.Target == TargetC && c.Exceptions {
		return fmt.Errorf("exceptions cannot be enabled for the %q target", TargetC)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}

// File is the on-disk form of a project file. Pointer fields distinguish
// "unset" from the zero value so a file only overrides what it names.
type File struct {
	Target           *string `yaml:"target" toml:"target"`
	Exceptions       *bool   `yaml:"exceptions" toml:"exceptions"`
	Tracing          *bool   `yaml:"tracing" toml:"tracing"`
	ReleaseGIL       *bool   `yaml:"release_gil" toml:"release_gil"`
	LineDirectives   *bool   `yaml:"line_directives" toml:"line_directives"`
	SingleFile       *bool   `yaml:"single_file" toml:"single_file"`
	AbortOnException *bool   `yaml:"abort_on_exception" toml:"abort_on_exception"`
	OutputDir        *string `yaml:"output_dir" toml:"output_dir"`
}

// ParseFile decodes a project file, choosing the decoder by extension.
func ParseFile(path string, data []byte) (*File, error) {
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return nil, fmt.Errorf("parse error in %s: unknown key %q", path, undec[0].String())
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
	return &f, nil
}

// Apply returns base with every field set in f overridden.
func (f *File) Apply(base Config) Config {
	if f == nil {
		return base
	}
	if f.Target != nil {
		base.Target = Target(*f.Target)
	}
	setBool(&base.Exceptions, f.Exceptions)
	setBool(&base.Tracing, f.Tracing)
	setBool(&base.ReleaseGIL, f.ReleaseGIL)
	setBool(&base.LineDirectives, f.LineDirectives)
	setBool(&base.SingleFile, f.SingleFile)
	setBool(&base.AbortOnException, f.AbortOnException)
	if f.OutputDir != nil {
		base.OutputDir = *f.OutputDir
	}
	return base
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// Load reads a project file and applies it over the defaults. An empty path
// looks for bindgen.yaml then bindgen.toml in dir and falls back to the
// defaults when neither exists.
func Load(path, dir string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, name := range []string{"bindgen.yaml", "bindgen.toml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	f, err := ParseFile(path, data)
	if err != nil {
		return Config{}, err
	}
	cfg = f.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
