package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
)

// LoadError represents an error that occurred before generation could start.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the 1-based line of the error, or 0 when unknown.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Spec document does not compile
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeConfig      = "E008" // Project file unreadable or invalid
	ErrCodeStore       = "E009" // Generation log unusable
)

// LoadSpec compiles the spec at path (a .cue file or a package directory)
// and reports failures as LoadErrors.
func LoadSpec(path string) (*ir.Spec, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("spec not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing spec: %v", err)}
	}

	if info.IsDir() {
		files, err := compiler.FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	}

	spec, err := compiler.LoadSpec(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return spec, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// LoadConfig reads the project file named by path, or the bindgen.yaml or
// bindgen.toml next to the spec when path is empty.
func LoadConfig(path, specPath string) (config.Config, error) {
	dir := specPath
	if info, err := os.Stat(specPath); err == nil && !info.IsDir() {
		dir = filepath.Dir(specPath)
	}
	cfg, err := config.Load(path, dir)
	if err != nil {
		return config.Config{}, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	return cfg, nil
}

// loadFailure reports a LoadError through the formatter and returns the
// matching command error.
func loadFailure(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	var details any
	if line := loadErr.Line(); line > 0 {
		details = map[string]any{"file": loadErr.Pos.Filename(), "line": line}
	}
	if outErr := f.Error(loadErr.Code, loadErr.Message, details); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "load failed", loadErr)
}
