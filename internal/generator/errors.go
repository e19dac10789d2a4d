package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/bindgen/internal/assemble"
	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/marshal"
	"github.com/roach88/bindgen/internal/virtgen"
)

// ErrorCode categorizes generation failures.
type ErrorCode string

const (
	// ErrCodeConfig indicates an unusable configuration.
	ErrCodeConfig ErrorCode = "INVALID_CONFIG"

	// ErrCodeSpec indicates a spec with no module to generate.
	ErrCodeSpec ErrorCode = "INVALID_SPEC"

	// ErrCodeValidation indicates the spec broke one or more validation rules.
	ErrCodeValidation ErrorCode = "VALIDATION_FAILED"

	// ErrCodeCycle indicates a class hierarchy or import cycle.
	ErrCodeCycle ErrorCode = "CYCLE_DETECTED"

	// ErrCodeResolve indicates the resolve pass failed.
	ErrCodeResolve ErrorCode = "RESOLVE_FAILED"

	// ErrCodeUnmappable indicates a type that cannot cross the boundary in
	// the direction it is used.
	ErrCodeUnmappable ErrorCode = "UNMAPPABLE_TYPE"

	// ErrCodeNoInstance indicates a variable with no typed instance form.
	ErrCodeNoInstance ErrorCode = "NO_INSTANCE_FORM"

	// ErrCodeTarget indicates a feature the target language cannot express.
	ErrCodeTarget ErrorCode = "TARGET_UNSUPPORTED"

	// ErrCodeEmit is any other emission failure.
	ErrCodeEmit ErrorCode = "EMIT_FAILED"

	// ErrCodeWrite indicates an artifact could not be written.
	ErrCodeWrite ErrorCode = "WRITE_FAILED"
)

// GenError is a failure of one generation run. Entity names what failed:
// an artifact path, a class, or empty when the whole spec is at fault.
type GenError struct {
	Code    ErrorCode
	Entity  string
	Message string

	// Details holds one line per underlying problem (validation errors,
	// cycles) when there are several.
	Details []string

	Err error
}

// Error implements the error interface.
func (e *GenError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Entity != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Code, e.Entity, e.Message)
	}
	if len(e.Details) > 0 {
		msg += "\n  " + strings.Join(e.Details, "\n  ")
	}
	return msg
}

func (e *GenError) Unwrap() error { return e.Err }

// IsGenError reports whether err is or wraps a GenError.
func IsGenError(err error) bool {
	var ge *GenError
	return errors.As(err, &ge)
}

// CodeOf returns the code of the GenError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool { return CodeOf(err) == ErrCodeValidation }

// IsCycleError reports whether err is a cycle failure.
func IsCycleError(err error) bool { return CodeOf(err) == ErrCodeCycle }

func validationError(errs []compiler.ValidationError) *GenError {
	details := make([]string, len(errs))
	for i, e := range errs {
		details[i] = e.Error()
	}
	return &GenError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("%d validation error(s)", len(errs)),
		Details: details,
	}
}

func cycleError(cycles []compiler.CycleError) *GenError {
	details := make([]string, len(cycles))
	for i, c := range cycles {
		details[i] = c.Message
	}
	return &GenError{
		Code:    ErrCodeCycle,
		Message: fmt.Sprintf("%d cycle(s)", len(cycles)),
		Details: details,
	}
}

// emitError classifies an assembly failure.
func emitError(err error) *GenError {
	ge := &GenError{Code: ErrCodeEmit, Message: err.Error(), Err: err}

	var ae *assemble.ArtifactError
	if errors.As(err, &ae) {
		ge.Entity = ae.Path
		ge.Message = ae.Err.Error()
	}

	var ue *marshal.UnmappableError
	switch {
	case errors.As(err, &ue):
		ge.Code = ErrCodeUnmappable
	case errors.Is(err, assemble.ErrNoInstanceForm):
		ge.Code = ErrCodeNoInstance
	case errors.Is(err, virtgen.ErrCTarget):
		ge.Code = ErrCodeTarget
	}
	return ge
}
