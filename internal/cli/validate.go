package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
	Cycles []compiler.CycleError      `json:"cycles,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ConfigPath string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <spec>",
		Short: "Validate a spec without generating code",
		Long: `Compile a spec and check it against the validation rules and for class
hierarchy or import cycles, without emitting any artifact.

Exit codes:
  0 - The spec is valid
  1 - Validation errors or cycles were found
  2 - The spec or config could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "project file (default: bindgen.yaml or bindgen.toml next to the spec)")

	return cmd
}

func runValidate(opts *ValidateOptions, specPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := LoadConfig(opts.ConfigPath, specPath)
	if err != nil {
		return loadFailure(formatter, err)
	}
	spec, err := LoadSpec(specPath)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Loaded module %s: %d classes, %d overloads", moduleName(spec), len(spec.Classes), len(spec.Overloads))

	result := ValidateSpec(spec, cfg)
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}

	return formatter.Success(result, fmt.Sprintf("✓ %s is valid", specPath))
}

// outputValidationErrors outputs every validation error and cycle.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	code, message := "CYCLE_DETECTED", ""
	if len(result.Errors) > 0 {
		code, message = result.Errors[0].Code, result.Errors[0].Message
	} else {
		message = result.Cycles[0].Message
	}

	lines := []string{"✗ Validation failed", ""}
	for _, e := range result.Errors {
		if e.Line > 0 {
			lines = append(lines, fmt.Sprintf("line %d", e.Line))
		}
		lines = append(lines, fmt.Sprintf("  %s: %s: %s", e.Code, e.Field, e.Message), "")
	}
	for _, c := range result.Cycles {
		lines = append(lines, fmt.Sprintf("  cycle: %s", c.Message), "")
	}

	if err := formatter.Failure(code, message, result, lines...); err != nil {
		return err
	}
	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)+len(result.Cycles)))
}

// ValidateSpec runs the validation rules over a compiled spec and, when
// they pass, the cycle analysis. This is the check generation performs
// before resolving.
func ValidateSpec(spec *ir.Spec, cfg config.Config) ValidationResult {
	if errs := compiler.Validate(spec, cfg); len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}
	if cycles := compiler.AnalyzeCycles(spec); len(cycles) > 0 {
		return ValidationResult{Valid: false, Cycles: cycles}
	}
	return ValidationResult{Valid: true}
}

func moduleName(spec *ir.Spec) string {
	if int(spec.Module) < 0 || int(spec.Module) >= len(spec.Modules) {
		return "<none>"
	}
	return spec.Main().Name
}
