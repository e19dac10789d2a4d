package harness

import "github.com/roach88/bindgen/internal/generator"

// Result is the outcome of running one scenario.
type Result struct {
	// Pass is true when the run matched the expected outcome and every
	// assertion held.
	Pass bool `json:"pass"`

	// Errors holds one message per failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// ErrorCode is the generator error code of a failed run, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// Generation is the generated module; nil when generation failed.
	Generation *generator.Result `json:"generation,omitempty"`

	err error
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Err returns the generation error, or nil when generation succeeded.
func (r *Result) Err() error { return r.err }
