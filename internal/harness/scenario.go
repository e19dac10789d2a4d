package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bindgen/internal/config"
)

// Scenario defines a generation test: one spec, a configuration, and the
// assertions the generated artifacts must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Spec is a .cue file or a directory holding one CUE package.
	// Relative paths are resolved against the scenario file.
	Spec string `yaml:"spec,omitempty"`

	// Source is an inline CUE document, used instead of Spec.
	Source string `yaml:"source,omitempty"`

	// Config overrides the default configuration field by field.
	Config *config.File `yaml:"config,omitempty"`

	// ExpectError is the generator error code the run must fail with
	// (e.g. VALIDATION_FAILED). Empty means the run must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the generated artifacts.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the outcome of a generation.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Artifact is the artifact path the text assertions look at. Empty
	// means every artifact, in path order.
	Artifact string `yaml:"artifact,omitempty"`

	// Text is the substring looked for (contains, not_contains, count,
	// error_contains).
	Text string `yaml:"text,omitempty"`

	// Texts are the substrings that must appear in order (order).
	Texts []string `yaml:"texts,omitempty"`

	// Count is the expected number of occurrences, handlers or artifacts.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertContains      = "contains"
	AssertNotContains   = "not_contains"
	AssertOrder         = "order"
	AssertCount         = "count"
	AssertHandlerCount  = "handler_count"
	AssertArtifactCount = "artifact_count"
	AssertErrorContains = "error_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the spec path relative to the scenario file BEFORE validation
	if scenario.Spec != "" && !filepath.IsAbs(scenario.Spec) {
		scenario.Spec = filepath.Join(filepath.Dir(path), scenario.Spec)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Spec == "" && s.Source == "":
		return fmt.Errorf("one of spec or source is required")
	case s.Spec != "" && s.Source != "":
		return fmt.Errorf("spec and source are mutually exclusive")
	}

	if s.Spec != "" {
		if _, err := os.Stat(s.Spec); os.IsNotExist(err) {
			return fmt.Errorf("spec not found: %s", s.Spec)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s.ExpectError != ""); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
// A scenario that expects an error has no artifacts, so only
// error_contains makes sense there.
func validateAssertion(index int, a *Assertion, failing bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if failing && a.Type != AssertErrorContains {
		return fmt.Errorf("assertions[%d]: %s cannot be checked on a failing run", index, a.Type)
	}

	switch a.Type {
	case AssertContains, AssertNotContains, AssertErrorContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertOrder:
		if len(a.Texts) < 2 {
			return fmt.Errorf("assertions[%d]: at least two texts are required for order", index)
		}
	case AssertCount:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertHandlerCount, AssertArtifactCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
