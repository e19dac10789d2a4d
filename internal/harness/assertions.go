package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/bindgen/internal/generator"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type      string   // Assertion type for categorization
	Expected  string   // Human-readable expected outcome
	Actual    string   // Human-readable actual outcome
	Artifacts []string // Artifact paths of the run, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Artifacts) > 0 {
		fmt.Fprintf(&buf, "\nArtifacts:\n")
		for i, path := range e.Artifacts {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, path)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against a generation and
// returns one message per failure. genErr is the generation error, nil
// when the run succeeded.
func EvaluateAssertions(res *generator.Result, genErr error, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(res, genErr, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(res *generator.Result, genErr error, a Assertion) error {
	if a.Type == AssertErrorContains {
		return assertErrorContains(genErr, a)
	}
	if res == nil {
		return fmt.Errorf("no artifacts: generation failed")
	}

	switch a.Type {
	case AssertHandlerCount:
		return assertTotal(res, "handler_count", "virtual handlers", res.Handlers, a.Count)
	case AssertArtifactCount:
		return assertTotal(res, "artifact_count", "artifacts", len(res.Artifacts), a.Count)
	}

	text, err := artifactText(res, a.Artifact)
	if err != nil {
		return err
	}

	switch a.Type {
	case AssertContains:
		return assertContains(res, text, a)
	case AssertNotContains:
		return assertNotContains(res, text, a)
	case AssertOrder:
		return assertOrder(res, text, a)
	case AssertCount:
		return assertCount(res, text, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// artifactText returns the content of one artifact, or of all of them
// joined in path order when path is empty.
func artifactText(res *generator.Result, path string) (string, error) {
	if path != "" {
		art, ok := res.Artifact(path)
		if !ok {
			return "", &AssertionError{
				Type:      "artifact",
				Expected:  fmt.Sprintf("artifact %s", path),
				Actual:    "not generated",
				Artifacts: paths(res),
			}
		}
		return string(art.Content), nil
	}

	var buf strings.Builder
	for _, a := range res.Artifacts {
		buf.Write(a.Content)
	}
	return buf.String(), nil
}

func assertContains(res *generator.Result, text string, a Assertion) error {
	if strings.Contains(text, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:      AssertContains,
		Expected:  fmt.Sprintf("%q in %s", a.Text, where(a)),
		Actual:    "not found",
		Artifacts: paths(res),
	}
}

func assertNotContains(res *generator.Result, text string, a Assertion) error {
	if !strings.Contains(text, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:      AssertNotContains,
		Expected:  fmt.Sprintf("no %q in %s", a.Text, where(a)),
		Actual:    fmt.Sprintf("found at line %d", lineOf(text, strings.Index(text, a.Text))),
		Artifacts: paths(res),
	}
}

// assertOrder checks that the texts appear in the given order. The search
// for each text starts after the previous match, so matches need not be
// adjacent.
func assertOrder(res *generator.Result, text string, a Assertion) error {
	pos := 0
	for i, want := range a.Texts {
		idx := strings.Index(text[pos:], want)
		if idx < 0 {
			actual := fmt.Sprintf("%q not found", want)
			if i > 0 && strings.Contains(text, want) {
				actual = fmt.Sprintf("%q appears before %q", want, a.Texts[i-1])
			}
			return &AssertionError{
				Type:      AssertOrder,
				Expected:  fmt.Sprintf("in order in %s: %q", where(a), a.Texts),
				Actual:    actual,
				Artifacts: paths(res),
			}
		}
		pos += idx + len(want)
	}
	return nil
}

func assertCount(res *generator.Result, text string, a Assertion) error {
	n := strings.Count(text, a.Text)
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:      AssertCount,
		Expected:  fmt.Sprintf("%d occurrences of %q in %s", a.Count, a.Text, where(a)),
		Actual:    fmt.Sprintf("%d occurrences", n),
		Artifacts: paths(res),
	}
}

func assertTotal(res *generator.Result, typ, what string, got, want int) error {
	if got == want {
		return nil
	}
	return &AssertionError{
		Type:      typ,
		Expected:  fmt.Sprintf("%d %s", want, what),
		Actual:    fmt.Sprintf("%d %s", got, what),
		Artifacts: paths(res),
	}
}

func assertErrorContains(genErr error, a Assertion) error {
	if genErr == nil {
		return &AssertionError{
			Type:     AssertErrorContains,
			Expected: fmt.Sprintf("an error mentioning %q", a.Text),
			Actual:   "generation succeeded",
		}
	}
	if strings.Contains(genErr.Error(), a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertErrorContains,
		Expected: fmt.Sprintf("an error mentioning %q", a.Text),
		Actual:   genErr.Error(),
	}
}

func where(a Assertion) string {
	if a.Artifact == "" {
		return "any artifact"
	}
	return a.Artifact
}

func paths(res *generator.Result) []string {
	out := make([]string, len(res.Artifacts))
	for i, a := range res.Artifacts {
		out[i] = a.Path
	}
	return out
}

// lineOf returns the 1-based line number of byte offset off.
func lineOf(text string, off int) int {
	return strings.Count(text[:off], "\n") + 1
}
