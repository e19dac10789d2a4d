package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/generator"
)

func fakeResult() *generator.Result {
	return &generator.Result{
		Module:   "m",
		Handlers: 2,
		Artifacts: []generator.Artifact{
			{Path: "a.cpp", Content: []byte("int alpha;\nint beta;\nint alpha2;\n")},
			{Path: "b.h", Content: []byte("#define GAMMA\n")},
		},
	}
}

func TestEvaluateAssertions(t *testing.T) {
	res := fakeResult()

	tests := []struct {
		name   string
		a      Assertion
		failed bool
	}{
		{"contains", Assertion{Type: AssertContains, Artifact: "a.cpp", Text: "beta"}, false},
		{"contains elsewhere", Assertion{Type: AssertContains, Artifact: "a.cpp", Text: "GAMMA"}, true},
		{"contains any artifact", Assertion{Type: AssertContains, Text: "GAMMA"}, false},
		{"not contains", Assertion{Type: AssertNotContains, Artifact: "b.h", Text: "alpha"}, false},
		{"not contains present", Assertion{Type: AssertNotContains, Text: "beta"}, true},
		{"order", Assertion{Type: AssertOrder, Artifact: "a.cpp", Texts: []string{"alpha", "beta"}}, false},
		{"order across artifacts", Assertion{Type: AssertOrder, Texts: []string{"beta", "GAMMA"}}, false},
		{"order reversed", Assertion{Type: AssertOrder, Artifact: "a.cpp", Texts: []string{"beta", "alpha;"}}, true},
		{"order repeated match", Assertion{Type: AssertOrder, Artifact: "a.cpp", Texts: []string{"beta", "alpha"}}, false},
		{"count", Assertion{Type: AssertCount, Artifact: "a.cpp", Text: "alpha", Count: 2}, false},
		{"count wrong", Assertion{Type: AssertCount, Artifact: "a.cpp", Text: "int", Count: 2}, true},
		{"count zero", Assertion{Type: AssertCount, Text: "delta", Count: 0}, false},
		{"handler count", Assertion{Type: AssertHandlerCount, Count: 2}, false},
		{"handler count wrong", Assertion{Type: AssertHandlerCount, Count: 1}, true},
		{"artifact count", Assertion{Type: AssertArtifactCount, Count: 2}, false},
		{"missing artifact", Assertion{Type: AssertContains, Artifact: "c.cpp", Text: "x"}, true},
		{"error on success", Assertion{Type: AssertErrorContains, Text: "E204"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(res, nil, []Assertion{tt.a})
			if tt.failed {
				assert.Len(t, errs, 1)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestEvaluateAssertions_FailedGeneration(t *testing.T) {
	genErr := errors.New("VALIDATION_FAILED: 1 validation error(s)\n  [E204] f: abstract")

	errs := EvaluateAssertions(nil, genErr, []Assertion{
		{Type: AssertErrorContains, Text: "E204"},
		{Type: AssertErrorContains, Text: "E201"},
		{Type: AssertArtifactCount, Count: 0},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 1 (error_contains)")
	assert.Contains(t, errs[1], "generation failed")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:      AssertCount,
		Expected:  "2 occurrences",
		Actual:    "3 occurrences",
		Artifacts: []string{"a.cpp", "b.h"},
	}
	assert.Equal(t,
		"Assertion failed: count\n  Expected: 2 occurrences\n  Actual: 3 occurrences\n\nArtifacts:\n  [1] a.cpp\n  [2] b.h\n",
		err.Error())
}

func TestNotContainsReportsLine(t *testing.T) {
	errs := EvaluateAssertions(fakeResult(), nil, []Assertion{
		{Type: AssertNotContains, Artifact: "a.cpp", Text: "beta"},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "found at line 2")
}
