// Package harness runs generation scenarios.
//
// A scenario names a spec, optionally overrides the configuration, and
// lists assertions over the generated artifacts. Running a scenario
// generates the module twice, from two independent loads of the spec, and
// checks through an in-memory generation log that both runs produced the
// same bytes.
//
// # Scenario Format
//
//	name: shared_handler
//	description: "Both area overrides share one virtual handler"
//	spec: ../specs/shapes.cue      # or source: <inline CUE>
//	config:
//	  single_file: true
//	expect_error: VALIDATION_FAILED # optional
//	assertions:
//	  - type: contains
//	    artifact: bndshapescmodule.cpp
//	    text: "bndVH_shapes_0("
//	  - type: order
//	    artifact: bndshapesShape.cpp
//	    texts: ["class bndShape : public Shape", "meth_Shape_area("]
//	  - type: handler_count
//	    count: 1
//
// # Assertion Types
//
//   - contains / not_contains: a substring is (not) in the artifact
//   - order: substrings appear in the given order
//   - count: a substring appears exactly N times
//   - handler_count: the module has exactly N virtual handlers
//   - artifact_count: exactly N artifacts were generated
//   - error_contains: the generation error mentions a substring
//
// An assertion without an artifact looks at every artifact, concatenated
// in path order.
//
// # Golden Snapshots
//
// RunWithGolden compares a canonical JSON snapshot of the run (counters plus
// per-artifact hashes) with testdata/golden/<name>.golden via goldie.
package harness
