package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bindgen/internal/generator"
	"github.com/roach88/bindgen/internal/ir"
)

// Snapshot is the golden form of a generation: the module's counters and
// the hash of every artifact. Any byte change in any artifact changes it.
type Snapshot struct {
	ScenarioName string               `json:"scenario_name"`
	Module       string               `json:"module"`
	Handlers     int                  `json:"handlers"`
	NextKey      int                  `json:"next_key"`
	Artifacts    []generator.Artifact `json:"artifacts"`
}

// NewSnapshot builds the snapshot of a generation.
func NewSnapshot(name string, res *generator.Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		Module:       res.Module,
		Handlers:     res.Handlers,
		NextKey:      res.NextKey,
		Artifacts:    res.Artifacts,
	}
}

// Marshal encodes the snapshot as canonical JSON.
func (s Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Options are appended to the defaults, so a test may point the fixture
// directory elsewhere.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if result.Generation == nil {
		t.Errorf("scenario %s: no generation to snapshot: %v", scenario.Name, result.Err())
		return result, nil
	}
	return result, AssertGolden(t, scenario.Name, result.Generation, opts...)
}

// AssertGolden compares the snapshot of res against the golden file name.
func AssertGolden(t *testing.T, name string, res *generator.Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := NewSnapshot(name, res).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
	g.Assert(t, name, data)

	return nil
}
