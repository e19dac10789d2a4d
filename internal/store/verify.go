package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/bindgen/internal/generator"
)

// DriftKind classifies a difference between a recorded run and a fresh one.
type DriftKind string

const (
	DriftChanged DriftKind = "changed" // same path, different hash
	DriftMissing DriftKind = "missing" // recorded but not produced now
	DriftAdded   DriftKind = "added"   // produced now but never recorded
)

// Drift is one artifact that differs between two generations.
type Drift struct {
	Path string    `json:"path"`
	Kind DriftKind `json:"kind"`
	Want string    `json:"want,omitempty"`
	Got  string    `json:"got,omitempty"`
}

// Verification is the outcome of checking a fresh result against the log.
type Verification struct {
	// Recorded is false when the spec was never generated under this
	// configuration; there is then nothing to compare against.
	Recorded bool    `json:"recorded"`
	RunID    string  `json:"run_id,omitempty"`
	Seq      int64   `json:"seq,omitempty"`
	Drift    []Drift `json:"drift"`
}

// OK reports whether the fresh result matches the recorded run.
func (v Verification) OK() bool { return len(v.Drift) == 0 }

// Verify compares res with the latest run of the same spec and
// configuration.
func (s *Store) Verify(ctx context.Context, res *generator.Result) (Verification, error) {
	run, err := s.LatestRun(ctx, res.SpecHash, res.ConfigHash)
	if errors.Is(err, ErrRunNotFound) {
		return Verification{Drift: []Drift{}}, nil
	}
	if err != nil {
		return Verification{}, fmt.Errorf("verify: %w", err)
	}
	return Verification{
		Recorded: true,
		RunID:    run.ID,
		Seq:      run.Seq,
		Drift:    Diff(run.Hashes(), res.Hashes()),
	}, nil
}

// Diff compares two path-to-hash maps. Drift is sorted by path.
func Diff(want, got map[string]string) []Drift {
	drift := []Drift{}
	for path, w := range want {
		g, ok := got[path]
		switch {
		case !ok:
			drift = append(drift, Drift{Path: path, Kind: DriftMissing, Want: w})
		case g != w:
			drift = append(drift, Drift{Path: path, Kind: DriftChanged, Want: w, Got: g})
		}
	}
	for path, g := range got {
		if _, ok := want[path]; !ok {
			drift = append(drift, Drift{Path: path, Kind: DriftAdded, Got: g})
		}
	}
	sort.Slice(drift, func(i, j int) bool { return drift[i].Path < drift[j].Path })
	return drift
}
