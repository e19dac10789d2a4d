package testutil

import "fmt"

// SequentialRunIDs hands out run identifiers "run-0001", "run-0002", ...
// so that generation logs written by tests are reproducible.
//
// Not safe for concurrent use; each test owns its generator.
type SequentialRunIDs struct {
	prefix string
	n      int
}

// NewSequentialRunIDs creates a generator. An empty prefix means "run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// NewRunID returns the next identifier.
//
// Implements store.RunIDGenerator.
func (g *SequentialRunIDs) NewRunID() (string, error) {
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n), nil
}
