// Package generator runs one generation: it validates the spec, rejects
// class and import cycles, resolves the spec in place and assembles the
// module's artifacts.
//
// A run is a batch transform over the IR with no internal concurrency. The
// same spec and configuration always produce byte-identical artifacts;
// Result carries a hash per artifact so callers can prove it.
//
// Logging uses log/slog: Info for milestones (run started, module
// generated, artifact written), Debug for per-stage detail.
package generator
