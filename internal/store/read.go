package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bindgen/internal/config"
)

const runColumns = `id, seq, module, spec_hash, config_hash, config, generator_version, ir_version, handlers, next_key`

// ReadRun returns the run with the given id, artifacts included.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return s.withArtifacts(ctx, run)
}

// LatestRun returns the most recent run of a spec under a configuration.
// Returns ErrRunNotFound if the pair was never generated.
func (s *Store) LatestRun(ctx context.Context, specHash, configHash string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE spec_hash = ? AND config_hash = ?
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, specHash, configHash)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return s.withArtifacts(ctx, run)
}

// ListRuns returns the runs of a module in log order, without artifacts.
// An empty module lists every run. Returns an empty slice (not nil) when
// nothing matches.
func (s *Store) ListRuns(ctx context.Context, module string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE ? = '' OR module = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, module, module)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadArtifacts returns the artifacts of a run ordered by path.
// Returns an empty slice (not nil) for a run with no artifacts.
func (s *Store) ReadArtifacts(ctx context.Context, runID string) ([]ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, kind, sha256, size
		FROM artifacts
		WHERE run_id = ?
		ORDER BY path COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	arts := []ArtifactRecord{}
	for rows.Next() {
		var a ArtifactRecord
		if err := rows.Scan(&a.Path, &a.Kind, &a.SHA256, &a.Size); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		arts = append(arts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return arts, nil
}

// RunConfig decodes the configuration a run was generated with.
func (r Run) RunConfig() (config.Config, error) {
	return unmarshalConfig(r.Config)
}

func (s *Store) withArtifacts(ctx context.Context, run Run) (Run, error) {
	arts, err := s.ReadArtifacts(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	run.Artifacts = arts
	return run, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	err := row.Scan(
		&r.ID,
		&r.Seq,
		&r.Module,
		&r.SpecHash,
		&r.ConfigHash,
		&r.Config,
		&r.Generator,
		&r.IRVersion,
		&r.Handlers,
		&r.NextKey,
	)
	return r, err
}
