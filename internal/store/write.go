package store

import (
	"context"
	"fmt"

	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/generator"
	"github.com/roach88/bindgen/internal/ir"
)

// RecordRun appends a generation to the log and returns the stored run.
//
// The run and its artifacts are inserted in one transaction. The run's seq
// is one past the highest seq in the log.
func (s *Store) RecordRun(ctx context.Context, res *generator.Result, cfg config.Config) (Run, error) {
	if res == nil {
		return Run{}, fmt.Errorf("record run: nil result")
	}

	cfgJSON, err := marshalConfig(cfg)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	id, err := s.ids.NewRunID()
	if err != nil {
		return Run{}, fmt.Errorf("record run: new id: %w", err)
	}

	run := Run{
		ID:         id,
		Module:     res.Module,
		SpecHash:   res.SpecHash,
		ConfigHash: res.ConfigHash,
		Config:     cfgJSON,
		Generator:  res.Generator,
		IRVersion:  ir.IRVersion,
		Handlers:   res.Handlers,
		NextKey:    res.NextKey,
		Artifacts:  make([]ArtifactRecord, 0, len(res.Artifacts)),
	}
	for _, a := range res.Artifacts {
		run.Artifacts = append(run.Artifacts, ArtifactRecord{
			Path:   a.Path,
			Kind:   a.Kind,
			SHA256: a.SHA256,
			Size:   a.Size,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM runs",
	).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("record run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, module, spec_hash, config_hash, config, generator_version, ir_version, handlers, next_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Module,
		run.SpecHash,
		run.ConfigHash,
		run.Config,
		run.Generator,
		run.IRVersion,
		run.Handlers,
		run.NextKey,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: insert run: %w", err)
	}

	for _, a := range run.Artifacts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (run_id, path, kind, sha256, size)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, a.Path, a.Kind, a.SHA256, a.Size)
		if err != nil {
			return Run{}, fmt.Errorf("record run: insert artifact %s: %w", a.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}

	return run, nil
}

// DeleteRun removes a run and, by cascade, its artifacts. Deleting an
// unknown run returns ErrRunNotFound.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrRunNotFound)
	}
	return nil
}
