package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/generator"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	GenOptions
	Dir    string // previously generated output to compare with
	Record bool   // record the run when the log has none for this spec
}

// CheckReport is the outcome of a check.
type CheckReport struct {
	Module        string              `json:"module"`
	SpecHash      string              `json:"spec_hash"`
	ConfigHash    string              `json:"config_hash"`
	Deterministic bool                `json:"deterministic"`
	Regeneration  []store.Drift       `json:"regeneration"`
	Disk          []store.Drift       `json:"disk,omitempty"`
	Log           *store.Verification `json:"log,omitempty"`
	Recorded      string              `json:"recorded_run,omitempty"`
}

// OK reports whether no drift of any kind was found.
func (r *CheckReport) OK() bool {
	return r.Deterministic && len(r.Disk) == 0 && (r.Log == nil || r.Log.OK())
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{GenOptions: GenOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "check <spec>",
		Short: "Check that generation is reproducible",
		Long: `Generate the spec twice from independent loads and compare the artifacts
byte for byte. With --dir, also compare against previously generated files
on disk. With --log, compare against the latest run recorded for the same
spec and configuration.

Nothing is written except, with --record, a new run in the log.

Exit codes:
  0 - Every comparison matched
  1 - Drift found, or the spec cannot be generated
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	opts.addGenFlags(cmd)
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "directory holding previously generated output")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the run in --log when no matching run exists")

	return cmd
}

func runCheck(opts *CheckOptions, specPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.Logger(cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Record && opts.LogPath == "" {
		_ = formatter.Error(ErrCodeGeneric, "--record requires --log", nil)
		return NewExitError(ExitCommandError, "--record requires --log")
	}

	cfg, err := opts.resolveConfig(cmd, specPath)
	if err != nil {
		return loadFailure(formatter, err)
	}

	first, err := generateOnce(ctx, specPath, cfg, log)
	if err != nil {
		return generationFailure(formatter, err)
	}
	second, err := generateOnce(ctx, specPath, cfg, log)
	if err != nil {
		return generationFailure(formatter, err)
	}

	report := &CheckReport{
		Module:        first.Module,
		SpecHash:      first.SpecHash,
		ConfigHash:    first.ConfigHash,
		Deterministic: first.Equal(second) && first.SpecHash == second.SpecHash,
		Regeneration:  store.Diff(first.Hashes(), second.Hashes()),
	}

	if opts.Dir != "" {
		report.Disk, err = diskDrift(opts.Dir, first)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "reading generated output failed", err)
		}
	}

	if opts.LogPath != "" {
		if err := checkLog(ctx, opts, report, first, cfg); err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "generation log unusable", err)
		}
	}

	lines := checkLines(report)
	if report.OK() {
		return formatter.Success(report, lines...)
	}
	if err := formatter.Failure("DRIFT_DETECTED", "generated output drifted", report, lines...); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "generated output drifted")
}

// diskDrift compares res with the files of the same names under dir. Files
// in dir that res does not produce are ignored.
func diskDrift(dir string, res *generator.Result) ([]store.Drift, error) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("output directory not found: %s", dir)
	}
	onDisk := make(map[string]string, len(res.Artifacts))
	for _, a := range res.Artifacts {
		data, err := os.ReadFile(filepath.Join(dir, a.Path))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		onDisk[a.Path] = ir.ArtifactHash(a.Path, data)
	}
	return store.Diff(res.Hashes(), onDisk), nil
}

func checkLog(ctx context.Context, opts *CheckOptions, report *CheckReport, res *generator.Result, cfg config.Config) error {
	st, err := store.Open(opts.LogPath)
	if err != nil {
		return err
	}
	defer st.Close()

	v, err := st.Verify(ctx, res)
	if err != nil {
		return err
	}
	report.Log = &v

	if opts.Record && !v.Recorded {
		run, err := st.RecordRun(ctx, res, cfg)
		if err != nil {
			return err
		}
		report.Recorded = run.ID
	}
	return nil
}

func checkLines(r *CheckReport) []string {
	var lines []string
	if r.Deterministic {
		lines = append(lines, fmt.Sprintf("✓ %s regenerates identically", r.Module))
	} else {
		lines = append(lines, fmt.Sprintf("✗ %s differs between two generations", r.Module))
		lines = append(lines, driftLines(r.Regeneration)...)
	}

	if r.Disk != nil {
		if len(r.Disk) == 0 {
			lines = append(lines, "✓ output on disk is up to date")
		} else {
			lines = append(lines, "✗ output on disk is stale")
			lines = append(lines, driftLines(r.Disk)...)
		}
	}

	switch {
	case r.Log == nil:
	case !r.Log.Recorded && r.Recorded != "":
		lines = append(lines, fmt.Sprintf("✓ recorded as run %s", r.Recorded))
	case !r.Log.Recorded:
		lines = append(lines, "- no run recorded for this spec and configuration")
	case r.Log.OK():
		lines = append(lines, fmt.Sprintf("✓ matches recorded run %s (seq %d)", r.Log.RunID, r.Log.Seq))
	default:
		lines = append(lines, fmt.Sprintf("✗ differs from recorded run %s (seq %d)", r.Log.RunID, r.Log.Seq))
		lines = append(lines, driftLines(r.Log.Drift)...)
	}
	return lines
}

func driftLines(drift []store.Drift) []string {
	lines := make([]string, len(drift))
	for i, d := range drift {
		lines[i] = fmt.Sprintf("  %-8s %s", d.Kind, d.Path)
	}
	return lines
}
