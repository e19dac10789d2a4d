package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/generator"
	"github.com/roach88/bindgen/internal/store"
)

// GenOptions holds the flags shared by the commands that generate code.
type GenOptions struct {
	*RootOptions
	ConfigPath string
	LogPath    string // generation log database, empty for none

	target           string
	singleFile       bool
	tracing          bool
	exceptions       bool
	lineDirectives   bool
	abortOnException bool
}

// addGenFlags registers the config override flags on cmd.
func (o *GenOptions) addGenFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.ConfigPath, "config", "", "project file (default: bindgen.yaml or bindgen.toml next to the spec)")
	cmd.Flags().StringVar(&o.LogPath, "log", "", "SQLite generation log to record runs in")
	cmd.Flags().StringVar(&o.target, "target", string(config.TargetCPP), "target language (cpp|c)")
	cmd.Flags().BoolVar(&o.singleFile, "single-file", false, "emit the whole module into one source file")
	cmd.Flags().BoolVar(&o.tracing, "tracing", false, "emit tracing calls")
	cmd.Flags().BoolVar(&o.exceptions, "exceptions", true, "translate native exceptions")
	cmd.Flags().BoolVar(&o.lineDirectives, "line-directives", false, "emit #line directives for hand-written code")
	cmd.Flags().BoolVar(&o.abortOnException, "abort-on-exception", false, "abort when a virtual re-dispatch raises")
}

// overrides returns the flags the user set explicitly as a config overlay.
func (o *GenOptions) overrides(cmd *cobra.Command) *config.File {
	f := &config.File{}
	flags := cmd.Flags()
	if flags.Changed("target") {
		f.Target = &o.target
	}
	if flags.Changed("single-file") {
		f.SingleFile = &o.singleFile
	}
	if flags.Changed("tracing") {
		f.Tracing = &o.tracing
	}
	if flags.Changed("exceptions") {
		f.Exceptions = &o.exceptions
	}
	if flags.Changed("line-directives") {
		f.LineDirectives = &o.lineDirectives
	}
	if flags.Changed("abort-on-exception") {
		f.AbortOnException = &o.abortOnException
	}
	return f
}

// resolveConfig loads the project file and applies the command line
// overrides over it.
func (o *GenOptions) resolveConfig(cmd *cobra.Command, specPath string) (config.Config, error) {
	cfg, err := LoadConfig(o.ConfigPath, specPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg = o.overrides(cmd).Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	return cfg, nil
}

// generateOnce loads the spec and generates it. Load failures are
// LoadErrors; generation failures are GenErrors.
func generateOnce(ctx context.Context, specPath string, cfg config.Config, log *slog.Logger) (*generator.Result, error) {
	spec, err := LoadSpec(specPath)
	if err != nil {
		return nil, err
	}
	return generator.New(cfg, generator.WithLogger(log)).Generate(ctx, spec)
}

// GenerateReport is the JSON payload of a successful generate.
type GenerateReport struct {
	Module     string               `json:"module"`
	OutputDir  string               `json:"output_dir"`
	SpecHash   string               `json:"spec_hash"`
	ConfigHash string               `json:"config_hash"`
	Handlers   int                  `json:"handlers"`
	NextKey    int                  `json:"next_key"`
	Artifacts  []generator.Artifact `json:"artifacts"`
	RunID      string               `json:"run_id,omitempty"`
	Seq        int64                `json:"seq,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}
	var outputDir string

	cmd := &cobra.Command{
		Use:   "generate <spec>",
		Short: "Generate the native module for a spec",
		Long: `Compile, validate and resolve a spec, then write the generated sources:
the module unit, the internal API header and, unless --single-file is set,
one unit per class.

Configuration is read from --config, or from bindgen.yaml / bindgen.toml
next to the spec, and command line flags override it.

Exit codes:
  0 - The module was generated
  1 - The spec is invalid or cannot be generated
  2 - Command error (unreadable spec or config, write failure)

Examples:
  bindgen generate ./spec -o ./build
  bindgen generate shapes.cue --target c --single-file
  bindgen generate ./spec --log bindgen.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, outputDir, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: output_dir from the project file)")
	opts.addGenFlags(cmd)

	return cmd
}

func runGenerate(opts *GenOptions, outputDir, specPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.Logger(cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.resolveConfig(cmd, specPath)
	if err != nil {
		return loadFailure(formatter, err)
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	res, err := generateOnce(ctx, specPath, cfg, log)
	if err != nil {
		return generationFailure(formatter, err)
	}

	if err := res.WriteDir(cfg.OutputDir, log); err != nil {
		return generationFailure(formatter, err)
	}

	report := GenerateReport{
		Module:     res.Module,
		OutputDir:  cfg.OutputDir,
		SpecHash:   res.SpecHash,
		ConfigHash: res.ConfigHash,
		Handlers:   res.Handlers,
		NextKey:    res.NextKey,
		Artifacts:  res.Artifacts,
	}

	if opts.LogPath != "" {
		run, err := recordRun(ctx, opts.LogPath, res, cfg)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "recording run failed", err)
		}
		report.RunID, report.Seq = run.ID, run.Seq
		formatter.VerboseLog("Recorded run %s (seq %d) in %s", run.ID, run.Seq, opts.LogPath)
	}

	lines := []string{fmt.Sprintf("✓ Generated module %s into %s", res.Module, cfg.OutputDir)}
	for _, a := range res.Artifacts {
		lines = append(lines, fmt.Sprintf("  %-40s %6d bytes  %s", a.Path, a.Size, a.SHA256[:12]))
	}
	return formatter.Success(report, lines...)
}

func recordRun(ctx context.Context, path string, res *generator.Result, cfg config.Config) (store.Run, error) {
	st, err := store.Open(path)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()
	return st.RecordRun(ctx, res, cfg)
}

// generationFailure reports a failed load or generation and returns the
// command error. Problems in the spec exit 1, everything else exits 2.
func generationFailure(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadFailure(f, err)
	}

	var genErr *generator.GenError
	if !errors.As(err, &genErr) {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "generation aborted", err)
	}

	lines := []string{fmt.Sprintf("✗ %s: %s", genErr.Code, genErr.Message)}
	if genErr.Entity != "" {
		lines[0] = fmt.Sprintf("✗ %s: %s: %s", genErr.Code, genErr.Entity, genErr.Message)
	}
	for _, d := range genErr.Details {
		lines = append(lines, "  "+d)
	}
	var details any
	if len(genErr.Details) > 0 {
		details = genErr.Details
	}
	if f.IsJSON() {
		if err := f.Error(string(genErr.Code), genErr.Message, details); err != nil {
			return err
		}
	} else if err := f.Failure(string(genErr.Code), genErr.Message, nil, lines...); err != nil {
		return err
	}

	code := ExitFailure
	switch genErr.Code {
	case generator.ErrCodeConfig, generator.ErrCodeWrite:
		code = ExitCommandError
	}
	return WrapExitError(code, string(genErr.Code), genErr)
}
