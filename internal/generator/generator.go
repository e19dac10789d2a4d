package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/bindgen/internal/assemble"
	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
)

// Generator runs generations with one configuration.
//
// A Generator holds no per-run state and may be reused; each Generate call
// gets a fresh key allocator.
type Generator struct {
	cfg     config.Config
	log     *slog.Logger
	lastKey int
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(g *Generator) {
		if log != nil {
			g.log = log
		}
	}
}

// WithReservedKeys reserves keep-reference keys 1..last for handwritten
// code; allocation resumes after last.
func WithReservedKeys(last int) Option {
	return func(g *Generator) {
		g.lastKey = last
	}
}

// New creates a Generator.
func New(cfg config.Config, opts ...Option) *Generator {
	g := &Generator{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs one generation with the given configuration.
func Generate(ctx context.Context, spec *ir.Spec, cfg config.Config) (*Result, error) {
	return New(cfg).Generate(ctx, spec)
}

// Generate validates, resolves and assembles spec. The spec is resolved in
// place: its computed fields (MRO, visible sets, virtuals, handlers, keys)
// are rebuilt from scratch, so generating the same spec again gives the
// same result.
//
// Validation and cycle errors are all reported at once. Emission stops at
// the first failure.
func (g *Generator) Generate(ctx context.Context, spec *ir.Spec) (*Result, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, &GenError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
	}
	if spec == nil || int(spec.Module) < 0 || int(spec.Module) >= len(spec.Modules) {
		return nil, &GenError{Code: ErrCodeSpec, Message: "spec has no module to generate"}
	}

	name := spec.Main().Name
	log := g.log.With("module", name)
	log.Info("generation started",
		"target", g.cfg.Target,
		"classes", len(spec.Classes),
		"overloads", len(spec.Overloads))

	if errs := compiler.Validate(spec, g.cfg); len(errs) > 0 {
		log.Debug("validation failed", "errors", len(errs))
		return nil, validationError(errs)
	}
	if cycles := compiler.AnalyzeCycles(spec); len(cycles) > 0 {
		log.Debug("cycles found", "cycles", len(cycles))
		return nil, cycleError(cycles)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alloc := ir.NewKeyAllocatorAt(g.lastKey)
	if err := compiler.Resolve(spec, alloc, log); err != nil {
		return nil, &GenError{Code: ErrCodeResolve, Message: err.Error(), Err: err}
	}
	log.Debug("spec resolved",
		"handlers", len(spec.VirtualHandlers),
		"next_key", spec.Main().NextKey)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	arts, err := assemble.New(spec, g.cfg, log).Assemble()
	if err != nil {
		return nil, emitError(err)
	}

	specHash, err := ir.Fingerprint(spec)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", name, err)
	}
	cfgHash, err := ir.ConfigHash(g.cfg)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", name, err)
	}

	res := &Result{
		Module:     name,
		SpecHash:   specHash,
		ConfigHash: cfgHash,
		Generator:  ir.GeneratorVersion,
		Handlers:   countHandlers(spec),
		NextKey:    spec.Main().NextKey,
	}
	for _, a := range arts {
		res.Artifacts = append(res.Artifacts, Artifact{
			Path:    a.Path,
			Kind:    string(a.Kind),
			SHA256:  ir.ArtifactHash(a.Path, a.Content),
			Size:    len(a.Content),
			Content: a.Content,
		})
	}
	sort.Slice(res.Artifacts, func(i, j int) bool {
		return res.Artifacts[i].Path < res.Artifacts[j].Path
	})

	log.Info("module generated",
		"artifacts", len(res.Artifacts),
		"handlers", res.Handlers,
		"spec_hash", shortHash(specHash))
	return res, nil
}

func countHandlers(spec *ir.Spec) int {
	n := 0
	for i := range spec.VirtualHandlers {
		if spec.VirtualHandlers[i].Module == spec.Module {
			n++
		}
	}
	return n
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
