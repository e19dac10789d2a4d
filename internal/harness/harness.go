package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/generator"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/store"
)

// Harness runs scenarios. Every scenario gets a fresh in-memory generation
// log: the harness generates the module, records the run, generates it
// again from a fresh load of the spec and checks that nothing drifted.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the generator. The default discards
// everything.
func WithLogger(log *slog.Logger) Option {
	return func(h *Harness) {
		if log != nil {
			h.logger = log
		}
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a scenario and returns the result.
//
// An error is returned only when the scenario cannot be run at all (the
// spec does not load, the store cannot be opened). A generation failure is
// part of the result: it passes when the scenario expects that error code.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg := scenario.Config.Apply(config.Default())

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	result := NewResult()

	spec, err := loadSpec(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load spec: %w", err)
	}
	first, genErr := h.generate(ctx, spec, cfg)
	if genErr != nil && !generator.IsGenError(genErr) {
		return nil, genErr
	}
	result.Generation = first
	result.err = genErr
	if genErr != nil {
		result.ErrorCode = string(generator.CodeOf(genErr))
	}

	switch {
	case genErr != nil && scenario.ExpectError == "":
		result.AddError(fmt.Sprintf("generation failed: %v", genErr))
	case genErr != nil && result.ErrorCode != scenario.ExpectError:
		result.AddError(fmt.Sprintf("expected error %s, got %s", scenario.ExpectError, result.ErrorCode))
	case genErr == nil && scenario.ExpectError != "":
		result.AddError(fmt.Sprintf("expected error %s, generation succeeded", scenario.ExpectError))
	}

	for _, msg := range EvaluateAssertions(first, genErr, scenario.Assertions) {
		result.AddError(msg)
	}

	if first == nil {
		return result, nil
	}

	if _, err := st.RecordRun(ctx, first, cfg); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	// Regenerate from a fresh load so in-place resolution cannot mask drift.
	spec, err = loadSpec(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to reload spec: %w", err)
	}
	again, genErr := h.generate(ctx, spec, cfg)
	if genErr != nil {
		result.AddError(fmt.Sprintf("regeneration failed: %v", genErr))
		return result, nil
	}
	v, err := st.Verify(ctx, again)
	if err != nil {
		return nil, fmt.Errorf("failed to verify regeneration: %w", err)
	}
	if !v.Recorded {
		result.AddError("regeneration changed the spec or config hash")
	}
	for _, d := range v.Drift {
		result.AddError(fmt.Sprintf("regeneration drift: %s %s", d.Kind, d.Path))
	}

	return result, nil
}

func (h *Harness) generate(ctx context.Context, spec *ir.Spec, cfg config.Config) (*generator.Result, error) {
	return generator.New(cfg, generator.WithLogger(h.logger)).Generate(ctx, spec)
}

func loadSpec(scenario *Scenario) (*ir.Spec, error) {
	if scenario.Source == "" {
		return compiler.LoadSpec(scenario.Spec)
	}
	v := cuecontext.New().CompileString(scenario.Source, cue.Filename(scenario.Name+".cue"))
	if err := v.Err(); err != nil {
		return nil, err
	}
	return compiler.CompileSpec(v)
}
