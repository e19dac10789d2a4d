package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/generator"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/testutil"
)

// createTestStore creates a new store in a temporary directory with
// sequential run ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithRunIDs(testutil.NewSequentialRunIDs("")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestResult creates a result with minimal required fields and one
// artifact per path.
func createTestResult(module, specHash string, paths ...string) *generator.Result {
	res := &generator.Result{
		Module:     module,
		SpecHash:   specHash,
		ConfigHash: "cfg-hash",
		Generator:  ir.GeneratorVersion,
		Handlers:   1,
		NextKey:    1,
	}
	for _, p := range paths {
		content := []byte("// " + p)
		res.Artifacts = append(res.Artifacts, generator.Artifact{
			Path:    p,
			Kind:    "class",
			SHA256:  ir.ArtifactHash(p, content),
			Size:    len(content),
			Content: content,
		})
	}
	return res
}

// generateShapes runs a real generation of a two-class module.
func generateShapes(t *testing.T) (*generator.Result, config.Config) {
	t.Helper()
	b := testutil.NewSpec("shapes")
	shape := b.Class("Shape")
	b.Method(shape, "area", testutil.Sig(testutil.Arg(ir.Double)), ir.OverloadFlags{Virtual: true})
	b.Class("Circle", shape)

	cfg := config.Default()
	res, err := generator.Generate(context.Background(), b.Spec(), cfg)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	return res, cfg
}
