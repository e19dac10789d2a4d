package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// shapesSpec is a small valid module with one shared virtual handler.
var shapesSpec = filepath.Join("..", "harness", "testdata", "specs", "shapes.cue")

// scenariosDir holds passing harness scenarios.
var scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")

const abstractSpec = `module: name: "bad"
classes: [{
	name: "A"
	methods: [{name: "f", flags: {abstract: true}}]
}]
`

// writeSpec writes a spec into a fresh temp dir and returns its path.
func writeSpec(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

// execute runs a subcommand built by newCmd and returns its stdout.
func execute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := newCmd(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	if args == nil {
		args = []string{} // nil makes cobra fall back to os.Args
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
