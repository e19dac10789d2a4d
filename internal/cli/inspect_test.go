package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/ir"
)

func TestInspect(t *testing.T) {
	spec, err := LoadSpec(shapesSpec)
	require.NoError(t, err)
	require.NoError(t, compiler.Resolve(spec, ir.NewKeyAllocator(), nil))

	report := Inspect(spec)
	assert.Equal(t, "shapes", report.Module)

	require.Len(t, report.Handlers, 1)
	h := report.Handlers[0]
	assert.Equal(t, 0, h.Index)
	assert.Equal(t, "bndVH_shapes_0", h.Function)
	assert.Equal(t, []string{"Shape::area() const", "Circle::area() const"}, h.Overloads)

	require.Len(t, report.Classes, 2)
	shape, circle := report.Classes[0], report.Classes[1]
	assert.Equal(t, "Shape", shape.Name)
	assert.Equal(t, []string{"Shape"}, shape.MRO)
	assert.Equal(t, "bndShape", shape.Shadow)

	assert.Equal(t, "Circle", circle.Name)
	assert.Equal(t, []string{"Circle", "Shape"}, circle.MRO)
	assert.Equal(t, "bndCircle", circle.Shadow)

	members := map[string][]string{}
	for _, m := range circle.Members {
		members[m.Name] = m.Overloads
	}
	assert.Equal(t, []string{"Circle::area() const"}, members["area"], "Shape::area is hidden by the override")
	assert.Len(t, members["scale"], 2)

	require.Len(t, circle.Virtuals, 1)
	assert.Equal(t, "Circle::area() const", circle.Virtuals[0].Overload)
	assert.Equal(t, 0, circle.Virtuals[0].Handler)
}

func TestInspectCommandText(t *testing.T) {
	out, err := execute(t, NewInspectCommand, "text", shapesSpec)
	require.NoError(t, err)
	assert.Contains(t, out, "Module shapes")
	assert.Contains(t, out, "Virtual handlers: 1")
	assert.Contains(t, out, "[0] bndVH_shapes_0")
	assert.Contains(t, out, "Class Circle")
	assert.Contains(t, out, "shadow: bndCircle")
}

func TestInspectCommandClassFilter(t *testing.T) {
	out, err := execute(t, NewInspectCommand, "json", shapesSpec, "--class", "Circle")
	require.NoError(t, err)

	var resp struct {
		Data InspectReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Classes, 1)
	assert.Equal(t, "Circle", resp.Data.Classes[0].Name)
	assert.Len(t, resp.Data.Handlers, 1)
}

func TestInspectCommandUnknownClass(t *testing.T) {
	_, err := execute(t, NewInspectCommand, "text", shapesSpec, "--class", "Square")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInspectCommandInvalidSpec(t *testing.T) {
	path := writeSpec(t, "bad.cue", abstractSpec)

	_, err := execute(t, NewInspectCommand, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
