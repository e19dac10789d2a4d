package compiler

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/testutil"
)

func resolve(t *testing.T, spec *ir.Spec) {
	t.Helper()
	require.NoError(t, Resolve(spec, ir.NewKeyAllocator(), nil))
}

func virtualOverloads(c *ir.Class) []ir.OverloadID {
	out := []ir.OverloadID{}
	for _, v := range c.Virtuals {
		out = append(out, v.Overload)
	}
	return out
}

func TestResolveMRO(t *testing.T) {
	b := testutil.NewSpec("m")
	a := b.Class("A")
	left := b.Class("B", a)
	right := b.Class("C", a)
	d := b.Class("D", left, right)
	spec := b.Spec()
	resolve(t, spec)

	assert.Equal(t, []ir.ClassID{d, left, a, right}, spec.Class(d).MRO)
	assert.Equal(t, []ir.ClassID{a}, spec.Class(a).MRO)
}

// Identical virtuals declared at two levels of a hierarchy share one
// handler.
func TestVirtualHandlerDeduplication(t *testing.T) {
	b := testutil.NewSpec("m")
	base := b.Class("Base")
	derived := b.Class("Derived", base)
	baseF := b.Method(base, "f", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true})
	derivedF := b.Method(derived, "f", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true})
	spec := b.Spec()
	resolve(t, spec)

	require.Len(t, spec.VirtualHandlers, 1)
	h := spec.VirtualHandlers[0]
	assert.Equal(t, 0, h.Index)
	assert.Equal(t, []ir.OverloadID{baseF, derivedF}, h.Overloads)
	assert.Equal(t, []ir.OverloadID{baseF}, virtualOverloads(spec.Class(base)))
	assert.Equal(t, []ir.OverloadID{derivedF}, virtualOverloads(spec.Class(derived)))
	assert.Equal(t, ir.HandlerID(0), spec.Class(derived).Virtuals[0].Handler)
}

func TestVirtualHandlersSplitOnShape(t *testing.T) {
	b := testutil.NewSpec("m")
	w := b.Class("W")
	b.Method(w, "f", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true})
	b.Method(w, "g", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true})
	b.Method(w, "h", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true, AbortOnException: true})
	b.Method(w, "k", testutil.Void(testutil.Arg(ir.Long)), ir.OverloadFlags{Virtual: true})
	b.Method(w, "n", testutil.Sig(testutil.Arg(ir.Int), testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true})
	b.Method(w, "p", testutil.Void(testutil.ClassPtr(w)), ir.OverloadFlags{Virtual: true})
	given := testutil.ClassPtr(w)
	given.TransferToNative = true
	b.Method(w, "q", testutil.Void(given), ir.OverloadFlags{Virtual: true})
	spec := b.Spec()
	resolve(t, spec)

	// f and g share; h, k and n each differ in one respect. p and q have
	// the same native signature but disagree on an annotation.
	require.Len(t, spec.VirtualHandlers, 6)
	assert.Len(t, spec.VirtualHandlers[0].Overloads, 2)
	assert.True(t, spec.VirtualHandlers[1].AbortOnException)
	assert.Len(t, spec.VirtualHandlers[4].Overloads, 1)
	assert.Len(t, spec.VirtualHandlers[5].Overloads, 1)

	c := spec.Class(w)
	require.Len(t, c.Virtuals, 7)
	for i, v := range c.Virtuals {
		assert.Equal(t, i, v.CacheIdx)
	}
}

func TestResolveLogsToGivenLogger(t *testing.T) {
	b := testutil.NewSpec("m")
	base := b.Class("Base")
	derived := b.Class("Derived", base)
	b.Method(base, "f", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true})
	b.Method(derived, "f", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true})

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	require.NoError(t, Resolve(b.Spec(), ir.NewKeyAllocator(), log.With("module", "m")))

	out := buf.String()
	assert.Contains(t, out, `msg="virtual handler shared"`)
	assert.Contains(t, out, "module=m")
}

func TestMostDerivedVirtualWins(t *testing.T) {
	b := testutil.NewSpec("m")
	base := b.Class("Base")
	derived := b.Class("Derived", base)
	b.Method(base, "f", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true})
	redecl := b.Method(derived, "f", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{})
	spec := b.Spec()
	resolve(t, spec)

	assert.Equal(t, []ir.OverloadID{redecl}, virtualOverloads(spec.Class(derived)))
	assert.True(t, spec.Class(derived).NeedsShadow)
}

func TestFinalVirtualIsNotReimplementable(t *testing.T) {
	b := testutil.NewSpec("m")
	base := b.Class("Base")
	derived := b.Class("Derived", base)
	b.Method(base, "f", testutil.Void(), ir.OverloadFlags{Virtual: true})
	b.Method(base, "g", testutil.Void(), ir.OverloadFlags{Virtual: true})
	b.Method(derived, "f", testutil.Void(), ir.OverloadFlags{Virtual: true, Final: true})
	spec := b.Spec()
	resolve(t, spec)

	require.Len(t, spec.Class(derived).Virtuals, 1)
	assert.Equal(t, "g", spec.Overload(spec.Class(derived).Virtuals[0].Overload).NativeName)
	assert.Len(t, spec.Class(base).Virtuals, 2)
}

func TestImportedClassesGetNoVirtuals(t *testing.T) {
	b := testutil.NewSpec("m")
	core := b.Import("core")
	ext := b.ClassIn(core, "core::Base")
	baseF := b.Method(ext, "f", testutil.Void(), ir.OverloadFlags{Virtual: true})
	local := b.Class("Local", ext)
	spec := b.Spec()
	resolve(t, spec)

	assert.Empty(t, spec.Class(ext).Virtuals)
	assert.Equal(t, []ir.OverloadID{baseF}, virtualOverloads(spec.Class(local)))
	require.Len(t, spec.VirtualHandlers, 1)
	assert.Equal(t, spec.Module, spec.VirtualHandlers[0].Module)
}

func TestVisibleOverloadsShadowing(t *testing.T) {
	b := testutil.NewSpec("m")
	base := b.Class("Base")
	derived := b.Class("Derived", base)
	b.Method(base, "h", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{})
	baseDouble := b.Method(base, "h", testutil.Void(testutil.Arg(ir.Double)), ir.OverloadFlags{})
	hidden := b.Method(base, "secret", testutil.Void(), ir.OverloadFlags{})
	b.Spec().Overload(hidden).Access = ir.Private
	derivedShort := b.Method(derived, "h", testutil.Void(testutil.Arg(ir.Short)), ir.OverloadFlags{})
	spec := b.Spec()
	resolve(t, spec)

	vis := spec.Class(derived).Visible
	require.Len(t, vis, 1)
	assert.Equal(t, spec.Overload(derivedShort).Member, vis[0].Member)
	assert.Equal(t, []ir.OverloadID{derivedShort, baseDouble}, vis[0].Overloads)
}

func TestNeedsShadow(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *testutil.SpecBuilder) ir.ClassID
		want  bool
	}{
		{
			name: "plain class",
			build: func(b *testutil.SpecBuilder) ir.ClassID {
				c := b.Class("C")
				b.Method(c, "f", testutil.Void(), ir.OverloadFlags{})
				return c
			},
		},
		{
			name: "virtual method",
			build: func(b *testutil.SpecBuilder) ir.ClassID {
				c := b.Class("C")
				b.Method(c, "f", testutil.Void(), ir.OverloadFlags{Virtual: true})
				return c
			},
			want: true,
		},
		{
			name: "protected method",
			build: func(b *testutil.SpecBuilder) ir.ClassID {
				c := b.Class("C")
				o := b.Method(c, "f", testutil.Void(), ir.OverloadFlags{})
				b.Spec().Overload(o).Access = ir.Protected
				return c
			},
			want: true,
		},
		{
			name: "protected signal",
			build: func(b *testutil.SpecBuilder) ir.ClassID {
				c := b.Class("C")
				o := b.Method(c, "changed", testutil.Void(), ir.OverloadFlags{Signal: true})
				b.Spec().Overload(o).Access = ir.Protected
				return c
			},
		},
		{
			name: "namespace",
			build: func(b *testutil.SpecBuilder) ir.ClassID {
				c := b.Class("C")
				b.Spec().Class(c).Flags.Namespace = true
				b.Method(c, "f", testutil.Void(), ir.OverloadFlags{Virtual: true})
				return c
			},
		},
		{
			name: "private destructor",
			build: func(b *testutil.SpecBuilder) ir.ClassID {
				c := b.Class("C")
				b.Spec().Class(c).DtorAccess = ir.Private
				b.Method(c, "f", testutil.Void(), ir.OverloadFlags{Virtual: true})
				return c
			},
		},
		{
			name: "only private constructors",
			build: func(b *testutil.SpecBuilder) ir.ClassID {
				c := b.Class("C")
				i := b.Ctor(c)
				b.Spec().Class(c).Ctors[i].Access = ir.Private
				b.Method(c, "f", testutil.Void(), ir.OverloadFlags{Virtual: true})
				return c
			},
		},
		{
			name: "protected constructor",
			build: func(b *testutil.SpecBuilder) ir.ClassID {
				c := b.Class("C")
				i := b.Ctor(c)
				b.Spec().Class(c).Ctors[i].Access = ir.Protected
				return c
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testutil.NewSpec("m")
			id := tt.build(b)
			resolve(t, b.Spec())
			assert.Equal(t, tt.want, b.Spec().Class(id).NeedsShadow)
		})
	}
}

func TestAllImportsIsTransitive(t *testing.T) {
	b := testutil.NewSpec("app")
	gui := b.Import("gui")
	core := b.Import("core")
	spec := b.Spec()
	spec.Modules[gui].Imports = []ir.ModuleID{core}
	resolve(t, spec)

	assert.Equal(t, []ir.ModuleID{core, gui}, spec.Main().AllImports)
	assert.Equal(t, []ir.ModuleID{core}, spec.Modules[gui].AllImports)
	assert.Empty(t, spec.Modules[core].AllImports)
}

func TestKeepReferenceKeys(t *testing.T) {
	b := testutil.NewSpec("m")
	w := b.Class("W")
	keep := func(key int) ir.Arg {
		a := testutil.Arg(ir.PyObject)
		a.KeepReference, a.Key = true, key
		return a
	}
	setA := b.Method(w, "setA", testutil.Void(keep(0)), ir.OverloadFlags{})
	setB := b.Method(w, "setB", testutil.Void(keep(1)), ir.OverloadFlags{})
	fn := b.Function("remember", testutil.Void(keep(0), keep(0)))
	spec := b.Spec()
	resolve(t, spec)

	assert.Equal(t, 2, spec.Overload(setA).HostSig.Args[0].Key, "key 1 is taken explicitly")
	assert.Equal(t, 1, spec.Overload(setB).HostSig.Args[0].Key)
	assert.Equal(t, 3, spec.Overload(fn).HostSig.Args[0].Key)
	assert.Equal(t, 4, spec.Overload(fn).HostSig.Args[1].Key)
	assert.Equal(t, 5, spec.Main().NextKey)
}

func TestResolveIsRepeatable(t *testing.T) {
	build := func() *ir.Spec {
		b := testutil.NewSpec("m")
		base := b.Class("Base")
		derived := b.Class("Derived", base)
		b.Method(base, "f", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true})
		b.Method(derived, "f", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{Virtual: true})
		b.Method(derived, "g", testutil.Sig(testutil.Arg(ir.Bool)), ir.OverloadFlags{Virtual: true, Const: true})
		a := testutil.Arg(ir.PyObject)
		a.KeepReference = true
		b.Function("keep", testutil.Void(a))
		return b.Spec()
	}
	once := build()
	resolve(t, once)
	twice := build()
	resolve(t, twice)
	resolve(t, twice)

	assert.Equal(t, ir.MustFingerprint(once), ir.MustFingerprint(twice))
}
