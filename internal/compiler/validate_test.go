package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/testutil"
)

func codes(errs []ValidationError) []string {
	out := []string{}
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateCleanSpec(t *testing.T) {
	b := testutil.NewSpec("shapes")
	shape := b.Class("Shape")
	b.Ctor(shape, testutil.Arg(ir.Int))
	b.Method(shape, "area", testutil.Sig(testutil.Arg(ir.Double)), ir.OverloadFlags{Virtual: true, Const: true})
	b.Method(shape, "scale", testutil.Void(testutil.Arg(ir.Double)), ir.OverloadFlags{})
	b.Method(shape, "scale", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{})
	b.Function("make", testutil.Sig(testutil.ClassPtr(shape)))

	assert.Empty(t, Validate(b.Spec(), config.Default()))
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *testutil.SpecBuilder)
		cfg   func(c *config.Config)
		code  string
	}{
		{
			name: "array without size",
			build: func(b *testutil.SpecBuilder) {
				a := testutil.Ptr(testutil.Arg(ir.Int))
				a.Array = true
				b.Function("sum", testutil.Void(a))
			},
			code: ErrArrayPairing,
		},
		{
			name: "size without array",
			build: func(b *testutil.SpecBuilder) {
				a := testutil.Arg(ir.Int)
				a.ArraySize = true
				b.Function("sum", testutil.Void(a))
			},
			code: ErrArrayPairing,
		},
		{
			name: "key without keep_reference",
			build: func(b *testutil.SpecBuilder) {
				a := testutil.Arg(ir.PyObject)
				a.Key = 3
				b.Function("hold", testutil.Void(a))
			},
			code: ErrKeepReference,
		},
		{
			name: "keep_reference on void result",
			build: func(b *testutil.SpecBuilder) {
				s := testutil.Void()
				s.Result.KeepReference = true
				b.Function("hold", s)
			},
			code: ErrKeepReference,
		},
		{
			name: "ellipsis output",
			build: func(b *testutil.SpecBuilder) {
				b.Function("f", testutil.Void(testutil.Out(testutil.Arg(ir.Ellipsis))))
			},
			code: ErrOutputCategory,
		},
		{
			name: "neither in nor out",
			build: func(b *testutil.SpecBuilder) {
				a := testutil.Arg(ir.Int)
				a.In = false
				b.Function("f", testutil.Void(a))
			},
			code: ErrOutputCategory,
		},
		{
			name: "abstract not virtual",
			build: func(b *testutil.SpecBuilder) {
				b.Method(b.Class("A"), "f", testutil.Void(), ir.OverloadFlags{Abstract: true})
			},
			code: ErrAbstractNotVirt,
		},
		{
			name: "duplicate overload",
			build: func(b *testutil.SpecBuilder) {
				a := b.Class("A")
				b.Method(a, "f", testutil.Void(testutil.Arg(ir.Int)), ir.OverloadFlags{})
				b.Method(a, "f", testutil.Sig(testutil.Arg(ir.Bool), testutil.Arg(ir.Int)), ir.OverloadFlags{})
			},
			code: ErrDuplicateOverload,
		},
		{
			name: "transfer on int",
			build: func(b *testutil.SpecBuilder) {
				a := testutil.Arg(ir.Int)
				a.TransferToNative = true
				b.Function("f", testutil.Void(a))
			},
			code: ErrTransferCategory,
		},
		{
			name: "virtual with C target",
			build: func(b *testutil.SpecBuilder) {
				b.Method(b.Class("A"), "f", testutil.Void(), ir.OverloadFlags{Virtual: true})
			},
			cfg: func(c *config.Config) {
				c.Target, c.Exceptions = config.TargetC, false
			},
			code: ErrCTarget,
		},
		{
			name: "protected with C target",
			build: func(b *testutil.SpecBuilder) {
				o := b.Method(b.Class("A"), "f", testutil.Void(), ir.OverloadFlags{})
				b.Spec().Overload(o).Access = ir.Protected
			},
			cfg: func(c *config.Config) {
				c.Target, c.Exceptions = config.TargetC, false
			},
			code: ErrCTarget,
		},
		{
			name: "allow and disallow none",
			build: func(b *testutil.SpecBuilder) {
				a := testutil.ClassPtr(b.Class("A"))
				a.AllowNone, a.DisallowNone = true, true
				b.Function("f", testutil.Void(a))
			},
			code: ErrNoneConflict,
		},
		{
			name: "static virtual",
			build: func(b *testutil.SpecBuilder) {
				b.Method(b.Class("A"), "f", testutil.Void(), ir.OverloadFlags{Static: true, Virtual: true})
			},
			code: ErrStaticVirtual,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testutil.NewSpec("m")
			tt.build(b)
			cfg := config.Default()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			errs := Validate(b.Spec(), cfg)
			assert.Equal(t, []string{tt.code}, codes(errs))
		})
	}
}

func TestValidateDanglingIndexStopsEarly(t *testing.T) {
	b := testutil.NewSpec("m")
	bad := testutil.ClassPtr(ir.ClassID(42))
	bad.AllowNone, bad.DisallowNone = true, true
	b.Function("f", testutil.Void(bad))

	errs := Validate(b.Spec(), config.Default())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDanglingIndex, errs[0].Code)
	assert.Equal(t, "overloads[0].args[0].class", errs[0].Field)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	b := testutil.NewSpec("m")
	a := b.Class("A")
	b.Method(a, "f", testutil.Void(), ir.OverloadFlags{Abstract: true})
	b.Method(a, "g", testutil.Void(), ir.OverloadFlags{Static: true, Virtual: true})

	errs := Validate(b.Spec(), config.Default())
	assert.Equal(t, []string{ErrAbstractNotVirt, ErrStaticVirtual}, codes(errs))
	assert.Equal(t, "A::f", errs[0].Entity)
	assert.Contains(t, errs[0].Error(), "[E204]")
}

func TestImportedClassesSkipTargetCheck(t *testing.T) {
	b := testutil.NewSpec("m")
	core := b.Import("core")
	base := b.ClassIn(core, "core::Base")
	b.Method(base, "f", testutil.Void(), ir.OverloadFlags{Virtual: true})

	cfg := config.Default()
	cfg.Target, cfg.Exceptions = config.TargetC, false
	assert.Empty(t, Validate(b.Spec(), cfg))
}
