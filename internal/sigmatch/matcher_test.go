package sigmatch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/bindgen/internal/ir"
)

func testSpec() *ir.Spec {
	return &ir.Spec{
		Enums: []ir.Enum{
			{Name: ir.ParseScopedName("Color"), Scope: ir.NoClass},
			{Name: ir.ParseScopedName("Mode"), Scope: ir.NoClass, Scoped: true},
		},
		Classes: []ir.Class{
			{Name: ir.ParseScopedName("A"), Enclosing: ir.NoClass, SubBase: ir.NoClass},
			{Name: ir.ParseScopedName("B"), Enclosing: ir.NoClass, SubBase: ir.NoClass},
		},
	}
}

func arg(c ir.Category) ir.Arg { return ir.NewArg(c) }

func withDefault(a ir.Arg, v ir.Value) ir.Arg {
	a.Default = v
	return a
}

func constrained(a ir.Arg) ir.Arg {
	a.Constrained = true
	return a
}

func enumArg(id ir.EnumID) ir.Arg {
	a := ir.NewArg(ir.EnumType)
	a.Enum = id
	return a
}

func classArg(id ir.ClassID) ir.Arg {
	a := ir.NewArg(ir.ClassType)
	a.Class = id
	return a
}

func sig(args ...ir.Arg) *ir.Signature {
	s := ir.NewSignature(args...)
	return &s
}

func TestDefaultedArgumentFolding(t *testing.T) {
	m := New(testSpec())
	withY := sig(arg(ir.Int), withDefault(arg(ir.Int), ir.IntValue(0)))
	xOnly := sig(arg(ir.Int))

	assert.True(t, m.Equivalent(withY, xOnly, false), "loose compares only required args")
	assert.False(t, m.Equivalent(withY, xOnly, true), "strict compares argument counts")
}

func TestLooseFamilies(t *testing.T) {
	m := New(testSpec())
	tests := []struct {
		name string
		a, b ir.Arg
		want bool
	}{
		{"string encodings", arg(ir.UTF8String), arg(ir.WString), true},
		{"float and double", arg(ir.Float), arg(ir.Double), true},
		{"constrained and plain double", constrained(arg(ir.Double)), arg(ir.Float), true},
		{"bool and int", arg(ir.Bool), arg(ir.Int), true},
		{"short and uint", arg(ir.Short), arg(ir.UInt), true},
		{"long and longlong", arg(ir.Long), arg(ir.LongLong), true},
		{"ulong and ulonglong", arg(ir.ULong), arg(ir.ULongLong), true},
		{"long and ulong", arg(ir.Long), arg(ir.ULong), false},
		{"int and long", arg(ir.Int), arg(ir.Long), false},
		{"int and double", arg(ir.Int), arg(ir.Double), false},
		{"two constrained same", constrained(arg(ir.Int)), constrained(arg(ir.Int)), true},
		{"two constrained differ", constrained(arg(ir.Int)), constrained(arg(ir.Short)), false},
		{"unscoped enum and int", enumArg(0), arg(ir.Int), true},
		{"unscoped enum and bool", enumArg(0), arg(ir.Bool), true},
		{"scoped enum and int", enumArg(1), arg(ir.Int), false},
		{"constrained enum and int", constrained(enumArg(0)), arg(ir.Int), false},
		{"different enums", enumArg(0), enumArg(1), false},
		{"same class", classArg(0), classArg(0), true},
		{"different classes", classArg(0), classArg(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Equivalent(sig(tt.a), sig(tt.b), false))
		})
	}
}

func TestStrictComparesIndirection(t *testing.T) {
	m := New(testSpec())
	ptr := classArg(0)
	ptr.Derefs = 1
	ref := classArg(0)
	ref.Reference = true
	cref := ref
	cref.Const = true

	assert.False(t, m.Equivalent(sig(ptr), sig(ref), true))
	assert.False(t, m.Equivalent(sig(ref), sig(cref), true))
	assert.True(t, m.Equivalent(sig(cref), sig(cref), true))
	assert.True(t, m.Equivalent(sig(ptr), sig(ref), false), "the host sees one wrapped object")
	assert.False(t, m.Equivalent(sig(arg(ir.Float)), sig(arg(ir.Double)), true))
}

func TestLooseIgnoresIndirection(t *testing.T) {
	m := New(testSpec())
	value := classArg(0)
	ptr := classArg(0)
	ptr.Derefs = 1
	ref := classArg(0)
	ref.Reference = true
	other := classArg(1)
	other.Derefs = 1

	tests := []struct {
		name string
		a, b ir.Arg
		want bool
	}{
		{"value and pointer", value, ptr, true},
		{"value and reference", value, ref, true},
		{"pointer and reference", ptr, ref, true},
		{"different classes", ptr, other, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.SameArg(&tt.a, &tt.b, false))
			if tt.want {
				assert.False(t, m.SameArg(&tt.a, &tt.b, true), "strict comparison keeps indirection")
			}
		})
	}
}

func TestLooseRelationIsNotTransitive(t *testing.T) {
	m := New(testSpec())
	a := sig(constrained(arg(ir.Int)))
	b := sig(arg(ir.Int))
	c := sig(constrained(arg(ir.Bool)))

	assert.True(t, m.Equivalent(a, b, false))
	assert.True(t, m.Equivalent(b, c, false))
	assert.False(t, m.Equivalent(a, c, false))
}

func TestSameNativeIncludesResult(t *testing.T) {
	m := New(testSpec())
	a := sig(arg(ir.Int))
	b := sig(arg(ir.Int))
	b.Result = ir.NewArg(ir.Int)

	assert.True(t, m.Equivalent(a, b, true))
	assert.False(t, m.SameNative(a, b))
}

func TestTemplatesAndFunctions(t *testing.T) {
	m := New(testSpec())
	tmpl := func(name string, args ...ir.Arg) ir.Arg {
		a := ir.NewArg(ir.TemplateType)
		a.Template = &ir.Template{Name: ir.ParseScopedName(name), Types: ir.NewSignature(args...)}
		return a
	}
	assert.True(t, m.Equivalent(sig(tmpl("std::vector", arg(ir.Int))), sig(tmpl("std::vector", arg(ir.Int))), true))
	assert.False(t, m.Equivalent(sig(tmpl("std::vector", arg(ir.Int))), sig(tmpl("std::vector", arg(ir.Long))), true))
	assert.False(t, m.Equivalent(sig(tmpl("std::vector", arg(ir.Int))), sig(tmpl("std::list", arg(ir.Int))), true))

	fn := func(args ...ir.Arg) ir.Arg {
		a := ir.NewArg(ir.Function)
		a.Func = sig(args...)
		return a
	}
	assert.True(t, m.Equivalent(sig(fn(arg(ir.Int))), sig(fn(arg(ir.Int))), true))
	assert.False(t, m.Equivalent(sig(fn(arg(ir.Int))), sig(fn(arg(ir.Double))), true))
}

// samplePool builds a varied set of signatures for property checks.
func samplePool() []*ir.Signature {
	bases := []ir.Arg{
		arg(ir.Int), arg(ir.Bool), arg(ir.Short), arg(ir.Long), arg(ir.ULongLong),
		arg(ir.Double), arg(ir.Float), arg(ir.String), arg(ir.UTF8String),
		enumArg(0), enumArg(1), classArg(0), classArg(1), arg(ir.PyObject),
	}
	var variants []ir.Arg
	for _, b := range bases {
		variants = append(variants, b, constrained(b))
		ref := b
		ref.Reference, ref.Const = true, true
		variants = append(variants, ref)
		variants = append(variants, withDefault(b, ir.IntValue(0)))
	}

	var pool []*ir.Signature
	pool = append(pool, sig())
	for _, v := range variants {
		pool = append(pool, sig(v))
	}
	for i := 0; i < len(variants); i += 3 {
		for j := 1; j < len(variants); j += 5 {
			pool = append(pool, sig(variants[i], variants[j]))
		}
	}
	return pool
}

func TestEquivalentIsSymmetric(t *testing.T) {
	m := New(testSpec())
	pool := samplePool()

	for _, strict := range []bool{true, false} {
		for i, a := range pool {
			for j, b := range pool {
				if m.Equivalent(a, b, strict) != m.Equivalent(b, a, strict) {
					assert.Fail(t, fmt.Sprintf("asymmetric pair %d,%d strict=%v", i, j, strict))
				}
			}
		}
	}
}

func TestEquivalentIsReflexive(t *testing.T) {
	m := New(testSpec())
	for i, s := range samplePool() {
		assert.True(t, m.Equivalent(s, s, true), "signature %d", i)
		assert.True(t, m.Equivalent(s, s, false), "signature %d", i)
	}
}

func TestShadowedAndWrappers(t *testing.T) {
	m := New(testSpec())
	base := &ir.Overload{NativeName: "f", HostSig: *sig(arg(ir.Int))}
	derived := &ir.Overload{NativeName: "f", HostSig: *sig(arg(ir.Short))}
	other := &ir.Overload{NativeName: "f", HostSig: *sig(arg(ir.Double))}

	assert.True(t, m.Shadowed(base, []*ir.Overload{derived}))
	assert.False(t, m.Shadowed(other, []*ir.Overload{derived}))

	assert.False(t, m.SameProtectedWrapper(base, derived))
	same := *base
	assert.True(t, m.SameProtectedWrapper(base, &same))
	same.Flags.Const = true
	assert.False(t, m.SameProtectedWrapper(base, &same))

	list := []*ir.Signature{&other.HostSig, &base.HostSig}
	assert.Equal(t, 1, m.FindNative(list, sig(arg(ir.Int))))
	assert.Equal(t, -1, m.FindNative(list, sig(arg(ir.Long))))
}
