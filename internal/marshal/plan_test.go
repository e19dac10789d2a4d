package marshal

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
)

const (
	widget    ir.ClassID = 0
	converted ir.ClassID = 1
	hidden    ir.ClassID = 2

	str ir.MappedTypeID = 0
	raw ir.MappedTypeID = 1

	color ir.EnumID = 0
	mode  ir.EnumID = 1
)

func fixture() *ir.Spec {
	return &ir.Spec{
		Classes: []ir.Class{
			{Name: ir.ParseScopedName("ns::Widget"), Enclosing: ir.NoClass, SubBase: ir.NoClass},
			{Name: ir.ParseScopedName("ns::Path"), Enclosing: ir.NoClass, SubBase: ir.NoClass,
				ConvertToCode: &ir.CodeBlock{Text: "return 1;"}},
			{Name: ir.ParseScopedName("ns::Widget::Hidden"), Enclosing: widget, SubBase: ir.NoClass,
				Flags: ir.ClassFlags{Protected: true}},
		},
		MappedTypes: []ir.MappedType{
			{Name: ir.ParseScopedName("std::string")},
			{Name: ir.ParseScopedName("Handle"), Flags: ir.MappedTypeFlags{NoRelease: true}},
		},
		Enums: []ir.Enum{
			{Name: ir.ParseScopedName("ns::Color"), Scope: ir.NoClass},
			{Name: ir.ParseScopedName("ns::Widget::Mode"), Scope: widget, Protected: true},
		},
	}
}

func classArg(id ir.ClassID, derefs int, ref, cnst bool) ir.Arg {
	a := ir.NewArg(ir.ClassType)
	a.Class, a.Derefs, a.Reference, a.Const = id, derefs, ref, cnst
	return a
}

func mappedArg(id ir.MappedTypeID, derefs int, ref, cnst bool) ir.Arg {
	a := ir.NewArg(ir.Mapped)
	a.Mapped, a.Derefs, a.Reference, a.Const = id, derefs, ref, cnst
	return a
}

func strArg(c ir.Category) ir.Arg {
	a := ir.NewArg(c)
	a.Const, a.Derefs = true, 1
	return a
}

func outArg(a ir.Arg) ir.Arg {
	a.In, a.Out = false, true
	return a
}

func forward(t *testing.T, sig ir.Signature, opts Options) *MarshalPlan {
	t.Helper()
	opts.Dir = Forward
	mp, err := Plan(fixture(), config.Default(), &sig, opts)
	require.NoError(t, err)
	return mp
}

func reverse(t *testing.T, sig ir.Signature) *MarshalPlan {
	t.Helper()
	mp, err := Plan(fixture(), config.Default(), &sig, Options{Dir: Reverse})
	require.NoError(t, err)
	return mp
}

func TestFormatTableComplete(t *testing.T) {
	for c := ir.Category(0); c < ir.NumCategories; c++ {
		f := formats[c]
		switch f.rule {
		case ruleFixed, rulePassthrough:
			assert.NotEmpty(t, f.code, c.String())
		case ruleString:
			assert.NotEmpty(t, f.char, c.String())
			assert.NotEmpty(t, f.ptr, c.String())
			assert.NotEmpty(t, f.array, c.String())
		case ruleNone:
			t.Errorf("%s has no format row", c)
		}
	}

	seen := map[string]bool{}
	for mask, code := range classFormats {
		assert.NotEmpty(t, code, "mask %d", mask)
		assert.False(t, seen[code], "duplicate class code %s", code)
		seen[code] = true
	}
}

// sampleArg returns a descriptor of category c with every entity reference
// pointing at something that exists in the fixture.
func sampleArg(c ir.Category) ir.Arg {
	a := ir.NewArg(c)
	switch c {
	case ir.ClassType:
		a.Class = widget
	case ir.Mapped:
		a.Mapped = str
	case ir.EnumType:
		a.Enum = color
	case ir.TemplateType:
		a.Template = &ir.Template{Name: ir.ParseScopedName("std::vector"), Types: ir.NewSignature(ir.NewArg(ir.Int))}
	case ir.Struct, ir.Union, ir.Capsule:
		a.TypeName = ir.ParseScopedName("opaque")
	}
	return a
}

var classCode = regexp.MustCompile(`^J[0-7]$`)

func TestEveryShapeHasOneCodeOrIsRejected(t *testing.T) {
	spec := fixture()
	dirs := []struct{ in, out bool }{{true, false}, {false, true}, {true, true}}

	for _, target := range []config.Target{config.TargetCPP, config.TargetC} {
		cfg := config.Default()
		cfg.Target = target
		for c := ir.Category(0); c < ir.NumCategories; c++ {
			for derefs := 0; derefs <= 2; derefs++ {
				for _, ref := range []bool{false, true} {
					for _, cnst := range []bool{false, true} {
						for _, d := range dirs {
							for _, dir := range []Direction{Forward, Reverse} {
								a := sampleArg(c)
								a.Derefs, a.Reference, a.Const = derefs, ref, cnst
								a.In, a.Out = d.in, d.out
								name := fmt.Sprintf("%s/%s/%d/%v/%v/%v/%v/%s", target, c, derefs, ref, cnst, d.in, d.out, dir)

								sig := ir.NewSignature(a)
								var mp *MarshalPlan
								var err error
								require.NotPanics(t, func() {
									mp, err = Plan(spec, cfg, &sig, Options{Dir: dir})
								}, name)
								if err != nil {
									var ue *UnmappableError
									assert.True(t, errors.As(err, &ue), name)
									continue
								}
								ap := mp.Args[0]
								if d.in {
									require.NotNil(t, ap.In, name)
									assert.NotEmpty(t, ap.In.Code, name)
								}
								if d.out {
									require.NotNil(t, ap.Out, name)
									assert.NotEmpty(t, ap.Out.Code, name)
								}
								if c.IsClassLike() && dir == Forward && d.in {
									assert.Regexp(t, classCode, ap.In.Code, name)
								}
							}
						}
					}
				}

				res := sampleArg(c)
				res.In = false
				res.Derefs = derefs
				for _, dir := range []Direction{Forward, Reverse} {
					sig := ir.NewSignature()
					sig.Result = res
					var mp *MarshalPlan
					var err error
					require.NotPanics(t, func() {
						mp, err = Plan(spec, cfg, &sig, Options{Dir: dir})
					})
					if err != nil {
						var ue *UnmappableError
						assert.True(t, errors.As(err, &ue))
						assert.Equal(t, -1, ue.Arg)
						continue
					}
					if c == ir.Void && derefs == 0 {
						assert.Nil(t, mp.Result)
						continue
					}
					require.NotNil(t, mp.Result, "%s/%d/%s", c, derefs, dir)
					assert.NotEmpty(t, mp.Result.Item.Code)
				}
			}
		}
	}
}

func TestClassFormatFlags(t *testing.T) {
	disallow := classArg(widget, 1, false, false)
	disallow.DisallowNone = true
	allowNone := mappedArg(str, 0, true, true)
	allowNone.AllowNone = true

	cases := []struct {
		name string
		arg  ir.Arg
		want string
	}{
		{"pointer", classArg(widget, 1, false, false), "J0"},
		{"const reference", classArg(widget, 0, true, true), "J4"},
		{"pointer refusing None", disallow, "J4"},
		{"converted reference", classArg(converted, 0, true, true), "J5"},
		{"mapped pointer", mappedArg(str, 1, false, false), "J1"},
		{"mapped reference", mappedArg(str, 0, true, true), "J5"},
		{"mapped reference allowing None", allowNone, "J1"},
		{"mapped without release", mappedArg(raw, 0, true, true), "J4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mp := forward(t, ir.NewSignature(tc.arg), Options{})
			assert.Equal(t, tc.want, mp.InFormat())
		})
	}

	out := classArg(widget, 0, true, false)
	out.In, out.Out = false, true
	rev := reverse(t, ir.NewSignature(out))
	assert.Equal(t, "J6", rev.Args[0].Out.Code)

	mout := mappedArg(str, 0, true, false)
	mout.In, mout.Out = false, true
	rev = reverse(t, ir.NewSignature(mout))
	assert.Equal(t, "J7", rev.Args[0].Out.Code)
}

func TestStringArguments(t *testing.T) {
	plain := forward(t, ir.NewSignature(strArg(ir.String)), Options{})
	assert.Equal(t, "s", plain.InFormat())
	assert.Equal(t, []string{"&a0"}, plain.InExtra())
	assert.Empty(t, plain.Args[0].Temps)
	assert.Empty(t, plain.Cleanups())
	assert.Equal(t, []string{"const char *a0;"}, plain.Decls())
	assert.Equal(t, "a0", plain.CallArgs())

	utf8 := forward(t, ir.NewSignature(strArg(ir.UTF8String)), Options{})
	assert.Equal(t, "A8", utf8.InFormat())
	assert.Equal(t, []string{"&bndEnc0", "&a0"}, utf8.InExtra())
	assert.Equal(t, []string{"PyObject *bndEnc0;"}, utf8.Args[0].Temps)
	require.Len(t, utf8.Cleanups(), 1)
	assert.Equal(t, "Py_XDECREF(bndEnc0);", utf8.Cleanups()[0].Code)

	wide := forward(t, ir.NewSignature(strArg(ir.WString)), Options{})
	assert.Equal(t, "x", wide.InFormat())
	require.Len(t, wide.Cleanups(), 1)
	assert.Equal(t, "bndFree(a0);", wide.Cleanups()[0].Code)

	ch := ir.NewArg(ir.String)
	assert.Equal(t, "c", forward(t, ir.NewSignature(ch), Options{}).InFormat())
}

func TestCleanupOrder(t *testing.T) {
	sig := ir.NewSignature(
		strArg(ir.UTF8String),
		mappedArg(str, 0, true, true),
		strArg(ir.WString),
		outArg(classArg(widget, 1, false, false)),
	)
	mp := forward(t, sig, Options{})

	var codes []string
	for _, c := range mp.Cleanups() {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{
		"bndFree(a2);",
		"bndReleaseType(const_cast<std::string *>(a1), bndType_std_string, bndState1);",
		"Py_XDECREF(bndEnc0);",
	}, codes)

	codes = nil
	for _, c := range mp.ErrorCleanups() {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{
		"delete a3;",
		"bndFree(a2);",
		"bndReleaseType(const_cast<std::string *>(a1), bndType_std_string, bndState1);",
		"Py_XDECREF(bndEnc0);",
	}, codes)

	assert.Equal(t, []string{"a3 = new ns::Widget();"}, mp.Before())
	assert.Equal(t, "N", mp.OutFormat())
	assert.Equal(t, []string{"a3", "bndType_ns_Widget", "nullptr"}, mp.OutExtra())
}

func TestDeferredCleanupRunsLast(t *testing.T) {
	inout := mappedArg(str, 0, true, false)
	inout.Out = true
	sig := ir.NewSignature(mappedArg(str, 0, true, true), inout)

	mp := forward(t, sig, Options{})
	cs := mp.Cleanups()
	require.Len(t, cs, 2)
	assert.Equal(t, 0, cs[0].Arg)
	assert.False(t, cs[0].Deferred)
	assert.Equal(t, 1, cs[1].Arg)
	assert.True(t, cs[1].Deferred)

	// The output copies the converted value before it is released.
	assert.Equal(t, "N", mp.OutFormat())
	assert.Equal(t, "new std::string(*a1)", mp.OutExtra()[0])
}

func TestKeepReference(t *testing.T) {
	a := classArg(widget, 1, false, false)
	a.KeepReference, a.Key = true, 3

	mp := forward(t, ir.NewSignature(a), Options{Owner: "bndSelf"})
	assert.Equal(t, "@J0", mp.InFormat())
	assert.Equal(t, []string{"&bndWrapper0", "bndType_ns_Widget", "&a0"}, mp.InExtra())
	assert.Equal(t, []string{"bndKeepReference(bndSelf, 3, bndWrapper0);"}, mp.Post())
	assert.Equal(t, 1, mp.KeepReferences())

	tests := []struct {
		name   string
		result *ir.Arg
		want   string
	}{
		{name: "no receiver and no result", want: "bndKeepReference(nullptr, 3, bndWrapper0);"},
		{name: "no receiver with a result", result: ptrTo(classArg(widget, 1, false, false)), want: "bndKeepReference(bndResObj, 3, bndWrapper0);"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := ir.NewSignature(a)
			if tt.result != nil {
				sig.Result = *tt.result
			}
			mp := forward(t, sig, Options{})
			assert.Equal(t, []string{tt.want}, mp.Post())
			assert.Empty(t, mp.ResultPost())
		})
	}
}

func TestKeepReferenceOnResult(t *testing.T) {
	res := classArg(widget, 1, false, false)
	res.KeepReference, res.Key = true, 5

	tests := []struct {
		name  string
		owner string
		want  string
	}{
		{name: "receiver", owner: "bndSelf", want: "bndKeepReference(bndSelf, 5, bndResObj);"},
		{name: "no receiver", want: "bndKeepReference(nullptr, 5, bndResObj);"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := ir.NewSignature()
			sig.Result = res
			mp := forward(t, sig, Options{Owner: tt.owner})
			assert.Empty(t, mp.Post())
			assert.Equal(t, []string{tt.want}, mp.ResultPost())
			assert.Equal(t, 1, mp.KeepReferences())
		})
	}
}

func ptrTo(a ir.Arg) *ir.Arg { return &a }

func TestTransferBookkeeping(t *testing.T) {
	a := classArg(widget, 1, false, false)
	a.TransferToNative = true
	b := classArg(widget, 1, false, false)
	b.TransferToHost = true

	mp := forward(t, ir.NewSignature(a, b), Options{Owner: "bndSelf"})
	assert.Equal(t, []string{
		"bndTransferTo(bndWrapper0, bndSelf);",
		"bndTransferBack(bndWrapper1);",
	}, mp.Post())

	fn := forward(t, ir.NewSignature(a), Options{})
	assert.Equal(t, []string{"bndTransferTo(bndWrapper0, Py_None);"}, fn.Post())
}

func TestArrays(t *testing.T) {
	arr := strArg(ir.String)
	arr.Array = true
	size := ir.NewArg(ir.Int)
	size.ArraySize = true

	mp := forward(t, ir.NewSignature(arr, size), Options{})
	assert.Equal(t, "k", mp.InFormat())
	assert.Equal(t, []string{"&a0", "&a1"}, mp.InExtra())
	assert.Equal(t, "Py_ssize_t a1;", mp.Args[1].Decl)
	assert.Equal(t, 0, mp.Args[1].SizeFor)
	assert.Equal(t, "a0, static_cast<int>(a1)", mp.CallArgs())

	objs := classArg(widget, 1, false, false)
	objs.Array = true
	mp = forward(t, ir.NewSignature(objs, size), Options{})
	assert.Equal(t, "r", mp.InFormat())
	assert.Equal(t, []string{"bndType_ns_Widget", "&a0", "&a1"}, mp.InExtra())
	assert.Equal(t, "delete[] a0;", mp.Cleanups()[0].Code)

	sig := ir.NewSignature(arr)
	_, err := Plan(fixture(), config.Default(), &sig, Options{})
	var ue *UnmappableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 0, ue.Arg)

	ints := ir.NewArg(ir.Int)
	ints.Derefs, ints.Array = 1, true
	sig = ir.NewSignature(ints, size)
	_, err = Plan(fixture(), config.Default(), &sig, Options{})
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Error(), "fundamental")
}

func TestOutputsAndResult(t *testing.T) {
	count := ir.NewArg(ir.Int)
	count.Derefs = 1
	sig := ir.NewSignature(outArg(count))
	sig.Result = ir.NewArg(ir.Double)

	mp := forward(t, sig, Options{})
	assert.Equal(t, "", mp.InFormat())
	assert.Equal(t, []string{"int a0;"}, mp.Decls())
	assert.Equal(t, "&a0", mp.CallArgs())
	assert.Equal(t, "(di)", mp.OutFormat())
	assert.Equal(t, []string{"bndRes", "a0"}, mp.OutExtra())
	assert.Equal(t, "double bndRes;", mp.Result.Decl)
	assert.Equal(t, 2, mp.NumOutputs())
}

func TestDefaultsStartOptionalPart(t *testing.T) {
	opt := ir.NewArg(ir.Int)
	opt.Default = ir.IntValue(5)
	def := classArg(widget, 0, true, true)
	def.Default = ir.ExprValue("ns::Widget()")

	mp := forward(t, ir.NewSignature(ir.NewArg(ir.Int), opt, def), Options{})
	assert.Equal(t, "i|iJ4", mp.InFormat())
	assert.Equal(t, []string{
		"int a0;",
		"int a1 = 5;",
		"const ns::Widget &a2def = ns::Widget();",
		"const ns::Widget *a2 = &a2def;",
	}, mp.Decls())
}

func TestForwardResultOwnership(t *testing.T) {
	byValue := ir.NewSignature()
	byValue.Result = classArg(widget, 0, false, false)
	mp := forward(t, byValue, Options{})
	assert.Equal(t, "ns::Widget *bndRes;", mp.Result.Decl)
	assert.Equal(t, "new ns::Widget(", mp.Result.Prefix)
	assert.Equal(t, ")", mp.Result.Suffix)
	assert.True(t, mp.Result.HeapCopy)
	assert.Equal(t, "N", mp.OutFormat())

	ptr := ir.NewSignature()
	ptr.Result = classArg(widget, 1, false, false)
	mp = forward(t, ptr, Options{Owner: "bndSelf", ResultToNative: true})
	assert.Equal(t, Item{Code: "D", Extra: []string{"bndRes", "bndType_ns_Widget", "bndSelf"}}, mp.Result.Item)

	mp = forward(t, ptr, Options{ResultToHost: true})
	assert.Equal(t, "N", mp.Result.Item.Code)

	mp = forward(t, ptr, Options{})
	assert.Equal(t, Item{Code: "D", Extra: []string{"bndRes", "bndType_ns_Widget", "nullptr"}}, mp.Result.Item)

	ref := ir.NewSignature()
	ref.Result = classArg(widget, 0, true, true)
	mp = forward(t, ref, Options{})
	assert.Equal(t, "&", mp.Result.Prefix)
	assert.Equal(t, "const ns::Widget *bndRes;", mp.Result.Decl)

	cfg := config.Default()
	cfg.Target = config.TargetC
	cfg.Exceptions = false
	_, err := Plan(fixture(), cfg, &byValue, Options{})
	var ue *UnmappableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, -1, ue.Arg)
}

func TestReversePlan(t *testing.T) {
	sig := ir.NewSignature(classArg(widget, 0, true, true), ir.NewArg(ir.Int), classArg(widget, 0, false, false))
	sig.Result = mappedArg(str, 0, false, false)

	mp := reverse(t, sig)
	assert.Equal(t, "DiN", mp.InFormat())
	assert.Equal(t, []string{
		"const_cast<ns::Widget *>(&a0)", "bndType_ns_Widget", "nullptr",
		"a1",
		"new ns::Widget(a2)", "bndType_ns_Widget", "nullptr",
	}, mp.InExtra())
	assert.Empty(t, mp.Decls())
	assert.Equal(t, "a0, a1, a2", mp.CallArgs())

	require.NotNil(t, mp.Result)
	assert.Equal(t, "std::string *bndRes = nullptr;", mp.Result.Decl)
	assert.Equal(t, "J5", mp.Result.Item.Code)
	assert.Equal(t, []string{"bndType_std_string", "&bndRes", "&bndResState"}, mp.Result.Item.Extra)
	assert.Equal(t, "bndResState", mp.Result.State)

	out := ir.NewArg(ir.Int)
	out.Derefs, out.Out = 1, true
	mp = reverse(t, ir.NewSignature(out))
	assert.Equal(t, Item{Code: "i", Extra: []string{"*a0"}}, *mp.Args[0].In)
	assert.Equal(t, Item{Code: "i", Extra: []string{"a0"}}, *mp.Args[0].Out)
}

func TestProtectedEnumUsesStandIn(t *testing.T) {
	e := ir.NewArg(ir.EnumType)
	e.Enum = mode

	outside := forward(t, ir.NewSignature(e), Options{})
	assert.Equal(t, "i", outside.InFormat())
	assert.Equal(t, []string{"int a0;"}, outside.Decls())

	inside := forward(t, ir.NewSignature(e), Options{Protected: true})
	assert.Equal(t, "E", inside.InFormat())
	assert.Equal(t, []string{"bndType_ns_Widget_Mode", "&a0"}, inside.InExtra())
	assert.Equal(t, []string{"ns::Widget::Mode a0;"}, inside.Decls())
}
