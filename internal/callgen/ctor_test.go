package callgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/testutil"
)

func emitInit(t *testing.T, spec *ir.Spec, cfg config.Config, id ir.ClassID) string {
	t.Helper()
	p := codegen.NewPrinter(false)
	require.NoError(t, New(spec, cfg, nil).EmitInit(p, id))
	return p.String()
}

func TestInitTriesCtorsInOrder(t *testing.T) {
	b := testutil.NewSpec("demo")
	w := b.Class("ns::Widget")
	b.Ctor(w)
	b.Ctor(w, testutil.Arg(ir.Int))

	out := emitInit(t, b.Spec(), config.Default(), w)

	assert.Contains(t, out, "static void *init_type_ns_Widget(bndSimpleWrapper *bndSelf, PyObject *bndArgs, PyObject *bndKwds, PyObject **bndUnused, PyObject **bndOwner, PyObject **bndParseErr)")
	assertInOrder(t, out,
		"ns::Widget *bndCpp = nullptr;",
		`if (bndParseKwdArgs(bndParseErr, bndArgs, bndKwds, NULL, bndUnused, ""))`,
		"bndCpp = new ns::Widget();",
		"return bndCpp;",
		`if (bndParseKwdArgs(bndParseErr, bndArgs, bndKwds, NULL, bndUnused, "i", &a0))`,
		"bndCpp = new ns::Widget(a0);",
		"return bndCpp;",
		"return nullptr;",
	)
	assert.NotContains(t, out, "bndPySelf")
	assert.NotContains(t, out, "bndAbstractClass")
}

func TestInitOfAbstractClassRequiresSubclass(t *testing.T) {
	b := testutil.NewSpec("demo")
	s := b.Class("ns::Shape")
	b.Ctor(s)
	spec := b.Spec()
	spec.Class(s).Flags.Abstract = true

	out := emitInit(t, spec, config.Default(), s)
	assertInOrder(t, out,
		"if (!bndIsDerivedClass(bndSelf))",
		"bndAbstractClass(bndType_ns_Shape);",
		"return nullptr;",
		"bndCpp = new ns::Shape();",
	)
}

func TestInitCreatesShadowInstances(t *testing.T) {
	b := testutil.NewSpec("demo")
	w := b.Class("ns::Widget")
	b.Ctor(w)
	hidden := b.Ctor(w, testutil.Arg(ir.Double))
	spec := b.Spec()
	spec.Class(w).Ctors[hidden].Access = ir.Protected

	out := emitInit(t, spec, config.Default(), w)
	assert.NotContains(t, out, "new ns::Widget(a0)")
	assert.NotContains(t, out, "bndns_Widget")

	spec.Class(w).NeedsShadow = true
	out = emitInit(t, spec, config.Default(), w)
	assertInOrder(t, out,
		"bndns_Widget *bndCpp = nullptr;",
		"bndCpp = new bndns_Widget();",
		"bndCpp->bndPySelf = bndSelf;",
		"bndCpp = new bndns_Widget(a0);",
	)
}

func TestInitPrivateCtorSkipped(t *testing.T) {
	b := testutil.NewSpec("demo")
	w := b.Class("ns::Widget")
	id := b.Ctor(w, testutil.Arg(ir.Int))
	spec := b.Spec()
	spec.Class(w).Ctors[id].Access = ir.Private
	spec.Class(w).NeedsShadow = true

	out := emitInit(t, spec, config.Default(), w)
	assert.NotContains(t, out, "bndParseKwdArgs")
}

func TestInitTransferAndCode(t *testing.T) {
	b := testutil.NewSpec("demo")
	w := b.Class("ns::Widget")
	owned := b.Ctor(w, testutil.Named(testutil.Arg(ir.Int), "size"))
	coded := b.Ctor(w, testutil.Arg(ir.Double))
	spec := b.Spec()
	c := spec.Class(w)
	c.Ctors[owned].Transfer = true
	c.Ctors[owned].KeywordArgs = true
	c.Ctors[coded].MethodCode = &ir.CodeBlock{Text: "bndCpp = ns::Widget::fromScale(a0);"}

	out := emitInit(t, spec, config.Default(), w)
	assertInOrder(t, out,
		`static const char *bndKwdList[] = {"size"};`,
		`bndParseKwdArgs(bndParseErr, bndArgs, bndKwds, bndKwdList, bndUnused, "i", &a0)`,
		"bndCpp = new ns::Widget(a0);",
		"*bndOwner = Py_None;",
		"int bndIsErr = 0;",
		"bndCpp = ns::Widget::fromScale(a0);",
		"if (bndIsErr)",
	)
}

func TestInitCTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Target, cfg.Exceptions = config.TargetC, false

	b := testutil.NewSpec("demo")
	pt := b.Class("Point")
	b.Ctor(pt)
	out := emitInit(t, b.Spec(), cfg, pt)
	assert.Contains(t, out, "struct Point *bndCpp = NULL;")
	assert.Contains(t, out, "bndCpp = (struct Point *)bndMalloc(sizeof (struct Point));")

	b.Ctor(pt, testutil.Arg(ir.Int))
	err := New(b.Spec(), cfg, nil).EmitInit(codegen.NewPrinter(false), pt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init_type_Point: ctor 1")
}
