package callgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/marshal"
)

// instanceType is the native type a class's constructors create: the
// shadow subclass when there is one.
func (e *Emitter) instanceType(id ir.ClassID) string {
	c := e.spec.Class(id)
	if c.NeedsShadow && !e.cfg.IsC() {
		return codegen.ShadowClass(e.spec, id)
	}
	if e.cfg.IsC() {
		return "struct " + c.Name.String()
	}
	return c.Name.String()
}

// EmitInit writes the init function of a class: its constructors are
// attempted in declaration order. The runtime reports the accumulated
// parse errors when none matches.
func (e *Emitter) EmitInit(p *codegen.Printer, id ir.ClassID) error {
	c := e.spec.Class(id)
	fn := codegen.InitFunc(e.spec, id)
	inst := e.instanceType(id)
	null := codegen.Null(codegen.Scope{C: e.cfg.IsC()})

	p.Line("static void *%s(bndSimpleWrapper *%s, PyObject *bndArgs, PyObject *bndKwds, PyObject **bndUnused, PyObject **%s, PyObject **%s)",
		fn, codegen.SelfVar, codegen.OwnerVar, codegen.ParseErrVar)
	p.Open("{")
	if e.cfg.Tracing {
		p.Line("bndTrace(BND_TRACE_INITS, %s);", codegen.Quote(fn+"()\n"))
	}
	p.Line("%s *%s = %s;", inst, codegen.CppVar, null)
	p.Blank()

	if c.Flags.Abstract {
		p.Line("if (!bndIsDerivedClass(%s))", codegen.SelfVar)
		p.Open("{")
		p.Line("bndAbstractClass(%s);", codegen.TypeObject(e.spec, id))
		p.Line("return %s;", null)
		p.Close("}")
		p.Blank()
	}

	for i := range c.Ctors {
		ct := &c.Ctors[i]
		if ct.Access == ir.Private || (ct.Access == ir.Protected && !c.NeedsShadow) {
			continue
		}
		if err := e.ctorAttempt(p, id, ct, inst); err != nil {
			return fmt.Errorf("%s: ctor %d: %w", fn, i, err)
		}
		p.Blank()
	}
	p.Line("return %s;", null)
	p.Close("}")
	return nil
}

func (e *Emitter) ctorAttempt(p *codegen.Printer, id ir.ClassID, ct *ir.Ctor, inst string) error {
	c := e.spec.Class(id)
	sc := codegen.Scope{C: e.cfg.IsC()}
	plan, err := marshal.Plan(e.spec, e.cfg, &ct.HostSig, marshal.Options{
		Dir:   marshal.Forward,
		Owner: "(PyObject *)" + codegen.SelfVar,
	})
	if err != nil {
		return err
	}
	hasCode := !ct.MethodCode.Empty()
	if sc.C && !hasCode && len(plan.Args) > 0 {
		return errors.New("a C structure has no constructor taking arguments")
	}

	p.Open("{")
	for _, d := range plan.Decls() {
		p.Line("%s", d)
	}
	kwds := "NULL"
	if ct.KeywordArgs {
		e.kwdList(p, &ct.HostSig)
		kwds = "bndKwdList"
	}
	p.Blank()
	call := "bndParseKwdArgs(" + codegen.ParseErrVar + ", bndArgs, bndKwds, " + kwds + ", bndUnused, " + codegen.Quote(plan.InFormat())
	if extra := plan.InExtra(); len(extra) > 0 {
		call += ", " + strings.Join(extra, ", ")
	}
	p.Line("if (%s))", call)
	p.Open("{")

	if ct.Deprecated || c.Flags.Deprecated {
		p.Line("if (bndDeprecated(%s, NULL) < 0)", codegen.Quote(e.className(id)))
		p.Open("{")
		errorCleanups(p, plan)
		p.Line("return %s;", codegen.Null(sc))
		p.Close("}")
		p.Blank()
	}
	if hasCode {
		p.Line("int %s = 0;", codegen.ErrVar)
		p.Blank()
	}
	if ct.PreHook != "" {
		p.Line("bndCallHook(%s);", codegen.Quote(ct.PreHook))
	}
	for _, st := range plan.Before() {
		p.Line("%s", st)
	}

	switch {
	case hasCode:
		p.Code(ct.MethodCode)
		p.Blank()
		p.Line("if (%s)", codegen.ErrVar)
		p.Open("{")
		errorCleanups(p, plan)
		p.Line("return %s;", codegen.Null(sc))
		p.Close("}")
	case sc.C:
		p.Line("%s = (%s *)bndMalloc(sizeof (%s));", codegen.CppVar, inst, inst)
	default:
		stmt := codegen.CppVar + " = new " + inst + "(" + plan.CallArgs() + ");"
		e.guardedCall(p, stmt, ct.Throws, e.releaseGIL(ct.ReleaseGIL, ct.HoldGIL), plan, codegen.Null(sc))
	}
	if ct.PostHook != "" {
		p.Line("bndCallHook(%s);", codegen.Quote(ct.PostHook))
	}
	p.Blank()

	for _, st := range plan.Post() {
		p.Line("%s", st)
	}
	cleanups(p, plan)
	if ct.Transfer {
		p.Line("*%s = Py_None;", codegen.OwnerVar)
	}
	if c.NeedsShadow && !sc.C {
		p.Line("%s->%s = %s;", codegen.CppVar, codegen.PySelfVar, codegen.SelfVar)
		p.Blank()
	}
	p.Line("return %s;", codegen.CppVar)
	p.Close("}")
	p.Close("}")
	return nil
}
