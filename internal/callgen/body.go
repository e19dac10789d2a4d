package callgen

import (
	"strings"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/marshal"
)

// body writes the call sequence that runs once the parse has succeeded:
// guard, native call inside the exception guard, result conversion,
// ownership bookkeeping and cleanup.
func (e *Emitter) body(p *codegen.Printer, s *site, k Kind, o *ir.Overload, plan *marshal.MarshalPlan) {
	cls := codegen.Quote(e.className(o.Scope))
	if o.Scope == ir.NoClass {
		cls = "NULL"
	}
	name := codegen.Quote(e.hostName(s.member))

	if o.Flags.Abstract && k.hasReceiver() {
		p.Line("if (%s)", codegen.SelfWasArg)
		p.Open("{")
		errorCleanups(p, plan)
		p.Line("bndAbstractMethod(%s, %s);", cls, name)
		p.Line("return %s;", s.fail)
		p.Close("}")
		p.Blank()
	}
	if o.Flags.Deprecated {
		p.Line("if (bndDeprecated(%s, %s) < 0)", cls, name)
		p.Open("{")
		errorCleanups(p, plan)
		p.Line("return %s;", s.fail)
		p.Close("}")
		p.Blank()
	}

	if plan.Result != nil {
		p.Line("%s", plan.Result.Decl)
	}
	hasCode := !o.MethodCode.Empty()
	if hasCode {
		p.Line("int %s = 0;", codegen.ErrVar)
	}
	if plan.Result != nil || hasCode {
		p.Blank()
	}
	if o.PreHook != "" {
		p.Line("bndCallHook(%s);", codegen.Quote(o.PreHook))
	}
	p.Code(o.PreMethodCode)
	for _, st := range plan.Before() {
		p.Line("%s", st)
	}

	if hasCode {
		p.Code(o.MethodCode)
	} else {
		stmt := e.callExpr(k, o, plan) + ";"
		if r := plan.Result; r != nil {
			stmt = r.Var + " = " + r.Prefix + e.callExpr(k, o, plan) + r.Suffix + ";"
		}
		e.guardedCall(p, stmt, o.Throws, e.releaseGIL(o.Flags.ReleaseGIL, o.Flags.HoldGIL), plan, s.fail)
	}

	var conds []string
	if hasCode {
		conds = append(conds, codegen.ErrVar)
	}
	if o.Flags.RaisesHostError || e.spec.Modules[e.moduleOf(s.member)].Flags.AllRaiseHostError {
		conds = append(conds, "PyErr_Occurred()")
	}
	if len(conds) > 0 {
		p.Blank()
		p.Line("if (%s)", strings.Join(conds, " || "))
		p.Open("{")
		errorCleanups(p, plan)
		p.Line("return %s;", s.fail)
		p.Close("}")
	}
	if o.PostHook != "" {
		p.Line("bndCallHook(%s);", codegen.Quote(o.PostHook))
	}
	p.Blank()

	e.results(p, s, o, plan)
}

func (e *Emitter) moduleOf(m *ir.Member) ir.ModuleID {
	if m.Module == ir.NoModule || int(m.Module) >= len(e.spec.Modules) {
		return e.spec.Module
	}
	return m.Module
}

func (e *Emitter) releaseGIL(release, hold bool) bool {
	if hold {
		return false
	}
	return release || e.cfg.ReleaseGIL
}

// guarded reports whether a call with the given throw list gets a
// try/catch region.
func (e *Emitter) guarded(throws *ir.ThrowList) bool {
	return e.cfg.Exceptions && !e.cfg.IsC() && !throws.Closed()
}

// guardedCall writes a native call statement, releasing the lock around it
// and translating native exceptions. Every catch path releases the plan's
// temporaries before returning fail.
func (e *Emitter) guardedCall(p *codegen.Printer, stmt string, throws *ir.ThrowList, release bool, plan *marshal.MarshalPlan, fail string) {
	guard := e.guarded(throws)
	if release {
		p.Line("Py_BEGIN_ALLOW_THREADS")
	}
	if !guard {
		p.Line("%s", stmt)
	} else {
		p.Line("try")
		p.Open("{")
		p.Line("%s", stmt)
		p.Close("}")
		if throws != nil {
			for _, id := range throws.Items {
				e.catchClause(p, id, release, plan, fail)
			}
		}
		p.Line("catch (...)")
		p.Open("{")
		if release {
			p.Line("Py_BLOCK_THREADS")
			p.Blank()
		}
		errorCleanups(p, plan)
		p.Line("bndRaiseUnknownException();")
		p.Line("return %s;", fail)
		p.Close("}")
	}
	if release {
		p.Line("Py_END_ALLOW_THREADS")
	}
}

func (e *Emitter) catchClause(p *codegen.Printer, id ir.ExceptionID, release bool, plan *marshal.MarshalPlan, fail string) {
	x := e.spec.Exception(id)
	named := x.Class != ir.NoClass || !x.RaiseCode.Empty()
	if named {
		p.Line("catch (%s &bndExcept)", x.Name)
	} else {
		p.Line("catch (%s &)", x.Name)
	}
	p.Open("{")
	if release {
		p.Line("Py_BLOCK_THREADS")
		p.Blank()
	}
	errorCleanups(p, plan)
	switch {
	case !x.RaiseCode.Empty():
		p.Code(x.RaiseCode)
	case x.Class != ir.NoClass:
		p.Line("/* Hope that there is a valid copy ctor. */")
		p.Line("bndRaiseTypeException(%s, new %s(bndExcept));", codegen.TypeObject(e.spec, x.Class), e.spec.Class(x.Class).Name)
	default:
		p.Line("bndRaiseException(%s, NULL);", codegen.ExceptionObject(e.spec, id))
	}
	p.Line("return %s;", fail)
	p.Close("}")
}

// callExpr is the native call of an overload with the plan's arguments.
func (e *Emitter) callExpr(k Kind, o *ir.Overload, plan *marshal.MarshalPlan) string {
	args := plan.CallArgs()
	name := o.NativeName
	if k == KindFunction || o.Scope == ir.NoClass {
		return name + "(" + args + ")"
	}
	cls := e.spec.Class(o.Scope).Name.String()
	sc := codegen.Scope{C: e.cfg.IsC()}

	if k == KindStatic {
		if o.Access == ir.Protected {
			return codegen.ShadowClass(e.spec, o.Scope) + "::" + codegen.ProtectWrapper(name, false) + "(" + args + ")"
		}
		if sc.C {
			return name + "(" + args + ")"
		}
		return cls + "::" + name + "(" + args + ")"
	}

	if sc.C {
		// Plain C has no member functions; the instance is the first
		// argument.
		if args == "" {
			return name + "(" + codegen.CppVar + ")"
		}
		return name + "(" + codegen.CppVar + ", " + args + ")"
	}

	if o.Access == ir.Protected {
		recv := codegen.Cast(codegen.ShadowClass(e.spec, o.Scope)+" *", codegen.CppVar, sc)
		if k == KindVirtual {
			wargs := codegen.SelfWasArg
			if args != "" {
				wargs += ", " + args
			}
			return recv + "->" + codegen.ProtectWrapper(name, true) + "(" + wargs + ")"
		}
		return recv + "->" + codegen.ProtectWrapper(name, false) + "(" + args + ")"
	}
	if k == KindVirtual && !o.Flags.Abstract {
		return "(" + codegen.SelfWasArg + " ? " + codegen.CppVar + "->" + cls + "::" + name + "(" + args + ") : " +
			codegen.CppVar + "->" + name + "(" + args + "))"
	}
	return codegen.CppVar + "->" + name + "(" + args + ")"
}

// results converts the outputs, applies ownership bookkeeping, releases
// temporaries and returns.
func (e *Emitter) results(p *codegen.Printer, s *site, o *ir.Overload, plan *marshal.MarshalPlan) {
	ret := ir.SlotReturnsObject
	if s.member.Slot != ir.NoSlot {
		ret = s.member.Slot.Returns()
	}

	switch ret {
	case ir.SlotReturnsObject:
		if plan.NumOutputs() == 0 {
			e.post(p, o, plan)
			cleanups(p, plan)
			if s.member.Slot.Group() == ir.SlotGroupInplace {
				p.Line("Py_INCREF(%s);", codegen.SelfVar)
				p.Line("return %s;", codegen.SelfVar)
				return
			}
			p.Line("Py_INCREF(Py_None);")
			p.Line("return Py_None;")
			return
		}
		build := "bndBuildResult(NULL, " + codegen.Quote(plan.OutFormat())
		if extra := plan.OutExtra(); len(extra) > 0 {
			build += ", " + strings.Join(extra, ", ")
		}
		build += ")"
		p.Line("PyObject *%s = %s;", codegen.ResultObjVar, build)
		p.Blank()
		// Nothing is registered against a result that failed to build.
		p.Line("if (!%s)", codegen.ResultObjVar)
		p.Open("{")
		cleanups(p, plan)
		p.Line("return %s;", s.fail)
		p.Close("}")
		p.Blank()
		e.post(p, o, plan)
		for _, st := range plan.ResultPost() {
			p.Line("%s", st)
		}
		cleanups(p, plan)
		p.Line("return %s;", codegen.ResultObjVar)

	case ir.SlotReturnsInt:
		e.post(p, o, plan)
		cleanups(p, plan)
		p.Line("return 0;")

	default:
		e.post(p, o, plan)
		cleanups(p, plan)
		if plan.Result == nil {
			p.Line("return 0;")
			return
		}
		p.Line("return %s;", plan.Result.Var)
	}
}

func (e *Emitter) post(p *codegen.Printer, o *ir.Overload, plan *marshal.MarshalPlan) {
	for _, st := range plan.Post() {
		p.Line("%s", st)
	}
	if o.Flags.TransferThis && o.Scope != ir.NoClass && !o.Flags.Static {
		p.Line("bndTransferTo(%s, Py_None);", codegen.SelfVar)
	}
}

func cleanups(p *codegen.Printer, plan *marshal.MarshalPlan) {
	cs := plan.Cleanups()
	for _, c := range cs {
		p.Line("%s", c.Code)
	}
	if len(cs) > 0 {
		p.Blank()
	}
}

func errorCleanups(p *codegen.Printer, plan *marshal.MarshalPlan) {
	for _, c := range plan.ErrorCleanups() {
		p.Line("%s", c.Code)
	}
}
