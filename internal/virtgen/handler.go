package virtgen

import (
	"fmt"
	"strings"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/marshal"
)

// EmitHandlers writes every handler owned by the module being generated, in
// index order.
func (e *Emitter) EmitHandlers(p *codegen.Printer) error {
	for i := range e.spec.VirtualHandlers {
		if e.spec.VirtualHandlers[i].Module != e.spec.Module {
			continue
		}
		if err := e.EmitHandler(p, ir.HandlerID(i)); err != nil {
			return err
		}
		p.Blank()
	}
	return nil
}

// EmitHandler writes one shared handler: it calls the host method with the
// arguments built for the host and parses the result and outputs back.
func (e *Emitter) EmitHandler(p *codegen.Printer, id ir.HandlerID) error {
	if e.cfg.IsC() {
		return ErrCTarget
	}
	h := e.spec.Handler(id)
	name := e.HandlerName(id)

	plan, err := marshal.Plan(e.spec, e.cfg, &h.NativeSig, marshal.Options{Dir: marshal.Reverse, Owner: codegen.PySelfVar})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	abort, forced := e.abortModel(h)
	if forced != "" {
		e.log.Warn("virtual handler forced into abort model", "handler", name, "reason", forced)
	}

	fake := codegen.FakeSignature(e.spec, &h.NativeSig, outside)
	params := "bndGILState_t bndGILState, bndVirtErrorHandlerFunc bndErrorHandler, bndSimpleWrapper *bndPySelf, PyObject *bndMeth"
	if rest := codegen.Params(e.spec, &fake, outside); rest != "" {
		params += ", " + rest
	}
	p.Line("%s %s(%s)", resultType(e.spec, &fake.Result, outside), name, params)
	p.Open("{")

	rp := plan.Result
	if rp != nil {
		p.Line("%s", rp.Decl)
		if rp.State != "" {
			p.Line("int %s = 0;", rp.State)
		}
		p.Blank()
	}

	if !h.VirtualCode.Empty() {
		e.emitVirtualCode(p, h, abort)
	} else {
		e.emitCallAndParse(p, h, plan, abort)
	}

	if rp != nil {
		p.Blank()
		e.emitReturn(p, rp, abort)
	}
	p.Close("}")
	return nil
}

func formatCall(fn string, lead []string, format string, extra []string) string {
	parts := append(append([]string{}, lead...), codegen.Quote(format))
	parts = append(parts, extra...)
	return fn + "(" + strings.Join(parts, ", ") + ")"
}

func (e *Emitter) emitCallAndParse(p *codegen.Printer, h *ir.VirtualHandler, plan *marshal.MarshalPlan, abort bool) {
	p.Line("PyObject *%s = %s;", codegen.ResultObjVar,
		formatCall("bndCallMethod", []string{"NULL", codegen.MethodVar}, plan.InFormat(), plan.InExtra()))

	if h.TransferResult && plan.Result != nil && plan.Result.Arg.Category.IsClassLike() && plan.Result.Arg.Derefs > 0 {
		p.Blank()
		p.Line("if (%s)", codegen.ResultObjVar)
		p.Line("    bndTransferTo(%s, (PyObject *)%s);", codegen.ResultObjVar, codegen.PySelfVar)
	}
	p.Blank()

	if abort {
		lead := []string{codegen.PySelfVar, codegen.MethodVar, codegen.ResultObjVar}
		p.Line("if (%s < 0)", formatCall("bndParseResult", lead, plan.ParseFormat(), plan.OutExtra()))
		p.Open("{")
		p.Line("PyErr_Print();")
		p.Line("abort();")
		p.Close("}")
		p.Blank()
		p.Line("bndReleaseGIL(%s);", codegen.GILStateVar)
		return
	}
	lead := []string{codegen.GILStateVar, "bndErrorHandler", codegen.PySelfVar, codegen.MethodVar, codegen.ResultObjVar}
	p.Line("%s;", formatCall("bndParseResultEx", lead, plan.ParseFormat(), plan.OutExtra()))
}

func (e *Emitter) emitVirtualCode(p *codegen.Printer, h *ir.VirtualHandler, abort bool) {
	p.Line("int %s = 0;", codegen.ErrVar)
	p.Blank()
	p.Code(h.VirtualCode)
	p.Blank()
	p.Line("if (%s)", codegen.ErrVar)
	p.Open("{")
	if abort {
		p.Line("PyErr_Print();")
		p.Line("abort();")
		p.Close("}")
		p.Blank()
		p.Line("bndReleaseGIL(%s);", codegen.GILStateVar)
		return
	}
	p.Line("bndCallErrorHandler(bndErrorHandler, %s, %s);", codegen.PySelfVar, codegen.GILStateVar)
	p.Close("}")
	p.Line("else")
	p.Open("{")
	p.Line("bndReleaseGIL(%s);", codegen.GILStateVar)
	p.Close("}")
}

// emitReturn hands the parsed result back. A class returned by value or
// reference needs an instance even when the host call failed.
func (e *Emitter) emitReturn(p *codegen.Printer, rp *marshal.ResultPlan, abort bool) {
	res := &rp.Arg
	v := codegen.ResultVar
	if !res.Category.IsClassLike() || res.Derefs > 0 {
		p.Line("return %s;", v)
		return
	}
	base := codegen.BaseType(e.spec, res, outside)
	if !abort {
		p.Line("if (!%s)", v)
		p.Open("{")
		p.Line("static %s *bndDefault = %s;", base, codegen.Null(outside))
		p.Blank()
		p.Line("if (!bndDefault)")
		p.Line("    bndDefault = new %s();", base)
		p.Blank()
		p.Line("return *bndDefault;")
		p.Close("}")
		p.Blank()
	}
	if res.Reference || rp.State == "" {
		p.Line("return *%s;", v)
		return
	}
	ptr := v
	if res.Const {
		ptr = "const_cast<" + base + " *>(" + v + ")"
	}
	p.Line("%s bndResVal(*%s);", base, v)
	p.Blank()
	p.Line("bndReleaseType(%s, %s, %s);", ptr, codegen.TypeObjectFor(e.spec, res), rp.State)
	p.Blank()
	p.Line("return bndResVal;")
}
