package virtgen

import (
	"fmt"
	"strings"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
)

// catcherProto is the native prototype of the reimplementation of a
// virtual; qual prefixes the name in a definition.
func (e *Emitter) catcherProto(oid ir.OverloadID, qual string) string {
	o := e.spec.Overload(oid)
	sig := o.Native()
	params := codegen.ArgTypes(e.spec, sig, inside)
	if qual != "" {
		params = codegen.Params(e.spec, sig, inside)
	}
	proto := resultType(e.spec, &sig.Result, inside) + " " + qual + o.NativeName + "(" + params + ")"
	if o.Flags.Const {
		proto += " const"
	}
	return proto
}

// handlerProto is the declaration of a handler as seen by its catchers.
func (e *Emitter) handlerProto(h *ir.VirtualHandler) string {
	fake := codegen.FakeSignature(e.spec, &h.NativeSig, outside)
	params := "bndGILState_t, bndVirtErrorHandlerFunc, bndSimpleWrapper *, PyObject *"
	if types := codegen.ArgTypes(e.spec, &fake, outside); types != "" {
		params += ", " + types
	}
	return resultType(e.spec, &fake.Result, outside) + " " + codegen.HandlerFunc(e.spec.Modules[h.Module].Name, h.Index) + "(" + params + ")"
}

func (e *Emitter) emitCatcher(p *codegen.Printer, id ir.ClassID, vo ir.VirtualOverload) error {
	o := e.spec.Overload(vo.Overload)
	sig := o.Native()
	h := e.spec.Handler(vo.Handler)
	sh := codegen.ShadowClass(e.spec, id)
	res := &sig.Result

	errh, err := e.ErrorHandlerFor(vo.Overload)
	if err != nil {
		return err
	}

	p.Line("%s", e.catcherProto(vo.Overload, sh+"::"))
	p.Open("{")
	if e.cfg.Tracing {
		p.Line("bndTrace(BND_TRACE_CATCHERS, %s, this);", codegen.Quote(e.catcherProto(vo.Overload, sh+"::")+" (this=%p)\n"))
		p.Blank()
	}

	p.Line("bndGILState_t %s;", codegen.GILStateVar)
	p.Line("PyObject *%s;", codegen.MethodVar)
	p.Blank()

	cache := fmt.Sprintf("&bndPyMethods[%d]", vo.CacheIdx)
	self := "&" + codegen.PySelfVar
	if o.Flags.Const {
		cache = "const_cast<char *>(" + cache + ")"
		self = "const_cast<bndSimpleWrapper **>(" + self + ")"
	}
	abstractName := "NULL"
	if o.Flags.Abstract {
		abstractName = codegen.Quote(e.spec.Class(o.Scope).PyName)
	}
	p.Line("%s = bndIsPyMethod(&%s, %s, %s, %s, %s);", codegen.MethodVar, codegen.GILStateVar,
		cache, self, abstractName, codegen.Quote(e.spec.Member(o.Member).Name))
	p.Blank()

	p.Line("if (!%s)", codegen.MethodVar)
	p.Open("{")
	switch {
	case o.Flags.Abstract:
		e.defaultReturn(p, res)
	case !o.VirtualCallCode.Empty():
		if !isVoid(res) {
			p.Line("%s;", codegen.Decl(e.spec, res, codegen.ResultVar, inside))
			p.Blank()
		}
		p.Code(o.VirtualCallCode)
		p.Blank()
		if isVoid(res) {
			p.Line("return;")
		} else {
			p.Line("return %s;", codegen.ResultVar)
		}
	default:
		call := e.spec.Class(o.Scope).Name.String() + "::" + o.NativeName + "(" + args(sig, plain) + ")"
		if isVoid(res) {
			p.Line("%s;", call)
			p.Line("return;")
		} else {
			p.Line("return %s;", call)
		}
	}
	p.Close("}")
	p.Blank()

	p.Line("extern %s;", e.handlerProto(h))
	p.Blank()

	callArgs := []string{codegen.GILStateVar, errh, codegen.PySelfVar, codegen.MethodVar}
	if a := args(sig, e.toStandIn); a != "" {
		callArgs = append(callArgs, a)
	}
	call := e.HandlerName(vo.Handler) + "(" + strings.Join(callArgs, ", ") + ")"

	if o.Flags.NewThread {
		p.Line("bndStartThread();")
	}
	switch {
	case isVoid(res):
		p.Line("%s;", call)
		if o.Flags.NewThread {
			p.Line("bndEndThread();")
		}
	case o.Flags.NewThread:
		p.Line("%s = %s;", codegen.Decl(e.spec, res, codegen.ResultVar, inside), e.fromStandIn(res, call))
		p.Line("bndEndThread();")
		p.Blank()
		p.Line("return %s;", codegen.ResultVar)
	default:
		p.Line("return %s;", e.fromStandIn(res, call))
	}
	p.Close("}")
	return nil
}

// defaultReturn returns a placeholder value from a catcher whose abstract
// reimplementation is missing. The runtime has already raised the host
// exception by then.
func (e *Emitter) defaultReturn(p *codegen.Printer, res *ir.Arg) {
	switch {
	case isVoid(res):
		p.Line("return;")
	case res.Derefs > 0:
		p.Line("return %s;", codegen.Null(inside))
	case res.Category.IsClassLike():
		if !e.hasDefaultInstance(res) {
			p.Line("abort();")
			return
		}
		base := codegen.BaseType(e.spec, res, inside)
		p.Line("static %s *bndDefault = %s;", base, codegen.Null(inside))
		p.Blank()
		p.Line("if (!bndDefault)")
		p.Line("    bndDefault = new %s();", base)
		p.Blank()
		p.Line("return *bndDefault;")
	case res.Category == ir.EnumType:
		p.Line("return %s;", codegen.Cast(codegen.BaseType(e.spec, res, inside), "0", inside))
	case res.Category == ir.Struct || res.Category == ir.Union:
		p.Line("abort();")
	default:
		p.Line("return 0;")
	}
}
