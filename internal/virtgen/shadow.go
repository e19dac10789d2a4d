package virtgen

import (
	"fmt"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
)

// shadowCtor is a constructor of the shadow class. Parameters use the
// stand-in types the call emitter passes.
type shadowCtor struct {
	sig ir.Signature // native
}

func (e *Emitter) shadowCtors(id ir.ClassID) []shadowCtor {
	c := e.spec.Class(id)
	var out []shadowCtor
	hasCopy := false
	for i := range c.Ctors {
		ct := &c.Ctors[i]
		if ct.Access == ir.Private {
			continue
		}
		sig := ct.Native()
		if len(sig.Args) == 1 {
			a := &sig.Args[0]
			if a.Category == ir.ClassType && a.Class == id && a.Reference && a.Derefs == 0 {
				hasCopy = true
			}
		}
		out = append(out, shadowCtor{sig: sig.Clone()})
	}
	if len(c.Ctors) == 0 {
		out = append(out, shadowCtor{sig: ir.NewSignature()})
	}
	if !hasCopy && !c.Flags.CannotCopy {
		a := ir.NewArg(ir.ClassType)
		a.Class, a.Const, a.Reference = id, true, true
		out = append(out, shadowCtor{sig: ir.NewSignature(a)})
	}
	return out
}

// ProtectedWrappers returns the protected overloads reachable through a
// class that get a public wrapper on its shadow, one per strict native
// signature.
func (e *Emitter) ProtectedWrappers(id ir.ClassID) []ir.OverloadID {
	c := e.spec.Class(id)
	var candidates []ir.OverloadID
	if len(c.Visible) > 0 {
		for _, vm := range c.Visible {
			candidates = append(candidates, vm.Overloads...)
		}
	} else {
		for _, mid := range c.Members {
			candidates = append(candidates, e.spec.Member(mid).Overloads...)
		}
	}

	var out []ir.OverloadID
	var seen []*ir.Overload
	for _, oid := range candidates {
		o := e.spec.Overload(oid)
		if o.Access != ir.Protected || o.Flags.Signal {
			continue
		}
		dup := false
		for _, s := range seen {
			if e.match.SameProtectedWrapper(o, s) {
				dup = true
				break
			}
		}
		if dup {
			e.log.Debug("protected wrapper deduplicated", "class", c.Name.String(), "method", o.NativeName)
			continue
		}
		seen = append(seen, o)
		out = append(out, oid)
	}
	return out
}

func (e *Emitter) isVirtual(o *ir.Overload) bool {
	return o.Flags.Virtual || o.Flags.Reimplemented
}

// EmitShadowDecl writes the declaration of a class's shadow subclass.
func (e *Emitter) EmitShadowDecl(p *codegen.Printer, id ir.ClassID) error {
	c := e.spec.Class(id)
	if !c.NeedsShadow {
		return nil
	}
	if e.cfg.IsC() {
		return fmt.Errorf("%s: %w", c.Name, ErrCTarget)
	}
	sh := codegen.ShadowClass(e.spec, id)

	p.Line("class %s : public %s", sh, c.Name)
	p.Line("{")
	p.Line("public:")
	p.Indent()
	for _, ct := range e.shadowCtors(id) {
		fake := codegen.FakeSignature(e.spec, &ct.sig, outside)
		p.Line("%s(%s);", sh, codegen.ArgTypes(e.spec, &fake, outside))
	}
	p.Line("virtual ~%s();", sh)

	if wrappers := e.ProtectedWrappers(id); len(wrappers) > 0 {
		p.Blank()
		p.Line("/* Public access to protected members. */")
		for _, oid := range wrappers {
			p.Line("%s;", e.wrapperProto(oid, ""))
		}
	}

	if len(c.Virtuals) > 0 {
		p.Blank()
		p.Line("/* Reimplementable from the host. */")
		for _, vo := range c.Virtuals {
			p.Line("%s override;", e.catcherProto(vo.Overload, ""))
		}
	}

	p.Blank()
	p.Line("bndSimpleWrapper *%s;", codegen.PySelfVar)
	p.Dedent()
	p.Blank()
	p.Line("private:")
	p.Indent()
	p.Line("%s(const %s &);", sh, sh)
	p.Line("%s &operator=(const %s &);", sh, sh)
	if n := len(c.Virtuals); n > 0 {
		p.Blank()
		p.Line("char bndPyMethods[%d];", n)
	}
	p.Dedent()
	p.Line("};")
	return nil
}

// EmitShadowDefs writes the member definitions of a class's shadow:
// constructors, destructor, protected wrappers and catchers.
func (e *Emitter) EmitShadowDefs(p *codegen.Printer, id ir.ClassID) error {
	c := e.spec.Class(id)
	if !c.NeedsShadow {
		return nil
	}
	if e.cfg.IsC() {
		return fmt.Errorf("%s: %w", c.Name, ErrCTarget)
	}
	sh := codegen.ShadowClass(e.spec, id)
	null := codegen.Null(inside)

	for _, ct := range e.shadowCtors(id) {
		fake := codegen.FakeSignature(e.spec, &ct.sig, outside)
		p.Line("%s::%s(%s): %s(%s), %s(%s)", sh, sh, codegen.Params(e.spec, &fake, outside),
			c.Name, args(&ct.sig, e.fromStandIn), codegen.PySelfVar, null)
		p.Open("{")
		if e.cfg.Tracing {
			p.Line("bndTrace(BND_TRACE_CTORS, %s, this);", codegen.Quote(sh+"::"+sh+"("+codegen.ArgTypes(e.spec, &fake, outside)+") (this=%p)\n"))
		}
		if len(c.Virtuals) > 0 {
			p.Line("memset(bndPyMethods, 0, sizeof (bndPyMethods));")
		}
		p.Close("}")
		p.Blank()
	}

	p.Line("%s::~%s()", sh, sh)
	p.Open("{")
	if e.cfg.Tracing {
		p.Line("bndTrace(BND_TRACE_DTORS, %s, this);", codegen.Quote(sh+"::~"+sh+"() (this=%p)\n"))
	}
	p.Line("bndInstanceDestroyed(&%s);", codegen.PySelfVar)
	p.Close("}")

	for _, oid := range e.ProtectedWrappers(id) {
		p.Blank()
		e.emitWrapper(p, id, oid)
	}
	for _, vo := range c.Virtuals {
		p.Blank()
		if err := e.emitCatcher(p, id, vo); err != nil {
			return fmt.Errorf("%s: %w", sh, err)
		}
	}
	return nil
}

// wrapperProto is the prototype of the public wrapper of a protected
// overload; qual prefixes the name in a definition.
func (e *Emitter) wrapperProto(oid ir.OverloadID, qual string) string {
	o := e.spec.Overload(oid)
	virt := e.isVirtual(o) && !o.Flags.Static
	fake := codegen.FakeSignature(e.spec, o.Native(), outside)

	params := codegen.ArgTypes(e.spec, &fake, outside)
	if qual != "" {
		params = codegen.Params(e.spec, &fake, outside)
	}
	if virt {
		self := "bool"
		if qual != "" {
			self = "bool " + codegen.SelfWasArg
		}
		if params == "" {
			params = self
		} else {
			params = self + ", " + params
		}
	}
	proto := resultType(e.spec, &fake.Result, outside) + " " + qual + codegen.ProtectWrapper(o.NativeName, virt) + "(" + params + ")"
	if o.Flags.Static && qual == "" {
		proto = "static " + proto
	}
	if o.Flags.Const && !o.Flags.Static {
		proto += " const"
	}
	return proto
}

func resultType(spec *ir.Spec, a *ir.Arg, sc codegen.Scope) string {
	if isVoid(a) {
		return "void"
	}
	return codegen.TypeString(spec, a, sc)
}

func (e *Emitter) emitWrapper(p *codegen.Printer, id ir.ClassID, oid ir.OverloadID) {
	o := e.spec.Overload(oid)
	sh := codegen.ShadowClass(e.spec, id)
	sig := o.Native()
	scope := e.spec.Class(o.Scope).Name.String()

	p.Line("%s", e.wrapperProto(oid, sh+"::"))
	p.Open("{")
	callArgs := args(sig, e.fromStandIn)
	var call string
	switch {
	case e.isVirtual(o) && !o.Flags.Static && !o.Flags.Abstract:
		call = "(" + codegen.SelfWasArg + " ? " + scope + "::" + o.NativeName + "(" + callArgs + ") : " + o.NativeName + "(" + callArgs + "))"
	case o.Flags.Abstract:
		call = o.NativeName + "(" + callArgs + ")"
	default:
		call = scope + "::" + o.NativeName + "(" + callArgs + ")"
	}
	if isVoid(&sig.Result) {
		p.Line("%s;", call)
	} else {
		p.Line("return %s;", e.resultToStandIn(&sig.Result, call))
	}
	p.Close("}")
}
