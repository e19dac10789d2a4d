package assemble

import (
	"fmt"
	"strings"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
)

// ClassUnit returns the translation unit of one local class.
func (a *Assembler) ClassUnit(id ir.ClassID) (string, error) {
	p := codegen.NewPrinter(a.cfg.LineDirectives)
	preamble(p, "Interface wrapper code for "+a.spec.Class(id).Name.String()+".")
	p.Line("#include %s", codegen.Quote(codegen.APIHeader(a.moduleName())))
	p.Blank()
	if err := a.classBody(p, id); err != nil {
		return "", err
	}
	return p.String(), nil
}

// classBody writes everything a class contributes to a unit, ending with
// its type definition record.
func (a *Assembler) classBody(p *codegen.Printer, id ir.ClassID) error {
	t, err := a.Tables()
	if err != nil {
		return err
	}
	c := a.spec.Class(id)

	if !c.CppCode.Empty() {
		p.Code(c.CppCode)
		p.Blank()
	}

	if c.NeedsShadow {
		if err := a.virts.EmitShadowDecl(p, id); err != nil {
			return err
		}
		p.Blank()
		p.Blank()
		if err := a.virts.EmitShadowDefs(p, id); err != nil {
			return err
		}
		p.Blank()
		p.Blank()
	}

	for _, mid := range c.Members {
		if !a.calls.Reachable(a.spec.Member(mid)) {
			continue
		}
		if err := a.calls.EmitMember(p, mid); err != nil {
			return err
		}
		p.Blank()
		p.Blank()
	}

	a.emitCast(p, id)
	hasRelease := a.emitRelease(p, id)
	if !c.Flags.Namespace {
		if err := a.calls.EmitInit(p, id); err != nil {
			return err
		}
		p.Blank()
		p.Blank()
	}
	a.emitConvertors(p, id)

	ct := t.Class(id)
	a.emitClassTables(p, id, ct)
	a.emitTypeDef(p, id, ct, hasRelease)
	return nil
}

func (a *Assembler) nativeType(id ir.ClassID) string {
	c := a.spec.Class(id)
	if a.cfg.IsC() {
		return "struct " + c.Name.String()
	}
	return c.Name.String()
}

func (a *Assembler) scope() codegen.Scope {
	return codegen.Scope{C: a.cfg.IsC()}
}

// emitCast writes the function converting an instance pointer to any of
// its super-classes.
func (a *Assembler) emitCast(p *codegen.Printer, id ir.ClassID) {
	c := a.spec.Class(id)
	if len(c.MRO) < 2 {
		return
	}
	sc := a.scope()
	typ := a.nativeType(id)
	p.Line("/* Cast a pointer to a type somewhere in its inheritance hierarchy. */")
	p.Line("static void *%s(void *bndCppV, const bndTypeDef *bndTargetType)", codegen.CastFunc(a.spec, id))
	p.Open("{")
	if !sc.C {
		p.Line("%s *%s = %s;", typ, codegen.CppVar, codegen.ReinterpretCast(typ+" *", "bndCppV", sc))
		p.Blank()
	}
	p.Line("if (bndTargetType == %s)", codegen.TypeObject(a.spec, id))
	p.Indent()
	p.Line("return bndCppV;")
	p.Dedent()
	for _, sup := range c.MRO[1:] {
		p.Blank()
		p.Line("if (bndTargetType == %s)", codegen.TypeObject(a.spec, sup))
		p.Indent()
		if sc.C {
			p.Line("return bndCppV;")
		} else {
			p.Line("return static_cast<%s *>(%s);", a.nativeType(sup), codegen.CppVar)
		}
		p.Dedent()
	}
	p.Blank()
	p.Line("return %s;", codegen.Null(sc))
	p.Close("}")
	p.Blank()
	p.Blank()
}

// emitRelease writes the release and dealloc functions. It reports whether
// the class can be released at all.
func (a *Assembler) emitRelease(p *codegen.Printer, id ir.ClassID) bool {
	c := a.spec.Class(id)
	if c.Flags.Namespace || c.DtorAccess != ir.Public {
		return false
	}
	sc := a.scope()
	typ := a.nativeType(id)
	release := codegen.ReleaseFunc(a.spec, id)

	p.Line("/* Call the instance's destructor. */")
	p.Line("static void %s(void *bndCppV, int bndState)", release)
	p.Open("{")
	if a.cfg.Tracing {
		p.Line("bndTrace(BND_TRACE_DEALLOCS, %s);", codegen.Quote(release+"()\n"))
	}
	releaseGIL := c.Flags.ReleaseGILDtor || (a.cfg.ReleaseGIL && !c.Flags.HoldGILDtor)
	if releaseGIL {
		p.Line("Py_BEGIN_ALLOW_THREADS")
		p.Blank()
	}
	if !c.DtorCode.Empty() {
		p.Line("%s *%s = %s;", typ, codegen.CppVar, codegen.ReinterpretCast(typ+" *", "bndCppV", sc))
		p.Blank()
		p.Code(c.DtorCode)
		p.Blank()
	}
	switch {
	case sc.C:
		p.Line("bndFree(bndCppV);")
	case c.NeedsShadow:
		p.Line("if (bndState & BND_DERIVED_CLASS)")
		p.Indent()
		p.Line("delete reinterpret_cast<%s *>(bndCppV);", codegen.ShadowClass(a.spec, id))
		p.Dedent()
		p.Line("else")
		p.Indent()
		p.Line("delete reinterpret_cast<%s *>(bndCppV);", typ)
		p.Dedent()
	default:
		p.Line("delete reinterpret_cast<%s *>(bndCppV);", typ)
	}
	if releaseGIL {
		p.Blank()
		p.Line("Py_END_ALLOW_THREADS")
	}
	if sc.C || !c.NeedsShadow {
		p.Line("(void)bndState;")
	}
	p.Close("}")
	p.Blank()
	p.Blank()

	p.Line("static void %s(bndSimpleWrapper *%s)", codegen.DeallocFunc(a.spec, id), codegen.SelfVar)
	p.Open("{")
	if c.NeedsShadow {
		p.Line("if (bndIsDerivedClass(%s))", codegen.SelfVar)
		p.Indent()
		p.Line("reinterpret_cast<%s *>(bndGetAddress(%s))->%s = %s;", codegen.ShadowClass(a.spec, id), codegen.SelfVar, codegen.PySelfVar, codegen.Null(sc))
		p.Dedent()
		p.Blank()
	}
	p.Line("if (bndIsOwnedByHost(%s))", codegen.SelfVar)
	p.Open("{")
	if c.Flags.DelayedDtor {
		p.Line("bndAddDelayedDtor(%s);", codegen.SelfVar)
	} else {
		p.Line("%s(bndGetAddress(%s), bndIsDerivedClass(%s));", release, codegen.SelfVar, codegen.SelfVar)
	}
	p.Close("}")
	p.Close("}")
	p.Blank()
	p.Blank()
	return true
}

// emitConvertors writes the handwritten convert-to, convert-from and
// sub-class convertor functions of a class.
func (a *Assembler) emitConvertors(p *codegen.Printer, id ir.ClassID) {
	c := a.spec.Class(id)
	sc := a.scope()
	typ := a.nativeType(id)

	if !c.ConvertToCode.Empty() {
		a.emitConvertTo(p, c.Name, typ, c.ConvertToCode)
	}
	if !c.ConvertFromCode.Empty() {
		a.emitConvertFrom(p, c.Name, typ, c.ConvertFromCode)
	}
	if !c.ConvertToSubCode.Empty() {
		base := id
		if c.SubBase != ir.NoClass {
			base = c.SubBase
		}
		btyp := a.nativeType(base)
		p.Line("/* Convert to a sub-class if possible. */")
		p.Line("const bndTypeDef *%s(void **bndCppRet)", codegen.SubConvertFunc(a.spec, id))
		p.Open("{")
		p.Line("%s *%s = %s;", btyp, codegen.CppVar, codegen.ReinterpretCast(btyp+" *", "*bndCppRet", sc))
		p.Line("const bndTypeDef *bndType;")
		p.Blank()
		p.Code(c.ConvertToSubCode)
		p.Blank()
		p.Line("return bndType;")
		p.Close("}")
		p.Blank()
		p.Blank()
	}
}

func (a *Assembler) emitConvertTo(p *codegen.Printer, name ir.ScopedName, typ string, code *ir.CodeBlock) {
	sc := a.scope()
	p.Line("static int %s(PyObject *bndPy, void **bndCppPtrV, int *%s, PyObject *bndTransferObj)", codegen.ConvertToFunc(name), codegen.ErrVar)
	p.Open("{")
	p.Line("%s **bndCppPtr = %s;", typ, codegen.ReinterpretCast(typ+" **", "bndCppPtrV", sc))
	p.Blank()
	p.Code(code)
	p.Close("}")
	p.Blank()
	p.Blank()
}

func (a *Assembler) emitConvertFrom(p *codegen.Printer, name ir.ScopedName, typ string, code *ir.CodeBlock) {
	sc := a.scope()
	p.Line("static PyObject *%s(void *bndCppV, PyObject *bndTransferObj)", codegen.ConvertFromFunc(name))
	p.Open("{")
	p.Line("%s *bndCpp = %s;", typ, codegen.ReinterpretCast(typ+" *", "bndCppV", sc))
	p.Blank()
	p.Code(code)
	p.Close("}")
	p.Blank()
	p.Blank()
}

func (a *Assembler) emitClassTables(p *codegen.Printer, id ir.ClassID, ct *ClassTable) {
	if len(ct.Supers) > 0 {
		p.Line("/* Define this type's super-types. */")
		p.Line("static const char *bndSupers_%s[] = {", a.spec.Class(id).Name.Mangled())
		p.Indent()
		for _, s := range ct.Supers {
			p.Line("%s,", codegen.Quote(s))
		}
		p.Line("%s", codegen.Null(a.scope()))
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}
	if len(ct.Methods) > 0 {
		p.Line("static PyMethodDef %s[] = {", codegen.MethodTable(a.spec, id))
		p.Indent()
		for _, m := range ct.Methods {
			p.Line("%s,", methodDef(m))
		}
		p.Line("{NULL, NULL, 0, NULL}")
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}
	if len(ct.Slots) > 0 {
		p.Line("/* Define this type's Python slots. */")
		p.Line("static bndPySlotDef %s[] = {", codegen.SlotTable(a.spec, id))
		p.Indent()
		for _, s := range ct.Slots {
			p.Line("{(void *)%s, %s_slot},", s.Func, s.Slot)
		}
		p.Line("{0, (bndPySlotType)0}")
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}
}

func methodDef(m MethodEntry) string {
	flags := "METH_VARARGS"
	if m.Keywords {
		flags += "|METH_KEYWORDS"
	}
	return fmt.Sprintf("{%s, (PyCFunction)%s, %s, %s}", codegen.Quote(m.Name), m.Func, flags, m.Doc)
}

// classFlags renders the type flags of a class definition record.
func classFlags(c *ir.Class) string {
	var flags []string
	add := func(on bool, name string) {
		if on {
			flags = append(flags, name)
		}
	}
	add(c.Flags.Namespace, "BND_TYPE_NAMESPACE")
	add(c.Flags.Abstract, "BND_TYPE_ABSTRACT")
	add(c.NeedsShadow, "BND_TYPE_SHADOW")
	add(c.Flags.AllowNone, "BND_TYPE_ALLOW_NONE")
	add(c.Flags.Mixin, "BND_TYPE_MIXIN")
	add(c.Flags.Deprecated, "BND_TYPE_DEPRECATED")
	add(c.Flags.Union, "BND_TYPE_UNION")
	add(c.Flags.Opaque, "BND_TYPE_OPAQUE")
	if len(flags) == 0 {
		return "BND_TYPE_CLASS"
	}
	return "BND_TYPE_CLASS|" + strings.Join(flags, "|")
}

func (a *Assembler) emitTypeDef(p *codegen.Printer, id ir.ClassID, ct *ClassTable, hasRelease bool) {
	c := a.spec.Class(id)
	null := "NULL"
	or := func(ok bool, sym string) string {
		if ok {
			return sym
		}
		return null
	}
	mangled := c.Name.Mangled()
	enclosing := null
	if c.Enclosing != ir.NoClass {
		enclosing = codegen.Quote(a.spec.Class(c.Enclosing).Name.String())
	}

	p.Line("bndClassTypeDef %s = {", codegen.TypeDef(a.spec, id))
	p.Indent()
	p.Line("%s,", classFlags(c))
	p.Line("%s,", codegen.Quote(c.Name.String()))
	p.Line("%s,", codegen.Quote(classPyName(c)))
	p.Line("%s,", enclosing)
	p.Line("%s,", or(len(ct.Supers) > 0, "bndSupers_"+mangled))
	p.Line("%d, %s,", len(ct.Methods), or(len(ct.Methods) > 0, codegen.MethodTable(a.spec, id)))
	p.Line("%s,", or(len(ct.Slots) > 0, codegen.SlotTable(a.spec, id)))
	p.Line("%s,", or(!c.Flags.Namespace, codegen.InitFunc(a.spec, id)))
	p.Line("%s,", or(hasRelease, codegen.DeallocFunc(a.spec, id)))
	p.Line("%s,", or(hasRelease, codegen.ReleaseFunc(a.spec, id)))
	p.Line("%s,", or(len(c.MRO) > 1, codegen.CastFunc(a.spec, id)))
	p.Line("%s,", or(!c.ConvertToCode.Empty(), codegen.ConvertToFunc(c.Name)))
	p.Line("%s,", or(!c.ConvertFromCode.Empty(), codegen.ConvertFromFunc(c.Name)))
	p.Line("%d", ct.Virtuals)
	p.Dedent()
	p.Line("};")
}
