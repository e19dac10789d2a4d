package assemble

import (
	"fmt"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
)

// ModuleUnit returns the module's main translation unit: module functions,
// virtual handlers, mapped and enum type definitions, the static tables,
// the module descriptor and the init function.
func (a *Assembler) ModuleUnit() (string, error) {
	t, err := a.Tables()
	if err != nil {
		return "", err
	}
	m := a.spec.Main()
	p := codegen.NewPrinter(a.cfg.LineDirectives)
	preamble(p, "Module code for "+m.FullName+".")
	p.Line("#include %s", codegen.Quote(codegen.APIHeader(m.Name)))
	p.Blank()

	if !m.CppCode.Empty() {
		p.Code(m.CppCode)
		p.Blank()
	}

	if a.cfg.SingleFile {
		for _, id := range a.spec.LocalClasses() {
			p.Line("/* %s */", a.spec.Class(id).Name)
			p.Blank()
			if err := a.classBody(p, id); err != nil {
				return "", fmt.Errorf("%s: %w", a.spec.Class(id).Name, err)
			}
			p.Blank()
			p.Blank()
		}
	}

	if len(m.ErrorHandlers) > 0 {
		a.virts.EmitErrorHandlers(p)
		p.Blank()
	}
	if !a.cfg.IsC() {
		if err := a.virts.EmitHandlers(p); err != nil {
			return "", err
		}
	}

	for _, mid := range m.Members {
		if !a.calls.Reachable(a.spec.Member(mid)) {
			continue
		}
		if err := a.calls.EmitMember(p, mid); err != nil {
			return "", err
		}
		p.Blank()
		p.Blank()
	}

	a.emitMappedTypes(p, t)
	a.emitEnumTypes(p, t)
	a.emitExceptionObjects(p, t)
	a.emitModuleTables(p, t)
	a.emitDescriptor(p, t)
	a.emitInit(p)

	a.log.Debug("module unit assembled", "module", m.Name, "types", len(t.Types), "functions", len(t.Functions))
	return p.String(), nil
}

func (a *Assembler) emitMappedTypes(p *codegen.Printer, t *Tables) {
	sc := a.scope()
	for i := range a.spec.MappedTypes {
		id := ir.MappedTypeID(i)
		if _, ok := t.MappedIndex(id); !ok {
			continue
		}
		mt := a.spec.MappedType(id)
		typ := mt.Name.String()
		hasRelease := !mt.Flags.NoRelease
		release := "release_" + mt.Name.Mangled()

		if hasRelease {
			p.Line("static void %s(void *bndCppV, int bndState)", release)
			p.Open("{")
			if !mt.ReleaseCode.Empty() {
				p.Line("%s *%s = %s;", typ, codegen.CppVar, codegen.ReinterpretCast(typ+" *", "bndCppV", sc))
				p.Blank()
				p.Code(mt.ReleaseCode)
			} else if sc.C {
				p.Line("bndFree(bndCppV);")
			} else {
				p.Line("delete reinterpret_cast<%s *>(bndCppV);", typ)
			}
			if !mt.Flags.UserState {
				p.Line("(void)bndState;")
			}
			p.Close("}")
			p.Blank()
			p.Blank()
		}
		if !mt.ConvertToCode.Empty() {
			a.emitConvertTo(p, mt.Name, typ, mt.ConvertToCode)
		}
		if !mt.ConvertFromCode.Empty() {
			a.emitConvertFrom(p, mt.Name, typ, mt.ConvertFromCode)
		}

		or := func(ok bool, sym string) string {
			if ok {
				return sym
			}
			return "NULL"
		}
		p.Line("bndMappedTypeDef %s = {", MappedTypeDef(a.spec, id))
		p.Indent()
		p.Line("%s,", mappedFlags(mt))
		p.Line("%s,", codegen.Quote(typ))
		p.Line("%s,", codegen.Quote(mt.PyName))
		p.Line("%s,", or(hasRelease, release))
		p.Line("%s,", or(!mt.ConvertToCode.Empty(), codegen.ConvertToFunc(mt.Name)))
		p.Line("%s", or(!mt.ConvertFromCode.Empty(), codegen.ConvertFromFunc(mt.Name)))
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}
}

func mappedFlags(mt *ir.MappedType) string {
	flags := "BND_TYPE_MAPPED"
	if mt.Flags.AllowNone {
		flags += "|BND_TYPE_ALLOW_NONE"
	}
	if mt.Flags.UserState {
		flags += "|BND_TYPE_USER_STATE"
	}
	if mt.Flags.NoRelease {
		flags += "|BND_TYPE_NO_RELEASE"
	}
	return flags
}

var enumKinds = map[ir.EnumKind]string{
	ir.EnumPlain:    "BND_ENUM_ENUM",
	ir.EnumFlag:     "BND_ENUM_FLAG",
	ir.EnumIntEnum:  "BND_ENUM_INT_ENUM",
	ir.EnumIntFlag:  "BND_ENUM_INT_FLAG",
	ir.EnumUIntEnum: "BND_ENUM_UINT_ENUM",
}

func (a *Assembler) emitEnumTypes(p *codegen.Printer, t *Tables) {
	for i := range a.spec.Enums {
		id := ir.EnumID(i)
		idx, ok := t.EnumIndex(id)
		if !ok {
			continue
		}
		e := a.spec.Enum(id)
		p.Line("bndEnumTypeDef %s = {%s, %s, %s, %d};", EnumTypeDef(a.spec, id),
			enumKinds[e.Kind], codegen.Quote(e.Name.String()), codegen.Quote(enumPyName(e)), t.Types[idx].Scope)
	}
	if len(t.enumIdx) > 0 {
		p.Blank()
		p.Blank()
	}
}

func (a *Assembler) emitExceptionObjects(p *codegen.Printer, t *Tables) {
	if len(t.Exceptions) == 0 {
		return
	}
	p.Line("/* The module's exception objects, created when the module is initialised. */")
	for _, x := range t.Exceptions {
		p.Line("PyObject *%s;", x.Symbol)
	}
	p.Blank()
	p.Blank()
}

// emitModuleTables writes the static tables the descriptor points to. An
// empty table is not written and its descriptor field is NULL.
func (a *Assembler) emitModuleTables(p *codegen.Printer, t *Tables) {
	name := a.moduleName()
	sc := a.scope()

	if len(t.Types) > 0 {
		p.Line("/* This defines each type in this module. */")
		p.Line("bndTypeDef *%s[] = {", codegen.TypesTable(name))
		p.Indent()
		for _, ty := range t.Types {
			p.Line("&%s.%s,", ty.Def, typeDefBase(ty.Kind))
		}
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}

	if len(t.Functions) > 0 {
		p.Line("static PyMethodDef bndMethods_%s[] = {", name)
		p.Indent()
		for _, f := range t.Functions {
			p.Line("%s,", methodDef(f))
		}
		p.Line("{NULL, NULL, 0, NULL}")
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}

	if len(t.EnumMembers) > 0 {
		p.Line("/* These are the enum members of all global enums. */")
		p.Line("static bndEnumMemberDef bndEnumMembers_%s[] = {", name)
		p.Indent()
		for _, em := range t.EnumMembers {
			p.Line("{%s, %s, %d, %d},", codegen.Quote(em.Name), codegen.Cast("int", em.Value, sc), em.Enum, em.Scope)
		}
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}

	in := &t.Instances
	a.instanceTable(p, "bndIntInstanceDef", "bndIntInstances_"+name, in.Ints, func(e InstanceEntry) string {
		return fmt.Sprintf("{%s, %s, %d}", codegen.Quote(e.Name), e.Value, e.Scope)
	})
	a.instanceTable(p, "bndLongInstanceDef", "bndLongInstances_"+name, in.Longs, func(e InstanceEntry) string {
		return fmt.Sprintf("{%s, %s, %d}", codegen.Quote(e.Name), e.Value, e.Scope)
	})
	a.instanceTable(p, "bndDoubleInstanceDef", "bndDoubleInstances_"+name, in.Doubles, func(e InstanceEntry) string {
		return fmt.Sprintf("{%s, %s, %d}", codegen.Quote(e.Name), e.Value, e.Scope)
	})
	a.instanceTable(p, "bndStringInstanceDef", "bndStringInstances_"+name, in.Strings, func(e InstanceEntry) string {
		return fmt.Sprintf("{%s, %s, %d}", codegen.Quote(e.Name), e.Value, e.Scope)
	})
	a.instanceTable(p, "bndClassInstanceDef", "bndClassInstances_"+name, in.Classes, func(e InstanceEntry) string {
		return fmt.Sprintf("{%s, (void *)%s, %s, %d}", codegen.Quote(e.Name), e.Value, e.Type, e.Scope)
	})
	a.instanceTable(p, "bndEnumInstanceDef", "bndEnumInstances_"+name, in.Enums, func(e InstanceEntry) string {
		return fmt.Sprintf("{%s, %s, %s, %d}", codegen.Quote(e.Name), codegen.Cast("int", e.Value, sc), e.Type, e.Scope)
	})

	if len(t.Imports) > 0 {
		p.Line("/* This defines the modules that this module needs to import. */")
		p.Line("static bndImportedModuleDef bndImports_%s[] = {", name)
		p.Indent()
		for _, im := range t.Imports {
			p.Line("{%s, NULL},", codegen.Quote(im.Name))
		}
		p.Line("{NULL, NULL}")
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}

	if len(t.Exceptions) > 0 {
		p.Line("static bndExceptionDef bndExceptions_%s[] = {", name)
		p.Indent()
		for _, x := range t.Exceptions {
			base := "&" + x.Base
			if x.Builtin {
				base = "&PyExc_" + x.Base
			}
			p.Line("{%s, %s, &%s, %s, %d},", codegen.Quote(x.Native), codegen.Quote(x.PyName), x.Symbol, base, x.Class)
		}
		p.Line("{NULL, NULL, NULL, NULL, -1}")
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}

	if len(t.SubConverters) > 0 {
		p.Line("/* This defines the class sub-convertors that this module defines. */")
		p.Line("static bndSubClassConvertorDef bndSubConverters_%s[] = {", name)
		p.Indent()
		for _, s := range t.SubConverters {
			p.Line("{%s, %s},", s.Func, s.Base)
		}
		p.Line("{NULL, NULL}")
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}

	m := a.spec.Main()
	if len(m.Qualifiers) > 0 {
		p.Line("/* This defines the qualifiers of this module. */")
		p.Line("static bndQualifierDef bndQualifiers_%s[] = {", name)
		p.Indent()
		for _, q := range m.Qualifiers {
			enabled := 0
			if q.Enabled {
				enabled = 1
			}
			p.Line("{%s, %s, %d},", codegen.Quote(q.Name), qualifierKind(q.Kind), enabled)
		}
		p.Line("{NULL, 0, 0}")
		p.Dedent()
		p.Line("};")
		p.Blank()
		p.Blank()
	}

	if l := m.License; l != nil {
		p.Line("/* This defines the module's license. */")
		p.Line("static bndLicenseDef bndLicense_%s = {%s, %s, %s, %s};", name,
			codegen.Quote(l.Type), optString(l.Licensee), optString(l.Timestamp), optString(l.Signature))
		p.Blank()
		p.Blank()
	}
}

func (a *Assembler) instanceTable(p *codegen.Printer, typ, name string, entries []InstanceEntry, row func(InstanceEntry) string) {
	if len(entries) == 0 {
		return
	}
	p.Line("static %s %s[] = {", typ, name)
	p.Indent()
	for _, e := range entries {
		p.Line("%s,", row(e))
	}
	p.Dedent()
	p.Line("};")
	p.Blank()
	p.Blank()
}

func typeDefBase(k TypeKind) string {
	switch k {
	case TypeMapped:
		return "mtd_base"
	case TypeEnum:
		return "etd_base"
	}
	return "ctd_base"
}

func qualifierKind(kind string) string {
	switch kind {
	case "time":
		return "BND_QUAL_TIME"
	case "platform":
		return "BND_QUAL_PLATFORM"
	}
	return "BND_QUAL_FEATURE"
}

func optString(s string) string {
	if s == "" {
		return "NULL"
	}
	return codegen.Quote(s)
}

// emitDescriptor writes the module descriptor: every table with its length,
// the qualifiers, the license and the number of keep-reference keys in use.
func (a *Assembler) emitDescriptor(p *codegen.Printer, t *Tables) {
	m := a.spec.Main()
	name := m.Name
	or := func(ok bool, sym string) string {
		if ok {
			return sym
		}
		return "NULL"
	}
	in := &t.Instances

	p.Line("/* This defines this module. */")
	p.Line("bndExportedModuleDef %s = {", codegen.ModuleDescriptor(name))
	p.Indent()
	p.Line("BND_RUNTIME_ABI,")
	p.Line("%s,", codegen.Quote(m.FullName))
	p.Line("%d,", m.NextKey)
	p.Line("%s,", or(len(t.Imports) > 0, "bndImports_"+name))
	p.Line("%d, %s,", len(t.Types), or(len(t.Types) > 0, codegen.TypesTable(name)))
	p.Line("%s,", or(len(t.Functions) > 0, "bndMethods_"+name))
	p.Line("%d, %s,", len(t.EnumMembers), or(len(t.EnumMembers) > 0, "bndEnumMembers_"+name))
	p.Open("{")
	p.Line("%d, %s,", len(in.Ints), or(len(in.Ints) > 0, "bndIntInstances_"+name))
	p.Line("%d, %s,", len(in.Longs), or(len(in.Longs) > 0, "bndLongInstances_"+name))
	p.Line("%d, %s,", len(in.Doubles), or(len(in.Doubles) > 0, "bndDoubleInstances_"+name))
	p.Line("%d, %s,", len(in.Strings), or(len(in.Strings) > 0, "bndStringInstances_"+name))
	p.Line("%d, %s,", len(in.Classes), or(len(in.Classes) > 0, "bndClassInstances_"+name))
	p.Line("%d, %s", len(in.Enums), or(len(in.Enums) > 0, "bndEnumInstances_"+name))
	p.Close("},")
	p.Line("%s,", or(len(t.Exceptions) > 0, "bndExceptions_"+name))
	p.Line("%s,", or(len(t.SubConverters) > 0, "bndSubConverters_"+name))
	p.Line("%s,", or(len(m.Qualifiers) > 0, "bndQualifiers_"+name))
	p.Line("%s", or(m.License != nil, "&bndLicense_"+name))
	p.Dedent()
	p.Line("};")
	p.Blank()
	p.Blank()
}

// emitInit writes the module initialisation function with the module's
// handwritten init code around the runtime's registration of the
// descriptor.
func (a *Assembler) emitInit(p *codegen.Printer) {
	m := a.spec.Main()
	p.Line("/* The Python module initialisation function. */")
	if !a.cfg.IsC() {
		p.Line(`extern "C" PyMODINIT_FUNC PyInit_%s(void);`, m.Name)
		p.Blank()
	}
	p.Line("PyMODINIT_FUNC PyInit_%s(void)", m.Name)
	p.Open("{")
	if !m.PreInitCode.Empty() {
		p.Code(m.PreInitCode)
		p.Blank()
	}
	p.Line("PyObject *bndModule = bndInitModule(&%s, %s);", codegen.ModuleDescriptor(m.Name), optString(m.Doc))
	p.Blank()
	p.Line("if (bndModule == NULL)")
	p.Indent()
	p.Line("return NULL;")
	p.Dedent()
	if !m.InitCode.Empty() {
		p.Blank()
		p.Code(m.InitCode)
	}
	if !m.PostInitCode.Empty() {
		p.Blank()
		p.Code(m.PostInitCode)
	}
	p.Blank()
	p.Line("return bndModule;")
	p.Close("}")
}
