package assemble

import (
	"strings"

	"github.com/roach88/bindgen/internal/codegen"
)

// Header returns the API header included by every unit of the module. It
// names the module, maps each type object symbol to its slot in the
// descriptor and declares the records the units share.
func (a *Assembler) Header() (string, error) {
	t, err := a.Tables()
	if err != nil {
		return "", err
	}
	m := a.spec.Main()
	name := m.Name
	guard := "_BND_API_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_")) + "_H"

	p := codegen.NewPrinter(a.cfg.LineDirectives)
	preamble(p, "Internal module API header file.")
	p.Line("#ifndef %s", guard)
	p.Line("#define %s", guard)
	p.Blank()
	p.Line("#include <bndRuntime.h>")
	for _, im := range t.Imports {
		p.Line("#include %s", codegen.Quote(im.Header))
	}
	p.Blank()

	if !m.HeaderCode.Empty() {
		p.Code(m.HeaderCode)
		p.Blank()
	}

	p.Line("#define bndName_%s %s", name, codegen.Quote(m.FullName))
	p.Blank()
	p.Line("extern bndExportedModuleDef %s;", codegen.ModuleDescriptor(name))
	p.Blank()

	if len(t.Types) > 0 {
		p.Line("/* The type objects of the module's types, filled in by the runtime. */")
		for i, ty := range t.Types {
			p.Line("#define %s %s.em_types[%d]", ty.Symbol, codegen.ModuleDescriptor(name), i)
		}
		p.Blank()
		for _, ty := range t.Types {
			p.Line("extern %s %s;", defRecordType(ty.Kind), ty.Def)
		}
		p.Blank()
	}

	if len(t.Exceptions) > 0 {
		for _, x := range t.Exceptions {
			p.Line("extern PyObject *%s;", x.Symbol)
		}
		p.Blank()
	}

	if len(t.SubConverters) > 0 {
		for _, s := range t.SubConverters {
			p.Line("const bndTypeDef *%s(void **);", s.Func)
		}
		p.Blank()
	}

	if len(m.ErrorHandlers) > 0 {
		for _, eh := range m.ErrorHandlers {
			p.Line("void %s(bndSimpleWrapper *, bndGILState_t);", codegen.ErrorHandlerFunc(name, eh.Name))
		}
		p.Blank()
	}

	p.Line("#endif")
	return p.String(), nil
}

func defRecordType(k TypeKind) string {
	switch k {
	case TypeMapped:
		return "bndMappedTypeDef"
	case TypeEnum:
		return "bndEnumTypeDef"
	}
	return "bndClassTypeDef"
}
