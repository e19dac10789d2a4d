package codegen

import (
	"fmt"
	"strings"

	"github.com/roach88/bindgen/internal/ir"
)

// Generated symbol names. Everything the emitters invent is prefixed "bnd"
// so it cannot collide with names from the wrapped library.

// ArgVar is the local variable holding argument i.
func ArgVar(i int) string { return fmt.Sprintf("a%d", i) }

// StateVar holds the conversion state token of argument i.
func StateVar(i int) string { return fmt.Sprintf("bndState%d", i) }

// EncVar keeps the encoded bytes object of a string argument alive.
func EncVar(i int) string { return fmt.Sprintf("bndEnc%d", i) }

// WrapperVar captures the host wrapper object of argument i.
func WrapperVar(i int) string { return fmt.Sprintf("bndWrapper%d", i) }

// Result locals.
const (
	ResultVar    = "bndRes"
	ResultObjVar = "bndResObj"
	SelfVar      = "bndSelf"
	CppVar       = "bndCpp"
	SelfWasArg   = "bndSelfWasArg"
	ParseErrVar  = "bndParseErr"
	OwnerVar     = "bndOwner"
	GILStateVar  = "bndGILState"
	MethodVar    = "bndMeth"
	ErrVar       = "bndIsErr"
	PySelfVar    = "bndPySelf"
	OrigSelfVar  = "bndOrigSelf"
)

// TypeObject is the runtime type object symbol of a class.
func TypeObject(spec *ir.Spec, id ir.ClassID) string {
	return "bndType_" + spec.Class(id).Name.Mangled()
}

// MappedTypeObject is the runtime type object symbol of a mapped type.
func MappedTypeObject(spec *ir.Spec, id ir.MappedTypeID) string {
	return "bndType_" + spec.MappedType(id).Name.Mangled()
}

// EnumTypeObject is the runtime type object symbol of a named enum.
func EnumTypeObject(spec *ir.Spec, id ir.EnumID) string {
	return "bndType_" + spec.Enum(id).Name.Mangled()
}

// TemplateTypeObject is the runtime type object of a template
// instantiation, named after the template and its argument categories.
func TemplateTypeObject(spec *ir.Spec, t *ir.Template) string {
	parts := []string{"bndType", t.Name.Mangled()}
	for i := range t.Types.Args {
		parts = append(parts, mangleArg(spec, &t.Types.Args[i]))
	}
	return strings.Join(parts, "_")
}

func mangleArg(spec *ir.Spec, a *ir.Arg) string {
	var s string
	switch a.Category {
	case ir.ClassType:
		s = spec.Class(a.Class).Name.Mangled()
	case ir.Mapped:
		s = spec.MappedType(a.Mapped).Name.Mangled()
	case ir.EnumType:
		if a.Enum == ir.NoEnum {
			s = "int"
		} else {
			s = spec.Enum(a.Enum).Name.Mangled()
		}
	case ir.TemplateType:
		s = strings.TrimPrefix(TemplateTypeObject(spec, a.Template), "bndType_")
	default:
		s = strings.ReplaceAll(a.Category.Native(), " ", "")
		if s == "" {
			s = a.Category.String()
		}
	}
	if a.Derefs > 0 {
		s += strings.Repeat("P", a.Derefs)
	}
	return s
}

// TypeObjectFor returns the type object symbol an argument converts
// through, or "" for categories that have none.
func TypeObjectFor(spec *ir.Spec, a *ir.Arg) string {
	switch a.Category {
	case ir.ClassType:
		return TypeObject(spec, a.Class)
	case ir.Mapped:
		return MappedTypeObject(spec, a.Mapped)
	case ir.TemplateType:
		return TemplateTypeObject(spec, a.Template)
	case ir.EnumType:
		if a.Enum != ir.NoEnum {
			return EnumTypeObject(spec, a.Enum)
		}
	}
	return ""
}

// ExceptionObject is the host exception object symbol.
func ExceptionObject(spec *ir.Spec, id ir.ExceptionID) string {
	return "bndException_" + spec.Exception(id).Name.Mangled()
}

// ShadowClass is the generated subclass of a class.
func ShadowClass(spec *ir.Spec, id ir.ClassID) string {
	return "bnd" + spec.Class(id).Name.Mangled()
}

// MethodFunc is the host-callable function of a class member or module
// function.
func MethodFunc(spec *ir.Spec, m *ir.Member) string {
	if m.Scope == ir.NoClass {
		return "func_" + m.Name
	}
	return "meth_" + spec.Class(m.Scope).Name.Mangled() + "_" + m.Name
}

// SlotFunc is the function bound to a slot.
func SlotFunc(spec *ir.Spec, m *ir.Member) string {
	if m.Scope == ir.NoClass {
		return "slot_" + m.Slot.String()
	}
	return "slot_" + spec.Class(m.Scope).Name.Mangled() + "_" + m.Slot.String()
}

// Per-class function names.
func InitFunc(spec *ir.Spec, id ir.ClassID) string {
	return "init_type_" + spec.Class(id).Name.Mangled()
}

func DeallocFunc(spec *ir.Spec, id ir.ClassID) string {
	return "dealloc_" + spec.Class(id).Name.Mangled()
}

func ReleaseFunc(spec *ir.Spec, id ir.ClassID) string {
	return "release_" + spec.Class(id).Name.Mangled()
}

func CastFunc(spec *ir.Spec, id ir.ClassID) string {
	return "cast_" + spec.Class(id).Name.Mangled()
}

func SubConvertFunc(spec *ir.Spec, id ir.ClassID) string {
	return "convertSubClass_" + spec.Class(id).Name.Mangled()
}

func ConvertToFunc(name ir.ScopedName) string {
	return "convertTo_" + name.Mangled()
}

func ConvertFromFunc(name ir.ScopedName) string {
	return "convertFrom_" + name.Mangled()
}

func MethodTable(spec *ir.Spec, id ir.ClassID) string {
	return "methods_" + spec.Class(id).Name.Mangled()
}

func SlotTable(spec *ir.Spec, id ir.ClassID) string {
	return "slots_" + spec.Class(id).Name.Mangled()
}

func TypeDef(spec *ir.Spec, id ir.ClassID) string {
	return "bndTypeDef_" + spec.Class(id).Name.Mangled()
}

// HandlerFunc is a shared virtual handler.
func HandlerFunc(module string, n int) string {
	return fmt.Sprintf("bndVH_%s_%d", module, n)
}

// ErrorHandlerFunc is a module registered virtual error handler.
func ErrorHandlerFunc(module, name string) string {
	return fmt.Sprintf("bndVEH_%s_%s", module, name)
}

// ProtectWrapper is the public wrapper on a shadow class giving access to
// a protected member.
func ProtectWrapper(name string, virtual bool) string {
	if virtual {
		return "bndProtectVirt_" + name
	}
	return "bndProtect_" + name
}

// Module level symbols.
func ModuleDescriptor(module string) string { return "bndModuleAPI_" + module }

func APIHeader(module string) string { return "bndAPI" + module + ".h" }

// SourceExt is the translation unit extension for the target.
func SourceExt(c bool) string {
	if c {
		return ".c"
	}
	return ".cpp"
}

func ModuleUnit(module, ext string) string { return "bnd" + module + "cmodule" + ext }

func ClassUnit(spec *ir.Spec, module string, id ir.ClassID, ext string) string {
	return "bnd" + module + spec.Class(id).Name.Mangled() + ext
}

func SymbolTable(module string) string { return "bnd" + module + ".symtab" }

func TypesTable(module string) string { return "bndExportedTypes_" + module }
