package callgen

import (
	"strings"

	"github.com/roach88/bindgen/internal/ir"
)

// HostSignature renders the host-visible signature of an overload, e.g.
// "resize(self, w: int, h: int = 0) -> bool". Output-only arguments are
// part of the result.
func HostSignature(spec *ir.Spec, name string, sig *ir.Signature, self bool) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	sep := ""
	if self {
		b.WriteString("self")
		sep = ", "
	}
	var outs []string
	if !isVoidResult(&sig.Result) {
		outs = append(outs, HostTypeName(spec, &sig.Result))
	}
	for i := range sig.Args {
		a := &sig.Args[i]
		if a.ArraySize {
			continue
		}
		if a.Out {
			outs = append(outs, HostTypeName(spec, a))
		}
		if !a.In {
			continue
		}
		b.WriteString(sep)
		sep = ", "
		if a.Name != "" {
			b.WriteString(a.Name)
			b.WriteString(": ")
		}
		b.WriteString(HostTypeName(spec, a))
		if a.HasDefault() {
			b.WriteString(" = ")
			b.WriteString(a.Default.Native())
		}
	}
	b.WriteByte(')')
	switch len(outs) {
	case 0:
	case 1:
		b.WriteString(" -> ")
		b.WriteString(outs[0])
	default:
		b.WriteString(" -> tuple[")
		b.WriteString(strings.Join(outs, ", "))
		b.WriteByte(']')
	}
	return b.String()
}

func isVoidResult(a *ir.Arg) bool {
	return a.Category == ir.Void && a.Derefs == 0
}

var hostNames = map[ir.Category]string{
	ir.Void:       "voidptr",
	ir.Bool:       "bool",
	ir.CBool:      "bool",
	ir.Float:      "float",
	ir.CFloat:     "float",
	ir.Double:     "float",
	ir.CDouble:    "float",
	ir.Struct:     "voidptr",
	ir.Union:      "voidptr",
	ir.Capsule:    "capsule",
	ir.Function:   "Callable",
	ir.Ellipsis:   "*args",
	ir.PyObject:   "object",
	ir.PyTuple:    "tuple",
	ir.PyList:     "list",
	ir.PyDict:     "dict",
	ir.PyCallable: "Callable",
	ir.PySlice:    "slice",
	ir.PyType:     "type",
	ir.PyBuffer:   "buffer",
	ir.PyEnum:     "enum.Enum",
}

// HostTypeName is the host spelling of an argument's type.
func HostTypeName(spec *ir.Spec, a *ir.Arg) string {
	switch a.Category {
	case ir.ClassType:
		c := spec.Class(a.Class)
		if c.PyName != "" {
			return c.PyName
		}
		return c.Name.Tail()
	case ir.Mapped:
		mt := spec.MappedType(a.Mapped)
		if mt.PyName != "" {
			return mt.PyName
		}
		return mt.Name.String()
	case ir.EnumType:
		if a.Enum == ir.NoEnum {
			return "int"
		}
		e := spec.Enum(a.Enum)
		if e.PyName != "" {
			return e.PyName
		}
		return e.Name.Tail()
	case ir.TemplateType:
		return a.Template.Name.String()
	}
	if n, ok := hostNames[a.Category]; ok {
		return n
	}
	if a.Category.IsStringLike() {
		if a.Category == ir.SString || a.Category == ir.UString {
			return "bytes"
		}
		return "str"
	}
	return "int"
}
