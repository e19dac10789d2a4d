package codegen

import (
	"strings"

	"github.com/roach88/bindgen/internal/ir"
)

// Scope is the rendering context of a native type.
//
// Protected types (enums and classes declared in a protected section) can
// only be named from inside the shadow subclass of their enclosing class.
// Everywhere else they are rendered as a representable stand-in: an int for
// an enum, an opaque void pointer for a class. The IR is never modified to
// achieve this; the caller says where it is rendering.
type Scope struct {
	Protected bool // inside a shadow class
	C         bool // plain C target
}

// IsProtectedType reports whether the argument names a protected type.
func IsProtectedType(spec *ir.Spec, a *ir.Arg) bool {
	switch a.Category {
	case ir.EnumType:
		return a.Enum != ir.NoEnum && spec.Enum(a.Enum).Protected
	case ir.ClassType:
		return a.Class != ir.NoClass && spec.Class(a.Class).Flags.Protected
	}
	return false
}

// Fake returns the host-visible stand-in for a when rendered outside sc.
// Arguments that need no stand-in are returned unchanged.
func Fake(spec *ir.Spec, a ir.Arg, sc Scope) ir.Arg {
	if sc.Protected || !IsProtectedType(spec, &a) {
		return a
	}
	switch a.Category {
	case ir.EnumType:
		a.Category = ir.Int
		a.Enum = ir.NoEnum
	case ir.ClassType:
		if a.Derefs == 0 {
			a.Derefs = 1
		}
		a.Reference = false
	}
	return a
}

// FakeSignature applies Fake to every argument and the result.
func FakeSignature(spec *ir.Spec, s *ir.Signature, sc Scope) ir.Signature {
	out := s.Clone()
	out.Result = Fake(spec, out.Result, sc)
	for i := range out.Args {
		out.Args[i] = Fake(spec, out.Args[i], sc)
	}
	return out
}

// HasProtectedTypes reports whether any part of s needs a stand-in.
func HasProtectedTypes(spec *ir.Spec, s *ir.Signature) bool {
	if IsProtectedType(spec, &s.Result) {
		return true
	}
	for i := range s.Args {
		if IsProtectedType(spec, &s.Args[i]) {
			return true
		}
	}
	return false
}

// BaseType renders the unqualified base type of a.
func BaseType(spec *ir.Spec, a *ir.Arg, sc Scope) string {
	switch a.Category {
	case ir.EnumType:
		if a.Enum == ir.NoEnum {
			return "int"
		}
		e := spec.Enum(a.Enum)
		if e.Protected && !sc.Protected {
			return "int"
		}
		if sc.C {
			return "enum " + e.Name.String()
		}
		return e.Name.String()
	case ir.ClassType:
		c := spec.Class(a.Class)
		if c.Flags.Protected && !sc.Protected {
			return "void"
		}
		if sc.C {
			return "struct " + c.Name.String()
		}
		return c.Name.String()
	case ir.Mapped:
		return spec.MappedType(a.Mapped).Name.String()
	case ir.Struct:
		return "struct " + a.TypeName.String()
	case ir.Union:
		return "union " + a.TypeName.String()
	case ir.TemplateType:
		return templateType(spec, a.Template, sc)
	case ir.Function:
		if a.Func == nil {
			return "void (*)()"
		}
		return TypeString(spec, &a.Func.Result, sc) + " (*)(" + ArgTypes(spec, a.Func, sc) + ")"
	}
	return a.Category.Native()
}

func templateType(spec *ir.Spec, t *ir.Template, sc Scope) string {
	var b strings.Builder
	b.WriteString(t.Name.String())
	b.WriteByte('<')
	for i := range t.Types.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(TypeString(spec, &t.Types.Args[i], sc))
	}
	if strings.HasSuffix(b.String(), ">") {
		b.WriteByte(' ')
	}
	b.WriteByte('>')
	return b.String()
}

func qualifiers(a *ir.Arg, sc Scope) (prefix, suffix string) {
	if a.Const && a.Category != ir.Function {
		prefix = "const "
	}
	suffix = strings.Repeat("*", a.Derefs)
	if a.Reference && !sc.C {
		suffix += "&"
	}
	return prefix, suffix
}

// TypeString renders the full native type of a, e.g. "const Foo &".
func TypeString(spec *ir.Spec, a *ir.Arg, sc Scope) string {
	prefix, suffix := qualifiers(a, sc)
	s := prefix + BaseType(spec, a, sc)
	if suffix != "" {
		s += " " + suffix
	}
	return s
}

// Decl renders a declaration of name with the type of a.
func Decl(spec *ir.Spec, a *ir.Arg, name string, sc Scope) string {
	if a.Category == ir.Function && a.Func != nil && a.Derefs == 0 {
		return TypeString(spec, &a.Func.Result, sc) + " (*" + name + ")(" + ArgTypes(spec, a.Func, sc) + ")"
	}
	prefix, suffix := qualifiers(a, sc)
	return prefix + BaseType(spec, a, sc) + " " + suffix + name
}

// ArgTypes renders the comma separated argument types of a signature.
func ArgTypes(spec *ir.Spec, s *ir.Signature, sc Scope) string {
	parts := make([]string, len(s.Args))
	for i := range s.Args {
		parts[i] = TypeString(spec, &s.Args[i], sc)
	}
	return strings.Join(parts, ", ")
}

// Params renders a parameter list declaring a0, a1, ...
func Params(spec *ir.Spec, s *ir.Signature, sc Scope) string {
	parts := make([]string, len(s.Args))
	for i := range s.Args {
		parts[i] = Decl(spec, &s.Args[i], ArgVar(i), sc)
	}
	if len(parts) == 0 && sc.C {
		return "void"
	}
	return strings.Join(parts, ", ")
}

// Cast renders a cast of expr to typ for the target.
func Cast(typ, expr string, sc Scope) string {
	if sc.C {
		return "(" + typ + ")" + expr
	}
	return "static_cast<" + typ + ">(" + expr + ")"
}

// ReinterpretCast renders an unchecked pointer cast for the target.
func ReinterpretCast(typ, expr string, sc Scope) string {
	if sc.C {
		return "(" + typ + ")" + expr
	}
	return "reinterpret_cast<" + typ + ">(" + expr + ")"
}

// Null is the null pointer literal for the target.
func Null(sc Scope) string {
	if sc.C {
		return "NULL"
	}
	return "nullptr"
}

// Quote renders a C string literal.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
