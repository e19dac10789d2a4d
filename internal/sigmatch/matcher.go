// Package sigmatch decides when two overload signatures are the same.
//
// There are two views. The strict view is the native one: two signatures
// are equal when a native compiler would treat them as the same function.
// The loose view is the host one: two signatures are equal when the host
// runtime could not tell them apart at a call site, because it coerces
// between related fundamental types and supplies defaulted arguments.
//
// The loose relation is pairwise and is not transitive. A constrained int
// equals an unconstrained int, which equals a constrained bool, but the two
// constrained types are not equal to each other. Callers that need classes
// of equivalent signatures must compare against a representative rather
// than chain through intermediates.
package sigmatch

import (
	"github.com/roach88/bindgen/internal/ir"
)

// Matcher compares signatures in the context of one spec, which it needs to
// tell scoped enums from unscoped ones.
type Matcher struct {
	spec *ir.Spec
}

// New returns a matcher over spec.
func New(spec *ir.Spec) *Matcher {
	return &Matcher{spec: spec}
}

// Equivalent reports whether a and b are the same signature. Results are
// not compared; see SameNative for the full native identity.
func (m *Matcher) Equivalent(a, b *ir.Signature, strict bool) bool {
	na, nb := len(a.Args), len(b.Args)
	if !strict {
		na, nb = requiredArgs(a), requiredArgs(b)
	}
	if na != nb {
		return false
	}
	for i := 0; i < na; i++ {
		if !m.SameArg(&a.Args[i], &b.Args[i], strict) {
			return false
		}
	}
	return true
}

// SameNative reports whether a and b are strictly equal including their
// results. This is the identity used to share virtual handlers.
func (m *Matcher) SameNative(a, b *ir.Signature) bool {
	return m.Equivalent(a, b, true) && m.SameArg(&a.Result, &b.Result, true)
}

// requiredArgs counts the arguments before the first defaulted one.
func requiredArgs(s *ir.Signature) int {
	for i := range s.Args {
		if s.Args[i].HasDefault() {
			return i
		}
	}
	return len(s.Args)
}

// SameArg compares two argument descriptors. The loose comparison ignores
// references and pointer depth: the host passes the same wrapped object
// either way.
func (m *Matcher) SameArg(a, b *ir.Arg, strict bool) bool {
	if strict {
		if a.Reference != b.Reference || a.Derefs != b.Derefs || a.Const != b.Const {
			return false
		}
		return m.SameBaseType(a, b)
	}

	if a.Constrained && b.Constrained {
		return a.Category == b.Category && m.SameBaseType(a, b)
	}

	if m.looseEnum(a) && b.Category.Family() == ir.FamilyInt {
		return true
	}
	if m.looseEnum(b) && a.Category.Family() == ir.FamilyInt {
		return true
	}

	if fa := a.Category.Family(); fa != ir.FamilyNone && fa == b.Category.Family() {
		return true
	}

	return m.SameBaseType(a, b)
}

// looseEnum reports whether a is an enum the host accepts plain ints for.
func (m *Matcher) looseEnum(a *ir.Arg) bool {
	if a.Category != ir.EnumType || a.Constrained {
		return false
	}
	if a.Enum == ir.NoEnum {
		return true
	}
	return !m.spec.Enum(a.Enum).Scoped
}

// SameBaseType compares the underlying types of two arguments, ignoring
// indirection, constness and reference-ness.
func (m *Matcher) SameBaseType(a, b *ir.Arg) bool {
	if a.Category != b.Category {
		return false
	}
	switch a.Category {
	case ir.ClassType:
		return a.Class == b.Class
	case ir.Mapped:
		return a.Mapped == b.Mapped
	case ir.EnumType:
		return a.Enum == b.Enum
	case ir.Struct, ir.Union, ir.Capsule:
		return a.TypeName.String() == b.TypeName.String()
	case ir.TemplateType:
		return m.sameTemplate(a.Template, b.Template)
	case ir.Function:
		if a.Func == nil || b.Func == nil {
			return a.Func == b.Func
		}
		return m.SameNative(a.Func, b.Func)
	}
	return true
}

func (m *Matcher) sameTemplate(a, b *ir.Template) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name.String() != b.Name.String() {
		return false
	}
	return m.Equivalent(&a.Types, &b.Types, true)
}
