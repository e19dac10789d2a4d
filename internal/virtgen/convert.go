package virtgen

import (
	"strings"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
)

// Protected types are replaced by stand-ins outside the shadow class: an
// int for an enum, an opaque pointer for a class. The helpers below convert
// between the two renderings at the shadow class boundary.

// toStandIn converts native expression v of type a to its stand-in.
func (e *Emitter) toStandIn(a *ir.Arg, v string) string {
	if !codegen.IsProtectedType(e.spec, a) {
		return v
	}
	fake := codegen.Fake(e.spec, *a, outside)
	switch {
	case a.Category == ir.EnumType && a.Derefs == 0 && !a.Reference:
		return codegen.Cast("int", v, inside)
	case a.Category == ir.ClassType && a.Derefs == 0:
		return "&" + v
	}
	return codegen.ReinterpretCast(codegen.TypeString(e.spec, &fake, outside), v, inside)
}

// fromStandIn converts stand-in expression v back to native type a.
func (e *Emitter) fromStandIn(a *ir.Arg, v string) string {
	if !codegen.IsProtectedType(e.spec, a) {
		return v
	}
	if a.Category == ir.EnumType {
		if a.Derefs == 0 && !a.Reference {
			return codegen.Cast(codegen.BaseType(e.spec, a, inside), v, inside)
		}
		return codegen.ReinterpretCast(codegen.TypeString(e.spec, a, inside), v, inside)
	}
	ptr := *a
	ptr.Reference = false
	ptr.Derefs = max(a.Derefs, 1)
	cast := codegen.ReinterpretCast(codegen.TypeString(e.spec, &ptr, inside), v, inside)
	if a.Derefs == 0 {
		return "*" + cast
	}
	return cast
}

// resultToStandIn converts the result of a native call to its stand-in. A
// protected class returned by value is copied to the heap.
func (e *Emitter) resultToStandIn(a *ir.Arg, call string) string {
	if a.Category == ir.ClassType && a.Derefs == 0 && !a.Reference && codegen.IsProtectedType(e.spec, a) {
		return "new " + codegen.BaseType(e.spec, a, inside) + "(" + call + ")"
	}
	if a.Category == ir.ClassType && a.Derefs == 0 && codegen.IsProtectedType(e.spec, a) {
		ptr := *a
		ptr.Reference, ptr.Derefs = false, 1
		ptr.Const = false
		return "const_cast<" + codegen.TypeString(e.spec, &ptr, inside) + ">(&" + call + ")"
	}
	return e.toStandIn(a, call)
}

func isVoid(a *ir.Arg) bool {
	return a.Category == ir.Void && a.Derefs == 0
}

// args renders a0, a1, ... each converted with conv.
func args(sig *ir.Signature, conv func(a *ir.Arg, v string) string) string {
	parts := make([]string, len(sig.Args))
	for i := range sig.Args {
		parts[i] = conv(&sig.Args[i], codegen.ArgVar(i))
	}
	return strings.Join(parts, ", ")
}

func plain(_ *ir.Arg, v string) string { return v }
