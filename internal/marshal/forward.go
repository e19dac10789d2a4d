package marshal

import (
	"strconv"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
)

func (p *planner) unmappable(i int, a *ir.Arg, reason string) error {
	return &UnmappableError{Arg: i, Category: a.Category, Dir: p.opts.Dir, Reason: reason}
}

// valueLocal is the descriptor of a local holding a plain value.
func valueLocal(a ir.Arg) ir.Arg {
	a.Const, a.Reference, a.Derefs = false, false, 0
	return a
}

// pointerLocal is the descriptor of a local holding a single pointer.
func pointerLocal(a ir.Arg) ir.Arg {
	a.Reference = false
	a.Derefs = 1
	return a
}

// passExpr is how a local with local levels of indirection is handed to a
// native parameter with want levels: dereferenced, directly, or by address.
// A reference parameter binds to the value itself.
func passExpr(v string, want, local int) string {
	switch {
	case want == local:
		return v
	case want < local:
		return "*" + v
	default:
		return "&" + v
	}
}

func (p *planner) decl(a ir.Arg, name, init string) string {
	d := codegen.Decl(p.spec, &a, name, p.sc)
	if init != "" {
		d += " = " + init
	}
	return d + ";"
}

func (p *planner) customConversion(a *ir.Arg) bool {
	switch a.Category {
	case ir.Mapped:
		return !p.spec.MappedType(a.Mapped).Flags.NoRelease
	case ir.TemplateType:
		return true
	case ir.ClassType:
		return !p.spec.Class(a.Class).ConvertToCode.Empty()
	}
	return false
}

func (p *planner) entityAllowsNone(a *ir.Arg) bool {
	switch a.Category {
	case ir.Mapped:
		return p.spec.MappedType(a.Mapped).Flags.AllowNone
	case ir.ClassType:
		return p.spec.Class(a.Class).Flags.AllowNone
	}
	return false
}

// classMask computes the class sub-format bits for a parsed value.
func (p *planner) classMask(a *ir.Arg, intoStorage bool) int {
	mask := 0
	if p.customConversion(a) {
		mask |= classState
	}
	if intoStorage {
		mask |= classIntoStorage
	}
	byValue := a.Derefs == 0 || a.Reference
	if a.DisallowNone || (byValue && !a.AllowNone && !p.entityAllowsNone(a)) {
		mask |= classNoNone
	}
	return mask
}

func (p *planner) forwardArg(ap *ArgPlan, size int) error {
	a := ap.Arg
	i := ap.Index
	v := ap.Var

	if a.ArraySize {
		ap.Decl = "Py_ssize_t " + v + ";"
		ap.CallExpr = codegen.Cast(codegen.TypeString(p.spec, ptrStrip(a), p.sc), v, p.sc)
		return nil
	}
	if !a.In && !a.Out {
		return p.unmappable(i, &a, "argument is neither input nor output")
	}

	sizeVar := ""
	if size >= 0 {
		sizeVar = codegen.ArgVar(size)
	}

	f := formats[a.Category]
	init := ""
	if a.HasDefault() {
		init = a.Default.Native()
	}

	switch f.rule {
	case ruleNone:
		return p.unmappable(i, &a, "category has no format")

	case ruleFixed:
		if a.Array {
			return p.unmappable(i, &a, "arrays of fundamental types are not supported")
		}
		if a.Derefs > 1 {
			return p.unmappable(i, &a, "too many levels of indirection")
		}
		if a.Out && a.Derefs == 0 && !a.Reference {
			return p.unmappable(i, &a, "output argument must be a pointer or reference")
		}
		ap.Decl = p.decl(valueLocal(a), v, init)
		ap.CallExpr = passExpr(v, a.Derefs, 0)
		if a.In {
			ap.In = &Item{Code: p.constrained(&a) + f.code, Extra: []string{"&" + v}}
		}
		if a.Out {
			ap.Out = &Item{Code: f.code, Extra: []string{v}}
		}

	case ruleString:
		if err := p.forwardString(ap, f, sizeVar, init); err != nil {
			return err
		}

	case ruleEnum:
		if a.Derefs > 1 || a.Array {
			return p.unmappable(i, &a, "unsupported enum shape")
		}
		if a.Out && a.Derefs == 0 && !a.Reference {
			return p.unmappable(i, &a, "output argument must be a pointer or reference")
		}
		ap.Decl = p.decl(valueLocal(a), v, init)
		ap.CallExpr = passExpr(v, a.Derefs, 0)
		tobj := codegen.TypeObjectFor(p.spec, &a)
		if a.In {
			if tobj != "" {
				ap.In = &Item{Code: p.constrained(&a) + enumNamed, Extra: []string{tobj, "&" + v}}
			} else {
				ap.In = &Item{Code: p.constrained(&a) + enumAnon, Extra: []string{"&" + v}}
			}
		}
		if a.Out {
			ap.Out = p.buildEnum(&a, v)
		}

	case ruleClass:
		if err := p.forwardClass(ap, sizeVar, init); err != nil {
			return err
		}

	case rulePointer:
		if a.Category == ir.Void && a.Derefs == 0 {
			return p.unmappable(i, &a, "void is not a value")
		}
		if a.Category == ir.Function {
			if a.Out || a.Derefs > 0 {
				return p.unmappable(i, &a, "function pointers are input only")
			}
			ap.Decl = p.decl(a, v, init)
			ap.CallExpr = v
			ap.In = &Item{Code: pointerCode, Extra: []string{"&" + v}}
			break
		}
		ap.Decl = p.decl(pointerLocal(a), v, init)
		ap.CallExpr = passExpr(v, a.Derefs, 1)
		if a.In {
			ap.In = &Item{Code: pointerCode, Extra: []string{"&" + v}}
		}
		if a.Out {
			ap.Out = &Item{Code: pointerCode, Extra: []string{v}}
		}

	case ruleCapsule:
		name := codegen.Quote(a.TypeName.String())
		local := pointerLocal(a)
		ap.Decl = p.decl(local, v, init)
		ap.CallExpr = passExpr(v, max(a.Derefs, 1), 1)
		if a.In {
			ap.In = &Item{Code: capsuleCode, Extra: []string{name, "&" + v}}
		}
		if a.Out {
			ap.Out = &Item{Code: capsuleCode, Extra: []string{v, name}}
		}

	case rulePassthrough:
		local := pointerLocal(a)
		local.Const = false
		ap.Decl = p.decl(local, v, init)
		ap.CallExpr = passExpr(v, max(a.Derefs, 1), 1)
		if a.In {
			ap.In = &Item{Code: f.code, Extra: []string{"&" + v}}
		}
		if a.Out {
			ap.Out = &Item{Code: buildObject, Extra: []string{v}}
		}

	case ruleEllipsis:
		if a.Out {
			return p.unmappable(i, &a, "ellipsis cannot be an output")
		}
		ap.Decl = "PyObject *" + v + ";"
		ap.CallExpr = v
		ap.In = &Item{Code: ellipsisCode, Extra: []string{"&" + v}}
	}

	p.capture(ap)
	return nil
}

// ptrStrip returns the plain value type of a size argument.
func ptrStrip(a ir.Arg) *ir.Arg {
	l := valueLocal(a)
	return &l
}

func (p *planner) constrained(a *ir.Arg) string {
	if a.Constrained {
		return constrainedPrefix
	}
	return ""
}

func (p *planner) forwardString(ap *ArgPlan, f catFormat, sizeVar, init string) error {
	a := ap.Arg
	v := ap.Var

	if a.Array {
		if sizeVar == "" {
			return p.unmappable(ap.Index, &a, "array without a size argument")
		}
		ap.Decl = p.decl(pointerLocal(a), v, "")
		ap.CallExpr = v
		if a.In {
			ap.In = &Item{Code: f.array, Extra: []string{"&" + v, "&" + sizeVar}}
		}
		if a.Out {
			ap.Out = &Item{Code: f.array, Extra: []string{v, sizeVar}}
		}
		return nil
	}

	if a.Derefs == 0 {
		if a.Out && !a.Reference {
			return p.unmappable(ap.Index, &a, "output argument must be a pointer or reference")
		}
		ap.Decl = p.decl(valueLocal(a), v, init)
		ap.CallExpr = v
		if a.In {
			ap.In = &Item{Code: p.constrained(&a) + f.char, Extra: []string{"&" + v}}
		}
		if a.Out {
			ap.Out = &Item{Code: f.char, Extra: []string{v}}
		}
		return nil
	}

	if a.Derefs > 2 {
		return p.unmappable(ap.Index, &a, "too many levels of indirection")
	}
	local := pointerLocal(a)
	if a.Derefs == 2 {
		local.Const = false
	}
	ap.Decl = p.decl(local, v, init)
	ap.CallExpr = passExpr(v, a.Derefs, 1)

	if a.In {
		item := &Item{Code: f.ptr, Extra: []string{"&" + v}}
		if f.keepAlive {
			enc := codegen.EncVar(ap.Index)
			ap.Temps = append(ap.Temps, "PyObject *"+enc+";")
			item.Extra = []string{"&" + enc, "&" + v}
			ap.Cleanups = append(ap.Cleanups, Cleanup{Arg: ap.Index, Code: "Py_XDECREF(" + enc + ");", Deferred: a.Out})
		}
		if f.free {
			ap.Cleanups = append(ap.Cleanups, Cleanup{Arg: ap.Index, Code: "bndFree(" + v + ");", Deferred: a.Out})
		}
		ap.In = item
	}
	if a.Out {
		ap.Out = &Item{Code: f.ptr, Extra: []string{v}}
	}
	return nil
}

func (p *planner) forwardClass(ap *ArgPlan, sizeVar, init string) error {
	a := ap.Arg
	i := ap.Index
	v := ap.Var
	tobj := codegen.TypeObjectFor(p.spec, &a)
	base := codegen.BaseType(p.spec, &a, p.sc)

	if a.Array {
		if sizeVar == "" {
			return p.unmappable(i, &a, "array without a size argument")
		}
		if a.Out {
			return p.unmappable(i, &a, "class arrays are input only")
		}
		ap.Decl = p.decl(pointerLocal(a), v, "")
		ap.CallExpr = v
		ap.In = &Item{Code: classArrayCode, Extra: []string{tobj, "&" + v, "&" + sizeVar}}
		if !a.TransferToNative {
			ap.Cleanups = append(ap.Cleanups, Cleanup{Arg: i, Code: p.deleteArray(v)})
		}
		return nil
	}
	if a.Derefs > 2 {
		return p.unmappable(i, &a, "too many levels of indirection")
	}

	local := pointerLocal(a)
	if a.Out && !a.In {
		local.Const = false
	}

	switch {
	case a.HasDefault() && (a.Derefs == 0 || a.Reference):
		def := v + "def"
		ref := a
		ref.Reference, ref.Derefs, ref.Const = true, 0, true
		if p.sc.C {
			ref.Reference = false
		}
		ap.Temps = append(ap.Temps, p.decl(ref, def, init))
		ap.Decl = p.decl(local, v, "&"+def)
	case a.HasDefault():
		ap.Decl = p.decl(local, v, init)
	default:
		ap.Decl = p.decl(local, v, "")
	}
	ap.CallExpr = passExpr(v, a.Derefs, 1)

	if a.In {
		mask := p.classMask(&a, false)
		item := &Item{Code: classFormats[mask], Extra: []string{tobj, "&" + v}}
		if mask&classState != 0 {
			st := codegen.StateVar(i)
			ap.Temps = append(ap.Temps, "int "+st+" = 0;")
			item.Extra = append(item.Extra, "&"+st)
			ptr := v
			if a.Const && !p.sc.C {
				ptr = "const_cast<" + base + " *>(" + v + ")"
			}
			ap.Cleanups = append(ap.Cleanups, Cleanup{
				Arg:      i,
				Code:     "bndReleaseType(" + ptr + ", " + tobj + ", " + st + ");",
				Deferred: a.Out,
			})
		}
		ap.In = item
	}

	if !a.Out {
		return nil
	}
	switch {
	case !a.In && a.Derefs < 2:
		ap.Before = append(ap.Before, v+" = "+p.newInstance(base)+";")
		ap.Cleanups = append(ap.Cleanups, Cleanup{Arg: i, Code: p.deleteInstance(v), ErrorOnly: true})
		ap.Out = &Item{Code: buildNew, Extra: []string{v, tobj, codegen.Null(p.sc)}}
	case a.Derefs == 2:
		ap.Out = &Item{Code: buildExisting, Extra: []string{v, tobj, codegen.Null(p.sc)}}
	case p.customConversion(&a) && !p.sc.C:
		ap.Out = &Item{Code: buildNew, Extra: []string{"new " + base + "(*" + v + ")", tobj, codegen.Null(p.sc)}}
	default:
		ap.Out = &Item{Code: buildExisting, Extra: []string{v, tobj, codegen.Null(p.sc)}}
	}
	return nil
}

func (p *planner) newInstance(base string) string {
	if p.sc.C {
		return "(" + base + " *)bndMalloc(sizeof (" + base + "))"
	}
	return "new " + base + "()"
}

func (p *planner) deleteInstance(v string) string {
	if p.sc.C {
		return "bndFree(" + v + ");"
	}
	return "delete " + v + ";"
}

func (p *planner) deleteArray(v string) string {
	if p.sc.C {
		return "bndFree(" + v + ");"
	}
	return "delete[] " + v + ";"
}

func (p *planner) buildEnum(a *ir.Arg, value string) *Item {
	cast := codegen.Cast("int", value, p.sc)
	if tobj := codegen.TypeObjectFor(p.spec, a); tobj != "" {
		return &Item{Code: enumNamed, Extra: []string{cast, tobj}}
	}
	return &Item{Code: enumAnon, Extra: []string{cast}}
}

const keepPrefix = "bndKeepReference("

func keepReference(keeper string, key int, obj string) string {
	return keepPrefix + keeper + ", " + strconv.Itoa(key) + ", " + obj + ");"
}

// capture prefixes an In item with "@" when the host wrapper object of the
// argument is needed after the call, and records the bookkeeping.
func (p *planner) capture(ap *ArgPlan) {
	a := &ap.Arg
	if ap.In == nil || !(a.KeepReference || a.TransferToNative || a.TransferToHost || a.TransferThis || a.GetWrapper) {
		return
	}
	w := codegen.WrapperVar(ap.Index)
	ap.Temps = append(ap.Temps, "PyObject *"+w+";")
	ap.In.Code = capturePrefix + ap.In.Code
	ap.In.Extra = append([]string{"&" + w}, ap.In.Extra...)

	owner := p.opts.Owner
	if a.KeepReference {
		keeper := owner
		if keeper == "" {
			keeper = codegen.ResultObjVar
		}
		ap.Post = append(ap.Post, keepReference(keeper, a.Key, w))
	}
	if a.TransferToNative {
		to := owner
		if to == "" {
			to = "Py_None"
		}
		ap.Post = append(ap.Post, "bndTransferTo("+w+", "+to+");")
	}
	if a.TransferToHost {
		ap.Post = append(ap.Post, "bndTransferBack("+w+");")
	}
	if a.TransferThis && owner != "" {
		ap.Post = append(ap.Post,
			"if ("+w+" != Py_None) bndTransferTo("+owner+", "+w+"); else bndTransferBack("+owner+");")
	}
}
