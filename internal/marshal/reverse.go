package marshal

import (
	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
)

// valueOf dereferences parameter v down to the value it designates.
func valueOf(v string, derefs int) string {
	switch derefs {
	case 0:
		return v
	case 1:
		return "*" + v
	}
	return "**" + v
}

// storageOf is the address a parsed value is written through.
func storageOf(v string, a *ir.Arg) string {
	if a.Reference && a.Derefs == 0 {
		return "&" + v
	}
	return v
}

// reverseArg plans a parameter of a virtual handler. The parameter is
// already declared by the handler signature, so there is no local.
func (p *planner) reverseArg(ap *ArgPlan, size int) error {
	a := ap.Arg
	i := ap.Index
	v := ap.Var
	ap.CallExpr = v

	if a.ArraySize {
		return nil
	}
	if !a.In && !a.Out {
		return p.unmappable(i, &a, "argument is neither input nor output")
	}
	// A value parameter cannot carry anything back.
	if a.Out && a.Derefs == 0 && !a.Reference {
		return p.unmappable(i, &a, "output argument must be a pointer or reference")
	}

	sizeVar := ""
	if size >= 0 {
		sizeVar = codegen.ArgVar(size)
	}
	f := formats[a.Category]

	switch f.rule {
	case ruleNone, ruleEllipsis:
		return p.unmappable(i, &a, "cannot be passed to a reimplementation")

	case ruleFixed:
		if a.Array || a.Derefs > 1 {
			return p.unmappable(i, &a, "unsupported shape")
		}
		if a.In {
			ap.In = &Item{Code: f.code, Extra: []string{valueOf(v, a.Derefs)}}
		}
		if a.Out {
			ap.Out = &Item{Code: f.code, Extra: []string{storageOf(v, &a)}}
		}

	case ruleString:
		switch {
		case a.Array:
			if a.Out || sizeVar == "" {
				return p.unmappable(i, &a, "string arrays are input only and sized")
			}
			ap.In = &Item{Code: f.array, Extra: []string{v, sizeVar}}
		case a.Derefs == 0:
			if a.In {
				ap.In = &Item{Code: f.char, Extra: []string{v}}
			}
			if a.Out {
				ap.Out = &Item{Code: f.char, Extra: []string{"&" + v}}
			}
		case a.Derefs == 1:
			if a.Out {
				return p.unmappable(i, &a, "a string buffer cannot be filled by a reimplementation")
			}
			ap.In = &Item{Code: f.ptr, Extra: []string{v}}
		case a.Derefs == 2:
			if a.In {
				ap.In = &Item{Code: f.ptr, Extra: []string{"*" + v}}
			}
			if a.Out {
				ap.Out = &Item{Code: f.ptr, Extra: []string{v}}
				if f.keepAlive {
					ap.Out.Extra = []string{codegen.Null(p.sc), v}
				}
			}
		default:
			return p.unmappable(i, &a, "too many levels of indirection")
		}

	case ruleEnum:
		if a.Array || a.Derefs > 1 {
			return p.unmappable(i, &a, "unsupported shape")
		}
		if a.In {
			ap.In = p.buildEnum(&a, valueOf(v, a.Derefs))
		}
		if a.Out {
			ptr := storageOf(v, &a)
			if tobj := codegen.TypeObjectFor(p.spec, &a); tobj != "" {
				ap.Out = &Item{Code: enumNamed, Extra: []string{tobj, ptr}}
			} else {
				ap.Out = &Item{Code: enumAnon, Extra: []string{ptr}}
			}
		}

	case ruleClass:
		return p.reverseClass(ap, sizeVar)

	case rulePointer:
		switch {
		case a.Category == ir.Function:
			if a.Out {
				return p.unmappable(i, &a, "function pointers are input only")
			}
			ap.In = &Item{Code: pointerCode, Extra: []string{v}}
		case a.Derefs == 0:
			if a.Out {
				return p.unmappable(i, &a, "structures are input only")
			}
			ap.In = &Item{Code: pointerCode, Extra: []string{"&" + v}}
		default:
			if a.In {
				ap.In = &Item{Code: pointerCode, Extra: []string{valueOf(v, a.Derefs-1)}}
			}
			if a.Out {
				if a.Derefs < 2 {
					return p.unmappable(i, &a, "output pointer needs two levels of indirection")
				}
				ap.Out = &Item{Code: pointerCode, Extra: []string{v}}
			}
		}

	case ruleCapsule:
		name := codegen.Quote(a.TypeName.String())
		if a.In {
			ap.In = &Item{Code: capsuleCode, Extra: []string{valueOf(v, max(a.Derefs-1, 0)), name}}
		}
		if a.Out {
			if a.Derefs < 2 {
				return p.unmappable(i, &a, "output capsule needs two levels of indirection")
			}
			ap.Out = &Item{Code: capsuleCode, Extra: []string{name, v}}
		}

	case rulePassthrough:
		if a.In {
			ap.In = &Item{Code: buildObject, Extra: []string{valueOf(v, max(a.Derefs-1, 0))}}
		}
		if a.Out {
			if a.Derefs < 2 {
				return p.unmappable(i, &a, "output object needs two levels of indirection")
			}
			ap.Out = &Item{Code: f.code, Extra: []string{v}}
		}
	}
	return nil
}

func (p *planner) reverseClass(ap *ArgPlan, sizeVar string) error {
	a := ap.Arg
	i := ap.Index
	v := ap.Var
	tobj := codegen.TypeObjectFor(p.spec, &a)
	base := codegen.BaseType(p.spec, &a, p.sc)
	null := codegen.Null(p.sc)

	if a.Array {
		if a.Out || sizeVar == "" {
			return p.unmappable(i, &a, "class arrays are input only and sized")
		}
		ap.In = &Item{Code: classArrayCode, Extra: []string{v, sizeVar, tobj}}
		return nil
	}
	if a.Derefs > 2 {
		return p.unmappable(i, &a, "too many levels of indirection")
	}

	if a.In {
		var ptr string
		switch {
		case a.Derefs == 0 && !a.Reference:
			if p.sc.C {
				return p.unmappable(i, &a, "structures are passed by pointer in C")
			}
			ap.In = &Item{Code: buildNew, Extra: []string{"new " + base + "(" + v + ")", tobj, null}}
		case a.Derefs == 0:
			ptr = "&" + v
		case a.Derefs == 1:
			ptr = v
		default:
			ptr = "*" + v
		}
		if ap.In == nil {
			if a.Const && !p.sc.C {
				ptr = "const_cast<" + base + " *>(" + ptr + ")"
			}
			ap.In = &Item{Code: buildExisting, Extra: []string{ptr, tobj, null}}
		}
	}
	if a.Out {
		mask := p.classMask(&a, true)
		ap.Out = &Item{Code: classFormats[mask], Extra: []string{tobj, storageOf(v, &a)}}
	}
	return nil
}
