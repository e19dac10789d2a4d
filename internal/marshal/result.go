package marshal

import (
	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
)

// forwardResult plans how the native result is held and built for the host.
// The caller assigns Prefix + call + Suffix to Var.
func (p *planner) forwardResult(res ir.Arg) (*ResultPlan, error) {
	rp := &ResultPlan{Arg: res, Var: codegen.ResultVar}
	v := rp.Var
	f := formats[res.Category]

	switch f.rule {
	case ruleNone, ruleEllipsis:
		return nil, p.unmappable(-1, &res, "not a result type")

	case ruleFixed:
		if res.Derefs > 0 {
			rp.Decl = p.decl(pointerLocal(res), v, "")
			rp.Item = Item{Code: pointerCode, Extra: []string{v}}
			break
		}
		rp.Decl = p.decl(valueLocal(res), v, "")
		rp.Item = Item{Code: f.code, Extra: []string{v}}

	case ruleString:
		switch res.Derefs {
		case 0:
			rp.Decl = p.decl(valueLocal(res), v, "")
			rp.Item = Item{Code: f.char, Extra: []string{v}}
		case 1:
			rp.Decl = p.decl(pointerLocal(res), v, "")
			rp.Item = Item{Code: f.ptr, Extra: []string{v}}
		default:
			return nil, p.unmappable(-1, &res, "too many levels of indirection")
		}

	case ruleEnum:
		rp.Decl = p.decl(valueLocal(res), v, "")
		rp.Item = *p.buildEnum(&res, v)

	case ruleClass:
		tobj := codegen.TypeObjectFor(p.spec, &res)
		base := codegen.BaseType(p.spec, &res, p.sc)
		local := pointerLocal(res)
		switch {
		case res.Derefs > 1:
			return nil, p.unmappable(-1, &res, "too many levels of indirection")
		case res.Derefs == 0 && !res.Reference:
			if p.sc.C {
				return nil, p.unmappable(-1, &res, "structures are returned by pointer in C")
			}
			local.Const = false
			rp.Prefix, rp.Suffix = "new "+base+"(", ")"
			rp.HeapCopy = true
		case res.Reference:
			rp.Prefix = "&"
		}
		rp.Decl = p.decl(local, v, "")

		switch {
		case rp.HeapCopy || p.opts.ResultToHost:
			rp.Item = Item{Code: buildNew, Extra: []string{v, tobj, codegen.Null(p.sc)}}
		case p.opts.ResultToNative:
			owner := p.opts.Owner
			if owner == "" {
				owner = "Py_None"
			}
			rp.Item = Item{Code: buildExisting, Extra: []string{v, tobj, owner}}
		default:
			rp.Item = Item{Code: buildExisting, Extra: []string{v, tobj, codegen.Null(p.sc)}}
		}

	case rulePointer:
		switch {
		case res.Category == ir.Function:
			rp.Decl = p.decl(res, v, "")
		case res.Derefs == 0:
			return nil, p.unmappable(-1, &res, "structures are returned by pointer")
		default:
			rp.Decl = p.decl(res, v, "")
		}
		rp.Item = Item{Code: pointerCode, Extra: []string{v}}

	case ruleCapsule:
		rp.Decl = p.decl(pointerLocal(res), v, "")
		rp.Item = Item{Code: capsuleCode, Extra: []string{v, codegen.Quote(res.TypeName.String())}}

	case rulePassthrough:
		local := pointerLocal(res)
		local.Const = false
		rp.Decl = p.decl(local, v, "")
		rp.Item = Item{Code: buildObject, Extra: []string{v}}
	}
	if res.KeepReference {
		keeper := p.opts.Owner
		if keeper == "" {
			keeper = codegen.Null(p.sc)
		}
		rp.Post = append(rp.Post, keepReference(keeper, res.Key, codegen.ResultObjVar))
	}
	return rp, nil
}

// reverseResult plans how a reimplementation's return value is parsed back.
func (p *planner) reverseResult(res ir.Arg) (*ResultPlan, error) {
	rp := &ResultPlan{Arg: res, Var: codegen.ResultVar}
	v := rp.Var
	null := codegen.Null(p.sc)
	f := formats[res.Category]

	switch f.rule {
	case ruleNone, ruleEllipsis:
		return nil, p.unmappable(-1, &res, "not a result type")

	case ruleFixed:
		if res.Derefs > 0 {
			return nil, p.unmappable(-1, &res, "a reimplementation cannot return a pointer to a value")
		}
		rp.Decl = p.decl(valueLocal(res), v, "0")
		rp.Item = Item{Code: f.code, Extra: []string{"&" + v}}

	case ruleString:
		switch res.Derefs {
		case 0:
			rp.Decl = p.decl(valueLocal(res), v, "0")
			rp.Item = Item{Code: f.char, Extra: []string{"&" + v}}
		case 1:
			rp.Decl = p.decl(pointerLocal(res), v, null)
			rp.Item = Item{Code: f.ptr, Extra: []string{"&" + v}}
			if f.keepAlive {
				// The encoded object lives as long as the host result.
				rp.Item.Extra = []string{null, "&" + v}
			}
		default:
			return nil, p.unmappable(-1, &res, "too many levels of indirection")
		}

	case ruleEnum:
		base := codegen.BaseType(p.spec, &res, p.sc)
		rp.Decl = p.decl(valueLocal(res), v, codegen.Cast(base, "0", p.sc))
		if tobj := codegen.TypeObjectFor(p.spec, &res); tobj != "" {
			rp.Item = Item{Code: enumNamed, Extra: []string{tobj, "&" + v}}
		} else {
			rp.Item = Item{Code: enumAnon, Extra: []string{"&" + v}}
		}

	case ruleClass:
		if res.Derefs > 1 {
			return nil, p.unmappable(-1, &res, "too many levels of indirection")
		}
		tobj := codegen.TypeObjectFor(p.spec, &res)
		mask := p.classMask(&res, false)
		rp.Decl = p.decl(pointerLocal(res), v, null)
		rp.Item = Item{Code: classFormats[mask], Extra: []string{tobj, "&" + v}}
		if mask&classState != 0 {
			rp.State = v + "State"
			rp.Item.Extra = append(rp.Item.Extra, "&"+rp.State)
		}

	case rulePointer:
		if res.Category != ir.Function && res.Derefs == 0 {
			return nil, p.unmappable(-1, &res, "structures are returned by pointer")
		}
		rp.Decl = p.decl(res, v, null)
		rp.Item = Item{Code: pointerCode, Extra: []string{"&" + v}}

	case ruleCapsule:
		rp.Decl = p.decl(pointerLocal(res), v, null)
		rp.Item = Item{Code: capsuleCode, Extra: []string{codegen.Quote(res.TypeName.String()), "&" + v}}

	case rulePassthrough:
		local := pointerLocal(res)
		local.Const = false
		rp.Decl = p.decl(local, v, null)
		rp.Item = Item{Code: f.code, Extra: []string{"&" + v}}
	}
	return rp, nil
}
