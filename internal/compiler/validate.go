package compiler

import (
	"fmt"

	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/sigmatch"
)

// Validation error codes (E200-E299)
const (
	ErrArrayPairing      = "E201" // array without exactly one size partner, or vice versa
	ErrKeepReference     = "E202" // keep_reference on a void result, or a bad key
	ErrOutputCategory    = "E203" // argument that can never carry a value back
	ErrAbstractNotVirt   = "E204" // abstract overload that is not virtual
	ErrDuplicateOverload = "E205" // two overloads of a member with the same strict signature
	ErrTransferCategory  = "E206" // transfer flags on a non-class argument
	ErrCTarget           = "E207" // virtual or protected members with the C target
	ErrNoneConflict      = "E208" // allow_none and disallow_none both set
	ErrDanglingIndex     = "E209" // arena index out of range
	ErrStaticVirtual     = "E210" // static and virtual both set
)

// ValidationError is a rule violation in a compiled spec.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Entity  string `json:"entity,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled spec against the rules the emitters rely on.
// Returns all errors found (does not fail-fast). Index checks run first;
// the remaining rules are skipped when any index dangles.
func Validate(spec *ir.Spec, cfg config.Config) []ValidationError {
	v := &validator{spec: spec, cfg: cfg, match: sigmatch.New(spec)}
	v.checkIndexes()
	if len(v.errs) > 0 {
		return v.errs
	}
	for i := range spec.Classes {
		v.checkClass(ir.ClassID(i))
	}
	for i := range spec.Overloads {
		v.checkOverload(ir.OverloadID(i))
	}
	for i := range spec.Members {
		v.checkMember(ir.MemberID(i))
	}
	for i := range spec.Variables {
		va := &spec.Variables[i]
		v.checkArg(&va.Type, fmt.Sprintf("variables[%d].type", i), va.Name.String(), 0, false)
	}
	return v.errs
}

type validator struct {
	spec  *ir.Spec
	cfg   config.Config
	match *sigmatch.Matcher
	errs  []ValidationError
}

func (v *validator) add(code, field, entity string, line int, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		Entity:  entity,
		Line:    line,
	})
}

func (v *validator) overloadName(id ir.OverloadID) string {
	o := v.spec.Overload(id)
	if o.Scope == ir.NoClass {
		return o.NativeName
	}
	return v.spec.Class(o.Scope).Name.String() + "::" + o.NativeName
}

func (v *validator) checkClass(id ir.ClassID) {
	c := v.spec.Class(id)
	name := c.Name.String()
	for i := range c.Ctors {
		ct := &c.Ctors[i]
		field := fmt.Sprintf("classes[%d].ctors[%d]", id, i)
		v.checkSignature(&ct.HostSig, field, name, 0)
		if ct.NativeSig != nil {
			v.checkSignature(ct.NativeSig, field+".native", name, 0)
		}
		if v.cfg.IsC() && ct.Access == ir.Protected && v.spec.IsLocal(id) {
			v.add(ErrCTarget, field, name, 0, "protected constructor of %s cannot be wrapped in C", name)
		}
	}
}

func (v *validator) checkOverload(id ir.OverloadID) {
	o := v.spec.Overload(id)
	name := v.overloadName(id)
	field := fmt.Sprintf("overloads[%d]", id)

	v.checkSignature(&o.HostSig, field, name, o.Line)
	if o.NativeSig != nil {
		v.checkSignature(o.NativeSig, field+".native", name, o.Line)
	}

	if o.Flags.Abstract && !o.Flags.Virtual {
		v.add(ErrAbstractNotVirt, field+".flags", name, o.Line, "%s is abstract but not virtual", name)
	}
	if o.Flags.Static && (o.Flags.Virtual || o.Flags.Reimplemented) {
		v.add(ErrStaticVirtual, field+".flags", name, o.Line, "%s cannot be both static and virtual", name)
	}
	local := o.Scope != ir.NoClass && v.spec.IsLocal(o.Scope)
	if v.cfg.IsC() && local {
		switch {
		case o.Flags.Virtual || o.Flags.Reimplemented:
			v.add(ErrCTarget, field+".flags", name, o.Line, "virtual %s cannot be reimplemented from the host in C", name)
		case o.Access == ir.Protected:
			v.add(ErrCTarget, field+".access", name, o.Line, "protected %s cannot be wrapped in C", name)
		}
	}
}

// checkMember reports overloads of one member that a native compiler would
// reject as redeclarations.
func (v *validator) checkMember(id ir.MemberID) {
	m := v.spec.Member(id)
	for i := 0; i < len(m.Overloads); i++ {
		a := v.spec.Overload(m.Overloads[i])
		for j := i + 1; j < len(m.Overloads); j++ {
			b := v.spec.Overload(m.Overloads[j])
			if a.Flags.Const != b.Flags.Const || a.NativeName != b.NativeName {
				continue
			}
			if v.match.Equivalent(a.Native(), b.Native(), true) {
				name := v.overloadName(m.Overloads[j])
				v.add(ErrDuplicateOverload, fmt.Sprintf("overloads[%d]", m.Overloads[j]), name, b.Line,
					"%s has the same signature as an earlier overload", name)
			}
		}
	}
}

func (v *validator) checkSignature(sig *ir.Signature, field, entity string, line int) {
	arrays, sizes := 0, 0
	for i := range sig.Args {
		a := &sig.Args[i]
		if a.Array {
			arrays++
		}
		if a.ArraySize {
			sizes++
		}
		v.checkArg(a, fmt.Sprintf("%s.args[%d]", field, i), entity, line, false)
	}
	if (arrays > 0 || sizes > 0) && (arrays != 1 || sizes != 1) {
		v.add(ErrArrayPairing, field+".args", entity, line,
			"%d array and %d array size arguments, want exactly one of each", arrays, sizes)
	}

	res := &sig.Result
	if res.KeepReference && res.Category == ir.Void && res.Derefs == 0 {
		v.add(ErrKeepReference, field+".result", entity, line, "keep_reference on a void result")
	}
	v.checkArg(res, field+".result", entity, line, true)
}

func (v *validator) checkArg(a *ir.Arg, field, entity string, line int, result bool) {
	if a.Key < 0 || (a.Key > 0 && !a.KeepReference) {
		v.add(ErrKeepReference, field+".key", entity, line, "key %d without keep_reference", a.Key)
	}
	if !result {
		if !a.In && !a.Out {
			v.add(ErrOutputCategory, field, entity, line, "argument is neither input nor output")
		}
		if a.Out {
			switch a.Category {
			case ir.Void, ir.Ellipsis, ir.Function:
				v.add(ErrOutputCategory, field, entity, line, "%s argument cannot be an output", a.Category)
			}
		}
	}
	if a.TransferToHost || a.TransferToNative || a.TransferThis {
		if !a.Category.IsClassLike() && !a.Category.IsHostObject() {
			v.add(ErrTransferCategory, field, entity, line, "transfer flags on a %s argument", a.Category)
		}
	}
	if a.AllowNone && a.DisallowNone {
		v.add(ErrNoneConflict, field, entity, line, "allow_none and disallow_none are exclusive")
	}
}

// checkIndexes reports every arena reference that does not resolve.
func (v *validator) checkIndexes() {
	s := v.spec
	okModule := func(id ir.ModuleID) bool { return id >= 0 && int(id) < len(s.Modules) }
	okClass := func(id ir.ClassID) bool { return id >= 0 && int(id) < len(s.Classes) }
	optClass := func(id ir.ClassID) bool { return id == ir.NoClass || okClass(id) }
	okMember := func(id ir.MemberID) bool { return id >= 0 && int(id) < len(s.Members) }
	okOverload := func(id ir.OverloadID) bool { return id >= 0 && int(id) < len(s.Overloads) }
	optException := func(id ir.ExceptionID) bool {
		return id == ir.NoException || (id >= 0 && int(id) < len(s.Exceptions))
	}
	dangling := func(field, what string, id int) {
		v.add(ErrDanglingIndex, field, "", 0, "%s index %d does not resolve", what, id)
	}

	if !okModule(s.Module) {
		dangling("module", "module", int(s.Module))
		return
	}
	for i := range s.Modules {
		m := &s.Modules[i]
		for _, imp := range m.Imports {
			if !okModule(imp) {
				dangling(fmt.Sprintf("modules[%d].imports", i), "module", int(imp))
			}
		}
		if !optException(m.DefaultException) {
			dangling(fmt.Sprintf("modules[%d].default_exception", i), "exception", int(m.DefaultException))
		}
		for _, mid := range m.Members {
			if !okMember(mid) {
				dangling(fmt.Sprintf("modules[%d].members", i), "member", int(mid))
			}
		}
		for _, oid := range m.Overloads {
			if !okOverload(oid) {
				dangling(fmt.Sprintf("modules[%d].overloads", i), "overload", int(oid))
			}
		}
	}
	for i := range s.Classes {
		c := &s.Classes[i]
		field := fmt.Sprintf("classes[%d]", i)
		if !okModule(c.Module) {
			dangling(field+".module", "module", int(c.Module))
		}
		if !optClass(c.Enclosing) {
			dangling(field+".enclosing", "class", int(c.Enclosing))
		}
		if !optClass(c.SubBase) {
			dangling(field+".sub_base", "class", int(c.SubBase))
		}
		for _, sup := range c.Supers {
			if !okClass(sup) {
				dangling(field+".supers", "class", int(sup))
			}
		}
		for _, mid := range c.Members {
			if !okMember(mid) {
				dangling(field+".members", "member", int(mid))
			}
		}
		for _, oid := range c.Overloads {
			if !okOverload(oid) {
				dangling(field+".overloads", "overload", int(oid))
			}
		}
		for j := range c.Ctors {
			v.checkSigIndexes(c.Ctors[j].Native(), fmt.Sprintf("%s.ctors[%d]", field, j))
			v.checkSigIndexes(&c.Ctors[j].HostSig, fmt.Sprintf("%s.ctors[%d]", field, j))
		}
	}
	for i := range s.MappedTypes {
		if !okModule(s.MappedTypes[i].Module) {
			dangling(fmt.Sprintf("mapped_types[%d].module", i), "module", int(s.MappedTypes[i].Module))
		}
	}
	for i := range s.Enums {
		if !optClass(s.Enums[i].Scope) {
			dangling(fmt.Sprintf("enums[%d].scope", i), "class", int(s.Enums[i].Scope))
		}
	}
	for i := range s.Exceptions {
		ex := &s.Exceptions[i]
		if !optClass(ex.Class) {
			dangling(fmt.Sprintf("exceptions[%d].class", i), "class", int(ex.Class))
		}
		if !optException(ex.Base) {
			dangling(fmt.Sprintf("exceptions[%d].base", i), "exception", int(ex.Base))
		}
	}
	for i := range s.Members {
		m := &s.Members[i]
		if !optClass(m.Scope) {
			dangling(fmt.Sprintf("members[%d].scope", i), "class", int(m.Scope))
		}
		for _, oid := range m.Overloads {
			if !okOverload(oid) {
				dangling(fmt.Sprintf("members[%d].overloads", i), "overload", int(oid))
			}
		}
	}
	for i := range s.Overloads {
		o := &s.Overloads[i]
		field := fmt.Sprintf("overloads[%d]", i)
		if !okMember(o.Member) {
			dangling(field+".member", "member", int(o.Member))
		}
		if !optClass(o.Scope) {
			dangling(field+".scope", "class", int(o.Scope))
		}
		v.checkSigIndexes(&o.HostSig, field)
		if o.NativeSig != nil {
			v.checkSigIndexes(o.NativeSig, field+".native")
		}
		if o.Throws != nil {
			for _, ex := range o.Throws.Items {
				if !optException(ex) || ex == ir.NoException {
					dangling(field+".throws", "exception", int(ex))
				}
			}
		}
	}
	for i := range s.Variables {
		if !optClass(s.Variables[i].Scope) {
			dangling(fmt.Sprintf("variables[%d].scope", i), "class", int(s.Variables[i].Scope))
		}
		v.checkArgIndexes(&s.Variables[i].Type, fmt.Sprintf("variables[%d].type", i))
	}
}

func (v *validator) checkSigIndexes(sig *ir.Signature, field string) {
	v.checkArgIndexes(&sig.Result, field+".result")
	for i := range sig.Args {
		v.checkArgIndexes(&sig.Args[i], fmt.Sprintf("%s.args[%d]", field, i))
	}
}

func (v *validator) checkArgIndexes(a *ir.Arg, field string) {
	s := v.spec
	switch a.Category {
	case ir.ClassType:
		if a.Class < 0 || int(a.Class) >= len(s.Classes) {
			v.add(ErrDanglingIndex, field+".class", "", 0, "class index %d does not resolve", a.Class)
		}
	case ir.Mapped:
		if a.Mapped < 0 || int(a.Mapped) >= len(s.MappedTypes) {
			v.add(ErrDanglingIndex, field+".mapped", "", 0, "mapped type index %d does not resolve", a.Mapped)
		}
	case ir.EnumType:
		if a.Enum != ir.NoEnum && (a.Enum < 0 || int(a.Enum) >= len(s.Enums)) {
			v.add(ErrDanglingIndex, field+".enum", "", 0, "enum index %d does not resolve", a.Enum)
		}
	case ir.TemplateType:
		if a.Template == nil {
			v.add(ErrDanglingIndex, field+".template", "", 0, "template argument without a template")
			return
		}
		v.checkSigIndexes(&a.Template.Types, field+".template")
	case ir.Function:
		if a.Func != nil {
			v.checkSigIndexes(a.Func, field+".func")
		}
	}
}
