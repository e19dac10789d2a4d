package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/bindgen/internal/ir"
)

// CompileSpec converts a spec document into an ir.Spec.
//
// The document has a top-level module struct for the module being
// generated, an optional imports list (one entry per imported module, each
// carrying its own module struct and entity lists), and the entity lists of
// the generated module:
//
//	module: {name: "shapes", imports: ["core"]}
//	imports: [{module: {name: "core"}, classes: [...]}]
//	classes: [...]
//	mapped_types: [...]
//	enums: [...]
//	exceptions: [...]
//	functions: [...]
//	variables: [...]
//	virtual_error_handlers: [...]
//
// Entities of imported modules come first in every arena. Names are
// resolved in a second pass so declaration order within a document does not
// matter. The first problem found is returned as a *CompileError.
func CompileSpec(v cue.Value) (*ir.Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &specCompiler{
		spec:       &ir.Spec{Module: 0},
		modules:    map[string]ir.ModuleID{},
		classes:    map[string]ir.ClassID{},
		mapped:     map[string]ir.MappedTypeID{},
		enums:      map[string]ir.EnumID{},
		exceptions: map[string]ir.ExceptionID{},
		members:    map[memberKey]ir.MemberID{},
	}

	modVal := v.LookupPath(cue.ParsePath("module"))
	if !modVal.Exists() {
		return nil, &CompileError{Field: "module", Message: "module is required", Pos: v.Pos()}
	}
	main, err := c.declareModule(modVal, "module")
	if err != nil {
		return nil, err
	}
	units := []unit{}

	importsVal := v.LookupPath(cue.ParsePath("imports"))
	if importsVal.Exists() {
		err := eachElement(importsVal, "imports", func(el cue.Value, path string) error {
			mv := el.LookupPath(cue.ParsePath("module"))
			if !mv.Exists() {
				return &CompileError{Field: path + ".module", Message: "module is required", Pos: el.Pos()}
			}
			doc, err := c.declareModule(mv, path+".module")
			if err != nil {
				return err
			}
			units = append(units, unit{v: el, path: path, id: c.modules[doc.Name], doc: doc})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	units = append(units, unit{v: v, path: "", id: 0, doc: main})

	// Pass 1: names.
	for i := range units {
		if err := c.declareEntities(&units[i]); err != nil {
			return nil, err
		}
	}

	// Pass 2: bodies.
	for i := range units {
		if err := c.fillModule(&units[i]); err != nil {
			return nil, err
		}
	}
	for i := range units {
		if err := c.fillEntities(&units[i]); err != nil {
			return nil, err
		}
	}
	return c.spec, nil
}

type memberKey struct {
	module ir.ModuleID
	scope  ir.ClassID
	name   string
}

type specCompiler struct {
	spec       *ir.Spec
	modules    map[string]ir.ModuleID
	classes    map[string]ir.ClassID
	mapped     map[string]ir.MappedTypeID
	enums      map[string]ir.EnumID
	exceptions map[string]ir.ExceptionID
	members    map[memberKey]ir.MemberID
}

// unit is the part of a document describing one module.
type unit struct {
	v    cue.Value
	path string
	id   ir.ModuleID
	doc  *moduleDoc

	classes    []elem[classDoc]
	mapped     []elem[mappedDoc]
	enums      []elem[enumDoc]
	exceptions []elem[exceptionDoc]

	firstClass     ir.ClassID
	firstMapped    ir.MappedTypeID
	firstEnum      ir.EnumID
	firstException ir.ExceptionID
}

func (u *unit) field(name string) string {
	if u.path == "" {
		return name
	}
	return u.path + "." + name
}

// elem is one decoded list element with its origin.
type elem[T any] struct {
	doc  T
	v    cue.Value
	path string
}

func eachElement(list cue.Value, path string, fn func(el cue.Value, path string) error) error {
	iter, err := list.List()
	if err != nil {
		return &CompileError{Field: path, Message: "must be a list", Pos: list.Pos()}
	}
	for i := 0; iter.Next(); i++ {
		if err := fn(iter.Value(), fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func decodeList[T any](v cue.Value, name, path string) ([]elem[T], error) {
	lv := v.LookupPath(cue.ParsePath(name))
	if !lv.Exists() {
		return nil, nil
	}
	var out []elem[T]
	err := eachElement(lv, path, func(el cue.Value, p string) error {
		var doc T
		if err := el.Decode(&doc); err != nil {
			return decodeError(err, p, el.Pos())
		}
		out = append(out, elem[T]{doc: doc, v: el, path: p})
		return nil
	})
	return out, err
}

func decodeError(err error, path string, pos token.Pos) error {
	if ce, ok := formatCUEError(err).(*CompileError); ok {
		ce.Field = path
		return ce
	}
	return &CompileError{Field: path, Message: err.Error(), Pos: pos}
}

// code wraps a handwritten fragment, remembering where it was written.
func code(v cue.Value, field, text string) *ir.CodeBlock {
	if text == "" {
		return nil
	}
	b := &ir.CodeBlock{Text: text}
	if pos := v.LookupPath(cue.ParsePath(field)).Pos(); pos.IsValid() {
		b.File, b.Line = pos.Filename(), pos.Line()
	}
	return b
}

func parseAccess(s, path string, pos token.Pos) (ir.Access, error) {
	switch s {
	case "", "public":
		return ir.Public, nil
	case "protected":
		return ir.Protected, nil
	case "private":
		return ir.Private, nil
	}
	return ir.Public, &CompileError{Field: path + ".access", Message: fmt.Sprintf("unknown access %q", s), Pos: pos}
}

func (c *specCompiler) declareModule(v cue.Value, path string) (*moduleDoc, error) {
	var doc moduleDoc
	if err := v.Decode(&doc); err != nil {
		return nil, decodeError(err, path, v.Pos())
	}
	if doc.Name == "" {
		return nil, &CompileError{Field: path + ".name", Message: "module name is required", Pos: v.Pos()}
	}
	if _, dup := c.modules[doc.Name]; dup {
		return nil, &CompileError{Field: path + ".name", Message: fmt.Sprintf("module %q declared twice", doc.Name), Pos: v.Pos()}
	}
	full := doc.FullName
	if full == "" {
		full = doc.Name
	}
	id := ir.ModuleID(len(c.spec.Modules))
	c.spec.Modules = append(c.spec.Modules, ir.Module{
		Name:             doc.Name,
		FullName:         full,
		Flags:            doc.Flags,
		Qualifiers:       doc.Qualifiers,
		License:          doc.License,
		DefaultException: ir.NoException,
		Doc:              doc.Doc,
	})
	c.modules[doc.Name] = id
	return &doc, nil
}

func (c *specCompiler) declareEntities(u *unit) error {
	var err error
	if u.classes, err = decodeList[classDoc](u.v, "classes", u.field("classes")); err != nil {
		return err
	}
	if u.mapped, err = decodeList[mappedDoc](u.v, "mapped_types", u.field("mapped_types")); err != nil {
		return err
	}
	if u.enums, err = decodeList[enumDoc](u.v, "enums", u.field("enums")); err != nil {
		return err
	}
	if u.exceptions, err = decodeList[exceptionDoc](u.v, "exceptions", u.field("exceptions")); err != nil {
		return err
	}

	u.firstClass = ir.ClassID(len(c.spec.Classes))
	for _, e := range u.classes {
		name := ir.ParseScopedName(e.doc.Name)
		if len(name) == 0 {
			return &CompileError{Field: e.path + ".name", Message: "class name is required", Pos: e.v.Pos()}
		}
		if _, dup := c.classes[name.String()]; dup {
			return &CompileError{Field: e.path + ".name", Message: fmt.Sprintf("class %q declared twice", name), Pos: e.v.Pos()}
		}
		py := e.doc.PyName
		if py == "" {
			py = name.Tail()
		}
		c.classes[name.String()] = ir.ClassID(len(c.spec.Classes))
		c.spec.Classes = append(c.spec.Classes, ir.Class{
			Name:      name,
			PyName:    py,
			Module:    u.id,
			Enclosing: ir.NoClass,
			Flags:     e.doc.Flags,
			SubBase:   ir.NoClass,
			Doc:       e.doc.Doc,
		})
	}

	u.firstMapped = ir.MappedTypeID(len(c.spec.MappedTypes))
	for _, e := range u.mapped {
		name := ir.ParseScopedName(e.doc.Name)
		if len(name) == 0 {
			return &CompileError{Field: e.path + ".name", Message: "mapped type name is required", Pos: e.v.Pos()}
		}
		if _, dup := c.mapped[name.String()]; dup {
			return &CompileError{Field: e.path + ".name", Message: fmt.Sprintf("mapped type %q declared twice", name), Pos: e.v.Pos()}
		}
		py := e.doc.PyName
		if py == "" {
			py = name.Tail()
		}
		c.mapped[name.String()] = ir.MappedTypeID(len(c.spec.MappedTypes))
		c.spec.MappedTypes = append(c.spec.MappedTypes, ir.MappedType{
			Name:            name,
			PyName:          py,
			Module:          u.id,
			Flags:           e.doc.Flags,
			ConvertToCode:   code(e.v, "convert_to_code", e.doc.ConvertToCode),
			ConvertFromCode: code(e.v, "convert_from_code", e.doc.ConvertFromCode),
			ReleaseCode:     code(e.v, "release_code", e.doc.ReleaseCode),
		})
	}

	u.firstEnum = ir.EnumID(len(c.spec.Enums))
	for _, e := range u.enums {
		name := ir.ParseScopedName(e.doc.Name)
		if len(name) > 0 {
			if _, dup := c.enums[name.String()]; dup {
				return &CompileError{Field: e.path + ".name", Message: fmt.Sprintf("enum %q declared twice", name), Pos: e.v.Pos()}
			}
			c.enums[name.String()] = ir.EnumID(len(c.spec.Enums))
		}
		c.spec.Enums = append(c.spec.Enums, ir.Enum{Name: name, Module: u.id, Scope: ir.NoClass})
	}

	u.firstException = ir.ExceptionID(len(c.spec.Exceptions))
	for _, e := range u.exceptions {
		name := ir.ParseScopedName(e.doc.Name)
		if len(name) == 0 {
			return &CompileError{Field: e.path + ".name", Message: "exception name is required", Pos: e.v.Pos()}
		}
		if _, dup := c.exceptions[name.String()]; dup {
			return &CompileError{Field: e.path + ".name", Message: fmt.Sprintf("exception %q declared twice", name), Pos: e.v.Pos()}
		}
		c.exceptions[name.String()] = ir.ExceptionID(len(c.spec.Exceptions))
		c.spec.Exceptions = append(c.spec.Exceptions, ir.Exception{Name: name, Module: u.id, Class: ir.NoClass, Base: ir.NoException})
	}
	return nil
}

func (c *specCompiler) fillModule(u *unit) error {
	m := &c.spec.Modules[u.id]
	mv := u.v.LookupPath(cue.ParsePath("module"))
	mpath := u.field("module")

	for i, name := range u.doc.Imports {
		id, ok := c.modules[name]
		if !ok {
			return &CompileError{Field: fmt.Sprintf("%s.imports[%d]", mpath, i), Message: fmt.Sprintf("unknown module %q", name), Pos: mv.Pos()}
		}
		m.Imports = append(m.Imports, id)
	}
	if u.doc.DefaultException != "" {
		id, ok := c.exceptions[u.doc.DefaultException]
		if !ok {
			return &CompileError{Field: mpath + ".default_exception", Message: fmt.Sprintf("unknown exception %q", u.doc.DefaultException), Pos: mv.Pos()}
		}
		m.DefaultException = id
	}
	m.DefaultErrorHandler = u.doc.DefaultErrorHandler
	m.HeaderCode = code(mv, "header_code", u.doc.HeaderCode)
	m.CppCode = code(mv, "cpp_code", u.doc.CppCode)
	m.PreInitCode = code(mv, "pre_init_code", u.doc.PreInitCode)
	m.InitCode = code(mv, "init_code", u.doc.InitCode)
	m.PostInitCode = code(mv, "post_init_code", u.doc.PostInitCode)

	handlers, err := decodeList[errorHandlerDoc](u.v, "virtual_error_handlers", u.field("virtual_error_handlers"))
	if err != nil {
		return err
	}
	for _, e := range handlers {
		if e.doc.Name == "" {
			return &CompileError{Field: e.path + ".name", Message: "error handler name is required", Pos: e.v.Pos()}
		}
		m.ErrorHandlers = append(m.ErrorHandlers, ir.VirtErrorHandler{Name: e.doc.Name, Code: code(e.v, "code", e.doc.Code)})
	}
	return nil
}

func (c *specCompiler) fillEntities(u *unit) error {
	for i, e := range u.enums {
		if err := c.fillEnum(u.firstEnum+ir.EnumID(i), e); err != nil {
			return err
		}
	}
	for i, e := range u.exceptions {
		if err := c.fillException(u.firstException+ir.ExceptionID(i), e); err != nil {
			return err
		}
	}
	for i, e := range u.classes {
		if err := c.fillClass(u.firstClass+ir.ClassID(i), e); err != nil {
			return err
		}
	}

	functions, err := decodeList[overloadDoc](u.v, "functions", u.field("functions"))
	if err != nil {
		return err
	}
	for _, e := range functions {
		if _, err := c.addOverload(u.id, ir.NoClass, e); err != nil {
			return err
		}
	}

	variables, err := decodeList[variableDoc](u.v, "variables", u.field("variables"))
	if err != nil {
		return err
	}
	for _, e := range variables {
		if err := c.addVariable(u.id, e); err != nil {
			return err
		}
	}
	return nil
}

func (c *specCompiler) fillEnum(id ir.EnumID, e elem[enumDoc]) error {
	en := c.spec.Enum(id)
	en.PyName = e.doc.PyName
	if en.PyName == "" {
		en.PyName = en.Name.Tail()
	}
	en.Protected, en.Scoped, en.NoScope = e.doc.Protected, e.doc.Scoped, e.doc.NoScope
	switch e.doc.Kind {
	case "", "enum":
		en.Kind = ir.EnumPlain
	case "flag":
		en.Kind = ir.EnumFlag
	case "int_enum":
		en.Kind = ir.EnumIntEnum
	case "int_flag":
		en.Kind = ir.EnumIntFlag
	case "uint_enum":
		en.Kind = ir.EnumUIntEnum
	default:
		return &CompileError{Field: e.path + ".kind", Message: fmt.Sprintf("unknown enum kind %q", e.doc.Kind), Pos: e.v.Pos()}
	}
	if e.doc.Scope != "" {
		cls, err := c.class(e.doc.Scope, e.path+".scope", e.v.Pos())
		if err != nil {
			return err
		}
		en.Scope = cls
	}
	for _, m := range e.doc.Members {
		py, cname, ok := strings.Cut(m, "=")
		if !ok {
			cname = m
		}
		en.Members = append(en.Members, ir.EnumMember{PyName: strings.TrimSpace(py), CName: strings.TrimSpace(cname)})
	}
	return nil
}

func (c *specCompiler) fillException(id ir.ExceptionID, e elem[exceptionDoc]) error {
	ex := c.spec.Exception(id)
	ex.PyName = e.doc.PyName
	if ex.PyName == "" {
		ex.PyName = ex.Name.Tail()
	}
	ex.RaiseCode = code(e.v, "raise_code", e.doc.RaiseCode)
	if e.doc.Class != "" {
		cls, err := c.class(e.doc.Class, e.path+".class", e.v.Pos())
		if err != nil {
			return err
		}
		ex.Class = cls
	}
	if e.doc.Base != "" {
		base, ok := c.exceptions[e.doc.Base]
		if !ok {
			return &CompileError{Field: e.path + ".base", Message: fmt.Sprintf("unknown exception %q", e.doc.Base), Pos: e.v.Pos()}
		}
		ex.Base = base
	} else {
		ex.BuiltinBase = e.doc.BuiltinBase
		if ex.BuiltinBase == "" {
			ex.BuiltinBase = "Exception"
		}
	}
	return nil
}

func (c *specCompiler) fillClass(id ir.ClassID, e elem[classDoc]) error {
	cls := c.spec.Class(id)
	d := &e.doc

	if len(cls.Name) > 1 {
		if outer, ok := c.classes[cls.Name[:len(cls.Name)-1].String()]; ok {
			cls.Enclosing = outer
		}
	}
	for i, s := range d.Supers {
		sup, err := c.class(s, fmt.Sprintf("%s.supers[%d]", e.path, i), e.v.Pos())
		if err != nil {
			return err
		}
		cls.Supers = append(cls.Supers, sup)
	}
	if d.SubBase != "" {
		sb, err := c.class(d.SubBase, e.path+".sub_base", e.v.Pos())
		if err != nil {
			return err
		}
		cls.SubBase = sb
	}
	cls.ConvertToCode = code(e.v, "convert_to_code", d.ConvertToCode)
	cls.ConvertFromCode = code(e.v, "convert_from_code", d.ConvertFromCode)
	cls.ConvertToSubCode = code(e.v, "convert_to_sub_code", d.ConvertToSubCode)
	cls.CppCode = code(e.v, "cpp_code", d.CppCode)
	cls.VirtErrorHandler = d.VirtErrorHandler

	if d.Dtor != nil {
		dv := e.v.LookupPath(cue.ParsePath("dtor"))
		acc, err := parseAccess(d.Dtor.Access, e.path+".dtor", dv.Pos())
		if err != nil {
			return err
		}
		cls.DtorAccess = acc
		if cls.DtorThrows, err = c.throws(d.Dtor.Throws, e.path+".dtor", dv.Pos()); err != nil {
			return err
		}
		cls.DtorCode = code(dv, "code", d.Dtor.Code)
	}

	ctors, err := decodeList[ctorDoc](e.v, "ctors", e.path+".ctors")
	if err != nil {
		return err
	}
	for _, ce := range ctors {
		ct, err := c.ctor(id, ce)
		if err != nil {
			return err
		}
		cls = c.spec.Class(id)
		cls.Ctors = append(cls.Ctors, ct)
	}

	methods, err := decodeList[overloadDoc](e.v, "methods", e.path+".methods")
	if err != nil {
		return err
	}
	for _, me := range methods {
		if _, err := c.addOverload(cls.Module, id, me); err != nil {
			return err
		}
	}
	return nil
}

func (c *specCompiler) ctor(cls ir.ClassID, e elem[ctorDoc]) (ir.Ctor, error) {
	d := &e.doc
	pos := e.v.Pos()
	acc, err := parseAccess(d.Access, e.path, pos)
	if err != nil {
		return ir.Ctor{}, err
	}
	host, err := c.args(d.Args, e.path+".args", pos)
	if err != nil {
		return ir.Ctor{}, err
	}
	ct := ir.Ctor{
		Access:      acc,
		HostSig:     ir.NewSignature(host...),
		MethodCode:  code(e.v, "method_code", d.MethodCode),
		ReleaseGIL:  d.ReleaseGIL,
		HoldGIL:     d.HoldGIL,
		Transfer:    d.Transfer,
		Deprecated:  d.Deprecated,
		Explicit:    d.Explicit,
		KeywordArgs: d.KeywordArgs,
		PreHook:     d.PreHook,
		PostHook:    d.PostHook,
		Doc:         d.Doc,
	}
	if d.Native != nil {
		native, err := c.signature(d.Native, nil, e.path+".native", pos)
		if err != nil {
			return ir.Ctor{}, err
		}
		ct.NativeSig = &native
	}
	if ct.Throws, err = c.throws(d.Throws, e.path, pos); err != nil {
		return ir.Ctor{}, err
	}
	return ct, nil
}

// addOverload appends an overload to the member it names, creating the
// member on first use. A dunder name binds a slot.
func (c *specCompiler) addOverload(mod ir.ModuleID, scope ir.ClassID, e elem[overloadDoc]) (ir.OverloadID, error) {
	d := &e.doc
	pos := e.v.Pos()
	if d.Name == "" {
		return 0, &CompileError{Field: e.path + ".name", Message: "name is required", Pos: pos}
	}
	acc, err := parseAccess(d.Access, e.path, pos)
	if err != nil {
		return 0, err
	}

	args, err := c.args(d.Args, e.path+".args", pos)
	if err != nil {
		return 0, err
	}
	host := ir.NewSignature(args...)
	if d.Result != nil {
		if host.Result, err = c.arg(d.Result, true, e.path+".result", pos); err != nil {
			return 0, err
		}
	}

	native := d.NativeName
	if native == "" {
		native = d.Name
	}
	o := ir.Overload{
		NativeName:       native,
		Scope:            scope,
		Access:           acc,
		Flags:            d.Flags,
		HostSig:          host,
		MethodCode:       code(e.v, "method_code", d.MethodCode),
		PreMethodCode:    code(e.v, "pre_method_code", d.PreMethodCode),
		VirtualCallCode:  code(e.v, "virtual_call_code", d.VirtualCallCode),
		VirtualCode:      code(e.v, "virtual_code", d.VirtualCode),
		PreHook:          d.PreHook,
		PostHook:         d.PostHook,
		VirtErrorHandler: d.VirtErrorHandler,
		Doc:              d.Doc,
		Line:             pos.Line(),
	}
	if d.Native != nil {
		ns, err := c.signature(d.Native, &host.Result, e.path+".native", pos)
		if err != nil {
			return 0, err
		}
		o.NativeSig = &ns
	}
	if o.Throws, err = c.throws(d.Throws, e.path, pos); err != nil {
		return 0, err
	}

	key := memberKey{module: mod, scope: scope, name: d.Name}
	mid, ok := c.members[key]
	if !ok {
		slot := ir.SlotForName(d.Name)
		mid = ir.MemberID(len(c.spec.Members))
		c.spec.Members = append(c.spec.Members, ir.Member{
			Name:    d.Name,
			Slot:    slot,
			Module:  mod,
			Scope:   scope,
			Numeric: slot != ir.NoSlot && slot.IsNumber(),
		})
		c.members[key] = mid
		if scope == ir.NoClass {
			c.spec.Modules[mod].Members = append(c.spec.Modules[mod].Members, mid)
		} else {
			cls := c.spec.Class(scope)
			cls.Members = append(cls.Members, mid)
		}
	}
	o.Member = mid

	oid := ir.OverloadID(len(c.spec.Overloads))
	c.spec.Overloads = append(c.spec.Overloads, o)
	m := c.spec.Member(mid)
	m.Overloads = append(m.Overloads, oid)
	if d.KeywordArgs {
		m.KeywordArgs = true
	}
	if scope == ir.NoClass {
		c.spec.Modules[mod].Overloads = append(c.spec.Modules[mod].Overloads, oid)
	} else {
		cls := c.spec.Class(scope)
		cls.Overloads = append(cls.Overloads, oid)
	}
	return oid, nil
}

func (c *specCompiler) addVariable(mod ir.ModuleID, e elem[variableDoc]) error {
	d := &e.doc
	pos := e.v.Pos()
	name := ir.ParseScopedName(d.Name)
	if len(name) == 0 {
		return &CompileError{Field: e.path + ".name", Message: "variable name is required", Pos: pos}
	}
	typ, err := c.arg(&d.Type, false, e.path+".type", pos)
	if err != nil {
		return err
	}
	v := ir.Variable{
		Name:     name,
		PyName:   d.PyName,
		Module:   mod,
		Scope:    ir.NoClass,
		Type:     typ,
		Static:   d.Static,
		NoSetter: d.NoSetter,
	}
	if v.PyName == "" {
		v.PyName = name.Tail()
	}
	if d.Scope != "" {
		if v.Scope, err = c.class(d.Scope, e.path+".scope", pos); err != nil {
			return err
		}
	}
	c.spec.Variables = append(c.spec.Variables, v)
	return nil
}

func (c *specCompiler) class(name, path string, pos token.Pos) (ir.ClassID, error) {
	id, ok := c.classes[strings.TrimPrefix(name, "::")]
	if !ok {
		return ir.NoClass, &CompileError{Field: path, Message: fmt.Sprintf("unknown class %q", name), Pos: pos}
	}
	return id, nil
}

func (c *specCompiler) throws(names *[]string, path string, pos token.Pos) (*ir.ThrowList, error) {
	if names == nil {
		return nil, nil
	}
	tl := &ir.ThrowList{Items: []ir.ExceptionID{}}
	for i, n := range *names {
		id, ok := c.exceptions[n]
		if !ok {
			return nil, &CompileError{Field: fmt.Sprintf("%s.throws[%d]", path, i), Message: fmt.Sprintf("unknown exception %q", n), Pos: pos}
		}
		tl.Items = append(tl.Items, id)
	}
	return tl, nil
}

// signature builds a native signature. A missing result inherits
// fallback, or void when there is none.
func (c *specCompiler) signature(d *sigDoc, fallback *ir.Arg, path string, pos token.Pos) (ir.Signature, error) {
	args, err := c.args(d.Args, path+".args", pos)
	if err != nil {
		return ir.Signature{}, err
	}
	sig := ir.NewSignature(args...)
	switch {
	case d.Result != nil:
		if sig.Result, err = c.arg(d.Result, true, path+".result", pos); err != nil {
			return ir.Signature{}, err
		}
	case fallback != nil:
		sig.Result = *fallback
	}
	return sig, nil
}

func (c *specCompiler) args(docs []argDoc, path string, pos token.Pos) ([]ir.Arg, error) {
	out := make([]ir.Arg, 0, len(docs))
	for i := range docs {
		a, err := c.arg(&docs[i], false, fmt.Sprintf("%s[%d]", path, i), pos)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *specCompiler) arg(d *argDoc, result bool, path string, pos token.Pos) (ir.Arg, error) {
	if d.Type == "" {
		return ir.Arg{}, &CompileError{Field: path + ".type", Message: "type is required", Pos: pos}
	}
	cat, err := ir.ParseCategory(d.Type)
	if err != nil {
		return ir.Arg{}, &CompileError{Field: path + ".type", Message: err.Error(), Pos: pos}
	}

	a := ir.NewArg(cat)
	a.Name = d.Name
	a.Derefs, a.Const, a.Reference = d.Derefs, d.Const, d.Reference
	a.Out = d.Out
	a.In = !d.Out
	if d.In != nil {
		a.In = *d.In
	}
	if result {
		a.In, a.Out = false, false
	}
	a.Array, a.ArraySize = d.Array, d.ArraySize
	a.TransferToHost, a.TransferToNative, a.TransferThis = d.TransferToHost, d.TransferToNative, d.TransferThis
	a.KeepReference, a.Key = d.KeepReference, d.Key
	a.AllowNone, a.DisallowNone = d.AllowNone, d.DisallowNone
	a.Constrained, a.GetWrapper, a.NoCopy = d.Constrained, d.GetWrapper, d.NoCopy

	switch cat {
	case ir.ClassType:
		if a.Class, err = c.class(d.Class, path+".class", pos); err != nil {
			return ir.Arg{}, err
		}
	case ir.Mapped:
		id, ok := c.mapped[d.Mapped]
		if !ok {
			return ir.Arg{}, &CompileError{Field: path + ".mapped", Message: fmt.Sprintf("unknown mapped type %q", d.Mapped), Pos: pos}
		}
		a.Mapped = id
	case ir.EnumType:
		if d.Enum != "" {
			id, ok := c.enums[d.Enum]
			if !ok {
				return ir.Arg{}, &CompileError{Field: path + ".enum", Message: fmt.Sprintf("unknown enum %q", d.Enum), Pos: pos}
			}
			a.Enum = id
		}
	case ir.Struct, ir.Union, ir.Capsule:
		a.TypeName = ir.ParseScopedName(d.TypeName)
	case ir.TemplateType:
		if d.Template == nil || d.Template.Name == "" {
			return ir.Arg{}, &CompileError{Field: path + ".template", Message: "template name is required", Pos: pos}
		}
		types, err := c.args(d.Template.Types, path+".template.types", pos)
		if err != nil {
			return ir.Arg{}, err
		}
		a.Template = &ir.Template{Name: ir.ParseScopedName(d.Template.Name), Types: ir.NewSignature(types...)}
	case ir.Function:
		if d.Func == nil {
			return ir.Arg{}, &CompileError{Field: path + ".func", Message: "function signature is required", Pos: pos}
		}
		fn, err := c.signature(d.Func, nil, path+".func", pos)
		if err != nil {
			return ir.Arg{}, err
		}
		a.Func = &fn
	}

	if d.Default != nil {
		if a.Default, err = defaultValue(d.Default); err != nil {
			return ir.Arg{}, &CompileError{Field: path + ".default", Message: err.Error(), Pos: pos}
		}
	}
	return a, nil
}

func defaultValue(d *defaultDoc) (ir.Value, error) {
	switch {
	case d.Null:
		return ir.NullValue{}, nil
	case d.Bool != nil:
		return ir.BoolValue(*d.Bool), nil
	case d.Int != nil:
		return ir.IntValue(*d.Int), nil
	case d.String != nil:
		return ir.StringValue(*d.String), nil
	case d.Char != nil:
		return ir.ParseValue("char", *d.Char)
	case d.Expr != nil:
		return ir.ExprValue(*d.Expr), nil
	}
	return nil, fmt.Errorf("default names no value")
}
