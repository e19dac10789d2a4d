// Package testutil builds IR fixtures programmatically and provides
// deterministic stand-ins for the generator's sources of variation.
package testutil

import (
	"github.com/roach88/bindgen/internal/ir"
)

// SpecBuilder assembles an ir.Spec for tests. Entities are appended in
// call order, so IDs are predictable.
type SpecBuilder struct {
	spec *ir.Spec
}

// NewSpec starts a spec whose generated module is name.
func NewSpec(name string) *SpecBuilder {
	return &SpecBuilder{spec: &ir.Spec{
		Module: 0,
		Modules: []ir.Module{{
			Name:             name,
			FullName:         name,
			DefaultException: ir.NoException,
		}},
	}}
}

// Spec returns the spec built so far.
func (b *SpecBuilder) Spec() *ir.Spec { return b.spec }

// Import adds a module imported by the generated module.
func (b *SpecBuilder) Import(name string) ir.ModuleID {
	id := ir.ModuleID(len(b.spec.Modules))
	b.spec.Modules = append(b.spec.Modules, ir.Module{Name: name, FullName: name, DefaultException: ir.NoException})
	main := b.spec.Main()
	main.Imports = append(main.Imports, id)
	return id
}

// Class adds a class of the generated module.
func (b *SpecBuilder) Class(name string, supers ...ir.ClassID) ir.ClassID {
	return b.ClassIn(b.spec.Module, name, supers...)
}

// ClassIn adds a class of module mod.
func (b *SpecBuilder) ClassIn(mod ir.ModuleID, name string, supers ...ir.ClassID) ir.ClassID {
	id := ir.ClassID(len(b.spec.Classes))
	n := ir.ParseScopedName(name)
	b.spec.Classes = append(b.spec.Classes, ir.Class{
		Name:      n,
		PyName:    n.Tail(),
		Module:    mod,
		Enclosing: ir.NoClass,
		Supers:    supers,
		SubBase:   ir.NoClass,
	})
	return id
}

// Nested adds a class declared inside outer.
func (b *SpecBuilder) Nested(outer ir.ClassID, name string) ir.ClassID {
	full := b.spec.Class(outer).Name.String() + "::" + name
	id := b.ClassIn(b.spec.Class(outer).Module, full)
	b.spec.Class(id).Enclosing = outer
	return id
}

// Mapped adds a mapped type.
func (b *SpecBuilder) Mapped(name string) ir.MappedTypeID {
	id := ir.MappedTypeID(len(b.spec.MappedTypes))
	b.spec.MappedTypes = append(b.spec.MappedTypes, ir.MappedType{
		Name:          ir.ParseScopedName(name),
		Module:        b.spec.Module,
		ConvertToCode: &ir.CodeBlock{Text: "return 0;"},
	})
	return id
}

// Enum adds an enum with the given enumerators.
func (b *SpecBuilder) Enum(name string, scope ir.ClassID, members ...string) ir.EnumID {
	id := ir.EnumID(len(b.spec.Enums))
	n := ir.ParseScopedName(name)
	e := ir.Enum{Name: n, PyName: n.Tail(), Module: b.spec.Module, Scope: scope}
	for _, m := range members {
		e.Members = append(e.Members, ir.EnumMember{PyName: m, CName: m})
	}
	b.spec.Enums = append(b.spec.Enums, e)
	return id
}

// Exception adds an exception, thrown as an instance of cls when cls is
// not NoClass.
func (b *SpecBuilder) Exception(name string, cls ir.ClassID) ir.ExceptionID {
	id := ir.ExceptionID(len(b.spec.Exceptions))
	n := ir.ParseScopedName(name)
	b.spec.Exceptions = append(b.spec.Exceptions, ir.Exception{
		Name:        n,
		PyName:      n.Tail(),
		Module:      b.spec.Module,
		Class:       cls,
		BuiltinBase: "Exception",
		Base:        ir.NoException,
	})
	return id
}

func (b *SpecBuilder) member(scope ir.ClassID, name string, slot ir.SlotKind) ir.MemberID {
	if id, ok := b.spec.MemberByName(scope, name); ok {
		return id
	}
	id := ir.MemberID(len(b.spec.Members))
	mod := b.spec.Module
	if scope != ir.NoClass {
		mod = b.spec.Class(scope).Module
	}
	b.spec.Members = append(b.spec.Members, ir.Member{Name: name, Slot: slot, Module: mod, Scope: scope})
	if scope == ir.NoClass {
		b.spec.Main().Members = append(b.spec.Main().Members, id)
	} else {
		c := b.spec.Class(scope)
		c.Members = append(c.Members, id)
	}
	return id
}

func (b *SpecBuilder) overload(scope ir.ClassID, name string, slot ir.SlotKind, sig ir.Signature, flags ir.OverloadFlags) ir.OverloadID {
	mid := b.member(scope, name, slot)
	id := ir.OverloadID(len(b.spec.Overloads))
	b.spec.Overloads = append(b.spec.Overloads, ir.Overload{
		NativeName: name,
		Member:     mid,
		Scope:      scope,
		Flags:      flags,
		HostSig:    sig,
	})
	m := b.spec.Member(mid)
	m.Overloads = append(m.Overloads, id)
	if scope == ir.NoClass {
		b.spec.Main().Overloads = append(b.spec.Main().Overloads, id)
	} else {
		c := b.spec.Class(scope)
		c.Overloads = append(c.Overloads, id)
	}
	return id
}

// Method adds an overload of the member name of cls.
func (b *SpecBuilder) Method(cls ir.ClassID, name string, sig ir.Signature, flags ir.OverloadFlags) ir.OverloadID {
	return b.overload(cls, name, ir.NoSlot, sig, flags)
}

// Function adds an overload of a module level function.
func (b *SpecBuilder) Function(name string, sig ir.Signature) ir.OverloadID {
	return b.overload(ir.NoClass, name, ir.NoSlot, sig, ir.OverloadFlags{})
}

// Slot adds an overload bound to a special method of cls. The native name
// is the operator or method implementing it.
func (b *SpecBuilder) Slot(cls ir.ClassID, slot ir.SlotKind, native string, sig ir.Signature) ir.OverloadID {
	id := b.overload(cls, slot.Dunder(), slot, sig, ir.OverloadFlags{})
	b.spec.Overload(id).NativeName = native
	return id
}

// Ctor adds a public constructor and returns its index.
func (b *SpecBuilder) Ctor(cls ir.ClassID, args ...ir.Arg) int {
	c := b.spec.Class(cls)
	c.Ctors = append(c.Ctors, ir.Ctor{HostSig: ir.NewSignature(args...)})
	return len(c.Ctors) - 1
}

// Handler registers a shared virtual handler serving the given overloads and
// adds each of them to the virtual set of its class, which then needs a
// shadow.
func (b *SpecBuilder) Handler(ids ...ir.OverloadID) ir.HandlerID {
	hid := ir.HandlerID(len(b.spec.VirtualHandlers))
	first := b.spec.Overload(ids[0])
	b.spec.VirtualHandlers = append(b.spec.VirtualHandlers, ir.VirtualHandler{
		Index:            int(hid),
		Module:           b.spec.Module,
		HostSig:          first.HostSig.Clone(),
		NativeSig:        first.Native().Clone(),
		AbortOnException: first.Flags.AbortOnException,
		VirtualCode:      first.VirtualCode,
		Overloads:        ids,
	})
	for _, id := range ids {
		c := b.spec.Class(b.spec.Overload(id).Scope)
		c.Virtuals = append(c.Virtuals, ir.VirtualOverload{Overload: id, Handler: hid, CacheIdx: len(c.Virtuals)})
		c.NeedsShadow = true
	}
	return hid
}

// Variable adds a module level variable.
func (b *SpecBuilder) Variable(name string, typ ir.Arg) {
	n := ir.ParseScopedName(name)
	b.spec.Variables = append(b.spec.Variables, ir.Variable{
		Name:   n,
		PyName: n.Tail(),
		Module: b.spec.Module,
		Scope:  ir.NoClass,
		Type:   typ,
	})
}

// Argument helpers.

// Arg returns an input argument of category c.
func Arg(c ir.Category) ir.Arg { return ir.NewArg(c) }

// Named sets the argument name.
func Named(a ir.Arg, name string) ir.Arg {
	a.Name = name
	return a
}

// Default gives the argument a default value.
func Default(a ir.Arg, v ir.Value) ir.Arg {
	a.Default = v
	return a
}

// Out makes the argument output only.
func Out(a ir.Arg) ir.Arg {
	a.In, a.Out = false, true
	return a
}

// Ptr adds one level of indirection.
func Ptr(a ir.Arg) ir.Arg {
	a.Derefs++
	return a
}

// ClassPtr is a pointer to an instance of id.
func ClassPtr(id ir.ClassID) ir.Arg {
	a := ir.NewArg(ir.ClassType)
	a.Class, a.Derefs = id, 1
	return a
}

// ClassValue is an instance of id passed by value.
func ClassValue(id ir.ClassID) ir.Arg {
	a := ir.NewArg(ir.ClassType)
	a.Class = id
	return a
}

// ConstRef is a const reference to an instance of id.
func ConstRef(id ir.ClassID) ir.Arg {
	a := ir.NewArg(ir.ClassType)
	a.Class, a.Const, a.Reference = id, true, true
	return a
}

// MappedRef is a const reference to a mapped type.
func MappedRef(id ir.MappedTypeID) ir.Arg {
	a := ir.NewArg(ir.Mapped)
	a.Mapped, a.Const, a.Reference = id, true, true
	return a
}

// EnumArg is a value of a named enum.
func EnumArg(id ir.EnumID) ir.Arg {
	a := ir.NewArg(ir.EnumType)
	a.Enum = id
	return a
}

// CString is a const char pointer of category c.
func CString(c ir.Category) ir.Arg {
	a := ir.NewArg(c)
	a.Const, a.Derefs = true, 1
	return a
}

// Result returns a result descriptor for sig.
func Result(a ir.Arg) ir.Arg {
	a.In = false
	return a
}

// Sig builds a signature returning result.
func Sig(result ir.Arg, args ...ir.Arg) ir.Signature {
	s := ir.NewSignature(args...)
	s.Result = Result(result)
	return s
}

// Void builds a signature returning nothing.
func Void(args ...ir.Arg) ir.Signature {
	return ir.NewSignature(args...)
}
