package assemble

import (
	"fmt"

	"github.com/roach88/bindgen/internal/callgen"
	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
)

// TypeKind is the kind of an exported type.
type TypeKind string

const (
	TypeClass  TypeKind = "class"
	TypeMapped TypeKind = "mapped"
	TypeEnum   TypeKind = "enum"
)

// TypeEntry is one row of the exported types table. The position of the
// entry is the type's index in the module descriptor.
type TypeEntry struct {
	Kind   TypeKind `json:"kind" cbor:"kind"`
	Native string   `json:"native" cbor:"native"`
	PyName string   `json:"py_name" cbor:"py_name"`
	Symbol string   `json:"symbol" cbor:"symbol"` // type object macro
	Def    string   `json:"def" cbor:"def"`       // type definition record
	Scope  int      `json:"scope" cbor:"scope"`   // enclosing type index, -1 at module level
}

// MethodEntry binds a host name to a generated function.
type MethodEntry struct {
	Name     string `json:"name" cbor:"name"`
	Func     string `json:"func" cbor:"func"`
	Doc      string `json:"doc" cbor:"doc"`
	Keywords bool   `json:"keywords,omitempty" cbor:"keywords,omitempty"`
}

// SlotEntry binds a special method to a generated function.
type SlotEntry struct {
	Slot string `json:"slot" cbor:"slot"`
	Func string `json:"func" cbor:"func"`
}

// EnumMemberEntry is one enumerator exposed to the host.
type EnumMemberEntry struct {
	Name  string `json:"name" cbor:"name"`
	Value string `json:"value" cbor:"value"` // native expression
	Enum  int    `json:"enum" cbor:"enum"`   // type index, -1 for anonymous enums
	Scope int    `json:"scope" cbor:"scope"`
}

// InstanceEntry is a variable exposed as a typed instance.
type InstanceEntry struct {
	Name  string `json:"name" cbor:"name"`
	Value string `json:"value" cbor:"value"`
	Type  string `json:"type,omitempty" cbor:"type,omitempty"` // type object for class and enum instances
	Scope int    `json:"scope" cbor:"scope"`
}

// Instances groups typed instances by how the runtime creates them.
type Instances struct {
	Ints    []InstanceEntry `json:"ints,omitempty" cbor:"ints,omitempty"`
	Longs   []InstanceEntry `json:"longs,omitempty" cbor:"longs,omitempty"`
	Doubles []InstanceEntry `json:"doubles,omitempty" cbor:"doubles,omitempty"`
	Strings []InstanceEntry `json:"strings,omitempty" cbor:"strings,omitempty"`
	Classes []InstanceEntry `json:"classes,omitempty" cbor:"classes,omitempty"`
	Enums   []InstanceEntry `json:"enums,omitempty" cbor:"enums,omitempty"`
}

// Len returns the total number of instances.
func (in *Instances) Len() int {
	return len(in.Ints) + len(in.Longs) + len(in.Doubles) + len(in.Strings) + len(in.Classes) + len(in.Enums)
}

// ImportEntry names an imported module.
type ImportEntry struct {
	Name   string `json:"name" cbor:"name"`
	Header string `json:"header" cbor:"header"`
}

// ExceptionEntry maps a native exception to a host exception object.
type ExceptionEntry struct {
	Native  string `json:"native" cbor:"native"`
	PyName  string `json:"py_name" cbor:"py_name"`
	Symbol  string `json:"symbol" cbor:"symbol"`
	Base    string `json:"base" cbor:"base"`
	Builtin bool   `json:"builtin,omitempty" cbor:"builtin,omitempty"` // Base is a builtin exception
	Class   int    `json:"class" cbor:"class"`                           // type index of the thrown class, -1 if none
}

// SubConvertEntry registers a sub-class convertor for a base type.
type SubConvertEntry struct {
	Func string `json:"func" cbor:"func"`
	Base string `json:"base" cbor:"base"`
}

// ClassTable is the per-class part of the tables.
type ClassTable struct {
	Type     int           `json:"type" cbor:"type"`
	Supers   []string      `json:"supers,omitempty" cbor:"supers,omitempty"`
	Methods  []MethodEntry `json:"methods,omitempty" cbor:"methods,omitempty"`
	Slots    []SlotEntry   `json:"slots,omitempty" cbor:"slots,omitempty"`
	Virtuals int           `json:"virtuals,omitempty" cbor:"virtuals,omitempty"`
	Shadow   bool          `json:"shadow,omitempty" cbor:"shadow,omitempty"`
}

// Tables are the ordered static tables of the generated module. Every list
// follows declaration order.
type Tables struct {
	Types         []TypeEntry       `json:"types" cbor:"types"`
	Classes       []ClassTable      `json:"classes,omitempty" cbor:"classes,omitempty"`
	Functions     []MethodEntry     `json:"functions,omitempty" cbor:"functions,omitempty"`
	EnumMembers   []EnumMemberEntry `json:"enum_members,omitempty" cbor:"enum_members,omitempty"`
	Instances     Instances         `json:"instances" cbor:"instances"`
	Imports       []ImportEntry     `json:"imports,omitempty" cbor:"imports,omitempty"`
	Exceptions    []ExceptionEntry  `json:"exceptions,omitempty" cbor:"exceptions,omitempty"`
	SubConverters []SubConvertEntry `json:"sub_converters,omitempty" cbor:"sub_converters,omitempty"`

	classIdx  map[ir.ClassID]int
	mappedIdx map[ir.MappedTypeID]int
	enumIdx   map[ir.EnumID]int
}

// ClassIndex returns the type index of a local class.
func (t *Tables) ClassIndex(id ir.ClassID) (int, bool) {
	i, ok := t.classIdx[id]
	return i, ok
}

// Class returns the table of a local class. Classes are the first types,
// so a class's type index is also its position in Classes.
func (t *Tables) Class(id ir.ClassID) *ClassTable {
	return &t.Classes[t.classIdx[id]]
}

// EnumIndex returns the type index of a local named enum.
func (t *Tables) EnumIndex(id ir.EnumID) (int, bool) {
	i, ok := t.enumIdx[id]
	return i, ok
}

// MappedIndex returns the type index of a local mapped type.
func (t *Tables) MappedIndex(id ir.MappedTypeID) (int, bool) {
	i, ok := t.mappedIdx[id]
	return i, ok
}

func (t *Tables) scopeIndex(id ir.ClassID) int {
	if id == ir.NoClass {
		return -1
	}
	if i, ok := t.classIdx[id]; ok {
		return i
	}
	return -1
}

// BuildTables collects the tables of the module being generated. calls
// decides which members have a host function.
func BuildTables(spec *ir.Spec, calls *callgen.Emitter) (*Tables, error) {
	t := &Tables{
		classIdx:  make(map[ir.ClassID]int),
		mappedIdx: make(map[ir.MappedTypeID]int),
		enumIdx:   make(map[ir.EnumID]int),
	}

	// Types: classes, then mapped types, then named enums.
	for _, id := range spec.LocalClasses() {
		t.classIdx[id] = len(t.Types)
		c := spec.Class(id)
		t.Types = append(t.Types, TypeEntry{
			Kind:   TypeClass,
			Native: c.Name.String(),
			PyName: classPyName(c),
			Symbol: codegen.TypeObject(spec, id),
			Def:    codegen.TypeDef(spec, id),
		})
	}
	for i := range spec.MappedTypes {
		mt := &spec.MappedTypes[i]
		if mt.Module != spec.Module {
			continue
		}
		id := ir.MappedTypeID(i)
		t.mappedIdx[id] = len(t.Types)
		t.Types = append(t.Types, TypeEntry{
			Kind:   TypeMapped,
			Native: mt.Name.String(),
			PyName: mt.PyName,
			Symbol: codegen.MappedTypeObject(spec, id),
			Def:    MappedTypeDef(spec, id),
			Scope:  -1,
		})
	}
	for i := range spec.Enums {
		e := &spec.Enums[i]
		if e.Module != spec.Module || e.Name == nil {
			continue
		}
		id := ir.EnumID(i)
		t.enumIdx[id] = len(t.Types)
		t.Types = append(t.Types, TypeEntry{
			Kind:   TypeEnum,
			Native: e.Name.String(),
			PyName: enumPyName(e),
			Symbol: codegen.EnumTypeObject(spec, id),
			Def:    EnumTypeDef(spec, id),
			Scope:  t.scopeIndex(e.Scope),
		})
	}
	// Enclosing classes may be declared after the classes they contain.
	for _, id := range spec.LocalClasses() {
		t.Types[t.classIdx[id]].Scope = t.scopeIndex(spec.Class(id).Enclosing)
	}

	for _, id := range spec.LocalClasses() {
		t.Classes = append(t.Classes, t.classTable(spec, calls, id))
	}
	t.Functions = memberEntries(spec, calls, spec.Main().Members)
	t.enumMembers(spec)
	if err := t.instances(spec); err != nil {
		return nil, err
	}

	for _, mid := range spec.Main().AllImports {
		m := &spec.Modules[mid]
		t.Imports = append(t.Imports, ImportEntry{Name: m.FullName, Header: codegen.APIHeader(m.Name)})
	}

	for i := range spec.Exceptions {
		x := &spec.Exceptions[i]
		if x.Module != spec.Module {
			continue
		}
		e := ExceptionEntry{
			Native: x.Name.String(),
			PyName: x.PyName,
			Symbol: codegen.ExceptionObject(spec, ir.ExceptionID(i)),
			Class:  t.scopeIndex(x.Class),
		}
		if x.Base != ir.NoException {
			e.Base = codegen.ExceptionObject(spec, x.Base)
		} else {
			e.Base, e.Builtin = x.BuiltinBase, true
		}
		t.Exceptions = append(t.Exceptions, e)
	}

	for _, id := range spec.LocalClasses() {
		c := spec.Class(id)
		if c.ConvertToSubCode.Empty() {
			continue
		}
		base := c.SubBase
		if base == ir.NoClass {
			base = id
		}
		t.SubConverters = append(t.SubConverters, SubConvertEntry{
			Func: codegen.SubConvertFunc(spec, id),
			Base: codegen.TypeObject(spec, base),
		})
	}
	return t, nil
}

func (t *Tables) classTable(spec *ir.Spec, calls *callgen.Emitter, id ir.ClassID) ClassTable {
	c := spec.Class(id)
	ct := ClassTable{
		Type:     t.classIdx[id],
		Virtuals: len(c.Virtuals),
		Shadow:   c.NeedsShadow,
	}
	for _, s := range c.Supers {
		ct.Supers = append(ct.Supers, spec.Class(s).Name.String())
	}
	var named []ir.MemberID
	for _, mid := range c.Members {
		m := spec.Member(mid)
		if m.Slot == ir.NoSlot {
			named = append(named, mid)
			continue
		}
		if !calls.Reachable(m) {
			continue
		}
		ct.Slots = append(ct.Slots, SlotEntry{Slot: m.Slot.String(), Func: calls.FuncName(m)})
	}
	ct.Methods = memberEntries(spec, calls, named)
	return ct
}

func memberEntries(spec *ir.Spec, calls *callgen.Emitter, ids []ir.MemberID) []MethodEntry {
	var out []MethodEntry
	for _, mid := range ids {
		m := spec.Member(mid)
		if m.Slot != ir.NoSlot || !calls.Reachable(m) {
			continue
		}
		out = append(out, MethodEntry{
			Name:     m.Name,
			Func:     calls.FuncName(m),
			Doc:      calls.DocVar(m),
			Keywords: m.KeywordArgs,
		})
	}
	return out
}

func (t *Tables) enumMembers(spec *ir.Spec) {
	for i := range spec.Enums {
		e := &spec.Enums[i]
		if e.Module != spec.Module {
			continue
		}
		idx := -1
		if j, ok := t.enumIdx[ir.EnumID(i)]; ok {
			idx = j
		}
		prefix := enumValuePrefix(spec, e)
		for _, m := range e.Members {
			t.EnumMembers = append(t.EnumMembers, EnumMemberEntry{
				Name:  m.PyName,
				Value: prefix + m.CName,
				Enum:  idx,
				Scope: t.scopeIndex(e.Scope),
			})
		}
	}
}

// enumValuePrefix is the qualification of an enumerator. Protected
// enumerators are only reachable through the shadow class.
func enumValuePrefix(spec *ir.Spec, e *ir.Enum) string {
	if e.Scoped {
		return e.Name.String() + "::"
	}
	if e.Scope != ir.NoClass {
		if e.Protected && spec.Class(e.Scope).NeedsShadow {
			return codegen.ShadowClass(spec, e.Scope) + "::"
		}
		return spec.Class(e.Scope).Name.String() + "::"
	}
	if len(e.Name) > 1 {
		return e.Name[:len(e.Name)-1].String() + "::"
	}
	return ""
}

func (t *Tables) instances(spec *ir.Spec) error {
	for i := range spec.Variables {
		v := &spec.Variables[i]
		if v.Module != spec.Module {
			continue
		}
		a := &v.Type
		e := InstanceEntry{Name: v.PyName, Value: v.Name.String(), Scope: t.scopeIndex(v.Scope)}
		switch {
		case a.Category.IsClassLike():
			if a.Derefs == 0 {
				e.Value = "&" + e.Value
			}
			e.Type = codegen.TypeObjectFor(spec, a)
			t.Instances.Classes = append(t.Instances.Classes, e)
		case a.Category == ir.EnumType && a.Enum != ir.NoEnum:
			e.Type = codegen.EnumTypeObject(spec, a.Enum)
			t.Instances.Enums = append(t.Instances.Enums, e)
		case a.Category.IsStringLike() && a.Derefs > 0:
			t.Instances.Strings = append(t.Instances.Strings, e)
		case a.Category.IsStringLike(), a.Category == ir.EnumType:
			t.Instances.Ints = append(t.Instances.Ints, e)
		default:
			switch a.Category.Family() {
			case ir.FamilyInt:
				t.Instances.Ints = append(t.Instances.Ints, e)
			case ir.FamilyLong, ir.FamilyULong:
				t.Instances.Longs = append(t.Instances.Longs, e)
			case ir.FamilyFloat:
				t.Instances.Doubles = append(t.Instances.Doubles, e)
			default:
				if a.Category != ir.Hash {
					return fmt.Errorf("variable %s: %w: %s", v.Name, ErrNoInstanceForm, a.Category)
				}
				t.Instances.Longs = append(t.Instances.Longs, e)
			}
		}
	}
	return nil
}

func classPyName(c *ir.Class) string {
	if c.PyName != "" {
		return c.PyName
	}
	return c.Name.Tail()
}

func enumPyName(e *ir.Enum) string {
	if e.PyName != "" {
		return e.PyName
	}
	return e.Name.Tail()
}
