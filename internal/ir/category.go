package ir

import "fmt"

// Category is the closed set of argument type categories.
//
// Every per-category decision (native spelling, host coercion family, which
// format code the marshaller uses) is a row in a table indexed by Category.
// Adding a category without adding the rows is caught by the totality tests.
type Category int

const (
	Void Category = iota
	Bool
	CBool
	String // plain char based
	SString
	UString
	AsciiString
	Latin1String
	UTF8String
	WString
	Byte
	SByte
	UByte
	Short
	UShort
	Int
	CInt
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Size
	SSize
	Hash
	Float
	CFloat
	Double
	CDouble
	EnumType
	ClassType
	Mapped
	Struct
	Union
	Capsule
	Function
	TemplateType
	Ellipsis
	PyObject
	PyTuple
	PyList
	PyDict
	PyCallable
	PySlice
	PyType
	PyBuffer
	PyEnum

	// NumCategories is the number of categories. It is not a category.
	NumCategories
)

// Family groups categories the host runtime coerces between implicitly.
type Family int

const (
	FamilyNone Family = iota
	FamilyString
	FamilyFloat
	FamilyInt
	FamilyLong
	FamilyULong
)

type categoryInfo struct {
	name   string
	native string // native spelling for fundamental types, "" when entity-named
	family Family
}

var categories = [NumCategories]categoryInfo{
	Void:         {"void", "void", FamilyNone},
	Bool:         {"bool", "bool", FamilyInt},
	CBool:        {"cbool", "int", FamilyInt},
	String:       {"string", "char", FamilyString},
	SString:      {"sstring", "signed char", FamilyString},
	UString:      {"ustring", "unsigned char", FamilyString},
	AsciiString:  {"ascii_string", "char", FamilyString},
	Latin1String: {"latin1_string", "char", FamilyString},
	UTF8String:   {"utf8_string", "char", FamilyString},
	WString:      {"wstring", "wchar_t", FamilyString},
	Byte:         {"byte", "char", FamilyInt},
	SByte:        {"sbyte", "signed char", FamilyInt},
	UByte:        {"ubyte", "unsigned char", FamilyInt},
	Short:        {"short", "short", FamilyInt},
	UShort:       {"ushort", "unsigned short", FamilyInt},
	Int:          {"int", "int", FamilyInt},
	CInt:         {"cint", "int", FamilyInt},
	UInt:         {"uint", "unsigned", FamilyInt},
	Long:         {"long", "long", FamilyLong},
	ULong:        {"ulong", "unsigned long", FamilyULong},
	LongLong:     {"longlong", "long long", FamilyLong},
	ULongLong:    {"ulonglong", "unsigned long long", FamilyULong},
	Size:         {"size", "size_t", FamilyInt},
	SSize:        {"ssize", "Py_ssize_t", FamilyInt},
	Hash:         {"hash", "Py_hash_t", FamilyNone},
	Float:        {"float", "float", FamilyFloat},
	CFloat:       {"cfloat", "float", FamilyFloat},
	Double:       {"double", "double", FamilyFloat},
	CDouble:      {"cdouble", "double", FamilyFloat},
	EnumType:     {"enum", "", FamilyNone},
	ClassType:    {"class", "", FamilyNone},
	Mapped:       {"mapped", "", FamilyNone},
	Struct:       {"struct", "", FamilyNone},
	Union:        {"union", "", FamilyNone},
	Capsule:      {"capsule", "void", FamilyNone},
	Function:     {"function", "", FamilyNone},
	TemplateType: {"template", "", FamilyNone},
	Ellipsis:     {"ellipsis", "PyObject *", FamilyNone},
	PyObject:     {"pyobject", "PyObject", FamilyNone},
	PyTuple:      {"pytuple", "PyObject", FamilyNone},
	PyList:       {"pylist", "PyObject", FamilyNone},
	PyDict:       {"pydict", "PyObject", FamilyNone},
	PyCallable:   {"pycallable", "PyObject", FamilyNone},
	PySlice:      {"pyslice", "PyObject", FamilyNone},
	PyType:       {"pytype", "PyTypeObject", FamilyNone},
	PyBuffer:     {"pybuffer", "PyObject", FamilyNone},
	PyEnum:       {"pyenum", "PyObject", FamilyNone},
}

var categoryByName = func() map[string]Category {
	m := make(map[string]Category, NumCategories)
	for c := Category(0); c < NumCategories; c++ {
		m[categories[c].name] = c
	}
	return m
}()

// String returns the IR spelling of the category.
func (c Category) String() string {
	if c < 0 || c >= NumCategories {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categories[c].name
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	return c >= 0 && c < NumCategories
}

// Native returns the native spelling of a fundamental category. Categories
// named by an entity (class, enum, ...) return "".
func (c Category) Native() string {
	if !c.Valid() {
		return ""
	}
	return categories[c].native
}

// Family returns the host coercion family of the category.
func (c Category) Family() Family {
	if !c.Valid() {
		return FamilyNone
	}
	return categories[c].family
}

// ParseCategory maps an IR spelling back to a Category.
func ParseCategory(name string) (Category, error) {
	c, ok := categoryByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown argument category %q", name)
	}
	return c, nil
}

// IsStringLike reports whether the category is one of the character or
// string encodings.
func (c Category) IsStringLike() bool {
	return c.Family() == FamilyString
}

// IsEncodedString reports whether converting the category needs an encoded
// intermediate buffer kept alive for the duration of the call.
func (c Category) IsEncodedString() bool {
	switch c {
	case AsciiString, Latin1String, UTF8String:
		return true
	}
	return false
}

// IsClassLike reports whether values of the category cross the boundary
// through the convert-to/convert-from protocol.
func (c Category) IsClassLike() bool {
	switch c {
	case ClassType, Mapped, TemplateType:
		return true
	}
	return false
}

// IsHostObject reports whether the category passes a host object through
// unconverted.
func (c Category) IsHostObject() bool {
	switch c {
	case PyObject, PyTuple, PyList, PyDict, PyCallable, PySlice, PyType, PyBuffer, PyEnum:
		return true
	}
	return false
}

// IsFundamental reports whether the category is a plain number or bool.
func (c Category) IsFundamental() bool {
	switch c.Family() {
	case FamilyInt, FamilyFloat, FamilyLong, FamilyULong:
		return true
	}
	return c == Hash
}
