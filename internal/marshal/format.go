package marshal

import "github.com/roach88/bindgen/internal/ir"

// rule says how a category's format code is chosen.
type rule int

const (
	ruleNone        rule = iota // cannot cross the boundary as an argument
	ruleFixed                   // one code for every shape
	ruleString                  // character, pointer or array shape
	ruleEnum                    // named enums carry their type object
	ruleClass                   // sub-format from the class flag table
	rulePointer                 // opaque pointer
	ruleCapsule                 // opaque pointer checked by name
	rulePassthrough             // host object handed over unconverted
	ruleEllipsis                // remaining positional arguments
)

// catFormat is one row of the category format table.
type catFormat struct {
	rule rule
	// ruleFixed, rulePassthrough: the code.
	code string
	// ruleString: character, pointer and array codes.
	char, ptr, array string
	// ruleString: the conversion produces an encoded buffer that must be
	// kept alive for the duration of the call.
	keepAlive bool
	// ruleString: the runtime allocates the pointer, the caller frees it.
	free bool
}

// formats is indexed by category; every category has a row.
var formats = [ir.NumCategories]catFormat{
	ir.Void:         {rule: rulePointer},
	ir.Bool:         {rule: ruleFixed, code: "b"},
	ir.CBool:        {rule: ruleFixed, code: "y"},
	ir.String:       {rule: ruleString, char: "c", ptr: "s", array: "k"},
	ir.SString:      {rule: ruleString, char: "Kc", ptr: "Ks", array: "Kk"},
	ir.UString:      {rule: ruleString, char: "Kd", ptr: "Kt", array: "Kl"},
	ir.AsciiString:  {rule: ruleString, char: "aA", ptr: "AA", array: "k", keepAlive: true},
	ir.Latin1String: {rule: ruleString, char: "aL", ptr: "AL", array: "k", keepAlive: true},
	ir.UTF8String:   {rule: ruleString, char: "a8", ptr: "A8", array: "k", keepAlive: true},
	ir.WString:      {rule: ruleString, char: "w", ptr: "x", array: "K", free: true},
	ir.Byte:         {rule: ruleFixed, code: "L"},
	ir.SByte:        {rule: ruleFixed, code: "Ls"},
	ir.UByte:        {rule: ruleFixed, code: "M"},
	ir.Short:        {rule: ruleFixed, code: "h"},
	ir.UShort:       {rule: ruleFixed, code: "t"},
	ir.Int:          {rule: ruleFixed, code: "i"},
	ir.CInt:         {rule: ruleFixed, code: "Ci"},
	ir.UInt:         {rule: ruleFixed, code: "u"},
	ir.Long:         {rule: ruleFixed, code: "l"},
	ir.ULong:        {rule: ruleFixed, code: "m"},
	ir.LongLong:     {rule: ruleFixed, code: "n"},
	ir.ULongLong:    {rule: ruleFixed, code: "o"},
	ir.Size:         {rule: ruleFixed, code: "="},
	ir.SSize:        {rule: ruleFixed, code: "Y"},
	ir.Hash:         {rule: ruleFixed, code: "Hh"},
	ir.Float:        {rule: ruleFixed, code: "f"},
	ir.CFloat:       {rule: ruleFixed, code: "Cf"},
	ir.Double:       {rule: ruleFixed, code: "d"},
	ir.CDouble:      {rule: ruleFixed, code: "Cd"},
	ir.EnumType:     {rule: ruleEnum},
	ir.ClassType:    {rule: ruleClass},
	ir.Mapped:       {rule: ruleClass},
	ir.Struct:       {rule: rulePointer},
	ir.Union:        {rule: rulePointer},
	ir.Capsule:      {rule: ruleCapsule},
	ir.Function:     {rule: rulePointer},
	ir.TemplateType: {rule: ruleClass},
	ir.Ellipsis:     {rule: ruleEllipsis},
	ir.PyObject:     {rule: rulePassthrough, code: "P0"},
	ir.PyTuple:      {rule: rulePassthrough, code: "PT"},
	ir.PyList:       {rule: rulePassthrough, code: "PL"},
	ir.PyDict:       {rule: rulePassthrough, code: "PD"},
	ir.PyCallable:   {rule: rulePassthrough, code: "PC"},
	ir.PySlice:      {rule: rulePassthrough, code: "PS"},
	ir.PyType:       {rule: rulePassthrough, code: "PY"},
	ir.PyBuffer:     {rule: rulePassthrough, code: "PB"},
	ir.PyEnum:       {rule: rulePassthrough, code: "PE"},
}

// Class sub-format flag bits.
const (
	classState       = 1 << iota // conversion keeps a state token (may create a temporary)
	classIntoStorage             // value is assigned into caller-provided storage
	classNoNone                  // None is rejected
)

// classFormats is indexed by the class flag bits. Every combination has
// exactly one code.
var classFormats = [8]string{
	0:                                         "J0",
	classState:                                "J1",
	classIntoStorage:                          "J2",
	classIntoStorage | classState:             "J3",
	classNoNone:                               "J4",
	classNoNone | classState:                  "J5",
	classNoNone | classIntoStorage:            "J6",
	classNoNone | classIntoStorage | classState: "J7",
}

// Fixed prefixes and build codes.
const (
	constrainedPrefix = "X"
	capturePrefix     = "@"
	optionalMarker    = "|"
	enumNamed         = "E"
	enumAnon          = "e"
	pointerCode       = "v"
	capsuleCode       = "z"
	ellipsisCode      = "W"
	classArrayCode    = "r"
	buildNew          = "N" // new instance, ownership given to the host or owner
	buildExisting     = "D" // existing instance, optionally owned
	buildObject       = "R" // host object reference
	noneResult        = "Z" // the host must return None
	boundSelf         = "B"
	virtualSelf       = "p"
)
