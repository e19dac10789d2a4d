package ir

import "strings"

// Arena indices. A negative index means "none".
type (
	ModuleID     int
	ClassID      int
	MappedTypeID int
	EnumID       int
	ExceptionID  int
	MemberID     int
	OverloadID   int
	HandlerID    int
)

// NoClass and friends are the "absent" values of the arena indices.
const (
	NoModule    ModuleID     = -1
	NoClass     ClassID      = -1
	NoMapped    MappedTypeID = -1
	NoEnum      EnumID       = -1
	NoException ExceptionID  = -1
	NoHandler   HandlerID    = -1
)

// ScopedName is a fully qualified native name split on "::".
type ScopedName []string

// ParseScopedName splits "a::b::C" into its parts.
func ParseScopedName(s string) ScopedName {
	s = strings.TrimPrefix(s, "::")
	if s == "" {
		return nil
	}
	return strings.Split(s, "::")
}

// String joins the name with "::".
func (n ScopedName) String() string {
	return strings.Join(n, "::")
}

// Tail returns the last component.
func (n ScopedName) Tail() string {
	if len(n) == 0 {
		return ""
	}
	return n[len(n)-1]
}

// Mangled returns the name with scope separators removed, for use inside
// generated identifiers.
func (n ScopedName) Mangled() string {
	return strings.Join(n, "_")
}

// Access is the native access section of a member.
type Access int

const (
	Public Access = iota
	Protected
	Private
)

func (a Access) String() string {
	switch a {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

// CodeBlock is a fragment of handwritten native code with its origin.
type CodeBlock struct {
	Text string `json:"text"`
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Empty reports whether the block carries no code.
func (b *CodeBlock) Empty() bool {
	return b == nil || strings.TrimSpace(b.Text) == ""
}

// Arg is an ArgumentDescriptor: the type of one argument or result plus its
// direction and role annotations.
type Arg struct {
	Category  Category `json:"category"`
	Name      string   `json:"name,omitempty"`
	Derefs    int      `json:"derefs,omitempty"` // indirection count
	Const     bool     `json:"const,omitempty"`
	Reference bool     `json:"reference,omitempty"`

	In  bool `json:"in,omitempty"`
	Out bool `json:"out,omitempty"`

	Array            bool `json:"array,omitempty"`
	ArraySize        bool `json:"array_size,omitempty"`
	TransferToHost   bool `json:"transfer_to_host,omitempty"`
	TransferToNative bool `json:"transfer_to_native,omitempty"`
	TransferThis     bool `json:"transfer_this,omitempty"`
	KeepReference    bool `json:"keep_reference,omitempty"`
	Key              int  `json:"key,omitempty"` // keep-reference slot, 0 until allocated
	AllowNone        bool `json:"allow_none,omitempty"`
	DisallowNone     bool `json:"disallow_none,omitempty"`
	Constrained      bool `json:"constrained,omitempty"`
	GetWrapper       bool `json:"get_wrapper,omitempty"`
	NoCopy           bool `json:"no_copy,omitempty"`

	Default Value `json:"default,omitempty"`

	// Entity references, meaningful for the matching category only.
	Class    ClassID      `json:"class"`
	Mapped   MappedTypeID `json:"mapped"`
	Enum     EnumID       `json:"enum"`
	TypeName ScopedName   `json:"type_name,omitempty"` // struct, union, capsule
	Template *Template    `json:"template,omitempty"`
	Func     *Signature   `json:"func,omitempty"`
}

// NewArg returns an argument of the given category with every entity
// reference cleared and In set.
func NewArg(c Category) Arg {
	return Arg{Category: c, In: true, Class: NoClass, Mapped: NoMapped, Enum: NoEnum}
}

// IsOutOnly reports whether the argument only carries a value back.
func (a *Arg) IsOutOnly() bool {
	return a.Out && !a.In
}

// HasDefault reports whether the argument has a default value.
func (a *Arg) HasDefault() bool {
	return a.Default != nil
}

// Template is an instantiated template used as an argument type.
type Template struct {
	Name  ScopedName `json:"name"`
	Types Signature  `json:"types"`
}

// Signature is an ordered argument list plus a result.
type Signature struct {
	Result Arg   `json:"result"`
	Args   []Arg `json:"args"`
}

// NewSignature builds a signature with a void result.
func NewSignature(args ...Arg) Signature {
	res := NewArg(Void)
	res.In = false
	return Signature{Result: res, Args: args}
}

// Clone returns a deep enough copy for callers that adjust argument flags.
func (s Signature) Clone() Signature {
	out := Signature{Result: s.Result, Args: make([]Arg, len(s.Args))}
	copy(out.Args, s.Args)
	return out
}

// ThrowList is an overload's declared exception set. A nil *ThrowList means
// "anything may be thrown"; a non-nil list with no items means noexcept.
type ThrowList struct {
	Items []ExceptionID `json:"items"`
}

// Closed reports whether the list declares that nothing is thrown.
func (t *ThrowList) Closed() bool {
	return t != nil && len(t.Items) == 0
}

// SlotKind identifies a host special-method binding point.
type SlotKind int

// OverloadFlags are the visibility and behaviour flags of an overload.
type OverloadFlags struct {
	Virtual          bool `json:"virtual,omitempty"`
	Abstract         bool `json:"abstract,omitempty"`
	Static           bool `json:"static,omitempty"`
	Const            bool `json:"const,omitempty"`
	Final            bool `json:"final,omitempty"`
	Signal           bool `json:"signal,omitempty"`
	Reimplemented    bool `json:"reimplemented,omitempty"`
	ReleaseGIL       bool `json:"release_gil,omitempty"`
	HoldGIL          bool `json:"hold_gil,omitempty"`
	NewThread        bool `json:"new_thread,omitempty"`
	Factory          bool `json:"factory,omitempty"`
	TransferBack     bool `json:"transfer_back,omitempty"` // result ownership to host
	Transfer         bool `json:"transfer,omitempty"`      // result ownership to native
	TransferThis     bool `json:"transfer_this,omitempty"`
	Deprecated       bool `json:"deprecated,omitempty"`
	AbortOnException bool `json:"abort_on_exception,omitempty"`
	RaisesHostError  bool `json:"raises_host_error,omitempty"`
}

// Overload is one native function or method with its annotations.
type Overload struct {
	NativeName string        `json:"native_name"`
	Member     MemberID      `json:"member"`
	Scope      ClassID       `json:"scope"` // NoClass for module level
	Access     Access        `json:"access"`
	Flags      OverloadFlags `json:"flags"`

	HostSig   Signature  `json:"host_sig"`
	NativeSig *Signature `json:"native_sig,omitempty"` // nil when identical to HostSig

	Throws *ThrowList `json:"throws,omitempty"`

	MethodCode      *CodeBlock `json:"method_code,omitempty"`
	PreMethodCode   *CodeBlock `json:"pre_method_code,omitempty"`
	VirtualCallCode *CodeBlock `json:"virtual_call_code,omitempty"`
	VirtualCode     *CodeBlock `json:"virtual_code,omitempty"`
	PreHook         string     `json:"pre_hook,omitempty"`
	PostHook        string     `json:"post_hook,omitempty"`

	VirtErrorHandler string `json:"virt_error_handler,omitempty"`
	Doc              string `json:"doc,omitempty"`
	Line             int    `json:"line,omitempty"`
}

// Native returns the native signature.
func (o *Overload) Native() *Signature {
	if o.NativeSig != nil {
		return o.NativeSig
	}
	return &o.HostSig
}

// Member is a named host binding point (a method name or a slot) grouping
// overloads in declaration order.
type Member struct {
	Name        string       `json:"name"`
	Slot        SlotKind     `json:"slot"`
	Module      ModuleID     `json:"module"`
	Scope       ClassID      `json:"scope"`
	Overloads   []OverloadID `json:"overloads"`
	KeywordArgs bool         `json:"keyword_args,omitempty"`
	NoArgParser bool         `json:"no_arg_parser,omitempty"`
	Numeric     bool         `json:"numeric,omitempty"`
}

// Ctor is a constructor.
type Ctor struct {
	Access      Access     `json:"access"`
	HostSig     Signature  `json:"host_sig"`
	NativeSig   *Signature `json:"native_sig,omitempty"`
	Throws      *ThrowList `json:"throws,omitempty"`
	MethodCode  *CodeBlock `json:"method_code,omitempty"`
	ReleaseGIL  bool       `json:"release_gil,omitempty"`
	HoldGIL     bool       `json:"hold_gil,omitempty"`
	Transfer    bool       `json:"transfer,omitempty"` // result transferred to native
	Deprecated  bool       `json:"deprecated,omitempty"`
	Explicit    bool       `json:"explicit,omitempty"`
	KeywordArgs bool       `json:"keyword_args,omitempty"`
	PreHook     string     `json:"pre_hook,omitempty"`
	PostHook    string     `json:"post_hook,omitempty"`
	Doc         string     `json:"doc,omitempty"`
}

// Native returns the native signature.
func (c *Ctor) Native() *Signature {
	if c.NativeSig != nil {
		return c.NativeSig
	}
	return &c.HostSig
}

// ClassFlags are the capability flags of a class.
type ClassFlags struct {
	Abstract       bool `json:"abstract,omitempty"`
	Namespace      bool `json:"namespace,omitempty"`
	Opaque         bool `json:"opaque,omitempty"`
	Protected      bool `json:"protected,omitempty"` // declared in a protected section
	CannotCopy     bool `json:"cannot_copy,omitempty"`
	CannotAssign   bool `json:"cannot_assign,omitempty"`
	NoDefaultCtors bool `json:"no_default_ctors,omitempty"`
	AllowNone      bool `json:"allow_none,omitempty"`
	ArrayHelper    bool `json:"array_helper,omitempty"`
	Mixin          bool `json:"mixin,omitempty"`
	External       bool `json:"external,omitempty"`
	Deprecated     bool `json:"deprecated,omitempty"`
	Union          bool `json:"union,omitempty"`
	ReleaseGILDtor bool `json:"release_gil_dtor,omitempty"`
	HoldGILDtor    bool `json:"hold_gil_dtor,omitempty"`
	DelayedDtor    bool `json:"delayed_dtor,omitempty"`
}

// VisibleMember is one host-visible method group of a class after
// flattening the hierarchy.
type VisibleMember struct {
	Member    MemberID     `json:"member"`
	Overloads []OverloadID `json:"overloads"`
}

// VirtualOverload pairs a virtual overload with its shared handler.
type VirtualOverload struct {
	Overload OverloadID `json:"overload"`
	Handler  HandlerID  `json:"handler"`
	CacheIdx int        `json:"cache_idx"` // slot in the per-instance override cache
}

// Class is a ClassEntity.
type Class struct {
	Name      ScopedName `json:"name"`
	PyName    string     `json:"py_name"`
	Module    ModuleID   `json:"module"`
	Enclosing ClassID    `json:"enclosing"`
	Supers    []ClassID  `json:"supers,omitempty"`
	Flags     ClassFlags `json:"flags"`

	Members   []MemberID   `json:"members,omitempty"`
	Overloads []OverloadID `json:"overloads,omitempty"`
	Ctors     []Ctor       `json:"ctors,omitempty"`

	DtorAccess Access     `json:"dtor_access"`
	DtorThrows *ThrowList `json:"dtor_throws,omitempty"`
	DtorCode   *CodeBlock `json:"dtor_code,omitempty"`

	ConvertToCode    *CodeBlock `json:"convert_to_code,omitempty"`
	ConvertFromCode  *CodeBlock `json:"convert_from_code,omitempty"`
	ConvertToSubCode *CodeBlock `json:"convert_to_sub_code,omitempty"`
	SubBase          ClassID    `json:"sub_base"`
	CppCode          *CodeBlock `json:"cpp_code,omitempty"`

	VirtErrorHandler string `json:"virt_error_handler,omitempty"`
	Doc              string `json:"doc,omitempty"`

	// Computed by the resolve pass.
	MRO         []ClassID         `json:"mro,omitempty"`
	Visible     []VisibleMember   `json:"visible,omitempty"`
	Virtuals    []VirtualOverload `json:"virtuals,omitempty"`
	NeedsShadow bool              `json:"needs_shadow,omitempty"`
}

// MappedTypeFlags are the capability flags of a mapped type.
type MappedTypeFlags struct {
	NoRelease     bool `json:"no_release,omitempty"`
	AllowNone     bool `json:"allow_none,omitempty"`
	UserState     bool `json:"user_state,omitempty"`
	NoAssign      bool `json:"no_assign,omitempty"`
	NoCopy        bool `json:"no_copy,omitempty"`
	NoDefaultCtor bool `json:"no_default_ctor,omitempty"`
}

// MappedType is a native type converted by value at each crossing.
type MappedType struct {
	Name            ScopedName      `json:"name"`
	PyName          string          `json:"py_name"`
	Module          ModuleID        `json:"module"`
	Flags           MappedTypeFlags `json:"flags"`
	ConvertToCode   *CodeBlock      `json:"convert_to_code,omitempty"`
	ConvertFromCode *CodeBlock      `json:"convert_from_code,omitempty"`
	ReleaseCode     *CodeBlock      `json:"release_code,omitempty"`
}

// EnumKind is the host flavour of an enum.
type EnumKind int

const (
	EnumPlain EnumKind = iota
	EnumFlag
	EnumIntEnum
	EnumIntFlag
	EnumUIntEnum
)

// EnumMember is one enumerator.
type EnumMember struct {
	PyName string `json:"py_name"`
	CName  string `json:"c_name"`
}

// Enum is a named (or anonymous) enumeration.
type Enum struct {
	Name      ScopedName   `json:"name,omitempty"` // nil for anonymous enums
	PyName    string       `json:"py_name,omitempty"`
	Module    ModuleID     `json:"module"`
	Scope     ClassID      `json:"scope"`
	Kind      EnumKind     `json:"kind"`
	Protected bool         `json:"protected,omitempty"`
	Scoped    bool         `json:"scoped,omitempty"` // enum class
	NoScope   bool         `json:"no_scope,omitempty"`
	Members   []EnumMember `json:"members"`
}

// Exception maps a native exception type to a host exception.
type Exception struct {
	Name        ScopedName  `json:"name"`
	PyName      string      `json:"py_name"`
	Module      ModuleID    `json:"module"`
	Class       ClassID     `json:"class"`        // wrapped class thrown, or NoClass
	BuiltinBase string      `json:"builtin_base"` // e.g. "Exception"
	Base        ExceptionID `json:"base"`
	RaiseCode   *CodeBlock  `json:"raise_code,omitempty"`
}

// Qualifier is a feature, platform or timeline qualifier of a module.
type Qualifier struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // "time", "platform", "feature"
	Enabled bool   `json:"enabled"`
}

// License is the module license metadata.
type License struct {
	Type      string `json:"type"`
	Licensee  string `json:"licensee,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// VirtErrorHandler is a module-registered routine invoked when a host
// override fails.
type VirtErrorHandler struct {
	Name string     `json:"name"`
	Code *CodeBlock `json:"code"`
}

// ModuleFlags are module-wide switches.
type ModuleFlags struct {
	AllRaiseHostError bool `json:"all_raise_host_error,omitempty"`
	UseArgNames       bool `json:"use_arg_names,omitempty"`
	UseLimitedAPI     bool `json:"use_limited_api,omitempty"`
	CallSuperInit     bool `json:"call_super_init,omitempty"`
}

// Module is a ModuleEntity.
type Module struct {
	Name     string      `json:"name"`
	FullName string      `json:"full_name"`
	Imports  []ModuleID  `json:"imports,omitempty"`
	Flags    ModuleFlags `json:"flags"`

	Qualifiers          []Qualifier        `json:"qualifiers,omitempty"`
	License             *License           `json:"license,omitempty"`
	DefaultException    ExceptionID        `json:"default_exception"`
	ErrorHandlers       []VirtErrorHandler `json:"error_handlers,omitempty"`
	DefaultErrorHandler string             `json:"default_error_handler,omitempty"`

	Members   []MemberID   `json:"members,omitempty"`
	Overloads []OverloadID `json:"overloads,omitempty"`

	HeaderCode   *CodeBlock `json:"header_code,omitempty"`
	CppCode      *CodeBlock `json:"cpp_code,omitempty"`
	PreInitCode  *CodeBlock `json:"pre_init_code,omitempty"`
	InitCode     *CodeBlock `json:"init_code,omitempty"`
	PostInitCode *CodeBlock `json:"post_init_code,omitempty"`

	Doc string `json:"doc,omitempty"`

	// Computed by the resolve pass.
	AllImports []ModuleID `json:"all_imports,omitempty"`
	NextKey    int        `json:"next_key,omitempty"`
}

// Variable is a module or class level variable exposed as a typed instance.
type Variable struct {
	Name     ScopedName `json:"name"`
	PyName   string     `json:"py_name"`
	Module   ModuleID   `json:"module"`
	Scope    ClassID    `json:"scope"`
	Type     Arg        `json:"type"`
	Static   bool       `json:"static,omitempty"`
	NoSetter bool       `json:"no_setter,omitempty"`
}

// VirtualHandler is shared by every virtual overload with the same native
// shape. The host signature may be faked (protected types made opaque).
type VirtualHandler struct {
	Index     int       `json:"index"`
	Module    ModuleID  `json:"module"`
	HostSig   Signature `json:"host_sig"`
	NativeSig Signature `json:"native_sig"`

	TransferResult   bool       `json:"transfer_result,omitempty"`
	AbortOnException bool       `json:"abort_on_exception,omitempty"`
	VirtualCode      *CodeBlock `json:"virtual_code,omitempty"`

	// Overloads lists every virtual overload served, in discovery order.
	Overloads []OverloadID `json:"overloads"`
}

// Spec is the whole interface-specification graph.
type Spec struct {
	Module ModuleID `json:"module"` // the module being generated

	Modules         []Module         `json:"modules"`
	Classes         []Class          `json:"classes"`
	MappedTypes     []MappedType     `json:"mapped_types"`
	Enums           []Enum           `json:"enums"`
	Exceptions      []Exception      `json:"exceptions"`
	Members         []Member         `json:"members"`
	Overloads       []Overload       `json:"overloads"`
	Variables       []Variable       `json:"variables"`
	VirtualHandlers []VirtualHandler `json:"virtual_handlers"`
}

// Main returns the module being generated.
func (s *Spec) Main() *Module {
	return &s.Modules[s.Module]
}

// Class returns the class at id.
func (s *Spec) Class(id ClassID) *Class { return &s.Classes[id] }

// MappedType returns the mapped type at id.
func (s *Spec) MappedType(id MappedTypeID) *MappedType { return &s.MappedTypes[id] }

// Enum returns the enum at id.
func (s *Spec) Enum(id EnumID) *Enum { return &s.Enums[id] }

// Exception returns the exception at id.
func (s *Spec) Exception(id ExceptionID) *Exception { return &s.Exceptions[id] }

// Member returns the member at id.
func (s *Spec) Member(id MemberID) *Member { return &s.Members[id] }

// Overload returns the overload at id.
func (s *Spec) Overload(id OverloadID) *Overload { return &s.Overloads[id] }

// Handler returns the virtual handler at id.
func (s *Spec) Handler(id HandlerID) *VirtualHandler { return &s.VirtualHandlers[id] }

// IsLocal reports whether the class belongs to the module being generated.
func (s *Spec) IsLocal(id ClassID) bool {
	return s.Classes[id].Module == s.Module
}

// LocalClasses returns the classes of the module being generated in
// declaration order.
func (s *Spec) LocalClasses() []ClassID {
	var out []ClassID
	for i := range s.Classes {
		if s.Classes[i].Module == s.Module {
			out = append(out, ClassID(i))
		}
	}
	return out
}

// ClassByName finds a class by its fully qualified native name.
func (s *Spec) ClassByName(name string) (ClassID, bool) {
	for i := range s.Classes {
		if s.Classes[i].Name.String() == name {
			return ClassID(i), true
		}
	}
	return NoClass, false
}

// MemberByName finds a member of a class (or the module when scope is
// NoClass) by host name.
func (s *Spec) MemberByName(scope ClassID, name string) (MemberID, bool) {
	var ids []MemberID
	if scope == NoClass {
		ids = s.Main().Members
	} else {
		ids = s.Classes[scope].Members
	}
	for _, id := range ids {
		if s.Members[id].Name == name {
			return id, true
		}
	}
	return -1, false
}
