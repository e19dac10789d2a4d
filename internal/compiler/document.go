package compiler

import "github.com/roach88/bindgen/internal/ir"

// Document shapes. A spec document is decoded element by element into these
// structs so that every compile error can point at the list element it came
// from. Field names follow the snake_case spelling used in .cue files; flag
// sets decode straight into their ir types.

type defaultDoc struct {
	Null   bool    `json:"null"`
	Bool   *bool   `json:"bool"`
	Int    *int64  `json:"int"`
	String *string `json:"string"`
	Char   *string `json:"char"`
	Expr   *string `json:"expr"`
}

type templateDoc struct {
	Name  string   `json:"name"`
	Types []argDoc `json:"types"`
}

type sigDoc struct {
	Result *argDoc  `json:"result"`
	Args   []argDoc `json:"args"`
}

type argDoc struct {
	Type     string       `json:"type"`
	Name     string       `json:"name"`
	Class    string       `json:"class"`
	Mapped   string       `json:"mapped"`
	Enum     string       `json:"enum"`
	TypeName string       `json:"type_name"`
	Template *templateDoc `json:"template"`
	Func     *sigDoc      `json:"func"`

	Derefs    int  `json:"derefs"`
	Const     bool `json:"const"`
	Reference bool `json:"reference"`

	// In defaults to the opposite of Out.
	In  *bool `json:"in"`
	Out bool  `json:"out"`

	Array            bool `json:"array"`
	ArraySize        bool `json:"array_size"`
	TransferToHost   bool `json:"transfer_to_host"`
	TransferToNative bool `json:"transfer_to_native"`
	TransferThis     bool `json:"transfer_this"`
	KeepReference    bool `json:"keep_reference"`
	Key              int  `json:"key"`
	AllowNone        bool `json:"allow_none"`
	DisallowNone     bool `json:"disallow_none"`
	Constrained      bool `json:"constrained"`
	GetWrapper       bool `json:"get_wrapper"`
	NoCopy           bool `json:"no_copy"`

	Default *defaultDoc `json:"default"`
}

type overloadDoc struct {
	Name       string           `json:"name"`
	NativeName string           `json:"native_name"`
	Access     string           `json:"access"`
	Flags      ir.OverloadFlags `json:"flags"`
	Args       []argDoc         `json:"args"`
	Result     *argDoc          `json:"result"`
	Native     *sigDoc          `json:"native"`

	// A missing list means anything may be thrown; an empty one means
	// nothing is.
	Throws *[]string `json:"throws"`

	MethodCode       string `json:"method_code"`
	PreMethodCode    string `json:"pre_method_code"`
	VirtualCallCode  string `json:"virtual_call_code"`
	VirtualCode      string `json:"virtual_code"`
	PreHook          string `json:"pre_hook"`
	PostHook         string `json:"post_hook"`
	VirtErrorHandler string `json:"virt_error_handler"`
	KeywordArgs      bool   `json:"keyword_args"`
	Doc              string `json:"doc"`
}

type ctorDoc struct {
	Access      string    `json:"access"`
	Args        []argDoc  `json:"args"`
	Native      *sigDoc   `json:"native"`
	Throws      *[]string `json:"throws"`
	MethodCode  string    `json:"method_code"`
	ReleaseGIL  bool      `json:"release_gil"`
	HoldGIL     bool      `json:"hold_gil"`
	Transfer    bool      `json:"transfer"`
	Deprecated  bool      `json:"deprecated"`
	Explicit    bool      `json:"explicit"`
	KeywordArgs bool      `json:"keyword_args"`
	PreHook     string    `json:"pre_hook"`
	PostHook    string    `json:"post_hook"`
	Doc         string    `json:"doc"`
}

type dtorDoc struct {
	Access string    `json:"access"`
	Throws *[]string `json:"throws"`
	Code   string    `json:"code"`
}

type classDoc struct {
	Name             string        `json:"name"`
	PyName           string        `json:"py_name"`
	Supers           []string      `json:"supers"`
	Flags            ir.ClassFlags `json:"flags"`
	Ctors            []ctorDoc     `json:"ctors"`
	Methods          []overloadDoc `json:"methods"`
	Dtor             *dtorDoc      `json:"dtor"`
	ConvertToCode    string        `json:"convert_to_code"`
	ConvertFromCode  string        `json:"convert_from_code"`
	ConvertToSubCode string        `json:"convert_to_sub_code"`
	SubBase          string        `json:"sub_base"`
	CppCode          string        `json:"cpp_code"`
	VirtErrorHandler string        `json:"virt_error_handler"`
	Doc              string        `json:"doc"`
}

type mappedDoc struct {
	Name            string             `json:"name"`
	PyName          string             `json:"py_name"`
	Flags           ir.MappedTypeFlags `json:"flags"`
	ConvertToCode   string             `json:"convert_to_code"`
	ConvertFromCode string             `json:"convert_from_code"`
	ReleaseCode     string             `json:"release_code"`
}

type enumDoc struct {
	Name      string   `json:"name"`
	PyName    string   `json:"py_name"`
	Scope     string   `json:"scope"`
	Kind      string   `json:"kind"`
	Protected bool     `json:"protected"`
	Scoped    bool     `json:"scoped"`
	NoScope   bool     `json:"no_scope"`
	Members   []string `json:"members"`
}

type exceptionDoc struct {
	Name        string `json:"name"`
	PyName      string `json:"py_name"`
	Class       string `json:"class"`
	BuiltinBase string `json:"builtin_base"`
	Base        string `json:"base"`
	RaiseCode   string `json:"raise_code"`
}

type variableDoc struct {
	Name     string `json:"name"`
	PyName   string `json:"py_name"`
	Scope    string `json:"scope"`
	Type     argDoc `json:"type"`
	Static   bool   `json:"static"`
	NoSetter bool   `json:"no_setter"`
}

type errorHandlerDoc struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type moduleDoc struct {
	Name                string         `json:"name"`
	FullName            string         `json:"full_name"`
	Imports             []string       `json:"imports"`
	Flags               ir.ModuleFlags `json:"flags"`
	Qualifiers          []ir.Qualifier `json:"qualifiers"`
	License             *ir.License    `json:"license"`
	DefaultException    string         `json:"default_exception"`
	DefaultErrorHandler string         `json:"default_error_handler"`
	HeaderCode          string         `json:"header_code"`
	CppCode             string         `json:"cpp_code"`
	PreInitCode         string         `json:"pre_init_code"`
	InitCode            string         `json:"init_code"`
	PostInitCode        string         `json:"post_init_code"`
	Doc                 string         `json:"doc"`
}
