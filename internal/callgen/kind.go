// Package callgen emits the host-callable functions of a module: for each
// member, every overload is tried in declaration order by parsing the host
// arguments against the overload's format program; the first parse that
// succeeds makes the native call and converts the results back.
package callgen

import "github.com/roach88/bindgen/internal/ir"

// Kind is the kind of call site an overload is emitted for.
type Kind int

const (
	KindFunction Kind = iota // module level function
	KindStatic               // static method
	KindMethod               // instance method
	KindCtor                 // constructor
	KindVirtual              // instance method that may be reimplemented by the host
	KindSlot                 // special method
)

var kindNames = [...]string{
	KindFunction: "function",
	KindStatic:   "static",
	KindMethod:   "method",
	KindCtor:     "ctor",
	KindVirtual:  "virtual",
	KindSlot:     "slot",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// KindOf returns the call site kind of an overload reached through m.
func KindOf(m *ir.Member, o *ir.Overload) Kind {
	switch {
	case m.Slot != ir.NoSlot:
		return KindSlot
	case o.Scope == ir.NoClass:
		return KindFunction
	case o.Flags.Static:
		return KindStatic
	case o.Flags.Virtual || o.Flags.Reimplemented:
		return KindVirtual
	}
	return KindMethod
}

// hasReceiver reports whether the call site binds a native instance.
func (k Kind) hasReceiver() bool {
	return k == KindMethod || k == KindVirtual || k == KindSlot
}
