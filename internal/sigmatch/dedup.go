package sigmatch

import "github.com/roach88/bindgen/internal/ir"

// SameProtectedWrapper reports whether two protected overloads would
// produce the same public wrapper on a shadow class.
func (m *Matcher) SameProtectedWrapper(a, b *ir.Overload) bool {
	if a.NativeName != b.NativeName || a.Flags.Const != b.Flags.Const {
		return false
	}
	return m.Equivalent(a.Native(), b.Native(), true)
}

// Shadowed reports whether o is hidden from the host by an overload that
// has already been counted. Each candidate is compared directly with o;
// equivalence is never chained.
func (m *Matcher) Shadowed(o *ir.Overload, counted []*ir.Overload) bool {
	for _, c := range counted {
		if m.Equivalent(&o.HostSig, &c.HostSig, false) {
			return true
		}
	}
	return false
}

// FindNative returns the index of the first signature in list strictly
// equal to sig (result included), or -1.
func (m *Matcher) FindNative(list []*ir.Signature, sig *ir.Signature) int {
	for i, s := range list {
		if m.SameNative(s, sig) {
			return i
		}
	}
	return -1
}
