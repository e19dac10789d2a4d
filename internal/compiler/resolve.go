package compiler

import (
	"fmt"
	"log/slog"

	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/sigmatch"
)

// Resolve computes the derived parts of a validated, acyclic spec:
//
//   - each class's method resolution order, host-visible overload sets and
//     virtual overload set
//   - the shared virtual handler table of the generated module
//   - which local classes need a shadow subclass
//   - every module's transitive import list
//   - keep-reference keys for annotated arguments that have none
//
// Everything is walked in declaration order, so numbering is stable across
// runs. Computed fields are rebuilt from scratch; calling Resolve twice with
// fresh allocators gives the same spec. A nil log uses slog.Default().
func Resolve(spec *ir.Spec, alloc *ir.KeyAllocator, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	r := &resolver{spec: spec, alloc: alloc, log: log, match: sigmatch.New(spec), mro: map[ir.ClassID][]ir.ClassID{}}

	spec.VirtualHandlers = nil
	for i := range spec.Classes {
		c := &spec.Classes[i]
		c.MRO, c.Visible, c.Virtuals, c.NeedsShadow = nil, nil, nil, false
	}

	for i := range spec.Classes {
		mro, err := r.classMRO(ir.ClassID(i), map[ir.ClassID]bool{})
		if err != nil {
			return err
		}
		spec.Classes[i].MRO = mro
	}
	for i := range spec.Classes {
		spec.Classes[i].Visible = r.visible(ir.ClassID(i))
	}
	for _, id := range spec.LocalClasses() {
		r.virtuals(id)
	}
	for _, id := range spec.LocalClasses() {
		spec.Class(id).NeedsShadow = r.needsShadow(id)
	}
	for i := range spec.Modules {
		spec.Modules[i].AllImports = r.allImports(ir.ModuleID(i))
	}
	r.allocateKeys()
	return nil
}

type resolver struct {
	spec  *ir.Spec
	alloc *ir.KeyAllocator
	log   *slog.Logger
	match *sigmatch.Matcher
	mro   map[ir.ClassID][]ir.ClassID
}

// classMRO is the class followed by the depth-first, left-to-right walk of
// its supers, each class listed once at its first position.
func (r *resolver) classMRO(id ir.ClassID, visiting map[ir.ClassID]bool) ([]ir.ClassID, error) {
	if mro, ok := r.mro[id]; ok {
		return mro, nil
	}
	if visiting[id] {
		return nil, fmt.Errorf("class %s inherits from itself", r.spec.Class(id).Name)
	}
	visiting[id] = true
	defer delete(visiting, id)

	mro := []ir.ClassID{id}
	seen := map[ir.ClassID]bool{id: true}
	for _, sup := range r.spec.Class(id).Supers {
		sm, err := r.classMRO(sup, visiting)
		if err != nil {
			return nil, err
		}
		for _, k := range sm {
			if !seen[k] {
				seen[k] = true
				mro = append(mro, k)
			}
		}
	}
	r.mro[id] = mro
	return mro, nil
}

// visible groups the non-private overloads reachable through a class by
// host name. Overloads of a more derived class come first, and a base
// overload the host could not tell apart from one already counted is
// shadowed.
func (r *resolver) visible(id ir.ClassID) []ir.VisibleMember {
	var out []ir.VisibleMember
	index := map[string]int{}
	counted := map[string][]*ir.Overload{}

	for _, k := range r.spec.Class(id).MRO {
		for _, mid := range r.spec.Class(k).Members {
			m := r.spec.Member(mid)
			for _, oid := range m.Overloads {
				o := r.spec.Overload(oid)
				if o.Access == ir.Private {
					continue
				}
				if r.match.Shadowed(o, counted[m.Name]) {
					r.log.Debug("overload shadowed",
						"class", r.spec.Class(id).Name.String(),
						"member", m.Name,
						"scope", r.spec.Class(k).Name.String())
					continue
				}
				counted[m.Name] = append(counted[m.Name], o)
				i, ok := index[m.Name]
				if !ok {
					i = len(out)
					index[m.Name] = i
					out = append(out, ir.VisibleMember{Member: mid})
				}
				out[i].Overloads = append(out[i].Overloads, oid)
			}
		}
	}
	return out
}

// sameVirtual reports whether b overrides a (or the reverse) natively.
func (r *resolver) sameVirtual(a, b *ir.Overload) bool {
	return a.NativeName == b.NativeName && a.Flags.Const == b.Flags.Const &&
		r.match.SameNative(a.Native(), b.Native())
}

// virtuals fills a local class's virtual overload set, pairing each entry
// with a shared handler. The most derived declaration of a virtual wins,
// whether or not it repeats the virtual flag; a final one cannot be
// reimplemented and is left out.
func (r *resolver) virtuals(id ir.ClassID) {
	c := r.spec.Class(id)
	var declared []ir.OverloadID // every non-private instance overload seen so far
	var chosen []ir.OverloadID

	for _, k := range c.MRO {
		for _, oid := range r.spec.Class(k).Overloads {
			o := r.spec.Overload(oid)
			if o.Access == ir.Private || o.Flags.Static {
				continue
			}
			derived := ir.OverloadID(-1)
			for _, d := range declared {
				if r.sameVirtual(r.spec.Overload(d), o) {
					derived = d
					break
				}
			}
			if derived < 0 {
				declared = append(declared, oid)
			}
			if !o.Flags.Virtual && !o.Flags.Reimplemented {
				continue
			}
			pick := oid
			if derived >= 0 {
				pick = derived
			}
			if contains(chosen, pick) || r.finalBelow(id, pick, o) {
				continue
			}
			chosen = append(chosen, pick)
		}
	}

	for _, oid := range chosen {
		hid := r.handlerFor(oid)
		c = r.spec.Class(id)
		c.Virtuals = append(c.Virtuals, ir.VirtualOverload{Overload: oid, Handler: hid, CacheIdx: len(c.Virtuals)})
	}
}

// finalBelow reports whether the virtual base was sealed by pick or any
// declaration between it and the class being resolved.
func (r *resolver) finalBelow(id ir.ClassID, pick ir.OverloadID, base *ir.Overload) bool {
	if r.spec.Overload(pick).Flags.Final || base.Flags.Final {
		return true
	}
	for _, k := range r.spec.Class(id).MRO {
		for _, oid := range r.spec.Class(k).Overloads {
			o := r.spec.Overload(oid)
			if o.Flags.Final && r.sameVirtual(o, base) {
				return true
			}
		}
	}
	return false
}

func contains(list []ir.OverloadID, id ir.OverloadID) bool {
	for _, x := range list {
		if x == id {
			return true
		}
	}
	return false
}

// handlerFor returns the handler serving a virtual, creating one when no
// existing handler has the same shape.
func (r *resolver) handlerFor(oid ir.OverloadID) ir.HandlerID {
	o := r.spec.Overload(oid)
	for i := range r.spec.VirtualHandlers {
		h := &r.spec.VirtualHandlers[i]
		if r.sameShape(h, o) {
			h.Overloads = append(h.Overloads, oid)
			r.log.Debug("virtual handler shared",
				"handler", h.Index,
				"method", o.NativeName,
				"serves", len(h.Overloads))
			return ir.HandlerID(i)
		}
	}
	id := ir.HandlerID(len(r.spec.VirtualHandlers))
	r.spec.VirtualHandlers = append(r.spec.VirtualHandlers, ir.VirtualHandler{
		Index:            r.alloc.NextHandler(),
		Module:           r.spec.Module,
		HostSig:          o.HostSig.Clone(),
		NativeSig:        o.Native().Clone(),
		TransferResult:   o.Flags.Factory,
		AbortOnException: o.Flags.AbortOnException,
		VirtualCode:      o.VirtualCode,
		Overloads:        []ir.OverloadID{oid},
	})
	return id
}

// sameShape reports whether a handler can serve o: the native signatures
// are strictly equal and every annotation the handler body depends on
// agrees.
func (r *resolver) sameShape(h *ir.VirtualHandler, o *ir.Overload) bool {
	sig := o.Native()
	if !r.match.SameNative(&h.NativeSig, sig) {
		return false
	}
	if h.TransferResult != o.Flags.Factory || h.AbortOnException != o.Flags.AbortOnException {
		return false
	}
	if codeText(h.VirtualCode) != codeText(o.VirtualCode) {
		return false
	}
	if !sameAnnotations(&h.NativeSig.Result, &sig.Result) {
		return false
	}
	for i := range sig.Args {
		if !sameAnnotations(&h.NativeSig.Args[i], &sig.Args[i]) {
			return false
		}
	}
	return true
}

func sameAnnotations(a, b *ir.Arg) bool {
	return a.In == b.In && a.Out == b.Out &&
		a.Array == b.Array && a.ArraySize == b.ArraySize &&
		a.AllowNone == b.AllowNone && a.DisallowNone == b.DisallowNone &&
		a.TransferToHost == b.TransferToHost && a.TransferToNative == b.TransferToNative &&
		a.TransferThis == b.TransferThis
}

func codeText(b *ir.CodeBlock) string {
	if b.Empty() {
		return ""
	}
	return b.Text
}

// needsShadow reports whether a local class gets a native subclass: it can
// be instantiated and subclassed, and it has something to reimplement or
// something protected to expose.
func (r *resolver) needsShadow(id ir.ClassID) bool {
	c := r.spec.Class(id)
	if c.Flags.Namespace || c.Flags.Opaque || c.DtorAccess == ir.Private {
		return false
	}
	constructible := len(c.Ctors) == 0
	protectedCtor := false
	for i := range c.Ctors {
		switch c.Ctors[i].Access {
		case ir.Public:
			constructible = true
		case ir.Protected:
			constructible, protectedCtor = true, true
		}
	}
	if !constructible {
		return false
	}
	if len(c.Virtuals) > 0 || protectedCtor {
		return true
	}
	for _, vm := range c.Visible {
		for _, oid := range vm.Overloads {
			o := r.spec.Overload(oid)
			if o.Access == ir.Protected && !o.Flags.Signal {
				return true
			}
		}
	}
	return false
}

// allImports lists every module a module depends on, directly or not, with
// each module after the modules it imports.
func (r *resolver) allImports(id ir.ModuleID) []ir.ModuleID {
	var out []ir.ModuleID
	seen := map[ir.ModuleID]bool{id: true}
	var walk func(ir.ModuleID)
	walk = func(m ir.ModuleID) {
		for _, imp := range r.spec.Modules[m].Imports {
			if seen[imp] {
				continue
			}
			seen[imp] = true
			walk(imp)
			out = append(out, imp)
		}
	}
	walk(id)
	return out
}

// allocateKeys numbers keep-reference arguments of the generated module
// that carry no explicit key. Explicit keys are never handed out again.
func (r *resolver) allocateKeys() {
	spec := r.spec
	explicit := map[int]bool{}
	maxKey := 0
	var sigs []*ir.Signature
	var natives []*ir.Signature

	collect := func(host *ir.Signature, native *ir.Signature) {
		sigs = append(sigs, host)
		natives = append(natives, native)
	}
	for _, id := range spec.LocalClasses() {
		c := spec.Class(id)
		for i := range c.Ctors {
			collect(&c.Ctors[i].HostSig, c.Ctors[i].NativeSig)
		}
		for _, oid := range c.Overloads {
			o := spec.Overload(oid)
			collect(&o.HostSig, o.NativeSig)
		}
	}
	for _, oid := range spec.Main().Overloads {
		o := spec.Overload(oid)
		collect(&o.HostSig, o.NativeSig)
	}

	for _, s := range sigs {
		forEachArg(s, func(a *ir.Arg) {
			if a.KeepReference && a.Key > 0 {
				explicit[a.Key] = true
				maxKey = max(maxKey, a.Key)
			}
		})
	}

	next := func() int {
		k := r.alloc.NextKey()
		for explicit[k] {
			k = r.alloc.NextKey()
		}
		return k
	}
	for i, s := range sigs {
		native := natives[i]
		forEachArgAt(s, func(pos int, a *ir.Arg) {
			if !a.KeepReference || a.Key != 0 {
				return
			}
			a.Key = next()
			if native == nil {
				return
			}
			if na := argAt(native, pos); na != nil && na.KeepReference && na.Key == 0 {
				na.Key = a.Key
			}
		})
	}
	spec.Main().NextKey = max(r.alloc.Keys(), maxKey) + 1
}

// forEachArgAt visits the result (pos -1) then the arguments.
func forEachArgAt(s *ir.Signature, fn func(pos int, a *ir.Arg)) {
	fn(-1, &s.Result)
	for i := range s.Args {
		fn(i, &s.Args[i])
	}
}

func forEachArg(s *ir.Signature, fn func(a *ir.Arg)) {
	forEachArgAt(s, func(_ int, a *ir.Arg) { fn(a) })
}

func argAt(s *ir.Signature, pos int) *ir.Arg {
	if pos < 0 {
		return &s.Result
	}
	if pos < len(s.Args) {
		return &s.Args[pos]
	}
	return nil
}
