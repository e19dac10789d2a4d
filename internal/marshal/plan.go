// Package marshal turns a signature into the format program and local
// declarations that move its values across the host boundary.
//
// A plan is computed for one direction. Forward plans serve host-to-native
// calls: arguments are parsed from host objects and results are built back.
// Reverse plans serve virtual handlers: arguments are built into host
// objects and the host's return value is parsed back.
package marshal

import (
	"fmt"
	"strings"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
)

// Direction is the direction of the call being marshalled.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// Options tune a plan.
type Options struct {
	Dir Direction
	// Protected renders types as seen from inside a shadow class.
	Protected bool
	// Owner is the expression recorded as owner by transfer and
	// keep-reference bookkeeping, e.g. "bndSelf". Empty means the call has
	// no receiver; keep references are then attached to the result object,
	// or held by the module when nothing is returned.
	Owner string
	// Result ownership from the overload: the returned instance is handed
	// to the host (TransferBack, Factory) or kept by Owner (Transfer).
	ResultToHost   bool
	ResultToNative bool
}

// Item is one entry of a format program.
type Item struct {
	Code  string
	Extra []string
}

// Cleanup is one release action.
type Cleanup struct {
	Arg  int
	Code string
	// ErrorOnly actions run only when the call did not complete.
	ErrorOnly bool
	// Deferred actions release storage an output value still refers to and
	// run after the outputs have been built.
	Deferred bool
}

// ArgPlan is the plan for one argument.
type ArgPlan struct {
	Index int
	Arg   ir.Arg // as rendered, after any protected-type stand-in
	Var   string
	Decl  string // local declaration of Var, "" when Var is a parameter
	Temps []string

	// In moves the incoming value: parsed from the host (forward) or built
	// for the host (reverse). Out moves the outgoing value the other way.
	In  *Item
	Out *Item

	Before   []string // statements run just before the native call
	CallExpr string   // expression passed to the native call
	Cleanups []Cleanup
	Post     []string // ownership bookkeeping after a successful call

	// SizeFor is the index of the array this argument is the size of, or -1.
	SizeFor int
}

// ResultPlan is the plan for a non-void result.
type ResultPlan struct {
	Arg ir.Arg
	Var string
	// Decl declares Var; Prefix and Suffix wrap the native call expression
	// assigned to it, e.g. a heap copy.
	Decl           string
	Prefix, Suffix string
	HeapCopy       bool
	Item           Item // built (forward) or parsed (reverse)
	// State is the conversion state local of a parsed reverse result, ""
	// when the parsed value needs no release.
	State string
	// Post is the bookkeeping run once the result object has been built.
	Post []string
}

// MarshalPlan is the complete plan for a signature.
type MarshalPlan struct {
	Dir    Direction
	Args   []ArgPlan
	Result *ResultPlan
	scope  codegen.Scope
}

// UnmappableError reports a descriptor that cannot cross the boundary in the
// requested direction.
type UnmappableError struct {
	Arg      int // -1 for the result
	Category ir.Category
	Dir      Direction
	Reason   string
}

func (e *UnmappableError) Error() string {
	what := fmt.Sprintf("argument %d", e.Arg)
	if e.Arg < 0 {
		what = "result"
	}
	return fmt.Sprintf("%s: %s cannot be marshalled (%s): %s", what, e.Category, e.Dir, e.Reason)
}

// Plan builds the marshal plan of sig.
func Plan(spec *ir.Spec, cfg config.Config, sig *ir.Signature, opts Options) (*MarshalPlan, error) {
	p := &planner{
		spec: spec,
		cfg:  cfg,
		opts: opts,
		sc:   codegen.Scope{Protected: opts.Protected, C: cfg.IsC()},
	}
	return p.plan(sig)
}

type planner struct {
	spec *ir.Spec
	cfg  config.Config
	opts Options
	sc   codegen.Scope
}

func (p *planner) plan(sig *ir.Signature) (*MarshalPlan, error) {
	mp := &MarshalPlan{Dir: p.opts.Dir, scope: p.sc}

	args := make([]ir.Arg, len(sig.Args))
	for i := range sig.Args {
		args[i] = codegen.Fake(p.spec, sig.Args[i], p.sc)
	}

	sizeFor, arrayWith, err := pairArrays(args)
	if err != nil {
		return nil, err
	}

	for i := range args {
		ap := ArgPlan{Index: i, Arg: args[i], Var: codegen.ArgVar(i), SizeFor: sizeFor[i]}
		size := -1
		if j, ok := arrayWith[i]; ok {
			size = j
		}
		var err error
		if p.opts.Dir == Forward {
			err = p.forwardArg(&ap, size)
		} else {
			err = p.reverseArg(&ap, size)
		}
		if err != nil {
			return nil, err
		}
		mp.Args = append(mp.Args, ap)
	}
	if p.opts.Dir == Forward {
		markOptional(mp.Args)
	}

	res := codegen.Fake(p.spec, sig.Result, p.sc)
	if !isVoid(&res) {
		var rp *ResultPlan
		if p.opts.Dir == Forward {
			rp, err = p.forwardResult(res)
		} else {
			rp, err = p.reverseResult(res)
		}
		if err != nil {
			return nil, err
		}
		mp.Result = rp
	}
	if p.opts.Dir == Forward && p.opts.Owner == "" && mp.NumOutputs() == 0 {
		moduleKeeper(mp.Args, codegen.Null(p.sc))
	}
	return mp, nil
}

// moduleKeeper moves keep references with no result object to hang on to
// the module-level keeper.
func moduleKeeper(args []ArgPlan, null string) {
	from := keepPrefix + codegen.ResultObjVar + ","
	for i := range args {
		for j, s := range args[i].Post {
			if strings.HasPrefix(s, from) {
				args[i].Post[j] = keepPrefix + null + "," + strings.TrimPrefix(s, from)
			}
		}
	}
}

// markOptional starts the optional part of the parse format at the first
// parsed argument with a default value.
func markOptional(args []ArgPlan) {
	for i := range args {
		if args[i].In != nil && args[i].Arg.HasDefault() {
			args[i].In.Code = optionalMarker + args[i].In.Code
			return
		}
	}
}

func isVoid(a *ir.Arg) bool {
	return a.Category == ir.Void && a.Derefs == 0
}

// pairArrays matches each array argument with its size partner. Validation
// rejects unpaired arrays earlier; the planner still refuses them.
func pairArrays(args []ir.Arg) (sizeFor []int, arrayWith map[int]int, err error) {
	sizeFor = make([]int, len(args))
	arrayWith = make(map[int]int)
	array, size := -1, -1
	for i := range args {
		sizeFor[i] = -1
		switch {
		case args[i].Array:
			if array >= 0 {
				return nil, nil, &UnmappableError{Arg: i, Category: args[i].Category, Reason: "more than one array argument"}
			}
			array = i
		case args[i].ArraySize:
			if size >= 0 {
				return nil, nil, &UnmappableError{Arg: i, Category: args[i].Category, Reason: "more than one array size argument"}
			}
			size = i
		}
	}
	if (array < 0) != (size < 0) {
		i := array
		if i < 0 {
			i = size
		}
		return nil, nil, &UnmappableError{Arg: i, Category: args[i].Category, Reason: "array and array size must be paired"}
	}
	if array >= 0 {
		sizeFor[size] = array
		arrayWith[array] = size
	}
	return sizeFor, arrayWith, nil
}

// InFormat is the format string of all In items in argument order.
func (mp *MarshalPlan) InFormat() string {
	var b strings.Builder
	for i := range mp.Args {
		if it := mp.Args[i].In; it != nil {
			b.WriteString(it.Code)
		}
	}
	return b.String()
}

// InExtra is the runtime argument list matching InFormat.
func (mp *MarshalPlan) InExtra() []string {
	var out []string
	for i := range mp.Args {
		if it := mp.Args[i].In; it != nil {
			out = append(out, it.Extra...)
		}
	}
	return out
}

// Outputs returns the indices of arguments with an Out item.
func (mp *MarshalPlan) Outputs() []int {
	var out []int
	for i := range mp.Args {
		if mp.Args[i].Out != nil {
			out = append(out, i)
		}
	}
	return out
}

// NumOutputs counts the values flowing back: the result plus out arguments.
func (mp *MarshalPlan) NumOutputs() int {
	n := len(mp.Outputs())
	if mp.Result != nil {
		n++
	}
	return n
}

// OutFormat is the format of the values flowing back, result first, then out
// arguments in signature order. More than one value is wrapped in
// parentheses, which asks the runtime for a tuple.
func (mp *MarshalPlan) OutFormat() string {
	var b strings.Builder
	if mp.Result != nil {
		b.WriteString(mp.Result.Item.Code)
	}
	for _, i := range mp.Outputs() {
		b.WriteString(mp.Args[i].Out.Code)
	}
	if mp.NumOutputs() > 1 {
		return "(" + b.String() + ")"
	}
	return b.String()
}

// ParseFormat is the format a reverse plan parses the host's return value
// with. A reimplementation with nothing to return must return None.
func (mp *MarshalPlan) ParseFormat() string {
	if mp.NumOutputs() == 0 {
		return noneResult
	}
	return mp.OutFormat()
}

// OutExtra is the runtime argument list matching OutFormat.
func (mp *MarshalPlan) OutExtra() []string {
	var out []string
	if mp.Result != nil {
		out = append(out, mp.Result.Item.Extra...)
	}
	for _, i := range mp.Outputs() {
		out = append(out, mp.Args[i].Out.Extra...)
	}
	return out
}

// Decls returns every local declaration in argument order. An argument's
// temporaries come before its variable, which may be initialised from them.
func (mp *MarshalPlan) Decls() []string {
	var out []string
	for i := range mp.Args {
		out = append(out, mp.Args[i].Temps...)
		if d := mp.Args[i].Decl; d != "" {
			out = append(out, d)
		}
	}
	return out
}

// CallArgs is the comma separated native argument list.
func (mp *MarshalPlan) CallArgs() string {
	parts := make([]string, len(mp.Args))
	for i := range mp.Args {
		parts[i] = mp.Args[i].CallExpr
	}
	return strings.Join(parts, ", ")
}

// Before returns the pre-call statements in argument order.
func (mp *MarshalPlan) Before() []string {
	var out []string
	for i := range mp.Args {
		out = append(out, mp.Args[i].Before...)
	}
	return out
}

// Post returns the ownership bookkeeping statements in argument order.
func (mp *MarshalPlan) Post() []string {
	var out []string
	for i := range mp.Args {
		out = append(out, mp.Args[i].Post...)
	}
	return out
}

// ResultPost returns the bookkeeping that refers to the built result object.
func (mp *MarshalPlan) ResultPost() []string {
	if mp.Result == nil {
		return nil
	}
	return mp.Result.Post
}

// Cleanups returns the success-path release actions: those of later
// arguments first, with deferred actions after all others.
func (mp *MarshalPlan) Cleanups() []Cleanup {
	var now, deferred []Cleanup
	for i := len(mp.Args) - 1; i >= 0; i-- {
		cs := mp.Args[i].Cleanups
		for j := len(cs) - 1; j >= 0; j-- {
			switch {
			case cs[j].ErrorOnly:
			case cs[j].Deferred:
				deferred = append(deferred, cs[j])
			default:
				now = append(now, cs[j])
			}
		}
	}
	return append(now, deferred...)
}

// ErrorCleanups returns every release action, for paths where the call did
// not complete, in reverse order of acquisition.
func (mp *MarshalPlan) ErrorCleanups() []Cleanup {
	var out []Cleanup
	for i := len(mp.Args) - 1; i >= 0; i-- {
		cs := mp.Args[i].Cleanups
		for j := len(cs) - 1; j >= 0; j-- {
			out = append(out, cs[j])
		}
	}
	return out
}

// KeepReferences counts the keep-reference registrations the plan makes on
// a successful call.
func (mp *MarshalPlan) KeepReferences() int {
	n := 0
	for _, s := range append(mp.Post(), mp.ResultPost()...) {
		if strings.HasPrefix(s, keepPrefix) {
			n++
		}
	}
	return n
}
