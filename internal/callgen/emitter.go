package callgen

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/marshal"
)

// Emitter writes call sequences for one generation run. It only reads the
// spec and the configuration.
type Emitter struct {
	spec *ir.Spec
	cfg  config.Config
	log  *slog.Logger
}

// New creates an emitter. A nil logger uses slog.Default().
func New(spec *ir.Spec, cfg config.Config, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{spec: spec, cfg: cfg, log: log}
}

// parseForm is how the host arguments reach the function.
type parseForm int

const (
	parseArgs    parseForm = iota // positional tuple
	parseKwdArgs                  // tuple and keyword dictionary
	parseOne                      // one slot operand
	parseTwo                      // two slot operands
	parseNone                     // unary slot, nothing to parse
)

// site is the host function an overload attempt is emitted into.
type site struct {
	member *ir.Member
	cls    ir.ClassID
	form   parseForm
	fail   string // returned on failure
}

func (e *Emitter) siteFor(m *ir.Member) *site {
	s := &site{member: m, cls: m.Scope, fail: "NULL"}
	switch {
	case m.Slot == ir.NoSlot && m.KeywordArgs:
		s.form = parseKwdArgs
	case m.Slot == ir.NoSlot:
		s.form = parseArgs
	default:
		switch m.Slot.HostArgs() {
		case 0:
			s.form = parseNone
		case 1:
			s.form = parseOne
		case 2:
			s.form = parseTwo
		default:
			s.form = parseArgs
			if m.KeywordArgs {
				s.form = parseKwdArgs
			}
		}
		if m.Slot.Returns() != ir.SlotReturnsObject {
			s.fail = "-1"
		}
	}
	return s
}

// callable returns the overloads of m the host can reach, in declaration
// order.
func (e *Emitter) callable(m *ir.Member) []ir.OverloadID {
	var out []ir.OverloadID
	for _, id := range m.Overloads {
		o := e.spec.Overload(id)
		if o.Access == ir.Private || o.Flags.Signal {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Reachable reports whether EmitMember writes a function for m.
func (e *Emitter) Reachable(m *ir.Member) bool {
	return len(e.callable(m)) > 0
}

func (e *Emitter) className(id ir.ClassID) string {
	if id == ir.NoClass {
		return ""
	}
	c := e.spec.Class(id)
	if c.PyName != "" {
		return c.PyName
	}
	return c.Name.Tail()
}

func (e *Emitter) hostName(m *ir.Member) string {
	if m.Slot != ir.NoSlot {
		return m.Slot.Dunder()
	}
	return m.Name
}

// FuncName is the symbol of the host function emitted for a member.
func (e *Emitter) FuncName(m *ir.Member) string {
	if m.Slot != ir.NoSlot {
		return codegen.SlotFunc(e.spec, m)
	}
	return codegen.MethodFunc(e.spec, m)
}

// DocVar is the signature list used by the no-match fault of a member.
func (e *Emitter) DocVar(m *ir.Member) string {
	return "doc_" + strings.TrimPrefix(strings.TrimPrefix(e.FuncName(m), "meth_"), "func_")
}

// Signatures returns the host signatures of a member's callable overloads
// in declaration order.
func (e *Emitter) Signatures(m *ir.Member) []string {
	var out []string
	for _, id := range e.callable(m) {
		o := e.spec.Overload(id)
		self := KindOf(m, o).hasReceiver()
		out = append(out, HostSignature(e.spec, e.hostName(m), &o.HostSig, self))
	}
	return out
}

func (e *Emitter) anyVirtual(m *ir.Member) bool {
	for _, id := range e.callable(m) {
		if KindOf(m, e.spec.Overload(id)) == KindVirtual {
			return true
		}
	}
	return false
}

// EmitMember writes the complete host function of a member: every
// callable overload is attempted in declaration order, and the function
// ends in the no-match path.
func (e *Emitter) EmitMember(p *codegen.Printer, mid ir.MemberID) error {
	m := e.spec.Member(mid)
	ids := e.callable(m)
	if len(ids) == 0 {
		return nil
	}
	s := e.siteFor(m)
	fn := e.FuncName(m)
	notImpl := m.Slot != ir.NoSlot && m.Slot.ReturnsNotImplemented()

	if !notImpl && s.form != parseNone {
		p.Line("static const char %s[] = %s;", e.DocVar(m), codegen.Quote(strings.Join(e.Signatures(m), "\n")))
		p.Blank()
	}
	p.Line("%s", e.header(m, fn))
	p.Open("{")
	if e.cfg.Tracing {
		p.Line("bndTrace(BND_TRACE_METHODS, %s);", codegen.Quote(fn+"()\n"))
	}
	if s.form != parseNone {
		p.Line("PyObject *%s = %s;", codegen.ParseErrVar, codegen.Null(codegen.Scope{C: e.cfg.IsC()}))
	}
	if e.anyVirtual(m) {
		p.Line("bool %s = (!%s || bndIsDerivedClass((bndSimpleWrapper *)%s));", codegen.SelfWasArg, codegen.SelfVar, codegen.SelfVar)
	}
	if m.Slot != ir.NoSlot && m.Scope != ir.NoClass {
		e.slotReceiver(p, s)
	}
	p.Blank()

	for i, id := range ids {
		if err := e.attempt(p, s, id); err != nil {
			return fmt.Errorf("%s: %w", fn, err)
		}
		if s.form == parseNone {
			// A unary slot cannot fail to parse; later overloads are
			// unreachable.
			if len(ids) > 1 {
				e.log.Warn("unreachable slot overloads", "function", fn, "count", len(ids)-1)
			}
			p.Close("}")
			return nil
		}
		if i < len(ids)-1 {
			p.Blank()
		}
	}
	p.Blank()

	if notImpl {
		p.Line("Py_XDECREF(%s);", codegen.ParseErrVar)
		p.Line("Py_INCREF(Py_NotImplemented);")
		p.Line("return Py_NotImplemented;")
	} else {
		cls := "NULL"
		if m.Scope != ir.NoClass {
			cls = codegen.Quote(e.className(m.Scope))
		}
		p.Line("/* Raise an exception if the arguments couldn't be parsed. */")
		p.Line("bndNoMethod(%s, %s, %s, %s);", codegen.ParseErrVar, cls, codegen.Quote(e.hostName(m)), e.DocVar(m))
		p.Line("return %s;", s.fail)
	}
	p.Close("}")
	e.log.Debug("member emitted", "function", fn, "overloads", len(ids))
	return nil
}

func (e *Emitter) header(m *ir.Member, fn string) string {
	if m.Slot == ir.NoSlot {
		if m.KeywordArgs {
			return "static PyObject *" + fn + "(PyObject *bndSelf, PyObject *bndArgs, PyObject *bndKwds)"
		}
		return "static PyObject *" + fn + "(PyObject *bndSelf, PyObject *bndArgs)"
	}
	var ret string
	switch m.Slot.Returns() {
	case ir.SlotReturnsInt, ir.SlotReturnsBool:
		ret = "int "
	case ir.SlotReturnsSize:
		ret = "Py_ssize_t "
	case ir.SlotReturnsHash:
		ret = "Py_hash_t "
	default:
		ret = "PyObject *"
	}
	var params string
	switch m.Slot.HostArgs() {
	case 0:
		params = "PyObject *bndSelf"
	case 1:
		params = "PyObject *bndSelf, PyObject *bndArg"
	case 2:
		params = "PyObject *bndSelf, PyObject *bndArg0, PyObject *bndArg1"
	default:
		params = "PyObject *bndSelf, PyObject *bndArgs, PyObject *bndKwds"
	}
	return "static " + ret + fn + "(" + params + ")"
}

// slotReceiver fetches the native instance of a slot's self argument.
func (e *Emitter) slotReceiver(p *codegen.Printer, s *site) {
	sc := codegen.Scope{C: e.cfg.IsC()}
	a := ir.NewArg(ir.ClassType)
	a.Class = s.cls
	base := codegen.BaseType(e.spec, &a, sc)
	tobj := codegen.TypeObject(e.spec, s.cls)
	p.Line("%s *%s = %s;", base, codegen.CppVar,
		codegen.ReinterpretCast(base+" *", "bndGetCppPtr((bndSimpleWrapper *)"+codegen.SelfVar+", "+tobj+")", sc))
	p.Blank()
	p.Line("if (!%s)", codegen.CppVar)
	p.Indent()
	p.Line("return %s;", s.fail)
	p.Dedent()
}

// Emit writes one overload attempt: the argument locals, the parse attempt
// and, inside it, the call sequence. The attempt falls through when the
// parse fails so that the next overload can be tried.
func (e *Emitter) Emit(p *codegen.Printer, oid ir.OverloadID, kind Kind) error {
	o := e.spec.Overload(oid)
	m := e.spec.Member(o.Member)
	s := e.siteFor(m)
	return e.attemptAs(p, s, oid, kind)
}

func (e *Emitter) attempt(p *codegen.Printer, s *site, oid ir.OverloadID) error {
	o := e.spec.Overload(oid)
	return e.attemptAs(p, s, oid, KindOf(s.member, o))
}

func (e *Emitter) planOptions(k Kind, o *ir.Overload) marshal.Options {
	opts := marshal.Options{
		Dir:            marshal.Forward,
		ResultToHost:   o.Flags.TransferBack || o.Flags.Factory,
		ResultToNative: o.Flags.Transfer,
	}
	if k.hasReceiver() {
		opts.Owner = codegen.SelfVar
	}
	return opts
}

func (e *Emitter) attemptAs(p *codegen.Printer, s *site, oid ir.OverloadID, k Kind) error {
	o := e.spec.Overload(oid)
	plan, err := marshal.Plan(e.spec, e.cfg, &o.HostSig, e.planOptions(k, o))
	if err != nil {
		return fmt.Errorf("%s: %w", o.NativeName, err)
	}
	sc := codegen.Scope{C: e.cfg.IsC()}

	p.Open("{")
	if k.hasReceiver() && k != KindSlot {
		a := ir.NewArg(ir.ClassType)
		a.Class = o.Scope
		p.Line("%s *%s;", codegen.BaseType(e.spec, &a, sc), codegen.CppVar)
	}
	for _, d := range plan.Decls() {
		p.Line("%s", d)
	}
	if s.form == parseKwdArgs {
		e.kwdList(p, &o.HostSig)
	}
	if s.form != parseNone {
		p.Blank()
		p.Line("if (%s)", e.parseCall(s, k, o, plan))
		p.Open("{")
	} else if len(plan.Decls()) > 0 {
		p.Blank()
	}

	e.body(p, s, k, o, plan)

	if s.form != parseNone {
		p.Close("}")
	}
	p.Close("}")
	return nil
}

func (e *Emitter) kwdList(p *codegen.Printer, sig *ir.Signature) {
	var names []string
	for i := range sig.Args {
		a := &sig.Args[i]
		if !a.In || a.ArraySize {
			continue
		}
		if a.Name == "" {
			names = append(names, "NULL")
		} else {
			names = append(names, codegen.Quote(a.Name))
		}
	}
	if len(names) == 0 {
		p.Line("static const char *bndKwdList[] = {NULL};")
		return
	}
	p.Line("static const char *bndKwdList[] = {%s};", strings.Join(names, ", "))
}

func (e *Emitter) parseCall(s *site, k Kind, o *ir.Overload, plan *marshal.MarshalPlan) string {
	format := plan.InFormat()
	extra := plan.InExtra()
	if k.hasReceiver() && k != KindSlot {
		self := "B"
		if o.Access == ir.Protected {
			self = "p"
		}
		format = self + format
		extra = append([]string{"&" + codegen.SelfVar, codegen.TypeObject(e.spec, o.Scope), "&" + codegen.CppVar}, extra...)
	}
	var head string
	switch s.form {
	case parseKwdArgs:
		head = "bndParseKwdArgs(&bndParseErr, bndArgs, bndKwds, bndKwdList, NULL, "
	case parseOne:
		head = "bndParsePair(&bndParseErr, bndArg, NULL, "
	case parseTwo:
		head = "bndParsePair(&bndParseErr, bndArg0, bndArg1, "
	default:
		head = "bndParseArgs(&bndParseErr, bndArgs, "
	}
	call := head + codegen.Quote(format)
	if len(extra) > 0 {
		call += ", " + strings.Join(extra, ", ")
	}
	return call + ")"
}
