// Package virtgen emits reverse dispatch: the shadow subclass of every class
// with virtual or protected members, its catchers, and the shared handlers
// that call a host reimplementation and convert its result back.
//
// A catcher runs on the native side. It asks the runtime whether the host
// instance currently binds a reimplementation (caching the answer per
// instance) and either falls back to the native implementation or calls the
// handler for its signature. Handlers are shared by every virtual with the
// same native shape.
package virtgen

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/sigmatch"
)

// ErrCTarget is returned when reverse dispatch is requested for plain C.
var ErrCTarget = errors.New("virtual dispatch needs the C++ target")

// Emitter writes reverse dispatch code for one generation run.
type Emitter struct {
	spec  *ir.Spec
	cfg   config.Config
	log   *slog.Logger
	match *sigmatch.Matcher
}

// New creates an emitter. A nil logger uses slog.Default().
func New(spec *ir.Spec, cfg config.Config, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{spec: spec, cfg: cfg, log: log, match: sigmatch.New(spec)}
}

// inside renders types as seen from the shadow class; outside renders the
// stand-ins used everywhere else.
var (
	inside  = codegen.Scope{Protected: true}
	outside = codegen.Scope{}
)

// HandlerName is the symbol of a shared handler.
func (e *Emitter) HandlerName(id ir.HandlerID) string {
	h := e.spec.Handler(id)
	return codegen.HandlerFunc(e.spec.Modules[h.Module].Name, h.Index)
}

// ErrorHandlerFor selects the error handler passed by the catcher of an
// overload: the overload's own, else its class's, else the module default.
// It returns the null pointer literal when none applies.
func (e *Emitter) ErrorHandlerFor(id ir.OverloadID) (string, error) {
	o := e.spec.Overload(id)
	name := o.VirtErrorHandler
	if name == "" && o.Scope != ir.NoClass {
		name = e.spec.Class(o.Scope).VirtErrorHandler
	}
	if name == "" {
		name = e.spec.Main().DefaultErrorHandler
	}
	if name == "" {
		return codegen.Null(outside), nil
	}
	for i := range e.spec.Modules {
		m := &e.spec.Modules[i]
		for _, eh := range m.ErrorHandlers {
			if eh.Name == name {
				return codegen.ErrorHandlerFunc(m.Name, name), nil
			}
		}
	}
	return "", fmt.Errorf("%s: unknown virtual error handler %q", o.NativeName, name)
}

// EmitErrorHandlers writes the error handlers registered by the module
// being generated.
func (e *Emitter) EmitErrorHandlers(p *codegen.Printer) {
	m := e.spec.Main()
	for _, eh := range m.ErrorHandlers {
		p.Line("void %s(bndSimpleWrapper *bndPySelf, bndGILState_t bndGILState)", codegen.ErrorHandlerFunc(m.Name, eh.Name))
		p.Open("{")
		p.Code(eh.Code)
		p.Close("}")
		p.Blank()
	}
}

// hasDefaultInstance reports whether a default value of a class-like type
// can be constructed from outside the shadow class.
func (e *Emitter) hasDefaultInstance(a *ir.Arg) bool {
	switch a.Category {
	case ir.Mapped:
		return !e.spec.MappedType(a.Mapped).Flags.NoDefaultCtor
	case ir.TemplateType:
		return true
	case ir.ClassType:
		c := e.spec.Class(a.Class)
		if c.Flags.Abstract || c.Flags.Protected {
			return false
		}
		if len(c.Ctors) == 0 {
			return true
		}
		for i := range c.Ctors {
			ct := &c.Ctors[i]
			if ct.Access == ir.Public && requiredArgs(ct.Native()) == 0 {
				return true
			}
		}
	}
	return false
}

func requiredArgs(s *ir.Signature) int {
	n := 0
	for i := range s.Args {
		if !s.Args[i].HasDefault() {
			n++
		}
	}
	return n
}

// abortModel decides the failure model of a handler. forced is the reason
// when the propagating model was asked for but cannot be honoured.
func (e *Emitter) abortModel(h *ir.VirtualHandler) (abort bool, forced string) {
	if h.AbortOnException || e.cfg.AbortOnException {
		return true, ""
	}
	res := &h.NativeSig.Result
	if !res.Category.IsClassLike() || res.Derefs > 0 {
		return false, ""
	}
	if codegen.IsProtectedType(e.spec, res) {
		return true, "result type is protected"
	}
	if !e.hasDefaultInstance(res) {
		return true, "result type has no default constructor"
	}
	return false, ""
}
