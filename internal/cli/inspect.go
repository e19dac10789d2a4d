package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/compiler"
	"github.com/roach88/bindgen/internal/ir"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	ConfigPath string
	Class      string // only report this class
}

// InspectReport is what the resolve pass computed for a module.
type InspectReport struct {
	Module   string        `json:"module"`
	NextKey  int           `json:"next_key"`
	Handlers []HandlerInfo `json:"handlers"`
	Classes  []ClassInfo   `json:"classes"`
}

// HandlerInfo describes one shared virtual handler.
type HandlerInfo struct {
	Index     int      `json:"index"`
	Function  string   `json:"function"`
	Signature string   `json:"signature"`
	Overloads []string `json:"overloads"`
}

// ClassInfo describes the resolved view of one class.
type ClassInfo struct {
	Name     string        `json:"name"`
	MRO      []string      `json:"mro"`
	Shadow   string        `json:"shadow,omitempty"`
	Members  []MemberInfo  `json:"members"`
	Virtuals []VirtualInfo `json:"virtuals,omitempty"`
}

// MemberInfo is one visible member and where its overloads come from.
type MemberInfo struct {
	Name      string   `json:"name"`
	Overloads []string `json:"overloads"`
}

// VirtualInfo is one virtual the shadow class re-dispatches.
type VirtualInfo struct {
	Overload string `json:"overload"`
	Handler  int    `json:"handler"`
	CacheIdx int    `json:"cache_idx"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <spec>",
		Short: "Show the resolved model of a spec",
		Long: `Validate and resolve a spec, then print what the generator will work from:
the shared virtual handlers with the overloads each one serves, and for every
class its method resolution order, visible members, re-dispatched virtuals
and whether it needs a shadow class.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "project file (default: bindgen.yaml or bindgen.toml next to the spec)")
	cmd.Flags().StringVar(&opts.Class, "class", "", "only show this class (scoped name)")

	return cmd
}

func runInspect(opts *InspectOptions, specPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := LoadConfig(opts.ConfigPath, specPath)
	if err != nil {
		return loadFailure(formatter, err)
	}
	spec, err := LoadSpec(specPath)
	if err != nil {
		return loadFailure(formatter, err)
	}

	if result := ValidateSpec(spec, cfg); !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	if err := compiler.Resolve(spec, ir.NewKeyAllocator(), opts.Logger(cmd.ErrOrStderr())); err != nil {
		_ = formatter.Error("RESOLVE_FAILED", err.Error(), nil)
		return WrapExitError(ExitFailure, "resolve failed", err)
	}

	report := Inspect(spec)
	if opts.Class != "" {
		var kept []ClassInfo
		for _, c := range report.Classes {
			if c.Name == opts.Class {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("class %s not found in module %s", opts.Class, report.Module), nil)
			return NewExitError(ExitCommandError, "class not found")
		}
		report.Classes = kept
	}

	return formatter.Success(report, inspectLines(report)...)
}

// Inspect summarizes a resolved spec. Only the classes and handlers of the
// generated module are reported.
func Inspect(spec *ir.Spec) InspectReport {
	mod := spec.Main()
	report := InspectReport{
		Module:   mod.Name,
		NextKey:  mod.NextKey,
		Handlers: []HandlerInfo{},
		Classes:  []ClassInfo{},
	}
	sc := codegen.Scope{}

	for i := range spec.VirtualHandlers {
		h := &spec.VirtualHandlers[i]
		if h.Module != spec.Module {
			continue
		}
		info := HandlerInfo{
			Index:     h.Index,
			Function:  codegen.HandlerFunc(mod.Name, h.Index),
			Signature: fmt.Sprintf("%s (%s)", codegen.TypeString(spec, &h.NativeSig.Result, sc), codegen.ArgTypes(spec, &h.NativeSig, sc)),
		}
		for _, oid := range h.Overloads {
			info.Overloads = append(info.Overloads, overloadName(spec, oid))
		}
		report.Handlers = append(report.Handlers, info)
	}

	for i := range spec.Classes {
		c := &spec.Classes[i]
		if c.Module != spec.Module {
			continue
		}
		info := ClassInfo{Name: c.Name.String(), Members: []MemberInfo{}}
		for _, id := range c.MRO {
			info.MRO = append(info.MRO, spec.Class(id).Name.String())
		}
		if c.NeedsShadow {
			info.Shadow = codegen.ShadowClass(spec, ir.ClassID(i))
		}
		for _, vm := range c.Visible {
			m := info.member(spec.Members[vm.Member].Name)
			for _, oid := range vm.Overloads {
				m.Overloads = append(m.Overloads, overloadName(spec, oid))
			}
		}
		for _, v := range c.Virtuals {
			info.Virtuals = append(info.Virtuals, VirtualInfo{
				Overload: overloadName(spec, v.Overload),
				Handler:  spec.Handler(v.Handler).Index,
				CacheIdx: v.CacheIdx,
			})
		}
		report.Classes = append(report.Classes, info)
	}
	return report
}

// member returns the entry for name, adding it on first use.
func (c *ClassInfo) member(name string) *MemberInfo {
	for i := range c.Members {
		if c.Members[i].Name == name {
			return &c.Members[i]
		}
	}
	c.Members = append(c.Members, MemberInfo{Name: name})
	return &c.Members[len(c.Members)-1]
}

// overloadName renders an overload as Scope::name(args).
func overloadName(spec *ir.Spec, id ir.OverloadID) string {
	o := &spec.Overloads[id]
	name := o.NativeName
	if o.Scope != ir.NoClass {
		name = spec.Class(o.Scope).Name.String() + "::" + name
	}
	s := fmt.Sprintf("%s(%s)", name, codegen.ArgTypes(spec, o.Native(), codegen.Scope{}))
	if o.Flags.Const {
		s += " const"
	}
	return s
}

func inspectLines(r InspectReport) []string {
	lines := []string{fmt.Sprintf("Module %s (next key %d)", r.Module, r.NextKey)}

	lines = append(lines, "", fmt.Sprintf("Virtual handlers: %d", len(r.Handlers)))
	for _, h := range r.Handlers {
		lines = append(lines, fmt.Sprintf("  [%d] %s: %s", h.Index, h.Function, h.Signature))
		for _, o := range h.Overloads {
			lines = append(lines, "        "+o)
		}
	}

	for _, c := range r.Classes {
		lines = append(lines, "", "Class "+c.Name)
		lines = append(lines, fmt.Sprintf("  mro: %v", c.MRO))
		if c.Shadow != "" {
			lines = append(lines, "  shadow: "+c.Shadow)
		}
		for _, m := range c.Members {
			lines = append(lines, fmt.Sprintf("  %s:", m.Name))
			for _, o := range m.Overloads {
				lines = append(lines, "    "+o)
			}
		}
		for _, v := range c.Virtuals {
			lines = append(lines, fmt.Sprintf("  virtual %s -> handler %d (cache %d)", v.Overload, v.Handler, v.CacheIdx))
		}
	}
	return lines
}
