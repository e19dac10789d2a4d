// Package assemble turns the emitted fragments of a module into its
// artifacts: one translation unit per class (or one for the whole module),
// the module unit holding the static tables and the module descriptor, the
// API header shared by the units, and the exported symbol table read by the
// runtime loader.
//
// All tables follow declaration order, so assembling the same resolved spec
// twice produces identical bytes.
package assemble

import (
	"errors"
	"log/slog"

	"github.com/roach88/bindgen/internal/callgen"
	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/config"
	"github.com/roach88/bindgen/internal/ir"
	"github.com/roach88/bindgen/internal/virtgen"
)

// ErrNoInstanceForm is returned for a variable whose type the runtime
// cannot expose as a typed instance.
var ErrNoInstanceForm = errors.New("no typed instance form")

// ArtifactError reports a failure while assembling one artifact.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *ArtifactError) Unwrap() error { return e.Err }

// ArtifactKind classifies generated files.
type ArtifactKind string

const (
	KindHeader ArtifactKind = "header"
	KindModule ArtifactKind = "module"
	KindClass  ArtifactKind = "class"
	KindSymtab ArtifactKind = "symtab"
)

// Artifact is one generated file.
type Artifact struct {
	Path    string       `json:"path"`
	Kind    ArtifactKind `json:"kind"`
	Content []byte       `json:"-"`
}

// Assembler builds the artifacts of the module being generated. The spec
// must have been resolved.
type Assembler struct {
	spec   *ir.Spec
	cfg    config.Config
	log    *slog.Logger
	calls  *callgen.Emitter
	virts  *virtgen.Emitter
	tables *Tables
}

// New creates an assembler. A nil logger uses slog.Default().
func New(spec *ir.Spec, cfg config.Config, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{
		spec:  spec,
		cfg:   cfg,
		log:   log,
		calls: callgen.New(spec, cfg, log),
		virts: virtgen.New(spec, cfg, log),
	}
}

// Tables returns the module tables, building them on first use.
func (a *Assembler) Tables() (*Tables, error) {
	if a.tables != nil {
		return a.tables, nil
	}
	t, err := BuildTables(a.spec, a.calls)
	if err != nil {
		return nil, err
	}
	a.tables = t
	return t, nil
}

func (a *Assembler) ext() string {
	return codegen.SourceExt(a.cfg.IsC())
}

func (a *Assembler) moduleName() string {
	return a.spec.Main().Name
}

// Assemble returns every artifact of the module: the header, one unit per
// local class unless the configuration asks for a single file, the module
// unit and the symbol table.
func (a *Assembler) Assemble() ([]Artifact, error) {
	if _, err := a.Tables(); err != nil {
		return nil, err
	}
	name := a.moduleName()
	var out []Artifact

	header, err := a.Header()
	if err != nil {
		return nil, &ArtifactError{Path: codegen.APIHeader(name), Err: err}
	}
	out = append(out, Artifact{Path: codegen.APIHeader(name), Kind: KindHeader, Content: []byte(header)})

	if !a.cfg.SingleFile {
		for _, id := range a.spec.LocalClasses() {
			text, err := a.ClassUnit(id)
			path := codegen.ClassUnit(a.spec, name, id, a.ext())
			if err != nil {
				return nil, &ArtifactError{Path: path, Err: err}
			}
			out = append(out, Artifact{Path: path, Kind: KindClass, Content: []byte(text)})
			a.log.Debug("class unit assembled", "class", a.spec.Class(id).Name.String(), "path", path)
		}
	}

	path := codegen.ModuleUnit(name, a.ext())
	text, err := a.ModuleUnit()
	if err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}
	out = append(out, Artifact{Path: path, Kind: KindModule, Content: []byte(text)})

	symtab, err := a.SymbolTable()
	if err != nil {
		return nil, &ArtifactError{Path: codegen.SymbolTable(name), Err: err}
	}
	out = append(out, Artifact{Path: codegen.SymbolTable(name), Kind: KindSymtab, Content: symtab})
	return out, nil
}

// preamble writes the comment that opens every generated source file.
func preamble(p *codegen.Printer, what string) {
	p.Line("/*")
	p.Line(" * %s", what)
	p.Line(" *")
	p.Line(" * Generated by bindgen %s. Do not edit.", ir.GeneratorVersion)
	p.Line(" */")
	p.Blank()
}

// MappedTypeDef is the type definition record of a mapped type.
func MappedTypeDef(spec *ir.Spec, id ir.MappedTypeID) string {
	return "bndMappedTypeDef_" + spec.MappedType(id).Name.Mangled()
}

// EnumTypeDef is the type definition record of a named enum.
func EnumTypeDef(spec *ir.Spec, id ir.EnumID) string {
	return "bndEnumTypeDef_" + spec.Enum(id).Name.Mangled()
}
