// Package codegen holds the shared text primitives of the emitters: an
// indenting printer, the naming scheme for generated symbols, and native
// type rendering under an explicit rendering Scope.
package codegen

import (
	"fmt"
	"strings"

	"github.com/roach88/bindgen/internal/ir"
)

// Printer accumulates generated source text.
type Printer struct {
	buf       strings.Builder
	indent    int
	indentStr string
	lines     bool // emit #line before handwritten blocks
}

// NewPrinter creates a printer. When lineDirectives is set, handwritten
// code blocks are preceded by a #line directive naming their origin.
func NewPrinter(lineDirectives bool) *Printer {
	return &Printer{indentStr: "    ", lines: lineDirectives}
}

// Line writes one indented, formatted line.
func (p *Printer) Line(format string, args ...any) {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString(p.indentStr)
	}
	if len(args) == 0 {
		p.buf.WriteString(format)
	} else {
		fmt.Fprintf(&p.buf, format, args...)
	}
	p.buf.WriteByte('\n')
}

// Blank writes an empty line.
func (p *Printer) Blank() {
	p.buf.WriteByte('\n')
}

// Raw writes s verbatim.
func (p *Printer) Raw(s string) {
	p.buf.WriteString(s)
}

// Open writes a line and indents what follows.
func (p *Printer) Open(format string, args ...any) {
	p.Line(format, args...)
	p.indent++
}

// Close dedents and writes a closing line.
func (p *Printer) Close(format string, args ...any) {
	if p.indent > 0 {
		p.indent--
	}
	p.Line(format, args...)
}

// Indent and Dedent adjust the indent level without writing.
func (p *Printer) Indent() { p.indent++ }

func (p *Printer) Dedent() {
	if p.indent > 0 {
		p.indent--
	}
}

// Code writes a handwritten block. Its lines are re-indented at the current
// level; blank lines stay blank.
func (p *Printer) Code(block *ir.CodeBlock) {
	if block.Empty() {
		return
	}
	if p.lines && block.File != "" {
		p.Raw(fmt.Sprintf("#line %d %q\n", block.Line, block.File))
	}
	text := strings.TrimRight(block.Text, "\n")
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			p.Blank()
			continue
		}
		p.Line("%s", l)
	}
}

// String returns the accumulated text.
func (p *Printer) String() string {
	return p.buf.String()
}

// Len returns the number of bytes written so far.
func (p *Printer) Len() int {
	return p.buf.Len()
}
