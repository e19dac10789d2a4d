package assemble

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/roach88/bindgen/internal/codegen"
	"github.com/roach88/bindgen/internal/ir"
)

// SymbolTable is the exported description of a module read by the runtime
// loader: the descriptor fields plus every table.
type SymbolTable struct {
	Module     string         `cbor:"module"`
	FullName   string         `cbor:"full_name"`
	ABI        string         `cbor:"abi"`
	Generator  string         `cbor:"generator"`
	Header     string         `cbor:"header"`
	NextKey    int            `cbor:"next_key"`
	Qualifiers []ir.Qualifier `cbor:"qualifiers,omitempty"`
	License    *ir.License    `cbor:"license,omitempty"`
	Tables     *Tables        `cbor:"tables"`
}

// Encoded with core deterministic encoding so the bytes are reproducible.
var symtabEncMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("assemble: failed to create CBOR enc mode: %v", err))
	}
	symtabEncMode = em
}

// SymbolTable encodes the module's symbol table.
func (a *Assembler) SymbolTable() ([]byte, error) {
	t, err := a.Tables()
	if err != nil {
		return nil, err
	}
	m := a.spec.Main()
	st := SymbolTable{
		Module:     m.Name,
		FullName:   m.FullName,
		ABI:        ir.RuntimeABI,
		Generator:  ir.GeneratorVersion,
		Header:     codegen.APIHeader(m.Name),
		NextKey:    m.NextKey,
		Qualifiers: m.Qualifiers,
		License:    m.License,
		Tables:     t,
	}
	return symtabEncMode.Marshal(&st)
}

// DecodeSymbolTable decodes a symbol table written by SymbolTable.
func DecodeSymbolTable(data []byte) (*SymbolTable, error) {
	var st SymbolTable
	if err := cbor.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("assemble: unmarshal symbol table: %w", err)
	}
	return &st, nil
}
