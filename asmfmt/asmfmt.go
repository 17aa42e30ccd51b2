// Package asmfmt is the builder-side view of a freshly produced
// assembly artifact: three raw byte sections plus unresolved symbolic
// definitions and relocation references. It is read-only to package
// link and package elfobj: both consume an *Assembly by reference and
// never mutate it.
package asmfmt

import (
	"bytes"

	"github.com/tinylang/linkasm/section"
	"github.com/tinylang/linkasm/symtab"
)

// Binding distinguishes a definition visible only within its own
// Assembly (Local) from one an external linker may reference (Global).
type Binding int

const (
	Local Binding = iota
	Global
)

func (b Binding) String() string {
	if b == Global {
		return "global"
	}
	return "local"
}

// Def is a symbolic name resolved at link/emission time to a
// section-relative byte offset. Invariant: within one Assembly, at
// most one Def exists per Symbol; Define enforces this at the
// builder boundary rather than leaving it for the linker to discover.
type Def struct {
	Sym     symtab.Symbol
	Section section.Section
	Offset  int
	Binding Binding
}

// RelocKind selects the width, byte order, and valid displacement
// range used to encode a Reloc's patched value. All kinds are
// PC-relative: the encoded value is symbol_address - relocation_address.
type RelocKind int

const (
	REL8 RelocKind = iota
	REL16LE
	REL32LE
	REL64LE
	REL16BE
	REL32BE
	REL64BE
)

// Width returns the number of bytes the field to patch occupies.
func (k RelocKind) Width() int {
	switch k {
	case REL8:
		return 1
	case REL16LE, REL16BE:
		return 2
	case REL32LE, REL32BE:
		return 4
	case REL64LE, REL64BE:
		return 8
	default:
		panic("asmfmt: invalid RelocKind")
	}
}

// BigEndian reports whether k encodes in big-endian byte order.
func (k RelocKind) BigEndian() bool {
	switch k {
	case REL16BE, REL32BE, REL64BE:
		return true
	default:
		return false
	}
}

func (k RelocKind) String() string {
	switch k {
	case REL8:
		return "REL8"
	case REL16LE:
		return "REL16_LE"
	case REL32LE:
		return "REL32_LE"
	case REL64LE:
		return "REL64_LE"
	case REL16BE:
		return "REL16_BE"
	case REL32BE:
		return "REL32_BE"
	case REL64BE:
		return "REL64_BE"
	default:
		return "invalid"
	}
}

// Reloc is a deferred PC-relative patch to an instruction-embedded
// displacement field. Section and Offset locate the END of the field
// to patch, not its start; the field itself occupies the Width()
// bytes immediately before that offset. This convention matches
// instruction encodings where the displacement is the last operand:
// the decoder's program counter after reading the instruction equals
// the field's end, which is exactly this relocation's site address.
type Reloc struct {
	Sym     symtab.Symbol
	Section section.Section
	Offset  int
	Kind    RelocKind
}

// Assembly owns three growable byte buffers (code, read-only data,
// writable static data), the symbol-name interning table, an ordered
// list of definitions, and an ordered list of relocations. It is
// produced by an upstream front end (instruction encoding, register
// allocation, out of scope here) and is read-only to every consumer
// in this module.
type Assembly struct {
	Code, Data, Stat bytes.Buffer

	Symbols *symtab.Table
	Defs    []Def
	Relocs  []Reloc

	defined map[symtab.Symbol]bool
}

// New returns an empty Assembly ready to be filled in by a front end.
func New() *Assembly {
	return &Assembly{
		Symbols: symtab.New(),
		defined: make(map[symtab.Symbol]bool),
	}
}

// Buffer returns the growable byte buffer backing sec.
func (a *Assembly) Buffer(sec section.Section) *bytes.Buffer {
	switch sec {
	case section.Code:
		return &a.Code
	case section.Data:
		return &a.Data
	case section.Static:
		return &a.Stat
	default:
		panic("asmfmt: unsupported section")
	}
}

// Define records a new definition. It panics if sym already has a
// definition in this Assembly; the one-definition-per-symbol
// invariant is a builder-time contract, not something the linker is
// expected to re-validate.
func (a *Assembly) Define(sym symtab.Symbol, sec section.Section, offset int, binding Binding) {
	if a.defined[sym] {
		panic("asmfmt: symbol already defined in this Assembly")
	}
	a.defined[sym] = true
	a.Defs = append(a.Defs, Def{Sym: sym, Section: sec, Offset: offset, Binding: binding})
}

// AddReloc records a deferred PC-relative patch.
func (a *Assembly) AddReloc(sym symtab.Symbol, sec section.Section, offset int, kind RelocKind) {
	a.Relocs = append(a.Relocs, Reloc{Sym: sym, Section: sec, Offset: offset, Kind: kind})
}
