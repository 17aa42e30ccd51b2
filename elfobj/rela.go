package elfobj

import (
	"debug/elf"
	"fmt"

	"github.com/tinylang/linkasm/asmfmt"
	"github.com/tinylang/linkasm/section"
	"github.com/tinylang/linkasm/symtab"
)

// relocType describes how one asmfmt.RelocKind is encoded as an
// R_X86_64_PC* entry: the ELF relocation type, and the field width in
// bytes (used both to locate r_offset, the start of the field, from
// the Reloc's end-of-field Offset, and, negated, as the addend). AMD64 only, per
// ErrUnsupportedRelocationTarget.
type relocType struct {
	rType elf.R_X86_64
	width int64
}

func amd64RelocType(kind asmfmt.RelocKind) (relocType, error) {
	switch kind {
	case asmfmt.REL8:
		return relocType{elf.R_X86_64_PC8, 1}, nil
	case asmfmt.REL16LE:
		return relocType{elf.R_X86_64_PC16, 2}, nil
	case asmfmt.REL32LE:
		return relocType{elf.R_X86_64_PC32, 4}, nil
	case asmfmt.REL64LE:
		return relocType{elf.R_X86_64_PC64, 8}, nil
	default:
		return relocType{}, fmt.Errorf("%w: %v", ErrUnsupportedRelocationKind, kind)
	}
}

// relaTables holds the three per-section .rela.* payloads, keyed by
// the section the relocation patches, not the section the referenced
// symbol lives in: a relocation patching .text that targets a symbol
// defined in .static still goes into .rela.text, not .rela.data.
type relaTables struct {
	code, data, stat []elf.Rela64
}

func buildRelaTables(a *asmfmt.Assembly, symIndex map[symtab.Symbol]int) (relaTables, error) {
	var tables relaTables

	for _, r := range a.Relocs {
		rt, err := amd64RelocType(r.Kind)
		if err != nil {
			return relaTables{}, err
		}

		idx, ok := symIndex[r.Sym]
		if !ok {
			return relaTables{}, fmt.Errorf("elfobj: relocation references unknown symbol %q", a.Symbols.Name(r.Sym))
		}
		// +1: ELF symbol index 0 is the reserved null entry, collected
		// symbols start at index 1.
		symELFIndex := uint64(idx + 1)

		entry := elf.Rela64{
			Off:    uint64(r.Offset) - uint64(rt.width),
			Info:   symELFIndex<<32 | uint64(rt.rType),
			Addend: -rt.width,
		}

		switch r.Section {
		case section.Code:
			tables.code = append(tables.code, entry)
		case section.Data:
			tables.data = append(tables.data, entry)
		case section.Static:
			tables.stat = append(tables.stat, entry)
		default:
			return relaTables{}, fmt.Errorf("elfobj: relocation in unsupported section %v", r.Section)
		}
	}

	return tables, nil
}

func packRelaTable(entries []elf.Rela64) ([]byte, error) {
	buf, err := newSectionBuffer()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if err := buf.pack(&entries[i]); err != nil {
			return nil, err
		}
	}
	return buf.bytes(), nil
}
