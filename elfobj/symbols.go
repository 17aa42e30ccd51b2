package elfobj

import (
	"debug/elf"

	"github.com/tinylang/linkasm/asmfmt"
	"github.com/tinylang/linkasm/section"
	"github.com/tinylang/linkasm/symtab"
)

// elfSymbol is the union of a symbol's Def (if any) with whether it
// was also referenced by a Reloc, ready to become one .symtab entry.
type elfSymbol struct {
	name    string
	defined bool
	section section.Section
	offset  int
	global  bool
}

// collectSymbols merges Defs and Relocs into the ordered, deduplicated
// symbol list spec §4.4 describes: "the union of symbols referenced by
// any Def or Reloc, merged so each symbol appears once, in first-seen
// order (defs iterated before relocs)". index maps each symtab.Symbol
// to its position in entries (0-based; the actual ELF symbol index is
// position+1, since entry 0 of .symtab is the reserved null symbol).
func collectSymbols(a *asmfmt.Assembly) (entries []elfSymbol, index map[symtab.Symbol]int) {
	index = make(map[symtab.Symbol]int)

	for _, def := range a.Defs {
		if _, ok := index[def.Sym]; ok {
			continue
		}
		index[def.Sym] = len(entries)
		entries = append(entries, elfSymbol{
			name:    a.Symbols.Name(def.Sym),
			defined: true,
			section: def.Section,
			offset:  def.Offset,
			global:  def.Binding == asmfmt.Global,
		})
	}

	for _, r := range a.Relocs {
		if _, ok := index[r.Sym]; ok {
			continue
		}
		index[r.Sym] = len(entries)
		// A symbol referenced only in relocations has no local
		// definition, so per spec it must be treated as external and
		// therefore global.
		entries = append(entries, elfSymbol{name: a.Symbols.Name(r.Sym), defined: false, global: true})
	}

	return entries, index
}

// buildSymtab returns the packed .symtab payload (null entry plus one
// per collected symbol), the .strtab payload, and the count of local
// symbols including the null entry, the correct sh_info value for
// .symtab, per DESIGN.md Open Question 5 (the original C++ hard-codes
// this to 1).
func buildSymtab(entries []elfSymbol) (symtabBytes, strtabBytes []byte, localCount uint32, err error) {
	strtab := newStringTable()
	localCount = 1 // the null symbol at index 0 is conventionally local

	buf, err := newSectionBuffer()
	if err != nil {
		return nil, nil, 0, err
	}

	// Null symbol, entry 0.
	if err := buf.pack(&elf.Sym64{}); err != nil {
		return nil, nil, 0, err
	}

	for _, e := range entries {
		nameOff := strtab.add(e.name)

		shndx := uint16(elf.SHN_UNDEF)
		value := uint64(0)
		if e.defined {
			shndx = e.section.ELFIndex()
			value = uint64(e.offset)
		}

		binding := elf.STB_LOCAL
		if e.global {
			binding = elf.STB_GLOBAL
		} else {
			localCount++
		}

		sym := &elf.Sym64{
			Name:  nameOff,
			Info:  uint8(binding)<<4 | uint8(elf.STT_NOTYPE),
			Other: uint8(elf.STV_DEFAULT),
			Shndx: shndx,
			Value: value,
			Size:  0,
		}
		if err := buf.pack(sym); err != nil {
			return nil, nil, 0, err
		}
	}

	return buf.bytes(), strtab.bytes(), localCount, nil
}
