package elfobj

import (
	"debug/elf"
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"

	"github.com/tinylang/linkasm/asmfmt"
	"github.com/tinylang/linkasm/diag"
)

// Fixed section header table layout, per spec §4.4/§4.5. Index 0 is
// the mandatory reserved null section.
const (
	shNull = iota
	shShstrtab
	shText
	shRodata
	shData
	shStrtab
	shSymtab
	shRelaText
	shRelaRodata
	shRelaData

	shCount // 10
)

const (
	ehdrSize   = 64               // sizeof(elf.Header64)
	shdrSize   = 64               // sizeof(elf.Section64)
	shtabSize  = shCount * shdrSize
	shdrOffset = ehdrSize
	dataStart  = shdrOffset + shtabSize // 704: first byte after the section header table
)

// Write serializes a into a byte-exact ELF64 LSB relocatable object
// for target, following spec §4.4/§4.5's fixed ten-section layout:
// null, .shstrtab, .text, .rodata, .data, .strtab, .symtab, .rela.text,
// .rela.rodata, .rela.data: the ELF header and section header table
// first, .shstrtab immediately after at offset 704, then every
// remaining section's payload, each individually padded to a 64-byte
// boundary. AMD64 is the only supported target; see
// ErrUnsupportedRelocationTarget. logger may be nil, in which case
// diagnostics are disabled, matching link.Link.
func Write(w io.Writer, a *asmfmt.Assembly, target Target, logger *diag.Logger) error {
	if logger == nil {
		logger = diag.Default()
	}
	if target.Arch != AMD64 {
		return ErrUnsupportedRelocationTarget
	}
	machine, err := target.Arch.elfMachine()
	if err != nil {
		return err
	}

	entries, symIndex := collectSymbols(a)
	symtabBytes, strtabBytes, localCount, err := buildSymtab(entries)
	if err != nil {
		return err
	}

	relas, err := buildRelaTables(a, symIndex)
	if err != nil {
		return err
	}
	relaTextBytes, err := packRelaTable(relas.code)
	if err != nil {
		return err
	}
	relaRodataBytes, err := packRelaTable(relas.data)
	if err != nil {
		return err
	}
	relaDataBytes, err := packRelaTable(relas.stat)
	if err != nil {
		return err
	}

	shstrtab := newStringTable()
	nameShstrtab := shstrtab.add(".shstrtab")
	nameText := shstrtab.add(".text")
	nameRodata := shstrtab.add(".rodata")
	nameData := shstrtab.add(".data")
	nameStrtab := shstrtab.add(".strtab")
	nameSymtab := shstrtab.add(".symtab")
	nameRelaText := shstrtab.add(".rela.text")
	nameRelaRodata := shstrtab.add(".rela.rodata")
	nameRelaData := shstrtab.add(".rela.data")
	shstrtabBytes := shstrtab.bytes()

	// Lay out every section's payload back to back starting at
	// dataStart, each followed by zero padding up to the next 64-byte
	// boundary, and record the (offset, size) pairs needed for the
	// section headers.
	type region struct {
		offset uint64
		size   uint64
	}
	offsets := make(map[int]region, shCount)
	cursor := uint64(dataStart)

	place := func(sh int, payload []byte) {
		offsets[sh] = region{offset: cursor, size: uint64(len(payload))}
		cursor += uint64(len(payload))
		cursor += uint64(padTo64(len(payload)))
	}

	place(shShstrtab, shstrtabBytes)
	place(shText, a.Code.Bytes())
	place(shRodata, a.Data.Bytes())
	place(shData, a.Stat.Bytes())
	place(shStrtab, strtabBytes)
	place(shSymtab, symtabBytes)
	place(shRelaText, relaTextBytes)
	place(shRelaRodata, relaRodataBytes)
	place(shRelaData, relaDataBytes)

	hdr := &elf.Header64{
		Ident:     elfIdent(),
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     0,
		Phoff:     0,
		Shoff:     shdrOffset,
		Flags:     0,
		Ehsize:    ehdrSize,
		Phentsize: 0,
		Phnum:     0,
		Shentsize: shdrSize,
		Shnum:     shCount,
		Shstrndx:  shShstrtab,
	}

	sections := make([]*elf.Section64, shCount)
	sections[shNull] = &elf.Section64{}

	sections[shShstrtab] = &elf.Section64{
		Name: nameShstrtab, Type: uint32(elf.SHT_STRTAB), Flags: uint64(elf.SHF_STRINGS | elf.SHF_MERGE),
		Addr: 0, Off: offsets[shShstrtab].offset, Size: offsets[shShstrtab].size,
		Link: 0, Info: 0, Addralign: 0, Entsize: 0,
	}
	sections[shText] = &elf.Section64{
		Name: nameText, Type: uint32(elf.SHT_PROGBITS), Flags: uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
		Addr: 0, Off: offsets[shText].offset, Size: offsets[shText].size,
		Link: 0, Info: 0, Addralign: 16, Entsize: 0,
	}
	sections[shRodata] = &elf.Section64{
		Name: nameRodata, Type: uint32(elf.SHT_PROGBITS), Flags: uint64(elf.SHF_ALLOC),
		Addr: 0, Off: offsets[shRodata].offset, Size: offsets[shRodata].size,
		Link: 0, Info: 0, Addralign: 16, Entsize: 0,
	}
	sections[shData] = &elf.Section64{
		Name: nameData, Type: uint32(elf.SHT_PROGBITS), Flags: uint64(elf.SHF_ALLOC | elf.SHF_WRITE),
		Addr: 0, Off: offsets[shData].offset, Size: offsets[shData].size,
		Link: 0, Info: 0, Addralign: 16, Entsize: 0,
	}
	sections[shStrtab] = &elf.Section64{
		Name: nameStrtab, Type: uint32(elf.SHT_STRTAB), Flags: uint64(elf.SHF_STRINGS | elf.SHF_MERGE),
		Addr: 0, Off: offsets[shStrtab].offset, Size: offsets[shStrtab].size,
		Link: 0, Info: 0, Addralign: 0, Entsize: 0,
	}
	sections[shSymtab] = &elf.Section64{
		// SHF_ALLOC deliberately dropped (unlike the table's
		// ALLOC|MERGE): a relocatable object's symbol table isn't
		// loaded into the final image. See DESIGN.md Open Question 4.
		Name: nameSymtab, Type: uint32(elf.SHT_SYMTAB), Flags: uint64(elf.SHF_MERGE),
		Addr: 0, Off: offsets[shSymtab].offset, Size: offsets[shSymtab].size,
		Link: shStrtab, Info: localCount, Addralign: 0, Entsize: 24,
	}
	sections[shRelaText] = &elf.Section64{
		Name: nameRelaText, Type: uint32(elf.SHT_RELA), Flags: uint64(elf.SHF_MERGE | elf.SHF_INFO_LINK),
		Addr: 0, Off: offsets[shRelaText].offset, Size: offsets[shRelaText].size,
		Link: shSymtab, Info: shText, Addralign: 0, Entsize: 24,
	}
	sections[shRelaRodata] = &elf.Section64{
		Name: nameRelaRodata, Type: uint32(elf.SHT_RELA), Flags: uint64(elf.SHF_MERGE | elf.SHF_INFO_LINK),
		Addr: 0, Off: offsets[shRelaRodata].offset, Size: offsets[shRelaRodata].size,
		Link: shSymtab, Info: shRodata, Addralign: 0, Entsize: 24,
	}
	sections[shRelaData] = &elf.Section64{
		Name: nameRelaData, Type: uint32(elf.SHT_RELA), Flags: uint64(elf.SHF_MERGE | elf.SHF_INFO_LINK),
		Addr: 0, Off: offsets[shRelaData].offset, Size: offsets[shRelaData].size,
		Link: shSymtab, Info: shData, Addralign: 0, Entsize: 24,
	}

	opts := &struc.Options{Order: binary.LittleEndian}

	if err := struc.PackWithOptions(w, hdr, opts); err != nil {
		return err
	}
	for _, sh := range sections {
		if err := struc.PackWithOptions(w, sh, opts); err != nil {
			return err
		}
	}

	payloads := [][]byte{
		shstrtabBytes, a.Code.Bytes(), a.Data.Bytes(), a.Stat.Bytes(),
		strtabBytes, symtabBytes, relaTextBytes, relaRodataBytes, relaDataBytes,
	}
	var zero [64]byte
	for _, p := range payloads {
		if _, err := w.Write(p); err != nil {
			return err
		}
		if n := padTo64(len(p)); n > 0 {
			if _, err := w.Write(zero[:n]); err != nil {
				return err
			}
		}
	}

	logger.Debug("wrote elf relocatable object",
		"arch", target.Arch.String(),
		"text_size", len(a.Code.Bytes()), "rodata_size", len(a.Data.Bytes()), "data_size", len(a.Stat.Bytes()),
		"symbols", len(entries), "relocs", len(a.Relocs))

	return nil
}

// elfIdent builds e_ident for a 64-bit, little-endian, System V ABI
// object, the only combination this writer produces.
func elfIdent() [elf.EI_NIDENT]byte {
	var ident [elf.EI_NIDENT]byte
	ident[elf.EI_MAG0] = '\x7f'
	ident[elf.EI_MAG1] = 'E'
	ident[elf.EI_MAG2] = 'L'
	ident[elf.EI_MAG3] = 'F'
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	ident[elf.EI_OSABI] = byte(elf.ELFOSABI_NONE)
	ident[elf.EI_ABIVERSION] = 0
	return ident
}

// WriteExecutable would emit a fully linked ELF executable rather than
// a relocatable object; out of scope for this module (spec §1
// Non-goals).
func WriteExecutable(w io.Writer, a *asmfmt.Assembly, target Target, logger *diag.Logger) error {
	return ErrExecutableNotImplemented
}
