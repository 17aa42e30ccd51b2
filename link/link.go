// Package link lays out a freshly produced asmfmt.Assembly into a
// single contiguous, page-aligned virtual mapping, resolves every
// definition to an absolute address, and patches every PC-relative
// relocation against those addresses. It is the Go port of
// original_source/arch.cpp's Assembly::linkInto / LinkedAssembly.
package link

import (
	"fmt"
	"unsafe"

	"github.com/tinylang/linkasm/asmfmt"
	"github.com/tinylang/linkasm/diag"
	"github.com/tinylang/linkasm/section"
	"github.com/tinylang/linkasm/symtab"
)

// Linked is an in-memory, page-protected image produced from an
// Assembly. Its three sections are aliased into one mmap'd region at
// page boundaries; Load re-tags each region's final protection and
// Close releases the mapping. A Linked must not be used after Close.
type Linked struct {
	pages []byte

	codeOff, dataOff, statOff      int
	CodeSize, DataSize, StaticSize int // bytes, each a multiple of PageSize

	symbols *symtab.Table
	defs    map[symtab.Symbol]uintptr

	loaded bool
	closed bool

	logger *diag.Logger
}

func (l *Linked) regionOffset(sec section.Section) int {
	switch sec {
	case section.Code:
		return l.codeOff
	case section.Data:
		return l.dataOff
	case section.Static:
		return l.statOff
	default:
		panic("link: unsupported section")
	}
}

func (l *Linked) regionSize(sec section.Section) int {
	switch sec {
	case section.Code:
		return l.CodeSize
	case section.Data:
		return l.DataSize
	case section.Static:
		return l.StaticSize
	default:
		panic("link: unsupported section")
	}
}

// Region returns the byte slice backing sec within the mapping,
// including its page-aligned trailing zero fill.
func (l *Linked) Region(sec section.Section) []byte {
	off := l.regionOffset(sec)
	return l.pages[off : off+l.regionSize(sec)]
}

// Code, Data, and Stat are convenience accessors equivalent to
// Region(section.Code) etc., named to match spec's linked.code /
// linked.data / linked.stat.
func (l *Linked) Code() []byte { return l.Region(section.Code) }
func (l *Linked) Data() []byte { return l.Region(section.Data) }
func (l *Linked) Stat() []byte { return l.Region(section.Static) }

// addrAt returns the absolute address of pages[idx]. A zero-length
// mapping (the empty-Assembly edge case) has no backing storage, so
// every address in it is reported as 0 rather than dereferencing an
// empty slice.
func addrAt(pages []byte, idx int) uintptr {
	if len(pages) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&pages[0])) + uintptr(idx)
}

// Addr returns the absolute address of offset bytes into sec.
func (l *Linked) Addr(sec section.Section, offset int) uintptr {
	return addrAt(l.pages, l.regionOffset(sec)+offset)
}

// DefAddr returns the resolved absolute address of sym, and whether it
// was defined in the linked Assembly at all.
func (l *Linked) DefAddr(sym symtab.Symbol) (uintptr, bool) {
	addr, ok := l.defs[sym]
	return addr, ok
}

// Symbols returns the symbol table borrowed from the source Assembly,
// letting a caller translate a Symbol back to its printable name.
func (l *Linked) Symbols() *symtab.Table { return l.symbols }

// Link performs spec §4.1's full layout/copy/resolve/patch algorithm:
// each section is rounded up to a page boundary, a single anonymous
// mapping is acquired for their sum, section bytes are copied in,
// every Def is resolved to an absolute address, and every Reloc is
// patched against those addresses. logger may be nil, in which case
// diagnostics are disabled.
func Link(a *asmfmt.Assembly, logger *diag.Logger) (*Linked, error) {
	if logger == nil {
		logger = diag.Default()
	}

	codeSz := ceilPage(a.Code.Len())
	dataSz := ceilPage(a.Data.Len())
	statSz := ceilPage(a.Stat.Len())
	total := codeSz + dataSz + statSz

	pages, err := mapAnon(total)
	if err != nil {
		return nil, err
	}

	l := &Linked{
		pages:      pages,
		codeOff:    0,
		dataOff:    codeSz,
		statOff:    codeSz + dataSz,
		CodeSize:   codeSz,
		DataSize:   dataSz,
		StaticSize: statSz,
		symbols:    a.Symbols,
		defs:       make(map[symtab.Symbol]uintptr, len(a.Defs)),
		logger:     logger,
	}

	copy(l.Region(section.Code), a.Code.Bytes())
	copy(l.Region(section.Data), a.Data.Bytes())
	copy(l.Region(section.Static), a.Stat.Bytes())

	for _, def := range a.Defs {
		l.defs[def.Sym] = l.Addr(def.Section, def.Offset)
	}

	for _, reloc := range a.Relocs {
		if err := l.applyReloc(reloc); err != nil {
			return nil, fmt.Errorf("link: symbol %q: %w", a.Symbols.Name(reloc.Sym), err)
		}
	}

	logger.Debug("linked assembly",
		"code_size", l.CodeSize, "data_size", l.DataSize, "static_size", l.StaticSize,
		"defs", len(l.defs), "relocs", len(a.Relocs))
	logger.Dump(l.Code())

	return l, nil
}

// Close releases the virtual memory mapping backing l. It is safe to
// call Close without ever having called Load.
func (l *Linked) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return unmap(l.pages)
}
