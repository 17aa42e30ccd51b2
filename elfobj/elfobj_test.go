package elfobj

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinylang/linkasm/asmfmt"
	"github.com/tinylang/linkasm/section"
)

func TestWriteEmptyAssemblyProducesValidELF(t *testing.T) {
	a := asmfmt.New()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, a, Target{Arch: AMD64}, nil))

	f, err := elf.NewFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, elf.ET_REL, f.Type)
	assert.Equal(t, elf.EM_X86_64, f.Machine)
	assert.Equal(t, elf.ELFCLASS64, f.Class)
	assert.Equal(t, elf.ELFDATA2LSB, f.Data)
	assert.Len(t, f.Sections, shCount)
}

func TestWriteUndefinedSymbolIsSHNUndef(t *testing.T) {
	a := asmfmt.New()
	external := a.Symbols.Intern("printf")
	code := a.Buffer(section.Code)
	code.Write([]byte{0xe8, 0, 0, 0, 0})
	a.AddReloc(external, section.Code, 5, asmfmt.REL32LE)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, a, Target{Arch: AMD64}, nil))

	f, err := elf.NewFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	syms, err := f.Symbols()
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "printf", syms[0].Name)
	assert.Equal(t, elf.SHN_UNDEF, syms[0].Section)
	assert.Equal(t, elf.STB_GLOBAL, elf.ST_BIND(syms[0].Info))

	relaText, err := f.Section(".rela.text").Data()
	require.NoError(t, err)
	assert.Len(t, relaText, 24) // one elf.Rela64 entry
}

func TestWriteCrossSectionRelocationTargetsPatchedSection(t *testing.T) {
	a := asmfmt.New()
	msg := a.Symbols.Intern("msg")
	a.Buffer(section.Static).WriteString("hi\x00")
	a.Define(msg, section.Static, 0, asmfmt.Local)

	code := a.Buffer(section.Code)
	code.Write([]byte{0x48, 0x8d, 0x3d, 0, 0, 0, 0}) // lea rdi, [rip+disp32]
	a.AddReloc(msg, section.Code, 7, asmfmt.REL32LE)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, a, Target{Arch: AMD64}, nil))

	f, err := elf.NewFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	relaText, err := f.Section(".rela.text").Data()
	require.NoError(t, err)
	assert.Len(t, relaText, 24)

	relaData, err := f.Section(".rela.data").Data()
	require.NoError(t, err)
	assert.Empty(t, relaData)
}

func TestWriteRefusesNonAMD64Target(t *testing.T) {
	a := asmfmt.New()
	var buf bytes.Buffer
	err := Write(&buf, a, Target{Arch: ARM64}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedRelocationTarget)
}

func TestWriteExecutableNotImplemented(t *testing.T) {
	a := asmfmt.New()
	var buf bytes.Buffer
	err := WriteExecutable(&buf, a, Target{Arch: AMD64}, nil)
	assert.ErrorIs(t, err, ErrExecutableNotImplemented)
}
