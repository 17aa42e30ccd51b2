package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinylang/linkasm/asmfmt"
	"github.com/tinylang/linkasm/section"
)

func TestLinkEmptyAssembly(t *testing.T) {
	a := asmfmt.New()

	l, err := Link(a, nil)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, 0, l.CodeSize)
	assert.Equal(t, 0, l.DataSize)
	assert.Equal(t, 0, l.StaticSize)
	assert.Equal(t, uintptr(0), l.Addr(section.Code, 0))
}

func TestLinkSingleLocalDef(t *testing.T) {
	a := asmfmt.New()
	entry := a.Symbols.Intern("entry")
	a.Buffer(section.Code).Write([]byte{0x90, 0x90, 0xc3})
	a.Define(entry, section.Code, 0, asmfmt.Local)

	l, err := Link(a, nil)
	require.NoError(t, err)
	defer l.Close()

	addr, ok := l.DefAddr(entry)
	require.True(t, ok)
	assert.Equal(t, l.Addr(section.Code, 0), addr)
	assert.Equal(t, PageSize, l.CodeSize)
}

func TestLinkIntraSectionPCRelative32(t *testing.T) {
	a := asmfmt.New()
	target := a.Symbols.Intern("target")

	code := a.Buffer(section.Code)
	code.Write([]byte{0xe8, 0, 0, 0, 0}) // call rel32, placeholder displacement
	code.WriteByte(0x90)
	a.AddReloc(target, section.Code, 5, asmfmt.REL32LE)
	code.WriteByte(0x90)
	a.Define(target, section.Code, 6, asmfmt.Local)

	l, err := Link(a, nil)
	require.NoError(t, err)
	defer l.Close()

	patched := l.Code()[1:5]
	var d int32
	for i := 3; i >= 0; i-- {
		d = d<<8 | int32(patched[i])
	}
	assert.Equal(t, int32(1), d) // target is 1 byte past the relocation site
}

func TestLinkOutOfRange8Bit(t *testing.T) {
	a := asmfmt.New()
	far := a.Symbols.Intern("far")

	code := a.Buffer(section.Code)
	code.WriteByte(0xeb)
	code.WriteByte(0)
	a.AddReloc(far, section.Code, 2, asmfmt.REL8)

	stat := a.Buffer(section.Static)
	stat.Write(make([]byte, 1000))
	a.Define(far, section.Static, 999, asmfmt.Local)

	_, err := Link(a, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisplacementOutOfRange)
}

func TestLinkUndefinedSymbol(t *testing.T) {
	a := asmfmt.New()
	missing := a.Symbols.Intern("missing")
	code := a.Buffer(section.Code)
	code.Write([]byte{0, 0, 0, 0})
	a.AddReloc(missing, section.Code, 4, asmfmt.REL32LE)

	_, err := Link(a, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndefinedSymbol)
}

func TestLoadIsIdempotentlyRefused(t *testing.T) {
	a := asmfmt.New()
	a.Buffer(section.Code).WriteByte(0xc3)
	sym := a.Symbols.Intern("entry")
	a.Define(sym, section.Code, 0, asmfmt.Global)

	l, err := Link(a, nil)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Load())
	assert.ErrorIs(t, l.Load(), ErrAlreadyLoaded)
}

func TestCloseIsIdempotent(t *testing.T) {
	a := asmfmt.New()
	l, err := Link(a, nil)
	require.NoError(t, err)

	require.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}

func TestOperationsAfterCloseRefused(t *testing.T) {
	a := asmfmt.New()
	a.Buffer(section.Code).WriteByte(0xc3)
	l, err := Link(a, nil)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	assert.ErrorIs(t, l.Load(), ErrClosed)
}
