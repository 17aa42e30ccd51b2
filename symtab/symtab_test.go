package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternReturnsStableHandle(t *testing.T) {
	tab := New()
	a := tab.Intern("foo")
	b := tab.Intern("foo")
	require.Equal(t, a, b)
	assert.Equal(t, "foo", tab.Name(a))
}

func TestInternDistinctNames(t *testing.T) {
	tab := New()
	foo := tab.Intern("foo")
	bar := tab.Intern("bar")
	assert.NotEqual(t, foo, bar)
	assert.Equal(t, 2, tab.Len())
}

func TestNamePanicsOnUnknownSymbol(t *testing.T) {
	tab := New()
	tab.Intern("foo")
	assert.Panics(t, func() { tab.Name(Symbol(5)) })
}

func TestLen(t *testing.T) {
	tab := New()
	assert.Equal(t, 0, tab.Len())
	tab.Intern("a")
	tab.Intern("b")
	tab.Intern("a")
	assert.Equal(t, 2, tab.Len())
}
