// Package symtab implements the symbol-name interning table shared by
// an Assembly and every definition/relocation that references a
// symbol by its opaque Symbol handle rather than by name.
package symtab

import "fmt"

// Symbol is an opaque interned identifier, resolvable through a Table
// to the printable name it was interned from. Symbols carry no type
// information of their own; Def and Reloc attach whatever meaning a
// given occurrence needs.
type Symbol uint32

// Table interns symbol names to small integer handles. It is owned by
// exactly one Assembly and is never mutated concurrently (package link
// treats it as read-only once borrowed into a Linked).
type Table struct {
	names []string
	index map[string]Symbol
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{index: make(map[string]Symbol)}
}

// Intern returns the Symbol for name, creating one if this is the
// first time name has been seen.
func (t *Table) Intern(name string) Symbol {
	if sym, ok := t.index[name]; ok {
		return sym
	}
	sym := Symbol(len(t.names))
	t.names = append(t.names, name)
	t.index[name] = sym
	return sym
}

// Name returns the printable name a Symbol was interned from.
func (t *Table) Name(sym Symbol) string {
	if int(sym) >= len(t.names) {
		panic(fmt.Sprintf("symtab: symbol %d not interned in this table", sym))
	}
	return t.names[sym]
}

// Len returns the number of distinct symbols interned so far.
func (t *Table) Len() int {
	return len(t.names)
}
