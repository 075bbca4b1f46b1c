package parsegen

import (
	"github.com/npillmayer/toyc/grammar"
	"github.com/npillmayer/toyc/lr/sparse"
)

// Table is the LL(1) parse table: one row per non-terminal, one column per
// terminal (or the end-of-input marker), each populated cell naming the
// production to apply. Backed by lr/sparse.IntMatrix's COO/triplet
// encoding, since a real grammar's table is overwhelmingly empty -- the
// original's std::map<Symbol, std::map<Symbol, Production>> is exactly a
// sparse matrix in disguise.
type Table struct {
	m           *sparse.IntMatrix
	rows        map[grammar.Symbol]int
	cols        map[grammar.Symbol]int
	productions []grammar.RawProduction
}

// NewTable creates an empty parse table.
func NewTable() *Table {
	return &Table{
		m:    sparse.NewIntMatrix(0, 0, sparse.DefaultNullValue),
		rows: make(map[grammar.Symbol]int),
		cols: make(map[grammar.Symbol]int),
	}
}

func (t *Table) rowIndex(s grammar.Symbol) int {
	if i, ok := t.rows[s]; ok {
		return i
	}
	i := len(t.rows)
	t.rows[s] = i
	return i
}

func (t *Table) colIndex(s grammar.Symbol) int {
	if i, ok := t.cols[s]; ok {
		return i
	}
	i := len(t.cols)
	t.cols[s] = i
	return i
}

// Set records that, parsing non-terminal lhs with lookahead terminal, the
// parser should apply prod. A later Set for the same (lhs, terminal) pair
// overwrites the earlier one -- the same last-write-wins behavior as
// assigning into the original's nested std::map.
func (t *Table) Set(lhs, terminal grammar.Symbol, prod grammar.RawProduction) {
	i := t.rowIndex(lhs)
	j := t.colIndex(terminal)
	t.productions = append(t.productions, prod)
	idx := int32(len(t.productions) - 1)
	t.m.Set(i, j, idx)
}

// Lookup returns the production to apply for (lhs, terminal), or false if
// the table has no such entry -- a syntax error at the driver level.
func (t *Table) Lookup(lhs, terminal grammar.Symbol) (grammar.RawProduction, bool) {
	i, ok := t.rows[lhs]
	if !ok {
		return grammar.RawProduction{}, false
	}
	j, ok := t.cols[terminal]
	if !ok {
		return grammar.RawProduction{}, false
	}
	v := t.m.Value(i, j)
	if v == t.m.NullValue() {
		return grammar.RawProduction{}, false
	}
	return t.productions[v], true
}

// Size returns the number of populated table cells.
func (t *Table) Size() int {
	return t.m.ValueCount()
}
