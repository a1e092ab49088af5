package table

import (
	"strings"

	"golang.org/x/text/cases"
)

// Table is an ordered set of named columns with rows aligned by index.
// Every row holds exactly one cell per column.
type Table struct {
	columns []string
	rows    [][]Cell
}

// New builds a table from column names and rows. Rows shorter than the
// header are padded with Missing; longer rows are truncated.
func New(columns []string, rows [][]Cell) *Table {
	t := &Table{
		columns: append([]string(nil), columns...),
		rows:    make([][]Cell, 0, len(rows)),
	}
	for _, r := range rows {
		t.rows = append(t.rows, fit(r, len(columns)))
	}
	return t
}

func fit(r []Cell, n int) []Cell {
	out := make([]Cell, n)
	copy(out, r)
	return out
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of the i-th row.
func (t *Table) Row(i int) []Cell {
	return append([]Cell(nil), t.rows[i]...)
}

// Column returns the cells of a resolved column, or nil when absent.
func (t *Table) Column(c Column) []Cell {
	if !c.ok {
		return nil
	}
	out := make([]Cell, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[c.index]
	}
	return out
}

// Value returns the cell at row i of column c. An absent column yields
// Missing for every row.
func (t *Table) Value(i int, c Column) Cell {
	if !c.ok {
		return Missing()
	}
	return t.rows[i][c.index]
}

// Column is the result of resolving a header name. It is either present,
// carrying the actual header and its position, or absent.
type Column struct {
	name  string
	index int
	ok    bool
}

// Name returns the matched header as written in the table.
func (c Column) Name() string {
	return c.name
}

// Present reports whether the column was found.
func (c Column) Present() bool {
	return c.ok
}

// FindCol returns the first candidate present in the table, compared
// case-insensitively. Candidates are tried in order so callers list the
// canonical name first and locale or export aliases after it.
func (t *Table) FindCol(candidates ...string) Column {
	folded := make([]string, len(t.columns))
	for i, name := range t.columns {
		folded[i] = foldHeader(name)
	}
	for _, cand := range candidates {
		want := foldHeader(cand)
		for i, have := range folded {
			if have == want {
				return Column{name: t.columns[i], index: i, ok: true}
			}
		}
	}
	return Column{}
}

// FindCol is the function form of Table.FindCol.
func FindCol(t *Table, candidates ...string) Column {
	return t.FindCol(candidates...)
}

// foldHeader builds a fresh Caser per call; Casers are stateful and must
// not be shared between goroutines.
func foldHeader(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Fold returns the case-folded, trimmed form used for header matching.
func Fold(s string) string {
	return foldHeader(s)
}
