// Package table provides the in-memory tabular data model that query
// compilation and statistical analysis operate on. A Table is immutable:
// every transform returns a new Table and leaves the receiver untouched.
package table

import (
	"fmt"
	"sort"
	"strings"
)

// ColumnType is the semantic type of a column.
type ColumnType string

const (
	ColumnNumeric  ColumnType = "numeric"
	ColumnText     ColumnType = "text"
	ColumnTemporal ColumnType = "temporal"
	ColumnUnknown  ColumnType = "unknown"
)

// Column describes a single named, typed column.
type Column struct {
	Name string
	Type ColumnType
}

// Table is an ordered sequence of named, typed columns and an ordered
// sequence of rows. Every row has a value (possibly nil) for every column.
// Numeric cells hold float64, all other cells hold string.
type Table struct {
	cols []Column
	rows [][]any
}

// New creates a Table from columns and rows. Every row must have exactly
// one value per column.
func New(cols []Column, rows [][]any) (*Table, error) {
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(cols))
		}
	}
	return &Table{cols: cols, rows: rows}, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.cols) }

// Columns returns a copy of the column descriptors.
func (t *Table) Columns() []Column {
	cols := make([]Column, len(t.cols))
	copy(cols, t.cols)
	return cols
}

// ColumnNames returns the ordered column names.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex finds a column by name. Matching is case-insensitive so that
// generated queries survive casing drift between schema and query text.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.cols {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// ColumnType returns the semantic type of the named column.
func (t *Table) ColumnType(name string) (ColumnType, bool) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return ColumnUnknown, false
	}
	return t.cols[idx].Type, true
}

// At returns the cell value at (row, col).
func (t *Table) At(row, col int) any { return t.rows[row][col] }

// Row returns the raw values of one row. The slice is shared; callers must
// not mutate it.
func (t *Table) Row(i int) []any { return t.rows[i] }

// Values returns all values of the column at idx in row order.
func (t *Table) Values(idx int) []any {
	vals := make([]any, len(t.rows))
	for i, row := range t.rows {
		vals[i] = row[idx]
	}
	return vals
}

// NumericValues returns the non-nil float64 values of the named column in
// row order. Returns nil if the column does not exist or is not numeric.
func (t *Table) NumericValues(name string) []float64 {
	idx, ok := t.ColumnIndex(name)
	if !ok || t.cols[idx].Type != ColumnNumeric {
		return nil
	}
	vals := make([]float64, 0, len(t.rows))
	for _, row := range t.rows {
		if f, ok := row[idx].(float64); ok {
			vals = append(vals, f)
		}
	}
	return vals
}

// NumericColumns returns the names of all numeric columns in order.
func (t *Table) NumericColumns() []string {
	var names []string
	for _, c := range t.cols {
		if c.Type == ColumnNumeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// CategoricalColumns returns the names of all non-numeric columns in order.
func (t *Table) CategoricalColumns() []string {
	var names []string
	for _, c := range t.cols {
		if c.Type != ColumnNumeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// Select projects the table onto the named columns, preserving their
// requested order.
func (t *Table) Select(names ...string) (*Table, error) {
	indices := make([]int, len(names))
	cols := make([]Column, len(names))
	for i, name := range names {
		idx, ok := t.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("column %q does not exist", name)
		}
		indices[i] = idx
		cols[i] = t.cols[idx]
	}

	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		projected := make([]any, len(indices))
		for i, idx := range indices {
			projected[i] = row[idx]
		}
		rows[r] = projected
	}
	return &Table{cols: cols, rows: rows}, nil
}

// SortBy returns a new table sorted by the named column. Numeric columns
// compare numerically, everything else compares as strings. Nil values
// sort last regardless of direction.
func (t *Table) SortBy(name string, descending bool) (*Table, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("column %q does not exist", name)
	}

	rows := make([][]any, len(t.rows))
	copy(rows, t.rows)

	numeric := t.cols[idx].Type == ColumnNumeric
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][idx], rows[j][idx]
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		// Reversing the operands rather than negating "less" keeps equal
		// keys reporting not-less, so ties stay in their original order.
		if descending {
			a, b = b, a
		}
		if numeric {
			return a.(float64) < b.(float64)
		}
		return fmt.Sprint(a) < fmt.Sprint(b)
	})
	return &Table{cols: t.cols, rows: rows}, nil
}

// FilterRows returns a new table with only the rows for which keep
// returns true.
func (t *Table) FilterRows(keep func(row []any) bool) *Table {
	var rows [][]any
	for _, row := range t.rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return &Table{cols: t.cols, rows: rows}
}

// Head returns a new table with at most n rows.
func (t *Table) Head(n int) *Table {
	if n >= len(t.rows) {
		return &Table{cols: t.cols, rows: t.rows}
	}
	return &Table{cols: t.cols, rows: t.rows[:n]}
}
