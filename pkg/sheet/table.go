// Package sheet holds the flat tables exchanged between pipeline stages and
// reads and writes them as CSV or XLSX files.
package sheet

import (
	"errors"
	"fmt"
)

// ErrColumnNotFound is returned when a table lacks a required column.
var ErrColumnNotFound = errors.New("column not found")

// Table is an ordered set of named columns with string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Row is a read-only view of one table row addressed by column name.
type Row struct {
	index  map[string]int
	values []string
}

// Get returns the cell under column, or "" when the column is absent.
func (r Row) Get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

// Append adds a row, padding or truncating it to the column count.
func (t *Table) Append(values ...string) {
	row := make([]string, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	i := t.columnIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		values = append(values, cell(row, i))
	}
	return values, nil
}

// Distinct returns the non-empty values of the named column, first occurrence first.
func (t *Table) Distinct(name string) ([]string, error) {
	values, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Columns...)
	index := t.index()
	for _, row := range t.Rows {
		if keep(Row{index: index, values: row}) {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out
}

// SetColumn fills the named column with fn's value for every row,
// adding the column at the end when it does not exist yet.
func (t *Table) SetColumn(name string, fn func(Row) string) {
	i := t.columnIndex(name)
	if i < 0 {
		t.Columns = append(t.Columns, name)
		i = len(t.Columns) - 1
	}
	index := t.index()
	for r, row := range t.Rows {
		for len(row) < len(t.Columns) {
			row = append(row, "")
		}
		row[i] = fn(Row{index: index, values: row})
		t.Rows[r] = row
	}
}

// Without returns a copy of the table minus the rows whose column value is in values.
// The second result is the number of rows dropped.
func (t *Table) Without(column string, values []string) (*Table, int, error) {
	if !t.HasColumn(column) {
		return nil, 0, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	drop := make(map[string]struct{}, len(values))
	for _, v := range values {
		drop[v] = struct{}{}
	}
	out := t.Filter(func(r Row) bool {
		_, ok := drop[r.Get(column)]
		return !ok
	})
	return out, t.Len() - out.Len(), nil
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) index() map[string]int {
	index := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, ok := index[c]; !ok {
			index[c] = i
		}
	}
	return index
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
