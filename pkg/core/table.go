// Package core provides the intermediate representation (IR) models, column
// classification and validation logic for SafeQuant protein reports.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is an ordered, string-typed table. Cells keep the text read from the
// report; numeric interpretation happens on demand through Floats.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable creates an empty table with the given header.
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// AppendRow appends a row. The row is copied.
func (t *Table) AppendRow(row []string) error {
	if len(row) != len(t.Columns) {
		return &ValidationError{
			Field:   "Row",
			Message: fmt.Sprintf("expected %d cells, got %d", len(t.Columns), len(row)),
		}
	}
	r := make([]string, len(row))
	copy(r, row)
	t.Rows = append(t.Rows, r)
	return nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table has a column with this name.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Column returns a copy of the cells of the named column.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, &SchemaError{Missing: []string{name}}
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Floats parses the named column as float64 values. Empty cells and NA markers
// are returned as NaN; any other unparsable cell is a DataQualityError.
func (t *Table) Floats(name string) ([]float64, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, &SchemaError{Missing: []string{name}}
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		v, err := ParseCell(row[idx])
		if err != nil {
			return nil, &DataQualityError{
				Column: name,
				Row:    i + 1,
				Value:  row[idx],
				Reason: "not a number",
			}
		}
		out[i] = v
	}
	return out, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := NewTable(t.Columns)
	c.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(row))
		copy(r, row)
		c.Rows[i] = r
	}
	return c
}

// Select returns a new table holding only the named columns, in the given order.
func (t *Table) Select(names []string) (*Table, error) {
	idx := make([]int, len(names))
	var missing []string
	for i, name := range names {
		idx[i] = t.Index(name)
		if idx[i] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	out := NewTable(names)
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]string, len(idx))
		for i, j := range idx {
			cells[i] = row[j]
		}
		out.Rows[r] = cells
	}
	return out, nil
}

// Head returns a copy of the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	c := NewTable(t.Columns)
	for _, row := range t.Rows[:n] {
		r := make([]string, len(row))
		copy(r, row)
		c.Rows = append(c.Rows, r)
	}
	return c
}

// Rename renames a column in place. It returns false if the column is absent.
func (t *Table) Rename(from, to string) bool {
	idx := t.Index(from)
	if idx < 0 {
		return false
	}
	t.Columns[idx] = to
	return true
}

// Insert adds a column at position pos (clamped to the table width).
func (t *Table) Insert(pos int, name string, values []string) error {
	if len(values) != len(t.Rows) {
		return &ValidationError{
			Field:   name,
			Message: fmt.Sprintf("expected %d values, got %d", len(t.Rows), len(values)),
		}
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(t.Columns) {
		pos = len(t.Columns)
	}
	t.Columns = append(t.Columns[:pos], append([]string{name}, t.Columns[pos:]...)...)
	for i, row := range t.Rows {
		t.Rows[i] = append(row[:pos], append([]string{values[i]}, row[pos:]...)...)
	}
	return nil
}

// Append adds a column at the end of the table.
func (t *Table) Append(name string, values []string) error {
	return t.Insert(len(t.Columns), name, values)
}

// Apply rewrites every cell of the named column with fn.
func (t *Table) Apply(name string, fn func(string) string) error {
	idx := t.Index(name)
	if idx < 0 {
		return &SchemaError{Missing: []string{name}}
	}
	for _, row := range t.Rows {
		row[idx] = fn(row[idx])
	}
	return nil
}

// Validate checks the table shape: unique, non-empty column names and rows of
// the header's width.
func (t *Table) Validate() error {
	var errs []string

	if len(t.Columns) == 0 {
		errs = append(errs, "at least one column is required")
	}
	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		if c == "" {
			errs = append(errs, fmt.Sprintf("column %d has an empty name", i+1))
			continue
		}
		if seen[c] {
			errs = append(errs, fmt.Sprintf("duplicate column %q", c))
		}
		seen[c] = true
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			errs = append(errs, fmt.Sprintf("row %d has %d cells, expected %d", i+1, len(row), len(t.Columns)))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Table",
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// ParseCell parses a numeric cell. Empty cells and the usual NA markers yield NaN.
func ParseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NA", "N/A", "NaN", "nan", "null", "NULL":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatFloat renders a derived value with 15 significant digits so that
// values like 1.9999999999999996 print as 2.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 15, 64)
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
