// Package format renders report tables for the terminal.
package format

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ChrisMcGann/sqvolcano/pkg/core"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // box-drawn terminal tables
	Markdown             // GitHub-flavoured Markdown tables
	TSV                  // tab-separated, for piping
)

// ParseMode maps "ascii", "markdown" and "tsv" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "ascii":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	case "tsv":
		return TSV, nil
	}
	return ASCII, fmt.Errorf("unknown table format %q (want ascii, markdown or tsv)", s)
}

// MaxCellWidth is the widest cell of a preview before it wraps.
const MaxCellWidth = 40

// Table wraps a go-pretty writer with the chosen Mode.
type Table struct {
	writer table.Writer
	mode   Mode
}

// NewTable returns an empty table rendered in mode m.
func NewTable(m Mode) *Table {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return &Table{writer: w, mode: m}
}

// Header sets the column headers.
func (t *Table) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	t.writer.AppendHeader(row)
}

// Row appends a data row.
func (t *Table) Row(vals ...any) {
	t.writer.AppendRow(table.Row(vals))
}

// Footer appends a footer row, e.g. totals.
func (t *Table) Footer(vals ...any) {
	t.writer.AppendFooter(table.Row(vals))
}

// AlignRight right-aligns the given 1-based columns and caps them at maxWidth
// (0 = unlimited).
func (t *Table) AlignRight(maxWidth int, numbers ...int) {
	cfgs := make([]table.ColumnConfig, len(numbers))
	for i, n := range numbers {
		cfgs[i] = table.ColumnConfig{Number: n, Align: text.AlignRight, WidthMax: maxWidth}
	}
	t.writer.SetColumnConfigs(cfgs)
}

// WidthMax caps every column of a table with n columns.
func (t *Table) WidthMax(n, maxWidth int) {
	cfgs := make([]table.ColumnConfig, n)
	for i := range cfgs {
		cfgs[i] = table.ColumnConfig{Number: i + 1, WidthMax: maxWidth}
	}
	t.writer.SetColumnConfigs(cfgs)
}

// String renders the table.
func (t *Table) String() string {
	switch t.mode {
	case Markdown:
		return t.writer.RenderMarkdown()
	case TSV:
		return t.writer.RenderTSV()
	default:
		return t.writer.Render()
	}
}

// Preview renders the first n rows of a report.
func Preview(tbl *core.Table, n int, m Mode) string {
	head := tbl.Head(n)
	out := NewTable(m)
	out.Header(head.Columns...)
	for _, row := range head.Rows {
		vals := make([]any, len(row))
		for i, c := range row {
			vals[i] = c
		}
		out.Row(vals...)
	}
	if m == ASCII {
		out.WidthMax(len(head.Columns), MaxCellWidth)
	}
	return out.String()
}

// Classification renders how every column of a report was classified.
func Classification(schema *core.Schema, m Mode) string {
	out := NewTable(m)
	out.Header("Column", "Role", "Kind", "Arm", "Kept")
	for _, c := range schema.Columns {
		kind := ""
		switch c.Role {
		case core.RoleIdentity:
			kind = c.Field.String()
		case core.RoleStatisticalMetric, core.RoleDerived:
			kind = c.Metric.String()
		}
		kept := "no"
		if c.Role != core.RoleUnclassified {
			kept = "yes"
		}
		out.Row(c.Name, c.Role.String(), kind, c.Arm, kept)
	}
	return out.String()
}
