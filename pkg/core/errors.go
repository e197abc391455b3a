package core

import (
	"fmt"
	"strings"
)

// ValidationError represents a structural problem with a table.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// SchemaError reports missing or ambiguous columns.
type SchemaError struct {
	Missing   []string // required columns that are absent
	Ambiguous []string // columns that match a pattern expected to match once
	Context   string   // what was being done, e.g. "renaming identity columns"
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing column(s) "+quoteJoin(e.Missing))
	}
	if len(e.Ambiguous) > 0 {
		parts = append(parts, "ambiguous column(s) "+quoteJoin(e.Ambiguous))
	}
	if len(parts) == 0 {
		return "schema error: " + e.Context
	}
	msg := "schema error: " + strings.Join(parts, "; ")
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

// DataQualityError reports a cell that cannot be used for a derivation.
type DataQualityError struct {
	Column  string
	Row     int // 1-based data row, 0 for the whole column
	Protein string
	Value   string
	Reason  string
}

// A Row of 0 marks a failure of the column as a whole.
func (e *DataQualityError) Error() string {
	if e.Row <= 0 {
		return fmt.Sprintf("data quality error in column %q: %s", e.Column, e.Reason)
	}
	msg := fmt.Sprintf("data quality error in column %q, row %d", e.Column, e.Row)
	if e.Protein != "" {
		msg += fmt.Sprintf(" (protein %s)", e.Protein)
	}
	return fmt.Sprintf("%s: %s: %q", msg, e.Reason, e.Value)
}

// NoArmsFoundError is returned when a report has no log2ratio_<ARM> column.
type NoArmsFoundError struct {
	Columns []string // columns that were inspected
}

func (e *NoArmsFoundError) Error() string {
	return fmt.Sprintf("no treatment arms found: none of %d columns matches log2ratio_<ARM>", len(e.Columns))
}

func quoteJoin(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(q, ", ")
}
