// Package tsv provides a streaming reader for tab-separated SafeQuant reports
package tsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ChrisMcGann/sqvolcano/pkg/core"
)

const utf8BOM = "\ufeff"

// Reader provides streaming access to a tab-separated report
type Reader struct {
	csv     *csv.Reader
	header  []string
	lineNum int
	current []string
	err     error
}

// NewReader creates a new TSV reader and consumes the header row
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty report: no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	return &Reader{
		csv:     cr,
		header:  header,
		lineNum: 1,
	}, nil
}

// Header returns the column names of the report
func (r *Reader) Header() []string {
	out := make([]string, len(r.header))
	copy(out, r.header)
	return out
}

// Next advances to the next row. Returns false when no more rows or error.
func (r *Reader) Next() bool {
	r.current = nil

	for {
		record, err := r.csv.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
			}
			return false
		}
		r.lineNum, _ = r.csv.FieldPos(0)

		// Skip blank lines at the end of exported reports
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		r.current = record
		return true
	}
}

// Row returns the current row
func (r *Reader) Row() []string {
	return r.current
}

// Line returns the input line of the current row (header is line 1)
func (r *Reader) Line() int {
	return r.lineNum
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// ReadTable reads a whole report into a table
func ReadTable(in io.Reader) (*core.Table, error) {
	r, err := NewReader(in)
	if err != nil {
		return nil, err
	}

	table := core.NewTable(r.Header())
	for r.Next() {
		if err := table.AppendRow(r.Row()); err != nil {
			return nil, fmt.Errorf("line %d: %w", r.Line(), err)
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("error reading report: %w", err)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
