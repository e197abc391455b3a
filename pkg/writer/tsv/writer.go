// Package tsv writes comparison tables as tab-separated files
package tsv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ChrisMcGann/sqvolcano/pkg/compare"
)

// DerivedHeaderPrefix is put in front of -log10 column headers so that
// spreadsheet programs do not read them as formulas.
const DerivedHeaderPrefix = "'"

// FileName returns "<ligand>_vs_<arm>_<peptideCount>.tsv".
func FileName(ligand, arm, peptideCount string) string {
	return fmt.Sprintf("%s_vs_%s_%s.tsv", ligand, arm, peptideCount)
}

// Header returns the output header of a comparison, with the -log10 column
// prefixed by an apostrophe.
func Header(c *compare.Comparison) []string {
	header := make([]string, len(c.Table.Columns))
	for i, name := range c.Table.Columns {
		if name == c.NegLog10QColumn {
			name = DerivedHeaderPrefix + name
		}
		header[i] = name
	}
	return header
}

// Write writes a comparison table to w
func Write(w io.Writer, c *compare.Comparison) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(Header(c)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range c.Table.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush %s table: %w", c.Arm, err)
	}
	return nil
}

// Encode renders a comparison table in memory
func Encode(c *compare.Comparison) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StripDerivedPrefix undoes the header prefix, for reading files back.
func StripDerivedPrefix(columns []string) []string {
	out := make([]string, len(columns))
	for i, name := range columns {
		out[i] = strings.TrimPrefix(name, DerivedHeaderPrefix)
	}
	return out
}
