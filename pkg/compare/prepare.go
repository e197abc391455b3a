// Package compare decomposes a SafeQuant protein report into one comparison
// table per treatment arm.
//
// Splitting runs in two phases. Prepare classifies the raw columns, keeps the
// whitelisted ones, renames and cleans the identity columns and derives the
// -log10(q-value) columns. Split then discovers the treatment arms and builds
// one Comparison per arm. Neither phase mutates the raw table.
package compare

import (
	"math"
	"regexp"

	"github.com/ChrisMcGann/sqvolcano/pkg/core"
)

var (
	organismSuffix = regexp.MustCompile(`\sOS=.+$`)
	extraAccession = regexp.MustCompile(`;.+$`)
	nameDecoration = regexp.MustCompile(`(^sp\|.+\|)|(_.+$)`)
)

// StripOrganism removes the " OS=..." organism suffix of a UniProt description.
func StripOrganism(description string) string {
	return organismSuffix.ReplaceAllString(description, "")
}

// StripSecondaryAccessions keeps the first entry of a ';'-separated protein name list.
func StripSecondaryAccessions(name string) string {
	return extraAccession.ReplaceAllString(name, "")
}

// ShortName turns "sp|P69905|HBA_HUMAN" into "HBA".
//
// The organism part of the entry name is dropped, so entries of different
// species sharing a gene prefix end up with the same short name. Do not use it
// to tell species apart.
func ShortName(name string) string {
	return nameDecoration.ReplaceAllString(name, "")
}

// Prepare runs the classification phase on a raw report. It returns the
// cleaned table (identity columns renamed, short name inserted at position 1,
// -log10 columns appended) together with the raw column classification.
func Prepare(raw *core.Table) (*core.Table, *core.Schema, error) {
	if err := raw.Validate(); err != nil {
		return nil, nil, err
	}

	schema := core.ClassifyColumns(raw.Columns)
	if err := schema.CheckIdentity(); err != nil {
		return nil, nil, err
	}

	// Select copies every cell, so the raw table stays untouched from here on.
	table, err := raw.Select(schema.Kept())
	if err != nil {
		return nil, nil, err
	}

	var missing []string
	for _, p := range core.Patterns {
		if p.Source == "" {
			continue
		}
		if !table.Rename(p.Source, p.Display) {
			missing = append(missing, p.Source)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &core.SchemaError{Missing: missing, Context: "renaming identity columns"}
	}

	if err := table.Apply(core.ColProteinDescription, StripOrganism); err != nil {
		return nil, nil, err
	}
	if err := table.Apply(core.ColProteinName, StripSecondaryAccessions); err != nil {
		return nil, nil, err
	}

	names, err := table.Column(core.ColProteinName)
	if err != nil {
		return nil, nil, err
	}
	short := make([]string, len(names))
	for i, n := range names {
		short[i] = ShortName(n)
	}
	if err := table.Insert(1, core.ColProteinNameShort, short); err != nil {
		return nil, nil, err
	}

	for _, q := range schema.Metrics(core.MetricQValue) {
		values, err := negLog10Column(table, q.Name, names)
		if err != nil {
			return nil, nil, err
		}
		if err := table.Append(core.NegLog10Name(q.Name), values); err != nil {
			return nil, nil, err
		}
	}

	return table, schema, nil
}

// negLog10Column computes |log10(q)| for every cell of a q-value column.
func negLog10Column(table *core.Table, column string, proteins []string) ([]string, error) {
	cells, err := table.Column(column)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(cells))
	for i, cell := range cells {
		q, err := core.ParseCell(cell)
		reason := ""
		switch {
		case err != nil || math.IsNaN(q):
			reason = "q-value is not numeric"
		case q <= 0:
			reason = "q-value must be positive to take its logarithm"
		case math.IsInf(q, 0):
			reason = "q-value is not finite"
		}
		if reason != "" {
			return nil, &core.DataQualityError{
				Column:  column,
				Row:     i + 1,
				Protein: proteins[i],
				Value:   cell,
				Reason:  reason,
			}
		}
		out[i] = core.FormatFloat(math.Abs(math.Log10(q)))
	}
	return out, nil
}
