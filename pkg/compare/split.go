package compare

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ChrisMcGann/sqvolcano/pkg/core"
)

// arm names end up in artifact file names
var unsafeArm = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)

// Comparison is the table of one treatment arm against the reference ligand.
// It carries named references to the columns the plotting layer needs.
type Comparison struct {
	Arm   string
	Table *core.Table

	Log2RatioColumn string
	QValueColumn    string // empty if the report has no q-value for this arm
	NegLog10QColumn string
	PValueColumn    string // empty if the report has no p-value for this arm
	PeptideColumn   string
}

// Log2Ratios parses the arm's log2 ratio column.
func (c *Comparison) Log2Ratios() ([]float64, error) {
	return c.Table.Floats(c.Log2RatioColumn)
}

// NegLog10Q parses the arm's -log10(q-value) column.
func (c *Comparison) NegLog10Q() ([]float64, error) {
	return c.Table.Floats(c.NegLog10QColumn)
}

// ShortNames returns the "Protein Name (short)" column.
func (c *Comparison) ShortNames() ([]string, error) {
	return c.Table.Column(core.ColProteinNameShort)
}

// Peptides returns the peptide count column.
func (c *Comparison) Peptides() ([]string, error) {
	return c.Table.Column(c.PeptideColumn)
}

// Result holds every comparison of a report in arm discovery order.
type Result struct {
	Schema      *core.Schema
	Prepared    *core.Table
	Arms        []string
	Comparisons []*Comparison
	Warnings    []string
}

// Get returns the comparison for an arm.
func (r *Result) Get(arm string) (*Comparison, bool) {
	for _, c := range r.Comparisons {
		if c.Arm == arm {
			return c, true
		}
	}
	return nil, false
}

// Split classifies a raw report and builds one Comparison per treatment arm.
// Either every comparison is returned or an error; never a partial result.
func Split(raw *core.Table) (*Result, error) {
	prepared, schema, err := Prepare(raw)
	if err != nil {
		return nil, err
	}

	arms, err := schema.Arms()
	if err != nil {
		return nil, err
	}
	if err := checkArmNames(schema); err != nil {
		return nil, err
	}

	peptide := schema.Identity(core.FieldPeptideCount)[0].Name
	identity := map[string]bool{
		core.ColProteinName:        true,
		core.ColProteinNameShort:   true,
		core.ColAccession:          true,
		core.ColGeneName:           true,
		core.ColProteinDescription: true,
		peptide:                    true,
	}

	// arm of every per-arm column of the prepared table
	armOf := make(map[string]string)
	metricOf := make(map[string]core.Metric)
	for _, c := range schema.Columns {
		if c.Role != core.RoleStatisticalMetric {
			continue
		}
		armOf[c.Name] = c.Arm
		metricOf[c.Name] = c.Metric
		if c.Metric == core.MetricQValue {
			derived := core.NegLog10Name(c.Name)
			armOf[derived] = c.Arm
			metricOf[derived] = core.MetricNegLog10QValue
		}
	}

	var base []string
	for _, name := range prepared.Columns {
		if identity[name] {
			base = append(base, name)
		}
	}

	res := &Result{
		Schema:   schema,
		Prepared: prepared,
		Arms:     arms,
	}

	for _, arm := range arms {
		if strings.Contains(arm, "_") {
			res.Warnings = append(res.Warnings, fmt.Sprintf("treatment arm %q contains '_'; columns are matched on the full arm name", arm))
		}

		cmp := &Comparison{
			Arm:             arm,
			PeptideColumn:   peptide,
			NegLog10QColumn: core.NegLog10Name("qValue_" + arm),
		}

		cols := append([]string(nil), base...)
		for _, name := range prepared.Columns {
			if identity[name] || !core.BelongsTo(name, arm) || armOf[name] != arm {
				continue
			}
			cols = append(cols, name)

			switch metricOf[name] {
			case core.MetricLog2Ratio:
				if cmp.Log2RatioColumn == "" {
					cmp.Log2RatioColumn = name
				}
			case core.MetricQValue:
				if cmp.QValueColumn == "" {
					cmp.QValueColumn = name
					cmp.NegLog10QColumn = core.NegLog10Name(name)
				}
			case core.MetricPValue:
				if cmp.PValueColumn == "" {
					cmp.PValueColumn = name
				}
			}
		}

		cmp.Table, err = prepared.Select(cols)
		if err != nil {
			return nil, fmt.Errorf("failed to build comparison %s: %w", arm, err)
		}
		res.Comparisons = append(res.Comparisons, cmp)
	}

	return res, nil
}

// checkArmNames rejects arms that cannot be part of a file name.
func checkArmNames(schema *core.Schema) error {
	for _, c := range schema.Metrics(core.MetricLog2Ratio) {
		if unsafeArm.MatchString(c.Arm) || strings.Contains(c.Arm, "..") {
			return &core.SchemaError{
				Context: fmt.Sprintf("treatment arm %q of column %q cannot be used in a file name", c.Arm, c.Name),
			}
		}
	}
	return nil
}
