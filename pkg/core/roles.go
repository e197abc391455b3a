package core

import (
	"fmt"
	"strings"
)

// Role is the classification of a report column.
type Role int

const (
	RoleUnclassified Role = iota
	RoleIdentity
	RoleStatisticalMetric
	RoleDerived
)

func (r Role) String() string {
	switch r {
	case RoleIdentity:
		return "identity"
	case RoleStatisticalMetric:
		return "metric"
	case RoleDerived:
		return "derived"
	default:
		return "unclassified"
	}
}

// Field identifies one of the fixed identity columns.
type Field int

const (
	FieldNone Field = iota
	FieldProteinName
	FieldAccession
	FieldGeneName
	FieldProteinDescription
	FieldPeptideCount
	FieldProteinNameShort
)

func (f Field) String() string {
	switch f {
	case FieldProteinName:
		return "protein name"
	case FieldAccession:
		return "accession"
	case FieldGeneName:
		return "gene name"
	case FieldProteinDescription:
		return "protein description"
	case FieldPeptideCount:
		return "peptide count"
	case FieldProteinNameShort:
		return "protein name (short)"
	default:
		return ""
	}
}

// Metric identifies a per-arm statistical column.
type Metric int

const (
	MetricNone Metric = iota
	MetricPValue
	MetricQValue
	MetricLog2Ratio
	MetricNegLog10QValue
)

func (m Metric) String() string {
	switch m {
	case MetricPValue:
		return "pValue"
	case MetricQValue:
		return "qValue"
	case MetricLog2Ratio:
		return "log2ratio"
	case MetricNegLog10QValue:
		return "-log10(qValue)"
	default:
		return ""
	}
}

// Display names of the renamed and derived identity columns.
const (
	ColProteinName        = "Protein Name"
	ColProteinNameShort   = "Protein Name (short)"
	ColAccession          = "Accession"
	ColGeneName           = "Gene Name"
	ColProteinDescription = "Protein Description"
)

// Pattern maps a column-name matcher to a role.
type Pattern struct {
	Role    Role
	Field   Field
	Metric  Metric
	Source  string // exact raw name to rename, empty if the column keeps its name
	Display string // name after renaming
	Match   func(name string) bool
}

func contains(s string) func(string) bool {
	return func(name string) bool { return strings.Contains(name, s) }
}

func prefix(s string) func(string) bool {
	return func(name string) bool { return strings.HasPrefix(name, s) }
}

// Patterns is the whitelist evaluated against every raw column name, in order.
// The first matching pattern wins.
var Patterns = []Pattern{
	{Role: RoleIdentity, Field: FieldProteinName, Source: "proteinName", Display: ColProteinName, Match: contains("proteinName")},
	{Role: RoleIdentity, Field: FieldAccession, Source: "ac", Display: ColAccession, Match: prefix("ac")},
	{Role: RoleIdentity, Field: FieldGeneName, Source: "geneName", Display: ColGeneName, Match: contains("geneName")},
	{Role: RoleIdentity, Field: FieldProteinDescription, Source: "proteinDescription", Display: ColProteinDescription, Match: contains("proteinDescription")},
	{Role: RoleIdentity, Field: FieldPeptideCount, Match: contains("nbPeptides")},
	{Role: RoleStatisticalMetric, Metric: MetricPValue, Match: prefix("pValue")},
	{Role: RoleStatisticalMetric, Metric: MetricQValue, Match: prefix("qValue")},
	{Role: RoleStatisticalMetric, Metric: MetricLog2Ratio, Match: prefix("log2ratio")},
}

// Column is the classification of a single column name.
type Column struct {
	Name   string
	Role   Role
	Field  Field
	Metric Metric
	Arm    string // treatment arm for metric and derived metric columns
}

// Classify matches name against Patterns.
func Classify(name string) Column {
	for _, p := range Patterns {
		if !p.Match(name) {
			continue
		}
		c := Column{Name: name, Role: p.Role, Field: p.Field, Metric: p.Metric}
		if p.Role == RoleStatisticalMetric {
			c.Arm = ArmSuffix(name)
		}
		return c
	}
	return Column{Name: name, Role: RoleUnclassified}
}

// ArmSuffix returns the part of a metric column name after the first
// underscore, with any further leading underscores trimmed.
func ArmSuffix(name string) string {
	idx := strings.Index(name, "_")
	if idx < 0 {
		return ""
	}
	return strings.TrimLeft(name[idx:], "_")
}

// NegLog10Name is the name of the column derived from a q-value column.
func NegLog10Name(qValueColumn string) string {
	return "-log10(" + qValueColumn + ")"
}

// BelongsTo reports whether a column name carries the suffix of arm: either
// "_<arm>" or "_<arm>)" at the very end of the name.
func BelongsTo(name, arm string) bool {
	if arm == "" {
		return false
	}
	return strings.HasSuffix(name, "_"+arm) || strings.HasSuffix(name, "_"+arm+")")
}

// Schema is the classification of every column of a raw report.
type Schema struct {
	Columns []Column
}

// ClassifyColumns classifies each name once, preserving order.
func ClassifyColumns(names []string) *Schema {
	s := &Schema{Columns: make([]Column, len(names))}
	for i, n := range names {
		s.Columns[i] = Classify(n)
	}
	return s
}

// Kept returns the names of all whitelisted columns in input order.
func (s *Schema) Kept() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Role != RoleUnclassified {
			out = append(out, c.Name)
		}
	}
	return out
}

// Dropped returns the names of unclassified columns.
func (s *Schema) Dropped() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Role == RoleUnclassified {
			out = append(out, c.Name)
		}
	}
	return out
}

// Identity returns the columns classified as the given identity field.
func (s *Schema) Identity(f Field) []Column {
	var out []Column
	for _, c := range s.Columns {
		if c.Role == RoleIdentity && c.Field == f {
			out = append(out, c)
		}
	}
	return out
}

// Metrics returns the columns classified as the given metric, in input order.
func (s *Schema) Metrics(m Metric) []Column {
	var out []Column
	for _, c := range s.Columns {
		if c.Role == RoleStatisticalMetric && c.Metric == m {
			out = append(out, c)
		}
	}
	return out
}

// CheckIdentity verifies that every identity pattern matched exactly one
// column and that the columns to be renamed carry their exact source names.
func (s *Schema) CheckIdentity() error {
	var missing, ambiguous []string
	for _, p := range Patterns {
		if p.Role != RoleIdentity {
			continue
		}
		cols := s.Identity(p.Field)
		switch {
		case len(cols) == 0:
			name := p.Source
			if name == "" {
				name = "nbPeptides"
			}
			missing = append(missing, name)
		case len(cols) > 1:
			for _, c := range cols {
				ambiguous = append(ambiguous, c.Name)
			}
		case p.Source != "" && cols[0].Name != p.Source:
			missing = append(missing, p.Source)
		}
	}
	if len(missing) > 0 || len(ambiguous) > 0 {
		return &SchemaError{Missing: missing, Ambiguous: ambiguous, Context: "identity columns"}
	}
	return nil
}

// Arms returns the distinct treatment arms in order of first appearance of
// their log2ratio column.
func (s *Schema) Arms() ([]string, error) {
	var arms []string
	seen := make(map[string]bool)
	for _, c := range s.Metrics(MetricLog2Ratio) {
		if c.Arm == "" {
			return nil, &SchemaError{
				Missing: []string{"log2ratio_<ARM>"},
				Context: fmt.Sprintf("column %q has no arm suffix", c.Name),
			}
		}
		if seen[c.Arm] {
			continue
		}
		seen[c.Arm] = true
		arms = append(arms, c.Arm)
	}
	if len(arms) == 0 {
		names := make([]string, len(s.Columns))
		for i, c := range s.Columns {
			names[i] = c.Name
		}
		return nil, &NoArmsFoundError{Columns: names}
	}
	return arms, nil
}
