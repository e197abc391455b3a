package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ChrisMcGann/sqvolcano/pkg/compare"
	"github.com/ChrisMcGann/sqvolcano/pkg/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/volcano"
)

func comparison() *compare.Comparison {
	tbl := core.NewTable([]string{core.ColProteinName, core.ColProteinNameShort, "log2ratio_A", "-log10(qValue_A)"})
	tbl.Rows = [][]string{
		{"sp|P1|UP1_HUMAN", "UP1", "3.0", "2.5"},
		{"sp|P2|DOWN_HUMAN", "DOWN", "-2.5", "4.0"},
		{"sp|P3|WEAK_HUMAN", "WEAK", "1.0", "5.0"},
		{"sp|P4|NS_HUMAN", "NS", "4.0", "1.0"},
		{"sp|P5|EDGE_HUMAN", "EDGE", "2", "2"},
		{"sp|P6|NA_HUMAN", "NA", "NA", "3.0"},
	}
	return &compare.Comparison{
		Arm:             "A",
		Table:           tbl,
		Log2RatioColumn: "log2ratio_A",
		NegLog10QColumn: "-log10(qValue_A)",
	}
}

func shortNames(hits []Hit) []string {
	var out []string
	for _, h := range hits {
		out = append(out, h.ShortName)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want []string
	}{
		{
			name: "defaults",
			cfg:  NewConfig(volcano.DefaultThresholds()),
			want: []string{"DOWN", "UP1", "EDGE"},
		},
		{
			name: "top n",
			cfg:  &Config{Thresholds: volcano.DefaultThresholds(), TopN: 1},
			want: []string{"DOWN"},
		},
		{
			name: "up only",
			cfg:  &Config{Thresholds: volcano.DefaultThresholds(), Directions: []Direction{Up}},
			want: []string{"UP1", "EDGE"},
		},
		{
			name: "loose thresholds",
			cfg:  NewConfig(volcano.Thresholds{Enrichment: 0, Statistical: 0}),
			want: []string{"WEAK", "DOWN", "UP1", "EDGE", "NS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := tt.cfg.Apply(comparison())
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, shortNames(hits)); diff != "" {
				t.Errorf("hits mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyHitFields(t *testing.T) {
	hits, err := NewConfig(volcano.DefaultThresholds()).Apply(comparison())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	h := hits[0]
	if h.Row != 1 || h.Protein != "sp|P2|DOWN_HUMAN" || h.Direction != Down {
		t.Errorf("unexpected hit: %+v", h)
	}
	up, down := Count(hits)
	if up != 2 || down != 1 {
		t.Errorf("Count() = (%d, %d), want (2, 1)", up, down)
	}
}

func TestApplyInvalidThresholds(t *testing.T) {
	cfg := NewConfig(volcano.Thresholds{Enrichment: 2, Statistical: 5})
	if _, err := cfg.Apply(comparison()); err == nil {
		t.Error("expected error for statistical threshold above 3")
	}
}

func TestIsHit(t *testing.T) {
	cfg := NewConfig(volcano.DefaultThresholds())
	tests := []struct {
		log2, nlq float64
		want      bool
	}{
		{2, 2, true},
		{-2, 2, true},
		{1.99, 3, false},
		{3, 1.99, false},
	}
	for _, tt := range tests {
		if got := cfg.IsHit(tt.log2, tt.nlq); got != tt.want {
			t.Errorf("IsHit(%v, %v) = %v, want %v", tt.log2, tt.nlq, got, tt.want)
		}
	}
}
