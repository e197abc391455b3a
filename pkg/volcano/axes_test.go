package volcano

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ChrisMcGann/sqvolcano/pkg/compare"
	"github.com/ChrisMcGann/sqvolcano/pkg/core"
)

func TestXRange(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name    string
		values  []float64
		want    float64
		wantErr bool
	}{
		{"max wins, odd bumped", []float64{-1.2, 3.4}, 6, false},
		{"min wins", []float64{-4.5, 1.0}, 6, false},
		{"already even", []float64{-0.3, 0.8}, 2, false},
		{"tie", []float64{-2.5, 2.5}, 4, false},
		{"all negative", []float64{-0.2, -3.1}, 6, false},
		{"all positive", []float64{0.2, 1.1}, 4, false},
		{"integer base", []float64{3}, 4, false},
		{"NaN ignored", []float64{nan, -1.2, 3.4}, 6, false},
		{"empty", nil, 0, true},
		{"only NaN", []float64{nan}, 0, true},
		{"infinite", []float64{math.Inf(1)}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := XRange(tt.values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("XRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("XRange() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYRange(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"fractional max", []float64{0.3, 4.7}, 7},
		{"integer max", []float64{2}, 4},
		{"zero", []float64{0}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := YRange(tt.values)
			if err != nil {
				t.Fatalf("YRange() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("YRange() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRectangles(t *testing.T) {
	rects := Rectangles(6, 7, Thresholds{Enrichment: 2, Statistical: 1.5})

	want := [4]Rect{
		{X0: 2, Y0: 0, X1: 6, Y1: 1.5, Opacity: 0.1},
		{X0: 0, Y0: 0, X1: 2, Y1: 7, Opacity: 0.1},
		{X0: -2, Y0: 0, X1: -6, Y1: 1.5, Opacity: 0.1},
		{X0: 0, Y0: 0, X1: -2, Y1: 7, Opacity: 0.1},
	}
	if rects != want {
		t.Errorf("Rectangles() = %+v, want %+v", rects, want)
	}
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name    string
		t       Thresholds
		wantErr bool
	}{
		{"defaults", DefaultThresholds(), false},
		{"bounds", Thresholds{Enrichment: 10, Statistical: 3}, false},
		{"zero", Thresholds{}, false},
		{"enrichment too high", Thresholds{Enrichment: 10.5, Statistical: 2}, true},
		{"statistical too high", Thresholds{Enrichment: 2, Statistical: 3.1}, true},
		{"negative", Thresholds{Enrichment: -1, Statistical: 2}, true},
		{"NaN", Thresholds{Enrichment: math.NaN(), Statistical: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.t.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func comparison() *compare.Comparison {
	tbl := core.NewTable([]string{core.ColProteinNameShort, "log2ratio_A", "-log10(qValue_A)"})
	tbl.Rows = [][]string{
		{"HBA", "-1.2", "4.7"},
		{"HBB", "3.4", "0.5"},
	}
	return &compare.Comparison{
		Arm:             "A",
		Table:           tbl,
		Log2RatioColumn: "log2ratio_A",
		NegLog10QColumn: "-log10(qValue_A)",
	}
}

func TestDerive(t *testing.T) {
	axes, err := Derive(comparison(), DefaultThresholds())
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if axes.XRange != 6 || axes.YRange != 7 {
		t.Errorf("Derive() ranges = (%v, %v), want (6, 7)", axes.XRange, axes.YRange)
	}
	if axes.Rects[0].X1 != 6 || axes.Rects[1].Y1 != 7 {
		t.Errorf("rectangles do not use derived ranges: %+v", axes.Rects)
	}
}

func TestDeriveMissingColumn(t *testing.T) {
	c := comparison()
	c.NegLog10QColumn = "-log10(qValue_B)"

	_, err := Derive(c, DefaultThresholds())
	var se *core.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestDeriveBadThresholds(t *testing.T) {
	if _, err := Derive(comparison(), Thresholds{Enrichment: 11}); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
}

func TestDeriveNoFiniteValues(t *testing.T) {
	c := comparison()
	for _, row := range c.Table.Rows {
		row[1] = "NA"
	}

	_, err := Derive(c, DefaultThresholds())
	var dq *core.DataQualityError
	if !errors.As(err, &dq) {
		t.Fatalf("expected DataQualityError, got %v", err)
	}
	if dq.Column != "log2ratio_A" {
		t.Errorf("Column = %q, want log2ratio_A", dq.Column)
	}
	if strings.Contains(err.Error(), "row") {
		t.Errorf("column-level error names a row: %v", err)
	}
}
