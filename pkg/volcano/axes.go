// Package volcano derives the axis ranges and threshold rectangles of a
// volcano plot from a comparison table.
package volcano

import (
	"fmt"
	"math"

	"github.com/ChrisMcGann/sqvolcano/pkg/compare"
	"github.com/ChrisMcGann/sqvolcano/pkg/core"
)

// Threshold defaults and bounds.
const (
	DefaultEnrichment  = 2.0
	DefaultStatistical = 2.0
	MaxEnrichment      = 10.0
	MaxStatistical     = 3.0

	RectOpacity = 0.1
)

// Thresholds are the user-controlled cut-offs of a volcano plot.
type Thresholds struct {
	Enrichment  float64 // minimum |log2 fold change|
	Statistical float64 // minimum -log10(q-value)
}

// DefaultThresholds returns the thresholds used when none are given.
func DefaultThresholds() Thresholds {
	return Thresholds{Enrichment: DefaultEnrichment, Statistical: DefaultStatistical}
}

// Validate checks both thresholds against their allowed ranges.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.Enrichment) || t.Enrichment < 0 || t.Enrichment > MaxEnrichment {
		return fmt.Errorf("enrichment threshold %v out of range [0, %v]", t.Enrichment, MaxEnrichment)
	}
	if math.IsNaN(t.Statistical) || t.Statistical < 0 || t.Statistical > MaxStatistical {
		return fmt.Errorf("statistical threshold %v out of range [0, %v]", t.Statistical, MaxStatistical)
	}
	return nil
}

// Rect is an axis-aligned shaded region given by two corners.
type Rect struct {
	X0, Y0  float64
	X1, Y1  float64
	Opacity float64
}

// Axes holds the symmetric x bound, the y upper bound and the four shaded
// rectangles of one comparison.
type Axes struct {
	XRange float64
	YRange float64
	Rects  [4]Rect
}

// XRange returns the symmetric x bound for a set of log2 ratios: the larger of
// max and |min|, plus one, rounded up to the next even integer. NaN values are
// ignored.
func XRange(log2 []float64) (float64, error) {
	logMax, logMin, ok := extremes(log2)
	if !ok {
		return 0, fmt.Errorf("no finite log2 ratio")
	}
	logMinAbs := math.Abs(logMin)

	// a tie takes the |min| branch; both values are equal then
	base := logMinAbs
	if logMax > logMinAbs {
		base = logMax
	}

	r := math.Ceil(base + 1)
	if math.Mod(r, 2) != 0 {
		r++
	}
	return r, nil
}

// YRange returns ceil(max + 2) of the -log10(q-value) values.
func YRange(negLog10Q []float64) (float64, error) {
	max, _, ok := extremes(negLog10Q)
	if !ok {
		return 0, fmt.Errorf("no finite -log10(q-value)")
	}
	return math.Ceil(max + 2), nil
}

// Rectangles returns the four shaded regions: right-outer, right-inner,
// left-outer, left-inner. Together they leave the enriched-and-significant
// corners unshaded.
func Rectangles(xRange, yRange float64, t Thresholds) [4]Rect {
	e, s := t.Enrichment, t.Statistical
	return [4]Rect{
		{X0: e, Y0: 0, X1: xRange, Y1: s, Opacity: RectOpacity},
		{X0: 0, Y0: 0, X1: e, Y1: yRange, Opacity: RectOpacity},
		{X0: -e, Y0: 0, X1: -xRange, Y1: s, Opacity: RectOpacity},
		{X0: 0, Y0: 0, X1: -e, Y1: yRange, Opacity: RectOpacity},
	}
}

// Derive computes the axes of a comparison for the given thresholds.
func Derive(c *compare.Comparison, t Thresholds) (Axes, error) {
	if err := t.Validate(); err != nil {
		return Axes{}, err
	}

	log2, err := c.Log2Ratios()
	if err != nil {
		return Axes{}, fmt.Errorf("failed to derive x range for %s: %w", c.Arm, err)
	}
	xr, err := XRange(log2)
	if err != nil {
		return Axes{}, &core.DataQualityError{Column: c.Log2RatioColumn, Reason: err.Error()}
	}

	nlq, err := c.NegLog10Q()
	if err != nil {
		return Axes{}, fmt.Errorf("failed to derive y range for %s: %w", c.Arm, err)
	}
	yr, err := YRange(nlq)
	if err != nil {
		return Axes{}, &core.DataQualityError{Column: c.NegLog10QColumn, Reason: err.Error()}
	}

	return Axes{XRange: xr, YRange: yr, Rects: Rectangles(xr, yr, t)}, nil
}

// extremes returns the max and min of the non-NaN values.
func extremes(values []float64) (max, min float64, ok bool) {
	max, min = math.Inf(-1), math.Inf(1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsInf(v, 0) {
			return 0, 0, false
		}
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
		ok = true
	}
	return max, min, ok
}
