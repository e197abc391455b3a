// Package filter selects the proteins of a comparison that pass the volcano
// plot thresholds.
package filter

import (
	"fmt"
	"math"
	"sort"

	"github.com/ChrisMcGann/sqvolcano/pkg/compare"
	"github.com/ChrisMcGann/sqvolcano/pkg/core"
	"github.com/ChrisMcGann/sqvolcano/pkg/volcano"
)

// Direction of a fold change.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Hit is a protein outside the shaded regions of the plot.
type Hit struct {
	Row       int // 0-based row of the comparison table
	Protein   string
	ShortName string
	Log2Ratio float64
	NegLog10Q float64
	Direction Direction
}

// Config holds filtering configuration
type Config struct {
	Thresholds volcano.Thresholds
	TopN       int        // Keep only the N most significant hits (0 = no limit)
	Directions []Direction // Keep only these directions (nil = both)
}

// NewConfig returns a config that keeps every hit for the given thresholds.
func NewConfig(t volcano.Thresholds) *Config {
	return &Config{Thresholds: t}
}

// Apply returns the hits of a comparison, most significant first. Rows with a
// missing log2 ratio or q-value are never hits.
func (c *Config) Apply(cmp *compare.Comparison) ([]Hit, error) {
	if err := c.Thresholds.Validate(); err != nil {
		return nil, err
	}

	log2, err := cmp.Log2Ratios()
	if err != nil {
		return nil, fmt.Errorf("failed to read log2 ratios of %s: %w", cmp.Arm, err)
	}
	nlq, err := cmp.NegLog10Q()
	if err != nil {
		return nil, fmt.Errorf("failed to read q-values of %s: %w", cmp.Arm, err)
	}
	short, err := cmp.ShortNames()
	if err != nil {
		return nil, err
	}
	names, err := cmp.Table.Column(core.ColProteinName)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for i := range log2 {
		h, ok := c.classify(log2[i], nlq[i])
		if !ok {
			continue
		}
		h.Row = i
		h.Protein = names[i]
		h.ShortName = short[i]
		if c.keepDirection(h.Direction) {
			hits = append(hits, h)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].NegLog10Q > hits[j].NegLog10Q
	})

	if c.TopN > 0 && len(hits) > c.TopN {
		hits = hits[:c.TopN]
	}
	return hits, nil
}

// IsHit reports whether a point lies outside every shaded rectangle.
func (c *Config) IsHit(log2, negLog10Q float64) bool {
	_, ok := c.classify(log2, negLog10Q)
	return ok
}

func (c *Config) classify(log2, nlq float64) (Hit, bool) {
	if math.IsNaN(log2) || math.IsNaN(nlq) {
		return Hit{}, false
	}
	if math.Abs(log2) < c.Thresholds.Enrichment || nlq < c.Thresholds.Statistical {
		return Hit{}, false
	}
	h := Hit{Log2Ratio: log2, NegLog10Q: nlq, Direction: Up}
	if log2 < 0 {
		h.Direction = Down
	}
	return h, true
}

func (c *Config) keepDirection(d Direction) bool {
	if len(c.Directions) == 0 {
		return true
	}
	for _, want := range c.Directions {
		if want == d {
			return true
		}
	}
	return false
}

// Count returns the number of up and down hits.
func Count(hits []Hit) (up, down int) {
	for _, h := range hits {
		if h.Direction == Down {
			down++
		} else {
			up++
		}
	}
	return up, down
}
