// Package plot renders volcano plots of a comparison as standalone HTML pages
// with an embedded SVG chart.
package plot

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ChrisMcGann/sqvolcano/pkg/compare"
	"github.com/ChrisMcGann/sqvolcano/pkg/volcano"
)

const (
	XAxisTitle = "log₂(fold change)"
	YAxisTitle = "-log₁₀(adjusted p-value)"

	xTickStep = 2.0
	yTickStep = 1.0

	DefaultWidth  = 1000
	DefaultHeight = 700
)

var (
	markerColor  = drawing.ColorFromHex("008080")
	outlineColor = drawing.ColorBlack
	gridColor    = drawing.ColorFromHex("bbbbbf")
	rectColor    = drawing.ColorFromHex("0000ff")

	// points only; a zero stroke colour would fall back to the palette
	noStroke = drawing.ColorWhite.WithAlpha(0)
)

// Options control the title, file name and label layer of a plot.
type Options struct {
	Project      string
	Ligand       string
	PeptideCount string
	ShowLabels   bool
	Width        int
	Height       int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// FileName returns "<project>_<peptideCount>_<ligand>_vs_<arm>[_withText].html".
func FileName(project, peptideCount, ligand, arm string, withText bool) string {
	name := fmt.Sprintf("%s_%s_%s_vs_%s", project, peptideCount, ligand, arm)
	if withText {
		name += "_withText"
	}
	return name + ".html"
}

// Title returns "<ligand> vs <arm> (<project>, <peptideCount>)".
func Title(ligand, arm, project, peptideCount string) string {
	return fmt.Sprintf("%s vs %s (%s, %s)", ligand, arm, project, peptideCount)
}

// Point is one protein of the scatter.
type Point struct {
	ShortName string
	Peptides  string
	Log2Ratio float64
	NegLog10Q float64
}

// Points returns the plottable proteins of a comparison. Rows with a missing
// coordinate are left out.
func Points(c *compare.Comparison) ([]Point, error) {
	xs, err := c.Log2Ratios()
	if err != nil {
		return nil, err
	}
	ys, err := c.NegLog10Q()
	if err != nil {
		return nil, err
	}
	names, err := c.ShortNames()
	if err != nil {
		return nil, err
	}
	peps, err := c.Peptides()
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(xs))
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		points = append(points, Point{
			ShortName: names[i],
			Peptides:  peps[i],
			Log2Ratio: xs[i],
			NegLog10Q: ys[i],
		})
	}
	return points, nil
}

// Chart builds the go-chart definition of a volcano plot.
func Chart(c *compare.Comparison, points []Point, axes volcano.Axes, opts Options) chart.Chart {
	var series []chart.Series

	for i, r := range axes.Rects {
		series = append(series, rectSeries(fmt.Sprintf("threshold-%d", i), r))
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Log2Ratio
		ys[i] = p.NegLog10Q
	}
	// go-chart rejects empty series
	if len(points) > 0 {
		series = append(series,
			chart.ContinuousSeries{Name: "outline", XValues: xs, YValues: ys, Style: pointStyle(outlineColor, 6)},
			chart.ContinuousSeries{Name: c.Arm, XValues: xs, YValues: ys, Style: pointStyle(markerColor, 4)},
		)
	}

	if opts.ShowLabels && len(points) > 0 {
		labels := make([]chart.Value2, len(points))
		for i, p := range points {
			labels[i] = chart.Value2{XValue: p.Log2Ratio, YValue: p.NegLog10Q, Label: p.ShortName}
		}
		series = append(series, chart.AnnotationSeries{
			Name:        "labels",
			Style:       chart.Style{FontSize: 7, FontColor: outlineColor, FillColor: drawing.ColorWhite.WithAlpha(0), StrokeColor: noStroke},
			Annotations: labels,
		})
	}

	grid := chart.Style{StrokeColor: gridColor, StrokeWidth: 1}
	w, h := opts.size()

	return chart.Chart{
		Title:      Title(opts.Ligand, c.Arm, opts.Project, opts.PeptideCount),
		Width:      w,
		Height:     h,
		Background: chart.Style{FillColor: drawing.ColorWhite, Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		Canvas:     chart.Style{FillColor: drawing.ColorWhite},
		XAxis: chart.XAxis{
			Name:           XAxisTitle,
			Range:          &chart.ContinuousRange{Min: -axes.XRange, Max: axes.XRange},
			Ticks:          ticks(-axes.XRange, axes.XRange, xTickStep),
			GridMajorStyle: grid,
		},
		YAxis: chart.YAxis{
			Name:           YAxisTitle,
			Range:          &chart.ContinuousRange{Min: 0, Max: axes.YRange},
			Ticks:          ticks(0, axes.YRange, yTickStep),
			GridMajorStyle: grid,
		},
		Series: series,
	}
}

// pointStyle returns a style that renders points only (no connecting line)
func pointStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeWidth: 0,
		StrokeColor: noStroke,
		DotWidth:    width,
		DotColor:    col,
	}
}

// rectSeries draws a rectangle standing on y=0 as the filled area under a
// horizontal segment at the rectangle's top edge.
func rectSeries(name string, r volcano.Rect) chart.ContinuousSeries {
	x0, x1 := math.Min(r.X0, r.X1), math.Max(r.X0, r.X1)
	top := math.Max(r.Y0, r.Y1)
	return chart.ContinuousSeries{
		Name:    name,
		XValues: []float64{x0, x1},
		YValues: []float64{top, top},
		Style: chart.Style{
			StrokeColor: noStroke,
			FillColor:   rectColor.WithAlpha(uint8(math.Round(r.Opacity * 255))),
		},
	}
}

func ticks(min, max, step float64) []chart.Tick {
	var out []chart.Tick
	for v := min; v <= max+step/1e6; v += step {
		out = append(out, chart.Tick{Value: v, Label: fmt.Sprintf("%g", v)})
	}
	return out
}

// RenderSVG renders the chart of a comparison as SVG.
func RenderSVG(c *compare.Comparison, axes volcano.Axes, opts Options) ([]byte, error) {
	points, err := Points(c)
	if err != nil {
		return nil, fmt.Errorf("failed to read points of %s: %w", c.Arm, err)
	}
	return renderSVG(c, points, axes, opts)
}

func renderSVG(c *compare.Comparison, points []Point, axes volcano.Axes, opts Options) ([]byte, error) {
	ch := Chart(c, points, axes, opts)
	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart %s: %w", c.Arm, err)
	}
	return buf.Bytes(), nil
}

var page = template.Must(template.New("volcano").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; background: #ffffff; }
table { border-collapse: collapse; font-size: 12px; }
th, td { border: 1px solid #bbbbbf; padding: 2px 6px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Enrichment threshold {{.Enrichment}}, statistical threshold {{.Statistical}}</p>
<figure>{{.SVG}}</figure>
<table>
<thead><tr><th>Protein Name (short)</th><th>Peptides</th><th>{{.XTitle}}</th><th>{{.YTitle}}</th></tr></thead>
<tbody>
{{range .Points}}<tr><td>{{.ShortName}}</td><td>{{.Peptides}}</td><td>{{printf "%.3f" .Log2Ratio}}</td><td>{{printf "%.3f" .NegLog10Q}}</td></tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// Render renders a standalone HTML page with the plot and a table of the
// plotted values.
func Render(c *compare.Comparison, axes volcano.Axes, t volcano.Thresholds, opts Options) ([]byte, error) {
	points, err := Points(c)
	if err != nil {
		return nil, fmt.Errorf("failed to read points of %s: %w", c.Arm, err)
	}
	svg, err := renderSVG(c, points, axes, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = page.Execute(&buf, map[string]interface{}{
		"Title":       Title(opts.Ligand, c.Arm, opts.Project, opts.PeptideCount),
		"Enrichment":  t.Enrichment,
		"Statistical": t.Statistical,
		"SVG":         template.HTML(svg),
		"XTitle":      XAxisTitle,
		"YTitle":      YAxisTitle,
		"Points":      points,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render page %s: %w", c.Arm, err)
	}
	return buf.Bytes(), nil
}
