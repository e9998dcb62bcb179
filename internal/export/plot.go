// Package export renders simulation tables to PNG or SVG charts.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/san-kum/kinsim/internal/series"
)

var (
	ErrUnsupportedFormat = errors.New("export: unsupported image format")
	ErrNothingToPlot     = errors.New("export: nothing to plot")
)

const maxLabel = 28

type Options struct {
	Title  string
	XLabel string
	YLabel string
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 1024
	}
	if h <= 0 {
		h = 640
	}
	return w, h
}

func renderer(path string) (chart.RendererProvider, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return chart.PNG, nil
	case ".svg":
		return chart.SVG, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LinePlot draws the topN columns by maximum value against time. topN <= 0
// plots every column.
func LinePlot(path string, tb *series.Table, topN int, opts Options) error {
	rp, err := renderer(path)
	if err != nil {
		return err
	}
	if tb == nil || tb.Len() < 2 || len(tb.Columns) == 0 {
		return fmt.Errorf("%w: %s needs at least two time points and one column", ErrNothingToPlot, filepath.Base(path))
	}

	cols := tb.TopByMax(topN)
	lo, hi := math.Inf(1), math.Inf(-1)
	var plotted []chart.Series
	for i, c := range cols {
		if !finite(c.Values) {
			continue
		}
		for _, v := range c.Values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		plotted = append(plotted, chart.ContinuousSeries{
			Name:    truncate(c.Name),
			XValues: tb.Time,
			YValues: c.Values,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(i),
				StrokeWidth: 2,
			},
		})
	}
	if len(plotted) == 0 {
		return fmt.Errorf("%w: %s has no finite column", ErrNothingToPlot, filepath.Base(path))
	}

	w, h := opts.size()
	graph := chart.Chart{
		Title:  opts.Title,
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           opts.XLabel,
			ValueFormatter: sciFormatter,
		},
		YAxis: chart.YAxis{
			Name:           opts.YLabel,
			ValueFormatter: sciFormatter,
			Range:          yRange(lo, hi),
		},
		Series: plotted,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	return render(path, func(buf *bytes.Buffer) error { return graph.Render(rp, buf) })
}

// BarPlot draws the final value of the topN columns ranked by |final value|.
func BarPlot(path string, tb *series.Table, topN int, opts Options) error {
	rp, err := renderer(path)
	if err != nil {
		return err
	}
	if tb == nil || tb.Len() == 0 || len(tb.Columns) == 0 {
		return fmt.Errorf("%w: %s has no columns", ErrNothingToPlot, filepath.Base(path))
	}

	lo, hi := 0.0, 0.0
	var bars []chart.Value
	for _, c := range tb.TopByFinalAbs(topN) {
		v := c.Final()
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		bars = append(bars, chart.Value{Value: v, Label: truncate(c.Name)})
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: %s has no finite final value", ErrNothingToPlot, filepath.Base(path))
	}

	w, h := opts.size()
	barWidth := (w - 120) / (2 * len(bars))
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 4 {
		barWidth = 4
	}

	graph := chart.BarChart{
		Title:  opts.Title,
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		BarWidth:     barWidth,
		BarSpacing:   barWidth,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Name:           opts.YLabel,
			ValueFormatter: sciFormatter,
			Range:          yRange(lo, hi),
		},
		Bars: bars,
	}

	return render(path, func(buf *bytes.Buffer) error { return graph.Render(rp, buf) })
}

func render(path string, draw func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		return fmt.Errorf("export: render %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// yRange pads the data range so a flat series still has a drawable axis.
func yRange(lo, hi float64) *chart.ContinuousRange {
	span := hi - lo
	if span == 0 {
		pad := math.Max(math.Abs(hi)*0.1, 1e-12)
		if hi == 0 {
			pad = 1
		}
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	return &chart.ContinuousRange{Min: lo - 0.05*span, Max: hi + 0.05*span}
}

func finite(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLabel {
		return s
	}
	return string(r[:maxLabel-3]) + "..."
}

func sciFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	if f == 0 {
		return "0"
	}
	if a := math.Abs(f); a < 1e-2 || a >= 1e4 {
		return fmt.Sprintf("%.2e", f)
	}
	return fmt.Sprintf("%.3g", f)
}
