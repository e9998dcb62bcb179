package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/kinsim/internal/series"
)

var previewColors = []asciigraph.AnsiColor{
	asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow, asciigraph.Cyan, asciigraph.Magenta,
}

// Preview draws the topN columns of tb by maximum value as a terminal line
// chart.
func Preview(w io.Writer, tb *series.Table, topN int) error {
	if tb == nil || tb.Len() == 0 || len(tb.Columns) == 0 {
		return errors.New("report: nothing to preview")
	}
	if topN <= 0 || topN > len(previewColors) {
		topN = len(previewColors)
	}

	cols := tb.TopByMax(topN)
	data := make([][]float64, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		data[i] = c.Values
		names[i] = c.Name
	}

	graph := asciigraph.PlotMany(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(previewColors[:len(cols)]...),
		asciigraph.Caption(fmt.Sprintf("t = %.3g..%.3g s: %s", tb.Time[0], tb.Time[tb.Len()-1], strings.Join(names, ", "))),
	)
	_, err := fmt.Fprintln(w, graph)
	return err
}
