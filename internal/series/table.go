// Package series holds simulation output as named columns over a shared
// time axis.
package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrColumnLength = errors.New("series: column length does not match time axis")

type Column struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Max is the largest finite value, or -Inf for an empty column.
func (c Column) Max() float64 {
	m := math.Inf(-1)
	for _, v := range c.Values {
		if v > m {
			m = v
		}
	}
	return m
}

// Final is the last value, zero for an empty column.
func (c Column) Final() float64 {
	if len(c.Values) == 0 {
		return 0
	}
	return c.Values[len(c.Values)-1]
}

// Table stores columns sharing one time axis in seconds.
type Table struct {
	Time    []float64 `json:"time"`
	Columns []Column  `json:"columns"`
}

func NewTable(time []float64) *Table {
	return &Table{Time: append([]float64(nil), time...)}
}

// Add appends a column. Values must have one entry per time point.
func (t *Table) Add(name string, values []float64) error {
	if len(values) != len(t.Time) {
		return fmt.Errorf("%w: %q has %d values for %d times", ErrColumnLength, name, len(values), len(t.Time))
	}
	t.Columns = append(t.Columns, Column{Name: name, Values: values})
	return nil
}

func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

func (t *Table) Len() int { return len(t.Time) }

// Final returns the last value of every column by name.
func (t *Table) Final() map[string]float64 {
	out := make(map[string]float64, len(t.Columns))
	for _, c := range t.Columns {
		out[c.Name] = c.Final()
	}
	return out
}

// TopByMax returns the n columns with the largest maximum value. Ties go to
// the lexically smaller name. n <= 0 returns every column in that order.
func (t *Table) TopByMax(n int) []Column {
	return t.top(n, func(c Column) float64 { return c.Max() })
}

// TopByFinalAbs returns the n columns with the largest |final value|.
func (t *Table) TopByFinalAbs(n int) []Column {
	return t.top(n, func(c Column) float64 { return math.Abs(c.Final()) })
}

func (t *Table) top(n int, key func(Column) float64) []Column {
	idx := make([]int, len(t.Columns))
	keys := make([]float64, len(t.Columns))
	for i, c := range t.Columns {
		idx[i] = i
		k := key(c)
		if math.IsNaN(k) {
			k = math.Inf(-1)
		}
		keys[i] = k
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if keys[i] != keys[j] {
			return keys[i] > keys[j]
		}
		return t.Columns[i].Name < t.Columns[j].Name
	})
	if n > 0 && n < len(idx) {
		idx = idx[:n]
	}
	cols := make([]Column, len(idx))
	for k, i := range idx {
		cols[k] = t.Columns[i]
	}
	return cols
}

// Equal reports exact equality of time axes, column names and values.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !floatsEqual(t.Time, o.Time) || len(t.Columns) != len(o.Columns) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i].Name != o.Columns[i].Name || !floatsEqual(t.Columns[i].Values, o.Columns[i].Values) {
			return false
		}
	}
	return true
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}
	return true
}
