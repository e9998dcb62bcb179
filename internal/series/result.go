package series

import (
	"sort"

	"github.com/san-kum/kinsim/internal/condition"
)

// Result is one simulated condition. Sensitivities is keyed by species
// label; each table has one column per reaction.
type Result struct {
	Condition     *condition.Condition
	MoleFractions *Table
	Sensitivities map[string]*Table
	Temperature   []float64
	Pressure      []float64
	StepsTaken    int
	Rejected      int
	Metrics       map[string]float64
}

// SensitivityLabels returns the species labels with sensitivity tables, in
// sorted order.
func (r *Result) SensitivityLabels() []string {
	out := make([]string, 0, len(r.Sensitivities))
	for l := range r.Sensitivities {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
