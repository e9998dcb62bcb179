package reactor

import (
	"github.com/san-kum/kinsim/internal/dynamo"
	"github.com/san-kum/kinsim/internal/series"
)

// Tabulate converts a trajectory into a mole-fraction table with one column
// per species label, plus the temperature and pressure histories.
func (s *System) Tabulate(res *dynamo.Result) (*series.Table, []float64, []float64, error) {
	tb := series.NewTable(res.Times)
	n := len(res.States)
	cols := make([][]float64, s.n)
	for i := range cols {
		cols[i] = make([]float64, n)
	}
	temperature := make([]float64, n)
	pressure := make([]float64, n)

	for k, x := range res.States {
		for i, v := range s.MoleFractions(x) {
			cols[i][k] = v
		}
		temperature[k] = s.Temperature(x)
		pressure[k] = s.Pressure(x)
	}

	for i, sp := range s.mech.Species {
		if err := tb.Add(sp.Label(), cols[i]); err != nil {
			return nil, nil, nil, err
		}
	}
	return tb, temperature, pressure, nil
}
