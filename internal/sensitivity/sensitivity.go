// Package sensitivity computes normalised concentration sensitivities
// d ln X_i / d ln k_j by brute-force perturbation of each rate coefficient.
//
// Every reaction is run twice, with its rate multiplied by exp(+delta) and
// exp(-delta). The central difference of the perturbed mole fractions,
// sampled on the base run's time axis, gives
//
//	S_ij(t) = (X_i+(t) - X_i-(t)) / (2 delta X_i(t))
//
// which is zero wherever the base mole fraction is zero.
package sensitivity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/kinsim/internal/dynamo"
	"github.com/san-kum/kinsim/internal/integrators"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/series"
)

const DefaultRelStep = 1e-3

var ErrNoReactions = errors.New("sensitivity: mechanism has no reactions")

// System is a perturbed reactor ready to integrate.
type System interface {
	dynamo.System
	InitialState() dynamo.State
	MoleFractions(x dynamo.State) []float64
}

// Builder returns a fresh System whose rate coefficients are scaled by
// multipliers, one per mechanism reaction.
type Builder func(multipliers []float64) (System, error)

type Options struct {
	RelStep     float64
	Parallelism int
	Integrator  string
	Config      dynamo.Config
	Logger      zerolog.Logger
}

func (o *Options) defaults() {
	if o.RelStep <= 0 {
		o.RelStep = DefaultRelStep
	}
	if o.Integrator == "" {
		o.Integrator = "rk45"
	}
}

// ColumnName is the exported column header for species label against
// reaction r.
func ColumnName(label string, r *mechanism.Reaction) string {
	return fmt.Sprintf("dln[%s]/dln[k%d]: %s", label, r.Index, r.Equation())
}

// Analyze returns one table per tracked species, keyed by species label,
// with a column per mechanism reaction. base is the unperturbed mole
// fraction table; its time axis is the output grid.
func Analyze(
	ctx context.Context,
	m *mechanism.Mechanism,
	build Builder,
	base *series.Table,
	species []*mechanism.Species,
	opts Options,
) (map[string]*series.Table, error) {
	opts.defaults()
	nr := len(m.Reactions)
	if nr == 0 {
		return nil, ErrNoReactions
	}

	baseCols := make([]series.Column, len(species))
	for i, s := range species {
		c, ok := base.Column(s.Label())
		if !ok {
			return nil, fmt.Errorf("sensitivity: base table has no column %q", s.Label())
		}
		baseCols[i] = c
	}

	up, down := math.Exp(opts.RelStep), math.Exp(-opts.RelStep)
	systems := make([]System, 2*nr)
	buildRun := func(i int) (*dynamo.Simulator, dynamo.State, error) {
		mult := make([]float64, nr)
		for j := range mult {
			mult[j] = 1
		}
		if i%2 == 0 {
			mult[i/2] = up
		} else {
			mult[i/2] = down
		}
		sys, err := build(mult)
		if err != nil {
			return nil, nil, err
		}
		integ, err := integrators.New(opts.Integrator)
		if err != nil {
			return nil, nil, err
		}
		systems[i] = sys
		return dynamo.New(sys, integ), sys.InitialState(), nil
	}

	start := time.Now()
	runs, err := dynamo.NewEnsemble(buildRun, 2*nr, opts.Parallelism).Run(ctx, opts.Config)
	if err != nil {
		return nil, fmt.Errorf("sensitivity: perturbed run: %w", err)
	}
	opts.Logger.Debug().
		Int("runs", len(runs)).
		Dur("elapsed", time.Since(start)).
		Msg("perturbed runs complete")

	idx := make([]int, len(species))
	for i, s := range species {
		idx[i] = m.SpeciesIndex(s)
	}

	out := make(map[string]*series.Table, len(species))
	tables := make([]*series.Table, len(species))
	for i, s := range species {
		tables[i] = series.NewTable(base.Time)
		out[s.Label()] = tables[i]
	}

	for j, r := range m.Reactions {
		plus := sample(systems[2*j], runs[2*j], base.Time)
		minus := sample(systems[2*j+1], runs[2*j+1], base.Time)

		for i, s := range species {
			values := make([]float64, len(base.Time))
			for k, x := range baseCols[i].Values {
				if x == 0 {
					continue
				}
				values[k] = (plus[k][idx[i]] - minus[k][idx[i]]) / (2 * opts.RelStep * x)
			}
			if err := tables[i].Add(ColumnName(s.Label(), r), values); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// sample interpolates a run onto grid and converts each state to mole
// fractions.
func sample(sys System, res *dynamo.Result, grid []float64) [][]float64 {
	out := make([][]float64, len(grid))
	for k, t := range grid {
		out[k] = sys.MoleFractions(res.At(t))
	}
	return out
}
