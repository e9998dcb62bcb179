// Package condition builds the reaction conditions a driver simulates: a
// reactor type, an initial composition, temperature, pressure and a
// termination time.
package condition

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/kinsim/internal/mechanism"
)

var (
	ErrEmptySweep       = errors.New("condition: sweep axis is empty")
	ErrUnknownReactor   = errors.New("condition: unknown reactor type")
	ErrInvalidCondition = errors.New("condition: invalid condition")
)

// Condition is immutable once built. Mole fractions are normalised to sum
// to one.
type Condition struct {
	index    int
	reactor  ReactorType
	x        map[*mechanism.Species]float64
	order    []*mechanism.Species
	t        float64
	p        float64
	duration float64
}

// New validates and normalises one condition. T is in K, P in Pa and
// duration in s.
func New(index int, reactor ReactorType, moleFractions map[*mechanism.Species]float64, T, P, duration float64) (*Condition, error) {
	if _, err := ParseReactorType(string(reactor)); err != nil {
		return nil, err
	}
	if !(T > 0) || math.IsInf(T, 0) {
		return nil, fmt.Errorf("%w: temperature %g K", ErrInvalidCondition, T)
	}
	if !(P > 0) || math.IsInf(P, 0) {
		return nil, fmt.Errorf("%w: pressure %g Pa", ErrInvalidCondition, P)
	}
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: duration %g s", ErrInvalidCondition, duration)
	}

	total := 0.0
	for s, v := range moleFractions {
		if s == nil {
			return nil, fmt.Errorf("%w: nil species in composition", ErrInvalidCondition)
		}
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: mole fraction of %s is %g", ErrInvalidCondition, s.Label(), v)
		}
		total += v
	}
	if !(total > 0) {
		return nil, fmt.Errorf("%w: composition has no positive mole fraction", ErrInvalidCondition)
	}

	c := &Condition{
		index:    index,
		reactor:  reactor,
		x:        make(map[*mechanism.Species]float64, len(moleFractions)),
		t:        T,
		p:        P,
		duration: duration,
	}
	for s, v := range moleFractions {
		c.x[s] = v / total
		c.order = append(c.order, s)
	}
	sort.Slice(c.order, func(i, j int) bool { return c.order[i].Index < c.order[j].Index })
	return c, nil
}

func (c *Condition) Index() int           { return c.index }
func (c *Condition) Reactor() ReactorType { return c.reactor }
func (c *Condition) Temperature() float64 { return c.t }
func (c *Condition) Pressure() float64    { return c.p }
func (c *Condition) Duration() float64    { return c.duration }

// MoleFractions returns a copy of the normalised initial composition.
func (c *Condition) MoleFractions() map[*mechanism.Species]float64 {
	out := make(map[*mechanism.Species]float64, len(c.x))
	for s, v := range c.x {
		out[s] = v
	}
	return out
}

// MoleFraction returns the initial mole fraction of s, zero if absent.
func (c *Condition) MoleFraction(s *mechanism.Species) float64 {
	return c.x[s]
}

// Species lists the species present initially, in mechanism order.
func (c *Condition) Species() []*mechanism.Species {
	out := make([]*mechanism.Species, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Condition) String() string {
	parts := make([]string, len(c.order))
	for i, s := range c.order {
		parts[i] = fmt.Sprintf("%s=%.4g", s.Label(), c.x[s])
	}
	return fmt.Sprintf("#%d %s T=%gK P=%gPa t=%gs {%s}",
		c.index, c.reactor, c.t, c.p, c.duration, strings.Join(parts, ", "))
}

// Generate returns the Cartesian product of the axes with 1-based indices in
// generation order. Nesting is reactor, composition, temperature, pressure,
// duration, with duration varying fastest.
func Generate(
	reactors []ReactorType,
	durations []float64,
	moleFractions []map[*mechanism.Species]float64,
	temperatures []float64,
	pressures []float64,
) ([]*Condition, error) {
	axes := []struct {
		name string
		n    int
	}{
		{"reactors", len(reactors)},
		{"durations", len(durations)},
		{"mole fractions", len(moleFractions)},
		{"temperatures", len(temperatures)},
		{"pressures", len(pressures)},
	}
	size := 1
	for _, a := range axes {
		if a.n == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptySweep, a.name)
		}
		size *= a.n
	}

	out := make([]*Condition, 0, size)
	for _, r := range reactors {
		for _, x := range moleFractions {
			for _, T := range temperatures {
				for _, P := range pressures {
					for _, d := range durations {
						c, err := New(len(out)+1, r, x, T, P, d)
						if err != nil {
							return nil, err
						}
						out = append(out, c)
					}
				}
			}
		}
	}
	return out, nil
}
