// Package reactor turns a mechanism and a reaction condition into the
// right-hand side of a homogeneous ideal-gas batch reactor.
//
// The state vector is [n_1 ... n_N, T]: moles of each species in a reactor
// whose initial volume is 1 m^3, followed by temperature in K.
package reactor

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/kinsim/internal/condition"
	"github.com/san-kum/kinsim/internal/dynamo"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/units"
)

var ErrBadMultipliers = errors.New("reactor: rate multipliers must be positive, one per reaction")

// initialVolume is the reactor volume at t = 0, in m^3.
const initialVolume = 1.0

type term struct {
	species int
	coeff   int
}

type reaction struct {
	rxn        *mechanism.Reaction
	reactants  []term
	products   []term
	net        []term
	reversible bool
	deltaN     int
}

type System struct {
	mech    *mechanism.Mechanism
	reactor condition.ReactorType
	n       int
	t0      float64
	p0      float64
	x0      dynamo.State
	mult    []float64
	rxns    []reaction
	mw      []float64
}

type Option func(*System)

// WithMultipliers scales each forward and reverse rate coefficient. The
// slice is copied.
func WithMultipliers(m []float64) Option {
	return func(s *System) {
		s.mult = make([]float64, len(m))
		copy(s.mult, m)
	}
}

func New(m *mechanism.Mechanism, c *condition.Condition, opts ...Option) (*System, error) {
	s := &System{
		mech:    m,
		reactor: c.Reactor(),
		n:       len(m.Species),
		t0:      c.Temperature(),
		p0:      c.Pressure(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.mult == nil {
		s.mult = make([]float64, len(m.Reactions))
		for i := range s.mult {
			s.mult[i] = 1
		}
	}
	if len(s.mult) != len(m.Reactions) {
		return nil, fmt.Errorf("%w: got %d for %d reactions", ErrBadMultipliers, len(s.mult), len(m.Reactions))
	}
	for _, v := range s.mult {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %g", ErrBadMultipliers, v)
		}
	}

	s.mw = make([]float64, s.n)
	for i, sp := range m.Species {
		s.mw[i] = sp.MolecularWeight
	}

	for _, r := range m.Reactions {
		cr := reaction{rxn: r, reversible: r.Reversible, deltaN: r.DeltaN()}
		net := make(map[int]int)
		for _, st := range r.Reactants {
			i := m.SpeciesIndex(st.Species)
			cr.reactants = append(cr.reactants, term{i, st.Coeff})
			net[i] -= st.Coeff
		}
		for _, st := range r.Products {
			i := m.SpeciesIndex(st.Species)
			cr.products = append(cr.products, term{i, st.Coeff})
			net[i] += st.Coeff
		}
		for i := 0; i < s.n; i++ {
			if v := net[i]; v != 0 {
				cr.net = append(cr.net, term{i, v})
			}
		}
		s.rxns = append(s.rxns, cr)
	}

	total := s.p0 * initialVolume / (units.GasConstant * s.t0)
	s.x0 = make(dynamo.State, s.n+1)
	for sp, x := range c.MoleFractions() {
		i := m.SpeciesIndex(sp)
		if i < 0 {
			return nil, fmt.Errorf("reactor: condition species %s is not in mechanism %q", sp.Label(), m.Name)
		}
		s.x0[i] = x * total
	}
	s.x0[s.n] = s.t0

	return s, nil
}

func (s *System) StateDim() int { return s.n + 1 }

func (s *System) Mechanism() *mechanism.Mechanism { return s.mech }

func (s *System) InitialState() dynamo.State { return s.x0.Clone() }

func (s *System) Multipliers() []float64 { return append([]float64(nil), s.mult...) }

func (s *System) Temperature(x dynamo.State) float64 {
	if s.reactor.Isothermal() {
		return s.t0
	}
	return x[s.n]
}

func (s *System) totalMoles(x dynamo.State) float64 {
	total := 0.0
	for i := 0; i < s.n; i++ {
		total += x[i]
	}
	return total
}

// Volume in m^3. Constant-pressure reactors expand with the gas.
func (s *System) Volume(x dynamo.State) float64 {
	if !s.reactor.ConstantPressure() {
		return initialVolume
	}
	return s.totalMoles(x) * units.GasConstant * s.Temperature(x) / s.p0
}

// Pressure in Pa.
func (s *System) Pressure(x dynamo.State) float64 {
	if s.reactor.ConstantPressure() {
		return s.p0
	}
	return s.totalMoles(x) * units.GasConstant * s.Temperature(x) / initialVolume
}

func (s *System) MoleFractions(x dynamo.State) []float64 {
	out := make([]float64, s.n)
	total := s.totalMoles(x)
	if total == 0 {
		return out
	}
	for i := range out {
		out[i] = x[i] / total
	}
	return out
}

// TotalMass in kg.
func (s *System) TotalMass(x dynamo.State) float64 {
	m := 0.0
	for i := 0; i < s.n; i++ {
		m += x[i] * s.mw[i]
	}
	return m
}

// EquilibriumConstant returns K_c of reaction j (0-based) at T in SI
// concentration units.
func (s *System) EquilibriumConstant(j int, T float64) float64 {
	r := &s.rxns[j]
	dG := 0.0
	for _, t := range r.net {
		dG += float64(t.coeff) * s.mech.Species[t.species].Thermo.FreeEnergy(T)
	}
	RT := units.GasConstant * T
	return math.Exp(-dG/RT) * math.Pow(units.StandardPressure/RT, float64(r.deltaN))
}

// RateCoefficient returns the perturbed forward k of reaction j at T.
func (s *System) RateCoefficient(j int, T float64) float64 {
	return s.mult[j] * s.rxns[j].rxn.Kinetics.RateCoefficient(T)
}

// Rates returns the net rate of progress of every reaction in mol/(m^3 s).
func (s *System) Rates(x dynamo.State) []float64 {
	T := s.Temperature(x)
	V := s.Volume(x)
	conc := make([]float64, s.n)
	for i := range conc {
		conc[i] = x[i] / V
	}

	out := make([]float64, len(s.rxns))
	for j := range s.rxns {
		r := &s.rxns[j]
		kf := s.RateCoefficient(j, T)
		rate := kf * massAction(conc, r.reactants)
		if r.reversible {
			kr := kf / s.EquilibriumConstant(j, T)
			rate -= kr * massAction(conc, r.products)
		}
		out[j] = rate
	}
	return out
}

func massAction(conc []float64, terms []term) float64 {
	p := 1.0
	for _, t := range terms {
		c := conc[t.species]
		for k := 0; k < t.coeff; k++ {
			p *= c
		}
	}
	return p
}

func (s *System) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, s.n+1)
	V := s.Volume(x)
	for j, rate := range s.Rates(x) {
		for _, tm := range s.rxns[j].net {
			dx[tm.species] += V * float64(tm.coeff) * rate
		}
	}

	if !s.reactor.Isothermal() {
		dx[s.n] = s.dTdt(x, dx)
	}
	return dx
}

// dTdt is the adiabatic energy balance: enthalpy at constant pressure,
// internal energy at constant volume.
func (s *System) dTdt(x, dn dynamo.State) float64 {
	T := x[s.n]
	num, den := 0.0, 0.0
	constP := s.reactor.ConstantPressure()
	for i, sp := range s.mech.Species {
		cp := sp.Thermo.HeatCapacity(T)
		if constP {
			num += sp.Thermo.Enthalpy(T) * dn[i]
			den += x[i] * cp
		} else {
			num += sp.Thermo.InternalEnergy(T) * dn[i]
			den += x[i] * (cp - units.GasConstant)
		}
	}
	if den == 0 {
		return 0
	}
	return -num / den
}
