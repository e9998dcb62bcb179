package metrics

import (
	"math"

	"github.com/san-kum/kinsim/internal/dynamo"
)

// MinMoleFraction tracks the most negative mole fraction seen. A value below
// zero flags integrator undershoot; zero means every fraction stayed
// non-negative.
type MinMoleFraction struct {
	name    string
	sys     Reactor
	min     float64
	samples int
}

func NewMinMoleFraction(sys Reactor) *MinMoleFraction {
	return &MinMoleFraction{
		name: "min_mole_fraction",
		sys:  sys,
	}
}

func (m *MinMoleFraction) Name() string { return m.name }

func (m *MinMoleFraction) Observe(x dynamo.State, t float64) {
	m.samples++
	for _, v := range m.sys.MoleFractions(x) {
		m.min = math.Min(m.min, v)
	}
}

func (m *MinMoleFraction) Value() float64 {
	return m.min
}

func (m *MinMoleFraction) Reset() {
	m.min = 0
	m.samples = 0
}

// FinalTemperature reports the temperature of the last observed state.
type FinalTemperature struct {
	name string
	sys  Reactor
	last float64
}

func NewFinalTemperature(sys Reactor) *FinalTemperature {
	return &FinalTemperature{
		name: "final_temperature",
		sys:  sys,
	}
}

func (f *FinalTemperature) Name() string { return f.name }

func (f *FinalTemperature) Observe(x dynamo.State, t float64) {
	f.last = f.sys.Temperature(x)
}

func (f *FinalTemperature) Value() float64 { return f.last }

func (f *FinalTemperature) Reset() { f.last = 0 }
