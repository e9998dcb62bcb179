// Package metrics provides run observers recorded alongside every reactor
// simulation.
package metrics

import (
	"math"

	"github.com/san-kum/kinsim/internal/dynamo"
)

// Reactor is what the metrics need to read from a state.
type Reactor interface {
	TotalMass(x dynamo.State) float64
	MoleFractions(x dynamo.State) []float64
	Temperature(x dynamo.State) float64
}

// All returns a fresh set of the standard metrics for sys.
func All(sys Reactor) []dynamo.Metric {
	return []dynamo.Metric{
		NewMassDrift(sys),
		NewMinMoleFraction(sys),
		NewFinalTemperature(sys),
	}
}

// MassDrift is the largest relative change in total mass seen so far. It
// stays near zero only for mechanisms whose reactions balance mass; see
// mechanism.Reaction.MassChange.
type MassDrift struct {
	name     string
	sys      Reactor
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift(sys Reactor) *MassDrift {
	return &MassDrift{
		name: "mass_drift",
		sys:  sys,
	}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(x dynamo.State, t float64) {
	mass := m.sys.TotalMass(x)
	if m.samples == 0 {
		m.initial = mass
	}
	m.samples++

	if m.initial != 0 {
		drift := math.Abs(mass-m.initial) / math.Abs(m.initial)
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *MassDrift) Value() float64 {
	return m.maxDrift
}

func (m *MassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}
