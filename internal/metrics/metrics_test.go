package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/kinsim/internal/dynamo"
)

// fakeReactor treats x as [n_A, n_B, T] with molar masses 1 and 2.
type fakeReactor struct{}

func (fakeReactor) TotalMass(x dynamo.State) float64 { return x[0] + 2*x[1] }
func (fakeReactor) MoleFractions(x dynamo.State) []float64 {
	total := x[0] + x[1]
	return []float64{x[0] / total, x[1] / total}
}
func (fakeReactor) Temperature(x dynamo.State) float64 { return x[2] }

func TestMassDrift(t *testing.T) {
	m := NewMassDrift(fakeReactor{})

	m.Observe(dynamo.State{1, 0, 300}, 0)
	m.Observe(dynamo.State{1.1, 0, 300}, 1)
	m.Observe(dynamo.State{1.05, 0, 300}, 2)

	if math.Abs(m.Value()-0.1) > 1e-12 {
		t.Errorf("expected max drift 0.1, got %g", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestMinMoleFraction(t *testing.T) {
	m := NewMinMoleFraction(fakeReactor{})

	m.Observe(dynamo.State{1, 0, 300}, 0)
	if m.Value() != 0 {
		t.Errorf("non-negative fractions should report 0, got %g", m.Value())
	}

	m.Observe(dynamo.State{1.1, -0.1, 300}, 1)
	if math.Abs(m.Value()+0.1) > 1e-12 {
		t.Errorf("expected -0.1, got %g", m.Value())
	}
}

func TestFinalTemperature(t *testing.T) {
	m := NewFinalTemperature(fakeReactor{})
	m.Observe(dynamo.State{1, 0, 300}, 0)
	m.Observe(dynamo.State{1, 0, 1250}, 1)
	if m.Value() != 1250 {
		t.Errorf("expected 1250, got %g", m.Value())
	}
}

func TestAllNames(t *testing.T) {
	want := map[string]bool{"mass_drift": true, "min_mole_fraction": true, "final_temperature": true}
	for _, m := range All(fakeReactor{}) {
		if !want[m.Name()] {
			t.Errorf("unexpected metric %q", m.Name())
		}
		delete(want, m.Name())
	}
	if len(want) != 0 {
		t.Errorf("missing metrics %v", want)
	}
}
