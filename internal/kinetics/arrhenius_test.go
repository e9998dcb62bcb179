package kinetics

import (
	"math"
	"testing"

	"github.com/san-kum/kinsim/internal/units"
)

func ethaneArrhenius() *Arrhenius {
	return &Arrhenius{
		A:       units.New(1.0e12, "cm^3/(mol*s)"),
		N:       0.5,
		Ea:      units.New(41.84, "kJ/mol"),
		T0:      units.New(1, "K"),
		Tmin:    units.New(300, "K"),
		Tmax:    units.New(3000, "K"),
		Comment: "C2H6",
	}
}

func TestArrheniusSI(t *testing.T) {
	arr := ethaneArrhenius()
	if err := arr.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	if got := arr.A.MustSI() * 1e6; math.Abs(got-1e12) > 1 {
		t.Errorf("A = %g, want 1e12", got)
	}
	if got := arr.Ea.MustSI() * 0.001; math.Abs(got-41.84) > 1e-9 {
		t.Errorf("Ea = %g, want 41.84", got)
	}
}

func TestArrheniusIsTemperatureValid(t *testing.T) {
	arr := ethaneArrhenius()
	data := []float64{200, 400, 600, 800, 1000, 1200, 1400, 1600, 1800, 2000}
	valid := []bool{false, true, true, true, true, true, true, true, true, true}

	for i, T := range data {
		if got := arr.IsTemperatureValid(T); got != valid[i] {
			t.Errorf("IsTemperatureValid(%g) = %v, want %v", T, got, valid[i])
		}
	}

	open := &Arrhenius{A: units.New(1, "s^-1")}
	if !open.IsTemperatureValid(50) || !open.IsTemperatureValid(1e5) {
		t.Error("unbounded range should accept any temperature")
	}
}

func TestArrheniusRateCoefficient(t *testing.T) {
	arr := ethaneArrhenius()
	temps := []float64{200, 400, 600, 800, 1000, 1200, 1400, 1600, 1800, 2000}
	expected := []float64{1.6721e-4, 6.8770e1, 5.5803e3, 5.2448e4, 2.0632e5, 5.2285e5, 1.0281e6, 1.7225e6, 2.5912e6, 3.6123e6}

	for i, T := range temps {
		got := arr.RateCoefficient(T)
		if math.Abs(got-expected[i]) > 1e-4*expected[i] {
			t.Errorf("k(%g) = %g, want %g", T, got, expected[i])
		}
	}
}

func TestArrheniusChangeT0(t *testing.T) {
	arr := ethaneArrhenius()
	temps := []float64{300, 500, 700, 900, 1100, 1300, 1500}
	before := make([]float64, len(temps))
	for i, T := range temps {
		before[i] = arr.RateCoefficient(T)
	}

	arr.ChangeT0(300)
	if arr.T0.MustSI() != 300 {
		t.Errorf("T0 = %g, want 300", arr.T0.MustSI())
	}

	for i, T := range temps {
		got := arr.RateCoefficient(T)
		if math.Abs(got-before[i]) > 1e-6*before[i] {
			t.Errorf("k(%g) changed: %g -> %g", T, before[i], got)
		}
	}
}

func TestArrheniusChangeRate(t *testing.T) {
	arr := ethaneArrhenius()
	k0 := arr.RateCoefficient(1000)

	scaled := arr.Scaled(2)
	if got := scaled.RateCoefficient(1000); math.Abs(got-2*k0) > 1e-6*k0 {
		t.Errorf("scaled k = %g, want %g", got, 2*k0)
	}
	if got := arr.RateCoefficient(1000); got != k0 {
		t.Errorf("Scaled mutated the original: %g != %g", got, k0)
	}

	arr.ChangeRate(2)
	if got := arr.RateCoefficient(1000); math.Abs(got-2*k0) > 1e-6*k0 {
		t.Errorf("ChangeRate k = %g, want %g", got, 2*k0)
	}
}

func TestArrheniusValidate(t *testing.T) {
	tests := []struct {
		name string
		arr  Arrhenius
	}{
		{"negative A", Arrhenius{A: units.New(-1, "s^-1")}},
		{"bad units", Arrhenius{A: units.New(1, "parsec")}},
		{"negative T0", Arrhenius{A: units.New(1, "s^-1"), T0: units.New(-1, "K")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.arr.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
