package reactor

import (
	"context"
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/kinsim/internal/condition"
	"github.com/san-kum/kinsim/internal/dynamo"
	"github.com/san-kum/kinsim/internal/integrators"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/mechanism/mechanismtest"
	"github.com/san-kum/kinsim/internal/units"
)

func pure(t *testing.T, m *mechanism.Mechanism, name string, reactor condition.ReactorType, T, P, d float64) *condition.Condition {
	t.Helper()
	s, ok := m.SpeciesByName(name)
	if !ok {
		t.Fatalf("no species %q", name)
	}
	c, err := condition.New(1, reactor, map[*mechanism.Species]float64{s: 1}, T, P, d)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func run(t *testing.T, sys *System, duration float64) *dynamo.Result {
	t.Helper()
	cfg := dynamo.Config{
		Dt:            1e-8,
		Duration:      duration,
		Tolerance:     1e-9,
		MinDt:         1e-16,
		Adaptive:      true,
		ValidateState: true,
	}
	res, err := dynamo.New(sys, integrators.NewRK45()).Run(context.Background(), sys.InitialState(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestInitialState(t *testing.T) {
	g := NewWithT(t)
	m := mechanismtest.LoadEthane(t)
	c := pure(t, m, "ethane", condition.ConstPressureTemperature, 1300, 1e5, 5e-4)

	sys, err := New(m, c)
	g.Expect(err).NotTo(HaveOccurred())

	x0 := sys.InitialState()
	g.Expect(x0).To(HaveLen(3))
	g.Expect(sys.StateDim()).To(Equal(3))
	g.Expect(x0[0]).To(BeNumerically("~", 1e5/(units.GasConstant*1300), 1e-9))
	g.Expect(x0[1]).To(BeZero())
	g.Expect(x0[2]).To(Equal(1300.0))
	g.Expect(sys.Pressure(x0)).To(Equal(1e5))
	g.Expect(sys.Volume(x0)).To(BeNumerically("~", 1.0, 1e-12))
	g.Expect(sys.MoleFractions(x0)).To(Equal([]float64{1, 0}))
}

func TestFirstOrderDecay(t *testing.T) {
	m := mechanismtest.LoadEthane(t)
	rxn := m.Reactions[0]
	k := rxn.Kinetics.RateCoefficient(1300)

	for _, rt := range []condition.ReactorType{condition.ConstPressureTemperature, condition.ConstVolumeTemperature} {
		t.Run(string(rt), func(t *testing.T) {
			sys, err := New(m, pure(t, m, "ethane", rt, 1300, 1e5, 5e-4))
			if err != nil {
				t.Fatal(err)
			}
			res := run(t, sys, 5e-4)

			x0 := sys.InitialState()
			final := res.Final()
			want := x0[0] * math.Exp(-k*5e-4)
			if math.Abs(final[0]-want)/want > 1e-6 {
				t.Errorf("n(ethane) = %g, want %g", final[0], want)
			}
			if math.Abs(final[1]-2*(x0[0]-final[0]))/final[1] > 1e-9 {
				t.Errorf("methane %g does not match twice the ethane consumed", final[1])
			}
			if final[2] != 1300 {
				t.Errorf("isothermal reactor changed T to %g", final[2])
			}
		})
	}
}

func TestConstantVolumePressureRises(t *testing.T) {
	m := mechanismtest.LoadEthane(t)
	sys, err := New(m, pure(t, m, "ethane", condition.ConstVolumeTemperature, 1300, 1e5, 5e-4))
	if err != nil {
		t.Fatal(err)
	}
	res := run(t, sys, 5e-4)

	if p := sys.Pressure(res.Final()); p <= 1e5 {
		t.Errorf("ethane => 2 methane at fixed V should raise P, got %g", p)
	}
}

func TestAdiabaticEnergyBalance(t *testing.T) {
	m := mechanismtest.LoadEthane(t)

	// constant P conserves enthalpy, constant V conserves internal energy
	energy := func(sys *System, x dynamo.State, constP bool) float64 {
		T := sys.Temperature(x)
		e := 0.0
		for i, sp := range m.Species {
			if constP {
				e += x[i] * sp.Thermo.Enthalpy(T)
			} else {
				e += x[i] * sp.Thermo.InternalEnergy(T)
			}
		}
		return e
	}

	for _, rt := range []condition.ReactorType{condition.ConstPressure, condition.ConstVolume} {
		t.Run(string(rt), func(t *testing.T) {
			sys, err := New(m, pure(t, m, "ethane", rt, 1300, 1e5, 5e-4))
			if err != nil {
				t.Fatal(err)
			}
			res := run(t, sys, 5e-4)
			x0, final := sys.InitialState(), res.Final()

			if T := sys.Temperature(final); math.Abs(T-1300) < 1 {
				t.Errorf("adiabatic reactor should change temperature, got T=%g", T)
			}
			e0 := energy(sys, x0, rt.ConstantPressure())
			e1 := energy(sys, final, rt.ConstantPressure())
			if math.Abs(e1-e0) > 1e-5*math.Abs(e0) {
				t.Errorf("energy drifted from %g to %g", e0, e1)
			}
		})
	}
}

func TestReversibleIsomerisation(t *testing.T) {
	g := NewWithT(t)
	m := mechanismtest.Load(t, mechanismtest.IsomerMechanism)
	sys, err := New(m, pure(t, m, "A", condition.ConstPressureTemperature, 1000, 1e5, 2e-3))
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(sys.EquilibriumConstant(0, 1000)).To(BeNumerically("~", 1, 1e-12))

	res := run(t, sys, 2e-3)
	x := sys.MoleFractions(res.Final())

	// kf = kr = 1000 s^-1, so x_A = (1 + exp(-2kt)) / 2
	want := 0.5 * (1 + math.Exp(-2*1000*2e-3))
	g.Expect(x[0]).To(BeNumerically("~", want, 1e-6))
	g.Expect(x[0] + x[1]).To(BeNumerically("~", 1, 1e-12))
	g.Expect(sys.TotalMass(res.Final())).To(BeNumerically("~", sys.TotalMass(sys.InitialState()), 1e-12))
}

func TestEquilibriumBalancesRates(t *testing.T) {
	m := mechanismtest.Load(t, mechanismtest.EthaneMechanism+`  - equation: methane + methane <=> ethane
    kinetics:
      A: [1.0e6, cm^3/(mol*s)]
      n: 0
      Ea: [0, J/mol]
`)
	sys, err := New(m, pure(t, m, "ethane", condition.ConstVolumeTemperature, 1300, 1e5, 1e-3))
	if err != nil {
		t.Fatal(err)
	}

	// pick concentrations with c_ethane / c_methane^2 = K_c
	const T = 1300.0
	Kc := sys.EquilibriumConstant(1, T)
	cm := 10.0
	x := dynamo.State{Kc * cm * cm, cm, T}

	rate := sys.Rates(x)[1]
	kf := sys.RateCoefficient(1, T)
	if math.Abs(rate) > 1e-9*kf*cm*cm {
		t.Errorf("net rate at equilibrium = %g, forward alone = %g", rate, kf*cm*cm)
	}
}

func TestMultipliers(t *testing.T) {
	m := mechanismtest.LoadEthane(t)
	c := pure(t, m, "ethane", condition.ConstPressureTemperature, 1300, 1e5, 5e-4)

	base, err := New(m, c)
	if err != nil {
		t.Fatal(err)
	}
	doubled, err := New(m, c, WithMultipliers([]float64{2}))
	if err != nil {
		t.Fatal(err)
	}

	x := base.InitialState()
	if got, want := doubled.Derive(x, 0)[0], 2*base.Derive(x, 0)[0]; math.Abs(got-want) > 1e-12*math.Abs(want) {
		t.Errorf("doubled rate %g, want %g", got, want)
	}
	if m.Reactions[0].Kinetics.A.Value != 2.0e16 {
		t.Error("multipliers must not touch the mechanism kinetics")
	}

	for _, bad := range [][]float64{{}, {1, 1}, {0}, {-1}} {
		if _, err := New(m, c, WithMultipliers(bad)); !errors.Is(err, ErrBadMultipliers) {
			t.Errorf("WithMultipliers(%v): expected ErrBadMultipliers, got %v", bad, err)
		}
	}
}

func TestTabulate(t *testing.T) {
	g := NewWithT(t)
	m := mechanismtest.LoadEthane(t)
	sys, err := New(m, pure(t, m, "ethane", condition.ConstPressureTemperature, 1300, 1e5, 5e-4))
	g.Expect(err).NotTo(HaveOccurred())

	res := run(t, sys, 5e-4)
	tb, T, P, err := sys.Tabulate(res)
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(tb.Names()).To(Equal([]string{"ethane(1)", "methane(2)"}))
	g.Expect(tb.Len()).To(Equal(len(res.Times)))
	g.Expect(T).To(HaveEach(1300.0))
	g.Expect(P).To(HaveEach(1e5))

	final := tb.Final()
	g.Expect(final["ethane(1)"] + final["methane(2)"]).To(BeNumerically("~", 1, 1e-12))
	g.Expect(final["methane(2)"]).To(BeNumerically(">", 0.3))
}
