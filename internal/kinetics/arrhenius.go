// Package kinetics provides rate-coefficient models for elementary reactions.
package kinetics

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/kinsim/internal/units"
)

var ErrInvalidRate = errors.New("kinetics: invalid rate parameters")

// Arrhenius is the modified Arrhenius form k(T) = A (T/T0)^n exp(-Ea/RT).
// A zero Tmin or Tmax leaves that side of the valid range open.
type Arrhenius struct {
	A       units.Quantity `yaml:"A"`
	N       float64        `yaml:"n"`
	Ea      units.Quantity `yaml:"Ea"`
	T0      units.Quantity `yaml:"T0,omitempty"`
	Tmin    units.Quantity `yaml:"Tmin,omitempty"`
	Tmax    units.Quantity `yaml:"Tmax,omitempty"`
	Comment string         `yaml:"comment,omitempty"`
}

func (a *Arrhenius) Validate() error {
	for name, q := range map[string]units.Quantity{"A": a.A, "Ea": a.Ea, "T0": a.T0, "Tmin": a.Tmin, "Tmax": a.Tmax} {
		if _, err := q.SI(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRate, name, err)
		}
	}
	if a.A.Value < 0 {
		return fmt.Errorf("%w: negative A %g", ErrInvalidRate, a.A.Value)
	}
	if a.T0.Value < 0 {
		return fmt.Errorf("%w: negative T0 %g", ErrInvalidRate, a.T0.Value)
	}
	return nil
}

func (a *Arrhenius) t0() float64 {
	if a.T0.IsZero() {
		return 1.0
	}
	return a.T0.MustSI()
}

// RateCoefficient returns k(T) in SI units.
func (a *Arrhenius) RateCoefficient(T float64) float64 {
	A := a.A.MustSI()
	Ea := a.Ea.MustSI()
	return A * math.Pow(T/a.t0(), a.N) * math.Exp(-Ea/(units.GasConstant*T))
}

func (a *Arrhenius) IsTemperatureValid(T float64) bool {
	if !a.Tmin.IsZero() && T < a.Tmin.MustSI() {
		return false
	}
	if !a.Tmax.IsZero() && T > a.Tmax.MustSI() {
		return false
	}
	return true
}

// ChangeT0 moves the reference temperature while keeping k(T) unchanged.
func (a *Arrhenius) ChangeT0(T0 float64) {
	factor := math.Pow(T0/a.t0(), a.N)
	a.A = units.New(a.A.Value*factor, a.A.Units)
	a.T0 = units.New(T0, "K")
}

// ChangeRate multiplies the rate by factor at every temperature.
func (a *Arrhenius) ChangeRate(factor float64) {
	a.A = units.New(a.A.Value*factor, a.A.Units)
}

// Scaled returns a copy with the rate multiplied by factor.
func (a Arrhenius) Scaled(factor float64) *Arrhenius {
	a.ChangeRate(factor)
	return &a
}

func (a *Arrhenius) String() string {
	return fmt.Sprintf("Arrhenius(A=%s, n=%g, Ea=%s, T0=%g K)", a.A, a.N, a.Ea, a.t0())
}
