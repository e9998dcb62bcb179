// Package thermo evaluates species thermodynamic properties from seven-term
// NASA polynomials.
package thermo

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/kinsim/internal/units"
)

var ErrNoPolynomials = errors.New("thermo: NASA model has no polynomials")

// NASAPolynomial is one temperature range of a NASA model. Coeffs are the
// dimensionless a0..a6 of the standard seven-term form.
type NASAPolynomial struct {
	Coeffs [7]float64     `yaml:"coeffs"`
	Tmin   units.Quantity `yaml:"Tmin"`
	Tmax   units.Quantity `yaml:"Tmax"`
}

func (p *NASAPolynomial) contains(T float64) bool {
	return p.Tmin.MustSI() <= T && T <= p.Tmax.MustSI()
}

// cpOverR = a0 + a1 T + a2 T^2 + a3 T^3 + a4 T^4
func (p *NASAPolynomial) cpOverR(T float64) float64 {
	c := p.Coeffs
	return c[0] + T*(c[1]+T*(c[2]+T*(c[3]+T*c[4])))
}

// hOverRT = a0 + a1 T/2 + a2 T^2/3 + a3 T^3/4 + a4 T^4/5 + a5/T
func (p *NASAPolynomial) hOverRT(T float64) float64 {
	c := p.Coeffs
	return c[0] + T*(c[1]/2+T*(c[2]/3+T*(c[3]/4+T*c[4]/5))) + c[5]/T
}

// sOverR = a0 ln T + a1 T + a2 T^2/2 + a3 T^3/3 + a4 T^4/4 + a6
func (p *NASAPolynomial) sOverR(T float64) float64 {
	c := p.Coeffs
	return c[0]*math.Log(T) + T*(c[1]+T*(c[2]/2+T*(c[3]/3+T*c[4]/4))) + c[6]
}

// NASA is a multi-range NASA polynomial model.
type NASA struct {
	Polynomials []NASAPolynomial `yaml:"polynomials"`
	Tmin        units.Quantity   `yaml:"Tmin"`
	Tmax        units.Quantity   `yaml:"Tmax"`
	E0          units.Quantity   `yaml:"E0,omitempty"`
	Comment     string           `yaml:"comment,omitempty"`
}

// Validate checks units on every range and the range ordering.
func (n *NASA) Validate() error {
	if len(n.Polynomials) == 0 {
		return ErrNoPolynomials
	}
	for i, q := range []units.Quantity{n.Tmin, n.Tmax, n.E0} {
		if _, err := q.SI(); err != nil {
			return fmt.Errorf("thermo: field %d: %w", i, err)
		}
	}
	for i := range n.Polynomials {
		p := &n.Polynomials[i]
		lo, err := p.Tmin.SI()
		if err != nil {
			return fmt.Errorf("thermo: polynomial %d Tmin: %w", i, err)
		}
		hi, err := p.Tmax.SI()
		if err != nil {
			return fmt.Errorf("thermo: polynomial %d Tmax: %w", i, err)
		}
		if hi <= lo {
			return fmt.Errorf("thermo: polynomial %d has Tmax %g <= Tmin %g", i, hi, lo)
		}
	}
	return nil
}

func (n *NASA) IsTemperatureValid(T float64) bool {
	return n.Tmin.MustSI() <= T && T <= n.Tmax.MustSI()
}

// polynomial picks the range containing T. Outside every range the closest
// endpoint polynomial is extrapolated.
func (n *NASA) polynomial(T float64) *NASAPolynomial {
	for i := range n.Polynomials {
		if n.Polynomials[i].contains(T) {
			return &n.Polynomials[i]
		}
	}
	best := &n.Polynomials[0]
	bestDist := math.Inf(1)
	for i := range n.Polynomials {
		p := &n.Polynomials[i]
		d := math.Min(math.Abs(T-p.Tmin.MustSI()), math.Abs(T-p.Tmax.MustSI()))
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// HeatCapacity returns Cp in J/(mol*K).
func (n *NASA) HeatCapacity(T float64) float64 {
	return n.polynomial(T).cpOverR(T) * units.GasConstant
}

// Enthalpy returns H in J/mol.
func (n *NASA) Enthalpy(T float64) float64 {
	return n.polynomial(T).hOverRT(T) * units.GasConstant * T
}

// Entropy returns S in J/(mol*K) at the standard pressure.
func (n *NASA) Entropy(T float64) float64 {
	return n.polynomial(T).sOverR(T) * units.GasConstant
}

// FreeEnergy returns G = H - TS in J/mol.
func (n *NASA) FreeEnergy(T float64) float64 {
	p := n.polynomial(T)
	return (p.hOverRT(T) - p.sOverR(T)) * units.GasConstant * T
}

// InternalEnergy returns U = H - RT in J/mol for an ideal gas.
func (n *NASA) InternalEnergy(T float64) float64 {
	return n.Enthalpy(T) - units.GasConstant*T
}
