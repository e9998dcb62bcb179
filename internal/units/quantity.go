package units

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Physical constants in SI.
const (
	GasConstant      = 8.314462618   // J/(mol*K)
	Avogadro         = 6.02214076e23 // 1/mol
	Boltzmann        = 1.380649e-23  // J/K
	StandardPressure = 1.0e5         // Pa
)

var ErrUnknownUnits = errors.New("units: unknown units")

// factors converts a unit string to the SI multiplier. Units are matched
// after whitespace is removed.
var factors = map[string]float64{
	"": 1,

	"K": 1,

	"s":   1,
	"ms":  1e-3,
	"us":  1e-6,
	"ns":  1e-9,
	"min": 60,
	"hr":  3600,

	"Pa":   1,
	"kPa":  1e3,
	"MPa":  1e6,
	"bar":  1e5,
	"atm":  101325,
	"torr": 101325.0 / 760.0,
	"psi":  6894.757293168,

	"J/mol":    1,
	"kJ/mol":   1e3,
	"cal/mol":  4.184,
	"kcal/mol": 4184,

	"m":        1,
	"cm":       1e-2,
	"angstrom": 1e-10,

	"m^3":        1,
	"cm^3":       1e-6,
	"L":          1e-3,
	"angstrom^3": 1e-30,

	"debye": 3.33564e-30,

	"g/mol":  1e-3,
	"kg/mol": 1,
	"amu":    1e-3,

	"s^-1": 1,

	"m^3/(mol*s)":    1,
	"cm^3/(mol*s)":   1e-6,
	"m^6/(mol^2*s)":  1,
	"cm^6/(mol^2*s)": 1e-12,

	"cm^3/(molecule*s)":   1e-6 * Avogadro,
	"cm^6/(molecule^2*s)": 1e-12 * Avogadro * Avogadro,
	"m^3/(molecule*s)":    Avogadro,
}

// Factor returns the multiplier that converts a value in units to SI.
func Factor(units string) (float64, error) {
	key := strings.ReplaceAll(units, " ", "")
	f, ok := factors[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnits, units)
	}
	return f, nil
}

// Quantity is a value with units. In YAML it may be written as a bare number
// (taken to be SI) or as a two-element sequence: [1.0e12, "cm^3/(mol*s)"].
type Quantity struct {
	Value float64
	Units string
}

func New(value float64, units string) Quantity {
	return Quantity{Value: value, Units: units}
}

// SI returns the value converted to SI units.
func (q Quantity) SI() (float64, error) {
	f, err := Factor(q.Units)
	if err != nil {
		return 0, err
	}
	return q.Value * f, nil
}

// MustSI is SI for quantities already validated at load time.
func (q Quantity) MustSI() float64 {
	v, err := q.SI()
	if err != nil {
		panic(err)
	}
	return v
}

func (q Quantity) IsZero() bool { return q.Value == 0 }

func (q Quantity) String() string {
	if q.Units == "" {
		return fmt.Sprintf("%g", q.Value)
	}
	return fmt.Sprintf("%g %s", q.Value, q.Units)
}

func (q *Quantity) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: quantity: %w", node.Line, err)
		}
		*q = Quantity{Value: v}
		return nil
	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: quantity must be [value, units], got %d elements", node.Line, len(node.Content))
		}
		var v float64
		if err := node.Content[0].Decode(&v); err != nil {
			return fmt.Errorf("line %d: quantity value: %w", node.Line, err)
		}
		var u string
		if err := node.Content[1].Decode(&u); err != nil {
			return fmt.Errorf("line %d: quantity units: %w", node.Line, err)
		}
		if _, err := Factor(u); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*q = Quantity{Value: v, Units: u}
		return nil
	default:
		return fmt.Errorf("line %d: quantity must be a number or [value, units]", node.Line)
	}
}

func (q Quantity) MarshalYAML() (any, error) {
	if q.Units == "" {
		return q.Value, nil
	}
	return []any{q.Value, q.Units}, nil
}
