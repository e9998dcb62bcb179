package condition

import (
	"fmt"
	"sort"

	"github.com/san-kum/kinsim/internal/mechanism"
)

// Preset is a named single condition. Composition is keyed by species name
// so it can be bound to any mechanism that declares those species.
type Preset struct {
	Reactor     ReactorType
	Temperature float64 // K
	Pressure    float64 // Pa
	Duration    float64 // s
	Composition map[string]float64
}

var Presets = map[string]Preset{
	"ethane-pyrolysis": {
		Reactor: ConstPressureTemperature, Temperature: 1300, Pressure: 1e5, Duration: 5e-4,
		Composition: map[string]float64{"ethane": 1},
	},
	"ethane-pyrolysis-adiabatic": {
		Reactor: ConstPressure, Temperature: 1300, Pressure: 1e5, Duration: 5e-4,
		Composition: map[string]float64{"ethane": 1},
	},
	"ethane-dilute": {
		Reactor: ConstVolumeTemperature, Temperature: 1200, Pressure: 101325, Duration: 2e-3,
		Composition: map[string]float64{"ethane": 0.05, "argon": 0.95},
	},
}

func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FromPreset binds a preset to m. Every composition species must exist in m.
func FromPreset(name string, m *mechanism.Mechanism) (*Condition, error) {
	p, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("condition: unknown preset %q (have %v)", name, PresetNames())
	}
	x := make(map[*mechanism.Species]float64, len(p.Composition))
	for n, v := range p.Composition {
		s, ok := m.SpeciesByName(n)
		if !ok {
			return nil, fmt.Errorf("condition: preset %q: %w: %q", name, mechanism.ErrSpeciesNotFound, n)
		}
		x[s] = v
	}
	return New(1, p.Reactor, x, p.Temperature, p.Pressure, p.Duration)
}
