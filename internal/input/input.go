// Package input reads native solver input files: the mechanism to load,
// the reaction systems to simulate and the solver settings.
package input

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/kinsim/internal/condition"
	"github.com/san-kum/kinsim/internal/dynamo"
	"github.com/san-kum/kinsim/internal/integrators"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/units"
)

var ErrInvalid = errors.New("input: invalid input file")

// Solver holds integration settings shared by every reaction system.
type Solver struct {
	Integrator  string         `yaml:"integrator"`
	Dt          units.Quantity `yaml:"dt"`
	Tolerance   float64        `yaml:"tolerance"`
	Parallelism int            `yaml:"parallelism"`
}

// ReactionSystem is one simulated reactor. Composition and Sensitivity name
// species by their mechanism name.
type ReactionSystem struct {
	Reactor     condition.ReactorType `yaml:"reactor"`
	Temperature units.Quantity        `yaml:"temperature"`
	Pressure    units.Quantity        `yaml:"pressure"`
	Duration    units.Quantity        `yaml:"termination_time"`
	Composition map[string]float64    `yaml:"initial_mole_fractions"`
	Sensitivity []string              `yaml:"sensitivity"`
}

type File struct {
	Path      string           `yaml:"-"`
	Mechanism mechanism.Files  `yaml:"mechanism"`
	Solver    Solver           `yaml:"solver"`
	Systems   []ReactionSystem `yaml:"reaction_systems"`
}

// Default is the baseline every input file is decoded over.
func Default() File {
	return File{
		Solver: Solver{
			Integrator: "rk4",
			Dt:         units.New(1e-7, "s"),
			Tolerance:  1e-6,
		},
	}
}

// Load decodes an input file. Mechanism paths are taken relative to the
// directory of the input file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f := Default()
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	f.Path = path

	dir := filepath.Dir(path)
	f.Mechanism.Mechanism = relativeTo(dir, f.Mechanism.Mechanism)
	f.Mechanism.Dictionary = relativeTo(dir, f.Mechanism.Dictionary)
	f.Mechanism.Transport = relativeTo(dir, f.Mechanism.Transport)

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func relativeTo(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func (f *File) Validate() error {
	if f.Mechanism.Mechanism == "" {
		return fmt.Errorf("%w: no mechanism file", ErrInvalid)
	}
	if len(f.Systems) == 0 {
		return fmt.Errorf("%w: no reaction systems", ErrInvalid)
	}
	if _, err := integrators.New(f.Solver.Integrator); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if dt, err := f.Solver.Dt.SI(); err != nil || !(dt > 0) {
		return fmt.Errorf("%w: dt must be a positive time, got %s", ErrInvalid, f.Solver.Dt)
	}
	if !(f.Solver.Tolerance > 0) {
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalid)
	}
	for i, rs := range f.Systems {
		if rs.Reactor == "" {
			return fmt.Errorf("%w: reaction system %d has no reactor type", ErrInvalid, i+1)
		}
		if len(rs.Composition) == 0 {
			return fmt.Errorf("%w: reaction system %d has no initial mole fractions", ErrInvalid, i+1)
		}
	}
	return nil
}

// SimConfig is the integration config for reaction system rs.
func (f *File) SimConfig(rs ReactionSystem) (dynamo.Config, error) {
	cfg := dynamo.DefaultConfig()
	duration, err := rs.Duration.SI()
	if err != nil {
		return cfg, err
	}
	cfg.Dt = f.Solver.Dt.MustSI()
	cfg.Duration = duration
	cfg.Tolerance = f.Solver.Tolerance
	cfg.Adaptive = integrators.IsAdaptive(f.Solver.Integrator)
	return cfg, nil
}

// Condition builds the condition of reaction system i (0-based) against m,
// returning it with the resolved sensitivity species.
func (f *File) Condition(m *mechanism.Mechanism, i int) (*condition.Condition, []*mechanism.Species, error) {
	rs := f.Systems[i]

	comp := make(map[*mechanism.Species]float64, len(rs.Composition))
	for name, x := range rs.Composition {
		s, err := speciesByName(m, name)
		if err != nil {
			return nil, nil, fmt.Errorf("reaction system %d: %w", i+1, err)
		}
		comp[s] = x
	}

	T, err := rs.Temperature.SI()
	if err != nil {
		return nil, nil, fmt.Errorf("reaction system %d: %w", i+1, err)
	}
	P, err := rs.Pressure.SI()
	if err != nil {
		return nil, nil, fmt.Errorf("reaction system %d: %w", i+1, err)
	}
	duration, err := rs.Duration.SI()
	if err != nil {
		return nil, nil, fmt.Errorf("reaction system %d: %w", i+1, err)
	}

	c, err := condition.New(i+1, rs.Reactor, comp, T, P, duration)
	if err != nil {
		return nil, nil, fmt.Errorf("reaction system %d: %w", i+1, err)
	}

	sens := make([]*mechanism.Species, 0, len(rs.Sensitivity))
	for _, name := range rs.Sensitivity {
		s, err := speciesByName(m, name)
		if err != nil {
			return nil, nil, fmt.Errorf("reaction system %d sensitivity: %w", i+1, err)
		}
		sens = append(sens, s)
	}
	return c, sens, nil
}

func speciesByName(m *mechanism.Mechanism, name string) (*mechanism.Species, error) {
	s, ok := m.SpeciesByName(name)
	if !ok {
		return nil, &mechanism.LookupError{Descriptor: name, Err: mechanism.ErrSpeciesNotFound}
	}
	return s, nil
}
