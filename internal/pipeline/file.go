// Package pipeline runs the full comparison: load the mechanism, resolve the
// species of interest, configure conditions, run the enabled backends and
// build the report.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/kinsim/internal/condition"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/units"
)

var ErrConfig = errors.New("pipeline: invalid pipeline file")

// SweepBlock configures backend A. Compositions and Sensitive refer to
// species of interest by their key in File.Species. Preset, when set,
// supplies the condition axes that are left empty.
type SweepBlock struct {
	Enabled      bool                    `yaml:"enabled"`
	Preset       string                  `yaml:"preset"`
	Reactors     []condition.ReactorType `yaml:"reactors"`
	Temperatures []units.Quantity        `yaml:"temperatures"`
	Pressures    []units.Quantity        `yaml:"pressures"`
	Durations    []units.Quantity        `yaml:"durations"`
	Compositions []map[string]float64    `yaml:"compositions"`
	Sensitive    []string                `yaml:"sensitive"`
	Integrator   string                  `yaml:"integrator"`
	Tolerance    float64                 `yaml:"tolerance"`
	Parallelism  int                     `yaml:"parallelism"`
}

// NativeBlock configures backend B.
type NativeBlock struct {
	Enabled bool   `yaml:"enabled"`
	Input   string `yaml:"input"`
}

// TableBlock configures backend C.
type TableBlock struct {
	Enabled       bool   `yaml:"enabled"`
	MoleFractions string `yaml:"mole_fractions"`
	Sensitivity   string `yaml:"sensitivity"`
}

type TopBlock struct {
	Species   int `yaml:"species"`
	Reactions int `yaml:"reactions"`
}

type File struct {
	Path      string            `yaml:"-"`
	Name      string            `yaml:"name"`
	Mechanism mechanism.Files   `yaml:"mechanism"`
	Species   map[string]string `yaml:"species"`
	Output    string            `yaml:"output"`
	Sweep     SweepBlock        `yaml:"sweep"`
	Native    NativeBlock       `yaml:"native"`
	Table     TableBlock        `yaml:"table"`
	Top       TopBlock          `yaml:"top"`
	Report    bool              `yaml:"report"`
}

func Default() File {
	return File{
		Output: "temp",
		Sweep:  SweepBlock{Integrator: "rk45"},
		Top:    TopBlock{Species: 10, Reactions: 10},
		Report: true,
	}
}

// Load decodes a pipeline file over the defaults. Relative paths inside it
// are taken from the file's directory.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f := Default()
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}
	f.Path = path

	dir := filepath.Dir(path)
	for _, p := range []*string{
		&f.Mechanism.Mechanism, &f.Mechanism.Dictionary, &f.Mechanism.Transport,
		&f.Output, &f.Native.Input, &f.Table.MoleFractions, &f.Table.Sensitivity,
	} {
		*p = relativeTo(dir, *p)
	}

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

// Validate checks the declarations that do not need the mechanism.
func (f *File) Validate() error {
	if !f.Sweep.Enabled && !f.Native.Enabled && !f.Table.Enabled {
		return fmt.Errorf("%w: no backend enabled", ErrConfig)
	}
	if f.Output == "" {
		return fmt.Errorf("%w: no output directory", ErrConfig)
	}
	if f.Sweep.Enabled {
		if f.Mechanism.Mechanism == "" {
			return fmt.Errorf("%w: sweep needs a mechanism file", ErrConfig)
		}
		if f.Sweep.Preset != "" {
			if _, ok := condition.Presets[f.Sweep.Preset]; !ok {
				return fmt.Errorf("%w: unknown preset %q (have %v)", ErrConfig, f.Sweep.Preset, condition.PresetNames())
			}
		}
		for _, name := range f.Sweep.Sensitive {
			if _, ok := f.Species[name]; !ok {
				return fmt.Errorf("%w: sensitive species %q is not a declared species of interest", ErrConfig, name)
			}
		}
		for i, comp := range f.Sweep.Compositions {
			for name := range comp {
				if _, ok := f.Species[name]; !ok {
					return fmt.Errorf("%w: composition %d names undeclared species %q", ErrConfig, i+1, name)
				}
			}
		}
	}
	if f.Native.Enabled && f.Native.Input == "" {
		return fmt.Errorf("%w: native backend needs an input file", ErrConfig)
	}
	if f.Table.Enabled && f.Table.MoleFractions == "" && f.Table.Sensitivity == "" {
		return fmt.Errorf("%w: table backend needs at least one CSV", ErrConfig)
	}
	return nil
}
