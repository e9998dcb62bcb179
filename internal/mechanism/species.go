package mechanism

import (
	"fmt"

	"github.com/san-kum/kinsim/internal/thermo"
	"github.com/san-kum/kinsim/internal/units"
)

// Transport holds Lennard-Jones transport parameters. The homogeneous
// reactors never read them; they are carried so exported mechanisms stay
// complete.
type Transport struct {
	Geometry             string         `yaml:"geometry"`
	WellDepth            units.Quantity `yaml:"well_depth"`
	Diameter             units.Quantity `yaml:"diameter"`
	Dipole               units.Quantity `yaml:"dipole,omitempty"`
	Polarizability       units.Quantity `yaml:"polarizability,omitempty"`
	RotationalRelaxation float64        `yaml:"rotational_relaxation,omitempty"`
}

var geometries = map[string]bool{"atom": true, "linear": true, "nonlinear": true}

type Species struct {
	Name            string
	Index           int
	Structure       string
	Aliases         []string
	Thermo          *thermo.NASA
	Transport       *Transport
	MolecularWeight float64 // kg/mol
	Inert           bool
}

// Label is the mechanism label used in plots and exported tables, e.g.
// "ethane(1)".
func (s *Species) Label() string {
	return fmt.Sprintf("%s(%d)", s.Name, s.Index)
}

func (s *Species) String() string { return s.Label() }

// Descriptors returns the structure followed by every alias.
func (s *Species) Descriptors() []string {
	out := make([]string, 0, 1+len(s.Aliases))
	if s.Structure != "" {
		out = append(out, s.Structure)
	}
	return append(out, s.Aliases...)
}
