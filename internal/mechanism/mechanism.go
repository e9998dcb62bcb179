// Package mechanism loads chemical mechanisms (species, thermo, reactions,
// transport) from YAML documents and maps structural descriptors onto
// mechanism species.
//
// A mechanism is described by up to three files:
//
//   - the mechanism file: species thermo and reaction kinetics
//   - the species dictionary: species name to structure (e.g. SMILES)
//   - an optional transport file: Lennard-Jones parameters
//
// Species carry a 1-based Index in declaration order, and [Species.Label]
// ("ethane(1)") is the identifier used in every exported table and plot.
package mechanism

type Mechanism struct {
	Name      string
	Species   []*Species
	Reactions []*Reaction

	byName map[string]*Species
}

func newMechanism(name string) *Mechanism {
	return &Mechanism{Name: name, byName: make(map[string]*Species)}
}

func (m *Mechanism) addSpecies(s *Species) {
	s.Index = len(m.Species) + 1
	m.Species = append(m.Species, s)
	m.byName[s.Name] = s
}

// SpeciesByName returns the species with that exact name.
func (m *Mechanism) SpeciesByName(name string) (*Species, bool) {
	s, ok := m.byName[name]
	return s, ok
}

// SpeciesIndex returns the 0-based position of s in Species, or -1.
func (m *Mechanism) SpeciesIndex(s *Species) int {
	if s == nil || s.Index < 1 || s.Index > len(m.Species) || m.Species[s.Index-1] != s {
		return -1
	}
	return s.Index - 1
}

func (m *Mechanism) Labels() []string {
	out := make([]string, len(m.Species))
	for i, s := range m.Species {
		out[i] = s.Label()
	}
	return out
}

// ReactionsInvolving returns the reactions in which s takes part.
func (m *Mechanism) ReactionsInvolving(s *Species) []*Reaction {
	var out []*Reaction
	for _, r := range m.Reactions {
		if r.Involves(s) {
			out = append(out, r)
		}
	}
	return out
}
