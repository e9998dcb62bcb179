package mechanism

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/kinsim/internal/kinetics"
	"github.com/san-kum/kinsim/internal/thermo"
	"github.com/san-kum/kinsim/internal/units"
)

// Files names the inputs of a mechanism. Transport may be empty.
type Files struct {
	Mechanism  string `yaml:"mechanism"`
	Dictionary string `yaml:"dictionary"`
	Transport  string `yaml:"transport,omitempty"`
}

type speciesDoc struct {
	Name            string         `yaml:"name"`
	MolecularWeight units.Quantity `yaml:"molecular_weight"`
	Inert           bool           `yaml:"inert"`
	Thermo          *thermo.NASA   `yaml:"thermo"`
}

type reactionDoc struct {
	Equation  string              `yaml:"equation"`
	Kinetics  *kinetics.Arrhenius `yaml:"kinetics"`
	Duplicate bool                `yaml:"duplicate"`
	Comment   string              `yaml:"comment"`
}

type mechanismDoc struct {
	Name      string      `yaml:"name"`
	Species   []yaml.Node `yaml:"species"`
	Reactions []yaml.Node `yaml:"reactions"`
}

type dictionaryEntry struct {
	Structure string   `yaml:"structure"`
	Aliases   []string `yaml:"aliases"`
}

// Load reads and cross-checks the mechanism files. Missing files surface the
// underlying fs error; malformed content is a *ParseError.
func Load(files Files) (*Mechanism, error) {
	root, err := readDoc(files.Mechanism)
	if err != nil {
		return nil, err
	}

	var doc mechanismDoc
	if err := root.Decode(&doc); err != nil {
		return nil, &ParseError{Path: files.Mechanism, Line: root.Line, Err: err}
	}

	m := newMechanism(doc.Name)
	if err := loadSpecies(m, files.Mechanism, doc.Species); err != nil {
		return nil, err
	}
	if err := loadReactions(m, files.Mechanism, doc.Reactions); err != nil {
		return nil, err
	}

	if files.Dictionary != "" {
		if err := loadDictionary(m, files.Dictionary); err != nil {
			return nil, err
		}
	}
	if files.Transport != "" {
		if err := loadTransport(m, files.Transport); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func readDoc(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mechanism: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, parseErr(path, 0, "empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, parseErr(path, root.Line, "top level must be a mapping")
	}
	return root, nil
}

func loadSpecies(m *Mechanism, path string, nodes []yaml.Node) error {
	if len(nodes) == 0 {
		return parseErr(path, 0, "mechanism declares no species")
	}

	for i := range nodes {
		node := &nodes[i]
		var sd speciesDoc
		if err := node.Decode(&sd); err != nil {
			return &ParseError{Path: path, Line: node.Line, Err: err}
		}
		if sd.Name == "" {
			return parseErr(path, node.Line, "species without a name")
		}
		if _, dup := m.byName[sd.Name]; dup {
			return parseErr(path, node.Line, "species %q declared twice", sd.Name)
		}
		if sd.Thermo == nil {
			return parseErr(path, node.Line, "species %q has no thermo", sd.Name)
		}
		if err := sd.Thermo.Validate(); err != nil {
			return parseErr(path, node.Line, "species %q: %v", sd.Name, err)
		}
		mw, err := sd.MolecularWeight.SI()
		if err != nil {
			return parseErr(path, node.Line, "species %q molecular weight: %v", sd.Name, err)
		}
		if sd.MolecularWeight.Units == "" {
			// bare numbers are g/mol, the customary unit
			mw = sd.MolecularWeight.Value * 1e-3
		}

		m.addSpecies(&Species{
			Name:            sd.Name,
			Thermo:          sd.Thermo,
			MolecularWeight: mw,
			Inert:           sd.Inert,
		})
	}
	return nil
}

func loadReactions(m *Mechanism, path string, nodes []yaml.Node) error {
	for i := range nodes {
		node := &nodes[i]
		var rd reactionDoc
		if err := node.Decode(&rd); err != nil {
			return &ParseError{Path: path, Line: node.Line, Err: err}
		}
		if rd.Kinetics == nil {
			return parseErr(path, node.Line, "reaction %q has no kinetics", rd.Equation)
		}
		if err := rd.Kinetics.Validate(); err != nil {
			return parseErr(path, node.Line, "reaction %q: %v", rd.Equation, err)
		}

		lhs, rhs, reversible, err := splitEquation(rd.Equation)
		if err != nil {
			return parseErr(path, node.Line, "%v", err)
		}
		reactants, err := m.stoich(lhs)
		if err != nil {
			return parseErr(path, node.Line, "reaction %q: %v", rd.Equation, err)
		}
		products, err := m.stoich(rhs)
		if err != nil {
			return parseErr(path, node.Line, "reaction %q: %v", rd.Equation, err)
		}

		m.Reactions = append(m.Reactions, &Reaction{
			Index:      len(m.Reactions) + 1,
			Reactants:  reactants,
			Products:   products,
			Reversible: reversible,
			Kinetics:   rd.Kinetics,
			Duplicate:  rd.Duplicate,
			Comment:    rd.Comment,
		})
	}
	return nil
}

// stoich resolves names and merges repeated species into one coefficient,
// keeping first-appearance order.
func (m *Mechanism) stoich(terms []term) ([]Stoich, error) {
	var out []Stoich
	pos := make(map[*Species]int)
	for _, t := range terms {
		s, ok := m.byName[t.name]
		if !ok {
			return nil, fmt.Errorf("undeclared species %q", t.name)
		}
		if i, seen := pos[s]; seen {
			out[i].Coeff += t.coeff
			continue
		}
		pos[s] = len(out)
		out = append(out, Stoich{Species: s, Coeff: t.coeff})
	}
	return out, nil
}

func loadDictionary(m *Mechanism, path string) error {
	root, err := readDoc(path)
	if err != nil {
		return err
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		s, ok := m.byName[key.Value]
		if !ok {
			return parseErr(path, key.Line, "dictionary entry %q is not a mechanism species", key.Value)
		}

		var entry dictionaryEntry
		if val.Kind == yaml.ScalarNode {
			entry.Structure = val.Value
		} else if err := val.Decode(&entry); err != nil {
			return &ParseError{Path: path, Line: val.Line, Err: err}
		}
		if entry.Structure == "" && len(entry.Aliases) == 0 {
			return parseErr(path, key.Line, "dictionary entry %q has no structure", key.Value)
		}

		s.Structure = normalize(entry.Structure)
		s.Aliases = s.Aliases[:0]
		for _, a := range entry.Aliases {
			if n := normalize(a); n != "" {
				s.Aliases = append(s.Aliases, n)
			}
		}
	}
	return nil
}

func loadTransport(m *Mechanism, path string) error {
	root, err := readDoc(path)
	if err != nil {
		return err
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		s, ok := m.byName[key.Value]
		if !ok {
			return parseErr(path, key.Line, "transport entry %q is not a mechanism species", key.Value)
		}

		var tr Transport
		if err := val.Decode(&tr); err != nil {
			return &ParseError{Path: path, Line: val.Line, Err: err}
		}
		if !geometries[tr.Geometry] {
			return parseErr(path, val.Line, "species %q: unknown geometry %q", key.Value, tr.Geometry)
		}
		s.Transport = &tr
	}
	return nil
}
