package mechanism_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/mechanism/mechanismtest"
)

func TestLoadEthane(t *testing.T) {
	g := NewWithT(t)
	m := mechanismtest.LoadEthane(t)

	g.Expect(m.Name).To(Equal("ethane-lumped"))
	g.Expect(m.Labels()).To(Equal([]string{"ethane(1)", "methane(2)"}))
	g.Expect(m.Reactions).To(HaveLen(1))

	rxn := m.Reactions[0]
	g.Expect(rxn.Index).To(Equal(1))
	g.Expect(rxn.Reversible).To(BeFalse())
	g.Expect(rxn.Equation()).To(Equal("ethane(1) => methane(2) + methane(2)"))
	g.Expect(rxn.ReactionOrder()).To(Equal(1))
	g.Expect(rxn.DeltaN()).To(Equal(1))
	g.Expect(rxn.MassChange()).To(BeNumerically("~", 2*0.016043-0.030069, 1e-12), "lumped pathway gains mass")

	ethane, ok := m.SpeciesByName("ethane")
	g.Expect(ok).To(BeTrue())
	g.Expect(ethane.Structure).To(Equal("CC"))
	g.Expect(ethane.Aliases).To(Equal([]string{"[CH3][CH3]"}))
	g.Expect(ethane.MolecularWeight).To(BeNumerically("~", 0.030069, 1e-9))
	g.Expect(ethane.Transport).NotTo(BeNil())
	g.Expect(ethane.Transport.Geometry).To(Equal("nonlinear"))
	g.Expect(m.SpeciesIndex(ethane)).To(Equal(0))
	g.Expect(m.ReactionsInvolving(ethane)).To(HaveLen(1))
}

func TestLoadWithoutTransport(t *testing.T) {
	g := NewWithT(t)
	files := mechanismtest.WriteEthane(t, t.TempDir())
	files.Transport = ""

	m, err := mechanism.Load(files)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(m.Species[0].Transport).To(BeNil())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := mechanism.Load(mechanism.Files{Mechanism: filepath.Join(t.TempDir(), "nope.yaml")})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestLoadParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		mechanism  string
		dictionary string
	}{
		{
			name:      "not yaml",
			mechanism: "species: [unterminated",
		},
		{
			name:      "no species",
			mechanism: "name: empty\nspecies: []\n",
		},
		{
			name:      "species without thermo",
			mechanism: "species:\n  - name: ethane\n",
		},
		{
			name: "undeclared reactant",
			mechanism: mechanismtest.EthaneMechanism + `  - equation: propane => ethane + methane
    kinetics:
      A: [1.0, s^-1]
      n: 0
      Ea: [0, J/mol]
`,
		},
		{
			name: "bad units",
			mechanism: mechanismtest.EthaneMechanism + `  - equation: ethane => 2 methane
    kinetics:
      A: [1.0, furlongs]
      n: 0
      Ea: [0, J/mol]
    duplicate: true
`,
		},
		{
			name:       "dictionary names unknown species",
			mechanism:  mechanismtest.EthaneMechanism,
			dictionary: "propane: CCC\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			files := mechanism.Files{
				Mechanism: mechanismtest.WriteFile(t, dir, "chem.yaml", tt.mechanism),
			}
			if tt.dictionary != "" {
				files.Dictionary = mechanismtest.WriteFile(t, dir, "dict.yaml", tt.dictionary)
			}

			_, err := mechanism.Load(files)
			if !errors.Is(err, mechanism.ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
			var pe *mechanism.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Path == "" {
				t.Error("parse error should name the file")
			}
		})
	}
}

func TestParseErrorLine(t *testing.T) {
	dir := t.TempDir()
	src := mechanismtest.EthaneMechanism + "  - equation: ethane => ethane <=> methane\n    kinetics: {A: 1, n: 0, Ea: 0}\n"
	_, err := mechanism.Load(mechanism.Files{Mechanism: mechanismtest.WriteFile(t, dir, "chem.yaml", src)})

	var pe *mechanism.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Line == 0 {
		t.Error("expected a line number")
	}
}

func TestReversibleEquation(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	src := mechanismtest.EthaneMechanism + "  - equation: methane + methane = ethane\n    kinetics: {A: [1.0e6, cm^3/(mol*s)], n: 0, Ea: 0}\n"
	m, err := mechanism.Load(mechanism.Files{Mechanism: mechanismtest.WriteFile(t, dir, "chem.yaml", src)})
	g.Expect(err).NotTo(HaveOccurred())

	rxn := m.Reactions[1]
	g.Expect(rxn.Reversible).To(BeTrue())
	g.Expect(rxn.Reactants).To(HaveLen(1))
	g.Expect(rxn.Reactants[0].Coeff).To(Equal(2))
	g.Expect(rxn.Equation()).To(Equal("methane(2) + methane(2) <=> ethane(1)"))
	g.Expect(rxn.DeltaN()).To(Equal(-1))
	g.Expect(rxn.MassChange()).To(BeNumerically("~", -m.Reactions[0].MassChange(), 1e-15))
}
