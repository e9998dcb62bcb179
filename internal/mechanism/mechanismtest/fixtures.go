// Package mechanismtest writes small mechanism fixtures for tests.
package mechanismtest

import (
	"os"
	"path/filepath"

	"github.com/san-kum/kinsim/internal/mechanism"
)

// EthaneMechanism is a two-species lumped decomposition, ethane => 2 methane.
// The hydrogen balance is dropped, so the single reaction gains mass.
const EthaneMechanism = `name: ethane-lumped
species:
  - name: ethane
    molecular_weight: [30.069, g/mol]
    thermo:
      Tmin: [200, K]
      Tmax: [3500, K]
      polynomials:
        - coeffs: [4.29142492, -0.0055015427, 5.99438288e-05, -7.08466285e-08, 2.68685771e-11, -11522.2055, 2.66682316]
          Tmin: [200, K]
          Tmax: [1000, K]
        - coeffs: [1.0718815, 0.0216852677, -1.00256067e-05, 2.21412001e-09, -1.9000289e-13, -11426.3932, 15.1156107]
          Tmin: [1000, K]
          Tmax: [3500, K]
  - name: methane
    molecular_weight: [16.043, g/mol]
    thermo:
      Tmin: [200, K]
      Tmax: [3500, K]
      polynomials:
        - coeffs: [5.14987613, -0.0136709788, 4.91800599e-05, -4.84743026e-08, 1.66693956e-11, -10246.6476, -4.64130376]
          Tmin: [200, K]
          Tmax: [1000, K]
        - coeffs: [0.074851495, 0.0133909467, -5.73285809e-06, 1.22292535e-09, -1.0181523e-13, -9468.34459, 18.437318]
          Tmin: [1000, K]
          Tmax: [3500, K]
reactions:
  - equation: ethane => 2 methane
    kinetics:
      A: [2.0e16, s^-1]
      n: 0
      Ea: [80, kcal/mol]
    comment: lumped pathway, does not conserve mass (30.069 -> 32.086 g/mol)
`

// IsomerMechanism is A <=> B between two species with identical thermo, so
// K_c = 1 and the reaction is thermoneutral.
const IsomerMechanism = `name: isomer
species:
  - name: A
    molecular_weight: 16.043
    thermo: &methane
      Tmin: [200, K]
      Tmax: [3500, K]
      polynomials:
        - coeffs: [5.14987613, -0.0136709788, 4.91800599e-05, -4.84743026e-08, 1.66693956e-11, -10246.6476, -4.64130376]
          Tmin: [200, K]
          Tmax: [1000, K]
        - coeffs: [0.074851495, 0.0133909467, -5.73285809e-06, 1.22292535e-09, -1.0181523e-13, -9468.34459, 18.437318]
          Tmin: [1000, K]
          Tmax: [3500, K]
  - name: B
    molecular_weight: 16.043
    thermo: *methane
reactions:
  - equation: A <=> B
    kinetics:
      A: [1000, s^-1]
      n: 0
      Ea: [0, J/mol]
`

// EthaneDictionary maps both species to SMILES.
const EthaneDictionary = `ethane:
  structure: CC
  aliases: ["[CH3][CH3]"]
methane: C
`

// EthaneTransport carries Lennard-Jones parameters for both species.
const EthaneTransport = `ethane:
  geometry: nonlinear
  well_depth: [252.3, K]
  diameter: [4.302, angstrom]
  rotational_relaxation: 1.5
methane:
  geometry: nonlinear
  well_depth: [141.4, K]
  diameter: [3.746, angstrom]
  polarizability: [2.6, angstrom^3]
  rotational_relaxation: 13
`

// T is the subset of testing.TB the helpers need. GinkgoT() satisfies it.
type T interface {
	Helper()
	Fatalf(format string, args ...any)
	TempDir() string
}

// WriteFile writes content under dir and returns its path.
func WriteFile(t T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteEthane writes the ethane fixture set into dir.
func WriteEthane(t T, dir string) mechanism.Files {
	t.Helper()
	return mechanism.Files{
		Mechanism:  WriteFile(t, dir, "chem.yaml", EthaneMechanism),
		Dictionary: WriteFile(t, dir, "species_dictionary.yaml", EthaneDictionary),
		Transport:  WriteFile(t, dir, "tran.yaml", EthaneTransport),
	}
}

// Load writes content as a mechanism file and loads it without dictionary
// or transport.
func Load(t T, content string) *mechanism.Mechanism {
	t.Helper()
	path := WriteFile(t, t.TempDir(), "chem.yaml", content)
	m, err := mechanism.Load(mechanism.Files{Mechanism: path})
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return m
}

// LoadEthane writes and loads the ethane fixture.
func LoadEthane(t T) *mechanism.Mechanism {
	t.Helper()
	m, err := mechanism.Load(WriteEthane(t, t.TempDir()))
	if err != nil {
		t.Fatalf("load ethane fixture: %v", err)
	}
	return m
}
