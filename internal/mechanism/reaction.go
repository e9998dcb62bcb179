package mechanism

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/kinsim/internal/kinetics"
)

type Stoich struct {
	Species *Species
	Coeff   int
}

type Reaction struct {
	Index      int
	Reactants  []Stoich
	Products   []Stoich
	Reversible bool
	Kinetics   *kinetics.Arrhenius
	Duplicate  bool
	Comment    string
}

// Equation renders the reaction with species labels, repeating a species
// once per unit of its coefficient.
func (r *Reaction) Equation() string {
	arrow := " => "
	if r.Reversible {
		arrow = " <=> "
	}
	return side(r.Reactants) + arrow + side(r.Products)
}

func side(terms []Stoich) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		for i := 0; i < t.Coeff; i++ {
			parts = append(parts, t.Species.Label())
		}
	}
	return strings.Join(parts, " + ")
}

func (r *Reaction) String() string { return r.Equation() }

// MassChange is product mass minus reactant mass per mole of reaction, in
// kg/mol. Lumped pathways that drop or merge atoms have a non-zero change,
// and a reactor running them reports a matching mass_drift.
func (r *Reaction) MassChange() float64 {
	return sideMass(r.Products) - sideMass(r.Reactants)
}

func sideMass(terms []Stoich) float64 {
	m := 0.0
	for _, t := range terms {
		m += float64(t.Coeff) * t.Species.MolecularWeight
	}
	return m
}

// ReactionOrder is the sum of reactant coefficients.
func (r *Reaction) ReactionOrder() int {
	n := 0
	for _, t := range r.Reactants {
		n += t.Coeff
	}
	return n
}

// DeltaN is the change in gas moles from reactants to products.
func (r *Reaction) DeltaN() int {
	n := 0
	for _, t := range r.Products {
		n += t.Coeff
	}
	return n - r.ReactionOrder()
}

// Involves reports whether s appears on either side.
func (r *Reaction) Involves(s *Species) bool {
	for _, t := range r.Reactants {
		if t.Species == s {
			return true
		}
	}
	for _, t := range r.Products {
		if t.Species == s {
			return true
		}
	}
	return false
}

type term struct {
	name  string
	coeff int
}

// splitEquation tokenizes "A + 2 B <=> C". The arrow is one of <=>, => or =;
// only => is irreversible.
func splitEquation(eq string) (lhs, rhs []term, reversible bool, err error) {
	var left, right string
	switch {
	case strings.Contains(eq, "<=>"):
		left, right, _ = strings.Cut(eq, "<=>")
		reversible = true
	case strings.Contains(eq, "=>"):
		left, right, _ = strings.Cut(eq, "=>")
	case strings.Contains(eq, "="):
		left, right, _ = strings.Cut(eq, "=")
		reversible = true
	default:
		return nil, nil, false, fmt.Errorf("equation %q has no arrow", eq)
	}
	if strings.ContainsAny(right, "<=>") {
		return nil, nil, false, fmt.Errorf("equation %q has more than one arrow", eq)
	}

	if lhs, err = splitSide(left); err != nil {
		return nil, nil, false, fmt.Errorf("equation %q: %w", eq, err)
	}
	if rhs, err = splitSide(right); err != nil {
		return nil, nil, false, fmt.Errorf("equation %q: %w", eq, err)
	}
	return lhs, rhs, reversible, nil
}

func splitSide(s string) ([]term, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty side")
	}
	var out []term
	for _, raw := range strings.Split(s, " + ") {
		fields := strings.Fields(raw)
		switch len(fields) {
		case 1:
			out = append(out, term{name: fields[0], coeff: 1})
		case 2:
			c, err := strconv.Atoi(fields[0])
			if err != nil || c <= 0 {
				return nil, fmt.Errorf("bad coefficient %q", fields[0])
			}
			out = append(out, term{name: fields[1], coeff: c})
		default:
			return nil, fmt.Errorf("bad term %q", strings.TrimSpace(raw))
		}
	}
	return out, nil
}
