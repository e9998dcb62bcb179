package mechanism

import (
	"strings"
)

// Resolver maps structural descriptors onto mechanism species. It is built
// once and is safe for concurrent use.
type Resolver struct {
	index map[string][]*Species
}

func NewResolver(m *Mechanism) *Resolver {
	r := &Resolver{index: make(map[string][]*Species)}
	for _, s := range m.Species {
		seen := make(map[string]bool)
		for _, d := range s.Descriptors() {
			if seen[d] {
				continue
			}
			seen[d] = true
			r.index[d] = append(r.index[d], s)
		}
	}
	return r
}

// Resolve returns the single species whose structure or alias equals the
// normalized descriptor.
func (r *Resolver) Resolve(descriptor string) (*Species, error) {
	key := normalize(descriptor)
	matches := r.index[key]
	switch len(matches) {
	case 0:
		return nil, &LookupError{Descriptor: descriptor, Err: ErrSpeciesNotFound}
	case 1:
		return matches[0], nil
	default:
		labels := make([]string, len(matches))
		for i, s := range matches {
			labels[i] = s.Label()
		}
		return nil, &LookupError{Descriptor: descriptor, Matches: labels, Err: ErrAmbiguousSpecies}
	}
}

// ResolveAll resolves descriptors in order and stops at the first failure.
func (r *Resolver) ResolveAll(descriptors []string) ([]*Species, error) {
	out := make([]*Species, 0, len(descriptors))
	for _, d := range descriptors {
		s, err := r.Resolve(d)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// normalize trims whitespace and an optional "SMILES=" or "smiles:" prefix.
func normalize(descriptor string) string {
	d := strings.TrimSpace(descriptor)
	if len(d) > 7 && strings.EqualFold(d[:6], "smiles") && (d[6] == '=' || d[6] == ':') {
		d = strings.TrimSpace(d[7:])
	}
	return d
}
