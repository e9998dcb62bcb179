package integrators

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/kinsim/internal/dynamo"
)

var ErrUnknownIntegrator = errors.New("integrators: unknown integrator")

var registry = map[string]func() dynamo.Integrator{
	"euler": func() dynamo.Integrator { return NewEuler() },
	"rk4":   func() dynamo.Integrator { return NewRK4() },
	"rk45":  func() dynamo.Integrator { return NewRK45() },
}

// New returns a fresh integrator by name. Integrators carry scratch state,
// so every simulation needs its own.
func New(name string) (dynamo.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownIntegrator, name, Names())
	}
	return fn(), nil
}

// IsAdaptive reports whether the named integrator has its own error control.
func IsAdaptive(name string) bool {
	fn, ok := registry[name]
	if !ok {
		return false
	}
	_, adaptive := fn().(dynamo.AdaptiveIntegrator)
	return adaptive
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
