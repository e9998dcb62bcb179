package integrators

import "github.com/san-kum/kinsim/internal/dynamo"

// Euler is first order and fixed step. It is kept for quick smoke runs; the
// reactors are too stiff for it at useful step sizes.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	dx := sys.Derive(x, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
