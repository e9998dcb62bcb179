// Package dynamo provides the integration primitives shared by every
// reactor simulation.
//
//   - [State]: vector of integrated quantities
//   - [System]: right-hand side of dX/dt = f(X, t)
//   - [Integrator] and [AdaptiveIntegrator]: single-step schemes
//   - [Simulator]: drives an integrator from t = 0 to Config.Duration
//   - [Ensemble] and [Map]: bounded parallel evaluation
//
// # Example
//
//	sys, _ := reactor.New(mech, cond)
//	sim := dynamo.New(sys, integrators.NewRK45())
//	result, err := sim.Run(ctx, sys.InitialState(), cfg)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe, and neither are the integrators
// they hold. Parallel runs must each build their own, which is what
// [Ensemble] does.
package dynamo
