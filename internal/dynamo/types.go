package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Lerp returns s + f*(other-s).
func (s State) Lerp(other State, f float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] + f*(other[i]-s[i])
	}
	return result
}

type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

// AdaptiveIntegrator takes one error-controlled step. On rejection it
// returns the unchanged state, a smaller dt and ErrStepRejected.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, dt, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Config struct {
	Dt            float64
	Duration      float64
	Tolerance     float64
	MaxDt         float64 // zero means uncapped
	MinDt         float64
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            1e-7,
		Duration:      1e-3,
		Tolerance:     1e-6,
		MinDt:         1e-15,
		Adaptive:      true,
		ValidateState: true,
	}
}

type Result struct {
	States     []State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Rejected   int
}

func (r *Result) Final() State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// At linearly interpolates the trajectory at time t, clamping to the ends.
func (r *Result) At(t float64) State {
	n := len(r.Times)
	if n == 0 {
		return nil
	}
	if t <= r.Times[0] {
		return r.States[0].Clone()
	}
	if t >= r.Times[n-1] {
		return r.States[n-1].Clone()
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if r.Times[mid] <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	span := r.Times[hi] - r.Times[lo]
	if span == 0 {
		return r.States[hi].Clone()
	}
	return r.States[lo].Lerp(r.States[hi], (t-r.Times[lo])/span)
}
