package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// endSlack absorbs float accumulation so a fixed-step run of Duration/Dt
// steps ends on Duration instead of adding a sliver step.
const endSlack = 1e-9

type Simulator struct {
	sys        System
	integrator Integrator
	metrics    []Metric
	observers  []Observer
	log        zerolog.Logger
}

type Option func(*Simulator)

func WithMetrics(m ...Metric) Option {
	return func(s *Simulator) { s.metrics = append(s.metrics, m...) }
}

func WithObservers(o ...Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o...) }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

func New(sys System, integrator Integrator, opts ...Option) *Simulator {
	s := &Simulator{
		sys:        sys,
		integrator: integrator,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run integrates from x0 at t = 0 to cfg.Duration. The final step is clipped
// so the last recorded time is exactly cfg.Duration.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.sys.StateDim() {
		return nil, fmt.Errorf("%w: state has %d entries, system wants %d", ErrDimensionMismatch, len(x0), s.sys.StateDim())
	}

	estimate := int(cfg.Duration/cfg.Dt) + 1
	if cfg.Adaptive || estimate > 1<<16 {
		estimate = 256
	}
	result := &Result{
		States:  make([]State, 0, estimate),
		Times:   make([]float64, 0, estimate),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt
	s.record(result, x, t)

	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return result, &SimulationError{
				Step:    result.StepsTaken,
				Time:    t,
				State:   x.Clone(),
				Wrapped: fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err()),
			}
		default:
		}

		h := dt
		last := t+h >= cfg.Duration*(1-endSlack)
		if last {
			h = cfg.Duration - t
		}

		var newX State
		if cfg.Adaptive {
			var next float64
			var err error
			newX, next, err = s.adaptiveStep(x, t, h, cfg.Tolerance)
			if errors.Is(err, ErrStepRejected) {
				result.Rejected++
				if next < cfg.MinDt {
					return result, &SimulationError{
						Step:    result.StepsTaken,
						Time:    t,
						State:   x.Clone(),
						Wrapped: fmt.Errorf("%w: dt=%g min=%g", ErrStepTooSmall, next, cfg.MinDt),
					}
				}
				dt = next
				continue
			}
			if err != nil {
				return result, &SimulationError{Step: result.StepsTaken, Time: t, State: x.Clone(), Wrapped: err}
			}
			dt = clampDt(next, cfg)
		} else {
			newX = s.integrator.Step(s.sys, x, t, h)
		}

		if cfg.ValidateState && !newX.IsValid() {
			return result, &SimulationError{Step: result.StepsTaken, Time: t + h, State: newX, Wrapped: ErrInvalidState}
		}

		x = newX
		if last {
			t = cfg.Duration
		} else {
			t += h
		}
		result.StepsTaken++
		s.record(result, x, t)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.log.Debug().
		Int("steps", result.StepsTaken).
		Int("rejected", result.Rejected).
		Float64("duration", cfg.Duration).
		Msg("integration complete")

	return result, nil
}

func (s *Simulator) record(result *Result, x State, t float64) {
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, t)
	}
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", ErrInvalidConfig)
	}
	if cfg.MaxDt < 0 || cfg.MinDt < 0 {
		return fmt.Errorf("%w: step bounds must not be negative", ErrInvalidConfig)
	}
	return nil
}

func clampDt(dt float64, cfg Config) float64 {
	if cfg.MaxDt > 0 && dt > cfg.MaxDt {
		dt = cfg.MaxDt
	}
	if dt < cfg.MinDt {
		dt = cfg.MinDt
	}
	return dt
}

// adaptiveStep uses the integrator's own error control when it has one and
// falls back to step doubling otherwise.
func (s *Simulator) adaptiveStep(x State, t, dt, tol float64) (State, float64, error) {
	if adaptive, ok := s.integrator.(AdaptiveIntegrator); ok {
		return adaptive.StepAdaptive(s.sys, x, t, dt, tol)
	}

	x1 := s.integrator.Step(s.sys, x, t, dt)
	xHalf := s.integrator.Step(s.sys, x, t, dt/2)
	x2 := s.integrator.Step(s.sys, xHalf, t+dt/2, dt/2)

	scale := x.Norm() + 1e-30
	err := x1.Sub(x2).Norm() / scale

	if err > tol {
		return x, dt / 2, ErrStepRejected
	}
	if err < tol/10 {
		return x2, dt * 2, nil
	}
	return x2, dt, nil
}

