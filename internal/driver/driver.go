// Package driver runs the three simulation backends and reports the files
// each one wrote.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/san-kum/kinsim/internal/condition"
	"github.com/san-kum/kinsim/internal/dynamo"
	"github.com/san-kum/kinsim/internal/integrators"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/metrics"
	"github.com/san-kum/kinsim/internal/reactor"
	"github.com/san-kum/kinsim/internal/sensitivity"
	"github.com/san-kum/kinsim/internal/series"
	"github.com/san-kum/kinsim/internal/storage"
	"github.com/san-kum/kinsim/internal/tracing"
)

// Backend names, used in Artifacts and as run store driver names.
const (
	BackendSweep  = "sweep"
	BackendNative = "native"
	BackendTable  = "table"
)

const (
	DefaultTopSpecies   = 10
	DefaultTopReactions = 10
)

// ErrSensitivityUnsupported is returned by the sweep driver when the chosen
// integrator cannot drive sensitivity runs.
var ErrSensitivityUnsupported = errors.New("driver: integrator does not support sensitivity analysis")

// Artifacts lists what one backend wrote. Paths are as passed to the
// plotting and CSV layers, rooted at the configured output directory.
type Artifacts struct {
	Backend string
	Images  []string
	Tables  []string
	RunIDs  []string
}

func (a *Artifacts) addImage(p string) { a.Images = append(a.Images, p) }
func (a *Artifacts) addTable(p string) { a.Tables = append(a.Tables, p) }

type options struct {
	log   zerolog.Logger
	store *storage.Store
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithStore persists every simulated condition in s.
func WithStore(s *storage.Store) Option {
	return func(o *options) { o.store = s }
}

func buildOptions(opts []Option) options {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// job is one condition to simulate.
type job struct {
	mech        *mechanism.Mechanism
	cond        *condition.Condition
	sensitive   []*mechanism.Species
	integrator  string
	cfg         dynamo.Config
	parallelism int
}

// simulate integrates one condition and, when species are tracked,
// computes their sensitivities on the base run's time axis.
func simulate(ctx context.Context, j job, log zerolog.Logger) (res *series.Result, err error) {
	ctx, span := tracing.Start(ctx, "driver.simulate",
		attribute.Int("condition", j.cond.Index()),
		attribute.String("reactor", string(j.cond.Reactor())),
		attribute.Int("sensitive_species", len(j.sensitive)),
	)
	defer func() { tracing.End(span, err) }()

	sys, err := reactor.New(j.mech, j.cond)
	if err != nil {
		return nil, err
	}
	integ, err := integrators.New(j.integrator)
	if err != nil {
		return nil, err
	}

	sim := dynamo.New(sys, integ,
		dynamo.WithMetrics(metrics.All(sys)...),
		dynamo.WithLogger(log),
	)
	run, err := sim.Run(ctx, sys.InitialState(), j.cfg)
	if err != nil {
		return nil, fmt.Errorf("condition %d: %w", j.cond.Index(), err)
	}

	tb, temperature, pressure, err := sys.Tabulate(run)
	if err != nil {
		return nil, err
	}
	res = &series.Result{
		Condition:     j.cond,
		MoleFractions: tb,
		Temperature:   temperature,
		Pressure:      pressure,
		StepsTaken:    run.StepsTaken,
		Rejected:      run.Rejected,
		Metrics:       run.Metrics,
	}

	if len(j.sensitive) == 0 {
		return res, nil
	}

	build := func(mult []float64) (sensitivity.System, error) {
		s, err := reactor.New(j.mech, j.cond, reactor.WithMultipliers(mult))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	res.Sensitivities, err = sensitivity.Analyze(ctx, j.mech, build, tb, j.sensitive, sensitivity.Options{
		Parallelism: j.parallelism,
		Integrator:  j.integrator,
		Config:      j.cfg,
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("condition %d: %w", j.cond.Index(), err)
	}
	return res, nil
}

func orDefault(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}
