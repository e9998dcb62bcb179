package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/san-kum/kinsim/internal/condition"
	"github.com/san-kum/kinsim/internal/dynamo"
	"github.com/san-kum/kinsim/internal/export"
	"github.com/san-kum/kinsim/internal/integrators"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/series"
	"github.com/san-kum/kinsim/internal/storage"
	"github.com/san-kum/kinsim/internal/tracing"
)

// SweepConfig describes a sensitivity-capable sweep over every combination
// of the listed reactors, compositions, temperatures, pressures and
// durations. Temperatures are K, pressures Pa, durations s.
type SweepConfig struct {
	Mechanism        *mechanism.Mechanism
	OutputDir        string
	SensitiveSpecies []*mechanism.Species

	Reactors      []condition.ReactorType
	Durations     []float64
	MoleFractions []map[*mechanism.Species]float64
	Temperatures  []float64
	Pressures     []float64

	// Integrator defaults to rk45 and must support adaptive stepping.
	Integrator string
	Tolerance  float64
	Dt         float64

	TopSpecies   int
	TopReactions int
	Parallelism  int
}

type Sweep struct {
	cfg  SweepConfig
	opts options
}

func NewSweep(cfg SweepConfig, opts ...Option) *Sweep {
	if cfg.Integrator == "" {
		cfg.Integrator = "rk45"
	}
	cfg.TopSpecies = orDefault(cfg.TopSpecies, DefaultTopSpecies)
	cfg.TopReactions = orDefault(cfg.TopReactions, DefaultTopReactions)
	return &Sweep{cfg: cfg, opts: buildOptions(opts)}
}

// MoleFractionsPath is where condition i's mole fraction plot goes.
func MoleFractionsPath(out string, i int) string {
	return filepath.Join(out, strconv.Itoa(i)+"_mole_fractions.png")
}

// SensitivityPath is where condition i's sensitivity plot for label goes.
func SensitivityPath(out string, i int, label string) string {
	return filepath.Join(out, fmt.Sprintf("%d_%s_sensitivity.png", i, label))
}

// Run simulates every generated condition in order and returns one result
// per condition. Sensitivity plots are drawn only for tracked species
// present in the initial mixture.
func (s *Sweep) Run(ctx context.Context) (_ *Artifacts, _ []*series.Result, err error) {
	cfg := s.cfg
	log := s.opts.log

	if !integrators.IsAdaptive(cfg.Integrator) {
		return nil, nil, fmt.Errorf("%w: %q", ErrSensitivityUnsupported, cfg.Integrator)
	}

	conds, err := condition.Generate(cfg.Reactors, cfg.Durations, cfg.MoleFractions, cfg.Temperatures, cfg.Pressures)
	if err != nil {
		return nil, nil, err
	}

	ctx, span := tracing.Start(ctx, "driver.sweep",
		attribute.Int("conditions", len(conds)),
		attribute.String("integrator", cfg.Integrator),
	)
	defer func() { tracing.End(span, err) }()

	log.Info().
		Int("conditions", len(conds)).
		Int("sensitive_species", len(cfg.SensitiveSpecies)).
		Str("integrator", cfg.Integrator).
		Msg("sweep started")

	arts := &Artifacts{Backend: BackendSweep}
	results := make([]*series.Result, 0, len(conds))

	for _, c := range conds {
		simCfg := dynamo.DefaultConfig()
		simCfg.Duration = c.Duration()
		simCfg.Adaptive = true
		if cfg.Tolerance > 0 {
			simCfg.Tolerance = cfg.Tolerance
		}
		if cfg.Dt > 0 {
			simCfg.Dt = cfg.Dt
		}

		res, err := simulate(ctx, job{
			mech:        cfg.Mechanism,
			cond:        c,
			sensitive:   cfg.SensitiveSpecies,
			integrator:  cfg.Integrator,
			cfg:         simCfg,
			parallelism: cfg.Parallelism,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, res)

		path := MoleFractionsPath(cfg.OutputDir, c.Index())
		if err := export.LinePlot(path, res.MoleFractions, cfg.TopSpecies, export.Options{
			Title:  c.String(),
			YLabel: "Mole fraction",
		}); err != nil {
			return nil, nil, err
		}
		arts.addImage(path)

		for _, sp := range cfg.SensitiveSpecies {
			if c.MoleFraction(sp) == 0 {
				continue
			}
			path := SensitivityPath(cfg.OutputDir, c.Index(), sp.Label())
			if err := export.BarPlot(path, res.Sensitivities[sp.Label()], cfg.TopReactions, export.Options{
				Title:  "Sensitivity of " + sp.Label(),
				XLabel: "dln X / dln k",
			}); err != nil {
				return nil, nil, err
			}
			arts.addImage(path)
		}

		if s.opts.store != nil {
			id, err := s.opts.store.Save(storage.RunMetadata{
				Driver:     BackendSweep,
				Mechanism:  cfg.Mechanism.Name,
				Integrator: cfg.Integrator,
				Tolerance:  simCfg.Tolerance,
			}, res)
			if err != nil {
				return nil, nil, err
			}
			arts.RunIDs = append(arts.RunIDs, id)
		}

		log.Debug().
			Int("condition", c.Index()).
			Int("steps", res.StepsTaken).
			Int("rejected", res.Rejected).
			Msg("condition complete")
	}

	return arts, results, nil
}

// Expected lists the images Run writes for cfg without simulating.
func (s *Sweep) Expected() (*Artifacts, error) {
	cfg := s.cfg
	conds, err := condition.Generate(cfg.Reactors, cfg.Durations, cfg.MoleFractions, cfg.Temperatures, cfg.Pressures)
	if err != nil {
		return nil, err
	}
	arts := &Artifacts{Backend: BackendSweep}
	for _, c := range conds {
		arts.addImage(MoleFractionsPath(cfg.OutputDir, c.Index()))
		for _, sp := range cfg.SensitiveSpecies {
			if c.MoleFraction(sp) == 0 {
				continue
			}
			arts.addImage(SensitivityPath(cfg.OutputDir, c.Index(), sp.Label()))
		}
	}
	return arts, nil
}
