package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/san-kum/kinsim/internal/condition"
	"github.com/san-kum/kinsim/internal/driver"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/report"
	"github.com/san-kum/kinsim/internal/series"
	"github.com/san-kum/kinsim/internal/storage"
	"github.com/san-kum/kinsim/internal/tracing"
	"github.com/san-kum/kinsim/internal/units"
)

// TableDir is the subdirectory of the output directory backend C writes to.
const TableDir = "table"

type Options struct {
	Logger zerolog.Logger
	// Store, when set, persists every simulated condition.
	Store *storage.Store
	// Summary receives the report's terminal summary.
	Summary io.Writer
}

// Outcome is everything a pipeline run produced. Artifacts holds one entry
// per enabled backend, in run order.
type Outcome struct {
	Mechanism  *mechanism.Mechanism
	Species    map[string]*mechanism.Species
	Conditions []*condition.Condition
	Artifacts  []*driver.Artifacts
	Results    map[string][]*series.Result
	Report     *report.Report
}

// StageError names the stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

type runner struct {
	f    *File
	opts Options
	log  zerolog.Logger
	out  *Outcome

	sweep driver.SweepConfig
}

// Run executes the stages in order. The first failure aborts the run.
func Run(ctx context.Context, f *File, opts Options) (_ *Outcome, err error) {
	ctx, span := tracing.Start(ctx, "pipeline.run", attribute.String("pipeline", f.Path))
	defer func() { tracing.End(span, err) }()

	r := &runner{
		f:    f,
		opts: opts,
		log:  opts.Logger,
		out:  &Outcome{Results: make(map[string][]*series.Result)},
	}

	stages := []struct {
		name string
		run  func(context.Context) error
		skip bool
	}{
		{"load", r.load, f.Mechanism.Mechanism == ""},
		{"resolve", r.resolve, f.Mechanism.Mechanism == ""},
		{"configure", r.configure, !f.Sweep.Enabled},
		{"sweep", r.runSweep, !f.Sweep.Enabled},
		{"native", r.runNative, !f.Native.Enabled},
		{"table", r.runTable, !f.Table.Enabled},
		{"report", r.buildReport, !f.Report},
	}

	start := time.Now()
	for _, st := range stages {
		if st.skip {
			r.log.Debug().Str("stage", st.name).Msg("stage skipped")
			continue
		}
		if err := r.stage(ctx, st.name, st.run); err != nil {
			return r.out, err
		}
	}

	r.log.Info().Dur("elapsed", time.Since(start)).Int("backends", len(r.out.Artifacts)).Msg("pipeline complete")
	return r.out, nil
}

// Expected derives the images each enabled backend of f writes, without
// simulating. The mechanism is still loaded and species resolved, so the
// paths match what Run would produce.
func Expected(f *File) ([]*driver.Artifacts, error) {
	ctx := context.Background()
	r := &runner{
		f:   f,
		log: zerolog.Nop(),
		out: &Outcome{Results: make(map[string][]*series.Result)},
	}

	if f.Mechanism.Mechanism != "" {
		if err := r.load(ctx); err != nil {
			return nil, &StageError{Stage: "load", Err: err}
		}
		if err := r.resolve(ctx); err != nil {
			return nil, &StageError{Stage: "resolve", Err: err}
		}
	}

	var arts []*driver.Artifacts
	if f.Sweep.Enabled {
		if err := r.configure(ctx); err != nil {
			return nil, &StageError{Stage: "configure", Err: err}
		}
		a, err := driver.NewSweep(r.sweep).Expected()
		if err != nil {
			return nil, &StageError{Stage: "sweep", Err: err}
		}
		arts = append(arts, a)
	}
	if f.Native.Enabled {
		a, err := r.nativeDriver().Expected()
		if err != nil {
			return nil, &StageError{Stage: "native", Err: err}
		}
		arts = append(arts, a)
	}
	if f.Table.Enabled {
		arts = append(arts, r.tableDriver().Expected())
	}
	return arts, nil
}

func (r *runner) stage(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: name, Err: err}
	}
	ctx, span := tracing.Start(ctx, "stage."+name)
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	if err := fn(ctx); err != nil {
		r.log.Error().Err(err).Str("stage", name).Msg("stage failed")
		return &StageError{Stage: name, Err: err}
	}
	r.log.Info().Str("stage", name).Dur("elapsed", time.Since(start)).Msg("stage complete")
	return nil
}

func (r *runner) load(context.Context) error {
	m, err := mechanism.Load(r.f.Mechanism)
	if err != nil {
		return err
	}
	r.out.Mechanism = m
	r.log.Info().
		Str("mechanism", m.Name).
		Int("species", len(m.Species)).
		Int("reactions", len(m.Reactions)).
		Msg("mechanism loaded")
	return nil
}

func (r *runner) resolve(context.Context) error {
	res := mechanism.NewResolver(r.out.Mechanism)
	keys := make([]string, 0, len(r.f.Species))
	for k := range r.f.Species {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r.out.Species = make(map[string]*mechanism.Species, len(keys))
	for _, k := range keys {
		s, err := res.Resolve(r.f.Species[k])
		if err != nil {
			return fmt.Errorf("species %q: %w", k, err)
		}
		r.out.Species[k] = s
		r.log.Debug().Str("key", k).Str("descriptor", r.f.Species[k]).Str("label", s.Label()).Msg("species resolved")
	}
	return nil
}

func (r *runner) configure(context.Context) error {
	sb := r.f.Sweep
	if r.out.Mechanism == nil {
		return errors.New("sweep needs a loaded mechanism")
	}

	cfg := driver.SweepConfig{
		Mechanism:    r.out.Mechanism,
		OutputDir:    r.f.Output,
		Reactors:     sb.Reactors,
		Integrator:   sb.Integrator,
		Tolerance:    sb.Tolerance,
		TopSpecies:   r.f.Top.Species,
		TopReactions: r.f.Top.Reactions,
		Parallelism:  sb.Parallelism,
	}

	var err error
	if cfg.Temperatures, err = toSI(sb.Temperatures); err != nil {
		return fmt.Errorf("temperatures: %w", err)
	}
	if cfg.Pressures, err = toSI(sb.Pressures); err != nil {
		return fmt.Errorf("pressures: %w", err)
	}
	if cfg.Durations, err = toSI(sb.Durations); err != nil {
		return fmt.Errorf("durations: %w", err)
	}
	for i, comp := range sb.Compositions {
		x := make(map[*mechanism.Species]float64, len(comp))
		for key, v := range comp {
			s, ok := r.out.Species[key]
			if !ok {
				return fmt.Errorf("composition %d: %w: %q", i+1, ErrConfig, key)
			}
			x[s] = v
		}
		cfg.MoleFractions = append(cfg.MoleFractions, x)
	}
	for _, key := range sb.Sensitive {
		s, ok := r.out.Species[key]
		if !ok {
			return fmt.Errorf("sensitive species: %w: %q", ErrConfig, key)
		}
		cfg.SensitiveSpecies = append(cfg.SensitiveSpecies, s)
	}

	if sb.Preset != "" {
		p, err := condition.FromPreset(sb.Preset, r.out.Mechanism)
		if err != nil {
			return err
		}
		fillFromPreset(&cfg, p)
	}

	conds, err := condition.Generate(cfg.Reactors, cfg.Durations, cfg.MoleFractions, cfg.Temperatures, cfg.Pressures)
	if err != nil {
		return err
	}
	r.out.Conditions = conds
	r.sweep = cfg
	r.log.Info().Int("conditions", len(conds)).Msg("conditions configured")
	return nil
}

// fillFromPreset sets every empty sweep axis from the preset condition.
func fillFromPreset(cfg *driver.SweepConfig, p *condition.Condition) {
	if len(cfg.Reactors) == 0 {
		cfg.Reactors = []condition.ReactorType{p.Reactor()}
	}
	if len(cfg.Temperatures) == 0 {
		cfg.Temperatures = []float64{p.Temperature()}
	}
	if len(cfg.Pressures) == 0 {
		cfg.Pressures = []float64{p.Pressure()}
	}
	if len(cfg.Durations) == 0 {
		cfg.Durations = []float64{p.Duration()}
	}
	if len(cfg.MoleFractions) == 0 {
		cfg.MoleFractions = []map[*mechanism.Species]float64{p.MoleFractions()}
	}
}

func toSI(qs []units.Quantity) ([]float64, error) {
	out := make([]float64, len(qs))
	for i, q := range qs {
		v, err := q.SI()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *runner) driverOptions(backend string) []driver.Option {
	opts := []driver.Option{driver.WithLogger(r.log.With().Str("backend", backend).Logger())}
	if r.opts.Store != nil {
		opts = append(opts, driver.WithStore(r.opts.Store))
	}
	return opts
}

func (r *runner) nativeDriver() *driver.Native {
	n := driver.NewNative(r.f.Native.Input, r.f.Output, r.driverOptions(driver.BackendNative)...)
	n.SetTop(r.f.Top.Species, r.f.Top.Reactions)
	return n
}

func (r *runner) tableDriver() *driver.Table {
	return driver.NewTable(driver.TableConfig{
		MoleFractionsCSV: r.f.Table.MoleFractions,
		SensitivityCSV:   r.f.Table.Sensitivity,
		OutputDir:        filepath.Join(r.f.Output, TableDir),
		TopSpecies:       r.f.Top.Species,
		TopReactions:     r.f.Top.Reactions,
	}, r.driverOptions(driver.BackendTable)...)
}

func (r *runner) runSweep(ctx context.Context) error {
	arts, results, err := driver.NewSweep(r.sweep, r.driverOptions(driver.BackendSweep)...).Run(ctx)
	if err != nil {
		return err
	}
	r.out.Artifacts = append(r.out.Artifacts, arts)
	r.out.Results[driver.BackendSweep] = results
	return nil
}

func (r *runner) runNative(ctx context.Context) error {
	arts, results, err := r.nativeDriver().Run(ctx)
	if err != nil {
		return err
	}
	r.out.Artifacts = append(r.out.Artifacts, arts)
	r.out.Results[driver.BackendNative] = results
	return nil
}

func (r *runner) runTable(ctx context.Context) error {
	arts, err := r.tableDriver().Run(ctx)
	if err != nil {
		return err
	}
	r.out.Artifacts = append(r.out.Artifacts, arts)
	return nil
}

func (r *runner) buildReport(ctx context.Context) error {
	title := r.f.Name
	if title == "" {
		title = "kinsim comparison"
	}
	rep, err := report.Build(ctx, report.Options{
		OutputDir: r.f.Output,
		Title:     title,
		Summary:   r.opts.Summary,
		Logger:    r.log,
	}, r.out.Artifacts...)
	if err != nil {
		return err
	}
	r.out.Report = rep
	return nil
}
