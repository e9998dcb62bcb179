package driver

import (
	"context"
	"fmt"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"github.com/san-kum/kinsim/internal/csvimport"
	"github.com/san-kum/kinsim/internal/export"
	"github.com/san-kum/kinsim/internal/input"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/series"
	"github.com/san-kum/kinsim/internal/storage"
	"github.com/san-kum/kinsim/internal/tracing"
)

// solverDir is the subdirectory of the output directory the native driver
// writes into.
const solverDir = "solver"

// Native runs every reaction system of a native input file.
type Native struct {
	inputFile    string
	outputDir    string
	topSpecies   int
	topReactions int
	opts         options
}

func NewNative(inputFile, outputDir string, opts ...Option) *Native {
	return &Native{
		inputFile:    inputFile,
		outputDir:    outputDir,
		topSpecies:   DefaultTopSpecies,
		topReactions: DefaultTopReactions,
		opts:         buildOptions(opts),
	}
}

// SetTop overrides how many species and reactions the plots show. Zero
// keeps the default; negative shows all.
func (n *Native) SetTop(species, reactions int) {
	n.topSpecies = orDefault(species, DefaultTopSpecies)
	n.topReactions = orDefault(reactions, DefaultTopReactions)
}

// SimulationPath is the mole fraction plot of reaction system r in a
// mechanism of numSpecies species. The CSV shares the base name.
func SimulationPath(out string, r, numSpecies int) string {
	return filepath.Join(out, solverDir, fmt.Sprintf("simulation_%d_%d.png", r, numSpecies))
}

// SolverSensitivityPath is the sensitivity plot of label in reaction
// system r.
func SolverSensitivityPath(out string, r int, label string) string {
	return filepath.Join(out, solverDir, fmt.Sprintf("sensitivity_%d_%s_reactions.png", r, label))
}

func simulationCSV(out string, r, numSpecies int) string {
	return filepath.Join(out, solverDir, fmt.Sprintf("simulation_%d_%d.csv", r, numSpecies))
}

func sensitivityCSV(out string, r int, label string) string {
	return filepath.Join(out, solverDir, fmt.Sprintf("sensitivity_%d_%s.csv", r, label))
}

func (n *Native) Run(ctx context.Context) (_ *Artifacts, _ []*series.Result, err error) {
	ctx, span := tracing.Start(ctx, "driver.native", attribute.String("input", n.inputFile))
	defer func() { tracing.End(span, err) }()

	f, err := input.Load(n.inputFile)
	if err != nil {
		return nil, nil, err
	}
	m, err := mechanism.Load(f.Mechanism)
	if err != nil {
		return nil, nil, err
	}
	numSpecies := len(m.Species)
	log := n.opts.log

	log.Info().
		Str("input", n.inputFile).
		Int("reaction_systems", len(f.Systems)).
		Str("integrator", f.Solver.Integrator).
		Msg("native run started")

	arts := &Artifacts{Backend: BackendNative}
	results := make([]*series.Result, 0, len(f.Systems))

	for i, rs := range f.Systems {
		r := i + 1
		c, sens, err := f.Condition(m, i)
		if err != nil {
			return nil, nil, err
		}
		simCfg, err := f.SimConfig(rs)
		if err != nil {
			return nil, nil, err
		}

		res, err := simulate(ctx, job{
			mech:        m,
			cond:        c,
			sensitive:   sens,
			integrator:  f.Solver.Integrator,
			cfg:         simCfg,
			parallelism: f.Solver.Parallelism,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, res)

		csvPath := simulationCSV(n.outputDir, r, numSpecies)
		if err := csvimport.Write(csvPath, res.MoleFractions); err != nil {
			return nil, nil, err
		}
		arts.addTable(csvPath)

		png := SimulationPath(n.outputDir, r, numSpecies)
		if err := export.LinePlot(png, res.MoleFractions, n.topSpecies, export.Options{
			Title:  fmt.Sprintf("Reaction system %d", r),
			YLabel: "Mole fraction",
		}); err != nil {
			return nil, nil, err
		}
		arts.addImage(png)

		for _, sp := range sens {
			tb := res.Sensitivities[sp.Label()]
			csvPath := sensitivityCSV(n.outputDir, r, sp.Label())
			if err := csvimport.Write(csvPath, tb); err != nil {
				return nil, nil, err
			}
			arts.addTable(csvPath)

			png := SolverSensitivityPath(n.outputDir, r, sp.Label())
			if err := export.BarPlot(png, tb, n.topReactions, export.Options{
				Title:  fmt.Sprintf("Reaction system %d: sensitivity of %s", r, sp.Label()),
				XLabel: "dln X / dln k",
			}); err != nil {
				return nil, nil, err
			}
			arts.addImage(png)
		}

		if n.opts.store != nil {
			id, err := n.opts.store.Save(storage.RunMetadata{
				Driver:     BackendNative,
				Mechanism:  m.Name,
				Integrator: f.Solver.Integrator,
				Tolerance:  simCfg.Tolerance,
			}, res)
			if err != nil {
				return nil, nil, err
			}
			arts.RunIDs = append(arts.RunIDs, id)
		}
	}

	return arts, results, nil
}

// Expected lists the images and tables Run writes for the input file
// without simulating.
func (n *Native) Expected() (*Artifacts, error) {
	f, err := input.Load(n.inputFile)
	if err != nil {
		return nil, err
	}
	m, err := mechanism.Load(f.Mechanism)
	if err != nil {
		return nil, err
	}
	numSpecies := len(m.Species)

	arts := &Artifacts{Backend: BackendNative}
	for i := range f.Systems {
		r := i + 1
		_, sens, err := f.Condition(m, i)
		if err != nil {
			return nil, err
		}
		arts.addTable(simulationCSV(n.outputDir, r, numSpecies))
		arts.addImage(SimulationPath(n.outputDir, r, numSpecies))
		for _, sp := range sens {
			arts.addTable(sensitivityCSV(n.outputDir, r, sp.Label()))
			arts.addImage(SolverSensitivityPath(n.outputDir, r, sp.Label()))
		}
	}
	return arts, nil
}
