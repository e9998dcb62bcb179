package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/kinsim/internal/condition"
	"github.com/san-kum/kinsim/internal/driver"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/pipeline"
	"github.com/san-kum/kinsim/internal/report"
	"github.com/san-kum/kinsim/internal/storage"
)

func store() *storage.Store { return storage.New(settings.Data) }

func newRunCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "run [pipeline.yaml]",
		Short: "run the full comparison pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := pipeline.Load(args[0])
			if err != nil {
				return err
			}
			opts := pipeline.Options{Logger: logger, Summary: cmd.OutOrStdout()}
			if save {
				opts.Store = store()
			}
			_, err = pipeline.Run(cmd.Context(), f, opts)
			return err
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "persist every simulated condition in the run store")
	return cmd
}

// mechanismFlags are shared by commands that load a mechanism directly.
type mechanismFlags struct {
	files mechanism.Files
}

func (m *mechanismFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.files.Mechanism, "mechanism", "", "mechanism file (yaml)")
	cmd.Flags().StringVar(&m.files.Dictionary, "dictionary", "", "species dictionary file (yaml)")
	cmd.Flags().StringVar(&m.files.Transport, "transport", "", "transport file (yaml)")
	_ = cmd.MarkFlagRequired("mechanism")
}

func newSimulateCmd() *cobra.Command {
	var (
		mf           mechanismFlags
		preset       string
		sensitive    []string
		out          string
		integrator   string
		tolerance    float64
		topSpecies   int
		topReactions int
		save         bool
		preview      bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "run the sensitivity sweep backend on a preset condition",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mechanism.Load(mf.files)
			if err != nil {
				return err
			}
			species, err := mechanism.NewResolver(m).ResolveAll(sensitive)
			if err != nil {
				return err
			}
			c, err := condition.FromPreset(preset, m)
			if err != nil {
				return err
			}

			var opts []driver.Option
			opts = append(opts, driver.WithLogger(logger))
			if save {
				opts = append(opts, driver.WithStore(store()))
			}
			arts, results, err := driver.NewSweep(driver.SweepConfig{
				Mechanism:        m,
				OutputDir:        out,
				SensitiveSpecies: species,
				Reactors:         []condition.ReactorType{c.Reactor()},
				Durations:        []float64{c.Duration()},
				MoleFractions:    []map[*mechanism.Species]float64{c.MoleFractions()},
				Temperatures:     []float64{c.Temperature()},
				Pressures:        []float64{c.Pressure()},
				Integrator:       integrator,
				Tolerance:        tolerance,
				TopSpecies:       topSpecies,
				TopReactions:     topReactions,
			}, opts...).Run(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, p := range arts.Images {
				fmt.Fprintln(w, p)
			}
			if preview {
				for _, res := range results {
					if err := report.Preview(w, res.MoleFractions, topSpecies); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	mf.register(cmd)
	cmd.Flags().StringVar(&preset, "preset", "ethane-pyrolysis", "condition preset (see kinsim presets)")
	cmd.Flags().StringSliceVar(&sensitive, "sensitive", nil, "species descriptors to compute sensitivities for")
	cmd.Flags().StringVar(&out, "out", "temp", "output directory")
	cmd.Flags().StringVar(&integrator, "integrator", "rk45", "adaptive integrator")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-6, "adaptive step tolerance")
	cmd.Flags().IntVar(&topSpecies, "top-species", driver.DefaultTopSpecies, "species shown in mole fraction plots")
	cmd.Flags().IntVar(&topReactions, "top-reactions", driver.DefaultTopReactions, "reactions shown in sensitivity plots")
	cmd.Flags().BoolVar(&save, "save", false, "persist the run in the run store")
	cmd.Flags().BoolVar(&preview, "preview", false, "draw a terminal preview of the mole fractions")
	return cmd
}

func newSolveCmd() *cobra.Command {
	var (
		out  string
		save bool
	)
	cmd := &cobra.Command{
		Use:   "solve [input.yaml]",
		Short: "run the native backend from an input file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []driver.Option{driver.WithLogger(logger)}
			if save {
				opts = append(opts, driver.WithStore(store()))
			}
			arts, _, err := driver.NewNative(args[0], out, opts...).Run(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range append(arts.Images, arts.Tables...) {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "temp", "output directory")
	cmd.Flags().BoolVar(&save, "save", false, "persist every reaction system in the run store")
	return cmd
}

func newImportCmd() *cobra.Command {
	var cfg driver.TableConfig
	cmd := &cobra.Command{
		Use:   "import",
		Short: "plot exported mole fraction and sensitivity CSV tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.MoleFractionsCSV == "" && cfg.SensitivityCSV == "" {
				return fmt.Errorf("%w: give --mole-fractions and/or --sensitivity", pipeline.ErrConfig)
			}
			arts, err := driver.NewTable(cfg, driver.WithLogger(logger)).Run(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range arts.Images {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.MoleFractionsCSV, "mole-fractions", "", "mole fraction CSV")
	cmd.Flags().StringVar(&cfg.SensitivityCSV, "sensitivity", "", "sensitivity CSV")
	cmd.Flags().StringVar(&cfg.OutputDir, "out", filepath.Join("temp", pipeline.TableDir), "output directory")
	cmd.Flags().IntVar(&cfg.TopSpecies, "top-species", driver.DefaultTopSpecies, "species shown")
	cmd.Flags().IntVar(&cfg.TopReactions, "top-reactions", driver.DefaultTopReactions, "reactions shown")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		title        string
		pipelineFile string
		expect       []string
	)
	cmd := &cobra.Command{
		Use:   "report [output dir]",
		Short: "build the comparison report from an output directory",
		Long: "Build report.html from the images a previous run left behind.\n" +
			"With --pipeline the expected images are derived from the pipeline file and\n" +
			"every one must exist. Otherwise each backend named by --expect must have\n" +
			"left at least one image in its subdirectory.",
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				dir  string
				arts []*driver.Artifacts
				err  error
			)
			switch {
			case pipelineFile != "" && len(args) == 0:
				f, lerr := pipeline.Load(pipelineFile)
				if lerr != nil {
					return lerr
				}
				if title == "" {
					title = f.Name
				}
				dir = f.Output
				arts, err = pipeline.Expected(f)
			case pipelineFile == "" && len(args) == 1:
				dir = args[0]
				arts, err = collectArtifacts(dir, expect)
			default:
				return fmt.Errorf("%w: give an output directory or --pipeline, not both", pipeline.ErrConfig)
			}
			if err != nil {
				return err
			}
			_, err = report.Build(cmd.Context(), report.Options{
				OutputDir: dir,
				Title:     title,
				Summary:   cmd.OutOrStdout(),
				Logger:    logger,
			}, arts...)
			return err
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "report title")
	cmd.Flags().StringVar(&pipelineFile, "pipeline", "", "pipeline file whose outputs the report must show")
	cmd.Flags().StringSliceVar(&expect, "expect",
		[]string{driver.BackendSweep, driver.BackendNative, driver.BackendTable},
		"backends that must have left images in the output directory")
	return cmd
}

// backendDirs is where each backend leaves its images inside an output
// directory.
var backendDirs = map[string]string{
	driver.BackendSweep:  "",
	driver.BackendNative: "solver",
	driver.BackendTable:  pipeline.TableDir,
}

// collectArtifacts finds the images each expected backend left in dir. A
// backend with no images fails with an ImageNotFoundError naming its
// subdirectory.
func collectArtifacts(dir string, expect []string) ([]*driver.Artifacts, error) {
	if len(expect) == 0 {
		return nil, fmt.Errorf("%w: --expect names no backend", pipeline.ErrConfig)
	}
	var arts []*driver.Artifacts
	for _, backend := range expect {
		sub, ok := backendDirs[backend]
		if !ok {
			return nil, fmt.Errorf("%w: unknown backend %q", pipeline.ErrConfig, backend)
		}
		where := filepath.Join(dir, sub)
		images, err := filepath.Glob(filepath.Join(where, "*.png"))
		if err != nil {
			return nil, err
		}
		if len(images) == 0 {
			return nil, &report.ImageNotFoundError{Backend: backend, Path: filepath.Join(where, "*.png")}
		}
		sort.Strings(images)
		arts = append(arts, &driver.Artifacts{Backend: backend, Images: images})
	}
	return arts, nil
}

func newResolveCmd() *cobra.Command {
	var mf mechanismFlags
	cmd := &cobra.Command{
		Use:   "resolve [descriptor...]",
		Short: "look up species in a mechanism by structure or alias",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mechanism.Load(mf.files)
			if err != nil {
				return err
			}
			r := mechanism.NewResolver(m)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DESCRIPTOR\tSPECIES\tMW (g/mol)")
			for _, d := range args {
				s, err := r.Resolve(d)
				if err != nil {
					w.Flush()
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%.3f\n", d, s.Label(), s.MolecularWeight*1e3)
			}
			return w.Flush()
		},
	}
	mf.register(cmd)
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := store().List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMECHANISM\tTIME\tREACTOR\tT (K)\tP (Pa)\tDURATION\tINTEG\tSTEPS")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%g\t%gs\t%s\t%d\n",
					run.ID,
					run.Mechanism,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Condition.Reactor,
					run.Condition.Temperature,
					run.Condition.Pressure,
					run.Condition.Duration,
					run.Integrator,
					run.StepsTaken,
				)
			}
			return w.Flush()
		},
	}
}

func newPlotCmd() *cobra.Command {
	var (
		top         int
		sensitivity string
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store()
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			tb, err := st.LoadTable(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s  %s  T=%gK P=%gPa\n\n", meta.ID, meta.Condition.Reactor, meta.Condition.Temperature, meta.Condition.Pressure)
			if err := report.Preview(w, tb, top); err != nil {
				return err
			}

			if sensitivity == "" {
				return nil
			}
			sens, err := st.LoadSensitivity(args[0], sensitivity)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\nsensitivity of %s at t=%gs\n", sensitivity, sens.Time[sens.Len()-1])
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			for _, c := range sens.TopByFinalAbs(top) {
				fmt.Fprintf(tw, "%+.4f\t%s\n", c.Final(), c.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&top, "top", 6, "number of series shown")
	cmd.Flags().StringVar(&sensitivity, "sensitivity", "", "also list the sensitivities of this species label")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list condition presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tREACTOR\tT (K)\tP (Pa)\tDURATION\tCOMPOSITION")
			for _, name := range condition.PresetNames() {
				p := condition.Presets[name]
				fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%gs\t%s\n", name, p.Reactor, p.Temperature, p.Pressure, p.Duration, composition(p.Composition))
			}
			return w.Flush()
		},
	}
}

func composition(x map[string]float64) string {
	names := make([]string, 0, len(x))
	for n := range x {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%g", n, x[n])
	}
	return strings.Join(parts, " ")
}

func newExportJSONCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return store().ExportJSON(cmd.OutOrStdout(), args[0])
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := store().ExportJSON(f, args[0]); err != nil {
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}
