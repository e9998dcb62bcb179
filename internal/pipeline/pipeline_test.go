package pipeline_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/kinsim/internal/csvimport"
	"github.com/san-kum/kinsim/internal/driver"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/mechanism/mechanismtest"
	"github.com/san-kum/kinsim/internal/pipeline"
	"github.com/san-kum/kinsim/internal/report"
	"github.com/san-kum/kinsim/internal/series"
	"github.com/san-kum/kinsim/internal/storage"
)

const sweepOnly = `name: ethane pyrolysis
mechanism:
  mechanism: chem.yaml
  dictionary: species_dictionary.yaml
  transport: tran.yaml
species:
  ethane: CC
  methane: C
output: temp
sweep:
  enabled: true
  reactors: [IdealGasConstPressureTemperatureReactor]
  temperatures: [[1300, K]]
  pressures: [[1, bar]]
  durations: [[0.5, ms]]
  compositions:
    - {ethane: 1}
  sensitive: [ethane, methane]
`

const nativeInput = `mechanism:
  mechanism: chem.yaml
  dictionary: species_dictionary.yaml
solver:
  integrator: rk4
  dt: [2, us]
reaction_systems:
  - reactor: IdealGasConstPressureTemperatureReactor
    temperature: [1300, K]
    pressure: [1, bar]
    termination_time: [0.5, ms]
    initial_mole_fractions: {ethane: 1}
    sensitivity: [ethane]
`

const allBackends = `mechanism:
  mechanism: chem.yaml
  dictionary: species_dictionary.yaml
species:
  ethane: SMILES=CC
output: out
sweep:
  enabled: true
  preset: ethane-pyrolysis
  sensitive: [ethane]
native:
  enabled: true
  input: input.yaml
table:
  enabled: true
  mole_fractions: cantera/mole_fractions.csv
  sensitivity: cantera/sensitivity.csv
top:
  species: 5
  reactions: 5
`

func pngs(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	Expect(err).NotTo(HaveOccurred())
	for i, m := range matches {
		matches[i] = filepath.Base(m)
	}
	sort.Strings(matches)
	return matches
}

var _ = Describe("Pipeline", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		mechanismtest.WriteEthane(GinkgoT(), dir)
	})

	load := func(content string) *pipeline.File {
		path := mechanismtest.WriteFile(GinkgoT(), dir, "pipeline.yaml", content)
		f, err := pipeline.Load(path)
		Expect(err).NotTo(HaveOccurred())
		return f
	}

	Context("with the ethane sweep", func() {
		It("emits one mole fraction plot and one sensitivity plot", func() {
			out, err := pipeline.Run(context.Background(), load(sweepOnly), pipeline.Options{})
			Expect(err).NotTo(HaveOccurred())

			temp := filepath.Join(dir, "temp")
			Expect(out.Artifacts).To(HaveLen(1))
			Expect(out.Artifacts[0].Images).To(Equal([]string{
				filepath.Join(temp, "1_mole_fractions.png"),
				filepath.Join(temp, "1_ethane(1)_sensitivity.png"),
			}))
			Expect(pngs(temp)).To(Equal([]string{"1_ethane(1)_sensitivity.png", "1_mole_fractions.png"}))
			Expect(filepath.Join(temp, report.FileName)).To(BeARegularFile())
		})

		It("produces exactly one result per condition", func() {
			out, err := pipeline.Run(context.Background(), load(sweepOnly), pipeline.Options{})
			Expect(err).NotTo(HaveOccurred())

			Expect(out.Conditions).To(HaveLen(1))
			results := out.Results[driver.BackendSweep]
			Expect(results).To(HaveLen(1))
			Expect(results[0].Condition.Temperature()).To(Equal(1300.0))
			Expect(results[0].SensitivityLabels()).To(ConsistOf("ethane(1)", "methane(2)"))
		})

		It("resolves species of interest to mechanism labels", func() {
			out, err := pipeline.Run(context.Background(), load(sweepOnly), pipeline.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Species["ethane"].Label()).To(Equal("ethane(1)"))
			Expect(out.Species["methane"].Label()).To(Equal("methane(2)"))
		})

		It("persists runs when a store is configured", func() {
			st := storage.New(filepath.Join(dir, "runs"))
			out, err := pipeline.Run(context.Background(), load(sweepOnly), pipeline.Options{Store: st})
			Expect(err).NotTo(HaveOccurred())

			runs, err := st.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(1))
			Expect(out.Artifacts[0].RunIDs).To(Equal([]string{runs[0].ID}))
		})
	})

	Context("with every backend enabled", func() {
		BeforeEach(func() {
			mechanismtest.WriteFile(GinkgoT(), dir, "input.yaml", nativeInput)

			mf := series.NewTable([]float64{0, 2.5e-4, 5e-4})
			Expect(mf.Add("C2H6", []float64{1, 0.85, 0.7})).To(Succeed())
			Expect(mf.Add("CH4", []float64{0, 0.3, 0.6})).To(Succeed())
			sens := series.NewTable(mf.Time)
			Expect(sens.Add("C2H6 => 2 CH4", []float64{0, -0.1, -0.2})).To(Succeed())
			Expect(csvimport.Write(filepath.Join(dir, "cantera", "mole_fractions.csv"), mf)).To(Succeed())
			Expect(csvimport.Write(filepath.Join(dir, "cantera", "sensitivity.csv"), sens)).To(Succeed())
		})

		It("writes every backend into its own subpath and reports them all", func() {
			out, err := pipeline.Run(context.Background(), load(allBackends), pipeline.Options{})
			Expect(err).NotTo(HaveOccurred())

			root := filepath.Join(dir, "out")
			Expect(out.Artifacts).To(HaveLen(3))
			Expect(out.Artifacts[0].Backend).To(Equal(driver.BackendSweep))
			Expect(out.Artifacts[1].Backend).To(Equal(driver.BackendNative))
			Expect(out.Artifacts[2].Backend).To(Equal(driver.BackendTable))

			Expect(pngs(root)).To(Equal([]string{"1_ethane(1)_sensitivity.png", "1_mole_fractions.png"}))
			Expect(pngs(filepath.Join(root, "solver"))).To(Equal([]string{
				"sensitivity_1_ethane(1)_reactions.png",
				"simulation_1_2.png",
			}))
			Expect(pngs(filepath.Join(root, pipeline.TableDir))).To(Equal([]string{
				"mole_fractions_mole_fractions.png",
				"sensitivity_sensitivity.png",
			}))

			Expect(out.Report).NotTo(BeNil())
			Expect(out.Report.Sections).To(HaveLen(3))
			Expect(out.Report.Images()).To(HaveLen(6))
		})

		It("derives the images a run writes without simulating", func() {
			f := load(allBackends)
			want, err := pipeline.Expected(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(want).To(HaveLen(3))

			_, err = report.Build(context.Background(), report.Options{OutputDir: f.Output}, want...)
			Expect(errors.Is(err, report.ErrImageNotFound)).To(BeTrue())

			out, err := pipeline.Run(context.Background(), f, pipeline.Options{})
			Expect(err).NotTo(HaveOccurred())
			for i := range want {
				Expect(want[i].Backend).To(Equal(out.Artifacts[i].Backend))
				Expect(want[i].Images).To(Equal(out.Artifacts[i].Images))
				Expect(want[i].Tables).To(Equal(out.Artifacts[i].Tables))
			}

			_, err = report.Build(context.Background(), report.Options{OutputDir: f.Output}, want...)
			Expect(err).NotTo(HaveOccurred())
		})

		It("produces the same native paths when rerun", func() {
			f := load(allBackends)
			first, err := pipeline.Run(context.Background(), f, pipeline.Options{})
			Expect(err).NotTo(HaveOccurred())
			second, err := pipeline.Run(context.Background(), f, pipeline.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Artifacts[1].Images).To(Equal(first.Artifacts[1].Images))
			Expect(second.Artifacts[1].Tables).To(Equal(first.Artifacts[1].Tables))
		})
	})

	Context("when a stage fails", func() {
		It("stops at load for a missing mechanism file", func() {
			f := load(sweepOnly)
			Expect(os.Remove(f.Mechanism.Mechanism)).To(Succeed())

			_, err := pipeline.Run(context.Background(), f, pipeline.Options{})
			var se *pipeline.StageError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Stage).To(Equal("load"))
			Expect(errors.Is(err, fs.ErrNotExist)).To(BeTrue())
		})

		It("stops at resolve for an unknown descriptor", func() {
			f := load(sweepOnly)
			f.Species["propane"] = "CCC"

			_, err := pipeline.Run(context.Background(), f, pipeline.Options{})
			var se *pipeline.StageError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Stage).To(Equal("resolve"))
			Expect(errors.Is(err, mechanism.ErrSpeciesNotFound)).To(BeTrue())
			Expect(filepath.Join(dir, "temp")).NotTo(BeADirectory())
		})

		It("reports a canceled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := pipeline.Run(ctx, load(sweepOnly), pipeline.Options{})
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})

	Context("when loading pipeline files", func() {
		DescribeTable("rejects invalid declarations",
			func(content string) {
				path := mechanismtest.WriteFile(GinkgoT(), dir, "bad.yaml", content)
				_, err := pipeline.Load(path)
				Expect(errors.Is(err, pipeline.ErrConfig)).To(BeTrue(), "got %v", err)
			},
			Entry("no backend", "mechanism: {mechanism: chem.yaml}\n"),
			Entry("sweep without mechanism", "sweep: {enabled: true}\n"),
			Entry("undeclared sensitive species", "mechanism: {mechanism: chem.yaml}\nsweep: {enabled: true, sensitive: [ethane]}\n"),
			Entry("unknown preset", "mechanism: {mechanism: chem.yaml}\nsweep: {enabled: true, preset: nope}\n"),
			Entry("native without input", "native: {enabled: true}\n"),
			Entry("table without CSVs", "table: {enabled: true}\n"),
			Entry("not yaml", "sweep: [\n"),
		)

		It("takes relative paths from the pipeline file", func() {
			f := load(sweepOnly)
			Expect(f.Mechanism.Mechanism).To(Equal(filepath.Join(dir, "chem.yaml")))
			Expect(f.Output).To(Equal(filepath.Join(dir, "temp")))
		})
	})
})
