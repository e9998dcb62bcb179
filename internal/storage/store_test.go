package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/kinsim/internal/condition"
	"github.com/san-kum/kinsim/internal/mechanism"
	"github.com/san-kum/kinsim/internal/mechanism/mechanismtest"
	"github.com/san-kum/kinsim/internal/series"
)

func testResult(t *testing.T) *series.Result {
	t.Helper()
	m := mechanismtest.LoadEthane(t)
	ethane, _ := m.SpeciesByName("ethane")

	c, err := condition.New(1, condition.ConstPressureTemperature,
		map[*mechanism.Species]float64{ethane: 1}, 1300, 1e5, 5e-4)
	if err != nil {
		t.Fatal(err)
	}

	mf := series.NewTable([]float64{0, 2.5e-4, 5e-4})
	mustAdd(t, mf, "ethane(1)", []float64{1, 0.9, 0.8})
	mustAdd(t, mf, "methane(2)", []float64{0, 0.1, 0.2})

	sens := series.NewTable(mf.Time)
	mustAdd(t, sens, "dln[ethane(1)]/dln[k1]: ethane => methane + methane", []float64{0, -0.1, -0.2})

	return &series.Result{
		Condition:     c,
		MoleFractions: mf,
		Sensitivities: map[string]*series.Table{"ethane(1)": sens},
		StepsTaken:    2,
		Rejected:      1,
		Metrics:       map[string]float64{"mass_drift": 1e-12},
	}
}

func mustAdd(t *testing.T, tb *series.Table, name string, v []float64) {
	t.Helper()
	if err := tb.Add(name, v); err != nil {
		t.Fatal(err)
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	res := testResult(t)
	runID, err := st.Save(RunMetadata{Driver: "sweep", Mechanism: "ethane-lumped", Integrator: "rk45"}, res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !strings.HasPrefix(runID, "sweep_") || len(runID) != len("sweep_")+8 {
		t.Errorf("run id %q does not look like sweep_<uuid8>", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Driver != "sweep" || meta.Integrator != "rk45" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Condition.Temperature != 1300 || meta.Condition.Composition["ethane(1)"] != 1 {
		t.Errorf("condition not recorded: %+v", meta.Condition)
	}
	if meta.StepsTaken != 2 || meta.Rejected != 1 {
		t.Errorf("steps = %d/%d, want 2/1", meta.StepsTaken, meta.Rejected)
	}
	if meta.Metrics["mass_drift"] != 1e-12 {
		t.Errorf("expected mass_drift 1e-12, got %g", meta.Metrics["mass_drift"])
	}

	tb, err := st.LoadTable(runID)
	if err != nil {
		t.Fatalf("load table failed: %v", err)
	}
	if !tb.Equal(res.MoleFractions) {
		t.Errorf("mole fractions changed on round trip")
	}

	sens, err := st.LoadSensitivity(runID, "ethane(1)")
	if err != nil {
		t.Fatalf("load sensitivity failed: %v", err)
	}
	if !sens.Equal(res.Sensitivities["ethane(1)"]) {
		t.Errorf("sensitivity changed on round trip")
	}
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list on missing dir failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	res := testResult(t)
	first, err := st.Save(RunMetadata{Driver: "native"}, res)
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.Save(RunMetadata{Driver: "sweep"}, res)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "junk"), 0o755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != first || runs[1].ID != second {
		t.Errorf("runs out of order: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadTable("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{Driver: "sweep"}, testResult(t))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if data.Run.ID != runID {
		t.Errorf("run id = %s, want %s", data.Run.ID, runID)
	}
	if len(data.Times) != 3 || len(data.MoleFractions) != 2 {
		t.Errorf("unexpected table shape: %d times, %d columns", len(data.Times), len(data.MoleFractions))
	}
	if len(data.Sensitivities["ethane(1)"]) != 1 {
		t.Errorf("sensitivity table missing from export")
	}
}
