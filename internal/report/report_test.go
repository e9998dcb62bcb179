package report

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/kinsim/internal/driver"
	"github.com/san-kum/kinsim/internal/series"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildWritesReport(t *testing.T) {
	g := NewWithT(t)
	out := t.TempDir()

	sweep := &driver.Artifacts{
		Backend: driver.BackendSweep,
		Images: []string{
			touch(t, filepath.Join(out, "1_mole_fractions.png")),
			touch(t, filepath.Join(out, "1_ethane(1)_sensitivity.png")),
		},
		RunIDs: []string{"sweep_0123abcd"},
	}
	native := &driver.Artifacts{
		Backend: driver.BackendNative,
		Images:  []string{touch(t, filepath.Join(out, "solver", "simulation_1_2.png"))},
		Tables:  []string{filepath.Join(out, "solver", "simulation_1_2.csv")},
	}

	var summary bytes.Buffer
	r, err := Build(context.Background(), Options{OutputDir: out, Summary: &summary}, sweep, nil, native)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(r.Path).To(Equal(filepath.Join(out, FileName)))
	g.Expect(r.Sections).To(HaveLen(2))
	g.Expect(r.Images()).To(Equal(append(append([]string{}, sweep.Images...), native.Images...)))
	g.Expect(r.Sections[1].Images[0].Src).To(Equal("solver/simulation_1_2.png"))

	html, err := os.ReadFile(r.Path)
	g.Expect(err).NotTo(HaveOccurred())
	page := string(html)
	g.Expect(page).To(ContainSubstring("<h2>sweep</h2>"))
	g.Expect(page).To(ContainSubstring("<h2>native</h2>"))
	g.Expect(page).To(ContainSubstring("1_mole_fractions.png"))
	g.Expect(page).To(ContainSubstring("sweep_0123abcd"))

	g.Expect(summary.String()).To(ContainSubstring("simulation_1_2.png"))
	g.Expect(summary.String()).To(ContainSubstring(FileName))
}

func TestBuildMissingImage(t *testing.T) {
	out := t.TempDir()
	missing := filepath.Join(out, "1_ethane(1)_sensitivity.png")
	arts := &driver.Artifacts{
		Backend: driver.BackendSweep,
		Images:  []string{touch(t, filepath.Join(out, "1_mole_fractions.png")), missing},
	}

	_, err := Build(context.Background(), Options{OutputDir: out}, arts)
	if !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected error to match fs.ErrNotExist")
	}
	var inf *ImageNotFoundError
	if !errors.As(err, &inf) || inf.Path != missing {
		t.Errorf("expected ImageNotFoundError for %s, got %v", missing, err)
	}
	if _, err := os.Stat(filepath.Join(out, FileName)); !errors.Is(err, fs.ErrNotExist) {
		t.Error("report written despite missing image")
	}
}

func TestBuildRejectsDirectory(t *testing.T) {
	out := t.TempDir()
	arts := &driver.Artifacts{Backend: driver.BackendTable, Images: []string{out}}

	_, err := Build(context.Background(), Options{OutputDir: out}, arts)
	if !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	g := NewWithT(t)
	tb := series.NewTable([]float64{0, 1e-4, 2e-4, 3e-4})
	g.Expect(tb.Add("ethane(1)", []float64{1, 0.8, 0.6, 0.5})).To(Succeed())
	g.Expect(tb.Add("methane(2)", []float64{0, 0.2, 0.4, 0.5})).To(Succeed())

	var buf bytes.Buffer
	g.Expect(Preview(&buf, tb, 0)).To(Succeed())
	out := buf.String()
	g.Expect(out).To(ContainSubstring("ethane(1), methane(2)"))
	g.Expect(strings.Count(out, "\n")).To(BeNumerically(">=", 10))

	g.Expect(Preview(&buf, series.NewTable(nil), 3)).NotTo(Succeed())
}
