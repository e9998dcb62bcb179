// Package storage keeps completed runs on disk, one directory per run,
// so they can be listed, plotted and exported later.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/kinsim/internal/csvimport"
	"github.com/san-kum/kinsim/internal/series"
)

const (
	metadataFile      = "metadata.json"
	moleFractionsFile = "mole_fractions.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0o755)
}

// ConditionMetadata describes the simulated condition of a run.
type ConditionMetadata struct {
	Index       int                `json:"index"`
	Reactor     string             `json:"reactor"`
	Temperature float64            `json:"temperature_K"`
	Pressure    float64            `json:"pressure_Pa"`
	Duration    float64            `json:"duration_s"`
	Composition map[string]float64 `json:"composition"`
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Driver        string             `json:"driver"`
	Mechanism     string             `json:"mechanism"`
	Timestamp     time.Time          `json:"timestamp"`
	Integrator    string             `json:"integrator"`
	Tolerance     float64            `json:"tolerance,omitempty"`
	Condition     ConditionMetadata  `json:"condition"`
	StepsTaken    int                `json:"steps_taken"`
	Rejected      int                `json:"rejected"`
	Sensitivities []string           `json:"sensitivities,omitempty"`
	Metrics       map[string]float64 `json:"metrics"`
}

// Describe fills the condition and result fields of meta from res.
func Describe(meta RunMetadata, res *series.Result) RunMetadata {
	if c := res.Condition; c != nil {
		comp := make(map[string]float64)
		for sp, x := range c.MoleFractions() {
			comp[sp.Label()] = x
		}
		meta.Condition = ConditionMetadata{
			Index:       c.Index(),
			Reactor:     string(c.Reactor()),
			Temperature: c.Temperature(),
			Pressure:    c.Pressure(),
			Duration:    c.Duration(),
			Composition: comp,
		}
	}
	meta.StepsTaken = res.StepsTaken
	meta.Rejected = res.Rejected
	meta.Sensitivities = res.SensitivityLabels()
	meta.Metrics = res.Metrics
	return meta
}

// Save writes res under a fresh run ID of the form <driver>_<uuid8> and
// returns the ID.
func (s *Store) Save(meta RunMetadata, res *series.Result) (string, error) {
	if res == nil || res.MoleFractions == nil {
		return "", errors.New("storage: result has no mole fraction table")
	}
	if meta.Driver == "" {
		meta.Driver = "run"
	}
	runID := fmt.Sprintf("%s_%s", meta.Driver, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	meta = Describe(meta, res)
	meta.ID = runID
	meta.Timestamp = s.now().UTC()

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := csvimport.Write(filepath.Join(runDir, moleFractionsFile), res.MoleFractions); err != nil {
		return "", err
	}
	for _, label := range meta.Sensitivities {
		if err := csvimport.Write(filepath.Join(runDir, sensitivityFile(label)), res.Sensitivities[label]); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func sensitivityFile(label string) string {
	return "sensitivity_" + label + ".csv"
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

// List returns every readable run, oldest first. Directories without valid
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTable reads the mole fraction table of a run.
func (s *Store) LoadTable(runID string) (*series.Table, error) {
	return s.readTable(runID, moleFractionsFile)
}

// LoadSensitivity reads the sensitivity table of one species of a run.
func (s *Store) LoadSensitivity(runID, label string) (*series.Table, error) {
	return s.readTable(runID, sensitivityFile(label))
}

func (s *Store) readTable(runID, name string) (*series.Table, error) {
	tb, err := csvimport.Read(filepath.Join(s.baseDir, runID, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrRunNotFound, runID, name)
	}
	return tb, err
}

// ExportData is the JSON document written by ExportJSON.
type ExportData struct {
	Run           RunMetadata                `json:"run"`
	Times         []float64                  `json:"times"`
	MoleFractions []series.Column            `json:"mole_fractions"`
	Sensitivities map[string][]series.Column `json:"sensitivities,omitempty"`
}

// ExportJSON writes a stored run, metadata and tables, as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	tb, err := s.LoadTable(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:           *meta,
		Times:         tb.Time,
		MoleFractions: tb.Columns,
	}
	if len(meta.Sensitivities) > 0 {
		data.Sensitivities = make(map[string][]series.Column, len(meta.Sensitivities))
		for _, label := range meta.Sensitivities {
			st, err := s.LoadSensitivity(runID, label)
			if err != nil {
				return err
			}
			data.Sensitivities[label] = st.Columns
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
