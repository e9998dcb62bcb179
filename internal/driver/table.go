package driver

import (
	"context"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/san-kum/kinsim/internal/csvimport"
	"github.com/san-kum/kinsim/internal/export"
	"github.com/san-kum/kinsim/internal/tracing"
)

// TableConfig names previously exported tables to plot. Either CSV may be
// empty to skip it.
type TableConfig struct {
	MoleFractionsCSV string
	SensitivityCSV   string
	OutputDir        string
	TopSpecies       int
	TopReactions     int
}

// Table plots exported CSV tables without simulating anything.
type Table struct {
	cfg  TableConfig
	opts options
}

func NewTable(cfg TableConfig, opts ...Option) *Table {
	cfg.TopSpecies = orDefault(cfg.TopSpecies, DefaultTopSpecies)
	cfg.TopReactions = orDefault(cfg.TopReactions, DefaultTopReactions)
	return &Table{cfg: cfg, opts: buildOptions(opts)}
}

// stem is the CSV base name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TableMoleFractionsPath is where the line plot of csvPath goes.
func TableMoleFractionsPath(out, csvPath string) string {
	return filepath.Join(out, stem(csvPath)+"_mole_fractions.png")
}

// TableSensitivityPath is where the bar plot of csvPath goes.
func TableSensitivityPath(out, csvPath string) string {
	return filepath.Join(out, stem(csvPath)+"_sensitivity.png")
}

func (t *Table) Run(ctx context.Context) (_ *Artifacts, err error) {
	cfg := t.cfg
	_, span := tracing.Start(ctx, "driver.table",
		attribute.String("mole_fractions", cfg.MoleFractionsCSV),
		attribute.String("sensitivity", cfg.SensitivityCSV),
	)
	defer func() { tracing.End(span, err) }()

	arts := &Artifacts{Backend: BackendTable}

	if cfg.MoleFractionsCSV != "" {
		tb, err := csvimport.Read(cfg.MoleFractionsCSV)
		if err != nil {
			return nil, err
		}
		path := TableMoleFractionsPath(cfg.OutputDir, cfg.MoleFractionsCSV)
		if err := export.LinePlot(path, tb, cfg.TopSpecies, export.Options{
			Title:  stem(cfg.MoleFractionsCSV),
			YLabel: "Mole fraction",
		}); err != nil {
			return nil, err
		}
		arts.addImage(path)
		t.opts.log.Debug().Str("csv", cfg.MoleFractionsCSV).Int("columns", len(tb.Columns)).Msg("table plotted")
	}

	if cfg.SensitivityCSV != "" {
		tb, err := csvimport.Read(cfg.SensitivityCSV)
		if err != nil {
			return nil, err
		}
		path := TableSensitivityPath(cfg.OutputDir, cfg.SensitivityCSV)
		if err := export.BarPlot(path, tb, cfg.TopReactions, export.Options{
			Title:  stem(cfg.SensitivityCSV),
			XLabel: "dln X / dln k",
		}); err != nil {
			return nil, err
		}
		arts.addImage(path)
		t.opts.log.Debug().Str("csv", cfg.SensitivityCSV).Int("columns", len(tb.Columns)).Msg("table plotted")
	}

	return arts, nil
}

// Expected lists the images Run writes for the configured CSVs.
func (t *Table) Expected() *Artifacts {
	arts := &Artifacts{Backend: BackendTable}
	if t.cfg.MoleFractionsCSV != "" {
		arts.addImage(TableMoleFractionsPath(t.cfg.OutputDir, t.cfg.MoleFractionsCSV))
	}
	if t.cfg.SensitivityCSV != "" {
		arts.addImage(TableSensitivityPath(t.cfg.OutputDir, t.cfg.SensitivityCSV))
	}
	return arts
}
