// Package report gathers the images written by the simulation backends into
// one HTML page for side-by-side visual comparison and prints a terminal
// summary of what was produced.
package report

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/kinsim/internal/driver"
	"github.com/san-kum/kinsim/internal/tracing"
)

// FileName is the report written into the output directory.
const FileName = "report.html"

var ErrImageNotFound = errors.New("report: image not found")

// ImageNotFoundError names the first listed image missing from disk.
type ImageNotFoundError struct {
	Backend string
	Path    string
}

func (e *ImageNotFoundError) Error() string {
	return fmt.Sprintf("%v: %s (%s backend)", ErrImageNotFound, e.Path, e.Backend)
}

func (e *ImageNotFoundError) Unwrap() []error { return []error{ErrImageNotFound, fs.ErrNotExist} }

type Options struct {
	OutputDir string
	Title     string
	// Summary receives the terminal summary. Nil prints nothing.
	Summary io.Writer
	Logger  zerolog.Logger
	now     func() time.Time
}

type Image struct {
	Name string
	Path string
	Src  string
}

type Section struct {
	Backend string
	Images  []Image
	Tables  []string
	RunIDs  []string
}

type Report struct {
	Title     string
	Path      string
	Generated time.Time
	Sections  []Section
}

// Images returns every image path in section order.
func (r *Report) Images() []string {
	var out []string
	for _, s := range r.Sections {
		for _, img := range s.Images {
			out = append(out, img.Path)
		}
	}
	return out
}

//go:embed report.html.tmpl
var pageSource string

var page = template.Must(template.New("report").Parse(pageSource))

// Build verifies each listed image exists, then writes the HTML report.
// Nil artifacts, from disabled backends, are skipped.
func Build(ctx context.Context, opts Options, arts ...*driver.Artifacts) (_ *Report, err error) {
	_, span := tracing.Start(ctx, "report.build")
	defer func() { tracing.End(span, err) }()

	if opts.Title == "" {
		opts.Title = "kinsim comparison"
	}
	if opts.now == nil {
		opts.now = time.Now
	}

	r := &Report{
		Title:     opts.Title,
		Path:      filepath.Join(opts.OutputDir, FileName),
		Generated: opts.now(),
	}

	for _, a := range arts {
		if a == nil {
			continue
		}
		sec := Section{Backend: a.Backend, Tables: a.Tables, RunIDs: a.RunIDs}
		for _, p := range a.Images {
			info, err := os.Stat(p)
			if err != nil || info.IsDir() {
				return nil, &ImageNotFoundError{Backend: a.Backend, Path: p}
			}
			sec.Images = append(sec.Images, Image{
				Name: filepath.Base(p),
				Path: p,
				Src:  source(opts.OutputDir, p),
			})
		}
		r.Sections = append(r.Sections, sec)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(r.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := page.Execute(f, r); err != nil {
		return nil, fmt.Errorf("report: render: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	opts.Logger.Info().
		Str("path", r.Path).
		Int("images", len(r.Images())).
		Msg("report written")

	if opts.Summary != nil {
		fmt.Fprintln(opts.Summary, Summary(r))
	}
	return r, nil
}

// source is the img src of p as seen from the report directory.
func source(dir, p string) string {
	absDir, err1 := filepath.Abs(dir)
	absP, err2 := filepath.Abs(p)
	if err1 == nil && err2 == nil {
		if rel, err := filepath.Rel(absDir, absP); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(p)
}

// Summary renders r for the terminal.
func Summary(r *Report) string {
	var b strings.Builder
	b.WriteString(title.Render(r.Title))
	b.WriteString("\n")
	for i, s := range r.Sections {
		if i > 0 {
			b.WriteString(separator(48))
			b.WriteString("\n")
		}
		b.WriteString(backendName.Render(s.Backend))
		b.WriteString("\n")
		for _, img := range s.Images {
			b.WriteString(label.Render("image") + value.Render(img.Path) + "\n")
		}
		for _, t := range s.Tables {
			b.WriteString(label.Render("table") + value.Render(t) + "\n")
		}
		for _, id := range s.RunIDs {
			b.WriteString(label.Render("run") + value.Render(id) + "\n")
		}
	}
	b.WriteString(label.Render("report") + value.Render(r.Path))
	return panel.Render(b.String())
}
