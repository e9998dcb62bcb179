// Package csvimport reads and writes simulation tables as CSV: a header row
// whose first cell starts with "Time", then one row per time point.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/kinsim/internal/series"
)

// TimeHeader is written as the first header cell.
const TimeHeader = "Time (s)"

var ErrMalformed = errors.New("csvimport: malformed table")

// MalformedError names the offending line, 1-based.
type MalformedError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

func Read(path string) (*series.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvimport: %w", err)
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode parses r. name is used in error messages only.
func Decode(r io.Reader, name string) (*series.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &MalformedError{Path: name, Reason: "empty file"}
	}
	if err != nil {
		return nil, malformed(name, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	if !strings.HasPrefix(strings.TrimSpace(header[0]), "Time") {
		line, _ := cr.FieldPos(0)
		return nil, &MalformedError{Path: name, Line: line, Reason: fmt.Sprintf("first column is %q, want Time", header[0])}
	}
	if len(header) < 2 {
		line, _ := cr.FieldPos(0)
		return nil, &MalformedError{Path: name, Line: line, Reason: "no data columns"}
	}

	var time []float64
	cols := make([][]float64, len(header)-1)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(name, err)
		}
		line, _ := cr.FieldPos(0)
		vals := make([]float64, len(rec))
		for i, cell := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, &MalformedError{Path: name, Line: line, Reason: fmt.Sprintf("column %q: %q is not a number", header[i], cell)}
			}
			vals[i] = v
		}
		time = append(time, vals[0])
		for i := range cols {
			cols[i] = append(cols[i], vals[i+1])
		}
	}
	if len(time) == 0 {
		return nil, &MalformedError{Path: name, Reason: "header without data rows"}
	}

	tb := series.NewTable(time)
	for i, h := range header[1:] {
		if err := tb.Add(strings.TrimSpace(h), cols[i]); err != nil {
			return nil, err
		}
	}
	return tb, nil
}

func malformed(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &MalformedError{Path: name, Line: pe.Line, Reason: pe.Err.Error()}
	}
	return &MalformedError{Path: name, Reason: err.Error()}
}

// Write stores tb at path, creating parent directories.
func Write(path string, tb *series.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csvimport: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvimport: %w", err)
	}
	if err := Encode(f, tb); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func Encode(w io.Writer, tb *series.Table) error {
	cw := csv.NewWriter(w)
	header := append([]string{TimeHeader}, tb.Names()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for k, t := range tb.Time {
		row[0] = formatFloat(t)
		for i, c := range tb.Columns {
			row[i+1] = formatFloat(c.Values[k])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
