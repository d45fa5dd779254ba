// Package report assembles plot-ready series from persisted measurement
// tables: per-label parameter/metric vectors plus an ordinary least-squares
// fit. It only ever reads tables; the renderer draws whatever is here.
package report

import (
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/0xmozak/perftool/internal/config"
	"github.com/0xmozak/perftool/internal/measure"
	"github.com/0xmozak/perftool/internal/workspace"
)

// Series is one label's measurements with its fitted line.
type Series struct {
	Label     string
	X         []float64
	Y         []float64
	Fitted    []float64
	Slope     float64
	Intercept float64
}

// Report is the plot-ready view of one benchmark across all labels.
type Report struct {
	Bench       string
	Parameter   string
	Output      string
	Description string
	Series      []Series
	SampleCount int
}

// Assembler reads measurement tables for a benchmark.
type Assembler struct {
	layout workspace.Layout
	log    *slog.Logger
}

// NewAssembler creates an assembler over the given layout.
func NewAssembler(layout workspace.Layout) *Assembler {
	return &Assembler{layout: layout, log: slog.Default()}
}

// Assemble reads every label's table for the benchmark and computes the OLS
// fit per series. An empty table yields a present-but-unplotted series with
// zero rows rather than an error; a missing table file is skipped with a
// warning so a partially-sampled benchmark still renders.
func (a *Assembler) Assemble(name string, bench config.Bench) (*Report, error) {
	schema := measure.Schema{Parameter: bench.Parameter, Output: bench.Output}

	labels := make([]string, 0, len(bench.Benches))
	for label := range bench.Benches {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	rep := &Report{
		Bench:       name,
		Parameter:   bench.Parameter,
		Output:      bench.Output,
		Description: bench.Description,
	}

	for _, label := range labels {
		path := a.layout.TableFile(name, label)

		x, y, readErr := measure.ReadAll(path, schema)
		if readErr != nil {
			if errors.Is(readErr, fs.ErrNotExist) {
				a.log.Warn("no measurement table yet", "bench", name, "label", label)

				continue
			}

			return nil, readErr
		}

		rep.Series = append(rep.Series, fitSeries(label, x, y))
		rep.SampleCount += len(x)
	}

	return rep, nil
}

// fitSeries computes the least-squares line over one series. Fewer than two
// points cannot determine a slope; a single point gets a flat line through
// its own value and an empty series gets no line at all.
func fitSeries(label string, x, y []float64) Series {
	s := Series{Label: label, X: x, Y: y}

	switch len(x) {
	case 0:
		return s
	case 1:
		s.Intercept = y[0]
		s.Fitted = []float64{y[0]}

		return s
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		// Degenerate input (all x identical): fall back to a flat line
		// through the mean.
		slope = 0
		intercept = stat.Mean(y, nil)
	}

	s.Slope = slope
	s.Intercept = intercept
	s.Fitted = make([]float64, len(x))

	for i, xi := range x {
		s.Fitted[i] = intercept + slope*xi
	}

	return s
}
