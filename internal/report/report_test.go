package report_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmozak/perftool/internal/config"
	"github.com/0xmozak/perftool/internal/report"
	"github.com/0xmozak/perftool/internal/workspace"
)

const benchName = "matrix-multiply"

var testBench = config.Bench{
	Parameter:   "size",
	Output:      "seconds",
	Description: "Dense matrix multiplication",
	Benches: map[string]config.Series{
		"baseline": {Commit: "abc123", BenchFunction: "matmul"},
		"tuned":    {Commit: "def456", BenchFunction: "matmul"},
	},
}

func newLayout(t *testing.T) workspace.Layout {
	t.Helper()

	root := t.TempDir()

	return workspace.Layout{Root: root, TmpRoot: filepath.Join(root, "tmp")}
}

func writeTable(t *testing.T, layout workspace.Layout, label, content string) {
	t.Helper()

	path := layout.TableFile(benchName, label)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
}

func TestAssemble_FitsLine(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)
	// Perfectly linear: seconds = 0.5 * size + 1.
	writeTable(t, layout, "baseline", "size,seconds\n10,6\n20,11\n30,16\n")
	writeTable(t, layout, "tuned", "size,seconds\n10,3\n20,5\n")

	rep, err := report.NewAssembler(layout).Assemble(benchName, testBench)
	require.NoError(t, err)

	require.Len(t, rep.Series, 2)
	assert.Equal(t, 5, rep.SampleCount)
	assert.Equal(t, "baseline", rep.Series[0].Label, "series are ordered by label")

	baseline := rep.Series[0]
	assert.InDelta(t, 0.5, baseline.Slope, 1e-9)
	assert.InDelta(t, 1.0, baseline.Intercept, 1e-9)
	assert.InDelta(t, 6.0, baseline.Fitted[0], 1e-9)
	assert.InDelta(t, 16.0, baseline.Fitted[2], 1e-9)
}

func TestAssemble_EmptyTableDoesNotFail(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)
	writeTable(t, layout, "baseline", "size,seconds\n")
	writeTable(t, layout, "tuned", "size,seconds\n10,3\n20,5\n")

	rep, err := report.NewAssembler(layout).Assemble(benchName, testBench)
	require.NoError(t, err)

	require.Len(t, rep.Series, 2)
	assert.Empty(t, rep.Series[0].X)
	assert.Empty(t, rep.Series[0].Fitted)
	assert.Equal(t, 2, rep.SampleCount)
}

func TestAssemble_MissingTableIsSkipped(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)
	writeTable(t, layout, "baseline", "size,seconds\n10,6\n")

	rep, err := report.NewAssembler(layout).Assemble(benchName, testBench)
	require.NoError(t, err)

	require.Len(t, rep.Series, 1)
	assert.Equal(t, "baseline", rep.Series[0].Label)
}

func TestAssemble_SinglePointFlatLine(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)
	writeTable(t, layout, "baseline", "size,seconds\n10,6\n")
	writeTable(t, layout, "tuned", "size,seconds\n10,3\n")

	rep, err := report.NewAssembler(layout).Assemble(benchName, testBench)
	require.NoError(t, err)

	baseline := rep.Series[0]
	assert.Zero(t, baseline.Slope)
	assert.InDelta(t, 6.0, baseline.Intercept, 1e-9)
	assert.Equal(t, []float64{6}, baseline.Fitted)
}

func TestAssemble_DegenerateXFallsBackToMean(t *testing.T) {
	t.Parallel()

	layout := newLayout(t)
	writeTable(t, layout, "baseline", "size,seconds\n10,4\n10,6\n")
	writeTable(t, layout, "tuned", "size,seconds\n")

	rep, err := report.NewAssembler(layout).Assemble(benchName, testBench)
	require.NoError(t, err)

	baseline := rep.Series[0]
	assert.Zero(t, baseline.Slope)
	assert.InDelta(t, 5.0, baseline.Intercept, 1e-9)
}
