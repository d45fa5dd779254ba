package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmozak/perftool/cmd/perftool/commands"
	"github.com/0xmozak/perftool/internal/config"
)

const catalogJSON = `{
  "repo": "/srv/vm",
  "benches": {
    "matrix-multiply": {
      "parameter": "size",
      "output": "seconds",
      "description": "Dense matrix multiplication",
      "benches": {
        "baseline": {"commit": "abc123", "bench_function": "matmul"},
        "tuned": {"commit": "def456", "bench_function": "matmul"}
      }
    }
  }
}`

// runCommand executes sub under a root carrying the persistent --config flag,
// the same wiring the real binary uses, from inside a scratch working
// directory.
func runCommand(t *testing.T, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	configPath := filepath.Join(dir, config.DefaultFile)
	require.NoError(t, os.WriteFile(configPath, []byte(catalogJSON), 0o600))

	root := &cobra.Command{Use: "perftool", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().StringP(commands.ConfigFlag, "c", configPath, "configuration file")
	root.AddCommand(sub)

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestList_RendersCatalog(t *testing.T) {
	out, err := runCommand(t, commands.NewListCommand(), "list")
	require.NoError(t, err)

	assert.Contains(t, out, "matrix-multiply")
	assert.Contains(t, out, "baseline")
	assert.Contains(t, out, "tuned")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "matmul")
}

func TestClean_NoLinksIsNoOp(t *testing.T) {
	out, err := runCommand(t, commands.NewCleanCommand(), "clean", "matrix-multiply")
	require.NoError(t, err)

	assert.Contains(t, out, "Released 2 labels")
	assert.Contains(t, out, "0 B")
}

func TestClean_UnknownBenchmark(t *testing.T) {
	_, err := runCommand(t, commands.NewCleanCommand(), "clean", "no-such-bench")
	require.ErrorIs(t, err, config.ErrUnknownBench)
}

func TestCleanCSV_DeletesTables(t *testing.T) {
	sub := commands.NewCleanCSVCommand()

	dir := t.TempDir()
	t.Chdir(dir)

	configPath := filepath.Join(dir, config.DefaultFile)
	require.NoError(t, os.WriteFile(configPath, []byte(catalogJSON), 0o600))

	dataDir := filepath.Join(dir, "data", "matrix-multiply")
	require.NoError(t, os.MkdirAll(dataDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "baseline.csv"),
		[]byte("size,seconds\n10,0.5\n"), 0o640))

	root := &cobra.Command{Use: "perftool", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().StringP(commands.ConfigFlag, "c", configPath, "configuration file")
	root.AddCommand(sub)

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetArgs([]string{"cleancsv", "matrix-multiply", "--archive"})

	require.NoError(t, root.Execute())

	assert.NoDirExists(t, dataDir)
	assert.FileExists(t, filepath.Join(dir, "archive", "matrix-multiply", "baseline.csv.lz4"))
	assert.Contains(t, out.String(), "Archived 1 tables")
}

func TestBench_RejectsEmptyRange(t *testing.T) {
	_, err := runCommand(t, commands.NewBenchCommand(), "bench", "matrix-multiply", "20", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty parameter range")
}

func TestBench_RejectsUnknownPolicy(t *testing.T) {
	_, err := runCommand(t, commands.NewBenchCommand(),
		"bench", "matrix-multiply", "10", "20", "--on-error", "retry")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sample error policy")
}

func TestPlot_RendersEmptyBenchmark(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	configPath := filepath.Join(dir, config.DefaultFile)
	require.NoError(t, os.WriteFile(configPath, []byte(catalogJSON), 0o600))

	root := &cobra.Command{Use: "perftool", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().StringP(commands.ConfigFlag, "c", configPath, "configuration file")
	root.AddCommand(commands.NewPlotCommand())

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetArgs([]string{"plot", "matrix-multiply"})

	require.NoError(t, root.Execute())

	page := filepath.Join(dir, "plots", "matrix-multiply.html")
	assert.FileExists(t, page)

	content, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Dense matrix multiplication")
}
