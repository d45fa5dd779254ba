package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmozak/perftool/internal/workspace"
)

func TestLayout_Paths(t *testing.T) {
	t.Parallel()

	l := workspace.Layout{Root: "/work", TmpRoot: "/tmp/perftool-repos"}

	assert.Equal(t, "/work/build/mm/baseline", l.LabelLink("mm", "baseline"))
	assert.Equal(t, "/work/data/mm/baseline.csv", l.TableFile("mm", "baseline"))
	assert.Equal(t, "/work/plots/mm.html", l.PlotFile("mm"))
	assert.Equal(t, "/work/archive/mm", l.ArchiveDir("mm"))
	assert.Equal(t, "/tmp/perftool-repos/abc123", l.WorktreeDir("abc123"))
	assert.Equal(t, "/tmp/wt/cli", workspace.CLIDir("/tmp/wt"))
}

func TestEnsureBenchDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	l := workspace.Layout{Root: root, TmpRoot: filepath.Join(root, "tmp")}

	require.NoError(t, l.EnsureBenchDirs("mm"))

	for _, dir := range []string{l.BenchBuildDir("mm"), l.DataDir("mm"), l.TmpRoot} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent.
	require.NoError(t, l.EnsureBenchDirs("mm"))
}
