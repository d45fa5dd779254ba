package archive_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmozak/perftool/internal/archive"
)

func TestTables_RoundTrip(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "archive")

	content := "size,seconds\n10,0.5\n20,1.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "baseline.csv"), []byte(content), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "tuned.csv"), []byte(content), 0o640))

	count, err := archive.Tables(srcDir, dstDir)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	compressed, err := os.Open(filepath.Join(dstDir, "baseline.csv"+archive.Ext))
	require.NoError(t, err)
	defer compressed.Close()

	restored, err := io.ReadAll(lz4.NewReader(compressed))
	require.NoError(t, err)
	assert.Equal(t, content, string(restored))

	// Sources stay in place for the caller to delete.
	assert.FileExists(t, filepath.Join(srcDir, "baseline.csv"))
}

func TestTables_MissingSourceDir(t *testing.T) {
	t.Parallel()

	_, err := archive.Tables(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	require.Error(t, err)
}
