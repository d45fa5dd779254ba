package buildtool_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmozak/perftool/internal/buildtool"
)

func stubBuilder(t *testing.T, script string) *buildtool.Builder {
	t.Helper()

	tool := filepath.Join(t.TempDir(), "fake-cargo")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"+script+"\n"), 0o700))

	builder := buildtool.NewBuilder()
	builder.Tool = tool

	return builder
}

func TestBuild_Success(t *testing.T) {
	t.Parallel()

	builder := stubBuilder(t, `echo "Finished release [optimized] target(s)"`)

	require.NoError(t, builder.Build(context.Background(), t.TempDir()))
}

func TestBuild_FailureCarriesOutput(t *testing.T) {
	t.Parallel()

	builder := stubBuilder(t, `echo "error[E0382]: borrow of moved value" >&2; exit 101`)

	err := builder.Build(context.Background(), t.TempDir())
	require.ErrorIs(t, err, buildtool.ErrBuildFailed)

	var buildErr *buildtool.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Output, "E0382")
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	builder := stubBuilder(t, `exit 0`)

	require.NoError(t, builder.Build(context.Background(), dir))
	require.NoError(t, builder.Build(context.Background(), dir))
}

func TestBuildELF_RunsInCrateDir(t *testing.T) {
	t.Parallel()

	worktree := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(worktree, "guest"), 0o750))

	// The stub fails unless invoked from the guest crate directory.
	builder := stubBuilder(t, `case "$(pwd)" in */guest) exit 0;; *) exit 1;; esac`)

	require.NoError(t, builder.BuildELF(context.Background(), worktree, "guest"))
}
