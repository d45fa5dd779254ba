// Package buildtool invokes the external build toolchain against a
// materialized revision directory. The toolchain is a black box: success is
// exit zero plus a runnable binary under the directory's target tree, and
// caching is the toolchain's business, not ours.
package buildtool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
)

// defaultTool is the build toolchain binary.
const defaultTool = "cargo"

// outputTailLimit bounds how much captured toolchain output travels with a
// build error.
const outputTailLimit = 4096

// ErrBuildFailed is returned when the toolchain exits non-zero.
var ErrBuildFailed = errors.New("build failed")

// BuildError carries the captured toolchain output for diagnostics. The
// caller decides whether to abort the whole run or skip the revision.
type BuildError struct {
	Dir    string
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build in %s: %v\n%s", e.Dir, e.Err, e.Output)
}

func (e *BuildError) Unwrap() error {
	return ErrBuildFailed
}

// Builder runs release builds. Tool is overridable in tests.
type Builder struct {
	Tool string
}

// NewBuilder creates a Builder using the default toolchain.
func NewBuilder() *Builder {
	return &Builder{Tool: defaultTool}
}

// Build runs a release build with dir as the working directory. Rebuilding an
// already-built, unchanged directory is safe; the toolchain's own caching
// makes it fast.
func (b *Builder) Build(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, b.Tool, "build", "--release")
	cmd.Dir = dir

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	if runErr != nil {
		return &BuildError{Dir: dir, Output: tail(output.String(), outputTailLimit), Err: runErr}
	}

	return nil
}

// BuildELF builds the optional guest crate at elfRel inside the worktree.
func (b *Builder) BuildELF(ctx context.Context, worktree, elfRel string) error {
	return b.Build(ctx, filepath.Join(worktree, elfRel))
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return "..." + s[len(s)-limit:]
}
