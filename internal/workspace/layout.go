// Package workspace defines the on-disk layout shared by all perftool
// components: build link trees, measurement tables, rendered plots and the
// temporary worktree root.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	buildDirName   = "build"
	dataDirName    = "data"
	plotDirName    = "plots"
	archiveDirName = "archive"
	tmpDirName     = "perftool-repos"
	cliDirName     = "cli"
	tableExt       = ".csv"
	plotExt        = ".html"

	// DirPerm is the permission mode for directories created by perftool.
	DirPerm = 0o750
)

// Layout resolves every path perftool touches relative to two roots: the
// project root (build links, tables, plots) and the temporary worktree root
// (materialized revisions, shared across benchmarks).
type Layout struct {
	Root    string
	TmpRoot string
}

// NewLayout creates a layout rooted at root, with materialized worktrees kept
// under the system temporary directory.
func NewLayout(root string) Layout {
	return Layout{
		Root:    root,
		TmpRoot: filepath.Join(os.TempDir(), tmpDirName),
	}
}

// BuildDir returns the root of the build link tree.
func (l Layout) BuildDir() string {
	return filepath.Join(l.Root, buildDirName)
}

// BenchBuildDir returns the per-benchmark directory holding label links.
func (l Layout) BenchBuildDir(bench string) string {
	return filepath.Join(l.BuildDir(), bench)
}

// LabelLink returns the symlink path recording that (bench, label) references
// a materialized revision.
func (l Layout) LabelLink(bench, label string) string {
	return filepath.Join(l.BenchBuildDir(bench), label)
}

// WorktreeDir returns the materialized directory for a revision.
func (l Layout) WorktreeDir(rev string) string {
	return filepath.Join(l.TmpRoot, rev)
}

// DataDir returns the per-benchmark directory holding measurement tables.
func (l Layout) DataDir(bench string) string {
	return filepath.Join(l.Root, dataDirName, bench)
}

// TableFile returns the measurement table path for (bench, label).
func (l Layout) TableFile(bench, label string) string {
	return filepath.Join(l.DataDir(bench), label+tableExt)
}

// PlotDir returns the directory holding rendered plots.
func (l Layout) PlotDir() string {
	return filepath.Join(l.Root, plotDirName)
}

// PlotFile returns the rendered plot path for a benchmark.
func (l Layout) PlotFile(bench string) string {
	return filepath.Join(l.PlotDir(), bench+plotExt)
}

// ArchiveDir returns the per-benchmark directory holding archived tables.
func (l Layout) ArchiveDir(bench string) string {
	return filepath.Join(l.Root, archiveDirName, bench)
}

// CLIDir returns the build and benchmark working directory inside a
// materialized worktree.
func CLIDir(worktree string) string {
	return filepath.Join(worktree, cliDirName)
}

// EnsureBenchDirs creates the build and data directories for a benchmark.
func (l Layout) EnsureBenchDirs(bench string) error {
	for _, dir := range []string{l.BenchBuildDir(bench), l.DataDir(bench), l.TmpRoot} {
		err := os.MkdirAll(dir, DirPerm)
		if err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return nil
}
