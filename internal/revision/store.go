// Package revision materializes source revisions as isolated, buildable
// worktrees and tracks which (benchmark, label) pairs still reference them.
// References persist as symlinks under build/<bench>/<label>, so the
// reference count can always be reconstructed by scanning the link tree.
package revision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/0xmozak/perftool/internal/workspace"
)

// CurrentCheckout is the sentinel revision naming the live working directory.
// It is returned unchanged by EnsureMaterialized: there is nothing to isolate.
const CurrentCheckout = "current"

// gitTool is the version-control binary used for worktree mutations.
const gitTool = "git"

// ErrRevisionUnavailable is returned when a revision cannot be resolved or
// materialized.
var ErrRevisionUnavailable = errors.New("revision unavailable")

// ErrLinkConflict is returned when a label link already points at a different
// revision. The link is never silently re-pointed; the caller decides.
var ErrLinkConflict = errors.New("build link conflict")

// LinkConflictError carries both sides of a label link conflict.
type LinkConflictError struct {
	Link     string
	Existing string
	Want     string
}

func (e *LinkConflictError) Error() string {
	return fmt.Sprintf("link %s points at %s, want %s", e.Link, e.Existing, e.Want)
}

func (e *LinkConflictError) Unwrap() error {
	return ErrLinkConflict
}

// Store owns materialized revision directories. Worktree creation goes
// through the git binary (`git worktree add`), which is concurrent-safe at
// the repository level; revision resolution and worktree verification use
// libgit2 via the Resolver hook, overridable in tests.
type Store struct {
	repoRoot string
	layout   workspace.Layout

	// Git is the version-control binary, overridable in tests.
	Git string

	// Resolver canonicalizes a revision spec within a repository path.
	Resolver func(repoPath, spec string) (string, error)

	log *slog.Logger
}

// NewStore creates a store for the repository at repoRoot.
func NewStore(repoRoot string, layout workspace.Layout) *Store {
	return &Store{
		repoRoot: repoRoot,
		layout:   layout,
		Git:      gitTool,
		Resolver: Resolve,
		log:      slog.Default(),
	}
}

// EnsureMaterialized returns a buildable directory for rev, creating a
// worktree on first use. Idempotent: an existing valid worktree is returned
// without touching version control. The sentinel CurrentCheckout returns the
// live repository root unchanged.
func (s *Store) EnsureMaterialized(ctx context.Context, rev string) (string, error) {
	if rev == CurrentCheckout {
		return s.repoRoot, nil
	}

	dir := s.layout.WorktreeDir(rev)

	if s.materialized(dir) {
		verifyErr := s.verifyWorktree(dir, rev)
		if verifyErr != nil {
			return "", verifyErr
		}

		s.log.Info("reusing materialized revision", "revision", rev, "dir", dir)

		return dir, nil
	}

	mkErr := os.MkdirAll(s.layout.TmpRoot, workspace.DirPerm)
	if mkErr != nil {
		return "", fmt.Errorf("create worktree root: %w", mkErr)
	}

	cmd := exec.CommandContext(ctx, s.Git, "-C", s.repoRoot, "worktree", "add", "--force", dir, rev)

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	if runErr != nil {
		return "", fmt.Errorf("%w: worktree add %s: %v: %s",
			ErrRevisionUnavailable, rev, runErr, strings.TrimSpace(output.String()))
	}

	s.log.Info("materialized revision", "revision", rev, "dir", dir)

	return dir, nil
}

// Retain records that (bench, label) references the materialized directory
// for rev, as a durable, human-discoverable symlink. A link already pointing
// at the same target is a no-op; a link pointing elsewhere is a conflict.
func (s *Store) Retain(bench, label, rev string) error {
	target := s.repoRoot
	if rev != CurrentCheckout {
		target = s.layout.WorktreeDir(rev)
	}

	mkErr := os.MkdirAll(s.layout.BenchBuildDir(bench), workspace.DirPerm)
	if mkErr != nil {
		return fmt.Errorf("create build dir: %w", mkErr)
	}

	link := s.layout.LabelLink(bench, label)

	symlinkErr := os.Symlink(target, link)
	if symlinkErr == nil {
		return nil
	}

	if !errors.Is(symlinkErr, fs.ErrExist) {
		return fmt.Errorf("create link %s: %w", link, symlinkErr)
	}

	existing, readErr := os.Readlink(link)
	if readErr != nil {
		return fmt.Errorf("read link %s: %w", link, readErr)
	}

	if filepath.Clean(existing) == filepath.Clean(target) {
		return nil
	}

	return &LinkConflictError{Link: link, Existing: existing, Want: target}
}

// Release removes the (bench, label) link. When the last link to a
// materialized directory disappears, the directory is deleted and the
// worktree registration pruned; the reclaimed size in bytes is returned.
// Releasing an absent link is a no-op.
func (s *Store) Release(ctx context.Context, bench, label string) (int64, error) {
	link := s.layout.LabelLink(bench, label)

	target, readErr := os.Readlink(link)
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) {
			return 0, nil
		}

		return 0, fmt.Errorf("read link %s: %w", link, readErr)
	}

	removeErr := os.Remove(link)
	if removeErr != nil {
		return 0, fmt.Errorf("remove link %s: %w", link, removeErr)
	}

	if !s.ownsDir(target) {
		return 0, nil
	}

	refs, countErr := s.ReferenceCount(target)
	if countErr != nil {
		return 0, countErr
	}

	if refs > 0 {
		s.log.Info("revision still referenced", "dir", target, "references", refs)

		return 0, nil
	}

	reclaimed := dirSize(target)

	removeAllErr := os.RemoveAll(target)
	if removeAllErr != nil {
		return 0, fmt.Errorf("delete %s: %w", target, removeAllErr)
	}

	pruneErr := exec.CommandContext(ctx, s.Git, "-C", s.repoRoot, "worktree", "prune").Run()
	if pruneErr != nil {
		s.log.Warn("worktree prune failed", "error", pruneErr)
	}

	s.log.Info("deleted materialized revision", "dir", target, "bytes", reclaimed)

	return reclaimed, nil
}

// ReferenceCount scans the whole build link tree and counts links resolving
// to target. The count is reconstructed from the filesystem on every call;
// there is no in-memory state to drift.
func (s *Store) ReferenceCount(target string) (int, error) {
	cleaned := filepath.Clean(target)
	count := 0

	benchDirs, readErr := os.ReadDir(s.layout.BuildDir())
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) {
			return 0, nil
		}

		return 0, fmt.Errorf("scan build tree: %w", readErr)
	}

	for _, benchDir := range benchDirs {
		if !benchDir.IsDir() {
			continue
		}

		links, linksErr := os.ReadDir(s.layout.BenchBuildDir(benchDir.Name()))
		if linksErr != nil {
			return 0, fmt.Errorf("scan %s: %w", benchDir.Name(), linksErr)
		}

		for _, entry := range links {
			linkTarget, linkErr := os.Readlink(s.layout.LabelLink(benchDir.Name(), entry.Name()))
			if linkErr != nil {
				continue
			}

			if filepath.Clean(linkTarget) == cleaned {
				count++
			}
		}
	}

	return count, nil
}

// materialized reports whether dir holds a worktree checkout. Worktrees mark
// themselves with a .git file pointing back at the main repository.
func (s *Store) materialized(dir string) bool {
	_, statErr := os.Lstat(filepath.Join(dir, ".git"))

	return statErr == nil
}

// verifyWorktree checks that an existing worktree is still at rev.
// Verification is best-effort: a resolver failure is logged and accepted so
// a reachable-but-unreadable worktree does not block reuse, but a confirmed
// mismatch is an error requiring operator cleanup.
func (s *Store) verifyWorktree(dir, rev string) error {
	want, wantErr := s.Resolver(s.repoRoot, rev)
	if wantErr != nil {
		return wantErr
	}

	head, headErr := s.Resolver(dir, "HEAD")
	if headErr != nil {
		s.log.Debug("cannot verify worktree HEAD", "dir", dir, "error", headErr)

		return nil
	}

	if head != want {
		return fmt.Errorf("%w: worktree %s is at %s, want %s (stale checkout, run clean)",
			ErrRevisionUnavailable, dir, head, want)
	}

	return nil
}

// ownsDir reports whether target is a materialized directory the store may
// delete. The live repository root and anything outside the worktree root
// are never deleted.
func (s *Store) ownsDir(target string) bool {
	cleaned := filepath.Clean(target)
	if cleaned == filepath.Clean(s.repoRoot) {
		return false
	}

	root := filepath.Clean(s.layout.TmpRoot)

	return strings.HasPrefix(cleaned, root+string(filepath.Separator))
}

func dirSize(dir string) int64 {
	var total int64

	_ = filepath.WalkDir(dir, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}

		info, infoErr := entry.Info()
		if infoErr == nil {
			total += info.Size()
		}

		return nil
	})

	return total
}
