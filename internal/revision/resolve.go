package revision

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Resolve canonicalizes a revision spec (hash, branch, tag, HEAD) to a full
// commit hash using libgit2. It works on the main repository and on
// materialized worktrees alike, which lets the store verify a worktree's HEAD
// with the same code path that resolves configured revisions.
func Resolve(repoPath, spec string) (string, error) {
	repo, openErr := git2go.OpenRepository(repoPath)
	if openErr != nil {
		return "", fmt.Errorf("%w: open repository %s: %v", ErrRevisionUnavailable, repoPath, openErr)
	}
	defer repo.Free()

	obj, parseErr := repo.RevparseSingle(spec)
	if parseErr != nil {
		return "", fmt.Errorf("%w: resolve %s: %v", ErrRevisionUnavailable, spec, parseErr)
	}
	defer obj.Free()

	commit, peelErr := obj.Peel(git2go.ObjectCommit)
	if peelErr != nil {
		return "", fmt.Errorf("%w: %s does not name a commit: %v", ErrRevisionUnavailable, spec, peelErr)
	}
	defer commit.Free()

	return commit.Id().String(), nil
}
