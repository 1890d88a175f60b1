// Package vcs defines the version-control operations the cascade core
// consumes, plus the error taxonomy shared by its implementations. Two
// backends exist: gitcli drives a real repository through the git binary,
// and memory is an in-memory fake for unit tests.
package vcs

import "context"

// CommitID identifies a commit. Opaque to the core; the git backend carries
// full object hashes.
type CommitID string

// Short returns an abbreviated form for display.
func (id CommitID) Short() string {
	if len(id) > 10 {
		return string(id[:10])
	}
	return string(id)
}

// VCS is the operations contract between the cascade core and the
// underlying repository. Every call blocks until the backend answers; there
// are no partial results.
type VCS interface {
	// MergeBase returns the best common ancestor of two revisions.
	// MergeBase(x, x) is x's own commit, which is how the classifier turns
	// merge-base queries into ancestry tests.
	MergeBase(ctx context.Context, a, b string) (CommitID, error)

	// ResolveCommit resolves a branch name or revision to a commit,
	// returning UnresolvedBranchError for names the repository rejects.
	ResolveCommit(ctx context.Context, rev string) (CommitID, error)

	// CurrentBranch returns the checked-out branch, or ErrDetachedHead when
	// HEAD does not point at one.
	CurrentBranch(ctx context.Context) (string, error)

	// CreateOrMoveRef points branch at id, creating the branch if it does
	// not exist. With fastForwardOnly set the move is refused (with
	// RefUpdateError) unless id descends from the current tip; every update
	// is a compare-and-swap against the tip observed here, so a concurrent
	// external move also surfaces as RefUpdateError.
	CreateOrMoveRef(ctx context.Context, branch string, id CommitID, fastForwardOnly bool) error

	// ReadConfigChains returns the persisted cascade declarations, unparsed,
	// in scope order (least specific first).
	ReadConfigChains(ctx context.Context) ([]string, error)

	// ReadAliasMap returns the persisted short-name → branch mapping, with
	// the most specific scope winning duplicated keys.
	ReadAliasMap(ctx context.Context) (map[string]string, error)

	// PerformInPlaceMerge merges source into the checked-out branch using
	// the live index and working tree, exactly like the native merge
	// command. On conflict it returns ConflictLeftInWorkingTree and the
	// working tree keeps the conflict markers for manual resolution.
	PerformInPlaceMerge(ctx context.Context, source string) (CommitID, error)

	// PerformSandboxMerge merges source into destination inside an isolated
	// index and work tree, creating a two-parent merge commit (destination
	// first) and atomically updating the destination ref. On conflict it
	// returns ConflictError and neither the refs nor the live checkout have
	// changed. The live index and working tree are never touched.
	PerformSandboxMerge(ctx context.Context, source, destination string) (CommitID, error)
}
