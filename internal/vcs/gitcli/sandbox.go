package gitcli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/cool-RR/git-cascade/internal/vcs"
)

// PerformSandboxMerge merges source into destination without touching the
// live index or working tree. The merge is computed inside a throwaway
// index/work-tree pair under the git common directory; on success the
// destination ref is moved to the new merge commit with a compare-and-swap
// against the tip observed at the start, and on any failure the sandbox is
// discarded with no ref changed.
func (r *Repository) PerformSandboxMerge(ctx context.Context, source, destination string) (vcs.CommitID, error) {
	srcID, err := r.ResolveCommit(ctx, source)
	if err != nil {
		return "", err
	}
	dstID, err := r.ResolveCommit(ctx, destination)
	if err != nil {
		return "", err
	}
	baseID, err := r.MergeBase(ctx, source, destination)
	if err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp(r.CommonDir, "cascade-sandbox-")
	if err != nil {
		return "", fmt.Errorf("creating sandbox: %w", err)
	}
	defer os.RemoveAll(dir)

	workTree := filepath.Join(dir, "worktree")
	if err := os.Mkdir(workTree, 0o700); err != nil {
		return "", fmt.Errorf("creating sandbox work tree: %w", err)
	}

	// Same binary, same repository, but index and work tree swapped out for
	// the sandbox pair. GIT_DIR pins the object database and refs to the
	// shared repository directory.
	sandbox := &runner{
		gitPath: r.run.gitPath,
		dir:     workTree,
		env: []string{
			"GIT_DIR=" + r.CommonDir,
			"GIT_WORK_TREE=" + workTree,
			"GIT_INDEX_FILE=" + filepath.Join(dir, "index"),
		},
	}

	klog.V(2).Infof("sandbox merge %s (%s) into %s (%s) in %s",
		source, srcID.Short(), destination, dstID.Short(), dir)

	// Stage the three-way merge: trivial resolutions happen here, the rest
	// stay as unmerged index entries.
	if _, err := sandbox.run(ctx, "read-tree", "-im", string(baseID), string(dstID), string(srcID)); err != nil {
		return "", fmt.Errorf("seeding sandbox merge: %w", err)
	}

	// Resolve the remaining entries file by file. A file git-merge-one-file
	// cannot resolve fails the whole command, which is the conflict signal.
	if _, err := sandbox.run(ctx, "merge-index", "git-merge-one-file", "-a"); err != nil {
		return "", &vcs.ConflictError{Source: source, Destination: destination, Err: err}
	}

	treeOut, err := sandbox.run(ctx, "write-tree")
	if err != nil {
		return "", fmt.Errorf("writing merged tree: %w", err)
	}
	treeID := strings.TrimSpace(treeOut.Stdout)

	commitOut, err := sandbox.run(ctx, "commit-tree", treeID,
		"-p", string(dstID), "-p", string(srcID),
		"-m", fmt.Sprintf("Merge %s into %s", source, destination))
	if err != nil {
		return "", fmt.Errorf("creating merge commit: %w", err)
	}
	newID := vcs.CommitID(strings.TrimSpace(commitOut.Stdout))

	// Compare-and-swap on the tip we merged against: if the branch moved
	// while we worked, the update fails and nothing is lost but the sandbox.
	ref := "refs/heads/" + destination
	if _, err := r.run.run(ctx, "update-ref", "-m", "cascade: merge "+source, ref, string(newID), string(dstID)); err != nil {
		return "", &vcs.RefUpdateError{Branch: destination, Err: err}
	}
	return newID, nil
}
