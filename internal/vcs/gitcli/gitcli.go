package gitcli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"github.com/cool-RR/git-cascade/internal/vcs"
)

var _ vcs.VCS = (*Repository)(nil)

// MergeBase returns the best common ancestor of two revisions. When the
// query fails because an operand does not resolve, the error identifies that
// branch rather than the merge-base machinery.
func (r *Repository) MergeBase(ctx context.Context, a, b string) (vcs.CommitID, error) {
	rr, err := r.run.run(ctx, "merge-base", a, b)
	if err != nil {
		for _, rev := range []string{a, b} {
			if _, rerr := r.ResolveCommit(ctx, rev); rerr != nil {
				return "", rerr
			}
		}
		return "", fmt.Errorf("merge-base %s %s: %w", a, b, err)
	}
	return vcs.CommitID(strings.TrimSpace(rr.Stdout)), nil
}

// ResolveCommit resolves a revision to a commit id.
func (r *Repository) ResolveCommit(ctx context.Context, rev string) (vcs.CommitID, error) {
	rr, err := r.run.run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", &vcs.UnresolvedBranchError{Branch: rev, Err: err}
	}
	return vcs.CommitID(strings.TrimSpace(rr.Stdout)), nil
}

// CurrentBranch returns the branch HEAD points at. A detached HEAD reports
// ErrDetachedHead; an unborn branch still reports its name.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	rr, err := r.run.run(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		return "", vcs.ErrDetachedHead
	}
	return strings.TrimSpace(rr.Stdout), nil
}

// CreateOrMoveRef points refs/heads/<branch> at id. The update is a
// compare-and-swap against the tip read here, so a concurrent move of the
// same ref loses exactly one of the two racers.
func (r *Repository) CreateOrMoveRef(ctx context.Context, branch string, id vcs.CommitID, fastForwardOnly bool) error {
	ref := "refs/heads/" + branch

	old, err := r.ResolveCommit(ctx, ref)
	exists := err == nil

	if exists && fastForwardOnly && old != id {
		if _, err := r.run.run(ctx, "merge-base", "--is-ancestor", string(old), string(id)); err != nil {
			return &vcs.RefUpdateError{
				Branch: branch,
				Err:    fmt.Errorf("not a fast-forward from %s", old.Short()),
			}
		}
	}

	reason := "cascade: move"
	if fastForwardOnly {
		reason = "cascade: fast-forward"
	}
	args := []string{"update-ref", "-m", reason, ref, string(id)}
	if exists {
		args = append(args, string(old))
	} else {
		// An empty old value asserts the ref must not exist yet.
		args = append(args, "")
	}
	if _, err := r.run.run(ctx, args...); err != nil {
		return &vcs.RefUpdateError{Branch: branch, Err: err}
	}
	klog.V(2).Infof("moved %s to %s", ref, id.Short())
	return nil
}

// ReadConfigChains returns every cascade.chain value in git's reporting
// order: system, then global, then local, so later values are the more
// specific ones.
func (r *Repository) ReadConfigChains(ctx context.Context) ([]string, error) {
	rr, err := r.run.run(ctx, "config", "--get-all", "cascade.chain")
	if err != nil {
		if isConfigNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cascade.chain: %w", err)
	}
	var chains []string
	for _, line := range strings.Split(rr.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			chains = append(chains, line)
		}
	}
	return chains, nil
}

// ReadAliasMap returns the cascade.alias.<short> mapping. git folds the key
// segment to lower case, so short names are matched case-insensitively by
// way of the storage itself.
func (r *Repository) ReadAliasMap(ctx context.Context) (map[string]string, error) {
	rr, err := r.run.run(ctx, "config", "--get-regexp", `^cascade\.alias\.`)
	if err != nil {
		if isConfigNotFound(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading cascade.alias: %w", err)
	}
	aliases := make(map[string]string)
	for _, line := range strings.Split(rr.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		short := strings.TrimPrefix(parts[0], "cascade.alias.")
		aliases[short] = parts[1]
	}
	return aliases, nil
}

// PerformInPlaceMerge merges source into the checked-out branch with the
// native merge command, live index and working tree included. On conflict
// the tree is left dirty with conflict markers, exactly as git leaves it.
func (r *Repository) PerformInPlaceMerge(ctx context.Context, source string) (vcs.CommitID, error) {
	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	if _, err := r.run.run(ctx, "merge", "--no-edit", source); err != nil {
		// MERGE_HEAD existing means the merge stopped on conflicts and is
		// waiting for manual resolution; anything else is a plain failure.
		if _, probeErr := r.run.run(ctx, "rev-parse", "--verify", "--quiet", "MERGE_HEAD"); probeErr == nil {
			return "", &vcs.ConflictLeftInWorkingTree{Source: source, Branch: branch}
		}
		return "", fmt.Errorf("merging %s into %s: %w", source, branch, err)
	}
	return r.ResolveCommit(ctx, "HEAD")
}

// config --get exits 1 when the key simply is not set.
func isConfigNotFound(err error) bool {
	var gitErr *GitError
	return errors.As(err, &gitErr) && gitErr.ExitCode() == 1 && strings.TrimSpace(gitErr.StdErr) == ""
}
