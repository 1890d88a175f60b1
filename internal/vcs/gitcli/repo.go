package gitcli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Repository is a handle on one local repository. It carries no cached ref
// state: every query goes back to git, so a handle opened at process start
// stays correct while the run mutates refs.
type Repository struct {
	run *runner

	// GitDir is the repository directory serving the working tree we were
	// opened in. In a linked worktree this is the worktree-private
	// directory.
	GitDir string

	// CommonDir is the repository directory shared across worktrees. Refs,
	// objects, sandboxes and the run lock live here.
	CommonDir string

	// TopLevel is the root of the working tree.
	TopLevel string
}

// Open locates the repository containing dir. All three directory fields
// come from a single rev-parse invocation; in a plain repository GitDir and
// CommonDir are the same directory.
func Open(ctx context.Context, dir string) (*Repository, error) {
	probe, err := newRunner(dir)
	if err != nil {
		return nil, err
	}
	rr, err := probe.run(ctx, "rev-parse", "--git-dir", "--git-common-dir", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git repository (or no working tree): %w", err)
	}

	lines := strings.Split(strings.TrimSpace(rr.Stdout), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("unexpected rev-parse output: got %d lines, expected 3", len(lines))
	}

	// rev-parse emits paths relative to the directory it ran in.
	abs := func(p string) (string, error) {
		p = strings.TrimSpace(p)
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		return filepath.Abs(p)
	}
	gitDir, err := abs(lines[0])
	if err != nil {
		return nil, fmt.Errorf("resolving git dir: %w", err)
	}
	commonDir, err := abs(lines[1])
	if err != nil {
		return nil, fmt.Errorf("resolving git common dir: %w", err)
	}
	topLevel, err := abs(lines[2])
	if err != nil {
		return nil, fmt.Errorf("resolving working tree root: %w", err)
	}

	// Commands run from the working tree root so the in-place merge path
	// operates on the live checkout.
	main, err := newRunner(topLevel)
	if err != nil {
		return nil, err
	}
	return &Repository{
		run:       main,
		GitDir:    gitDir,
		CommonDir: commonDir,
		TopLevel:  topLevel,
	}, nil
}
