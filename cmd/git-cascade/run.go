package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/cool-RR/git-cascade/internal/config"
	"github.com/cool-RR/git-cascade/internal/merge"
	"github.com/cool-RR/git-cascade/internal/ui"
	"github.com/cool-RR/git-cascade/internal/vcs"
	"github.com/cool-RR/git-cascade/internal/vcs/gitcli"
)

// runEnv is the shared setup of the merge-running commands: the repository,
// its configuration, the printer, and the checked-out branch ("" when HEAD
// is detached).
type runEnv struct {
	repo    *gitcli.Repository
	cfg     *config.Config
	printer *ui.Printer
	current string
}

func newRunEnv(ctx context.Context) (*runEnv, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	repo, err := gitcli.Open(ctx, wd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(ctx, repo)
	if err != nil {
		return nil, err
	}
	current, err := repo.CurrentBranch(ctx)
	if err != nil && !errors.Is(err, vcs.ErrDetachedHead) {
		return nil, err
	}
	printer := ui.NewPrinter(os.Stdout,
		jsonOutput || cfg.Settings.JSON,
		noColor || cfg.Settings.NoColor)
	return &runEnv{repo: repo, cfg: cfg, printer: printer, current: current}, nil
}

// acquireLock takes the repository-wide cascade lock so two mutating runs
// cannot interleave ref updates. The caller must invoke the returned release
// function; dry runs and --show never lock.
func (e *runEnv) acquireLock() (func(), error) {
	lock := flock.New(filepath.Join(e.repo.CommonDir, "cascade.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring cascade lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another cascade is already running in this repository")
	}
	return func() { _ = lock.Unlock() }, nil
}

// report prints the summary and translates partial failure into the exit
// code contract: any destination that did not succeed fails the command.
func (e *runEnv) report(results []merge.Result) error {
	if err := e.printer.Summary(results); err != nil {
		return err
	}
	for _, res := range results {
		if !res.Outcome.Succeeded() {
			return errRunFailed
		}
	}
	return nil
}
