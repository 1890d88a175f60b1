package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cool-RR/git-cascade/internal/cascade"
	"github.com/cool-RR/git-cascade/internal/merge"
)

var forwardMergeDryRun bool

var forwardMergeCmd = &cobra.Command{
	Use:     "forward-merge <branch> [branch...]",
	Aliases: []string{"fm"},
	Short:   "Merge one branch into others, ignoring the cascade graph",
	Long: `Merge a branch into one or more destinations directly: no downstream
closure, no chained sourcing, no conflict gating between destinations.

With one argument, merge the current branch into it. With two or more,
merge the first into the rest, each destination evaluated against the
original source in argument order.

The merge mechanics match the cascade command: fast-forward when possible,
sandbox merge for diverged branches, in-place merge only when a destination
is the checked-out branch.

Examples:
  git-cascade forward-merge staging            # current branch into staging
  git-cascade fm development staging master    # development into both`,
	Args: cobra.MinimumNArgs(1),
	RunE: runForwardMerge,
}

func init() {
	forwardMergeCmd.Flags().BoolVar(&forwardMergeDryRun, "dry-run", false, "classify and report without changing anything")
	rootCmd.AddCommand(forwardMergeCmd)
}

func runForwardMerge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newRunEnv(ctx)
	if err != nil {
		return err
	}

	resolver := cascade.NewResolver(env.cfg.Aliases, env.current)
	var source string
	var destinations []string
	if len(args) == 1 {
		if env.current == "" {
			return fmt.Errorf("HEAD is detached; name a source branch")
		}
		source = env.current
		destinations = resolver.ResolveAll(args)
	} else {
		source = resolver.Resolve(args[0])
		destinations = resolver.ResolveAll(args[1:])
	}

	if !forwardMergeDryRun {
		unlock, err := env.acquireLock()
		if err != nil {
			return err
		}
		defer unlock()
	}

	// No graph: destinations keep argument order, nothing chains or gates.
	orch := &merge.Orchestrator{
		VCS:      env.repo,
		Current:  env.current,
		DryRun:   forwardMergeDryRun,
		OnResult: env.printer.Result,
	}
	results, err := orch.Run(ctx, source, destinations)
	if err != nil {
		return err
	}
	return env.report(results)
}
