package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cool-RR/git-cascade/internal/cascade"
	"github.com/cool-RR/git-cascade/internal/merge"
)

var (
	cascadeShow   bool
	cascadeDryRun bool
)

var cascadeCmd = &cobra.Command{
	Use:   "cascade [source] [destination...]",
	Short: "Propagate a change through the configured downstream branches",
	Long: `Cascade a branch into its configured downstream branches without checking
them out.

With no arguments, cascade HEAD into the current branch and everything
declared downstream of it. With one argument, cascade HEAD into that branch
and its downstream closure. With two or more, cascade the first into the
rest and their closures.

Destinations are processed upstream-first. A destination that can
fast-forward is simply moved; a diverged destination gets a real merge
commit computed in a temporary index, leaving the working tree untouched.
The currently checked-out branch is the one exception: it is merged in
place, and a conflict there stays in the working tree for the usual manual
resolution. A conflict on any other destination aborts just that branch and
everything downstream of it; independent branches still get their merges.

Examples:
  git-cascade cascade                        # current branch and downstream
  git-cascade cascade staging                # HEAD into staging and downstream
  git-cascade cascade development staging    # development into staging and downstream
  git-cascade cascade --show                 # print chains and graph
  git-cascade cascade --dry-run              # report without changing anything`,
	RunE: runCascade,
}

func init() {
	cascadeCmd.Flags().BoolVar(&cascadeShow, "show", false, "print the configured cascade chains and graph, then exit")
	cascadeCmd.Flags().BoolVar(&cascadeDryRun, "dry-run", false, "classify and report without changing anything")
	rootCmd.AddCommand(cascadeCmd)
}

func runCascade(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newRunEnv(ctx)
	if err != nil {
		return err
	}

	resolver := cascade.NewResolver(env.cfg.Aliases, env.current)
	graph, err := cascade.BuildGraph(env.cfg.Chains, resolver)
	if err != nil {
		return err
	}

	if cascadeShow {
		return env.printer.ShowGraph(env.cfg.Chains, graph)
	}

	// The checked-out branch name doubles as the source rev when no source
	// argument is given; "HEAD" only when there is no branch to name.
	head := env.current
	if head == "" {
		head = "HEAD"
	}

	var source string
	var requested []string
	switch {
	case len(args) == 0:
		if env.current == "" {
			return fmt.Errorf("HEAD is detached; name a destination branch")
		}
		source = head
		requested = []string{env.current}
	case len(args) == 1:
		source = head
		requested = []string{resolver.Resolve(args[0])}
	default:
		source = resolver.Resolve(args[0])
		requested = resolver.ResolveAll(args[1:])
	}
	destinations := cascade.Closure(graph, requested)

	if !cascadeDryRun {
		unlock, err := env.acquireLock()
		if err != nil {
			return err
		}
		defer unlock()
	}

	orch := &merge.Orchestrator{
		VCS:      env.repo,
		Graph:    graph,
		Current:  env.current,
		DryRun:   cascadeDryRun,
		OnResult: env.printer.Result,
	}
	results, err := orch.Run(ctx, source, destinations)
	if err != nil {
		return err
	}
	return env.report(results)
}
