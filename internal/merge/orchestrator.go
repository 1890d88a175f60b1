package merge

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/cool-RR/git-cascade/internal/cascade"
	"github.com/cool-RR/git-cascade/internal/vcs"
)

// Orchestrator drives one cascade run: it schedules the resolved destination
// set, picks a merge strategy per destination, performs the merge, and
// accumulates per-destination results.
//
// Destinations are processed strictly one at a time, upstream before
// downstream. A conflict on one destination gates everything downstream of
// it in the cascade graph but leaves independent destinations untouched;
// VCS-level failures are isolated to their destination.
type Orchestrator struct {
	VCS vcs.VCS

	// Graph enables upstream-first scheduling, chained sourcing, and
	// conflict gating. Nil (the forward-merge command) processes the
	// destinations in the given order, each against the original source.
	Graph *cascade.Graph

	// Current is the branch checked out at invocation start. A destination
	// equal to it is merged in place, in the live working tree.
	Current string

	// DryRun classifies every destination and reports would-* outcomes
	// without calling any mutating VCS operation. Chained hops classify
	// against the upstream's projected history, not its unchanged tip.
	DryRun bool

	// OnResult, when set, observes each destination's result as it
	// completes, before the next destination starts.
	OnResult func(Result)
}

// Run cascades source into every destination and returns one Result per
// destination in processing order. The returned error is reserved for
// problems that invalidate the whole run (an unresolvable source branch);
// per-destination failures are reported inside the results so the caller
// always sees the complete picture.
func (o *Orchestrator) Run(ctx context.Context, source string, destinations []string) ([]Result, error) {
	if _, err := o.VCS.ResolveCommit(ctx, source); err != nil {
		return nil, fmt.Errorf("resolving source %s: %w", source, err)
	}

	order := scheduleOrder(o.Graph, destinations)
	klog.V(2).Infof("cascade order: %v", order)

	results := make([]Result, 0, len(order))
	completed := make(map[string]int) // branch -> rank of its successful hop
	var conflicted []string
	var projection map[string][]string
	if o.DryRun {
		projection = make(map[string][]string)
	}

	for rank, dest := range order {
		if blocker := o.gatedBy(conflicted, dest); blocker != "" {
			klog.V(2).Infof("skipping %s: upstream %s conflicted", dest, blocker)
			res := Result{
				Destination: dest,
				Outcome:     OutcomeSkipped,
				Message:     fmt.Sprintf("upstream %s conflicted", blocker),
			}
			results = append(results, res)
			if o.OnResult != nil {
				o.OnResult(res)
			}
			continue
		}

		src := o.effectiveSource(completed, source, dest)
		var res Result
		if o.DryRun {
			res = o.previewOne(ctx, projection, src, dest)
		} else {
			res = o.mergeOne(ctx, src, dest)
		}
		results = append(results, res)
		if o.OnResult != nil {
			o.OnResult(res)
		}

		switch {
		case res.Outcome == OutcomeAbortedConflict || res.Outcome == OutcomeInPlaceConflict:
			conflicted = append(conflicted, dest)
		case res.Outcome.Succeeded():
			completed[dest] = rank
		}
	}
	return results, nil
}

// effectiveSource returns the branch this hop merges from: the most recently
// completed successful immediate upstream of dest in this run, else the
// original source. Chaining against the updated upstream tip keeps a
// downstream branch consistent with its upstream after a divergent merge
// created a commit the original source does not contain.
func (o *Orchestrator) effectiveSource(completed map[string]int, source, dest string) string {
	if o.Graph == nil {
		return source
	}
	best, bestRank := source, -1
	for _, up := range o.Graph.Upstream(dest) {
		if rank, ok := completed[up]; ok && rank > bestRank {
			best, bestRank = up, rank
		}
	}
	if bestRank >= 0 && best != source {
		klog.V(2).Infof("%s: chaining from %s instead of %s", dest, best, source)
	}
	return best
}

// gatedBy returns the conflicted branch dest is downstream of, or "".
func (o *Orchestrator) gatedBy(conflicted []string, dest string) string {
	if o.Graph == nil {
		return ""
	}
	for _, c := range conflicted {
		for _, d := range o.Graph.DownstreamOf(c) {
			if d == dest {
				return c
			}
		}
	}
	return ""
}

// mergeOne performs a single hop. It never returns an error: every failure
// mode maps to an outcome so the run always produces a full report.
func (o *Orchestrator) mergeOne(ctx context.Context, source, dest string) Result {
	res := Result{Destination: dest, Source: source}

	// The live checkout is the one place a merge may (and must) leave
	// conflicts behind for manual resolution, so it bypasses classification
	// and uses the native merge.
	if o.Current != "" && dest == o.Current {
		return o.mergeInPlace(ctx, source, res)
	}

	strategy, err := Classify(ctx, o.VCS, source, dest)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		res.Message = err.Error()
		return res
	}
	klog.V(2).Infof("%s -> %s: %s", source, dest, strategy)

	switch strategy {
	case FastForward:
		id, err := o.VCS.ResolveCommit(ctx, source)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			res.Message = err.Error()
			return res
		}
		if err := o.VCS.CreateOrMoveRef(ctx, dest, id, true); err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			res.Message = err.Error()
			return res
		}
		res.Outcome = OutcomeFastForwarded
		res.Commit = id

	case AlreadyAhead:
		res.Outcome = OutcomeAlreadyAhead
		if id, err := o.VCS.ResolveCommit(ctx, dest); err == nil {
			res.Commit = id
		}

	case Divergent:
		id, err := o.VCS.PerformSandboxMerge(ctx, source, dest)
		var conflict *vcs.ConflictError
		switch {
		case err == nil:
			res.Outcome = OutcomeMerged
			res.Commit = id
		case errors.As(err, &conflict):
			res.Outcome = OutcomeAbortedConflict
			res.Err = err
			res.Message = "sandbox merge conflicted, nothing changed"
		default:
			res.Outcome = OutcomeFailed
			res.Err = err
			res.Message = err.Error()
		}
	}
	return res
}

func (o *Orchestrator) mergeInPlace(ctx context.Context, source string, res Result) Result {
	id, err := o.VCS.PerformInPlaceMerge(ctx, source)
	var conflict *vcs.ConflictLeftInWorkingTree
	switch {
	case err == nil:
		res.Outcome = OutcomeInPlaceMerged
		res.Commit = id
	case errors.As(err, &conflict):
		res.Outcome = OutcomeInPlaceConflict
		res.Err = err
		res.Message = "conflicts left in working tree for manual resolution"
	default:
		res.Outcome = OutcomeFailed
		res.Err = err
		res.Message = err.Error()
	}
	return res
}

// previewOne classifies one hop of a dry run. projection records, per branch
// already previewed, the revs whose combined histories make up the branch's
// would-be history; classifying against those revs instead of the branch's
// unchanged tip predicts what the live run will find once the upstream hops
// have moved their refs.
func (o *Orchestrator) previewOne(ctx context.Context, projection map[string][]string, source, dest string) Result {
	res := Result{Destination: dest, Source: source}
	srcSet, ok := projection[source]
	if !ok {
		srcSet = []string{source}
	}

	if o.Current != "" && dest == o.Current {
		res.Outcome = OutcomeWouldMergeInPlace
		projection[dest] = mergeRevs(dest, srcSet)
		return res
	}

	if len(srcSet) == 1 {
		strategy, err := Classify(ctx, o.VCS, srcSet[0], dest)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			res.Message = err.Error()
			return res
		}
		klog.V(2).Infof("%s -> %s: %s (dry run)", source, dest, strategy)
		switch strategy {
		case FastForward:
			res.Outcome = OutcomeWouldFastForward
			if id, err := o.VCS.ResolveCommit(ctx, srcSet[0]); err == nil {
				res.Commit = id
			}
			projection[dest] = srcSet
		case AlreadyAhead:
			res.Outcome = OutcomeAlreadyAhead
			if id, err := o.VCS.ResolveCommit(ctx, dest); err == nil {
				res.Commit = id
			}
		case Divergent:
			res.Outcome = OutcomeWouldMerge
			projection[dest] = mergeRevs(dest, srcSet)
		}
		return res
	}

	// The source projects a merge commit that does not exist yet, so the
	// destination cannot be ahead of it. It fast-forwards exactly when one of
	// the projected revs already contains the destination tip; the commit it
	// would land on is unknown until the live run creates it.
	destTip, err := o.VCS.MergeBase(ctx, dest, dest)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		res.Message = err.Error()
		return res
	}
	for _, rev := range srcSet {
		base, err := o.VCS.MergeBase(ctx, rev, dest)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			res.Message = err.Error()
			return res
		}
		if base == destTip {
			res.Outcome = OutcomeWouldFastForward
			projection[dest] = srcSet
			return res
		}
	}
	res.Outcome = OutcomeWouldMerge
	projection[dest] = mergeRevs(dest, srcSet)
	return res
}

// mergeRevs is the projected history of dest after merging srcSet into it.
func mergeRevs(dest string, srcSet []string) []string {
	revs := []string{dest}
	for _, rev := range srcSet {
		if rev != dest {
			revs = append(revs, rev)
		}
	}
	return revs
}
