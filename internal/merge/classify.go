package merge

import (
	"context"
	"fmt"

	"github.com/cool-RR/git-cascade/internal/vcs"
)

// Strategy is the relationship between a source and a destination, and
// therefore the kind of merge required.
type Strategy int

const (
	// FastForward: the destination's history is contained in the source's;
	// the ref can move without a new commit.
	FastForward Strategy = iota
	// AlreadyAhead: the source is already an ancestor of the destination;
	// nothing to do.
	AlreadyAhead
	// Divergent: neither contains the other; a real merge is required.
	Divergent
)

func (s Strategy) String() string {
	switch s {
	case FastForward:
		return "fast-forward"
	case AlreadyAhead:
		return "already-ahead"
	case Divergent:
		return "divergent"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Classify decides the merge strategy for source → destination from three
// merge-base queries. base(x, x) is x's own commit, so the comparisons are
// ancestry tests: the destination check runs first, which means a
// destination equal to the source classifies as a fast-forward (the ref
// move is then a no-op).
func Classify(ctx context.Context, v vcs.VCS, source, destination string) (Strategy, error) {
	srcTip, err := v.MergeBase(ctx, source, source)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", source, err)
	}
	dstTip, err := v.MergeBase(ctx, destination, destination)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", destination, err)
	}
	crossBase, err := v.MergeBase(ctx, source, destination)
	if err != nil {
		return 0, fmt.Errorf("merge-base of %s and %s: %w", source, destination, err)
	}
	switch {
	case dstTip == crossBase:
		return FastForward, nil
	case srcTip == crossBase:
		return AlreadyAhead, nil
	default:
		return Divergent, nil
	}
}
