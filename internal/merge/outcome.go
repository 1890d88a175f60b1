// Package merge classifies source/destination ancestry and drives the
// per-destination merge sequence of a cascade run.
package merge

import "github.com/cool-RR/git-cascade/internal/vcs"

// Outcome describes what happened to one destination branch.
type Outcome string

const (
	// OutcomeFastForwarded: the ref moved to the source commit, no new
	// commit object.
	OutcomeFastForwarded Outcome = "fast-forwarded"

	// OutcomeMerged: a two-parent merge commit was created off-tree and the
	// ref updated.
	OutcomeMerged Outcome = "merged"

	// OutcomeInPlaceMerged: the native merge into the live checkout
	// succeeded.
	OutcomeInPlaceMerged Outcome = "in-place-merged"

	// OutcomeInPlaceConflict: the native merge stopped on conflicts, which
	// stay in the working tree for manual resolution.
	OutcomeInPlaceConflict Outcome = "in-place-conflict"

	// OutcomeAlreadyAhead: the destination already contains the source.
	OutcomeAlreadyAhead Outcome = "already-ahead"

	// OutcomeAbortedConflict: the sandbox merge conflicted; the sandbox was
	// discarded and nothing changed.
	OutcomeAbortedConflict Outcome = "aborted-conflict"

	// OutcomeSkipped: not attempted because an upstream destination in this
	// run conflicted.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed: a VCS-level error (unresolved branch, ref update race).
	OutcomeFailed Outcome = "failed"

	// Dry-run projections of what a live run would do.
	OutcomeWouldFastForward  Outcome = "would-fast-forward"
	OutcomeWouldMerge        Outcome = "would-merge"
	OutcomeWouldMergeInPlace Outcome = "would-merge-in-place"
)

var validOutcomes = map[Outcome]bool{
	OutcomeFastForwarded:     true,
	OutcomeMerged:            true,
	OutcomeInPlaceMerged:     true,
	OutcomeInPlaceConflict:   true,
	OutcomeAlreadyAhead:      true,
	OutcomeAbortedConflict:   true,
	OutcomeSkipped:           true,
	OutcomeFailed:            true,
	OutcomeWouldFastForward:  true,
	OutcomeWouldMerge:        true,
	OutcomeWouldMergeInPlace: true,
}

// IsValid checks if the outcome value is valid.
func (o Outcome) IsValid() bool {
	return validOutcomes[o]
}

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// Succeeded reports whether the destination needs no further attention.
func (o Outcome) Succeeded() bool {
	switch o {
	case OutcomeFastForwarded, OutcomeMerged, OutcomeInPlaceMerged, OutcomeAlreadyAhead,
		OutcomeWouldFastForward, OutcomeWouldMerge, OutcomeWouldMergeInPlace:
		return true
	}
	return false
}

// Result is the report row for one destination.
type Result struct {
	Destination string       `json:"destination"`
	Outcome     Outcome      `json:"outcome"`
	Source      string       `json:"source,omitempty"` // effective source of this hop
	Commit      vcs.CommitID `json:"commit,omitempty"` // tip after a successful mutation
	Message     string       `json:"message,omitempty"`

	// Err is the underlying error for conflict and failure outcomes.
	Err error `json:"-"`
}
