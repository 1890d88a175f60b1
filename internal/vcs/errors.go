package vcs

import (
	"errors"
	"fmt"
)

// ErrDetachedHead is returned by CurrentBranch when HEAD does not point at a
// branch.
var ErrDetachedHead = errors.New("HEAD is detached")

// UnresolvedBranchError reports a branch name the repository rejected.
// Surfaced per destination; sibling destinations keep going.
type UnresolvedBranchError struct {
	Branch string
	Err    error
}

func (e *UnresolvedBranchError) Error() string {
	return fmt.Sprintf("branch %q does not exist", e.Branch)
}

func (e *UnresolvedBranchError) Unwrap() error { return e.Err }

// ConflictError reports a sandbox merge that hit textual conflicts. The
// sandbox was discarded and no ref changed.
type ConflictError struct {
	Source      string
	Destination string
	Err         error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("merging %s into %s produced conflicts", e.Source, e.Destination)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// ConflictLeftInWorkingTree reports an in-place merge that stopped on
// conflicts. The working tree holds the conflict markers, exactly as the
// native merge command leaves them.
type ConflictLeftInWorkingTree struct {
	Source string
	Branch string
}

func (e *ConflictLeftInWorkingTree) Error() string {
	return fmt.Sprintf("merging %s into %s left conflicts in the working tree", e.Source, e.Branch)
}

// RefUpdateError reports a refused atomic ref move: not a fast-forward, or
// the tip moved underneath us.
type RefUpdateError struct {
	Branch string
	Err    error
}

func (e *RefUpdateError) Error() string {
	return fmt.Sprintf("updating branch %q: %v", e.Branch, e.Err)
}

func (e *RefUpdateError) Unwrap() error { return e.Err }
