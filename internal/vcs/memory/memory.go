// Package memory implements the vcs interface over an in-memory commit DAG.
// It exists for unit tests: classifier and orchestrator behavior can be
// exercised without a real repository, and call counters let tests assert
// what was not done (no sandbox created, nothing mutated on a dry run).
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cool-RR/git-cascade/internal/vcs"
)

type commit struct {
	parents []vcs.CommitID
	files   map[string]string // full snapshot, path -> content
}

// Repository is an in-memory vcs.VCS. The zero value is not usable; call
// NewRepository.
type Repository struct {
	mu sync.RWMutex

	// Commit DAG and refs
	commits  map[vcs.CommitID]*commit
	branches map[string]vcs.CommitID
	next     int // commit id sequence

	current string // checked-out branch; empty means detached

	// Persisted configuration served by ReadConfigChains/ReadAliasMap
	chains  []string
	aliases map[string]string

	// Working tree state for the in-place path
	conflicted bool

	// Counters for test assertions
	sandboxCalls int
	inPlaceCalls int
	mutations    int
}

// NewRepository returns an empty repository: no commits, no branches,
// detached HEAD until Checkout is called.
func NewRepository() *Repository {
	return &Repository{
		commits:  make(map[vcs.CommitID]*commit),
		branches: make(map[string]vcs.CommitID),
		aliases:  make(map[string]string),
	}
}

// Commit adds a commit with the given full file snapshot and parents and
// returns its id. Ids are assigned sequentially (c1, c2, ...).
func (m *Repository) Commit(files map[string]string, parents ...vcs.CommitID) vcs.CommitID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newCommitLocked(files, parents...)
}

// SetBranch points branch at id without any fast-forward check.
func (m *Repository) SetBranch(branch string, id vcs.CommitID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.branches[branch] = id
}

// Checkout makes branch the current branch.
func (m *Repository) Checkout(branch string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = branch
}

// Detach detaches HEAD.
func (m *Repository) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = ""
}

// SetChains sets the declarations returned by ReadConfigChains.
func (m *Repository) SetChains(decls ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chains = append([]string(nil), decls...)
}

// SetAlias registers a short-name mapping served by ReadAliasMap.
func (m *Repository) SetAlias(short, branch string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[short] = branch
}

// BranchTip returns the commit a branch points at.
func (m *Repository) BranchTip(branch string) (vcs.CommitID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.branches[branch]
	return id, ok
}

// Parents returns a commit's parents in order.
func (m *Repository) Parents(id vcs.CommitID) []vcs.CommitID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c := m.commits[id]; c != nil {
		return append([]vcs.CommitID(nil), c.parents...)
	}
	return nil
}

// FileContent returns path's content in the snapshot of id.
func (m *Repository) FileContent(id vcs.CommitID, path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.commits[id]
	if c == nil {
		return "", false
	}
	content, ok := c.files[path]
	return content, ok
}

// SandboxCalls counts PerformSandboxMerge invocations, conflicting or not.
func (m *Repository) SandboxCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sandboxCalls
}

// InPlaceCalls counts PerformInPlaceMerge invocations.
func (m *Repository) InPlaceCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inPlaceCalls
}

// Mutations counts state changes: ref moves and merge commits.
func (m *Repository) Mutations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mutations
}

// WorkingTreeConflicted reports whether an in-place merge left conflict
// markers behind.
func (m *Repository) WorkingTreeConflicted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conflicted
}

// --- vcs.VCS implementation ---

func (m *Repository) MergeBase(ctx context.Context, a, b string) (vcs.CommitID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	aID, err := m.resolveLocked(a)
	if err != nil {
		return "", err
	}
	bID, err := m.resolveLocked(b)
	if err != nil {
		return "", err
	}
	base, ok := m.mergeBaseLocked(aID, bID)
	if !ok {
		return "", fmt.Errorf("no common ancestor of %s and %s", a, b)
	}
	return base, nil
}

func (m *Repository) ResolveCommit(ctx context.Context, rev string) (vcs.CommitID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolveLocked(rev)
}

func (m *Repository) CurrentBranch(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == "" {
		return "", vcs.ErrDetachedHead
	}
	return m.current, nil
}

func (m *Repository) CreateOrMoveRef(ctx context.Context, branch string, id vcs.CommitID, fastForwardOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.commits[id]; !ok {
		return &vcs.RefUpdateError{Branch: branch, Err: fmt.Errorf("unknown commit %s", id)}
	}
	old, exists := m.branches[branch]
	if exists && fastForwardOnly && old != id && !m.isAncestorLocked(old, id) {
		return &vcs.RefUpdateError{Branch: branch, Err: fmt.Errorf("not a fast-forward from %s", old)}
	}
	m.branches[branch] = id
	m.mutations++
	return nil
}

func (m *Repository) ReadConfigChains(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.chains...), nil
}

func (m *Repository) ReadAliasMap(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.aliases))
	for k, v := range m.aliases {
		out[k] = v
	}
	return out, nil
}

func (m *Repository) PerformInPlaceMerge(ctx context.Context, source string) (vcs.CommitID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inPlaceCalls++
	if m.current == "" {
		return "", vcs.ErrDetachedHead
	}
	curID, ok := m.branches[m.current]
	if !ok {
		return "", &vcs.UnresolvedBranchError{Branch: m.current}
	}
	srcID, err := m.resolveLocked(source)
	if err != nil {
		return "", err
	}
	if srcID == curID || m.isAncestorLocked(srcID, curID) {
		return curID, nil // already up to date
	}
	if m.isAncestorLocked(curID, srcID) {
		// the native merge fast-forwards in this case
		m.branches[m.current] = srcID
		m.mutations++
		return srcID, nil
	}
	merged, ok := m.threeWayLocked(curID, srcID)
	if !ok {
		m.conflicted = true
		return "", &vcs.ConflictLeftInWorkingTree{Source: source, Branch: m.current}
	}
	id := m.newCommitLocked(merged, curID, srcID)
	m.branches[m.current] = id
	m.mutations++
	return id, nil
}

func (m *Repository) PerformSandboxMerge(ctx context.Context, source, destination string) (vcs.CommitID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sandboxCalls++
	srcID, err := m.resolveLocked(source)
	if err != nil {
		return "", err
	}
	dstID, err := m.resolveLocked(destination)
	if err != nil {
		return "", err
	}
	merged, ok := m.threeWayLocked(dstID, srcID)
	if !ok {
		return "", &vcs.ConflictError{Source: source, Destination: destination}
	}
	id := m.newCommitLocked(merged, dstID, srcID)
	m.branches[destination] = id
	m.mutations++
	return id, nil
}

// --- internals (callers hold the lock) ---

func (m *Repository) newCommitLocked(files map[string]string, parents ...vcs.CommitID) vcs.CommitID {
	m.next++
	id := vcs.CommitID(fmt.Sprintf("c%d", m.next))
	snapshot := make(map[string]string, len(files))
	for p, content := range files {
		snapshot[p] = content
	}
	m.commits[id] = &commit{parents: append([]vcs.CommitID(nil), parents...), files: snapshot}
	return id
}

func (m *Repository) resolveLocked(rev string) (vcs.CommitID, error) {
	if rev == "HEAD" && m.current != "" {
		rev = m.current
	}
	if id, ok := m.branches[rev]; ok {
		return id, nil
	}
	if _, ok := m.commits[vcs.CommitID(rev)]; ok {
		return vcs.CommitID(rev), nil
	}
	return "", &vcs.UnresolvedBranchError{Branch: rev}
}

func (m *Repository) ancestorsLocked(id vcs.CommitID) map[vcs.CommitID]bool {
	seen := make(map[vcs.CommitID]bool)
	stack := []vcs.CommitID{id}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[c] {
			continue
		}
		seen[c] = true
		if cm := m.commits[c]; cm != nil {
			stack = append(stack, cm.parents...)
		}
	}
	return seen
}

// isAncestorLocked reports whether anc is reachable from id (a commit counts
// as its own ancestor, matching merge-base semantics).
func (m *Repository) isAncestorLocked(anc, id vcs.CommitID) bool {
	return m.ancestorsLocked(id)[anc]
}

// mergeBaseLocked picks the common ancestor with the highest generation
// number (longest path from a root), breaking ties by id for determinism.
func (m *Repository) mergeBaseLocked(a, b vcs.CommitID) (vcs.CommitID, bool) {
	inA := m.ancestorsLocked(a)
	gen := make(map[vcs.CommitID]int)
	var best vcs.CommitID
	bestGen := -1
	found := false
	for c := range m.ancestorsLocked(b) {
		if !inA[c] {
			continue
		}
		g := m.generationLocked(c, gen)
		if g > bestGen || (g == bestGen && c > best) {
			best, bestGen, found = c, g, true
		}
	}
	return best, found
}

func (m *Repository) generationLocked(id vcs.CommitID, memo map[vcs.CommitID]int) int {
	if g, ok := memo[id]; ok {
		return g
	}
	memo[id] = 0 // guards accidental parent cycles
	best := 0
	if c := m.commits[id]; c != nil {
		for _, p := range c.parents {
			if g := m.generationLocked(p, memo) + 1; g > best {
				best = g
			}
		}
	}
	memo[id] = best
	return best
}

// threeWayLocked merges the snapshots of dst and src against their merge
// base, file by file. A file changed on both sides in different ways fails
// the whole merge, mirroring the unresolvable-stage behavior of the real
// sandbox path.
func (m *Repository) threeWayLocked(dst, src vcs.CommitID) (map[string]string, bool) {
	var baseFiles map[string]string
	if base, ok := m.mergeBaseLocked(dst, src); ok {
		baseFiles = m.commits[base].files
	}
	dstFiles := m.commits[dst].files
	srcFiles := m.commits[src].files

	paths := make(map[string]bool)
	for p := range baseFiles {
		paths[p] = true
	}
	for p := range dstFiles {
		paths[p] = true
	}
	for p := range srcFiles {
		paths[p] = true
	}

	merged := make(map[string]string)
	for p := range paths {
		bv, bok := baseFiles[p]
		dv, dok := dstFiles[p]
		sv, sok := srcFiles[p]
		switch {
		case dok && sok && dv == sv:
			merged[p] = dv
		case !dok && !sok:
			// deleted on both sides
		case bok && dok && bv == dv:
			// destination untouched; source side wins (including deletion)
			if sok {
				merged[p] = sv
			}
		case bok && sok && bv == sv:
			// source untouched; destination side wins (including deletion)
			if dok {
				merged[p] = dv
			}
		case !bok && dok && !sok:
			merged[p] = dv // added only on destination
		case !bok && sok && !dok:
			merged[p] = sv // added only on source
		default:
			return nil, false
		}
	}
	return merged, true
}
