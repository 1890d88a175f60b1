package cascade

// CurrentBranchAlias is the reserved short name for the branch that was
// checked out when the run started.
const CurrentBranchAlias = "."

// Resolver expands short branch names to canonical ones. Unknown names pass
// through unchanged; whether they exist is the VCS layer's business.
type Resolver struct {
	aliases map[string]string
	current string
}

// NewResolver builds a resolver from an alias table and the branch checked
// out at invocation start. The table is expected to already have the most
// specific scope's entries winning duplicate keys (the config loader
// registers scopes in global-to-local order, last write wins). The table is
// copied, so later mutation of the argument has no effect.
func NewResolver(aliases map[string]string, currentBranch string) *Resolver {
	m := make(map[string]string, len(aliases))
	for short, canonical := range aliases {
		m[short] = canonical
	}
	return &Resolver{aliases: m, current: currentBranch}
}

// Resolve maps name through the alias table. The "." sentinel always means
// the current branch, regardless of the table contents. Names are resolved
// exactly once; resolved names are never re-expanded.
func (r *Resolver) Resolve(name string) string {
	if name == CurrentBranchAlias {
		return r.current
	}
	if canonical, ok := r.aliases[name]; ok {
		return canonical
	}
	return name
}

// ResolveAll maps every name in names, preserving order.
func (r *Resolver) ResolveAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = r.Resolve(name)
	}
	return out
}
