package cascade

// Closure returns the resolved destination set for a run: every requested
// branch plus everything downstream of each, deduplicated. Output order is
// first-seen — requested branches in argument order, then downstream
// discoveries in traversal order — so reporting is stable run to run.
// Closure is idempotent: resolving a resolved set returns the same set.
func Closure(g *Graph, requested []string) []string {
	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, r := range requested {
		add(r)
	}
	for _, r := range requested {
		for _, d := range g.DownstreamOf(r) {
			add(d)
		}
	}
	return out
}
