package merge

import (
	toposort "github.com/philopon/go-toposort"

	"github.com/cool-RR/git-cascade/internal/cascade"
)

// scheduleOrder orders destinations upstream-first using the cascade graph
// reachability restricted to the destination set, so a chained hop always
// runs after the hop it sources from and a conflict always precedes the
// destinations it gates — gating is transitive, so ordering must be too,
// even when the intermediate branches are not part of this run. Nodes are
// registered in first-seen order, which keeps the topological sort
// deterministic among unordered peers. A cyclic declaration falls back to
// the given (closure) order.
func scheduleOrder(g *cascade.Graph, destinations []string) []string {
	if g == nil || len(destinations) < 2 {
		return destinations
	}
	in := make(map[string]bool, len(destinations))
	for _, d := range destinations {
		in[d] = true
	}
	tg := toposort.NewGraph(len(destinations))
	for _, d := range destinations {
		tg.AddNode(d)
	}
	for _, d := range destinations {
		for _, down := range g.DownstreamOf(d) {
			if in[down] {
				tg.AddEdge(d, down)
			}
		}
	}
	order, ok := tg.Toposort()
	if !ok {
		return destinations
	}
	return order
}
