package cascade

// Graph is the cascade dependency graph. Nodes are canonical branch names;
// an edge a→b declares b immediately downstream of a. Multiple declarations
// may share nodes, so the graph is a forest/DAG in the well-configured case,
// but traversal also tolerates accidental cycles. Node and edge insertion
// order is preserved so traversal, scheduling, and reporting stay
// deterministic.
type Graph struct {
	nodes    []string
	edges    map[string][]string
	redges   map[string][]string
	seen     map[string]bool
	edgeSeen map[string]map[string]bool
}

func NewGraph() *Graph {
	return &Graph{
		edges:    make(map[string][]string),
		redges:   make(map[string][]string),
		seen:     make(map[string]bool),
		edgeSeen: make(map[string]map[string]bool),
	}
}

// AddChain registers the edges chain[i] → chain[i+1] for all i. Names must
// already be alias-normalized. A one-element chain registers the node only;
// duplicate edges are recorded once.
func (g *Graph) AddChain(chain []string) {
	for _, name := range chain {
		g.addNode(name)
	}
	for i := 0; i+1 < len(chain); i++ {
		g.addEdge(chain[i], chain[i+1])
	}
}

func (g *Graph) addNode(name string) {
	if g.seen[name] {
		return
	}
	g.seen[name] = true
	g.nodes = append(g.nodes, name)
}

func (g *Graph) addEdge(from, to string) {
	if g.edgeSeen[from] == nil {
		g.edgeSeen[from] = make(map[string]bool)
	}
	if g.edgeSeen[from][to] {
		return
	}
	g.edgeSeen[from][to] = true
	g.edges[from] = append(g.edges[from], to)
	g.redges[to] = append(g.redges[to], from)
}

// Nodes returns every declared branch in first-seen order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Downstream returns the immediate downstream neighbors of node in
// declaration order.
func (g *Graph) Downstream(node string) []string {
	return append([]string(nil), g.edges[node]...)
}

// Upstream returns the immediate upstream neighbors of node in declaration
// order.
func (g *Graph) Upstream(node string) []string {
	return append([]string(nil), g.redges[node]...)
}

// Roots returns the nodes with no upstream neighbor, in first-seen order.
// A fully cyclic graph has no roots.
func (g *Graph) Roots() []string {
	var roots []string
	for _, n := range g.nodes {
		if len(g.redges[n]) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// DownstreamOf returns every branch reachable from node by following one or
// more edges, in breadth-first discovery order. Each node is visited at most
// once, so an accidentally declared cycle is absorbed rather than looped on.
// The start node is never part of its own result: for the cycle a→b→a,
// DownstreamOf(a) is {b}.
func (g *Graph) DownstreamOf(node string) []string {
	visited := map[string]bool{node: true}
	var out []string
	queue := append([]string(nil), g.edges[node]...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		out = append(out, n)
		queue = append(queue, g.edges[n]...)
	}
	return out
}
