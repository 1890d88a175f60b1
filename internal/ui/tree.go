package ui

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/cool-RR/git-cascade/internal/cascade"
)

// ShowGraph prints the declared chains with their origins, then the resolved
// graph as one tree per root. A node reachable along several paths is printed
// in full once and annotated on later encounters, so a cycle or diamond never
// recurses forever.
func (p *Printer) ShowGraph(decls []cascade.Declaration, g *cascade.Graph) error {
	if len(decls) == 0 {
		_, err := fmt.Fprintln(p.out, "No cascade chains configured.")
		return err
	}

	fmt.Fprintln(p.out, "Declared chains:")
	for _, d := range decls {
		fmt.Fprintf(p.out, "  %s  (%s)\n", d.Text, d.Origin)
	}
	fmt.Fprintln(p.out)

	// Roots first; a fully cyclic component has no root, so sweep the
	// remaining nodes afterwards and start a tree at the first uncovered one.
	covered := map[string]bool{}
	starts := append(g.Roots(), g.Nodes()...)
	for _, start := range starts {
		if covered[start] {
			continue
		}
		tree := treeprint.New()
		tree.SetValue(start)
		covered[start] = true
		p.growTree(tree, g, start, map[string]bool{start: true}, covered)
		fmt.Fprint(p.out, tree.String())
	}
	return nil
}

// growTree adds node's downstream branches under parent. seen is the path of
// the current tree and stops cycles; covered spans all trees and decides
// which nodes still need a tree of their own.
func (p *Printer) growTree(parent treeprint.Tree, g *cascade.Graph, node string, seen, covered map[string]bool) {
	for _, child := range g.Downstream(node) {
		if seen[child] {
			parent.AddNode(child + " (repeated)")
			continue
		}
		seen[child] = true
		covered[child] = true
		branch := parent.AddBranch(child)
		p.growTree(branch, g, child, seen, covered)
	}
}
