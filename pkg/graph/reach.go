package graph

import (
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"
)

// Reachable reports whether a directed path leads from -> to. Every vertex
// reaches itself. known is false when either label is not in the graph.
func (g *Graph) Reachable(from, to string) (reachable, known bool) {
	src, ok := g.vertices[from]
	if !ok {
		return false, false
	}
	dst, ok := g.vertices[to]
	if !ok {
		return false, false
	}
	if src == dst {
		return true, true
	}

	var dfs traverse.DepthFirst
	found := dfs.Walk(g.directed, g.directed.Node(src.id), func(n gonum.Node) bool {
		return n.ID() == dst.id
	})
	return found != nil, true
}

// ReachableFrom returns the labels of every vertex reachable from label,
// including label itself.
func (g *Graph) ReachableFrom(label string) []string {
	src, ok := g.vertices[label]
	if !ok {
		return nil
	}
	var out []string
	dfs := traverse.DepthFirst{
		Visit: func(n gonum.Node) {
			out = append(out, g.order[n.ID()].label)
		},
	}
	dfs.Walk(g.directed, g.directed.Node(src.id), nil)
	return out
}
