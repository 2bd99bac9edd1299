// Package graph holds the exact weighted directed graph that summaries are
// built from and compared against.
//
// A Graph is assembled once through a Builder and is read-only afterwards, so
// it can be shared by any number of goroutines without locking.
package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
)

// Triple is one ingested edge occurrence. Line is the 1-based source line
// when the triple came from a file and 0 otherwise.
type Triple struct {
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	Weight int64  `json:"weight" yaml:"weight"`
	Line   int    `json:"-" yaml:"-"`
}

// Vertex is a labelled node with its outgoing edges and weight accumulators.
type Vertex struct {
	label string
	id    int64

	out      map[string]*Edge
	outOrder []*Edge

	weightIn   int64
	weightOut  int64
	weightSelf int64
}

func (v *Vertex) Label() string { return v.label }

// ID is the dense insertion index of the vertex.
func (v *Vertex) ID() int64 { return v.id }

// OutEdges returns the outgoing edges in first-seen order.
func (v *Vertex) OutEdges() []*Edge { return v.outOrder }

func (v *Vertex) WeightIn() int64  { return v.weightIn }
func (v *Vertex) WeightOut() int64 { return v.weightOut }

// Weight aggregates incident edge weight for d. A self loop is counted once
// for Undirected.
func (v *Vertex) Weight(d Direction) int64 {
	switch d {
	case In:
		return v.weightIn
	case Out:
		return v.weightOut
	default:
		return v.weightIn + v.weightOut - v.weightSelf
	}
}

// Edge is the single aggregated edge for an ordered label pair.
type Edge struct {
	From   *Vertex
	To     *Vertex
	Weight int64
}

// Key identifies the edge by its ordered label pair.
func (e *Edge) Key() Pair { return Pair{From: e.From.label, To: e.To.label} }

// Pair is an ordered pair of vertex labels.
type Pair struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

func (p Pair) String() string { return "(" + p.From + ", " + p.To + ")" }

// Graph is the exact ground truth. Build it with a Builder.
type Graph struct {
	vertices map[string]*Vertex
	order    []*Vertex
	edges    []*Edge

	totalWeight int64

	// directed mirrors the topology for gonum traversals. Self loops are
	// omitted since they never change reachability.
	directed *simple.DirectedGraph
}

// Vertex looks a vertex up by label.
func (g *Graph) Vertex(label string) (*Vertex, bool) {
	v, ok := g.vertices[label]
	return v, ok
}

// HasVertex reports whether label was seen during ingestion.
func (g *Graph) HasVertex(label string) bool {
	_, ok := g.vertices[label]
	return ok
}

// Vertices returns all vertices in first-seen order.
func (g *Graph) Vertices() []*Vertex { return g.order }

// Labels returns all vertex labels in first-seen order.
func (g *Graph) Labels() []string {
	labels := make([]string, len(g.order))
	for i, v := range g.order {
		labels[i] = v.label
	}
	return labels
}

// Edges returns every aggregated edge in first-seen order.
func (g *Graph) Edges() []*Edge { return g.edges }

// Edge returns the aggregated edge from -> to.
func (g *Graph) Edge(from, to string) (*Edge, bool) {
	v, ok := g.vertices[from]
	if !ok {
		return nil, false
	}
	e, ok := v.out[to]
	return e, ok
}

func (g *Graph) NumVertices() int { return len(g.order) }
func (g *Graph) NumEdges() int    { return len(g.edges) }

// TotalWeight is the sum of all edge weights.
func (g *Graph) TotalWeight() int64 { return g.totalWeight }

// RankVertices orders vertices by Weight(d) descending, ties broken by label.
func (g *Graph) RankVertices(d Direction) []*Vertex {
	ranked := make([]*Vertex, len(g.order))
	copy(ranked, g.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := ranked[i].Weight(d), ranked[j].Weight(d)
		if wi != wj {
			return wi > wj
		}
		return ranked[i].label < ranked[j].label
	})
	return ranked
}

// RankEdges orders edges by weight descending, ties broken by label pair.
func (g *Graph) RankEdges() []*Edge {
	ranked := make([]*Edge, len(g.edges))
	copy(ranked, g.edges)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Weight != ranked[j].Weight {
			return ranked[i].Weight > ranked[j].Weight
		}
		return lessPair(ranked[i].Key(), ranked[j].Key())
	})
	return ranked
}

func lessPair(a, b Pair) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	return a.To < b.To
}
