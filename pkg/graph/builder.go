package graph

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
)

// Builder aggregates triples into a Graph. Repeated occurrences of the same
// ordered pair are summed into one Edge.
type Builder struct {
	g      *Graph
	frozen bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		g: &Graph{
			vertices: make(map[string]*Vertex),
			directed: simple.NewDirectedGraph(),
		},
	}
}

// Add validates t and folds it into the graph.
func (b *Builder) Add(t Triple) error {
	if b.frozen {
		return ErrFrozen
	}
	if strings.TrimSpace(t.From) == "" {
		return &FormatError{Line: t.Line, Field: "from", Msg: "empty label"}
	}
	if strings.TrimSpace(t.To) == "" {
		return &FormatError{Line: t.Line, Field: "to", Msg: "empty label"}
	}
	if t.Weight < 0 {
		return &FormatError{Line: t.Line, Field: "weight", Msg: "weight must be non-negative"}
	}

	g := b.g
	// every edge, cell and bin sum is bounded by the total weight
	if t.Weight > math.MaxInt64-g.totalWeight {
		return &FormatError{Line: t.Line, Field: "weight", Msg: "aggregate weight overflows int64"}
	}
	from := b.vertexOrCreate(t.From)
	to := b.vertexOrCreate(t.To)

	e, ok := from.out[t.To]
	if !ok {
		e = &Edge{From: from, To: to}
		from.out[t.To] = e
		from.outOrder = append(from.outOrder, e)
		g.edges = append(g.edges, e)
		if from.id != to.id {
			g.directed.SetEdge(g.directed.NewEdge(simple.Node(from.id), simple.Node(to.id)))
		}
	}
	e.Weight += t.Weight

	from.weightOut += t.Weight
	to.weightIn += t.Weight
	if from == to {
		from.weightSelf += t.Weight
	}
	g.totalWeight += t.Weight
	return nil
}

// Graph freezes the builder and returns the finished graph.
func (b *Builder) Graph() *Graph {
	b.frozen = true
	return b.g
}

func (b *Builder) vertexOrCreate(label string) *Vertex {
	if v, ok := b.g.vertices[label]; ok {
		return v
	}
	v := &Vertex{
		label: label,
		id:    int64(len(b.g.order)),
		out:   make(map[string]*Edge),
	}
	b.g.vertices[label] = v
	b.g.order = append(b.g.order, v)
	b.g.directed.AddNode(simple.Node(v.id))
	return v
}

// Build aggregates triples into a frozen Graph, failing on the first
// malformed triple.
func Build(triples []Triple) (*Graph, error) {
	b := NewBuilder()
	for _, t := range triples {
		if err := b.Add(t); err != nil {
			return nil, err
		}
	}
	return b.Graph(), nil
}
