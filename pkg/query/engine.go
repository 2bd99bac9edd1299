package query

import (
	"fmt"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

// Engine answers queries against one summary and the graph it was built
// from. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	summary *summary.Summary
}

func NewEngine(s *summary.Summary) *Engine {
	return &Engine{summary: s}
}

// Summary returns the summary the engine queries.
func (e *Engine) Summary() *summary.Summary { return e.summary }

// Graph returns the exact graph behind the summary.
func (e *Engine) Graph() *graph.Graph { return e.summary.Graph() }

// ExecuteOnSummary answers q using only the sketches.
func (e *Engine) ExecuteOnSummary(q Query) (Result, error) {
	switch q := q.(type) {
	case EdgeQuery:
		return e.edgeOnSummary(q), nil
	case NodeQuery:
		return e.nodeOnSummary(q), nil
	case PathQuery:
		return e.pathOnSummary(q), nil
	case SubGraphQuery:
		if q.Pattern.Len() == 0 {
			return Result{}, ErrEmptyPattern
		}
		return e.subGraphOnSummary(q), nil
	case nil:
		return Result{}, ErrUnknownQuery
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownQuery, q)
	}
}

// ExecuteOnOriginal answers q exactly from the graph.
func (e *Engine) ExecuteOnOriginal(q Query) (Result, error) {
	g := e.Graph()
	switch q := q.(type) {
	case EdgeQuery:
		return edgeOnGraph(g, q), nil
	case NodeQuery:
		return nodeOnGraph(g, q), nil
	case PathQuery:
		return pathOnGraph(g, q), nil
	case SubGraphQuery:
		if q.Pattern.Len() == 0 {
			return Result{}, ErrEmptyPattern
		}
		return subGraphOnGraph(g, q), nil
	case nil:
		return Result{}, ErrUnknownQuery
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownQuery, q)
	}
}

// Compare runs q on both sides.
func (e *Engine) Compare(q Query) (approx, exact Result, err error) {
	if approx, err = e.ExecuteOnSummary(q); err != nil {
		return Result{}, Result{}, err
	}
	if exact, err = e.ExecuteOnOriginal(q); err != nil {
		return Result{}, Result{}, err
	}
	return approx, exact, nil
}

// known reports whether every label was placed into a bin. All sketches
// share the same member set, so the first one decides.
func (e *Engine) known(labels ...string) bool {
	sk := e.summary.Sketches()[0]
	for _, l := range labels {
		if !sk.Contains(l) {
			return false
		}
	}
	return true
}

func (e *Engine) edgeOnSummary(q EdgeQuery) Result {
	if !e.known(q.From, q.To) {
		return newResult(KindEdge, StatusUnknownVertex)
	}
	r := newResult(KindEdge, StatusNoEvidence)
	for _, sk := range e.summary.Sketches() {
		w, ok := sk.Cell(sk.Bin(q.From), sk.Bin(q.To))
		if !ok {
			continue
		}
		if r.Status != StatusOK || w < r.Weight {
			r.Status = StatusOK
			r.Weight = w
		}
	}
	return r
}

func (e *Engine) nodeOnSummary(q NodeQuery) Result {
	if !e.known(q.Label) {
		return newResult(KindNode, StatusUnknownVertex)
	}
	r := newResult(KindNode, StatusOK)
	for i, sk := range e.summary.Sketches() {
		bin := sk.Bin(q.Label)
		w := sk.BinWeight(bin, q.Direction)
		if i == 0 || w < r.Weight {
			r.Weight = w
			r.Bin = bin
			r.Sketch = i
		}
	}
	return r
}

func (e *Engine) pathOnSummary(q PathQuery) Result {
	if !e.known(q.From, q.To) {
		return newResult(KindPath, StatusUnknownVertex)
	}
	r := newResult(KindPath, StatusOK)
	r.Reachable = true
	for _, sk := range e.summary.Sketches() {
		if !sk.Reachable(sk.Bin(q.From), sk.Bin(q.To)) {
			r.Reachable = false
			break
		}
	}
	return r
}

// subGraphOnSummary sums the pattern's cells per sketch. A sketch in which
// no pair hits a present cell has no opinion and is skipped. A pattern
// naming any unknown label is answered with StatusUnknownVertex.
func (e *Engine) subGraphOnSummary(q SubGraphQuery) Result {
	if !e.known(q.Pattern.Labels()...) {
		return newResult(KindSubGraph, StatusUnknownVertex)
	}
	r := newResult(KindSubGraph, StatusNoEvidence)
	for _, sk := range e.summary.Sketches() {
		var sum int64
		matched := false
		for _, p := range q.Pattern.Pairs() {
			if w, ok := sk.Cell(sk.Bin(p.From), sk.Bin(p.To)); ok {
				sum += w
				matched = true
			}
		}
		if !matched {
			continue
		}
		if r.Status != StatusOK || sum < r.Weight {
			r.Status = StatusOK
			r.Weight = sum
		}
	}
	return r
}

func edgeOnGraph(g *graph.Graph, q EdgeQuery) Result {
	if !g.HasVertex(q.From) || !g.HasVertex(q.To) {
		return newResult(KindEdge, StatusUnknownVertex)
	}
	edge, ok := g.Edge(q.From, q.To)
	if !ok {
		return newResult(KindEdge, StatusNoEdge)
	}
	r := newResult(KindEdge, StatusOK)
	r.Weight = edge.Weight
	return r
}

func nodeOnGraph(g *graph.Graph, q NodeQuery) Result {
	v, ok := g.Vertex(q.Label)
	if !ok {
		return newResult(KindNode, StatusUnknownVertex)
	}
	r := newResult(KindNode, StatusOK)
	r.Weight = v.Weight(q.Direction)
	return r
}

func pathOnGraph(g *graph.Graph, q PathQuery) Result {
	reachable, known := g.Reachable(q.From, q.To)
	if !known {
		return newResult(KindPath, StatusUnknownVertex)
	}
	r := newResult(KindPath, StatusOK)
	r.Reachable = reachable
	return r
}

func subGraphOnGraph(g *graph.Graph, q SubGraphQuery) Result {
	for _, l := range q.Pattern.Labels() {
		if !g.HasVertex(l) {
			return newResult(KindSubGraph, StatusUnknownVertex)
		}
	}
	r := newResult(KindSubGraph, StatusNoEdge)
	for _, p := range q.Pattern.Pairs() {
		if edge, ok := g.Edge(p.From, p.To); ok {
			r.Status = StatusOK
			r.Weight += edge.Weight
		}
	}
	return r
}
