package query

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

func mustGraph(t *testing.T, triples ...graph.Triple) *graph.Graph {
	t.Helper()
	g, err := graph.Build(triples)
	if err != nil {
		t.Fatalf("graph.Build failed: %v", err)
	}
	return g
}

func randomGraph(t *testing.T, seed int64, vertices, edges int) *graph.Graph {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	triples := make([]graph.Triple, 0, edges)
	for i := 0; i < edges; i++ {
		triples = append(triples, graph.Triple{
			From:   fmt.Sprintf("v%d", rng.Intn(vertices)),
			To:     fmt.Sprintf("v%d", rng.Intn(vertices)),
			Weight: int64(1 + rng.Intn(20)),
		})
	}
	return mustGraph(t, triples...)
}

func mustSummary(t *testing.T, g *graph.Graph, sketches, bins int, seed int64) *summary.Summary {
	t.Helper()
	s, err := summary.Build(context.Background(), g, summary.Options{Sketches: sketches, Bins: bins},
		rand.New(rand.NewSource(seed)), zerolog.Nop())
	if err != nil {
		t.Fatalf("summary.Build failed: %v", err)
	}
	return s
}

func chain(t *testing.T) *graph.Graph {
	return mustGraph(t,
		graph.Triple{From: "A", To: "B", Weight: 10},
		graph.Triple{From: "B", To: "C", Weight: 5},
		graph.Triple{From: "C", To: "D", Weight: 2},
	)
}

// TestChainScenario runs the chain A->B->C->D with two bins, on seeds that
// put B and C into the same bin in every sketch.
func TestChainScenario(t *testing.T) {
	g := chain(t)

	collided := 0
	for seed := int64(0); seed < 200 && collided < 5; seed++ {
		s := mustSummary(t, g, 3, 2, seed)
		shared := true
		for _, sk := range s.Sketches() {
			if sk.Bin("B") != sk.Bin("C") {
				shared = false
			}
		}
		if !shared {
			continue
		}
		collided++
		e := NewEngine(s)

		approx, exact, err := e.Compare(NewEdgeQuery("A", "B"))
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if exact.Status != StatusOK || exact.Weight != 10 {
			t.Errorf("seed %d: exact edge A->B = %v, want 10", seed, exact)
		}
		if approx.Status != StatusOK || approx.Weight < 10 {
			t.Errorf("seed %d: summary edge A->B = %v, want >= 10", seed, approx)
		}

		approx, exact, err = e.Compare(NewPathQuery("A", "D"))
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if !exact.Reachable || !approx.Reachable {
			t.Errorf("seed %d: path A->D exact=%v summary=%v, want both true", seed, exact, approx)
		}
	}
	if collided == 0 {
		t.Fatal("no seed placed B and C into one bin in every sketch")
	}
}

func TestSummaryNeverUnderestimates(t *testing.T) {
	g := randomGraph(t, 11, 60, 300)
	e := NewEngine(mustSummary(t, g, 4, 7, 3))

	for _, edge := range g.Edges() {
		q := NewEdgeQuery(edge.From.Label(), edge.To.Label())
		r, err := e.ExecuteOnSummary(q)
		if err != nil {
			t.Fatalf("ExecuteOnSummary failed: %v", err)
		}
		if !r.Defined() || r.Weight < edge.Weight {
			t.Errorf("%s: summary %v below exact %d", q, r, edge.Weight)
		}
	}

	for _, v := range g.Vertices() {
		for _, d := range graph.Directions {
			r, err := e.ExecuteOnSummary(NewNodeQuery(v.Label(), d))
			if err != nil {
				t.Fatalf("ExecuteOnSummary failed: %v", err)
			}
			if r.Weight < v.Weight(d) {
				t.Errorf("node %s %s: summary %d below exact %d", v.Label(), d, r.Weight, v.Weight(d))
			}
			if r.Bin < 0 || r.Sketch < 0 {
				t.Errorf("node %s %s: missing bin or sketch: %+v", v.Label(), d, r)
			}
		}
	}
}

func mustSubGraph(t *testing.T, pairs ...graph.Pair) SubGraphQuery {
	t.Helper()
	q, err := NewSubGraphQuery(pairs...)
	if err != nil {
		t.Fatalf("NewSubGraphQuery failed: %v", err)
	}
	return q
}

// TestMoreSketchesNeverLoosenEstimates checks every weighted query kind on
// every prefix: the estimate never rises with k and never drops below the
// exact answer.
func TestMoreSketchesNeverLoosenEstimates(t *testing.T) {
	g := randomGraph(t, 12, 80, 400)
	full := mustSummary(t, g, 8, 9, 21)

	engines := make([]*Engine, full.Len())
	for k := 1; k <= full.Len(); k++ {
		prefix, err := full.Prefix(k)
		if err != nil {
			t.Fatalf("Prefix(%d) failed: %v", k, err)
		}
		engines[k-1] = NewEngine(prefix)
	}

	var queries []Query
	edges := g.Edges()
	for i, edge := range edges {
		queries = append(queries, NewEdgeQuery(edge.From.Label(), edge.To.Label()))
		next := edges[(i+7)%len(edges)]
		queries = append(queries, mustSubGraph(t, edge.Key(), next.Key()))
	}
	for _, v := range g.Vertices() {
		for _, d := range graph.Directions {
			queries = append(queries, NewNodeQuery(v.Label(), d))
		}
	}

	for _, q := range queries {
		exact, err := engines[0].ExecuteOnOriginal(q)
		if err != nil {
			t.Fatalf("ExecuteOnOriginal failed: %v", err)
		}
		if !exact.Defined() {
			t.Fatalf("%s: exact answer undefined: %v", q, exact)
		}

		var prev Result
		for k, e := range engines {
			cur, err := e.ExecuteOnSummary(q)
			if err != nil {
				t.Fatalf("ExecuteOnSummary failed: %v", err)
			}
			if !cur.Defined() {
				t.Fatalf("%s: k=%d summary answer undefined: %v", q, k+1, cur)
			}
			if cur.Weight < exact.Weight {
				t.Errorf("%s: k=%d estimate %d below exact %d", q, k+1, cur.Weight, exact.Weight)
			}
			if k > 0 && cur.Weight > prev.Weight {
				t.Errorf("%s: k=%d estimate %d exceeds k=%d estimate %d", q, k+1, cur.Weight, k, prev.Weight)
			}
			prev = cur
		}
	}
}

func TestReachabilityHasNoFalseNegatives(t *testing.T) {
	g := randomGraph(t, 13, 40, 60)

	for _, k := range []int{1, 3, 6} {
		e := NewEngine(mustSummary(t, g, k, 5, int64(k)))
		for _, from := range g.Labels() {
			for _, to := range g.ReachableFrom(from) {
				r, err := e.ExecuteOnSummary(NewPathQuery(from, to))
				if err != nil {
					t.Fatalf("ExecuteOnSummary failed: %v", err)
				}
				if !r.Reachable {
					t.Fatalf("k=%d: %s reaches %s exactly but summary says no", k, from, to)
				}
			}
		}
	}
}

func TestFalsePositivesShrinkWithSketches(t *testing.T) {
	g := randomGraph(t, 14, 120, 90)
	full := mustSummary(t, g, 9, 16, 8)

	var negatives []PathQuery
	for _, from := range g.Labels() {
		for _, to := range g.Labels() {
			q := NewPathQuery(from, to)
			if r := pathOnGraph(g, q); !r.Reachable {
				negatives = append(negatives, q)
			}
		}
	}
	if len(negatives) == 0 {
		t.Fatal("expected unreachable pairs in a sparse graph")
	}

	prevRate := 2.0
	for k := 1; k <= full.Len(); k++ {
		prefix, _ := full.Prefix(k)
		e := NewEngine(prefix)
		fp := 0
		for _, q := range negatives {
			if e.pathOnSummary(q).Reachable {
				fp++
			}
		}
		rate := float64(fp) / float64(len(negatives))
		if rate > prevRate {
			t.Errorf("false positive rate rose from %.4f to %.4f at k=%d", prevRate, rate, k)
		}
		prevRate = rate
	}
}

func TestUnknownVertices(t *testing.T) {
	e := NewEngine(mustSummary(t, chain(t), 2, 4, 1))

	tests := []struct {
		name string
		q    Query
	}{
		{name: "edge", q: NewEdgeQuery("A", "Z")},
		{name: "node", q: NewNodeQuery("Z", graph.Out)},
		{name: "path", q: NewPathQuery("Z", "A")},
		{name: "subgraph with one unknown label", q: mustSubGraph(t, graph.Pair{From: "A", To: "Z"})},
		{name: "subgraph mixing known pairs", q: mustSubGraph(t, graph.Pair{From: "A", To: "B"}, graph.Pair{From: "X", To: "Y"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approx, exact, err := e.Compare(tt.q)
			if err != nil {
				t.Fatalf("Compare failed: %v", err)
			}
			if approx.Status != StatusUnknownVertex || exact.Status != StatusUnknownVertex {
				t.Errorf("Expected unknown_vertex on both sides, got %s / %s", approx.Status, exact.Status)
			}
			if !approx.Matches(exact) {
				t.Error("two undefined results should match")
			}
		})
	}
}

func TestAbsentEdgeIsNotZero(t *testing.T) {
	g := mustGraph(t,
		graph.Triple{From: "A", To: "B", Weight: 0},
		graph.Triple{From: "C", To: "D", Weight: 4},
	)
	e := NewEngine(mustSummary(t, g, 3, 64, 2))

	r, err := e.ExecuteOnOriginal(NewEdgeQuery("A", "B"))
	if err != nil {
		t.Fatalf("ExecuteOnOriginal failed: %v", err)
	}
	if r.Status != StatusOK || r.Weight != 0 {
		t.Errorf("zero-weight edge should be defined 0, got %v", r)
	}

	r, _ = e.ExecuteOnOriginal(NewEdgeQuery("B", "A"))
	if r.Status != StatusNoEdge {
		t.Errorf("missing edge should be no_edge, got %v", r)
	}

	r, _ = e.ExecuteOnSummary(NewEdgeQuery("A", "B"))
	if !r.Defined() {
		t.Errorf("summary should hold evidence for A->B, got %v", r)
	}
}

// collisionFree searches seeds for a summary in which every vertex owns a
// bin of its own in every sketch.
func collisionFree(t *testing.T, g *graph.Graph, sketches, bins int) *summary.Summary {
	t.Helper()
	for seed := int64(0); seed < 100; seed++ {
		s := mustSummary(t, g, sketches, bins, seed)
		ok := true
		for _, sk := range s.Sketches() {
			if len(sk.OccupiedBins()) != g.NumVertices() {
				ok = false
			}
		}
		if ok {
			return s
		}
	}
	t.Fatal("no collision-free summary found")
	return nil
}

func TestSubGraphZeroVersusNoEvidence(t *testing.T) {
	g := mustGraph(t,
		graph.Triple{From: "A", To: "B", Weight: 0},
		graph.Triple{From: "B", To: "C", Weight: 0},
	)
	e := NewEngine(collisionFree(t, g, 3, 256))

	zero := mustSubGraph(t, graph.Pair{From: "A", To: "B"}, graph.Pair{From: "B", To: "C"})
	approx, exact, err := e.Compare(zero)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if exact.Status != StatusOK || exact.Weight != 0 {
		t.Errorf("exact zero-weight pattern = %v, want ok 0", exact)
	}
	if approx.Status != StatusOK || approx.Weight != 0 {
		t.Errorf("summary zero-weight pattern = %v, want ok 0", approx)
	}

	// known labels, no edge between them, and no colliding cell
	unmatched := mustSubGraph(t, graph.Pair{From: "C", To: "A"}, graph.Pair{From: "B", To: "A"})
	approx, exact, err = e.Compare(unmatched)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if exact.Status != StatusNoEdge {
		t.Errorf("exact unmatched pattern = %v, want no_edge", exact)
	}
	if approx.Status != StatusNoEvidence {
		t.Errorf("summary unmatched pattern = %v, want no_evidence", approx)
	}
	if !approx.Matches(exact) {
		t.Error("two undefined results should match")
	}
}

func TestSubGraphSumsPairs(t *testing.T) {
	g := chain(t)
	e := NewEngine(mustSummary(t, g, 4, 16, 6))

	q, _ := NewSubGraphQuery(
		graph.Pair{From: "A", To: "B"},
		graph.Pair{From: "C", To: "D"},
		graph.Pair{From: "A", To: "B"},
		graph.Pair{From: "D", To: "A"},
	)
	if q.Pattern.Len() != 3 {
		t.Fatalf("Expected duplicate pair to collapse, got %s", q.Pattern)
	}

	approx, exact, err := e.Compare(q)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if exact.Weight != 12 {
		t.Errorf("Expected exact sum 12, got %v", exact)
	}
	if approx.Weight < 12 {
		t.Errorf("Expected summary sum >= 12, got %v", approx)
	}
}

func TestExecuteRejectsInvalidQueries(t *testing.T) {
	e := NewEngine(mustSummary(t, chain(t), 1, 2, 1))

	if _, err := e.ExecuteOnSummary(nil); !errors.Is(err, ErrUnknownQuery) {
		t.Errorf("nil query: Expected ErrUnknownQuery, got %v", err)
	}
	if _, err := e.ExecuteOnOriginal(SubGraphQuery{}); !errors.Is(err, ErrEmptyPattern) {
		t.Errorf("empty pattern: Expected ErrEmptyPattern, got %v", err)
	}
	if _, err := NewSubGraphQuery(); !errors.Is(err, ErrEmptyPattern) {
		t.Errorf("NewSubGraphQuery(): Expected ErrEmptyPattern, got %v", err)
	}
}

func TestResultMatches(t *testing.T) {
	tests := []struct {
		name string
		a, b Result
		want bool
	}{
		{"equal weights", Result{Kind: KindEdge, Weight: 3}, Result{Kind: KindEdge, Weight: 3}, true},
		{"different weights", Result{Kind: KindEdge, Weight: 3}, Result{Kind: KindEdge, Weight: 4}, false},
		{"both undefined", Result{Status: StatusNoEvidence}, Result{Status: StatusNoEdge}, true},
		{"defined vs undefined", Result{Kind: KindEdge}, Result{Kind: KindEdge, Status: StatusNoEdge}, false},
		{"path", Result{Kind: KindPath, Reachable: true}, Result{Kind: KindPath}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Matches(tt.b); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k, got, err)
		}
	}
	if _, err := ParseKind("triangle"); !errors.Is(err, ErrUnknownQuery) {
		t.Errorf("Expected ErrUnknownQuery, got %v", err)
	}
}
