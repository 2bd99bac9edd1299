package query

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

const (
	DefaultMaxPatternSize = 10

	// negative pairs are rare in dense graphs; stop looking after this many
	// draws per requested sample
	fpAttemptFactor = 20
)

// BenchmarkOptions tunes how samples are drawn.
type BenchmarkOptions struct {
	// MaxPatternSize bounds the number of pairs in sampled subgraph
	// patterns. DefaultMaxPatternSize when <= 0.
	MaxPatternSize int
	// Direction is used by node relative error and top-k.
	Direction graph.Direction
}

// Benchmark measures summary accuracy by sampling random queries and
// comparing both sides. It owns its rng and is not safe for concurrent use.
type Benchmark struct {
	engine *Engine
	rng    *rand.Rand
	opts   BenchmarkOptions
	labels []string
}

func NewBenchmark(s *summary.Summary, rng *rand.Rand, opts BenchmarkOptions) *Benchmark {
	if opts.MaxPatternSize <= 0 {
		opts.MaxPatternSize = DefaultMaxPatternSize
	}
	return &Benchmark{
		engine: NewEngine(s),
		rng:    rng,
		opts:   opts,
		labels: s.Graph().Labels(),
	}
}

// Engine returns the engine the benchmark queries through.
func (b *Benchmark) Engine() *Engine { return b.engine }

// Precision is the fraction of n random queries of kind k whose summary
// answer matches the exact answer under Result.Matches.
func (b *Benchmark) Precision(k Kind, n int) (float64, error) {
	if n <= 0 {
		return 0, ErrNoSamples
	}
	if err := b.requireVertices(k); err != nil {
		return 0, err
	}

	matches := 0
	for i := 0; i < n; i++ {
		q, err := b.randomQuery(k)
		if err != nil {
			return 0, err
		}
		approx, exact, err := b.engine.Compare(q)
		if err != nil {
			return 0, err
		}
		if approx.Matches(exact) {
			matches++
		}
	}
	return float64(matches) / float64(n), nil
}

// RelativeError summarises |approx-exact|/exact over a set of samples.
type RelativeError struct {
	Mean     float64 `json:"mean" yaml:"mean"`
	StdDev   float64 `json:"stddev" yaml:"stddev"`
	Samples  int     `json:"samples" yaml:"samples"`
	Excluded int     `json:"excluded" yaml:"excluded"`
}

// AverageRelativeError draws n queries anchored on existing edges so the
// exact answer is defined. Samples whose exact answer is zero, or whose
// summary answer is undefined, are excluded from the mean and counted in
// Excluded. Path queries have no magnitude and are rejected.
func (b *Benchmark) AverageRelativeError(k Kind, n int) (RelativeError, error) {
	if n <= 0 {
		return RelativeError{}, ErrNoSamples
	}
	if k == KindPath {
		return RelativeError{}, fmt.Errorf("%w: average relative error of %s", ErrUnsupportedMetric, k)
	}
	g := b.engine.Graph()
	if g.NumEdges() == 0 {
		return RelativeError{}, fmt.Errorf("%w: no edges", ErrGraphTooSmall)
	}

	errs := make([]float64, 0, n)
	excluded := 0
	for i := 0; i < n; i++ {
		q, err := b.anchoredQuery(k)
		if err != nil {
			return RelativeError{}, err
		}
		approx, exact, err := b.engine.Compare(q)
		if err != nil {
			return RelativeError{}, err
		}
		if !approx.Defined() || !exact.Defined() || exact.Weight == 0 {
			excluded++
			continue
		}
		errs = append(errs, float64(approx.Weight)/float64(exact.Weight)-1)
	}

	if len(errs) == 0 {
		return RelativeError{Excluded: excluded}, ErrNoDefinedSamples
	}
	re := RelativeError{Samples: len(errs), Excluded: excluded}
	if len(errs) == 1 {
		re.Mean = errs[0]
		return re, nil
	}
	re.Mean, re.StdDev = stat.MeanStdDev(errs, nil)
	return re, nil
}

// TopKOverlap compares the k heaviest entities of both sides and returns
// |overlap|/k. k is clamped to the number of available entities.
//
// For edges, every exact edge is estimated on the summary and both rankings
// are compared by label pair. For nodes, the exact top-k vertices are mapped
// to the bin their node query resolves to, and the summary's top-k merged
// bins are counted against that set.
func (b *Benchmark) TopKOverlap(k Kind, topK int) (float64, error) {
	if topK <= 0 {
		return 0, ErrNoSamples
	}
	switch k {
	case KindEdge:
		return b.edgeTopK(topK)
	case KindNode:
		return b.nodeTopK(topK)
	default:
		return 0, fmt.Errorf("%w: top-k of %s", ErrUnsupportedMetric, k)
	}
}

func (b *Benchmark) edgeTopK(topK int) (float64, error) {
	g := b.engine.Graph()
	exactRanked := g.RankEdges()
	if len(exactRanked) == 0 {
		return 0, fmt.Errorf("%w: no edges", ErrGraphTooSmall)
	}
	if topK > len(exactRanked) {
		topK = len(exactRanked)
	}

	type estimate struct {
		pair   graph.Pair
		weight int64
	}
	estimates := make([]estimate, 0, len(exactRanked))
	for _, e := range exactRanked {
		r := b.engine.edgeOnSummary(EdgeQuery{From: e.From.Label(), To: e.To.Label()})
		if !r.Defined() {
			continue
		}
		estimates = append(estimates, estimate{pair: e.Key(), weight: r.Weight})
	}
	sort.SliceStable(estimates, func(i, j int) bool {
		if estimates[i].weight != estimates[j].weight {
			return estimates[i].weight > estimates[j].weight
		}
		a, c := estimates[i].pair, estimates[j].pair
		if a.From != c.From {
			return a.From < c.From
		}
		return a.To < c.To
	})

	exactTop := make(map[graph.Pair]struct{}, topK)
	for _, e := range exactRanked[:topK] {
		exactTop[e.Key()] = struct{}{}
	}
	overlap := 0
	for i := 0; i < topK && i < len(estimates); i++ {
		if _, ok := exactTop[estimates[i].pair]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(topK), nil
}

func (b *Benchmark) nodeTopK(topK int) (float64, error) {
	g := b.engine.Graph()
	s := b.engine.Summary()
	if g.NumVertices() == 0 {
		return 0, fmt.Errorf("%w: no vertices", ErrGraphTooSmall)
	}
	if topK > g.NumVertices() {
		topK = g.NumVertices()
	}
	if topK > s.Bins() {
		topK = s.Bins()
	}

	d := b.opts.Direction
	exactBins := make(map[int]struct{}, topK)
	for _, v := range g.RankVertices(d)[:topK] {
		r := b.engine.nodeOnSummary(NodeQuery{Label: v.Label(), Direction: d})
		exactBins[r.Bin] = struct{}{}
	}

	overlap := 0
	for _, bw := range s.TopBins(d, topK) {
		if _, ok := exactBins[bw.Bin]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(topK), nil
}

// FalsePositiveRate draws up to n vertex pairs that are not reachable in the
// exact graph and returns the fraction the summary reports as reachable.
// The summary never misses a real path, so only negatives are informative.
func (b *Benchmark) FalsePositiveRate(n int) (float64, error) {
	if n <= 0 {
		return 0, ErrNoSamples
	}
	if err := b.requireVertices(KindPath); err != nil {
		return 0, err
	}

	negatives, positives := 0, 0
	for attempt := 0; attempt < n*fpAttemptFactor && negatives < n; attempt++ {
		from, to := b.randomPair()
		q := PathQuery{From: from, To: to}
		exact := pathOnGraph(b.engine.Graph(), q)
		if exact.Reachable {
			continue
		}
		negatives++
		if b.engine.pathOnSummary(q).Reachable {
			positives++
		}
	}
	if negatives == 0 {
		return 0, fmt.Errorf("%w: every sampled pair is reachable", ErrNoDefinedSamples)
	}
	return float64(positives) / float64(negatives), nil
}

func (b *Benchmark) requireVertices(k Kind) error {
	need := 2
	if k == KindNode {
		need = 1
	}
	if len(b.labels) < need {
		return fmt.Errorf("%w: %s queries need %d vertices, graph has %d",
			ErrGraphTooSmall, k, need, len(b.labels))
	}
	return nil
}

// randomPair draws two distinct labels.
func (b *Benchmark) randomPair() (string, string) {
	i := b.rng.Intn(len(b.labels))
	j := b.rng.Intn(len(b.labels) - 1)
	if j >= i {
		j++
	}
	return b.labels[i], b.labels[j]
}

func (b *Benchmark) patternSize() int {
	return 1 + b.rng.Intn(b.opts.MaxPatternSize)
}

// randomQuery draws a query over uniformly chosen vertices, so most edge
// and subgraph samples land on absent pairs.
func (b *Benchmark) randomQuery(k Kind) (Query, error) {
	switch k {
	case KindEdge:
		from, to := b.randomPair()
		return EdgeQuery{From: from, To: to}, nil
	case KindNode:
		label := b.labels[b.rng.Intn(len(b.labels))]
		return NodeQuery{Label: label, Direction: graph.RandomDirection(b.rng)}, nil
	case KindPath:
		from, to := b.randomPair()
		return PathQuery{From: from, To: to}, nil
	case KindSubGraph:
		pairs := make([]graph.Pair, b.patternSize())
		for i := range pairs {
			from, to := b.randomPair()
			pairs[i] = graph.Pair{From: from, To: to}
		}
		return NewSubGraphQuery(pairs...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, k)
	}
}

// anchoredQuery draws a query built from existing edges.
func (b *Benchmark) anchoredQuery(k Kind) (Query, error) {
	edges := b.engine.Graph().Edges()
	pick := func() *graph.Edge { return edges[b.rng.Intn(len(edges))] }

	switch k {
	case KindEdge:
		e := pick()
		return EdgeQuery{From: e.From.Label(), To: e.To.Label()}, nil
	case KindNode:
		e := pick()
		d := b.opts.Direction
		v := e.From
		switch d {
		case graph.In:
			v = e.To
		case graph.Undirected:
			if b.rng.Intn(2) == 1 {
				v = e.To
			}
		}
		return NodeQuery{Label: v.Label(), Direction: d}, nil
	case KindSubGraph:
		pairs := make([]graph.Pair, b.patternSize())
		for i := range pairs {
			pairs[i] = pick().Key()
		}
		return NewSubGraphQuery(pairs...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMetric, k)
	}
}
