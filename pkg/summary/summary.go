// Package summary builds an ensemble of independently hashed sketches over
// one graph and merges their answers by elementwise minimum.
package summary

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/hashing"
	"github.com/gilchrisn/graph-summary-service/pkg/sketch"
)

// DefaultMaxCells caps k*bins² unless Options.MaxCells overrides it
// (64M cells, 512MB of int64 weights).
const DefaultMaxCells int64 = 1 << 26

// ConfigurationError reports an invalid build parameter.
type ConfigurationError = hashing.ConfigurationError

// ErrConfiguration is the errors.Is target for ConfigurationError.
var ErrConfiguration = hashing.ErrConfiguration

// Options controls summary construction.
type Options struct {
	Sketches int   // ensemble size k
	Bins     int   // matrix side length shared by every sketch
	Workers  int   // parallel sketch builds, NumCPU when <= 0
	MaxCells int64 // memory guard on k*bins², DefaultMaxCells when 0, disabled when < 0
}

// Summary is immutable once Build returns.
type Summary struct {
	graph    *graph.Graph
	sketches []*sketch.Sketch
	bins     int
}

// Build draws one seed per sketch from rng, then builds all sketches in
// parallel. Seeds are drawn before any work starts, so the same rng state
// always yields the same summary and a k-sketch summary is a prefix of the
// k+1-sketch summary built from the same state.
func Build(ctx context.Context, g *graph.Graph, opts Options, rng *rand.Rand, logger zerolog.Logger) (*Summary, error) {
	if g == nil {
		return nil, &ConfigurationError{Field: "graph", Msg: "graph is nil"}
	}
	if rng == nil {
		return nil, &ConfigurationError{Field: "rng", Msg: "a randomness source is required"}
	}
	if err := validate(opts); err != nil {
		return nil, err
	}

	start := time.Now()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if g.NumVertices() > 0 && opts.Bins >= g.NumVertices() {
		logger.Warn().
			Int("bins", opts.Bins).
			Int("vertices", g.NumVertices()).
			Msg("Bin count is not below vertex count, summary will not compress the graph")
	}

	families, err := drawFamilies(rng, opts.Sketches, opts.Bins)
	if err != nil {
		return nil, err
	}

	sketches := make([]*sketch.Sketch, len(families))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, f := range families {
		i, f := i, f
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			sketchStart := time.Now()
			sketches[i] = sketch.Build(g, f)
			logger.Debug().
				Int("sketch", i).
				Uint64("seed", f.Seed).
				Int("present_cells", sketches[i].PresentCells()).
				Dur("duration", time.Since(sketchStart)).
				Msg("Sketch built")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("sketch construction failed: %w", err)
	}

	s := &Summary{graph: g, sketches: sketches, bins: opts.Bins}

	logger.Info().
		Int("sketches", opts.Sketches).
		Int("bins", opts.Bins).
		Int("vertices", g.NumVertices()).
		Int("edges", g.NumEdges()).
		Int64("cells", s.Cells()).
		Dur("duration", time.Since(start)).
		Msg("Summary built")

	return s, nil
}

func validate(opts Options) error {
	if opts.Sketches <= 0 {
		return &ConfigurationError{Field: "sketches", Msg: "must be a positive integer"}
	}
	if opts.Bins <= 0 {
		return &ConfigurationError{Field: "bins", Msg: "must be a positive integer"}
	}

	limit := opts.MaxCells
	if limit == 0 {
		limit = DefaultMaxCells
	}
	if limit > 0 {
		// compare without forming k*bins², which may overflow
		bins := int64(opts.Bins)
		perSketch := limit / int64(opts.Sketches)
		if bins > perSketch/bins {
			return &ConfigurationError{
				Field: "bins",
				Msg: fmt.Sprintf("%d sketches of %d x %d cells exceed the limit of %d cells",
					opts.Sketches, opts.Bins, opts.Bins, limit),
			}
		}
	}
	return nil
}

func drawFamilies(rng *rand.Rand, k, bins int) ([]hashing.Family, error) {
	seen := make(map[uint64]struct{}, k)
	families := make([]hashing.Family, 0, k)
	for i := 0; i < k; i++ {
		seed := rng.Uint64()
		for _, dup := seen[seed]; dup; _, dup = seen[seed] {
			seed = rng.Uint64()
		}
		seen[seed] = struct{}{}

		f, err := hashing.New(seed, uint64(i), bins)
		if err != nil {
			return nil, err
		}
		families = append(families, f)
	}
	return families, nil
}

// Graph returns the exact graph the summary was built from.
func (s *Summary) Graph() *graph.Graph { return s.graph }

// Sketches returns the ensemble in build order.
func (s *Summary) Sketches() []*sketch.Sketch { return s.sketches }

// Sketch returns the i-th sketch.
func (s *Summary) Sketch(i int) (*sketch.Sketch, bool) {
	if i < 0 || i >= len(s.sketches) {
		return nil, false
	}
	return s.sketches[i], true
}

// Len is the ensemble size.
func (s *Summary) Len() int { return len(s.sketches) }

// Bins is the shared matrix side length.
func (s *Summary) Bins() int { return s.bins }

// Cells is k*bins², the number of matrix cells held in memory.
func (s *Summary) Cells() int64 {
	return int64(len(s.sketches)) * int64(s.bins) * int64(s.bins)
}

// Prefix returns a summary over the first n sketches. It shares sketches
// with s.
func (s *Summary) Prefix(n int) (*Summary, error) {
	if n <= 0 || n > len(s.sketches) {
		return nil, &ConfigurationError{
			Field: "sketches",
			Msg:   fmt.Sprintf("prefix %d outside [1, %d]", n, len(s.sketches)),
		}
	}
	return &Summary{graph: s.graph, sketches: s.sketches[:n], bins: s.bins}, nil
}

// BinWeight is the merged aggregate weight of one bin.
type BinWeight struct {
	Bin    int   `json:"bin" yaml:"bin"`
	Weight int64 `json:"weight" yaml:"weight"`
}

// MergedRanking returns, for every bin index, the minimum aggregate weight
// in direction d across all sketches. The result is indexed by bin.
func (s *Summary) MergedRanking(d graph.Direction) []BinWeight {
	out := make([]BinWeight, s.bins)
	for bin := range out {
		out[bin].Bin = bin
	}
	for i, sk := range s.sketches {
		weights := sk.Weights(d)
		for bin, w := range weights {
			if i == 0 || w < out[bin].Weight {
				out[bin].Weight = w
			}
		}
	}
	return out
}

// TopBins returns the k heaviest bins of MergedRanking, ties broken by bin.
func (s *Summary) TopBins(d graph.Direction, k int) []BinWeight {
	ranked := s.MergedRanking(d)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Weight != ranked[j].Weight {
			return ranked[i].Weight > ranked[j].Weight
		}
		return ranked[i].Bin < ranked[j].Bin
	})
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
