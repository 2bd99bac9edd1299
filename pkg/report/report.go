// Package report runs batches of accuracy measurements over summaries and
// renders the results as YAML, JSON or an aligned text table.
package report

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/query"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

// Probe is one metric on one query kind.
type Probe struct {
	Metric query.Metric `json:"metric" yaml:"metric"`
	Kind   query.Kind   `json:"kind" yaml:"kind"`
}

// DefaultPlan measures every supported metric and kind combination.
var DefaultPlan = []Probe{
	{query.MetricPrecision, query.KindEdge},
	{query.MetricPrecision, query.KindNode},
	{query.MetricPrecision, query.KindPath},
	{query.MetricPrecision, query.KindSubGraph},
	{query.MetricRelativeError, query.KindEdge},
	{query.MetricRelativeError, query.KindNode},
	{query.MetricRelativeError, query.KindSubGraph},
	{query.MetricTopK, query.KindEdge},
	{query.MetricTopK, query.KindNode},
	{query.MetricFalsePositiveRate, query.KindPath},
}

// Failure records a probe that produced no value, such as a relative error
// where every exact answer was zero.
type Failure struct {
	Probe `yaml:",inline"`
	Error string `json:"error" yaml:"error"`
}

// Row holds the measurements of one summary configuration.
type Row struct {
	Sketches     int                 `json:"sketches" yaml:"sketches"`
	Bins         int                 `json:"bins" yaml:"bins"`
	Cells        int64               `json:"cells" yaml:"cells"`
	Measurements []query.Measurement `json:"measurements" yaml:"measurements"`
	Failures     []Failure           `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Value returns the measurement for p, if it succeeded.
func (r Row) Value(p Probe) (float64, bool) {
	for _, m := range r.Measurements {
		if m.Metric == p.Metric && m.Kind == p.Kind {
			return m.Value, true
		}
	}
	return 0, false
}

// Report is a titled set of rows over one graph.
type Report struct {
	Title       string    `json:"title" yaml:"title"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Vertices    int       `json:"vertices" yaml:"vertices"`
	Edges       int       `json:"edges" yaml:"edges"`
	TotalWeight int64     `json:"total_weight" yaml:"total_weight"`
	Seed        int64     `json:"seed" yaml:"seed"`
	Samples     int       `json:"samples" yaml:"samples"`
	TopK        int       `json:"top_k" yaml:"top_k"`
	Plan        []Probe   `json:"plan" yaml:"plan"`
	Rows        []Row     `json:"rows" yaml:"rows"`
}

// Options controls which probes run and how many samples each draws.
type Options struct {
	Plan      []Probe
	Samples   int
	TopK      int
	Seed      int64
	Benchmark query.BenchmarkOptions
}

func (o Options) plan() []Probe {
	if len(o.Plan) == 0 {
		return DefaultPlan
	}
	return o.Plan
}

// Measure runs every probe of opts against s with an rng seeded from
// opts.Seed. Probes that fail with a sampling error are recorded as
// failures; any other error aborts.
func Measure(s *summary.Summary, opts Options) (Row, error) {
	if opts.Samples <= 0 || opts.TopK <= 0 {
		return Row{}, query.ErrNoSamples
	}
	bench := query.NewBenchmark(s, rand.New(rand.NewSource(opts.Seed)), opts.Benchmark)

	row := Row{Sketches: s.Len(), Bins: s.Bins(), Cells: s.Cells()}
	for _, p := range opts.plan() {
		n := opts.Samples
		if p.Metric == query.MetricTopK {
			n = opts.TopK
		}
		m, err := bench.Run(p.Metric, p.Kind, n)
		if err != nil {
			if !recoverable(err) {
				return Row{}, fmt.Errorf("%s %s: %w", p.Metric, p.Kind, err)
			}
			row.Failures = append(row.Failures, Failure{Probe: p, Error: err.Error()})
			continue
		}
		row.Measurements = append(row.Measurements, m)
	}
	return row, nil
}

func recoverable(err error) bool {
	return errors.Is(err, query.ErrNoDefinedSamples) ||
		errors.Is(err, query.ErrGraphTooSmall) ||
		errors.Is(err, query.ErrUnsupportedMetric)
}

// New starts a report over g.
func New(title string, g *graph.Graph, opts Options) *Report {
	return &Report{
		Title:       title,
		GeneratedAt: time.Now().UTC(),
		Vertices:    g.NumVertices(),
		Edges:       g.NumEdges(),
		TotalWeight: g.TotalWeight(),
		Seed:        opts.Seed,
		Samples:     opts.Samples,
		TopK:        opts.TopK,
		Plan:        opts.plan(),
	}
}

// Single measures one summary.
func Single(s *summary.Summary, opts Options) (*Report, error) {
	row, err := Measure(s, opts)
	if err != nil {
		return nil, err
	}
	r := New(fmt.Sprintf("%d sketches x %d bins", s.Len(), s.Bins()), s.Graph(), opts)
	r.Rows = []Row{row}
	return r, nil
}

// Sweep measures every prefix of s, from one sketch up to s.Len(). Each
// prefix is measured with the same sampling seed, so rows differ only in
// the number of sketches. Prefixes are measured concurrently.
func Sweep(ctx context.Context, s *summary.Summary, opts Options, workers int, logger zerolog.Logger) (*Report, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	start := time.Now()
	rows := make([]Row, s.Len())

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for k := 1; k <= s.Len(); k++ {
		k := k
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			prefix, err := s.Prefix(k)
			if err != nil {
				return err
			}
			row, err := Measure(prefix, opts)
			if err != nil {
				return fmt.Errorf("sweep at %d sketches: %w", k, err)
			}
			rows[k-1] = row
			logger.Debug().
				Int("sketches", k).
				Int("measurements", len(row.Measurements)).
				Int("failures", len(row.Failures)).
				Msg("Sweep step finished")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	r := New(fmt.Sprintf("sketch sweep 1..%d x %d bins", s.Len(), s.Bins()), s.Graph(), opts)
	r.Rows = rows

	logger.Info().
		Int("steps", len(rows)).
		Int("bins", s.Bins()).
		Dur("duration", time.Since(start)).
		Msg("Sweep completed")
	return r, nil
}
