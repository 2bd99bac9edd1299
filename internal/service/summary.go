package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/ingest"
	"github.com/gilchrisn/graph-summary-service/pkg/query"
	"github.com/gilchrisn/graph-summary-service/pkg/report"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

// ErrNotFound is returned for an unknown summary ID.
var ErrNotFound = errors.New("summary not found")

// BuildRequest describes a summary to build from an edge list.
type BuildRequest struct {
	Name    string
	Ingest  ingest.Options
	Summary summary.Options
	Seed    int64
}

// Entry is a stored summary. It is immutable after creation.
type Entry struct {
	ID            string
	Name          string
	Seed          int64
	CreatedAt     time.Time
	BuildDuration time.Duration
	Summary       *summary.Summary
	Engine        *query.Engine
}

// Info is the JSON view of an Entry.
type Info struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Vertices    int       `json:"vertices"`
	Edges       int       `json:"edges"`
	TotalWeight int64     `json:"total_weight"`
	Sketches    int       `json:"sketches"`
	Bins        int       `json:"bins"`
	Cells       int64     `json:"cells"`
	Seed        int64     `json:"seed"`
	CreatedAt   time.Time `json:"created_at"`
	BuildMillis int64     `json:"build_ms"`
}

func (e *Entry) Info() Info {
	g := e.Summary.Graph()
	return Info{
		ID:          e.ID,
		Name:        e.Name,
		Vertices:    g.NumVertices(),
		Edges:       g.NumEdges(),
		TotalWeight: g.TotalWeight(),
		Sketches:    e.Summary.Len(),
		Bins:        e.Summary.Bins(),
		Cells:       e.Summary.Cells(),
		Seed:        e.Seed,
		CreatedAt:   e.CreatedAt,
		BuildMillis: e.BuildDuration.Milliseconds(),
	}
}

// SummaryService keeps built summaries in memory, keyed by ID.
type SummaryService struct {
	summaries map[string]*Entry
	mutex     sync.RWMutex
	logger    zerolog.Logger
}

// NewSummaryService creates an empty registry.
func NewSummaryService(logger zerolog.Logger) *SummaryService {
	return &SummaryService{
		summaries: make(map[string]*Entry),
		logger:    logger,
	}
}

// Create reads an edge list from r, builds its summary and stores it.
// The build runs without holding the registry lock.
func (s *SummaryService) Create(ctx context.Context, r io.Reader, req BuildRequest) (*Entry, error) {
	g, err := ingest.Read(r, req.Ingest)
	if err != nil {
		return nil, fmt.Errorf("failed to read edge list: %w", err)
	}
	return s.CreateFromGraph(ctx, g, req)
}

// CreateFromGraph builds and stores a summary over an existing graph.
func (s *SummaryService) CreateFromGraph(ctx context.Context, g *graph.Graph, req BuildRequest) (*Entry, error) {
	id := uuid.New().String()
	name := req.Name
	if name == "" {
		name = "summary-" + id[:8]
	}

	s.logger.Info().
		Str("summary_id", id).
		Str("name", name).
		Int("sketches", req.Summary.Sketches).
		Int("bins", req.Summary.Bins).
		Int64("seed", req.Seed).
		Msg("Starting summary build")

	start := time.Now()
	sum, err := summary.Build(ctx, g, req.Summary, rand.New(rand.NewSource(req.Seed)),
		s.logger.With().Str("summary_id", id).Logger())
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:            id,
		Name:          name,
		Seed:          req.Seed,
		CreatedAt:     time.Now(),
		BuildDuration: time.Since(start),
		Summary:       sum,
		Engine:        query.NewEngine(sum),
	}

	s.mutex.Lock()
	s.summaries[id] = entry
	s.mutex.Unlock()

	s.logger.Info().
		Str("summary_id", id).
		Int("vertices", g.NumVertices()).
		Int("edges", g.NumEdges()).
		Dur("duration", entry.BuildDuration).
		Msg("Summary stored")

	return entry, nil
}

// Get retrieves a summary by ID
func (s *SummaryService) Get(id string) (*Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, exists := s.summaries[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, nil
}

// List returns every summary, oldest first.
func (s *SummaryService) List() []Info {
	s.mutex.RLock()
	infos := make([]Info, 0, len(s.summaries))
	for _, entry := range s.summaries {
		infos = append(infos, entry.Info())
	}
	s.mutex.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Delete removes a summary.
func (s *SummaryService) Delete(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.summaries[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.summaries, id)

	s.logger.Info().Str("summary_id", id).Msg("Summary deleted")
	return nil
}

// Query answers q on both the summary and the exact graph.
func (s *SummaryService) Query(id string, q query.Query) (approx, exact query.Result, err error) {
	entry, err := s.Get(id)
	if err != nil {
		return query.Result{}, query.Result{}, err
	}
	return entry.Engine.Compare(q)
}

// Measure runs one accuracy metric. Each call owns its rng, so concurrent
// measurements on the same summary do not interfere.
func (s *SummaryService) Measure(id string, m query.Metric, k query.Kind, n int, seed int64, opts query.BenchmarkOptions) (query.Measurement, error) {
	entry, err := s.Get(id)
	if err != nil {
		return query.Measurement{}, err
	}
	bench := query.NewBenchmark(entry.Summary, rand.New(rand.NewSource(seed)), opts)
	return bench.Run(m, k, n)
}

// Sweep measures every sketch prefix of a stored summary.
func (s *SummaryService) Sweep(ctx context.Context, id string, opts report.Options, workers int) (*report.Report, error) {
	entry, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	r, err := report.Sweep(ctx, entry.Summary, opts, workers, s.logger.With().Str("summary_id", id).Logger())
	if err != nil {
		return nil, err
	}
	r.Title = entry.Name + ": " + r.Title
	return r, nil
}
