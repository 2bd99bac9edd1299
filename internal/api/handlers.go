package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-summary-service/internal/service"
	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/ingest"
	"github.com/gilchrisn/graph-summary-service/pkg/query"
	"github.com/gilchrisn/graph-summary-service/pkg/report"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

// Defaults fill in request parameters the client leaves out.
type Defaults struct {
	Summary        summary.Options
	Ingest         ingest.Options
	Benchmark      query.BenchmarkOptions
	Samples        int
	TopK           int
	MaxUploadBytes int64
}

// Handlers contains HTTP request handlers
type Handlers struct {
	summaries *service.SummaryService
	defaults  Defaults
	logger    zerolog.Logger
	started   time.Time
}

// NewHandlers creates new API handlers
func NewHandlers(summaries *service.SummaryService, defaults Defaults, logger zerolog.Logger) *Handlers {
	return &Handlers{
		summaries: summaries,
		defaults:  defaults,
		logger:    logger,
		started:   time.Now(),
	}
}

func (h *Handlers) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).Int("status", status).Msg(message)
	writeError(w, h.logger, status, message, err)
}

// CreateSummary builds a summary from the edge list in the request body.
// Build parameters come from the query string.
func (h *Handlers) CreateSummary(w http.ResponseWriter, r *http.Request) {
	req, err := h.buildRequest(r)
	if err != nil {
		h.fail(w, "Invalid build parameters", err)
		return
	}

	body := r.Body
	if h.defaults.MaxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.defaults.MaxUploadBytes)
	}
	defer body.Close()

	entry, err := h.summaries.Create(r.Context(), body, req)
	if err != nil {
		h.fail(w, "Summary build failed", err)
		return
	}
	writeSuccess(w, h.logger, http.StatusCreated, "Summary built successfully", entry.Info())
}

func (h *Handlers) buildRequest(r *http.Request) (service.BuildRequest, error) {
	q := r.URL.Query()
	req := service.BuildRequest{
		Name:    q.Get("name"),
		Ingest:  h.defaults.Ingest,
		Summary: h.defaults.Summary,
		Seed:    time.Now().UnixNano(),
	}

	if v := q.Get("format"); v != "" {
		format, err := ingest.ParseFormat(v)
		if err != nil {
			return req, err
		}
		req.Ingest.Format = format
	}
	if v := q.Get("delimiter"); v != "" {
		req.Ingest.Delimiter = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"sketches", &req.Summary.Sketches},
		{"bins", &req.Summary.Bins},
	}
	for _, p := range ints {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, &summary.ConfigurationError{Field: p.key, Msg: fmt.Sprintf("not an integer: %q", v)}
		}
		*p.dst = n
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, &summary.ConfigurationError{Field: "seed", Msg: fmt.Sprintf("not an integer: %q", v)}
		}
		req.Seed = seed
	}
	return req, nil
}

// ListSummaries lists all summaries
func (h *Handlers) ListSummaries(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.logger, http.StatusOK, "Summaries retrieved successfully", h.summaries.List())
}

// GetSummary retrieves a specific summary
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	entry, err := h.summaries.Get(mux.Vars(r)["summaryId"])
	if err != nil {
		h.fail(w, "Summary not found", err)
		return
	}
	writeSuccess(w, h.logger, http.StatusOK, "Summary retrieved successfully", entry.Info())
}

// DeleteSummary deletes a summary
func (h *Handlers) DeleteSummary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["summaryId"]
	if err := h.summaries.Delete(id); err != nil {
		h.fail(w, "Summary not found", err)
		return
	}
	writeSuccess(w, h.logger, http.StatusOK, "Summary deleted successfully", map[string]string{"id": id})
}

// GetSketch returns bin membership and present cells of one sketch.
func (h *Handlers) GetSketch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entry, err := h.summaries.Get(vars["summaryId"])
	if err != nil {
		h.fail(w, "Summary not found", err)
		return
	}
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		h.fail(w, "Invalid sketch index", &summary.ConfigurationError{Field: "index", Msg: err.Error()})
		return
	}
	sk, ok := entry.Summary.Sketch(index)
	if !ok {
		err := fmt.Errorf("%w: sketch %d of %d", service.ErrNotFound, index, entry.Summary.Len())
		h.fail(w, "Sketch not found", err)
		return
	}
	writeSuccess(w, h.logger, http.StatusOK, "Sketch retrieved successfully", sk.View())
}

// QueryRequest is the body of a query call. Which fields are read depends
// on Kind.
type QueryRequest struct {
	Kind      query.Kind   `json:"kind"`
	From      string       `json:"from,omitempty"`
	To        string       `json:"to,omitempty"`
	Label     string       `json:"label,omitempty"`
	Direction string       `json:"direction,omitempty"`
	Pattern   []graph.Pair `json:"pattern,omitempty"`
}

// Query converts the request into a query.
func (qr QueryRequest) Query() (query.Query, error) {
	switch qr.Kind {
	case query.KindEdge:
		return query.NewEdgeQuery(qr.From, qr.To), nil
	case query.KindNode:
		d := graph.Out
		if qr.Direction != "" {
			var err error
			if d, err = graph.ParseDirection(qr.Direction); err != nil {
				return nil, err
			}
		}
		return query.NewNodeQuery(qr.Label, d), nil
	case query.KindPath:
		return query.NewPathQuery(qr.From, qr.To), nil
	case query.KindSubGraph:
		return query.NewSubGraphQuery(qr.Pattern...)
	default:
		return nil, fmt.Errorf("%w: %s", query.ErrUnknownQuery, qr.Kind)
	}
}

// QueryResponse pairs both answers to one query.
type QueryResponse struct {
	Query    string       `json:"query"`
	Summary  query.Result `json:"summary"`
	Original query.Result `json:"original"`
	Matches  bool         `json:"matches"`
}

// RunQuery answers a query on the summary and on the exact graph.
func (h *Handlers) RunQuery(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["summaryId"]

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "Invalid query body", fmt.Errorf("%w: %v", query.ErrUnknownQuery, err))
		return
	}
	q, err := req.Query()
	if err != nil {
		h.fail(w, "Invalid query", err)
		return
	}

	approx, exact, err := h.summaries.Query(id, q)
	if err != nil {
		h.fail(w, "Query failed", err)
		return
	}
	writeSuccess(w, h.logger, http.StatusOK, "Query answered", QueryResponse{
		Query:    q.String(),
		Summary:  approx,
		Original: exact,
		Matches:  approx.Matches(exact),
	})
}

// BenchmarkRequest is the body of a benchmark call. Zero values fall back
// to the server defaults.
type BenchmarkRequest struct {
	Metric         query.Metric `json:"metric"`
	Kind           query.Kind   `json:"kind"`
	N              int          `json:"n"`
	Seed           *int64       `json:"seed,omitempty"`
	Direction      string       `json:"direction,omitempty"`
	MaxPatternSize int          `json:"max_pattern_size,omitempty"`
}

// RunBenchmark measures one accuracy metric.
func (h *Handlers) RunBenchmark(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["summaryId"]

	var req BenchmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "Invalid benchmark body", fmt.Errorf("%w: %v", query.ErrUnsupportedMetric, err))
		return
	}

	opts := h.defaults.Benchmark
	if req.MaxPatternSize > 0 {
		opts.MaxPatternSize = req.MaxPatternSize
	}
	if req.Direction != "" {
		d, err := graph.ParseDirection(req.Direction)
		if err != nil {
			h.fail(w, "Invalid direction", err)
			return
		}
		opts.Direction = d
	}
	n := req.N
	if n == 0 {
		n = h.defaults.Samples
		if req.Metric == query.MetricTopK {
			n = h.defaults.TopK
		}
	}
	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	m, err := h.summaries.Measure(id, req.Metric, req.Kind, n, seed, opts)
	if err != nil {
		h.fail(w, "Benchmark failed", err)
		return
	}
	writeSuccess(w, h.logger, http.StatusOK, "Benchmark completed", m)
}

// SweepRequest is the body of a sweep call.
type SweepRequest struct {
	Samples int    `json:"samples,omitempty"`
	TopK    int    `json:"top_k,omitempty"`
	Seed    *int64 `json:"seed,omitempty"`
}

// RunSweep measures every sketch prefix of a summary.
func (h *Handlers) RunSweep(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["summaryId"]

	var req SweepRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.fail(w, "Invalid sweep body", fmt.Errorf("%w: %v", query.ErrNoSamples, err))
			return
		}
	}

	opts := report.Options{
		Samples:   h.defaults.Samples,
		TopK:      h.defaults.TopK,
		Seed:      time.Now().UnixNano(),
		Benchmark: h.defaults.Benchmark,
	}
	if req.Samples > 0 {
		opts.Samples = req.Samples
	}
	if req.TopK > 0 {
		opts.TopK = req.TopK
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}

	rep, err := h.summaries.Sweep(r.Context(), id, opts, h.defaults.Summary.Workers)
	if err != nil {
		h.fail(w, "Sweep failed", err)
		return
	}
	writeSuccess(w, h.logger, http.StatusOK, "Sweep completed", rep)
}

// HealthCheck reports liveness and the number of stored summaries.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.logger, http.StatusOK, "Service is healthy", map[string]interface{}{
		"status":    "ok",
		"summaries": len(h.summaries.List()),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}
