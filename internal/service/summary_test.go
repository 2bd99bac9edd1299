package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/ingest"
	"github.com/gilchrisn/graph-summary-service/pkg/query"
	"github.com/gilchrisn/graph-summary-service/pkg/report"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

const chainCSV = "A,B,10\nB,C,5\nC,D,2\n"

func newRequest(name string) BuildRequest {
	return BuildRequest{
		Name:    name,
		Ingest:  ingest.Options{Format: ingest.FormatCSV},
		Summary: summary.Options{Sketches: 3, Bins: 2},
		Seed:    1,
	}
}

func TestCreateGetDelete(t *testing.T) {
	svc := NewSummaryService(zerolog.Nop())

	entry, err := svc.Create(context.Background(), strings.NewReader(chainCSV), newRequest("chain"))
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)

	got, err := svc.Get(entry.ID)
	require.NoError(t, err)
	assert.Same(t, entry, got)

	info := got.Info()
	assert.Equal(t, "chain", info.Name)
	assert.Equal(t, 4, info.Vertices)
	assert.Equal(t, 3, info.Edges)
	assert.Equal(t, int64(17), info.TotalWeight)
	assert.Equal(t, int64(12), info.Cells)

	require.NoError(t, svc.Delete(entry.ID))
	_, err = svc.Get(entry.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(entry.ID), ErrNotFound)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := NewSummaryService(zerolog.Nop())

	_, err := svc.Create(context.Background(), strings.NewReader("A,B,x\n"), newRequest(""))
	assert.ErrorIs(t, err, graph.ErrFormat)

	req := newRequest("")
	req.Summary.Bins = 0
	_, err = svc.Create(context.Background(), strings.NewReader(chainCSV), req)
	assert.ErrorIs(t, err, summary.ErrConfiguration)

	assert.Empty(t, svc.List())
}

func TestListIsOrdered(t *testing.T) {
	svc := NewSummaryService(zerolog.Nop())
	for _, name := range []string{"first", "second", "third"} {
		_, err := svc.Create(context.Background(), strings.NewReader(chainCSV), newRequest(name))
		require.NoError(t, err)
	}

	infos := svc.List()
	require.Len(t, infos, 3)
	for i := 1; i < len(infos); i++ {
		assert.False(t, infos[i].CreatedAt.Before(infos[i-1].CreatedAt))
	}
}

func TestQueryBothSides(t *testing.T) {
	svc := NewSummaryService(zerolog.Nop())
	entry, err := svc.Create(context.Background(), strings.NewReader(chainCSV), newRequest("chain"))
	require.NoError(t, err)

	approx, exact, err := svc.Query(entry.ID, query.NewEdgeQuery("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), exact.Weight)
	assert.GreaterOrEqual(t, approx.Weight, int64(10))

	_, _, err = svc.Query("missing", query.NewEdgeQuery("A", "B"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentMeasurements(t *testing.T) {
	svc := NewSummaryService(zerolog.Nop())
	entry, err := svc.Create(context.Background(), strings.NewReader(chainCSV), newRequest("chain"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]query.Measurement, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Measure(entry.ID, query.MetricPrecision, query.KindEdge, 50, 9, query.BenchmarkOptions{})
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Value, results[i].Value, "same seed must give the same precision")
	}
}

func TestSweep(t *testing.T) {
	svc := NewSummaryService(zerolog.Nop())
	entry, err := svc.Create(context.Background(), strings.NewReader(chainCSV), newRequest("chain"))
	require.NoError(t, err)

	r, err := svc.Sweep(context.Background(), entry.ID, report.Options{Samples: 10, TopK: 2, Seed: 3}, 2)
	require.NoError(t, err)
	assert.Len(t, r.Rows, 3)
	assert.True(t, strings.HasPrefix(r.Title, "chain: "))
}
