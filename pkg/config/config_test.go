package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/ingest"
)

func TestDefaults(t *testing.T) {
	c := NewConfig()

	assert.Equal(t, 5, c.Sketches())
	assert.Equal(t, 191, c.Bins())
	assert.Equal(t, "csv", c.Format())
	assert.Equal(t, 500, c.Samples())
	assert.Equal(t, 100, c.TopK())
	assert.Equal(t, ":8080", c.ServerAddress())
	assert.Equal(t, 30*time.Second, c.ReadTimeout())
	assert.Equal(t, "info", c.LogLevel())
	assert.Positive(t, c.Workers())

	opts := c.SummaryOptions()
	assert.Equal(t, 5, opts.Sketches)
	assert.Equal(t, 191, opts.Bins)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("TCM_SUMMARY_BINS", "64")
	t.Setenv("TCM_INGEST_FORMAT", "gt")
	t.Setenv("TCM_BENCHMARK_DIRECTION", "in")

	c := NewConfig()
	assert.Equal(t, 64, c.Bins())

	in, err := c.IngestOptions()
	require.NoError(t, err)
	assert.Equal(t, ingest.FormatGT, in.Format)

	bench, err := c.BenchmarkOptions()
	require.NoError(t, err)
	assert.Equal(t, graph.In, bench.Direction)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.yaml")
	content := []byte("summary:\n  sketches: 7\n  random_seed: 42\nserver:\n  write_timeout: 10s\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	c := NewConfig()
	require.NoError(t, c.LoadFromFile(path))

	assert.Equal(t, 7, c.Sketches())
	assert.Equal(t, int64(42), c.RandomSeed())
	assert.Equal(t, 10*time.Second, c.WriteTimeout())
	assert.Equal(t, 191, c.Bins(), "unset keys keep their defaults")

	assert.Error(t, c.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestInvalidValues(t *testing.T) {
	c := NewConfig()

	c.Set("ingest.format", "xml")
	_, err := c.IngestOptions()
	assert.ErrorIs(t, err, ingest.ErrUnsupportedFormat)

	c.Set("benchmark.direction", "sideways")
	_, err = c.BenchmarkOptions()
	assert.ErrorIs(t, err, graph.ErrUnknownDirection)
}

func TestCreateLogger(t *testing.T) {
	c := NewConfig()
	c.Set("logging.format", "json")
	c.Set("logging.level", "warn")

	var buf bytes.Buffer
	logger := c.CreateLoggerTo(&buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"shown"`)
	assert.Contains(t, out, `"service":"tcm"`)
}
