package shell

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/ingest"
	"github.com/gilchrisn/graph-summary-service/pkg/query"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

func writeChain(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.csv")
	require.NoError(t, os.WriteFile(path, []byte("A,B,10\nB,C,5\nC,D,2\n"), 0o644))
	return path
}

func newShell() (*Shell, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	sh := New(&out, &errOut, Options{
		Summary:   summary.Options{Sketches: 2, Bins: 4, Workers: 1},
		Ingest:    ingest.Options{Format: ingest.FormatCSV},
		Benchmark: query.BenchmarkOptions{MaxPatternSize: 3, Direction: graph.Out},
		Seed:      7,
		Samples:   10,
	}, zerolog.Nop())
	return sh, &out, &errOut
}

func TestSessionAnswersQueries(t *testing.T) {
	sh, out, errOut := newShell()
	script := strings.Join([]string{
		"load " + writeChain(t),
		"edge A B",
		"node B in",
		"path A D",
		"subgraph A B C D",
		"bench precision edge 5",
		"quit",
		"edge A B",
	}, "\n")

	require.NoError(t, sh.Run(context.Background(), strings.NewReader(script)))
	assert.Empty(t, errOut.String())

	text := out.String()
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		assert.True(t, strings.HasPrefix(line, prefix), line)
	}
	assert.Contains(t, text, "Done: 4 vertices, 3 edges")
	assert.Contains(t, text, "Exact: 10")
	assert.Contains(t, text, "Exact: true")
	assert.Contains(t, text, "Exact: 12")
	assert.Contains(t, text, "precision edge over 5")
	assert.Equal(t, 4, strings.Count(text, "Result: "), "commands after quit are not executed")
}

func TestQueryBeforeLoad(t *testing.T) {
	sh, _, _ := newShell()
	for _, line := range []string{"edge A B", "show", "bench precision edge"} {
		_, err := sh.Execute(context.Background(), line)
		assert.ErrorIs(t, err, ErrNoSummary, line)
	}
}

func TestMalformedCommands(t *testing.T) {
	sh, _, _ := newShell()
	_, err := sh.Execute(context.Background(), "load "+writeChain(t))
	require.NoError(t, err)

	tests := []struct {
		line string
		want error
	}{
		{"edge A", ErrUsage},
		{"path A B C", ErrUsage},
		{"subgraph A", ErrUsage},
		{"node A up", graph.ErrUnknownDirection},
		{"bench median edge", query.ErrUnsupportedMetric},
		{"bench precision triangle", query.ErrUnknownQuery},
		{"bench are path 5", query.ErrUnsupportedMetric},
		{"show 9", ErrUsage},
		{"load a.csv many", ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := sh.Execute(context.Background(), tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestErrorsGoToErrorWriter(t *testing.T) {
	sh, out, errOut := newShell()
	require.NoError(t, sh.Run(context.Background(), strings.NewReader("frobnicate\n\n# comment\nhelp\n")))

	assert.Equal(t, ">> Error: \n>> unknown command \"frobnicate\", try help\n", errOut.String())
	assert.Contains(t, out.String(), ">> Commands:")
}

func TestShowDumpsSketches(t *testing.T) {
	sh, out, _ := newShell()
	_, err := sh.Execute(context.Background(), "load "+writeChain(t))
	require.NoError(t, err)
	out.Reset()

	_, err = sh.Execute(context.Background(), "show")
	require.NoError(t, err)
	assert.Contains(t, out.String(), ">> GraphSketch 0")
	assert.Contains(t, out.String(), ">> GraphSketch 1")

	out.Reset()
	_, err = sh.Execute(context.Background(), "show 1")
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "GraphSketch 0")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	sh, out, _ := newShell()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sh.Run(ctx, strings.NewReader("help\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
