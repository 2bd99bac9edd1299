// Package shell is a line-oriented console for building a summary and
// querying it interactively. Every output line is prefixed with ">> ";
// errors go to the error writer.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/ingest"
	"github.com/gilchrisn/graph-summary-service/pkg/query"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

const prefix = ">> "

// ErrNoSummary is returned by query commands issued before load.
var ErrNoSummary = errors.New("no summary loaded, use load first")

// ErrUsage wraps malformed commands.
var ErrUsage = errors.New("usage")

// Options holds the defaults load and bench fall back to.
type Options struct {
	Summary   summary.Options
	Ingest    ingest.Options
	Benchmark query.BenchmarkOptions
	Seed      int64
	Samples   int
}

// Shell holds the session state: at most one loaded summary.
type Shell struct {
	out    io.Writer
	errOut io.Writer
	opts   Options
	logger zerolog.Logger

	summary *summary.Summary
	engine  *query.Engine
	bench   *query.Benchmark
}

func New(out, errOut io.Writer, opts Options, logger zerolog.Logger) *Shell {
	return &Shell{out: out, errOut: errOut, opts: opts, logger: logger}
}

// Run executes commands from in until EOF, quit or ctx is done. Command
// errors are reported and the loop continues.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		quit, err := s.Execute(ctx, scanner.Text())
		if err != nil {
			s.error(err.Error())
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// Execute runs one command line.
func (s *Shell) Execute(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		s.output("Bye")
		return true, nil
	case "help":
		s.output(helpText)
		return false, nil
	case "load":
		return false, s.load(ctx, args)
	case "edge", "node", "path", "subgraph":
		return false, s.query(cmd, args)
	case "show":
		return false, s.show(args)
	case "bench":
		return false, s.benchmark(args)
	default:
		return false, fmt.Errorf("unknown command %q, try help", cmd)
	}
}

const helpText = `Commands:
  load <file> [sketches] [bins] [csv|gt] [delimiter]
  edge <from> <to>
  node <label> [out|in|undirected]
  path <from> <to>
  subgraph <from> <to> [<from> <to> ...]
  show [sketch]
  bench <precision|are|topk|fpr> <edge|node|path|subgraph> [n]
  help
  quit`

func (s *Shell) load(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 5 {
		return fmt.Errorf("%w: load <file> [sketches] [bins] [csv|gt] [delimiter]", ErrUsage)
	}
	opts := s.opts.Summary
	in := s.opts.Ingest

	var err error
	if len(args) > 1 {
		if opts.Sketches, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("%w: sketches must be an integer", ErrUsage)
		}
	}
	if len(args) > 2 {
		if opts.Bins, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("%w: bins must be an integer", ErrUsage)
		}
	}
	if len(args) > 3 {
		if in.Format, err = ingest.ParseFormat(args[3]); err != nil {
			return err
		}
	}
	if len(args) > 4 {
		in.Delimiter = args[4]
	}

	s.output(fmt.Sprintf("Creating graph summary from file %s with %d sketches and %d bins...", args[0], opts.Sketches, opts.Bins))
	g, err := ingest.ReadFile(args[0], in)
	if err != nil {
		return err
	}
	sum, err := summary.Build(ctx, g, opts, rand.New(rand.NewSource(s.opts.Seed)), s.logger)
	if err != nil {
		return err
	}

	s.summary = sum
	s.engine = query.NewEngine(sum)
	s.bench = query.NewBenchmark(sum, rand.New(rand.NewSource(s.opts.Seed)), s.opts.Benchmark)
	s.output(fmt.Sprintf("Done: %d vertices, %d edges", g.NumVertices(), g.NumEdges()))
	return nil
}

func (s *Shell) query(kind string, args []string) error {
	if s.engine == nil {
		return ErrNoSummary
	}
	q, err := parseQuery(kind, args)
	if err != nil {
		return err
	}

	s.output("Executing " + q.String())
	approx, exact, err := s.engine.Compare(q)
	if err != nil {
		return err
	}
	s.output("Result: " + approx.String() + "\nExact: " + exact.String())
	return nil
}

func parseQuery(kind string, args []string) (query.Query, error) {
	switch kind {
	case "edge":
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: edge <from> <to>", ErrUsage)
		}
		return query.NewEdgeQuery(args[0], args[1]), nil
	case "node":
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("%w: node <label> [out|in|undirected]", ErrUsage)
		}
		d := graph.Out
		if len(args) == 2 {
			var err error
			if d, err = graph.ParseDirection(args[1]); err != nil {
				return nil, err
			}
		}
		return query.NewNodeQuery(args[0], d), nil
	case "path":
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: path <from> <to>", ErrUsage)
		}
		return query.NewPathQuery(args[0], args[1]), nil
	case "subgraph":
		if len(args) == 0 || len(args)%2 != 0 {
			return nil, fmt.Errorf("%w: subgraph <from> <to> [<from> <to> ...]", ErrUsage)
		}
		pairs := make([]graph.Pair, 0, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			pairs = append(pairs, graph.Pair{From: args[i], To: args[i+1]})
		}
		return query.NewSubGraphQuery(pairs...)
	default:
		return nil, fmt.Errorf("%w: %s", query.ErrUnknownQuery, kind)
	}
}

func (s *Shell) show(args []string) error {
	if s.summary == nil {
		return ErrNoSummary
	}
	indices := make([]int, 0, s.summary.Len())
	if len(args) == 1 {
		i, err := strconv.Atoi(args[0])
		if err != nil || i < 0 || i >= s.summary.Len() {
			return fmt.Errorf("%w: show [0..%d]", ErrUsage, s.summary.Len()-1)
		}
		indices = append(indices, i)
	} else {
		for i := 0; i < s.summary.Len(); i++ {
			indices = append(indices, i)
		}
	}

	for _, i := range indices {
		sk, _ := s.summary.Sketch(i)
		var buf bytes.Buffer
		if err := sk.Dump(&buf); err != nil {
			return err
		}
		s.output(fmt.Sprintf("GraphSketch %d\n\n%s", i, strings.TrimRight(buf.String(), "\n")))
	}
	return nil
}

func (s *Shell) benchmark(args []string) error {
	if s.bench == nil {
		return ErrNoSummary
	}
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: bench <precision|are|topk|fpr> <edge|node|path|subgraph> [n]", ErrUsage)
	}
	m, err := query.ParseMetric(args[0])
	if err != nil {
		return err
	}
	k, err := query.ParseKind(args[1])
	if err != nil {
		return err
	}
	n := s.opts.Samples
	if len(args) == 3 {
		if n, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("%w: n must be an integer", ErrUsage)
		}
	}

	res, err := s.bench.Run(m, k, n)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s %s over %d: %.4f", res.Metric, res.Kind, res.N, res.Value)
	if res.Metric == query.MetricRelativeError {
		line += fmt.Sprintf(" (stddev %.4f, %d samples, %d excluded)", res.StdDev, res.Samples, res.Excluded)
	}
	s.output(line)
	return nil
}

func (s *Shell) output(text string) {
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintln(s.out, prefix+line)
	}
}

func (s *Shell) error(text string) {
	fmt.Fprintln(s.errOut, prefix+"Error: ")
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintln(s.errOut, prefix+line)
	}
}
