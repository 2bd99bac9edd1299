package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-summary-service/internal/api"
	"github.com/gilchrisn/graph-summary-service/internal/service"
	"github.com/gilchrisn/graph-summary-service/internal/shell"
	"github.com/gilchrisn/graph-summary-service/pkg/config"
	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/ingest"
	"github.com/gilchrisn/graph-summary-service/pkg/query"
	"github.com/gilchrisn/graph-summary-service/pkg/report"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

const usage = `Graph summary (TCM) tool

Usage: tcm <command> [flags]

Commands:
  build   build a summary and print its size
  query   answer one query on the summary and on the exact graph
  bench   measure accuracy metrics for one summary
  sweep   measure accuracy for every sketch count 1..benchmark.max_sketches
  dump    print one sketch
  serve   start the HTTP API
  shell   interactive console

Run 'tcm <command> -h' for the flags of a command.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "build":
		err = runBuild(ctx, args)
	case "query":
		err = runQuery(ctx, args)
	case "bench":
		err = runBench(ctx, args)
	case "sweep":
		err = runSweep(ctx, args)
	case "dump":
		err = runDump(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "shell":
		err = runShell(ctx, args)
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s\n", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// common holds the flags every command shares. Flags override the config
// file, which overrides environment and defaults.
type common struct {
	fs         *flag.FlagSet
	configPath string
	input      string
	format     string
	delimiter  string
	sketches   int
	bins       int
	seed       int64
	logLevel   string
}

func newCommon(name string) *common {
	c := &common{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	c.fs.StringVar(&c.configPath, "config", "", "YAML, JSON or TOML config file")
	c.fs.StringVar(&c.input, "input", "", "edge list file")
	c.fs.StringVar(&c.format, "format", "", "edge list format: csv or gt")
	c.fs.StringVar(&c.delimiter, "delimiter", "", "csv field delimiter")
	c.fs.IntVar(&c.sketches, "sketches", 0, "number of sketches")
	c.fs.IntVar(&c.bins, "bins", 0, "bins per sketch")
	c.fs.Int64Var(&c.seed, "seed", 0, "random seed")
	c.fs.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")
	return c
}

// load parses args and returns the merged configuration.
func (c *common) load(args []string) (*config.Config, error) {
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	cfg := config.NewConfig()
	if c.configPath != "" {
		if err := cfg.LoadFromFile(c.configPath); err != nil {
			return nil, err
		}
	}

	c.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Set("ingest.format", c.format)
		case "delimiter":
			cfg.Set("ingest.delimiter", c.delimiter)
		case "sketches":
			cfg.Set("summary.sketches", c.sketches)
		case "bins":
			cfg.Set("summary.bins", c.bins)
		case "seed":
			cfg.Set("summary.random_seed", c.seed)
		case "log-level":
			cfg.Set("logging.level", c.logLevel)
		}
	})
	return cfg, nil
}

// buildSummary reads the input file and builds a summary with the
// configured number of sketches.
func (c *common) buildSummary(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts summary.Options) (*summary.Summary, error) {
	if c.input == "" {
		return nil, fmt.Errorf("-input is required")
	}
	in, err := cfg.IngestOptions()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	g, err := ingest.ReadFile(c.input, in)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("input", c.input).
		Int("vertices", g.NumVertices()).
		Int("edges", g.NumEdges()).
		Dur("duration", time.Since(start)).
		Msg("Graph loaded")

	return summary.Build(ctx, g, opts, rand.New(rand.NewSource(cfg.RandomSeed())), logger)
}

func runBuild(ctx context.Context, args []string) error {
	c := newCommon("build")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	logger := cfg.CreateLogger()

	s, err := c.buildSummary(ctx, cfg, logger, cfg.SummaryOptions())
	if err != nil {
		return err
	}
	fmt.Printf("vertices: %d\nedges: %d\ntotal weight: %d\nsketches: %d\nbins: %d\ncells: %d\nseed: %d\n",
		s.Graph().NumVertices(), s.Graph().NumEdges(), s.Graph().TotalWeight(),
		s.Len(), s.Bins(), s.Cells(), cfg.RandomSeed())
	return nil
}

func runQuery(ctx context.Context, args []string) error {
	c := newCommon("query")
	var kind, from, to, label, direction string
	c.fs.StringVar(&kind, "kind", "edge", "edge, node, path or subgraph")
	c.fs.StringVar(&from, "from", "", "source label for edge and path queries")
	c.fs.StringVar(&to, "to", "", "target label for edge and path queries")
	c.fs.StringVar(&label, "label", "", "vertex label for node queries")
	c.fs.StringVar(&direction, "direction", "out", "in, out or undirected for node queries")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}

	k, err := query.ParseKind(kind)
	if err != nil {
		return err
	}
	var q query.Query
	switch k {
	case query.KindEdge:
		q = query.NewEdgeQuery(from, to)
	case query.KindPath:
		q = query.NewPathQuery(from, to)
	case query.KindNode:
		d, err := graph.ParseDirection(direction)
		if err != nil {
			return err
		}
		q = query.NewNodeQuery(label, d)
	case query.KindSubGraph:
		// remaining arguments are from/to pairs
		rest := c.fs.Args()
		if len(rest)%2 != 0 {
			return fmt.Errorf("subgraph pattern needs from/to pairs, got %d labels", len(rest))
		}
		pairs := make([]graph.Pair, 0, len(rest)/2)
		for i := 0; i < len(rest); i += 2 {
			pairs = append(pairs, graph.Pair{From: rest[i], To: rest[i+1]})
		}
		if q, err = query.NewSubGraphQuery(pairs...); err != nil {
			return err
		}
	}

	s, err := c.buildSummary(ctx, cfg, cfg.CreateLogger(), cfg.SummaryOptions())
	if err != nil {
		return err
	}
	approx, exact, err := query.NewEngine(s).Compare(q)
	if err != nil {
		return err
	}
	fmt.Printf("query: %s\nsummary: %s\noriginal: %s\nmatches: %t\n", q, approx, exact, approx.Matches(exact))
	return nil
}

func reportOptions(cfg *config.Config) (report.Options, error) {
	bench, err := cfg.BenchmarkOptions()
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{
		Samples:   cfg.Samples(),
		TopK:      cfg.TopK(),
		Seed:      cfg.RandomSeed(),
		Benchmark: bench,
	}, nil
}

func runBench(ctx context.Context, args []string) error {
	c := newCommon("bench")
	var output, metric, kind string
	var samples int
	c.fs.StringVar(&output, "output", report.FormatTable, "table, yaml or json")
	c.fs.StringVar(&metric, "metric", "", "single metric to run: precision, are, topk or fpr")
	c.fs.StringVar(&kind, "kind", "edge", "query kind for -metric")
	c.fs.IntVar(&samples, "samples", 0, "samples per metric")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	if samples > 0 {
		cfg.Set("benchmark.samples", samples)
	}
	opts, err := reportOptions(cfg)
	if err != nil {
		return err
	}
	if metric != "" {
		m, err := query.ParseMetric(metric)
		if err != nil {
			return err
		}
		k, err := query.ParseKind(kind)
		if err != nil {
			return err
		}
		opts.Plan = []report.Probe{{Metric: m, Kind: k}}
	}

	logger := cfg.CreateLogger()
	s, err := c.buildSummary(ctx, cfg, logger, cfg.SummaryOptions())
	if err != nil {
		return err
	}
	r, err := report.Single(s, opts)
	if err != nil {
		return err
	}
	return report.Write(os.Stdout, r, output)
}

func runSweep(ctx context.Context, args []string) error {
	c := newCommon("sweep")
	var output string
	var maxSketches int
	c.fs.StringVar(&output, "output", report.FormatTable, "table, yaml or json")
	c.fs.IntVar(&maxSketches, "max-sketches", 0, "largest sketch count to measure")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	if maxSketches > 0 {
		cfg.Set("benchmark.max_sketches", maxSketches)
	}
	opts, err := reportOptions(cfg)
	if err != nil {
		return err
	}

	logger := cfg.CreateLogger()
	build := cfg.SummaryOptions()
	build.Sketches = cfg.MaxSketches()
	s, err := c.buildSummary(ctx, cfg, logger, build)
	if err != nil {
		return err
	}
	r, err := report.Sweep(ctx, s, opts, cfg.Workers(), logger)
	if err != nil {
		return err
	}
	return report.Write(os.Stdout, r, output)
}

func runDump(ctx context.Context, args []string) error {
	c := newCommon("dump")
	var output string
	var index int
	c.fs.StringVar(&output, "output", report.FormatTable, "table, yaml or json")
	c.fs.IntVar(&index, "sketch", 0, "sketch index")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}

	s, err := c.buildSummary(ctx, cfg, cfg.CreateLogger(), cfg.SummaryOptions())
	if err != nil {
		return err
	}
	sk, ok := s.Sketch(index)
	if !ok {
		return fmt.Errorf("sketch %d out of range [0, %d)", index, s.Len())
	}
	return report.WriteView(os.Stdout, sk, output)
}

func runShell(ctx context.Context, args []string) error {
	c := newCommon("shell")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	in, err := cfg.IngestOptions()
	if err != nil {
		return err
	}
	bench, err := cfg.BenchmarkOptions()
	if err != nil {
		return err
	}

	sh := shell.New(os.Stdout, os.Stderr, shell.Options{
		Summary:   cfg.SummaryOptions(),
		Ingest:    in,
		Benchmark: bench,
		Seed:      cfg.RandomSeed(),
		Samples:   cfg.Samples(),
	}, cfg.CreateLogger())

	if c.input != "" {
		if _, err := sh.Execute(ctx, "load "+c.input); err != nil {
			return err
		}
	}
	return sh.Run(ctx, os.Stdin)
}

func runServe(ctx context.Context, args []string) error {
	c := newCommon("serve")
	var address string
	c.fs.StringVar(&address, "address", "", "listen address")
	cfg, err := c.load(args)
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Set("server.address", address)
	}
	logger := cfg.CreateLogger()

	in, err := cfg.IngestOptions()
	if err != nil {
		return err
	}
	bench, err := cfg.BenchmarkOptions()
	if err != nil {
		return err
	}

	logger.Info().
		Str("address", cfg.ServerAddress()).
		Int("sketches", cfg.Sketches()).
		Int("bins", cfg.Bins()).
		Int("workers", cfg.Workers()).
		Msg("Configuration loaded")

	summaries := service.NewSummaryService(logger)
	handlers := api.NewHandlers(summaries, api.Defaults{
		Summary:        cfg.SummaryOptions(),
		Ingest:         in,
		Benchmark:      bench,
		Samples:        cfg.Samples(),
		TopK:           cfg.TopK(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}, logger)

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      api.NewRouter(handlers, logger),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.ServerAddress()).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info().Msg("Server shutdown complete")
	return nil
}
