package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/ingest"
	"github.com/gilchrisn/graph-summary-service/pkg/query"
	"github.com/gilchrisn/graph-summary-service/pkg/summary"
)

// EnvPrefix scopes environment overrides, e.g. TCM_SUMMARY_BINS.
const EnvPrefix = "TCM"

// Config manages service configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults and environment
// overrides applied.
func NewConfig() *Config {
	v := viper.New()

	// Summary parameters
	v.SetDefault("summary.sketches", 5)
	v.SetDefault("summary.bins", 191)
	v.SetDefault("summary.random_seed", time.Now().UnixNano())
	v.SetDefault("summary.workers", runtime.NumCPU())
	v.SetDefault("summary.max_cells", summary.DefaultMaxCells)

	// Ingestion
	v.SetDefault("ingest.format", "csv")
	v.SetDefault("ingest.delimiter", "")

	// Benchmark parameters
	v.SetDefault("benchmark.samples", 500)
	v.SetDefault("benchmark.top_k", 100)
	v.SetDefault("benchmark.max_pattern_size", query.DefaultMaxPatternSize)
	v.SetDefault("benchmark.direction", "out")
	v.SetDefault("benchmark.max_sketches", 9)

	// HTTP server
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.max_upload_bytes", int64(256<<20))

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// LoadFromFile merges a YAML, JSON or TOML file over the defaults.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Sketches() int     { return c.v.GetInt("summary.sketches") }
func (c *Config) Bins() int         { return c.v.GetInt("summary.bins") }
func (c *Config) RandomSeed() int64 { return c.v.GetInt64("summary.random_seed") }
func (c *Config) Workers() int      { return c.v.GetInt("summary.workers") }
func (c *Config) MaxCells() int64   { return c.v.GetInt64("summary.max_cells") }

func (c *Config) Format() string    { return c.v.GetString("ingest.format") }
func (c *Config) Delimiter() string { return c.v.GetString("ingest.delimiter") }

func (c *Config) Samples() int        { return c.v.GetInt("benchmark.samples") }
func (c *Config) TopK() int           { return c.v.GetInt("benchmark.top_k") }
func (c *Config) MaxPatternSize() int { return c.v.GetInt("benchmark.max_pattern_size") }
func (c *Config) Direction() string   { return c.v.GetString("benchmark.direction") }
func (c *Config) MaxSketches() int    { return c.v.GetInt("benchmark.max_sketches") }

func (c *Config) ServerAddress() string       { return c.v.GetString("server.address") }
func (c *Config) ReadTimeout() time.Duration  { return c.v.GetDuration("server.read_timeout") }
func (c *Config) WriteTimeout() time.Duration { return c.v.GetDuration("server.write_timeout") }
func (c *Config) MaxUploadBytes() int64       { return c.v.GetInt64("server.max_upload_bytes") }

func (c *Config) LogLevel() string  { return c.v.GetString("logging.level") }
func (c *Config) LogFormat() string { return c.v.GetString("logging.format") }

// Set allows dynamic configuration changes, e.g. from command-line flags.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// SummaryOptions collects the summary.* keys.
func (c *Config) SummaryOptions() summary.Options {
	return summary.Options{
		Sketches: c.Sketches(),
		Bins:     c.Bins(),
		Workers:  c.Workers(),
		MaxCells: c.MaxCells(),
	}
}

// IngestOptions collects the ingest.* keys.
func (c *Config) IngestOptions() (ingest.Options, error) {
	format, err := ingest.ParseFormat(c.Format())
	if err != nil {
		return ingest.Options{}, err
	}
	return ingest.Options{Format: format, Delimiter: c.Delimiter()}, nil
}

// BenchmarkOptions collects the benchmark.* keys used while sampling.
func (c *Config) BenchmarkOptions() (query.BenchmarkOptions, error) {
	d, err := graph.ParseDirection(c.Direction())
	if err != nil {
		return query.BenchmarkOptions{}, err
	}
	return query.BenchmarkOptions{MaxPatternSize: c.MaxPatternSize(), Direction: d}, nil
}

// CreateLogger creates a zerolog logger writing to stderr, keeping stdout
// free for command output.
func (c *Config) CreateLogger() zerolog.Logger {
	return c.CreateLoggerTo(os.Stderr)
}

// CreateLoggerTo creates a zerolog logger based on config writing to w.
func (c *Config) CreateLoggerTo(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	if c.LogFormat() != "json" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05",
		}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "tcm").Logger()
}
