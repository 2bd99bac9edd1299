package query

import (
	"fmt"
	"strings"
)

// Metric names an accuracy measurement.
type Metric int

const (
	MetricPrecision Metric = iota
	MetricRelativeError
	MetricTopK
	MetricFalsePositiveRate
)

var metricNames = map[Metric]string{
	MetricPrecision:         "precision",
	MetricRelativeError:     "are",
	MetricTopK:              "topk",
	MetricFalsePositiveRate: "fpr",
}

func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

// ParseMetric accepts precision, are, topk and fpr.
func ParseMetric(s string) (Metric, error) {
	for m, name := range metricNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedMetric, s)
}

func (m Metric) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Measurement is the outcome of one Run.
type Measurement struct {
	Metric   Metric  `json:"metric" yaml:"metric"`
	Kind     Kind    `json:"kind" yaml:"kind"`
	N        int     `json:"n" yaml:"n"`
	Value    float64 `json:"value" yaml:"value"`
	StdDev   float64 `json:"stddev,omitempty" yaml:"stddev,omitempty"`
	Samples  int     `json:"samples,omitempty" yaml:"samples,omitempty"`
	Excluded int     `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

// Run dispatches to the routine for m. n is the sample count, or k for
// MetricTopK. MetricFalsePositiveRate ignores kind.
func (b *Benchmark) Run(m Metric, k Kind, n int) (Measurement, error) {
	out := Measurement{Metric: m, Kind: k, N: n}
	switch m {
	case MetricPrecision:
		v, err := b.Precision(k, n)
		if err != nil {
			return out, err
		}
		out.Value, out.Samples = v, n
	case MetricRelativeError:
		re, err := b.AverageRelativeError(k, n)
		out.Excluded = re.Excluded
		if err != nil {
			return out, err
		}
		out.Value, out.StdDev, out.Samples = re.Mean, re.StdDev, re.Samples
	case MetricTopK:
		v, err := b.TopKOverlap(k, n)
		if err != nil {
			return out, err
		}
		out.Value = v
	case MetricFalsePositiveRate:
		out.Kind = KindPath
		v, err := b.FalsePositiveRate(n)
		if err != nil {
			return out, err
		}
		out.Value = v
	default:
		return out, fmt.Errorf("%w: %s", ErrUnsupportedMetric, m)
	}
	return out, nil
}
