package query

import "errors"

var (
	// ErrUnknownQuery is returned for a nil query or an unrecognised kind.
	ErrUnknownQuery = errors.New("unknown query")

	// ErrEmptyPattern is returned for a subgraph pattern without pairs.
	ErrEmptyPattern = errors.New("subgraph pattern is empty")

	// ErrNoSamples is returned when a metric is asked for n <= 0 samples
	// or k <= 0 ranked entities, where the ratio would be undefined.
	ErrNoSamples = errors.New("sample count must be positive")

	// ErrNoDefinedSamples is returned when every drawn sample was excluded,
	// for example because every exact answer was zero.
	ErrNoDefinedSamples = errors.New("no sample produced a defined value")

	// ErrGraphTooSmall is returned when the graph lacks the vertices or
	// edges a metric needs to draw samples.
	ErrGraphTooSmall = errors.New("graph too small to sample")

	// ErrUnsupportedMetric is returned for metric and kind combinations that
	// have no meaning, such as the relative error of a reachability answer.
	ErrUnsupportedMetric = errors.New("metric not supported for query kind")
)
