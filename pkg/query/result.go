package query

import (
	"fmt"
	"strconv"
)

// Status tells a defined answer apart from the ways an answer can be missing.
type Status int

const (
	// StatusOK means the result carries a value (possibly zero).
	StatusOK Status = iota
	// StatusUnknownVertex means a referenced label was never ingested.
	StatusUnknownVertex
	// StatusNoEdge means the exact graph has no matching edge.
	StatusNoEdge
	// StatusNoEvidence means no sketch cell for the query was ever written.
	StatusNoEvidence
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknownVertex:
		return "unknown_vertex"
	case StatusNoEdge:
		return "no_edge"
	case StatusNoEvidence:
		return "no_evidence"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{StatusOK, StatusUnknownVertex, StatusNoEdge, StatusNoEvidence} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown result status %q", text)
}

// Result is the answer to one query on one side. Weight is used by edge,
// node and subgraph queries, Reachable by path queries. Bin and Sketch
// locate the minimising sketch of a node query on a summary and are -1
// otherwise.
type Result struct {
	Kind      Kind   `json:"kind" yaml:"kind"`
	Status    Status `json:"status" yaml:"status"`
	Weight    int64  `json:"weight" yaml:"weight"`
	Reachable bool   `json:"reachable" yaml:"reachable"`
	Bin       int    `json:"bin" yaml:"bin"`
	Sketch    int    `json:"sketch" yaml:"sketch"`
}

func newResult(k Kind, s Status) Result {
	return Result{Kind: k, Status: s, Bin: -1, Sketch: -1}
}

// Defined reports whether the result carries a value.
func (r Result) Defined() bool { return r.Status == StatusOK }

// Matches is the equality used by precision: two defined results match when
// their values agree, two undefined results always match, and a defined
// result never matches an undefined one.
func (r Result) Matches(o Result) bool {
	if r.Defined() != o.Defined() {
		return false
	}
	if !r.Defined() {
		return true
	}
	if r.Kind == KindPath {
		return r.Reachable == o.Reachable
	}
	return r.Weight == o.Weight
}

func (r Result) String() string {
	if !r.Defined() {
		return r.Status.String()
	}
	if r.Kind == KindPath {
		return strconv.FormatBool(r.Reachable)
	}
	if r.Kind == KindNode && r.Bin >= 0 {
		return fmt.Sprintf("(%d, %d)", r.Bin, r.Weight)
	}
	return strconv.FormatInt(r.Weight, 10)
}
