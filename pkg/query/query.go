// Package query evaluates edge, node, path and subgraph questions against a
// summary (approximate) or its exact graph, and measures how far the two
// answers drift apart.
//
// The query set is closed: Query can only be satisfied by the four variants
// in this package, and evaluation switches over them exhaustively.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
)

// Kind names a query variant.
type Kind int

const (
	KindEdge Kind = iota
	KindNode
	KindPath
	KindSubGraph
)

// Kinds lists every variant.
var Kinds = []Kind{KindEdge, KindNode, KindPath, KindSubGraph}

func (k Kind) String() string {
	switch k {
	case KindEdge:
		return "edge"
	case KindNode:
		return "node"
	case KindPath:
		return "path"
	case KindSubGraph:
		return "subgraph"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts the names returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownQuery, s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Query is one of EdgeQuery, NodeQuery, PathQuery or SubGraphQuery.
type Query interface {
	Kind() Kind
	fmt.Stringer
	sealed()
}

// EdgeQuery asks for the aggregated weight of From -> To.
type EdgeQuery struct {
	From string
	To   string
}

// NodeQuery asks for the aggregated weight incident on Label.
type NodeQuery struct {
	Label     string
	Direction graph.Direction
}

// PathQuery asks whether To is reachable from From.
type PathQuery struct {
	From string
	To   string
}

// SubGraphQuery asks for the summed weight of every pair in Pattern.
type SubGraphQuery struct {
	Pattern Pattern
}

func NewEdgeQuery(from, to string) EdgeQuery { return EdgeQuery{From: from, To: to} }

func NewNodeQuery(label string, d graph.Direction) NodeQuery {
	return NodeQuery{Label: label, Direction: d}
}

func NewPathQuery(from, to string) PathQuery { return PathQuery{From: from, To: to} }

// NewSubGraphQuery builds a pattern from pairs; duplicates collapse and an
// empty pattern is rejected.
func NewSubGraphQuery(pairs ...graph.Pair) (SubGraphQuery, error) {
	p, err := NewPattern(pairs...)
	if err != nil {
		return SubGraphQuery{}, err
	}
	return SubGraphQuery{Pattern: p}, nil
}

func (EdgeQuery) Kind() Kind     { return KindEdge }
func (NodeQuery) Kind() Kind     { return KindNode }
func (PathQuery) Kind() Kind     { return KindPath }
func (SubGraphQuery) Kind() Kind { return KindSubGraph }

func (EdgeQuery) sealed()     {}
func (NodeQuery) sealed()     {}
func (PathQuery) sealed()     {}
func (SubGraphQuery) sealed() {}

func (q EdgeQuery) String() string { return fmt.Sprintf("edge(%s, %s)", q.From, q.To) }
func (q NodeQuery) String() string { return fmt.Sprintf("node(%s, %s)", q.Label, q.Direction) }
func (q PathQuery) String() string { return fmt.Sprintf("path(%s, %s)", q.From, q.To) }
func (q SubGraphQuery) String() string {
	return fmt.Sprintf("subgraph%s", q.Pattern)
}

// Pattern is a finite set of ordered label pairs.
type Pattern struct {
	pairs []graph.Pair
}

// NewPattern sorts and de-duplicates pairs.
func NewPattern(pairs ...graph.Pair) (Pattern, error) {
	if len(pairs) == 0 {
		return Pattern{}, ErrEmptyPattern
	}
	seen := make(map[graph.Pair]struct{}, len(pairs))
	out := make([]graph.Pair, 0, len(pairs))
	for _, p := range pairs {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return Pattern{pairs: out}, nil
}

// Pairs returns the pattern's pairs in sorted order.
func (p Pattern) Pairs() []graph.Pair { return p.pairs }

// Len is the number of distinct pairs.
func (p Pattern) Len() int { return len(p.pairs) }

// Labels returns every label the pattern names, in pair order, possibly
// repeated.
func (p Pattern) Labels() []string {
	labels := make([]string, 0, 2*len(p.pairs))
	for _, pair := range p.pairs {
		labels = append(labels, pair.From, pair.To)
	}
	return labels
}

func (p Pattern) String() string {
	parts := make([]string, len(p.pairs))
	for i, pair := range p.pairs {
		parts[i] = pair.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
