// Package sketch projects a graph through one hash family member into a
// dense bins x bins weight matrix.
//
// Cells start absent and become present on the first edge written into
// them, so "no evidence" stays distinct from a recorded weight of zero. Since
// weights are non-negative and collisions only add weight, every present cell
// is an upper bound on the true weight between any two labels hashed into it.
package sketch

import (
	"sort"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
	"github.com/gilchrisn/graph-summary-service/pkg/hashing"
)

// absent marks a cell no edge has been written to.
const absent int64 = -1

// Sketch is immutable after Build.
type Sketch struct {
	family hashing.Family
	bins   int
	cells  []int64 // row-major, absent or accumulated weight

	members map[int]map[string]struct{}
}

// Build folds every edge of g into a new sketch. O(|E|) time, O(bins²) space.
func Build(g *graph.Graph, family hashing.Family) *Sketch {
	s := &Sketch{
		family:  family,
		bins:    family.Bins,
		cells:   make([]int64, family.Bins*family.Bins),
		members: make(map[int]map[string]struct{}),
	}
	for i := range s.cells {
		s.cells[i] = absent
	}

	// one hash per vertex rather than two per edge
	binOf := make([]int, g.NumVertices())
	for _, v := range g.Vertices() {
		binOf[v.ID()] = family.Bin(v.Label())
	}

	for _, e := range g.Edges() {
		from := binOf[e.From.ID()]
		to := binOf[e.To.ID()]
		s.addMember(from, e.From.Label())
		s.addMember(to, e.To.Label())
		s.accumulate(from, to, e.Weight)
	}
	return s
}

func (s *Sketch) addMember(bin int, label string) {
	set, ok := s.members[bin]
	if !ok {
		set = make(map[string]struct{})
		s.members[bin] = set
	}
	set[label] = struct{}{}
}

func (s *Sketch) accumulate(from, to int, w int64) {
	i := from*s.bins + to
	if s.cells[i] == absent {
		s.cells[i] = w
		return
	}
	s.cells[i] += w
}

// Family returns the hash family member the sketch was built with.
func (s *Sketch) Family() hashing.Family { return s.family }

// Bins is the matrix side length.
func (s *Sketch) Bins() int { return s.bins }

// Bin hashes label with this sketch's family member.
func (s *Sketch) Bin(label string) int { return s.family.Bin(label) }

// Cell returns the accumulated weight of from -> to. ok is false when the
// cell was never written.
func (s *Sketch) Cell(from, to int) (weight int64, ok bool) {
	w := s.cells[from*s.bins+to]
	if w == absent {
		return 0, false
	}
	return w, true
}

// Contains reports whether label took part in any edge of this sketch.
func (s *Sketch) Contains(label string) bool {
	_, ok := s.members[s.Bin(label)][label]
	return ok
}

// Members returns the sorted labels hashed into bin.
func (s *Sketch) Members(bin int) []string {
	set := s.members[bin]
	out := make([]string, 0, len(set))
	for label := range set {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// OccupiedBins returns the sorted bins holding at least one label.
func (s *Sketch) OccupiedBins() []int {
	out := make([]int, 0, len(s.members))
	for bin := range s.members {
		out = append(out, bin)
	}
	sort.Ints(out)
	return out
}

// PresentCells counts written cells.
func (s *Sketch) PresentCells() int {
	n := 0
	for _, w := range s.cells {
		if w != absent {
			n++
		}
	}
	return n
}

// BinWeight sums the row (Out), column (In) or both (Undirected) of bin,
// skipping absent cells. Undirected counts the diagonal cell once, matching
// how graph.Vertex counts self loops.
func (s *Sketch) BinWeight(bin int, d graph.Direction) int64 {
	var total int64
	if d == graph.Out || d == graph.Undirected {
		row := s.cells[bin*s.bins : (bin+1)*s.bins]
		for _, w := range row {
			if w != absent {
				total += w
			}
		}
	}
	if d == graph.In || d == graph.Undirected {
		for r := 0; r < s.bins; r++ {
			if d == graph.Undirected && r == bin {
				continue
			}
			if w := s.cells[r*s.bins+bin]; w != absent {
				total += w
			}
		}
	}
	return total
}

// Weights returns BinWeight for every bin, indexed by bin.
func (s *Sketch) Weights(d graph.Direction) []int64 {
	out := make([]int64, s.bins)
	for bin := range out {
		out[bin] = s.BinWeight(bin, d)
	}
	return out
}
