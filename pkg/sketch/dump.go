package sketch

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// View is a serialisable snapshot of a sketch for display. It is not used by
// any query.
type View struct {
	Seed   uint64           `json:"seed" yaml:"seed"`
	Index  uint64           `json:"index" yaml:"index"`
	Bins   int              `json:"bins" yaml:"bins"`
	Labels map[int][]string `json:"labels" yaml:"labels"`
	Cells  []CellView       `json:"cells" yaml:"cells"`
}

// CellView is one present matrix cell.
type CellView struct {
	From   int   `json:"from" yaml:"from"`
	To     int   `json:"to" yaml:"to"`
	Weight int64 `json:"weight" yaml:"weight"`
}

// View captures bin membership and every present cell.
func (s *Sketch) View() View {
	v := View{
		Seed:   s.family.Seed,
		Index:  s.family.Index,
		Bins:   s.bins,
		Labels: make(map[int][]string, len(s.members)),
	}
	for _, bin := range s.OccupiedBins() {
		v.Labels[bin] = s.Members(bin)
	}
	for i, w := range s.cells {
		if w == absent {
			continue
		}
		v.Cells = append(v.Cells, CellView{From: i / s.bins, To: i % s.bins, Weight: w})
	}
	return v
}

// Dump writes bin membership followed by the full matrix, with "-" for
// absent cells.
func (s *Sketch) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "Bins:")
	for _, bin := range s.OccupiedBins() {
		fmt.Fprintf(bw, "%d: {%s}\n", bin, strings.Join(s.Members(bin), ","))
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Adjacency Matrix:")
	for to := 0; to < s.bins; to++ {
		bw.WriteByte(',')
		bw.WriteString(strconv.Itoa(to))
	}
	bw.WriteByte('\n')

	for from := 0; from < s.bins; from++ {
		bw.WriteString(strconv.Itoa(from))
		for to := 0; to < s.bins; to++ {
			bw.WriteByte(',')
			if weight, ok := s.Cell(from, to); ok {
				bw.WriteString(strconv.FormatInt(weight, 10))
			} else {
				bw.WriteByte('-')
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
