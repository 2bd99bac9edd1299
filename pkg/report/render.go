package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/gilchrisn/graph-summary-service/pkg/sketch"
)

// Output formats accepted by Write.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

// Write renders r to w in the given format.
func Write(w io.Writer, r *Report, format string) error {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		return encodeYAML(w, r)
	case FormatJSON:
		return encodeJSON(w, r)
	case FormatTable, "":
		return writeTable(w, r)
	default:
		return fmt.Errorf("unknown report format %q (want table, yaml or json)", format)
	}
}

// WriteView renders a sketch view. The table format is the adjacency
// matrix dump.
func WriteView(w io.Writer, sk *sketch.Sketch, format string) error {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		return encodeYAML(w, sk.View())
	case FormatJSON:
		return encodeJSON(w, sk.View())
	case FormatTable, "":
		return sk.Dump(w)
	default:
		return fmt.Errorf("unknown view format %q (want table, yaml or json)", format)
	}
}

func encodeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

func writeTable(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "%s\n", r.Title)
	fmt.Fprintf(w, "graph: %d vertices, %d edges, total weight %d\n", r.Vertices, r.Edges, r.TotalWeight)
	fmt.Fprintf(w, "seed %d, %d samples, top-%d\n\n", r.Seed, r.Samples, r.TopK)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"sketches", "bins"}
	for _, p := range r.Plan {
		header = append(header, p.Metric.String()+"/"+p.Kind.String())
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, row := range r.Rows {
		cells := []string{fmt.Sprint(row.Sketches), fmt.Sprint(row.Bins)}
		for _, p := range r.Plan {
			if v, ok := row.Value(p); ok {
				cells = append(cells, fmt.Sprintf("%.4f", v))
			} else {
				cells = append(cells, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}
