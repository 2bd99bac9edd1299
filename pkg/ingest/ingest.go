// Package ingest reads weighted edge lists into a graph.Graph.
//
// Two line formats are understood:
//
//	csv  from<delim>to<delim>weight        (delimiter defaults to ",")
//	gt   a<delim>from<delim>to<delim>weight (delimiter defaults to whitespace)
//
// Blank lines and lines starting with '#' are skipped in both formats. In gt
// files every line that does not start with "a " is a header or comment and
// is ignored. Any malformed edge line, including one with more or fewer
// fields than its format names, fails the whole read with a
// *graph.FormatError carrying its 1-based line number.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gilchrisn/graph-summary-service/pkg/graph"
)

const maxLineBytes = 1 << 20

// Format selects the line layout.
type Format int

const (
	FormatCSV Format = iota
	FormatGT
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatGT:
		return "gt"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat accepts csv and gt (or gt_graph).
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv", "":
		return FormatCSV, nil
	case "gt", "gt_graph", "gtgraph":
		return FormatGT, nil
	default:
		return 0, &UnsupportedFormatError{Name: name}
	}
}

// Options configures a read.
type Options struct {
	Format Format
	// Delimiter separates fields. Empty selects the format default.
	Delimiter string
}

// Read parses every line of r and aggregates the edges into a graph.
func Read(r io.Reader, opts Options) (*graph.Graph, error) {
	if opts.Format != FormatCSV && opts.Format != FormatGT {
		return nil, &UnsupportedFormatError{Name: opts.Format.String()}
	}

	b := graph.NewBuilder()
	err := Scan(r, opts, func(t graph.Triple) error {
		return b.Add(t)
	})
	if err != nil {
		return nil, err
	}
	return b.Graph(), nil
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string, opts Options) (*graph.Graph, error) {
	if opts.Format != FormatCSV && opts.Format != FormatGT {
		return nil, &UnsupportedFormatError{Name: opts.Format.String()}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open edge list %s: %w", path, err)
	}
	defer file.Close()

	g, err := Read(file, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return g, nil
}

// Scan calls fn with every edge triple in r, stopping at the first error.
func Scan(r io.Reader, opts Options, fn func(graph.Triple) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		t, ok, err := ParseLine(scanner.Text(), lineNo, opts)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan line %d: %w", lineNo+1, err)
	}
	return nil
}

// ParseLine decodes one line. ok is false for lines that carry no edge.
func ParseLine(line string, lineNo int, opts Options) (t graph.Triple, ok bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return graph.Triple{}, false, nil
	}

	var fields []string
	switch opts.Format {
	case FormatGT:
		if !strings.HasPrefix(trimmed, "a ") && !strings.HasPrefix(trimmed, "a\t") {
			return graph.Triple{}, false, nil
		}
		fields = split(trimmed, opts.Delimiter)
		if len(fields) != 4 {
			return graph.Triple{}, false, &graph.FormatError{
				Line: lineNo,
				Msg:  fmt.Sprintf("expected 'a from to weight', got %d fields", len(fields)),
			}
		}
		fields = fields[1:]
	case FormatCSV:
		delim := opts.Delimiter
		if delim == "" {
			delim = ","
		}
		fields = split(trimmed, delim)
		if len(fields) != 3 {
			return graph.Triple{}, false, &graph.FormatError{
				Line: lineNo,
				Msg:  fmt.Sprintf("expected 'from%[1]sto%[1]sweight', got %[2]d fields", delim, len(fields)),
			}
		}
	default:
		return graph.Triple{}, false, &UnsupportedFormatError{Name: opts.Format.String()}
	}

	weight, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return graph.Triple{}, false, &graph.FormatError{
			Line: lineNo, Field: "weight", Msg: fmt.Sprintf("not an integer: %q", fields[2]), Err: err,
		}
	}

	return graph.Triple{From: fields[0], To: fields[1], Weight: weight, Line: lineNo}, true, nil
}

// split cuts s on delim, or on runs of whitespace when delim is empty or
// blank, and trims every field.
func split(s, delim string) []string {
	var parts []string
	if strings.TrimSpace(delim) == "" {
		parts = strings.Fields(s)
	} else {
		parts = strings.Split(s, delim)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
