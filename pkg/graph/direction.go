package graph

import (
	"fmt"
	"math/rand"
	"strings"
)

// Direction selects which incident edges of a vertex are aggregated.
type Direction int

const (
	Out Direction = iota
	In
	Undirected
)

// Directions lists every direction in declaration order.
var Directions = []Direction{Out, In, Undirected}

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	case Undirected:
		return "undirected"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts in, out and undirected (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "out":
		return Out, nil
	case "in":
		return In, nil
	case "undirected", "both", "any":
		return Undirected, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// RandomDirection draws one of the three directions from rng.
func RandomDirection(rng *rand.Rand) Direction {
	return Directions[rng.Intn(len(Directions))]
}

// MarshalText lets directions travel as strings in JSON and YAML.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
