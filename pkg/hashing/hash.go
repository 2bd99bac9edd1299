// Package hashing maps vertex labels into a small bin space.
//
// Every family member is derived from two base string hashes of the label,
// h1 (seeded djb2) and h2 (seeded FNV-1a), as bin = (h1 + index*h2) mod bins.
// Members that share a seed therefore share their base computation and differ
// only in index.
package hashing

import (
	"encoding/binary"
	"hash/fnv"
)

// DefaultSeed is the classic djb2 initial value.
const DefaultSeed uint64 = 5381

// Base holds the two seeded base hashes of one label.
type Base struct {
	H1 uint64
	H2 uint64
}

// Family is one member of the hash family.
type Family struct {
	Seed  uint64 `json:"seed" yaml:"seed"`
	Index uint64 `json:"index" yaml:"index"`
	Bins  int    `json:"bins" yaml:"bins"`
}

// New validates the parameters and returns the family member.
func New(seed, index uint64, bins int) (Family, error) {
	if bins <= 0 {
		return Family{}, &ConfigurationError{Field: "bins", Msg: "must be a positive integer"}
	}
	return Family{Seed: seed, Index: index, Bins: bins}, nil
}

// Bin maps label into [0, Bins).
func (f Family) Bin(label string) int {
	return f.BinOf(BaseOf(f.Seed, label))
}

// BinOf derives this member's bin from precomputed base hashes.
func (f Family) BinOf(b Base) int {
	// uint64 arithmetic wraps, so the sum is never negative.
	return int((b.H1 + f.Index*b.H2) % uint64(f.Bins))
}

// BaseOf computes both base hashes of label under seed, one pass each.
func BaseOf(seed uint64, label string) Base {
	return Base{H1: djb2(seed, label), H2: fnv1a(seed, label)}
}

func djb2(seed uint64, label string) uint64 {
	h := seed
	for i := 0; i < len(label); i++ {
		h = (h << 5) + h + uint64(label[i])
	}
	return h
}

func fnv1a(seed uint64, label string) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	h.Write(buf[:])
	h.Write([]byte(label))
	// an odd step keeps index-derived members distinct for power-of-two bins
	return h.Sum64() | 1
}
