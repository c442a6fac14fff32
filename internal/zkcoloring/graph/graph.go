// Package graph defines the GraphInstance data model — the directed
// graph, its witness coloring, and the blank-edge set — together with the
// per-round permutation witness the protocol commits to.
package graph

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/coloration"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
)

// Edge is a directed edge (u,v), u,v in [0,n).
type Edge struct {
	U, V int
}

// Instance is a complete proof witness: the graph, a proper coloring
// (modulo the declared blank edges), and the coloration relation and
// blank budget it is checked against.
type Instance struct {
	N           int
	Edges       []Edge // canonical lexicographic order
	Coloring    []int  // length N, values in {0,1,2}
	BlankMask   []bool // length len(Edges)
	Coloration  coloration.Set
	BlankBudget uint32
}

// Validate checks every structural invariant from the data model: edge
// endpoints in range, canonical edge ordering, coloring values in range,
// and every non-blank edge's endpoint-color pair in the coloration
// relation. It deliberately does not check the blank count against the
// budget: an over-budget instance is still well-formed, and it is the
// blank-count STARK that refuses it, when the proof is built.
func (inst *Instance) Validate() error {
	if inst.N <= 0 {
		return fmt.Errorf("graph: n must be positive, got %d", inst.N)
	}
	if len(inst.Coloring) != inst.N {
		return fmt.Errorf("graph: coloring has %d entries, want %d", len(inst.Coloring), inst.N)
	}
	if len(inst.BlankMask) != len(inst.Edges) {
		return fmt.Errorf("graph: blank mask has %d entries, want %d", len(inst.BlankMask), len(inst.Edges))
	}
	for _, c := range inst.Coloring {
		if c < 0 || c > 2 {
			return fmt.Errorf("graph: coloring value %d out of range {0,1,2}", c)
		}
	}
	for i, e := range inst.Edges {
		if e.U < 0 || e.U >= inst.N || e.V < 0 || e.V >= inst.N {
			return fmt.Errorf("graph: edge %d (%d,%d) has endpoint out of range [0,%d)", i, e.U, e.V, inst.N)
		}
		if i > 0 && !lessEdge(inst.Edges[i-1], e) {
			return fmt.Errorf("graph: edges not in canonical lexicographic order at index %d", i)
		}
	}

	for i, e := range inst.Edges {
		if inst.BlankMask[i] {
			continue
		}
		if !inst.Coloration.Valid(inst.Coloring[e.U], inst.Coloring[e.V]) {
			return fmt.Errorf("graph: edge %d (%d,%d) violates the coloration relation", i, e.U, e.V)
		}
	}
	return nil
}

// BlankCount returns the number of edges declared blank.
func (inst *Instance) BlankCount() uint32 {
	var n uint32
	for _, b := range inst.BlankMask {
		if b {
			n++
		}
	}
	return n
}

func lessEdge(a, b Edge) bool {
	if a.U != b.U {
		return a.U < b.U
	}
	return a.V < b.V
}

// CommitInstance computes the canonical 32-byte digest of the instance:
// n, m, every edge, the coloring, the blank mask, the coloration mask,
// and the blank budget, each length-prefixed or fixed-width to avoid
// ambiguity.
func CommitInstance(inst *Instance) ([32]byte, error) {
	if err := inst.Validate(); err != nil {
		return [32]byte{}, fmt.Errorf("graph: cannot commit an invalid instance: %w", err)
	}
	buf := make([]byte, 0, 64+8*len(inst.Edges)+len(inst.Coloring))

	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(inst.N))
	buf = append(buf, u32[:]...)
	binary.BigEndian.PutUint32(u32[:], uint32(len(inst.Edges)))
	buf = append(buf, u32[:]...)

	for _, e := range inst.Edges {
		binary.BigEndian.PutUint32(u32[:], uint32(e.U))
		buf = append(buf, u32[:]...)
		binary.BigEndian.PutUint32(u32[:], uint32(e.V))
		buf = append(buf, u32[:]...)
	}
	for _, c := range inst.Coloring {
		buf = append(buf, byte(c))
	}
	for _, b := range inst.BlankMask {
		if b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], inst.Coloration.Mask())
	buf = append(buf, u16[:]...)
	binary.BigEndian.PutUint32(u32[:], inst.BlankBudget)
	buf = append(buf, u32[:]...)

	return hash.Absorb(buf), nil
}

// Permutation is a bijection on {0,1,2}.
type Permutation struct {
	p [3]int
}

// Apply returns the permuted color σ(color).
func (p Permutation) Apply(color int) int { return p.p[color] }

// Identity is the trivial permutation.
func Identity() Permutation { return Permutation{p: [3]int{0, 1, 2}} }

// RandomPermutation draws a uniformly random permutation of {0,1,2}
// using the system cryptographic RNG local to the prover; this is the
// zero-knowledge witness and must never be derived from the transcript.
func RandomPermutation() (Permutation, error) {
	return RandomPermutationFrom(rand.Reader)
}

// RandomPermutationFrom draws a uniformly random permutation of {0,1,2}
// from rng, the same witness RandomPermutation draws except the entropy
// source is caller-supplied. A proving session that wants its sequence
// of per-round permutations to be reproducible (for recorded replay or
// tests) passes a deterministic rng seeded outside the transcript; an
// honest production prover passes crypto/rand.Reader, i.e. calls
// RandomPermutation instead.
func RandomPermutationFrom(rng io.Reader) (Permutation, error) {
	perms := [][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2},
		{1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	n, err := rand.Int(rng, big.NewInt(int64(len(perms))))
	if err != nil {
		return Permutation{}, fmt.Errorf("graph: failed to draw random permutation: %w", err)
	}
	return Permutation{p: perms[n.Int64()]}, nil
}

// RoundWitness is the per-round witness derived from applying a
// permutation to the base coloring: the permuted per-vertex colors, the
// resulting per-edge endpoint-color pairs, and the blank-bit vector.
type RoundWitness struct {
	Sigma      Permutation
	Colored    []int       // χ_r(v) for v in [0,n)
	EdgeColors [][2]int    // ε_r[e] = (χ_r(u), χ_r(v))
	BlankBits  []bool
}

// ComputeRoundWitness derives the per-round witness for sigma applied to
// inst's base coloring.
func ComputeRoundWitness(inst *Instance, sigma Permutation) RoundWitness {
	colored := make([]int, inst.N)
	for v, c := range inst.Coloring {
		colored[v] = sigma.Apply(c)
	}
	edgeColors := make([][2]int, len(inst.Edges))
	for i, e := range inst.Edges {
		edgeColors[i] = [2]int{colored[e.U], colored[e.V]}
	}
	blankBits := make([]bool, len(inst.BlankMask))
	copy(blankBits, inst.BlankMask)
	return RoundWitness{Sigma: sigma, Colored: colored, EdgeColors: edgeColors, BlankBits: blankBits}
}
