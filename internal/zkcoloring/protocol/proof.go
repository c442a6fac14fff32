package protocol

import (
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/merkle"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/stark"
)

// RoundProof is one round's commitment triple plus the batched Merkle
// openings its spot checks and blank probes demanded. EdgeProof is
// present whenever the round has a spot check or a blank-marked probe,
// since every spot opens its edge leaf in both coin modes; PermProof is
// nil unless the coin selected permutation mode. BlankProof is always
// present, since every spot and every blank probe reveals a blank bit.
type RoundProof struct {
	EdgeRoot  hash.Digest
	PermRoot  hash.Digest
	BlankRoot hash.Digest

	EdgeProof  *merkle.Proof
	PermProof  *merkle.Proof
	BlankProof *merkle.Proof
}

// Proof is the complete, self-contained output of Prove: every round's
// commitments and openings, plus the blank-count STARK and the extra
// blank-bit opening that cross-checks the STARK's trace against the
// protocol's own commitments.
type Proof struct {
	InstanceDigest [32]byte
	Config         *VerifierConfig
	M              int // edge count, fixes the index universe every round challenges against
	N              int // vertex count, fixes the permutation tree's index universe

	Rounds []RoundProof

	Stark                *stark.Proof
	StarkOpenIndices     []int // ascending, deduped union of every round's blank-probe indices
	CrossCheckBlankProof *merkle.Proof
}
