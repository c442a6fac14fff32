package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/graph"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/merkle"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/stark"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/transcript"
)

// protocolID seeds every transcript, binding challenges to this specific
// protocol so a transcript recorded for one system can never be replayed
// against another.
const protocolID = "ZKPCC-coloring-v1"

// Prove runs the full R-round protocol against inst under cfg, drawing
// every round's zero-knowledge permutation witness from seed, and emits a
// self-contained, non-interactive proof. It never retries: a structurally
// invalid instance is refused outright, matching spec.md's prover
// contract; an over-budget instance passes the structural checks but is
// refused when the blank-count STARK is built, since its budget boundary
// constraint cannot be satisfied.
//
// seed is the proving session's rng_seed (spec.md §6, §9): proving the
// same instance under the same configuration and seed twice yields a
// byte-identical transcript, since seed alone (never the public
// transcript) determines the sigma sequence. Callers that want
// independent, non-replayable randomness should draw seed fresh via
// NewRandomSeed for every proving session.
func Prove(inst *graph.Instance, cfg *VerifierConfig, seed [32]byte) (*Proof, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("protocol: %w", err)
	}
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("protocol: refusing to prove a structurally invalid instance: %w", err)
	}

	digest, err := graph.CommitInstance(inst)
	if err != nil {
		return nil, fmt.Errorf("protocol: %w", err)
	}

	tr := transcript.New(protocolID)
	seedTranscript(tr, digest, cfg, inst.BlankBudget)

	rng := newSeededReader(seed)
	m := len(inst.Edges)
	rounds := make([]RoundProof, cfg.Rounds)
	blankProbeUnion := map[int]bool{}

	for r := 0; r < int(cfg.Rounds); r++ {
		rp, probed, err := proveRound(tr, rng, inst, cfg, r)
		if err != nil {
			return nil, fmt.Errorf("protocol: round %d: %w", r, err)
		}
		rounds[r] = rp
		for _, idx := range probed {
			blankProbeUnion[idx] = true
		}
	}

	starkOpenIdx := sortedKeysSet(blankProbeUnion)
	starkCfg := stark.Config{FRIQueries: cfg.FRIQueries, FRIBlowupLog2: cfg.FRIBlowupLog2}
	starkProof, err := stark.Prove(tr, inst.BlankMask, inst.BlankBudget, starkCfg, starkOpenIdx)
	if err != nil {
		return nil, fmt.Errorf("protocol: blank-count stark: %w", err)
	}

	var crossCheck *merkle.Proof
	if len(starkOpenIdx) > 0 {
		blankTree, err := buildBlankTree(inst, int(cfg.ChunkSize))
		if err != nil {
			return nil, fmt.Errorf("protocol: %w", err)
		}
		crossCheck, err = blankTree.Open(starkOpenIdx)
		if err != nil {
			return nil, fmt.Errorf("protocol: opening blank cross-check: %w", err)
		}
	}

	return &Proof{
		InstanceDigest:       digest,
		Config:               cfg.Clone(),
		M:                    m,
		N:                    inst.N,
		Rounds:               rounds,
		Stark:                starkProof,
		StarkOpenIndices:     starkOpenIdx,
		CrossCheckBlankProof: crossCheck,
	}, nil
}

// seedTranscript absorbs the fixed protocol context spec.md's §4.3
// requires before any round: the instance digest, the verifier
// configuration, and the blank budget.
func seedTranscript(tr *transcript.Transcript, digest [32]byte, cfg *VerifierConfig, budget uint32) {
	tr.Absorb("instance-digest", digest[:])
	tr.Absorb("verifier-config", EncodeVerifierConfig(cfg))
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], budget)
	tr.Absorb("blank-budget", b[:])
}

// buildBlankTree commits the instance's blank-bit vector alone, the same
// construction proveRound uses for its per-round blank tree. Because the
// blank vector is never permuted, this reproduces exactly the same root
// every round committed, and provides the extra opening the blank-count
// STARK's trace cross-checks against.
func buildBlankTree(inst *graph.Instance, chunkSize int) (*merkle.Tree, error) {
	items := make([][]byte, len(inst.BlankMask))
	for i, b := range inst.BlankMask {
		items[i] = encodeBlankItem(b)
	}
	tree, err := merkle.Commit(items, blankItemWidth, chunkSize)
	if err != nil {
		return nil, fmt.Errorf("committing blank vector: %w", err)
	}
	return tree, nil
}

// proveRound executes one round's commit/challenge/response sequence
// against tr, returning the round's proof and the set of edge indices its
// blank probe touched (folded into the global STARK cross-check set by
// the caller).
func proveRound(tr *transcript.Transcript, rng io.Reader, inst *graph.Instance, cfg *VerifierConfig, r int) (RoundProof, []int, error) {
	sigma, err := graph.RandomPermutationFrom(rng)
	if err != nil {
		return RoundProof{}, nil, fmt.Errorf("drawing round permutation: %w", err)
	}
	w := graph.ComputeRoundWitness(inst, sigma)
	m := len(inst.Edges)

	edgeItems := make([][]byte, m)
	for i, ec := range w.EdgeColors {
		edgeItems[i] = encodeEdgeItem(ec[0], ec[1])
	}
	permItems := make([][]byte, inst.N)
	for v, c := range w.Colored {
		permItems[v] = encodePermItem(c)
	}
	blankItems := make([][]byte, m)
	for i, b := range w.BlankBits {
		blankItems[i] = encodeBlankItem(b)
	}

	chunkSize := int(cfg.ChunkSize)
	edgeTree, err := merkle.Commit(edgeItems, edgeItemWidth, chunkSize)
	if err != nil {
		return RoundProof{}, nil, fmt.Errorf("committing edge leaves: %w", err)
	}
	permTree, err := merkle.Commit(permItems, permItemWidth, chunkSize)
	if err != nil {
		return RoundProof{}, nil, fmt.Errorf("committing permutation leaves: %w", err)
	}
	blankTree, err := merkle.Commit(blankItems, blankItemWidth, chunkSize)
	if err != nil {
		return RoundProof{}, nil, fmt.Errorf("committing blank leaves: %w", err)
	}

	roundRootsLabel := fmt.Sprintf("round%d:roots", r)
	var roots [3 * 32]byte
	edgeRoot, permRoot, blankRoot := edgeTree.Root(), permTree.Root(), blankTree.Root()
	copy(roots[0:32], edgeRoot[:])
	copy(roots[32:64], permRoot[:])
	copy(roots[64:96], blankRoot[:])
	tr.Absorb(roundRootsLabel, roots[:])

	spotIdx, err := drawDistinctIndices(tr, fmt.Sprintf("round%d:spot", r), m, int(cfg.SpotsPerRound))
	if err != nil {
		return RoundProof{}, nil, err
	}

	var blankIdx []int
	if cfg.BlankStrategy == Full {
		tr.Absorb(fmt.Sprintf("round%d:blank-full", r), []byte{1})
		blankIdx = allIndices(m)
	} else {
		blankIdx, err = drawDistinctIndices(tr, fmt.Sprintf("round%d:blank", r), m, int(cfg.BlankChecksPerRound))
		if err != nil {
			return RoundProof{}, nil, err
		}
	}
	coin := Coin(tr.ChallengeU64(fmt.Sprintf("round%d:mode", r)) & 1)

	blankOpenIdx := unionSorted(append([]int{}, spotIdx...), blankIdx)
	blankProof, err := blankTree.Open(blankOpenIdx)
	if err != nil {
		return RoundProof{}, nil, fmt.Errorf("opening blank leaves: %w", err)
	}

	// L_edge[e] is opened for every spot regardless of coin mode: in
	// endpoints mode it carries the coloration check directly, and in
	// permutation mode it lets the verifier bind the permuted colors back
	// to the edge commitment (spec.md §4.4 step 5).
	var edgeOpenIdx []int
	edgeOpenIdx = append(edgeOpenIdx, spotIdx...)
	for _, e := range blankIdx {
		if w.BlankBits[e] {
			edgeOpenIdx = append(edgeOpenIdx, e)
		}
	}
	edgeOpenIdx = dedupSorted(edgeOpenIdx)
	var edgeProof *merkle.Proof
	if len(edgeOpenIdx) > 0 {
		edgeProof, err = edgeTree.Open(edgeOpenIdx)
		if err != nil {
			return RoundProof{}, nil, fmt.Errorf("opening edge leaves: %w", err)
		}
	}

	var permOpenIdx []int
	if coin == CoinPermutation {
		for _, e := range spotIdx {
			edge := inst.Edges[e]
			permOpenIdx = append(permOpenIdx, edge.U, edge.V)
		}
		permOpenIdx = dedupSorted(permOpenIdx)
	}
	var permProof *merkle.Proof
	if len(permOpenIdx) > 0 {
		permProof, err = permTree.Open(permOpenIdx)
		if err != nil {
			return RoundProof{}, nil, fmt.Errorf("opening permutation leaves: %w", err)
		}
	}

	rp := RoundProof{
		EdgeRoot:   edgeRoot,
		PermRoot:   permRoot,
		BlankRoot:  blankRoot,
		EdgeProof:  edgeProof,
		PermProof:  permProof,
		BlankProof: blankProof,
	}
	tr.Absorb(fmt.Sprintf("round%d:response", r), EncodeRoundProof(&rp))

	return rp, blankIdx, nil
}
