package protocol

import (
	"fmt"
	"strings"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/graph"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/merkle"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/stark"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/transcript"
)

// Verify replays the same transcript a correct prover would have built
// for pub and cfg, checks every round's Merkle openings and spot-check
// equations, and checks the blank-count STARK, including its cross-check
// against the protocol's own blank commitments. It returns nil on
// acceptance and a *RejectError on any rejection; the first failure is
// fatal, matching spec.md's "no partial acceptance" terminal-state rule.
func Verify(pub *graph.PublicInstance, instanceDigest [32]byte, cfg *VerifierConfig, proof *Proof) error {
	if err := cfg.Validate(); err != nil {
		return reject(ErrInvalidConfig, "%v", err)
	}
	if err := pub.Validate(); err != nil {
		return reject(ErrInvalidConfig, "invalid public instance: %v", err)
	}
	if proof == nil {
		return reject(ErrMalformedProof, "proof is nil")
	}
	if proof.Config == nil || !configsEqual(proof.Config, cfg) {
		return reject(ErrTranscriptDesync, "verifier config does not match the configuration the proof was built under")
	}
	m := len(pub.Edges)
	if proof.M != m || proof.N != pub.N {
		return reject(ErrMalformedProof, "proof graph shape (m=%d,n=%d) does not match the public instance (m=%d,n=%d)", proof.M, proof.N, m, pub.N)
	}
	if len(proof.Rounds) != int(cfg.Rounds) {
		return reject(ErrMalformedProof, "proof carries %d rounds, configuration demands %d", len(proof.Rounds), cfg.Rounds)
	}

	tr := transcript.New(protocolID)
	seedTranscript(tr, instanceDigest, cfg, pub.BlankBudget)

	blankProbeUnion := map[int]bool{}
	var commonBlankRoot hash.Digest
	haveBlankRoot := false

	for r := range proof.Rounds {
		rp := &proof.Rounds[r]
		probed, err := verifyRound(tr, pub, cfg, r, rp)
		if err != nil {
			return err
		}
		for _, idx := range probed {
			blankProbeUnion[idx] = true
		}
		if !haveBlankRoot {
			commonBlankRoot = rp.BlankRoot
			haveBlankRoot = true
		} else if rp.BlankRoot != commonBlankRoot {
			return rejectAt(ErrBadMerkleOpening, r, -1, "round's blank commitment disagrees with round 0's; the blank set must not change across rounds")
		}
	}

	starkOpenIdx := sortedKeysSet(blankProbeUnion)
	if !sameIntSlice(starkOpenIdx, proof.StarkOpenIndices) {
		return reject(ErrTranscriptDesync, "the proof's declared stark cross-check indices do not match the transcript-derived blank-probe union")
	}

	starkCfg := stark.Config{FRIQueries: cfg.FRIQueries, FRIBlowupLog2: cfg.FRIBlowupLog2}
	openedBits, err := stark.Verify(tr, m, pub.BlankBudget, starkCfg, proof.Stark)
	if err != nil {
		return classifyStarkError(err)
	}

	if len(starkOpenIdx) > 0 {
		if proof.CrossCheckBlankProof == nil {
			return reject(ErrMalformedProof, "proof is missing the stark/blank cross-check opening")
		}
		ok, err := merkle.Verify(commonBlankRoot, starkOpenIdx, int(cfg.ChunkSize), proof.CrossCheckBlankProof)
		if err != nil {
			return reject(ErrMalformedProof, "blank cross-check opening: %v", err)
		}
		if !ok {
			return reject(ErrBadMerkleOpening, "blank cross-check opening failed against the rounds' blank commitment")
		}
		for _, idx := range starkOpenIdx {
			raw, err := itemFromProof(proof.CrossCheckBlankProof.Chunks, idx, blankItemWidth, int(cfg.ChunkSize))
			if err != nil {
				return reject(ErrMalformedProof, "%v", err)
			}
			if decodeBlankItem(raw) != openedBits[idx] {
				return rejectAt(ErrBlankMismatch, -1, idx, "stark trace bit disagrees with the protocol's own blank-bit opening at this index")
			}
		}
	}

	return nil
}

// verifyRound replays one round's challenge derivation and checks its
// openings; it returns the round's blank-probe index set so the caller
// can fold it into the global STARK cross-check universe.
func verifyRound(tr *transcript.Transcript, pub *graph.PublicInstance, cfg *VerifierConfig, r int, rp *RoundProof) ([]int, error) {
	var roots [96]byte
	copy(roots[0:32], rp.EdgeRoot[:])
	copy(roots[32:64], rp.PermRoot[:])
	copy(roots[64:96], rp.BlankRoot[:])
	tr.Absorb(fmt.Sprintf("round%d:roots", r), roots[:])

	m := len(pub.Edges)
	chunkSize := int(cfg.ChunkSize)

	spotIdx, err := drawDistinctIndices(tr, fmt.Sprintf("round%d:spot", r), m, int(cfg.SpotsPerRound))
	if err != nil {
		return nil, reject(ErrInvalidConfig, "%v", err)
	}

	var blankIdx []int
	if cfg.BlankStrategy == Full {
		tr.Absorb(fmt.Sprintf("round%d:blank-full", r), []byte{1})
		blankIdx = allIndices(m)
	} else {
		blankIdx, err = drawDistinctIndices(tr, fmt.Sprintf("round%d:blank", r), m, int(cfg.BlankChecksPerRound))
		if err != nil {
			return nil, reject(ErrInvalidConfig, "%v", err)
		}
	}
	coin := Coin(tr.ChallengeU64(fmt.Sprintf("round%d:mode", r)) & 1)

	blankOpenIdx := unionSorted(append([]int{}, spotIdx...), blankIdx)
	if rp.BlankProof == nil {
		return nil, rejectAt(ErrMalformedProof, r, -1, "round is missing its blank-bit opening")
	}
	ok, err := merkle.Verify(rp.BlankRoot, blankOpenIdx, chunkSize, rp.BlankProof)
	if err != nil {
		return nil, rejectAt(ErrMalformedProof, r, -1, "blank opening: %v", err)
	}
	if !ok {
		return nil, rejectAt(ErrBadMerkleOpening, r, -1, "blank-bit opening failed Merkle verification")
	}

	bitAt := make(map[int]bool, len(blankOpenIdx))
	for _, idx := range blankOpenIdx {
		raw, err := itemFromProof(rp.BlankProof.Chunks, idx, blankItemWidth, chunkSize)
		if err != nil {
			return nil, rejectAt(ErrMalformedProof, r, idx, "%v", err)
		}
		bitAt[idx] = decodeBlankItem(raw)
	}

	for _, e := range spotIdx {
		if bitAt[e] {
			return nil, rejectAt(ErrSpotMarkedBlank, r, e, "spot-challenged edge is marked blank")
		}
	}

	// L_edge[e] is required for every spot regardless of coin mode: in
	// endpoints mode it carries the coloration check directly, and in
	// permutation mode it lets the verifier bind the permuted colors back
	// to the edge commitment (spec.md §4.4 step 5).
	var edgeOpenIdx []int
	edgeOpenIdx = append(edgeOpenIdx, spotIdx...)
	for _, e := range blankIdx {
		if bitAt[e] {
			edgeOpenIdx = append(edgeOpenIdx, e)
		}
	}
	edgeOpenIdx = dedupSorted(edgeOpenIdx)
	if len(edgeOpenIdx) > 0 {
		if rp.EdgeProof == nil {
			return nil, rejectAt(ErrMalformedProof, r, -1, "round is missing a required edge opening")
		}
		ok, err := merkle.Verify(rp.EdgeRoot, edgeOpenIdx, chunkSize, rp.EdgeProof)
		if err != nil {
			return nil, rejectAt(ErrMalformedProof, r, -1, "edge opening: %v", err)
		}
		if !ok {
			return nil, rejectAt(ErrBadMerkleOpening, r, -1, "edge opening failed Merkle verification")
		}
	}

	if coin == CoinEndpoints {
		for _, e := range spotIdx {
			raw, err := itemFromProof(rp.EdgeProof.Chunks, e, edgeItemWidth, chunkSize)
			if err != nil {
				return nil, rejectAt(ErrMalformedProof, r, e, "%v", err)
			}
			a, b := decodeEdgeItem(raw)
			if !pub.Coloration.Valid(a, b) {
				return nil, rejectAt(ErrSpotViolatesColoration, r, e, "opened endpoint pair (%d,%d) is not admissible", a, b)
			}
		}
	} else {
		var permOpenIdx []int
		for _, e := range spotIdx {
			edge := pub.Edges[e]
			permOpenIdx = append(permOpenIdx, edge.U, edge.V)
		}
		permOpenIdx = dedupSorted(permOpenIdx)
		if len(permOpenIdx) > 0 {
			if rp.PermProof == nil {
				return nil, rejectAt(ErrMalformedProof, r, -1, "round is missing a required permutation opening")
			}
			ok, err := merkle.Verify(rp.PermRoot, permOpenIdx, chunkSize, rp.PermProof)
			if err != nil {
				return nil, rejectAt(ErrMalformedProof, r, -1, "permutation opening: %v", err)
			}
			if !ok {
				return nil, rejectAt(ErrBadMerkleOpening, r, -1, "permutation opening failed Merkle verification")
			}
		}
		for _, e := range spotIdx {
			edge := pub.Edges[e]
			rawU, err := itemFromProof(rp.PermProof.Chunks, edge.U, permItemWidth, chunkSize)
			if err != nil {
				return nil, rejectAt(ErrMalformedProof, r, edge.U, "%v", err)
			}
			rawV, err := itemFromProof(rp.PermProof.Chunks, edge.V, permItemWidth, chunkSize)
			if err != nil {
				return nil, rejectAt(ErrMalformedProof, r, edge.V, "%v", err)
			}
			cu, cv := decodePermItem(rawU), decodePermItem(rawV)
			if !pub.Coloration.Valid(cu, cv) {
				return nil, rejectAt(ErrSpotViolatesColoration, r, e, "permuted endpoint colors (%d,%d) are not admissible", cu, cv)
			}

			// Bind the permutation commitment back to the edge commitment:
			// the permuted endpoint colors must be the same pair the edge
			// leaf itself commits to (spec.md §4.4 step 5, (χ_r(u),χ_r(v))
			// = ε_r[e]).
			rawEdge, err := itemFromProof(rp.EdgeProof.Chunks, e, edgeItemWidth, chunkSize)
			if err != nil {
				return nil, rejectAt(ErrMalformedProof, r, e, "%v", err)
			}
			a, b := decodeEdgeItem(rawEdge)
			if a != cu || b != cv {
				return nil, rejectAt(ErrSpotViolatesColoration, r, e, "permuted endpoint colors (%d,%d) disagree with the edge commitment's pair (%d,%d)", cu, cv, a, b)
			}
		}
	}

	tr.Absorb(fmt.Sprintf("round%d:response", r), EncodeRoundProof(rp))
	return blankIdx, nil
}

func configsEqual(a, b *VerifierConfig) bool {
	return a.Rounds == b.Rounds &&
		a.SpotsPerRound == b.SpotsPerRound &&
		a.BlankChecksPerRound == b.BlankChecksPerRound &&
		a.ChunkSize == b.ChunkSize &&
		a.BlankStrategy == b.BlankStrategy &&
		a.FRIQueries == b.FRIQueries &&
		a.FRIBlowupLog2 == b.FRIBlowupLog2
}

// classifyStarkError maps the blank-count STARK's generic verification
// error into the nearest spec.md §7 reject kind its message describes.
func classifyStarkError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "fri"):
		return reject(ErrFriInconsistent, "%v", err)
	case strings.Contains(msg, "boolean"), strings.Contains(msg, "budget"), strings.Contains(msg, "boundary"):
		return reject(ErrBlankBudgetExceeded, "%v", err)
	case strings.Contains(msg, "merkle"), strings.Contains(msg, "Merkle"):
		return reject(ErrBadMerkleOpening, "%v", err)
	default:
		return reject(ErrStarkConstraint, "%v", err)
	}
}
