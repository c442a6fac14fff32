package protocol

import (
	"testing"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/coloration"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/graph"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/merkle"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/stark"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/transcript"
)

// sixEdgeInstance is a small directed graph with one deliberately blank,
// coloration-violating edge: vertices 0..4 are colored {0,1,0,1,2}, and
// edge (0,2) (colors 0,0) is marked blank rather than fixed.
func sixEdgeInstance() *graph.Instance {
	return &graph.Instance{
		N: 5,
		Edges: []graph.Edge{
			{U: 0, V: 1}, {U: 0, V: 2}, {U: 1, V: 2},
			{U: 2, V: 3}, {U: 3, V: 4}, {U: 4, V: 0},
		},
		Coloring:    []int{0, 1, 0, 1, 2},
		BlankMask:   []bool{false, true, false, false, false, false},
		Coloration:  coloration.Distinct(),
		BlankBudget: 1,
	}
}

func testConfig() *VerifierConfig {
	return &VerifierConfig{
		Rounds:              6,
		SpotsPerRound:       2,
		BlankChecksPerRound: 2,
		ChunkSize:           2,
		BlankStrategy:       Sampling,
		FRIQueries:          8,
		FRIBlowupLog2:       2,
	}
}

func fixedSeed(b byte) [32]byte {
	var s [32]byte
	for i := range s {
		s[i] = b
	}
	return s
}

func TestProveVerifyAcceptsValidInstance(t *testing.T) {
	inst := sixEdgeInstance()
	cfg := testConfig()
	proof, err := Prove(inst, cfg, fixedSeed(1))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	digest, err := graph.CommitInstance(inst)
	if err != nil {
		t.Fatalf("CommitInstance: %v", err)
	}
	if err := Verify(inst.Public(), digest, cfg, proof); err != nil {
		t.Fatalf("Verify rejected a valid proof: %v", err)
	}
}

func TestProveVerifyFullStrategyAccepts(t *testing.T) {
	inst := sixEdgeInstance()
	cfg := testConfig().WithBlankStrategy(Full)
	proof, err := Prove(inst, cfg, fixedSeed(2))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	digest, err := graph.CommitInstance(inst)
	if err != nil {
		t.Fatalf("CommitInstance: %v", err)
	}
	if err := Verify(inst.Public(), digest, cfg, proof); err != nil {
		t.Fatalf("Verify rejected a valid Full-strategy proof: %v", err)
	}
}

func TestProveDeterministicUnderFixedSeed(t *testing.T) {
	inst := sixEdgeInstance()
	cfg := testConfig()
	seed := fixedSeed(7)
	p1, err := Prove(inst, cfg, seed)
	if err != nil {
		t.Fatalf("Prove (first run): %v", err)
	}
	p2, err := Prove(inst, cfg, seed)
	if err != nil {
		t.Fatalf("Prove (second run): %v", err)
	}
	if string(p1.Marshal()) != string(p2.Marshal()) {
		t.Fatalf("Prove(inst, cfg, seed) was not byte-for-byte identical across runs")
	}
}

func TestProveDiffersAcrossSeeds(t *testing.T) {
	inst := sixEdgeInstance()
	cfg := testConfig()
	p1, err := Prove(inst, cfg, fixedSeed(7))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	p2, err := Prove(inst, cfg, fixedSeed(8))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if string(p1.Marshal()) == string(p2.Marshal()) {
		t.Fatalf("two different seeds produced the same transcript")
	}
}

func TestProveRefusesStructurallyInvalidInstance(t *testing.T) {
	inst := sixEdgeInstance()
	inst.Coloring = []int{0, 0, 0, 1, 2} // edge (0,1) now violates and isn't blank
	cfg := testConfig()
	if _, err := Prove(inst, cfg, fixedSeed(1)); err == nil {
		t.Fatalf("Prove accepted a structurally invalid instance")
	}
}

func TestProveRefusesOverBudgetAtStark(t *testing.T) {
	inst := sixEdgeInstance()
	inst.BlankBudget = 0 // one blank edge, zero budget
	cfg := testConfig()
	if _, err := Prove(inst, cfg, fixedSeed(1)); err == nil {
		t.Fatalf("Prove accepted an over-budget instance")
	}
}

func TestVerifyRejectsMismatchedConfig(t *testing.T) {
	inst := sixEdgeInstance()
	cfg := testConfig()
	proof, err := Prove(inst, cfg, fixedSeed(1))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	digest, err := graph.CommitInstance(inst)
	if err != nil {
		t.Fatalf("CommitInstance: %v", err)
	}
	otherCfg := testConfig().WithRounds(8)
	err = Verify(inst.Public(), digest, otherCfg, proof)
	if err == nil {
		t.Fatalf("Verify accepted a proof built under a different configuration")
	}
	re, ok := err.(*RejectError)
	if !ok {
		t.Fatalf("expected a *RejectError, got %T", err)
	}
	if re.Kind != ErrTranscriptDesync {
		t.Fatalf("expected ErrTranscriptDesync, got %v", re.Kind)
	}
}

func TestVerifyRejectsTamperedOpening(t *testing.T) {
	inst := sixEdgeInstance()
	cfg := testConfig()
	proof, err := Prove(inst, cfg, fixedSeed(1))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	digest, err := graph.CommitInstance(inst)
	if err != nil {
		t.Fatalf("CommitInstance: %v", err)
	}

	tampered := findOpenedChunk(t, &proof.Rounds[0])
	tampered[0] ^= 0xFF

	err = Verify(inst.Public(), digest, cfg, proof)
	if err == nil {
		t.Fatalf("Verify accepted a proof with a tampered Merkle opening")
	}
	if _, ok := err.(*RejectError); !ok {
		t.Fatalf("expected a *RejectError, got %T", err)
	}
}

func TestVerifyRejectsWrongInstanceDigest(t *testing.T) {
	inst := sixEdgeInstance()
	cfg := testConfig()
	proof, err := Prove(inst, cfg, fixedSeed(1))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	var wrongDigest [32]byte
	wrongDigest[0] = 0xAB
	err = Verify(inst.Public(), wrongDigest, cfg, proof)
	if err == nil {
		t.Fatalf("Verify accepted a proof checked against the wrong instance digest")
	}
}

func TestVerifyRejectsInvalidColoringOnPermutedSpot(t *testing.T) {
	// Bypasses the honest Prove entrypoint's inst.Validate() gate to model
	// an adversarial prover that commits to a coloring violating the
	// coloration relation on a non-blank edge; the round's spot check must
	// catch it regardless of which coin the transcript draws.
	inst := sixEdgeInstance()
	inst.Coloring = []int{0, 0, 0, 1, 2} // edge (0,1) now monochromatic and not blank
	cfg := testConfig().WithRounds(12).WithSpotsPerRound(4)

	digest, err := graph.CommitInstance(sixEdgeInstance())
	if err != nil {
		t.Fatalf("CommitInstance: %v", err)
	}

	proof := proveUncheckedForTest(t, inst, cfg, digest, fixedSeed(3))

	err = Verify(sixEdgeInstance().Public(), digest, cfg, proof)
	if err == nil {
		t.Fatalf("Verify accepted a proof built over an invalid coloring")
	}
	re, ok := err.(*RejectError)
	if !ok {
		t.Fatalf("expected a *RejectError, got %T", err)
	}
	if re.Kind != ErrSpotViolatesColoration {
		t.Fatalf("expected ErrSpotViolatesColoration, got %v", re.Kind)
	}
}

// findOpenedChunk returns a byte slice backing one of round 0's actual
// opened chunk payloads, for tests that want to flip a bit inside a real
// Merkle leaf rather than fabricate one out of thin air.
func findOpenedChunk(t *testing.T, rp *RoundProof) []byte {
	t.Helper()
	if rp.BlankProof != nil {
		for _, chunk := range rp.BlankProof.Chunks {
			if len(chunk) > 0 {
				return chunk
			}
		}
	}
	if rp.EdgeProof != nil {
		for _, chunk := range rp.EdgeProof.Chunks {
			if len(chunk) > 0 {
				return chunk
			}
		}
	}
	if rp.PermProof != nil {
		for _, chunk := range rp.PermProof.Chunks {
			if len(chunk) > 0 {
				return chunk
			}
		}
	}
	t.Fatal("round has no opened chunks to tamper with")
	return nil
}

// proveUncheckedForTest reproduces Prove's body without its inst.Validate()
// gate, letting soundness tests commit to a structurally invalid coloring
// the way a cheating prover would.
func proveUncheckedForTest(t *testing.T, inst *graph.Instance, cfg *VerifierConfig, digest [32]byte, seed [32]byte) *Proof {
	t.Helper()
	tr := transcript.New(protocolID)
	seedTranscript(tr, digest, cfg, inst.BlankBudget)
	rng := newSeededReader(seed)

	rounds := make([]RoundProof, cfg.Rounds)
	blankProbeUnion := map[int]bool{}
	for r := 0; r < int(cfg.Rounds); r++ {
		rp, probed, err := proveRound(tr, rng, inst, cfg, r)
		if err != nil {
			t.Fatalf("proveRound: %v", err)
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
		t.Fatalf("stark.Prove: %v", err)
	}

	var crossProof *merkle.Proof
	if len(starkOpenIdx) > 0 {
		blankTree, err := buildBlankTree(inst, int(cfg.ChunkSize))
		if err != nil {
			t.Fatalf("buildBlankTree: %v", err)
		}
		crossProof, err = blankTree.Open(starkOpenIdx)
		if err != nil {
			t.Fatalf("opening blank cross-check: %v", err)
		}
	}

	return &Proof{
		InstanceDigest:       digest,
		Config:               cfg.Clone(),
		M:                    len(inst.Edges),
		N:                    inst.N,
		Rounds:               rounds,
		Stark:                starkProof,
		StarkOpenIndices:     starkOpenIdx,
		CrossCheckBlankProof: crossProof,
	}
}
