package stark

import (
	"fmt"
	"testing"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/transcript"
)

func blankBitsFixture(n, blanks int) []bool {
	bits := make([]bool, n)
	for i := 0; i < blanks && i < n; i++ {
		bits[i] = true
	}
	return bits
}

func proveAndVerify(t *testing.T, bits []bool, budget uint32, cfg Config, openIndices []int) (*Proof, map[int]bool, error) {
	t.Helper()
	proverTr := transcript.New("stark-test")
	proof, err := Prove(proverTr, bits, budget, cfg, openIndices)
	if err != nil {
		return nil, nil, err
	}
	verifierTr := transcript.New("stark-test")
	opened, err := Verify(verifierTr, len(bits), budget, cfg, proof)
	return proof, opened, err
}

func TestProveVerifyAcceptsWithinBudget(t *testing.T) {
	bits := blankBitsFixture(20, 3)
	cfg := Config{FRIQueries: 6, FRIBlowupLog2: 2}
	_, opened, err := proveAndVerify(t, bits, 5, cfg, []int{0, 1, 3})
	if err != nil {
		t.Fatalf("expected acceptance, got error: %v", err)
	}
	if !opened[0] || !opened[1] {
		t.Fatalf("expected opened indices 0 and 1 to be blank")
	}
	if opened[3] {
		t.Fatalf("expected opened index 3 to be non-blank")
	}
}

func TestProveVerifyRejectsOverBudget(t *testing.T) {
	bits := blankBitsFixture(20, 6)
	cfg := Config{FRIQueries: 6, FRIBlowupLog2: 2}
	_, _, err := proveAndVerify(t, bits, 2, cfg, nil)
	if err == nil {
		t.Fatalf("expected verification to reject an over-budget blank count")
	}
}

func TestProveVerifyDeterministicTranscript(t *testing.T) {
	bits := blankBitsFixture(16, 2)
	cfg := Config{FRIQueries: 4, FRIBlowupLog2: 2}
	proverTr1 := transcript.New("stark-determinism")
	p1, err := Prove(proverTr1, bits, 4, cfg, []int{0})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	proverTr2 := transcript.New("stark-determinism")
	p2, err := Prove(proverTr2, bits, 4, cfg, []int{0})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if p1.TraceRoot != p2.TraceRoot {
		t.Fatalf("two proofs over identical input produced different trace roots")
	}
	if proverTr1.State() != proverTr2.State() {
		t.Fatalf("two proving runs over identical input left different transcript states")
	}
}

func TestVerifyRejectsTamperedTraceOpening(t *testing.T) {
	bits := blankBitsFixture(16, 2)
	cfg := Config{FRIQueries: 4, FRIBlowupLog2: 2}
	proverTr := transcript.New("stark-tamper")
	proof, err := Prove(proverTr, bits, 4, cfg, []int{0})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	// Flip the claimed acc value without touching the Merkle proof: this
	// must be caught by rowMatchesChunk, not just by the Merkle check.
	tampered := proof.TraceOpenings[0]
	tampered.Acc = tampered.Acc.Add(field.One())
	proof.TraceOpenings[0] = tampered

	verifierTr := transcript.New("stark-tamper")
	if _, err := Verify(verifierTr, len(bits), 4, cfg, proof); err == nil {
		t.Fatalf("expected verification to reject a tampered trace opening")
	}
}

// TestVerifyRejectsFRINotBoundToTrace models exactly the attack the DEEP
// check exists to stop: a prover that runs FRI over the all-zero
// polynomial (trivially low-degree, and perfectly self-consistent on its
// own) instead of the real constraint composition. Verify must still
// reject, because it recomputes the composition from the committed trace
// and checks it against FRI's own layer-0 values.
func TestVerifyRejectsFRINotBoundToTrace(t *testing.T) {
	bits := blankBitsFixture(20, 3)
	budget := uint32(5)
	cfg := Config{FRIQueries: 6, FRIBlowupLog2: 2}

	trace, err := BuildTrace(bits, budget)
	if err != nil {
		t.Fatalf("BuildTrace: %v", err)
	}
	_, traceRoot, err := commitTrace(trace)
	if err != nil {
		t.Fatalf("commitTrace: %v", err)
	}

	proverTr := transcript.New("stark-deep-forge")
	proverTr.Absorb("stark-trace-root", traceRoot[:])
	proverTr.Absorb("stark-aux-bits", encodeElements(trace.AuxBits))

	var alphas [4]field.Element
	for i := range alphas {
		alphas[i] = proverTr.ChallengeField(fmt.Sprintf("stark-alpha%d", i+1))
	}

	_, bitPoly, accPoly, err := buildComposition(trace, alphas)
	if err != nil {
		t.Fatalf("buildComposition: %v", err)
	}

	rho := 1 << cfg.FRIBlowupLog2
	domainSize := trace.N * rho
	domainLog, err := log2Exact(domainSize)
	if err != nil {
		t.Fatalf("log2Exact: %v", err)
	}
	domainRoot, err := field.RootOfUnity(domainLog)
	if err != nil {
		t.Fatalf("RootOfUnity: %v", err)
	}

	bitLDE, err := EvaluateOverCoset(bitPoly, domainSize, cosetShift)
	if err != nil {
		t.Fatalf("EvaluateOverCoset(bitPoly): %v", err)
	}
	accLDE, err := EvaluateOverCoset(accPoly, domainSize, cosetShift)
	if err != nil {
		t.Fatalf("EvaluateOverCoset(accPoly): %v", err)
	}
	traceLDETree, traceLDERoot, err := commitTraceLDE(bitLDE, accLDE)
	if err != nil {
		t.Fatalf("commitTraceLDE: %v", err)
	}
	proverTr.Absorb("stark-trace-lde-root", traceLDERoot[:])

	zeroEvals := make([]field.Element, domainSize)
	friProof, err := friProve(proverTr, zeroEvals, domainRoot, cosetShift, int(cfg.FRIQueries))
	if err != nil {
		t.Fatalf("friProve: %v", err)
	}

	deepOpenings := make([]DeepOpening, len(friProof.Queries))
	for i, q := range friProof.Queries {
		idxs := deepIndices(domainSize, rho, q.StartIndex)
		dp, err := traceLDETree.Open(idxs)
		if err != nil {
			t.Fatalf("opening deep check %d: %v", i, err)
		}
		deepOpenings[i] = DeepOpening{Proof: dp}
	}

	forged := &Proof{
		TraceRoot:    traceRoot,
		TraceLDERoot: traceLDERoot,
		AuxBits:      trace.AuxBits,
		Fri:          friProof,
		DeepOpenings: deepOpenings,
	}

	verifierTr := transcript.New("stark-deep-forge")
	if _, err := Verify(verifierTr, len(bits), budget, cfg, forged); err == nil {
		t.Fatalf("expected verification to reject a FRI proof bound to the zero polynomial instead of the real trace")
	}
}

func TestVerifyRejectsWrongTranscriptProtocolID(t *testing.T) {
	bits := blankBitsFixture(16, 1)
	cfg := Config{FRIQueries: 4, FRIBlowupLog2: 2}
	proverTr := transcript.New("stark-protoA")
	proof, err := Prove(proverTr, bits, 4, cfg, nil)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	verifierTr := transcript.New("stark-protoB")
	if _, err := Verify(verifierTr, len(bits), 4, cfg, proof); err == nil {
		t.Fatalf("expected verification to reject a proof bound to a different transcript protocol ID")
	}
}
