// Package stark implements the blank-count argument: given a committed
// blank-bit vector, it proves in zero knowledge that the true blank count
// is at most a declared budget, via an execution-trace arithmetization
// and a Merkle/FRI low-degree test over the Goldilocks field.
package stark

import (
	"fmt"
	"sort"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/merkle"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/transcript"
)

// cosetShift is the Goldilocks multiplicative group's canonical
// generator, used to shift the low-degree-extension domain off of the
// evaluation subgroup.
var cosetShift = field.New(7)

const traceItemWidth = 2 * field.ByteWidth
const traceChunkSize = 8

// Config parameterizes the STARK: the FRI query count and the log2 of
// the low-degree-extension blowup factor.
type Config struct {
	FRIQueries    uint32
	FRIBlowupLog2 uint32
}

// TraceOpening reveals a single trace row's bit and running-sum values
// together with the Merkle path proving they were in the committed
// trace, so a caller can cross-check a blank-probed edge's bit against
// the protocol's own blank-bit commitment.
type TraceOpening struct {
	Index       int
	Bit         field.Element
	Acc         field.Element
	MerkleProof *merkle.Proof
}

// DeepOpening binds one FRI query's layer-0 evaluations back to the
// committed trace: a batched opening of the trace low-degree extension at
// the domain points needed to recompute, from opened bit/acc values alone,
// the constraint composition value the query's layer-0 pair is supposed
// to equal. Without this, the FRI proof only certifies that *some*
// low-degree polynomial was committed, not that it is the one the
// constraints actually produce.
type DeepOpening struct {
	Proof *merkle.Proof
}

// Proof is the output of the blank-count argument: the execution trace's
// Merkle commitment, the auxiliary range-check bits, the low-degree
// extension commitment binding the FRI proof to the real trace, the FRI
// proof attesting the constraint composition is low-degree, the per-query
// deep openings tying FRI back to that trace, and openings of specific
// trace rows for cross-checking against the protocol layer.
type Proof struct {
	TraceRoot     hash.Digest
	TraceLDERoot  hash.Digest
	AuxBits       []field.Element
	Fri           *FriProof
	DeepOpenings  []DeepOpening
	TraceOpenings []TraceOpening
}

// Prove builds the blank-count STARK for blankBits against budget,
// absorbing every commitment into tr so the resulting proof is bound to
// the same Fiat-Shamir transcript as the surrounding protocol. openIndices
// selects which trace rows to additionally open for cross-checking.
func Prove(tr *transcript.Transcript, blankBits []bool, budget uint32, cfg Config, openIndices []int) (*Proof, error) {
	trace, err := BuildTrace(blankBits, budget)
	if err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}

	traceTree, traceRoot, err := commitTrace(trace)
	if err != nil {
		return nil, err
	}
	tr.Absorb("stark-trace-root", traceRoot[:])
	tr.Absorb("stark-aux-bits", encodeElements(trace.AuxBits))

	var alphas [4]field.Element
	for i := range alphas {
		alphas[i] = tr.ChallengeField(fmt.Sprintf("stark-alpha%d", i+1))
	}

	composition, bitPoly, accPoly, err := buildComposition(trace, alphas)
	if err != nil {
		return nil, err
	}

	rho := 1 << cfg.FRIBlowupLog2
	domainSize := trace.N * rho
	domainLog, err := log2Exact(domainSize)
	if err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}
	domainRoot, err := field.RootOfUnity(domainLog)
	if err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}
	evals, err := EvaluateOverCoset(composition, domainSize, cosetShift)
	if err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}

	bitLDE, err := EvaluateOverCoset(bitPoly, domainSize, cosetShift)
	if err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}
	accLDE, err := EvaluateOverCoset(accPoly, domainSize, cosetShift)
	if err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}
	traceLDETree, traceLDERoot, err := commitTraceLDE(bitLDE, accLDE)
	if err != nil {
		return nil, err
	}
	tr.Absorb("stark-trace-lde-root", traceLDERoot[:])

	friProof, err := friProve(tr, evals, domainRoot, cosetShift, int(cfg.FRIQueries))
	if err != nil {
		return nil, err
	}

	deepOpenings := make([]DeepOpening, len(friProof.Queries))
	for i, q := range friProof.Queries {
		idxs := deepIndices(domainSize, rho, q.StartIndex)
		deepProof, err := traceLDETree.Open(idxs)
		if err != nil {
			return nil, fmt.Errorf("stark: opening trace low-degree extension for query %d: %w", i, err)
		}
		deepOpenings[i] = DeepOpening{Proof: deepProof}
	}

	openings := make([]TraceOpening, 0, len(openIndices))
	for _, idx := range openIndices {
		if idx < 0 || idx >= trace.M {
			return nil, fmt.Errorf("stark: open index %d out of range [0,%d)", idx, trace.M)
		}
		proof, err := traceTree.Open([]int{idx})
		if err != nil {
			return nil, fmt.Errorf("stark: opening trace row %d: %w", idx, err)
		}
		openings = append(openings, TraceOpening{Index: idx, Bit: trace.Bit[idx], Acc: trace.Acc[idx], MerkleProof: proof})
	}

	return &Proof{
		TraceRoot:     traceRoot,
		TraceLDERoot:  traceLDERoot,
		AuxBits:       trace.AuxBits,
		Fri:           friProof,
		DeepOpenings:  deepOpenings,
		TraceOpenings: openings,
	}, nil
}

// deepIndices returns the (deduplicated, ascending) trace low-degree-
// extension domain indices needed to recompute the constraint composition
// at a FRI query's layer-0 pair: the queried point's index, its negation
// (the domain index shifted by half the domain, since the domain root's
// half-order power is -1), and each shifted by rho to reach the point the
// trace subgroup's generator g would land on (domainRoot^rho = g), which
// supplies the transition constraint's acc(g*x) term.
func deepIndices(domainSize, rho, startIndex int) []int {
	half := domainSize / 2
	i0 := startIndex % half
	i1 := i0 + half
	idxs := []int{i0, (i0 + rho) % domainSize, i1, (i1 + rho) % domainSize}
	sort.Ints(idxs)
	out := idxs[:1]
	for _, v := range idxs[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// Verify replays the prover's transcript absorptions, checks the FRI
// low-degree proof, validates every trace opening against the committed
// trace root, and enforces the auxiliary bits are boolean. It returns the
// verified bit value at each opened index for the caller to cross-check
// against its own blank-bit commitment.
func Verify(tr *transcript.Transcript, m int, budget uint32, cfg Config, proof *Proof) (map[int]bool, error) {
	n := nextPowerOfTwo(m + 1)

	tr.Absorb("stark-trace-root", proof.TraceRoot[:])
	tr.Absorb("stark-aux-bits", encodeElements(proof.AuxBits))

	for i, w := range proof.AuxBits {
		if !w.IsZero() && !w.Equal(field.One()) {
			return nil, fmt.Errorf("stark: auxiliary bit %d is not boolean", i)
		}
	}

	var alphas [4]field.Element
	for i := range alphas {
		alphas[i] = tr.ChallengeField(fmt.Sprintf("stark-alpha%d", i+1))
	}

	rho := 1 << cfg.FRIBlowupLog2
	domainSize := n * rho
	domainLog, err := log2Exact(domainSize)
	if err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}
	domainRoot, err := field.RootOfUnity(domainLog)
	if err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}

	tr.Absorb("stark-trace-lde-root", proof.TraceLDERoot[:])

	if err := friVerify(tr, proof.Fri, domainRoot, cosetShift, domainSize, int(cfg.FRIQueries)); err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}

	if err := verifyDeepOpenings(proof, alphas, domainRoot, domainSize, rho, n, m, budget); err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}

	opened := make(map[int]bool, len(proof.TraceOpenings))
	for _, o := range proof.TraceOpenings {
		ok, err := merkle.Verify(proof.TraceRoot, []int{o.Index}, traceChunkSize, o.MerkleProof)
		if err != nil {
			return nil, fmt.Errorf("stark: trace opening %d: %w", o.Index, err)
		}
		if !ok {
			return nil, fmt.Errorf("stark: trace opening %d failed Merkle verification", o.Index)
		}
		if !rowMatchesChunk(o, traceChunkSize) {
			return nil, fmt.Errorf("stark: trace opening %d's bit/acc values do not match its own Merkle chunk", o.Index)
		}
		if !o.Bit.IsZero() && !o.Bit.Equal(field.One()) {
			return nil, fmt.Errorf("stark: trace opening %d has a non-boolean bit value", o.Index)
		}
		opened[o.Index] = o.Bit.Equal(field.One())
	}
	return opened, nil
}

func commitTrace(t *Trace) (*merkle.Tree, hash.Digest, error) {
	items := make([][]byte, t.N)
	for i := 0; i < t.N; i++ {
		items[i] = encodeTraceRow(t.Bit[i], t.Acc[i])
	}
	tree, err := merkle.Commit(items, traceItemWidth, traceChunkSize)
	if err != nil {
		return nil, hash.Digest{}, fmt.Errorf("stark: committing trace: %w", err)
	}
	return tree, tree.Root(), nil
}

func commitTraceLDE(bitLDE, accLDE []field.Element) (*merkle.Tree, hash.Digest, error) {
	items := make([][]byte, len(bitLDE))
	for i := range items {
		items[i] = encodeTraceRow(bitLDE[i], accLDE[i])
	}
	tree, err := merkle.Commit(items, traceItemWidth, traceChunkSize)
	if err != nil {
		return nil, hash.Digest{}, fmt.Errorf("stark: committing trace low-degree extension: %w", err)
	}
	return tree, tree.Root(), nil
}

// verifyDeepOpenings is the DEEP/FRI consistency check: for every FRI
// query, it opens the trace low-degree extension at the domain points
// needed to recompute the constraint composition independently of the
// prover's claim, and requires the result to match the FRI proof's own
// layer-0 values. Without this, friVerify only certifies that *a*
// low-degree polynomial was committed; this ties that polynomial back to
// the actual committed trace, which is what makes the blank-budget bound
// enforced at verification time rather than only at proving time.
func verifyDeepOpenings(proof *Proof, alphas [4]field.Element, domainRoot field.Element, domainSize, rho, n, m int, budget uint32) error {
	if len(proof.DeepOpenings) != len(proof.Fri.Queries) {
		return fmt.Errorf("proof carries %d deep openings, want %d (one per fri query)", len(proof.DeepOpenings), len(proof.Fri.Queries))
	}
	g, err := field.RootOfUnity(logOf(n))
	if err != nil {
		return err
	}
	half := domainSize / 2
	for qi, q := range proof.Fri.Queries {
		if len(q.Layers) == 0 {
			return fmt.Errorf("fri query %d has no layers to bind against the trace", qi)
		}
		i0 := q.StartIndex % half
		i1 := i0 + half
		idxs := deepIndices(domainSize, rho, q.StartIndex)
		deep := proof.DeepOpenings[qi]
		ok, err := merkle.Verify(proof.TraceLDERoot, idxs, traceChunkSize, deep.Proof)
		if err != nil {
			return fmt.Errorf("deep opening %d: %w", qi, err)
		}
		if !ok {
			return fmt.Errorf("deep opening %d failed Merkle verification against the trace low-degree extension", qi)
		}

		bit0, acc0, err := traceRowAt(deep.Proof, i0)
		if err != nil {
			return fmt.Errorf("deep opening %d: %w", qi, err)
		}
		_, accShift0, err := traceRowAt(deep.Proof, (i0+rho)%domainSize)
		if err != nil {
			return fmt.Errorf("deep opening %d: %w", qi, err)
		}
		bit1, acc1, err := traceRowAt(deep.Proof, i1)
		if err != nil {
			return fmt.Errorf("deep opening %d: %w", qi, err)
		}
		_, accShift1, err := traceRowAt(deep.Proof, (i1+rho)%domainSize)
		if err != nil {
			return fmt.Errorf("deep opening %d: %w", qi, err)
		}

		x0 := cosetShift.Mul(domainRoot.Exp(uint64(i0)))
		x1 := x0.Neg()

		comp0, err := recomputeComposition(x0, bit0, acc0, accShift0, alphas, g, n, m, budget, proof.AuxBits)
		if err != nil {
			return fmt.Errorf("deep opening %d: %w", qi, err)
		}
		comp1, err := recomputeComposition(x1, bit1, acc1, accShift1, alphas, g, n, m, budget, proof.AuxBits)
		if err != nil {
			return fmt.Errorf("deep opening %d: %w", qi, err)
		}

		layer0 := q.Layers[0]
		if !comp0.Equal(layer0.ValueLow) {
			return fmt.Errorf("fri query %d's layer-0 low value disagrees with the constraint composition recomputed from the committed trace", qi)
		}
		if !comp1.Equal(layer0.ValueHigh) {
			return fmt.Errorf("fri query %d's layer-0 high value disagrees with the constraint composition recomputed from the committed trace", qi)
		}
	}
	return nil
}

// traceRowAt decodes the (bit, acc) pair committed at domain index idx
// from a batched trace low-degree-extension opening.
func traceRowAt(proof *merkle.Proof, idx int) (bit, acc field.Element, err error) {
	chunkIdx := idx / traceChunkSize
	within := idx % traceChunkSize
	raw, ok := proof.Chunks[chunkIdx]
	if !ok {
		return field.Element{}, field.Element{}, fmt.Errorf("proof does not cover chunk %d (item %d)", chunkIdx, idx)
	}
	start := within * traceItemWidth
	if start+traceItemWidth > len(raw) {
		return field.Element{}, field.Element{}, fmt.Errorf("item %d falls outside its revealed chunk", idx)
	}
	bit = decodeElement(raw[start : start+field.ByteWidth])
	acc = decodeElement(raw[start+field.ByteWidth : start+traceItemWidth])
	return bit, acc, nil
}

// rowMatchesChunk confirms a claimed (bit, acc) opening is actually the
// content committed at its index, not just the committed chunk's root.
func rowMatchesChunk(o TraceOpening, chunkSize int) bool {
	chunkIdx := o.Index / chunkSize
	within := o.Index % chunkSize
	raw := o.MerkleProof.Chunks[chunkIdx]
	start := within * traceItemWidth
	if start+traceItemWidth > len(raw) {
		return false
	}
	want := encodeTraceRow(o.Bit, o.Acc)
	for i, b := range want {
		if raw[start+i] != b {
			return false
		}
	}
	return true
}

func encodeTraceRow(bit, acc field.Element) []byte {
	b := bit.Bytes()
	a := acc.Bytes()
	out := make([]byte, 0, traceItemWidth)
	out = append(out, b[:]...)
	out = append(out, a[:]...)
	return out
}
