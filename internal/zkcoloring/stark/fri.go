package stark

import (
	"fmt"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/merkle"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/transcript"
)

// minFRILayerSize is the evaluation-domain size at which folding stops
// and the remaining values are sent in full as the final layer.
const minFRILayerSize = 8

// friLayer is one round of folding: the Merkle root of the layer's
// evaluations, the tree itself, and the evaluations (whose length is the
// layer's domain size), both kept only prover-side to answer queries.
type friLayer struct {
	root   hash.Digest
	tree   *merkle.Tree
	values []field.Element
}

// FriProof is the output of the FRI low-degree test: one Merkle root per
// folding layer, the fully-revealed final layer, and the per-query
// opening chains used to run the co-linearity check.
type FriProof struct {
	LayerRoots  []hash.Digest
	FinalValues []field.Element
	Queries     []FriQueryProof
}

// FriQueryProof is a single query's opening at every folding layer: the
// starting domain index and, per layer, the paired (x, -x) evaluations
// plus their batched Merkle opening.
type FriQueryProof struct {
	StartIndex int
	Layers     []FriQueryLayer
}

// FriQueryLayer is one layer's contribution to a query: the two paired
// evaluations opened at this layer and the Merkle proof covering both.
type FriQueryLayer struct {
	ValueLow  field.Element
	ValueHigh field.Element
	Proof     *merkle.Proof
}

const friItemWidth = 8
const friChunkSize = 4

func friCommit(values []field.Element) (*merkle.Tree, hash.Digest, error) {
	items := make([][]byte, len(values))
	for i, v := range values {
		b := v.Bytes()
		items[i] = b[:]
	}
	tree, err := merkle.Commit(items, friItemWidth, friChunkSize)
	if err != nil {
		return nil, hash.Digest{}, fmt.Errorf("stark: fri commit: %w", err)
	}
	return tree, tree.Root(), nil
}

// friProve folds values (evaluations of the composition polynomial over
// a coset of a power-of-two multiplicative subgroup) down to a constant-
// size final layer, committing each intermediate layer into tr and
// drawing fold challenges and query indices from tr.
func friProve(tr *transcript.Transcript, values []field.Element, domainRoot, domainOffset field.Element, numQueries int) (*FriProof, error) {
	var layers []friLayer
	root, offset := domainRoot, domainOffset
	cur := values

	for len(cur) > minFRILayerSize {
		tree, r, err := friCommit(cur)
		if err != nil {
			return nil, err
		}
		tr.Absorb(fmt.Sprintf("fri-layer-%d", len(layers)), r[:])
		layers = append(layers, friLayer{root: r, tree: tree, values: cur})

		beta := tr.ChallengeField(fmt.Sprintf("fri-beta-%d", len(layers)))
		cur = foldLayer(cur, offset, root, beta)
		offset = offset.Mul(offset)
		root = root.Mul(root)
	}

	tr.Absorb("fri-final", encodeElements(cur))

	layerRoots := make([]hash.Digest, len(layers))
	for i, l := range layers {
		layerRoots[i] = l.root
	}

	proof := &FriProof{LayerRoots: layerRoots, FinalValues: cur}
	domainSize := len(values)
	for q := 0; q < numQueries; q++ {
		idx, err := tr.ChallengeIndex(fmt.Sprintf("fri-query-%d", q), uint64(domainSize))
		if err != nil {
			return nil, fmt.Errorf("stark: fri query index: %w", err)
		}
		qp, err := friOpenQuery(layers, int(idx))
		if err != nil {
			return nil, err
		}
		proof.Queries = append(proof.Queries, qp)
	}
	return proof, nil
}

func friOpenQuery(layers []friLayer, startIndex int) (FriQueryProof, error) {
	qp := FriQueryProof{StartIndex: startIndex}
	idx := startIndex
	for _, l := range layers {
		half := len(l.values) / 2
		i := idx % half
		low, high := l.values[i], l.values[i+half]
		proof, err := l.tree.Open([]int{i, i + half})
		if err != nil {
			return FriQueryProof{}, fmt.Errorf("stark: fri query opening: %w", err)
		}
		qp.Layers = append(qp.Layers, FriQueryLayer{ValueLow: low, ValueHigh: high, Proof: proof})
		idx = i
	}
	return qp, nil
}

// friVerify replays the transcript absorptions and challenge draws a
// correct prover would have made, and checks every query's co-linearity
// chain against the committed layer roots.
func friVerify(tr *transcript.Transcript, proof *FriProof, domainRoot, domainOffset field.Element, domainSize, numQueries int) error {
	root, offset := domainRoot, domainOffset
	betas := make([]field.Element, len(proof.LayerRoots))
	sizes := make([]int, len(proof.LayerRoots)+1)
	sizes[0] = domainSize
	for i, r := range proof.LayerRoots {
		tr.Absorb(fmt.Sprintf("fri-layer-%d", i), r[:])
		betas[i] = tr.ChallengeField(fmt.Sprintf("fri-beta-%d", i+1))
		sizes[i+1] = sizes[i] / 2
		offset = offset.Mul(offset)
		root = root.Mul(root)
	}
	tr.Absorb("fri-final", encodeElements(proof.FinalValues))

	finalSize := sizes[len(sizes)-1]
	if finalSize != len(proof.FinalValues) {
		return fmt.Errorf("stark: fri final layer size mismatch: got %d want %d", len(proof.FinalValues), finalSize)
	}

	for q := 0; q < numQueries; q++ {
		idx, err := tr.ChallengeIndex(fmt.Sprintf("fri-query-%d", q), uint64(domainSize))
		if err != nil {
			return fmt.Errorf("stark: fri query index: %w", err)
		}
		if q >= len(proof.Queries) {
			return fmt.Errorf("stark: proof is missing query %d", q)
		}
		if proof.Queries[q].StartIndex != int(idx) {
			return fmt.Errorf("stark: query %d start index mismatch: transcript demands %d, proof carries %d", q, idx, proof.Queries[q].StartIndex)
		}
		if err := friVerifyQuery(proof.Queries[q], proof.LayerRoots, betas, sizes, domainRoot, domainOffset, proof.FinalValues); err != nil {
			return err
		}
	}
	return nil
}

func friVerifyQuery(qp FriQueryProof, layerRoots []hash.Digest, betas []field.Element, sizes []int, domainRoot, domainOffset field.Element, finalValues []field.Element) error {
	if len(qp.Layers) != len(layerRoots) {
		return fmt.Errorf("stark: fri query has %d layers, want %d", len(qp.Layers), len(layerRoots))
	}
	idx := qp.StartIndex
	root, offset := domainRoot, domainOffset
	var foldedFromPrevious *field.Element

	for i, layer := range qp.Layers {
		half := sizes[i] / 2
		j := idx % half

		ok, err := merkle.Verify(layerRoots[i], []int{j, j + half}, friChunkSize, layer.Proof)
		if err != nil {
			return fmt.Errorf("stark: fri layer %d merkle verify: %w", i, err)
		}
		if !ok {
			return fmt.Errorf("stark: fri layer %d authentication path failed", i)
		}
		if !elementFromChunk(layer.Proof, j, friItemWidth).Equal(layer.ValueLow) {
			return fmt.Errorf("stark: fri layer %d revealed low value does not match its own Merkle opening", i)
		}
		if !elementFromChunk(layer.Proof, j+half, friItemWidth).Equal(layer.ValueHigh) {
			return fmt.Errorf("stark: fri layer %d revealed high value does not match its own Merkle opening", i)
		}

		if foldedFromPrevious != nil {
			var expected field.Element
			if idx < half {
				expected = layer.ValueLow
			} else {
				expected = layer.ValueHigh
			}
			if !foldedFromPrevious.Equal(expected) {
				return fmt.Errorf("stark: fri layer %d does not continue the prior layer's fold", i)
			}
		}

		x := offset.Mul(root.Exp(uint64(j)))
		folded := foldPair(layer.ValueLow, layer.ValueHigh, x, betas[i])
		foldedFromPrevious = &folded

		idx = j
		root = root.Mul(root)
		offset = offset.Mul(offset)
	}

	if foldedFromPrevious != nil {
		if idx >= len(finalValues) {
			return fmt.Errorf("stark: fri final index %d out of range (final layer has %d values)", idx, len(finalValues))
		}
		if !foldedFromPrevious.Equal(finalValues[idx]) {
			return fmt.Errorf("stark: fri final fold does not match the revealed final layer value")
		}
	}
	return nil
}

// foldPair applies the FRI folding formula to a single (f(x), f(-x))
// pair: f_even(x^2) + beta*f_odd(x^2).
func foldPair(fx, fnegx, x, beta field.Element) field.Element {
	two := field.New(2)
	twoInv, _ := two.Inv()
	even := fx.Add(fnegx).Mul(twoInv)
	xInv, _ := x.Inv()
	odd := fx.Sub(fnegx).Mul(twoInv).Mul(xInv)
	return even.Add(beta.Mul(odd))
}

// foldLayer folds a full evaluation vector one step: pairs (v[i], v[i+L/2])
// at domain points (x_i, -x_i) fold into domain point x_i^2.
func foldLayer(values []field.Element, offset, root, beta field.Element) []field.Element {
	half := len(values) / 2
	out := make([]field.Element, half)
	x := offset
	for i := 0; i < half; i++ {
		out[i] = foldPair(values[i], values[i+half], x, beta)
		x = x.Mul(root)
	}
	return out
}

func encodeElements(values []field.Element) []byte {
	buf := make([]byte, 0, len(values)*field.Size())
	for _, v := range values {
		b := v.Bytes()
		buf = append(buf, b[:]...)
	}
	return buf
}

func decodeElement(b []byte) field.Element {
	var arr [8]byte
	copy(arr[:], b)
	return field.FromBytes(arr)
}

// elementFromChunk decodes the item at item index idx from a chunk proof,
// given a fixed per-item width.
func elementFromChunk(proof *merkle.Proof, idx, width int) field.Element {
	chunkIdx := idx / friChunkSize
	within := idx % friChunkSize
	raw := proof.Chunks[chunkIdx]
	start := within * width
	return decodeElement(raw[start : start+width])
}
