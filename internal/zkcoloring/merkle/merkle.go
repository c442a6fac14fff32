// Package merkle implements the chunked Merkle commitment layer backing
// edge, permutation, and blank-bit revelation: items are grouped into
// fixed-size chunks, each chunk is a single leaf, and openings for several
// indices share a batched, deduplicated authentication path.
package merkle

import (
	"fmt"
	"sort"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
)

// Tree is a balanced binary Merkle tree over chunked items. It is built
// once per round by the prover, consumed while producing openings, and
// dropped before the next round begins.
type Tree struct {
	itemWidth     int
	chunkSize     int
	numItems      int
	realChunks    int // ceil(numItems / chunkSize), chunks holding real data
	paddedChunks  int // next power of two >= realChunks
	items         [][]byte
	levels        [][]hash.Digest // levels[0] = leaves, levels[len-1] = [root]
}

// Commit builds a chunked Merkle tree over items, each itemWidth bytes,
// grouping them into chunks of chunkSize items (chunkSize must be a power
// of two). The leaf for chunk j is H(0x01 ∥ j ∥ canonical_encode(chunk_j));
// the tree is padded with sentinel leaves over an all-zero chunk as needed
// to reach a power-of-two leaf count.
func Commit(items [][]byte, itemWidth, chunkSize int) (*Tree, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("merkle: cannot commit to zero items")
	}
	if chunkSize <= 0 || chunkSize&(chunkSize-1) != 0 {
		return nil, fmt.Errorf("merkle: chunk size %d is not a power of two", chunkSize)
	}
	for i, it := range items {
		if len(it) != itemWidth {
			return nil, fmt.Errorf("merkle: item %d has width %d, want %d", i, len(it), itemWidth)
		}
	}

	realChunks := (len(items) + chunkSize - 1) / chunkSize
	paddedChunks := nextPowerOfTwo(realChunks)

	t := &Tree{
		itemWidth:    itemWidth,
		chunkSize:    chunkSize,
		numItems:     len(items),
		realChunks:   realChunks,
		paddedChunks: paddedChunks,
		items:        items,
	}

	leaves := make([]hash.Digest, paddedChunks)
	zeroChunk := make([]byte, itemWidth*chunkSize)
	for j := 0; j < paddedChunks; j++ {
		if j < realChunks {
			leaves[j] = hash.Leaf(uint64(j), t.rawChunk(j))
		} else {
			leaves[j] = hash.Leaf(uint64(j), zeroChunk)
		}
	}

	t.levels = [][]hash.Digest{leaves}
	for level := leaves; len(level) > 1; {
		next := make([]hash.Digest, len(level)/2)
		for i := range next {
			next[i] = hash.Inner(level[2*i], level[2*i+1])
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t, nil
}

// rawChunk concatenates the raw bytes of the items belonging to chunk j. It
// does not pad a short final chunk; the leaf hash simply covers however
// many real items the chunk holds.
func (t *Tree) rawChunk(j int) []byte {
	start := j * t.chunkSize
	end := start + t.chunkSize
	if end > t.numItems {
		end = t.numItems
	}
	buf := make([]byte, 0, (end-start)*t.itemWidth)
	for i := start; i < end; i++ {
		buf = append(buf, t.items[i]...)
	}
	return buf
}

// Root returns the Merkle root.
func (t *Tree) Root() hash.Digest {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

func (t *Tree) chunkOf(itemIndex int) (int, error) {
	if itemIndex < 0 || itemIndex >= t.numItems {
		return 0, fmt.Errorf("merkle: item index %d out of range [0, %d)", itemIndex, t.numItems)
	}
	return itemIndex / t.chunkSize, nil
}

// Proof is a batched opening for a set of item indices: the raw chunk
// bytes covering them, plus the minimal, deduplicated authentication path
// shared across all of them.
type Proof struct {
	ChunkIndices []int          // ascending, deduped
	Chunks       map[int][]byte // chunk index -> raw chunk bytes
	AuthNodes    []hash.Digest  // canonically ordered sibling digests, level by level
	TotalChunks  int            // padded leaf count of the committed tree
}

// Open produces a batched opening proof for the given item indices.
func (t *Tree) Open(itemIndices []int) (*Proof, error) {
	known := map[int]bool{}
	for _, idx := range itemIndices {
		c, err := t.chunkOf(idx)
		if err != nil {
			return nil, err
		}
		known[c] = true
	}
	if len(known) == 0 {
		return nil, fmt.Errorf("merkle: no indices to open")
	}

	chunkIndices := sortedKeys(known)
	proof := &Proof{
		ChunkIndices: chunkIndices,
		Chunks:       make(map[int][]byte, len(chunkIndices)),
		TotalChunks:  t.paddedChunks,
	}
	for _, c := range chunkIndices {
		proof.Chunks[c] = t.rawChunk(c)
	}

	cur := known
	for level := 0; level < len(t.levels)-1; level++ {
		siblings := siblingsNotIn(cur)
		for _, s := range siblings {
			proof.AuthNodes = append(proof.AuthNodes, t.levels[level][s])
		}
		cur = parentsOf(cur, siblings)
	}
	return proof, nil
}

// Verify recomputes the root from a batched proof and checks it against
// the committed root. It requires the proof's chunk indices to be
// ascending and deduplicated, matching how Open produces them.
func Verify(root hash.Digest, itemIndices []int, chunkSize int, proof *Proof) (bool, error) {
	if chunkSize <= 0 || chunkSize&(chunkSize-1) != 0 {
		return false, fmt.Errorf("merkle: chunk size %d is not a power of two", chunkSize)
	}
	wantChunks := map[int]bool{}
	for _, idx := range itemIndices {
		wantChunks[idx/chunkSize] = true
	}
	gotChunks := sortedKeys(wantChunks)
	if !sameInts(gotChunks, proof.ChunkIndices) {
		return false, fmt.Errorf("merkle: proof chunk indices do not match queried items")
	}

	known := make(map[int]hash.Digest, len(proof.ChunkIndices))
	for _, c := range proof.ChunkIndices {
		raw, ok := proof.Chunks[c]
		if !ok {
			return false, fmt.Errorf("merkle: proof missing chunk %d", c)
		}
		known[c] = hash.Leaf(uint64(c), raw)
	}

	if proof.TotalChunks <= 0 || proof.TotalChunks&(proof.TotalChunks-1) != 0 {
		return false, fmt.Errorf("merkle: proof total chunk count %d is not a positive power of two", proof.TotalChunks)
	}
	numLevels := 0
	for n := proof.TotalChunks; n > 1; n >>= 1 {
		numLevels++
	}

	authIdx := 0
	curSet := map[int]bool{}
	for c := range known {
		curSet[c] = true
	}
	for level := 0; level < numLevels; level++ {
		siblings := siblingsNotIn(curSet)
		siblingDigests := make(map[int]hash.Digest, len(siblings))
		for _, s := range siblings {
			if authIdx >= len(proof.AuthNodes) {
				return false, fmt.Errorf("merkle: proof exhausted before reaching root")
			}
			siblingDigests[s] = proof.AuthNodes[authIdx]
			authIdx++
		}

		nextKnown := make(map[int]hash.Digest, len(curSet))
		seenParents := map[int]bool{}
		for idx := range curSet {
			parent := idx / 2
			if seenParents[parent] {
				continue
			}
			seenParents[parent] = true
			leftIdx, rightIdx := 2*parent, 2*parent+1
			left, ok := known[leftIdx]
			if !ok {
				left = siblingDigests[leftIdx]
			}
			right, ok := known[rightIdx]
			if !ok {
				right = siblingDigests[rightIdx]
			}
			nextKnown[parent] = hash.Inner(left, right)
		}
		known = nextKnown
		curSet = map[int]bool{}
		for idx := range known {
			curSet[idx] = true
		}
	}

	if authIdx != len(proof.AuthNodes) {
		return false, fmt.Errorf("merkle: proof carries unused authentication nodes")
	}
	if len(known) != 1 {
		return false, fmt.Errorf("merkle: verification did not converge to a single root")
	}
	for _, d := range known {
		return d == root, nil
	}
	return false, nil
}

// siblingsNotIn returns, in ascending order, the sibling index of every
// member of known whose sibling is not itself a member of known.
func siblingsNotIn(known map[int]bool) []int {
	need := map[int]bool{}
	for idx := range known {
		sib := idx ^ 1
		if !known[sib] {
			need[sib] = true
		}
	}
	out := sortedKeys(need)
	return out
}

// parentsOf returns the set of parent indices for known ∪ siblings.
func parentsOf(known map[int]bool, siblings []int) map[int]bool {
	parents := map[int]bool{}
	for idx := range known {
		parents[idx/2] = true
	}
	for _, s := range siblings {
		parents[s/2] = true
	}
	return parents
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
