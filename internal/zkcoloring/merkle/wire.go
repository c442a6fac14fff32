package merkle

import (
	"fmt"
	"sort"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/wire"
)

// Marshal encodes a batched opening proof in the canonical wire layout:
// total chunk count, the ascending chunk index list, each chunk's raw
// bytes length-prefixed in the same order, then the authentication nodes
// in the order Open produced them.
func (p *Proof) Marshal() []byte {
	w := wire.NewWriter()
	w.U32(uint32(p.TotalChunks))
	w.U32(uint32(len(p.ChunkIndices)))
	for _, c := range p.ChunkIndices {
		w.U32(uint32(c))
		w.LenPrefixed(p.Chunks[c])
	}
	w.U32(uint32(len(p.AuthNodes)))
	for _, d := range p.AuthNodes {
		w.Digest(d)
	}
	return w.Bytes()
}

// UnmarshalProof decodes a Proof encoded by Marshal.
func UnmarshalProof(b []byte) (*Proof, error) {
	r := wire.NewReader(b)
	totalChunks, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("merkle: decoding total chunk count: %w", err)
	}
	numChunks, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("merkle: decoding chunk count: %w", err)
	}
	proof := &Proof{
		TotalChunks:  int(totalChunks),
		ChunkIndices: make([]int, numChunks),
		Chunks:       make(map[int][]byte, numChunks),
	}
	for i := uint32(0); i < numChunks; i++ {
		c, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("merkle: decoding chunk index %d: %w", i, err)
		}
		raw, err := r.LenPrefixed()
		if err != nil {
			return nil, fmt.Errorf("merkle: decoding chunk %d contents: %w", c, err)
		}
		proof.ChunkIndices[i] = int(c)
		cp := make([]byte, len(raw))
		copy(cp, raw)
		proof.Chunks[int(c)] = cp
	}
	if !sort.IntsAreSorted(proof.ChunkIndices) {
		return nil, fmt.Errorf("merkle: proof chunk indices are not canonically ordered")
	}
	numAuth, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("merkle: decoding authentication node count: %w", err)
	}
	proof.AuthNodes = make([]hash.Digest, numAuth)
	for i := uint32(0); i < numAuth; i++ {
		d, err := r.Digest()
		if err != nil {
			return nil, fmt.Errorf("merkle: decoding authentication node %d: %w", i, err)
		}
		proof.AuthNodes[i] = d
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("merkle: proof has %d trailing bytes", r.Remaining())
	}
	return proof, nil
}
