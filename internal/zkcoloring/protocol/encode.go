package protocol

import "fmt"

// Leaf item widths for the three per-round Merkle commitments. Colors and
// blank bits fit in a single byte each; an edge-color pair is two.
const (
	edgeItemWidth  = 2
	permItemWidth  = 1
	blankItemWidth = 1
)

func encodeEdgeItem(a, b int) []byte { return []byte{byte(a), byte(b)} }

func decodeEdgeItem(b []byte) (int, int) { return int(b[0]), int(b[1]) }

func encodePermItem(c int) []byte { return []byte{byte(c)} }

func decodePermItem(b []byte) int { return int(b[0]) }

func encodeBlankItem(bit bool) []byte {
	if bit {
		return []byte{1}
	}
	return []byte{0}
}

func decodeBlankItem(b []byte) bool { return b[0] != 0 }

// itemFromProof extracts the itemWidth-byte item at item index idx from
// the chunk a batched merkle.Proof revealed for it. Callers must already
// have verified the proof against its root; this only re-slices bytes the
// proof already carries.
func itemFromProof(chunks map[int][]byte, idx, itemWidth, chunkSize int) ([]byte, error) {
	chunkIdx := idx / chunkSize
	within := idx % chunkSize
	raw, ok := chunks[chunkIdx]
	if !ok {
		return nil, fmt.Errorf("protocol: proof does not cover chunk %d (item %d)", chunkIdx, idx)
	}
	start := within * itemWidth
	if start+itemWidth > len(raw) {
		return nil, fmt.Errorf("protocol: item %d falls outside its revealed chunk", idx)
	}
	return raw[start : start+itemWidth], nil
}
