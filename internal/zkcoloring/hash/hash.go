// Package hash provides the domain-separated Blake3 hashing used for
// Merkle leaves/nodes, Fiat-Shamir absorption, and FRI challenges.
package hash

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// Domain separation tags, prefixed as the first byte of every hash input.
const (
	TagMerkleLeaf       byte = 0x01
	TagMerkleInner      byte = 0x02
	TagTranscriptAbsorb byte = 0x03
	TagFRIChallenge     byte = 0x04
)

// Digest is a 32-byte Blake3 output.
type Digest [Size]byte

// Bytes returns the digest as a byte slice.
func (d Digest) Bytes() []byte { return d[:] }

// sum hashes tag followed by each part, in order, with no further
// separation between parts (callers are responsible for length-prefixing
// variable-length parts where ambiguity would otherwise arise).
func sum(tag byte, parts ...[]byte) Digest {
	h := blake3.New()
	h.Write([]byte{tag})
	for _, p := range parts {
		h.Write(p)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Leaf computes H(0x01 ∥ index ∥ chunk), the chunked Merkle leaf hash. The
// index is encoded as an 8-byte big-endian prefix to prevent chunk
// reordering attacks.
func Leaf(index uint64, chunk []byte) Digest {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	return sum(TagMerkleLeaf, idx[:], chunk)
}

// Inner computes H(0x02 ∥ left ∥ right), a Merkle internal node hash.
func Inner(left, right Digest) Digest {
	return sum(TagMerkleInner, left[:], right[:])
}

// Absorb computes the transcript's domain-tagged digest of a single
// absorption record; see transcript.Transcript.Absorb for the exact byte
// layout being hashed here.
func Absorb(record []byte) Digest {
	return sum(TagTranscriptAbsorb, record)
}

// FRIChallenge computes the domain-tagged digest used to derive FRI
// folding challenges and query indices.
func FRIChallenge(record []byte) Digest {
	return sum(TagFRIChallenge, record)
}
