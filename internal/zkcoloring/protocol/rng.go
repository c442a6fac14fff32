package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

// seededReader is a deterministic counter-mode pseudorandom byte stream
// derived from a 32-byte seed via Blake3. It backs the per-round
// permutation draws spec.md §9 calls the "rng_seed" proving-session
// input: given the same seed, a prover draws the same sigma sequence and
// so emits a byte-identical transcript, the determinism property spec.md
// §8 names. It must never be derived from the Fiat-Shamir transcript
// itself, only from the caller-supplied seed.
type seededReader struct {
	seed    [32]byte
	counter uint64
	buf     []byte
}

func newSeededReader(seed [32]byte) *seededReader {
	return &seededReader{seed: seed}
}

func (s *seededReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.buf) == 0 {
			h := blake3.New()
			h.Write(s.seed[:])
			var ctr [8]byte
			binary.BigEndian.PutUint64(ctr[:], s.counter)
			h.Write(ctr[:])
			s.counter++
			s.buf = h.Sum(nil)
		}
		k := copy(p[n:], s.buf)
		s.buf = s.buf[k:]
		n += k
	}
	return n, nil
}

// NewRandomSeed draws a fresh 32-byte proving-session seed from the
// system cryptographic RNG, for callers that want true per-session
// randomness rather than a reproducible fixed seed.
func NewRandomSeed() ([32]byte, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return seed, fmt.Errorf("protocol: generating random seed: %w", err)
	}
	return seed, nil
}
