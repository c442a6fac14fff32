// Package transcript implements the Fiat-Shamir transcript binding every
// prover message into the challenges that follow it, so a non-interactive
// proof reproduces exactly the challenges an honest interactive verifier
// would have drawn.
package transcript

import (
	"encoding/binary"
	"fmt"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
)

// Transcript is a running Fiat-Shamir state. Every absorption and every
// challenge draw advances the state, so no two distinct transcript
// histories ever produce the same sequence of challenges.
type Transcript struct {
	state   hash.Digest
	squeeze uint64 // draws taken since the last absorb, for rejection-sampling sub-labels
}

// New starts a transcript seeded with protocolID, binding every challenge
// drawn from it to this specific protocol and preventing cross-protocol
// transcript reuse.
func New(protocolID string) *Transcript {
	t := &Transcript{state: hash.Absorb([]byte(protocolID))}
	return t
}

// Absorb folds a labeled record into the transcript state. label
// disambiguates the semantic role of data (e.g. "round3:perm-root") so
// that absorbing the same bytes under a different label produces a
// different state.
func (t *Transcript) Absorb(label string, data []byte) {
	t.state = hash.Absorb(t.record(label, data))
	t.squeeze = 0
}

// record builds the length-prefixed absorption record: a 2-byte
// big-endian label length, the label itself, an 8-byte big-endian data
// length, the data, and the transcript's current state as a chaining
// prefix.
func (t *Transcript) record(label string, data []byte) []byte {
	labelBytes := []byte(label)
	buf := make([]byte, 0, hash.Size+2+len(labelBytes)+8+len(data))
	buf = append(buf, t.state[:]...)
	var labelLen [2]byte
	binary.BigEndian.PutUint16(labelLen[:], uint16(len(labelBytes)))
	buf = append(buf, labelLen[:]...)
	buf = append(buf, labelBytes...)
	var dataLen [8]byte
	binary.BigEndian.PutUint64(dataLen[:], uint64(len(data)))
	buf = append(buf, dataLen[:]...)
	buf = append(buf, data...)
	return buf
}

// squeezeOnce derives the next output digest without consuming new
// prover data, advancing an internal draw counter so repeated draws
// against the same label (as rejection sampling requires) never repeat.
func (t *Transcript) squeezeOnce(label string) hash.Digest {
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], t.squeeze)
	t.squeeze++
	rec := t.record(label, ctr[:])
	out := hash.FRIChallenge(rec)
	t.state = out
	return out
}

// ChallengeU64 draws a uniformly random uint64 bound to label, reading
// the first 8 bytes of the squeezed digest as little-endian (matching the
// field element wire encoding).
func (t *Transcript) ChallengeU64(label string) uint64 {
	d := t.squeezeOnce(label)
	return binary.LittleEndian.Uint64(d[:8])
}

// ChallengeIndex draws a uniformly random index in [0, n) via rejection
// sampling, bound to label. n must be positive.
func (t *Transcript) ChallengeIndex(label string, n uint64) (uint64, error) {
	if n == 0 {
		return 0, fmt.Errorf("transcript: cannot draw an index modulo zero")
	}
	limit := (^uint64(0) / n) * n
	for {
		x := t.ChallengeU64(label)
		if x < limit {
			return x % n, nil
		}
	}
}

// ChallengeField draws a uniformly random Goldilocks field element via
// rejection sampling against the field modulus, bound to label.
func (t *Transcript) ChallengeField(label string) field.Element {
	limit := (^uint64(0) / field.Modulus) * field.Modulus
	for {
		x := t.ChallengeU64(label)
		if x < limit {
			return field.New(x % field.Modulus)
		}
	}
}

// State returns a snapshot of the current transcript digest, useful for
// recording checkpoints (e.g. the per-round absorption point) in a
// proof's wire encoding.
func (t *Transcript) State() hash.Digest {
	return t.state
}
