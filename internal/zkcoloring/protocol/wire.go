package protocol

import (
	"bytes"
	"fmt"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/merkle"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/stark"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/wire"
)

// fileMagic and fileVersion identify the on-disk transcript format
// spec.md §6 defines; the CLI frontend is responsible for writing these
// bytes to disk, but the layout itself is owned by this package.
var fileMagic = [6]byte{'Z', 'K', 'P', 'C', 'C', 0}

const fileVersion uint16 = 1

// EncodeVerifierConfig writes the seven-field configuration schema of
// spec.md §6: rounds, spots_per_round, blank_checks_per_round, chunk_size,
// blank_strategy, fri_queries, fri_blowup_log2, each a big-endian u32.
func EncodeVerifierConfig(cfg *VerifierConfig) []byte {
	w := wire.NewWriter()
	w.U32(cfg.Rounds)
	w.U32(cfg.SpotsPerRound)
	w.U32(cfg.BlankChecksPerRound)
	w.U32(cfg.ChunkSize)
	w.U32(uint32(cfg.BlankStrategy))
	w.U32(cfg.FRIQueries)
	w.U32(cfg.FRIBlowupLog2)
	return w.Bytes()
}

// DecodeVerifierConfig reads the layout EncodeVerifierConfig writes.
func DecodeVerifierConfig(b []byte) (*VerifierConfig, error) {
	r := wire.NewReader(b)
	cfg := &VerifierConfig{}
	var err error
	if cfg.Rounds, err = r.U32(); err != nil {
		return nil, fmt.Errorf("protocol: decoding rounds: %w", err)
	}
	if cfg.SpotsPerRound, err = r.U32(); err != nil {
		return nil, fmt.Errorf("protocol: decoding spots_per_round: %w", err)
	}
	if cfg.BlankChecksPerRound, err = r.U32(); err != nil {
		return nil, fmt.Errorf("protocol: decoding blank_checks_per_round: %w", err)
	}
	if cfg.ChunkSize, err = r.U32(); err != nil {
		return nil, fmt.Errorf("protocol: decoding chunk_size: %w", err)
	}
	strategy, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding blank_strategy: %w", err)
	}
	cfg.BlankStrategy = BlankStrategy(strategy)
	if cfg.FRIQueries, err = r.U32(); err != nil {
		return nil, fmt.Errorf("protocol: decoding fri_queries: %w", err)
	}
	if cfg.FRIBlowupLog2, err = r.U32(); err != nil {
		return nil, fmt.Errorf("protocol: decoding fri_blowup_log2: %w", err)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("protocol: verifier config has %d trailing bytes", r.Remaining())
	}
	return cfg, nil
}

// EncodeRoundProof writes a round's three roots followed by its optional
// Merkle openings, each presence-flagged so a round that never needed a
// tree's opening encodes to a single zero byte for it. This is exactly
// the "response bytes in canonical order" spec.md §4.4 step 4 absorbs.
func EncodeRoundProof(rp *RoundProof) []byte {
	w := wire.NewWriter()
	w.Digest(rp.EdgeRoot)
	w.Digest(rp.PermRoot)
	w.Digest(rp.BlankRoot)
	encodeOptionalProof(w, rp.EdgeProof)
	encodeOptionalProof(w, rp.PermProof)
	encodeOptionalProof(w, rp.BlankProof)
	return w.Bytes()
}

// DecodeRoundProof reads the layout EncodeRoundProof writes.
func DecodeRoundProof(b []byte) (*RoundProof, error) {
	r := wire.NewReader(b)
	rp := &RoundProof{}
	var err error
	if rp.EdgeRoot, err = r.Digest(); err != nil {
		return nil, fmt.Errorf("protocol: decoding edge root: %w", err)
	}
	if rp.PermRoot, err = r.Digest(); err != nil {
		return nil, fmt.Errorf("protocol: decoding perm root: %w", err)
	}
	if rp.BlankRoot, err = r.Digest(); err != nil {
		return nil, fmt.Errorf("protocol: decoding blank root: %w", err)
	}
	if rp.EdgeProof, err = decodeOptionalProof(r); err != nil {
		return nil, fmt.Errorf("protocol: decoding edge proof: %w", err)
	}
	if rp.PermProof, err = decodeOptionalProof(r); err != nil {
		return nil, fmt.Errorf("protocol: decoding perm proof: %w", err)
	}
	if rp.BlankProof, err = decodeOptionalProof(r); err != nil {
		return nil, fmt.Errorf("protocol: decoding blank proof: %w", err)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("protocol: round proof has %d trailing bytes", r.Remaining())
	}
	return rp, nil
}

func encodeOptionalProof(w *wire.Writer, p *merkle.Proof) {
	if p == nil {
		w.Bool(false)
		return
	}
	w.Bool(true)
	w.LenPrefixed(p.Marshal())
}

func decodeOptionalProof(r *wire.Reader) (*merkle.Proof, error) {
	present, err := r.Bool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	raw, err := r.LenPrefixed()
	if err != nil {
		return nil, err
	}
	return merkle.UnmarshalProof(raw)
}

// Marshal encodes the complete proof in the on-disk transcript file
// layout: magic, version, instance digest, the length-prefixed verifier
// configuration, m, n, the round count, every length-prefixed round
// record, the length-prefixed STARK blob, the STARK cross-check indices
// (count-prefixed), and the presence-flagged cross-check blank opening.
func (p *Proof) Marshal() []byte {
	w := wire.NewWriter()
	w.Raw(fileMagic[:])
	w.U16(fileVersion)
	var digest hash.Digest
	copy(digest[:], p.InstanceDigest[:])
	w.Digest(digest)
	w.LenPrefixed(EncodeVerifierConfig(p.Config))
	w.U32(uint32(p.M))
	w.U32(uint32(p.N))
	w.U32(uint32(len(p.Rounds)))
	for i := range p.Rounds {
		w.LenPrefixed(EncodeRoundProof(&p.Rounds[i]))
	}
	w.LenPrefixed(p.Stark.Marshal())
	w.U32(uint32(len(p.StarkOpenIndices)))
	for _, idx := range p.StarkOpenIndices {
		w.U32(uint32(idx))
	}
	encodeOptionalProof(w, p.CrossCheckBlankProof)
	return w.Bytes()
}

// UnmarshalProof decodes the layout Marshal writes.
func UnmarshalProof(b []byte) (*Proof, error) {
	r := wire.NewReader(b)
	magic, err := r.Raw(len(fileMagic))
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding magic: %w", err)
	}
	if !bytes.Equal(magic, fileMagic[:]) {
		return nil, fmt.Errorf("protocol: bad magic %x, want %x", magic, fileMagic)
	}
	version, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding version: %w", err)
	}
	if version != fileVersion {
		return nil, fmt.Errorf("protocol: unsupported transcript version %d", version)
	}
	digest, err := r.Digest()
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding instance digest: %w", err)
	}
	cfgBytes, err := r.LenPrefixed()
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding verifier config: %w", err)
	}
	cfg, err := DecodeVerifierConfig(cfgBytes)
	if err != nil {
		return nil, err
	}
	m, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding m: %w", err)
	}
	n, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding n: %w", err)
	}
	numRounds, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding round count: %w", err)
	}
	rounds := make([]RoundProof, numRounds)
	for i := range rounds {
		rpBytes, err := r.LenPrefixed()
		if err != nil {
			return nil, fmt.Errorf("protocol: decoding round %d: %w", i, err)
		}
		rp, err := DecodeRoundProof(rpBytes)
		if err != nil {
			return nil, fmt.Errorf("protocol: round %d: %w", i, err)
		}
		rounds[i] = *rp
	}
	starkBytes, err := r.LenPrefixed()
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding stark proof: %w", err)
	}
	starkProof, err := stark.UnmarshalProof(starkBytes)
	if err != nil {
		return nil, fmt.Errorf("protocol: %w", err)
	}
	numOpenIdx, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding stark open index count: %w", err)
	}
	openIdx := make([]int, numOpenIdx)
	for i := range openIdx {
		v, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("protocol: decoding stark open index %d: %w", i, err)
		}
		openIdx[i] = int(v)
	}
	crossCheck, err := decodeOptionalProof(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: decoding cross-check proof: %w", err)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("protocol: proof has %d trailing bytes", r.Remaining())
	}

	var instDigest [32]byte
	copy(instDigest[:], digest[:])
	return &Proof{
		InstanceDigest:       instDigest,
		Config:               cfg,
		M:                    int(m),
		N:                    int(n),
		Rounds:               rounds,
		Stark:                starkProof,
		StarkOpenIndices:     openIdx,
		CrossCheckBlankProof: crossCheck,
	}, nil
}
