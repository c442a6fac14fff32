package stark

import (
	"fmt"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/merkle"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/wire"
)

// Marshal encodes the blank-count STARK proof in the canonical wire
// layout: the trace root, the trace low-degree-extension root, the
// auxiliary range-check bits, the FRI proof, the per-query deep openings,
// and the cross-check trace openings.
func (p *Proof) Marshal() []byte {
	w := wire.NewWriter()
	w.Digest(p.TraceRoot)
	w.Digest(p.TraceLDERoot)
	w.U32(uint32(len(p.AuxBits)))
	for _, b := range p.AuxBits {
		w.Field(b)
	}
	w.LenPrefixed(p.Fri.marshal())
	w.U32(uint32(len(p.DeepOpenings)))
	for _, d := range p.DeepOpenings {
		w.LenPrefixed(d.Proof.Marshal())
	}
	w.U32(uint32(len(p.TraceOpenings)))
	for _, o := range p.TraceOpenings {
		w.U32(uint32(o.Index))
		w.Field(o.Bit)
		w.Field(o.Acc)
		w.LenPrefixed(o.MerkleProof.Marshal())
	}
	return w.Bytes()
}

// UnmarshalProof decodes a blank-count STARK proof encoded by Marshal.
func UnmarshalProof(b []byte) (*Proof, error) {
	r := wire.NewReader(b)
	traceRoot, err := r.Digest()
	if err != nil {
		return nil, fmt.Errorf("stark: decoding trace root: %w", err)
	}
	traceLDERoot, err := r.Digest()
	if err != nil {
		return nil, fmt.Errorf("stark: decoding trace low-degree-extension root: %w", err)
	}
	numAux, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("stark: decoding auxiliary bit count: %w", err)
	}
	auxBits := make([]field.Element, numAux)
	for i := range auxBits {
		auxBits[i], err = r.Field()
		if err != nil {
			return nil, fmt.Errorf("stark: decoding auxiliary bit %d: %w", i, err)
		}
	}
	friBytes, err := r.LenPrefixed()
	if err != nil {
		return nil, fmt.Errorf("stark: decoding fri proof: %w", err)
	}
	fri, err := unmarshalFriProof(friBytes)
	if err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}
	numDeep, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("stark: decoding deep opening count: %w", err)
	}
	deepOpenings := make([]DeepOpening, numDeep)
	for i := range deepOpenings {
		proofBytes, err := r.LenPrefixed()
		if err != nil {
			return nil, fmt.Errorf("stark: decoding deep opening %d: %w", i, err)
		}
		mp, err := merkle.UnmarshalProof(proofBytes)
		if err != nil {
			return nil, fmt.Errorf("stark: deep opening %d: %w", i, err)
		}
		deepOpenings[i] = DeepOpening{Proof: mp}
	}
	numOpenings, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("stark: decoding trace opening count: %w", err)
	}
	openings := make([]TraceOpening, numOpenings)
	for i := range openings {
		idx, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("stark: decoding trace opening %d index: %w", i, err)
		}
		bit, err := r.Field()
		if err != nil {
			return nil, fmt.Errorf("stark: decoding trace opening %d bit: %w", i, err)
		}
		acc, err := r.Field()
		if err != nil {
			return nil, fmt.Errorf("stark: decoding trace opening %d acc: %w", i, err)
		}
		proofBytes, err := r.LenPrefixed()
		if err != nil {
			return nil, fmt.Errorf("stark: decoding trace opening %d merkle proof: %w", i, err)
		}
		mp, err := merkle.UnmarshalProof(proofBytes)
		if err != nil {
			return nil, fmt.Errorf("stark: trace opening %d: %w", i, err)
		}
		openings[i] = TraceOpening{Index: int(idx), Bit: bit, Acc: acc, MerkleProof: mp}
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("stark: proof has %d trailing bytes", r.Remaining())
	}
	return &Proof{TraceRoot: traceRoot, TraceLDERoot: traceLDERoot, AuxBits: auxBits, Fri: fri, DeepOpenings: deepOpenings, TraceOpenings: openings}, nil
}

func (p *FriProof) marshal() []byte {
	w := wire.NewWriter()
	w.U32(uint32(len(p.LayerRoots)))
	for _, d := range p.LayerRoots {
		w.Digest(d)
	}
	w.U32(uint32(len(p.FinalValues)))
	for _, v := range p.FinalValues {
		w.Field(v)
	}
	w.U32(uint32(len(p.Queries)))
	for _, q := range p.Queries {
		w.U32(uint32(q.StartIndex))
		w.U32(uint32(len(q.Layers)))
		for _, l := range q.Layers {
			w.Field(l.ValueLow)
			w.Field(l.ValueHigh)
			w.LenPrefixed(l.Proof.Marshal())
		}
	}
	return w.Bytes()
}

func unmarshalFriProof(b []byte) (*FriProof, error) {
	r := wire.NewReader(b)
	numRoots, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("decoding fri layer root count: %w", err)
	}
	roots := make([]hash.Digest, numRoots)
	for i := range roots {
		roots[i], err = r.Digest()
		if err != nil {
			return nil, fmt.Errorf("decoding fri layer root %d: %w", i, err)
		}
	}
	numFinal, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("decoding fri final value count: %w", err)
	}
	finalValues := make([]field.Element, numFinal)
	for i := range finalValues {
		finalValues[i], err = r.Field()
		if err != nil {
			return nil, fmt.Errorf("decoding fri final value %d: %w", i, err)
		}
	}
	numQueries, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("decoding fri query count: %w", err)
	}
	queries := make([]FriQueryProof, numQueries)
	for i := range queries {
		start, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("decoding fri query %d start index: %w", i, err)
		}
		numLayers, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("decoding fri query %d layer count: %w", i, err)
		}
		layers := make([]FriQueryLayer, numLayers)
		for j := range layers {
			low, err := r.Field()
			if err != nil {
				return nil, fmt.Errorf("decoding fri query %d layer %d low value: %w", i, j, err)
			}
			high, err := r.Field()
			if err != nil {
				return nil, fmt.Errorf("decoding fri query %d layer %d high value: %w", i, j, err)
			}
			proofBytes, err := r.LenPrefixed()
			if err != nil {
				return nil, fmt.Errorf("decoding fri query %d layer %d merkle proof: %w", i, j, err)
			}
			mp, err := merkle.UnmarshalProof(proofBytes)
			if err != nil {
				return nil, fmt.Errorf("fri query %d layer %d: %w", i, j, err)
			}
			layers[j] = FriQueryLayer{ValueLow: low, ValueHigh: high, Proof: mp}
		}
		queries[i] = FriQueryProof{StartIndex: int(start), Layers: layers}
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("fri proof has %d trailing bytes", r.Remaining())
	}
	return &FriProof{LayerRoots: roots, FinalValues: finalValues, Queries: queries}, nil
}
