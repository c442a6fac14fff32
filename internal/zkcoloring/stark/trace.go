package stark

import (
	"fmt"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
)

// Trace is the execution trace backing the blank-count STARK: a bit
// column (the blank-bit vector, zero-padded), its running-sum column,
// and a fixed number of auxiliary bit columns whose values range-check
// the boundary claim acc[m] <= budget.
type Trace struct {
	N          int // next_pow2(m+1), the trace length
	M          int // number of real (non-padding) rows
	Bit        []field.Element
	Acc        []field.Element
	AuxBits    []field.Element // length NumAuxBits, each 0 or 1
	NumAuxBits int
	Budget     uint32
}

// BuildTrace lays out the execution trace for a committed blank-bit
// vector and a declared budget. The trace is well-formed (boolean and
// transition constraints hold) regardless of whether the true blank
// count exceeds budget; an over-budget claim instead fails to produce a
// valid auxiliary bit decomposition, so the budget boundary constraint
// cannot be satisfied and Prove fails when it builds the composition.
func BuildTrace(blankBits []bool, budget uint32) (*Trace, error) {
	m := len(blankBits)
	if m == 0 {
		return nil, fmt.Errorf("stark: cannot build a trace over zero edges")
	}
	n := nextPowerOfTwo(m + 1)

	bit := make([]field.Element, n)
	acc := make([]field.Element, n)
	acc[0] = field.Zero()
	var sum uint64
	for i := 0; i < n; i++ {
		if i < m && blankBits[i] {
			bit[i] = field.One()
		} else {
			bit[i] = field.Zero()
		}
		if i+1 < n {
			acc[i+1] = acc[i].Add(bit[i])
		}
		if i < m && blankBits[i] {
			sum++
		}
	}

	numAuxBits := bitLength(uint64(budget) + 1)
	if numAuxBits == 0 {
		numAuxBits = 1
	}
	auxBits := make([]field.Element, numAuxBits)
	diff := int64(budget) - int64(sum)
	if diff < 0 {
		// The true blank count already exceeds budget: there is no valid
		// bit decomposition of a negative value. Auxiliary bits are left
		// zero; the budget boundary constraint then fails to reconcile
		// against acc[m], and buildComposition reports the failure.
		for i := range auxBits {
			auxBits[i] = field.Zero()
		}
	} else {
		u := uint64(diff)
		for i := range auxBits {
			if u&1 == 1 {
				auxBits[i] = field.One()
			} else {
				auxBits[i] = field.Zero()
			}
			u >>= 1
		}
	}

	return &Trace{
		N:          n,
		M:          m,
		Bit:        bit,
		Acc:        acc,
		AuxBits:    auxBits,
		NumAuxBits: numAuxBits,
		Budget:     budget,
	}, nil
}

// AccAtBudgetRow returns acc[m], the total observed blank count.
func (t *Trace) AccAtBudgetRow() field.Element {
	return t.Acc[t.M]
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

func bitLength(x uint64) int {
	n := 0
	for x > 0 {
		n++
		x >>= 1
	}
	return n
}
