package stark

import (
	"fmt"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
)

// buildComposition derives the single low-degree composition polynomial
// bundling all of the blank-count STARK's algebraic constraints:
//
//  1. boolean:      bit[i]*(bit[i]-1) = 0 for every trace row
//  2. transition:   acc[i+1] - acc[i] - bit[i] = 0 for every row but the last
//  3. boundary:     acc[0] = 0
//  4. budget bound: acc[m] = budget - Σ 2^j·auxBit[j]
//
// Each constraint is divided by the vanishing polynomial of the set of
// rows it must hold on, then combined with independent random weights
// drawn from the transcript so a cheating prover cannot selectively
// satisfy one constraint at the expense of another. It also returns the
// interpolated bit and acc column polynomials so the caller can commit
// their low-degree extension alongside the composition, binding the FRI
// proof to the actual trace rather than to an arbitrary low-degree
// polynomial.
func buildComposition(t *Trace, alphas [4]field.Element) (comp, bitPoly, accPoly Poly, err error) {
	bitPoly, err = InterpolateOverSubgroup(t.Bit)
	if err != nil {
		return Poly{}, Poly{}, Poly{}, fmt.Errorf("stark: interpolating bit column: %w", err)
	}
	accPoly, err = InterpolateOverSubgroup(t.Acc)
	if err != nil {
		return Poly{}, Poly{}, Poly{}, fmt.Errorf("stark: interpolating acc column: %w", err)
	}

	g, err := field.RootOfUnity(logOf(t.N))
	if err != nil {
		return Poly{}, Poly{}, Poly{}, fmt.Errorf("stark: %w", err)
	}

	// Boolean: bit^2 - bit, must vanish on the whole subgroup.
	cBool := bitPoly.Mul(bitPoly).Sub(bitPoly)
	qBool, err := cBool.DivExact(VanishingPoly(t.N))
	if err != nil {
		return Poly{}, Poly{}, Poly{}, fmt.Errorf("stark: boolean constraint is not divisible by the vanishing polynomial: %w", err)
	}

	// Transition: acc(g*x) - acc(x) - bit(x), must vanish everywhere but
	// the last row. Forcing a zero there too via the extra linear factor
	// makes the result divisible by the full vanishing polynomial.
	accShifted := shiftByGenerator(accPoly, g)
	cTrans := accShifted.Sub(accPoly).Sub(bitPoly)
	lastRoot := g.Exp(uint64(t.N - 1))
	cTransForced := cTrans.Mul(LinearFactor(lastRoot))
	qTrans, err := cTransForced.DivExact(VanishingPoly(t.N))
	if err != nil {
		return Poly{}, Poly{}, Poly{}, fmt.Errorf("stark: transition constraint is not divisible by the vanishing polynomial: %w", err)
	}

	// Boundary: acc(1) = 0.
	qBoundary0, err := accPoly.DivExact(LinearFactor(field.One()))
	if err != nil {
		return Poly{}, Poly{}, Poly{}, fmt.Errorf("stark: boundary constraint acc(1)=0 failed: %w", err)
	}

	// Budget bound: acc(g^m) = budget - Σ 2^j·auxBit[j].
	target := field.New(uint64(t.Budget))
	weight := field.One()
	two := field.New(2)
	for _, w := range t.AuxBits {
		target = target.Sub(weight.Mul(w))
		weight = weight.Mul(two)
	}
	gm := g.Exp(uint64(t.M))
	cBudget := accPoly.Sub(NewPoly([]field.Element{target}))
	qBudget, err := cBudget.DivExact(LinearFactor(gm))
	if err != nil {
		return Poly{}, Poly{}, Poly{}, fmt.Errorf("stark: budget boundary constraint failed: %w", err)
	}

	comp = qBool.Scale(alphas[0]).
		Add(qTrans.Scale(alphas[1])).
		Add(qBoundary0.Scale(alphas[2])).
		Add(qBudget.Scale(alphas[3]))
	return comp, bitPoly, accPoly, nil
}

// recomputeComposition evaluates the same composition buildComposition
// constructs, pointwise at x, from opened trace values alone: bit and acc
// are the trace's bit/acc columns evaluated at x, and accShift is the acc
// column evaluated at g*x (the value the transition constraint needs).
// This lets a verifier that only has a handful of trace openings, rather
// than the interpolated polynomials, check that a claimed composition
// value is the one the committed trace actually produces.
func recomputeComposition(x, bit, acc, accShift field.Element, alphas [4]field.Element, g field.Element, n, m int, budget uint32, auxBits []field.Element) (field.Element, error) {
	zN := x.Exp(uint64(n)).Sub(field.One())
	if zN.IsZero() {
		return field.Element{}, fmt.Errorf("stark: query point lies in the trace evaluation domain")
	}
	zNInv, err := zN.Inv()
	if err != nil {
		return field.Element{}, fmt.Errorf("stark: %w", err)
	}

	cBool := bit.Mul(bit).Sub(bit)
	qBool := cBool.Mul(zNInv)

	gLast := g.Exp(uint64(n - 1))
	cTrans := accShift.Sub(acc).Sub(bit).Mul(x.Sub(gLast))
	qTrans := cTrans.Mul(zNInv)

	denom1 := x.Sub(field.One())
	if denom1.IsZero() {
		return field.Element{}, fmt.Errorf("stark: query point equals the boundary root")
	}
	denom1Inv, err := denom1.Inv()
	if err != nil {
		return field.Element{}, fmt.Errorf("stark: %w", err)
	}
	qBoundary0 := acc.Mul(denom1Inv)

	target := field.New(uint64(budget))
	weight := field.One()
	two := field.New(2)
	for _, w := range auxBits {
		target = target.Sub(weight.Mul(w))
		weight = weight.Mul(two)
	}
	gm := g.Exp(uint64(m))
	denomM := x.Sub(gm)
	if denomM.IsZero() {
		return field.Element{}, fmt.Errorf("stark: query point equals the budget boundary root")
	}
	denomMInv, err := denomM.Inv()
	if err != nil {
		return field.Element{}, fmt.Errorf("stark: %w", err)
	}
	qBudget := acc.Sub(target).Mul(denomMInv)

	comp := qBool.Mul(alphas[0]).
		Add(qTrans.Mul(alphas[1])).
		Add(qBoundary0.Mul(alphas[2])).
		Add(qBudget.Mul(alphas[3]))
	return comp, nil
}

// shiftByGenerator returns the polynomial p(g*x), i.e. p with coefficient
// i scaled by g^i.
func shiftByGenerator(p Poly, g field.Element) Poly {
	coeffs := p.Coeffs()
	power := field.One()
	for i := range coeffs {
		coeffs[i] = coeffs[i].Mul(power)
		power = power.Mul(g)
	}
	return NewPoly(coeffs)
}

func logOf(n int) int {
	log, err := log2Exact(n)
	if err != nil {
		panic(err) // n is always a power of two by construction in this package
	}
	return log
}
