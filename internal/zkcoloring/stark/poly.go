package stark

import (
	"fmt"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
)

// Poly is a univariate polynomial over the Goldilocks field in coefficient
// form, coeffs[i] being the coefficient of x^i. It is always trimmed: the
// leading coefficient is nonzero, except for the zero polynomial which is
// represented as a single zero coefficient.
type Poly struct {
	coeffs []field.Element
}

// NewPoly builds a trimmed polynomial from coeffs.
func NewPoly(coeffs []field.Element) Poly {
	n := len(coeffs)
	for n > 1 && coeffs[n-1].IsZero() {
		n--
	}
	out := make([]field.Element, n)
	copy(out, coeffs[:n])
	return Poly{coeffs: out}
}

// Degree returns the polynomial's degree; the zero polynomial has degree 0.
func (p Poly) Degree() int { return len(p.coeffs) - 1 }

// Coeffs returns a copy of the coefficient vector.
func (p Poly) Coeffs() []field.Element {
	out := make([]field.Element, len(p.coeffs))
	copy(out, p.coeffs)
	return out
}

func (p Poly) coeffAt(i int) field.Element {
	if i < 0 || i >= len(p.coeffs) {
		return field.Zero()
	}
	return p.coeffs[i]
}

// Eval evaluates p at x via Horner's method.
func (p Poly) Eval(x field.Element) field.Element {
	acc := field.Zero()
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		acc = acc.Mul(x).Add(p.coeffs[i])
	}
	return acc
}

// Add returns p + q.
func (p Poly) Add(q Poly) Poly {
	n := len(p.coeffs)
	if len(q.coeffs) > n {
		n = len(q.coeffs)
	}
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		out[i] = p.coeffAt(i).Add(q.coeffAt(i))
	}
	return NewPoly(out)
}

// Sub returns p - q.
func (p Poly) Sub(q Poly) Poly {
	n := len(p.coeffs)
	if len(q.coeffs) > n {
		n = len(q.coeffs)
	}
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		out[i] = p.coeffAt(i).Sub(q.coeffAt(i))
	}
	return NewPoly(out)
}

// Scale returns c*p.
func (p Poly) Scale(c field.Element) Poly {
	out := make([]field.Element, len(p.coeffs))
	for i, v := range p.coeffs {
		out[i] = v.Mul(c)
	}
	return NewPoly(out)
}

// Mul returns p * q via schoolbook multiplication.
func (p Poly) Mul(q Poly) Poly {
	out := make([]field.Element, len(p.coeffs)+len(q.coeffs)-1)
	for i := range out {
		out[i] = field.Zero()
	}
	for i, a := range p.coeffs {
		if a.IsZero() {
			continue
		}
		for j, b := range q.coeffs {
			out[i+j] = out[i+j].Add(a.Mul(b))
		}
	}
	return NewPoly(out)
}

// LinearFactor returns the monic polynomial (x - root).
func LinearFactor(root field.Element) Poly {
	return NewPoly([]field.Element{root.Neg(), field.One()})
}

// VanishingPoly returns x^n - 1, the vanishing polynomial of the
// multiplicative subgroup of order n.
func VanishingPoly(n int) Poly {
	coeffs := make([]field.Element, n+1)
	for i := range coeffs {
		coeffs[i] = field.Zero()
	}
	coeffs[0] = field.One().Neg()
	coeffs[n] = field.One()
	return NewPoly(coeffs)
}

// DivExact divides p by a monic divisor and errors if the remainder is
// nonzero; used to divide constraint polynomials by vanishing
// polynomials and linear boundary factors, both of which are monic.
func (p Poly) DivExact(divisor Poly) (Poly, error) {
	if divisor.Degree() == 0 && divisor.coeffAt(0).IsZero() {
		return Poly{}, fmt.Errorf("stark: division by the zero polynomial")
	}
	lead := divisor.coeffAt(divisor.Degree())
	if !lead.Equal(field.One()) {
		return Poly{}, fmt.Errorf("stark: DivExact requires a monic divisor")
	}
	remainder := make([]field.Element, len(p.coeffs))
	copy(remainder, p.coeffs)
	quotDeg := p.Degree() - divisor.Degree()
	if quotDeg < 0 {
		for _, c := range remainder {
			if !c.IsZero() {
				return Poly{}, fmt.Errorf("stark: exact division left a nonzero remainder")
			}
		}
		return NewPoly([]field.Element{field.Zero()}), nil
	}
	quotient := make([]field.Element, quotDeg+1)
	for d := quotDeg; d >= 0; d-- {
		coeff := remainder[d+divisor.Degree()]
		quotient[d] = coeff
		if coeff.IsZero() {
			continue
		}
		for j := 0; j <= divisor.Degree(); j++ {
			remainder[d+j] = remainder[d+j].Sub(coeff.Mul(divisor.coeffAt(j)))
		}
	}
	for _, c := range remainder {
		if !c.IsZero() {
			return Poly{}, fmt.Errorf("stark: exact division left a nonzero remainder")
		}
	}
	return NewPoly(quotient), nil
}

// isPowerOfTwo reports whether n is a positive power of two.
func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

// log2Exact returns log2(n) for a power-of-two n, or an error otherwise.
func log2Exact(n int) (int, error) {
	if !isPowerOfTwo(n) {
		return 0, fmt.Errorf("stark: %d is not a power of two", n)
	}
	log := 0
	for (1 << uint(log)) < n {
		log++
	}
	return log, nil
}

// bitReverse permutes a in place according to the bit-reversal of each
// index, the standard preprocessing step for an iterative NTT.
func bitReverse(a []field.Element) {
	n := len(a)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}
}

// ntt computes the iterative Cooley-Tukey number-theoretic transform of a
// in place, using root as a primitive len(a)-th root of unity. Forward
// evaluation (coefficients -> values at powers of root) and inverse
// interpolation (values -> coefficients, with the caller dividing by n
// and using root^-1) both reduce to this same butterfly network.
func ntt(a []field.Element, root field.Element) {
	n := len(a)
	bitReverse(a)
	for length := 2; length <= n; length <<= 1 {
		step := root.Exp(uint64(n / length))
		for start := 0; start < n; start += length {
			w := field.One()
			half := length / 2
			for i := 0; i < half; i++ {
				u := a[start+i]
				v := a[start+i+half].Mul(w)
				a[start+i] = u.Add(v)
				a[start+i+half] = u.Sub(v)
				w = w.Mul(step)
			}
		}
	}
}

// EvaluateOverSubgroup evaluates p at every power of the canonical
// n-th root of unity, n a power of two, via a forward NTT. p's
// coefficients are zero-padded to length n.
func EvaluateOverSubgroup(p Poly, n int) ([]field.Element, error) {
	logN, err := log2Exact(n)
	if err != nil {
		return nil, err
	}
	root, err := field.RootOfUnity(logN)
	if err != nil {
		return nil, fmt.Errorf("stark: %w", err)
	}
	buf := make([]field.Element, n)
	for i := range buf {
		buf[i] = p.coeffAt(i)
	}
	ntt(buf, root)
	return buf, nil
}

// InterpolateOverSubgroup recovers the unique polynomial of degree < n
// that takes the given values at the powers of the canonical n-th root of
// unity, n = len(values), a power of two.
func InterpolateOverSubgroup(values []field.Element) (Poly, error) {
	n := len(values)
	logN, err := log2Exact(n)
	if err != nil {
		return Poly{}, err
	}
	root, err := field.RootOfUnity(logN)
	if err != nil {
		return Poly{}, fmt.Errorf("stark: %w", err)
	}
	invRoot, err := root.Inv()
	if err != nil {
		return Poly{}, fmt.Errorf("stark: root of unity has no inverse: %w", err)
	}
	buf := make([]field.Element, n)
	copy(buf, values)
	ntt(buf, invRoot)
	invN, err := field.New(uint64(n)).Inv()
	if err != nil {
		return Poly{}, fmt.Errorf("stark: %w", err)
	}
	for i := range buf {
		buf[i] = buf[i].Mul(invN)
	}
	return NewPoly(buf), nil
}

// EvaluateOverCoset evaluates p at every point of offset * <root_n>, the
// coset used for the low-degree extension: p(offset*x) expands to
// Σ coeff[i]*offset^i*x^i, so scaling coefficients by powers of offset
// and running the ordinary subgroup NTT evaluates the shifted polynomial.
func EvaluateOverCoset(p Poly, n int, offset field.Element) ([]field.Element, error) {
	scaled := make([]field.Element, n)
	power := field.One()
	for i := 0; i < n; i++ {
		scaled[i] = p.coeffAt(i).Mul(power)
		power = power.Mul(offset)
	}
	return EvaluateOverSubgroup(NewPoly(scaled), n)
}
