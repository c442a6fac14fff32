// Package field implements arithmetic over the Goldilocks prime field
// GF(p), p = 2^64 - 2^32 + 1, used throughout the protocol and the
// blank-count STARK.
package field

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Modulus is the Goldilocks prime p = 2^64 - 2^32 + 1.
const Modulus uint64 = 0xFFFFFFFF00000001

// ByteWidth is the length of an element's canonical byte encoding.
const ByteWidth = 8

// Size returns the length in bytes of an element's canonical encoding.
func Size() int { return ByteWidth }

// epsilon is 2^32 - 1, i.e. 2^64 - Modulus. It recurs throughout the
// folded reduction below because 2^64 ≡ epsilon (mod p).
const epsilon uint64 = 0xFFFFFFFF

// generator2Adic is a primitive (2^32)-th root of unity of the Goldilocks
// multiplicative group; p-1 = 2^32 * (2^32 - 1), so this is the largest
// power-of-two-order subgroup the field offers.
const generator2Adic uint64 = 1753635133440165772

// twoAdicity is the largest k such that a primitive 2^k-th root of unity
// exists in this field.
const twoAdicity = 32

// Element is a canonical residue in [0, Modulus).
type Element struct {
	v uint64
}

// New reduces x into the canonical range and returns the corresponding
// Element.
func New(x uint64) Element {
	return Element{v: canonicalize(x)}
}

// Zero is the additive identity.
func Zero() Element { return Element{} }

// One is the multiplicative identity.
func One() Element { return Element{v: 1} }

func canonicalize(x uint64) uint64 {
	if x >= Modulus {
		x -= Modulus
	}
	return x
}

// Uint64 returns the canonical residue.
func (e Element) Uint64() uint64 { return e.v }

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool { return e.v == 0 }

// Equal reports whether e and o represent the same residue.
func (e Element) Equal(o Element) bool { return e.v == o.v }

// Add returns e + o mod p.
func (e Element) Add(o Element) Element {
	sum, carry := bits.Add64(e.v, o.v, 0)
	if carry != 0 {
		// sum overflowed 2^64; 2^64 ≡ epsilon (mod p).
		sum += epsilon
	}
	return Element{v: canonicalize(sum)}
}

// Sub returns e - o mod p.
func (e Element) Sub(o Element) Element {
	diff, borrow := bits.Sub64(e.v, o.v, 0)
	if borrow != 0 {
		diff -= epsilon
	}
	return Element{v: canonicalize(diff)}
}

// Neg returns -e mod p.
func (e Element) Neg() Element {
	if e.v == 0 {
		return e
	}
	return Element{v: Modulus - e.v}
}

// Mul returns e * o mod p using a 128-bit product and the folded
// Goldilocks reduction (2^64 ≡ 2^32-1, 2^96 ≡ -1 mod p).
func (e Element) Mul(o Element) Element {
	hi, lo := bits.Mul64(e.v, o.v)
	return Element{v: reduce128(hi, lo)}
}

func reduce128(hi, lo uint64) uint64 {
	hiHi := hi >> 32
	hiLo := hi & epsilon

	t0, borrow := bits.Sub64(lo, hiHi, 0)
	if borrow != 0 {
		t0 -= epsilon
	}

	t1 := hiLo * epsilon // hiLo, epsilon < 2^32, product fits in 64 bits.

	t2, carry := bits.Add64(t0, t1, 0)
	if carry != 0 {
		t2 += epsilon
	}
	return canonicalize(t2)
}

// Exp returns e^n mod p via square-and-multiply.
func (e Element) Exp(n uint64) Element {
	result := One()
	base := e
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		n >>= 1
	}
	return result
}

// Inv returns the multiplicative inverse of e via Fermat's little theorem:
// e^(p-2) ≡ e^-1 (mod p). It returns an error if e is zero.
func (e Element) Inv() (Element, error) {
	if e.IsZero() {
		return Element{}, fmt.Errorf("field: cannot invert zero")
	}
	return e.Exp(Modulus - 2), nil
}

// Div returns e / o mod p.
func (e Element) Div(o Element) (Element, error) {
	inv, err := o.Inv()
	if err != nil {
		return Element{}, fmt.Errorf("field: division by zero")
	}
	return e.Mul(inv), nil
}

// RootOfUnity returns a primitive 2^logOrder-th root of unity. logOrder
// must be in [0, 32].
func RootOfUnity(logOrder int) (Element, error) {
	if logOrder < 0 || logOrder > twoAdicity {
		return Element{}, fmt.Errorf("field: root of unity order 2^%d exceeds two-adicity %d", logOrder, twoAdicity)
	}
	g := Element{v: generator2Adic}
	return g.Exp(1 << uint(twoAdicity-logOrder)), nil
}

// Random draws a uniformly random element using rejection sampling over an
// 8-byte crypto-random draw, discarding draws landing in the modulo-bias
// zone above the largest multiple of Modulus that fits in 64 bits.
func Random() (Element, error) {
	limit := (^uint64(0) / Modulus) * Modulus
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return Element{}, fmt.Errorf("field: random draw failed: %w", err)
		}
		x := binary.LittleEndian.Uint64(buf[:])
		if x < limit {
			return Element{v: x % Modulus}, nil
		}
	}
}

// Bytes encodes e as 8 little-endian bytes of its canonical residue, per
// the wire format's field-element layout.
func (e Element) Bytes() [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], e.v)
	return b
}

// FromBytes decodes 8 little-endian bytes into a canonicalized Element.
func FromBytes(b [8]byte) Element {
	return New(binary.LittleEndian.Uint64(b[:]))
}

// String renders the canonical residue for debugging.
func (e Element) String() string {
	return fmt.Sprintf("%d", e.v)
}
