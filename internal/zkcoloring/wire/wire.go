// Package wire implements the length-prefixed binary primitives every
// on-disk structure the protocol emits is built from: fixed-width
// primitives (field elements as 8 little-endian bytes, integers big-endian,
// roots raw, arrays 4-byte BE count prefixed) and 4-byte big-endian length
// prefixes. It also offers a tagged envelope (a 2-byte type tag, a 4-byte
// big-endian length, and the payload); the structures in this module are
// written without that envelope, with no type tags. Higher-level
// packages own their own Marshal/Unmarshal methods built from these
// primitives; this package knows nothing about protocol-specific types.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/field"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/hash"
)

// Writer accumulates bytes in the canonical layout. The zero value is
// ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated byte slice.
func (w *Writer) Bytes() []byte { return w.buf }

// Raw appends b verbatim, with no length prefix.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// U16 appends a 2-byte big-endian integer.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Raw(b[:])
}

// U32 appends a 4-byte big-endian integer.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.Raw(b[:])
}

// U64 appends an 8-byte big-endian integer.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.Raw(b[:])
}

// Bool appends a single byte, 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.Raw([]byte{1})
	} else {
		w.Raw([]byte{0})
	}
}

// LenPrefixed appends a 4-byte big-endian length followed by b.
func (w *Writer) LenPrefixed(b []byte) {
	w.U32(uint32(len(b)))
	w.Raw(b)
}

// Field appends a field element as its canonical 8 little-endian bytes.
func (w *Writer) Field(e field.Element) {
	b := e.Bytes()
	w.Raw(b[:])
}

// Digest appends a 32-byte hash digest raw.
func (w *Writer) Digest(d hash.Digest) { w.Raw(d[:]) }

// Tagged appends a 2-byte type tag and the length-prefixed payload. No
// structure in this module is encoded with this envelope.
func (w *Writer) Tagged(tag uint16, payload []byte) {
	w.U16(tag)
	w.LenPrefixed(payload)
}

// Reader consumes bytes written by Writer in the same order they were
// written.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

// Remaining reports how many bytes are left unconsumed.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Raw consumes and returns the next n bytes.
func (r *Reader) Raw(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("wire: short read: need %d bytes, have %d", n, r.Remaining())
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// U16 consumes a 2-byte big-endian integer.
func (r *Reader) U16() (uint16, error) {
	b, err := r.Raw(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// U32 consumes a 4-byte big-endian integer.
func (r *Reader) U32() (uint32, error) {
	b, err := r.Raw(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// U64 consumes an 8-byte big-endian integer.
func (r *Reader) U64() (uint64, error) {
	b, err := r.Raw(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Bool consumes a single boolean byte.
func (r *Reader) Bool() (bool, error) {
	b, err := r.Raw(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// LenPrefixed consumes a 4-byte big-endian length and that many bytes.
func (r *Reader) LenPrefixed() ([]byte, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	return r.Raw(int(n))
}

// Field consumes a canonical 8-byte little-endian field element.
func (r *Reader) Field() (field.Element, error) {
	b, err := r.Raw(field.ByteWidth)
	if err != nil {
		return field.Element{}, err
	}
	var arr [8]byte
	copy(arr[:], b)
	return field.FromBytes(arr), nil
}

// Digest consumes a raw 32-byte hash digest.
func (r *Reader) Digest() (hash.Digest, error) {
	b, err := r.Raw(hash.Size)
	if err != nil {
		return hash.Digest{}, err
	}
	var d hash.Digest
	copy(d[:], b)
	return d, nil
}

// Tagged consumes a 2-byte type tag and its length-prefixed payload.
func (r *Reader) Tagged() (uint16, []byte, error) {
	tag, err := r.U16()
	if err != nil {
		return 0, nil, err
	}
	payload, err := r.LenPrefixed()
	if err != nil {
		return 0, nil, err
	}
	return tag, payload, nil
}
