package encoding

import (
	"fmt"

	"github.com/lquerel/oltp-arrow/errs"
)

// Bitmap is an append-only bit vector used for validity bitmaps (one bit
// per record, 1 = value present) and for bit-packed boolean value arrays.
//
// Bits are packed LSB-first within each byte: bit i lives in byte i/8 at
// position i%8. The final partial byte is zero-padded, which keeps the
// encoding deterministic.
type Bitmap struct {
	bits []byte
	n    int
}

// NewBitmap returns a Bitmap with capacity for n bits preallocated.
func NewBitmap(n int) *Bitmap {
	return &Bitmap{bits: make([]byte, 0, (n+7)/8)}
}

// Append adds one bit to the bitmap.
func (b *Bitmap) Append(set bool) {
	if b.n%8 == 0 {
		b.bits = append(b.bits, 0)
	}
	if set {
		b.bits[b.n/8] |= 1 << (b.n % 8)
	}
	b.n++
}

// Len returns the number of bits appended.
func (b *Bitmap) Len() int {
	return b.n
}

// SetCount returns the number of 1 bits.
func (b *Bitmap) SetCount() int {
	count := 0
	for i := 0; i < b.n; i++ {
		if b.Get(i) {
			count++
		}
	}

	return count
}

// Get returns bit i. Panics if i is out of range.
func (b *Bitmap) Get(i int) bool {
	if i < 0 || i >= b.n {
		panic(fmt.Sprintf("bitmap index %d out of range [0,%d)", i, b.n))
	}

	return b.bits[i/8]&(1<<(i%8)) != 0
}

// Bytes returns the packed representation. The caller must not modify the
// returned slice.
func (b *Bitmap) Bytes() []byte {
	return b.bits
}

// BitmapSize returns the packed byte size of an n-bit bitmap.
func BitmapSize(n int) int {
	return (n + 7) / 8
}

// BitmapReader reads a packed bitmap produced by Bitmap.
type BitmapReader struct {
	bits []byte
	n    int
}

// NewBitmapReader validates that data holds exactly the packed bytes for n
// bits and returns a reader over it. A length disagreement is a malformed
// buffer: the bitmap no longer matches the declared record count.
func NewBitmapReader(data []byte, n int) (BitmapReader, error) {
	if len(data) != BitmapSize(n) {
		return BitmapReader{}, fmt.Errorf("%w: validity bitmap holds %d bytes, want %d for %d records",
			errs.ErrMalformedBuffer, len(data), BitmapSize(n), n)
	}

	return BitmapReader{bits: data, n: n}, nil
}

// Len returns the number of bits in the bitmap.
func (r BitmapReader) Len() int {
	return r.n
}

// Get returns bit i. Panics if i is out of range.
func (r BitmapReader) Get(i int) bool {
	if i < 0 || i >= r.n {
		panic(fmt.Sprintf("bitmap index %d out of range [0,%d)", i, r.n))
	}

	return r.bits[i/8]&(1<<(i%8)) != 0
}

// SetCount returns the number of 1 bits.
func (r BitmapReader) SetCount() int {
	count := 0
	for i := 0; i < r.n; i++ {
		if r.Get(i) {
			count++
		}
	}

	return count
}
