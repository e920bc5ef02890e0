// Package hash provides the 64-bit identifiers used for schema fingerprints
// and attribute-set fingerprints in batch statistics.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Digest is an incremental xxHash64 accumulator for multi-part identifiers
// such as schema fingerprints.
type Digest struct {
	d xxhash.Digest
}

// NewDigest returns a reset Digest ready for writes.
func NewDigest() *Digest {
	var dg Digest
	dg.d.Reset()

	return &dg
}

// WriteString folds s into the digest.
func (dg *Digest) WriteString(s string) {
	_, _ = dg.d.WriteString(s)
}

// WriteByte folds a single byte into the digest. The error is always nil;
// the signature matches io.ByteWriter.
func (dg *Digest) WriteByte(b byte) error {
	_, _ = dg.d.Write([]byte{b})

	return nil
}

// Sum64 returns the current hash value.
func (dg *Digest) Sum64() uint64 {
	return dg.d.Sum64()
}
