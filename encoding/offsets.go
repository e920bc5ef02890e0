package encoding

import (
	"fmt"

	"github.com/lquerel/oltp-arrow/endian"
	"github.com/lquerel/oltp-arrow/errs"
)

// OffsetsEncoder builds the offsets array of a list column: records+1
// uint32 values where offsets[i+1]-offsets[i] is the element count of
// record i. offsets[0] is always 0 and offsets[last] is the flattened child
// row count.
type OffsetsEncoder struct {
	offsets []uint32
}

// NewOffsetsEncoder returns an encoder primed with the leading zero offset.
func NewOffsetsEncoder(records int) *OffsetsEncoder {
	offsets := make([]uint32, 1, records+1)

	return &OffsetsEncoder{offsets: offsets}
}

// Append records that the next record owns count child rows.
func (e *OffsetsEncoder) Append(count int) {
	last := e.offsets[len(e.offsets)-1]
	e.offsets = append(e.offsets, last+uint32(count)) //nolint:gosec
}

// Total returns the flattened child row count so far.
func (e *OffsetsEncoder) Total() int {
	return int(e.offsets[len(e.offsets)-1])
}

// AppendTo serializes the offsets array to dst using the given engine.
func (e *OffsetsEncoder) AppendTo(dst []byte, engine endian.EndianEngine) []byte {
	for _, off := range e.offsets {
		dst = engine.AppendUint32(dst, off)
	}

	return dst
}

// Size returns the serialized byte size of the offsets array.
func (e *OffsetsEncoder) Size() int {
	return 4 * len(e.offsets)
}

// OffsetsReader reads and validates a serialized offsets array.
type OffsetsReader struct {
	offsets []uint32
}

// NewOffsetsReader decodes records+1 offsets from data and validates the
// list invariants: offsets[0] = 0 and non-decreasing throughout. A
// violation is a malformed buffer, reported with the offending record
// index.
func NewOffsetsReader(data []byte, records int, engine endian.EndianEngine) (OffsetsReader, []byte, error) {
	need := 4 * (records + 1)
	if len(data) < need {
		return OffsetsReader{}, nil, fmt.Errorf("%w: offsets array truncated: %d bytes, want %d",
			errs.ErrMalformedBuffer, len(data), need)
	}

	offsets := make([]uint32, records+1)
	for i := range offsets {
		offsets[i] = engine.Uint32(data[4*i:])
	}
	if offsets[0] != 0 {
		return OffsetsReader{}, nil, fmt.Errorf("%w: offsets[0] = %d, want 0", errs.ErrMalformedBuffer, offsets[0])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return OffsetsReader{}, nil, fmt.Errorf("%w: non-monotonic offsets at record %d: %d < %d",
				errs.ErrMalformedBuffer, i-1, offsets[i], offsets[i-1])
		}
	}

	return OffsetsReader{offsets: offsets}, data[need:], nil
}

// Range returns the half-open child row range [start, end) of record i.
func (r OffsetsReader) Range(i int) (int, int) {
	return int(r.offsets[i]), int(r.offsets[i+1])
}

// Total returns the flattened child row count.
func (r OffsetsReader) Total() int {
	return int(r.offsets[len(r.offsets)-1])
}
