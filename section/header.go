package section

import (
	"fmt"

	"github.com/lquerel/oltp-arrow/endian"
	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/format"
)

const (
	// HeaderSize is the fixed byte size of the header section.
	HeaderSize = 24

	// Magic identifies a columnar span batch buffer ("OARC").
	Magic uint32 = 0x4352414F

	// Version is the current wire format version.
	Version uint8 = 0x01

	// optBigEndian flags a payload written with the big-endian engine.
	optBigEndian uint8 = 0x01
)

// Header is the fixed-size section at the start of every encoded batch.
//
// The magic and the header fields themselves are always little-endian;
// the options byte records which engine encoded the payload sections.
type Header struct {
	// SchemaFingerprint is the 64-bit hash of the column layout, used to
	// reject a buffer paired with the wrong schema.
	SchemaFingerprint uint64
	// RecordCount is the number of top-level span records in the batch.
	RecordCount uint32
	// ColumnCount is the number of top-level columns.
	ColumnCount uint32
	// Version is the wire format version.
	Version uint8
	// Options carries the endianness flag.
	Options uint8
	// Compression is the codec applied to the column payload.
	Compression format.CompressionType
}

// NewHeader creates a header for a batch of records encoded with the given
// engine and compression.
func NewHeader(records int, columns int, fingerprint uint64, engine endian.EndianEngine, compression format.CompressionType) Header {
	h := Header{
		SchemaFingerprint: fingerprint,
		RecordCount:       uint32(records), //nolint:gosec
		ColumnCount:       uint32(columns), //nolint:gosec
		Version:           Version,
		Compression:       compression,
	}
	if engine == endian.GetBigEndianEngine() {
		h.Options |= optBigEndian
	}

	return h
}

// Engine returns the endian engine the payload sections were written with.
func (h *Header) Engine() endian.EndianEngine {
	if h.Options&optBigEndian != 0 {
		return endian.GetBigEndianEngine()
	}

	return endian.GetLittleEndianEngine()
}

// AppendTo serializes the header to dst.
func (h *Header) AppendTo(dst []byte) []byte {
	le := endian.GetLittleEndianEngine()

	dst = le.AppendUint32(dst, Magic)
	dst = append(dst, h.Version, h.Options, byte(h.Compression), 0)
	dst = le.AppendUint32(dst, h.RecordCount)
	dst = le.AppendUint32(dst, h.ColumnCount)
	dst = le.AppendUint64(dst, h.SchemaFingerprint)

	return dst
}

// ParseHeader parses and validates a header from the start of data and
// returns it along with the remaining bytes.
func ParseHeader(data []byte) (Header, []byte, error) {
	if len(data) < HeaderSize {
		return Header{}, nil, fmt.Errorf("%w: %d bytes, want at least %d", errs.ErrInvalidHeader, len(data), HeaderSize)
	}

	le := endian.GetLittleEndianEngine()
	if got := le.Uint32(data[0:4]); got != Magic {
		return Header{}, nil, fmt.Errorf("%w: bad magic 0x%08x", errs.ErrInvalidHeader, got)
	}

	h := Header{
		Version:     data[4],
		Options:     data[5],
		Compression: format.CompressionType(data[6]),
	}
	if h.Version != Version {
		return Header{}, nil, fmt.Errorf("%w: unsupported version %d", errs.ErrInvalidHeader, h.Version)
	}
	if !h.Compression.Valid() {
		return Header{}, nil, fmt.Errorf("%w: invalid compression type 0x%02x", errs.ErrInvalidHeader, data[6])
	}

	h.RecordCount = le.Uint32(data[8:12])
	h.ColumnCount = le.Uint32(data[12:16])
	h.SchemaFingerprint = le.Uint64(data[16:24])

	return h, data[HeaderSize:], nil
}
