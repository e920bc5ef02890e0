package columnar

import (
	"fmt"

	"github.com/lquerel/oltp-arrow/compress"
	"github.com/lquerel/oltp-arrow/endian"
	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/format"
	"github.com/lquerel/oltp-arrow/internal/options"
	"github.com/lquerel/oltp-arrow/internal/pool"
	"github.com/lquerel/oltp-arrow/schema"
	"github.com/lquerel/oltp-arrow/section"
	"github.com/lquerel/oltp-arrow/trace"
)

// Encoder serializes span batches into self-describing columnar buffers.
//
// An Encoder is immutable after construction and safe for concurrent use;
// the benchmark workers share one encoder per configuration.
type Encoder struct {
	engine      endian.EndianEngine
	compression format.CompressionType
	codec       compress.Codec
}

// EncoderOption configures an Encoder.
type EncoderOption = options.Option[*Encoder]

// WithCompression selects the codec applied to the column payload. The
// header and schema sections are never compressed.
func WithCompression(compression format.CompressionType) EncoderOption {
	return options.New(func(e *Encoder) error {
		if !compression.Valid() {
			return fmt.Errorf("%w: invalid compression type 0x%02x", errs.ErrInvalidConfig, uint8(compression))
		}
		e.compression = compression

		return nil
	})
}

// WithLittleEndian encodes the column payload little-endian. This is the
// default.
func WithLittleEndian() EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.engine = endian.GetLittleEndianEngine()
	})
}

// WithBigEndian encodes the column payload big-endian.
func WithBigEndian() EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.engine = endian.GetBigEndianEngine()
	})
}

// NewEncoder creates an Encoder. Without options it encodes little-endian
// with no compression.
func NewEncoder(opts ...EncoderOption) (*Encoder, error) {
	e := &Encoder{
		engine:      endian.GetLittleEndianEngine(),
		compression: format.CompressionNone,
	}
	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}

	codec, err := compress.GetCodec(e.compression)
	if err != nil {
		return nil, err
	}
	e.codec = codec

	return e, nil
}

// Encode columnarizes spans under s and serializes the result. It is
// equivalent to BuildTable followed by EncodeTable and exists for callers
// that start from row-oriented records.
func (e *Encoder) Encode(s *schema.Schema, spans []trace.Span) ([]byte, error) {
	table, err := BuildTable(s, spans)
	if err != nil {
		return nil, err
	}

	return e.EncodeTable(table)
}

// EncodeTable serializes an already built table: fixed header, schema
// section, then the column payload, optionally compressed. The returned
// buffer is newly allocated and owned by the caller.
func (e *Encoder) EncodeTable(t *Table) ([]byte, error) {
	header := section.NewHeader(t.records, len(t.columns), t.schema.Fingerprint(), e.engine, e.compression)

	bb := pool.GetColumnBuffer()
	defer pool.PutColumnBuffer(bb)

	bb.Grow(t.PayloadSize())
	bb.B = t.AppendPayload(bb.B, e.engine)

	payload := bb.B
	if e.compression != format.CompressionNone {
		compressed, err := e.codec.Compress(payload)
		if err != nil {
			return nil, fmt.Errorf("compress column payload: %w", err)
		}
		payload = compressed
	}

	out := make([]byte, 0, section.HeaderSize+section.SchemaSize(t.schema)+len(payload))
	out = header.AppendTo(out)
	out = section.AppendSchema(out, t.schema)
	out = append(out, payload...)

	return out, nil
}
