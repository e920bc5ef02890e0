// Package oltparrow compares a self-describing columnar encoding of
// telemetry spans against a row-oriented protobuf baseline.
//
// Span batches are columnarized under a per-batch inferred schema: one
// column per fixed span field plus one per distinct attribute key, with
// validity bitmaps for nullable columns, dictionary tables for repetitive
// string columns and offset arrays for the flattened event and link lists.
// The encoded buffer carries its own schema, so decoding needs no
// out-of-band knowledge and reconstructs every record exactly, including
// the presence or absence of each optional field.
//
// # Basic Usage
//
// Encoding and decoding a batch of spans:
//
//	spans, err := trace.ReadSpans(file)
//	if err != nil {
//		return err
//	}
//
//	buf, err := oltparrow.EncodeSpans(spans)
//	if err != nil {
//		return err
//	}
//
//	decoded, err := oltparrow.DecodeSpans(buf)
//
// The wrappers infer the schema per batch and use the default encoder
// settings (little-endian, no compression). Callers that need payload
// compression, a specific endianness or access to the intermediate
// columnar table should use the columnar package directly; the bench
// package drives full codec comparisons over NDJSON input files.
package oltparrow

import (
	"github.com/lquerel/oltp-arrow/columnar"
	"github.com/lquerel/oltp-arrow/schema"
	"github.com/lquerel/oltp-arrow/trace"
)

// EncodeSpans encodes a span batch into a self-describing columnar buffer
// using the default encoder settings.
func EncodeSpans(spans []trace.Span) ([]byte, error) {
	s, err := schema.Infer(spans)
	if err != nil {
		return nil, err
	}

	encoder, err := columnar.NewEncoder()
	if err != nil {
		return nil, err
	}

	return encoder.Encode(s, spans)
}

// DecodeSpans reconstructs the span batch encoded in buf.
func DecodeSpans(buf []byte) ([]trace.Span, error) {
	return columnar.NewDecoder().Decode(buf)
}
