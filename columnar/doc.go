// Package columnar implements the self-describing columnar codec for span
// batches.
//
// Encoding is a two-step pipeline: a Table columnarizes one batch under its
// inferred schema (validity bitmaps, dictionaries, offsets, packed value
// arrays), then an Encoder serializes the table into a single byte buffer
// (header, schema section, column payload). The split exists so the
// benchmark harness can time the two steps independently: encoding from
// row-oriented records pays for both, while encoding from an already
// columnarized source pays only for serialization.
//
// The Decoder reverses the pipeline and reconstructs the exact original
// batch, including the presence/absence of every optional field. Encoding
// is deterministic: the same (schema, batch) pair always produces
// byte-identical output.
package columnar
