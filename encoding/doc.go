// Package encoding provides the low-level columnar primitives the span
// codec is built from: validity bitmaps, list offsets arrays, first-seen
// string dictionaries, length-prefixed byte strings and packed primitive
// arrays.
//
// The primitives are deliberately dumb: they move bytes and validate shape
// invariants (bitmap length, offset monotonicity, dictionary code range)
// but know nothing about spans or schemas. The columnar package composes
// them into full column encoders and decoders.
package encoding
