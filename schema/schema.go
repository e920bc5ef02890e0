// Package schema derives a columnar schema from a batch of span records.
//
// A Schema is a pure function of one batch: it is recomputed per batch,
// never mutated in place, and a (Schema, buffer) pair is only meaningful for
// the batch it was derived from. The schema is the union of every field and
// attribute key observed across the batch, so structurally heterogeneous
// records share one flat column layout.
package schema

import (
	"github.com/lquerel/oltp-arrow/format"
	"github.com/lquerel/oltp-arrow/internal/hash"
)

// FieldID tags a column with its semantic role so encoders and decoders
// dispatch on a small enum instead of parsing column paths.
type FieldID uint8

const (
	FieldTraceID FieldID = iota + 1
	FieldSpanID
	FieldTraceState
	FieldParentSpanID
	FieldName
	FieldKind
	FieldStartTime
	FieldEndTime
	FieldDroppedAttributes
	FieldDroppedEvents
	FieldDroppedLinks
	FieldTimeUnixNano
	FieldAttribute
	FieldEvents
	FieldLinks
)

// Column describes a single column: its path, semantic role, logical type
// and nullability. List columns additionally carry the element schema.
type Column struct {
	// Name is the full column path, e.g. "span.attributes.label_1".
	Name string
	// Key is the attribute key for FieldAttribute columns.
	Key string
	// Elem is the nested struct schema for format.TypeList columns.
	Elem *Schema
	// Width is the value width in bytes for format.TypeFixedBytes columns.
	Width    int
	Field    FieldID
	Type     format.ColumnType
	Nullable bool
}

// Schema is an ordered sequence of column descriptors: the fixed columns in
// their canonical order, then attribute columns sorted by key, then list
// columns (events, then links).
type Schema struct {
	Columns []Column
}

// NumColumns returns the number of top-level columns.
func (s *Schema) NumColumns() int {
	return len(s.Columns)
}

// Fingerprint returns a 64-bit hash of the full column layout (names,
// types, widths, nullability, nested schemas). Two batches with the same
// shape share a fingerprint; the encoder stamps it into the buffer header
// so a decoder can reject a buffer paired with the wrong schema.
func (s *Schema) Fingerprint() uint64 {
	dg := hash.NewDigest()
	s.foldInto(dg)

	return dg.Sum64()
}

func (s *Schema) foldInto(dg *hash.Digest) {
	for i := range s.Columns {
		col := &s.Columns[i]
		dg.WriteString(col.Name)
		_ = dg.WriteByte(byte(col.Field))
		_ = dg.WriteByte(byte(col.Type))
		_ = dg.WriteByte(byte(col.Width))
		if col.Nullable {
			_ = dg.WriteByte(1)
		} else {
			_ = dg.WriteByte(0)
		}
		if col.Elem != nil {
			_ = dg.WriteByte('(')
			col.Elem.foldInto(dg)
			_ = dg.WriteByte(')')
		}
	}
}
