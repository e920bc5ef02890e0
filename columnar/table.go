package columnar

import (
	"fmt"
	"math"

	"github.com/lquerel/oltp-arrow/encoding"
	"github.com/lquerel/oltp-arrow/endian"
	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/format"
	"github.com/lquerel/oltp-arrow/schema"
	"github.com/lquerel/oltp-arrow/trace"
)

// Table is a fully columnarized span batch: one builder per schema column,
// holding validity bitmaps, dictionaries, offsets and packed value arrays.
//
// A Table is built once from a (schema, batch) pair and serialized one or
// more times by an Encoder. It is not safe for concurrent mutation, but a
// built table may be serialized from multiple goroutines.
type Table struct {
	schema  *schema.Schema
	columns []*column
	records int
}

// BuildTable columnarizes spans under s. Every column of s is materialized,
// including columns that end up entirely null for this batch. An attribute
// value whose kind disagrees with its column type is a schema conflict.
func BuildTable(s *schema.Schema, spans []trace.Span) (*Table, error) {
	if len(spans) == 0 {
		return nil, errs.ErrEmptyBatch
	}

	columns := make([]*column, 0, len(s.Columns))
	for i := range s.Columns {
		c, err := buildSpanColumn(&s.Columns[i], spans)
		if err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}

	return &Table{schema: s, columns: columns, records: len(spans)}, nil
}

// Schema returns the schema the table was built under.
func (t *Table) Schema() *schema.Schema {
	return t.schema
}

// NumRecords returns the number of span records in the batch.
func (t *Table) NumRecords() int {
	return t.records
}

// PayloadSize returns the exact uncompressed byte size of the column
// payload section.
func (t *Table) PayloadSize() int {
	size := 0
	for _, c := range t.columns {
		size += c.size()
	}

	return size
}

// AppendPayload serializes every column to dst using the given engine and
// returns the extended slice. Columns are written in schema order; within a
// column the validity bitmap always comes first.
func (t *Table) AppendPayload(dst []byte, engine endian.EndianEngine) []byte {
	for _, c := range t.columns {
		dst = c.appendTo(dst, engine)
	}

	return dst
}

// column accumulates the encoded state of one column. Only the value store
// matching the column type is populated; value arrays hold present values
// only, in record order.
type column struct {
	desc     *schema.Column
	validity *encoding.Bitmap
	nums     []uint64
	bools    *encoding.Bitmap
	fixed    []byte
	strs     []string
	strBytes int
	dict     *encoding.Dictionary
	codes    []uint32
	codeSize int
	offsets  *encoding.OffsetsEncoder
	children []*column
}

func newColumn(desc *schema.Column, rows int) *column {
	c := &column{desc: desc, validity: encoding.NewBitmap(rows)}
	switch desc.Type {
	case format.TypeBool:
		c.bools = encoding.NewBitmap(rows)
	case format.TypeTextDict:
		c.dict = encoding.NewDictionary()
	case format.TypeList:
		c.offsets = encoding.NewOffsetsEncoder(rows)
	}

	return c
}

func (c *column) appendNull() {
	c.validity.Append(false)
}

func (c *column) appendFixed(b []byte) {
	c.validity.Append(true)
	c.fixed = append(c.fixed, b...)
}

func (c *column) appendNum(v uint64) {
	c.validity.Append(true)
	c.nums = append(c.nums, v)
}

func (c *column) appendBool(v bool) {
	c.validity.Append(true)
	c.bools.Append(v)
}

func (c *column) appendText(s string) {
	c.validity.Append(true)
	if c.desc.Type == format.TypeTextDict {
		code := c.dict.GetOrAdd(s)
		c.codes = append(c.codes, code)
		c.codeSize += encoding.UvarintSize(uint64(code))

		return
	}
	c.strs = append(c.strs, s)
	c.strBytes += encoding.VarStringSize(s)
}

// appendAttr encodes the attribute cell of one record: absent key means a
// null, a present value must match the column type inferred for the key.
func (c *column) appendAttr(attrs trace.Attributes, record int) error {
	val, ok := attrs[c.desc.Key]
	if !ok {
		c.appendNull()

		return nil
	}

	switch c.desc.Type {
	case format.TypeTextDict, format.TypeTextPlain:
		if val.Kind() != trace.KindString {
			return c.attrConflict(val, record)
		}
		c.appendText(val.Str())
	case format.TypeFloat64:
		if val.Kind() != trace.KindNumber {
			return c.attrConflict(val, record)
		}
		c.appendNum(math.Float64bits(val.Num()))
	case format.TypeBool:
		if val.Kind() != trace.KindBool {
			return c.attrConflict(val, record)
		}
		c.appendBool(val.Bool())
	default:
		return fmt.Errorf("%w: column %q has non-attribute type %s", errs.ErrSchemaMismatch, c.desc.Name, c.desc.Type)
	}

	return nil
}

func (c *column) attrConflict(val trace.Value, record int) error {
	return fmt.Errorf("%w: attribute %q holds %s at record %d but column %q expects %s",
		errs.ErrSchemaConflict, c.desc.Key, val.Kind(), record, c.desc.Name, c.desc.Type)
}

// size returns the exact serialized byte size of the column.
func (c *column) size() int {
	size := encoding.BitmapSize(c.validity.Len())
	switch c.desc.Type {
	case format.TypeFixedBytes:
		size += len(c.fixed)
	case format.TypeUint64, format.TypeInt64, format.TypeFloat64:
		size += 8 * len(c.nums)
	case format.TypeBool:
		size += encoding.BitmapSize(c.bools.Len())
	case format.TypeTextPlain:
		size += c.strBytes
	case format.TypeTextDict:
		size += c.dict.TableSize() + c.codeSize
	case format.TypeList:
		size += c.offsets.Size()
		for _, child := range c.children {
			size += child.size()
		}
	}

	return size
}

func (c *column) appendTo(dst []byte, engine endian.EndianEngine) []byte {
	dst = append(dst, c.validity.Bytes()...)
	switch c.desc.Type {
	case format.TypeFixedBytes:
		dst = append(dst, c.fixed...)
	case format.TypeUint64, format.TypeInt64, format.TypeFloat64:
		for _, v := range c.nums {
			dst = engine.AppendUint64(dst, v)
		}
	case format.TypeBool:
		dst = append(dst, c.bools.Bytes()...)
	case format.TypeTextPlain:
		for _, s := range c.strs {
			dst = encoding.AppendVarString(dst, s)
		}
	case format.TypeTextDict:
		dst = c.dict.AppendTable(dst)
		for _, code := range c.codes {
			dst = encoding.AppendUvarint(dst, uint64(code))
		}
	case format.TypeList:
		dst = c.offsets.AppendTo(dst, engine)
		for _, child := range c.children {
			dst = child.appendTo(dst, engine)
		}
	}

	return dst
}

func buildSpanColumn(desc *schema.Column, spans []trace.Span) (*column, error) {
	c := newColumn(desc, len(spans))
	switch desc.Field {
	case schema.FieldTraceID:
		for i := range spans {
			c.appendFixed(spans[i].TraceID[:])
		}
	case schema.FieldSpanID:
		for i := range spans {
			c.appendFixed(spans[i].SpanID[:])
		}
	case schema.FieldTraceState:
		for i := range spans {
			appendOptText(c, spans[i].TraceState)
		}
	case schema.FieldParentSpanID:
		for i := range spans {
			if id := spans[i].ParentSpanID; id != nil {
				c.appendFixed(id[:])
			} else {
				c.appendNull()
			}
		}
	case schema.FieldName:
		for i := range spans {
			c.appendText(spans[i].Name)
		}
	case schema.FieldKind:
		for i := range spans {
			if kind := spans[i].Kind; kind != nil {
				c.appendNum(uint64(int64(*kind))) //nolint:gosec
			} else {
				c.appendNull()
			}
		}
	case schema.FieldStartTime:
		for i := range spans {
			c.appendNum(spans[i].StartTimeUnixNano)
		}
	case schema.FieldEndTime:
		for i := range spans {
			appendOptU64(c, spans[i].EndTimeUnixNano)
		}
	case schema.FieldDroppedAttributes:
		for i := range spans {
			appendOptU32(c, spans[i].DroppedAttributesCount)
		}
	case schema.FieldDroppedEvents:
		for i := range spans {
			appendOptU32(c, spans[i].DroppedEventsCount)
		}
	case schema.FieldDroppedLinks:
		for i := range spans {
			appendOptU32(c, spans[i].DroppedLinksCount)
		}
	case schema.FieldAttribute:
		for i := range spans {
			if err := c.appendAttr(spans[i].Attributes, i); err != nil {
				return nil, err
			}
		}
	case schema.FieldEvents:
		events := make([]trace.Event, 0, 8)
		for i := range spans {
			c.validity.Append(len(spans[i].Events) > 0)
			c.offsets.Append(len(spans[i].Events))
			events = append(events, spans[i].Events...)
		}
		for i := range desc.Elem.Columns {
			child, err := buildEventColumn(&desc.Elem.Columns[i], events)
			if err != nil {
				return nil, err
			}
			c.children = append(c.children, child)
		}
	case schema.FieldLinks:
		links := make([]trace.Link, 0, 8)
		for i := range spans {
			c.validity.Append(len(spans[i].Links) > 0)
			c.offsets.Append(len(spans[i].Links))
			links = append(links, spans[i].Links...)
		}
		for i := range desc.Elem.Columns {
			child, err := buildLinkColumn(&desc.Elem.Columns[i], links)
			if err != nil {
				return nil, err
			}
			c.children = append(c.children, child)
		}
	default:
		return nil, fmt.Errorf("%w: column %q is not a span column", errs.ErrSchemaMismatch, desc.Name)
	}

	return c, nil
}

func buildEventColumn(desc *schema.Column, events []trace.Event) (*column, error) {
	c := newColumn(desc, len(events))
	switch desc.Field {
	case schema.FieldTimeUnixNano:
		for i := range events {
			c.appendNum(events[i].TimeUnixNano)
		}
	case schema.FieldName:
		for i := range events {
			c.appendText(events[i].Name)
		}
	case schema.FieldDroppedAttributes:
		for i := range events {
			appendOptU32(c, events[i].DroppedAttributesCount)
		}
	case schema.FieldAttribute:
		for i := range events {
			if err := c.appendAttr(events[i].Attributes, i); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: column %q is not an event column", errs.ErrSchemaMismatch, desc.Name)
	}

	return c, nil
}

func buildLinkColumn(desc *schema.Column, links []trace.Link) (*column, error) {
	c := newColumn(desc, len(links))
	switch desc.Field {
	case schema.FieldTraceID:
		for i := range links {
			c.appendFixed(links[i].TraceID[:])
		}
	case schema.FieldSpanID:
		for i := range links {
			c.appendFixed(links[i].SpanID[:])
		}
	case schema.FieldTraceState:
		for i := range links {
			appendOptText(c, links[i].TraceState)
		}
	case schema.FieldDroppedAttributes:
		for i := range links {
			appendOptU32(c, links[i].DroppedAttributesCount)
		}
	case schema.FieldAttribute:
		for i := range links {
			if err := c.appendAttr(links[i].Attributes, i); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: column %q is not a link column", errs.ErrSchemaMismatch, desc.Name)
	}

	return c, nil
}

func appendOptText(c *column, s *string) {
	if s != nil {
		c.appendText(*s)
	} else {
		c.appendNull()
	}
}

func appendOptU64(c *column, v *uint64) {
	if v != nil {
		c.appendNum(*v)
	} else {
		c.appendNull()
	}
}

func appendOptU32(c *column, v *uint32) {
	if v != nil {
		c.appendNum(uint64(*v))
	} else {
		c.appendNull()
	}
}
