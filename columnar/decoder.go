package columnar

import (
	"fmt"
	"math"

	"github.com/lquerel/oltp-arrow/compress"
	"github.com/lquerel/oltp-arrow/encoding"
	"github.com/lquerel/oltp-arrow/endian"
	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/format"
	"github.com/lquerel/oltp-arrow/schema"
	"github.com/lquerel/oltp-arrow/section"
	"github.com/lquerel/oltp-arrow/trace"
)

// Decoder reconstructs span batches from encoded columnar buffers. The
// buffer is self-describing, so no schema has to be supplied out of band.
//
// A Decoder is stateless and safe for concurrent use.
type Decoder struct{}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses buf and reconstructs the original span batch exactly,
// including the presence or absence of every optional field. Corrupted or
// truncated input is reported as a malformed buffer error naming the
// offending column and, where meaningful, the record index.
func (d *Decoder) Decode(buf []byte) ([]trace.Span, error) {
	header, rest, err := section.ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if header.RecordCount == 0 {
		return nil, fmt.Errorf("%w: header declares zero records", errs.ErrMalformedBuffer)
	}

	sch, rest, err := section.ParseSchema(rest, int(header.ColumnCount))
	if err != nil {
		return nil, err
	}
	if got := sch.Fingerprint(); got != header.SchemaFingerprint {
		return nil, fmt.Errorf("%w: schema section fingerprint 0x%016x, header declares 0x%016x",
			errs.ErrSchemaMismatch, got, header.SchemaFingerprint)
	}

	payload := rest
	if header.Compression != format.CompressionNone {
		codec, err := compress.GetCodec(header.Compression)
		if err != nil {
			return nil, err
		}
		payload, err = codec.Decompress(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress column payload: %s", errs.ErrMalformedBuffer, err)
		}
	}

	engine := header.Engine()
	records := int(header.RecordCount)

	readers := make([]*columnReader, 0, len(sch.Columns))
	for i := range sch.Columns {
		var cr *columnReader
		cr, payload, err = readColumn(&sch.Columns[i], records, payload, engine)
		if err != nil {
			return nil, err
		}
		readers = append(readers, cr)
	}
	if len(payload) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after last column", errs.ErrMalformedBuffer, len(payload))
	}

	spans := make([]trace.Span, records)
	for i := 0; i < records; i++ {
		if err := assembleSpan(&spans[i], readers, i); err != nil {
			return nil, err
		}
	}

	return spans, nil
}

// DecodeVerify decodes buf and additionally checks that its schema
// fingerprint matches s, rejecting a buffer paired with the wrong schema.
func (d *Decoder) DecodeVerify(buf []byte, s *schema.Schema) ([]trace.Span, error) {
	header, _, err := section.ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if want := s.Fingerprint(); header.SchemaFingerprint != want {
		return nil, fmt.Errorf("%w: buffer fingerprint 0x%016x, schema fingerprint 0x%016x",
			errs.ErrSchemaMismatch, header.SchemaFingerprint, want)
	}

	return d.Decode(buf)
}

// columnReader holds the decoded dense value arrays of one column. Values
// are stored present-only in record order; a cursor tracks the next present
// value as records are assembled front to back.
type columnReader struct {
	desc     *schema.Column
	validity encoding.BitmapReader
	nums     []uint64
	bools    encoding.BitmapReader
	fixed    []byte
	strs     []string
	offsets  encoding.OffsetsReader
	children []*columnReader
	cursor   int
}

// readColumn consumes one column from data: the validity bitmap, then the
// type-specific value section sized by the present count.
func readColumn(desc *schema.Column, rows int, data []byte, engine endian.EndianEngine) (*columnReader, []byte, error) {
	if err := checkFieldType(desc); err != nil {
		return nil, nil, err
	}

	bitmapBytes := encoding.BitmapSize(rows)
	if len(data) < bitmapBytes {
		return nil, nil, fmt.Errorf("%w: column %q: validity bitmap truncated", errs.ErrMalformedBuffer, desc.Name)
	}
	validity, err := encoding.NewBitmapReader(data[:bitmapBytes], rows)
	if err != nil {
		return nil, nil, fmt.Errorf("column %q: %w", desc.Name, err)
	}
	data = data[bitmapBytes:]

	cr := &columnReader{desc: desc, validity: validity}
	present := validity.SetCount()

	switch desc.Type {
	case format.TypeFixedBytes:
		if err := checkFixedWidth(desc); err != nil {
			return nil, nil, err
		}
		need := present * desc.Width
		if len(data) < need {
			return nil, nil, valuesTruncated(desc, len(data), need)
		}
		cr.fixed = data[:need]
		data = data[need:]

	case format.TypeUint64, format.TypeInt64, format.TypeFloat64:
		need := 8 * present
		if len(data) < need {
			return nil, nil, valuesTruncated(desc, len(data), need)
		}
		cr.nums = make([]uint64, present)
		for i := range cr.nums {
			cr.nums[i] = engine.Uint64(data[8*i:])
		}
		data = data[need:]

	case format.TypeBool:
		need := encoding.BitmapSize(present)
		if len(data) < need {
			return nil, nil, valuesTruncated(desc, len(data), need)
		}
		cr.bools, err = encoding.NewBitmapReader(data[:need], present)
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", desc.Name, err)
		}
		data = data[need:]

	case format.TypeTextPlain:
		cr.strs = make([]string, present)
		for i := range cr.strs {
			cr.strs[i], data, err = encoding.ReadVarString(data)
			if err != nil {
				return nil, nil, fmt.Errorf("column %q: value %d: %w", desc.Name, i, err)
			}
		}

	case format.TypeTextDict:
		var table []string
		table, data, err = encoding.ReadDictionaryTable(data)
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", desc.Name, err)
		}
		cr.strs = make([]string, present)
		for i := range cr.strs {
			var code uint64
			code, data, err = encoding.ReadUvarint(data)
			if err != nil {
				return nil, nil, fmt.Errorf("column %q: value %d: %w", desc.Name, i, err)
			}
			if code >= uint64(len(table)) {
				return nil, nil, fmt.Errorf("%w: column %q: dictionary code %d out of range [0,%d) at value %d",
					errs.ErrMalformedBuffer, desc.Name, code, len(table), i)
			}
			cr.strs[i] = table[code]
		}

	case format.TypeList:
		cr.offsets, data, err = encoding.NewOffsetsReader(data, rows, engine)
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", desc.Name, err)
		}
		childRows := cr.offsets.Total()
		for i := range desc.Elem.Columns {
			var child *columnReader
			child, data, err = readColumn(&desc.Elem.Columns[i], childRows, data, engine)
			if err != nil {
				return nil, nil, err
			}
			cr.children = append(cr.children, child)
		}
	}

	if desc.Field == schema.FieldAttribute && desc.Key == "" {
		return nil, nil, fmt.Errorf("%w: attribute column %q has no key", errs.ErrMalformedBuffer, desc.Name)
	}

	return cr, data, nil
}

// checkFieldType rejects descriptors pairing a field with a type the
// assembler cannot hold, which only a corrupted buffer can produce.
func checkFieldType(desc *schema.Column) error {
	ok := false
	switch desc.Field {
	case schema.FieldTraceID, schema.FieldSpanID, schema.FieldParentSpanID:
		ok = desc.Type == format.TypeFixedBytes
	case schema.FieldTraceState, schema.FieldName:
		ok = desc.Type.IsText()
	case schema.FieldKind:
		ok = desc.Type == format.TypeInt64
	case schema.FieldStartTime, schema.FieldEndTime, schema.FieldTimeUnixNano,
		schema.FieldDroppedAttributes, schema.FieldDroppedEvents, schema.FieldDroppedLinks:
		ok = desc.Type == format.TypeUint64
	case schema.FieldAttribute:
		ok = desc.Type.IsText() || desc.Type == format.TypeFloat64 || desc.Type == format.TypeBool
	case schema.FieldEvents, schema.FieldLinks:
		ok = desc.Type == format.TypeList
	}
	if !ok {
		return fmt.Errorf("%w: column %q pairs field id %d with type %s",
			errs.ErrMalformedBuffer, desc.Name, desc.Field, desc.Type)
	}

	return nil
}

func checkFixedWidth(desc *schema.Column) error {
	want := 0
	switch desc.Field {
	case schema.FieldTraceID:
		want = trace.TraceIDLen
	case schema.FieldSpanID, schema.FieldParentSpanID:
		want = trace.SpanIDLen
	}
	if want != 0 && desc.Width != want {
		return fmt.Errorf("%w: column %q has width %d, want %d", errs.ErrMalformedBuffer, desc.Name, desc.Width, want)
	}
	if desc.Width <= 0 {
		return fmt.Errorf("%w: column %q has non-positive width %d", errs.ErrMalformedBuffer, desc.Name, desc.Width)
	}

	return nil
}

func valuesTruncated(desc *schema.Column, got, want int) error {
	return fmt.Errorf("%w: column %q: value section truncated: %d bytes, want %d",
		errs.ErrMalformedBuffer, desc.Name, got, want)
}

// take consumes record i of the column: the returned position indexes the
// dense value array when the value is present.
func (cr *columnReader) take(i int) (int, bool) {
	if !cr.validity.Get(i) {
		return 0, false
	}
	pos := cr.cursor
	cr.cursor++

	return pos, true
}

func (cr *columnReader) requiredNull(record int) error {
	return fmt.Errorf("%w: column %q has a null at record %d but is not nullable",
		errs.ErrMalformedBuffer, cr.desc.Name, record)
}

func (cr *columnReader) fixedAt(pos int) []byte {
	return cr.fixed[pos*cr.desc.Width : (pos+1)*cr.desc.Width]
}

func assembleSpan(span *trace.Span, readers []*columnReader, i int) error {
	for _, cr := range readers {
		switch cr.desc.Field {
		case schema.FieldTraceID:
			pos, ok := cr.take(i)
			if !ok {
				return cr.requiredNull(i)
			}
			copy(span.TraceID[:], cr.fixedAt(pos))
		case schema.FieldSpanID:
			pos, ok := cr.take(i)
			if !ok {
				return cr.requiredNull(i)
			}
			copy(span.SpanID[:], cr.fixedAt(pos))
		case schema.FieldTraceState:
			if pos, ok := cr.take(i); ok {
				s := cr.strs[pos]
				span.TraceState = &s
			}
		case schema.FieldParentSpanID:
			if pos, ok := cr.take(i); ok {
				id := new(trace.SpanID)
				copy(id[:], cr.fixedAt(pos))
				span.ParentSpanID = id
			}
		case schema.FieldName:
			pos, ok := cr.take(i)
			if !ok {
				return cr.requiredNull(i)
			}
			span.Name = cr.strs[pos]
		case schema.FieldKind:
			if pos, ok := cr.take(i); ok {
				kind := int32(int64(cr.nums[pos])) //nolint:gosec
				span.Kind = &kind
			}
		case schema.FieldStartTime:
			pos, ok := cr.take(i)
			if !ok {
				return cr.requiredNull(i)
			}
			span.StartTimeUnixNano = cr.nums[pos]
		case schema.FieldEndTime:
			if pos, ok := cr.take(i); ok {
				v := cr.nums[pos]
				span.EndTimeUnixNano = &v
			}
		case schema.FieldDroppedAttributes:
			span.DroppedAttributesCount = cr.takeU32(i)
		case schema.FieldDroppedEvents:
			span.DroppedEventsCount = cr.takeU32(i)
		case schema.FieldDroppedLinks:
			span.DroppedLinksCount = cr.takeU32(i)
		case schema.FieldAttribute:
			span.Attributes = cr.takeAttr(i, span.Attributes)
		case schema.FieldEvents:
			cr.take(i)
			events, err := assembleEvents(cr, i)
			if err != nil {
				return err
			}
			span.Events = events
		case schema.FieldLinks:
			cr.take(i)
			links, err := assembleLinks(cr, i)
			if err != nil {
				return err
			}
			span.Links = links
		default:
			return fmt.Errorf("%w: column %q has field id %d not valid at span level",
				errs.ErrMalformedBuffer, cr.desc.Name, cr.desc.Field)
		}
	}

	return nil
}

func assembleEvents(cr *columnReader, record int) ([]trace.Event, error) {
	start, end := cr.offsets.Range(record)
	if end == start {
		return nil, nil
	}

	events := make([]trace.Event, end-start)
	for row := start; row < end; row++ {
		event := &events[row-start]
		for _, child := range cr.children {
			switch child.desc.Field {
			case schema.FieldTimeUnixNano:
				pos, ok := child.take(row)
				if !ok {
					return nil, child.requiredNull(row)
				}
				event.TimeUnixNano = child.nums[pos]
			case schema.FieldName:
				pos, ok := child.take(row)
				if !ok {
					return nil, child.requiredNull(row)
				}
				event.Name = child.strs[pos]
			case schema.FieldDroppedAttributes:
				event.DroppedAttributesCount = child.takeU32(row)
			case schema.FieldAttribute:
				event.Attributes = child.takeAttr(row, event.Attributes)
			default:
				return nil, fmt.Errorf("%w: column %q has field id %d not valid at event level",
					errs.ErrMalformedBuffer, child.desc.Name, child.desc.Field)
			}
		}
	}

	return events, nil
}

func assembleLinks(cr *columnReader, record int) ([]trace.Link, error) {
	start, end := cr.offsets.Range(record)
	if end == start {
		return nil, nil
	}

	links := make([]trace.Link, end-start)
	for row := start; row < end; row++ {
		link := &links[row-start]
		for _, child := range cr.children {
			switch child.desc.Field {
			case schema.FieldTraceID:
				pos, ok := child.take(row)
				if !ok {
					return nil, child.requiredNull(row)
				}
				copy(link.TraceID[:], child.fixedAt(pos))
			case schema.FieldSpanID:
				pos, ok := child.take(row)
				if !ok {
					return nil, child.requiredNull(row)
				}
				copy(link.SpanID[:], child.fixedAt(pos))
			case schema.FieldTraceState:
				if pos, ok := child.take(row); ok {
					s := child.strs[pos]
					link.TraceState = &s
				}
			case schema.FieldDroppedAttributes:
				link.DroppedAttributesCount = child.takeU32(row)
			case schema.FieldAttribute:
				link.Attributes = child.takeAttr(row, link.Attributes)
			default:
				return nil, fmt.Errorf("%w: column %q has field id %d not valid at link level",
					errs.ErrMalformedBuffer, child.desc.Name, child.desc.Field)
			}
		}
	}

	return links, nil
}

func (cr *columnReader) takeU32(i int) *uint32 {
	pos, ok := cr.take(i)
	if !ok {
		return nil
	}
	v := uint32(cr.nums[pos]) //nolint:gosec

	return &v
}

// takeAttr adds the attribute value of record i to attrs, allocating the
// map on first use so fully absent attribute sets stay nil.
func (cr *columnReader) takeAttr(i int, attrs trace.Attributes) trace.Attributes {
	pos, ok := cr.take(i)
	if !ok {
		return attrs
	}
	if attrs == nil {
		attrs = make(trace.Attributes)
	}

	switch cr.desc.Type {
	case format.TypeTextDict, format.TypeTextPlain:
		attrs[cr.desc.Key] = trace.StringValue(cr.strs[pos])
	case format.TypeFloat64:
		attrs[cr.desc.Key] = trace.NumberValue(math.Float64frombits(cr.nums[pos]))
	case format.TypeBool:
		attrs[cr.desc.Key] = trace.BoolValue(cr.bools.Get(pos))
	}

	return attrs
}
