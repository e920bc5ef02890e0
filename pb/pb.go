// Package pb implements the row-oriented baseline codec: each span batch
// is serialized as a protobuf message that mirrors the OTLP trace shape,
// one self-contained record per span.
//
// The baseline preserves field presence exactly like the columnar codec:
// optional fields are written only when set, and an explicitly set zero is
// written as an explicit field. Attribute maps are marshaled in sorted key
// order so the encoding is deterministic.
package pb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/VictoriaMetrics/easyproto"

	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/trace"
)

var mp easyproto.MarshalerPool

// MarshalSpans marshals spans to a protobuf message, appends it to dst and
// returns the result.
//
//	message SpansData {
//	  repeated Span spans = 1;
//	}
func MarshalSpans(dst []byte, spans []trace.Span) []byte {
	m := mp.Get()
	mm := m.MessageMarshaler()
	for i := range spans {
		marshalSpan(mm.AppendMessage(1), &spans[i])
	}
	dst = m.Marshal(dst)
	mp.Put(m)

	return dst
}

// UnmarshalSpans unmarshals a span batch from src.
func UnmarshalSpans(src []byte) (spans []trace.Span, err error) {
	var fc easyproto.FieldContext
	for len(src) > 0 {
		src, err = fc.NextField(src)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read next field in SpansData: %s", errs.ErrMalformedBuffer, err)
		}
		switch fc.FieldNum {
		case 1:
			data, ok := fc.MessageData()
			if !ok {
				return nil, fmt.Errorf("%w: cannot read Span data", errs.ErrMalformedBuffer)
			}
			spans = append(spans, trace.Span{})
			if err := unmarshalSpan(&spans[len(spans)-1], data); err != nil {
				return nil, fmt.Errorf("span %d: %w", len(spans)-1, err)
			}
		}
	}

	return spans, nil
}

//	message Span {
//	  bytes trace_id = 1;
//	  bytes span_id = 2;
//	  optional string trace_state = 3;
//	  optional bytes parent_span_id = 4;
//	  string name = 5;
//	  optional int32 kind = 6;
//	  fixed64 start_time_unix_nano = 7;
//	  optional fixed64 end_time_unix_nano = 8;
//	  repeated KeyValue attributes = 9;
//	  optional uint32 dropped_attributes_count = 10;
//	  repeated Event events = 11;
//	  optional uint32 dropped_events_count = 12;
//	  repeated Link links = 13;
//	  optional uint32 dropped_links_count = 14;
//	}
func marshalSpan(mm *easyproto.MessageMarshaler, span *trace.Span) {
	mm.AppendBytes(1, span.TraceID[:])
	mm.AppendBytes(2, span.SpanID[:])
	if span.TraceState != nil {
		mm.AppendString(3, *span.TraceState)
	}
	if span.ParentSpanID != nil {
		mm.AppendBytes(4, span.ParentSpanID[:])
	}
	mm.AppendString(5, span.Name)
	if span.Kind != nil {
		mm.AppendInt32(6, *span.Kind)
	}
	mm.AppendFixed64(7, span.StartTimeUnixNano)
	if span.EndTimeUnixNano != nil {
		mm.AppendFixed64(8, *span.EndTimeUnixNano)
	}
	marshalAttributes(mm, 9, span.Attributes)
	if span.DroppedAttributesCount != nil {
		mm.AppendUint32(10, *span.DroppedAttributesCount)
	}
	for i := range span.Events {
		marshalEvent(mm.AppendMessage(11), &span.Events[i])
	}
	if span.DroppedEventsCount != nil {
		mm.AppendUint32(12, *span.DroppedEventsCount)
	}
	for i := range span.Links {
		marshalLink(mm.AppendMessage(13), &span.Links[i])
	}
	if span.DroppedLinksCount != nil {
		mm.AppendUint32(14, *span.DroppedLinksCount)
	}
}

func unmarshalSpan(span *trace.Span, src []byte) (err error) {
	var fc easyproto.FieldContext
	for len(src) > 0 {
		src, err = fc.NextField(src)
		if err != nil {
			return fmt.Errorf("%w: cannot read next field in Span: %s", errs.ErrMalformedBuffer, err)
		}
		switch fc.FieldNum {
		case 1:
			if err := readTraceID(&span.TraceID, &fc); err != nil {
				return err
			}
		case 2:
			if err := readSpanID(&span.SpanID, &fc); err != nil {
				return err
			}
		case 3:
			s, ok := fc.String()
			if !ok {
				return fmt.Errorf("%w: cannot read TraceState", errs.ErrMalformedBuffer)
			}
			span.TraceState = ptrClone(s)
		case 4:
			span.ParentSpanID = new(trace.SpanID)
			if err := readSpanID(span.ParentSpanID, &fc); err != nil {
				return err
			}
		case 5:
			s, ok := fc.String()
			if !ok {
				return fmt.Errorf("%w: cannot read Name", errs.ErrMalformedBuffer)
			}
			span.Name = strings.Clone(s)
		case 6:
			kind, ok := fc.Int32()
			if !ok {
				return fmt.Errorf("%w: cannot read Kind", errs.ErrMalformedBuffer)
			}
			span.Kind = &kind
		case 7:
			ts, ok := fc.Fixed64()
			if !ok {
				return fmt.Errorf("%w: cannot read StartTimeUnixNano", errs.ErrMalformedBuffer)
			}
			span.StartTimeUnixNano = ts
		case 8:
			ts, ok := fc.Fixed64()
			if !ok {
				return fmt.Errorf("%w: cannot read EndTimeUnixNano", errs.ErrMalformedBuffer)
			}
			span.EndTimeUnixNano = &ts
		case 9:
			span.Attributes, err = unmarshalAttribute(span.Attributes, &fc)
			if err != nil {
				return err
			}
		case 10:
			span.DroppedAttributesCount, err = readUint32(&fc, "DroppedAttributesCount")
			if err != nil {
				return err
			}
		case 11:
			data, ok := fc.MessageData()
			if !ok {
				return fmt.Errorf("%w: cannot read Event data", errs.ErrMalformedBuffer)
			}
			span.Events = append(span.Events, trace.Event{})
			if err := unmarshalEvent(&span.Events[len(span.Events)-1], data); err != nil {
				return err
			}
		case 12:
			span.DroppedEventsCount, err = readUint32(&fc, "DroppedEventsCount")
			if err != nil {
				return err
			}
		case 13:
			data, ok := fc.MessageData()
			if !ok {
				return fmt.Errorf("%w: cannot read Link data", errs.ErrMalformedBuffer)
			}
			span.Links = append(span.Links, trace.Link{})
			if err := unmarshalLink(&span.Links[len(span.Links)-1], data); err != nil {
				return err
			}
		case 14:
			span.DroppedLinksCount, err = readUint32(&fc, "DroppedLinksCount")
			if err != nil {
				return err
			}
		}
	}

	return nil
}

//	message Event {
//	  fixed64 time_unix_nano = 1;
//	  string name = 2;
//	  repeated KeyValue attributes = 3;
//	  optional uint32 dropped_attributes_count = 4;
//	}
func marshalEvent(mm *easyproto.MessageMarshaler, event *trace.Event) {
	mm.AppendFixed64(1, event.TimeUnixNano)
	mm.AppendString(2, event.Name)
	marshalAttributes(mm, 3, event.Attributes)
	if event.DroppedAttributesCount != nil {
		mm.AppendUint32(4, *event.DroppedAttributesCount)
	}
}

func unmarshalEvent(event *trace.Event, src []byte) (err error) {
	var fc easyproto.FieldContext
	for len(src) > 0 {
		src, err = fc.NextField(src)
		if err != nil {
			return fmt.Errorf("%w: cannot read next field in Event: %s", errs.ErrMalformedBuffer, err)
		}
		switch fc.FieldNum {
		case 1:
			ts, ok := fc.Fixed64()
			if !ok {
				return fmt.Errorf("%w: cannot read TimeUnixNano", errs.ErrMalformedBuffer)
			}
			event.TimeUnixNano = ts
		case 2:
			s, ok := fc.String()
			if !ok {
				return fmt.Errorf("%w: cannot read Name", errs.ErrMalformedBuffer)
			}
			event.Name = strings.Clone(s)
		case 3:
			event.Attributes, err = unmarshalAttribute(event.Attributes, &fc)
			if err != nil {
				return err
			}
		case 4:
			event.DroppedAttributesCount, err = readUint32(&fc, "DroppedAttributesCount")
			if err != nil {
				return err
			}
		}
	}

	return nil
}

//	message Link {
//	  bytes trace_id = 1;
//	  bytes span_id = 2;
//	  optional string trace_state = 3;
//	  repeated KeyValue attributes = 4;
//	  optional uint32 dropped_attributes_count = 5;
//	}
func marshalLink(mm *easyproto.MessageMarshaler, link *trace.Link) {
	mm.AppendBytes(1, link.TraceID[:])
	mm.AppendBytes(2, link.SpanID[:])
	if link.TraceState != nil {
		mm.AppendString(3, *link.TraceState)
	}
	marshalAttributes(mm, 4, link.Attributes)
	if link.DroppedAttributesCount != nil {
		mm.AppendUint32(5, *link.DroppedAttributesCount)
	}
}

func unmarshalLink(link *trace.Link, src []byte) (err error) {
	var fc easyproto.FieldContext
	for len(src) > 0 {
		src, err = fc.NextField(src)
		if err != nil {
			return fmt.Errorf("%w: cannot read next field in Link: %s", errs.ErrMalformedBuffer, err)
		}
		switch fc.FieldNum {
		case 1:
			if err := readTraceID(&link.TraceID, &fc); err != nil {
				return err
			}
		case 2:
			if err := readSpanID(&link.SpanID, &fc); err != nil {
				return err
			}
		case 3:
			s, ok := fc.String()
			if !ok {
				return fmt.Errorf("%w: cannot read TraceState", errs.ErrMalformedBuffer)
			}
			link.TraceState = ptrClone(s)
		case 4:
			link.Attributes, err = unmarshalAttribute(link.Attributes, &fc)
			if err != nil {
				return err
			}
		case 5:
			link.DroppedAttributesCount, err = readUint32(&fc, "DroppedAttributesCount")
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// marshalAttributes writes one KeyValue message per attribute in sorted
// key order.
//
//	message KeyValue {
//	  string key = 1;
//	  AnyValue value = 2;
//	}
//
//	message AnyValue {
//	  oneof value {
//	    string string_value = 1;
//	    bool bool_value = 2;
//	    double double_value = 4;
//	  }
//	}
func marshalAttributes(mm *easyproto.MessageMarshaler, fieldNum uint32, attrs trace.Attributes) {
	if len(attrs) == 0 {
		return
	}

	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		kvm := mm.AppendMessage(fieldNum)
		kvm.AppendString(1, key)
		vm := kvm.AppendMessage(2)
		val := attrs[key]
		switch val.Kind() {
		case trace.KindString:
			vm.AppendString(1, val.Str())
		case trace.KindBool:
			vm.AppendBool(2, val.Bool())
		case trace.KindNumber:
			vm.AppendDouble(4, val.Num())
		}
	}
}

func unmarshalAttribute(attrs trace.Attributes, fc *easyproto.FieldContext) (trace.Attributes, error) {
	data, ok := fc.MessageData()
	if !ok {
		return attrs, fmt.Errorf("%w: cannot read KeyValue data", errs.ErrMalformedBuffer)
	}

	var (
		key    string
		val    trace.Value
		hasVal bool
		err    error
	)
	var kv easyproto.FieldContext
	for len(data) > 0 {
		data, err = kv.NextField(data)
		if err != nil {
			return attrs, fmt.Errorf("%w: cannot read next field in KeyValue: %s", errs.ErrMalformedBuffer, err)
		}
		switch kv.FieldNum {
		case 1:
			s, ok := kv.String()
			if !ok {
				return attrs, fmt.Errorf("%w: cannot read attribute key", errs.ErrMalformedBuffer)
			}
			key = strings.Clone(s)
		case 2:
			valData, ok := kv.MessageData()
			if !ok {
				return attrs, fmt.Errorf("%w: cannot read AnyValue data", errs.ErrMalformedBuffer)
			}
			val, err = unmarshalAnyValue(valData)
			if err != nil {
				return attrs, err
			}
			hasVal = true
		}
	}
	if !hasVal {
		return attrs, fmt.Errorf("%w: attribute %q has no value", errs.ErrMalformedBuffer, key)
	}

	if attrs == nil {
		attrs = make(trace.Attributes)
	}
	attrs[key] = val

	return attrs, nil
}

func unmarshalAnyValue(src []byte) (val trace.Value, err error) {
	var fc easyproto.FieldContext
	for len(src) > 0 {
		src, err = fc.NextField(src)
		if err != nil {
			return val, fmt.Errorf("%w: cannot read next field in AnyValue: %s", errs.ErrMalformedBuffer, err)
		}
		switch fc.FieldNum {
		case 1:
			s, ok := fc.String()
			if !ok {
				return val, fmt.Errorf("%w: cannot read string value", errs.ErrMalformedBuffer)
			}
			val = trace.StringValue(strings.Clone(s))
		case 2:
			b, ok := fc.Bool()
			if !ok {
				return val, fmt.Errorf("%w: cannot read bool value", errs.ErrMalformedBuffer)
			}
			val = trace.BoolValue(b)
		case 4:
			f, ok := fc.Double()
			if !ok {
				return val, fmt.Errorf("%w: cannot read double value", errs.ErrMalformedBuffer)
			}
			val = trace.NumberValue(f)
		}
	}

	return val, nil
}

func readTraceID(id *trace.TraceID, fc *easyproto.FieldContext) error {
	b, ok := fc.Bytes()
	if !ok || len(b) != trace.TraceIDLen {
		return fmt.Errorf("%w: cannot read TraceID: want %d bytes", errs.ErrMalformedBuffer, trace.TraceIDLen)
	}
	copy(id[:], b)

	return nil
}

func readSpanID(id *trace.SpanID, fc *easyproto.FieldContext) error {
	b, ok := fc.Bytes()
	if !ok || len(b) != trace.SpanIDLen {
		return fmt.Errorf("%w: cannot read SpanID: want %d bytes", errs.ErrMalformedBuffer, trace.SpanIDLen)
	}
	copy(id[:], b)

	return nil
}

func readUint32(fc *easyproto.FieldContext, name string) (*uint32, error) {
	v, ok := fc.Uint32()
	if !ok {
		return nil, fmt.Errorf("%w: cannot read %s", errs.ErrMalformedBuffer, name)
	}

	return &v, nil
}

func ptrClone(s string) *string {
	c := strings.Clone(s)

	return &c
}
