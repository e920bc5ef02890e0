package schema

import (
	"fmt"
	"sort"

	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/format"
	"github.com/lquerel/oltp-arrow/trace"
)

// dictRatioThreshold decides the string column representation: a column
// whose distinct/non-null ratio is at or below this threshold is worth a
// dictionary (repeated values collapse to small integer codes). The
// threshold is inclusive so a value shared by just two records already
// collapses.
const dictRatioThreshold = 0.5

// Infer derives the columnar schema for a non-empty batch of spans.
//
// The fixed span columns always exist. Attribute columns are created
// lazily, one per distinct key, typed by the first value observed for that
// key; a later record supplying a different value kind for the same key is
// a schema conflict, never a silent coercion. Event and link sequences
// become a single list column each, whose element schema is inferred the
// same way over the flattened child records of the whole batch; the list
// column is present only when the batch contains at least one child record.
func Infer(spans []trace.Span) (*Schema, error) {
	if len(spans) == 0 {
		return nil, errs.ErrEmptyBatch
	}

	spanAttrs := newAttrInferencer("span")
	eventAttrs := newAttrInferencer("span.events")
	linkAttrs := newAttrInferencer("span.links")

	var (
		nameStats       textStats
		traceStateStats textStats
		eventNameStats  textStats
		linkStateStats  textStats
		eventCount      int
		linkCount       int
	)

	for i := range spans {
		span := &spans[i]
		nameStats.observe(span.Name)
		if span.TraceState != nil {
			traceStateStats.observe(*span.TraceState)
		}
		if err := spanAttrs.observe(span.Attributes, i); err != nil {
			return nil, err
		}

		for j := range span.Events {
			event := &span.Events[j]
			eventCount++
			eventNameStats.observe(event.Name)
			if err := eventAttrs.observe(event.Attributes, i); err != nil {
				return nil, err
			}
		}
		for j := range span.Links {
			link := &span.Links[j]
			linkCount++
			if link.TraceState != nil {
				linkStateStats.observe(*link.TraceState)
			}
			if err := linkAttrs.observe(link.Attributes, i); err != nil {
				return nil, err
			}
		}
	}

	columns := []Column{
		{Name: "span.trace_id", Field: FieldTraceID, Type: format.TypeFixedBytes, Width: trace.TraceIDLen},
		{Name: "span.span_id", Field: FieldSpanID, Type: format.TypeFixedBytes, Width: trace.SpanIDLen},
		{Name: "span.trace_state", Field: FieldTraceState, Type: traceStateStats.columnType(), Nullable: true},
		{Name: "span.parent_span_id", Field: FieldParentSpanID, Type: format.TypeFixedBytes, Width: trace.SpanIDLen, Nullable: true},
		{Name: "span.name", Field: FieldName, Type: nameStats.columnType()},
		{Name: "span.kind", Field: FieldKind, Type: format.TypeInt64, Nullable: true},
		{Name: "span.start_time_unix_nano", Field: FieldStartTime, Type: format.TypeUint64},
		{Name: "span.end_time_unix_nano", Field: FieldEndTime, Type: format.TypeUint64, Nullable: true},
		{Name: "span.dropped_attributes_count", Field: FieldDroppedAttributes, Type: format.TypeUint64, Nullable: true},
		{Name: "span.dropped_events_count", Field: FieldDroppedEvents, Type: format.TypeUint64, Nullable: true},
		{Name: "span.dropped_links_count", Field: FieldDroppedLinks, Type: format.TypeUint64, Nullable: true},
	}
	columns = append(columns, spanAttrs.columns()...)

	if eventCount > 0 {
		elem := &Schema{Columns: []Column{
			{Name: "span.events.time_unix_nano", Field: FieldTimeUnixNano, Type: format.TypeUint64},
			{Name: "span.events.name", Field: FieldName, Type: eventNameStats.columnType()},
			{Name: "span.events.dropped_attributes_count", Field: FieldDroppedAttributes, Type: format.TypeUint64, Nullable: true},
		}}
		elem.Columns = append(elem.Columns, eventAttrs.columns()...)
		columns = append(columns, Column{
			Name: "span.events", Field: FieldEvents, Type: format.TypeList, Nullable: true, Elem: elem,
		})
	}

	if linkCount > 0 {
		elem := &Schema{Columns: []Column{
			{Name: "span.links.trace_id", Field: FieldTraceID, Type: format.TypeFixedBytes, Width: trace.TraceIDLen},
			{Name: "span.links.span_id", Field: FieldSpanID, Type: format.TypeFixedBytes, Width: trace.SpanIDLen},
			{Name: "span.links.trace_state", Field: FieldTraceState, Type: linkStateStats.columnType(), Nullable: true},
			{Name: "span.links.dropped_attributes_count", Field: FieldDroppedAttributes, Type: format.TypeUint64, Nullable: true},
		}}
		elem.Columns = append(elem.Columns, linkAttrs.columns()...)
		columns = append(columns, Column{
			Name: "span.links", Field: FieldLinks, Type: format.TypeList, Nullable: true, Elem: elem,
		})
	}

	return &Schema{Columns: columns}, nil
}

// textStats tracks the cardinality of one string column during inference.
type textStats struct {
	distinct map[string]struct{}
	nonNull  int
}

func (ts *textStats) observe(s string) {
	if ts.distinct == nil {
		ts.distinct = make(map[string]struct{})
	}
	ts.distinct[s] = struct{}{}
	ts.nonNull++
}

// columnType picks the dictionary representation when values repeat enough
// to pay for the table. A column with no observed values stays plain.
func (ts *textStats) columnType() format.ColumnType {
	if ts.nonNull == 0 {
		return format.TypeTextPlain
	}
	if float64(len(ts.distinct))/float64(ts.nonNull) <= dictRatioThreshold {
		return format.TypeTextDict
	}

	return format.TypeTextPlain
}

// attrInferencer accumulates the attribute key union for one entity level
// (span, event or link) with first-value-wins typing.
type attrInferencer struct {
	kinds  map[string]trace.ValueKind
	text   map[string]*textStats
	prefix string
}

func newAttrInferencer(prefix string) *attrInferencer {
	return &attrInferencer{
		prefix: prefix,
		kinds:  make(map[string]trace.ValueKind),
		text:   make(map[string]*textStats),
	}
}

func (ai *attrInferencer) observe(attrs trace.Attributes, record int) error {
	for key, val := range attrs {
		kind, seen := ai.kinds[key]
		if !seen {
			ai.kinds[key] = val.Kind()
			kind = val.Kind()
		} else if kind != val.Kind() {
			return fmt.Errorf("%w: attribute %q of %s holds %s at record %d but was first seen as %s",
				errs.ErrSchemaConflict, key, ai.prefix, val.Kind(), record, kind)
		}

		if kind == trace.KindString {
			ts := ai.text[key]
			if ts == nil {
				ts = &textStats{}
				ai.text[key] = ts
			}
			ts.observe(val.Str())
		}
	}

	return nil
}

// columns materializes the attribute columns sorted by key. Sorting keeps
// the schema, and therefore the encoding, deterministic regardless of map
// iteration order.
func (ai *attrInferencer) columns() []Column {
	keys := make([]string, 0, len(ai.kinds))
	for key := range ai.kinds {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	cols := make([]Column, 0, len(keys))
	for _, key := range keys {
		col := Column{
			Name:     ai.prefix + ".attributes." + key,
			Key:      key,
			Field:    FieldAttribute,
			Nullable: true,
		}
		switch ai.kinds[key] {
		case trace.KindString:
			col.Type = ai.text[key].columnType()
		case trace.KindNumber:
			col.Type = format.TypeFloat64
		case trace.KindBool:
			col.Type = format.TypeBool
		}
		cols = append(cols, col)
	}

	return cols
}
