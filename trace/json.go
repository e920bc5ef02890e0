package trace

import (
	"bufio"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/lquerel/oltp-arrow/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxLineSize bounds a single NDJSON input line (spans with many events can
// get large).
const maxLineSize = 16 * 1024 * 1024

// jsonSpan mirrors the documented input line layout. Optional fields are
// pointers so an omitted field is distinguishable from an explicit zero.
type jsonSpan struct {
	TraceID                string         `json:"trace_id"`
	SpanID                 string         `json:"span_id"`
	TraceState             *string        `json:"trace_state"`
	ParentSpanID           *string        `json:"parent_span_id"`
	Name                   *string        `json:"name"`
	Kind                   *int32         `json:"kind"`
	StartTimeUnixNano      *uint64        `json:"start_time_unix_nano"`
	EndTimeUnixNano        *uint64        `json:"end_time_unix_nano"`
	Attributes             map[string]any `json:"attributes"`
	DroppedAttributesCount *uint32        `json:"dropped_attributes_count"`
	Events                 []jsonEvent    `json:"events"`
	DroppedEventsCount     *uint32        `json:"dropped_events_count"`
	Links                  []jsonLink     `json:"links"`
	DroppedLinksCount      *uint32        `json:"dropped_links_count"`
}

type jsonEvent struct {
	TimeUnixNano           *uint64        `json:"time_unix_nano"`
	Name                   *string        `json:"name"`
	Attributes             map[string]any `json:"attributes"`
	DroppedAttributesCount *uint32        `json:"dropped_attributes_count"`
}

type jsonLink struct {
	TraceID                string         `json:"trace_id"`
	SpanID                 string         `json:"span_id"`
	TraceState             *string        `json:"trace_state"`
	Attributes             map[string]any `json:"attributes"`
	DroppedAttributesCount *uint32        `json:"dropped_attributes_count"`
}

// ReadSpans reads newline-delimited span records from r. Each non-blank
// line must be a self-contained JSON span; the first malformed line makes
// the whole input fail with an error wrapping errs.ErrInputParse.
func ReadSpans(r io.Reader) ([]Span, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var spans []Span
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		span, err := ParseSpan(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		spans = append(spans, span)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read failed after line %d: %v", errs.ErrInputParse, lineNum, err)
	}

	return spans, nil
}

// ParseSpan parses one JSON-encoded span line into a Span record.
func ParseSpan(line []byte) (Span, error) {
	var js jsonSpan
	if err := json.Unmarshal(line, &js); err != nil {
		return Span{}, fmt.Errorf("%w: %v", errs.ErrInputParse, err)
	}

	return js.toSpan()
}

func (js *jsonSpan) toSpan() (Span, error) {
	var span Span
	var err error

	if js.Name == nil {
		return Span{}, fmt.Errorf("%w: span is missing required field name", errs.ErrInputParse)
	}
	if js.StartTimeUnixNano == nil {
		return Span{}, fmt.Errorf("%w: span is missing required field start_time_unix_nano", errs.ErrInputParse)
	}
	if span.TraceID, err = TraceIDFromHex(js.TraceID); err != nil {
		return Span{}, fmt.Errorf("%w: %v", errs.ErrInputParse, err)
	}
	if span.SpanID, err = SpanIDFromHex(js.SpanID); err != nil {
		return Span{}, fmt.Errorf("%w: %v", errs.ErrInputParse, err)
	}
	if js.ParentSpanID != nil {
		parent, perr := SpanIDFromHex(*js.ParentSpanID)
		if perr != nil {
			return Span{}, fmt.Errorf("%w: parent %v", errs.ErrInputParse, perr)
		}
		span.ParentSpanID = &parent
	}
	if js.EndTimeUnixNano != nil && *js.EndTimeUnixNano < *js.StartTimeUnixNano {
		return Span{}, fmt.Errorf("%w: end_time_unix_nano %d precedes start_time_unix_nano %d",
			errs.ErrInputParse, *js.EndTimeUnixNano, *js.StartTimeUnixNano)
	}

	span.TraceState = js.TraceState
	span.Name = *js.Name
	span.Kind = js.Kind
	span.StartTimeUnixNano = *js.StartTimeUnixNano
	span.EndTimeUnixNano = js.EndTimeUnixNano
	span.DroppedAttributesCount = js.DroppedAttributesCount
	span.DroppedEventsCount = js.DroppedEventsCount
	span.DroppedLinksCount = js.DroppedLinksCount

	if span.Attributes, err = toAttributes(js.Attributes); err != nil {
		return Span{}, err
	}

	for i := range js.Events {
		je := &js.Events[i]
		if je.TimeUnixNano == nil || je.Name == nil {
			return Span{}, fmt.Errorf("%w: event %d is missing a required field", errs.ErrInputParse, i)
		}
		attrs, aerr := toAttributes(je.Attributes)
		if aerr != nil {
			return Span{}, fmt.Errorf("event %d: %w", i, aerr)
		}
		span.Events = append(span.Events, Event{
			TimeUnixNano:           *je.TimeUnixNano,
			Name:                   *je.Name,
			Attributes:             attrs,
			DroppedAttributesCount: je.DroppedAttributesCount,
		})
	}

	for i := range js.Links {
		jl := &js.Links[i]
		link := Link{
			TraceState:             jl.TraceState,
			DroppedAttributesCount: jl.DroppedAttributesCount,
		}
		if link.TraceID, err = TraceIDFromHex(jl.TraceID); err != nil {
			return Span{}, fmt.Errorf("%w: link %d %v", errs.ErrInputParse, i, err)
		}
		if link.SpanID, err = SpanIDFromHex(jl.SpanID); err != nil {
			return Span{}, fmt.Errorf("%w: link %d %v", errs.ErrInputParse, i, err)
		}
		if link.Attributes, err = toAttributes(jl.Attributes); err != nil {
			return Span{}, fmt.Errorf("link %d: %w", i, err)
		}
		span.Links = append(span.Links, link)
	}

	return span, nil
}

// toAttributes converts raw decoded JSON values into the closed attribute
// value union. Null, array and object values have no place in the union and
// are rejected as parse errors rather than dropped silently.
func toAttributes(raw map[string]any) (Attributes, error) {
	if raw == nil {
		return nil, nil
	}

	attrs := make(Attributes, len(raw))
	for key, val := range raw {
		switch v := val.(type) {
		case string:
			attrs[key] = StringValue(v)
		case float64:
			attrs[key] = NumberValue(v)
		case bool:
			attrs[key] = BoolValue(v)
		default:
			return nil, fmt.Errorf("%w: attribute %q has unsupported value type %T", errs.ErrInputParse, key, val)
		}
	}

	return attrs, nil
}
