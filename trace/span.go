// Package trace defines the in-memory span record model: spans, events,
// links and dynamically-typed attribute values, plus the NDJSON reader that
// turns input lines into records.
//
// Records are constructed once per input line and are read-only afterward.
// Optional fields use pointers (or nil slices/maps) so that "absent" stays
// distinguishable from an explicit zero value; preserving that distinction
// end to end is the central round-trip requirement of the codecs built on
// top of this model.
package trace

import (
	"encoding/hex"
	"fmt"
)

const (
	// TraceIDLen is the fixed width of a trace identifier in bytes.
	TraceIDLen = 16
	// SpanIDLen is the fixed width of a span identifier in bytes.
	SpanIDLen = 8
)

// TraceID is a fixed-width opaque trace identifier. It is never
// reinterpreted as text except for display.
type TraceID [TraceIDLen]byte

// SpanID is a fixed-width opaque span identifier.
type SpanID [SpanIDLen]byte

// String returns the lowercase hex representation of the id.
func (id TraceID) String() string {
	return hex.EncodeToString(id[:])
}

// String returns the lowercase hex representation of the id.
func (id SpanID) String() string {
	return hex.EncodeToString(id[:])
}

// TraceIDFromHex parses a 32-character hex string into a TraceID.
func TraceIDFromHex(s string) (TraceID, error) {
	var id TraceID
	if err := fixedFromHex(id[:], s); err != nil {
		return TraceID{}, fmt.Errorf("trace_id: %w", err)
	}

	return id, nil
}

// SpanIDFromHex parses a 16-character hex string into a SpanID.
func SpanIDFromHex(s string) (SpanID, error) {
	var id SpanID
	if err := fixedFromHex(id[:], s); err != nil {
		return SpanID{}, fmt.Errorf("span_id: %w", err)
	}

	return id, nil
}

func fixedFromHex(dst []byte, s string) error {
	if len(s) != 2*len(dst) {
		return fmt.Errorf("expected %d hex characters, got %d", 2*len(dst), len(s))
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return err
	}

	return nil
}

// Event is a timestamped occurrence attached to a span.
type Event struct {
	TimeUnixNano           uint64
	Name                   string
	Attributes             Attributes
	DroppedAttributesCount *uint32
}

// Link points from one span to another, possibly in a different trace.
type Link struct {
	TraceID                TraceID
	SpanID                 SpanID
	TraceState             *string
	Attributes             Attributes
	DroppedAttributesCount *uint32
}

// Span is one recorded unit of traced work.
//
// The dropped_*_count fields count items dropped before the record reached
// this process; they are carried verbatim and are independent of the length
// of the corresponding in-memory sequence.
type Span struct {
	TraceID                TraceID
	SpanID                 SpanID
	TraceState             *string
	ParentSpanID           *SpanID
	Name                   string
	Kind                   *int32
	StartTimeUnixNano      uint64
	EndTimeUnixNano        *uint64
	Attributes             Attributes
	DroppedAttributesCount *uint32
	Events                 []Event
	DroppedEventsCount     *uint32
	Links                  []Link
	DroppedLinksCount      *uint32
}

// Equal reports value equality between two spans, including the
// presence/absence of every optional field. nil and empty attribute maps or
// event/link slices compare equal; everything else must match exactly.
func (s *Span) Equal(other *Span) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.TraceID != other.TraceID || s.SpanID != other.SpanID {
		return false
	}
	if !eqPtr(s.TraceState, other.TraceState) || !eqPtr(s.ParentSpanID, other.ParentSpanID) {
		return false
	}
	if s.Name != other.Name || !eqPtr(s.Kind, other.Kind) {
		return false
	}
	if s.StartTimeUnixNano != other.StartTimeUnixNano || !eqPtr(s.EndTimeUnixNano, other.EndTimeUnixNano) {
		return false
	}
	if !s.Attributes.Equal(other.Attributes) || !eqPtr(s.DroppedAttributesCount, other.DroppedAttributesCount) {
		return false
	}
	if !eqPtr(s.DroppedEventsCount, other.DroppedEventsCount) || !eqPtr(s.DroppedLinksCount, other.DroppedLinksCount) {
		return false
	}
	if len(s.Events) != len(other.Events) || len(s.Links) != len(other.Links) {
		return false
	}
	for i := range s.Events {
		if !s.Events[i].Equal(&other.Events[i]) {
			return false
		}
	}
	for i := range s.Links {
		if !s.Links[i].Equal(&other.Links[i]) {
			return false
		}
	}

	return true
}

// Equal reports value equality between two events.
func (e *Event) Equal(other *Event) bool {
	return e.TimeUnixNano == other.TimeUnixNano &&
		e.Name == other.Name &&
		e.Attributes.Equal(other.Attributes) &&
		eqPtr(e.DroppedAttributesCount, other.DroppedAttributesCount)
}

// Equal reports value equality between two links.
func (l *Link) Equal(other *Link) bool {
	return l.TraceID == other.TraceID &&
		l.SpanID == other.SpanID &&
		eqPtr(l.TraceState, other.TraceState) &&
		l.Attributes.Equal(other.Attributes) &&
		eqPtr(l.DroppedAttributesCount, other.DroppedAttributesCount)
}

// EqualSpans reports value equality between two ordered span sequences.
func EqualSpans(a, b []Span) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(&b[i]) {
			return false
		}
	}

	return true
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
