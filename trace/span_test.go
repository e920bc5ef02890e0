package trace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTraceIDFromHex(t *testing.T) {
	id, err := TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	require.Equal(t, byte(0x01), id[0])
	require.Equal(t, byte(0x10), id[15])
	require.Equal(t, "0102030405060708090a0b0c0d0e0f10", id.String())

	_, err = TraceIDFromHex("0102")
	require.Error(t, err)

	_, err = TraceIDFromHex("zz02030405060708090a0b0c0d0e0f10")
	require.Error(t, err)
}

func TestSpanIDFromHex(t *testing.T) {
	id, err := SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	require.Equal(t, "0102030405060708", id.String())

	_, err = SpanIDFromHex("01")
	require.Error(t, err)
}

func TestValueKinds(t *testing.T) {
	s := StringValue("hello")
	require.Equal(t, KindString, s.Kind())
	require.Equal(t, "hello", s.Str())

	n := NumberValue(42.5)
	require.Equal(t, KindNumber, n.Kind())
	require.InDelta(t, 42.5, n.Num(), 0)

	b := BoolValue(true)
	require.Equal(t, KindBool, b.Kind())
	require.True(t, b.Bool())

	require.False(t, s.Equal(n))
	require.True(t, s.Equal(StringValue("hello")))
	require.False(t, s.Equal(StringValue("other")))
}

func TestAttributesEqual(t *testing.T) {
	a := Attributes{"x": NumberValue(1), "y": StringValue("v")}
	b := Attributes{"y": StringValue("v"), "x": NumberValue(1)}
	require.True(t, a.Equal(b))

	// nil and empty maps are equivalent
	require.True(t, Attributes(nil).Equal(Attributes{}))

	require.False(t, a.Equal(Attributes{"x": NumberValue(1)}))
	require.False(t, a.Equal(Attributes{"x": NumberValue(1), "y": BoolValue(true)}))
}

func TestSpanEqual(t *testing.T) {
	base := func() Span {
		kind := int32(2)
		end := uint64(2000)
		state := "vendor=1"
		return Span{
			TraceID:           mustTraceID(t, "0102030405060708090a0b0c0d0e0f10"),
			SpanID:            mustSpanID(t, "0102030405060708"),
			TraceState:        &state,
			Name:              "op",
			Kind:              &kind,
			StartTimeUnixNano: 1000,
			EndTimeUnixNano:   &end,
			Attributes:        Attributes{"label": StringValue("a")},
		}
	}

	a, b := base(), base()
	require.True(t, a.Equal(&b))

	// Absent vs explicit zero must differ.
	zero := uint32(0)
	b = base()
	b.DroppedEventsCount = &zero
	require.False(t, a.Equal(&b))

	// Absent vs default kind must differ.
	b = base()
	b.Kind = nil
	require.False(t, a.Equal(&b))

	// Absent vs empty trace_state must differ.
	b = base()
	empty := ""
	b.TraceState = &empty
	require.False(t, a.Equal(&b))

	// nil vs empty events are equivalent.
	b = base()
	b.Events = []Event{}
	require.True(t, a.Equal(&b))
}

func TestEqualSpans(t *testing.T) {
	s := Span{Name: "a", StartTimeUnixNano: 1}
	require.True(t, EqualSpans([]Span{s}, []Span{s}))
	require.False(t, EqualSpans([]Span{s}, nil))

	other := s
	other.Name = "b"
	require.False(t, EqualSpans([]Span{s}, []Span{other}))
}

func mustTraceID(t *testing.T, s string) TraceID {
	t.Helper()
	id, err := TraceIDFromHex(s)
	require.NoError(t, err)

	return id
}

func mustSpanID(t *testing.T, s string) SpanID {
	t.Helper()
	id, err := SpanIDFromHex(s)
	require.NoError(t, err)

	return id
}
