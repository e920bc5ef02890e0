package trace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lquerel/oltp-arrow/errs"
)

const minimalLine = `{"trace_id":"0102030405060708090a0b0c0d0e0f10","span_id":"0102030405060708","name":"op","start_time_unix_nano":1000}`

const fullLine = `{
"trace_id":"0102030405060708090a0b0c0d0e0f10",
"span_id":"0102030405060708",
"trace_state":"vendor=1",
"parent_span_id":"1112131415161718",
"name":"op",
"kind":2,
"start_time_unix_nano":1000,
"end_time_unix_nano":2000,
"attributes":{"label":"a","count":3,"ok":true},
"dropped_attributes_count":1,
"events":[{"time_unix_nano":1500,"name":"evt","attributes":{"level":"warn"}}],
"dropped_events_count":2,
"links":[{"trace_id":"1112131415161718191a1b1c1d1e1f20","span_id":"1112131415161718","attributes":{"rel":"child"}}],
"dropped_links_count":3
}`

func TestParseSpanMinimal(t *testing.T) {
	span, err := ParseSpan([]byte(minimalLine))
	require.NoError(t, err)

	require.Equal(t, "op", span.Name)
	require.Equal(t, uint64(1000), span.StartTimeUnixNano)

	// Omitted optional fields must stay absent.
	require.Nil(t, span.TraceState)
	require.Nil(t, span.ParentSpanID)
	require.Nil(t, span.Kind)
	require.Nil(t, span.EndTimeUnixNano)
	require.Nil(t, span.Attributes)
	require.Nil(t, span.DroppedAttributesCount)
	require.Nil(t, span.Events)
	require.Nil(t, span.Links)
}

func TestParseSpanFull(t *testing.T) {
	span, err := ParseSpan([]byte(strings.ReplaceAll(fullLine, "\n", "")))
	require.NoError(t, err)

	require.Equal(t, "vendor=1", *span.TraceState)
	require.Equal(t, "1112131415161718", span.ParentSpanID.String())
	require.Equal(t, int32(2), *span.Kind)
	require.Equal(t, uint64(2000), *span.EndTimeUnixNano)
	require.Equal(t, uint32(1), *span.DroppedAttributesCount)
	require.Equal(t, uint32(2), *span.DroppedEventsCount)
	require.Equal(t, uint32(3), *span.DroppedLinksCount)

	require.True(t, span.Attributes.Equal(Attributes{
		"label": StringValue("a"),
		"count": NumberValue(3),
		"ok":    BoolValue(true),
	}))

	require.Len(t, span.Events, 1)
	require.Equal(t, "evt", span.Events[0].Name)
	require.Equal(t, uint64(1500), span.Events[0].TimeUnixNano)
	require.True(t, span.Events[0].Attributes.Equal(Attributes{"level": StringValue("warn")}))

	require.Len(t, span.Links, 1)
	require.Equal(t, "1112131415161718191a1b1c1d1e1f20", span.Links[0].TraceID.String())
	require.Nil(t, span.Links[0].TraceState)
}

func TestParseSpanErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `{broken`},
		{"missing name", `{"trace_id":"0102030405060708090a0b0c0d0e0f10","span_id":"0102030405060708","start_time_unix_nano":1}`},
		{"missing start time", `{"trace_id":"0102030405060708090a0b0c0d0e0f10","span_id":"0102030405060708","name":"op"}`},
		{"bad trace id", `{"trace_id":"xyz","span_id":"0102030405060708","name":"op","start_time_unix_nano":1}`},
		{"bad span id", `{"trace_id":"0102030405060708090a0b0c0d0e0f10","span_id":"01","name":"op","start_time_unix_nano":1}`},
		{"end before start", `{"trace_id":"0102030405060708090a0b0c0d0e0f10","span_id":"0102030405060708","name":"op","start_time_unix_nano":10,"end_time_unix_nano":5}`},
		{"null attribute", `{"trace_id":"0102030405060708090a0b0c0d0e0f10","span_id":"0102030405060708","name":"op","start_time_unix_nano":1,"attributes":{"k":null}}`},
		{"nested attribute", `{"trace_id":"0102030405060708090a0b0c0d0e0f10","span_id":"0102030405060708","name":"op","start_time_unix_nano":1,"attributes":{"k":{"a":1}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpan([]byte(tt.line))
			require.Error(t, err)
			require.ErrorIs(t, err, errs.ErrInputParse)
		})
	}
}

func TestReadSpans(t *testing.T) {
	input := minimalLine + "\n\n" + minimalLine + "\n"
	spans, err := ReadSpans(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, spans, 2)
	require.True(t, spans[0].Equal(&spans[1]))
}

func TestReadSpansReportsLine(t *testing.T) {
	input := minimalLine + "\n{bad}\n"
	_, err := ReadSpans(strings.NewReader(input))
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrInputParse)
	require.Contains(t, err.Error(), "line 2")
}
