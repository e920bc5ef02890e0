package columnar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lquerel/oltp-arrow/endian"
	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/format"
	"github.com/lquerel/oltp-arrow/pb"
	"github.com/lquerel/oltp-arrow/schema"
	"github.com/lquerel/oltp-arrow/trace"
)

func ptr[T any](v T) *T {
	return &v
}

// fullSpans exercises every column type: present and absent optionals,
// attributes of all kinds, events and links with their own attributes.
func fullSpans() []trace.Span {
	return []trace.Span{
		{
			TraceID:                trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
			SpanID:                 trace.SpanID{0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18},
			TraceState:             ptr("vendor=1"),
			ParentSpanID:           ptr(trace.SpanID{0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28}),
			Name:                   "GET /api/users",
			Kind:                   ptr(int32(2)),
			StartTimeUnixNano:      1544712660000000000,
			EndTimeUnixNano:        ptr(uint64(1544712661000000000)),
			DroppedAttributesCount: ptr(uint32(3)),
			DroppedEventsCount:     ptr(uint32(0)),
			Attributes: trace.Attributes{
				"http.method":      trace.StringValue("GET"),
				"http.status_code": trace.NumberValue(200),
				"cache.hit":        trace.BoolValue(true),
			},
			Events: []trace.Event{
				{
					TimeUnixNano: 1544712660300000000,
					Name:         "resolving",
					Attributes:   trace.Attributes{"dns.server": trace.StringValue("10.0.0.1")},
				},
				{
					TimeUnixNano:           1544712660600000000,
					Name:                   "connected",
					DroppedAttributesCount: ptr(uint32(1)),
				},
			},
			Links: []trace.Link{
				{
					TraceID:    trace.TraceID{0xaa, 0xbb},
					SpanID:     trace.SpanID{0xcc, 0xdd},
					TraceState: ptr("vendor=2"),
					Attributes: trace.Attributes{"link.kind": trace.StringValue("follows_from")},
				},
			},
		},
		{
			TraceID:           trace.TraceID{0x31},
			SpanID:            trace.SpanID{0x32},
			Name:              "GET /api/users",
			StartTimeUnixNano: 1544712662000000000,
			Attributes: trace.Attributes{
				"http.method": trace.StringValue("GET"),
			},
		},
		{
			TraceID:           trace.TraceID{0x41},
			SpanID:            trace.SpanID{0x42},
			Name:              "flush",
			Kind:              ptr(int32(0)),
			StartTimeUnixNano: 1544712663000000000,
			EndTimeUnixNano:   ptr(uint64(0)),
			Events: []trace.Event{
				{TimeUnixNano: 1544712663100000000, Name: "resolving"},
			},
		},
	}
}

func minimalSpans() []trace.Span {
	return []trace.Span{
		{
			TraceID:           trace.TraceID{0x01},
			SpanID:            trace.SpanID{0x02},
			Name:              "op",
			StartTimeUnixNano: 1,
		},
	}
}

func encodeSpans(t *testing.T, spans []trace.Span, opts ...EncoderOption) []byte {
	t.Helper()

	s, err := schema.Infer(spans)
	require.NoError(t, err)

	enc, err := NewEncoder(opts...)
	require.NoError(t, err)

	buf, err := enc.Encode(s, spans)
	require.NoError(t, err)

	return buf
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	spans := fullSpans()
	buf := encodeSpans(t, spans)

	decoded, err := NewDecoder().Decode(buf)
	require.NoError(t, err)
	require.True(t, trace.EqualSpans(spans, decoded))
}

func TestEncodeDecodeMinimalSpan(t *testing.T) {
	spans := minimalSpans()
	buf := encodeSpans(t, spans)

	decoded, err := NewDecoder().Decode(buf)
	require.NoError(t, err)
	require.True(t, trace.EqualSpans(spans, decoded))
}

func TestRoundTripPreservesAbsence(t *testing.T) {
	spans := fullSpans()
	buf := encodeSpans(t, spans)

	decoded, err := NewDecoder().Decode(buf)
	require.NoError(t, err)

	// The second span carries no optionals at all.
	require.Nil(t, decoded[1].TraceState)
	require.Nil(t, decoded[1].ParentSpanID)
	require.Nil(t, decoded[1].Kind)
	require.Nil(t, decoded[1].EndTimeUnixNano)
	require.Nil(t, decoded[1].DroppedAttributesCount)
	require.Empty(t, decoded[1].Events)
	require.Empty(t, decoded[1].Links)

	// Explicit zeros stay distinguishable from absence.
	require.NotNil(t, decoded[0].DroppedEventsCount)
	require.Zero(t, *decoded[0].DroppedEventsCount)
	require.NotNil(t, decoded[2].Kind)
	require.Zero(t, *decoded[2].Kind)
	require.NotNil(t, decoded[2].EndTimeUnixNano)
	require.Zero(t, *decoded[2].EndTimeUnixNano)
}

func TestEncodeDeterministic(t *testing.T) {
	spans := fullSpans()
	buf1 := encodeSpans(t, spans)
	buf2 := encodeSpans(t, spans)
	require.Equal(t, buf1, buf2)
}

func TestEncodeTableMatchesEncode(t *testing.T) {
	spans := fullSpans()
	s, err := schema.Infer(spans)
	require.NoError(t, err)

	enc, err := NewEncoder()
	require.NoError(t, err)

	fromRows, err := enc.Encode(s, spans)
	require.NoError(t, err)

	table, err := BuildTable(s, spans)
	require.NoError(t, err)
	fromTable, err := enc.EncodeTable(table)
	require.NoError(t, err)

	require.Equal(t, fromRows, fromTable)
}

func TestEncodeCompressionRoundTrip(t *testing.T) {
	spans := fullSpans()
	for _, compression := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(compression.String(), func(t *testing.T) {
			buf := encodeSpans(t, spans, WithCompression(compression))

			decoded, err := NewDecoder().Decode(buf)
			require.NoError(t, err)
			require.True(t, trace.EqualSpans(spans, decoded))
		})
	}
}

func TestEncodeBigEndianRoundTrip(t *testing.T) {
	spans := fullSpans()
	buf := encodeSpans(t, spans, WithBigEndian())

	decoded, err := NewDecoder().Decode(buf)
	require.NoError(t, err)
	require.True(t, trace.EqualSpans(spans, decoded))
}

func TestNewEncoderInvalidCompression(t *testing.T) {
	_, err := NewEncoder(WithCompression(format.CompressionType(0xff)))
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestEncodeEmptyBatch(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)

	_, err = enc.Encode(&schema.Schema{}, nil)
	require.ErrorIs(t, err, errs.ErrEmptyBatch)

	_, err = BuildTable(&schema.Schema{}, nil)
	require.ErrorIs(t, err, errs.ErrEmptyBatch)
}

func TestBuildTableAttributeConflict(t *testing.T) {
	// Schema inferred from a batch where the key holds a string, applied
	// to a batch where the same key holds a number.
	first := []trace.Span{{
		TraceID: trace.TraceID{1}, SpanID: trace.SpanID{2}, Name: "op", StartTimeUnixNano: 1,
		Attributes: trace.Attributes{"label_1": trace.StringValue("a")},
	}}
	s, err := schema.Infer(first)
	require.NoError(t, err)

	second := []trace.Span{{
		TraceID: trace.TraceID{1}, SpanID: trace.SpanID{2}, Name: "op", StartTimeUnixNano: 1,
		Attributes: trace.Attributes{"label_1": trace.NumberValue(7)},
	}}
	_, err = BuildTable(s, second)
	require.ErrorIs(t, err, errs.ErrSchemaConflict)
	require.ErrorContains(t, err, "label_1")
}

func TestDecodeVerify(t *testing.T) {
	spans := fullSpans()
	s, err := schema.Infer(spans)
	require.NoError(t, err)
	buf := encodeSpans(t, spans)

	decoded, err := NewDecoder().DecodeVerify(buf, s)
	require.NoError(t, err)
	require.True(t, trace.EqualSpans(spans, decoded))

	other, err := schema.Infer(minimalSpans())
	require.NoError(t, err)
	_, err = NewDecoder().DecodeVerify(buf, other)
	require.ErrorIs(t, err, errs.ErrSchemaMismatch)
}

func TestDecodeMalformed(t *testing.T) {
	buf := encodeSpans(t, fullSpans())

	tests := []struct {
		name    string
		corrupt func([]byte) []byte
		wantErr error
	}{
		{
			name:    "empty buffer",
			corrupt: func(b []byte) []byte { return nil },
			wantErr: errs.ErrInvalidHeader,
		},
		{
			name:    "bad magic",
			corrupt: func(b []byte) []byte { b[0] ^= 0xff; return b },
			wantErr: errs.ErrInvalidHeader,
		},
		{
			name:    "truncated header",
			corrupt: func(b []byte) []byte { return b[:10] },
			wantErr: errs.ErrInvalidHeader,
		},
		{
			name:    "truncated payload",
			corrupt: func(b []byte) []byte { return b[:len(b)-8] },
			wantErr: errs.ErrMalformedBuffer,
		},
		{
			name:    "trailing garbage",
			corrupt: func(b []byte) []byte { return append(b, 0xde, 0xad) },
			wantErr: errs.ErrMalformedBuffer,
		},
		{
			name: "inflated column count",
			corrupt: func(b []byte) []byte {
				b[12], b[13], b[14], b[15] = 0xff, 0xff, 0xff, 0xff
				return b
			},
			wantErr: errs.ErrMalformedBuffer,
		},
		{
			name:    "corrupted schema fingerprint",
			corrupt: func(b []byte) []byte { b[16] ^= 0xff; return b },
			wantErr: errs.ErrSchemaMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corrupted := tt.corrupt(append([]byte(nil), buf...))
			_, err := NewDecoder().Decode(corrupted)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeErrorNamesColumn(t *testing.T) {
	buf := encodeSpans(t, fullSpans())
	_, err := NewDecoder().Decode(buf[:len(buf)-4])
	require.ErrorIs(t, err, errs.ErrMalformedBuffer)
	require.ErrorContains(t, err, "span.")
}

func TestSharedStringsBeatPerSpanBaseline(t *testing.T) {
	name := strings.Repeat("very.long.operation.name/", 80)
	url := strings.Repeat("https://example.com/api/v1/users?page=", 50)

	shared := trace.Attributes{
		"http.url":  trace.StringValue(url),
		"http.code": trace.NumberValue(200),
	}
	spans := []trace.Span{
		{
			TraceID: trace.TraceID{1}, SpanID: trace.SpanID{2},
			Name: name, StartTimeUnixNano: 1, Attributes: shared,
		},
		{
			TraceID: trace.TraceID{3}, SpanID: trace.SpanID{4},
			Name: name, StartTimeUnixNano: 2, Attributes: shared,
			Events: []trace.Event{{TimeUnixNano: 3, Name: "ev"}},
			Links:  []trace.Link{{TraceID: trace.TraceID{5}, SpanID: trace.SpanID{6}}},
		},
	}

	columnarSize := len(encodeSpans(t, spans))

	perSpan := 0
	for i := range spans {
		perSpan += len(pb.MarshalSpans(nil, spans[i:i+1]))
	}

	require.Less(t, columnarSize, perSpan)
}

func TestTableStats(t *testing.T) {
	spans := fullSpans()
	s, err := schema.Infer(spans)
	require.NoError(t, err)

	table, err := BuildTable(s, spans)
	require.NoError(t, err)

	stats := table.Stats()
	byName := make(map[string]ColumnStats, len(stats))
	for _, cs := range stats {
		byName[cs.Name] = cs
	}

	name := byName["span.name"]
	require.Equal(t, 3, name.Rows)
	require.Zero(t, name.Nulls)
	require.Equal(t, 2, name.Distinct)

	state := byName["span.trace_state"]
	require.Equal(t, 2, state.Nulls)

	eventName := byName["span.events.name"]
	require.Equal(t, 3, eventName.Rows)
	require.Equal(t, 2, eventName.Distinct)

	if name.Type == format.TypeTextDict {
		require.Positive(t, name.DictionaryBytes)
	}
}

func TestTablePayloadSizeExact(t *testing.T) {
	spans := fullSpans()
	s, err := schema.Infer(spans)
	require.NoError(t, err)

	table, err := BuildTable(s, spans)
	require.NoError(t, err)

	payload := table.AppendPayload(nil, endian.GetLittleEndianEngine())
	require.Len(t, payload, table.PayloadSize())
}
