package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lquerel/oltp-arrow/endian"
	"github.com/lquerel/oltp-arrow/errs"
)

var testEngine = endian.GetLittleEndianEngine()

func TestOffsetsRoundTrip(t *testing.T) {
	e := NewOffsetsEncoder(4)
	e.Append(2)
	e.Append(0)
	e.Append(3)
	e.Append(0)
	require.Equal(t, 5, e.Total())
	require.Equal(t, 4*5, e.Size())

	data := e.AppendTo(nil, testEngine)
	require.Len(t, data, e.Size())

	r, rest, err := NewOffsetsReader(data, 4, testEngine)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, 5, r.Total())

	start, end := r.Range(0)
	require.Equal(t, 0, start)
	require.Equal(t, 2, end)

	start, end = r.Range(1)
	require.Equal(t, start, end, "empty record has an empty range")

	start, end = r.Range(2)
	require.Equal(t, 2, start)
	require.Equal(t, 5, end)
}

func TestOffsetsReaderTruncated(t *testing.T) {
	_, _, err := NewOffsetsReader([]byte{0x00, 0x00}, 1, testEngine)
	require.ErrorIs(t, err, errs.ErrMalformedBuffer)
}

func TestOffsetsReaderNonZeroStart(t *testing.T) {
	data := testEngine.AppendUint32(nil, 1)
	data = testEngine.AppendUint32(data, 2)

	_, _, err := NewOffsetsReader(data, 1, testEngine)
	require.ErrorIs(t, err, errs.ErrMalformedBuffer)
}

func TestOffsetsReaderNonMonotonic(t *testing.T) {
	data := testEngine.AppendUint32(nil, 0)
	data = testEngine.AppendUint32(data, 5)
	data = testEngine.AppendUint32(data, 3)

	_, _, err := NewOffsetsReader(data, 2, testEngine)
	require.ErrorIs(t, err, errs.ErrMalformedBuffer)
	require.Contains(t, err.Error(), "record 1")
}

func TestOffsetsTrailingBytesReturned(t *testing.T) {
	e := NewOffsetsEncoder(1)
	e.Append(1)
	data := e.AppendTo(nil, testEngine)
	data = append(data, 0xFF, 0xEE)

	_, rest, err := NewOffsetsReader(data, 1, testEngine)
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF, 0xEE}, rest)
}
