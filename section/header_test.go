package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lquerel/oltp-arrow/endian"
	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/format"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader(1000, 13, 0xDEADBEEFCAFEF00D, endian.GetLittleEndianEngine(), format.CompressionZstd)

	data := h.AppendTo(nil)
	require.Len(t, data, HeaderSize)

	parsed, rest, err := ParseHeader(data)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, h, parsed)
	require.Equal(t, uint32(1000), parsed.RecordCount)
	require.Equal(t, uint32(13), parsed.ColumnCount)
	require.Equal(t, uint64(0xDEADBEEFCAFEF00D), parsed.SchemaFingerprint)
	require.Equal(t, format.CompressionZstd, parsed.Compression)
	require.Equal(t, endian.GetLittleEndianEngine(), parsed.Engine())
}

func TestHeaderBigEndianOption(t *testing.T) {
	h := NewHeader(1, 1, 0, endian.GetBigEndianEngine(), format.CompressionNone)

	parsed, _, err := ParseHeader(h.AppendTo(nil))
	require.NoError(t, err)
	require.Equal(t, endian.GetBigEndianEngine(), parsed.Engine())
}

func TestHeaderTrailingBytes(t *testing.T) {
	h := NewHeader(5, 2, 42, endian.GetLittleEndianEngine(), format.CompressionNone)
	data := append(h.AppendTo(nil), 0x01, 0x02)

	_, rest, err := ParseHeader(data)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, rest)
}

func TestParseHeaderErrors(t *testing.T) {
	h := NewHeader(1, 1, 0, endian.GetLittleEndianEngine(), format.CompressionNone)
	good := h.AppendTo(nil)

	t.Run("truncated", func(t *testing.T) {
		_, _, err := ParseHeader(good[:HeaderSize-1])
		require.ErrorIs(t, err, errs.ErrInvalidHeader)
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte{}, good...)
		bad[0] ^= 0xFF
		_, _, err := ParseHeader(bad)
		require.ErrorIs(t, err, errs.ErrInvalidHeader)
	})

	t.Run("bad version", func(t *testing.T) {
		bad := append([]byte{}, good...)
		bad[4] = 0x7F
		_, _, err := ParseHeader(bad)
		require.ErrorIs(t, err, errs.ErrInvalidHeader)
	})

	t.Run("bad compression", func(t *testing.T) {
		bad := append([]byte{}, good...)
		bad[6] = 0x7F
		_, _, err := ParseHeader(bad)
		require.ErrorIs(t, err, errs.ErrInvalidHeader)
	})
}
