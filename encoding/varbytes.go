package encoding

import (
	"encoding/binary"
	"fmt"

	"github.com/lquerel/oltp-arrow/errs"
)

// AppendVarBytes appends a uvarint length prefix followed by the raw bytes.
// This is the wire shape of plain string values, dictionary table entries
// and column names.
func AppendVarBytes(dst []byte, data []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(data)))

	return append(dst, data...)
}

// AppendVarString appends s with a uvarint length prefix.
func AppendVarString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))

	return append(dst, s...)
}

// VarStringSize returns the serialized size of s.
func VarStringSize(s string) int {
	return UvarintSize(uint64(len(s))) + len(s)
}

// AppendUvarint appends v to dst as a uvarint.
func AppendUvarint(dst []byte, v uint64) []byte {
	return binary.AppendUvarint(dst, v)
}

// UvarintSize returns the encoded byte size of v as a uvarint.
func UvarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}

	return n
}

// ReadUvarint reads a uvarint from data and returns the value and the
// remaining data.
func ReadUvarint(data []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, nil, fmt.Errorf("%w: invalid uvarint", errs.ErrMalformedBuffer)
	}

	return v, data[n:], nil
}

// ReadVarBytes reads a uvarint length-prefixed byte string from data and
// returns the string bytes and the remaining data. The returned slice
// aliases data.
func ReadVarBytes(data []byte) ([]byte, []byte, error) {
	length, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: invalid uvarint length prefix", errs.ErrMalformedBuffer)
	}
	data = data[n:]
	if uint64(len(data)) < length {
		return nil, nil, fmt.Errorf("%w: byte string truncated: %d bytes, want %d",
			errs.ErrMalformedBuffer, len(data), length)
	}

	return data[:length], data[length:], nil
}

// ReadVarString reads a uvarint length-prefixed string from data.
func ReadVarString(data []byte) (string, []byte, error) {
	b, rest, err := ReadVarBytes(data)
	if err != nil {
		return "", nil, err
	}

	return string(b), rest, nil
}
