package encoding

import (
	"encoding/binary"
	"fmt"

	"github.com/lquerel/oltp-arrow/errs"
)

// Dictionary builds the shared lookup table of a text-dictionary column.
//
// Distinct strings are assigned consecutive integer codes in first-seen
// order, once per batch. The column then stores per-record codes and the
// table is written once for the whole column, which is what lets repeated
// names and attribute values collapse to near-zero marginal cost.
type Dictionary struct {
	codes  map[string]uint32
	values []string
	bytes  int
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{codes: make(map[string]uint32)}
}

// GetOrAdd returns the code for s, assigning the next code on first sight.
func (d *Dictionary) GetOrAdd(s string) uint32 {
	if code, ok := d.codes[s]; ok {
		return code
	}

	code := uint32(len(d.values)) //nolint:gosec
	d.codes[s] = code
	d.values = append(d.values, s)
	d.bytes += len(s)

	return code
}

// Len returns the number of distinct values.
func (d *Dictionary) Len() int {
	return len(d.values)
}

// Values returns the table in first-seen code order. The caller must not
// modify the returned slice.
func (d *Dictionary) Values() []string {
	return d.values
}

// TableSize returns the serialized byte size of the table.
func (d *Dictionary) TableSize() int {
	size := UvarintSize(uint64(len(d.values)))
	for _, v := range d.values {
		size += VarStringSize(v)
	}

	return size
}

// AppendTable serializes the table to dst: a uvarint entry count followed
// by uvarint length-prefixed strings in code order.
func (d *Dictionary) AppendTable(dst []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(d.values)))
	for _, v := range d.values {
		dst = AppendVarString(dst, v)
	}

	return dst
}

// ReadDictionaryTable decodes a dictionary table and returns the values in
// code order along with the remaining data.
func ReadDictionaryTable(data []byte) ([]string, []byte, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: invalid dictionary entry count", errs.ErrMalformedBuffer)
	}
	data = data[n:]
	// Each entry occupies at least its one-byte length prefix, so a count
	// beyond the remaining bytes is corrupt. Checked before allocating.
	if count > uint64(len(data)) {
		return nil, nil, fmt.Errorf("%w: dictionary declares %d entries but only %d bytes remain",
			errs.ErrMalformedBuffer, count, len(data))
	}

	values := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		var (
			v   string
			err error
		)
		v, data, err = ReadVarString(data)
		if err != nil {
			return nil, nil, fmt.Errorf("dictionary entry %d: %w", i, err)
		}
		values = append(values, v)
	}

	return values, data, nil
}
