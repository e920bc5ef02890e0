package section

import (
	"encoding/binary"
	"fmt"

	"github.com/lquerel/oltp-arrow/encoding"
	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/format"
	"github.com/lquerel/oltp-arrow/schema"
)

// maxNestingDepth bounds schema recursion when parsing untrusted buffers.
const maxNestingDepth = 4

// AppendSchema serializes the full column layout to dst. Each column is
// written as: name, field id, type, nullable, width; list columns append a
// uvarint element column count followed by the element columns.
func AppendSchema(dst []byte, s *schema.Schema) []byte {
	for i := range s.Columns {
		dst = appendColumn(dst, &s.Columns[i])
	}

	return dst
}

func appendColumn(dst []byte, col *schema.Column) []byte {
	dst = encoding.AppendVarString(dst, col.Name)
	nullable := byte(0)
	if col.Nullable {
		nullable = 1
	}
	dst = append(dst, byte(col.Field), byte(col.Type), nullable, byte(col.Width))

	if col.Type == format.TypeList {
		dst = binary.AppendUvarint(dst, uint64(len(col.Elem.Columns)))
		for i := range col.Elem.Columns {
			dst = appendColumn(dst, &col.Elem.Columns[i])
		}
	}

	return dst
}

// SchemaSize returns the serialized byte size of the schema section.
func SchemaSize(s *schema.Schema) int {
	size := 0
	for i := range s.Columns {
		size += columnSize(&s.Columns[i])
	}

	return size
}

func columnSize(col *schema.Column) int {
	size := encoding.VarStringSize(col.Name) + 4
	if col.Type == format.TypeList {
		size += encoding.UvarintSize(uint64(len(col.Elem.Columns)))
		for i := range col.Elem.Columns {
			size += columnSize(&col.Elem.Columns[i])
		}
	}

	return size
}

// ParseSchema reconstructs the schema from the schema section, validating
// every descriptor. columnCount is taken from the header.
func ParseSchema(data []byte, columnCount int) (*schema.Schema, []byte, error) {
	return parseColumns(data, columnCount, 0)
}

func parseColumns(data []byte, count int, depth int) (*schema.Schema, []byte, error) {
	if depth > maxNestingDepth {
		return nil, nil, fmt.Errorf("%w: schema nesting exceeds depth %d", errs.ErrMalformedBuffer, maxNestingDepth)
	}
	// A descriptor occupies at least 5 bytes (name length prefix plus the
	// four fixed bytes), so a count beyond that bound is corrupt. Checked
	// before allocating.
	if count < 0 || count > len(data)/5 {
		return nil, nil, fmt.Errorf("%w: schema declares %d columns but only %d bytes remain",
			errs.ErrMalformedBuffer, count, len(data))
	}

	s := &schema.Schema{Columns: make([]schema.Column, 0, count)}
	for i := 0; i < count; i++ {
		var (
			col schema.Column
			err error
		)
		col, data, err = parseColumn(data, depth)
		if err != nil {
			return nil, nil, fmt.Errorf("column %d: %w", i, err)
		}
		s.Columns = append(s.Columns, col)
	}

	return s, data, nil
}

func parseColumn(data []byte, depth int) (schema.Column, []byte, error) {
	var col schema.Column
	var err error

	col.Name, data, err = encoding.ReadVarString(data)
	if err != nil {
		return schema.Column{}, nil, err
	}
	if len(data) < 4 {
		return schema.Column{}, nil, fmt.Errorf("%w: column descriptor %q truncated", errs.ErrMalformedBuffer, col.Name)
	}

	col.Field = schema.FieldID(data[0])
	col.Type = format.ColumnType(data[1])
	col.Nullable = data[2] != 0
	col.Width = int(data[3])
	data = data[4:]

	if !col.Type.Valid() {
		return schema.Column{}, nil, fmt.Errorf("%w: column %q has invalid type 0x%02x", errs.ErrMalformedBuffer, col.Name, byte(col.Type))
	}
	if col.Field == schema.FieldAttribute {
		if idx := lastIndex(col.Name, ".attributes."); idx >= 0 {
			col.Key = col.Name[idx+len(".attributes."):]
		}
	}

	if col.Type == format.TypeList {
		elemCount, n := binary.Uvarint(data)
		if n <= 0 {
			return schema.Column{}, nil, fmt.Errorf("%w: column %q has invalid element count", errs.ErrMalformedBuffer, col.Name)
		}
		data = data[n:]
		if elemCount > uint64(len(data)) {
			return schema.Column{}, nil, fmt.Errorf("%w: column %q declares %d element columns but only %d bytes remain",
				errs.ErrMalformedBuffer, col.Name, elemCount, len(data))
		}

		col.Elem, data, err = parseColumns(data, int(elemCount), depth+1) //nolint:gosec
		if err != nil {
			return schema.Column{}, nil, err
		}
	}

	return col, data, nil
}

func lastIndex(s, sub string) int {
	for i := len(s) - len(sub); i >= 0; i-- {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}

	return -1
}
