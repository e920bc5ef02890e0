package format

type (
	ColumnType      uint8
	CompressionType uint8
)

const (
	TypeFixedBytes ColumnType = 0x1 // TypeFixedBytes is a fixed-width opaque byte string (trace/span ids).
	TypeTextDict   ColumnType = 0x2 // TypeTextDict is a dictionary-encoded UTF-8 string column.
	TypeTextPlain  ColumnType = 0x3 // TypeTextPlain is a plain (non-dictionary) UTF-8 string column.
	TypeInt64      ColumnType = 0x4 // TypeInt64 is a signed 64-bit integer column.
	TypeUint64     ColumnType = 0x5 // TypeUint64 is an unsigned 64-bit integer column.
	TypeFloat64    ColumnType = 0x6 // TypeFloat64 is an IEEE-754 64-bit float column.
	TypeBool       ColumnType = 0x7 // TypeBool is a bit-packed boolean column.
	TypeList       ColumnType = 0x8 // TypeList is a variable-length list of nested struct rows.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// IsText reports whether the column stores string values, in either the
// dictionary or the plain representation.
func (t ColumnType) IsText() bool {
	return t == TypeTextDict || t == TypeTextPlain
}

// Valid reports whether t is one of the closed set of column types.
func (t ColumnType) Valid() bool {
	return t >= TypeFixedBytes && t <= TypeList
}

func (t ColumnType) String() string {
	switch t {
	case TypeFixedBytes:
		return "FixedBytes"
	case TypeTextDict:
		return "TextDict"
	case TypeTextPlain:
		return "TextPlain"
	case TypeInt64:
		return "Int64"
	case TypeUint64:
		return "Uint64"
	case TypeFloat64:
		return "Float64"
	case TypeBool:
		return "Bool"
	case TypeList:
		return "List"
	default:
		return "Unknown"
	}
}

// Valid reports whether c is one of the supported compression codecs.
func (c CompressionType) Valid() bool {
	return c >= CompressionNone && c <= CompressionLZ4
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseCompression maps a user-facing codec name to its CompressionType.
// It accepts the same names String returns, lowercase included.
func ParseCompression(name string) (CompressionType, bool) {
	switch name {
	case "none", "None", "":
		return CompressionNone, true
	case "zstd", "Zstd":
		return CompressionZstd, true
	case "s2", "S2":
		return CompressionS2, true
	case "lz4", "LZ4":
		return CompressionLZ4, true
	default:
		return 0, false
	}
}
