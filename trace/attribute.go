package trace

// ValueKind discriminates the closed set of attribute value kinds.
//
// The set is deliberately closed (no open-ended dynamic values): schema
// inference relies on kinds being directly comparable to detect conflicts
// between records of one batch.
type ValueKind uint8

const (
	KindString ValueKind = iota + 1
	KindNumber
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindBool:
		return "Bool"
	default:
		return "Unknown"
	}
}

// Value is an immutable tagged union of the attribute value kinds.
//
// Numbers use a single canonical representation: IEEE-754 float64. This
// matches the JSON input format and keeps integer values exact up to 2^53;
// magnitudes beyond that lose precision, which is acceptable for span
// attribute payloads (ids travel in dedicated fixed-byte fields, never as
// attribute numbers).
type Value struct {
	str  string
	num  float64
	b    bool
	kind ValueKind
}

// StringValue returns a Value holding a text value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// NumberValue returns a Value holding a numeric value.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// BoolValue returns a Value holding a boolean value.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind returns the value kind discriminator.
func (v Value) Kind() ValueKind {
	return v.kind
}

// Str returns the text value. Valid only when Kind is KindString.
func (v Value) Str() string {
	return v.str
}

// Num returns the numeric value. Valid only when Kind is KindNumber.
func (v Value) Num() float64 {
	return v.num
}

// Bool returns the boolean value. Valid only when Kind is KindBool.
func (v Value) Bool() bool {
	return v.b
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	return v == other
}

// Attributes maps attribute keys to values. Keys are unique within one map
// and insertion order is not significant. A nil map and an empty map are
// semantically equivalent.
type Attributes map[string]Value

// Equal reports whether two attribute maps hold the same key/value pairs.
// nil and empty maps compare equal.
func (a Attributes) Equal(other Attributes) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}

	return true
}
