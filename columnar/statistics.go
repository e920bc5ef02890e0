package columnar

import (
	"github.com/lquerel/oltp-arrow/format"
)

// ColumnStats summarizes one materialized column of a built table. List
// columns report their offsets only; their children appear as separate
// entries under their full path.
type ColumnStats struct {
	// Name is the full column path, e.g. "span.events.name".
	Name string
	Type format.ColumnType
	// Rows is the row count at this column's nesting level (records for
	// span columns, flattened child rows for nested ones).
	Rows int
	// Nulls is the number of absent values.
	Nulls int
	// Distinct is the distinct value count of text columns, 0 otherwise.
	Distinct int
	// DictionaryBytes is the serialized dictionary table size of a
	// dictionary column, 0 otherwise.
	DictionaryBytes int
	// EncodedBytes is the serialized size of this column, children
	// included for list columns.
	EncodedBytes int
}

// Stats returns per-column statistics in schema order, list children
// flattened in place after their parent.
func (t *Table) Stats() []ColumnStats {
	stats := make([]ColumnStats, 0, len(t.columns))
	for _, c := range t.columns {
		stats = c.appendStats(stats)
	}

	return stats
}

func (c *column) appendStats(stats []ColumnStats) []ColumnStats {
	cs := ColumnStats{
		Name:         c.desc.Name,
		Type:         c.desc.Type,
		Rows:         c.validity.Len(),
		Nulls:        c.validity.Len() - c.validity.SetCount(),
		EncodedBytes: c.size(),
	}
	switch c.desc.Type {
	case format.TypeTextDict:
		cs.Distinct = c.dict.Len()
		cs.DictionaryBytes = c.dict.TableSize()
	case format.TypeTextPlain:
		distinct := make(map[string]struct{}, len(c.strs))
		for _, s := range c.strs {
			distinct[s] = struct{}{}
		}
		cs.Distinct = len(distinct)
	}

	stats = append(stats, cs)
	for _, child := range c.children {
		stats = child.appendStats(stats)
	}

	return stats
}
