// Package section defines the wire-level sections of an encoded columnar
// batch: the fixed-size header and the self-describing schema section.
//
// Buffer layout:
//
//	+--------------------+  fixed 24 bytes
//	| Header             |  magic, version, flag, record count,
//	|                    |  column count, schema fingerprint
//	+--------------------+
//	| Schema section     |  recursive column descriptors
//	+--------------------+
//	| Column payload     |  per column: validity bitmap + values
//	|                    |  (dictionary table inline, offsets + child
//	|                    |  columns for list columns); optionally
//	|                    |  compressed as a whole
//	+--------------------+
//
// The header and schema section are never compressed, so a decoder with no
// prior knowledge of the batch can read the column list, types and
// dictionary sizes before touching the payload.
package section
