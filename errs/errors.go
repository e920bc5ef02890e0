// Package errs defines the sentinel errors shared across the oltp-arrow
// packages.
//
// Callers wrap these sentinels with fmt.Errorf("...: %w", ...) to attach
// context (column name, record index, file name) while keeping errors.Is
// checks stable. The taxonomy mirrors the failure granularity of the
// benchmark pipeline:
//
//   - ErrInputParse: a malformed input line, fatal for that file only
//   - ErrSchemaConflict: incompatible attribute kinds inside one batch,
//     fatal for that batch only
//   - ErrMalformedBuffer: a decode-side invariant violation, always a
//     codec defect or data corruption, never recovered
//   - ErrInvalidConfig: rejected before any processing starts
package errs

import "errors"

var (
	// ErrInputParse indicates an input line could not be parsed into a
	// valid span. The remaining input files are unaffected.
	ErrInputParse = errors.New("input parse error")

	// ErrSchemaConflict indicates two records in the same batch assign
	// incompatible value kinds to the same attribute key. The batch is
	// skipped; value kinds are never silently coerced.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrMalformedBuffer indicates an encoded buffer violates a decode
	// invariant: non-monotonic list offsets, a dictionary code out of
	// range, a validity bitmap whose length disagrees with the record
	// count, or a truncated section.
	ErrMalformedBuffer = errors.New("malformed buffer")

	// ErrInvalidConfig indicates an invalid benchmark configuration,
	// e.g. a non-positive batch size.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidHeader indicates the encoded header is truncated, has a
	// bad magic number, or an unsupported version.
	ErrInvalidHeader = errors.New("invalid header")

	// ErrUnsupportedCompression indicates the header names a compression
	// codec this build does not support.
	ErrUnsupportedCompression = errors.New("unsupported compression")

	// ErrSchemaMismatch indicates a buffer was produced under a different
	// schema than the one supplied to the decoder. A (schema, buffer)
	// pair is only valid for the batch it came from.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrEmptyBatch indicates schema inference was asked to run over an
	// empty batch. Schemas are a function of a non-empty batch.
	ErrEmptyBatch = errors.New("empty batch")
)
