// Package compress provides the optional whole-payload compression codecs
// of the columnar encoding.
//
// Compression applies to the assembled column payload after the header and
// schema sections, and the chosen codec is recorded in the buffer header so
// a decoder needs no out-of-band knowledge. The default is no compression,
// which keeps the measured encoding sizes directly comparable between
// codecs.
package compress

import (
	"fmt"

	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/format"
)

// Compressor compresses a complete column payload.
//
// The returned slice is newly allocated and owned by the caller (the noop
// codec, which returns its input unchanged, is the one exception). Input
// slices are never modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses Compressor. It validates the data format and
// returns an error for corrupted or incompatible input.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions. All built-in codecs are stateless values
// safe for concurrent use.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves the built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedCompression, compressionType)
}
