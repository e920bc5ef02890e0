package compress

// ZstdCompressor provides Zstandard compression for column payloads. It is
// the codec of choice when payload size matters more than encode speed,
// e.g. when comparing how far the columnar layout compresses beyond its
// dictionary encoding.
//
// Two implementations exist behind build tags: the default pure-Go
// klauspost/compress encoder, and a cgo binding to libzstd (valyala/gozstd)
// selected with -tags cgo_zstd for maximum throughput.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
