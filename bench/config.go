// Package bench drives the codec comparison: it chunks input span files,
// runs the baseline row codec and the columnar codec over every chunk,
// verifies round trips and aggregates sizes and wall-clock timings into a
// per-file report.
package bench

import (
	"fmt"
	"runtime"

	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/format"
)

// DefaultBatchSize is the number of spans per chunk when none is
// configured.
const DefaultBatchSize = 1000

// Config is the benchmark configuration handed to a Runner. The zero value
// is not valid; start from DefaultConfig.
type Config struct {
	// BatchSize is the number of spans per chunk; the final chunk of a
	// file may be shorter.
	BatchSize int
	// Workers is the number of goroutines processing chunks of one file.
	Workers int
	// StatsEnabled emits a per-file column statistics artifact next to
	// each input file (or under StatsDir when set).
	StatsEnabled bool
	// StatsDir overrides the directory statistics artifacts are written
	// to. Empty means next to the input file.
	StatsDir string
	// Compression is applied to the columnar encoding; the baseline is
	// never compressed. Defaults to none so measured sizes compare the
	// encodings themselves.
	Compression format.CompressionType
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() Config {
	return Config{
		BatchSize:   DefaultBatchSize,
		Workers:     runtime.GOMAXPROCS(0),
		Compression: format.CompressionNone,
	}
}

// Validate reports configuration errors before any processing starts.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", errs.ErrInvalidConfig, c.BatchSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: worker count must be positive, got %d", errs.ErrInvalidConfig, c.Workers)
	}
	if !c.Compression.Valid() {
		return fmt.Errorf("%w: invalid compression type 0x%02x", errs.ErrInvalidConfig, uint8(c.Compression))
	}

	return nil
}
