package bench

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lquerel/oltp-arrow/columnar"
	"github.com/lquerel/oltp-arrow/errs"
	"github.com/lquerel/oltp-arrow/pb"
	"github.com/lquerel/oltp-arrow/schema"
	"github.com/lquerel/oltp-arrow/trace"
)

// Runner executes the benchmark for one configuration. It is safe to reuse
// across Run calls.
type Runner struct {
	cfg     Config
	logger  *zap.Logger
	encoder *columnar.Encoder
	decoder *columnar.Decoder
}

// NewRunner validates cfg and creates a Runner. A nil logger disables
// logging.
func NewRunner(cfg Config, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	encoder, err := columnar.NewEncoder(columnar.WithCompression(cfg.Compression))
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:     cfg,
		logger:  logger,
		encoder: encoder,
		decoder: columnar.NewDecoder(),
	}, nil
}

// Run benchmarks every input file and returns the aggregated report. A
// file that fails to parse is logged and skipped; the run continues with
// the remaining files. Run fails outright only when no file could be
// processed or a codec defect (malformed buffer) is detected.
func (r *Runner) Run(files []string) (*Report, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no input files", errs.ErrInvalidConfig)
	}

	report := &Report{Compression: r.cfg.Compression}
	for _, path := range files {
		result, err := r.runFile(path)
		if err != nil {
			if errors.Is(err, errs.ErrMalformedBuffer) {
				return nil, err
			}
			r.logger.Error("skipping input file", zap.String("file", path), zap.Error(err))

			continue
		}
		report.Files = append(report.Files, result)
	}
	if len(report.Files) == 0 {
		return nil, fmt.Errorf("no input file could be processed")
	}

	return report, nil
}

func (r *Runner) runFile(path string) (FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileResult{}, err
	}
	defer f.Close()

	spans, err := trace.ReadSpans(f)
	if err != nil {
		return FileResult{}, err
	}
	if len(spans) == 0 {
		return FileResult{}, fmt.Errorf("%w: file holds no spans", errs.ErrInputParse)
	}

	chunks := chunkSpans(spans, r.cfg.BatchSize)
	results := make([]chunkResult, len(chunks))

	workers := min(r.cfg.Workers, len(chunks))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = r.runChunk(idx, chunks[idx])
			}
		}()
	}
	for idx := range chunks {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	result := FileResult{File: path, Records: len(spans), Chunks: len(chunks)}
	var stats []ChunkStats
	for idx, cr := range results {
		if cr.err != nil {
			if errors.Is(cr.err, errs.ErrSchemaConflict) {
				r.logger.Warn("skipping chunk with schema conflict",
					zap.String("file", path), zap.Int("chunk", idx), zap.Error(cr.err))
				result.SkippedChunks++

				continue
			}

			return FileResult{}, fmt.Errorf("file %s chunk %d: %w", path, idx, cr.err)
		}
		result.Baseline.add(cr.baseline)
		result.ArrowRow.add(cr.arrowRow)
		result.ArrowColumnar.add(cr.arrowColumnar)
		if r.cfg.StatsEnabled {
			stats = append(stats, cr.stats)
		}
	}

	if r.cfg.StatsEnabled {
		artifact, err := r.writeStats(path, stats)
		if err != nil {
			return FileResult{}, err
		}
		result.StatsArtifact = artifact
	}

	return result, nil
}

// chunkResult carries the measurements of one chunk back to the collector.
// Results are stored by chunk index so the report order always matches
// input order regardless of completion order.
type chunkResult struct {
	baseline      CodecMetrics
	arrowRow      CodecMetrics
	arrowColumnar CodecMetrics
	stats         ChunkStats
	err           error
}

// runChunk measures the three configurations over one chunk. Only codec
// work is timed; parsing happened before and reporting happens after.
func (r *Runner) runChunk(idx int, chunk []trace.Span) chunkResult {
	var res chunkResult

	// Baseline row codec.
	start := time.Now()
	baselineBuf := pb.MarshalSpans(nil, chunk)
	res.baseline.EncodeTime = time.Since(start)
	res.baseline.Bytes = len(baselineBuf)

	start = time.Now()
	baselineDecoded, err := pb.UnmarshalSpans(baselineBuf)
	res.baseline.DecodeTime = time.Since(start)
	if err != nil {
		res.err = err

		return res
	}
	if !trace.EqualSpans(chunk, baselineDecoded) {
		res.err = fmt.Errorf("%w: baseline round trip mismatch", errs.ErrMalformedBuffer)

		return res
	}

	// Arrow-from-row: schema inference, columnarization and serialization
	// all count against the encode time.
	start = time.Now()
	sch, err := schema.Infer(chunk)
	if err != nil {
		res.err = err

		return res
	}
	columnarBuf, err := r.encoder.Encode(sch, chunk)
	res.arrowRow.EncodeTime = time.Since(start)
	if err != nil {
		res.err = err

		return res
	}
	res.arrowRow.Bytes = len(columnarBuf)

	start = time.Now()
	columnarDecoded, err := r.decoder.Decode(columnarBuf)
	res.arrowRow.DecodeTime = time.Since(start)
	if err != nil {
		res.err = err

		return res
	}
	if !trace.EqualSpans(chunk, columnarDecoded) {
		res.err = fmt.Errorf("%w: columnar round trip mismatch", errs.ErrMalformedBuffer)

		return res
	}

	// Arrow-from-columnar: the table is built outside the measurement, so
	// only serialization and deserialization are timed.
	table, err := columnar.BuildTable(sch, chunk)
	if err != nil {
		res.err = err

		return res
	}
	start = time.Now()
	tableBuf, err := r.encoder.EncodeTable(table)
	res.arrowColumnar.EncodeTime = time.Since(start)
	if err != nil {
		res.err = err

		return res
	}
	res.arrowColumnar.Bytes = len(tableBuf)

	start = time.Now()
	tableDecoded, err := r.decoder.Decode(tableBuf)
	res.arrowColumnar.DecodeTime = time.Since(start)
	if err != nil {
		res.err = err

		return res
	}
	if !trace.EqualSpans(chunk, tableDecoded) {
		res.err = fmt.Errorf("%w: columnar table round trip mismatch", errs.ErrMalformedBuffer)

		return res
	}

	if r.cfg.StatsEnabled {
		res.stats = newChunkStats(idx, chunk, table)
	}

	return res
}

func chunkSpans(spans []trace.Span, size int) [][]trace.Span {
	chunks := make([][]trace.Span, 0, (len(spans)+size-1)/size)
	for start := 0; start < len(spans); start += size {
		end := min(start+size, len(spans))
		chunks = append(chunks, spans[start:end])
	}

	return chunks
}
