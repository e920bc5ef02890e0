package bench

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lquerel/oltp-arrow/format"
)

// CodecMetrics accumulates the measurements of one codec configuration
// over the chunks of one file.
type CodecMetrics struct {
	Bytes      int
	EncodeTime time.Duration
	DecodeTime time.Duration
}

func (m *CodecMetrics) add(other CodecMetrics) {
	m.Bytes += other.Bytes
	m.EncodeTime += other.EncodeTime
	m.DecodeTime += other.DecodeTime
}

// FileResult holds the aggregated measurements of one input file.
type FileResult struct {
	File          string
	Records       int
	Chunks        int
	SkippedChunks int
	Baseline      CodecMetrics
	ArrowRow      CodecMetrics
	ArrowColumnar CodecMetrics
	// StatsArtifact is the path of the statistics file, when enabled.
	StatsArtifact string
}

// Report is the final benchmark outcome: one column per input file, one
// row per metric.
type Report struct {
	Compression format.CompressionType
	Files       []FileResult
}

// Render writes the report as an aligned text table.
func (r *Report) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)

	fmt.Fprint(tw, "metric")
	for _, f := range r.Files {
		fmt.Fprintf(tw, "\t%s", f.File)
	}
	fmt.Fprintln(tw)

	rows := []struct {
		label string
		value func(f *FileResult) string
	}{
		{"records", func(f *FileResult) string { return fmt.Sprintf("%d", f.Records) }},
		{"chunks", func(f *FileResult) string {
			if f.SkippedChunks > 0 {
				return fmt.Sprintf("%d (%d skipped)", f.Chunks, f.SkippedChunks)
			}

			return fmt.Sprintf("%d", f.Chunks)
		}},
		{"baseline size", func(f *FileResult) string { return humanize.IBytes(uint64(f.Baseline.Bytes)) }},
		{"baseline encode", func(f *FileResult) string { return f.Baseline.EncodeTime.String() }},
		{"baseline decode", func(f *FileResult) string { return f.Baseline.DecodeTime.String() }},
		{"arrow-from-row size", func(f *FileResult) string { return humanize.IBytes(uint64(f.ArrowRow.Bytes)) }},
		{"arrow-from-row encode", func(f *FileResult) string { return f.ArrowRow.EncodeTime.String() }},
		{"arrow-from-row decode", func(f *FileResult) string { return f.ArrowRow.DecodeTime.String() }},
		{"arrow-from-columnar size", func(f *FileResult) string { return humanize.IBytes(uint64(f.ArrowColumnar.Bytes)) }},
		{"arrow-from-columnar encode", func(f *FileResult) string { return f.ArrowColumnar.EncodeTime.String() }},
		{"arrow-from-columnar decode", func(f *FileResult) string { return f.ArrowColumnar.DecodeTime.String() }},
	}

	for _, row := range rows {
		fmt.Fprint(tw, row.label)
		for i := range r.Files {
			fmt.Fprintf(tw, "\t%s", row.value(&r.Files[i]))
		}
		fmt.Fprintln(tw)
	}

	return tw.Flush()
}
