package bench

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/lquerel/oltp-arrow/columnar"
	"github.com/lquerel/oltp-arrow/format"
	"github.com/lquerel/oltp-arrow/internal/hash"
	"github.com/lquerel/oltp-arrow/trace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ColumnReport is the serialized form of one column's statistics.
type ColumnReport struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Rows            int     `json:"rows"`
	Nulls           int     `json:"nulls"`
	NullRatio       float64 `json:"null_ratio"`
	Distinct        int     `json:"distinct,omitempty"`
	Dictionary      bool    `json:"dictionary"`
	DictionaryBytes int     `json:"dictionary_bytes,omitempty"`
	EncodedBytes    int     `json:"encoded_bytes"`
}

// ChunkStats is the statistics record of one chunk, written to the
// per-file artifact when statistics are enabled. The attribute-set
// fingerprint hashes the sorted union of span attribute keys, so chunks
// with identical fingerprints can be batched together to share dictionaries
// and minimize null columns.
type ChunkStats struct {
	Chunk                   int            `json:"chunk"`
	Records                 int            `json:"records"`
	AttributeSetFingerprint string         `json:"attribute_set_fingerprint"`
	Columns                 []ColumnReport `json:"columns"`
}

func newChunkStats(idx int, chunk []trace.Span, table *columnar.Table) ChunkStats {
	cs := ChunkStats{
		Chunk:                   idx,
		Records:                 len(chunk),
		AttributeSetFingerprint: attributeSetFingerprint(chunk),
	}

	for _, col := range table.Stats() {
		report := ColumnReport{
			Name:            col.Name,
			Type:            col.Type.String(),
			Rows:            col.Rows,
			Nulls:           col.Nulls,
			Distinct:        col.Distinct,
			Dictionary:      col.Type == format.TypeTextDict,
			DictionaryBytes: col.DictionaryBytes,
			EncodedBytes:    col.EncodedBytes,
		}
		if col.Rows > 0 {
			report.NullRatio = float64(col.Nulls) / float64(col.Rows)
		}
		cs.Columns = append(cs.Columns, report)
	}

	return cs
}

// attributeSetFingerprint returns the hex xxhash of the sorted span-level
// attribute key union of the chunk.
func attributeSetFingerprint(chunk []trace.Span) string {
	keySet := make(map[string]struct{})
	for i := range chunk {
		for key := range chunk[i].Attributes {
			keySet[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	dg := hash.NewDigest()
	for _, key := range keys {
		dg.WriteString(key)
		_ = dg.WriteByte(0)
	}

	return fmt.Sprintf("%016x", dg.Sum64())
}

// writeStats writes one statistics artifact per input file, holding the
// stats of every measured chunk in input order, and returns its path.
func (r *Runner) writeStats(inputPath string, stats []ChunkStats) (string, error) {
	dir := filepath.Dir(inputPath)
	if r.cfg.StatsDir != "" {
		dir = r.cfg.StatsDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	path := filepath.Join(dir, filepath.Base(inputPath)+".stats.json")

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}

	return path, nil
}
