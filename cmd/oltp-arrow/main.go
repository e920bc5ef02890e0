// Command oltp-arrow benchmarks a columnar span encoding against a
// row-oriented protobuf baseline over NDJSON trace files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lquerel/oltp-arrow/bench"
	"github.com/lquerel/oltp-arrow/format"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	defaults := bench.DefaultConfig()
	cfg := defaults
	compressionName := defaults.Compression.String()

	cmd := &cobra.Command{
		Use:           "oltp-arrow [flags] <file>...",
		Short:         "Compare columnar and row-oriented span encodings",
		Long:          "Reads newline-delimited JSON span files, encodes every batch with the columnar codec and the protobuf baseline, and reports encoded sizes and encode/decode timings per input file.",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			compression, ok := format.ParseCompression(compressionName)
			if !ok {
				return fmt.Errorf("unknown compression %q", compressionName)
			}
			cfg.Compression = compression

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			runner, err := bench.NewRunner(cfg, logger)
			if err != nil {
				return err
			}
			report, err := runner.Run(args)
			if err != nil {
				logger.Error("benchmark run failed", zap.Error(err))

				return err
			}

			return report.Render(cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", defaults.BatchSize, "number of spans per encoded chunk")
	cmd.Flags().IntVar(&cfg.Workers, "workers", defaults.Workers, "number of chunk worker goroutines")
	cmd.Flags().BoolVar(&cfg.StatsEnabled, "stats", false, "emit a per-file column statistics artifact")
	cmd.Flags().StringVar(&cfg.StatsDir, "stats-dir", "", "directory for statistics artifacts (default: next to each input file)")
	cmd.Flags().StringVar(&compressionName, "compression", compressionName, "columnar payload compression: none, zstd, s2 or lz4")

	return cmd
}
