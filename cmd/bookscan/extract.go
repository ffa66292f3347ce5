package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/bookscan/internal/core/extract"
)

var (
	extractWorkers  int
	extractWatch    bool
	extractDebounce time.Duration
)

var extractCmd = &cobra.Command{
	Use:   "extract <root>",
	Short: "Write a JSON sidecar next to every image under root that lacks one",
	Long: `Extract walks root, skips images that already have a sidecar, and asks the
vision model for the page text, printed page number and life-stage flag of each
remaining image. Interrupted runs resume where they stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		client, err := newClient(cfg, logger)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			cfg.Extract.Workers = extractWorkers
		}
		if cfg.Extract.Workers < 1 {
			return fmt.Errorf("--workers must be at least 1")
		}

		root := args[0]
		ex := extract.NewExtractor(extract.Config{
			Root:                 root,
			PageNumberSecondPass: cfg.Extract.PageNumberSecondPass,
			Workers:              cfg.Extract.Workers,
			JobTimeout:           cfg.Extract.JobTimeout,
		}, client, newPreprocessor(cfg, logger), logger)

		var stats extract.RunStats
		if extractWatch {
			stats, err = ex.Watch(cmd.Context(), root, extractDebounce)
		} else {
			stats, err = ex.ExtractAll(cmd.Context(), root)
		}
		if err != nil {
			return err
		}

		printSummary(cmd, "extract", stats.Processed, stats.Skipped, stats.Errored)
		for _, f := range stats.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s [%s] %s\n", f.Path, f.Reason, f.Err)
		}
		if n := stats.Discovered - stats.Processed - stats.Skipped - stats.Errored; n > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "extract: %d images not attempted (interrupted)\n", n)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", 1, "concurrent extractions")
	extractCmd.Flags().BoolVar(&extractWatch, "watch", false, "keep running and extract new images as they appear")
	extractCmd.Flags().DurationVar(&extractDebounce, "debounce", 2*time.Second, "quiet period before a new image is picked up in --watch mode")
}
