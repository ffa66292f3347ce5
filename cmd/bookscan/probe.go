package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/bookscan/internal/core/extract"
	"github.com/joseph-ayodele/bookscan/internal/sidecar"
)

var (
	probeRoot  string
	probeTimes int
)

var probeCmd = &cobra.Command{
	Use:   "probe <image>",
	Short: "Run extraction on one image and print the record without writing a sidecar",
	Long: `Probe extracts a single image one or more times and prints each record as it
would be written. Use it to check how stable the model is on a difficult page.`,
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
		if probeTimes < 1 {
			return fmt.Errorf("--times must be at least 1")
		}

		ex := extract.NewExtractor(extract.Config{
			Root:                 probeRoot,
			PageNumberSecondPass: cfg.Extract.PageNumberSecondPass,
		}, client, newPreprocessor(cfg, logger), logger)

		failed := 0
		for i := 1; i <= probeTimes; i++ {
			if err := cmd.Context().Err(); err != nil {
				break
			}
			rec, err := ex.Probe(cmd.Context(), args[0])
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "run %d: %v\n", i, err)
				continue
			}
			b, err := sidecar.Encode(rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s", b)
		}
		printSummary(cmd, "probe", probeTimes-failed, 0, failed)
		return nil
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeRoot, "root", ".", "corpus root used for folder metadata")
	probeCmd.Flags().IntVar(&probeTimes, "times", 1, "number of runs")
	rootCmd.AddCommand(probeCmd)
}
