package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/bookscan/internal/core/aggregate"
	"github.com/joseph-ayodele/bookscan/internal/core/judge"
)

var (
	judgeN     int
	judgeSeed  uint64
	judgeFiles []string
	judgeOut   string
)

var judgeCmd = &cobra.Command{
	Use:   "judge <root>",
	Short: "Score a sample of existing extractions against their images",
	Long: `Judge picks a sample of sidecars (the first n in review order, a seeded random
sample, or an explicit --files list), re-sends each image with its prior extraction
and records 1-3 accuracy scores. Sidecars are never modified.`,
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
		if cmd.Flags().Changed("sample") {
			cfg.Judge.SampleSize = judgeN
		}
		if cmd.Flags().Changed("seed") {
			cfg.Judge.Seed = judgeSeed
		}

		res, err := aggregate.New(cfg.Aggregate.PreviewChars, logger).Aggregate(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		sample := judge.Sample(res.Records, cfg.Judge.SampleSize, cfg.Judge.Seed)
		if len(judgeFiles) > 0 {
			var missing []string
			sample, missing = judge.SelectFiles(res.Records, judgeFiles)
			for _, m := range missing {
				fmt.Fprintf(cmd.ErrOrStderr(), "  no sidecar for %s\n", m)
			}
		}

		j := judge.New(judge.Config{Workers: cfg.Extract.Workers}, client, newPreprocessor(cfg, logger), logger)
		results, stats := j.Judge(cmd.Context(), sample)
		if err := judge.WriteResults(judgeOut, results); err != nil {
			return err
		}

		printSummary(cmd, "judge", stats.Judged, 0, stats.Errored)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", judgeOut)
		return nil
	},
}

func init() {
	judgeCmd.Flags().IntVarP(&judgeN, "sample", "n", 10, "sample size")
	judgeCmd.Flags().Uint64Var(&judgeSeed, "seed", 0, "random sample seed (0 takes the first n)")
	judgeCmd.Flags().StringSliceVar(&judgeFiles, "files", nil, "judge exactly these source files")
	judgeCmd.Flags().StringVarP(&judgeOut, "output", "o", "judge_results.json", "results file")
}
