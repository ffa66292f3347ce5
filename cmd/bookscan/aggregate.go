package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/bookscan/internal/core/aggregate"
	"github.com/joseph-ayodele/bookscan/internal/export"
)

var (
	aggregateOut    string
	aggregateFormat string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <root>",
	Short: "Build the review table from every sidecar under root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(aggregateFormat, aggregateOut)
		if err != nil {
			return err
		}

		res, err := aggregate.New(cfg.Aggregate.PreviewChars, logger).Aggregate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := export.New(logger).Write(cmd.Context(), format, res.Rows, aggregateOut); err != nil {
			return err
		}

		printSummary(cmd, "aggregate", res.Stats.Rows, 0, res.Stats.Flagged)
		for _, f := range res.Flagged {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", f.SidecarPath, f.Error)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", aggregateOut, format)
		return nil
	},
}

func init() {
	aggregateCmd.Flags().StringVarP(&aggregateOut, "output", "o", "review.csv", "output path")
	aggregateCmd.Flags().StringVar(&aggregateFormat, "format", "", "csv, xlsx or sqlite (default: from the output extension)")
}
