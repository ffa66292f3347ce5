package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/bookscan/internal/core/aggregate"
	"github.com/joseph-ayodele/bookscan/internal/report"
)

var auditOut string

var auditCmd = &cobra.Command{
	Use:   "audit <root>",
	Short: "Report corrupt sidecars and records missing book, author or page number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		res, err := aggregate.New(cfg.Aggregate.PreviewChars, logger).Aggregate(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		a := report.Build(args[0], res.Rows, res.Flagged)
		if auditOut == "-" {
			return a.WriteMarkdown(cmd.OutOrStdout())
		}
		if err := a.WriteFile(auditOut); err != nil {
			return err
		}
		printSummary(cmd, "audit", res.Stats.Rows, 0, res.Stats.Flagged)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", auditOut)
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVarP(&auditOut, "output", "o", "audit.md", "report path, - for stdout")
}
