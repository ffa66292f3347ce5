package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/bookscan/internal/common"
	"github.com/joseph-ayodele/bookscan/internal/core/imageprep"
	"github.com/joseph-ayodele/bookscan/internal/llm"
	"github.com/joseph-ayodele/bookscan/internal/llm/openai"
	applog "github.com/joseph-ayodele/bookscan/internal/log"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bookscan",
	Short: "Turn photographed book pages into auditable JSON records",
	Long: `bookscan extracts the text of photographed book pages into one JSON sidecar
per image, aggregates the sidecars into a review table, and spot-checks accuracy
with a sampling judge.

Book and author come only from folder names (<book>_<author>); page numbers only
when printed on the page. Anything else is recorded as null.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: "+common.DefaultConfigPath()+" or ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(extractCmd, aggregateCmd, judgeCmd, auditCmd)
}

// setup loads configuration and builds the process logger.
func setup() (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	level := applog.ParseLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	logger := applog.NewJSONLogger(os.Stderr, level)
	slog.SetDefault(logger)
	logger.Debug("config.loaded", "llm", cfg.LLM)
	return cfg, logger, nil
}

// newClient builds the rate-limited inference client. It requires an API key.
func newClient(cfg *common.Config, logger *slog.Logger) (llm.Client, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	oc := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
	}, logger)
	logger.Debug("llm.client.ready", "model", oc.Model(), "requests_per_minute", cfg.Extract.RequestsPerMinute)
	return llm.WithRateLimit(oc, cfg.Extract.RequestsPerMinute), nil
}

func newPreprocessor(cfg *common.Config, logger *slog.Logger) *imageprep.Preprocessor {
	return imageprep.New(imageprep.Options{
		MaxBytes:    cfg.Image.MaxUploadBytes,
		MaxAttempts: cfg.Image.MaxAttempts,
		MinSide:     cfg.Image.MinSide,
	}, logger)
}

func printSummary(cmd *cobra.Command, stage string, processed, skipped, errored int) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: processed=%d skipped=%d errored=%d\n", stage, processed, skipped, errored)
}
