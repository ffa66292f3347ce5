// Package judge re-scores a sample of existing extractions with a second model call.
// It only reads sidecars.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/bookscan/constants"
	"github.com/joseph-ayodele/bookscan/internal/common"
	"github.com/joseph-ayodele/bookscan/internal/core/imageprep"
	"github.com/joseph-ayodele/bookscan/internal/entity"
	"github.com/joseph-ayodele/bookscan/internal/llm"
	"github.com/joseph-ayodele/bookscan/internal/sidecar"
)

const schemaAttempts = 2

type Config struct {
	Workers    int
	RetryDelay time.Duration
}

// Stats counts one judge run.
type Stats struct {
	Judged  int
	Errored int
	// Errors holds the *common.JudgmentError of each failed item.
	Errors []error
}

type Judge struct {
	cfg    Config
	client llm.Client
	prep   *imageprep.Preprocessor
	logger *slog.Logger
}

func New(cfg Config, client llm.Client, prep *imageprep.Preprocessor, logger *slog.Logger) *Judge {
	if logger == nil {
		logger = slog.Default()
	}
	if prep == nil {
		prep = imageprep.New(imageprep.Options{}, logger)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Judge{cfg: cfg, client: client, prep: prep, logger: logger}
}

// Judge scores every record in sample. Results come back in sample order; an item
// that fails carries its error and does not stop the others.
func (j *Judge) Judge(ctx context.Context, sample []entity.PageRecord) ([]entity.JudgmentResult, Stats) {
	start := time.Now()
	results := make([]entity.JudgmentResult, len(sample))

	var mu sync.Mutex
	var stats Stats

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Workers)
	for i, rec := range sample {
		g.Go(func() error {
			res, err := j.judgeOne(gctx, rec)
			results[i] = res
			mu.Lock()
			if err != nil {
				stats.Errored++
				stats.Errors = append(stats.Errors, err)
			} else {
				stats.Judged++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	j.logger.Info("judge.run.done",
		"sample", len(sample),
		"judged", stats.Judged,
		"errored", stats.Errored,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return results, stats
}

func (j *Judge) judgeOne(ctx context.Context, rec entity.PageRecord) (entity.JudgmentResult, error) {
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()
	log := j.logger.With("req_id", rid, "source_file", rec.SourceFile)
	out := entity.JudgmentResult{SourceFile: rec.SourceFile, Reference: rec.Reference}

	fail := func(err error) (entity.JudgmentResult, error) {
		jerr := &common.JudgmentError{SourceFile: rec.SourceFile, Cause: err}
		log.Error("judge.item.error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		out.Error = jerr.Error()
		return out, jerr
	}

	prepared, err := j.prep.Prepare(ctx, ImagePath(rec))
	if err != nil {
		return fail(err)
	}
	prior, err := priorExtraction(rec)
	if err != nil {
		return fail(err)
	}

	req := llm.Request{
		Name:         llm.JudgmentSchemaName,
		Instructions: llm.BuildJudgeInstructions(),
		Schema:       llm.BuildJudgmentJSONSchema(),
		Images:       []llm.Image{prepared.Image},
		Context:      "Prior extraction:\n" + prior,
	}
	fields, err := retry.DoWithData(
		func() (llm.JudgmentFields, error) {
			raw, err := j.client.Complete(ctx, req)
			if err != nil {
				return llm.JudgmentFields{}, fmt.Errorf("%w: %w", common.ErrTransport, err)
			}
			return llm.ValidateJudgment(raw, log)
		},
		retry.Context(ctx),
		retry.Attempts(schemaAttempts),
		retry.Delay(j.cfg.RetryDelay),
		retry.RetryIf(llm.IsSchemaViolation),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fail(err)
	}

	out.TextAccuracy = &fields.TextAccuracy
	out.PageNumberAccuracy = fields.PageNumberAccuracy
	out.TitleAccuracy = fields.TitleAccuracy
	out.Rationale = fields.Rationale
	log.Info("judge.item.ok",
		"text_accuracy", fields.TextAccuracy,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ImagePath locates the page image. The image sits next to its sidecar, which stays
// valid when the stored reference was recorded relative to another directory.
func ImagePath(rec entity.PageRecord) string {
	if rec.SidecarPath != "" {
		return constants.ImagePathFromSidecar(rec.SidecarPath)
	}
	return rec.Reference
}

// priorExtraction is the part of the record the judge scores. Local paths stay out of it.
func priorExtraction(rec entity.PageRecord) (string, error) {
	b, err := json.MarshalIndent(struct {
		BookName      *string `json:"book_name"`
		AuthorName    *string `json:"author_name"`
		PageNumber    *int    `json:"page_number"`
		Text          string  `json:"text"`
		LifeStageFlag string  `json:"life_stage_flag"`
	}{rec.BookName, rec.AuthorName, rec.PageNumber, rec.Text, string(rec.LifeStageFlag)}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteResults writes results as one JSON array, replacing path atomically.
func WriteResults(path string, results []entity.JudgmentResult) error {
	if results == nil {
		results = []entity.JudgmentResult{}
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return sidecar.WriteFileAtomic(path, append(b, '\n'), 0o644)
}
