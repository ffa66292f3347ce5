// Package extract produces one page record sidecar per photographed page.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/bookscan/constants"
	"github.com/joseph-ayodele/bookscan/internal/common"
	"github.com/joseph-ayodele/bookscan/internal/core/imageprep"
	"github.com/joseph-ayodele/bookscan/internal/entity"
	"github.com/joseph-ayodele/bookscan/internal/ingest"
	"github.com/joseph-ayodele/bookscan/internal/llm"
	"github.com/joseph-ayodele/bookscan/internal/sidecar"
)

// schemaAttempts is the first call plus one retry on a schema violation.
const schemaAttempts = 2

// Outcome of one Extract call that did not fail.
type Outcome struct {
	Status      constants.Status
	SkipReason  constants.SkipReason
	SidecarPath string
	Record      *entity.PageRecord // nil when skipped
}

type Config struct {
	// Root of the corpus; images directly inside it carry no folder metadata.
	Root                 string
	PageNumberSecondPass bool
	Workers              int
	JobTimeout           time.Duration
	RetryDelay           time.Duration
}

type Extractor struct {
	cfg    Config
	client llm.Client
	prep   *imageprep.Preprocessor
	logger *slog.Logger
}

func NewExtractor(cfg Config, client llm.Client, prep *imageprep.Preprocessor, logger *slog.Logger) *Extractor {
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
	return &Extractor{cfg: cfg, client: client, prep: prep, logger: logger}
}

// Extract processes a single image. An existing sidecar short-circuits before any
// inference call. Failures are returned as *common.ExtractionError and leave no sidecar.
func (e *Extractor) Extract(ctx context.Context, imagePath string) (Outcome, error) {
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()
	log := e.logger.With("req_id", rid, "path", imagePath)
	sidecarPath := sidecar.PathFor(imagePath)

	if ok, err := sidecar.Exists(imagePath); err != nil {
		return Outcome{}, e.fail(log, start, imagePath, common.ReasonIO, err)
	} else if ok {
		log.Debug("extract.skip", "reason", constants.SkipExists)
		return skipped(sidecarPath, constants.SkipExists), nil
	}

	claim, err := sidecar.Acquire(imagePath)
	if errors.Is(err, sidecar.ErrClaimed) {
		log.Info("extract.skip", "reason", constants.SkipClaimed)
		return skipped(sidecarPath, constants.SkipClaimed), nil
	}
	if err != nil {
		return Outcome{}, e.fail(log, start, imagePath, common.ReasonIO, err)
	}
	defer func() {
		if err := claim.Release(); err != nil {
			log.Warn("extract.release_failed", "error", err)
		}
	}()

	// Another worker may have finished between the first check and the claim.
	if ok, err := sidecar.Exists(imagePath); err != nil {
		return Outcome{}, e.fail(log, start, imagePath, common.ReasonIO, err)
	} else if ok {
		log.Debug("extract.skip", "reason", constants.SkipExists)
		return skipped(sidecarPath, constants.SkipExists), nil
	}

	log.Info("extract.start")

	rec, reason, err := e.buildRecord(ctx, log, imagePath)
	if err != nil {
		return Outcome{}, e.fail(log, start, imagePath, reason, err)
	}
	written, err := sidecar.Write(imagePath, rec)
	if err != nil {
		return Outcome{}, e.fail(log, start, imagePath, common.ReasonIO, err)
	}

	log.Info("extract.ok",
		"sidecar", written,
		"book", entity.Deref(rec.BookName),
		"page_number", logValue(rec.PageNumber),
		"text_len", len([]rune(rec.Text)),
		"life_stage", rec.LifeStageFlag,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{Status: constants.StatusProcessed, SidecarPath: written, Record: &rec}, nil
}

// Probe runs the full extraction for one image and returns the record without
// claiming or writing a sidecar.
func (e *Extractor) Probe(ctx context.Context, imagePath string) (entity.PageRecord, error) {
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()
	log := e.logger.With("req_id", rid, "path", imagePath)

	rec, reason, err := e.buildRecord(ctx, log, imagePath)
	if err != nil {
		return entity.PageRecord{}, e.fail(log, start, imagePath, reason, err)
	}
	log.Info("extract.probe.ok", "page_number", logValue(rec.PageNumber), "elapsed_ms", time.Since(start).Milliseconds())
	return rec, nil
}

// buildRecord prepares the image, calls the model and merges in folder facts.
// On failure it reports which ExtractionReason applies.
func (e *Extractor) buildRecord(ctx context.Context, log *slog.Logger, imagePath string) (entity.PageRecord, common.ExtractionReason, error) {
	prepared, err := e.prep.Prepare(ctx, imagePath)
	if err != nil {
		if errors.Is(err, common.ErrImageTooLarge) {
			return entity.PageRecord{}, common.ReasonImageTooLarge, err
		}
		// A job deadline or cancellation is a transport-class failure, not a file problem.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return entity.PageRecord{}, common.ReasonTransport, err
		}
		return entity.PageRecord{}, common.ReasonIO, err
	}

	fields, err := e.extractFields(ctx, log, prepared)
	if err != nil {
		if llm.IsSchemaViolation(err) {
			return entity.PageRecord{}, common.ReasonSchemaViolation, err
		}
		return entity.PageRecord{}, common.ReasonTransport, err
	}

	if fields.PageNumber == nil && e.cfg.PageNumberSecondPass {
		fields.PageNumber = e.pageNumberFromBottom(ctx, log, prepared)
	}

	// The stored reference must resolve from any working directory.
	ref := imagePath
	if abs, err := filepath.Abs(imagePath); err == nil {
		ref = abs
	}

	facts := ingest.ParseFolder(e.cfg.Root, imagePath)
	return entity.PageRecord{
		BookName:      facts.BookName,
		AuthorName:    facts.AuthorName,
		PageNumber:    fields.PageNumber,
		Text:          fields.Text,
		LifeStageFlag: fields.LifeStageFlag,
		SourceFile:    filepath.Base(imagePath),
		Reference:     ref,
	}, "", nil
}

// extractFields calls the model and retries once if the reply violates the schema.
// Transport errors are not retried here; the SDK already retries 429/5xx.
func (e *Extractor) extractFields(ctx context.Context, log *slog.Logger, prepared imageprep.Prepared) (llm.PageFields, error) {
	req := llm.Request{
		Name:         llm.PageSchemaName,
		Instructions: llm.BuildPageInstructions(),
		Schema:       llm.BuildPageJSONSchema(),
		Images:       []llm.Image{prepared.Image},
	}
	return retry.DoWithData(
		func() (llm.PageFields, error) {
			raw, err := e.client.Complete(ctx, req)
			if err != nil {
				return llm.PageFields{}, fmt.Errorf("%w: %w", common.ErrTransport, err)
			}
			return llm.ValidatePage(raw, log)
		},
		retry.Context(ctx),
		retry.Attempts(schemaAttempts),
		retry.Delay(e.cfg.RetryDelay),
		retry.RetryIf(llm.IsSchemaViolation),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("extract.schema_retry", "attempt", n+1, "error", err)
		}),
	)
}

// pageNumberFromBottom asks again using only the bottom strip of the page.
// Any failure leaves the page number absent.
func (e *Extractor) pageNumberFromBottom(ctx context.Context, log *slog.Logger, prepared imageprep.Prepared) *int {
	crop, err := e.prep.CropBottom(ctx, prepared)
	if err != nil {
		log.Warn("extract.page_number_pass.crop_failed", "error", err)
		return nil
	}
	raw, err := e.client.Complete(ctx, llm.Request{
		Name:         llm.PageNumberSchemaName,
		Instructions: llm.BuildPageNumberInstructions(),
		Schema:       llm.BuildPageNumberJSONSchema(),
		Images:       []llm.Image{crop.Image},
	})
	if err != nil {
		log.Warn("extract.page_number_pass.call_failed", "error", err)
		return nil
	}
	fields, err := llm.ValidatePageNumber(raw, log)
	if err != nil {
		log.Warn("extract.page_number_pass.invalid", "error", err)
		return nil
	}
	if fields.PageNumber != nil {
		log.Info("extract.page_number_pass.found", "page_number", *fields.PageNumber)
	}
	return fields.PageNumber
}

func (e *Extractor) fail(log *slog.Logger, start time.Time, path string, reason common.ExtractionReason, cause error) error {
	err := common.NewExtractionError(path, reason, cause)
	log.Error("extract.error",
		"reason", reason,
		"error", cause,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return err
}

func skipped(sidecarPath string, reason constants.SkipReason) Outcome {
	return Outcome{Status: constants.StatusSkipped, SkipReason: reason, SidecarPath: sidecarPath}
}

// logValue renders an optional int as its value, or null when absent.
func logValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
