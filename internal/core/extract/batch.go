package extract

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/bookscan/constants"
	"github.com/joseph-ayodele/bookscan/internal/common"
	"github.com/joseph-ayodele/bookscan/internal/core/async"
	"github.com/joseph-ayodele/bookscan/internal/ingest"
)

// Failure is one image that errored during a run.
type Failure struct {
	Path   string
	Reason common.ExtractionReason
	Err    string
}

// RunStats summarises one batch. Discovered minus the three counters is the number of
// images never attempted because the run was cancelled.
type RunStats struct {
	Discovered int
	Processed  int
	Skipped    int
	Errored    int
	Failures   []Failure
}

type statsCollector struct {
	mu sync.Mutex
	s  RunStats
}

func (c *statsCollector) record(path string, out Outcome, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.s.Errored++
		f := Failure{Path: path, Err: err.Error(), Reason: common.ReasonIO}
		var ee *common.ExtractionError
		if errors.As(err, &ee) {
			f.Reason = ee.Reason
		}
		c.s.Failures = append(c.s.Failures, f)
		return
	}
	switch out.Status {
	case constants.StatusProcessed:
		c.s.Processed++
	case constants.StatusSkipped:
		c.s.Skipped++
	}
}

func (c *statsCollector) snapshot() RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.s
	out.Failures = append([]Failure(nil), c.s.Failures...)
	return out
}

// ExtractAll discovers every image under root and extracts each exactly once using
// the configured worker count. Per-image failures are counted, never returned;
// the error is non-nil only when root cannot be walked.
func (e *Extractor) ExtractAll(ctx context.Context, root string) (RunStats, error) {
	ctx = common.WithRunID(ctx, uuid.New().String())
	start := time.Now()
	log := e.logger.With("run_id", common.RunIDFromContext(ctx), "root", root)

	images, walkErrs, dirStats, err := ingest.Discover(ctx, root, ingest.Images)
	if err != nil {
		log.Error("extract.run.discover_failed", "error", err)
		return RunStats{}, err
	}
	for _, we := range walkErrs {
		log.Warn("extract.run.walk_error", "path", we.Path, "error", we.Err)
	}
	log.Info("extract.run.start",
		"images", len(images),
		"scanned", dirStats.Scanned,
		"walk_failed", dirStats.Failed,
		"workers", e.cfg.Workers,
	)

	stats := &statsCollector{}
	stats.s.Discovered = len(images)
	q := e.newQueue(ctx, stats)
	for _, p := range images {
		if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
			log.Warn("extract.run.enqueue_stopped", "error", err)
			break
		}
	}
	q.Shutdown(context.Background())

	out := stats.snapshot()
	log.Info("extract.run.done",
		"processed", out.Processed,
		"skipped", out.Skipped,
		"errored", out.Errored,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Watch runs ExtractAll semantics continuously: existing images first, then every
// image created under root until ctx is cancelled.
func (e *Extractor) Watch(ctx context.Context, root string, debounce time.Duration) (RunStats, error) {
	ctx = common.WithRunID(ctx, uuid.New().String())
	log := e.logger.With("run_id", common.RunIDFromContext(ctx), "root", root)

	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{root},
		Match:       ingest.Images,
		InitialScan: true,
		Debounce:    debounce,
		Logger:      e.logger,
	})
	if err != nil {
		return RunStats{}, err
	}
	log.Info("extract.watch.start", "workers", e.cfg.Workers)

	stats := &statsCollector{}
	q := e.newQueue(ctx, stats)
	for {
		select {
		case p, ok := <-events:
			if !ok {
				q.Shutdown(context.Background())
				return stats.snapshot(), nil
			}
			stats.mu.Lock()
			stats.s.Discovered++
			stats.mu.Unlock()
			if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
				q.Shutdown(context.Background())
				return stats.snapshot(), nil
			}
		case werr, ok := <-errs:
			if ok {
				log.Warn("extract.watch.error", "error", werr)
			} else {
				errs = nil
			}
		}
	}
}

func (e *Extractor) newQueue(ctx context.Context, stats *statsCollector) *async.ProcessorQueue {
	return async.NewProcessorQueue(ctx, func(ctx context.Context, job async.Job) {
		out, err := e.Extract(ctx, job.Path)
		stats.record(job.Path, out, err)
	}, e.logger,
		async.WithWorkers(e.cfg.Workers),
		async.WithQueueSize(e.cfg.Workers*2),
		async.WithProcessTimeout(e.cfg.JobTimeout),
	)
}
