// Package aggregate rebuilds the review table from the sidecars under a root.
package aggregate

import (
	"cmp"
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/bookscan/constants"
	"github.com/joseph-ayodele/bookscan/internal/common"
	"github.com/joseph-ayodele/bookscan/internal/entity"
	"github.com/joseph-ayodele/bookscan/internal/ingest"
	"github.com/joseph-ayodele/bookscan/internal/sidecar"
)

const defaultPreviewChars = 180

// Stats counts one aggregation run.
type Stats struct {
	Sidecars int
	Rows     int
	Flagged  int
}

// Result holds the sorted review rows and, separately, the sidecars that could not be read.
type Result struct {
	Rows    []entity.ReviewRow
	Records []entity.PageRecord // parallel to Rows
	Flagged []entity.ReviewRow

	// ReadErrors holds one *common.AggregationReadError per flagged row, in the same order.
	ReadErrors []error
	Stats      Stats
}

type Aggregator struct {
	previewChars int
	logger       *slog.Logger
}

func New(previewChars int, logger *slog.Logger) *Aggregator {
	if previewChars <= 0 {
		previewChars = defaultPreviewChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{previewChars: previewChars, logger: logger}
}

// Aggregate reads every sidecar under root. Unreadable sidecars are logged and returned
// as flagged rows; they never stop the run. Sidecars are only read.
func (a *Aggregator) Aggregate(ctx context.Context, root string) (Result, error) {
	start := time.Now()
	paths, walkErrs, dirStats, err := ingest.Discover(ctx, root, ingest.Sidecars)
	if err != nil {
		return Result{}, err
	}
	for _, we := range walkErrs {
		a.logger.Warn("aggregate.walk_error", "path", we.Path, "error", we.Err)
	}

	type entry struct {
		row entity.ReviewRow
		rec entity.PageRecord
	}
	entries := make([]entry, 0, len(paths))
	var (
		flagged  []entity.ReviewRow
		readErrs []error
	)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rec, err := sidecar.Read(p)
		if err != nil {
			rerr := &common.AggregationReadError{Path: p, Cause: err}
			a.logger.Warn("aggregate.read_error", "path", p, "error", err)
			readErrs = append(readErrs, rerr)
			flagged = append(flagged, entity.ReviewRow{
				SourceFile:  filepath.Base(constants.ImagePathFromSidecar(p)),
				SidecarPath: p,
				Reference:   constants.ImagePathFromSidecar(p),
				Error:       rerr.Error(),
			})
			continue
		}
		entries = append(entries, entry{row: a.Row(rec, p), rec: rec})
	}

	slices.SortStableFunc(entries, func(x, y entry) int { return CompareRows(x.row, y.row) })

	res := Result{
		Rows:       make([]entity.ReviewRow, len(entries)),
		Records:    make([]entity.PageRecord, len(entries)),
		Flagged:    flagged,
		ReadErrors: readErrs,
		Stats:      Stats{Sidecars: len(paths), Rows: len(entries), Flagged: len(flagged)},
	}
	for i, e := range entries {
		res.Rows[i] = e.row
		res.Records[i] = e.rec
	}

	a.logger.Info("aggregate.ok",
		"root", root,
		"scanned", dirStats.Scanned,
		"walk_failed", dirStats.Failed,
		"rows", res.Stats.Rows,
		"flagged", res.Stats.Flagged,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Row projects one record into its review row.
func (a *Aggregator) Row(rec entity.PageRecord, sidecarPath string) entity.ReviewRow {
	return entity.ReviewRow{
		SourceFile:    rec.SourceFile,
		BookName:      rec.BookName,
		AuthorName:    rec.AuthorName,
		PageNumber:    rec.PageNumber,
		TextLength:    utf8.RuneCountInString(rec.Text),
		TextPreview:   Preview(rec.Text, a.previewChars),
		LifeStageFlag: rec.LifeStageFlag,
		SidecarPath:   sidecarPath,
		Reference:     rec.Reference,
	}
}

// CompareRows orders by book name (null as "", case-insensitive), then page number
// (null after every number), then source file, then sidecar path. Raw values break
// case-only ties so the order is total.
func CompareRows(x, y entity.ReviewRow) int {
	if c := compareFold(entity.Deref(x.BookName), entity.Deref(y.BookName)); c != 0 {
		return c
	}
	if c := comparePage(x.PageNumber, y.PageNumber); c != 0 {
		return c
	}
	if c := compareFold(x.SourceFile, y.SourceFile); c != 0 {
		return c
	}
	return strings.Compare(x.SidecarPath, y.SidecarPath)
}

func compareFold(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func comparePage(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

// Preview collapses whitespace and keeps the first n characters, appending "…" when cut.
func Preview(text string, n int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(collapsed) <= n {
		return collapsed
	}
	r := []rune(collapsed)
	return string(r[:n]) + "…"
}
