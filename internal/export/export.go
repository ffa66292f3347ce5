// Package export writes the review table in the supported output formats.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/bookscan/internal/entity"
	"github.com/joseph-ayodele/bookscan/internal/utils"
)

type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// Columns of the review table, in output order.
var Columns = []string{
	"source_file",
	"book_name",
	"author_name",
	"page_number",
	"text_length",
	"text_preview",
	"life_stage_flag",
}

// ParseFormat accepts an explicit format name; an empty name is resolved from path.
func ParseFormat(name, path string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx":
			return FormatXLSX, nil
		case ".db", ".sqlite", ".sqlite3":
			return FormatSQLite, nil
		default:
			return FormatCSV, nil
		}
	}
	switch f := Format(name); f {
	case FormatCSV, FormatXLSX, FormatSQLite:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want csv, xlsx or sqlite)", name)
}

// Exporter writes review rows to disk. Every output replaces the previous one atomically.
type Exporter struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// Write dispatches on format.
func (e *Exporter) Write(ctx context.Context, format Format, rows []entity.ReviewRow, path string) error {
	start := time.Now()
	var err error
	switch format {
	case FormatCSV:
		err = WriteCSV(rows, path)
	case FormatXLSX:
		err = WriteXLSX(rows, path)
	case FormatSQLite:
		err = WriteSQLite(ctx, rows, path)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		e.logger.Error("export.error", "format", format, "path", path, "error", err)
		return err
	}
	e.logger.Info("export.ok",
		"format", format,
		"path", path,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// cells renders one row as strings; null becomes an empty cell.
func cells(r entity.ReviewRow) []string {
	return []string{
		r.SourceFile,
		utils.StrOrEmpty(r.BookName),
		utils.StrOrEmpty(r.AuthorName),
		utils.IntOrEmpty(r.PageNumber),
		fmt.Sprint(r.TextLength),
		r.TextPreview,
		string(r.LifeStageFlag),
	}
}
