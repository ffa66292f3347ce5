package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/joseph-ayodele/bookscan/internal/entity"
)

const reviewSchema = `
CREATE TABLE review_rows (
	position        INTEGER PRIMARY KEY,
	source_file     TEXT NOT NULL,
	book_name       TEXT,
	author_name     TEXT,
	page_number     INTEGER,
	text_length     INTEGER NOT NULL,
	text_preview    TEXT NOT NULL,
	life_stage_flag TEXT NOT NULL,
	sidecar_path    TEXT NOT NULL
);
CREATE INDEX idx_review_rows_book ON review_rows(book_name, page_number);
`

// WriteSQLite builds a fresh database holding the review_rows table and moves it over
// path. The table is a projection and is rebuilt from scratch on every run.
func WriteSQLite(ctx context.Context, rows []entity.ReviewRow, path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp db: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	db, err := sql.Open("sqlite", tmpPath+"?mode=rwc")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err = fillReviewRows(ctx, db, rows); err != nil {
		_ = db.Close()
		return err
	}
	if err = db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func fillReviewRows(ctx context.Context, db *sql.DB, rows []entity.ReviewRow) error {
	if _, err := db.ExecContext(ctx, reviewSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO review_rows
		(position, source_file, book_name, author_name, page_number, text_length, text_preview, life_stage_flag, sidecar_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			i+1,
			r.SourceFile,
			nullable(r.BookName),
			nullable(r.AuthorName),
			nullable(r.PageNumber),
			r.TextLength,
			r.TextPreview,
			string(r.LifeStageFlag),
			r.SidecarPath,
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.SourceFile, err)
		}
	}
	return tx.Commit()
}
