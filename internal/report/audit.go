// Package report renders a read-only audit of the sidecars under a root.
package report

import (
	"bytes"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/joseph-ayodele/bookscan/internal/entity"
	"github.com/joseph-ayodele/bookscan/internal/sidecar"
	"github.com/joseph-ayodele/bookscan/internal/utils"
)

const previewWidth = 60

// Audit lists what the corpus is missing. Gaps are reported, never filled.
type Audit struct {
	Root          string
	GeneratedAt   time.Time
	Total         int
	Corrupt       []entity.ReviewRow
	MissingBook   []entity.ReviewRow
	MissingAuthor []entity.ReviewRow
	MissingPage   []entity.ReviewRow
}

// Build classifies aggregated rows. A row missing several fields appears in each list.
func Build(root string, rows, flagged []entity.ReviewRow) Audit {
	a := Audit{Root: root, GeneratedAt: time.Now().UTC(), Total: len(rows) + len(flagged), Corrupt: flagged}
	for _, r := range rows {
		if r.BookName == nil {
			a.MissingBook = append(a.MissingBook, r)
		}
		if r.AuthorName == nil {
			a.MissingAuthor = append(a.MissingAuthor, r)
		}
		if r.PageNumber == nil {
			a.MissingPage = append(a.MissingPage, r)
		}
	}
	return a
}

// Clean reports whether nothing is missing or corrupt.
func (a Audit) Clean() bool {
	return len(a.Corrupt)+len(a.MissingBook)+len(a.MissingAuthor)+len(a.MissingPage) == 0
}

// WriteMarkdown renders the audit.
func (a Audit) WriteMarkdown(w io.Writer) error {
	md := markdown.NewMarkdown(w)

	md.H1("Sidecar Audit")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root", "`" + a.Root + "`"},
			{"Generated", a.GeneratedAt.Format(time.RFC3339)},
			{"Sidecars", strconv.Itoa(a.Total)},
			{"Corrupt", strconv.Itoa(len(a.Corrupt))},
			{"Missing book_name", strconv.Itoa(len(a.MissingBook))},
			{"Missing author_name", strconv.Itoa(len(a.MissingAuthor))},
			{"Missing page_number", strconv.Itoa(len(a.MissingPage))},
		},
	})
	md.PlainText("")

	if a.Clean() {
		md.PlainText("No gaps found.")
		return md.Build()
	}

	if len(a.Corrupt) > 0 {
		md.H2("Corrupt sidecars")
		md.PlainText("")
		rows := make([][]string, 0, len(a.Corrupt))
		for _, r := range a.Corrupt {
			rows = append(rows, []string{"`" + r.SidecarPath + "`", r.Error})
		}
		md.Table(markdown.TableSet{Header: []string{"Sidecar", "Error"}, Rows: rows})
		md.PlainText("")
	}
	section(md, "Missing book_name", a.MissingBook)
	section(md, "Missing author_name", a.MissingAuthor)
	section(md, "Missing page_number", a.MissingPage)

	return md.Build()
}

func section(md *markdown.Markdown, title string, rows []entity.ReviewRow) {
	if len(rows) == 0 {
		return
	}
	md.H2(title)
	md.PlainText("")
	body := make([][]string, 0, len(rows))
	for _, r := range rows {
		body = append(body, []string{
			"`" + r.SidecarPath + "`",
			utils.StrOrEmpty(r.BookName),
			utils.IntOrEmpty(r.PageNumber),
			utils.Truncate(r.TextPreview, previewWidth),
		})
	}
	md.Table(markdown.TableSet{Header: []string{"Sidecar", "Book", "Page", "Preview"}, Rows: body})
	md.PlainText("")
}

// WriteFile renders the audit to path atomically.
func (a Audit) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := a.WriteMarkdown(&buf); err != nil {
		return err
	}
	return sidecar.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
