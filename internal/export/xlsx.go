package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/bookscan/internal/entity"
	"github.com/joseph-ayodele/bookscan/internal/sidecar"
)

const sheetName = "Review"

// WriteXLSX writes the review table as a single-sheet workbook. Page numbers and
// lengths are numeric cells; null stays blank.
func WriteXLSX(rows []entity.ReviewRow, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) error {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			return f.SetCellValue(sheetName, cell, v)
		}
		vals := []any{
			r.SourceFile,
			nullable(r.BookName),
			nullable(r.AuthorName),
			nullable(r.PageNumber),
			r.TextLength,
			r.TextPreview,
			string(r.LifeStageFlag),
		}
		for col, v := range vals {
			if v == nil {
				continue
			}
			if err := write(col+1, v); err != nil {
				return err
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 24) // source file
	_ = f.SetColWidth(sheetName, "B", "C", 28) // book, author
	_ = f.SetColWidth(sheetName, "D", "E", 12)
	_ = f.SetColWidth(sheetName, "F", "F", 80) // preview
	_ = f.SetColWidth(sheetName, "G", "G", 16)
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return sidecar.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
