package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/joseph-ayodele/bookscan/internal/entity"
	"github.com/joseph-ayodele/bookscan/internal/sidecar"
)

// WriteCSV writes a header row followed by one line per review row.
func WriteCSV(rows []entity.ReviewRow, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(cells(r)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	return sidecar.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
