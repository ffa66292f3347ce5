package judge

import (
	"math/rand/v2"
	"slices"

	"github.com/joseph-ayodele/bookscan/internal/entity"
)

// Sample picks up to n records. Seed 0 takes the first n in the given order; any
// other seed draws a reproducible random subset, returned in the given order.
func Sample(records []entity.PageRecord, n int, seed uint64) []entity.PageRecord {
	if n <= 0 {
		return nil
	}
	if n >= len(records) {
		return slices.Clone(records)
	}
	if seed == 0 {
		return slices.Clone(records[:n])
	}

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	idx := r.Perm(len(records))[:n]
	slices.Sort(idx)

	out := make([]entity.PageRecord, 0, n)
	for _, i := range idx {
		out = append(out, records[i])
	}
	return out
}

// SelectFiles keeps the records whose source_file is listed, in the given record order.
// Names that match nothing are returned as missing.
func SelectFiles(records []entity.PageRecord, files []string) (selected []entity.PageRecord, missing []string) {
	want := make(map[string]bool, len(files))
	for _, f := range files {
		want[f] = false
	}
	for _, rec := range records {
		if _, ok := want[rec.SourceFile]; ok {
			selected = append(selected, rec)
			want[rec.SourceFile] = true
		}
	}
	for _, f := range files {
		if !want[f] && !slices.Contains(missing, f) {
			missing = append(missing, f)
		}
	}
	return selected, missing
}
