package ingest

import (
	"path/filepath"
	"strings"
)

// FolderFacts is what the directory naming convention says about a page.
// Both fields are nil unless the convention matched.
type FolderFacts struct {
	BookName   *string
	AuthorName *string
}

// ParseFolder reads book and author from the image's immediate parent directory,
// named <book>_<author> or <book>__<author>. It never guesses: images directly
// under root, or in a folder without a separator, get no metadata.
//
// A double underscore splits at its first occurrence, so book titles may contain
// single underscores. Otherwise the split is at the last single underscore.
// Remaining underscores inside each part become spaces.
func ParseFolder(root, imagePath string) FolderFacts {
	parent := filepath.Dir(filepath.Clean(imagePath))
	if root != "" && samePath(parent, root) {
		return FolderFacts{}
	}
	return ParseFolderName(filepath.Base(parent))
}

// ParseFolderName applies the naming convention to a single directory name.
func ParseFolderName(name string) FolderFacts {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return FolderFacts{}
	}

	var book, author string
	if i := strings.Index(name, "__"); i >= 0 {
		book, author = name[:i], name[i+2:]
	} else if i := strings.LastIndex(name, "_"); i >= 0 {
		book, author = name[:i], name[i+1:]
	} else {
		return FolderFacts{}
	}

	book, author = normalizePart(book), normalizePart(author)
	if book == "" || author == "" {
		return FolderFacts{}
	}
	return FolderFacts{BookName: &book, AuthorName: &author}
}

func normalizePart(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func samePath(a, b string) bool {
	aa, errA := filepath.Abs(a)
	bb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}
