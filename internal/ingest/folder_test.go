package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFolderName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		folder     string
		wantBook   string
		wantAuthor string
		wantNil    bool
	}{
		{name: "simple convention", folder: "MyBook_JaneDoe", wantBook: "MyBook", wantAuthor: "JaneDoe"},
		{name: "last single underscore splits", folder: "The_Body_Keeps_Score_Bessel", wantBook: "The Body Keeps Score", wantAuthor: "Bessel"},
		{name: "multi-word author needs double underscore", folder: "It's_just_your_imagination_revital_shiri_horowitz", wantBook: "It's just your imagination revital shiri", wantAuthor: "horowitz"},
		{name: "double underscore splits first", folder: "It's_just_your_imagination__Revital_Shiri_Horowitz", wantBook: "It's just your imagination", wantAuthor: "Revital Shiri Horowitz"},
		{name: "hyphen kept", folder: "Self-Help_Jean-Luc", wantBook: "Self-Help", wantAuthor: "Jean-Luc"},
		{name: "whitespace collapsed", folder: "  My   Book _ Jane  ", wantBook: "My Book", wantAuthor: "Jane"},
		{name: "no separator", folder: "scans", wantNil: true},
		{name: "empty author", folder: "MyBook_", wantNil: true},
		{name: "empty book", folder: "_JaneDoe", wantNil: true},
		{name: "only underscores", folder: "___", wantNil: true},
		{name: "empty", folder: "", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseFolderName(tt.folder)
			if tt.wantNil {
				assert.Nil(t, got.BookName)
				assert.Nil(t, got.AuthorName)
				return
			}
			if assert.NotNil(t, got.BookName) && assert.NotNil(t, got.AuthorName) {
				assert.Equal(t, tt.wantBook, *got.BookName)
				assert.Equal(t, tt.wantAuthor, *got.AuthorName)
			}
		})
	}
}

func TestParseFolder_ImageAtRootHasNoMetadata(t *testing.T) {
	t.Parallel()

	root := filepath.Join("data", "Book_Author")
	got := ParseFolder(root, filepath.Join(root, "loose.jpg"))
	assert.Nil(t, got.BookName, "root folder name must not be read as a book")
	assert.Nil(t, got.AuthorName)

	got = ParseFolder(root, filepath.Join(root, "MyBook_JaneDoe", "IMG_1.jpg"))
	if assert.NotNil(t, got.BookName) {
		assert.Equal(t, "MyBook", *got.BookName)
		assert.Equal(t, "JaneDoe", *got.AuthorName)
	}
}

func TestParseFolder_UsesImmediateParentOnly(t *testing.T) {
	t.Parallel()

	got := ParseFolder("root", filepath.Join("root", "Outer_Shelf", "photos", "IMG_2.jpg"))
	assert.Nil(t, got.BookName)
	assert.Nil(t, got.AuthorName)
}
