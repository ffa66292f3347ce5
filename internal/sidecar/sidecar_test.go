package sidecar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bookscan/constants"
	"github.com/joseph-ayodele/bookscan/internal/entity"
)

func TestWriteRead_AllKeysPresent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := filepath.Join(dir, "IMG_0001.jpg")
	page := 12
	rec := entity.PageRecord{
		BookName:      entity.StrPtr("MyBook"),
		PageNumber:    &page,
		Text:          "First paragraph.\n\nSecond <para> & more.",
		LifeStageFlag: constants.LifeStageChildhood,
		SourceFile:    "IMG_0001.jpg",
		Reference:     img,
	}

	path, err := Write(img, rec)
	require.NoError(t, err)
	assert.Equal(t, img+".json", path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"book_name"`, `"author_name": null`, `"page_number": 12`, `"text"`, `"life_stage_flag"`, `"source_file"`, `"reference"`} {
		assert.Contains(t, string(raw), key)
	}
	assert.Contains(t, string(raw), "<para> & more", "HTML must not be escaped")

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, path, got.SidecarPath)
	got.SidecarPath = ""
	assert.Equal(t, rec, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files may be left behind")
}

func TestExists(t *testing.T) {
	t.Parallel()

	img := filepath.Join(t.TempDir(), "a.png")
	ok, err := Exists(img)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(PathFor(img), []byte("{}"), 0o644))
	ok, err = Exists(img)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRead_Invalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := map[string]string{
		"truncated":         `{"text": "abc`,
		"wrong type":        `{"page_number": "twelve", "text": ""}`,
		"unknown lifestage": `{"text": "", "life_stage_flag": "teen"}`,
	}
	for name, body := range tests {
		path := filepath.Join(dir, name+".jpg.json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := Read(path)
		assert.Error(t, err, name)
	}
}

func TestRead_FillsProvenanceFromPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "IMG_9.jpeg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"text": "hi", "page_number": null}`), 0o644))

	rec, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "IMG_9.jpeg", rec.SourceFile)
	assert.Nil(t, rec.PageNumber)
	assert.Nil(t, rec.BookName)
}

func TestClaim_Exclusive(t *testing.T) {
	t.Parallel()

	img := filepath.Join(t.TempDir(), "a.jpg")
	first, err := Acquire(img)
	require.NoError(t, err)

	_, err = Acquire(img)
	assert.ErrorIs(t, err, ErrClaimed)

	require.NoError(t, first.Release())
	_, statErr := os.Stat(PathFor(img) + constants.LockSuffix)
	assert.True(t, os.IsNotExist(statErr), "lock file removed on release")

	again, err := Acquire(img)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}
