package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "loose.JPG"))
	writeFile(t, filepath.Join(root, "MyBook_JaneDoe", "b.png"))
	writeFile(t, filepath.Join(root, "MyBook_JaneDoe", "a.webp"))
	writeFile(t, filepath.Join(root, "MyBook_JaneDoe", "a.webp.json"))
	writeFile(t, filepath.Join(root, "MyBook_JaneDoe", "notes.txt"))
	writeFile(t, filepath.Join(root, ".cache", "hidden.jpg"))
	writeFile(t, filepath.Join(root, ".hidden.jpg"))
	writeFile(t, filepath.Join(root, "judge_results.json"))

	images, failed, stats, err := Discover(context.Background(), root, Images)
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Equal(t, []string{
		filepath.Join(root, "MyBook_JaneDoe", "a.webp"),
		filepath.Join(root, "MyBook_JaneDoe", "b.png"),
		filepath.Join(root, "loose.JPG"),
	}, images)
	assert.Equal(t, uint32(3), stats.Matched)

	sidecars, _, _, err := Discover(context.Background(), root, Sidecars)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "MyBook_JaneDoe", "a.webp.json")}, sidecars)
}

func TestDiscover_MissingRoot(t *testing.T) {
	t.Parallel()

	_, _, _, err := Discover(context.Background(), filepath.Join(t.TempDir(), "nope"), Images)
	assert.Error(t, err)

	_, _, _, err = Discover(context.Background(), "  ", Images)
	assert.Error(t, err)
}
