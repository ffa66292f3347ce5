package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "watch channel closed early")
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
	return ""
}

func TestWatch_InitialScanThenNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.jpg")
	writeFile(t, existing)
	writeFile(t, filepath.Join(root, "old.jpg.json"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := Watch(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, existing, next(t, events))

	fresh := filepath.Join(root, "new.png")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	assert.Equal(t, fresh, next(t, events))

	// A directory created later is watched, and files already in it are emitted.
	dir := filepath.Join(root, "Book_Author")
	require.NoError(t, os.Mkdir(dir, 0o755))
	inDir := filepath.Join(dir, "p1.jpg")
	require.NoError(t, os.WriteFile(inDir, []byte("x"), 0o644))
	assert.Equal(t, inDir, next(t, events))

	cancel()
	for range events {
	}
}

func TestWatch_NoRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
