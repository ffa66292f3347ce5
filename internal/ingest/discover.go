package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joseph-ayodele/bookscan/constants"
)

// FileError is a path the walk could not visit.
type FileError struct {
	Path string
	Err  error
}

type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// Match decides whether a regular file is yielded by Discover.
type Match func(path string) bool

// Images matches files with an allowed image extension.
func Images(path string) bool { return constants.IsImagePath(path) }

// Sidecars matches <image>.<ext>.json files. Other JSON (e.g. judge results) is ignored.
func Sidecars(path string) bool { return constants.IsSidecarPath(path) }

// Discover walks root recursively, skipping hidden files and directories, and returns
// matching paths in lexical order. Per-entry walk failures are collected, not fatal;
// only an unreadable root is.
func Discover(ctx context.Context, root string, match Match) ([]string, []FileError, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, DirStats{}, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, DirStats{}, fmt.Errorf("root %s is not a directory", root)
	}

	var (
		paths  []string
		failed []FileError
		stats  DirStats
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			failed = append(failed, FileError{Path: path, Err: walkErr})
			stats.Failed++
			return nil
		}
		if path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !match(path) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, failed, stats, fmt.Errorf("walk: %w", err)
	}
	slices.Sort(paths)
	return paths, failed, stats, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
