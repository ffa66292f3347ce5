// Package sidecar owns the on-disk page record next to each image.
package sidecar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/joseph-ayodele/bookscan/constants"
	"github.com/joseph-ayodele/bookscan/internal/entity"
)

// ErrClaimed is returned by Claim when another worker holds the lock.
var ErrClaimed = errors.New("sidecar claimed by another worker")

// PathFor returns <image file name>.json in the image's directory.
func PathFor(imagePath string) string {
	return constants.SidecarPath(imagePath)
}

// Exists reports whether the image already has a sidecar.
func Exists(imagePath string) (bool, error) {
	_, err := os.Stat(PathFor(imagePath))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Encode renders a record as pretty-printed UTF-8 JSON with a trailing newline.
func Encode(rec entity.PageRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores rec as the sidecar of imagePath. The file appears complete or not at all.
func Write(imagePath string, rec entity.PageRecord) (string, error) {
	data, err := Encode(rec)
	if err != nil {
		return "", fmt.Errorf("encode sidecar: %w", err)
	}
	dst := PathFor(imagePath)
	if err := WriteFileAtomic(dst, data, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// WriteFileAtomic writes to a temp file in the destination directory, syncs it,
// then renames it over dst.
func WriteFileAtomic(dst string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Read parses a sidecar file. Missing keys decode as null; wrong types and invalid
// enum values are errors.
func Read(path string) (entity.PageRecord, error) {
	var rec entity.PageRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode: %w", err)
	}
	if rec.SourceFile == "" {
		rec.SourceFile = filepath.Base(constants.ImagePathFromSidecar(path))
	}
	if rec.Reference == "" {
		rec.Reference = constants.ImagePathFromSidecar(path)
	}
	rec.SidecarPath = path
	if err := rec.Validate(); err != nil {
		return rec, fmt.Errorf("validate: %w", err)
	}
	return rec, nil
}

// Claim is an advisory, cross-process lock on one image's sidecar slot.
type Claim struct {
	lock *flock.Flock
}

// Acquire takes the claim without blocking. It returns ErrClaimed if another
// process or goroutine already holds it.
func Acquire(imagePath string) (*Claim, error) {
	lk := flock.New(PathFor(imagePath) + constants.LockSuffix)
	ok, err := lk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lk.Path(), err)
	}
	if !ok {
		return nil, ErrClaimed
	}
	return &Claim{lock: lk}, nil
}

// Release drops the lock and removes the lock file.
func (c *Claim) Release() error {
	if c == nil || c.lock == nil {
		return nil
	}
	path := c.lock.Path()
	// Removed before unlocking; a new holder re-checks the sidecar after acquiring.
	rmErr := os.Remove(path)
	if err := c.lock.Unlock(); err != nil {
		return err
	}
	if rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		return rmErr
	}
	return nil
}
