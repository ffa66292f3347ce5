package constants

import (
	"path/filepath"
	"strings"
)

// SidecarSuffix is appended to the full image file name: IMG_001.jpg -> IMG_001.jpg.json.
const SidecarSuffix = ".json"

// LockSuffix marks the advisory claim file next to a sidecar being produced.
const LockSuffix = ".lock"

// AllowedExtensions holds the image extensions picked up by discovery.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImagePath reports whether path has one of the AllowedExtensions.
func IsImagePath(path string) bool {
	_, ok := AllowedExtensions[NormalizeExt(filepath.Ext(path))]
	return ok
}

// SidecarPath returns the sidecar location for an image.
func SidecarPath(imagePath string) string {
	return imagePath + SidecarSuffix
}

// IsSidecarPath reports whether path looks like <image>.<ext>.json.
func IsSidecarPath(path string) bool {
	if !strings.HasSuffix(strings.ToLower(path), SidecarSuffix) {
		return false
	}
	return IsImagePath(path[:len(path)-len(SidecarSuffix)])
}

// ImagePathFromSidecar strips the sidecar suffix.
func ImagePathFromSidecar(sidecar string) string {
	return strings.TrimSuffix(sidecar, SidecarSuffix)
}
