// Package classify maps candidate filesystem paths to catalog categories.
// Classification is pure: a fixed extension table decides the category, and
// path-prefix and extension blocklists reject system noise before the table
// is consulted.
package classify

import (
	"path/filepath"
	"strings"
)

// =============================================================================
// Categories
// =============================================================================

// Category is the catalog entry type derived from a path's extension.
type Category string

const (
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
	CategoryComic Category = "comic"
	CategoryMusic Category = "music"
	CategoryNovel Category = "novel"
	CategoryApp   Category = "app"
	CategoryGame  Category = "game"
)

// =============================================================================
// Tables
// =============================================================================

// extCategories maps lowercased extensions to categories. Extensions absent
// from this table are unmapped and the candidate is discarded.
var extCategories = map[string]Category{
	// Images
	".jpg": CategoryImage, ".jpeg": CategoryImage, ".png": CategoryImage,
	".gif": CategoryImage, ".webp": CategoryImage, ".bmp": CategoryImage,
	".tiff": CategoryImage, ".avif": CategoryImage,
	// Video
	".mp4": CategoryVideo, ".mkv": CategoryVideo, ".avi": CategoryVideo,
	".mov": CategoryVideo, ".wmv": CategoryVideo, ".flv": CategoryVideo,
	".webm": CategoryVideo, ".m4v": CategoryVideo,
	// Comic archives
	".cbz": CategoryComic, ".cbr": CategoryComic, ".cb7": CategoryComic,
	// Audio
	".mp3": CategoryMusic, ".flac": CategoryMusic, ".wav": CategoryMusic,
	".m4a": CategoryMusic, ".ogg": CategoryMusic, ".aac": CategoryMusic,
	// E-books and documents
	".epub": CategoryNovel, ".mobi": CategoryNovel, ".azw3": CategoryNovel,
	".txt": CategoryNovel, ".pdf": CategoryNovel,
	// Executables (games are distinguished later, see ingest)
	".exe": CategoryApp,
}

// blockedPathPrefixes rejects anything under known OS/system directories,
// regardless of extension.
var blockedPathPrefixes = []string{
	`C:\Windows\`,
	`C:\Program Files\WindowsApps\`,
	`C:\ProgramData\Microsoft\`,
}

// blockedExts rejects known non-resource extensions even when a path looks
// superficially resource-like (shortcut files themselves included).
var blockedExts = map[string]struct{}{
	".dll": {}, ".sys": {}, ".tmp": {}, ".lnk": {},
	".ini": {}, ".dat": {}, ".log": {}, ".xml": {},
}

// =============================================================================
// Classification
// =============================================================================

// Classify returns the category for a path, or false when the path is under
// a blocked prefix, carries a blocked extension, or has no mapped extension.
func Classify(path string) (Category, bool) {
	if path == "" || PathBlocked(path) {
		return "", false
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ExtBlocked(ext) {
		return "", false
	}

	cat, ok := extCategories[ext]
	return cat, ok
}

// PathBlocked reports whether the path begins with a blocked system prefix.
// Matching is case-insensitive, as Windows paths are.
func PathBlocked(path string) bool {
	lower := strings.ToLower(path)
	for _, prefix := range blockedPathPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// ExtBlocked reports whether a (lowercased or not) extension is on the
// non-resource blocklist.
func ExtBlocked(ext string) bool {
	_, blocked := blockedExts[strings.ToLower(ext)]
	return blocked
}
