// Package catalog persists discovered resources in an embedded SQLite store
// with FTS5 full-text search. The store owns the canonical-path uniqueness
// constraint that makes concurrent discovery idempotent: at most one row per
// canonical path, regardless of how many watchers observe it.
package catalog

import "time"

// =============================================================================
// Models
// =============================================================================

// Resource is a canonical catalog entry. Path is the resolved target path
// (never a shortcut path) and is unique across the catalog.
type Resource struct {
	ID        string `json:"id" parquet:"id"`
	Type      string `json:"type" parquet:"type"`
	Title     string `json:"title" parquet:"title"`
	Path      string `json:"file_path" parquet:"file_path"`
	CoverPath string `json:"cover_path,omitempty" parquet:"cover_path"`
	Rating    int    `json:"rating" parquet:"rating"`
	Note      string `json:"note,omitempty" parquet:"note"`
	Meta      string `json:"meta,omitempty" parquet:"meta"`
	Pinned    bool   `json:"pinned" parquet:"pinned"`

	// Cumulative run statistics, owned by the session tracker.
	OpenCount    int64 `json:"open_count" parquet:"open_count"`
	TotalRunTime int64 `json:"total_run_time" parquet:"total_run_time"` // seconds
	LastRunAt    int64 `json:"last_run_at,omitempty" parquet:"last_run_at"`

	AddedAt   int64 `json:"added_at" parquet:"added_at"`
	UpdatedAt int64 `json:"updated_at" parquet:"updated_at"`

	Tags []Tag `json:"tags,omitempty" parquet:"-"`
}

// Tag is a user- or system-assigned label, unique by name.
type Tag struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
}

// Tag association sources.
const (
	TagSourceManual = "manual"
	TagSourceAuto   = "auto"
)

// nowMillis returns the current time as unix milliseconds, the timestamp
// representation used throughout the catalog schema.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
