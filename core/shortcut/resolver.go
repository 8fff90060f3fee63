// Package shortcut resolves platform shortcut files to their target path and
// display name. Resolution is an OS capability; the engine consumes it
// through the Resolver interface so tests can inject fakes.
package shortcut

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNotShortcut indicates the path is not a shortcut file.
	ErrNotShortcut = errors.New("not a shortcut file")

	// ErrResolveFailed indicates the platform resolver could not read the
	// shortcut (missing file, malformed link, helper failure).
	ErrResolveFailed = errors.New("shortcut resolution failed")

	// ErrUnsupported indicates shortcut resolution is not available on this
	// platform.
	ErrUnsupported = errors.New("shortcut resolution unsupported on this platform")
)

// =============================================================================
// Resolver
// =============================================================================

// Shortcut is a resolved shortcut: the target it points at and the
// user-facing name of the shortcut file itself.
type Shortcut struct {
	// TargetPath is the resolved target, the canonical path for dedup.
	TargetPath string

	// DisplayName is the shortcut's own name without extension, e.g.
	// "Google Chrome" for "Google Chrome.lnk". Often a user-meaningful
	// alias for the raw executable name.
	DisplayName string
}

// Resolver resolves a shortcut file to its target.
type Resolver interface {
	Resolve(ctx context.Context, path string) (Shortcut, error)
}

// IsShortcut reports whether the path names a Windows shortcut file.
func IsShortcut(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lnk")
}

// DisplayNameOf derives the display name a shortcut contributes: its bare
// filename without the .lnk extension.
func DisplayNameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NewPlatformResolver returns the production resolver for this platform.
func NewPlatformResolver() Resolver {
	return newPlatformResolver()
}
