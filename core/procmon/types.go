// Package procmon surfaces OS process state to the discovery engine:
// one-shot enumeration, a creation-event subscription, liveness probes and
// forced termination. The engine consumes the Monitor interface; production
// binds it to platform helpers, tests inject fakes.
package procmon

import (
	"context"
	"errors"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrSubscribeFailed indicates the creation-event helper could not be
	// started.
	ErrSubscribeFailed = errors.New("process creation subscription failed")

	// ErrEnumerateFailed indicates the one-shot enumeration helper failed
	// or timed out.
	ErrEnumerateFailed = errors.New("process enumeration failed")
)

// =============================================================================
// Monitor
// =============================================================================

// ProcessInfo describes one observed process.
type ProcessInfo struct {
	// PID is the OS process id. Zero for events recovered through the
	// bare-path protocol fallback; such events are ingest-only and never
	// session-tracked.
	PID int

	// Path is the executable path.
	Path string

	// Parent is the bare executable name of the parent process, when the
	// event source reports it. Empty otherwise.
	Parent string
}

// Monitor is the process collaborator contract.
type Monitor interface {
	// List enumerates currently running processes that expose an
	// executable path. Bounded; a timeout is the scan's failure.
	List(ctx context.Context) ([]ProcessInfo, error)

	// Subscribe starts the creation-event stream. The returned channel
	// closes when the subscription dies; the engine treats that as a
	// degraded-mode condition, not a crash, and does not resubscribe.
	Subscribe(ctx context.Context) (<-chan ProcessInfo, error)

	// Alive probes pid liveness. Indeterminate probes (permission denied)
	// report true: prematurely crediting a stop is worse than keeping a
	// dead session one sweep longer.
	Alive(pid int) bool

	// Kill requests OS-level forced termination. State reconciliation is
	// left to the next liveness sweep.
	Kill(pid int) error
}

// NewPlatformMonitor returns the production monitor for this platform.
func NewPlatformMonitor() Monitor {
	return newPlatformMonitor()
}
