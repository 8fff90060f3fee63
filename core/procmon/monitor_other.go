//go:build !windows

package procmon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// pollInterval drives the polling fallback used where no process-start
// trace is available.
const pollInterval = 2 * time.Second

// procMonitor is the polling fallback: it diffs /proc snapshots to surface
// creation events. Windows semantics are authoritative; this keeps the
// engine operational elsewhere.
type procMonitor struct{}

func newPlatformMonitor() Monitor {
	return &procMonitor{}
}

func (m *procMonitor) List(_ context.Context) ([]ProcessInfo, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumerateFailed, err)
	}

	var infos []ProcessInfo
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		exe, err := os.Readlink(filepath.Join("/proc", entry.Name(), "exe"))
		if err != nil || exe == "" {
			continue
		}
		infos = append(infos, ProcessInfo{PID: pid, Path: exe})
	}
	return infos, nil
}

func (m *procMonitor) Subscribe(ctx context.Context) (<-chan ProcessInfo, error) {
	seed, err := m.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscribeFailed, err)
	}

	known := make(map[int]struct{}, len(seed))
	for _, info := range seed {
		known[info.PID] = struct{}{}
	}

	events := make(chan ProcessInfo, 64)
	go func() {
		defer close(events)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := m.List(ctx)
			if err != nil {
				return
			}

			next, ok := diffAndPublish(ctx, events, known, current)
			if !ok {
				return
			}
			known = next
		}
	}()
	return events, nil
}

// diffAndPublish sends every process absent from known, blocking until the
// consumer accepts each one so a burst of creations is not silently
// dropped. Returns false when the context ended mid-delivery.
func diffAndPublish(ctx context.Context, events chan<- ProcessInfo, known map[int]struct{}, current []ProcessInfo) (map[int]struct{}, bool) {
	next := make(map[int]struct{}, len(current))
	for _, info := range current {
		next[info.PID] = struct{}{}
		if _, seen := known[info.PID]; !seen {
			select {
			case events <- info:
			case <-ctx.Done():
				return next, false
			}
		}
	}
	return next, true
}

func (m *procMonitor) Alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but is not ours: alive.
	return err == syscall.EPERM
}

func (m *procMonitor) Kill(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}
