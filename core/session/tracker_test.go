package session

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/curio/core/catalog"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeStats struct {
	mu    sync.Mutex
	opens []string
	stops map[string]int64
	fail  bool
}

func newFakeStats() *fakeStats {
	return &fakeStats{stops: make(map[string]int64)}
}

func (f *fakeStats) RecordOpen(id string) (*catalog.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, assert.AnError
	}
	f.opens = append(f.opens, id)
	return &catalog.Resource{ID: id}, nil
}

func (f *fakeStats) RecordStop(id string, elapsed int64) (*catalog.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, assert.AnError
	}
	f.stops[id] = elapsed
	return &catalog.Resource{ID: id}, nil
}

func (f *fakeStats) openCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.opens {
		if o == id {
			n++
		}
	}
	return n
}

func (f *fakeStats) stopElapsed(id string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.stops[id]
	return e, ok
}

type fakeProber struct {
	mu     sync.Mutex
	alive  map[int]bool
	killed []int
}

func newFakeProber() *fakeProber {
	return &fakeProber{alive: make(map[int]bool)}
}

func (f *fakeProber) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func (f *fakeProber) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, pid)
	f.alive[pid] = false
	return nil
}

func (f *fakeProber) setAlive(pid int, alive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[pid] = alive
}

func newTestTracker(t *testing.T) (*Tracker, *fakeStats, *fakeProber) {
	t.Helper()
	stats := newFakeStats()
	probe := newFakeProber()
	tr := NewTracker(stats, probe, nil, slog.Default())
	t.Cleanup(tr.Stop)
	return tr, stats, probe
}

// =============================================================================
// Tracker
// =============================================================================

func TestProcessStartRecordsOpenAndTracks(t *testing.T) {
	tr, stats, probe := newTestTracker(t)
	probe.setAlive(100, true)

	res := &catalog.Resource{ID: "r1", Path: `C:\apps\game.exe`}
	tr.OnProcessStart(100, res)

	assert.True(t, tr.IsRunning("r1"))
	assert.Equal(t, 1, stats.openCount("r1"))

	running := tr.Running()
	require.Len(t, running, 1)
	assert.Equal(t, 100, running[0].PID)
	assert.Equal(t, "r1", running[0].ResourceID)
}

func TestSecondProcessOfSameResourceIgnored(t *testing.T) {
	tr, stats, probe := newTestTracker(t)
	probe.setAlive(100, true)
	probe.setAlive(200, true)

	res := &catalog.Resource{ID: "r1", Path: `C:\apps\game.exe`}
	tr.OnProcessStart(100, res)
	tr.OnProcessStart(200, res)

	assert.Equal(t, 1, stats.openCount("r1"))
	assert.Len(t, tr.Running(), 1)
}

func TestSweepClosesDeadSessionWithFlooredElapsed(t *testing.T) {
	tr, stats, probe := newTestTracker(t)

	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	current := start
	var mu sync.Mutex
	tr.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	tr.interval = time.Hour // sweeps driven manually

	probe.setAlive(100, true)
	tr.OnProcessStart(100, &catalog.Resource{ID: "r1", Path: `C:\apps\game.exe`})

	// 90.9 seconds later the process dies; elapsed floors to 90.
	mu.Lock()
	current = start.Add(90*time.Second + 900*time.Millisecond)
	mu.Unlock()
	probe.setAlive(100, false)

	tr.sweepOnce()

	assert.False(t, tr.IsRunning("r1"))
	elapsed, ok := stats.stopElapsed("r1")
	require.True(t, ok)
	assert.Equal(t, int64(90), elapsed)
}

func TestSweepKeepsLiveSessions(t *testing.T) {
	tr, stats, probe := newTestTracker(t)
	tr.interval = time.Hour

	probe.setAlive(100, true)
	tr.OnProcessStart(100, &catalog.Resource{ID: "r1", Path: `C:\apps\game.exe`})

	tr.sweepOnce()

	assert.True(t, tr.IsRunning("r1"))
	_, stopped := stats.stopElapsed("r1")
	assert.False(t, stopped)
}

func TestResourceCanRestartAfterSessionCloses(t *testing.T) {
	tr, stats, probe := newTestTracker(t)
	tr.interval = time.Hour

	res := &catalog.Resource{ID: "r1", Path: `C:\apps\game.exe`}
	probe.setAlive(100, true)
	tr.OnProcessStart(100, res)

	probe.setAlive(100, false)
	tr.sweepOnce()
	require.False(t, tr.IsRunning("r1"))

	probe.setAlive(300, true)
	tr.OnProcessStart(300, res)

	assert.True(t, tr.IsRunning("r1"))
	assert.Equal(t, 2, stats.openCount("r1"))
}

func TestSeedDoesNotRecordOpen(t *testing.T) {
	tr, stats, probe := newTestTracker(t)
	probe.setAlive(100, true)

	tr.Seed(100, &catalog.Resource{ID: "r1", Path: `C:\apps\game.exe`})

	assert.True(t, tr.IsRunning("r1"))
	assert.Equal(t, 0, stats.openCount("r1"))
}

func TestKillTerminatesTrackedProcess(t *testing.T) {
	tr, _, probe := newTestTracker(t)
	tr.interval = time.Hour
	probe.setAlive(100, true)

	tr.OnProcessStart(100, &catalog.Resource{ID: "r1", Path: `C:\apps\game.exe`})
	tr.Kill("r1")

	probe.mu.Lock()
	killed := append([]int(nil), probe.killed...)
	probe.mu.Unlock()
	require.Equal(t, []int{100}, killed)

	// The kill itself does not close the session; the sweep does.
	assert.True(t, tr.IsRunning("r1"))
	tr.sweepOnce()
	assert.False(t, tr.IsRunning("r1"))
}

func TestKillUnknownResourceIsNoop(t *testing.T) {
	tr, _, probe := newTestTracker(t)

	tr.Kill("nope")

	probe.mu.Lock()
	defer probe.mu.Unlock()
	assert.Empty(t, probe.killed)
}

func TestStopFailureDoesNotResurrectSession(t *testing.T) {
	tr, stats, probe := newTestTracker(t)
	tr.interval = time.Hour

	probe.setAlive(100, true)
	tr.OnProcessStart(100, &catalog.Resource{ID: "r1", Path: `C:\apps\game.exe`})

	stats.mu.Lock()
	stats.fail = true
	stats.mu.Unlock()
	probe.setAlive(100, false)

	tr.sweepOnce()

	assert.False(t, tr.IsRunning("r1"))
}

func TestInvalidStartArgumentsIgnored(t *testing.T) {
	tr, stats, _ := newTestTracker(t)

	tr.OnProcessStart(0, &catalog.Resource{ID: "r1"})
	tr.OnProcessStart(100, nil)

	assert.Empty(t, tr.Running())
	assert.Equal(t, 0, stats.openCount("r1"))
}
