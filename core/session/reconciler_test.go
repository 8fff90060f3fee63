package session

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/curio/core/catalog"
	"github.com/adalundhe/curio/core/procmon"
)

type fakeMonitor struct {
	fakeProber
	procs []procmon.ProcessInfo
}

func (f *fakeMonitor) List(ctx context.Context) ([]procmon.ProcessInfo, error) {
	return f.procs, nil
}

func (f *fakeMonitor) Subscribe(ctx context.Context) (<-chan procmon.ProcessInfo, error) {
	ch := make(chan procmon.ProcessInfo)
	close(ch)
	return ch, nil
}

type fakeLookup struct {
	byPath map[string]*catalog.Resource
}

func (f *fakeLookup) GetByPath(path string) (*catalog.Resource, error) {
	if r, ok := f.byPath[path]; ok {
		return r, nil
	}
	return nil, catalog.ErrNotFound
}

func TestReconcilerSeedsOnlyCatalogedProcesses(t *testing.T) {
	monitor := &fakeMonitor{procs: []procmon.ProcessInfo{
		{PID: 100, Path: `C:\apps\game.exe`},
		{PID: 200, Path: `C:\apps\unknown.exe`},
		{PID: 300, Path: `C:\Windows\System32\svchost.exe`},
	}}
	monitor.alive = map[int]bool{100: true, 200: true, 300: true}

	lookup := &fakeLookup{byPath: map[string]*catalog.Resource{
		`C:\apps\game.exe`: {ID: "r1", Path: `C:\apps\game.exe`},
	}}

	stats := newFakeStats()
	tracker := NewTracker(stats, monitor, nil, slog.Default())
	t.Cleanup(tracker.Stop)

	rec := NewReconciler(lookup, monitor, procmon.NewFilter(""), tracker, slog.Default())
	seeded, err := rec.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, seeded)
	assert.True(t, tracker.IsRunning("r1"))

	// Pre-existing processes were not launched on the engine's watch, so
	// their discovery is not an open.
	assert.Equal(t, 0, stats.openCount("r1"))
}

func TestReconcilerSkipsAlreadyTrackedResources(t *testing.T) {
	monitor := &fakeMonitor{procs: []procmon.ProcessInfo{
		{PID: 100, Path: `C:\apps\game.exe`},
	}}
	monitor.alive = map[int]bool{100: true}

	res := &catalog.Resource{ID: "r1", Path: `C:\apps\game.exe`}
	lookup := &fakeLookup{byPath: map[string]*catalog.Resource{res.Path: res}}

	stats := newFakeStats()
	tracker := NewTracker(stats, monitor, nil, slog.Default())
	t.Cleanup(tracker.Stop)
	tracker.OnProcessStart(100, res)

	rec := NewReconciler(lookup, monitor, procmon.NewFilter(""), tracker, slog.Default())
	seeded, err := rec.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, seeded)
	assert.Len(t, tracker.Running(), 1)
}
