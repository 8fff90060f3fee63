package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/curio/core/catalog"
	"github.com/adalundhe/curio/core/config"
	"github.com/adalundhe/curio/core/ingest"
	"github.com/adalundhe/curio/core/procmon"
	"github.com/adalundhe/curio/core/scan"
	"github.com/adalundhe/curio/core/session"
)

type fakeMonitor struct {
	mu           sync.Mutex
	alive        map[int]bool
	procs        []procmon.ProcessInfo
	subscribeErr error
}

func (f *fakeMonitor) List(ctx context.Context) ([]procmon.ProcessInfo, error) {
	return f.procs, nil
}

func (f *fakeMonitor) Subscribe(ctx context.Context) (<-chan procmon.ProcessInfo, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	ch := make(chan procmon.ProcessInfo)
	close(ch)
	return ch, nil
}

func (f *fakeMonitor) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func (f *fakeMonitor) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[pid] = false
	return nil
}

func testEngine(t *testing.T) (*Engine, *fakeMonitor) {
	t.Helper()

	store, err := catalog.Open(catalog.StoreConfig{
		Path: filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.Default()
	monitor := &fakeMonitor{alive: map[int]bool{}}
	pipeline := ingest.NewPipeline(store, nil, nil, logger)
	tracker := session.NewTracker(store, monitor, nil, logger)
	t.Cleanup(tracker.Stop)

	cfg := config.DefaultConfig()
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pipeline: pipeline,
		monitor:  monitor,
		filter:   procmon.NewFilter(""),
		tracker:  tracker,
		scanner:  scan.New(pipeline, logger),
	}, monitor
}

func TestProcessEventIngestsAndTracks(t *testing.T) {
	e, monitor := testEngine(t)
	monitor.mu.Lock()
	monitor.alive[100] = true
	monitor.mu.Unlock()

	e.handleProcessEvent(context.Background(), procmon.ProcessInfo{
		PID:  100,
		Path: `C:\games\rogue.exe`,
	})

	resource, err := e.store.GetByPath(`C:\games\rogue.exe`)
	require.NoError(t, err)
	assert.Equal(t, "app", resource.Type)
	assert.True(t, e.tracker.IsRunning(resource.ID))
}

func TestProcessEventDropsFilteredProcesses(t *testing.T) {
	e, _ := testEngine(t)

	e.handleProcessEvent(context.Background(), procmon.ProcessInfo{
		PID:  100,
		Path: `C:\Windows\System32\svchost.exe`,
	})

	_, err := e.store.GetByPath(`C:\Windows\System32\svchost.exe`)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPauseSuppressesIngestButNotTracking(t *testing.T) {
	e, monitor := testEngine(t)
	monitor.mu.Lock()
	monitor.alive[100] = true
	monitor.mu.Unlock()

	// Already cataloged before the pause.
	existing, err := e.store.Upsert(catalog.UpsertParams{
		Type: "app", Title: "rogue.exe", Path: `C:\games\rogue.exe`,
	}, catalog.PolicySkip)
	require.NoError(t, err)

	e.Pause()

	e.handleProcessEvent(context.Background(), procmon.ProcessInfo{
		PID:  100,
		Path: `C:\games\rogue.exe`,
	})
	e.handleProcessEvent(context.Background(), procmon.ProcessInfo{
		PID:  200,
		Path: `C:\games\new.exe`,
	})

	// The known resource still gets a session; the new one is not ingested.
	assert.True(t, e.tracker.IsRunning(existing.ID))
	_, err = e.store.GetByPath(`C:\games\new.exe`)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	e.Resume()
	assert.False(t, e.Status().Paused)
}

func TestIngestOnlyEventsDoNotTrack(t *testing.T) {
	e, _ := testEngine(t)

	// PID 0 marks a bare-path line from the helper: ingest, never track.
	e.handleProcessEvent(context.Background(), procmon.ProcessInfo{
		PID:  0,
		Path: `C:\games\rogue.exe`,
	})

	resource, err := e.store.GetByPath(`C:\games\rogue.exe`)
	require.NoError(t, err)
	assert.False(t, e.tracker.IsRunning(resource.ID))
}

func TestStatusReflectsState(t *testing.T) {
	e, _ := testEngine(t)

	status := e.Status()
	assert.False(t, status.Paused)
	assert.False(t, status.Degraded)
	assert.Zero(t, status.RunningSessions)

	e.Pause()
	e.degraded.Store(true)

	status = e.Status()
	assert.True(t, status.Paused)
	assert.True(t, status.Degraded)
}

func TestMonitorStreamEndFlipsDegraded(t *testing.T) {
	e, _ := testEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The fake subscription closes immediately, as a crashed helper would.
	e.startMonitor(ctx)

	assert.Eventually(t, func() bool {
		return e.Status().Degraded
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	e.wg.Wait()
}

func TestMonitorStreamEndDuringShutdownIsNotDegraded(t *testing.T) {
	e, _ := testEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e.startMonitor(ctx)
	e.wg.Wait()

	assert.False(t, e.Status().Degraded)
}

func TestSubscribeFailureFlipsDegraded(t *testing.T) {
	e, monitor := testEngine(t)
	monitor.subscribeErr = assert.AnError

	e.startMonitor(context.Background())

	assert.True(t, e.Status().Degraded)
}

func writeTestFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0644)
}

func TestScanSweepsConfiguredFolders(t *testing.T) {
	e, _ := testEngine(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, writeTestFile(filepath.Join(dir, "novel.epub")))
	e.cfg.Scan.Folders = []string{dir}

	report, err := e.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)
}
