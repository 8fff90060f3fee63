// Package engine wires the discovery components together: catalog store,
// event bus, ingestion pipeline, folder watchers, process-creation monitor,
// session tracker and startup reconciler. One engine instance owns the
// lifecycle of all of them.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/adalundhe/curio/core/catalog"
	"github.com/adalundhe/curio/core/config"
	"github.com/adalundhe/curio/core/events"
	"github.com/adalundhe/curio/core/ingest"
	"github.com/adalundhe/curio/core/procmon"
	"github.com/adalundhe/curio/core/scan"
	"github.com/adalundhe/curio/core/session"
	"github.com/adalundhe/curio/core/shortcut"
	"github.com/adalundhe/curio/core/watched"
)

// =============================================================================
// Status
// =============================================================================

// Status is a point-in-time view of the engine.
type Status struct {
	// Paused reports whether live discovery is suppressed.
	Paused bool

	// Degraded reports that the process-creation subscription died and was
	// not re-established. Folder watching, scans and sweeps continue.
	Degraded bool

	// Watchers is the number of live folder watchers.
	Watchers int

	// RunningSessions is the number of tracked running resources.
	RunningSessions int
}

// =============================================================================
// Engine
// =============================================================================

// Engine is the discovery service composition root.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	store    *catalog.Store
	bus      *events.Bus
	pipeline *ingest.Pipeline
	monitor  procmon.Monitor
	filter   *procmon.Filter
	tracker  *session.Tracker
	scanner  *scan.Scanner
	watchers []*watched.Watcher

	paused   atomic.Bool
	degraded atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an engine from configuration. The catalog is opened
// immediately; watchers and helpers start on Start.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := catalog.Open(catalog.StoreConfig{
		Path:        cfg.Catalog.Path,
		BusyTimeout: cfg.Catalog.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(0)
	pipeline := ingest.NewPipeline(store, shortcut.NewPlatformResolver(), bus, logger)

	selfPath, _ := os.Executable()
	monitor := procmon.NewPlatformMonitor()
	filter := procmon.NewFilter(selfPath)

	tracker := session.NewTracker(store, monitor, bus, logger)
	tracker.SetSweepInterval(cfg.Sessions.SweepInterval)

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		bus:      bus,
		pipeline: pipeline,
		monitor:  monitor,
		filter:   filter,
		tracker:  tracker,
		scanner:  scan.New(pipeline, logger),
	}, nil
}

// Store exposes the catalog for query surfaces (CLI commands, export).
func (e *Engine) Store() *catalog.Store {
	return e.store
}

// Bus exposes the event bus for outward change notifications.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start launches the bus, folder watchers, process subscription and startup
// reconciliation. Missing watch folders are skipped with a log line.
func (e *Engine) Start(ctx context.Context) error {
	ctx, e.cancel = context.WithCancel(ctx)

	e.bus.Start()
	e.startWatchers(ctx)
	e.startMonitor(ctx)
	e.startReconcile(ctx)

	e.logger.Info("engine started",
		"watchers", len(e.watchers),
		"catalog", e.cfg.Catalog.Path)
	return nil
}

func (e *Engine) startWatchers(ctx context.Context) {
	for _, folder := range e.cfg.Watch.Folders {
		w, err := watched.New(watched.Config{
			Folders:         []string{folder},
			ExcludePatterns: e.cfg.Watch.ExcludePatterns,
			Debounce:        e.cfg.Watch.Debounce,
		}, &e.paused)
		if err != nil {
			if errors.Is(err, watched.ErrFolderNotExist) {
				e.logger.Debug("watch folder missing", "folder", folder)
				continue
			}
			e.logger.Warn("watcher setup failed", "folder", folder, "error", err)
			continue
		}

		candidates, err := w.Start(ctx)
		if err != nil {
			e.logger.Warn("watcher start failed", "folder", folder, "error", err)
			_ = w.Stop()
			continue
		}

		e.watchers = append(e.watchers, w)
		e.wg.Add(1)
		go e.consumeCandidates(ctx, candidates)
	}
}

func (e *Engine) consumeCandidates(ctx context.Context, candidates <-chan string) {
	defer e.wg.Done()

	for path := range candidates {
		if _, err := e.pipeline.Ingest(ctx, ingest.Candidate{Path: path}); err != nil {
			e.logger.Debug("candidate failed", "path", path, "error", err)
		}
	}
}

func (e *Engine) startMonitor(ctx context.Context) {
	procs, err := e.monitor.Subscribe(ctx)
	if err != nil {
		e.logger.Warn("process subscription unavailable", "error", err)
		e.degraded.Store(true)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for info := range procs {
			e.handleProcessEvent(ctx, info)
		}
		// The helper died. Discovery continues from the folder watchers;
		// the subscription is not re-established until restart.
		if ctx.Err() == nil {
			e.logger.Warn("process subscription ended; running degraded")
			e.degraded.Store(true)
		}
	}()
}

// handleProcessEvent feeds one process-creation event through the filter,
// the pipeline and the session tracker. The pause flag gates ingestion of
// new resources only; session tracking of already-cataloged resources is
// unaffected.
func (e *Engine) handleProcessEvent(ctx context.Context, info procmon.ProcessInfo) {
	if !e.filter.Keep(info) {
		return
	}

	if !e.paused.Load() {
		if _, err := e.pipeline.Ingest(ctx, ingest.Candidate{Target: info.Path}); err != nil {
			e.logger.Debug("process ingest failed", "path", info.Path, "error", err)
		}
	}

	if info.PID <= 0 {
		return
	}
	resource, err := e.store.GetByPath(info.Path)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			e.logger.Warn("session lookup failed", "path", info.Path, "error", err)
		}
		return
	}
	e.tracker.OnProcessStart(info.PID, resource)
}

func (e *Engine) startReconcile(ctx context.Context) {
	rec := session.NewReconciler(e.store, e.monitor, e.filter, e.tracker, e.logger)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := rec.Run(ctx); err != nil {
			// A failed enumeration loses pre-existing sessions, nothing
			// else; the engine keeps running.
			e.logger.Warn("startup reconcile failed", "error", err)
		}
	}()
}

// Stop tears the engine down in dependency order.
func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	for _, w := range e.watchers {
		_ = w.Stop()
	}
	e.wg.Wait()
	e.tracker.Stop()
	e.bus.Close()
	return e.store.Close()
}

// =============================================================================
// Operations
// =============================================================================

// Pause suppresses live discovery while a manual-add flow is in progress.
// Watchers stay subscribed; their events are dropped.
func (e *Engine) Pause() {
	e.paused.Store(true)
}

// Resume re-enables live discovery.
func (e *Engine) Resume() {
	e.paused.Store(false)
}

// Scan runs the on-demand sweep over the configured scan folders plus
// autostart registrations. Unaffected by the pause flag.
func (e *Engine) Scan(ctx context.Context) (scan.Report, error) {
	return e.scanner.Run(ctx, e.cfg.Scan.Folders)
}

// Kill force-terminates the tracked process of a resource. The next sweep
// observes the death and records the stop.
func (e *Engine) Kill(resourceID string) {
	e.tracker.Kill(resourceID)
}

// Status reports the engine's current state.
func (e *Engine) Status() Status {
	return Status{
		Paused:          e.paused.Load(),
		Degraded:        e.degraded.Load(),
		Watchers:        len(e.watchers),
		RunningSessions: len(e.tracker.Running()),
	}
}
