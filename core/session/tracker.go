// Package session tracks which OS processes correspond to which catalog
// entries. A session is in-memory only: the catalog's cumulative counters
// are best-effort persistence, the session map is the source of truth for
// "is it running now".
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/adalundhe/curio/core/catalog"
	"github.com/adalundhe/curio/core/events"
)

// DefaultSweepInterval is the liveness sweep cadence while sessions exist.
const DefaultSweepInterval = 5 * time.Second

// =============================================================================
// Collaborator contracts
// =============================================================================

// Prober is the slice of the process monitor the tracker needs.
type Prober interface {
	// Alive probes pid liveness; indeterminate probes report true.
	Alive(pid int) bool

	// Kill requests forced termination.
	Kill(pid int) error
}

// Stats is the slice of the catalog store owning cumulative run counters.
type Stats interface {
	RecordOpen(id string) (*catalog.Resource, error)
	RecordStop(id string, elapsedSeconds int64) (*catalog.Resource, error)
}

// =============================================================================
// Session
// =============================================================================

// Session is one resource's current running process.
type Session struct {
	PID        int
	ResourceID string
	Path       string
	StartedAt  time.Time
}

// =============================================================================
// Tracker
// =============================================================================

// Tracker owns the pid → session map and the liveness sweep. The sweep is a
// state machine, not an always-on timer: it runs only while sessions exist,
// suspends when the set empties, and restarts on the next start.
type Tracker struct {
	store  Stats
	probe  Prober
	bus    *events.Bus
	logger *slog.Logger

	interval time.Duration
	now      func() time.Time

	mu         sync.Mutex
	sessions   map[int]*Session
	byResource map[string]int
	sweeping   bool

	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// NewTracker creates a session tracker. The bus may be nil.
func NewTracker(store Stats, probe Prober, bus *events.Bus, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:      store,
		probe:      probe,
		bus:        bus,
		logger:     logger,
		interval:   DefaultSweepInterval,
		now:        time.Now,
		sessions:   make(map[int]*Session),
		byResource: make(map[string]int),
		done:       make(chan struct{}),
	}
}

// SetSweepInterval overrides the sweep cadence. Effective for sweeps started
// after the call.
func (t *Tracker) SetSweepInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	t.interval = d
	t.mu.Unlock()
}

// OnProcessStart tracks a newly observed process for a resource: records the
// open against the catalog, emits running=true and ensures the sweep is
// active. No-op when the resource already has an active session (a second
// process of the same resource is never separately tracked) or pid is not a
// real process id.
func (t *Tracker) OnProcessStart(pid int, resource *catalog.Resource) {
	s, ok := t.insert(pid, resource)
	if !ok {
		return
	}

	updated, err := t.store.RecordOpen(resource.ID)
	if err != nil {
		// Persisted stats are best-effort; the session stands.
		t.logger.Warn("record open failed", "resource", resource.ID, "error", err)
		updated = resource
	}

	if t.bus != nil {
		t.bus.PublishRunning(updated, true, s.StartedAt, 0)
	}
}

// Seed tracks a process that was already running before the engine started.
// Like OnProcessStart but without recording an open: the launch predates the
// engine, only the running state is recovered. StartedAt is approximated as
// now, the true start time being unknowable.
func (t *Tracker) Seed(pid int, resource *catalog.Resource) {
	s, ok := t.insert(pid, resource)
	if !ok {
		return
	}
	if t.bus != nil {
		t.bus.PublishRunning(resource, true, s.StartedAt, 0)
	}
}

// insert adds a session unless the resource or pid is already tracked.
// Starts the sweep when the session set transitions from empty.
func (t *Tracker) insert(pid int, resource *catalog.Resource) (*Session, bool) {
	if pid <= 0 || resource == nil {
		return nil, false
	}

	t.mu.Lock()
	if _, tracked := t.byResource[resource.ID]; tracked {
		t.mu.Unlock()
		return nil, false
	}
	if _, tracked := t.sessions[pid]; tracked {
		t.mu.Unlock()
		return nil, false
	}

	s := &Session{
		PID:        pid,
		ResourceID: resource.ID,
		Path:       resource.Path,
		StartedAt:  t.now(),
	}
	t.sessions[pid] = s
	t.byResource[resource.ID] = pid

	startSweep := !t.sweeping
	if startSweep {
		t.sweeping = true
	}
	t.mu.Unlock()

	if startSweep {
		t.wg.Add(1)
		go t.sweepLoop()
	}
	return s, true
}

// Kill requests forced termination of a resource's tracked process. State is
// not updated synchronously; the next sweep observes the death and
// reconciles normally.
func (t *Tracker) Kill(resourceID string) {
	t.mu.Lock()
	pid, ok := t.byResource[resourceID]
	t.mu.Unlock()
	if !ok {
		return
	}

	if err := t.probe.Kill(pid); err != nil {
		t.logger.Warn("kill failed", "pid", pid, "resource", resourceID, "error", err)
	}
}

// IsRunning reports whether the resource has an active session.
func (t *Tracker) IsRunning(resourceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.byResource[resourceID]
	return ok
}

// Running returns a snapshot of active sessions.
func (t *Tracker) Running() []Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, *s)
	}
	return out
}

// Stop halts sweeping permanently. Sessions are left in place; they are
// in-memory only and die with the process.
func (t *Tracker) Stop() {
	t.doneOnce.Do(func() { close(t.done) })
	t.wg.Wait()
}

// =============================================================================
// Sweep
// =============================================================================

func (t *Tracker) sweepLoop() {
	defer t.wg.Done()

	t.mu.Lock()
	interval := t.interval
	t.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
		}

		t.sweepOnce()

		// Suspend when the set emptied; the check shares the lock with
		// insert so a concurrent start either sees sweeping=true or
		// restarts the loop itself.
		t.mu.Lock()
		if len(t.sessions) == 0 {
			t.sweeping = false
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
	}
}

// sweepOnce probes every tracked pid and closes sessions whose process is
// gone, folding elapsed time into the catalog and emitting running=false.
func (t *Tracker) sweepOnce() {
	t.mu.Lock()
	snapshot := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		snapshot = append(snapshot, s)
	}
	t.mu.Unlock()

	for _, s := range snapshot {
		if t.probe.Alive(s.PID) {
			continue
		}
		t.closeSession(s)
	}
}

func (t *Tracker) closeSession(s *Session) {
	t.mu.Lock()
	current, ok := t.sessions[s.PID]
	if !ok || current != s {
		t.mu.Unlock()
		return
	}
	delete(t.sessions, s.PID)
	delete(t.byResource, s.ResourceID)
	t.mu.Unlock()

	// Whole seconds, floored: preserved behavior.
	elapsed := int64(t.now().Sub(s.StartedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}

	updated, err := t.store.RecordStop(s.ResourceID, elapsed)
	if err != nil {
		// The in-memory transition is not rolled back.
		t.logger.Warn("record stop failed", "resource", s.ResourceID, "error", err)
		updated = &catalog.Resource{ID: s.ResourceID, Path: s.Path}
	}

	if t.bus != nil {
		t.bus.PublishRunning(updated, false, s.StartedAt, elapsed)
	}
}
