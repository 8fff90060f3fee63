// Package watched provides filesystem watchers for discovery folders. Each
// watcher wraps fsnotify over one directory (a recents folder, the desktop,
// a shortcut drop zone), debounces bursts and emits candidate paths toward
// the ingestion pipeline. A shared pause flag suppresses emission without
// tearing the watchers down.
package watched

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// =============================================================================
// Constants
// =============================================================================

// DefaultDebounce is the default quiet period before a changed path is
// emitted. Shortcut creation writes the same file several times in quick
// succession; only the settled state matters.
const DefaultDebounce = 250 * time.Millisecond

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoFolders indicates no watch folders were specified.
	ErrNoFolders = errors.New("no folders configured for watching")

	// ErrFolderNotExist indicates a watch folder does not exist.
	ErrFolderNotExist = errors.New("watch folder does not exist")

	// ErrNotDirectory indicates a watch folder is not a directory.
	ErrNotDirectory = errors.New("watch folder is not a directory")

	// ErrInvalidPattern indicates an exclude pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid exclude pattern")
)

// =============================================================================
// Config
// =============================================================================

// Config configures a folder watcher.
type Config struct {
	// Folders are the directories to watch. Watching is not recursive;
	// discovery folders are flat by convention.
	Folders []string

	// ExcludePatterns are glob patterns for file names to ignore.
	ExcludePatterns []string

	// Debounce is the quiet period per path before emission.
	Debounce time.Duration
}

// DefaultConfig returns a watcher configuration for the given folders.
func DefaultConfig(folders ...string) Config {
	return Config{
		Folders:         folders,
		ExcludePatterns: []string{"*.tmp", "~*", "desktop.ini", "Thumbs.db"},
		Debounce:        DefaultDebounce,
	}
}

// =============================================================================
// Watcher
// =============================================================================

type pendingPath struct {
	timer *time.Timer
}

// Watcher emits candidate file paths from a set of discovery folders.
type Watcher struct {
	config   Config
	watcher  *fsnotify.Watcher
	excludes []glob.Glob
	paused   *atomic.Bool

	mu       sync.Mutex
	pending  map[string]*pendingPath
	out      chan string
	stopOnce sync.Once
	stopped  bool
}

// New creates a watcher over the configured folders. The pause flag is
// shared with the engine; a nil flag means never paused.
func New(config Config, paused *atomic.Bool) (*Watcher, error) {
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	excludes, err := compileExcludes(config.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if paused == nil {
		paused = new(atomic.Bool)
	}

	return &Watcher{
		config:   config,
		watcher:  fsw,
		excludes: excludes,
		paused:   paused,
		pending:  make(map[string]*pendingPath),
	}, nil
}

func validateConfig(config *Config) error {
	if len(config.Folders) == 0 {
		return ErrNoFolders
	}
	for _, folder := range config.Folders {
		info, err := os.Stat(folder)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrFolderNotExist
			}
			return err
		}
		if !info.IsDir() {
			return ErrNotDirectory
		}
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	return nil
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	excludes := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		excludes = append(excludes, g)
	}
	return excludes, nil
}

// =============================================================================
// Start
// =============================================================================

// Start begins watching and returns the candidate path channel. The channel
// closes when the context is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) (<-chan string, error) {
	w.out = make(chan string, 64)

	for _, folder := range w.config.Folders {
		if err := w.watcher.Add(folder); err != nil {
			close(w.out)
			return nil, err
		}
	}

	go w.loop(ctx)

	return w.out, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.cleanup()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// handleEvent filters one fsnotify event. Only appearance-style operations
// matter: a shortcut landing in a watched folder arrives as a create, a
// rename or a write. Removes are not candidates.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Rename) &&
		!event.Op.Has(fsnotify.Write) {
		return
	}
	if w.isExcluded(event.Name) {
		return
	}
	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return
	}
	w.schedule(event.Name)
}

// =============================================================================
// Debounce
// =============================================================================

// schedule arms (or re-arms) the per-path debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	if existing, ok := w.pending[path]; ok {
		existing.timer.Reset(w.config.Debounce)
		return
	}

	w.pending[path] = &pendingPath{
		timer: time.AfterFunc(w.config.Debounce, func() {
			w.emit(path)
		}),
	}
}

func (w *Watcher) emit(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	delete(w.pending, path)

	// The pause flag suppresses live discovery; the event is dropped, not
	// queued. Paused folders are re-swept on demand.
	if w.paused.Load() {
		return
	}

	select {
	case w.out <- path:
	default:
	}
}

// =============================================================================
// Exclusion
// =============================================================================

func (w *Watcher) isExcluded(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range w.excludes {
		if pattern.Match(name) {
			return true
		}
	}
	return false
}

// =============================================================================
// Stop
// =============================================================================

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		for _, p := range w.pending {
			p.timer.Stop()
		}
		w.pending = make(map[string]*pendingPath)
		w.mu.Unlock()

		w.watcher.Close()
	})
	return nil
}

func (w *Watcher) cleanup() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.stopped {
		w.stopped = true
		for _, p := range w.pending {
			p.timer.Stop()
		}
		w.pending = make(map[string]*pendingPath)
	}
	close(w.out)
}
