package watched

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path string) error {
	return os.WriteFile(path, []byte("content"), 0644)
}

func newTestWatcher(t *testing.T, config Config, paused *atomic.Bool) *Watcher {
	t.Helper()
	w, err := New(config, paused)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig("/some/folder")

	require.Equal(t, []string{"/some/folder"}, config.Folders)
	assert.Equal(t, DefaultDebounce, config.Debounce)
	assert.Contains(t, config.ExcludePatterns, "*.tmp")
}

func TestNewRejectsEmptyFolders(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoFolders)
}

func TestNewRejectsMissingFolder(t *testing.T) {
	t.Parallel()

	_, err := New(DefaultConfig("/does/not/exist"), nil)
	assert.ErrorIs(t, err, ErrFolderNotExist)
}

func TestNewRejectsFilePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, writeFile(file))

	_, err := New(DefaultConfig(file), nil)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestNewRejectsBadPattern(t *testing.T) {
	config := DefaultConfig(t.TempDir())
	config.ExcludePatterns = []string{"[unclosed"}

	_, err := New(config, nil)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestExcludeMatchesBaseName(t *testing.T) {
	w := newTestWatcher(t, DefaultConfig(t.TempDir()), nil)

	assert.True(t, w.isExcluded(`C:\Users\me\Recent\setup.tmp`))
	assert.True(t, w.isExcluded("/home/me/Desktop/desktop.ini"))
	assert.False(t, w.isExcluded("/home/me/Desktop/game.lnk"))
}

func TestEmitDeliversCandidate(t *testing.T) {
	w := newTestWatcher(t, DefaultConfig(t.TempDir()), nil)
	w.out = make(chan string, 1)

	w.emit("/home/me/Desktop/game.lnk")

	select {
	case got := <-w.out:
		assert.Equal(t, "/home/me/Desktop/game.lnk", got)
	default:
		t.Fatal("expected a candidate on the channel")
	}
}

func TestPausedWatcherDropsCandidates(t *testing.T) {
	paused := new(atomic.Bool)
	paused.Store(true)

	w := newTestWatcher(t, DefaultConfig(t.TempDir()), paused)
	w.out = make(chan string, 1)

	w.emit("/home/me/Desktop/game.lnk")
	assert.Empty(t, w.out)

	// Unpausing restores delivery for subsequent events.
	paused.Store(false)
	w.emit("/home/me/Desktop/game.lnk")
	assert.Len(t, w.out, 1)
}

func TestScheduleCoalescesBursts(t *testing.T) {
	config := DefaultConfig(t.TempDir())
	config.Debounce = 30 * time.Millisecond
	w := newTestWatcher(t, config, nil)
	w.out = make(chan string, 4)

	for i := 0; i < 5; i++ {
		w.schedule("/home/me/Desktop/game.lnk")
	}

	select {
	case got := <-w.out:
		assert.Equal(t, "/home/me/Desktop/game.lnk", got)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for debounced candidate")
	}

	// The burst settles into exactly one emission.
	time.Sleep(3 * config.Debounce)
	assert.Empty(t, w.out)
}

func TestWatcherEmitsCreatedFile(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig(dir)
	config.Debounce = 20 * time.Millisecond
	w := newTestWatcher(t, config, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := w.Start(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, "game.lnk")
	require.NoError(t, writeFile(path))

	select {
	case got := <-out:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for candidate")
	}
}

func TestWatcherIgnoresExcludedFiles(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig(dir)
	config.Debounce = 20 * time.Millisecond
	w := newTestWatcher(t, config, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := w.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, writeFile(filepath.Join(dir, "scratch.tmp")))
	keeper := filepath.Join(dir, "keeper.lnk")
	require.NoError(t, writeFile(keeper))

	// Only the non-excluded file comes through.
	select {
	case got := <-out:
		assert.Equal(t, keeper, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for candidate")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := newTestWatcher(t, DefaultConfig(t.TempDir()), nil)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
