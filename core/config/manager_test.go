package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/curio/core/storage"
)

func testManager(t *testing.T) (*Manager, string) {
	t.Helper()
	configHome := t.TempDir()
	dirs := &storage.Dirs{
		Config: configHome,
		Data:   t.TempDir(),
		Cache:  t.TempDir(),
		State:  t.TempDir(),
	}
	return NewManager(dirs), configHome
}

func TestDefaultsBeforeLoad(t *testing.T) {
	m, _ := testManager(t)

	cfg := m.Get()
	require.NotNil(t, cfg)
	assert.Equal(t, 5*time.Second, cfg.Sessions.SweepInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Contains(t, cfg.Watch.ExcludePatterns, "*.tmp")
}

func TestLoadFillsCatalogPathDefault(t *testing.T) {
	m, _ := testManager(t)

	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, m.dirs.CatalogPath(), cfg.Catalog.Path)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m, _ := testManager(t)

	require.NoError(t, m.Load())
	assert.Equal(t, 5*time.Second, m.Get().Sessions.SweepInterval)
}

func TestLoadReadsYAMLOverDefaults(t *testing.T) {
	m, configHome := testManager(t)

	yaml := `
catalog:
  path: /custom/catalog.db
watch:
  folders:
    - /drops
sessions:
  sweep_interval: 30s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(configHome, "config.yaml"), []byte(yaml), 0644))
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "/custom/catalog.db", cfg.Catalog.Path)
	assert.Equal(t, []string{"/drops"}, cfg.Watch.Folders)
	assert.Equal(t, 30*time.Second, cfg.Sessions.SweepInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	m, configHome := testManager(t)

	yaml := "sessions:\n  sweep_interval: 30s\n"
	require.NoError(t, os.WriteFile(filepath.Join(configHome, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CURIO_SWEEP_INTERVAL", "2s")
	t.Setenv("CURIO_CATALOG_PATH", "/env/catalog.db")
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, 2*time.Second, cfg.Sessions.SweepInterval)
	assert.Equal(t, "/env/catalog.db", cfg.Catalog.Path)
}

func TestWatchFoldersFromEnvList(t *testing.T) {
	m, _ := testManager(t)

	folders := "/a" + string(os.PathListSeparator) + "/b"
	t.Setenv("CURIO_WATCH_FOLDERS", folders)
	require.NoError(t, m.Load())

	assert.Equal(t, []string{"/a", "/b"}, m.Get().Watch.Folders)
}

func TestOnChangeFiresAfterLoad(t *testing.T) {
	m, _ := testManager(t)

	var seen *Config
	m.OnChange(func(cfg *Config) { seen = cfg })

	require.NoError(t, m.Load())
	require.NotNil(t, seen)
	assert.Same(t, m.Get(), seen)
}
