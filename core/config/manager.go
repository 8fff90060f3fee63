// Package config loads the service configuration: catalog location, watched
// folders, scan folders and session sweep cadence. Settings come from
// config.yaml in the user config directory, overridable per key through
// CURIO_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"gopkg.in/yaml.v3"

	"github.com/adalundhe/curio/core/storage"
)

type Manager struct {
	configPtr unsafe.Pointer
	dirs      *storage.Dirs
	watchers  []func(*Config)
	watcherMu sync.RWMutex
}

type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Watch    WatchConfig    `yaml:"watch"`
	Scan     ScanConfig     `yaml:"scan"`
	Sessions SessionsConfig `yaml:"sessions"`
	Log      LogConfig      `yaml:"log"`
}

type CatalogConfig struct {
	// Path is the SQLite database file. Empty means the default data dir.
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

type WatchConfig struct {
	// Folders are the live discovery folders. Missing folders are skipped
	// at startup, not errors.
	Folders         []string      `yaml:"folders"`
	ExcludePatterns []string      `yaml:"exclude_patterns"`
	Debounce        time.Duration `yaml:"debounce"`
}

type ScanConfig struct {
	// Folders are swept by the on-demand scanner in addition to autostart
	// registrations.
	Folders []string `yaml:"folders"`
}

type SessionsConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func NewManager(dirs *storage.Dirs) *Manager {
	m := &Manager{dirs: dirs}
	cfg := DefaultConfig()
	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	return m
}

func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BusyTimeout: 5 * time.Second,
		},
		Watch: WatchConfig{
			Folders:         defaultWatchFolders(),
			ExcludePatterns: []string{"*.tmp", "~*", "desktop.ini", "Thumbs.db"},
			Debounce:        250 * time.Millisecond,
		},
		Scan: ScanConfig{
			Folders: defaultScanFolders(),
		},
		Sessions: SessionsConfig{
			SweepInterval: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// defaultWatchFolders returns the folders where new shortcuts and documents
// surface on the target platform.
func defaultWatchFolders() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	if runtime.GOOS == "windows" {
		return []string{
			filepath.Join(home, "Desktop"),
			filepath.Join(os.Getenv("APPDATA"), "Microsoft", "Windows", "Recent"),
		}
	}
	return []string{filepath.Join(home, "Desktop")}
}

// defaultScanFolders returns the shortcut folders the on-demand scanner
// sweeps.
func defaultScanFolders() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	if runtime.GOOS == "windows" {
		return []string{
			filepath.Join(home, "Desktop"),
			filepath.Join(os.Getenv("APPDATA"), "Microsoft", "Windows", "Recent"),
			filepath.Join(os.Getenv("APPDATA"), "Microsoft", "Windows", "Start Menu", "Programs"),
			filepath.Join(os.Getenv("PROGRAMDATA"), "Microsoft", "Windows", "Start Menu", "Programs"),
		}
	}
	return []string{
		filepath.Join(home, "Desktop"),
		filepath.Join(home, ".local", "share", "applications"),
	}
}

// Get returns the current configuration snapshot.
func (m *Manager) Get() *Config {
	return (*Config)(atomic.LoadPointer(&m.configPtr))
}

// Load reads config.yaml over the defaults and applies environment
// overrides. A missing file is not an error.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := m.loadUserConfig(cfg); err != nil {
		return fmt.Errorf("user config: %w", err)
	}

	m.applyEnvironment(cfg)
	m.applyCatalogDefault(cfg)

	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	m.notifyWatchers(cfg)

	return nil
}

func (m *Manager) loadUserConfig(cfg *Config) error {
	return loadYAMLFile(m.dirs.ConfigDir("config.yaml"), cfg)
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) applyEnvironment(cfg *Config) {
	if v := os.Getenv("CURIO_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("CURIO_WATCH_FOLDERS"); v != "" {
		cfg.Watch.Folders = splitList(v)
	}
	if v := os.Getenv("CURIO_SCAN_FOLDERS"); v != "" {
		cfg.Scan.Folders = splitList(v)
	}
	if v := os.Getenv("CURIO_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sessions.SweepInterval = d
		}
	}
	if v := os.Getenv("CURIO_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (m *Manager) applyCatalogDefault(cfg *Config) {
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = m.dirs.CatalogPath()
	}
}

// splitList splits a list-valued environment variable on the OS path list
// separator.
func splitList(v string) []string {
	parts := strings.Split(v, string(os.PathListSeparator))
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// OnChange registers a callback invoked after each successful Load.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

// Reload re-reads configuration from disk.
func (m *Manager) Reload() error {
	return m.Load()
}
