// Package cmd provides the curio command-line interface.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/curio/core/catalog"
	"github.com/adalundhe/curio/core/config"
	"github.com/adalundhe/curio/core/storage"
)

var rootCmd = &cobra.Command{
	Use:   "curio",
	Short: "Curio - a local resource catalog",
	Long: `Curio watches your filesystem and running processes to discover games,
apps and media, catalogs them in a local database and tracks how long
each one runs.`,
}

func Execute() error {
	return rootCmd.Execute()
}

// =============================================================================
// Terminal colors
// =============================================================================

const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGray   = "\033[90m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// =============================================================================
// Shared setup
// =============================================================================

// loadConfig resolves platform directories and loads the user config.
func loadConfig() (*config.Config, error) {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return nil, err
	}
	if err := dirs.EnsureAll(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}

	manager := config.NewManager(dirs)
	if err := manager.Load(); err != nil {
		return nil, err
	}
	return manager.Get(), nil
}

// setupLogger configures the process-wide slog default from config.
func setupLogger(cfg *config.Config) *slog.Logger {
	return setupLoggerTo(os.Stderr, cfg)
}

func setupLoggerTo(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// openCatalog opens the catalog store for query-only commands.
func openCatalog(cfg *config.Config) (*catalog.Store, error) {
	return catalog.Open(catalog.StoreConfig{
		Path:        cfg.Catalog.Path,
		BusyTimeout: cfg.Catalog.BusyTimeout,
	})
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
