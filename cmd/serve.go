package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adalundhe/curio/core/engine"
	"github.com/adalundhe/curio/core/storage"
)

var serveScanOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the discovery service",
	Long: `Run the discovery service in the foreground: folder watchers, the
process-creation monitor and the session sweeper stay active until
interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveScanOnStart, "scan", false, "Run a full scan after startup")
}

// serveLogWriter tees service logs to stderr and a file under the state
// directory. Falls back to stderr alone when the file cannot be opened.
func serveLogWriter() (io.Writer, func() error) {
	noop := func() error { return nil }

	dirs, err := storage.ResolveDirs()
	if err != nil {
		return os.Stderr, noop
	}
	if err := storage.EnsureDir(dirs.LogDir(), 0700); err != nil {
		return os.Stderr, noop
	}
	file, err := os.OpenFile(filepath.Join(dirs.LogDir(), "curio.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return os.Stderr, noop
	}
	return io.MultiWriter(os.Stderr, file), file.Close
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logWriter, closeLog := serveLogWriter()
	defer closeLog()
	logger := setupLoggerTo(logWriter, cfg)

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("engine setup: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		_ = eng.Stop()
		return fmt.Errorf("engine start: %w", err)
	}

	if serveScanOnStart {
		go func() {
			if _, err := eng.Scan(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("startup scan failed", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Fprintln(cmd.OutOrStderr(), "\nShutting down...")
	case <-ctx.Done():
	}

	cancel()
	return eng.Stop()
}
