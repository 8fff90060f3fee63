// Package scan implements the on-demand catalog sweep: a user-triggered
// batch pass over known shortcut folders and OS autostart registrations.
// Unlike the live watchers it applies only the classifier blocklists, not
// the process-event filter, and it ignores the engine's pause flag.
package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/adalundhe/curio/core/ingest"
)

// =============================================================================
// Report
// =============================================================================

// Report summarizes one sweep.
type Report struct {
	// Scanned is the number of candidate paths considered.
	Scanned int `json:"scanned"`

	// Ingested is the number of resources inserted or updated.
	Ingested int `json:"ingested"`

	// Failed is the number of candidates whose ingestion errored.
	Failed int `json:"failed"`
}

// =============================================================================
// Scanner
// =============================================================================

// Scanner sweeps shortcut folders and autostart registrations through the
// ingestion pipeline.
type Scanner struct {
	pipeline *ingest.Pipeline
	logger   *slog.Logger
}

// New creates a scanner over the given pipeline.
func New(pipeline *ingest.Pipeline, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{pipeline: pipeline, logger: logger}
}

// Run sweeps the given folders plus the platform's autostart registrations.
// Each candidate is isolated: a failing candidate is counted and skipped,
// never aborting the sweep.
func (s *Scanner) Run(ctx context.Context, folders []string) (Report, error) {
	var report Report

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.sweepFolder(ctx, folder, &report)
	}

	for _, path := range autostartEntries(s.logger) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.consider(ctx, ingest.Candidate{Path: path}, &report)
	}

	s.logger.Info("scan complete",
		"scanned", report.Scanned,
		"ingested", report.Ingested,
		"failed", report.Failed)
	return report, nil
}

// sweepFolder walks one shortcut folder. Start-menu style folders nest, so
// the walk is recursive. Unreadable entries are skipped.
func (s *Scanner) sweepFolder(ctx context.Context, folder string, report *Report) {
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return fs.SkipAll
		}
		s.consider(ctx, ingest.Candidate{Path: path}, report)
		return nil
	})
	if err != nil {
		s.logger.Warn("folder sweep failed", "folder", folder, "error", err)
	}
}

func (s *Scanner) consider(ctx context.Context, c ingest.Candidate, report *Report) {
	report.Scanned++

	resource, err := s.pipeline.Ingest(ctx, c)
	if err != nil {
		report.Failed++
		s.logger.Debug("candidate rejected", "path", c.Path, "error", err)
		return
	}
	if resource != nil {
		report.Ingested++
	}
}
