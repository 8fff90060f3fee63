package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/adalundhe/curio/core/catalog"
	"github.com/adalundhe/curio/core/procmon"
)

// Lookup is the slice of the catalog the reconciler reads.
type Lookup interface {
	GetByPath(path string) (*catalog.Resource, error)
}

// Reconciler recovers running state at startup: processes that were already
// alive before the engine came up are matched against the catalog by
// executable path and seeded into the tracker. Only existing catalog rows
// qualify; reconciliation never creates resources.
type Reconciler struct {
	store   Lookup
	monitor procmon.Monitor
	filter  *procmon.Filter
	tracker *Tracker
	logger  *slog.Logger
}

func NewReconciler(store Lookup, monitor procmon.Monitor, filter *procmon.Filter, tracker *Tracker, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:   store,
		monitor: monitor,
		filter:  filter,
		tracker: tracker,
		logger:  logger,
	}
}

// Run performs a single reconciliation pass and returns the number of
// sessions seeded.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	procs, err := r.monitor.List(ctx)
	if err != nil {
		return 0, err
	}

	seeded := 0
	for _, info := range procs {
		if !r.filter.Keep(info) {
			continue
		}

		resource, err := r.store.GetByPath(info.Path)
		if err != nil {
			if !errors.Is(err, catalog.ErrNotFound) {
				r.logger.Warn("reconcile lookup failed", "path", info.Path, "error", err)
			}
			continue
		}

		if r.tracker.IsRunning(resource.ID) {
			continue
		}
		r.tracker.Seed(info.PID, resource)
		seeded++
	}

	if seeded > 0 {
		r.logger.Info("reconciled running sessions", "count", seeded)
	}
	return seeded, nil
}
