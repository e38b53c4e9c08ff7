package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Republisher is the part of filters.Store a Refresher needs.
type Republisher interface {
	Republish()
}

// Refresher republishes the current selection on a cron schedule so the
// dashboard picks up new backend data without a filter change.
type Refresher struct {
	cron   *cron.Cron
	store  Republisher
	logger *slog.Logger
}

// NewRefresher parses schedule (standard five-field spec or descriptors such
// as "@every 5m"). It does not start the schedule.
func NewRefresher(schedule string, store Republisher, logger *slog.Logger) (*Refresher, error) {
	r := &Refresher{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		store:  store,
		logger: logger,
	}
	if _, err := r.cron.AddFunc(schedule, r.Refresh); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Refresh republishes the current selection once.
func (r *Refresher) Refresh() {
	r.logger.Info("scheduled dashboard refresh")
	r.store.Republish()
}

func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts the schedule and returns once any running refresh has finished.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
