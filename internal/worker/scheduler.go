package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/zea2/devicemanager/internal/log"
)

// RefreshFunc refreshes the inventory against the live device state.
type RefreshFunc func(ctx context.Context) error

// Scheduler runs a refresh function on a cron schedule. Overlapping runs
// are prevented; a tick that fires while a refresh is still going is
// skipped.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	refresh RefreshFunc
	running sync.Mutex
}

// NewScheduler accepts standard cron expressions as well as the @every
// shorthand, for example "@every 15m".
func NewScheduler(spec string, refresh RefreshFunc) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), spec: spec, refresh: refresh}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("Refresh scheduler started", "schedule", s.spec)
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Refresh scheduler stopped")
}

func (s *Scheduler) run() {
	if !s.running.TryLock() {
		log.Warn("Skipping refresh, previous run still in progress")
		return
	}
	defer s.running.Unlock()

	if err := s.refresh(context.Background()); err != nil {
		log.Error("Scheduled refresh failed", "error", err)
	}
}
