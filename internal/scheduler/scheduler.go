// Package scheduler wires up the cron job that periodically reconciles
// interview bookings made directly on recruiters' calendars.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper reconciles every candidate awaiting a booking and reports how
// many were booked.
type Sweeper interface {
	SweepBookings(ctx context.Context) (int, error)
}

// Scheduler wraps robfig/cron and manages the sweep loop.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string // cron spec, e.g. "@every 15m"
}

// New creates a Scheduler firing on spec. Overlapping runs are skipped.
func New(sweeper Sweeper, spec string) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		sweeper: sweeper,
		spec:    spec,
	}
}

// Start registers the job and starts the scheduler. The first sweep runs at
// the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	slog.Info("reconcile cron started", "spec", s.spec)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("reconcile cron stopped")
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	booked, err := s.sweeper.SweepBookings(ctx)
	if err != nil {
		slog.Error("booking sweep failed", "err", err)
		return
	}
	slog.Info("booking sweep complete", "booked", booked)
}
