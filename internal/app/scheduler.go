/**
 * @description
 * Cron scheduler setup for the archiving sweep.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the recurring archiving sweep.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  *Sweeper
	logger   *slog.Logger
	schedule string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(sweeper *Sweeper, logger *slog.Logger, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:     c,
		sweeper:  sweeper,
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the sweep job and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		s.logger.Error("failed to schedule archiving sweep", "error", err)
	} else {
		s.logger.Info("scheduled archiving sweep", "schedule", s.schedule)
	}

	s.cron.Start()
}

func (s *Scheduler) runSweep() {
	if _, err := s.sweeper.Run(context.Background()); err != nil {
		s.logger.Error("archiving sweep aborted", "error", err)
	}
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
