/**
 * @description
 * Cron scheduler setup for the periodic maintenance jobs: the reconcile
 * safety-net sweep and the expired-verification purge.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loanapp/loan-service/internal/store"
)

const jobTimeout = 2 * time.Minute

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron          *cron.Cron
	reconciler    *Reconciler
	verifications store.VerificationRepository
	logger        *slog.Logger

	sweepSchedule string
	purgeSchedule string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(reconciler *Reconciler, verifications store.VerificationRepository, sweepSchedule, purgeSchedule string, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:          c,
		reconciler:    reconciler,
		verifications: verifications,
		logger:        logger,
		sweepSchedule: sweepSchedule,
		purgeSchedule: purgeSchedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.sweepSchedule, s.runReconcileSweep); err != nil {
		s.logger.Error("failed to schedule reconcile sweep job", "error", err)
	} else {
		s.logger.Info("scheduled reconcile sweep job", "schedule", s.sweepSchedule)
	}

	if _, err := s.cron.AddFunc(s.purgeSchedule, s.runVerificationPurge); err != nil {
		s.logger.Error("failed to schedule verification purge job", "error", err)
	} else {
		s.logger.Info("scheduled verification purge job", "schedule", s.purgeSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runReconcileSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.reconciler.SweepIncomplete(ctx); err != nil {
		s.logger.Error("reconcile sweep job failed", "error", err)
	}
}

func (s *Scheduler) runVerificationPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	purged, err := s.verifications.PurgeExpiredVerifications(ctx, time.Now())
	if err != nil {
		s.logger.Error("verification purge job failed", "error", err)
		return
	}
	if purged > 0 {
		s.logger.Info("purged expired verification codes", "count", purged)
	}
}
