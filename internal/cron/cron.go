package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	overdueSpec = "0 * * * *"
	cleanupSpec = "30 3 * * *"

	defaultSweepLimit = 200
	jobTimeout        = 5 * time.Minute
)

// OverdueSweeper moves assignments past their deadline to late.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, limit int, penalize bool) (int, error)
}

// TokenPurger removes expired refresh tokens.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// Options configures the scheduler.
type Options struct {
	AutoPenalty bool
	SweepLimit  int
}

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron    *cron.Cron
	tasks   OverdueSweeper
	tokens  TokenPurger
	options Options
	log     *logrus.Entry
}

// NewScheduler creates a new scheduler
func NewScheduler(tasks OverdueSweeper, tokens TokenPurger, opts Options, log *logrus.Entry) *Scheduler {
	if opts.SweepLimit <= 0 {
		opts.SweepLimit = defaultSweepLimit
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		tasks:   tasks,
		tokens:  tokens,
		options: opts,
		log:     log,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	// Every hour - overdue assignments
	if _, err := s.cron.AddFunc(overdueSpec, func() {
		s.log.Debug("running overdue assignment sweep")
		s.sweepOverdue()
	}); err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}

	// Every night - expired refresh tokens
	if _, err := s.cron.AddFunc(cleanupSpec, func() {
		s.log.Debug("running refresh token cleanup")
		s.cleanupTokens()
	}); err != nil {
		return fmt.Errorf("failed to schedule token cleanup: %w", err)
	}

	s.cron.Start()
	s.log.WithField("jobs", len(s.cron.Entries())).Info("scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) sweepOverdue() int {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	moved, err := s.tasks.SweepOverdue(ctx, s.options.SweepLimit, s.options.AutoPenalty)
	if err != nil {
		s.log.WithError(err).Error("overdue sweep failed")
		return moved
	}
	if moved > 0 {
		s.log.WithFields(logrus.Fields{"moved": moved, "penalized": s.options.AutoPenalty}).Info("assignments marked late")
	}
	return moved
}

func (s *Scheduler) cleanupTokens() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := s.tokens.PurgeExpiredTokens(ctx)
	if err != nil {
		s.log.WithError(err).Error("refresh token cleanup failed")
		return 0
	}
	if removed > 0 {
		s.log.WithField("removed", removed).Info("expired refresh tokens removed")
	}
	return removed
}

// ManualTrigger runs a job immediately (for testing and famctl)
func (s *Scheduler) ManualTrigger(job string) error {
	switch job {
	case "overdue":
		s.sweepOverdue()
	case "cleanup":
		s.cleanupTokens()
	case "all":
		s.sweepOverdue()
		s.cleanupTokens()
	default:
		return fmt.Errorf("unknown job %q", job)
	}
	return nil
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
