// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper sends whatever messages are due. Lead follow-ups and visit
// reminders both satisfy it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// ConversationPruner removes old conversation messages.
type ConversationPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	TrimConversations(ctx context.Context, keep int) (int64, error)
}

type Config struct {
	FollowupSpec    string
	ReminderSpec    string
	CleanupSpec     string
	RetentionDays   int
	KeepLastPerConv int
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cfg       Config
	sweeper   Sweeper
	reminders Sweeper
	pruner    ConversationPruner
	cron      *cron.Cron
	logger    *zap.Logger
	jobMu     sync.Mutex
	inFlight  map[string]bool

	now func() time.Time
}

func New(cfg Config, sweeper, reminders Sweeper, pruner ConversationPruner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		sweeper:   sweeper,
		reminders: reminders,
		pruner:    pruner,
		cron:      cron.New(),
		logger:    logger,
		inFlight:  map[string]bool{},
		now:       time.Now,
	}
}

// Start registers the jobs and starts the cron runner. Jobs stop receiving
// new runs when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.sweeper != nil && s.cfg.FollowupSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.FollowupSpec, s.job(ctx, "followups", s.SweepFollowups)); err != nil {
			return fmt.Errorf("invalid followup cron expression: %w", err)
		}
	}
	if s.reminders != nil && s.cfg.ReminderSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.ReminderSpec, s.job(ctx, "visit-reminders", s.SendVisitReminders)); err != nil {
			return fmt.Errorf("invalid reminder cron expression: %w", err)
		}
	}
	if s.pruner != nil && s.cfg.CleanupSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.CleanupSpec, s.job(ctx, "cleanup", s.CleanupConversations)); err != nil {
			return fmt.Errorf("invalid cleanup cron expression: %w", err)
		}
	}

	s.logger.Info("scheduler started",
		zap.String("followups", s.cfg.FollowupSpec),
		zap.String("reminders", s.cfg.ReminderSpec),
		zap.String("cleanup", s.cfg.CleanupSpec),
	)
	s.cron.Start()
	return nil
}

// Stop halts the runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// job wraps fn so that a slow run is skipped rather than overlapped.
func (s *Scheduler) job(ctx context.Context, name string, fn func(context.Context) error) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}

		s.jobMu.Lock()
		if s.inFlight[name] {
			s.jobMu.Unlock()
			s.logger.Warn("skipping overlapping job", zap.String("job", name))
			return
		}
		s.inFlight[name] = true
		s.jobMu.Unlock()

		defer func() {
			s.jobMu.Lock()
			delete(s.inFlight, name)
			s.jobMu.Unlock()
		}()

		if err := fn(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	}
}

// SweepFollowups sends due follow-ups once.
func (s *Scheduler) SweepFollowups(ctx context.Context) error {
	n, err := s.sweeper.Sweep(ctx)
	if n > 0 {
		s.logger.Info("followups sent", zap.Int("count", n))
	}
	return err
}

// SendVisitReminders sends due visit confirmations and feedback requests once.
func (s *Scheduler) SendVisitReminders(ctx context.Context) error {
	n, err := s.reminders.Sweep(ctx)
	if n > 0 {
		s.logger.Info("visit reminders sent", zap.Int("count", n))
	}
	return err
}

// CleanupConversations drops messages past retention, then trims every
// conversation to its newest messages.
func (s *Scheduler) CleanupConversations(ctx context.Context) error {
	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)
	expired, err := s.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	trimmed, err := s.pruner.TrimConversations(ctx, s.cfg.KeepLastPerConv)
	if err != nil {
		return err
	}

	s.logger.Info("conversation cleanup finished",
		zap.Int64("expired", expired),
		zap.Int64("trimmed", trimmed),
		zap.Time("cutoff", cutoff),
	)
	return nil
}
