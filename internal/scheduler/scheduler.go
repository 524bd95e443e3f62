package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Coach is the part of the coach service the jobs need
type Coach interface {
	Progress(ctx context.Context, userID int64) (models.UserProgress, error)
	RolloverAll(ctx context.Context) (int, error)
}

// Recipients lists users who asked for a reminder at an hour
type Recipients interface {
	GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error)
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(ctx context.Context, userID int64, p models.UserProgress) error
}

// Options configures the jobs. Reminders go out from StartHour to EndHour
// inclusive, in Location.
type Options struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler  *gocron.Scheduler
	coach      Coach
	recipients Recipients
	notifier   Notifier
	opts       Options
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a new scheduler instance. Reminders are disabled when
// notifier or recipients is nil.
func New(coach Coach, recipients Recipients, notifier Notifier, opts Options, logger *zap.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(opts.Location)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:  s,
		coach:      coach,
		recipients: recipients,
		notifier:   notifier,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Start begins running all scheduled tasks. Jobs use ctx for their work.
func (s *Scheduler) Start(ctx context.Context) error {
	// New challenges right after local midnight
	if _, err := s.scheduler.Every(1).Day().At("00:00").Do(func() {
		if _, err := s.RunRollover(ctx); err != nil {
			s.logger.Error("Rollover sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule rollover: %w", err)
	}

	if s.notifier != nil && s.recipients != nil {
		// Hourly check for users who need notifications
		if _, err := s.scheduler.Cron("0 * * * *").Do(func() {
			if _, err := s.SendReminders(ctx); err != nil {
				s.logger.Error("Sending reminders failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule reminders: %w", err)
		}
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.scheduler.Jobs())))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunRollover assigns today's challenge to every user still on an old day
func (s *Scheduler) RunRollover(ctx context.Context) (int, error) {
	n, err := s.coach.RolloverAll(ctx)
	s.logger.Info("Rollover sweep finished", zap.Int("rolled_over", n))
	return n, err
}

// SendReminders notifies users whose reminder hour is now and whose
// challenge is still open. Outside the notification window nothing is sent.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	if s.notifier == nil || s.recipients == nil {
		return 0, nil
	}
	hour := s.now().In(s.opts.Location).Hour()
	if hour < s.opts.StartHour || hour > s.opts.EndHour {
		s.logger.Debug("Outside notification hours, skipping reminders",
			zap.Int("hour", hour), zap.Int("start", s.opts.StartHour), zap.Int("end", s.opts.EndHour))
		return 0, nil
	}

	users, err := s.recipients.GetUsersForNotification(ctx, hour)
	if err != nil {
		return 0, fmt.Errorf("failed to get users for notification: %w", err)
	}

	sent := 0
	for _, user := range users {
		ok, err := s.RunManualCheck(ctx, user.ID)
		if err != nil {
			s.logger.Warn("Failed to remind user", zap.Int64("user_id", user.ID), zap.Error(err))
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// RunManualCheck reminds one user if today's challenge is still open and
// reports whether a reminder went out
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) (bool, error) {
	if s.notifier == nil {
		return false, nil
	}
	p, err := s.coach.Progress(ctx, userID)
	if err != nil {
		return false, err
	}
	if !p.PretestCompleted || p.ChallengeCompleted {
		return false, nil
	}
	if err := s.notifier.SendReminder(ctx, userID, p); err != nil {
		return false, err
	}
	return true, nil
}
