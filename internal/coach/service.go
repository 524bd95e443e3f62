// Package coach runs progression operations against stored records: load,
// apply the engine, evaluate badges and save, retrying on revision conflicts.
package coach

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Coin333/courage-reps/internal/ai"
	"github.com/Coin333/courage-reps/internal/badges"
	"github.com/Coin333/courage-reps/internal/database"
	"github.com/Coin333/courage-reps/internal/pretest"
	"github.com/Coin333/courage-reps/internal/progression"
	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxAttempts bounds the read-modify-write retries of one operation
const MaxAttempts = 3

var (
	// ErrAlreadyOnboarded is returned by Onboard for calibrated users
	ErrAlreadyOnboarded = errors.New("user already completed calibration")
	// ErrEmptyReflection is returned by Reflect for blank text
	ErrEmptyReflection = errors.New("reflection text is empty")
)

// CompletionLog records accepted completions for statistics
type CompletionLog interface {
	Create(ctx context.Context, c *models.Completion) error
	Statistics(ctx context.Context, userID int64, weekStart models.Day) (*models.Statistics, error)
	DeleteByUserID(ctx context.Context, userID int64) error
}

// staleLister is implemented by stores that can find records needing a
// rollover without loading every record
type staleLister interface {
	StaleUserIDs(ctx context.Context, day models.Day) ([]int64, error)
}

// Result is the record after an operation together with what happened
type Result struct {
	Progress  models.UserProgress
	Outcome   progression.Outcome
	NewBadges []badges.Badge
}

// Service coordinates the engine with persistence and feedback
type Service struct {
	engine          *progression.Engine
	store           database.ProgressStore
	completions     CompletionLog
	analyzer        ai.Analyzer
	feedbackTimeout time.Duration
	logger          *zap.Logger
	now             func() time.Time
	newID           func() string

	// background feedback writers
	wg sync.WaitGroup
}

// Option configures a Service
type Option func(*Service)

// WithCompletionLog enables the completion log used by Stats
func WithCompletionLog(log CompletionLog) Option {
	return func(s *Service) { s.completions = log }
}

// WithAnalyzer sets the reflection feedback provider
func WithAnalyzer(a ai.Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithFeedbackTimeout bounds one feedback analysis
func WithFeedbackTimeout(d time.Duration) Option {
	return func(s *Service) { s.feedbackTimeout = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a service
func New(engine *progression.Engine, store database.ProgressStore, opts ...Option) *Service {
	s := &Service{
		engine:          engine,
		store:           store,
		feedbackTimeout: ai.DefaultTimeout,
		logger:          zap.NewNop(),
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.analyzer == nil {
		s.analyzer = ai.NewHeuristic(0)
	}
	return s
}

// Engine returns the engine used by the service
func (s *Service) Engine() *progression.Engine {
	return s.engine
}

// Now returns the service clock
func (s *Service) Now() time.Time {
	return s.now()
}

// Wait blocks until pending feedback writes finish
func (s *Service) Wait() {
	s.wg.Wait()
}

// load reads and normalizes a record. Missing records and records that can
// no longer be decoded come back as a blank record with revision 0.
func (s *Service) load(ctx context.Context, userID int64) (models.UserProgress, error) {
	p, err := s.store.Load(ctx, userID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return s.engine.Blank(userID), nil
	case errors.Is(err, database.ErrCorrupt):
		s.logger.Warn("Discarding unreadable progress record", zap.Int64("user_id", userID), zap.Error(err))
		if err := s.store.Delete(ctx, userID); err != nil {
			return models.UserProgress{}, fmt.Errorf("failed to delete corrupt record: %w", err)
		}
		return s.engine.Blank(userID), nil
	case err != nil:
		return models.UserProgress{}, err
	}
	return s.engine.Normalize(p), nil
}

// mutation computes the next record. It returns false when nothing needs to
// be saved.
type mutation func(p models.UserProgress) (models.UserProgress, bool)

// update runs one read-modify-write cycle, retrying when another writer saved
// the record in between
func (s *Service) update(ctx context.Context, userID int64, mutate mutation) (models.UserProgress, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		current, err := s.load(ctx, userID)
		if err != nil {
			return models.UserProgress{}, err
		}
		next, changed := mutate(current)
		if !changed {
			return next, nil
		}
		next.Revision = current.Revision

		err = s.store.Save(ctx, &next)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, database.ErrRevisionConflict) {
			return models.UserProgress{}, err
		}
		lastErr = err
		s.logger.Debug("Progress save conflicted, retrying",
			zap.Int64("user_id", userID), zap.Int("attempt", attempt))
	}
	return models.UserProgress{}, fmt.Errorf("failed to update progress of user %d: %w", userID, lastErr)
}

// Progress returns the record of userID, rolled over to today. The rollover
// is saved so the day's challenge stays fixed.
func (s *Service) Progress(ctx context.Context, userID int64) (models.UserProgress, error) {
	now := s.now()
	return s.update(ctx, userID, func(p models.UserProgress) (models.UserProgress, bool) {
		if !p.PretestCompleted || !s.engine.NeedsRollover(p, now) {
			return p, false
		}
		p, _ = s.engine.Rollover(p, now)
		return p, true
	})
}

// Onboard scores the calibration answers and creates the user's record at
// the resulting level
func (s *Service) Onboard(ctx context.Context, userID int64, answers []int) (Result, error) {
	level, err := pretest.Score(answers)
	if err != nil {
		return Result{}, err
	}
	return s.OnboardAtLevel(ctx, userID, level)
}

// OnboardAtLevel creates the user's record at a known starting level
func (s *Service) OnboardAtLevel(ctx context.Context, userID int64, level int) (Result, error) {
	now := s.now()
	var onboarded bool
	p, err := s.update(ctx, userID, func(p models.UserProgress) (models.UserProgress, bool) {
		onboarded = p.PretestCompleted
		if onboarded {
			return p, false
		}
		next := s.engine.NewProgress(userID, level, now)
		next.Revision = p.Revision
		return next, true
	})
	if err != nil {
		return Result{}, err
	}
	if onboarded {
		return Result{Progress: p}, ErrAlreadyOnboarded
	}
	s.logger.Info("User onboarded", zap.Int64("user_id", userID), zap.Int("level", p.Level))
	return Result{Progress: p, Outcome: progression.Outcome{Accepted: true, RolledOver: true}}, nil
}

// Complete marks today's challenge done
func (s *Service) Complete(ctx context.Context, userID int64) (Result, error) {
	now := s.now()
	var res Result
	p, err := s.update(ctx, userID, func(p models.UserProgress) (models.UserProgress, bool) {
		res = Result{}
		if !p.PretestCompleted {
			res.Outcome = progression.Outcome{Reason: progression.ReasonNotOnboarded}
			return p, false
		}
		p, res.Outcome = s.engine.Complete(p, now)
		if res.Outcome.Accepted {
			res.NewBadges = badges.CheckNew(&p)
		}
		return p, res.Outcome.Accepted || res.Outcome.RolledOver
	})
	if err != nil {
		return Result{}, err
	}
	res.Progress = p

	if res.Outcome.Accepted {
		s.logCompletion(ctx, p, res.Outcome, now)
		s.logger.Info("Challenge completed",
			zap.Int64("user_id", userID),
			zap.Int("xp", res.Outcome.XPEarned),
			zap.Int("streak", p.Streak),
			zap.Int("level", p.Level))
	}
	return res, nil
}

// logCompletion appends to the completion log. The record is already saved,
// so failures are only logged.
func (s *Service) logCompletion(ctx context.Context, p models.UserProgress, out progression.Outcome, now time.Time) {
	if s.completions == nil {
		return
	}
	entry := &models.Completion{
		UserID:      p.UserID,
		Challenge:   p.CurrentChallenge,
		Difficulty:  p.ChallengeDifficulty,
		XPEarned:    out.XPEarned,
		Streak:      p.Streak,
		Refreshed:   p.RefreshUsedOnCurrent,
		Day:         p.LastCompletionDate,
		CompletedAt: now.UTC(),
	}
	if err := s.completions.Create(ctx, entry); err != nil {
		s.logger.Warn("Failed to log completion", zap.Int64("user_id", p.UserID), zap.Error(err))
	}
}

// Refresh swaps today's challenge
func (s *Service) Refresh(ctx context.Context, userID int64) (Result, error) {
	now := s.now()
	var res Result
	p, err := s.update(ctx, userID, func(p models.UserProgress) (models.UserProgress, bool) {
		res = Result{}
		if !p.PretestCompleted {
			res.Outcome = progression.Outcome{Reason: progression.ReasonNotOnboarded}
			return p, false
		}
		p, res.Outcome = s.engine.Refresh(p, now)
		return p, res.Outcome.Accepted || res.Outcome.RolledOver
	})
	if err != nil {
		return Result{}, err
	}
	res.Progress = p
	return res, nil
}

// CompleteLesson credits a lesson
func (s *Service) CompleteLesson(ctx context.Context, userID int64, lessonID int) (Result, error) {
	var res Result
	p, err := s.update(ctx, userID, func(p models.UserProgress) (models.UserProgress, bool) {
		res = Result{}
		if !p.PretestCompleted {
			res.Outcome = progression.Outcome{Reason: progression.ReasonNotOnboarded}
			return p, false
		}
		p, res.Outcome = s.engine.CompleteLesson(p, lessonID)
		if res.Outcome.Accepted {
			res.NewBadges = badges.CheckNew(&p)
		}
		return p, res.Outcome.Accepted
	})
	if err != nil {
		return Result{}, err
	}
	res.Progress = p
	return res, nil
}

// Badges returns the status of every badge for userID
func (s *Service) Badges(ctx context.Context, userID int64) ([]badges.Status, error) {
	p, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return badges.Evaluate(p), nil
}

// Reset deletes all progress of userID
func (s *Service) Reset(ctx context.Context, userID int64) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	if s.completions != nil {
		if err := s.completions.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to reset completion log: %w", err)
		}
	}
	s.logger.Info("Progress reset", zap.Int64("user_id", userID))
	return nil
}

// RolloverAll moves every onboarded record to today and returns how many
// records changed. A failing record does not stop the sweep.
func (s *Service) RolloverAll(ctx context.Context) (int, error) {
	now := s.now()
	var (
		ids []int64
		err error
	)
	if lister, ok := s.store.(staleLister); ok {
		ids, err = lister.StaleUserIDs(ctx, s.engine.Today(now))
	} else {
		ids, err = s.store.UserIDs(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list users for rollover: %w", err)
	}

	var (
		count int
		errs  []error
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		var rolled bool
		_, err := s.update(ctx, id, func(p models.UserProgress) (models.UserProgress, bool) {
			rolled = false
			if !p.PretestCompleted || !s.engine.NeedsRollover(p, now) {
				return p, false
			}
			p, _ = s.engine.Rollover(p, now)
			rolled = true
			return p, true
		})
		if err != nil {
			s.logger.Error("Rollover failed", zap.Int64("user_id", id), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if rolled {
			count++
		}
	}
	return count, errors.Join(errs...)
}
