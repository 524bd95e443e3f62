package coach

import (
	"context"
	"errors"
	"strings"

	"github.com/Coin333/courage-reps/internal/ai"
	"github.com/Coin333/courage-reps/pkg/models"
	"go.uber.org/zap"
)

// ErrNotOnboarded is returned by operations that need a calibrated user
var ErrNotOnboarded = errors.New("user has not completed calibration")

// Reflect stores a reflection on today's challenge and starts analyzing it.
// The analysis is written back to the record when it finishes; the returned
// task lets callers show the feedback as soon as it is ready.
func (s *Service) Reflect(ctx context.Context, userID int64, text string) (models.Reflection, *ai.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Reflection{}, nil, ErrEmptyReflection
	}

	now := s.now()
	r := models.Reflection{ID: s.newID(), Date: now.UTC(), Reflection: text}
	var onboarded bool
	_, err := s.update(ctx, userID, func(p models.UserProgress) (models.UserProgress, bool) {
		onboarded = p.PretestCompleted
		if !onboarded {
			return p, false
		}
		r.ChallengeText = p.CurrentChallenge
		return s.engine.AddReflection(p, r), true
	})
	if err != nil {
		return models.Reflection{}, nil, err
	}
	if !onboarded {
		return models.Reflection{}, nil, ErrNotOnboarded
	}

	req := ai.Request{Reflection: r.Reflection, Challenge: r.ChallengeText}
	task := ai.Run(context.WithoutCancel(ctx), s.analyzer, req, s.feedbackTimeout, s.logger)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-task.Done()
		res, _ := task.Result()
		s.saveFeedback(context.Background(), userID, r.ID, res.Feedback)
	}()
	return r, task, nil
}

// saveFeedback attaches feedback to a stored reflection. Progression fields
// are left alone so a concurrent completion never loses XP.
func (s *Service) saveFeedback(ctx context.Context, userID int64, reflectionID string, fb models.Feedback) {
	var found bool
	_, err := s.update(ctx, userID, func(p models.UserProgress) (models.UserProgress, bool) {
		p, found = s.engine.UpdateReflection(p, reflectionID, fb)
		return p, found
	})
	if err != nil {
		s.logger.Error("Failed to save reflection feedback",
			zap.Int64("user_id", userID), zap.String("reflection_id", reflectionID), zap.Error(err))
		return
	}
	if !found {
		s.logger.Debug("Reflection gone before feedback arrived",
			zap.Int64("user_id", userID), zap.String("reflection_id", reflectionID))
	}
}

// Reflections returns the stored reflections of userID, newest first
func (s *Service) Reflections(ctx context.Context, userID int64) ([]models.Reflection, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Reflection, 0, len(p.Reflections))
	for i := len(p.Reflections) - 1; i >= 0; i-- {
		out = append(out, p.Reflections[i])
	}
	return out, nil
}
