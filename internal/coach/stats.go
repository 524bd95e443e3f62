package coach

import (
	"context"
	"time"

	"github.com/Coin333/courage-reps/internal/badges"
	"github.com/Coin333/courage-reps/pkg/models"
)

// Stats is the dashboard view of a user
type Stats struct {
	Progress            models.UserProgress `json:"progress"`
	Title               badges.Title        `json:"title"`
	LevelProgress       float64             `json:"levelProgress"`
	XPToNextLevel       int                 `json:"xpToNextLevel"`
	RefreshesLeft       int                 `json:"refreshesLeft"`
	GraceTokenAvailable bool                `json:"graceTokenAvailable"`
	BadgesEarned        int                 `json:"badgesEarned"`
	BadgesTotal         int                 `json:"badgesTotal"`
	UntilNextChallenge  time.Duration       `json:"untilNextChallenge"`
	Log                 *models.Statistics  `json:"log,omitempty"` // Nil without a completion log
}

// Stats summarizes the record and the completion log of userID. Active days
// cover the last seven days including today.
func (s *Service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	p, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	stats := &Stats{
		Progress:            p,
		Title:               badges.CurrentTitle(p.Level),
		LevelProgress:       s.engine.LevelProgress(p),
		XPToNextLevel:       s.engine.XPToNextLevel(p),
		RefreshesLeft:       s.engine.RefreshesLeft(p),
		GraceTokenAvailable: s.engine.GraceTokenAvailable(p, now),
		BadgesEarned:        len(p.EarnedBadges),
		BadgesTotal:         len(badges.All()),
		UntilNextChallenge:  s.engine.TimeUntilRollover(now),
	}

	if s.completions != nil {
		log, err := s.completions.Statistics(ctx, userID, weekStart(s.engine.Today(now)))
		if err != nil {
			return nil, err
		}
		stats.Log = log
	}
	return stats, nil
}

func weekStart(today models.Day) models.Day {
	t, ok := today.Date()
	if !ok {
		return today
	}
	return models.DayOf(t.AddDate(0, 0, -6), time.UTC)
}
