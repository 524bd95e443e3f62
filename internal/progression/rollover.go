package progression

import (
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
)

// Today returns the calendar day of now in the engine's location
func (e *Engine) Today(now time.Time) models.Day {
	return models.DayOf(now, e.cfg.Location)
}

// TimeUntilRollover returns the time left until the next local midnight
func (e *Engine) TimeUntilRollover(now time.Time) time.Duration {
	local := now.In(e.cfg.Location)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, e.cfg.Location)
	return midnight.Sub(local)
}

// NeedsRollover reports whether the record's challenge belongs to another day
func (e *Engine) NeedsRollover(p models.UserProgress, now time.Time) bool {
	return p.ChallengeDate != e.Today(now)
}

// Rollover moves the record to today: checks streak continuity, resets the
// day-scoped counters and assigns a new challenge. A record already on today
// is returned unchanged.
func (e *Engine) Rollover(p models.UserProgress, now time.Time) (models.UserProgress, Outcome) {
	p = p.Clone()
	out := Outcome{Accepted: true}
	today := e.Today(now)
	if p.ChallengeDate == today {
		return p, out
	}
	out.RolledOver = true

	if gap, ok := p.LastCompletionDate.DaysUntil(today); ok && gap > 1 {
		if gap == 2 && e.graceTokenAvailable(p, today) {
			p.GraceTokenUsedDate = today
			out.GraceTokenUsed = true
		} else {
			out.StreakBroken = p.Streak > 0
			p.Streak = 0
		}
	}

	p.RefreshCountToday = 0
	p.RefreshUsedOnCurrent = false

	tier := e.drawDifficulty(p.Level)
	p.CurrentChallenge = e.catalog.Pick(e.rng, p.Level, tier, p.CompletedChallenges)
	p.ChallengeDifficulty = tier
	p.ChallengeDate = today
	p.ChallengeCompleted = false

	return p, out
}

// graceTokenAvailable is true when no token was ever used or the last one is
// at least GraceCooldownDays old.
func (e *Engine) graceTokenAvailable(p models.UserProgress, today models.Day) bool {
	if p.GraceTokenUsedDate.IsZero() {
		return true
	}
	since, ok := p.GraceTokenUsedDate.DaysUntil(today)
	if !ok {
		return true
	}
	return since >= e.cfg.GraceCooldownDays
}

// GraceTokenAvailable reports whether a grace token could be spent today
func (e *Engine) GraceTokenAvailable(p models.UserProgress, now time.Time) bool {
	return e.graceTokenAvailable(p, e.Today(now))
}

// drawDifficulty picks the tier for a new day. Higher levels unlock harder
// tiers; each day is an independent draw.
func (e *Engine) drawDifficulty(level int) models.Difficulty {
	if level >= 5 && e.rng.Float64() < e.cfg.EliteChance {
		return models.Elite
	}
	if level >= 3 && e.rng.Float64() < e.cfg.HardChance {
		return models.Hard
	}
	return models.Standard
}
