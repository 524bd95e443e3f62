package progression

import (
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
)

// NewProgress creates the onboarding record for userID at the calibrated
// level and assigns today's first challenge.
func (e *Engine) NewProgress(userID int64, level int, now time.Time) models.UserProgress {
	p := models.UserProgress{
		UserID:              userID,
		Version:             models.CurrentProgressVersion,
		PretestCompleted:    true,
		Level:               level,
		ChallengeDifficulty: models.Standard,
		CreatedAt:           now.UTC(),
		UpdatedAt:           now.UTC(),
	}
	p = e.Normalize(p)
	p, _ = e.Rollover(p, now)
	return p
}

// Blank returns the record used before onboarding or when a stored record
// cannot be read.
func (e *Engine) Blank(userID int64) models.UserProgress {
	return e.Normalize(models.UserProgress{UserID: userID})
}

// Normalize fills missing fields and coerces out-of-range values so that a
// record written by any earlier version satisfies the engine invariants.
// It runs once after load; Revision is left untouched.
func (e *Engine) Normalize(p models.UserProgress) models.UserProgress {
	p = p.Clone()

	if p.Level < 1 {
		p.Level = 1
	}
	if p.Level > e.cfg.MaxLevel {
		p.Level = e.cfg.MaxLevel
	}
	p.TotalXP = nonNegative(p.TotalXP)
	p.Streak = nonNegative(p.Streak)
	p.BestStreak = nonNegative(p.BestStreak)
	if p.BestStreak < p.Streak {
		p.BestStreak = p.Streak
	}
	p.TotalCompleted = nonNegative(p.TotalCompleted)
	p.HardCompleted = nonNegative(p.HardCompleted)
	p.EliteCompleted = nonNegative(p.EliteCompleted)
	p.NoRefreshStreak = nonNegative(p.NoRefreshStreak)
	p.DaysTrained = nonNegative(p.DaysTrained)
	if p.TotalCompleted < p.HardCompleted+p.EliteCompleted {
		p.TotalCompleted = p.HardCompleted + p.EliteCompleted
	}

	p.LastCompletionDate = normalizeDay(p.LastCompletionDate)
	p.ChallengeDate = normalizeDay(p.ChallengeDate)
	p.GraceTokenUsedDate = normalizeDay(p.GraceTokenUsedDate)

	if d, ok := models.ParseDifficulty(string(p.ChallengeDifficulty)); ok {
		p.ChallengeDifficulty = d
	} else {
		p.ChallengeDifficulty = models.Standard
	}
	p.RefreshCountToday = nonNegative(p.RefreshCountToday)
	if p.RefreshCountToday > e.cfg.DailyRefreshCap {
		p.RefreshCountToday = e.cfg.DailyRefreshCap
	}
	if p.RefreshCountToday > 0 {
		p.RefreshUsedOnCurrent = true
	}
	// A challenge without text cannot be completed, so the next access rolls over
	if p.CurrentChallenge == "" {
		p.ChallengeDate = ""
		p.ChallengeCompleted = false
	}

	if p.CompletedChallenges == nil {
		p.CompletedChallenges = models.StringList{}
	}
	if n := len(p.CompletedChallenges); n > e.cfg.HistoryCap {
		p.CompletedChallenges = p.CompletedChallenges[n-e.cfg.HistoryCap:]
	}
	p.CompletedLessons = dedupInts(p.CompletedLessons)
	if p.Reflections == nil {
		p.Reflections = models.ReflectionList{}
	}
	if n := len(p.Reflections); n > e.cfg.ReflectionCap {
		p.Reflections = p.Reflections[n-e.cfg.ReflectionCap:]
	}
	p.EarnedBadges = dedupStrings(p.EarnedBadges)

	// XP last: it depends on the final level
	p = e.normalizeLevel(p)
	if p.TotalXP < p.XP {
		p.TotalXP = p.XP
	}

	p.Version = models.CurrentProgressVersion
	return p
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// normalizeDay keeps only valid calendar days, trimming timestamps to their date
func normalizeDay(d models.Day) models.Day {
	t, ok := d.Date()
	if !ok {
		return ""
	}
	return models.Day(t.Format(models.DayLayout))
}

func dedupStrings(in models.StringList) models.StringList {
	out := make(models.StringList, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func dedupInts(in models.IntList) models.IntList {
	out := make(models.IntList, 0, len(in))
	seen := make(map[int]bool, len(in))
	for _, n := range in {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
