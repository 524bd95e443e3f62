package progression

import (
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
)

// Complete records completion of today's challenge. Completing twice on the
// same day is a no-op.
func (e *Engine) Complete(p models.UserProgress, now time.Time) (models.UserProgress, Outcome) {
	p, out := e.Rollover(p, now)
	if p.ChallengeCompleted {
		return p, rejected(out, ReasonAlreadyCompleted)
	}
	today := e.Today(now)

	reward := Reward{Base: e.cfg.BaseReward}
	switch p.ChallengeDifficulty {
	case models.Hard:
		reward.DifficultyBonus = e.cfg.HardBonus
	case models.Elite:
		reward.DifficultyBonus = 2 * e.cfg.HardBonus
	}

	if !p.RefreshUsedOnCurrent {
		reward.NoRefreshBonus = e.cfg.NoRefreshBonus
		p.NoRefreshStreak++
	} else {
		p.NoRefreshStreak = 0
		gross := reward.Base + reward.DifficultyBonus
		reward.Penalty = gross - gross*(100-e.cfg.RefreshPenaltyPercent)/100
	}

	previousStreak := p.Streak
	p.Streak = e.nextStreak(p, today)
	if p.Streak != previousStreak && e.isMilestone(p.Streak) {
		reward.MilestoneBonus = e.cfg.MilestoneBonus
		out.Milestone = true
	}
	if p.Streak > p.BestStreak {
		p.BestStreak = p.Streak
	}

	switch p.ChallengeDifficulty {
	case models.Hard:
		p.HardCompleted++
	case models.Elite:
		p.EliteCompleted++
	}
	p.TotalCompleted++
	if p.LastCompletionDate != today {
		p.DaysTrained++
	}

	p.CompletedChallenges = appendBounded(p.CompletedChallenges, p.CurrentChallenge, e.cfg.HistoryCap)

	out.PreviousLevel = p.Level
	out.Reward = reward
	out.XPEarned = reward.Total()
	p = e.addXP(p, out.XPEarned)
	out.LeveledUp = p.Level > out.PreviousLevel

	e.checkDifficultyIncrease(p)

	p.ChallengeCompleted = true
	p.LastCompletionDate = today
	out.Accepted = true
	return p, out
}

// nextStreak applies day adjacency against the last completion. A gap of two
// days is bridged when today's rollover spent a grace token on it.
func (e *Engine) nextStreak(p models.UserProgress, today models.Day) int {
	gap, ok := p.LastCompletionDate.DaysUntil(today)
	if !ok {
		return 1
	}
	switch {
	case gap == 1:
		return p.Streak + 1
	case gap == 0:
		return p.Streak
	case gap == 2 && p.GraceTokenUsedDate == today:
		return p.Streak + 1
	default:
		return 1
	}
}

func (e *Engine) isMilestone(streak int) bool {
	for _, m := range e.cfg.StreakMilestones {
		if streak == m {
			return true
		}
	}
	return false
}

// checkDifficultyIncrease is kept as a hook for "harder every 7 challenges".
// Difficulty already follows level, so it intentionally changes nothing.
func (e *Engine) checkDifficultyIncrease(models.UserProgress) {}

// Refresh swaps today's challenge for another one at the same tier. The cost
// is paid at completion time through the penalty and the lost bonus.
func (e *Engine) Refresh(p models.UserProgress, now time.Time) (models.UserProgress, Outcome) {
	p, out := e.Rollover(p, now)
	if p.ChallengeCompleted {
		return p, rejected(out, ReasonAlreadyCompleted)
	}
	if p.RefreshCountToday >= e.cfg.DailyRefreshCap {
		return p, rejected(out, ReasonRefreshCap)
	}

	p.RefreshCountToday++
	p.RefreshUsedOnCurrent = true
	p.CurrentChallenge = e.catalog.Pick(e.rng, p.Level, p.ChallengeDifficulty, p.CompletedChallenges)

	out.Accepted = true
	return p, out
}

// RefreshesLeft returns how many refreshes remain today
func (e *Engine) RefreshesLeft(p models.UserProgress) int {
	left := e.cfg.DailyRefreshCap - p.RefreshCountToday
	if left < 0 {
		return 0
	}
	return left
}

// appendBounded appends v and drops the oldest entries beyond limit
func appendBounded(list models.StringList, v string, limit int) models.StringList {
	list = append(list, v)
	if len(list) > limit {
		list = append(models.StringList(nil), list[len(list)-limit:]...)
	}
	return list
}
