package progression

import "github.com/Coin333/courage-reps/pkg/models"

// XPThreshold returns the XP needed to leave level. Levels covered by the
// schedule use it directly; each level past it doubles XPScaleBase.
func (e *Engine) XPThreshold(level int) int {
	if level < 1 {
		level = 1
	}
	if level <= len(e.cfg.XPSchedule) {
		return e.cfg.XPSchedule[level-1]
	}
	shift := level - len(e.cfg.XPSchedule)
	if shift > 30 {
		shift = 30
	}
	return e.cfg.XPScaleBase << uint(shift)
}

// addXP credits xp to the record and normalizes the level
func (e *Engine) addXP(p models.UserProgress, xp int) models.UserProgress {
	if xp < 0 {
		xp = 0
	}
	p.XP += xp
	p.TotalXP += xp
	return e.normalizeLevel(p)
}

// normalizeLevel converts surplus XP into levels. At MaxLevel the surplus is
// dropped so xp stays below the threshold; TotalXP keeps it.
func (e *Engine) normalizeLevel(p models.UserProgress) models.UserProgress {
	if p.Level < 1 {
		p.Level = 1
	}
	if p.Level > e.cfg.MaxLevel {
		p.Level = e.cfg.MaxLevel
	}
	if p.XP < 0 {
		p.XP = 0
	}
	for p.XP >= e.XPThreshold(p.Level) && p.Level < e.cfg.MaxLevel {
		p.XP -= e.XPThreshold(p.Level)
		p.Level++
	}
	if limit := e.XPThreshold(p.Level); p.XP >= limit {
		p.XP = limit - 1
	}
	return p
}

// LevelProgress returns how far the record is through its current level, in [0, 1)
func (e *Engine) LevelProgress(p models.UserProgress) float64 {
	threshold := e.XPThreshold(p.Level)
	if threshold <= 0 || p.XP <= 0 {
		return 0
	}
	f := float64(p.XP) / float64(threshold)
	if f >= 1 {
		return float64(threshold-1) / float64(threshold)
	}
	return f
}

// XPToNextLevel returns the XP still missing before the next level, or 0 at
// the maximum level.
func (e *Engine) XPToNextLevel(p models.UserProgress) int {
	if p.Level >= e.cfg.MaxLevel {
		return 0
	}
	left := e.XPThreshold(p.Level) - p.XP
	if left < 0 {
		return 0
	}
	return left
}
