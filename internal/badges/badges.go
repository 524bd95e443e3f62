// Package badges evaluates achievement badges and level titles over a
// progress record.
package badges

import (
	"github.com/Coin333/courage-reps/pkg/models"
)

// Badge is an achievement unlocked once its measure reaches Target.
// IDs are persisted in earned-badge sets and must stay stable.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Target      int    `json:"target"`
	measure     func(p models.UserProgress) int
}

// Status is the evaluation of one badge against a record
type Status struct {
	Badge
	Current  int     `json:"current"` // Capped at Target
	Fraction float64 `json:"fraction"`
	Earned   bool    `json:"earned"`
}

// Title is the name shown for a level
type Title struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

var all = []Badge{
	{ID: "first_rep", Name: "First Rep", Description: "Complete your first challenge", Icon: "🎯", Target: 1,
		measure: func(p models.UserProgress) int { return p.TotalCompleted }},
	{ID: "week_warrior", Name: "Week Warrior", Description: "Maintain a 7-day streak", Icon: "🔥", Target: 7,
		measure: longestStreak},
	{ID: "hard_charger", Name: "Hard Charger", Description: "Complete your first Hard challenge", Icon: "💪", Target: 1,
		measure: func(p models.UserProgress) int { return p.HardCompleted }},
	{ID: "thirty_strong", Name: "Thirty Strong", Description: "Complete 30 challenges", Icon: "🏆", Target: 30,
		measure: func(p models.UserProgress) int { return p.TotalCompleted }},
	{ID: "level_five", Name: "Level 5 Achieved", Description: "Reach Level 5: Social Dominance", Icon: "⭐", Target: 5,
		measure: func(p models.UserProgress) int { return p.Level }},
	{ID: "century", Name: "Century Club", Description: "Complete 100 interactions", Icon: "💯", Target: 100,
		measure: func(p models.UserProgress) int { return p.TotalCompleted }},
	{ID: "no_refresh_week", Name: "Committed", Description: "Complete 7 challenges without refreshing", Icon: "🎖", Target: 7,
		measure: func(p models.UserProgress) int { return p.NoRefreshStreak }},
	{ID: "scholar", Name: "Scholar", Description: "Complete all lessons", Icon: "📚", Target: 10,
		measure: func(p models.UserProgress) int { return len(p.CompletedLessons) }},
	{ID: "month_master", Name: "Month Master", Description: "Maintain a 30-day streak", Icon: "👑", Target: 30,
		measure: longestStreak},
	{ID: "elite_runner", Name: "Elite Runner", Description: "Complete an Elite challenge", Icon: "🌟", Target: 1,
		measure: func(p models.UserProgress) int { return p.EliteCompleted }},
}

var titles = []Title{
	{Name: "Initiate", Level: 1},
	{Name: "Apprentice", Level: 2},
	{Name: "Confident", Level: 3},
	{Name: "Leader", Level: 4},
	{Name: "Dominant", Level: 5},
	{Name: "Influential", Level: 6},
}

func longestStreak(p models.UserProgress) int {
	if p.BestStreak > p.Streak {
		return p.BestStreak
	}
	return p.Streak
}

// All returns the badge definitions in display order
func All() []Badge {
	out := make([]Badge, len(all))
	copy(out, all)
	return out
}

// Lookup finds a badge by id
func Lookup(id string) (Badge, bool) {
	for _, b := range all {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// Earned reports whether the badge predicate holds for p
func (b Badge) Earned(p models.UserProgress) bool {
	return b.measure(p) >= b.Target
}

// Evaluate returns the status of every badge for p. It does not read or
// change the persisted earned set.
func Evaluate(p models.UserProgress) []Status {
	statuses := make([]Status, 0, len(all))
	for _, b := range all {
		current := b.measure(p)
		if current < 0 {
			current = 0
		}
		if current > b.Target {
			current = b.Target
		}
		statuses = append(statuses, Status{
			Badge:    b,
			Current:  current,
			Fraction: float64(current) / float64(b.Target),
			Earned:   current >= b.Target,
		})
	}
	return statuses
}

// CountEarned returns how many badge predicates currently hold
func CountEarned(p models.UserProgress) int {
	n := 0
	for _, b := range all {
		if b.Earned(p) {
			n++
		}
	}
	return n
}

// CheckNew returns badges whose predicate holds but whose id is not yet in
// p.EarnedBadges, and appends those ids to the set. This is the only place
// the earned set is modified.
func CheckNew(p *models.UserProgress) []Badge {
	var fresh []Badge
	for _, b := range all {
		if b.Earned(*p) && !p.HasBadge(b.ID) {
			fresh = append(fresh, b)
			p.EarnedBadges = append(p.EarnedBadges, b.ID)
		}
	}
	return fresh
}

// Titles returns every title with whether level has unlocked it
func Titles(level int) []TitleStatus {
	out := make([]TitleStatus, 0, len(titles))
	for _, t := range titles {
		out = append(out, TitleStatus{Title: t, Unlocked: level >= t.Level})
	}
	return out
}

// TitleStatus pairs a title with its unlock state
type TitleStatus struct {
	Title
	Unlocked bool `json:"unlocked"`
}

// CurrentTitle returns the highest title unlocked at level
func CurrentTitle(level int) Title {
	current := titles[0]
	for _, t := range titles {
		if level >= t.Level {
			current = t
		}
	}
	return current
}
