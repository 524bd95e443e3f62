package progression

// Reason explains why an action was rejected
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonAlreadyCompleted Reason = "already_completed"
	ReasonRefreshCap       Reason = "refresh_cap"
	ReasonLessonDone       Reason = "lesson_done"
	ReasonUnknownLesson    Reason = "unknown_lesson"
	ReasonNotOnboarded     Reason = "not_onboarded"
)

// Reward itemizes the XP granted for a completion
type Reward struct {
	Base            int `json:"base"`
	DifficultyBonus int `json:"difficultyBonus"`
	Penalty         int `json:"penalty"`
	NoRefreshBonus  int `json:"noRefreshBonus"`
	MilestoneBonus  int `json:"milestoneBonus"`
}

// Total is the XP added to the record
func (r Reward) Total() int {
	return r.Base + r.DifficultyBonus - r.Penalty + r.NoRefreshBonus + r.MilestoneBonus
}

// Outcome describes what an operation did to the record. Rejected actions
// leave the record unchanged apart from any rollover that preceded them.
type Outcome struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason,omitempty"`

	// Rollover effects
	RolledOver     bool `json:"rolledOver"`
	StreakBroken   bool `json:"streakBroken"`
	GraceTokenUsed bool `json:"graceTokenUsed"`

	// Completion effects
	Reward        Reward `json:"reward"`
	XPEarned      int    `json:"xpEarned"`
	LeveledUp     bool   `json:"leveledUp"`
	PreviousLevel int    `json:"previousLevel"`
	Milestone     bool   `json:"milestone"`
}

func rejected(o Outcome, reason Reason) Outcome {
	o.Accepted = false
	o.Reason = reason
	return o
}
