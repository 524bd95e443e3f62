package models

// Statistics summarizes a user's completion log
type Statistics struct {
	UserID         int64          `json:"user_id" db:"user_id"`
	TotalLogged    int            `json:"total_logged" db:"total_logged"`
	XPLogged       int            `json:"xp_logged" db:"xp_logged"`
	ActiveDaysWeek int            `json:"active_days_week" db:"active_days_week"`
	RefreshedCount int            `json:"refreshed_count" db:"refreshed_count"`
	ByDifficulty   map[string]int `json:"by_difficulty" db:"-"`
}
