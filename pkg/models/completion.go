package models

import "time"

// Completion is one accepted challenge completion, kept for statistics
type Completion struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	Challenge   string     `json:"challenge" db:"challenge"`
	Difficulty  Difficulty `json:"difficulty" db:"difficulty"`
	XPEarned    int        `json:"xp_earned" db:"xp_earned"`
	Streak      int        `json:"streak" db:"streak"`
	Refreshed   bool       `json:"refreshed" db:"refreshed"`
	Day         Day        `json:"day" db:"day"`
	CompletedAt time.Time  `json:"completed_at" db:"completed_at"`
}
