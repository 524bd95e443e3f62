package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CurrentProgressVersion is the schema version written by Normalize.
const CurrentProgressVersion = 3

// ErrCorruptColumn is returned when a JSON list column cannot be decoded
var ErrCorruptColumn = errors.New("corrupt column")

// Difficulty is the tier of a daily challenge
type Difficulty string

const (
	Standard Difficulty = "Standard"
	Hard     Difficulty = "Hard"
	Elite    Difficulty = "Elite"
)

// Difficulties lists tiers from easiest to hardest
var Difficulties = []Difficulty{Standard, Hard, Elite}

// ParseDifficulty matches a tier name case-insensitively
func ParseDifficulty(s string) (Difficulty, bool) {
	for _, d := range Difficulties {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, true
		}
	}
	return Standard, false
}

// UserProgress is the single progression record kept per user.
// JSON names follow the record shape stored by earlier clients, so old
// payloads load without translation.
type UserProgress struct {
	UserID           int64 `json:"userId" db:"user_id"`
	Version          int   `json:"version" db:"version"`
	Revision         int64 `json:"revision" db:"revision"` // Optimistic concurrency counter, owned by the store
	PretestCompleted bool  `json:"pretestCompleted" db:"pretest_completed"`

	Level      int `json:"level" db:"level"`
	XP         int `json:"xp" db:"xp"`
	TotalXP    int `json:"totalXP" db:"total_xp"`
	Streak     int `json:"streak" db:"streak"`
	BestStreak int `json:"bestStreak" db:"best_streak"`

	TotalCompleted  int `json:"totalCompleted" db:"total_completed"`
	HardCompleted   int `json:"hardCompleted" db:"hard_completed"`
	EliteCompleted  int `json:"eliteCompleted" db:"elite_completed"`
	NoRefreshStreak int `json:"noRefreshStreak" db:"no_refresh_streak"`
	DaysTrained     int `json:"daysTrained" db:"days_trained"`

	LastCompletionDate Day `json:"lastCompletionDate" db:"last_completion_date"`
	ChallengeDate      Day `json:"challengeDate" db:"challenge_date"`
	GraceTokenUsedDate Day `json:"graceTokenUsedDate" db:"grace_token_used_date"`

	CurrentChallenge     string     `json:"currentChallenge" db:"current_challenge"`
	ChallengeDifficulty  Difficulty `json:"challengeDifficulty" db:"challenge_difficulty"`
	ChallengeCompleted   bool       `json:"challengeCompleted" db:"challenge_completed"`
	RefreshCountToday    int        `json:"refreshCountToday" db:"refresh_count_today"`
	RefreshUsedOnCurrent bool       `json:"refreshUsedOnCurrent" db:"refresh_used_on_current"`

	CompletedChallenges StringList     `json:"completedChallenges" db:"completed_challenges"`
	CompletedLessons    IntList        `json:"completedLessons" db:"completed_lessons"`
	Reflections         ReflectionList `json:"reflections" db:"reflections"`
	EarnedBadges        StringList     `json:"earnedBadges" db:"earned_badges"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Clone returns a copy that shares no slices with p
func (p UserProgress) Clone() UserProgress {
	c := p
	c.CompletedChallenges = append(StringList(nil), p.CompletedChallenges...)
	c.CompletedLessons = append(IntList(nil), p.CompletedLessons...)
	c.Reflections = append(ReflectionList(nil), p.Reflections...)
	c.EarnedBadges = append(StringList(nil), p.EarnedBadges...)
	return c
}

// HasLesson reports whether the lesson was already completed
func (p UserProgress) HasLesson(id int) bool {
	for _, l := range p.CompletedLessons {
		if l == id {
			return true
		}
	}
	return false
}

// HasBadge reports whether the badge id is in the earned set
func (p UserProgress) HasBadge(id string) bool {
	for _, b := range p.EarnedBadges {
		if b == id {
			return true
		}
	}
	return false
}

// StringList is stored as a JSON array in a text column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	return marshalColumn(l, "[]")
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	return unmarshalColumn(src, l)
}

// IntList is stored as a JSON array in a text column
type IntList []int

// Value implements driver.Valuer
func (l IntList) Value() (driver.Value, error) {
	return marshalColumn(l, "[]")
}

// Scan implements sql.Scanner
func (l *IntList) Scan(src interface{}) error {
	return unmarshalColumn(src, l)
}

// ReflectionList is stored as a JSON array in a text column
type ReflectionList []Reflection

// Value implements driver.Valuer
func (l ReflectionList) Value() (driver.Value, error) {
	return marshalColumn(l, "[]")
}

// Scan implements sql.Scanner
func (l *ReflectionList) Scan(src interface{}) error {
	return unmarshalColumn(src, l)
}

func marshalColumn(v interface{}, empty string) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal column: %w", err)
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

// unmarshalColumn tolerates NULL and empty text so that rows written by
// older schemas still scan.
func unmarshalColumn(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrCorruptColumn, src)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptColumn, err)
	}
	return nil
}
