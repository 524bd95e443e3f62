package models

import "time"

// Feedback is the coaching triple returned for a reflection
type Feedback struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	NextFocus    string   `json:"nextFocus"`
}

// Reflection is a free-text note the user wrote after a challenge
type Reflection struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	ChallengeText string    `json:"challengeText"`
	Reflection    string    `json:"reflection"`
	Analysis      Feedback  `json:"analysis"`
}
