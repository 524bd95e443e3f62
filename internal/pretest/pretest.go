// Package pretest scores the onboarding questionnaire that picks a user's
// starting level.
package pretest

import (
	"fmt"
)

// Option is one answer to a question, scored from 1 (most hesitant) to 5
// (most confident)
type Option struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// Question is a single calibration question
type Question struct {
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

const (
	MinScore = 1
	MaxScore = 5
)

var questions = []Question{
	{
		Text: "When entering a room full of strangers, you typically:",
		Options: []Option{
			{"Look for a corner to stand in and avoid eye contact", 1},
			{"Stay near the entrance and observe before moving in", 2},
			{"Find one person who looks approachable to talk to", 3},
			{"Walk in comfortably and scan for people to meet", 4},
			{"Introduce yourself to multiple people right away", 5},
		},
	},
	{
		Text: "When someone you barely know makes eye contact with you, you:",
		Options: []Option{
			{"Look away immediately", 1},
			{"Give a quick glance then look elsewhere", 2},
			{"Hold eye contact briefly, then look away naturally", 3},
			{"Smile and nod at them", 4},
			{"Smile and initiate a greeting or conversation", 5},
		},
	},
	{
		Text: "If you need to return an item at a store, you would:",
		Options: []Option{
			{"Ask someone else to do it or avoid returning it", 1},
			{"Feel anxious and rehearse what to say beforehand", 2},
			{"Feel slightly uncomfortable but handle it", 3},
			{"Do it without much thought", 4},
			{"Handle it easily and chat with the employee", 5},
		},
	},
	{
		Text: "In group conversations, you usually:",
		Options: []Option{
			{"Stay silent and listen", 1},
			{"Speak only when directly asked a question", 2},
			{"Occasionally share your thoughts", 3},
			{"Contribute regularly to the conversation", 4},
			{"Often lead or direct the conversation", 5},
		},
	},
	{
		Text: "When you disagree with someone, you typically:",
		Options: []Option{
			{"Stay quiet to avoid conflict", 1},
			{"Agree outwardly but disagree internally", 2},
			{"Express disagreement if it's important enough", 3},
			{"Share your different perspective calmly", 4},
			{"Directly state your disagreement and explain why", 5},
		},
	},
}

// Questions returns the questionnaire in order
func Questions() []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}

// Count is the number of questions that must be answered
func Count() int {
	return len(questions)
}

// LevelForAverage maps an average score to a starting level:
// <1.8 -> 1, <2.6 -> 2, <3.4 -> 3, <4.2 -> 4, otherwise 5.
func LevelForAverage(avg float64) int {
	switch {
	case avg < 1.8:
		return 1
	case avg < 2.6:
		return 2
	case avg < 3.4:
		return 3
	case avg < 4.2:
		return 4
	default:
		return 5
	}
}

// Score validates one score per question and returns the starting level
func Score(scores []int) (int, error) {
	if len(scores) != len(questions) {
		return 0, fmt.Errorf("expected %d answers, got %d", len(questions), len(scores))
	}
	total := 0
	for i, s := range scores {
		if s < MinScore || s > MaxScore {
			return 0, fmt.Errorf("answer %d: score %d out of range %d-%d", i+1, s, MinScore, MaxScore)
		}
		total += s
	}
	return LevelForAverage(float64(total) / float64(len(scores))), nil
}

// Session walks one user through the questionnaire
type Session struct {
	scores []int
}

// NewSession starts an empty questionnaire
func NewSession() *Session {
	return &Session{scores: make([]int, 0, len(questions))}
}

// Current returns the question awaiting an answer and its index
func (s *Session) Current() (Question, int, bool) {
	if s.Done() {
		return Question{}, len(s.scores), false
	}
	return questions[len(s.scores)], len(s.scores), true
}

// Answer records the chosen option of the current question
func (s *Session) Answer(option int) error {
	q, _, ok := s.Current()
	if !ok {
		return fmt.Errorf("questionnaire already finished")
	}
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("option %d out of range", option)
	}
	s.scores = append(s.scores, q.Options[option].Score)
	return nil
}

// Back discards the last answer
func (s *Session) Back() {
	if len(s.scores) > 0 {
		s.scores = s.scores[:len(s.scores)-1]
	}
}

// Done reports whether every question has been answered
func (s *Session) Done() bool {
	return len(s.scores) >= len(questions)
}

// Level scores a finished session
func (s *Session) Level() (int, error) {
	return Score(s.scores)
}
