// Package ai turns a free-text reflection into structured coaching feedback.
//
// Remote analyzers may fail; callers run them through Run, which always
// produces a usable models.Feedback and never reports the error upward.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Coin333/courage-reps/pkg/models"
)

// Request is the input to an analyzer
type Request struct {
	Reflection string
	Challenge  string // Optional
}

// Analyzer produces feedback for a reflection
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (models.Feedback, error)
}

// ErrMalformed is returned when a remote model answers with something that is
// not a feedback object
var ErrMalformed = errors.New("malformed feedback")

// Fallback is the feedback used when analysis fails
func Fallback() models.Feedback {
	return models.Feedback{
		Strengths:    []string{"You completed the challenge and took time to reflect on it"},
		Improvements: []string{"Note one specific moment you would handle differently next time"},
		NextFocus:    "For your next rep, focus on staying present for the whole interaction.",
	}
}

// unconfiguredFeedback tells the user how to turn remote analysis on
func unconfiguredFeedback(provider string) models.Feedback {
	return models.Feedback{
		Strengths:    []string{"Your reflection was saved"},
		Improvements: []string{fmt.Sprintf("AI feedback is not configured for provider %q", provider)},
		NextFocus:    "Set OPENAI_API_KEY or GEMINI_API_KEY, or use FEEDBACK_PROVIDER=local, to enable feedback.",
	}
}

// Unconfigured stands in for a remote provider without credentials
type Unconfigured struct {
	Provider string
}

// Analyze always returns setup instructions
func (u Unconfigured) Analyze(context.Context, Request) (models.Feedback, error) {
	return unconfiguredFeedback(u.Provider), nil
}

const systemPrompt = "You are a supportive social-confidence coach. " +
	"Given a user's reflection on a social courage challenge, reply with JSON only: " +
	`{"strengths": [1-3 short strings], "improvements": [1-3 short strings], "nextFocus": "one sentence"}.`

func userPrompt(req Request) string {
	var b strings.Builder
	if req.Challenge != "" {
		fmt.Fprintf(&b, "Challenge: %s\n", req.Challenge)
	}
	fmt.Fprintf(&b, "Reflection: %s", req.Reflection)
	return b.String()
}

// parseFeedback decodes a model answer. Code fences around the JSON are
// tolerated; anything else missing a field is ErrMalformed.
func parseFeedback(text string) (models.Feedback, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var fb models.Feedback
	if err := json.Unmarshal([]byte(text), &fb); err != nil {
		return models.Feedback{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	fb.Strengths = cleanList(fb.Strengths)
	fb.Improvements = cleanList(fb.Improvements)
	fb.NextFocus = strings.TrimSpace(fb.NextFocus)
	if len(fb.Strengths) == 0 || len(fb.Improvements) == 0 || fb.NextFocus == "" {
		return models.Feedback{}, fmt.Errorf("%w: missing fields", ErrMalformed)
	}
	return fb, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		if len(out) == 3 {
			break
		}
	}
	return out
}
