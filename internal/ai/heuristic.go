package ai

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/Coin333/courage-reps/internal/random"
	"github.com/Coin333/courage-reps/pkg/models"
)

var strengthTemplates = []string{
	"You took initiative by approaching the situation directly",
	"You maintained composure during the interaction",
	"You showed genuine interest in the other person",
	"You used open body language signals",
	"You listened actively before responding",
	"You expressed yourself clearly and confidently",
	"You stayed present in the conversation",
	"You showed vulnerability appropriately",
	"You adapted your approach based on feedback",
	"You followed through despite discomfort",
}

var improvementTemplates = []string{
	"Consider making more direct eye contact",
	"Try projecting your voice slightly louder",
	"Practice pausing before responding to show thoughtfulness",
	"Work on asking follow-up questions to deepen connection",
	"Focus on open-ended questions rather than yes/no questions",
	"Try to relax your shoulders and facial muscles",
	"Consider sharing more about yourself to build rapport",
	"Work on ending conversations gracefully",
	"Practice expressing disagreement more directly",
	"Focus on being present rather than planning your next words",
}

var nextFocusTemplates = []string{
	"For your next rep, focus on maintaining eye contact for 3+ seconds during key moments.",
	"Next time, try to ask at least 2 follow-up questions to show genuine interest.",
	"Your next challenge: initiate the conversation rather than waiting for the other person.",
	"Focus on your body language - stand tall and take up space confidently.",
	"Try to share something personal about yourself to build deeper connection.",
	"Work on speaking at a slightly slower pace to convey confidence.",
	"Challenge yourself to hold silence comfortably without rushing to fill it.",
	"Next rep: aim to leave the other person feeling valued and heard.",
	"Focus on your greeting - make it warm and memorable.",
	"Try to steer the conversation toward meaningful topics rather than small talk.",
}

var positiveIndicators = []string{
	"smiled", "laughed", "nodded", "asked", "listened", "responded",
	"confident", "good", "great", "comfortable", "natural", "easy",
}

var challengeIndicators = []string{
	"nervous", "awkward", "uncomfortable", "difficult", "hard",
	"struggled", "forgot", "stumbled", "anxious", "scared",
}

// focusRules map reflection keywords to a next-focus template
var focusRules = []struct {
	keywords []string
	focus    int
}{
	{[]string{"eye contact", "look"}, 0},
	{[]string{"question", "ask"}, 1},
	{[]string{"nervous", "scared"}, 3},
	{[]string{"quiet", "silent"}, 5},
}

// Heuristic is the offline analyzer: keyword scoring plus template sampling
type Heuristic struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewHeuristic creates a heuristic analyzer. seed 0 draws a random seed.
func NewHeuristic(seed int64) *Heuristic {
	if seed == 0 {
		seed = random.Seed()
	}
	return &Heuristic{rnd: rand.New(rand.NewSource(seed))}
}

// Analyze never fails
func (h *Heuristic) Analyze(ctx context.Context, req Request) (models.Feedback, error) {
	text := strings.ToLower(req.Reflection)
	words := len(strings.Fields(req.Reflection))

	// Longer reflections earn more detailed feedback
	count := 1
	switch {
	case words > 30:
		count = 3
	case words > 15:
		count = 2
	}

	positive := countMatches(text, positiveIndicators)
	challenging := countMatches(text, challengeIndicators)

	h.mu.Lock()
	defer h.mu.Unlock()

	strengths := h.sample(strengthTemplates, count+boolInt(positive > 2 && count < 3))
	improvements := h.sample(improvementTemplates, count+boolInt(challenging > 2 && count < 3))
	return models.Feedback{
		Strengths:    strengths,
		Improvements: improvements,
		NextFocus:    h.nextFocus(text),
	}, nil
}

func (h *Heuristic) sample(templates []string, n int) []string {
	if n < 1 {
		n = 1
	}
	if n > 3 {
		n = 3
	}
	out := make([]string, 0, n)
	for _, i := range h.rnd.Perm(len(templates))[:n] {
		out = append(out, templates[i])
	}
	return out
}

func (h *Heuristic) nextFocus(text string) string {
	for _, rule := range focusRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return nextFocusTemplates[rule.focus]
			}
		}
	}
	return nextFocusTemplates[h.rnd.Intn(len(nextFocusTemplates))]
}

func countMatches(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
