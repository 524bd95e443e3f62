package progression

import (
	"testing"

	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const (
	opComplete = iota
	opRefresh
	opNextDay
	opSkipDays
	opLesson
	opCount
)

func propertyEngine(seed int64) *Engine {
	cfg := DefaultConfig()
	cfg.Location = day0.Location()
	e, err := New(cfg, catalog.Default(), NewLockedRand(seed))
	if err != nil {
		panic(err)
	}
	return e
}

func invariantsHold(e *Engine, p models.UserProgress) bool {
	return p.XP >= 0 &&
		p.XP < e.XPThreshold(p.Level) &&
		p.Level >= 1 && p.Level <= e.Config().MaxLevel &&
		p.BestStreak >= p.Streak &&
		p.Streak >= 0 &&
		p.RefreshCountToday <= e.Config().DailyRefreshCap &&
		len(p.CompletedChallenges) <= e.Config().HistoryCap
}

// TestEngineInvariants replays random action sequences and checks the record
// invariants after every step.
func TestEngineInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("xp stays below threshold and best streak covers streak", prop.ForAll(
		func(seed int64, level int, xp int, ops []int) bool {
			e := propertyEngine(seed)
			p := e.NewProgress(1, level, daysAfter(0))
			p.XP = xp
			p = e.Normalize(p)
			if !invariantsHold(e, p) {
				return false
			}

			offset := 0
			totalXP := p.TotalXP
			for i, op := range ops {
				switch op % opCount {
				case opComplete:
					p, _ = e.Complete(p, daysAfter(offset))
				case opRefresh:
					p, _ = e.Refresh(p, daysAfter(offset))
				case opNextDay:
					offset++
					p, _ = e.Rollover(p, daysAfter(offset))
				case opSkipDays:
					offset += 2 + i%3
				case opLesson:
					p, _ = e.CompleteLesson(p, 1+i%12)
				}
				if !invariantsHold(e, p) || p.TotalXP < totalXP {
					return false
				}
				totalXP = p.TotalXP
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(-2, 9),
		gen.IntRange(0, 5000),
		gen.SliceOf(gen.IntRange(0, opCount-1)),
	))

	properties.Property("second completion on the same day changes nothing", prop.ForAll(
		func(seed int64, level int, streak int) bool {
			e := propertyEngine(seed)
			p := e.NewProgress(1, level, daysAfter(0))
			p.Streak = streak
			p.BestStreak = streak
			p.LastCompletionDate = dayID(-1)

			first, out := e.Complete(p, daysAfter(0))
			if !out.Accepted {
				return false
			}
			second, out := e.Complete(first, daysAfter(0))
			if out.Accepted {
				return false
			}
			return second.XP == first.XP &&
				second.TotalXP == first.TotalXP &&
				second.Streak == first.Streak &&
				second.TotalCompleted == first.TotalCompleted &&
				len(second.CompletedChallenges) == len(first.CompletedChallenges)
		},
		gen.Int64(),
		gen.IntRange(1, 6),
		gen.IntRange(0, 60),
	))

	properties.Property("consecutive day completion extends the streak", prop.ForAll(
		func(seed int64, streak int) bool {
			e := propertyEngine(seed)
			p := e.NewProgress(1, 2, daysAfter(-1))
			p.Streak = streak
			p.BestStreak = streak
			p.LastCompletionDate = dayID(-1)

			got, out := e.Complete(p, daysAfter(0))
			return out.Accepted && got.Streak == streak+1
		},
		gen.Int64(),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
