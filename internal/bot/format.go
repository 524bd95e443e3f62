package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/Coin333/courage-reps/internal/badges"
	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/internal/coach"
	"github.com/Coin333/courage-reps/internal/pretest"
	"github.com/Coin333/courage-reps/internal/progression"
	"github.com/Coin333/courage-reps/pkg/models"
)

var difficultyIcons = map[models.Difficulty]string{
	models.Standard: "🟢",
	models.Hard:     "🟠",
	models.Elite:    "🔴",
}

// progressBar renders fraction in [0,1] as a bar of width cells
func progressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// formatDuration renders d as "5h 3m", dropping zero hours
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func formatQuestion(q pretest.Question, idx int) string {
	return fmt.Sprintf("🧭 Calibration %d/%d\n\n%s", idx+1, pretest.Count(), q.Text)
}

func formatToday(st *coach.Stats) string {
	p := st.Progress
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s challenge · Level %d\n\n", difficultyIcons[p.ChallengeDifficulty], p.ChallengeDifficulty, p.Level)
	sb.WriteString(p.CurrentChallenge)
	sb.WriteString("\n\n")
	if p.ChallengeCompleted {
		fmt.Fprintf(&sb, "✅ Done for today. Next challenge in %s.", formatDuration(st.UntilNextChallenge))
	} else {
		fmt.Fprintf(&sb, "🔥 Streak: %d · 🔄 Refreshes left: %d", p.Streak, st.RefreshesLeft)
	}
	return sb.String()
}

func formatOutcome(res coach.Result) string {
	out := res.Outcome
	if !out.Accepted {
		return rejectionText(out.Reason)
	}

	var sb strings.Builder
	if out.XPEarned > 0 {
		r := out.Reward
		fmt.Fprintf(&sb, "🎉 +%d XP", out.XPEarned)
		var parts []string
		if r.Base > 0 {
			parts = append(parts, fmt.Sprintf("base %d", r.Base))
		}
		if r.DifficultyBonus > 0 {
			parts = append(parts, fmt.Sprintf("difficulty +%d", r.DifficultyBonus))
		}
		if r.NoRefreshBonus > 0 {
			parts = append(parts, fmt.Sprintf("no refresh +%d", r.NoRefreshBonus))
		}
		if r.Penalty > 0 {
			parts = append(parts, fmt.Sprintf("refresh -%d", r.Penalty))
		}
		if r.MilestoneBonus > 0 {
			parts = append(parts, fmt.Sprintf("milestone +%d", r.MilestoneBonus))
		}
		if len(parts) > 1 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(parts, ", "))
		}
		sb.WriteString("\n")
	}
	if res.Progress.Streak > 0 && out.Reward.Base > 0 {
		fmt.Fprintf(&sb, "🔥 Streak: %d day(s)\n", res.Progress.Streak)
	}
	if out.GraceTokenUsed {
		sb.WriteString("🛡 A grace token saved your streak.\n")
	}
	if out.StreakBroken {
		sb.WriteString("💔 Your streak was reset. Today is a fresh start.\n")
	}
	if out.Milestone {
		sb.WriteString("🏁 Streak milestone reached!\n")
	}
	if out.LeveledUp {
		fmt.Fprintf(&sb, "⬆️ Level up! %d → %d: %s\n", out.PreviousLevel, res.Progress.Level, badges.CurrentTitle(res.Progress.Level).Name)
	}
	for _, b := range res.NewBadges {
		fmt.Fprintf(&sb, "%s New badge: %s\n", b.Icon, b.Name)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func rejectionText(reason progression.Reason) string {
	switch reason {
	case progression.ReasonAlreadyCompleted:
		return "✅ You already finished today's challenge. Come back tomorrow!"
	case progression.ReasonRefreshCap:
		return "🔄 No refreshes left today. You've got this one!"
	case progression.ReasonLessonDone:
		return "📚 You already completed that lesson."
	case progression.ReasonUnknownLesson:
		return "📚 There is no lesson with that number. See /lessons."
	case progression.ReasonNotOnboarded:
		return "🧭 Run /start to calibrate your level first."
	default:
		return "⚠️ That didn't work."
	}
}

func formatStats(st *coach.Stats, width int) string {
	p := st.Progress
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %s · Level %d\n", st.Title.Name, p.Level)
	fmt.Fprintf(&sb, "%s %d%%\n", progressBar(st.LevelProgress, width), int(st.LevelProgress*100))
	if st.XPToNextLevel > 0 {
		fmt.Fprintf(&sb, "XP: %d (%d to next level)\n", p.XP, st.XPToNextLevel)
	} else {
		fmt.Fprintf(&sb, "XP: %d (max level)\n", p.XP)
	}
	fmt.Fprintf(&sb, "Total XP: %d\n\n", p.TotalXP)
	fmt.Fprintf(&sb, "🔥 Streak: %d (best %d)\n", p.Streak, p.BestStreak)
	fmt.Fprintf(&sb, "✅ Completed: %d · 📅 Days trained: %d\n", p.TotalCompleted, p.DaysTrained)
	fmt.Fprintf(&sb, "🏅 Badges: %d/%d\n", st.BadgesEarned, st.BadgesTotal)
	if st.GraceTokenAvailable {
		sb.WriteString("🛡 Grace token ready\n")
	}
	if st.Log != nil {
		fmt.Fprintf(&sb, "\nThis week: %d active day(s)", st.Log.ActiveDaysWeek)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatBadges(list []badges.Status) string {
	var sb strings.Builder
	sb.WriteString("🏅 Badges\n")
	for _, s := range list {
		mark := "▫️"
		if s.Earned {
			mark = s.Icon
		}
		fmt.Fprintf(&sb, "\n%s %s (%d/%d)\n%s", mark, s.Name, s.Current, s.Target, s.Description)
	}
	return sb.String()
}

func formatLessons(lessons []catalog.Lesson, p models.UserProgress) string {
	var sb strings.Builder
	sb.WriteString("📚 Lessons\n")
	for _, l := range lessons {
		mark := "▫️"
		if p.HasLesson(l.ID) {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "\n%s %d. %s", mark, l.ID, l.Title)
	}
	return sb.String()
}

func formatFeedback(fb models.Feedback, fallback bool) string {
	var sb strings.Builder
	sb.WriteString("🧠 Feedback\n")
	if len(fb.Strengths) > 0 {
		sb.WriteString("\nStrengths:\n")
		for _, s := range fb.Strengths {
			fmt.Fprintf(&sb, "• %s\n", s)
		}
	}
	if len(fb.Improvements) > 0 {
		sb.WriteString("\nTo work on:\n")
		for _, s := range fb.Improvements {
			fmt.Fprintf(&sb, "• %s\n", s)
		}
	}
	if fb.NextFocus != "" {
		fmt.Fprintf(&sb, "\nNext focus: %s\n", fb.NextFocus)
	}
	if fallback {
		sb.WriteString("\n(Detailed analysis was unavailable, so this is general guidance.)")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatReminder(p models.UserProgress) string {
	text := fmt.Sprintf("⏰ Today's challenge is still open:\n\n%s", p.CurrentChallenge)
	if p.Streak > 0 {
		text += fmt.Sprintf("\n\nKeep your %d-day streak alive!", p.Streak)
	}
	return text
}
