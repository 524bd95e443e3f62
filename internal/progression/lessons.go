package progression

import (
	"github.com/Coin333/courage-reps/pkg/models"
)

// CompleteLesson marks a catalog lesson as done and credits LessonXP.
// Unknown or already completed lessons are rejected.
func (e *Engine) CompleteLesson(p models.UserProgress, lessonID int) (models.UserProgress, Outcome) {
	p = p.Clone()
	var out Outcome
	if _, ok := e.catalog.Lesson(lessonID); !ok {
		return p, rejected(out, ReasonUnknownLesson)
	}
	if p.HasLesson(lessonID) {
		return p, rejected(out, ReasonLessonDone)
	}

	p.CompletedLessons = append(p.CompletedLessons, lessonID)
	out.PreviousLevel = p.Level
	out.XPEarned = e.cfg.LessonXP
	p = e.addXP(p, e.cfg.LessonXP)
	out.LeveledUp = p.Level > out.PreviousLevel
	out.Accepted = true
	return p, out
}

// AddReflection appends a reflection and keeps the newest ReflectionCap
// entries. Progression fields are not touched.
func (e *Engine) AddReflection(p models.UserProgress, r models.Reflection) models.UserProgress {
	p = p.Clone()
	p.Reflections = append(p.Reflections, r)
	if n := len(p.Reflections); n > e.cfg.ReflectionCap {
		p.Reflections = append(models.ReflectionList(nil), p.Reflections[n-e.cfg.ReflectionCap:]...)
	}
	return p
}

// UpdateReflection replaces the analysis of the reflection with id. It
// reports false when the reflection was already trimmed away.
func (e *Engine) UpdateReflection(p models.UserProgress, id string, fb models.Feedback) (models.UserProgress, bool) {
	p = p.Clone()
	for i := range p.Reflections {
		if p.Reflections[i].ID == id {
			p.Reflections[i].Analysis = fb
			return p, true
		}
	}
	return p, false
}
