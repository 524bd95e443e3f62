package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Coin333/courage-reps/internal/badges"
	"github.com/Coin333/courage-reps/internal/coach"
	"github.com/Coin333/courage-reps/internal/progression"
	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/gin-gonic/gin"
)

// OnboardRequest carries the calibration answers, one score per question
type OnboardRequest struct {
	Answers []int `json:"answers" binding:"required"`
}

// ReflectRequest carries a reflection
type ReflectRequest struct {
	Text string `json:"text" binding:"required"`
}

// ActionResponse is returned by every mutating action
type ActionResponse struct {
	Progress  models.UserProgress `json:"progress"`
	Outcome   progression.Outcome `json:"outcome"`
	NewBadges []badges.Badge      `json:"newBadges"`
}

// ReflectResponse is the stored reflection with its feedback
type ReflectResponse struct {
	Reflection models.Reflection `json:"reflection"`
	Feedback   models.Feedback   `json:"feedback"`
	Fallback   bool              `json:"fallback"`
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

// fail maps service errors to status codes
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, coach.ErrAlreadyOnboarded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, coach.ErrNotOnboarded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, coach.ErrEmptyReflection):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func respond(c *gin.Context, res coach.Result) {
	newBadges := res.NewBadges
	if newBadges == nil {
		newBadges = []badges.Badge{}
	}
	c.JSON(http.StatusOK, ActionResponse{Progress: res.Progress, Outcome: res.Outcome, NewBadges: newBadges})
}

func (s *Server) onboard(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.coach.Onboard(c.Request.Context(), id, req.Answers)
	if err != nil {
		if errors.Is(err, coach.ErrAlreadyOnboarded) {
			fail(c, err)
			return
		}
		// Anything else here is a bad answer set
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"progress":    res.Progress,
		"description": s.catalog.Description(res.Progress.Level),
	})
}

func (s *Server) progress(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	stats, err := s.coach.Stats(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) complete(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	res, err := s.coach.Complete(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, res)
}

func (s *Server) refresh(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	res, err := s.coach.Refresh(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, res)
}

func (s *Server) completeLesson(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	lesson, err := strconv.Atoi(c.Param("lesson"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
		return
	}
	res, err := s.coach.CompleteLesson(c.Request.Context(), id, lesson)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, res)
}

// reflect stores the reflection and waits for its feedback. The analysis has
// its own timeout and falls back, so the wait is bounded.
func (s *Server) reflect(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req ReflectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, task, err := s.coach.Reflect(c.Request.Context(), id, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	result := task.Wait(c.Request.Context())
	r.Analysis = result.Feedback
	c.JSON(http.StatusCreated, ReflectResponse{Reflection: r, Feedback: result.Feedback, Fallback: result.Fallback})
}

func (s *Server) listReflections(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	list, err := s.coach.Reflections(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reflections": list, "count": len(list)})
}

func (s *Server) badges(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	stats, err := s.coach.Stats(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"badges": badges.Evaluate(stats.Progress),
		"earned": stats.BadgesEarned,
		"title":  stats.Title,
		"titles": badges.Titles(stats.Progress.Level),
	})
}

func (s *Server) reset(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := s.coach.Reset(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listLessons(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lessons": s.catalog.Lessons, "count": len(s.catalog.Lessons)})
}
