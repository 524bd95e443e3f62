package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Coin333/courage-reps/internal/ai"
	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/internal/coach"
	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Coach is the set of operations the API exposes
type Coach interface {
	Onboard(ctx context.Context, userID int64, answers []int) (coach.Result, error)
	Stats(ctx context.Context, userID int64) (*coach.Stats, error)
	Complete(ctx context.Context, userID int64) (coach.Result, error)
	Refresh(ctx context.Context, userID int64) (coach.Result, error)
	CompleteLesson(ctx context.Context, userID int64, lessonID int) (coach.Result, error)
	Reflect(ctx context.Context, userID int64, text string) (models.Reflection, *ai.Task, error)
	Reflections(ctx context.Context, userID int64) ([]models.Reflection, error)
	Reset(ctx context.Context, userID int64) error
}

// Options configures the server
type Options struct {
	RateLimit float64
	RateBurst int
}

// Server is the HTTP delivery surface
type Server struct {
	coach   Coach
	catalog *catalog.Catalog
	logger  *zap.Logger
	router  *gin.Engine
}

// NewServer creates the server and its routes
func NewServer(c Coach, cat *catalog.Catalog, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	s := &Server{coach: c, catalog: cat, logger: logger}
	s.router = s.setupRoutes(opts)
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	if opts.RateLimit > 0 {
		api.Use(NewRateLimiter(opts.RateLimit, opts.RateBurst).Middleware())
	}
	{
		api.GET("/catalog/lessons", s.listLessons)

		users := api.Group("/users/:id")
		users.POST("/onboard", s.onboard)
		users.GET("/progress", s.progress)
		users.POST("/complete", s.complete)
		users.POST("/refresh", s.refresh)
		users.POST("/lessons/:lesson/complete", s.completeLesson)
		users.POST("/reflections", s.reflect)
		users.GET("/reflections", s.listReflections)
		users.GET("/badges", s.badges)
		users.DELETE("", s.reset)
	}
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown failed: %w", err)
		}
		return nil
	}
}
