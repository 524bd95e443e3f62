package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Coin333/courage-reps/internal/ai"
	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/internal/coach"
	"github.com/Coin333/courage-reps/internal/config"
	"github.com/Coin333/courage-reps/internal/database"
	"github.com/Coin333/courage-reps/internal/progression"
	"github.com/Coin333/courage-reps/internal/random"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// app holds the wired service stack shared by the commands
type app struct {
	db      *sqlx.DB
	users   *database.UserRepository
	catalog *catalog.Catalog
	coach   *coach.Service
	closers []func() error
}

// newApp connects storage and builds the coach service from cfg
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	db, err := database.Connect(cfg.DBType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	a.users = database.NewUserRepository(db)

	var store database.ProgressStore
	switch cfg.ProgressBackend {
	case config.BackendRedis:
		rs := database.NewRedisProgressStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		a.closers = append(a.closers, rs.Close)
		if err := rs.Ping(ctx); err != nil {
			a.Close()
			return nil, err
		}
		store = rs
	case config.BackendMemory:
		logger.Warn("Progress is kept in memory and lost on restart")
		store = database.NewMemoryProgressStore()
	default:
		store = database.NewProgressRepository(db)
	}

	a.catalog, err = catalog.Load(cfg.CatalogPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	pc, err := cfg.Progression()
	if err != nil {
		a.Close()
		return nil, err
	}
	seed, err := random.NewSeed()
	if err != nil {
		a.Close()
		return nil, err
	}
	engine, err := progression.New(pc, a.catalog, progression.NewLockedRand(seed))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create progression engine: %w", err)
	}

	analyzer, err := ai.NewAnalyzer(ctx, cfg.Feedback(), logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create feedback analyzer: %w", err)
	}

	a.coach = coach.New(engine, store,
		coach.WithCompletionLog(database.NewCompletionRepository(db)),
		coach.WithAnalyzer(analyzer),
		coach.WithFeedbackTimeout(cfg.FeedbackTimeout),
		coach.WithLogger(logger))

	logger.Info("Service ready",
		zap.String("db", cfg.DBType),
		zap.String("progress_backend", cfg.ProgressBackend),
		zap.String("catalog_version", a.catalog.Version),
		zap.Int("max_level", pc.MaxLevel))
	return a, nil
}

// Close waits for pending feedback writes and releases storage, newest first
func (a *app) Close() error {
	if a.coach != nil {
		a.coach.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
