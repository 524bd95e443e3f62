package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/jmoiron/sqlx"
)

// CompletionRepository keeps the append-only log of accepted completions
type CompletionRepository struct {
	db *sqlx.DB
}

// NewCompletionRepository creates a new repository instance
func NewCompletionRepository(db *sqlx.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// Create appends a completion
func (r *CompletionRepository) Create(ctx context.Context, c *models.Completion) error {
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`
		INSERT INTO completions (user_id, challenge, difficulty, xp_earned, streak, refreshed, day, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	args := []interface{}{c.UserID, c.Challenge, c.Difficulty, c.XPEarned, c.Streak, c.Refreshed, c.Day, c.CompletedAt}

	// Postgres has no LastInsertId
	if r.db.DriverName() == DriverPostgres {
		if err := r.db.QueryRowxContext(ctx, query+" RETURNING id", args...).Scan(&c.ID); err != nil {
			return fmt.Errorf("failed to create completion: %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	c.ID = id
	return nil
}

// GetByUserID returns the latest completions of a user, newest first
func (r *CompletionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]models.Completion, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.Completion
	query := r.db.Rebind(`
		SELECT id, user_id, challenge, difficulty, xp_earned, streak, refreshed, day, completed_at
		FROM completions WHERE user_id = ? ORDER BY completed_at DESC, id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &out, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get completions: %w", err)
	}
	return out, nil
}

// Statistics summarizes the log of a user. Active days count distinct days
// from weekStart on.
func (r *CompletionRepository) Statistics(ctx context.Context, userID int64, weekStart models.Day) (*models.Statistics, error) {
	stats := &models.Statistics{UserID: userID, ByDifficulty: make(map[string]int)}

	query := r.db.Rebind(`
		SELECT COUNT(*) AS total_logged,
		       COALESCE(SUM(xp_earned), 0) AS xp_logged,
		       COALESCE(SUM(CASE WHEN refreshed THEN 1 ELSE 0 END), 0) AS refreshed_count
		FROM completions WHERE user_id = ?`)
	if err := r.db.QueryRowxContext(ctx, query, userID).Scan(&stats.TotalLogged, &stats.XPLogged, &stats.RefreshedCount); err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	query = r.db.Rebind("SELECT COUNT(DISTINCT day) FROM completions WHERE user_id = ? AND day >= ?")
	if err := r.db.QueryRowxContext(ctx, query, userID, weekStart).Scan(&stats.ActiveDaysWeek); err != nil {
		return nil, fmt.Errorf("failed to get active days: %w", err)
	}

	var rows []struct {
		Difficulty string `db:"difficulty"`
		Count      int    `db:"count"`
	}
	query = r.db.Rebind("SELECT difficulty, COUNT(*) AS count FROM completions WHERE user_id = ? GROUP BY difficulty")
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get difficulty breakdown: %w", err)
	}
	for _, row := range rows {
		stats.ByDifficulty[row.Difficulty] = row.Count
	}
	return stats, nil
}

// DeleteByUserID removes the log of a user
func (r *CompletionRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM completions WHERE user_id = ?"), userID); err != nil {
		return fmt.Errorf("failed to delete completions: %w", err)
	}
	return nil
}
