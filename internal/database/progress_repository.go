package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/jmoiron/sqlx"
)

var progressColumns = []string{
	"user_id", "version", "revision", "pretest_completed",
	"level", "xp", "total_xp", "streak", "best_streak",
	"total_completed", "hard_completed", "elite_completed", "no_refresh_streak", "days_trained",
	"last_completion_date", "challenge_date", "grace_token_used_date",
	"current_challenge", "challenge_difficulty", "challenge_completed",
	"refresh_count_today", "refresh_used_on_current",
	"completed_challenges", "completed_lessons", "reflections", "earned_badges",
	"created_at", "updated_at",
}

// ProgressRepository stores progress records in SQL
type ProgressRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db, now: time.Now}
}

// Load returns the record of userID
func (r *ProgressRepository) Load(ctx context.Context, userID int64) (models.UserProgress, error) {
	var p models.UserProgress
	query := r.db.Rebind("SELECT " + strings.Join(progressColumns, ", ") + " FROM user_progress WHERE user_id = ?")
	err := r.db.GetContext(ctx, &p, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.UserProgress{}, ErrNotFound
	case errors.Is(err, models.ErrCorruptColumn):
		return models.UserProgress{}, fmt.Errorf("%w: user %d: %v", ErrCorrupt, userID, err)
	case err != nil:
		return models.UserProgress{}, fmt.Errorf("failed to get user progress: %w", err)
	}
	return p, nil
}

// Save inserts or updates the record, checking the revision
func (r *ProgressRepository) Save(ctx context.Context, p *models.UserProgress) error {
	rec := p.Clone()
	rec.UpdatedAt = r.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}

	var query string
	if p.Revision == 0 {
		rec.Revision = 1
		query = "INSERT INTO user_progress (" + strings.Join(progressColumns, ", ") + ") VALUES (" +
			namedPlaceholders(progressColumns) + ") ON CONFLICT (user_id) DO NOTHING"
	} else {
		rec.Revision = p.Revision + 1
		sets := make([]string, 0, len(progressColumns))
		for _, c := range progressColumns {
			if c == "user_id" || c == "created_at" {
				continue
			}
			sets = append(sets, c+" = :"+c)
		}
		query = "UPDATE user_progress SET " + strings.Join(sets, ", ") +
			" WHERE user_id = :user_id AND revision = :expected_revision"
	}

	args := progressArgs{UserProgress: rec, ExpectedRevision: p.Revision}
	result, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("failed to save user progress: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRevisionConflict
	}

	p.Revision = rec.Revision
	p.CreatedAt = rec.CreatedAt
	p.UpdatedAt = rec.UpdatedAt
	return nil
}

// progressArgs adds the revision the caller read to the bound fields
type progressArgs struct {
	models.UserProgress
	ExpectedRevision int64 `db:"expected_revision"`
}

// Delete removes the record and the completion log of userID
func (r *ProgressRepository) Delete(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM completions WHERE user_id = ?"), userID); err != nil {
		return fmt.Errorf("failed to delete completions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM user_progress WHERE user_id = ?"), userID); err != nil {
		return fmt.Errorf("failed to delete user progress: %w", err)
	}
	return tx.Commit()
}

// UserIDs returns every user with a progress record
func (r *ProgressRepository) UserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, "SELECT user_id FROM user_progress ORDER BY user_id"); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ids, nil
}

// StaleUserIDs returns onboarded users whose challenge is not for day
func (r *ProgressRepository) StaleUserIDs(ctx context.Context, day models.Day) ([]int64, error) {
	var ids []int64
	query := r.db.Rebind("SELECT user_id FROM user_progress WHERE pretest_completed = ? AND challenge_date <> ? ORDER BY user_id")
	if err := r.db.SelectContext(ctx, &ids, query, true, day); err != nil {
		return nil, fmt.Errorf("failed to list stale users: %w", err)
	}
	return ids, nil
}

func namedPlaceholders(columns []string) string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = ":" + c
	}
	return strings.Join(out, ", ")
}
