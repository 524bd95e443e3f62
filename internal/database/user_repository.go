package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/jmoiron/sqlx"
)

const userColumns = "id, username, first_name, last_name, notification_enabled, notification_hour, created_at, updated_at"

// DefaultNotificationHour is the reminder hour of new users
const DefaultNotificationHour = 18

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

// Upsert inserts a new user or refreshes the profile fields of an existing
// one. Notification settings of existing users are kept.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :username, :first_name, :last_name, :notification_enabled, :notification_hour, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = excluded.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("failed to create/update user: %w", err)
	}
	return nil
}

// EnsureUser creates the user with default notification settings if it does
// not exist yet and returns the stored row
func (r *UserRepository) EnsureUser(ctx context.Context, user models.User) (*models.User, error) {
	existing, err := r.GetByID(ctx, user.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	user.NotificationEnabled = true
	if user.NotificationHour == 0 {
		user.NotificationHour = DefaultNotificationHour
	}
	if err := r.Upsert(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateNotifications changes reminder settings
func (r *UserRepository) UpdateNotifications(ctx context.Context, id int64, enabled bool, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("notification hour %d out of range", hour)
	}
	query := r.db.Rebind("UPDATE users SET notification_enabled = ?, notification_hour = ?, updated_at = ? WHERE id = ?")
	result, err := r.db.ExecContext(ctx, query, enabled, hour, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update notifications: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM users WHERE id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// GetUsersForNotification returns users who want a reminder at hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	var users []models.User
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE notification_enabled = ? AND notification_hour = ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &users, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}
