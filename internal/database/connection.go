package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported DB_TYPE values
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DefaultSQLitePath is used when DATABASE_URL is empty for sqlite
const DefaultSQLitePath = "data/couragereps.db"

// Connect opens the database and makes sure the schema exists
func Connect(dbType, url string) (*sqlx.DB, error) {
	driver, err := driverName(dbType)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		if url == "" {
			url = DefaultSQLitePath
		}
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(url); dir != "." && !strings.HasPrefix(url, "file:") && url != ":memory:" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	} else if url == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for postgres")
	}

	db, err := sqlx.Connect(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func driverName(dbType string) (string, error) {
	switch strings.ToLower(dbType) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}
}

// InitSchema creates the tables if they don't exist
func InitSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		name  string
		query string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				notification_hour INTEGER NOT NULL DEFAULT 18,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`},
		{"user_progress", `
			CREATE TABLE IF NOT EXISTS user_progress (
				user_id BIGINT PRIMARY KEY,
				version INTEGER NOT NULL DEFAULT 0,
				revision BIGINT NOT NULL DEFAULT 0,
				pretest_completed BOOLEAN NOT NULL DEFAULT FALSE,
				level INTEGER NOT NULL DEFAULT 1,
				xp INTEGER NOT NULL DEFAULT 0,
				total_xp INTEGER NOT NULL DEFAULT 0,
				streak INTEGER NOT NULL DEFAULT 0,
				best_streak INTEGER NOT NULL DEFAULT 0,
				total_completed INTEGER NOT NULL DEFAULT 0,
				hard_completed INTEGER NOT NULL DEFAULT 0,
				elite_completed INTEGER NOT NULL DEFAULT 0,
				no_refresh_streak INTEGER NOT NULL DEFAULT 0,
				days_trained INTEGER NOT NULL DEFAULT 0,
				last_completion_date TEXT NOT NULL DEFAULT '',
				challenge_date TEXT NOT NULL DEFAULT '',
				grace_token_used_date TEXT NOT NULL DEFAULT '',
				current_challenge TEXT NOT NULL DEFAULT '',
				challenge_difficulty TEXT NOT NULL DEFAULT 'Standard',
				challenge_completed BOOLEAN NOT NULL DEFAULT FALSE,
				refresh_count_today INTEGER NOT NULL DEFAULT 0,
				refresh_used_on_current BOOLEAN NOT NULL DEFAULT FALSE,
				completed_challenges TEXT NOT NULL DEFAULT '[]',
				completed_lessons TEXT NOT NULL DEFAULT '[]',
				reflections TEXT NOT NULL DEFAULT '[]',
				earned_badges TEXT NOT NULL DEFAULT '[]',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`},
		{"completions", `
			CREATE TABLE IF NOT EXISTS completions (
				id ` + serial + `,
				user_id BIGINT NOT NULL,
				challenge TEXT NOT NULL,
				difficulty TEXT NOT NULL,
				xp_earned INTEGER NOT NULL,
				streak INTEGER NOT NULL,
				refreshed BOOLEAN NOT NULL DEFAULT FALSE,
				day TEXT NOT NULL,
				completed_at TIMESTAMP NOT NULL
			)`},
		{"completions index", `
			CREATE INDEX IF NOT EXISTS idx_completions_user_day ON completions (user_id, day)`},
	}

	for _, st := range statements {
		if _, err := db.Exec(st.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", st.name, err)
		}
	}
	return nil
}
