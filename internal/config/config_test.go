package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromMap(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.DBType)
	assert.Equal(t, BackendSQL, cfg.ProgressBackend)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 6, cfg.MaxLevel)
	assert.Equal(t, "auto", cfg.FeedbackProvider)
	assert.Equal(t, 20*time.Second, cfg.FeedbackTimeout)
	assert.True(t, cfg.EnableScheduler)
	assert.Equal(t, 8, cfg.NotificationStartHour)
	assert.Equal(t, 21, cfg.NotificationEndHour)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestOverrides(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"DB_TYPE":          "postgres",
		"DATABASE_URL":     "postgres://localhost/reps",
		"PROGRESS_BACKEND": "redis",
		"ADMIN_USER_IDS":   "10,20",
		"TIMEZONE":         "UTC",
		"MAX_LEVEL":        "5",
		"OPENAI_API_KEY":   "sk-test",
		"FEEDBACK_RPM":     "12",
		"FEEDBACK_TIMEOUT": "5s",
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 20}, cfg.AdminUserIDs)
	assert.True(t, cfg.IsAdmin(20))
	assert.False(t, cfg.IsAdmin(30))

	pc, err := cfg.Progression()
	require.NoError(t, err)
	assert.Equal(t, 5, pc.MaxLevel)
	assert.Equal(t, time.UTC, pc.Location)

	fb := cfg.Feedback()
	assert.Equal(t, "sk-test", fb.OpenAIKey)
	assert.Equal(t, 12, fb.RequestsPerMinute)
	assert.Equal(t, 5*time.Second, cfg.FeedbackTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"db type", map[string]string{"DB_TYPE": "oracle"}},
		{"backend", map[string]string{"PROGRESS_BACKEND": "s3"}},
		{"provider", map[string]string{"FEEDBACK_PROVIDER": "claude"}},
		{"max level", map[string]string{"MAX_LEVEL": "7"}},
		{"hour range", map[string]string{"NOTIFICATION_END_HOUR": "24"}},
		{"hour order", map[string]string{"NOTIFICATION_START_HOUR": "20", "NOTIFICATION_END_HOUR": "9"}},
		{"rate", map[string]string{"HTTP_RATE_LIMIT": "0"}},
		{"timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{"log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"not a number", map[string]string{"MAX_LEVEL": "six"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.vars)
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9090\n"), 0o600))
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestLoadWithoutDotEnv(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
