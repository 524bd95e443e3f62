// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Coin333/courage-reps/internal/ai"
	"github.com/Coin333/courage-reps/internal/progression"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Progress backends accepted by PROGRESS_BACKEND
const (
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds every setting of the service
type Config struct {
	// Storage
	DBType          string `env:"DB_TYPE" envDefault:"sqlite3"`
	DatabaseURL     string `env:"DATABASE_URL"`
	ProgressBackend string `env:"PROGRESS_BACKEND" envDefault:"sql"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`

	// Delivery
	TelegramToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AdminUserIDs  []int64 `env:"ADMIN_USER_IDS" envSeparator:","`
	HTTPAddr      string  `env:"HTTP_ADDR" envDefault:":8080"`
	HTTPRateLimit float64 `env:"HTTP_RATE_LIMIT" envDefault:"5"`
	HTTPRateBurst int     `env:"HTTP_RATE_BURST" envDefault:"10"`

	// Progression
	Timezone    string `env:"TIMEZONE" envDefault:"Local"`
	MaxLevel    int    `env:"MAX_LEVEL" envDefault:"6"`
	CatalogPath string `env:"CATALOG_PATH"`

	// Feedback
	FeedbackProvider string        `env:"FEEDBACK_PROVIDER" envDefault:"auto"`
	OpenAIKey        string        `env:"OPENAI_API_KEY"`
	OpenAIModel      string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GeminiKey        string        `env:"GEMINI_API_KEY"`
	GeminiModel      string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	FeedbackTimeout  time.Duration `env:"FEEDBACK_TIMEOUT" envDefault:"20s"`
	FeedbackRPM      int           `env:"FEEDBACK_RPM" envDefault:"30"`

	// Scheduler
	EnableScheduler       bool `env:"ENABLE_SCHEDULER" envDefault:"true"`
	NotificationStartHour int  `env:"NOTIFICATION_START_HOUR" envDefault:"8"`
	NotificationEndHour   int  `env:"NOTIFICATION_END_HOUR" envDefault:"21"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev   bool   `env:"LOG_DEV" envDefault:"false"`
}

// Load reads .env files (missing files are fine), then the environment
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return parse(env.Options{})
}

// FromMap parses settings from vars instead of the process environment
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	switch strings.ToLower(c.DBType) {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported DB_TYPE %q", c.DBType)
	}
	switch c.ProgressBackend {
	case BackendSQL, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unsupported PROGRESS_BACKEND %q", c.ProgressBackend)
	}
	switch c.FeedbackProvider {
	case ai.ProviderAuto, ai.ProviderLocal, ai.ProviderOpenAI, ai.ProviderGemini:
	default:
		return fmt.Errorf("unsupported FEEDBACK_PROVIDER %q", c.FeedbackProvider)
	}
	if c.MaxLevel != 5 && c.MaxLevel != 6 {
		return fmt.Errorf("MAX_LEVEL must be 5 or 6, got %d", c.MaxLevel)
	}
	if !validHour(c.NotificationStartHour) || !validHour(c.NotificationEndHour) {
		return fmt.Errorf("notification hours must be between 0 and 23")
	}
	if c.NotificationStartHour > c.NotificationEndHour {
		return fmt.Errorf("NOTIFICATION_START_HOUR %d is after NOTIFICATION_END_HOUR %d",
			c.NotificationStartHour, c.NotificationEndHour)
	}
	if c.HTTPRateLimit <= 0 || c.HTTPRateBurst < 1 {
		return fmt.Errorf("HTTP rate limit and burst must be positive")
	}
	if c.FeedbackTimeout <= 0 {
		return fmt.Errorf("FEEDBACK_TIMEOUT must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

// Location returns the time zone whose midnight starts a new day
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	return loc, nil
}

// Progression returns the engine tunables for these settings
func (c *Config) Progression() (progression.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return progression.Config{}, err
	}
	pc := progression.DefaultConfig()
	pc.MaxLevel = c.MaxLevel
	pc.Location = loc
	return pc, nil
}

// Feedback returns the analyzer options for these settings
func (c *Config) Feedback() ai.Options {
	return ai.Options{
		Provider:          c.FeedbackProvider,
		OpenAIKey:         c.OpenAIKey,
		OpenAIModel:       c.OpenAIModel,
		GeminiKey:         c.GeminiKey,
		GeminiModel:       c.GeminiModel,
		RequestsPerMinute: c.FeedbackRPM,
	}
}

// IsAdmin reports whether id is listed in ADMIN_USER_IDS
func (c *Config) IsAdmin(id int64) bool {
	for _, admin := range c.AdminUserIDs {
		if admin == id {
			return true
		}
	}
	return false
}
