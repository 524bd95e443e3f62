package bot

import (
	"time"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Admin users may trigger maintenance commands
	AdminUserIDs []int64
	// Long-poll timeout for updates, in seconds
	UpdateTimeout int
	// How long an unfinished calibration or reflection prompt is kept
	SessionTTL time.Duration
	// Upper bound for waiting on reflection feedback before replying
	FeedbackWait time.Duration
	// Width of the text progress bar
	ProgressBarWidth int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		UpdateTimeout:    60,
		SessionTTL:       time.Minute * 30,
		FeedbackWait:     time.Second * 25,
		ProgressBarWidth: 10,
	}
}

func (c *BotConfig) isAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
