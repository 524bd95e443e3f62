package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Coin333/courage-reps/internal/ai"
	"github.com/Coin333/courage-reps/internal/badges"
	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/internal/coach"
	"github.com/Coin333/courage-reps/internal/pretest"
	"github.com/Coin333/courage-reps/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// API is the part of the Telegram client the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Coach is the set of progression operations the bot drives
type Coach interface {
	Progress(ctx context.Context, userID int64) (models.UserProgress, error)
	Onboard(ctx context.Context, userID int64, answers []int) (coach.Result, error)
	OnboardAtLevel(ctx context.Context, userID int64, level int) (coach.Result, error)
	Stats(ctx context.Context, userID int64) (*coach.Stats, error)
	Complete(ctx context.Context, userID int64) (coach.Result, error)
	Refresh(ctx context.Context, userID int64) (coach.Result, error)
	CompleteLesson(ctx context.Context, userID int64, lessonID int) (coach.Result, error)
	Reflect(ctx context.Context, userID int64, text string) (models.Reflection, *ai.Task, error)
	Badges(ctx context.Context, userID int64) ([]badges.Status, error)
	Reset(ctx context.Context, userID int64) error
	RolloverAll(ctx context.Context) (int, error)
}

// Users stores profiles and reminder settings
type Users interface {
	EnsureUser(ctx context.Context, user models.User) (*models.User, error)
	UpdateNotifications(ctx context.Context, id int64, enabled bool, hour int) error
}

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// session is the conversation state of one user
type session struct {
	quiz               *pretest.Session
	awaitingReflection bool
	updated            time.Time
}

// Bot represents the Telegram bot application
type Bot struct {
	api     API
	coach   Coach
	users   Users
	catalog *catalog.Catalog
	config  *BotConfig
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[int64]*session
	wg       sync.WaitGroup
}

// New creates a new bot instance. users may be nil, which disables the
// reminder settings commands.
func New(api API, c Coach, users Users, cat *catalog.Catalog, config *BotConfig, logger *zap.Logger) *Bot {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return &Bot{
		api:      api,
		coach:    c,
		users:    users,
		catalog:  cat,
		config:   config,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[int64]*session),
	}
}

// Run handles updates until ctx is done and in-flight updates finish
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		b.logger.Warn("Failed to register bot commands", zap.Error(err))
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout
	updates := b.api.GetUpdatesChan(updateConfig)
	b.logger.Info("Bot is receiving updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return fmt.Errorf("update channel closed")
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate handles incoming updates from Telegram
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.From != nil:
		if ensureErr := b.ensureUser(ctx, update.Message.From); ensureErr != nil {
			b.logger.Warn("Failed to register user", zap.Int64("user_id", update.Message.From.ID), zap.Error(ensureErr))
		}
		if update.Message.IsCommand() {
			err = b.HandleCommand(ctx, update.Message)
		} else {
			err = b.handleText(ctx, update.Message)
		}
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	default:
		return
	}

	if err != nil {
		chatID := chatOf(update)
		b.logger.Error("Failed to handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
		if chatID != 0 {
			_ = b.sendText(chatID, "❌ Something went wrong. Please try again later.")
		}
	}
}

func chatOf(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) error {
	if b.users == nil {
		return nil
	}
	_, err := b.users.EnsureUser(ctx, userFrom(from))
	return err
}

func userFrom(from *tgbotapi.User) models.User {
	return models.User{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
}

// SendReminder implements the scheduler.Notifier interface
func (b *Bot) SendReminder(ctx context.Context, userID int64, p models.UserProgress) error {
	// For private chats the chat ID is the user ID
	msg := tgbotapi.NewMessage(userID, formatReminder(p))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "✅ Done", CallbackData: callbackDone}, {Text: "📋 Today", CallbackData: callbackToday}},
	})
	if err := b.sendMessage(msg); err != nil {
		return fmt.Errorf("failed to send reminder to user %d: %w", userID, err)
	}
	b.logger.Debug("Reminder sent", zap.Int64("user_id", userID), zap.Int("streak", p.Streak))
	return nil
}

// withSession runs fn on the session of userID under the lock, creating it
// if needed
func (b *Bot) withSession(userID int64, fn func(s *session)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[userID]
	if !ok || b.now().Sub(s.updated) > b.config.SessionTTL {
		s = &session{}
		b.sessions[userID] = s
	}
	fn(s)
	s.updated = b.now()
}

func (b *Bot) clearSession(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, userID)
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendWithMenu(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(mainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) editMessage(msg tgbotapi.EditMessageTextConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}
