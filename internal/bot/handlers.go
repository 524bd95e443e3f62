package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Coin333/courage-reps/internal/coach"
	"github.com/Coin333/courage-reps/internal/pretest"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Constants for callback data
const (
	callbackMainMenu     = "main_menu"
	callbackToday        = "today"
	callbackDone         = "done"
	callbackRefresh      = "refresh"
	callbackReflect      = "reflect"
	callbackStats        = "stats"
	callbackBadges       = "badges"
	callbackLessons      = "lessons"
	callbackHelp         = "help"
	callbackQuizBack     = "quiz_back"
	callbackResetConfirm = "reset_confirm"
	callbackCancelAction = "cancel_action"

	prefixQuiz   = "quiz_"
	prefixLesson = "lesson_"
)

var commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Calibrate your level or see today's challenge"},
	{Command: "today", Description: "Show today's challenge"},
	{Command: "done", Description: "Mark today's challenge complete"},
	{Command: "refresh", Description: "Swap today's challenge"},
	{Command: "reflect", Description: "Write a reflection and get feedback"},
	{Command: "stats", Description: "Show your progress"},
	{Command: "badges", Description: "Show your badges"},
	{Command: "lessons", Description: "Browse lessons"},
	{Command: "notify", Description: "Turn reminders on or off"},
	{Command: "time", Description: "Set the reminder hour"},
	{Command: "reset", Description: "Delete your progress"},
	{Command: "help", Description: "Show help"},
}

func mainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "📋 Today", CallbackData: callbackToday}, {Text: "✅ Done", CallbackData: callbackDone}},
		{{Text: "📊 Stats", CallbackData: callbackStats}, {Text: "🏅 Badges", CallbackData: callbackBadges}},
		{{Text: "📚 Lessons", CallbackData: callbackLessons}, {Text: "❓ Help", CallbackData: callbackHelp}},
	}
}

func challengeButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "✅ Done", CallbackData: callbackDone}, {Text: "🔄 Refresh", CallbackData: callbackRefresh}},
		{{Text: "📝 Reflect", CallbackData: callbackReflect}, {Text: "⬅️ Menu", CallbackData: callbackMainMenu}},
	}
}

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID, chatID := message.From.ID, message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		return b.handleStart(ctx, userID, chatID)
	case "help":
		return b.handleHelp(chatID)
	case "today":
		return b.handleToday(ctx, userID, chatID)
	case "done":
		return b.handleDone(ctx, userID, chatID)
	case "refresh":
		return b.handleRefresh(ctx, userID, chatID)
	case "reflect":
		if args != "" {
			return b.submitReflection(ctx, userID, chatID, args)
		}
		return b.promptReflection(userID, chatID)
	case "stats":
		return b.handleStats(ctx, userID, chatID)
	case "badges":
		return b.handleBadges(ctx, userID, chatID)
	case "lessons":
		return b.handleLessons(ctx, userID, chatID)
	case "lesson":
		id, err := strconv.Atoi(args)
		if err != nil {
			return b.sendText(chatID, "Please give a lesson number: /lesson <number>")
		}
		return b.handleLessonComplete(ctx, userID, chatID, id)
	case "notify":
		return b.handleNotifyCommand(ctx, message.From, chatID, args)
	case "time":
		return b.handleTimeCommand(ctx, message.From, chatID, args)
	case "reset":
		msg := tgbotapi.NewMessage(chatID, "⚠️ This deletes your level, streak, badges and reflections. Are you sure?")
		msg.ReplyMarkup = createKeyboard([][]MenuButton{
			{{Text: "🗑 Yes, reset", CallbackData: callbackResetConfirm}, {Text: "Cancel", CallbackData: callbackCancelAction}},
		})
		return b.sendMessage(msg)
	case "rollover":
		// Admin-only command
		if !b.config.isAdmin(userID) {
			return b.sendWithMenu(chatID, "This command is only available for administrators.")
		}
		n, err := b.coach.RolloverAll(ctx)
		if err != nil {
			b.logger.Warn("Manual rollover finished with errors", zap.Error(err))
		}
		return b.sendText(chatID, fmt.Sprintf("🔁 Rolled over %d user(s).", n))
	default:
		return b.sendWithMenu(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

// HandleCallback handles inline keyboard presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.From == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always send an answer to the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}

	userID, chatID := callback.From.ID, callback.Message.Chat.ID
	switch data := callback.Data; {
	case data == callbackMainMenu:
		return b.editMessage(tgbotapi.NewEditMessageTextAndMarkup(chatID, callback.Message.MessageID,
			"🏋️ Courage Reps\n\nPick what you want to do:", createKeyboard(mainMenuButtons())))
	case data == callbackToday:
		return b.handleToday(ctx, userID, chatID)
	case data == callbackDone:
		return b.handleDone(ctx, userID, chatID)
	case data == callbackRefresh:
		return b.handleRefresh(ctx, userID, chatID)
	case data == callbackReflect:
		return b.promptReflection(userID, chatID)
	case data == callbackStats:
		return b.handleStats(ctx, userID, chatID)
	case data == callbackBadges:
		return b.handleBadges(ctx, userID, chatID)
	case data == callbackLessons:
		return b.handleLessons(ctx, userID, chatID)
	case data == callbackHelp:
		return b.handleHelp(chatID)
	case data == callbackQuizBack:
		return b.handleQuizBack(userID, callback.Message)
	case data == callbackResetConfirm:
		return b.handleReset(ctx, userID, chatID)
	case data == callbackCancelAction:
		b.clearSession(userID)
		return b.sendWithMenu(chatID, "Cancelled.")
	case strings.HasPrefix(data, prefixQuiz):
		option, err := strconv.Atoi(strings.TrimPrefix(data, prefixQuiz))
		if err != nil {
			return fmt.Errorf("invalid quiz option in callback data: %w", err)
		}
		return b.handleQuizAnswer(ctx, userID, callback.Message, option)
	case strings.HasPrefix(data, prefixLesson):
		id, err := strconv.Atoi(strings.TrimPrefix(data, prefixLesson))
		if err != nil {
			return fmt.Errorf("invalid lesson ID in callback data: %w", err)
		}
		return b.handleLessonComplete(ctx, userID, chatID, id)
	default:
		return b.sendText(chatID, "⚠️ Unknown action")
	}
}

// handleText handles plain messages, which are only expected as reflections
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) error {
	userID, chatID := message.From.ID, message.Chat.ID

	var awaiting bool
	b.mu.Lock()
	if s, ok := b.sessions[userID]; ok && b.now().Sub(s.updated) <= b.config.SessionTTL {
		awaiting = s.awaitingReflection
	}
	b.mu.Unlock()

	if !awaiting {
		return b.sendWithMenu(chatID, "I don't understand. Use /help to see what I can do.")
	}
	b.withSession(userID, func(s *session) { s.awaitingReflection = false })
	return b.submitReflection(ctx, userID, chatID, message.Text)
}

func (b *Bot) handleStart(ctx context.Context, userID, chatID int64) error {
	p, err := b.coach.Progress(ctx, userID)
	if err != nil {
		return err
	}
	if p.PretestCompleted {
		if err := b.sendWithMenu(chatID, "👋 Welcome back! Here's where you are."); err != nil {
			return err
		}
		return b.handleToday(ctx, userID, chatID)
	}

	var q pretest.Question
	b.withSession(userID, func(s *session) {
		s.quiz = pretest.NewSession()
		s.awaitingReflection = false
		q, _, _ = s.quiz.Current()
	})

	intro := "👋 Welcome to Courage Reps!\n\n" +
		"Every day you get one small social challenge. Complete it to earn XP, " +
		"build a streak and level up.\n\n" +
		"First, a few quick questions to find your starting level."
	if err := b.sendText(chatID, intro); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, formatQuestion(q, 0))
	msg.ReplyMarkup = quizKeyboard(q, 0)
	return b.sendMessage(msg)
}

func quizKeyboard(q pretest.Question, idx int) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]MenuButton, 0, len(q.Options)+1)
	for i, o := range q.Options {
		rows = append(rows, []MenuButton{{Text: o.Text, CallbackData: prefixQuiz + strconv.Itoa(i)}})
	}
	if idx > 0 {
		rows = append(rows, []MenuButton{{Text: "⬅️ Back", CallbackData: callbackQuizBack}})
	}
	return createKeyboard(rows)
}

func (b *Bot) handleQuizAnswer(ctx context.Context, userID int64, message *tgbotapi.Message, option int) error {
	chatID := message.Chat.ID

	var (
		next     pretest.Question
		idx      int
		finished bool
		level    int
		answered error
		active   bool
	)
	b.withSession(userID, func(s *session) {
		if s.quiz == nil {
			return
		}
		active = true
		if answered = s.quiz.Answer(option); answered != nil {
			return
		}
		if s.quiz.Done() {
			finished = true
			level, answered = s.quiz.Level()
			s.quiz = nil
			return
		}
		next, idx, _ = s.quiz.Current()
	})

	if !active {
		return b.sendText(chatID, "That calibration has expired. Send /start to begin again.")
	}
	if answered != nil {
		return answered
	}
	if !finished {
		return b.editMessage(tgbotapi.NewEditMessageTextAndMarkup(chatID, message.MessageID,
			formatQuestion(next, idx), quizKeyboard(next, idx)))
	}

	res, err := b.coach.OnboardAtLevel(ctx, userID, level)
	if errors.Is(err, coach.ErrAlreadyOnboarded) {
		return b.sendWithMenu(chatID, "You're already calibrated. Use /reset if you want to start over.")
	}
	if err != nil {
		return err
	}
	text := fmt.Sprintf("🎯 You start at Level %d.\n\n%s", res.Progress.Level, b.catalog.Description(res.Progress.Level))
	if err := b.editMessage(tgbotapi.NewEditMessageText(chatID, message.MessageID, text)); err != nil {
		return err
	}
	return b.handleToday(ctx, userID, chatID)
}

func (b *Bot) handleQuizBack(userID int64, message *tgbotapi.Message) error {
	var (
		q      pretest.Question
		idx    int
		active bool
	)
	b.withSession(userID, func(s *session) {
		if s.quiz == nil {
			return
		}
		active = true
		s.quiz.Back()
		q, idx, _ = s.quiz.Current()
	})
	if !active {
		return b.sendText(message.Chat.ID, "That calibration has expired. Send /start to begin again.")
	}
	return b.editMessage(tgbotapi.NewEditMessageTextAndMarkup(message.Chat.ID, message.MessageID,
		formatQuestion(q, idx), quizKeyboard(q, idx)))
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "📖 How Courage Reps works\n\n" +
		"Each day you get one challenge matched to your level. Harder tiers pay more XP.\n\n" +
		"/today - Show today's challenge\n" +
		"/done - Mark it complete\n" +
		"/refresh - Swap it (costs part of the XP)\n" +
		"/reflect <text> - Reflect and get feedback\n" +
		"/stats - Level, XP and streak\n" +
		"/badges - Your achievements\n" +
		"/lessons - Lessons, /lesson <n> to complete one\n" +
		"/notify on|off - Daily reminders\n" +
		"/time <hour> - Reminder hour (0-23)\n" +
		"/reset - Start over\n\n" +
		"💡 Miss a day and a grace token may save your streak, once a month."

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "⬅️ Menu", CallbackData: callbackMainMenu}},
	})
	return b.sendMessage(msg)
}

// requireOnboarded tells users without a record to calibrate first
func (b *Bot) requireOnboarded(chatID int64, st *coach.Stats) (bool, error) {
	if st.Progress.PretestCompleted {
		return true, nil
	}
	return false, b.sendText(chatID, "🧭 Run /start to calibrate your level first.")
}

func (b *Bot) handleToday(ctx context.Context, userID, chatID int64) error {
	st, err := b.coach.Stats(ctx, userID)
	if err != nil {
		return err
	}
	if ok, err := b.requireOnboarded(chatID, st); !ok {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, formatToday(st))
	if !st.Progress.ChallengeCompleted {
		msg.ReplyMarkup = createKeyboard(challengeButtons())
	}
	return b.sendMessage(msg)
}

func (b *Bot) handleDone(ctx context.Context, userID, chatID int64) error {
	res, err := b.coach.Complete(ctx, userID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, formatOutcome(res))
	if res.Outcome.Accepted {
		msg.ReplyMarkup = createKeyboard([][]MenuButton{
			{{Text: "📝 Reflect", CallbackData: callbackReflect}, {Text: "📊 Stats", CallbackData: callbackStats}},
		})
	}
	return b.sendMessage(msg)
}

func (b *Bot) handleRefresh(ctx context.Context, userID, chatID int64) error {
	res, err := b.coach.Refresh(ctx, userID)
	if err != nil {
		return err
	}
	if !res.Outcome.Accepted {
		return b.sendText(chatID, formatOutcome(res))
	}
	return b.handleToday(ctx, userID, chatID)
}

func (b *Bot) promptReflection(userID, chatID int64) error {
	b.withSession(userID, func(s *session) { s.awaitingReflection = true })
	msg := tgbotapi.NewMessage(chatID, "📝 How did it go? Send me a few sentences about the challenge.")
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "Cancel", CallbackData: callbackCancelAction}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) submitReflection(ctx context.Context, userID, chatID int64, text string) error {
	_, task, err := b.coach.Reflect(ctx, userID, text)
	switch {
	case errors.Is(err, coach.ErrNotOnboarded):
		return b.sendText(chatID, "🧭 Run /start to calibrate your level first.")
	case errors.Is(err, coach.ErrEmptyReflection):
		return b.promptReflection(userID, chatID)
	case err != nil:
		return err
	}

	if err := b.sendText(chatID, "📝 Reflection saved. Thinking about it..."); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, b.config.FeedbackWait)
	defer cancel()
	result := task.Wait(waitCtx)
	return b.sendWithMenu(chatID, formatFeedback(result.Feedback, result.Fallback))
}

func (b *Bot) handleStats(ctx context.Context, userID, chatID int64) error {
	st, err := b.coach.Stats(ctx, userID)
	if err != nil {
		return err
	}
	if ok, err := b.requireOnboarded(chatID, st); !ok {
		return err
	}
	return b.sendWithMenu(chatID, formatStats(st, b.config.ProgressBarWidth))
}

func (b *Bot) handleBadges(ctx context.Context, userID, chatID int64) error {
	list, err := b.coach.Badges(ctx, userID)
	if err != nil {
		return err
	}
	return b.sendWithMenu(chatID, formatBadges(list))
}

func (b *Bot) handleLessons(ctx context.Context, userID, chatID int64) error {
	p, err := b.coach.Progress(ctx, userID)
	if err != nil {
		return err
	}
	var rows [][]MenuButton
	var row []MenuButton
	for _, l := range b.catalog.Lessons {
		if p.HasLesson(l.ID) {
			continue
		}
		row = append(row, MenuButton{Text: fmt.Sprintf("✅ %d", l.ID), CallbackData: prefixLesson + strconv.Itoa(l.ID)})
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []MenuButton{{Text: "⬅️ Menu", CallbackData: callbackMainMenu}})

	msg := tgbotapi.NewMessage(chatID, formatLessons(b.catalog.Lessons, p))
	msg.ReplyMarkup = createKeyboard(rows)
	return b.sendMessage(msg)
}

func (b *Bot) handleLessonComplete(ctx context.Context, userID, chatID int64, lessonID int) error {
	res, err := b.coach.CompleteLesson(ctx, userID, lessonID)
	if err != nil {
		return err
	}
	text := formatOutcome(res)
	if res.Outcome.Accepted {
		if l, ok := b.catalog.Lesson(lessonID); ok {
			text = fmt.Sprintf("📚 %s\n%s", l.Title, text)
		}
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleReset(ctx context.Context, userID, chatID int64) error {
	if err := b.coach.Reset(ctx, userID); err != nil {
		return err
	}
	b.clearSession(userID)
	return b.sendText(chatID, "🗑 Your progress was deleted. Send /start to calibrate again.")
}

func (b *Bot) handleNotifyCommand(ctx context.Context, from *tgbotapi.User, chatID int64, args string) error {
	if b.users == nil {
		return b.sendText(chatID, "Reminders are not available.")
	}
	var enabled bool
	switch strings.ToLower(args) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return b.sendText(chatID, "Please specify on or off: /notify <on|off>")
	}

	user, err := b.users.EnsureUser(ctx, userFrom(from))
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if err := b.users.UpdateNotifications(ctx, user.ID, enabled, user.NotificationHour); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Reminders %s", boolToEnabledString(enabled)))
}

func (b *Bot) handleTimeCommand(ctx context.Context, from *tgbotapi.User, chatID int64, args string) error {
	if b.users == nil {
		return b.sendText(chatID, "Reminders are not available.")
	}
	if args == "" {
		return b.sendText(chatID, "Please specify the hour (0-23): /time <hour>")
	}
	hour, err := strconv.Atoi(args)
	if err != nil || hour < 0 || hour > 23 {
		return b.sendText(chatID, "Please specify a valid hour (0-23)")
	}

	user, err := b.users.EnsureUser(ctx, userFrom(from))
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if err := b.users.UpdateNotifications(ctx, user.ID, user.NotificationEnabled, hour); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Reminder time set to %d:00", hour))
}

// boolToEnabledString converts a boolean to a human-readable enabled/disabled string
func boolToEnabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
