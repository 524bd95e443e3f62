package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Coin333/courage-reps/internal/ai"
	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/internal/coach"
	"github.com/Coin333/courage-reps/internal/database"
	"github.com/Coin333/courage-reps/internal/progression"
	"github.com/Coin333/courage-reps/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

// texts returns the text of every sent or edited message
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) last() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type memUsers struct {
	mu    sync.Mutex
	users map[int64]models.User
}

func (u *memUsers) EnsureUser(_ context.Context, user models.User) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if existing, ok := u.users[user.ID]; ok {
		return &existing, nil
	}
	user.NotificationEnabled = true
	user.NotificationHour = database.DefaultNotificationHour
	u.users[user.ID] = user
	return &user, nil
}

func (u *memUsers) UpdateNotifications(_ context.Context, id int64, enabled bool, hour int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[id]
	if !ok {
		return database.ErrNotFound
	}
	user.NotificationEnabled = enabled
	user.NotificationHour = hour
	u.users[id] = user
	return nil
}

type firstPick struct{}

func (firstPick) Float64() float64 { return 0.99 }
func (firstPick) Intn(int) int     { return 0 }

type cannedAnalyzer struct{}

func (cannedAnalyzer) Analyze(context.Context, ai.Request) (models.Feedback, error) {
	return models.Feedback{Strengths: []string{"Showed up"}, NextFocus: "Keep going"}, nil
}

func newTestBot(t *testing.T, config *BotConfig) (*Bot, *fakeAPI, *coach.Service, *memUsers) {
	t.Helper()
	cfg := progression.DefaultConfig()
	cfg.Location = time.UTC
	engine, err := progression.New(cfg, catalog.Default(), firstPick{})
	require.NoError(t, err)

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := coach.New(engine, database.NewMemoryProgressStore(),
		coach.WithClock(func() time.Time { return now }),
		coach.WithAnalyzer(cannedAnalyzer{}))
	t.Cleanup(svc.Wait)

	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	users := &memUsers{users: make(map[int64]models.User)}
	b := New(api, svc, users, catalog.Default(), config, nil)
	return b, api, svc, users
}

func command(userID int64, text string) tgbotapi.Update {
	name := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: userID, UserName: "tester"},
		Chat:     &tgbotapi.Chat{ID: userID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func textMessage(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
	}}
}

func press(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func TestCalibrationFlow(t *testing.T) {
	b, api, svc, users := newTestBot(t, nil)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(7, "/start"))
	assert.Contains(t, api.last(), "Calibration 1/5")
	assert.Contains(t, users.users, int64(7))

	b.HandleUpdate(ctx, press(7, "quiz_0"))
	assert.Contains(t, api.last(), "Calibration 2/5")
	b.HandleUpdate(ctx, press(7, callbackQuizBack))
	assert.Contains(t, api.last(), "Calibration 1/5")

	// Fourth option scores 4 on every question
	for i := 0; i < 5; i++ {
		b.HandleUpdate(ctx, press(7, "quiz_3"))
	}

	p, err := svc.Progress(ctx, 7)
	require.NoError(t, err)
	assert.True(t, p.PretestCompleted)
	assert.Equal(t, 4, p.Level)
	assert.Contains(t, api.last(), p.CurrentChallenge)

	// Another answer has no quiz to go to
	b.HandleUpdate(ctx, press(7, "quiz_1"))
	assert.Contains(t, api.last(), "expired")
}

func TestCalibrationExpires(t *testing.T) {
	b, api, _, _ := newTestBot(t, &BotConfig{SessionTTL: time.Minute})
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	b.HandleUpdate(ctx, command(7, "/start"))
	now = now.Add(2 * time.Minute)
	b.HandleUpdate(ctx, press(7, "quiz_0"))
	assert.Contains(t, api.last(), "expired")
}

func TestDoneAndReflect(t *testing.T) {
	b, api, svc, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(3, "/done"))
	assert.Contains(t, api.last(), "/start")

	_, err := svc.OnboardAtLevel(ctx, 3, 2)
	require.NoError(t, err)

	b.HandleUpdate(ctx, command(3, "/done"))
	assert.Contains(t, api.last(), "+30 XP")
	assert.Contains(t, api.last(), "First Rep")

	b.HandleUpdate(ctx, command(3, "/done"))
	assert.Contains(t, api.last(), "already finished")

	b.HandleUpdate(ctx, command(3, "/reflect"))
	assert.Contains(t, api.last(), "How did it go")
	b.HandleUpdate(ctx, textMessage(3, "I said hi to the barista"))
	assert.Contains(t, api.last(), "Keep going")
	assert.NotContains(t, api.last(), "unavailable")

	svc.Wait()
	list, err := svc.Reflections(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "I said hi to the barista", list[0].Reflection)

	// The prompt was consumed
	b.HandleUpdate(ctx, textMessage(3, "hello?"))
	assert.Contains(t, api.last(), "I don't understand")
}

func TestLessonsAndStats(t *testing.T) {
	b, api, svc, _ := newTestBot(t, nil)
	ctx := context.Background()
	_, err := svc.OnboardAtLevel(ctx, 5, 3)
	require.NoError(t, err)

	b.HandleUpdate(ctx, press(5, "lesson_2"))
	assert.Contains(t, api.last(), "+5 XP")
	b.HandleUpdate(ctx, command(5, "/lesson 2"))
	assert.Contains(t, api.last(), "already completed")
	b.HandleUpdate(ctx, command(5, "/lesson 99"))
	assert.Contains(t, api.last(), "no lesson")

	b.HandleUpdate(ctx, command(5, "/lessons"))
	assert.Contains(t, api.last(), "✅ 2.")

	b.HandleUpdate(ctx, command(5, "/stats"))
	assert.Contains(t, api.last(), "Confident · Level 3")
	assert.Contains(t, api.last(), "XP: 5")

	b.HandleUpdate(ctx, command(5, "/badges"))
	assert.Contains(t, api.last(), "First Rep (0/1)")
}

func TestReminderSettings(t *testing.T) {
	b, api, _, users := newTestBot(t, nil)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(4, "/time 25"))
	assert.Contains(t, api.last(), "valid hour")

	b.HandleUpdate(ctx, command(4, "/time 7"))
	assert.Contains(t, api.last(), "7:00")
	b.HandleUpdate(ctx, command(4, "/notify off"))
	assert.Contains(t, api.last(), "disabled")

	user := users.users[4]
	assert.False(t, user.NotificationEnabled)
	assert.Equal(t, 7, user.NotificationHour)
}

func TestResetAndAdmin(t *testing.T) {
	b, api, svc, _ := newTestBot(t, &BotConfig{AdminUserIDs: []int64{1}, SessionTTL: time.Hour})
	ctx := context.Background()
	_, err := svc.OnboardAtLevel(ctx, 2, 1)
	require.NoError(t, err)

	b.HandleUpdate(ctx, command(2, "/rollover"))
	assert.Contains(t, api.last(), "only available for administrators")
	b.HandleUpdate(ctx, command(1, "/rollover"))
	assert.Contains(t, api.last(), "Rolled over 0 user(s)")

	b.HandleUpdate(ctx, command(2, "/reset"))
	assert.Contains(t, api.last(), "Are you sure")
	b.HandleUpdate(ctx, press(2, callbackResetConfirm))
	assert.Contains(t, api.last(), "deleted")

	p, err := svc.Progress(ctx, 2)
	require.NoError(t, err)
	assert.False(t, p.PretestCompleted)
}

func TestSendReminder(t *testing.T) {
	b, api, _, _ := newTestBot(t, nil)
	p := models.UserProgress{CurrentChallenge: "Compliment a colleague", Streak: 4}

	require.NoError(t, b.SendReminder(context.Background(), 42, p))

	api.mu.Lock()
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	api.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Contains(t, msg.Text, "Compliment a colleague")
	assert.Contains(t, msg.Text, "4-day streak")
}

func TestRunStopsOnCancel(t *testing.T) {
	b, api, _, _ := newTestBot(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	api.updates <- command(8, "/help")
	assert.Eventually(t, func() bool {
		return strings.Contains(api.last(), "How Courage Reps works")
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.requests)
	_, ok := api.requests[0].(tgbotapi.SetMyCommandsConfig)
	assert.True(t, ok)
}
